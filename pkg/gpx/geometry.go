// This file is part of gpx-tracker (https://github.com/spezifisch/gpx-tracker).
// Copyright (C) 2021-2022 spezifisch <spezifisch-7e6@below.fr> (https://github.com/spezifisch).
//
// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the
// Free Software Foundation, version 3 of the License.
//
// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or FITNESS
// FOR A PARTICULAR PURPOSE. See the GNU Affero General Public License for more
// details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package gpx

import "math"

// EarthRadius in km
const EarthRadius = 6371.0

// Locator is implemented by every point kind through the embedded Point.
type Locator interface {
	Location() Point
}

// Distance returns the great-circle distance between a and b in km using the
// spherical law of cosines.
func Distance(a, b Point) float64 {
	lat1 := toRad(a.Latitude)
	lat2 := toRad(b.Latitude)
	dLon := toRad(math.Abs(a.Longitude - b.Longitude))

	cos := math.Cos(dLon)*math.Cos(lat1)*math.Cos(lat2) + math.Sin(lat1)*math.Sin(lat2)
	// rounding can push identical points past 1
	cos = math.Max(-1, math.Min(1, cos))

	return EarthRadius * math.Acos(cos)
}

// Length is the sum of the distances between consecutive points in km.
func Length[P Locator](pts []P) float64 {
	var total float64
	for i := 1; i < len(pts); i++ {
		total += Distance(pts[i-1].Location(), pts[i].Location())
	}
	return total
}

// MinElevation returns the lowest elevation. The bool is false for an empty
// slice.
func MinElevation[P Locator](pts []P) (float64, bool) {
	var lo float64
	for i, p := range pts {
		if e := p.Location().Elevation; i == 0 || e < lo {
			lo = e
		}
	}
	return lo, len(pts) > 0
}

// MaxElevation returns the highest elevation. The bool is false for an empty
// slice.
func MaxElevation[P Locator](pts []P) (float64, bool) {
	var hi float64
	for i, p := range pts {
		if e := p.Location().Elevation; i == 0 || e > hi {
			hi = e
		}
	}
	return hi, len(pts) > 0
}

// Points copies any point sequence down to plain points.
func Points[P Locator](pts []P) []Point {
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[i] = p.Location()
	}
	return out
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
