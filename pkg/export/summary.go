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


package export

import (
	"io"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/spezifisch/gpx-tracker/pkg/gpx"
	"github.com/spezifisch/gpx-tracker/pkg/tracklog"
)

// Summary holds statistics over a set of decoded objects. Lengths are in km,
// elevations in m. Elevations are nil when no point was seen.
type Summary struct {
	Files        int      `yaml:"files"`
	WayPoints    int      `yaml:"waypoints"`
	Routes       int      `yaml:"routes"`
	Tracks       int      `yaml:"tracks"`
	Segments     int      `yaml:"segments"`
	Points       int      `yaml:"points"`
	RouteLength  float64  `yaml:"route_length_km"`
	TrackLength  float64  `yaml:"track_length_km"`
	MinElevation *float64 `yaml:"min_elevation,omitempty"`
	MaxElevation *float64 `yaml:"max_elevation,omitempty"`
}

// Summarize counts items and measures their routes and tracks. Track lengths
// are summed per segment, gaps between segments are not counted.
func Summarize(items []*tracklog.Item) Summary {
	var s Summary
	files := make(map[string]bool)
	var pts []gpx.Point

	for _, item := range items {
		files[item.File] = true
		switch item.Type {
		case gpx.ObjectWayPoint:
			s.WayPoints++
			pts = append(pts, item.WayPoint.Point)
		case gpx.ObjectRoute:
			s.Routes++
			rpts := item.Route.ToPoints()
			s.RouteLength += gpx.Length(rpts)
			pts = append(pts, rpts...)
		case gpx.ObjectTrack:
			s.Tracks++
			for _, seg := range item.Track.Segments {
				s.Segments++
				s.TrackLength += gpx.Length(seg.Points)
				pts = append(pts, gpx.Points(seg.Points)...)
			}
		}
	}
	s.Files = len(files)
	s.Points = len(pts)

	if lo, ok := gpx.MinElevation(pts); ok {
		s.MinElevation = &lo
	}
	if hi, ok := gpx.MaxElevation(pts); ok {
		s.MaxElevation = &hi
	}
	s.RouteLength = round(s.RouteLength)
	s.TrackLength = round(s.TrackLength)
	return s
}

// WriteSummary writes s as a YAML document.
func WriteSummary(w io.Writer, s Summary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return err
	}
	return enc.Close()
}

// round to meters
func round(km float64) float64 {
	return math.Round(km*1000) / 1000
}
