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
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/spezifisch/gpx-tracker/pkg/gpx"
	"github.com/spezifisch/gpx-tracker/pkg/tracklog"
)

// GeoJSON encodes items as a feature collection. Way points are points,
// routes line strings and tracks multi line strings with one line per
// segment. Every feature carries its object type as property "kind".
func GeoJSON(items []*tracklog.Item) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, item := range items {
		var f *geojson.Feature
		switch item.Type {
		case gpx.ObjectWayPoint:
			wp := item.WayPoint
			f = feature(orb.Point{wp.Longitude, wp.Latitude}, item.Type, wp.Name)
			if !wp.Time.IsZero() {
				f.Properties["time"] = wp.Time.UTC().Format(gpx.TimeLayout)
			}
			if wp.Elevation != 0 {
				f.Properties["ele"] = wp.Elevation
			}
		case gpx.ObjectRoute:
			f = feature(lineString(item.Route.ToPoints()), item.Type, item.Route.Name)
		case gpx.ObjectTrack:
			var ml orb.MultiLineString
			for _, seg := range item.Track.Segments {
				ml = append(ml, lineString(gpx.Points(seg.Points)))
			}
			f = feature(ml, item.Type, item.Track.Name)
		default:
			continue
		}
		fc.Append(f)
	}
	return fc.MarshalJSON()
}

func feature(g orb.Geometry, t gpx.ObjectType, name string) *geojson.Feature {
	f := geojson.NewFeature(g)
	f.Properties["kind"] = t.String()
	if name != "" {
		f.Properties["name"] = name
	}
	return f
}

func lineString(pts []gpx.Point) orb.LineString {
	ls := make(orb.LineString, len(pts))
	for i, p := range pts {
		ls[i] = orb.Point{p.Longitude, p.Latitude}
	}
	return ls
}
