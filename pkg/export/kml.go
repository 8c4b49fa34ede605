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

	"github.com/twpayne/go-kml/v2"

	"github.com/spezifisch/gpx-tracker/pkg/gpx"
	"github.com/spezifisch/gpx-tracker/pkg/tracklog"
)

// KML writes items as a KML document. Way points become point placemarks,
// routes a single line string and every track segment a line string of its
// own.
func KML(w io.Writer, items []*tracklog.Item) error {
	doc := kml.Document()
	for _, item := range items {
		switch item.Type {
		case gpx.ObjectMetadata:
			if item.Metadata.Name != "" {
				doc.Add(kml.Name(item.Metadata.Name))
			}
			if item.Metadata.Description != "" {
				doc.Add(kml.Description(item.Metadata.Description))
			}
		case gpx.ObjectWayPoint:
			doc.Add(placemark(item.WayPoint.Name, item.WayPoint.Description,
				kml.Point(coordinates(item.WayPoint.Point))))
		case gpx.ObjectRoute:
			rte := item.Route
			doc.Add(placemark(rte.Name, rte.Description,
				kml.LineString(coordinates(rte.ToPoints()...))))
		case gpx.ObjectTrack:
			trk := item.Track
			for _, seg := range trk.Segments {
				doc.Add(placemark(trk.Name, trk.Description,
					kml.LineString(coordinates(gpx.Points(seg.Points)...))))
			}
		}
	}
	return kml.KML(doc).WriteIndent(w, "", "  ")
}

func placemark(name, desc string, geometry kml.Element) *kml.CompoundElement {
	pm := kml.Placemark()
	if name != "" {
		pm.Add(kml.Name(name))
	}
	if desc != "" {
		pm.Add(kml.Description(desc))
	}
	return pm.Add(geometry)
}

func coordinates(pts ...gpx.Point) *kml.CoordinatesElement {
	cs := make([]kml.Coordinate, len(pts))
	for i, p := range pts {
		cs[i] = kml.Coordinate{Lon: p.Longitude, Lat: p.Latitude, Alt: p.Elevation}
	}
	return kml.Coordinates(cs...)
}
