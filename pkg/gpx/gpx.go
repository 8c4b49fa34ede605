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

// Package gpx reads and writes GPX 1.1 track logs including the Garmin
// GpxExtensions/v3 vendor dialect.
package gpx

import (
	"net/url"
	"strings"
	"time"
)

const (
	// Namespace is the GPX 1.1 schema namespace.
	Namespace = "http://www.topografix.com/GPX/1/1"
	// VendorNamespace is the Garmin GpxExtensions v3 namespace.
	VendorNamespace = "http://www.garmin.com/xmlschemas/GpxExtensions/v3"
	// VendorPrefix is bound to VendorNamespace on every written root element.
	VendorPrefix = "gpxx"
	// Version is the format version written by Writer.
	Version = "1.1"
	// DefaultCreator is written when no other creator is configured.
	DefaultCreator = "https://github.com/spezifisch/gpx-tracker"
)

// ObjectType tells which top-level object a Reader currently holds.
type ObjectType int

// Reader states
const (
	ObjectNone ObjectType = iota
	ObjectAttributes
	ObjectMetadata
	ObjectWayPoint
	ObjectRoute
	ObjectTrack
)

func (t ObjectType) String() string {
	switch t {
	case ObjectAttributes:
		return "attributes"
	case ObjectMetadata:
		return "metadata"
	case ObjectWayPoint:
		return "waypoint"
	case ObjectRoute:
		return "route"
	case ObjectTrack:
		return "track"
	default:
		return "none"
	}
}

// Attributes are the version and creator of the root element.
type Attributes struct {
	Version string
	Creator string
}

// Metadata describes the whole document.
type Metadata struct {
	Name        string
	Description string
	Author      *Person
	Copyright   *Copyright
	Link        *Link
	Time        time.Time
	Keywords    string
	Bounds      *Bounds
}

// Point is the shape shared by every point kind. A zero Time means unset.
type Point struct {
	Latitude  float64
	Longitude float64
	Elevation float64
	Time      time.Time
}

// Location returns the plain point. It is promoted to every point kind so
// they all satisfy Locator.
func (p Point) Location() Point {
	return p
}

// GPSQuality holds the fix parameters recorded with a track point.
type GPSQuality struct {
	MagneticVar float64
	GeoidHeight float64
	FixType     string
	Satellites  int
	HDOP        float64
	VDOP        float64
	PDOP        float64
	AgeOfData   float64
	DGPSID      int
}

// TrackPoint is a recorded point. GPS is only allocated once any quality
// parameter is known.
type TrackPoint struct {
	Point
	GPS *GPSQuality
}

// Quality returns the fix parameters, zero valued when none were recorded.
func (p *TrackPoint) Quality() GPSQuality {
	if p.GPS == nil {
		return GPSQuality{}
	}
	return *p.GPS
}

func (p *TrackPoint) gps() *GPSQuality {
	if p.GPS == nil {
		p.GPS = &GPSQuality{}
	}
	return p.GPS
}

// WayPoint is a named point of interest. Address and Phones are carried in
// the vendor WaypointExtension.
type WayPoint struct {
	Point
	Name        string
	Comment     string
	Description string
	Source      string
	Symbol      string
	Type        string
	Links       []Link

	Address *Address
	Phones  []Phone
}

// HasExtensions reports whether the waypoint carries vendor extension data.
func (w *WayPoint) HasExtensions() bool {
	return w.Address != nil || len(w.Phones) != 0
}

// HTTPLink returns the first link with an http scheme.
func (w *WayPoint) HTTPLink() *Link {
	return firstLinkWithScheme(w.Links, "http")
}

// EmailLink returns the first mailto link.
func (w *WayPoint) EmailLink() *Link {
	return firstLinkWithScheme(w.Links, "mailto")
}

func firstLinkWithScheme(links []Link, scheme string) *Link {
	for i := range links {
		u, err := url.Parse(links[i].Href)
		if err != nil {
			continue
		}
		if strings.EqualFold(u.Scheme, scheme) {
			return &links[i]
		}
	}
	return nil
}

// RoutePoint is a waypoint of a route plus the auto-routing shaping points
// leading to the next route point.
type RoutePoint struct {
	WayPoint
	RoutePoints []Point
}

// HasExtensions reports whether the route point needs an extensions element.
func (r *RoutePoint) HasExtensions() bool {
	return r.WayPoint.HasExtensions() || len(r.RoutePoints) != 0
}

// PathInfo holds the fields routes and tracks have in common.
type PathInfo struct {
	Name         string
	Comment      string
	Description  string
	Source       string
	Links        []Link
	Number       int
	Type         string
	DisplayColor Color
}

// HasExtensions reports whether a display color is set.
func (p *PathInfo) HasExtensions() bool {
	return p.DisplayColor != ColorNone
}

// Route is an ordered list of route points.
type Route struct {
	PathInfo
	Points []RoutePoint
}

// ToPoints flattens the route, each route point followed by its shaping
// points.
func (r *Route) ToPoints() []Point {
	points := make([]Point, 0, len(r.Points))
	for i := range r.Points {
		points = append(points, r.Points[i].Point)
		points = append(points, r.Points[i].RoutePoints...)
	}
	return points
}

// Track is a recorded path made of one or more segments.
type Track struct {
	PathInfo
	Segments []TrackSegment
}

// ToPoints concatenates the points of all segments.
func (t *Track) ToPoints() []Point {
	var points []Point
	for _, seg := range t.Segments {
		points = append(points, Points(seg.Points)...)
	}
	return points
}

// TrackSegment is a continuous span of logging.
type TrackSegment struct {
	Points []TrackPoint
}

// Link points to an external resource.
type Link struct {
	Href     string
	Text     string
	MimeType string
}

// Email is split into id and domain to keep it away from harvesters.
type Email struct {
	ID     string
	Domain string
}

// Person is the author of a document.
type Person struct {
	Name  string
	Email *Email
	Link  *Link
}

// Copyright holds the license information of a document.
type Copyright struct {
	Author  string
	Year    int
	License string
}

// Bounds is the extent of a document.
type Bounds struct {
	MinLatitude  float64
	MinLongitude float64
	MaxLatitude  float64
	MaxLongitude float64
}

// Address is a postal address from the vendor extension.
type Address struct {
	StreetAddress string
	City          string
	State         string
	Country       string
	PostalCode    string
}

// Phone is a phone number from the vendor extension.
type Phone struct {
	Number   string
	Category string
}
