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

import (
	"errors"
	"io"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"
)

const sampleFile = "../../test/gpx/sample.gpx"

func utc(year int, month time.Month, day, hour, min, sec int) time.Time {
	return time.Date(year, month, day, hour, min, sec, 0, time.UTC)
}

// sampleObjects returns the objects stored in sampleFile in document order.
func sampleObjects() (*Metadata, []*WayPoint, *Route, *Track) {
	meta := &Metadata{
		Name: "Weekend",
		Author: &Person{
			Name:  "spezifisch",
			Email: &Email{ID: "spezifisch-7e6", Domain: "below.fr"},
		},
		Copyright: &Copyright{
			Author:  "spezifisch",
			Year:    2022,
			License: "https://creativecommons.org/licenses/by-sa/4.0/",
		},
		Link:   &Link{Href: "https://github.com/spezifisch/gpx-tracker", Text: "gpx-tracker"},
		Time:   utc(2022, 3, 5, 8, 0, 0),
		Bounds: &Bounds{MinLatitude: 52.5, MinLongitude: 13.3, MaxLatitude: 52.6, MaxLongitude: 13.5},
	}

	wpts := []*WayPoint{
		{
			Point: Point{Latitude: 52.5163, Longitude: 13.3777, Elevation: 34.5, Time: utc(2022, 3, 5, 9, 15, 0)},
			Name:  "Brandenburger Tor",
			Links: []Link{
				{Href: "http://example.org/tor", Text: "info"},
				{Href: "mailto:info@example.org"},
			},
			Symbol: "Flag, Blue",
			Address: &Address{
				StreetAddress: "Pariser Platz 1",
				City:          "Berlin",
				Country:       "Germany",
				PostalCode:    "10117",
			},
			Phones: []Phone{
				{Number: "+49 30 1234", Category: "Phone"},
				{Number: "+49 30 5678", Category: "Fax"},
			},
		},
		{
			Point: Point{Latitude: 52.5145, Longitude: 13.3501},
		},
	}

	rte := &Route{
		PathInfo: PathInfo{Name: "To the park", Number: 1, DisplayColor: ColorMagenta},
		Points: []RoutePoint{
			{
				WayPoint: WayPoint{
					Point: Point{Latitude: 52.5163, Longitude: 13.3777},
					Name:  "Start",
				},
				RoutePoints: []Point{
					{Latitude: 52.5155, Longitude: 13.37},
					{Latitude: 52.514, Longitude: 13.365},
				},
			},
			{
				WayPoint: WayPoint{
					Point: Point{Latitude: 52.5145, Longitude: 13.3501},
					Name:  "Siegessäule",
				},
			},
		},
	}

	trk := &Track{
		PathInfo: PathInfo{Name: "Morning walk", Type: "walking", DisplayColor: ColorDarkYellow},
		Segments: []TrackSegment{
			{Points: []TrackPoint{
				{
					Point: Point{Latitude: 52.5163, Longitude: 13.3777, Elevation: 34, Time: utc(2022, 3, 5, 9, 0, 0)},
					GPS:   &GPSQuality{Satellites: 7, HDOP: 1.2},
				},
				{
					Point: Point{Latitude: 52.516, Longitude: 13.376, Elevation: 35.5, Time: utc(2022, 3, 5, 9, 1, 0)},
				},
			}},
			{Points: []TrackPoint{
				{
					Point: Point{Latitude: 52.515, Longitude: 13.37, Time: utc(2022, 3, 5, 9, 10, 0)},
				},
			}},
		},
	}

	return meta, wpts, rte, trk
}

func TestNewReader(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		want        Attributes
		wantElement string
		wantErr     bool
	}{
		{
			name:    "empty stream",
			input:   "",
			wantErr: true,
		},
		{
			name:    "declaration only",
			input:   `<?xml version="1.0" encoding="UTF-8"?>`,
			wantErr: true,
		},
		{
			name:        "wrong root",
			input:       `<kml xmlns="http://www.opengis.net/kml/2.2"></kml>`,
			wantElement: "kml",
			wantErr:     true,
		},
		{
			name:    "broken markup",
			input:   `<gpx version="1.1"`,
			wantErr: true,
		},
		{
			name:    "unsupported encoding",
			input:   `<?xml version="1.0" encoding="x-klingon"?><gpx version="1.1"></gpx>`,
			wantErr: true,
		},
		{
			name:  "attributes",
			input: `<?xml version="1.0"?><!-- comment --><gpx version="1.1" creator="x"></gpx>`,
			want:  Attributes{Version: "1.1", Creator: "x"},
		},
		{
			name:  "namespaced root",
			input: `<gpx xmlns="http://www.topografix.com/GPX/1/1" creator="eTrex" version="1.1"/>`,
			want:  Attributes{Version: "1.1", Creator: "eTrex"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewReader(strings.NewReader(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewReader() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var se *StructuralError
				if !errors.As(err, &se) {
					t.Fatalf("NewReader() error = %T, want *StructuralError", err)
				}
				if se.Element != tt.wantElement {
					t.Errorf("StructuralError.Element = %q, want %q", se.Element, tt.wantElement)
				}
				return
			}
			defer r.Close()

			if r.ObjectType != ObjectAttributes {
				t.Errorf("ObjectType = %v, want %v", r.ObjectType, ObjectAttributes)
			}
			if r.Attributes != tt.want {
				t.Errorf("Attributes = %+v, want %+v", r.Attributes, tt.want)
			}
		})
	}
}

func TestReader_Charset(t *testing.T) {
	f, err := os.Open("../../test/gpx/latin1.gpx")
	if err != nil {
		t.Fatal(err)
	}
	r, err := NewReader(f)
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	defer r.Close()

	if r.Attributes.Creator != "Legacy Logger 2.0" {
		t.Errorf("Attributes = %+v", r.Attributes)
	}
	got, err := readAll(r)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	want := []interface{}{
		&WayPoint{
			Point:       Point{Latitude: 48.1374, Longitude: 11.5755},
			Name:        "München Marienplatz",
			Description: "Straße ° Maße",
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Read() = %+v, want %+v", got, want)
	}

	t.Run("unsupported label closes the stream", func(t *testing.T) {
		c := &closeTracker{Reader: strings.NewReader(`<?xml version="1.0" encoding="x-klingon"?><gpx/>`)}
		_, err := NewReader(c)
		var se *StructuralError
		if !errors.As(err, &se) || se.Err == nil {
			t.Fatalf("NewReader() error = %v, want *StructuralError with cause", err)
		}
		if c.closed != 1 {
			t.Errorf("stream closed %d times, want 1", c.closed)
		}
	})
}

func TestReader_EmptyRoot(t *testing.T) {
	f, err := os.Open("../../test/gpx/empty.gpx")
	if err != nil {
		t.Fatal(err)
	}
	r, err := NewReader(f)
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	defer r.Close()

	for i := 0; i < 3; i++ {
		ok, err := r.Read()
		if ok || err != nil {
			t.Fatalf("Read() #%d = %v, %v, want false, nil", i, ok, err)
		}
		if r.ObjectType != ObjectNone {
			t.Fatalf("ObjectType = %v, want %v", r.ObjectType, ObjectNone)
		}
	}
}

func TestReader_MinimalWayPoint(t *testing.T) {
	r, err := NewReader(strings.NewReader(`<gpx version="1.1" creator="x"><wpt lat="10" lon="20"/></gpx>`))
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	if want := (Attributes{Version: "1.1", Creator: "x"}); r.Attributes != want {
		t.Errorf("Attributes = %+v, want %+v", r.Attributes, want)
	}

	ok, err := r.Read()
	if !ok || err != nil {
		t.Fatalf("Read() = %v, %v, want true, nil", ok, err)
	}
	if r.ObjectType != ObjectWayPoint {
		t.Fatalf("ObjectType = %v, want %v", r.ObjectType, ObjectWayPoint)
	}
	want := &WayPoint{Point: Point{Latitude: 10, Longitude: 20}}
	if !reflect.DeepEqual(r.WayPoint, want) {
		t.Errorf("WayPoint = %+v, want %+v", r.WayPoint, want)
	}

	ok, err = r.Read()
	if ok || err != nil || r.ObjectType != ObjectNone {
		t.Errorf("Read() = %v, %v (%v), want false, nil (none)", ok, err, r.ObjectType)
	}
}

func TestReader_Sample(t *testing.T) {
	f, err := os.Open(sampleFile)
	if err != nil {
		t.Fatal(err)
	}
	r, err := NewReader(f)
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	defer r.Close()

	if want := (Attributes{Version: "1.1", Creator: "eTrex 30"}); r.Attributes != want {
		t.Errorf("Attributes = %+v, want %+v", r.Attributes, want)
	}

	meta, wpts, rte, trk := sampleObjects()
	wantTypes := []ObjectType{ObjectMetadata, ObjectWayPoint, ObjectWayPoint, ObjectRoute, ObjectTrack}

	var wpIndex int
	for i, wantType := range wantTypes {
		ok, err := r.Read()
		if !ok || err != nil {
			t.Fatalf("Read() #%d = %v, %v", i, ok, err)
		}
		if r.ObjectType != wantType {
			t.Fatalf("Read() #%d ObjectType = %v, want %v", i, r.ObjectType, wantType)
		}

		switch r.ObjectType {
		case ObjectMetadata:
			if !reflect.DeepEqual(r.Metadata, meta) {
				t.Errorf("Metadata = %+v, want %+v", r.Metadata, meta)
			}
		case ObjectWayPoint:
			if !reflect.DeepEqual(r.WayPoint, wpts[wpIndex]) {
				t.Errorf("WayPoint #%d = %+v, want %+v", wpIndex, r.WayPoint, wpts[wpIndex])
			}
			wpIndex++
		case ObjectRoute:
			if !reflect.DeepEqual(r.Route, rte) {
				t.Errorf("Route = %+v, want %+v", r.Route, rte)
			}
		case ObjectTrack:
			if !reflect.DeepEqual(r.Track, trk) {
				t.Errorf("Track = %+v, want %+v", r.Track, trk)
			}
		}
	}

	ok, err := r.Read()
	if ok || err != nil {
		t.Errorf("final Read() = %v, %v, want false, nil", ok, err)
	}
}

func TestReader_StructuralErrors(t *testing.T) {
	const vendorRoot = `<gpx version="1.1" xmlns="http://www.topografix.com/GPX/1/1" xmlns:gpxx="http://www.garmin.com/xmlschemas/GpxExtensions/v3">`

	tests := []struct {
		name        string
		input       string
		wantElement string
	}{
		{
			name:        "unknown root child",
			input:       `<gpx version="1.1" creator="x"><bogus/></gpx>`,
			wantElement: "bogus",
		},
		{
			name:        "unknown waypoint child",
			input:       `<gpx><wpt lat="1" lon="2"><speed>3</speed></wpt></gpx>`,
			wantElement: "speed",
		},
		{
			name:        "track point field in route",
			input:       `<gpx><rte><trkseg/></rte></gpx>`,
			wantElement: "trkseg",
		},
		{
			name:        "missing lat",
			input:       `<gpx><wpt lon="2"/></gpx>`,
			wantElement: "wpt",
		},
		{
			name:        "missing lon on track point",
			input:       `<gpx><trk><trkseg><trkpt lat="2"/></trkseg></trk></gpx>`,
			wantElement: "trkpt",
		},
		{
			name:        "child in simple element",
			input:       `<gpx><wpt lat="1" lon="2"><name><b>x</b></name></wpt></gpx>`,
			wantElement: "name",
		},
		{
			name:        "child in bounds",
			input:       `<gpx><metadata><bounds minlat="1"><x/></bounds></metadata></gpx>`,
			wantElement: "x",
		},
		{
			name:        "unknown vendor element in waypoint",
			input:       vendorRoot + `<wpt lat="1" lon="2"><extensions><gpxx:Bogus/></extensions></wpt></gpx>`,
			wantElement: "Bogus",
		},
		{
			name:        "route point extension in waypoint",
			input:       vendorRoot + `<wpt lat="1" lon="2"><extensions><gpxx:RoutePointExtension/></extensions></wpt></gpx>`,
			wantElement: "RoutePointExtension",
		},
		{
			name:        "unknown vendor member",
			input:       vendorRoot + `<wpt lat="1" lon="2"><extensions><gpxx:WaypointExtension><gpxx:Bogus/></gpxx:WaypointExtension></extensions></wpt></gpx>`,
			wantElement: "Bogus",
		},
		{
			name:        "unknown vendor element in track",
			input:       vendorRoot + `<trk><extensions><gpxx:Bogus/></extensions></trk></gpx>`,
			wantElement: "Bogus",
		},
		{
			name:        "track extension in route",
			input:       vendorRoot + `<rte><extensions><gpxx:TrackExtension><gpxx:DisplayColor>Red</gpxx:DisplayColor></gpxx:TrackExtension></extensions></rte></gpx>`,
			wantElement: "TrackExtension",
		},
		{
			name:        "route extension in track",
			input:       vendorRoot + `<trk><extensions><gpxx:RouteExtension><gpxx:DisplayColor>Red</gpxx:DisplayColor></gpxx:RouteExtension></extensions></trk></gpx>`,
			wantElement: "RouteExtension",
		},
		{
			name:        "truncated document",
			input:       `<gpx><wpt lat="1" lon="2">`,
			wantElement: "wpt",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewReader(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("NewReader() error = %v", err)
			}
			defer r.Close()

			_, err = readAll(r)
			var se *StructuralError
			if !errors.As(err, &se) {
				t.Fatalf("Read() error = %v, want *StructuralError", err)
			}
			if se.Element != tt.wantElement {
				t.Errorf("StructuralError.Element = %q, want %q (%v)", se.Element, tt.wantElement, err)
			}

			// the error sticks
			if ok, again := r.Read(); ok || again != err {
				t.Errorf("Read() after error = %v, %v, want false, %v", ok, again, err)
			}
		})
	}
}

func TestReader_ValueErrors(t *testing.T) {
	const vendorRoot = `<gpx xmlns:gpxx="http://www.garmin.com/xmlschemas/GpxExtensions/v3">`

	tests := []struct {
		name        string
		input       string
		wantElement string
		wantValue   string
	}{
		{
			name:        "elevation",
			input:       `<gpx><wpt lat="1" lon="2"><ele>high</ele></wpt></gpx>`,
			wantElement: "ele",
			wantValue:   "high",
		},
		{
			name:        "latitude",
			input:       `<gpx><wpt lat="1,5" lon="2"/></gpx>`,
			wantElement: "wpt",
			wantValue:   "1,5",
		},
		{
			name:        "time",
			input:       `<gpx><trk><trkseg><trkpt lat="1" lon="2"><time>yesterday</time></trkpt></trkseg></trk></gpx>`,
			wantElement: "time",
			wantValue:   "yesterday",
		},
		{
			name:        "satellites",
			input:       `<gpx><trk><trkseg><trkpt lat="1" lon="2"><sat>7.5</sat></trkpt></trkseg></trk></gpx>`,
			wantElement: "sat",
			wantValue:   "7.5",
		},
		{
			name:        "route number",
			input:       `<gpx><rte><number>one</number></rte></gpx>`,
			wantElement: "number",
			wantValue:   "one",
		},
		{
			name:        "bounds",
			input:       `<gpx><metadata><bounds minlat="x"/></metadata></gpx>`,
			wantElement: "bounds",
			wantValue:   "x",
		},
		{
			name:        "display color",
			input:       vendorRoot + `<rte><extensions><gpxx:RouteExtension><gpxx:DisplayColor>Purple</gpxx:DisplayColor></gpxx:RouteExtension></extensions></rte></gpx>`,
			wantElement: "DisplayColor",
			wantValue:   "Purple",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewReader(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("NewReader() error = %v", err)
			}
			defer r.Close()

			_, err = readAll(r)
			var ve *ValueError
			if !errors.As(err, &ve) {
				t.Fatalf("Read() error = %v, want *ValueError", err)
			}
			if ve.Element != tt.wantElement || ve.Value != tt.wantValue {
				t.Errorf("ValueError = %q in <%s>, want %q in <%s>", ve.Value, ve.Element, tt.wantValue, tt.wantElement)
			}
		})
	}
}

func TestReader_Lenient(t *testing.T) {
	input := `<gpx xmlns:gpxx="http://www.garmin.com/xmlschemas/GpxExtensions/v3">
<metadata>
  <author><email><id>me</id><domain>example.org</domain></email></author>
  <copyright author="me"><licence>CC0</licence></copyright>
  <extensions><anything/></extensions>
</metadata>
<wpt lat=" 1.5 " lon="-2">
  <time>2021-06-01T12:00:00+02:00</time>
  <name></name>
  <fix>3d</fix>
  <extensions><foreign xmlns="urn:x"><gpxx:Address/></foreign></extensions>
</wpt>
<trk><trkseg><trkpt lat="1" lon="2"><time>2021-06-01</time><name>ignored</name></trkpt></trkseg></trk>
</gpx>`

	r, err := NewReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	defer r.Close()

	objs, err := readAll(r)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(objs) != 3 {
		t.Fatalf("read %d objects, want 3", len(objs))
	}

	wantMeta := &Metadata{
		Author:    &Person{Email: &Email{ID: "me", Domain: "example.org"}},
		Copyright: &Copyright{Author: "me", License: "CC0"},
	}
	if !reflect.DeepEqual(objs[0], wantMeta) {
		t.Errorf("Metadata = %+v, want %+v", objs[0], wantMeta)
	}

	wantWpt := &WayPoint{Point: Point{Latitude: 1.5, Longitude: -2, Time: utc(2021, 6, 1, 10, 0, 0)}}
	if !reflect.DeepEqual(objs[1], wantWpt) {
		t.Errorf("WayPoint = %+v, want %+v", objs[1], wantWpt)
	}

	wantTrk := &Track{Segments: []TrackSegment{{Points: []TrackPoint{
		{Point: Point{Latitude: 1, Longitude: 2, Time: utc(2021, 6, 1, 0, 0, 0)}},
	}}}}
	if !reflect.DeepEqual(objs[2], wantTrk) {
		t.Errorf("Track = %+v, want %+v", objs[2], wantTrk)
	}
}

var errBoom = errors.New("boom")

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errBoom
}

type closeTracker struct {
	io.Reader
	closed int
}

func (c *closeTracker) Close() error {
	c.closed++
	return nil
}

func TestReader_ResourceError(t *testing.T) {
	in := io.MultiReader(strings.NewReader(`<gpx><wpt lat="1" lon="2">`), failingReader{})
	r, err := NewReader(in)
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}

	_, err = r.Read()
	if !errors.Is(err, errBoom) {
		t.Errorf("Read() error = %v, want %v", err, errBoom)
	}
	var se *StructuralError
	if errors.As(err, &se) {
		t.Errorf("Read() error = %v, stream errors must pass unchanged", err)
	}
}

func TestReader_Close(t *testing.T) {
	t.Run("closed on failed construction", func(t *testing.T) {
		c := &closeTracker{Reader: strings.NewReader(`<kml/>`)}
		if _, err := NewReader(c); err == nil {
			t.Fatal("NewReader() succeeded on a kml document")
		}
		if c.closed != 1 {
			t.Errorf("stream closed %d times, want 1", c.closed)
		}
	})

	t.Run("close is idempotent", func(t *testing.T) {
		c := &closeTracker{Reader: strings.NewReader(`<gpx><wpt lat="1" lon="2"/></gpx>`)}
		r, err := NewReader(c)
		if err != nil {
			t.Fatalf("NewReader() error = %v", err)
		}
		if err := r.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
		if err := r.Close(); err != nil {
			t.Errorf("second Close() error = %v", err)
		}
		if c.closed != 1 {
			t.Errorf("stream closed %d times, want 1", c.closed)
		}
		if ok, err := r.Read(); ok || err != nil {
			t.Errorf("Read() after Close() = %v, %v, want false, nil", ok, err)
		}
	})
}

// readAll collects every top-level object until the end of the document or
// the first error.
func readAll(r *Reader) ([]interface{}, error) {
	var objs []interface{}
	for {
		ok, err := r.Read()
		if err != nil {
			return objs, err
		}
		if !ok {
			return objs, nil
		}

		switch r.ObjectType {
		case ObjectMetadata:
			objs = append(objs, r.Metadata)
		case ObjectWayPoint:
			objs = append(objs, r.WayPoint)
		case ObjectRoute:
			objs = append(objs, r.Route)
		case ObjectTrack:
			objs = append(objs, r.Track)
		}
	}
}
