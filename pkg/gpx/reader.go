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
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/html/charset"
)

// Reader decodes a GPX document one top-level object at a time.
//
// After NewReader the Attributes of the root element are available and
// ObjectType is ObjectAttributes. Every successful Read replaces the field
// matching the new ObjectType. A Reader must not be used again after it
// returned an error.
type Reader struct {
	ObjectType ObjectType
	Attributes Attributes
	Metadata   *Metadata
	WayPoint   *WayPoint
	Route      *Route
	Track      *Track

	r      io.Reader
	d      *xml.Decoder
	err    error
	closed bool

	// set when the declared encoding is not supported
	charsetErr error
}

// NewReader scans r forward to the gpx root element. r is closed on failure
// if it is an io.Closer, otherwise it is closed by Reader.Close. Encodings
// other than UTF-8 named in the XML declaration are converted on the fly.
func NewReader(r io.Reader) (*Reader, error) {
	rd := &Reader{
		r: r,
		d: xml.NewDecoder(r),
	}
	rd.d.CharsetReader = rd.charsetReader

	for {
		tok, err := rd.d.Token()
		if err == io.EOF {
			rd.Close()
			return nil, &StructuralError{}
		}
		if err != nil {
			rd.Close()
			if rd.charsetErr != nil {
				return nil, &StructuralError{Err: rd.charsetErr}
			}
			return nil, wrapErr("", err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if se.Name.Local != "gpx" {
			rd.Close()
			return nil, &StructuralError{Element: se.Name.Local}
		}

		rd.Attributes = readAttributes(se)
		rd.ObjectType = ObjectAttributes
		return rd, nil
	}
}

func (r *Reader) charsetReader(label string, input io.Reader) (io.Reader, error) {
	cr, err := charset.NewReaderLabel(label, input)
	if err != nil {
		r.charsetErr = err
		return nil, err
	}
	return cr, nil
}

// Read advances to the next metadata, wpt, rte or trk element. It returns
// false once the end of the root element has been reached.
func (r *Reader) Read() (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	if r.ObjectType == ObjectNone {
		return false, nil
	}

	ok, err := r.read()
	if err != nil {
		r.err = err
	}
	return ok, err
}

func (r *Reader) read() (bool, error) {
	for {
		tok, err := r.d.Token()
		if err == io.EOF {
			r.ObjectType = ObjectNone
			return false, nil
		}
		if err != nil {
			if r.charsetErr != nil {
				return false, &StructuralError{Element: "gpx", Err: r.charsetErr}
			}
			return false, wrapErr("gpx", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "metadata":
				m, err := r.readMetadata(t)
				if err != nil {
					return false, err
				}
				r.Metadata = m
				r.ObjectType = ObjectMetadata
				return true, nil
			case "wpt":
				wp, err := r.readWayPoint(t)
				if err != nil {
					return false, err
				}
				r.WayPoint = wp
				r.ObjectType = ObjectWayPoint
				return true, nil
			case "rte":
				rte, err := r.readRoute(t)
				if err != nil {
					return false, err
				}
				r.Route = rte
				r.ObjectType = ObjectRoute
				return true, nil
			case "trk":
				trk, err := r.readTrack(t)
				if err != nil {
					return false, err
				}
				r.Track = trk
				r.ObjectType = ObjectTrack
				return true, nil
			case "extensions":
				if err := r.skip(t); err != nil {
					return false, err
				}
			default:
				return false, unexpected(t)
			}

		case xml.EndElement:
			if t.Name.Local != "gpx" {
				return false, &StructuralError{Element: t.Name.Local}
			}
			r.ObjectType = ObjectNone
			return false, nil
		}
	}
}

// Close closes the underlying stream if it is an io.Closer.
func (r *Reader) Close() error {
	r.ObjectType = ObjectNone
	if r.closed {
		return nil
	}
	r.closed = true
	if c, ok := r.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func readAttributes(se xml.StartElement) Attributes {
	var attrs Attributes
	for _, a := range se.Attr {
		switch a.Name.Local {
		case "version":
			attrs.Version = a.Value
		case "creator":
			attrs.Creator = a.Value
		}
	}
	return attrs
}

func (r *Reader) readMetadata(start xml.StartElement) (*Metadata, error) {
	m := &Metadata{}
	err := r.children(start, func(se xml.StartElement) (err error) {
		switch se.Name.Local {
		case "name":
			m.Name, err = r.readString(se)
		case "desc":
			m.Description, err = r.readString(se)
		case "author":
			m.Author, err = r.readPerson(se)
		case "copyright":
			m.Copyright, err = r.readCopyright(se)
		case "link":
			m.Link, err = r.readLink(se)
		case "time":
			m.Time, err = r.readTime(se)
		case "keywords":
			m.Keywords, err = r.readString(se)
		case "bounds":
			m.Bounds, err = r.readBounds(se)
		case "extensions":
			err = r.skip(se)
		default:
			err = unexpected(se)
		}
		return
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *Reader) readWayPoint(start xml.StartElement) (*WayPoint, error) {
	wp := &WayPoint{}
	if err := readLatLon(start, &wp.Point); err != nil {
		return nil, err
	}

	err := r.children(start, func(se xml.StartElement) error {
		if ok, err := r.readWayPointField(se, wp); ok {
			return err
		}
		switch se.Name.Local {
		case "extensions":
			return r.readPointExtensions(se, wp, nil)
		case "magvar", "geoidheight", "fix", "sat", "hdop", "vdop", "pdop", "ageofdgpsdata", "dgpsid":
			return r.skip(se)
		default:
			return unexpected(se)
		}
	})
	if err != nil {
		return nil, err
	}
	return wp, nil
}

func (r *Reader) readRoutePoint(start xml.StartElement) (RoutePoint, error) {
	var rp RoutePoint
	if err := readLatLon(start, &rp.Point); err != nil {
		return rp, err
	}

	err := r.children(start, func(se xml.StartElement) error {
		if ok, err := r.readWayPointField(se, &rp.WayPoint); ok {
			return err
		}
		switch se.Name.Local {
		case "extensions":
			return r.readPointExtensions(se, &rp.WayPoint, &rp)
		case "magvar", "geoidheight", "fix", "sat", "hdop", "vdop", "pdop", "ageofdgpsdata", "dgpsid":
			return r.skip(se)
		default:
			return unexpected(se)
		}
	})
	return rp, err
}

// readWayPointField decodes the children wpt and rtept have in common.
func (r *Reader) readWayPointField(se xml.StartElement, wp *WayPoint) (ok bool, err error) {
	switch se.Name.Local {
	case "ele":
		wp.Elevation, err = r.readFloat(se)
	case "time":
		wp.Time, err = r.readTime(se)
	case "name":
		wp.Name, err = r.readString(se)
	case "cmt":
		wp.Comment, err = r.readString(se)
	case "desc":
		wp.Description, err = r.readString(se)
	case "src":
		wp.Source, err = r.readString(se)
	case "link":
		var l *Link
		if l, err = r.readLink(se); err == nil {
			wp.Links = append(wp.Links, *l)
		}
	case "sym":
		wp.Symbol, err = r.readString(se)
	case "type":
		wp.Type, err = r.readString(se)
	default:
		return false, nil
	}
	return true, err
}

func (r *Reader) readRoute(start xml.StartElement) (*Route, error) {
	rte := &Route{}
	err := r.children(start, func(se xml.StartElement) error {
		if ok, err := r.readPathField(se, &rte.PathInfo, "RouteExtension"); ok {
			return err
		}
		switch se.Name.Local {
		case "rtept":
			rp, err := r.readRoutePoint(se)
			if err != nil {
				return err
			}
			rte.Points = append(rte.Points, rp)
			return nil
		default:
			return unexpected(se)
		}
	})
	if err != nil {
		return nil, err
	}
	return rte, nil
}

func (r *Reader) readTrack(start xml.StartElement) (*Track, error) {
	trk := &Track{}
	err := r.children(start, func(se xml.StartElement) error {
		if ok, err := r.readPathField(se, &trk.PathInfo, "TrackExtension"); ok {
			return err
		}
		switch se.Name.Local {
		case "trkseg":
			seg, err := r.readTrackSegment(se)
			if err != nil {
				return err
			}
			trk.Segments = append(trk.Segments, seg)
			return nil
		default:
			return unexpected(se)
		}
	})
	if err != nil {
		return nil, err
	}
	return trk, nil
}

// readPathField decodes the children rte and trk have in common. ext is the
// vendor element carrying the display color.
func (r *Reader) readPathField(se xml.StartElement, p *PathInfo, ext string) (ok bool, err error) {
	switch se.Name.Local {
	case "name":
		p.Name, err = r.readString(se)
	case "cmt":
		p.Comment, err = r.readString(se)
	case "desc":
		p.Description, err = r.readString(se)
	case "src":
		p.Source, err = r.readString(se)
	case "link":
		var l *Link
		if l, err = r.readLink(se); err == nil {
			p.Links = append(p.Links, *l)
		}
	case "number":
		p.Number, err = r.readInt(se)
	case "type":
		p.Type, err = r.readString(se)
	case "extensions":
		err = r.readPathExtensions(se, p, ext)
	default:
		return false, nil
	}
	return true, err
}

func (r *Reader) readTrackSegment(start xml.StartElement) (TrackSegment, error) {
	var seg TrackSegment
	err := r.children(start, func(se xml.StartElement) error {
		switch se.Name.Local {
		case "trkpt":
			pt, err := r.readTrackPoint(se)
			if err != nil {
				return err
			}
			seg.Points = append(seg.Points, pt)
			return nil
		case "extensions":
			return r.skip(se)
		default:
			return unexpected(se)
		}
	})
	return seg, err
}

func (r *Reader) readTrackPoint(start xml.StartElement) (TrackPoint, error) {
	var pt TrackPoint
	if err := readLatLon(start, &pt.Point); err != nil {
		return pt, err
	}

	err := r.children(start, func(se xml.StartElement) (err error) {
		switch se.Name.Local {
		case "ele":
			pt.Elevation, err = r.readFloat(se)
		case "time":
			pt.Time, err = r.readTime(se)
		case "magvar":
			pt.gps().MagneticVar, err = r.readFloat(se)
		case "geoidheight":
			pt.gps().GeoidHeight, err = r.readFloat(se)
		case "fix":
			pt.gps().FixType, err = r.readString(se)
		case "sat":
			pt.gps().Satellites, err = r.readInt(se)
		case "hdop":
			pt.gps().HDOP, err = r.readFloat(se)
		case "vdop":
			pt.gps().VDOP, err = r.readFloat(se)
		case "pdop":
			pt.gps().PDOP, err = r.readFloat(se)
		case "ageofdgpsdata":
			pt.gps().AgeOfData, err = r.readFloat(se)
		case "dgpsid":
			pt.gps().DGPSID, err = r.readInt(se)
		case "extensions", "name", "cmt", "desc", "src", "link", "sym", "type":
			err = r.skip(se)
		default:
			err = unexpected(se)
		}
		return
	})
	return pt, err
}

func (r *Reader) readPerson(start xml.StartElement) (*Person, error) {
	p := &Person{}
	err := r.children(start, func(se xml.StartElement) (err error) {
		switch se.Name.Local {
		case "name":
			p.Name, err = r.readString(se)
		case "email":
			p.Email, err = r.readEmail(se)
		case "link":
			p.Link, err = r.readLink(se)
		default:
			err = unexpected(se)
		}
		return
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// readEmail takes id and domain from the attributes as the schema defines
// them, and from child elements as some older producers wrote them.
func (r *Reader) readEmail(start xml.StartElement) (*Email, error) {
	e := &Email{}
	for _, a := range start.Attr {
		switch a.Name.Local {
		case "id":
			e.ID = a.Value
		case "domain":
			e.Domain = a.Value
		}
	}

	err := r.children(start, func(se xml.StartElement) (err error) {
		switch se.Name.Local {
		case "id":
			e.ID, err = r.readString(se)
		case "domain":
			e.Domain, err = r.readString(se)
		default:
			err = unexpected(se)
		}
		return
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *Reader) readLink(start xml.StartElement) (*Link, error) {
	l := &Link{}
	for _, a := range start.Attr {
		if a.Name.Local == "href" {
			l.Href = a.Value
		}
	}

	err := r.children(start, func(se xml.StartElement) (err error) {
		switch se.Name.Local {
		case "text":
			l.Text, err = r.readString(se)
		case "type":
			l.MimeType, err = r.readString(se)
		default:
			err = unexpected(se)
		}
		return
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *Reader) readCopyright(start xml.StartElement) (*Copyright, error) {
	c := &Copyright{}
	for _, a := range start.Attr {
		if a.Name.Local == "author" {
			c.Author = a.Value
		}
	}

	err := r.children(start, func(se xml.StartElement) (err error) {
		switch se.Name.Local {
		case "year":
			c.Year, err = r.readInt(se)
		case "license", "licence":
			c.License, err = r.readString(se)
		default:
			err = unexpected(se)
		}
		return
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *Reader) readBounds(start xml.StartElement) (*Bounds, error) {
	b := &Bounds{}
	for _, a := range start.Attr {
		var dst *float64
		switch a.Name.Local {
		case "minlat":
			dst = &b.MinLatitude
		case "minlon":
			dst = &b.MinLongitude
		case "maxlat":
			dst = &b.MaxLatitude
		case "maxlon":
			dst = &b.MaxLongitude
		default:
			continue
		}
		v, err := parseFloat(start.Name.Local, a.Value)
		if err != nil {
			return nil, err
		}
		*dst = v
	}

	// bounds carries attributes only
	err := r.children(start, func(se xml.StartElement) error {
		return unexpected(se)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// readPointExtensions handles the extensions of wpt and rtept. rp is nil for
// wpt, which only allows the vendor WaypointExtension.
func (r *Reader) readPointExtensions(start xml.StartElement, wp *WayPoint, rp *RoutePoint) error {
	return r.children(start, func(se xml.StartElement) error {
		if se.Name.Space != VendorNamespace {
			return r.skipForeign(se)
		}
		switch se.Name.Local {
		case "WaypointExtension":
			return r.readVendorWayPoint(se, wp)
		case "RoutePointExtension":
			if rp == nil {
				return unexpected(se)
			}
			return r.readVendorRoutePoint(se, rp)
		default:
			return unexpected(se)
		}
	})
}

func (r *Reader) readPathExtensions(start xml.StartElement, p *PathInfo, ext string) error {
	return r.children(start, func(se xml.StartElement) error {
		if se.Name.Space != VendorNamespace {
			return r.skipForeign(se)
		}
		if se.Name.Local != ext {
			return unexpected(se)
		}
		return r.readVendorPath(se, p)
	})
}

func (r *Reader) readVendorWayPoint(start xml.StartElement, wp *WayPoint) error {
	return r.children(start, func(se xml.StartElement) error {
		switch se.Name.Local {
		case "Address":
			addr, err := r.readVendorAddress(se)
			if err != nil {
				return err
			}
			wp.Address = addr
			return nil
		case "PhoneNumber":
			phone, err := r.readVendorPhone(se)
			if err != nil {
				return err
			}
			wp.Phones = append(wp.Phones, phone)
			return nil
		case "Categories", "Depth", "DisplayMode", "Proximity", "Temperature", "Extensions":
			return r.skip(se)
		default:
			return unexpected(se)
		}
	})
}

func (r *Reader) readVendorRoutePoint(start xml.StartElement, rp *RoutePoint) error {
	return r.children(start, func(se xml.StartElement) error {
		switch se.Name.Local {
		case "rpt":
			var pt Point
			if err := readLatLon(se, &pt); err != nil {
				return err
			}
			if err := r.skip(se); err != nil {
				return err
			}
			rp.RoutePoints = append(rp.RoutePoints, pt)
			return nil
		case "Subclass", "Extensions":
			return r.skip(se)
		default:
			return unexpected(se)
		}
	})
}

func (r *Reader) readVendorPath(start xml.StartElement, p *PathInfo) error {
	return r.children(start, func(se xml.StartElement) error {
		switch se.Name.Local {
		case "DisplayColor":
			s, err := r.readString(se)
			if err != nil {
				return err
			}
			c, err := ParseColor(strings.TrimSpace(s))
			if err != nil {
				return &ValueError{Element: se.Name.Local, Value: s, Err: err}
			}
			p.DisplayColor = c
			return nil
		case "IsAutoNamed", "Extensions":
			return r.skip(se)
		default:
			return unexpected(se)
		}
	})
}

func (r *Reader) readVendorAddress(start xml.StartElement) (*Address, error) {
	addr := &Address{}
	err := r.children(start, func(se xml.StartElement) (err error) {
		switch se.Name.Local {
		case "StreetAddress":
			var line string
			if line, err = r.readString(se); err != nil {
				return
			}
			if addr.StreetAddress == "" {
				addr.StreetAddress = line
			} else {
				addr.StreetAddress += " " + line
			}
		case "City":
			addr.City, err = r.readString(se)
		case "State":
			addr.State, err = r.readString(se)
		case "Country":
			addr.Country, err = r.readString(se)
		case "PostalCode":
			addr.PostalCode, err = r.readString(se)
		case "Extensions":
			err = r.skip(se)
		default:
			err = unexpected(se)
		}
		return
	})
	if err != nil {
		return nil, err
	}
	return addr, nil
}

func (r *Reader) readVendorPhone(start xml.StartElement) (Phone, error) {
	var phone Phone
	for _, a := range start.Attr {
		if a.Name.Local == "Category" {
			phone.Category = a.Value
		}
	}
	number, err := r.readString(start)
	phone.Number = number
	return phone, err
}

// children calls fn for every child element of start and returns once the
// matching end element has been consumed. Character data between children is
// ignored.
func (r *Reader) children(start xml.StartElement, fn func(xml.StartElement) error) error {
	for {
		tok, err := r.d.Token()
		if err != nil {
			return wrapErr(start.Name.Local, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if err := fn(t); err != nil {
				return err
			}
		case xml.EndElement:
			if t.Name != start.Name {
				return &StructuralError{Element: t.Name.Local}
			}
			return nil
		}
	}
}

// readString returns the text content of a simple element.
func (r *Reader) readString(start xml.StartElement) (string, error) {
	var sb strings.Builder
	for {
		tok, err := r.d.Token()
		if err != nil {
			return "", wrapErr(start.Name.Local, err)
		}

		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			return "", &StructuralError{
				Element: start.Name.Local,
				Err:     fmt.Errorf("unexpected child element <%s>", t.Name.Local),
			}
		case xml.EndElement:
			return sb.String(), nil
		}
	}
}

func (r *Reader) readFloat(start xml.StartElement) (float64, error) {
	s, err := r.readString(start)
	if err != nil {
		return 0, err
	}
	return parseFloat(start.Name.Local, s)
}

func (r *Reader) readInt(start xml.StartElement) (int, error) {
	s, err := r.readString(start)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, &ValueError{Element: start.Name.Local, Value: s, Err: err}
	}
	return v, nil
}

func (r *Reader) readTime(start xml.StartElement) (time.Time, error) {
	s, err := r.readString(start)
	if err != nil {
		return time.Time{}, err
	}
	return parseTime(start.Name.Local, s)
}

func (r *Reader) skip(start xml.StartElement) error {
	if err := r.d.Skip(); err != nil {
		return wrapErr(start.Name.Local, err)
	}
	return nil
}

func (r *Reader) skipForeign(se xml.StartElement) error {
	log.WithFields(log.Fields{
		"element":   se.Name.Local,
		"namespace": se.Name.Space,
	}).Debug("skipping foreign extension")
	return r.skip(se)
}

func readLatLon(se xml.StartElement, p *Point) error {
	var hasLat, hasLon bool
	for _, a := range se.Attr {
		switch a.Name.Local {
		case "lat":
			v, err := parseFloat(se.Name.Local, a.Value)
			if err != nil {
				return err
			}
			p.Latitude = v
			hasLat = true
		case "lon":
			v, err := parseFloat(se.Name.Local, a.Value)
			if err != nil {
				return err
			}
			p.Longitude = v
			hasLon = true
		}
	}
	if !hasLat || !hasLon {
		return &StructuralError{Element: se.Name.Local, Err: errMissingLatLon}
	}
	return nil
}

var errMissingLatLon = errors.New("lat and lon attributes are required")

func parseFloat(element, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, &ValueError{Element: element, Value: s, Err: err}
	}
	return v, nil
}

// timeLayouts are tried in order. Times without a zone are taken as UTC.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTime(element, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var err error
	for _, layout := range timeLayouts {
		var t time.Time
		if t, err = time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &ValueError{Element: element, Value: s, Err: err}
}

func unexpected(se xml.StartElement) error {
	return &StructuralError{Element: se.Name.Local}
}

// wrapErr maps XML syntax errors and premature ends of the stream to
// StructuralError. Errors of the underlying reader pass unchanged.
func wrapErr(element string, err error) error {
	if err == io.EOF {
		return &StructuralError{Element: element, Err: io.ErrUnexpectedEOF}
	}
	var syn *xml.SyntaxError
	if errors.As(err, &syn) {
		return &StructuralError{Element: element, Err: err}
	}
	return err
}
