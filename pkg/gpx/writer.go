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
	"io"
	"strconv"
	"time"
)

// TimeLayout is used for every written timestamp. Times are written in UTC.
const TimeLayout = "2006-01-02T15:04:05"

// ErrClosed is returned when writing to a closed Writer.
var ErrClosed = errors.New("gpx: writer closed")

// Writer encodes GPX objects. Fields holding their zero value are left out.
// Close must be called to terminate the document.
type Writer struct {
	w       io.Writer
	enc     *xml.Encoder
	creator string
	err     error
	closed  bool
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithCreator sets the creator attribute of the root element.
func WithCreator(creator string) WriterOption {
	return func(w *Writer) {
		w.creator = creator
	}
}

var rootName = xml.Name{Local: "gpx"}

// NewWriter writes the XML declaration and the opening root element to w.
// The vendor namespace prefix is always declared so that later objects can
// use it. w is closed on failure if it is an io.Closer.
func NewWriter(w io.Writer, opts ...WriterOption) (*Writer, error) {
	wr := &Writer{
		w:       w,
		enc:     xml.NewEncoder(w),
		creator: DefaultCreator,
	}
	for _, opt := range opts {
		opt(wr)
	}
	wr.enc.Indent("", "  ")

	if _, wr.err = io.WriteString(w, xml.Header); wr.err == nil {
		wr.token(xml.StartElement{
			Name: rootName,
			Attr: []xml.Attr{
				attr("version", Version),
				attr("creator", wr.creator),
				attr("xmlns", Namespace),
				attr("xmlns:"+VendorPrefix, VendorNamespace),
			},
		})
	}
	if err := wr.flush(); err != nil {
		if c, ok := w.(io.Closer); ok {
			c.Close()
		}
		return nil, err
	}
	return wr, nil
}

// WriteMetadata writes a metadata element.
func (w *Writer) WriteMetadata(m *Metadata) error {
	if err := w.check(); err != nil {
		return err
	}

	w.start("metadata")
	w.textIf("name", m.Name)
	w.textIf("desc", m.Description)
	if m.Author != nil {
		w.writePerson("author", m.Author)
	}
	if m.Copyright != nil {
		w.writeCopyright("copyright", m.Copyright)
	}
	if m.Link != nil {
		w.writeLink("link", m.Link)
	}
	w.timeIf("time", m.Time)
	w.textIf("keywords", m.Keywords)
	if m.Bounds != nil {
		w.writeBounds("bounds", m.Bounds)
	}
	w.end("metadata")

	return w.flush()
}

// WriteWayPoint writes a wpt element.
func (w *Writer) WriteWayPoint(wp *WayPoint) error {
	if err := w.check(); err != nil {
		return err
	}

	w.start("wpt", latLon(wp.Point)...)
	w.writeWayPointFields(wp)
	if wp.HasExtensions() {
		w.start("extensions")
		w.writeVendorWayPoint(wp)
		w.end("extensions")
	}
	w.end("wpt")

	return w.flush()
}

// WriteRoute writes a rte element with all its route points.
func (w *Writer) WriteRoute(rte *Route) error {
	if err := w.check(); err != nil {
		return err
	}

	w.start("rte")
	w.writePathFields(&rte.PathInfo, "RouteExtension")
	for i := range rte.Points {
		w.writeRoutePoint("rtept", &rte.Points[i])
	}
	w.end("rte")

	return w.flush()
}

// WriteTrack writes a trk element with all its segments.
func (w *Writer) WriteTrack(trk *Track) error {
	if err := w.check(); err != nil {
		return err
	}

	w.start("trk")
	w.writePathFields(&trk.PathInfo, "TrackExtension")
	for _, seg := range trk.Segments {
		w.start("trkseg")
		for i := range seg.Points {
			w.writeTrackPoint("trkpt", &seg.Points[i])
		}
		w.end("trkseg")
	}
	w.end("trk")

	return w.flush()
}

// Close ends the root element, flushes and closes the underlying writer if
// it is an io.Closer.
func (w *Writer) Close() error {
	if w.closed {
		return w.err
	}
	w.closed = true

	w.token(xml.EndElement{Name: rootName})
	if err := w.flush(); err == nil {
		_, w.err = io.WriteString(w.w, "\n")
	}

	if c, ok := w.w.(io.Closer); ok {
		if err := c.Close(); err != nil && w.err == nil {
			w.err = err
		}
	}
	return w.err
}

func (w *Writer) writeWayPointFields(wp *WayPoint) {
	w.floatIf("ele", wp.Elevation)
	w.timeIf("time", wp.Time)
	w.textIf("name", wp.Name)
	w.textIf("cmt", wp.Comment)
	w.textIf("desc", wp.Description)
	w.textIf("src", wp.Source)
	for i := range wp.Links {
		w.writeLink("link", &wp.Links[i])
	}
	w.textIf("sym", wp.Symbol)
	w.textIf("type", wp.Type)
}

func (w *Writer) writeRoutePoint(name string, rp *RoutePoint) {
	w.start(name, latLon(rp.Point)...)
	w.writeWayPointFields(&rp.WayPoint)

	if rp.HasExtensions() {
		w.start("extensions")
		if rp.WayPoint.HasExtensions() {
			w.writeVendorWayPoint(&rp.WayPoint)
		}
		if len(rp.RoutePoints) != 0 {
			w.start(vendor("RoutePointExtension"))
			for _, pt := range rp.RoutePoints {
				w.start(vendor("rpt"), latLon(pt)...)
				w.end(vendor("rpt"))
			}
			w.end(vendor("RoutePointExtension"))
		}
		w.end("extensions")
	}

	w.end(name)
}

func (w *Writer) writeVendorWayPoint(wp *WayPoint) {
	w.start(vendor("WaypointExtension"))
	if wp.Address != nil {
		w.writeAddress(vendor("Address"), wp.Address)
	}
	for _, phone := range wp.Phones {
		var attrs []xml.Attr
		if phone.Category != "" {
			attrs = append(attrs, attr("Category", phone.Category))
		}
		w.start(vendor("PhoneNumber"), attrs...)
		w.chars(phone.Number)
		w.end(vendor("PhoneNumber"))
	}
	w.end(vendor("WaypointExtension"))
}

func (w *Writer) writeTrackPoint(name string, pt *TrackPoint) {
	q := pt.Quality()

	w.start(name, latLon(pt.Point)...)
	w.floatIf("ele", pt.Elevation)
	w.timeIf("time", pt.Time)
	w.floatIf("magvar", q.MagneticVar)
	w.floatIf("geoidheight", q.GeoidHeight)
	w.textIf("fix", q.FixType)
	w.intIf("sat", q.Satellites)
	w.floatIf("hdop", q.HDOP)
	w.floatIf("vdop", q.VDOP)
	w.floatIf("pdop", q.PDOP)
	w.floatIf("ageofdgpsdata", q.AgeOfData)
	w.intIf("dgpsid", q.DGPSID)
	w.end(name)
}

// writePathFields writes the children rte and trk have in common. ext is the
// vendor element wrapping the display color.
func (w *Writer) writePathFields(p *PathInfo, ext string) {
	w.textIf("name", p.Name)
	w.textIf("cmt", p.Comment)
	w.textIf("desc", p.Description)
	w.textIf("src", p.Source)
	for i := range p.Links {
		w.writeLink("link", &p.Links[i])
	}
	w.intIf("number", p.Number)
	w.textIf("type", p.Type)

	if p.HasExtensions() {
		w.start("extensions")
		w.start(vendor(ext))
		w.text(vendor("DisplayColor"), p.DisplayColor.String())
		w.end(vendor(ext))
		w.end("extensions")
	}
}

func (w *Writer) writePerson(name string, p *Person) {
	w.start(name)
	w.textIf("name", p.Name)
	if p.Email != nil {
		var attrs []xml.Attr
		if p.Email.ID != "" {
			attrs = append(attrs, attr("id", p.Email.ID))
		}
		if p.Email.Domain != "" {
			attrs = append(attrs, attr("domain", p.Email.Domain))
		}
		w.start("email", attrs...)
		w.end("email")
	}
	if p.Link != nil {
		w.writeLink("link", p.Link)
	}
	w.end(name)
}

func (w *Writer) writeCopyright(name string, c *Copyright) {
	var attrs []xml.Attr
	if c.Author != "" {
		attrs = append(attrs, attr("author", c.Author))
	}
	w.start(name, attrs...)
	w.intIf("year", c.Year)
	w.textIf("license", c.License)
	w.end(name)
}

func (w *Writer) writeLink(name string, l *Link) {
	var attrs []xml.Attr
	if l.Href != "" {
		attrs = append(attrs, attr("href", l.Href))
	}
	w.start(name, attrs...)
	w.textIf("text", l.Text)
	w.textIf("type", l.MimeType)
	w.end(name)
}

func (w *Writer) writeBounds(name string, b *Bounds) {
	w.start(name,
		attr("minlat", formatFloat(b.MinLatitude)),
		attr("minlon", formatFloat(b.MinLongitude)),
		attr("maxlat", formatFloat(b.MaxLatitude)),
		attr("maxlon", formatFloat(b.MaxLongitude)),
	)
	w.end(name)
}

func (w *Writer) writeAddress(name string, a *Address) {
	w.start(name)
	w.textIf(vendor("StreetAddress"), a.StreetAddress)
	w.textIf(vendor("City"), a.City)
	w.textIf(vendor("State"), a.State)
	w.textIf(vendor("Country"), a.Country)
	w.textIf(vendor("PostalCode"), a.PostalCode)
	w.end(name)
}

func (w *Writer) check() error {
	if w.closed {
		return ErrClosed
	}
	return w.err
}

// token encodes t unless an earlier call failed.
func (w *Writer) token(t xml.Token) {
	if w.err != nil {
		return
	}
	w.err = w.enc.EncodeToken(t)
}

func (w *Writer) flush() error {
	if w.err == nil {
		w.err = w.enc.Flush()
	}
	return w.err
}

func (w *Writer) start(name string, attrs ...xml.Attr) {
	w.token(xml.StartElement{Name: xml.Name{Local: name}, Attr: attrs})
}

func (w *Writer) end(name string) {
	w.token(xml.EndElement{Name: xml.Name{Local: name}})
}

func (w *Writer) chars(s string) {
	w.token(xml.CharData(s))
}

func (w *Writer) text(name, value string) {
	w.start(name)
	w.chars(value)
	w.end(name)
}

func (w *Writer) textIf(name, value string) {
	if value != "" {
		w.text(name, value)
	}
}

func (w *Writer) floatIf(name string, v float64) {
	if v != 0 {
		w.text(name, formatFloat(v))
	}
}

func (w *Writer) intIf(name string, v int) {
	if v != 0 {
		w.text(name, strconv.Itoa(v))
	}
}

func (w *Writer) timeIf(name string, t time.Time) {
	if !t.IsZero() {
		w.text(name, t.UTC().Format(TimeLayout))
	}
}

func latLon(p Point) []xml.Attr {
	return []xml.Attr{
		attr("lat", formatFloat(p.Latitude)),
		attr("lon", formatFloat(p.Longitude)),
	}
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

// vendor prefixes name with the vendor namespace prefix bound on the root.
func vendor(name string) string {
	return VendorPrefix + ":" + name
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
