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


package tracklog

import (
	"bufio"
	"encoding/json"
	"io"
	"math"
	"time"

	"github.com/spezifisch/gpx-tracker/pkg/gpx"
)

// Sample is one location fix as delivered by the location service. Lat and
// Lon are null while there is no fix.
type Sample struct {
	Lat       *float64  `json:"lat"`
	Lon       *float64  `json:"lon"`
	Ele       *float64  `json:"ele,omitempty"`
	Time      time.Time `json:"time,omitempty"`
	Timestamp int64     `json:"ts,omitempty"`
}

// HasFix reports whether the sample carries a usable position.
func (s *Sample) HasFix() bool {
	return s.Lat != nil && s.Lon != nil && !math.IsNaN(*s.Lat) && !math.IsNaN(*s.Lon)
}

// Point converts the sample. Missing coordinates become NaN, a missing time
// is taken from the unix timestamp.
func (s *Sample) Point() gpx.Point {
	p := gpx.Point{
		Latitude:  math.NaN(),
		Longitude: math.NaN(),
		Time:      s.Time.UTC(),
	}
	if s.Lat != nil {
		p.Latitude = *s.Lat
	}
	if s.Lon != nil {
		p.Longitude = *s.Lon
	}
	if s.Ele != nil {
		p.Elevation = *s.Ele
	}
	if s.Time.IsZero() && s.Timestamp != 0 {
		p.Time = time.Unix(s.Timestamp, 0).UTC()
	}
	return p
}

func skipTokens(d *json.Decoder, count int) (err error) {
	// skip $count tokens
	for i := 0; i < count; i++ {
		_, err = d.Token()
		if err != nil {
			return
		}
	}
	return
}

// ReadSamples decodes a stream of samples, either a JSON array or a sequence
// of JSON objects, and calls fn for each of them in order.
func ReadSamples(r io.Reader, fn func(*Sample) error) (err error) {
	br := bufio.NewReaderSize(r, 65536)
	array, err := startsArray(br)
	if err != nil {
		return
	}

	d := json.NewDecoder(br)
	if array {
		// opening bracket
		if err = skipTokens(d, 1); err != nil {
			return
		}
	}

	for d.More() {
		var s Sample
		if err = d.Decode(&s); err != nil {
			return
		}
		if err = fn(&s); err != nil {
			return
		}
	}

	if array {
		// closing bracket
		err = skipTokens(d, 1)
	}
	return
}

// startsArray peeks at the first non-space byte.
func startsArray(br *bufio.Reader) (bool, error) {
	for {
		b, err := br.ReadByte()
		if err == io.EOF {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b == '[', br.UnreadByte()
	}
}
