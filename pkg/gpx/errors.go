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

import "fmt"

// StructuralError is returned for unexpected, missing or mismatched elements.
// Element names the offending element.
type StructuralError struct {
	Element string
	Err     error
}

func (e *StructuralError) Error() string {
	if e.Element == "" {
		if e.Err != nil {
			return fmt.Sprintf("gpx: invalid structure: %v", e.Err)
		}
		return "gpx: no root element"
	}
	if e.Err != nil {
		return fmt.Sprintf("gpx: invalid structure at <%s>: %v", e.Element, e.Err)
	}
	return fmt.Sprintf("gpx: unexpected element <%s>", e.Element)
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}

// ValueError is returned when a numeric, color or time literal cannot be
// parsed. Element names the element holding the literal.
type ValueError struct {
	Element string
	Value   string
	Err     error
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("gpx: invalid value %q in <%s>: %v", e.Value, e.Element, e.Err)
}

func (e *ValueError) Unwrap() error {
	return e.Err
}
