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
	"fmt"
	"strconv"
)

// Color is a vendor DisplayColor as 0xAARRGGBB.
type Color uint32

// Vendor display colors. The values are kept as found in files written by
// existing producers, DarkYellow included.
const (
	ColorNone        Color = 0
	ColorBlack       Color = 0xff000000
	ColorDarkRed     Color = 0xff8b0000
	ColorDarkGreen   Color = 0xff008b00
	ColorDarkYellow  Color = 0x8b8b0000
	ColorDarkBlue    Color = 0xff00008b
	ColorDarkMagenta Color = 0xff8b008b
	ColorDarkCyan    Color = 0xff008b8b
	ColorLightGray   Color = 0xffd3d3d3
	ColorDarkGray    Color = 0xffa9a9a9
	ColorRed         Color = 0xffff0000
	ColorGreen       Color = 0xff00b000
	ColorYellow      Color = 0xffffff00
	ColorBlue        Color = 0xff0000ff
	ColorMagenta     Color = 0xffff00ff
	ColorCyan        Color = 0xff00ffff
	ColorWhite       Color = 0xffffffff
	ColorTransparent Color = 0x00ffffff
)

var colorNames = []struct {
	name  string
	color Color
}{
	{"Black", ColorBlack},
	{"DarkRed", ColorDarkRed},
	{"DarkGreen", ColorDarkGreen},
	{"DarkYellow", ColorDarkYellow},
	{"DarkBlue", ColorDarkBlue},
	{"DarkMagenta", ColorDarkMagenta},
	{"DarkCyan", ColorDarkCyan},
	{"LightGray", ColorLightGray},
	{"DarkGray", ColorDarkGray},
	{"Red", ColorRed},
	{"Green", ColorGreen},
	{"Yellow", ColorYellow},
	{"Blue", ColorBlue},
	{"Magenta", ColorMagenta},
	{"Cyan", ColorCyan},
	{"White", ColorWhite},
	{"Transparent", ColorTransparent},
}

// String returns the vendor name, or the decimal value for colors outside
// the vendor table.
func (c Color) String() string {
	for _, cn := range colorNames {
		if cn.color == c {
			return cn.name
		}
	}
	return strconv.FormatUint(uint64(c), 10)
}

// RGBA splits the color into its channels.
func (c Color) RGBA() (r, g, b, a uint8) {
	return uint8(c >> 16), uint8(c >> 8), uint8(c), uint8(c >> 24)
}

// ParseColor parses a vendor color name. Names are case sensitive, decimal
// values are accepted as well.
func ParseColor(s string) (Color, error) {
	for _, cn := range colorNames {
		if cn.name == s {
			return cn.color, nil
		}
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return ColorNone, fmt.Errorf("unknown color %q", s)
	}
	return Color(v), nil
}
