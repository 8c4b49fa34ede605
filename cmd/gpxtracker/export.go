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


package main

import (
	"fmt"
	"io"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/spezifisch/gpx-tracker/pkg/export"
	"github.com/spezifisch/gpx-tracker/pkg/tracklog"
)

var statsCmd = &cobra.Command{
	Use:   "stats FILE...",
	Short: "Print statistics of GPX files as YAML",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := collect(args)
		if err != nil {
			return err
		}
		return export.WriteSummary(cmd.OutOrStdout(), export.Summarize(items))
	},
}

var exportCmd = &cobra.Command{
	Use:   "export FILE...",
	Short: "Convert GPX files to KML or GeoJSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		format, _ := cmd.Flags().GetString("format")
		if format != "kml" && format != "geojson" {
			return fmt.Errorf("unknown format %q", format)
		}

		items, err := collect(args)
		if err != nil {
			return
		}

		var w io.Writer = cmd.OutOrStdout()
		if output, _ := cmd.Flags().GetString("output"); output != "" {
			var f *os.File
			f, err = os.Create(output)
			if err != nil {
				return
			}
			defer func() {
				if cerr := f.Close(); err == nil {
					err = cerr
				}
			}()
			w = f
		}

		switch format {
		case "kml":
			return export.KML(w, items)
		default:
			var data []byte
			data, err = export.GeoJSON(items)
			if err != nil {
				return
			}
			_, err = fmt.Fprintln(w, string(data))
			return
		}
	},
}

// collect decodes all files, logging what was found.
func collect(files []string) ([]*tracklog.Item, error) {
	tStart := time.Now()
	items, err := tracklog.Collect(files)
	if err != nil {
		log.WithError(err).Error("gpx decode failed")
		return nil, err
	}
	timeTrack(tStart, "gpx parsing")
	log.Infof("processed %d files with %d objects", len(files), len(items))
	return items, nil
}

func init() {
	exportCmd.Flags().StringP("format", "f", "kml", "output format, kml or geojson")
	exportCmd.Flags().StringP("output", "o", "", "output file (default stdout)")
}
