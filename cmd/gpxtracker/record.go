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
	"math"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/spezifisch/gpx-tracker/pkg/gpx"
	"github.com/spezifisch/gpx-tracker/pkg/tracklog"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Append a location sample to a track log",
	Long: `Append one sample given by flags, or every sample of a JSON file, as
waypoints to a track log. Samples without a fix or with a time already
recorded are dropped.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tStart := time.Now()

		store, err := openStore()
		if err != nil {
			return err
		}
		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			name = tracklog.DailyName(time.Now(), 1)
		}

		samples, _ := cmd.Flags().GetString("samples")
		if samples == "" {
			sample, err := sampleFromFlags(cmd.Flags(), time.Now())
			if err != nil {
				return err
			}
			_, err = store.Record(name, sample)
			return err
		}

		f, err := os.Open(samples)
		if err != nil {
			return err
		}
		defer f.Close()

		var count, read int
		err = tracklog.ReadSamples(f, func(s *tracklog.Sample) (err error) {
			read++
			count, err = store.Record(name, s.Point())
			return
		})
		timeTrack(tStart, "recording")
		if err != nil {
			return err
		}

		log.WithFields(log.Fields{
			"name":    name,
			"samples": read,
			"count":   count,
		}).Info("recorded samples")
		return nil
	},
}

// sampleFromFlags builds a point from --lat, --lon, --ele and --time.
// Coordinates not given are NaN, the time defaults to now.
func sampleFromFlags(flags *pflag.FlagSet, now time.Time) (p gpx.Point, err error) {
	p = gpx.Point{
		Latitude:  math.NaN(),
		Longitude: math.NaN(),
		Time:      now.UTC().Truncate(time.Second),
	}
	if flags.Changed("lat") {
		p.Latitude, _ = flags.GetFloat64("lat")
	}
	if flags.Changed("lon") {
		p.Longitude, _ = flags.GetFloat64("lon")
	}
	p.Elevation, _ = flags.GetFloat64("ele")

	if ts, _ := flags.GetString("time"); ts != "" {
		var t time.Time
		t, err = time.Parse(time.RFC3339, ts)
		if err != nil {
			return
		}
		p.Time = t.UTC()
	}
	return
}

func init() {
	recordCmd.Flags().StringP("name", "n", "", "track log name (default \"<today> 1\")")
	recordCmd.Flags().Float64("lat", 0, "latitude in degrees")
	recordCmd.Flags().Float64("lon", 0, "longitude in degrees")
	recordCmd.Flags().Float64("ele", 0, "elevation in m")
	recordCmd.Flags().String("time", "", "sample time, RFC 3339 (default now)")
	recordCmd.Flags().StringP("samples", "s", "", "JSON file with location samples")
}
