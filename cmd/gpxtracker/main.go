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
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/spezifisch/gpx-tracker/pkg/config"
	"github.com/spezifisch/gpx-tracker/pkg/logging"
	"github.com/spezifisch/gpx-tracker/pkg/tracklog"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "gpxtracker",
	Short: "Record, convert and share GPX track logs",
	Long: `Record location samples into daily GPX logs, upload them to a sharing
server, run that server, and export GPX files to KML or GeoJSON.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
		path, _ := cmd.Flags().GetString("config")
		cfg, err = config.Load(path, cmd.Flags())
		if err != nil {
			return
		}
		logging.Setup(cfg.Log.Level, cfg.Log.Format)
		log.WithField("config", path).Debug("configuration loaded")
		return
	},
}

// from: https://coderwall.com/p/cp5fya/measuring-execution-time-in-go
func timeTrack(start time.Time, name string) {
	elapsed := time.Since(start)
	log.Printf("> %s took %s", name, elapsed)
}

func openStore() (*tracklog.Store, error) {
	store, err := tracklog.NewStore(cfg.Store.Dir)
	if err != nil {
		return nil, err
	}
	store.SetCreator("gpxtracker")
	return store, nil
}

func main() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "YAML config file (default ./gpxtracker.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level")
	rootCmd.PersistentFlags().String("log-format", "text", "log format, text or json")
	rootCmd.PersistentFlags().StringP("dir", "d", ".", "track log directory")

	rootCmd.AddCommand(recordCmd, listCmd, deleteCmd, uploadCmd, serveCmd, statsCmd, exportCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
