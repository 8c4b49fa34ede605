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
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/spezifisch/gpx-tracker/pkg/upload"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the recorded track logs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		names, err := store.List()
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a track log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		return store.Delete(args[0])
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload NAME",
	Short: "Upload a track log and print its link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Upload.URL == "" {
			return errors.New("no upload url configured")
		}
		store, err := openStore()
		if err != nil {
			return err
		}
		doc, err := store.ReadAll(args[0])
		if err != nil {
			return err
		}

		link, err := upload.NewClient(cfg.Upload.URL, cfg.Upload.Timeout).Upload(doc)
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{
			"name": args[0],
			"link": link,
		}).Info("track log uploaded")
		fmt.Fprintln(cmd.OutOrStdout(), link)
		return nil
	},
}

func init() {
	uploadCmd.Flags().StringP("url", "u", "", "upload server url")
	uploadCmd.Flags().Duration("timeout", upload.DefaultTimeout, "request timeout")
}
