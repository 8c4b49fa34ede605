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
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/spezifisch/gpx-tracker/pkg/upload"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the upload server",
	Long: `Accept uploaded GPX documents, keep them in daily buckets for the
retention period and serve them back under /file/.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := upload.NewServer(upload.ServerConfig{
			Root:      cfg.Server.Root,
			PublicURL: cfg.Server.PublicURL,
			Retention: cfg.Server.Retention(),
			BodyLimit: cfg.Server.BodyLimit,
			Validate:  cfg.Server.Validate,
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		go func() {
			<-ctx.Done()
			log.Info("shutting down upload server")
			if err := server.Shutdown(); err != nil {
				log.WithError(err).Error("shutdown failed")
			}
		}()

		return server.Listen(cfg.Server.Addr)
	},
}

func init() {
	serveCmd.Flags().StringP("addr", "a", ":8080", "listen address")
	serveCmd.Flags().StringP("root", "r", "./data", "upload root directory")
	serveCmd.Flags().String("public-url", "", "base of returned links (default request host)")
	serveCmd.Flags().Int("retention", 7, "days to keep uploads")
	serveCmd.Flags().Bool("validate", true, "reject uploads that are not valid GPX")
}
