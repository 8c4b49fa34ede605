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


// Package upload transfers track logs to a web server which keeps them for a
// limited time under a date bucketed path.
package upload

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/spezifisch/gpx-tracker/pkg/gpx"
)

// BucketLayout names the date directories below the file root.
const BucketLayout = "2006-01-02"

// DefaultRetention is how long uploads are kept.
const DefaultRetention = 7 * 24 * time.Hour

// ServerConfig configures a Server.
type ServerConfig struct {
	// Root holds the "file" directory with one bucket per day.
	Root string
	// PublicURL is the base of returned links. The request host is used when
	// it is empty.
	PublicURL string
	Retention time.Duration
	BodyLimit int
	// Validate decodes every upload before storing it.
	Validate bool
}

// Server receives uploads from Client.
type Server struct {
	app *fiber.App
	cfg ServerConfig
	now func() time.Time
}

// NewServer sets up the routes and creates the file root.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Root == "" {
		return nil, errors.New("upload: empty root directory")
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	if err := os.MkdirAll(filepath.Join(cfg.Root, "file"), 0o755); err != nil {
		return nil, err
	}

	s := &Server{
		cfg: cfg,
		now: time.Now,
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "gpx-tracker",
		BodyLimit:             cfg.BodyLimit,
		DisableStartupMessage: true,
	})

	s.app.Use(metricsMiddleware())
	s.app.Get("/metrics", metricsHandler())
	s.app.Get("/", s.handleIndex)
	s.app.Post("/", s.handleUpload)
	s.app.Static("/file", filepath.Join(cfg.Root, "file"))

	return s, nil
}

// App returns the fiber application, mostly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves HTTP on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	log.WithFields(log.Fields{
		"addr": addr,
		"root": s.cfg.Root,
	}).Info("upload server listening")
	return s.app.Listen(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// handleIndex answers with an empty page.
func (s *Server) handleIndex(c *fiber.Ctx) error {
	return nil
}

func (s *Server) handleUpload(c *fiber.Ctx) error {
	if _, err := s.Purge(); err != nil {
		log.WithError(err).Warn("purging expired uploads failed")
	}

	content := c.FormValue("content")
	if content == "" {
		uploadsTotal.WithLabelValues(outcomeEmpty).Inc()
		return nil
	}

	doc, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		uploadsTotal.WithLabelValues(outcomeInvalid).Inc()
		log.WithError(err).Info("rejecting upload with bad encoding")
		return fiber.NewError(fiber.StatusBadRequest, "content is not base64")
	}

	if s.cfg.Validate {
		if err := validate(doc); err != nil {
			uploadsTotal.WithLabelValues(outcomeInvalid).Inc()
			log.WithError(err).Info("rejecting invalid upload")
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
	}

	rel, err := s.store(doc)
	if err != nil {
		uploadsTotal.WithLabelValues(outcomeFailed).Inc()
		log.WithError(err).Error("storing upload failed")
		return fiber.NewError(fiber.StatusInternalServerError, "could not store upload")
	}
	uploadsTotal.WithLabelValues(outcomeStored).Inc()
	uploadBytes.Observe(float64(len(doc)))

	base := s.cfg.PublicURL
	if base == "" {
		base = c.BaseURL()
	}
	link := strings.TrimSuffix(base, "/") + "/file/" + rel
	log.WithFields(log.Fields{
		"size": len(doc),
		"url":  link,
	}).Info("stored upload")
	return c.SendString(link)
}

// store writes doc to a new file in today's bucket and returns its path
// relative to the file root, with forward slashes.
func (s *Server) store(doc []byte) (string, error) {
	bucket := s.now().Format(BucketLayout)
	dir := filepath.Join(s.cfg.Root, "file", bucket)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	name := uuid.NewString() + ".gpx"
	if err := os.WriteFile(filepath.Join(dir, name), doc, 0o644); err != nil {
		return "", err
	}
	return bucket + "/" + name, nil
}

// Purge removes all buckets older than the retention period and returns how
// many were removed. Directories not named after a date are left alone.
func (s *Server) Purge() (purged int, err error) {
	root := filepath.Join(s.cfg.Root, "file")
	entries, err := os.ReadDir(root)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	now := s.now()
	cutoff := now.Add(-s.cfg.Retention)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		day, perr := time.ParseInLocation(BucketLayout, e.Name(), now.Location())
		if perr != nil {
			continue
		}
		if !day.Before(cutoff) {
			continue
		}

		if err = os.RemoveAll(filepath.Join(root, e.Name())); err != nil {
			return
		}
		purged++
		bucketsPurged.Inc()
		log.WithField("bucket", e.Name()).Info("purged expired uploads")
	}
	return
}

// validate decodes the whole document.
func validate(doc []byte) error {
	r, err := gpx.NewReader(bytes.NewReader(doc))
	if err != nil {
		return fmt.Errorf("not a gpx document: %w", err)
	}
	defer r.Close()

	for {
		ok, err := r.Read()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
}
