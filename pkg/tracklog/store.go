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


// Package tracklog keeps recorded track logs in a directory of GPX files.
package tracklog

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/spezifisch/gpx-tracker/pkg/gpx"
)

// Extension of every stored track log.
const Extension = ".gpx"

const tempSuffix = ".temp"

// ErrInvalidName is returned for names that would leave the store directory.
var ErrInvalidName = errors.New("invalid track log name")

// Store is a directory of track logs, one GPX file per log. Logs are
// addressed by their file name without extension.
type Store struct {
	dir     string
	creator string
}

// NewStore returns a Store for the existing directory dir.
func NewStore(dir string) (*Store, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("'%s' is not a directory", dir)
	}
	return &Store{dir: dir, creator: gpx.DefaultCreator}, nil
}

// SetCreator sets the creator written into rewritten logs.
func (s *Store) SetCreator(creator string) {
	s.creator = creator
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// DailyName returns the log name used for the index'th recording on the day
// of t.
func DailyName(t time.Time, index int) string {
	return t.Format("2006-01-02") + " " + strconv.Itoa(index)
}

// Path returns the file path of the log name.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name+Extension)
}

// List returns the names of all stored logs in lexical order.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), Extension) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), Extension))
	}
	sort.Strings(names)
	return names, nil
}

// Open opens the log name for reading.
func (s *Store) Open(name string) (*os.File, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	return os.Open(s.Path(name))
}

// ReadAll returns the content of the log name.
func (s *Store) ReadAll(name string) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	return os.ReadFile(s.Path(name))
}

// Delete removes the log name.
func (s *Store) Delete(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := os.Remove(s.Path(name)); err != nil {
		return err
	}
	log.WithField("name", name).Info("deleted track log")
	return nil
}

// Record runs one save cycle for the log name: the current file is moved
// aside, its waypoints are copied into a fresh file and sample is appended as
// a new waypoint. The sample is dropped if it has no fix or if it carries the
// same second as the last stored waypoint. Record returns the number of
// waypoints in the log. On failure the previous file is put back.
func (s *Store) Record(name string, sample gpx.Point) (count int, err error) {
	if err = checkName(name); err != nil {
		return
	}

	path := s.Path(name)
	temp := path + tempSuffix

	// left over from an interrupted cycle
	if err = os.Remove(temp); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return
	}

	existing := true
	if err = os.Rename(path, temp); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return
		}
		existing = false
	}

	count, err = s.rewrite(path, temp, existing, sample)
	if err != nil {
		restore(path, temp, existing)
		return 0, err
	}

	if existing {
		if rerr := os.Remove(temp); rerr != nil {
			log.WithError(rerr).WithField("file", temp).Warn("could not remove temporary file")
		}
	}

	log.WithFields(log.Fields{
		"name":  name,
		"count": count,
	}).Info("recorded sample")
	return count, nil
}

func (s *Store) rewrite(path, temp string, existing bool, sample gpx.Point) (count int, err error) {
	out, err := os.Create(path)
	if err != nil {
		return
	}
	w, err := gpx.NewWriter(out, gpx.WithCreator(s.creator))
	if err != nil {
		out.Close()
		return
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()

	var last *gpx.WayPoint
	if existing {
		last, count, err = copyWayPoints(w, temp)
		if err != nil {
			return
		}
	}

	if !keepSample(last, sample) {
		log.WithField("time", sample.Time).Debug("dropping sample")
		return
	}
	if math.IsNaN(sample.Elevation) {
		sample.Elevation = 0
	}
	if err = w.WriteWayPoint(&gpx.WayPoint{Point: sample}); err != nil {
		return
	}
	count++
	return
}

// copyWayPoints writes every waypoint stored in file to w and returns the
// last one. Other objects are not kept.
func copyWayPoints(w *gpx.Writer, file string) (last *gpx.WayPoint, count int, err error) {
	f, err := os.Open(file)
	if err != nil {
		return
	}
	r, err := gpx.NewReader(f)
	if err != nil {
		return
	}
	defer r.Close()

	for {
		var ok bool
		ok, err = r.Read()
		if err != nil || !ok {
			return
		}

		if r.ObjectType != gpx.ObjectWayPoint {
			log.WithField("type", r.ObjectType).Debug("dropping object")
			continue
		}
		if err = w.WriteWayPoint(r.WayPoint); err != nil {
			return
		}
		last = r.WayPoint
		count++
	}
}

func keepSample(last *gpx.WayPoint, sample gpx.Point) bool {
	if math.IsNaN(sample.Latitude) || math.IsNaN(sample.Longitude) {
		return false
	}
	if last == nil {
		return true
	}
	return !last.Time.Truncate(time.Second).Equal(sample.Time.Truncate(time.Second))
}

func restore(path, temp string, existing bool) {
	var err error
	if existing {
		err = os.Rename(temp, path)
	} else {
		err = os.Remove(path)
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.WithError(err).WithField("file", path).Error("could not restore track log")
	}
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
