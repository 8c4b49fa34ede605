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
	"errors"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/spezifisch/gpx-tracker/pkg/gpx"
)

// Item is one top-level object decoded from a file of a FileSet. Exactly one
// of the object fields is set, as told by Type.
type Item struct {
	File       string
	Attributes gpx.Attributes
	Type       gpx.ObjectType
	Metadata   *gpx.Metadata
	WayPoint   *gpx.WayPoint
	Route      *gpx.Route
	Track      *gpx.Track
}

// FileSet streams the objects of several GPX files over a channel.
type FileSet struct {
	RunError error
	files    []string
	output   chan *Item
	cancel   chan bool
}

// NewFileSet returns a ready-to-use FileSet. Closing cancel stops Run.
func NewFileSet(files []string, output chan *Item, cancel chan bool) (set *FileSet, err error) {
	err = checkFiles(files)
	if err != nil {
		return
	}

	return &FileSet{
		files:  files,
		output: output,
		cancel: cancel,
	}, nil
}

func checkFiles(files []string) (err error) {
	for _, file := range files {
		var fi os.FileInfo
		fi, err = os.Stat(file)
		if err != nil {
			return
		}

		if !fi.Mode().IsRegular() {
			text := fmt.Sprintf("'%s' is not a file", file)
			return errors.New(text)
		}
	}
	return
}

func (set *FileSet) signalDone() {
	log.Debug("gpx file set done signal")
	set.output <- nil
}

// Run decodes all files in order, sending every object to the output
// channel. A nil item is sent once Run is done, whether it failed or not.
func (set *FileSet) Run() (err error) {
	set.RunError = nil
	defer set.signalDone()

	log.WithField("files", set.files).Info("starting gpx file set")
	for _, file := range set.files {
		var run bool
		run, err = set.runFile(file)
		if err != nil {
			set.RunError = err
			log.WithError(err).WithField("file", file).Error("gpx decode failed")
			return
		}
		if !run {
			log.Info("gpx file set cancelled")
			return
		}
	}
	log.Info("gpx file set returns ok")
	return
}

func (set *FileSet) runFile(file string) (bool, error) {
	f, err := os.Open(file)
	if err != nil {
		return false, err
	}
	r, err := gpx.NewReader(f)
	if err != nil {
		return false, fmt.Errorf("%s: %w", file, err)
	}
	defer r.Close()

	for {
		// check for cancel signal
		select {
		case <-set.cancel:
			return false, nil
		default:
		}

		ok, err := r.Read()
		if err != nil {
			return false, fmt.Errorf("%s: %w", file, err)
		}
		if !ok {
			return true, nil
		}

		item := &Item{
			File:       file,
			Attributes: r.Attributes,
			Type:       r.ObjectType,
		}
		switch r.ObjectType {
		case gpx.ObjectMetadata:
			item.Metadata = r.Metadata
		case gpx.ObjectWayPoint:
			item.WayPoint = r.WayPoint
		case gpx.ObjectRoute:
			item.Route = r.Route
		case gpx.ObjectTrack:
			item.Track = r.Track
		}

		select {
		case set.output <- item:
		case <-set.cancel:
			return false, nil
		}
	}
}

// Collect runs a FileSet over files and gathers all items in memory.
func Collect(files []string) ([]*Item, error) {
	output := make(chan *Item)
	cancel := make(chan bool)
	set, err := NewFileSet(files, output, cancel)
	if err != nil {
		return nil, err
	}

	go set.Run()

	var items []*Item
	for item := range output {
		if item == nil {
			break
		}
		items = append(items, item)
	}
	return items, set.RunError
}
