// Copyright 2024 The mefwriter Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package session manages the top-level `<session>.mefd` directory: the
// session manifest, the session-scoped annotation pair, and the per-channel
// subdirectories every channel writer lives under.
package session

import (
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/msel-source/mefwriter/annotations"
	"github.com/msel-source/mefwriter/fps"
	"github.com/msel-source/mefwriter/internal/mefio"
	"github.com/msel-source/mefwriter/internal/uuidutil"
	"github.com/msel-source/mefwriter/mef3"
)

// Session owns one `<name>.mefd` directory: its manifest file, the session
// UUID shared by channels created under it, and a process-wide time-offset
// coordinator shared across every channel and the session's own records.
type Session struct {
	Name string
	Dir  string

	LevelUUID [mef3.UUIDBytes]byte
	Offsets   *mef3.OffsetCoordinator

	logger log.Logger

	manifest *fps.File
	channels []string
}

// SetLogger attaches a logger; Close logs a summary line through it, and
// OpenRecords passes it on to the annotations.Writer it returns. Optional —
// a nil l leaves logging disabled.
func (s *Session) SetLogger(l log.Logger) { s.logger = l }

func (s *Session) log() log.Logger {
	if s.logger == nil {
		return log.NewNopLogger()
	}
	return s.logger
}

// Create makes a new session directory with an empty manifest and a fresh
// level UUID shared by every channel opened under it.
func Create(parentDir, name string, mode mef3.TimeOffsetMode, gmtOffsetSec int32) (*Session, error) {
	dir := parentDir + "/" + name + ".mefd"
	if err := mefio.MkdirAll(dir); err != nil {
		return nil, err
	}

	levelUUID := uuidutil.Generate()
	header := mef3.NewHeader(mef3.FileTypeSession)
	header.SetSessionName(name)
	header.FileUUID = uuidutil.Generate()
	header.LevelUUID = levelUUID

	manifest, err := fps.Create(dir+"/"+name+".mefd", header)
	if err != nil {
		return nil, err
	}

	return &Session{
		Name:      name,
		Dir:       dir,
		LevelUUID: levelUUID,
		Offsets:   mef3.NewOffsetCoordinator(mode, gmtOffsetSec),
		manifest:  manifest,
	}, nil
}

// RegisterChannel appends channelDirName to the manifest's channel list and
// rewrites the manifest body, keeping it the authoritative index of every
// `<channel>.timd` subdirectory under the session.
func (s *Session) RegisterChannel(channelDirName string) error {
	for _, c := range s.channels {
		if c == channelDirName {
			return nil
		}
	}
	s.channels = append(s.channels, channelDirName)
	return s.writeManifestBody()
}

func (s *Session) writeManifestBody() error {
	var body []byte
	for _, c := range s.channels {
		entry := make([]byte, 256)
		copy(entry, c)
		body = append(body, entry...)
	}
	if err := s.manifest.WriteBody(body); err != nil {
		return err
	}
	s.manifest.Header.NumberOfEntries = uint64(len(s.channels))
	return s.manifest.WriteHeader()
}

// OpenRecords opens (or creates) the session-scoped `<session>.rdat`/
// `.ridx` pair, sharing this session's offset coordinator.
func (s *Session) OpenRecords(anonymizedName string) (*annotations.Writer, error) {
	w, err := annotations.OpenOrAppendRecords(s.Dir, s.Name, anonymizedName, s.Offsets)
	if err != nil {
		return nil, err
	}
	w.SetLogger(s.log())
	return w, nil
}

// ChannelDir returns the directory a time-series channel named channelName
// should live in under this session.
func (s *Session) ChannelDir(channelName string) string {
	return s.Dir + "/" + channelName + ".timd"
}

// Close reseals and closes the manifest file.
func (s *Session) Close() error {
	if s.manifest == nil {
		return nil
	}
	if err := s.manifest.WriteHeader(); err != nil {
		return err
	}
	err := s.manifest.Close()
	s.manifest = nil
	if err != nil {
		return errors.Wrap(err, "session: close manifest")
	}
	level.Info(s.log()).Log(
		"msg", "session closed",
		"session", s.Name,
		"channels", len(s.channels),
	)
	return nil
}
