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

// Package fps implements the File-processing struct: the pairing of a
// universal header with an open file handle and a running body CRC,
// modeled on the reference implementation's FILE_PROCESSING_STRUCT. It
// carries no per-file directive flags. It owns the write-header-with-auto-CRC and
// in-place header re-seal primitives every MEF3 file type needs, so the
// channel and annotations writers share one
// implementation of that discipline instead of duplicating it.
package fps

import (
	"os"

	"github.com/pkg/errors"

	"github.com/msel-source/mefwriter/internal/crcutil"
	"github.com/msel-source/mefwriter/internal/mefio"
	"github.com/msel-source/mefwriter/mef3"
)

// File pairs an open file handle with its universal header and a live
// running body CRC, the core of FILE_PROCESSING_STRUCT.
type File struct {
	Path   string
	Header *mef3.Header

	f       *os.File
	bodyCRC uint32
	offset  int64
}

// Create makes (or truncates) the file at path, writes an empty-body
// universal header, and leaves the handle positioned right after it —
// ready for a streamed body to be appended.
func Create(path string, header *mef3.Header) (*File, error) {
	f, err := mefio.CreateFile(path)
	if err != nil {
		return nil, err
	}
	file := &File{Path: path, Header: header, f: f, bodyCRC: crcutil.Start}
	if err := file.WriteHeader(); err != nil {
		f.Close()
		return nil, err
	}
	file.offset = mef3.HeaderBytes
	return file, nil
}

// Open reopens an existing file for append, reading back its current
// header and body CRC so subsequent writes fold into the right running
// checksum (used when resuming into a session via append_channel, and by
// annotations' open-or-append).
func Open(path string) (*File, error) {
	f, err := mefio.OpenForAppend(path)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, mef3.HeaderBytes)
	if _, err := f.ReadAt(buf, 0); err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "read header of %s", path)
	}
	h := &mef3.Header{}
	if err := h.UnmarshalBinary(buf); err != nil {
		f.Close()
		return nil, err
	}
	size, err := mefio.Size(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.Seek(size, os.SEEK_SET); err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "seek to tail of %s", path)
	}
	return &File{Path: path, Header: h, f: f, bodyCRC: h.BodyCRC, offset: size}, nil
}

// Offset returns the current append position (bytes from start of file).
func (fl *File) Offset() int64 { return fl.offset }

// WriteHeader seals Header (recomputing HeaderCRC over the current
// BodyCRC/fields) and writes it at offset 0, without disturbing the
// current append position for the body.
func (fl *File) WriteHeader() error {
	fl.Header.BodyCRC = fl.bodyCRC
	if err := fl.Header.Seal(); err != nil {
		return err
	}
	raw, err := fl.Header.MarshalBinary()
	if err != nil {
		return err
	}
	cur := fl.offset
	if _, err := fl.f.WriteAt(raw, 0); err != nil {
		return errors.Wrapf(err, "write header of %s", fl.Path)
	}
	fl.offset = cur
	return nil
}

// Append writes b at the current tail, folds it into the running body CRC,
// and advances the append cursor. It does not reseal the header; callers
// batch several Append calls and then call WriteHeader once.
func (fl *File) Append(b []byte) error {
	if _, err := fl.f.WriteAt(b, fl.offset); err != nil {
		return errors.Wrapf(err, "append to %s", fl.Path)
	}
	fl.offset += int64(len(b))
	fl.bodyCRC = crcutil.Update(b, fl.bodyCRC)
	return nil
}

// BodyCRC returns the current running body checksum.
func (fl *File) BodyCRC() uint32 { return fl.bodyCRC }

// WriteBody replaces the entire body with b, truncating the file to
// HeaderBytes+len(b) and recomputing the running body CRC from scratch.
// Used by small fixed-size single-entry files (the metadata file) that are
// "rewritten from scratch" on every update rather than streamed-and-appended
//.
func (fl *File) WriteBody(b []byte) error {
	if err := fl.f.Truncate(mef3.HeaderBytes + int64(len(b))); err != nil {
		return errors.Wrapf(err, "truncate %s", fl.Path)
	}
	if _, err := fl.f.WriteAt(b, mef3.HeaderBytes); err != nil {
		return errors.Wrapf(err, "write body of %s", fl.Path)
	}
	fl.offset = mef3.HeaderBytes + int64(len(b))
	fl.bodyCRC = crcutil.Calculate(b)
	return nil
}

// ReadAt reads len(b) bytes starting at off, for callers that need to read
// back a body they previously wrote (e.g. append_channel cloning a prior
// segment's metadata).
func (fl *File) ReadAt(b []byte, off int64) error {
	if _, err := fl.f.ReadAt(b, off); err != nil {
		return errors.Wrapf(err, "read %s", fl.Path)
	}
	return nil
}

// Sync flushes the file to stable storage.
func (fl *File) Sync() error {
	if err := fl.f.Sync(); err != nil {
		return errors.Wrapf(err, "fsync %s", fl.Path)
	}
	return nil
}

// Close closes the underlying handle without writing anything further.
// Callers must WriteHeader before Close if the header has pending changes.
func (fl *File) Close() error {
	if fl.f == nil {
		return nil
	}
	err := fl.f.Close()
	fl.f = nil
	if err != nil {
		return errors.Wrapf(err, "close %s", fl.Path)
	}
	return nil
}
