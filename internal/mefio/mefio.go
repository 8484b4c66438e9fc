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

// Package mefio provides the portable filesystem primitives the writer
// needs in place of the reference implementation's shell-outs to mkdir and
// cp: idempotent directory creation, a join helper, and file
// create/open/stat helpers; it has no fsync or durable-write helper.
// Modeled on the directory discipline the teacher's vendored
// tsdb writer takes from coreos/etcd's fileutil, reimplemented on the
// standard library since that fileutil package is not a declared
// dependency of this module (see DESIGN.md).
package mefio

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// MkdirAll idempotently creates dir and any missing parents, mirroring the
// reference implementation's "mkdir <path>" shell-out.
func MkdirAll(dir string) error {
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return errors.Wrapf(err, "mkdir %s", dir)
	}
	return nil
}

// Join is a thin wrapper over filepath.Join. The channel, annotations and
// session packages build their paths by string concatenation and do not
// call it.
func Join(elem ...string) string {
	return filepath.Join(elem...)
}

// CreateFile creates (or truncates) the file at path for reading and
// writing, creating parent directories first.
func CreateFile(path string) (*os.File, error) {
	if err := MkdirAll(filepath.Dir(path)); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o666)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s", path)
	}
	return f, nil
}

// OpenForAppend reopens an existing file for read/write without truncating
// it, used when resuming (append_channel) or reopening annotation files
// between writes.
func OpenForAppend(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o666)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	return f, nil
}

// Exists reports whether path exists on disk.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Size returns the current size in bytes of the open file.
func Size(f *os.File) (int64, error) {
	fi, err := f.Stat()
	if err != nil {
		return 0, errors.Wrap(err, "stat")
	}
	return fi.Size(), nil
}
