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

package mef3

import "github.com/pkg/errors"

// Sentinel error kinds from the error taxonomy. Callers match against
// these with errors.Is. ErrConfig and ErrInvariant are returned wrapped
// with github.com/pkg/errors; I/O failures are returned as the underlying
// os error wrapped with context and do not carry ErrIO, and no writer in
// this module returns ErrMemory.
var (
	// ErrConfig reports an inconsistent configuration discovered before any
	// disk mutation: a level-2 password without a level-1 password, a
	// level-1 password equal to level-2, or an unrecognized record tag.
	ErrConfig = errors.New("mef3: config error")

	// ErrIO names the fatal create/open/write/seek failure kind. No function
	// in this module wraps it: such failures come back as the wrapped os
	// error. The writer does not retry; the caller decides whether to reopen
	// or abandon.
	ErrIO = errors.New("mef3: io error")

	// ErrMemory reports a buffer allocation failure.
	ErrMemory = errors.New("mef3: memory error")

	// ErrInvariant reports a violated call invariant: WriteChannel returns
	// it, wrapped, when times and samples differ in length. Internal no-op
	// checks, such as flushing with nothing buffered, return nil instead.
	ErrInvariant = errors.New("mef3: invariant no-op")
)
