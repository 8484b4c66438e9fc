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

import "sync"

// TimeOffsetMode selects how persisted timestamps relate to the producer's
// absolute Unix-microsecond times.
type TimeOffsetMode int

const (
	// TimeOffsetIgnore stores absolute microsecond Unix-epoch times verbatim.
	TimeOffsetIgnore TimeOffsetMode = iota
	// TimeOffsetApply anchors every persisted time to (first_time -
	// GMT_offset_seconds*1e6), computed once from the first block ever
	// written and shared by every channel.
	TimeOffsetApply
	// TimeOffsetApplyOnOutput is identical to TimeOffsetApply except the
	// in-memory values a caller observes stay absolute; only the serialized
	// wire bytes carry the offset.
	TimeOffsetApplyOnOutput
)

// AppliesOffset reports whether mode requires a recording_time_offset
// anchor at all (both APPLY variants do; IGNORE does not).
func (m TimeOffsetMode) AppliesOffset() bool {
	return m == TimeOffsetApply || m == TimeOffsetApplyOnOutput
}

// offsetDefault is the reference implementation's
// MEF_GLOBALS_RECORDING_TIME_OFFSET_DEFAULT sentinel meaning "not yet
// computed".
const offsetDefault = NoEntryTime

// OffsetCoordinator is the process-wide, single-setter anchor for
// recording_time_offset and GMT_offset. Both are assigned once, on the
// first block written by the first channel, and read by every subsequent
// block write thereafter. One coordinator is meant to be shared by every
// channel/annotation writer in a recording session.
type OffsetCoordinator struct {
	mu             sync.Mutex
	mode           TimeOffsetMode
	gmtOffsetSec   int32
	recordingOffset int64
	set            bool
}

// NewOffsetCoordinator returns a coordinator for the given mode. gmtOffsetSec
// is only consulted the first time EnsureSet computes an anchor.
func NewOffsetCoordinator(mode TimeOffsetMode, gmtOffsetSec int32) *OffsetCoordinator {
	return &OffsetCoordinator{mode: mode, gmtOffsetSec: gmtOffsetSec, recordingOffset: offsetDefault}
}

// Mode returns the configured time-offset mode.
func (c *OffsetCoordinator) Mode() TimeOffsetMode { return c.mode }

// EnsureSet computes the recording_time_offset anchor from firstAbsoluteUs
// the first time it is called across the whole process (serialized by c's
// mutex); subsequent calls are no-ops. Mirrors
// generate_recording_time_offset: anchor = first_time -
// GMT_offset_seconds*1e6.
func (c *OffsetCoordinator) EnsureSet(firstAbsoluteUs int64) {
	if !c.mode.AppliesOffset() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.set {
		return
	}
	c.recordingOffset = firstAbsoluteUs - int64(c.gmtOffsetSec)*1_000_000
	c.set = true
}

// RecordingOffsetUs returns the current anchor (NoEntryTime/offsetDefault
// if none has been set yet).
func (c *OffsetCoordinator) RecordingOffsetUs() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recordingOffset
}

// Apply maps an absolute producer timestamp to its persisted,
// anchor-relative form: t - anchor. A no-op under TimeOffsetIgnore.
func (c *OffsetCoordinator) Apply(absoluteUs int64) int64 {
	if !c.mode.AppliesOffset() {
		return absoluteUs
	}
	c.mu.Lock()
	anchor := c.recordingOffset
	c.mu.Unlock()
	if anchor == offsetDefault {
		return absoluteUs
	}
	return absoluteUs - anchor
}
