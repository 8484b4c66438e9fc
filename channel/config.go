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

// Package channel implements the streaming channel writer: the state
// machine that buffers incoming samples, decides block boundaries, invokes
// the RED codec, appends to the data/indices files, maintains metadata
// aggregates, and rolls over segments.
package channel

import (
	"github.com/go-kit/log"
	"github.com/pkg/errors"

	"github.com/msel-source/mefwriter/mef3"
	"github.com/msel-source/mefwriter/metrics"
)

// DiscontinuityThresholdUs is the gap, in microseconds, between adjacent
// input timestamps that forces a new discontinuous block.
const DiscontinuityThresholdUs int64 = 100_000

// Config carries every option a channel writer needs to start or resume a
// channel.
type Config struct {
	SessionName string
	ChannelName string
	SessionDir  string

	SamplingFrequency   float64
	SecsPerBlock        float64
	BlockIntervalUs     int64
	BitShiftFlag        bool
	UnitsConversionFactor float64

	LowFrequencyFilterHz  float64
	HighFrequencyFilterHz float64
	NotchFilterHz         float64
	ACLineFrequencyHz     float64

	SegmentDurationUs int64
	GMTOffsetHours    int32

	PasswordL1 string
	PasswordL2 string

	LevelUUID [mef3.UUIDBytes]byte

	Offsets *mef3.OffsetCoordinator
	Metrics *metrics.Collectors
	Logger  log.Logger
}

// Validate enforces password consistency: a level-2 password requires a
// level-1 password, and the two must differ. Grounded on the reference
// implementation's up-front password checks in write_mef_channel.c, which
// abort before any directory or file is created.
func (c *Config) Validate() error {
	if c.PasswordL2 != "" && c.PasswordL1 == "" {
		return errors.Wrap(mef3.ErrConfig, "level-2 password set without a level-1 password")
	}
	if c.PasswordL1 != "" && c.PasswordL1 == c.PasswordL2 {
		return errors.Wrap(mef3.ErrConfig, "level-1 and level-2 passwords must differ")
	}
	if c.SamplingFrequency <= 0 {
		return errors.Wrap(mef3.ErrConfig, "sampling_frequency must be positive")
	}
	if c.BlockIntervalUs <= 0 {
		return errors.Wrap(mef3.ErrConfig, "block_interval_us must be positive")
	}
	return nil
}
