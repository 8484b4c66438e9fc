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

package channel

import (
	"fmt"

	"github.com/msel-source/mefwriter/fps"
	"github.com/msel-source/mefwriter/mef3"
)

// State is a channel's exclusive-ownership handle: the buffered samples,
// boundary clocks, contiguous-run counters, and the three open segment
// files. Exactly one caller may mutate a given State at a time.
type State struct {
	cfg Config

	segmentNumber int32
	section2      *mef3.Section2
	section3      *mef3.Section3

	meta *fps.File
	inds *fps.File
	data *fps.File

	buffer []int32
	bufLen int

	blockHdrTime  int64
	blockBoundary int64
	lastSeenTime  int64
	haveSample    bool
	discontinuity bool

	firstBlockEver bool

	nextSegmentStartTime int64
	segmentRolloverOn    bool

	contiguousBlocks  uint32
	contiguousBytes   uint64
	contiguousSamples uint64

	closed bool
}

// channelDir returns <sessionDir>/<channel>.timd.
func channelDir(cfg Config) string {
	return cfg.SessionDir + "/" + cfg.ChannelName + ".timd"
}

// segmentName returns "<channel>-NNNNNN" for segment number n.
func segmentName(channel string, n int32) string {
	return fmt.Sprintf("%s-%06d", channel, n)
}

// segmentDir returns the directory holding segment n's three files.
func segmentDir(cfg Config, n int32) string {
	name := segmentName(cfg.ChannelName, n)
	return channelDir(cfg) + "/" + name + ".segd"
}

// segmentFilePaths returns the metadata/indices/data file paths for segment n.
func segmentFilePaths(cfg Config, n int32) (meta, inds, data string) {
	dir := segmentDir(cfg, n)
	name := segmentName(cfg.ChannelName, n)
	return dir + "/" + name + ".tmet", dir + "/" + name + ".tidx", dir + "/" + name + ".tdat"
}

// SegmentNumber returns the segment this state is currently writing.
func (s *State) SegmentNumber() int32 { return s.segmentNumber }

// Section2 returns the live time-series metadata aggregates.
func (s *State) Section2() *mef3.Section2 { return s.section2 }

// Section3 returns the subject/recording attribution fields.
func (s *State) Section3() *mef3.Section3 { return s.section3 }
