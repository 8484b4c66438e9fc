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
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/msel-source/mefwriter/mef3"
)

func baseConfig(t *testing.T, sessionName, channelName string) Config {
	return Config{
		SessionName:         sessionName,
		ChannelName:         channelName,
		SessionDir:          filepath.Join(t.TempDir(), sessionName+".mefd"),
		SamplingFrequency:   1000,
		SecsPerBlock:        1.0,
		BlockIntervalUs:     1_000_000,
		UnitsConversionFactor: 1.0,
	}
}

func sineSamples(n int) ([]int64, []int32) {
	times := make([]int64, n)
	samples := make([]int32, n)
	for i := 0; i < n; i++ {
		times[i] = 946684800000000 + int64(i)*1000
		samples[i] = int32(math.Round(math.Sin(2*math.Pi*10*float64(i)/1000) * 20000))
	}
	return times, samples
}

func TestSineNoOffsetSingleSegment(t *testing.T) {
	cfg := baseConfig(t, "sess1", "eeg1")
	s, err := Init(cfg)
	require.NoError(t, err)

	times, samples := sineSamples(10000)
	require.NoError(t, s.WriteChannel(times, samples))
	require.NoError(t, s.CloseChannel())

	require.EqualValues(t, 10000, s.Section2().NumberOfSamples)
	require.EqualValues(t, 10, s.Section2().NumberOfBlocks)
	require.EqualValues(t, 1, s.Section2().NumberOfDiscontinuities)
}

func TestGapScenarioMarksBothBlocksDiscontinuous(t *testing.T) {
	cfg := baseConfig(t, "sess2", "eeg1")
	s, err := Init(cfg)
	require.NoError(t, err)

	times1, samples1 := sineSamples(1000)
	require.NoError(t, s.WriteChannel(times1, samples1))

	times2, samples2 := sineSamples(1000)
	for i := range times2 {
		times2[i] += 5_000_000
	}
	require.NoError(t, s.WriteChannel(times2, samples2))
	require.NoError(t, s.CloseChannel())

	require.EqualValues(t, 2, s.Section2().NumberOfBlocks)
	require.EqualValues(t, 2, s.Section2().NumberOfDiscontinuities)
}

func TestSegmentRolloverSplitsIntoTwoSegments(t *testing.T) {
	cfg := baseConfig(t, "sess3", "eeg1")
	cfg.SegmentDurationUs = 5_000_000
	s, err := Init(cfg)
	require.NoError(t, err)

	times, samples := sineSamples(10000)
	require.NoError(t, s.WriteChannel(times, samples))
	require.NoError(t, s.CloseChannel())

	require.EqualValues(t, 1, s.SegmentNumber())
	require.EqualValues(t, 5000, s.Section2().StartSample)
	require.EqualValues(t, 5000, s.Section2().NumberOfSamples)
	require.EqualValues(t, 5, s.Section2().NumberOfBlocks)
}

func TestAppendResumeClonesSection3AndAdvancesStartSample(t *testing.T) {
	cfg := baseConfig(t, "sess4", "eeg1")
	cfg.SegmentDurationUs = 5_000_000
	s, err := Init(cfg)
	require.NoError(t, err)
	s.Section3().SubjectID = "subject-42"

	times, samples := sineSamples(10000)
	require.NoError(t, s.WriteChannel(times, samples))
	require.NoError(t, s.CloseChannel())

	resumed, err := Append(cfg, s.SegmentNumber())
	require.NoError(t, err)
	require.EqualValues(t, s.SegmentNumber()+1, resumed.SegmentNumber())
	require.EqualValues(t, 10000, resumed.Section2().StartSample)
	require.Equal(t, "subject-42", resumed.Section3().SubjectID)
	require.NoError(t, resumed.CloseChannel())
}

func TestBitShiftRoundsHalfAwayFromZero(t *testing.T) {
	in := []int32{-6, -5, 4, 5, 6}
	bitShift(in)
	require.Equal(t, []int32{-2, -1, 1, 1, 2}, in)
}

func TestConfigValidateRejectsInconsistentPasswords(t *testing.T) {
	cfg := baseConfig(t, "s", "c")
	cfg.PasswordL2 = "level2only"
	err := cfg.Validate()
	require.Error(t, err)
	require.ErrorIs(t, err, mef3.ErrConfig)
}
