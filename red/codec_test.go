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

package red

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	samples := make([]int32, 1000)
	for i := range samples {
		samples[i] = int32(math.Round(math.Sin(2*math.Pi*10*float64(i)/1000) * 20000))
	}

	compressed, hdr, err := Encode(samples, false, 946684800000000)
	require.NoError(t, err)
	require.Equal(t, uint32(len(samples)), hdr.NumberOfSamples)
	require.False(t, hdr.Discontinuous())

	got, err := Decode(compressed)
	require.NoError(t, err)
	require.Equal(t, samples, got)
}

func TestEncodeDiscontinuityFlag(t *testing.T) {
	_, hdr, err := Encode([]int32{1, 2, 3}, true, 0)
	require.NoError(t, err)
	require.True(t, hdr.Discontinuous())
}

func TestEncodeRejectsEmptyBlock(t *testing.T) {
	_, _, err := Encode(nil, false, 0)
	require.Error(t, err)
}

func TestFindExtrema(t *testing.T) {
	e := FindExtrema([]int32{-6, -5, 4, 5, 6})
	require.Equal(t, int32(-6), e.Min)
	require.Equal(t, int32(6), e.Max)
}

func TestRoundTripNegativeAndLargeValues(t *testing.T) {
	samples := []int32{math.MinInt32, math.MaxInt32, 0, -1, 1}
	compressed, _, err := Encode(samples, false, 0)
	require.NoError(t, err)
	got, err := Decode(compressed)
	require.NoError(t, err)
	require.Equal(t, samples, got)
}
