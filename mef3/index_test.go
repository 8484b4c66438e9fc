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

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIndexEntryRoundTrip(t *testing.T) {
	e := IndexEntry{
		FileOffset:      HeaderBytes,
		StartTime:       946684800000000,
		StartSample:     0,
		NumberOfSamples: 1000,
		BlockBytes:      2048,
		MaxSampleValue:  20000,
		MinSampleValue:  -20000,
		Flags:           FlagDiscontinuity,
	}

	raw, err := e.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, raw, IndexEntryBytes)

	var got IndexEntry
	require.NoError(t, got.UnmarshalBinary(raw))
	require.Equal(t, e, got)
}

func TestIndexEntryBytesIs56(t *testing.T) {
	require.Equal(t, 56, IndexEntryBytes)
}
