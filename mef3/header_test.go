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

func TestHeaderRoundTrip(t *testing.T) {
	h := NewHeader(FileTypeData)
	h.SetChannelName("left-hippocampus")
	h.SetSessionName("patient-001")
	h.StartTime = 946684800000000
	h.EndTime = 946684801000000
	h.NumberOfEntries = 7
	h.MaximumEntrySize = 4096
	h.BodyCRC = 0xDEADBEEF

	require.NoError(t, h.Seal())

	raw, err := h.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, raw, HeaderBytes)

	var got Header
	require.NoError(t, got.UnmarshalBinary(raw))

	require.Equal(t, "left-hippocampus", got.ChannelNameString())
	require.Equal(t, h.StartTime, got.StartTime)
	require.Equal(t, h.EndTime, got.EndTime)
	require.Equal(t, h.NumberOfEntries, got.NumberOfEntries)
	require.Equal(t, h.HeaderCRC, got.HeaderCRC)

	ok, err := got.Verify()
	require.NoError(t, err)
	require.True(t, ok, "header CRC must verify after round trip")
}

func TestHeaderVerifyDetectsCorruption(t *testing.T) {
	h := NewHeader(FileTypeIndices)
	require.NoError(t, h.Seal())

	h.NumberOfEntries = 99 // mutate after sealing, without resealing

	ok, err := h.Verify()
	require.NoError(t, err)
	require.False(t, ok, "mutated header must fail CRC verification")
}
