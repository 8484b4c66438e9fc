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

package session

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/msel-source/mefwriter/mef3"
)

func TestCreateWritesVerifiableManifest(t *testing.T) {
	s, err := Create(t.TempDir(), "sess1", mef3.TimeOffsetIgnore, 0)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.RegisterChannel("eeg1.timd"))
	require.NoError(t, s.RegisterChannel("eeg2.timd"))
	require.Equal(t, []string{"eeg1.timd", "eeg2.timd"}, s.channels)

	ok, err := s.manifest.Header.Verify()
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRegisterChannelIsIdempotent(t *testing.T) {
	s, err := Create(t.TempDir(), "sess1", mef3.TimeOffsetIgnore, 0)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.RegisterChannel("eeg1.timd"))
	require.NoError(t, s.RegisterChannel("eeg1.timd"))
	require.Len(t, s.channels, 1)
}

func TestOpenRecordsSharesOffsetCoordinator(t *testing.T) {
	s, err := Create(t.TempDir(), "sess1", mef3.TimeOffsetApply, 0)
	require.NoError(t, err)
	defer s.Close()

	// The anchor is only set by the first channel's first block; until
	// then annotations see absolute times unchanged.
	s.Offsets.EnsureSet(946684800000000)

	w, err := s.OpenRecords("anon")
	require.NoError(t, err)
	defer w.CloseRecords()

	require.NoError(t, w.WriteRecord(946684801000000, mef3.NoteRecord{Text: "hello"}))
	require.Equal(t, int64(946684800000000), s.Offsets.RecordingOffsetUs())
}
