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

func TestTagIsAcceptedRejectsUnknown(t *testing.T) {
	require.True(t, TagNote.IsAccepted())
	require.True(t, TagSeiz.IsAccepted())
	require.True(t, TagCurs.IsAccepted())
	require.True(t, TagEpoc.IsAccepted())

	unknown := Tag{'X', 'X', 'X', 'X'}
	require.False(t, unknown.IsAccepted())
}

func TestNoteRecordBodyIsNulTerminated(t *testing.T) {
	r := NoteRecord{Text: "first"}
	body, err := r.MarshalBody()
	require.NoError(t, err)
	require.Len(t, body, len("first")+1)
	require.Equal(t, byte(0), body[len(body)-1])
}

func TestRecordHeaderRoundTrip(t *testing.T) {
	h := RecordHeader{
		RecordCRC:    0x1234,
		Type:         TagSeiz,
		VersionMajor: 1,
		Bytes:        48,
		Time:         946684800000000,
	}
	raw, err := h.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, raw, RecordHeaderBytes)

	var got RecordHeader
	require.NoError(t, got.UnmarshalBinary(raw))
	require.Equal(t, h, got)
	require.Equal(t, "Seiz", got.Type.String())
}

func TestRecordIndexRoundTrip(t *testing.T) {
	idx := RecordIndex{
		Type:         TagNote,
		VersionMajor: 1,
		Time:         946684801000000,
		FileOffset:   HeaderBytes,
	}
	raw, err := idx.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, raw, RecordIndexBytes)

	var got RecordIndex
	require.NoError(t, got.UnmarshalBinary(raw))
	require.Equal(t, idx, got)
}

func TestCursAndEpocFixedWidths(t *testing.T) {
	c := CursRecord{IDNumber: 1, Name: "onset"}
	cb, err := c.MarshalBody()
	require.NoError(t, err)
	require.Len(t, cb, CursRecordBytes)

	e := EpocRecord{IDNumber: 1, EpochType: "sleep", Text: "stage 2"}
	eb, err := e.MarshalBody()
	require.NoError(t, err)
	require.Len(t, eb, EpocRecordBytes)
}
