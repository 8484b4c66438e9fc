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

package annotations

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/msel-source/mefwriter/fps"
	"github.com/msel-source/mefwriter/mef3"
)

func TestWriteRecordPadsTo16ByteMultiples(t *testing.T) {
	dir := t.TempDir()
	w, err := OpenOrAppendRecords(dir, "session1", "anon", nil)
	require.NoError(t, err)

	require.NoError(t, w.WriteRecord(946684800000000, mef3.NoteRecord{Text: "first"}))
	require.NoError(t, w.WriteRecord(946684801000000, mef3.NoteRecord{Text: "second"}))
	require.NoError(t, w.CloseRecords())

	rdatPath := filepath.Join(dir, "session1.rdat")
	rdat, err := fps.Open(rdatPath)
	require.NoError(t, err)
	defer rdat.Close()

	bodyLen := rdat.Offset() - mef3.HeaderBytes
	firstPadded := padLen(len("first")+1) + len("first") + 1
	secondPadded := padLen(len("second")+1) + len("second") + 1
	require.EqualValues(t, 2*mef3.RecordHeaderBytes+firstPadded+secondPadded, bodyLen)
	require.Zero(t, firstPadded%16)
	require.Zero(t, secondPadded%16)
}

func TestWriteRecordRejectsUnknownTag(t *testing.T) {
	dir := t.TempDir()
	w, err := OpenOrAppendRecords(dir, "session1", "anon", nil)
	require.NoError(t, err)
	defer w.CloseRecords()

	err = w.WriteRecord(0, fakeRecord{})
	require.Error(t, err)
	require.ErrorIs(t, err, mef3.ErrConfig)
}

func TestOpenOrAppendRecordsResumesExistingFiles(t *testing.T) {
	dir := t.TempDir()
	w, err := OpenOrAppendRecords(dir, "session1", "anon", nil)
	require.NoError(t, err)
	require.NoError(t, w.WriteRecord(1, mef3.NoteRecord{Text: "one"}))
	require.NoError(t, w.CloseRecords())

	w2, err := OpenOrAppendRecords(dir, "session1", "anon", nil)
	require.NoError(t, err)
	require.NoError(t, w2.WriteRecord(2, mef3.NoteRecord{Text: "two"}))
	require.NoError(t, w2.CloseRecords())

	rdatPath := filepath.Join(dir, "session1.rdat")
	rdat, err := fps.Open(rdatPath)
	require.NoError(t, err)
	defer rdat.Close()
	require.Equal(t, uint64(2), rdat.Header.NumberOfEntries)
}

type fakeRecord struct{}

func (fakeRecord) Tag() mef3.Tag                    { return mef3.Tag{'X', 'X', 'X', 'X'} }
func (fakeRecord) MarshalBody() ([]byte, error)     { return nil, nil }
