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

package fps

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/msel-source/mefwriter/mef3"
)

func TestCreateWritesVerifiableHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chan.tdat")
	h := mef3.NewHeader(mef3.FileTypeData)
	h.SetChannelName("eeg1")

	f, err := Create(path, h)
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, int64(mef3.HeaderBytes), f.Offset())
	ok, err := f.Header.Verify()
	require.NoError(t, err)
	require.True(t, ok)
}

func TestAppendFoldsRunningCRCAndWriteHeaderReseals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chan.tdat")
	h := mef3.NewHeader(mef3.FileTypeData)

	f, err := Create(path, h)
	require.NoError(t, err)

	payload := []byte("a fake compressed block")
	require.NoError(t, f.Append(payload))
	before := f.BodyCRC()
	require.NotZero(t, before)

	require.NoError(t, f.WriteHeader())
	require.Equal(t, before, f.Header.BodyCRC)
	ok, err := f.Header.Verify()
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, f.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	require.Equal(t, before, reopened.BodyCRC())
	require.Equal(t, int64(mef3.HeaderBytes)+int64(len(payload)), reopened.Offset())
}

func TestOpenResumesAppendAtTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chan.tdat")
	h := mef3.NewHeader(mef3.FileTypeData)

	f, err := Create(path, h)
	require.NoError(t, err)
	require.NoError(t, f.Append([]byte("first")))
	require.NoError(t, f.WriteHeader())
	require.NoError(t, f.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, reopened.Append([]byte("second")))
	require.NoError(t, reopened.WriteHeader())
	require.NoError(t, reopened.Close())

	final, err := Open(path)
	require.NoError(t, err)
	defer final.Close()
	require.Equal(t, int64(mef3.HeaderBytes)+int64(len("firstsecond")), final.Offset())
}
