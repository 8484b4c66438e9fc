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
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// Tag identifies a record type by its 4-byte ASCII tag.
type Tag [4]byte

// Accepted record tags. The reference implementation's guard for
// this ("!strcmp(type,"Seiz") && !strcmp(type,"Note")") is a bug: a
// logical-AND of two equality tests against different tags, which can
// never both hold, so it cannot tell accepted tags from unknown ones. This
// port enumerates the accepted set explicitly instead.
var (
	TagNote = Tag{'N', 'o', 't', 'e'}
	TagSeiz = Tag{'S', 'e', 'i', 'z'}
	TagCurs = Tag{'C', 'u', 'r', 's'}
	TagEpoc = Tag{'E', 'p', 'o', 'c'}
)

// IsAccepted reports whether t is one of the four record tags this writer
// knows how to serialize.
func (t Tag) IsAccepted() bool {
	return t == TagNote || t == TagSeiz || t == TagCurs || t == TagEpoc
}

func (t Tag) String() string {
	n := 0
	for n < len(t) && t[n] != 0 {
		n++
	}
	return string(t[:n])
}

// RecordHeaderBytes is the fixed width of one record header.
//
// Layout (little-endian):
//
//	0  record_CRC     uint32
//	4  type           [4]byte
//	8  version_major  uint8
//	9  version_minor  uint8
//	10 encryption     uint8
//	11 reserved       uint8
//	12 bytes          uint32 (padded body length)
//	16 time           int64
const RecordHeaderBytes = 24

// RecordHeader precedes every padded record body in the .rdat file.
type RecordHeader struct {
	RecordCRC    uint32
	Type         Tag
	VersionMajor uint8
	VersionMinor uint8
	Encryption   uint8
	Bytes        uint32
	Time         int64
}

// MarshalBinary encodes the header as RecordHeaderBytes bytes.
func (h RecordHeader) MarshalBinary() ([]byte, error) {
	buf := make([]byte, RecordHeaderBytes)
	binary.LittleEndian.PutUint32(buf[0:], h.RecordCRC)
	copy(buf[4:8], h.Type[:])
	buf[8] = h.VersionMajor
	buf[9] = h.VersionMinor
	buf[10] = h.Encryption
	binary.LittleEndian.PutUint32(buf[12:], h.Bytes)
	binary.LittleEndian.PutUint64(buf[16:], uint64(h.Time))
	return buf, nil
}

// UnmarshalBinary decodes a RecordHeaderBytes-length buffer into h.
func (h *RecordHeader) UnmarshalBinary(buf []byte) error {
	if len(buf) < RecordHeaderBytes {
		return errors.Errorf("mef3: record header buffer too short: %d < %d", len(buf), RecordHeaderBytes)
	}
	h.RecordCRC = binary.LittleEndian.Uint32(buf[0:])
	copy(h.Type[:], buf[4:8])
	h.VersionMajor = buf[8]
	h.VersionMinor = buf[9]
	h.Encryption = buf[10]
	h.Bytes = binary.LittleEndian.Uint32(buf[12:])
	h.Time = int64(binary.LittleEndian.Uint64(buf[16:]))
	return nil
}

// RecordIndexBytes is the fixed width of one .ridx record.
//
// Layout (little-endian):
//
//	0  type        [4]byte
//	4  version_major uint8
//	5  version_minor uint8
//	6  encryption    uint8
//	7  reserved      uint8
//	8  time          int64
//	16 file_offset   int64
const RecordIndexBytes = 24

// RecordIndex is the parallel .ridx entry for one .rdat record.
type RecordIndex struct {
	Type         Tag
	VersionMajor uint8
	VersionMinor uint8
	Encryption   uint8
	Time         int64
	FileOffset   int64
}

// MarshalBinary encodes the index entry as RecordIndexBytes bytes.
func (i RecordIndex) MarshalBinary() ([]byte, error) {
	buf := make([]byte, RecordIndexBytes)
	copy(buf[0:4], i.Type[:])
	buf[4] = i.VersionMajor
	buf[5] = i.VersionMinor
	buf[6] = i.Encryption
	binary.LittleEndian.PutUint64(buf[8:], uint64(i.Time))
	binary.LittleEndian.PutUint64(buf[16:], uint64(i.FileOffset))
	return buf, nil
}

// UnmarshalBinary decodes a RecordIndexBytes-length buffer into i.
func (i *RecordIndex) UnmarshalBinary(buf []byte) error {
	if len(buf) < RecordIndexBytes {
		return errors.Errorf("mef3: record index buffer too short: %d < %d", len(buf), RecordIndexBytes)
	}
	copy(i.Type[:], buf[0:4])
	i.VersionMajor = buf[4]
	i.VersionMinor = buf[5]
	i.Encryption = buf[6]
	i.Time = int64(binary.LittleEndian.Uint64(buf[8:]))
	i.FileOffset = int64(binary.LittleEndian.Uint64(buf[16:]))
	return nil
}

// Record is anything that can serialize itself to a fixed- or
// variable-length body and report the tag it should be written under.
type Record interface {
	Tag() Tag
	MarshalBody() ([]byte, error)
}

// NoteRecord is a free-text annotation, stored NUL-terminated.
type NoteRecord struct {
	Text string
}

func (NoteRecord) Tag() Tag { return TagNote }

// MarshalBody returns the note text followed by a single NUL terminator,
// matching the reference implementation's strlen+1 sizing.
func (r NoteRecord) MarshalBody() ([]byte, error) {
	b := make([]byte, len(r.Text)+1)
	copy(b, r.Text)
	return b, nil
}

const (
	seizOnsetTypeBytes = 32
	seizMarkerBytes    = 32
)

// SeizRecord marks a seizure's onset/offset window.
type SeizRecord struct {
	EarliestOnsetUs int64
	LatestOffsetUs  int64
	NumberOfChannels int32
	OnsetType       string
	MarkerName1     string
	MarkerName2     string
}

func (SeizRecord) Tag() Tag { return TagSeiz }

// SeizRecordBytes is the fixed body width of a Seiz record.
const SeizRecordBytes = 8 + 8 + 4 + seizOnsetTypeBytes + seizMarkerBytes*2

func (r SeizRecord) MarshalBody() ([]byte, error) {
	buf := make([]byte, SeizRecordBytes)
	binary.LittleEndian.PutUint64(buf[0:], uint64(r.EarliestOnsetUs))
	binary.LittleEndian.PutUint64(buf[8:], uint64(r.LatestOffsetUs))
	binary.LittleEndian.PutUint32(buf[16:], uint32(r.NumberOfChannels))
	off := 20
	copy(buf[off:off+seizOnsetTypeBytes], r.OnsetType)
	off += seizOnsetTypeBytes
	copy(buf[off:off+seizMarkerBytes], r.MarkerName1)
	off += seizMarkerBytes
	copy(buf[off:off+seizMarkerBytes], r.MarkerName2)
	return buf, nil
}

const cursNameBytes = 32

// CursRecord marks a single time-aligned cursor/marker.
//
// Fixed-width fields are copied into a freshly zeroed buffer rather than
// reusing the caller's memory directly, so an unterminated Name never
// leaks trailing garbage onto disk, mirroring the reference
// implementation's calloc-a-fresh-struct pattern in write_annotation.
type CursRecord struct {
	IDNumber        int64
	TraceTimestamp  int64
	LatencyUs       int64
	Value           float64
	Name            string
}

func (CursRecord) Tag() Tag { return TagCurs }

// CursRecordBytes is the fixed body width of a Curs record.
const CursRecordBytes = 8 + 8 + 8 + 8 + cursNameBytes

func (r CursRecord) MarshalBody() ([]byte, error) {
	buf := make([]byte, CursRecordBytes)
	binary.LittleEndian.PutUint64(buf[0:], uint64(r.IDNumber))
	binary.LittleEndian.PutUint64(buf[8:], uint64(r.TraceTimestamp))
	binary.LittleEndian.PutUint64(buf[16:], uint64(r.LatencyUs))
	binary.LittleEndian.PutUint64(buf[24:], math.Float64bits(r.Value))
	copy(buf[32:32+cursNameBytes], r.Name)
	return buf, nil
}

const (
	epocTypeBytes = 32
	epocTextBytes = 64
)

// EpocRecord marks a named time interval, e.g. a sleep stage.
type EpocRecord struct {
	IDNumber      int64
	TimestampUs   int64
	EndTimestampUs int64
	DurationUs    int64
	EpochType     string
	Text          string
}

func (EpocRecord) Tag() Tag { return TagEpoc }

// EpocRecordBytes is the fixed body width of an Epoc record.
const EpocRecordBytes = 8*4 + epocTypeBytes + epocTextBytes

func (r EpocRecord) MarshalBody() ([]byte, error) {
	buf := make([]byte, EpocRecordBytes)
	binary.LittleEndian.PutUint64(buf[0:], uint64(r.IDNumber))
	binary.LittleEndian.PutUint64(buf[8:], uint64(r.TimestampUs))
	binary.LittleEndian.PutUint64(buf[16:], uint64(r.EndTimestampUs))
	binary.LittleEndian.PutUint64(buf[24:], uint64(r.DurationUs))
	off := 32
	copy(buf[off:off+epocTypeBytes], r.EpochType)
	off += epocTypeBytes
	copy(buf[off:off+epocTextBytes], r.Text)
	return buf, nil
}
