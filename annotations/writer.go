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

// Package annotations implements the records writer: an append-only store
// of heterogeneous typed records (Note/Seiz/Curs/Epoc) with pad-to-16-byte
// body alignment and a parallel record-index file, sharing the
// append-with-live-header-rewrite discipline the channel writer uses.
package annotations

import (
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/msel-source/mefwriter/fps"
	"github.com/msel-source/mefwriter/internal/crcutil"
	"github.com/msel-source/mefwriter/internal/mefio"
	"github.com/msel-source/mefwriter/internal/uuidutil"
	"github.com/msel-source/mefwriter/mef3"
	"github.com/msel-source/mefwriter/metrics"
)

const padByte = '~'

// padLen returns the number of pad bytes needed to round l up to the next
// multiple of 16.
func padLen(l int) int {
	return (16 - l%16) % 16
}

// Writer owns the open .rdat/.ridx pair for one annotation scope (session
// or, per the original format, a channel).
type Writer struct {
	anonymizedName string
	offsets        *mef3.OffsetCoordinator
	metrics        *metrics.Collectors
	logger         log.Logger

	rdat *fps.File
	ridx *fps.File
}

// SetMetrics attaches a Collectors instance; WriteRecord increments
// AnnotationRecords on every successful append. Optional — a nil m simply
// leaves metrics disabled.
func (w *Writer) SetMetrics(m *metrics.Collectors) { w.metrics = m }

// SetLogger attaches a logger; CloseRecords logs a summary line through
// it. Optional — a nil l leaves logging disabled.
func (w *Writer) SetLogger(l log.Logger) { w.logger = l }

func (w *Writer) log() log.Logger {
	if w.logger == nil {
		return log.NewNopLogger()
	}
	return w.logger
}

// OpenOrAppendRecords opens the records pair rooted at dir (a session or
// channel directory) for append if it already exists, or creates it with
// empty-body headers otherwise.
func OpenOrAppendRecords(dir, scopeName, anonymizedName string, offsets *mef3.OffsetCoordinator) (*Writer, error) {
	rdatPath := dir + "/" + scopeName + ".rdat"
	ridxPath := dir + "/" + scopeName + ".ridx"

	if mefio.Exists(rdatPath) {
		rdat, err := fps.Open(rdatPath)
		if err != nil {
			return nil, err
		}
		ridx, err := fps.Open(ridxPath)
		if err != nil {
			rdat.Close()
			return nil, err
		}
		return &Writer{anonymizedName: anonymizedName, offsets: offsets, rdat: rdat, ridx: ridx}, nil
	}

	rdatHeader := mef3.NewHeader(mef3.FileTypeRecordData)
	rdatHeader.SetAnonymizedName(anonymizedName)
	rdatHeader.FileUUID = uuidutil.Generate()

	ridxHeader := mef3.NewHeader(mef3.FileTypeRecordIndex)
	ridxHeader.SetAnonymizedName(anonymizedName)
	ridxHeader.FileUUID = uuidutil.Generate()
	ridxHeader.LevelUUID = rdatHeader.FileUUID

	rdat, err := fps.Create(rdatPath, rdatHeader)
	if err != nil {
		return nil, err
	}
	ridx, err := fps.Create(ridxPath, ridxHeader)
	if err != nil {
		rdat.Close()
		return nil, err
	}
	return &Writer{anonymizedName: anonymizedName, offsets: offsets, rdat: rdat, ridx: ridx}, nil
}

func (w *Writer) applyOffset(t int64) int64 {
	if w.offsets == nil {
		return t
	}
	return w.offsets.Apply(t)
}

// WriteRecord appends one typed record: header + padded body to .rdat, the
// parallel index entry to .ridx, and reseals both universal headers.
func (w *Writer) WriteRecord(unixUs int64, rec mef3.Record) error {
	tag := rec.Tag()
	if !tag.IsAccepted() {
		return errors.Wrapf(mef3.ErrConfig, "annotations: unrecognized record tag %q", tag.String())
	}

	body, err := rec.MarshalBody()
	if err != nil {
		return err
	}
	pad := padLen(len(body))
	padded := make([]byte, len(body)+pad)
	copy(padded, body)
	for i := len(body); i < len(padded); i++ {
		padded[i] = padByte
	}

	persistedTime := w.applyOffset(unixUs)
	offsetInFile := w.rdat.Offset()

	header := mef3.RecordHeader{
		Type:  tag,
		Bytes: uint32(len(padded)),
		Time:  persistedTime,
	}
	headerBuf, err := header.MarshalBinary()
	if err != nil {
		return err
	}
	crcInput := make([]byte, 0, len(headerBuf)-4+len(padded))
	crcInput = append(crcInput, headerBuf[4:]...)
	crcInput = append(crcInput, padded...)
	header.RecordCRC = crcutil.Calculate(crcInput)
	headerBuf, err = header.MarshalBinary()
	if err != nil {
		return err
	}

	if err := w.rdat.Append(headerBuf); err != nil {
		return err
	}
	if err := w.rdat.Append(padded); err != nil {
		return err
	}

	idx := mef3.RecordIndex{
		Type:       tag,
		Time:       persistedTime,
		FileOffset: offsetInFile,
	}
	idxBuf, err := idx.MarshalBinary()
	if err != nil {
		return err
	}
	if err := w.ridx.Append(idxBuf); err != nil {
		return err
	}

	w.updateHeaders(persistedTime, uint32(len(padded)+mef3.RecordHeaderBytes))
	if w.metrics != nil {
		w.metrics.AnnotationRecords.Inc()
	}
	return w.resealBoth()
}

func (w *Writer) updateHeaders(t int64, entrySize uint32) {
	for _, f := range []*fps.File{w.rdat, w.ridx} {
		f.Header.NumberOfEntries++
		if f.Header.StartTime == mef3.NoEntryTime {
			f.Header.StartTime = t
		}
		f.Header.EndTime = t
		if entrySize > f.Header.MaximumEntrySize {
			f.Header.MaximumEntrySize = entrySize
		}
	}
}

func (w *Writer) resealBoth() error {
	if err := w.rdat.WriteHeader(); err != nil {
		return err
	}
	return w.ridx.WriteHeader()
}

// CloseRecords flushes and closes both files. Calling it twice is a safe
// no-op.
func (w *Writer) CloseRecords() error {
	if w.rdat == nil && w.ridx == nil {
		return nil
	}
	entries := w.rdat.Header.NumberOfEntries
	var firstErr error
	if w.rdat != nil {
		if err := w.rdat.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		w.rdat = nil
	}
	if w.ridx != nil {
		if err := w.ridx.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		w.ridx = nil
	}
	level.Info(w.log()).Log(
		"msg", "records closed",
		"scope", w.anonymizedName,
		"entries", entries,
	)
	return firstErr
}
