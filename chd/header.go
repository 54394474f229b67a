// Copyright (c) 2025 Niema Moshiri and The Zaparoo Project.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of go-pakfs.
//
// go-pakfs is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-pakfs is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-pakfs.  If not, see <https://www.gnu.org/licenses/>.

package chd

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

var chdMagic = []byte("MComprHD")

// Minimum header lengths per version. Fields are read at fixed offsets
// from the start of the file.
var headerLengths = map[uint32]uint32{
	3: 120,
	4: 108,
	5: 124,
}

// V3 and V4 images compress with zlib or not at all. They never record
// a unit size and hold CD frames with subcode.
const (
	legacyCompressionZlib  = 1
	legacyCompressionZlibP = 2

	defaultUnitBytes = cdFrameBytes
)

// Header holds the fields of a CHD header needed to locate hunk data.
type Header struct {
	Compressors  [4]uint32 // V5 codec tags, zero when unused
	LogicalBytes uint64
	MapOffset    uint64
	MetaOffset   uint64
	Version      uint32
	Length       uint32
	HunkBytes    uint32
	UnitBytes    uint32
	TotalHunks   uint32 // V3/V4 only
	Compression  uint32 // V3/V4 only
}

// NumHunks returns the number of hunks in the image.
func (h *Header) NumHunks() uint64 {
	if h.TotalHunks > 0 {
		return uint64(h.TotalHunks)
	}
	return (h.LogicalBytes + uint64(h.HunkBytes) - 1) / uint64(h.HunkBytes)
}

// UnitsPerHunk returns how many units (CD frames for optical media)
// one hunk holds.
func (h *Header) UnitsPerHunk() int64 {
	return int64(h.HunkBytes / h.UnitBytes)
}

func readHeader(r io.ReaderAt) (*Header, error) {
	prefix := make([]byte, 16)
	if _, err := r.ReadAt(prefix, 0); err != nil {
		return nil, fmt.Errorf("read CHD header: %w", err)
	}
	if !bytes.Equal(prefix[:8], chdMagic) {
		return nil, ErrInvalidMagic
	}

	be := binary.BigEndian
	h := &Header{
		Length:  be.Uint32(prefix[8:12]),
		Version: be.Uint32(prefix[12:16]),
	}
	minLength, ok := headerLengths[h.Version]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	if h.Length < minLength {
		return nil, fmt.Errorf("%w: header length %d", ErrInvalidHeader, h.Length)
	}

	buf := make([]byte, minLength)
	if _, err := r.ReadAt(buf, 0); err != nil {
		return nil, fmt.Errorf("read CHD header: %w", err)
	}

	switch h.Version {
	case 5:
		for i := range h.Compressors {
			h.Compressors[i] = be.Uint32(buf[0x10+4*i:])
		}
		h.LogicalBytes = be.Uint64(buf[0x20:])
		h.MapOffset = be.Uint64(buf[0x28:])
		h.MetaOffset = be.Uint64(buf[0x30:])
		h.HunkBytes = be.Uint32(buf[0x38:])
		h.UnitBytes = be.Uint32(buf[0x3C:])
	case 3, 4:
		h.Compression = be.Uint32(buf[0x14:])
		h.TotalHunks = be.Uint32(buf[0x18:])
		h.LogicalBytes = be.Uint64(buf[0x1C:])
		h.MetaOffset = be.Uint64(buf[0x24:])
		if h.Version == 4 {
			h.HunkBytes = be.Uint32(buf[0x2C:])
		} else {
			h.HunkBytes = be.Uint32(buf[0x4C:])
		}
		// The legacy map follows the header directly.
		h.MapOffset = uint64(h.Length)
	}

	if h.UnitBytes == 0 {
		h.UnitBytes = defaultUnitBytes
	}
	if h.HunkBytes == 0 || h.HunkBytes < h.UnitBytes {
		return nil, fmt.Errorf("%w: hunk size %d, unit size %d", ErrInvalidHeader, h.HunkBytes, h.UnitBytes)
	}
	return h, nil
}
