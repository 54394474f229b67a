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
	"fmt"
	"sync"
)

// Codec tags as stored in a V5 header, the big-endian value of their
// four character names.
const (
	CodecZlib   uint32 = 0x7a6c6962 // "zlib"
	CodecLZMA   uint32 = 0x6c7a6d61 // "lzma"
	CodecFLAC   uint32 = 0x666c6163 // "flac"
	CodecZstd   uint32 = 0x7a737464 // "zstd"
	CodecCDZlib uint32 = 0x63647a6c // "cdzl"
	CodecCDLZMA uint32 = 0x63646c7a // "cdlz"
	CodecCDFLAC uint32 = 0x6364666c // "cdfl"
	CodecCDZstd uint32 = 0x63647a73 // "cdzs"
)

// Codec decompresses one hunk. dst is sized to the hunk.
type Codec interface {
	Decompress(dst, src []byte) (int, error)
}

// CDCodec decompresses hunks of CD frames, whose sector data and
// subcode are compressed as separate streams.
type CDCodec interface {
	Codec
	DecompressCD(dst, src []byte, hunkBytes, frames int) (int, error)
}

var (
	codecsMu sync.RWMutex
	codecs   = map[uint32]func() Codec{}
)

// RegisterCodec makes a codec available for a tag.
func RegisterCodec(tag uint32, factory func() Codec) {
	codecsMu.Lock()
	defer codecsMu.Unlock()
	codecs[tag] = factory
}

// NewCodec returns a codec for tag.
func NewCodec(tag uint32) (Codec, error) {
	codecsMu.RLock()
	factory, ok := codecs[tag]
	codecsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCodec, tagName(tag))
	}
	return factory(), nil
}

func tagName(tag uint32) string {
	return string([]byte{byte(tag >> 24), byte(tag >> 16), byte(tag >> 8), byte(tag)})
}

// CD frame layout.
const (
	cdSectorBytes  = 2352
	cdSubcodeBytes = 96
	cdFrameBytes   = cdSectorBytes + cdSubcodeBytes
)

var cdSyncHeader = [12]byte{0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x00}

// cdCodec decodes the cdzl, cdlz and cdzs layouts. A hunk starts with a
// bitmap of frames whose sync header was stripped, then the length of
// the sector stream (3 bytes for hunks of 64KB or more, otherwise 2),
// the sector stream and finally the subcode stream.
type cdCodec struct {
	sectors func(dst, src []byte) (int, error)
	subcode func(dst, src []byte) (int, error)
}

func (c *cdCodec) Decompress(dst, src []byte) (int, error) {
	return c.DecompressCD(dst, src, len(dst), len(dst)/cdFrameBytes)
}

func (c *cdCodec) DecompressCD(dst, src []byte, hunkBytes, frames int) (int, error) {
	frames = min(frames, len(dst)/cdFrameBytes)
	eccBytes := (frames + 7) / 8
	lengthBytes := 2
	if hunkBytes >= 1<<16 {
		lengthBytes = 3
	}
	head := eccBytes + lengthBytes
	if len(src) < head {
		return 0, fmt.Errorf("%w: CD hunk of %d bytes", ErrDecompressFailed, len(src))
	}
	baseLen := 0
	for _, b := range src[eccBytes:head] {
		baseLen = baseLen<<8 | int(b)
	}
	if head+baseLen > len(src) {
		return 0, fmt.Errorf("%w: sector stream of %d bytes", ErrDecompressFailed, baseLen)
	}

	sectors := make([]byte, frames*cdSectorBytes)
	if _, err := c.sectors(sectors, src[head:head+baseLen]); err != nil {
		return 0, fmt.Errorf("sector data: %w", err)
	}
	subcode := make([]byte, frames*cdSubcodeBytes)
	if rest := src[head+baseLen:]; len(rest) > 0 {
		if _, err := c.subcode(subcode, rest); err != nil {
			// Subcode carries no file data.
			clear(subcode)
		}
	}
	return interleaveFrames(dst, sectors, subcode, src[:eccBytes], frames), nil
}

// interleaveFrames writes frames of sector data each followed by its
// subcode, restoring the sync header of frames flagged in ecc.
func interleaveFrames(dst, sectors, subcode, ecc []byte, frames int) int {
	frames = min(frames, len(dst)/cdFrameBytes)
	off := 0
	for i := range frames {
		frame := dst[off : off+cdFrameBytes]
		copy(frame[:cdSectorBytes], sectors[min(i*cdSectorBytes, len(sectors)):])
		if i/8 < len(ecc) && ecc[i/8]&(1<<(i%8)) != 0 {
			copy(frame, cdSyncHeader[:])
		}
		copy(frame[cdSectorBytes:], subcode[min(i*cdSubcodeBytes, len(subcode)):])
		off += cdFrameBytes
	}
	return off
}
