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
	"encoding/binary"
	"fmt"
	"io"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Kinds of hunk map entries. Values 0-3 name a slot of Header.Compressors.
const (
	hunkCodec0 = iota
	hunkCodec1
	hunkCodec2
	hunkCodec3
	hunkNone
	hunkSelf
	hunkParent
	hunkRLESmall
	hunkRLELarge
	hunkSelf0
	hunkSelf1
	hunkParentSelf
	hunkParent0
	hunkParent1

	// hunkMini is a legacy entry whose offset field holds 8 bytes that
	// repeat across the hunk.
	hunkMini = 0xFF
)

// Legacy map entry types, the low nibble of the flags byte.
const (
	legacyCompressed   = 1
	legacyUncompressed = 2
	legacyMini         = 3
	legacySelf         = 4
	legacyParent       = 5
)

// Decompressed hunks kept for sequential sector reads.
const hunkCacheSize = 16

type hunkEntry struct {
	offset uint64 // file offset, or the referenced hunk for self entries
	length uint32
	kind   uint8
}

// hunkMap resolves hunk numbers to decompressed hunk data.
type hunkMap struct {
	reader  io.ReaderAt
	header  *Header
	entries []hunkEntry
	codecs  [4]Codec
	cache   *lru.Cache[uint64, []byte]
}

func newHunkMap(r io.ReaderAt, h *Header) (*hunkMap, error) {
	count := h.NumHunks()
	if count > MaxHunks {
		return nil, fmt.Errorf("%w: %d hunks", ErrInvalidHeader, count)
	}
	cache, err := lru.New[uint64, []byte](hunkCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create hunk cache: %w", err)
	}
	hm := &hunkMap{
		reader:  r,
		header:  h,
		entries: make([]hunkEntry, count),
		cache:   cache,
	}

	if h.Version == 5 {
		for i, tag := range h.Compressors {
			if tag != 0 {
				// A missing codec is reported when a hunk needs it.
				hm.codecs[i], _ = NewCodec(tag)
			}
		}
		err = hm.readCompressedMap()
	} else {
		if h.Compression == legacyCompressionZlib || h.Compression == legacyCompressionZlibP {
			hm.codecs[0], _ = NewCodec(CodecZlib)
		}
		err = hm.readLegacyMap()
	}
	if err != nil {
		return nil, err
	}
	return hm, nil
}

// readCompressedMap decodes a V5 map: a 16 byte header, a Huffman coded
// list of entry kinds and then per-entry lengths and references.
func (hm *hunkMap) readCompressedMap() error {
	head := make([]byte, 16)
	if _, err := hm.reader.ReadAt(head, int64(hm.header.MapOffset)); err != nil {
		return fmt.Errorf("read hunk map header: %w", err)
	}
	mapLen := binary.BigEndian.Uint32(head[0:4])
	if mapLen > MaxCompressedMapLen {
		return fmt.Errorf("%w: hunk map of %d bytes", ErrInvalidHeader, mapLen)
	}
	var offset uint64
	for _, b := range head[4:10] {
		offset = offset<<8 | uint64(b)
	}
	lengthBits, selfBits, parentBits := int(head[12]), int(head[13]), int(head[14])

	data := make([]byte, mapLen)
	if _, err := hm.reader.ReadAt(data, int64(hm.header.MapOffset)+16); err != nil {
		return fmt.Errorf("read hunk map: %w", err)
	}
	bs := &bitStream{data: data}
	var table huffmanTable
	if err := table.readTree(bs); err != nil {
		return err
	}

	var last uint8
	for i, repeat := 0, 0; i < len(hm.entries); i++ {
		if repeat > 0 {
			hm.entries[i].kind = last
			repeat--
			continue
		}
		switch kind := table.decode(bs); kind {
		case hunkRLESmall:
			hm.entries[i].kind = last
			repeat = 2 + int(table.decode(bs))
		case hunkRLELarge:
			hm.entries[i].kind = last
			repeat = 2 + 16 + int(table.decode(bs))<<4
			repeat += int(table.decode(bs))
		default:
			hm.entries[i].kind = kind
			last = kind
		}
	}

	unitsPerHunk := uint64(hm.header.UnitsPerHunk())
	var lastSelf, lastParent uint64
	for i := range hm.entries {
		e := &hm.entries[i]
		switch e.kind {
		case hunkCodec0, hunkCodec1, hunkCodec2, hunkCodec3:
			e.length = bs.read(lengthBits)
			e.offset = offset
			offset += uint64(e.length)
			bs.read(16) // crc16
		case hunkNone:
			e.length = hm.header.HunkBytes
			e.offset = offset
			offset += uint64(e.length)
			bs.read(16) // crc16
		case hunkSelf:
			lastSelf = uint64(bs.read(selfBits))
			e.offset = lastSelf
		case hunkSelf1:
			lastSelf++
			fallthrough
		case hunkSelf0:
			e.kind, e.offset = hunkSelf, lastSelf
		case hunkParent:
			lastParent = uint64(bs.read(parentBits))
			e.offset = lastParent
		case hunkParentSelf:
			lastParent = uint64(i) * unitsPerHunk
			e.kind, e.offset = hunkParent, lastParent
		case hunkParent1:
			lastParent += unitsPerHunk
			fallthrough
		case hunkParent0:
			e.kind, e.offset = hunkParent, lastParent
		}
	}
	return nil
}

// readLegacyMap reads the fixed 16 byte entries of V3 and V4 images:
// offset, crc32, a 24-bit length and a flags byte.
func (hm *hunkMap) readLegacyMap() error {
	const entrySize = 16
	raw := make([]byte, len(hm.entries)*entrySize)
	if _, err := hm.reader.ReadAt(raw, int64(hm.header.MapOffset)); err != nil {
		return fmt.Errorf("read hunk map: %w", err)
	}
	for i := range hm.entries {
		entry := raw[i*entrySize : (i+1)*entrySize]
		e := &hm.entries[i]
		e.offset = binary.BigEndian.Uint64(entry[0:8])
		e.length = uint32(binary.BigEndian.Uint16(entry[12:14])) | uint32(entry[14])<<16
		switch entry[15] & 0x0F {
		case legacyCompressed:
			e.kind = hunkCodec0
		case legacyUncompressed:
			e.kind = hunkNone
		case legacyMini:
			e.kind = hunkMini
		case legacySelf:
			e.kind = hunkSelf
		case legacyParent:
			e.kind = hunkParent
		default:
			return fmt.Errorf("%w: hunk %d has map type %d", ErrInvalidHunk, i, entry[15]&0x0F)
		}
	}
	return nil
}

// read returns the decompressed contents of hunk index. The returned
// slice is shared with the cache and must not be modified.
func (hm *hunkMap) read(index uint64) ([]byte, error) {
	if index >= uint64(len(hm.entries)) {
		return nil, fmt.Errorf("%w: hunk %d of %d", ErrInvalidHunk, index, len(hm.entries))
	}
	if data, ok := hm.cache.Get(index); ok {
		return data, nil
	}

	e := hm.entries[index]
	hunkBytes := int(hm.header.HunkBytes)
	var data []byte
	switch e.kind {
	case hunkNone:
		data = make([]byte, hunkBytes)
		if _, err := hm.reader.ReadAt(data, int64(e.offset)); err != nil {
			return nil, fmt.Errorf("read hunk %d: %w", index, err)
		}
	case hunkCodec0, hunkCodec1, hunkCodec2, hunkCodec3:
		codec := hm.codecs[e.kind]
		if codec == nil {
			return nil, fmt.Errorf("%w: hunk %d uses compressor slot %d", ErrUnsupportedCodec, index, e.kind)
		}
		if e.length > hm.header.HunkBytes*2 {
			return nil, fmt.Errorf("%w: hunk %d compressed to %d bytes", ErrInvalidHunk, index, e.length)
		}
		src := make([]byte, e.length)
		if _, err := hm.reader.ReadAt(src, int64(e.offset)); err != nil {
			return nil, fmt.Errorf("read hunk %d: %w", index, err)
		}
		data = make([]byte, hunkBytes)
		frames := hunkBytes / int(hm.header.UnitBytes)
		var err error
		if cd, ok := codec.(CDCodec); ok {
			_, err = cd.DecompressCD(data, src, hunkBytes, frames)
		} else {
			_, err = codec.Decompress(data, src)
		}
		if err != nil {
			return nil, fmt.Errorf("hunk %d: %w", index, err)
		}
	case hunkMini:
		data = make([]byte, hunkBytes)
		var pattern [8]byte
		binary.BigEndian.PutUint64(pattern[:], e.offset)
		for i := 0; i < hunkBytes; i += len(pattern) {
			copy(data[i:], pattern[:])
		}
	case hunkSelf:
		// Self references always point backwards.
		if e.offset >= index {
			return nil, fmt.Errorf("%w: hunk %d refers to hunk %d", ErrInvalidHunk, index, e.offset)
		}
		return hm.read(e.offset)
	case hunkParent:
		return nil, fmt.Errorf("%w: hunk %d is stored in a parent image", ErrUnsupportedCodec, index)
	default:
		return nil, fmt.Errorf("%w: hunk %d has kind %d", ErrInvalidHunk, index, e.kind)
	}

	hm.cache.Add(index, data)
	return data, nil
}
