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

import "fmt"

// bitStream reads MSB-first bit fields. Reads past the end of data
// yield zero bits.
type bitStream struct {
	data  []byte
	pos   int
	acc   uint64
	avail int
}

func (b *bitStream) read(n int) uint32 {
	for b.avail < n {
		var next byte
		if b.pos < len(b.data) {
			next = b.data[b.pos]
			b.pos++
		}
		b.acc = b.acc<<8 | uint64(next)
		b.avail += 8
	}
	b.avail -= n
	return uint32(b.acc>>b.avail) & (1<<n - 1)
}

// unread returns the last n bits read to the stream.
func (b *bitStream) unread(n int) {
	b.avail += n
}

// The V5 map codes its entry kinds with a 16 symbol Huffman table whose
// codes are at most 8 bits long.
const (
	mapSymbols = 16
	mapMaxBits = 8
)

// huffmanTable decodes canonical codes assigned the way MAME's
// huffman_context_base::assign_canonical_codes does.
type huffmanTable struct {
	lengths [mapSymbols]uint8
	lookup  [1 << mapMaxBits]uint16 // symbol<<4 | code length
}

// readTree imports the run-length coded code lengths that open a V5 map.
// A length of 1 escapes: a second 1 is a literal 1, anything else is a
// length repeated count+3 times.
func (h *huffmanTable) readTree(bs *bitStream) error {
	const fieldBits = 4
	for node := 0; node < mapSymbols; {
		length := uint8(bs.read(fieldBits))
		if length != 1 {
			h.lengths[node] = length
			node++
			continue
		}
		length = uint8(bs.read(fieldBits))
		if length == 1 {
			h.lengths[node] = 1
			node++
			continue
		}
		for repeat := int(bs.read(fieldBits)) + 3; repeat > 0 && node < mapSymbols; repeat-- {
			h.lengths[node] = length
			node++
		}
	}
	return h.build()
}

func (h *huffmanTable) build() error {
	var starts [mapMaxBits*2 + 1]uint32
	for _, length := range h.lengths {
		starts[length]++
	}
	var next uint32
	for length := len(starts) - 1; length > 0; length-- {
		count := starts[length]
		starts[length] = next
		next = (next + count) >> 1
	}

	for sym, length := range h.lengths {
		if length == 0 {
			continue
		}
		if length > mapMaxBits {
			return fmt.Errorf("%w: map code length %d", ErrInvalidHunk, length)
		}
		code := starts[length]
		starts[length]++
		shift := mapMaxBits - int(length)
		first, last := int(code)<<shift, int(code+1)<<shift
		if last > len(h.lookup) {
			return fmt.Errorf("%w: oversubscribed map codes", ErrInvalidHunk)
		}
		for i := first; i < last; i++ {
			h.lookup[i] = uint16(sym<<4) | uint16(length)
		}
	}
	return nil
}

func (h *huffmanTable) decode(bs *bitStream) uint8 {
	entry := h.lookup[bs.read(mapMaxBits)]
	bs.unread(mapMaxBits - int(entry&0x0F))
	return uint8(entry >> 4)
}
