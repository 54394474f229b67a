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
	"errors"
	"fmt"
	"io"

	"github.com/ulikunitz/xz/lzma"
)

func init() {
	RegisterCodec(CodecLZMA, func() Codec { return lzmaCodec{} })
	RegisterCodec(CodecCDLZMA, func() Codec {
		return &cdCodec{sectors: lzmaCodec{}.Decompress, subcode: inflate}
	})
}

// lzmaCodec decodes headerless LZMA streams. The encoder settings are
// implied: lc=3 lp=0 pb=2 and a dictionary sized from the output length.
type lzmaCodec struct{}

// lzmaProperties encodes lc=3 lp=0 pb=2.
const lzmaProperties = 0x5D

func (lzmaCodec) Decompress(dst, src []byte) (int, error) {
	if len(src) == 0 {
		return 0, fmt.Errorf("%w: empty lzma stream", ErrDecompressFailed)
	}
	var header [13]byte
	header[0] = lzmaProperties
	binary.LittleEndian.PutUint32(header[1:5], lzmaDictSize(len(dst)))
	binary.LittleEndian.PutUint64(header[5:], uint64(len(dst)))

	r, err := lzma.NewReader(io.MultiReader(bytes.NewReader(header[:]), bytes.NewReader(src)))
	if err != nil {
		return 0, fmt.Errorf("%w: lzma: %w", ErrDecompressFailed, err)
	}
	n, err := io.ReadFull(r, dst)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return n, fmt.Errorf("%w: lzma: %w", ErrDecompressFailed, err)
	}
	return n, nil
}

// lzmaDictSize mirrors LzmaEncProps_Normalize for level 8: the smallest
// 2<<i or 3<<i that holds size.
func lzmaDictSize(size int) uint32 {
	for i := 11; i <= 30; i++ {
		if size <= 2<<i {
			return 2 << i
		}
		if size <= 3<<i {
			return 3 << i
		}
	}
	return 1 << 26
}
