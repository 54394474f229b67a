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
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

func init() {
	RegisterCodec(CodecZlib, func() Codec { return zlibCodec{} })
	RegisterCodec(CodecCDZlib, func() Codec {
		return &cdCodec{sectors: inflate, subcode: inflate}
	})
}

// zlibCodec inflates raw deflate streams; CHD stores no zlib wrapper.
type zlibCodec struct{}

func (zlibCodec) Decompress(dst, src []byte) (int, error) {
	return inflate(dst, src)
}

func inflate(dst, src []byte) (int, error) {
	r := flate.NewReader(bytes.NewReader(src))
	defer func() { _ = r.Close() }()

	n, err := io.ReadFull(r, dst)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return n, fmt.Errorf("%w: deflate: %w", ErrDecompressFailed, err)
	}
	return n, nil
}
