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
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
)

func init() {
	RegisterCodec(CodecFLAC, func() Codec { return flacCodec{} })
	RegisterCodec(CodecCDFLAC, func() Codec { return cdFLACCodec{} })
}

// flacCodec decodes a FLAC stream into big-endian 16-bit samples.
type flacCodec struct{}

func (flacCodec) Decompress(dst, src []byte) (int, error) {
	return decodeFLAC(dst, bytes.NewReader(src))
}

// cdFLACCodec decodes CD audio hunks: a headerless FLAC stream of the
// sector data followed by deflated subcode.
type cdFLACCodec struct{}

func (c cdFLACCodec) Decompress(dst, src []byte) (int, error) {
	return c.DecompressCD(dst, src, len(dst), len(dst)/cdFrameBytes)
}

func (cdFLACCodec) DecompressCD(dst, src []byte, _, frames int) (int, error) {
	if len(src) == 0 {
		return 0, fmt.Errorf("%w: empty cdfl hunk", ErrDecompressFailed)
	}
	frames = min(frames, len(dst)/cdFrameBytes)
	sectors := make([]byte, frames*cdSectorBytes)

	in := &trackingReader{
		r:    io.MultiReader(bytes.NewReader(cdFLACHeader(len(sectors))), bytes.NewReader(src)),
		skip: cdFLACHeaderLen,
	}
	// flac.New reuses a large enough *bufio.Reader, so its buffered
	// bytes tell how far the decoder actually got.
	buffered := bufio.NewReader(in)
	consumed := len(src)
	if _, err := decodeFLAC(sectors, buffered); err != nil {
		// Audio frames never hold file data; an undecodable hunk reads
		// as silence.
		clear(sectors)
	} else {
		consumed = min(max(in.n-buffered.Buffered(), 0), len(src))
	}

	subcode := make([]byte, frames*cdSubcodeBytes)
	if rest := src[consumed:]; len(rest) > 0 {
		if _, err := inflate(subcode, rest); err != nil {
			clear(subcode)
		}
	}
	return interleaveFrames(dst, sectors, subcode, nil, frames), nil
}

// decodeFLAC writes the first two channels of each frame as interleaved
// big-endian samples until dst is full or the stream ends.
func decodeFLAC(dst []byte, r io.Reader) (int, error) {
	stream, err := flac.New(r)
	if err != nil {
		return 0, fmt.Errorf("%w: flac: %w", ErrDecompressFailed, err)
	}
	defer func() { _ = stream.Close() }()

	off := 0
	for off < len(dst) {
		f, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			return off, nil
		}
		if err != nil {
			return off, fmt.Errorf("%w: flac frame: %w", ErrDecompressFailed, err)
		}
		if len(f.Subframes) == 0 {
			continue
		}
		channels := f.Subframes[:min(len(f.Subframes), 2)]
		for i := range channels[0].NSamples {
			for _, ch := range channels {
				if off+2 > len(dst) {
					break
				}
				sample := ch.Samples[i]
				dst[off], dst[off+1] = byte(sample>>8), byte(sample)
				off += 2
			}
		}
	}
	return off, nil
}

// trackingReader counts the bytes read past the first skip bytes.
type trackingReader struct {
	r    io.Reader
	skip int
	n    int
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	counted := max(n-t.skip, 0)
	t.skip = max(t.skip-n, 0)
	t.n += counted
	return n, err
}

const cdFLACHeaderLen = 42

// cdFLACHeader builds the STREAMINFO block MAME's flac_decoder::reset
// synthesises for 44.1kHz stereo 16-bit audio.
func cdFLACHeader(sectorBytes int) []byte {
	block := sectorBytes / 4
	for block > cdSectorBytes {
		block /= 2
	}
	h := make([]byte, cdFLACHeaderLen)
	copy(h, "fLaC")
	h[4], h[7] = 0x80, 0x22 // last block, STREAMINFO, 34 bytes
	h[8], h[9] = byte(block>>8), byte(block)
	h[10], h[11] = byte(block>>8), byte(block)
	const info = 44100<<4 | (2-1)<<1 // rate, channels-1, high bit of bps-1
	h[18], h[19], h[20] = byte(info>>16), byte(info>>8), byte(info)
	h[21] = 0xF0 // low bits of bps-1
	return h
}
