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

import "errors"

// Allocation limits applied to values read from an image.
const (
	// MaxCompressedMapLen bounds the compressed V5 hunk map (100MB).
	MaxCompressedMapLen = 100 * 1024 * 1024

	// MaxHunks bounds the hunk count (10M hunks is ~200GB of CD frames).
	MaxHunks = 10_000_000

	// MaxTracks bounds the number of track records kept per image.
	MaxTracks = 200

	// MaxMetadataEntries bounds the length of the metadata chain.
	MaxMetadataEntries = 1000
)

// Errors returned while reading CHD images.
var (
	// ErrInvalidMagic indicates a file that does not start with "MComprHD".
	ErrInvalidMagic = errors.New("invalid CHD magic")

	// ErrInvalidHeader indicates a header with inconsistent sizes.
	ErrInvalidHeader = errors.New("invalid CHD header")

	// ErrUnsupportedVersion indicates a header version other than 3, 4 or 5.
	ErrUnsupportedVersion = errors.New("unsupported CHD version")

	// ErrUnsupportedCodec indicates a hunk compressed with an unknown codec
	// or stored in a parent image.
	ErrUnsupportedCodec = errors.New("unsupported CHD codec")

	// ErrInvalidHunk indicates a map entry that cannot be resolved.
	ErrInvalidHunk = errors.New("invalid CHD hunk")

	// ErrDecompressFailed indicates a codec rejected its input.
	ErrDecompressFailed = errors.New("CHD decompression failed")

	// ErrInvalidMetadata indicates a broken metadata chain.
	ErrInvalidMetadata = errors.New("invalid CHD metadata")
)
