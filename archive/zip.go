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

//nolint:dupl // Archive implementations are intentionally similar but use different types
package archive

import (
	"fmt"
	"iter"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
)

// zipExtensions are the zip-based package formats.
var zipExtensions = []string{"pk3", "pk4", "dpk", "zip"}

func init() {
	for _, ext := range zipExtensions {
		Register(ext, func(fsys afero.Fs, path string) (Backend, error) {
			za, err := OpenZIP(fsys, path)
			if err != nil {
				return nil, err
			}
			return za, nil
		})
	}
}

// ZIPArchive provides access to files in a zip-based package.
type ZIPArchive struct {
	file   afero.File
	reader *zip.Reader
	index  *entryIndex[*zip.File]
	path   string
}

// OpenZIP opens a zip package for reading. Entries compressed with
// zstandard are supported in addition to deflate and store.
func OpenZIP(fsys afero.Fs, path string) (*ZIPArchive, error) {
	file, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ZIP archive: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("stat ZIP archive: %w", err)
	}

	reader, err := zip.NewReader(file, stat.Size())
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("read ZIP archive: %w", err)
	}
	reader.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())
	reader.RegisterDecompressor(zstd.ZipMethodPKWare, zstd.ZipDecompressor())

	index := newEntryIndex[*zip.File]()
	for _, entry := range reader.File {
		//nolint:gosec // Safe: file sizes don't exceed int64
		index.add(entry.Name, int64(entry.UncompressedSize64), entry)
	}
	index.finish()

	return &ZIPArchive{
		file:   file,
		reader: reader,
		index:  index,
		path:   path,
	}, nil
}

// Path returns the package file name.
func (za *ZIPArchive) Path() string {
	return za.path
}

// Len returns the number of files in the package.
func (za *ZIPArchive) Len() int {
	return za.index.len()
}

// Contains reports whether the package holds name.
func (za *ZIPArchive) Contains(name string) bool {
	_, ok := za.index.lookup(name)
	return ok
}

// Open opens a file within the ZIP archive.
func (za *ZIPArchive) Open(name string) (*File, error) {
	entry, ok := za.index.lookup(name)
	if !ok {
		return nil, FileNotFoundError{Archive: za.path, InternalPath: name}
	}

	reader, err := entry.payload.Open()
	if err != nil {
		return nil, fmt.Errorf("open file in ZIP: %w", err)
	}

	return &File{ReadCloser: reader, Name: entry.name, Size: entry.size}, nil
}

// OpenText opens a file within the ZIP archive for line reading.
func (za *ZIPArchive) OpenText(name string) (*TextFile, error) {
	return openText(za, name)
}

// Entries enumerates files or directories below dir.
func (za *ZIPArchive) Entries(dir string, kind EntryKind, depth int) iter.Seq[string] {
	return za.index.entries(dir, kind, depth)
}

// Close closes the ZIP archive.
func (za *ZIPArchive) Close() error {
	return za.file.Close() //nolint:wrapcheck // Close error passthrough is intentional
}
