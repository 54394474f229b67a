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

	"github.com/bodgit/sevenzip"
	"github.com/spf13/afero"
)

func init() {
	for _, ext := range []string{"7z", "pk7"} {
		Register(ext, func(fsys afero.Fs, path string) (Backend, error) {
			sza, err := OpenSevenZip(fsys, path)
			if err != nil {
				return nil, err
			}
			return sza, nil
		})
	}
}

// SevenZipArchive provides access to files in a 7z package.
type SevenZipArchive struct {
	file   afero.File
	reader *sevenzip.Reader
	index  *entryIndex[*sevenzip.File]
	path   string
}

// OpenSevenZip opens a 7z package for reading.
func OpenSevenZip(fsys afero.Fs, path string) (*SevenZipArchive, error) {
	file, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open 7z archive: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("stat 7z archive: %w", err)
	}

	reader, err := sevenzip.NewReader(file, stat.Size())
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("read 7z archive: %w", err)
	}

	index := newEntryIndex[*sevenzip.File]()
	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			index.addDir(entry.Name)
			continue
		}
		//nolint:gosec // Safe: file sizes don't exceed int64
		index.add(entry.Name, int64(entry.UncompressedSize), entry)
	}
	index.finish()

	return &SevenZipArchive{
		file:   file,
		reader: reader,
		index:  index,
		path:   path,
	}, nil
}

// Contains reports whether the package holds name.
func (sza *SevenZipArchive) Contains(name string) bool {
	_, ok := sza.index.lookup(name)
	return ok
}

// Open opens a file within the 7z archive.
func (sza *SevenZipArchive) Open(name string) (*File, error) {
	entry, ok := sza.index.lookup(name)
	if !ok {
		return nil, FileNotFoundError{Archive: sza.path, InternalPath: name}
	}

	reader, err := entry.payload.Open()
	if err != nil {
		return nil, fmt.Errorf("open file in 7z: %w", err)
	}

	return &File{ReadCloser: reader, Name: entry.name, Size: entry.size}, nil
}

// OpenText opens a file within the 7z archive for line reading.
func (sza *SevenZipArchive) OpenText(name string) (*TextFile, error) {
	return openText(sza, name)
}

// Entries enumerates files or directories below dir.
func (sza *SevenZipArchive) Entries(dir string, kind EntryKind, depth int) iter.Seq[string] {
	return sza.index.entries(dir, kind, depth)
}

// Close closes the 7z archive.
func (sza *SevenZipArchive) Close() error {
	return sza.file.Close() //nolint:wrapcheck // Close error passthrough is intentional
}
