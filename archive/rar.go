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

package archive

import (
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/nwaples/rardecode/v2"
	"github.com/spf13/afero"
)

func init() {
	Register("rar", func(fsys afero.Fs, path string) (Backend, error) {
		ra, err := OpenRAR(fsys, path)
		if err != nil {
			return nil, err
		}
		return ra, nil
	})
}

// RARArchive provides access to files in a RAR package.
type RARArchive struct {
	file  afero.File
	index *entryIndex[struct{}]
	path  string
}

// OpenRAR opens a RAR package and reads its table of contents.
func OpenRAR(fsys afero.Fs, path string) (*RARArchive, error) {
	file, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open RAR archive: %w", err)
	}

	ra := &RARArchive{
		file:  file,
		index: newEntryIndex[struct{}](),
		path:  path,
	}

	err = ra.scan(func(header *rardecode.FileHeader, _ *rardecode.Reader) (bool, error) {
		if header.IsDir {
			ra.index.addDir(header.Name)
		} else {
			ra.index.add(header.Name, header.UnPackedSize, struct{}{})
		}
		return false, nil
	})
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	ra.index.finish()

	return ra, nil
}

// scan walks the archive headers from the start until visit returns true.
func (ra *RARArchive) scan(visit func(*rardecode.FileHeader, *rardecode.Reader) (bool, error)) error {
	if _, err := ra.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek RAR archive: %w", err)
	}

	reader, err := rardecode.NewReader(ra.file)
	if err != nil {
		return fmt.Errorf("create RAR reader: %w", err)
	}

	for {
		header, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read RAR header: %w", err)
		}

		done, err := visit(header, reader)
		if err != nil || done {
			return err
		}
	}
}

// Contains reports whether the package holds name.
func (ra *RARArchive) Contains(name string) bool {
	_, ok := ra.index.lookup(name)
	return ok
}

// Open opens a file within the RAR archive.
// RAR archives require sequential reading, so the file is decompressed
// into memory and the returned File does not share the archive cursor.
func (ra *RARArchive) Open(name string) (*File, error) {
	entry, ok := ra.index.lookup(name)
	if !ok {
		return nil, FileNotFoundError{Archive: ra.path, InternalPath: name}
	}

	var result *File
	err := ra.scan(func(header *rardecode.FileHeader, reader *rardecode.Reader) (bool, error) {
		if header.IsDir || !sameEntry(header.Name, entry.name) {
			return false, nil
		}
		f, err := bufferedFile(entry.name, reader, header.UnPackedSize)
		if err != nil {
			return true, fmt.Errorf("read file in RAR: %w", err)
		}
		result = f
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, FileNotFoundError{Archive: ra.path, InternalPath: name}
	}
	return result, nil
}

// OpenText opens a file within the RAR archive for line reading.
func (ra *RARArchive) OpenText(name string) (*TextFile, error) {
	return openText(ra, name)
}

// Entries enumerates files or directories below dir.
func (ra *RARArchive) Entries(dir string, kind EntryKind, depth int) iter.Seq[string] {
	return ra.index.entries(dir, kind, depth)
}

// Close closes the RAR archive.
func (ra *RARArchive) Close() error {
	return ra.file.Close() //nolint:wrapcheck // Close error passthrough is intentional
}
