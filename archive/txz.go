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
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/spf13/afero"
	"github.com/ulikunitz/xz"
)

func init() {
	Register("txz", func(fsys afero.Fs, path string) (Backend, error) {
		ta, err := OpenTarXZ(fsys, path)
		if err != nil {
			return nil, err
		}
		return ta, nil
	})
}

// TarXZArchive provides access to files in an xz-compressed tarball.
// Like RAR, the stream is sequential: every Open decompresses from the
// start and buffers the requested file.
type TarXZArchive struct {
	file  afero.File
	index *entryIndex[struct{}]
	path  string
}

// OpenTarXZ opens a .txz package and reads its table of contents.
func OpenTarXZ(fsys afero.Fs, path string) (*TarXZArchive, error) {
	file, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tar.xz archive: %w", err)
	}

	ta := &TarXZArchive{
		file:  file,
		index: newEntryIndex[struct{}](),
		path:  path,
	}

	err = ta.scan(func(header *tar.Header, _ io.Reader) (bool, error) {
		switch header.Typeflag {
		case tar.TypeDir:
			ta.index.addDir(header.Name)
		case tar.TypeReg:
			ta.index.add(header.Name, header.Size, struct{}{})
		}
		return false, nil
	})
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	ta.index.finish()

	return ta, nil
}

func (ta *TarXZArchive) scan(visit func(*tar.Header, io.Reader) (bool, error)) error {
	if _, err := ta.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek tar.xz archive: %w", err)
	}

	xzReader, err := xz.NewReader(ta.file)
	if err != nil {
		return fmt.Errorf("create xz reader: %w", err)
	}
	reader := tar.NewReader(xzReader)

	for {
		header, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		done, err := visit(header, reader)
		if err != nil || done {
			return err
		}
	}
}

// Contains reports whether the package holds name.
func (ta *TarXZArchive) Contains(name string) bool {
	_, ok := ta.index.lookup(name)
	return ok
}

// Open opens a file within the tarball.
func (ta *TarXZArchive) Open(name string) (*File, error) {
	entry, ok := ta.index.lookup(name)
	if !ok {
		return nil, FileNotFoundError{Archive: ta.path, InternalPath: name}
	}

	var result *File
	err := ta.scan(func(header *tar.Header, reader io.Reader) (bool, error) {
		if header.Typeflag != tar.TypeReg || !sameEntry(header.Name, entry.name) {
			return false, nil
		}
		f, err := bufferedFile(entry.name, reader, header.Size)
		if err != nil {
			return true, fmt.Errorf("read file in tar.xz: %w", err)
		}
		result = f
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, FileNotFoundError{Archive: ta.path, InternalPath: name}
	}
	return result, nil
}

// OpenText opens a file within the tarball for line reading.
func (ta *TarXZArchive) OpenText(name string) (*TextFile, error) {
	return openText(ta, name)
}

// Entries enumerates files or directories below dir.
func (ta *TarXZArchive) Entries(dir string, kind EntryKind, depth int) iter.Seq[string] {
	return ta.index.entries(dir, kind, depth)
}

// Close closes the tarball.
func (ta *TarXZArchive) Close() error {
	return ta.file.Close() //nolint:wrapcheck // Close error passthrough is intentional
}
