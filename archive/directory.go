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
	"io/fs"
	"iter"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/ZaparooProject/go-pakfs/internal/vpath"
)

var errStopWalk = errors.New("stop walk")

// DirectoryBackend serves files from a directory on fsys. Names are
// passed through unchanged, so lookups are as case-sensitive as the
// underlying filesystem.
type DirectoryBackend struct {
	fs   afero.Fs
	root string
}

// OpenDirectory opens root as a loose directory backend.
func OpenDirectory(fsys afero.Fs, root string) (*DirectoryBackend, error) {
	info, err := fsys.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("open directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open directory %s: %w", root, fs.ErrInvalid)
	}

	return &DirectoryBackend{
		fs:   fsys,
		root: filepath.Clean(filepath.FromSlash(vpath.Normalize(root))),
	}, nil
}

// Root returns the cleaned directory path.
func (d *DirectoryBackend) Root() string {
	return d.root
}

func (d *DirectoryBackend) resolve(name string) string {
	name = strings.TrimPrefix(vpath.Normalize(name), "/")
	return filepath.Join(d.root, filepath.FromSlash(name))
}

// Contains reports whether name is a readable regular file.
func (d *DirectoryBackend) Contains(name string) bool {
	full := d.resolve(name)
	info, err := d.fs.Stat(full)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}

	f, err := d.fs.Open(full)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}

// Open opens name for reading.
func (d *DirectoryBackend) Open(name string) (*File, error) {
	full := d.resolve(name)
	info, err := d.fs.Stat(full)
	if err != nil || !info.Mode().IsRegular() {
		return nil, FileNotFoundError{Archive: d.root, InternalPath: name}
	}

	f, err := d.fs.Open(full)
	if err != nil {
		return nil, fmt.Errorf("open file in directory: %w", err)
	}

	return &File{ReadCloser: f, Name: vpath.Normalize(name), Size: info.Size()}, nil
}

// OpenText opens name for line reading.
func (d *DirectoryBackend) OpenText(name string) (*TextFile, error) {
	return openText(d, name)
}

// Entries walks the directory tree below dir.
func (d *DirectoryBackend) Entries(dir string, kind EntryKind, depth int) iter.Seq[string] {
	dir = listingDir(dir)

	return func(yield func(string) bool) {
		start := d.resolve(dir)
		_ = afero.Walk(d.fs, start, func(p string, info fs.FileInfo, err error) error {
			if err != nil || info == nil {
				return nil
			}

			rel, relErr := filepath.Rel(d.root, p)
			if relErr != nil {
				return nil
			}
			rel = filepath.ToSlash(rel)
			if rel+"/" == dir || rel == "." {
				return nil
			}

			if !withinDepth(strings.TrimPrefix(rel, dir), depth) {
				if info.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			wanted := (kind == Directories && info.IsDir()) || (kind == Files && info.Mode().IsRegular())
			if wanted && !yield(rel) {
				return errStopWalk
			}
			return nil
		})
	}
}

// Close is a no-op; directories hold no open handle.
func (*DirectoryBackend) Close() error {
	return nil
}
