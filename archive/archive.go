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

// Package archive provides the storage backends behind the virtual file
// system: loose directories and package containers (pk3/dpk zip, 7z, rar
// and tar.xz). Backends are selected by file extension through a Registry.
package archive

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"iter"
	"strings"
)

// EntryKind selects what Backend.Entries enumerates.
type EntryKind int

const (
	// Files enumerates regular files.
	Files EntryKind = iota
	// Directories enumerates directories, explicit or implied by file paths.
	Directories
)

func (k EntryKind) String() string {
	if k == Directories {
		return "directories"
	}
	return "files"
}

// Backend provides read access to one search root.
//
// Names are logical paths relative to the backend root, using forward
// slashes. Package backends match names case-insensitively.
type Backend interface {
	// Contains reports whether name exists and can be read.
	Contains(name string) bool

	// Open opens a file for reading. It returns a FileNotFoundError
	// when the backend has no such file.
	Open(name string) (*File, error)

	// OpenText opens a file for line-oriented reading.
	OpenText(name string) (*TextFile, error)

	// Entries enumerates the files or directories below dir, which is
	// empty for the backend root. Yielded paths are relative to the
	// backend root; directories carry no trailing slash. depth limits
	// how many levels below dir are visited, depth <= 0 visits all.
	// The sequence is finite and may be iterated more than once.
	Entries(dir string, kind EntryKind, depth int) iter.Seq[string]

	// Close releases the underlying container handle.
	Close() error
}

// File is an open file inside a backend.
type File struct {
	io.ReadCloser
	Name string // Logical path inside the backend
	Size int64  // Uncompressed size
}

// TextFile is a File read line by line.
type TextFile struct {
	*File
	reader *bufio.Reader
}

// NewTextFile wraps f for line-oriented reading.
func NewTextFile(f *File) *TextFile {
	return &TextFile{File: f, reader: bufio.NewReader(f.ReadCloser)}
}

// Read reads from the buffered stream.
func (tf *TextFile) Read(p []byte) (int, error) {
	return tf.reader.Read(p) //nolint:wrapcheck // Read error passthrough is intentional
}

// ReadLine returns the next line without its line ending. It returns
// io.EOF once the stream is exhausted and no partial line remains.
func (tf *TextFile) ReadLine() (string, error) {
	line, err := tf.reader.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err //nolint:wrapcheck // io.EOF must reach the caller unwrapped
	}
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r"), nil
}

// Lines iterates over the remaining lines of the file.
func (tf *TextFile) Lines() iter.Seq[string] {
	return func(yield func(string) bool) {
		for {
			line, err := tf.ReadLine()
			if err != nil {
				return
			}
			if !yield(line) {
				return
			}
		}
	}
}

// nopCloser wraps a value that doesn't need closing.
type nopCloser struct {
	io.Reader
}

func (nopCloser) Close() error { return nil }

// maxSizeHint bounds the buffer preallocated from a declared entry size.
// Larger entries grow the buffer as data actually arrives.
const maxSizeHint = 1 << 20

// bufferedFile reads r completely and returns a File over the bytes.
// Sequential containers use it so that every Open is independent. size is
// the declared length and may be negative when the container does not
// know it.
func bufferedFile(name string, r io.Reader, size int64) (*File, error) {
	buf := bytes.NewBuffer(make([]byte, 0, SizeHint(size)))
	if _, err := io.Copy(buf, r); err != nil {
		return nil, err //nolint:wrapcheck // Callers add archive context
	}

	return &File{
		ReadCloser: nopCloser{Reader: bytes.NewReader(buf.Bytes())},
		Name:       name,
		Size:       int64(buf.Len()),
	}, nil
}

// SizeHint clamps a declared entry size to a safe preallocation length.
func SizeHint(size int64) int {
	return int(min(max(size, 0), maxSizeHint))
}

// openText is the shared OpenText implementation.
func openText(b Backend, name string) (*TextFile, error) {
	f, err := b.Open(name)
	if err != nil {
		return nil, err
	}
	return NewTextFile(f), nil
}
