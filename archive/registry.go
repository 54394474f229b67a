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
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/ZaparooProject/go-pakfs/internal/vpath"
)

// Opener opens the container at path on fsys.
type Opener func(fsys afero.Fs, path string) (Backend, error)

// Registry maps lowercase file extensions to openers.
type Registry struct {
	openers map[string]Opener
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{openers: make(map[string]Opener)}
}

// DefaultRegistry holds the built-in package formats.
var DefaultRegistry = NewRegistry()

// Register registers an opener for ext. The extension is matched
// case-insensitively, with or without a leading dot.
func (r *Registry) Register(ext string, opener Opener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.openers[normalizeExt(ext)] = opener
}

// Lookup returns the opener registered for ext.
func (r *Registry) Lookup(ext string) (Opener, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	opener, ok := r.openers[normalizeExt(ext)]
	return opener, ok
}

// Supports reports whether an opener is registered for ext.
func (r *Registry) Supports(ext string) bool {
	_, ok := r.Lookup(ext)
	return ok
}

// Extensions returns the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.openers))
	for ext := range r.openers {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// Open opens the package at path with the opener registered for its
// extension. It returns a FormatError when the extension is unknown.
func (r *Registry) Open(fsys afero.Fs, path string) (Backend, error) {
	ext := vpath.Ext(path)
	opener, ok := r.Lookup(ext)
	if !ok {
		return nil, FormatError{Format: "." + ext}
	}

	backend, err := opener(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrOpenFailure, path, err)
	}
	return backend, nil
}

// Register registers an opener in the default registry.
func Register(ext string, opener Opener) {
	DefaultRegistry.Register(ext, opener)
}

// Open opens a package using the default registry.
func Open(fsys afero.Fs, path string) (Backend, error) {
	return DefaultRegistry.Open(fsys, path)
}

// IsArchiveExtension checks if an extension is a supported package format.
func IsArchiveExtension(ext string) bool {
	return DefaultRegistry.Supports(ext)
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
