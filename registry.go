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

package pakfs

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ZaparooProject/go-pakfs/archive"
	"github.com/ZaparooProject/go-pakfs/internal/vpath"
)

// Root is one registered source of files: a loose directory or an opened
// package.
type Root struct {
	Backend   archive.Backend
	Name      string // Directory path with trailing slash, or package file path
	IsPackage bool
}

// Registry is the ordered list of search roots. Lookups walk it front to
// back and the first root holding a file wins.
type Registry struct {
	roots          []*Root
	maxDirectories int
	directories    int
}

// NewRegistry creates an empty registry. maxDirectories caps plain
// directory roots; zero means unlimited.
func NewRegistry(maxDirectories int) *Registry {
	return &Registry{maxDirectories: maxDirectories}
}

// Register appends root. A root without a name is rejected with
// ErrInvalidPath. Packages are never capped.
func (r *Registry) Register(root *Root) error {
	if root.Name == "" {
		return PathError{Op: "register", Path: root.Name, Reason: "empty path"}
	}
	if !root.IsPackage {
		if r.maxDirectories > 0 && r.directories >= r.maxDirectories {
			return fmt.Errorf("%w: %d directories", ErrCapacityExceeded, r.maxDirectories)
		}
		r.directories++
	}
	r.roots = append(r.roots, root)
	return nil
}

// Full reports whether another plain directory would exceed the cap.
func (r *Registry) Full() bool {
	return r.maxDirectories > 0 && r.directories >= r.maxDirectories
}

// Clear closes every backend once and empties the registry. Calling it
// on an empty registry does nothing.
func (r *Registry) Clear() error {
	var errs []error
	for _, root := range r.roots {
		if err := root.Backend.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", root.Name, err))
		}
	}
	r.roots = nil
	r.directories = 0
	return errors.Join(errs...)
}

// FindOwning returns the first root containing path.
func (r *Registry) FindOwning(path string) *Root {
	for _, root := range r.roots {
		if root.Backend.Contains(path) {
			return root
		}
	}
	return nil
}

// FindByPrefix returns the root with the longest name that abs starts
// with. Among equally long names the first registered wins.
func (r *Registry) FindByPrefix(abs string) *Root {
	abs = vpath.Normalize(abs)

	var best *Root
	for _, root := range r.roots {
		if best != nil && len(root.Name) <= len(best.Name) {
			continue
		}
		if vpath.HasPrefixFold(abs, vpath.Normalize(root.Name)) {
			best = root
		}
	}
	return best
}

// Lookup returns the root registered under name, optionally restricted to
// packages.
func (r *Registry) Lookup(name string, pakOnly bool) *Root {
	for _, root := range r.roots {
		if pakOnly && !root.IsPackage {
			continue
		}
		if vpath.Equal(root.Name, name) {
			return root
		}
	}
	return nil
}

// Each calls fn for every root, optionally restricted to packages and
// optionally in reverse registration order. Returning false stops the
// walk.
func (r *Registry) Each(fn func(*Root) bool, pakOnly, reverse bool) {
	for i := range r.roots {
		root := r.roots[i]
		if reverse {
			root = r.roots[len(r.roots)-1-i]
		}
		if pakOnly && !root.IsPackage {
			continue
		}
		if !fn(root) {
			return
		}
	}
}

// Roots returns a snapshot of the registered roots in order.
func (r *Registry) Roots() []*Root {
	return slices.Clone(r.roots)
}

// Len returns the number of registered roots.
func (r *Registry) Len() int {
	return len(r.roots)
}
