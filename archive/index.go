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
	"iter"
	"slices"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ZaparooProject/go-pakfs/internal/vpath"
)

// listingCacheSize bounds the memoised listings kept per package.
const listingCacheSize = 64

type indexedFile[T any] struct {
	payload T
	name    string
	size    int64
}

type listingKey struct {
	dir   string
	kind  EntryKind
	depth int
}

// entryIndex is the case-insensitive table of contents of a package.
// Package contents never change while the package is open, so listings
// are cached.
type entryIndex[T any] struct {
	files    map[string]indexedFile[T]
	dirs     map[string]string
	names    []string
	dirNames []string
	listings *lru.Cache[listingKey, []string]
}

func newEntryIndex[T any]() *entryIndex[T] {
	// lru.New only fails for a non-positive size.
	listings, _ := lru.New[listingKey, []string](listingCacheSize)
	return &entryIndex[T]{
		files:    make(map[string]indexedFile[T]),
		dirs:     make(map[string]string),
		listings: listings,
	}
}

// add records a file. The first entry wins when a package holds the same
// name twice with different case.
func (idx *entryIndex[T]) add(name string, size int64, payload T) {
	name = cleanEntryName(name)
	if name == "" {
		return
	}
	if strings.HasSuffix(name, "/") {
		idx.addDir(strings.TrimSuffix(name, "/"))
		return
	}

	key := vpath.Key(name)
	if _, ok := idx.files[key]; ok {
		return
	}
	idx.files[key] = indexedFile[T]{payload: payload, name: name, size: size}
	idx.names = append(idx.names, name)

	if i := strings.LastIndexByte(name, '/'); i > 0 {
		idx.addDir(name[:i])
	}
}

// addDir records dir and all of its parents.
func (idx *entryIndex[T]) addDir(dir string) {
	dir = strings.TrimSuffix(cleanEntryName(dir), "/")
	for dir != "" {
		key := vpath.Key(dir)
		if _, ok := idx.dirs[key]; ok {
			return
		}
		idx.dirs[key] = dir
		idx.dirNames = append(idx.dirNames, dir)

		i := strings.LastIndexByte(dir, '/')
		if i < 0 {
			return
		}
		dir = dir[:i]
	}
}

// finish sorts the names so listings are deterministic.
func (idx *entryIndex[T]) finish() {
	byKey := func(a, b string) int { return strings.Compare(vpath.Key(a), vpath.Key(b)) }
	slices.SortFunc(idx.names, byKey)
	slices.SortFunc(idx.dirNames, byKey)
}

func (idx *entryIndex[T]) lookup(name string) (indexedFile[T], bool) {
	entry, ok := idx.files[vpath.Key(strings.TrimPrefix(name, "/"))]
	return entry, ok
}

func (idx *entryIndex[T]) len() int {
	return len(idx.names)
}

func (idx *entryIndex[T]) entries(dir string, kind EntryKind, depth int) iter.Seq[string] {
	dir = listingDir(dir)
	key := listingKey{dir: vpath.Key(dir), kind: kind, depth: depth}

	if cached, ok := idx.listings.Get(key); ok {
		return slices.Values(cached)
	}

	candidates := idx.names
	if kind == Directories {
		candidates = idx.dirNames
	}

	var result []string
	for _, name := range candidates {
		if !vpath.HasPrefixFold(name, dir) || len(name) == len(dir) {
			continue
		}
		if withinDepth(name[len(dir):], depth) {
			result = append(result, name)
		}
	}

	idx.listings.Add(key, result)
	return slices.Values(result)
}

// sameEntry reports whether a raw container name refers to an indexed name.
func sameEntry(raw, indexed string) bool {
	return vpath.Key(cleanEntryName(raw)) == vpath.Key(indexed)
}

// cleanEntryName strips the leading "./" or "/" some tools write.
func cleanEntryName(raw string) string {
	name := vpath.Normalize(raw)
	name = strings.TrimPrefix(name, "./")
	return strings.TrimPrefix(name, "/")
}

// listingDir normalizes a listing directory to "" or "some/dir/".
func listingDir(dir string) string {
	dir = strings.TrimPrefix(vpath.Normalize(dir), "/")
	if dir == "" {
		return ""
	}
	dir, _ = vpath.EnsureTrailingSlash(dir)
	return dir
}

func withinDepth(rel string, depth int) bool {
	return depth <= 0 || vpath.Depth(rel) <= depth
}
