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

package dpk

import (
	"slices"
	"strings"

	"github.com/ZaparooProject/go-pakfs/internal/vpath"
)

// Entry locates one package found while scanning.
type Entry struct {
	Name          string // "name_version" without extension
	Path          string // Full path of the .dpk file or .dpkdir directory
	IsPackageFile bool   // true for a .dpk archive, false for a .dpkdir
}

// Catalog maps package names to their location. Keys are compared
// case-insensitively and carry no extension. The first entry added for
// a name wins.
type Catalog struct {
	entries map[string]Entry
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[string]Entry)}
}

// Add records a package. It reports false when the name was already known.
func (c *Catalog) Add(name, path string, isPackageFile bool) bool {
	key := vpath.Key(name)
	if _, ok := c.entries[key]; ok {
		return false
	}
	c.entries[key] = Entry{Name: name, Path: path, IsPackageFile: isPackageFile}
	return true
}

// Lookup returns the entry for an exact "name_version".
func (c *Catalog) Lookup(name string) (Entry, bool) {
	entry, ok := c.entries[vpath.Key(name)]
	return entry, ok
}

// Latest returns the highest version of name present in the catalog.
// Versions are ordered by CompareVersions; among equal versions the
// alphabetically first key wins.
func (c *Catalog) Latest(name string) (Entry, bool) {
	prefix := vpath.Key(name) + "_"

	var (
		best    Entry
		bestVer string
		found   bool
	)
	for _, key := range c.keys() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		entry := c.entries[key]
		version := key[len(prefix):]
		if !found || CompareVersions(version, bestVer) > 0 {
			best, bestVer, found = entry, version, true
		}
	}
	return best, found
}

// Resolve finds the package a dependency refers to. Unversioned
// dependencies resolve to the latest version, falling back to a package
// published without a version suffix.
func (c *Catalog) Resolve(dep Dependency) (Entry, bool) {
	if dep.Version != "" {
		return c.Lookup(dep.PackageName())
	}
	if entry, ok := c.Latest(dep.Name); ok {
		return entry, true
	}
	return c.Lookup(dep.Name)
}

// ResolveName resolves a package reference that is either "name_version"
// or a bare name.
func (c *Catalog) ResolveName(pakname string) (Entry, bool) {
	if _, _, versioned := SplitName(pakname); versioned {
		if entry, ok := c.Lookup(pakname); ok {
			return entry, true
		}
	}
	return c.Resolve(Dependency{Name: pakname})
}

// Len returns the number of cataloged packages.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Names returns the cataloged package names in key order.
func (c *Catalog) Names() []string {
	keys := c.keys()
	names := make([]string, len(keys))
	for i, key := range keys {
		names[i] = c.entries[key].Name
	}
	return names
}

// Clear forgets every package.
func (c *Catalog) Clear() {
	clear(c.entries)
}

func (c *Catalog) keys() []string {
	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// LoadedSet records the packages resolved during one load cycle. It
// guards against loading a package twice and against dependency cycles.
type LoadedSet struct {
	names map[string]struct{}
}

// NewLoadedSet creates an empty set.
func NewLoadedSet() *LoadedSet {
	return &LoadedSet{names: make(map[string]struct{})}
}

// Add marks name as loaded. It reports false when it already was.
func (s *LoadedSet) Add(name string) bool {
	key := vpath.Key(name)
	if _, ok := s.names[key]; ok {
		return false
	}
	s.names[key] = struct{}{}
	return true
}

// Has reports whether name was loaded.
func (s *LoadedSet) Has(name string) bool {
	_, ok := s.names[vpath.Key(name)]
	return ok
}

// Len returns the number of loaded packages.
func (s *LoadedSet) Len() int {
	return len(s.names)
}

// Clear empties the set.
func (s *LoadedSet) Clear() {
	clear(s.names)
}
