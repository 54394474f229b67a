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

// Package dpk implements the bookkeeping of the DPK package scheme:
// dependency declarations, version ordering and the catalog of packages
// found while scanning.
//
// A DPK package is named "name_version" with a .dpk (zip) or .dpkdir
// (loose directory) extension. Each package may carry a DEPS file with one
// dependency per line: a package name optionally followed by a version.
package dpk

import (
	"errors"
	"fmt"
	"strings"
)

// DepsFile is the name of the dependency declaration inside a package.
const DepsFile = "DEPS"

var (
	// ErrEmptyLine indicates a blank dependency line.
	ErrEmptyLine = errors.New("empty dependency line")

	// ErrMalformedLine indicates a dependency line with trailing tokens.
	ErrMalformedLine = errors.New("malformed dependency line")
)

// Dependency is one parsed DEPS line.
type Dependency struct {
	Name    string
	Version string // Empty means the latest available version
}

// PackageName returns the catalog name the dependency refers to when a
// version is pinned, or the bare name otherwise.
func (d Dependency) PackageName() string {
	if d.Version == "" {
		return d.Name
	}
	return d.Name + "_" + d.Version
}

func (d Dependency) String() string {
	if d.Version == "" {
		return d.Name
	}
	return d.Name + " " + d.Version
}

// ParseDepsLine parses "name [version]". Surrounding whitespace is ignored.
func ParseDepsLine(line string) (Dependency, error) {
	fields := strings.Fields(line)
	switch len(fields) {
	case 0:
		return Dependency{}, ErrEmptyLine
	case 1:
		return Dependency{Name: fields[0]}, nil
	case 2:
		return Dependency{Name: fields[0], Version: fields[1]}, nil
	default:
		return Dependency{}, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
}

// SplitName splits "name_version" at the last underscore. ok is false
// when the name carries no version.
func SplitName(pakname string) (name, version string, ok bool) {
	i := strings.LastIndexByte(pakname, '_')
	if i < 0 {
		return pakname, "", false
	}
	return pakname[:i], pakname[i+1:], true
}

// MapPackageName derives the package holding a map from its resource
// path, e.g. "/base/map-arena_1.0.dpkdir/maps/arena.map" yields
// "map-arena_1.0". It returns "" when the map is not inside a .dpkdir.
func MapPackageName(mapPath string) string {
	mapPath = strings.ReplaceAll(mapPath, "\\", "/")

	const marker = ".dpkdir/maps/"
	slash := strings.LastIndexByte(mapPath, '/')
	if slash < 0 {
		return ""
	}
	dir := mapPath[:slash+1]
	if !strings.HasSuffix(dir, marker) {
		return ""
	}

	pakdir := strings.TrimSuffix(dir, marker)
	if i := strings.LastIndexByte(pakdir, '/'); i >= 0 {
		pakdir = pakdir[i+1:]
	}
	return pakdir
}
