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
	"os"
	"strings"

	"github.com/spf13/afero"

	"github.com/ZaparooProject/go-pakfs/internal/vpath"
)

// Path represents a parsed package path with optional internal path.
type Path struct {
	ArchivePath  string // Path to the package file
	InternalPath string // Path inside the package (empty for the package itself)
}

// ParsePath parses a path that may reference a file inside a package,
// such as "/games/base/pak0.pk3/scripts/shaderlist.txt".
//
// Returns:
//   - (*Path, nil) if the path contains a package reference
//   - (nil, nil) if the path is not a package reference
//   - (nil, error) if there was an error checking the path
//
//nolint:nilnil // nil,nil is documented API behavior
func (r *Registry) ParsePath(fsys afero.Fs, path string) (*Path, error) {
	normalized := vpath.Normalize(path)

	// Look for a registered extension followed by a separator,
	// shortest candidate first.
	for i := 0; i < len(normalized); i++ {
		if normalized[i] != '/' || i == 0 {
			continue
		}
		candidate := normalized[:i]
		if !r.Supports(vpath.Ext(candidate)) {
			continue
		}

		ok, err := isRegularFile(fsys, candidate)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		return &Path{
			ArchivePath:  path[:i],
			InternalPath: strings.TrimPrefix(normalized[i:], "/"),
		}, nil
	}

	// Check if the path itself is a package
	if r.Supports(vpath.Ext(normalized)) {
		ok, err := isRegularFile(fsys, path)
		if err != nil || !ok {
			return nil, err
		}
		return &Path{ArchivePath: path}, nil
	}

	return nil, nil // Not a package path
}

// IsArchivePath checks if a path references a package.
// This is a quick check that doesn't verify file existence.
func (r *Registry) IsArchivePath(path string) bool {
	normalized := vpath.Normalize(path)
	for i := 1; i < len(normalized); i++ {
		if normalized[i] == '/' && r.Supports(vpath.Ext(normalized[:i])) {
			return true
		}
	}
	return r.Supports(vpath.Ext(normalized))
}

// ParsePath parses a package path using the default registry.
func ParsePath(fsys afero.Fs, path string) (*Path, error) {
	return DefaultRegistry.ParsePath(fsys, path)
}

// IsArchivePath checks a path against the default registry.
func IsArchivePath(path string) bool {
	return DefaultRegistry.IsArchivePath(path)
}

func isRegularFile(fsys afero.Fs, path string) (bool, error) {
	info, err := fsys.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat archive %s: %w", path, err)
	}
	return info.Mode().IsRegular(), nil
}
