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
	"slices"

	"github.com/spf13/afero"

	"github.com/ZaparooProject/go-pakfs/archive"
	"github.com/ZaparooProject/go-pakfs/internal/vpath"
)

// Loose package directory extensions.
const (
	extPk3Dir = "pk3dir"
	extDpkDir = "dpkdir"
	extDpk    = "dpk"
)

// InitDirectory registers dir as a search root and, when package scanning
// is enabled, the packages and package directories directly inside it.
// A directory whose basename matches a forbidden pattern is skipped
// entirely. An empty dir is rejected with ErrInvalidPath; every other
// failure is logged and skipped.
func (f *FileSystem) InitDirectory(dir string) error {
	if dir == "" {
		err := PathError{Op: "init directory", Path: dir, Reason: "empty path"}
		f.logger.Error("invalid search root", "err", err)
		return err
	}

	patterns := f.config.ForbiddenPatterns()
	if vpath.MatchForbidden(dir, patterns) {
		f.logger.Warn("directory matched by forbidden dirs, removed", "dir", dir)
		return nil
	}

	path, _ := vpath.EnsureTrailingSlash(f.fixSeparators(dir))
	if f.addDirectory(path) == nil {
		return nil
	}
	if !f.config.UsePaks {
		return nil
	}

	infos, err := afero.ReadDir(f.fs, path)
	if err != nil {
		f.logger.Warn("vfs directory not found", "dir", path, "err", err)
		return nil
	}
	f.logger.Info("vfs directory", "dir", path)

	overridePrefix, ignorePrefix := f.config.PrefixRules()
	var overrides, paks pakNames

	for _, info := range infos {
		name := info.Name()
		if vpath.MatchForbidden(name, patterns) {
			f.logger.Debug("skipping forbidden entry", "name", name)
			continue
		}

		ext := vpath.Ext(name)
		if info.IsDir() {
			switch {
			case ext == extDpkDir && f.config.DPK.Enabled:
				f.catalog.Add(vpath.TrimExt(name), path+name+"/", false)
			case ext == extPk3Dir, ext == extDpkDir:
				f.addDirectory(path + name + "/")
			}
			continue
		}

		if !f.formats.Supports(ext) {
			continue
		}
		if ext == extDpk && f.config.DPK.Enabled {
			f.catalog.Add(vpath.TrimExt(name), path+name, true)
			continue
		}

		switch {
		case ignorePrefix != "" && vpath.HasPrefixFold(name, ignorePrefix):
			f.logger.Debug("skipping package for game mode", "name", name, "mode", f.config.GameMode)
		case overridePrefix != "" && vpath.HasPrefixFold(name, overridePrefix):
			overrides.add(name)
		default:
			paks.add(name)
		}
	}

	for _, name := range overrides.descending() {
		f.addPackage(path + name)
	}
	for _, name := range paks.descending() {
		f.addPackage(path + name)
	}
	return nil
}

// addDirectory registers a loose directory root. It returns nil when the
// directory cannot be opened or the directory cap is reached.
func (f *FileSystem) addDirectory(path string) archive.Backend {
	if f.roots.Full() {
		f.logger.Warn("directory limit reached, skipping", "dir", path)
		return nil
	}

	backend, err := archive.OpenDirectory(f.fs, path)
	if err != nil {
		f.logger.Warn("vfs directory not found", "dir", path, "err", err)
		return nil
	}
	if err := f.roots.Register(&Root{Name: path, Backend: backend}); err != nil {
		f.logger.Warn("failed to register directory", "dir", path, "err", err)
		return nil
	}
	return backend
}

// addPackage opens and registers a package archive. Broken or unsupported
// packages are logged and skipped.
func (f *FileSystem) addPackage(path string) archive.Backend {
	backend, err := f.formats.Open(f.fs, path)
	if err != nil {
		f.logger.Warn("failed to open package", "path", path, "err", err)
		return nil
	}
	if err := f.roots.Register(&Root{Name: path, Backend: backend, IsPackage: true}); err != nil {
		_ = backend.Close()
		f.logger.Warn("failed to register package", "path", path, "err", err)
		return nil
	}
	f.logger.Info("package file", "ext", vpath.Ext(path), "path", path)
	return backend
}

// pakNames collects package file names, dropping names equal under
// comparePakNames.
type pakNames []string

func (p *pakNames) add(name string) {
	if slices.ContainsFunc(*p, func(s string) bool { return comparePakNames(s, name) == 0 }) {
		return
	}
	*p = append(*p, name)
}

// descending returns the names greatest first so that later packages are
// registered, and therefore searched, before earlier ones.
func (p pakNames) descending() []string {
	sorted := slices.Clone(p)
	slices.SortFunc(sorted, func(a, b string) int { return comparePakNames(b, a) })
	return sorted
}

// comparePakNames compares ASCII case-insensitively after upper-casing,
// so the characters [\]^_` sort after letters.
func comparePakNames(a, b string) int {
	for i := 0; ; i++ {
		c1, c2 := upperAt(a, i), upperAt(b, i)
		switch {
		case c1 < c2:
			return -1
		case c1 > c2:
			return 1
		case c1 == 0:
			return 0
		}
	}
}

func upperAt(s string, i int) byte {
	if i >= len(s) {
		return 0
	}
	c := s[i]
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	return c
}
