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
	"github.com/ZaparooProject/go-pakfs/dpk"
)

// Load runs one DPK load cycle: it registers the base package directory,
// follows its DEPS declarations, then loads the package holding the
// current map. The catalog built by InitDirectory is consumed by the
// cycle. Load does nothing outside DPK mode.
//
// Missing dependencies and malformed DEPS lines are logged and skipped. A
// missing base package is an error only when DPK.RequireBase is set.
func (f *FileSystem) Load() error {
	if !f.config.DPK.Enabled {
		return nil
	}
	defer f.catalog.Clear()

	loaded := dpk.NewLoadedSet()

	basePath := f.config.BasePackagePath()
	base := f.addDirectory(basePath)
	switch {
	case base != nil:
		f.loadDependencies(f.readDeps(base, basePath), loaded)
	case f.config.DPK.RequireBase:
		return fmt.Errorf("%w: %s", ErrMissingBasePackage, basePath)
	default:
		f.logger.Warn("base package not found", "path", basePath)
	}

	if f.config.MapPath != "" {
		if pakname := dpk.MapPackageName(f.config.MapPath); pakname != "" {
			name, version, _ := dpk.SplitName(pakname)
			f.logger.Debug("loading map package", "package", pakname)
			f.loadDependencies([]dpk.Dependency{{Name: name, Version: version}}, loaded)
		}
	}
	return nil
}

// loadDependencies registers deps and everything they depend on, depth
// first in declaration order. Packages already in loaded are skipped,
// which also breaks dependency cycles.
func (f *FileSystem) loadDependencies(deps []dpk.Dependency, loaded *dpk.LoadedSet) {
	stack := slices.Clone(deps)
	slices.Reverse(stack)

	for len(stack) > 0 {
		dep := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entry, ok := f.catalog.Resolve(dep)
		if !ok {
			f.logger.Debug("dependency not found", "dep", dep.String())
			continue
		}
		if !loaded.Add(entry.Name) {
			f.logger.Debug("package already loaded", "package", entry.Name)
			continue
		}

		var backend archive.Backend
		if entry.IsPackageFile {
			backend = f.addPackage(entry.Path)
		} else {
			backend = f.addDirectory(entry.Path)
		}
		if backend == nil {
			continue
		}
		f.logger.Debug("loaded package", "package", entry.Name)

		children := f.readDeps(backend, entry.Name)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
}

// readDeps parses the DEPS file of a package. A package without one has
// no dependencies.
func (f *FileSystem) readDeps(backend archive.Backend, pakname string) []dpk.Dependency {
	if !backend.Contains(dpk.DepsFile) {
		return nil
	}
	text, err := backend.OpenText(dpk.DepsFile)
	if err != nil {
		f.logger.Warn("failed to open DEPS", "package", pakname, "err", err)
		return nil
	}
	defer func() { _ = text.Close() }()

	var deps []dpk.Dependency
	for line := range text.Lines() {
		dep, err := dpk.ParseDepsLine(line)
		if errors.Is(err, dpk.ErrEmptyLine) {
			continue
		}
		if err != nil {
			f.logger.Warn("skipping DEPS line", "package", pakname, "err", err)
			continue
		}
		deps = append(deps, dep)
	}
	return deps
}
