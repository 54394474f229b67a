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

// Package pakfs resolves logical asset paths of an id Tech style game
// across an ordered set of loose directories and package archives.
//
// Roots are searched in registration order and the first root holding a
// file serves it. Directory scanning registers packages in descending
// name order so that pak_002.pk3 shadows pak_001.pk3, and DPK mode loads
// packages on demand by following DEPS declarations from a base package.
package pakfs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/ZaparooProject/go-pakfs/archive"
	"github.com/ZaparooProject/go-pakfs/dpk"
	"github.com/ZaparooProject/go-pakfs/internal/vpath"
)

// AnyExtension makes ListFiles return every file regardless of extension.
const AnyExtension = "*"

// Scope selects which kinds of roots FileCount searches.
type Scope uint8

const (
	// ScopePackages counts matches in package archives.
	ScopePackages Scope = 1 << iota
	// ScopeDirectories counts matches in loose directories.
	ScopeDirectories

	// ScopeAll counts matches in every root. The zero Scope means the same.
	ScopeAll = ScopePackages | ScopeDirectories
)

func (s Scope) includes(root *Root) bool {
	if s == 0 {
		s = ScopeAll
	}
	if root.IsPackage {
		return s&ScopePackages != 0
	}
	return s&ScopeDirectories != 0
}

// FileSystem is the virtual file system. It owns its search roots; several
// independent instances may coexist. A FileSystem is not safe for
// concurrent use while Initialize, Refresh, Shutdown or Clear run.
type FileSystem struct {
	fs        afero.Fs
	formats   *archive.Registry
	logger    *log.Logger
	roots     *Registry
	catalog   *dpk.Catalog
	observers observers
	config    Config
}

// Option configures a FileSystem.
type Option func(*FileSystem)

// WithFs sets the filesystem directories and packages are read from.
func WithFs(fsys afero.Fs) Option {
	return func(f *FileSystem) { f.fs = fsys }
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(f *FileSystem) { f.logger = logger }
}

// WithFormats sets the package format registry.
func WithFormats(formats *archive.Registry) Option {
	return func(f *FileSystem) { f.formats = formats }
}

// WithConfig sets the configuration.
func WithConfig(cfg Config) Option {
	return func(f *FileSystem) { f.config = cfg }
}

// New creates an empty file system. Call Initialize to populate it.
func New(opts ...Option) *FileSystem {
	f := &FileSystem{
		fs:      afero.NewOsFs(),
		formats: archive.DefaultRegistry,
		config:  DefaultConfig(),
		catalog: dpk.NewCatalog(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "vfs"})
	}
	f.roots = NewRegistry(f.config.MaxDirectories)
	return f
}

// Config returns the active configuration.
func (f *FileSystem) Config() Config {
	return f.config
}

// SetMapPath changes the map whose DPK package Initialize and Refresh load.
func (f *FileSystem) SetMapPath(mapPath string) {
	f.config.MapPath = mapPath
}

// Roots returns the search root registry.
func (f *FileSystem) Roots() *Registry {
	return f.roots
}

// fixSeparators converts backslashes, warning when any were present.
func (f *FileSystem) fixSeparators(p string) string {
	if vpath.HasBackslash(p) {
		f.logger.Warn("invalid path separator '\\'", "path", p)
		return vpath.Normalize(p)
	}
	return p
}

func checkPath(op, p string) error {
	if p == "" {
		return PathError{Op: op, Path: p, Reason: "empty path"}
	}
	if vpath.HasBackslash(p) {
		return PathError{Op: op, Path: p, Reason: "path contains invalid separator '\\'"}
	}
	return nil
}

// FileCount returns how many roots within scope hold path.
func (f *FileSystem) FileCount(path string, scope Scope) int {
	path = f.fixSeparators(path)

	count := 0
	for _, root := range f.roots.roots {
		if scope.includes(root) && root.Backend.Contains(path) {
			count++
		}
	}
	return count
}

// OpenFile opens path from the first root holding it. Paths must use
// forward slashes. A missing file returns an error wrapping ErrNotFound.
func (f *FileSystem) OpenFile(path string) (*archive.File, error) {
	if err := checkPath("open", path); err != nil {
		return nil, err
	}

	for _, root := range f.roots.roots {
		if !root.Backend.Contains(path) {
			continue
		}
		file, err := root.Backend.Open(path)
		if err != nil {
			f.logger.Warn("failed to open file", "root", root.Name, "path", path, "err", err)
			continue
		}
		return file, nil
	}
	return nil, fmt.Errorf("open %s: %w", path, ErrNotFound)
}

// OpenTextFile opens path for line reading from the first root holding it.
func (f *FileSystem) OpenTextFile(path string) (*archive.TextFile, error) {
	file, err := f.OpenFile(path)
	if err != nil {
		return nil, err
	}
	return archive.NewTextFile(file), nil
}

// LoadFile reads path in full. The returned buffer is one byte longer than
// the file and ends with a zero byte.
func (f *FileSystem) LoadFile(path string) ([]byte, error) {
	path = f.fixSeparators(path)

	file, err := f.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	return readTerminated(file, file.Size)
}

// LoadFileIndex reads the index-th copy of path in registration order,
// counting from zero. A negative index reads path directly from the
// filesystem instead, where it may be a plain file or a path inside a
// package such as "base/pak0.pk3/scripts/shaderlist.txt".
func (f *FileSystem) LoadFileIndex(path string, index int) ([]byte, error) {
	if index < 0 {
		return f.loadAbsolute(path)
	}

	path = f.fixSeparators(path)
	if err := checkPath("load", path); err != nil {
		return nil, err
	}

	for _, root := range f.roots.roots {
		if !root.Backend.Contains(path) {
			continue
		}
		if index > 0 {
			index--
			continue
		}

		file, err := root.Backend.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s in %s: %w", path, root.Name, err)
		}
		defer func() { _ = file.Close() }()
		return readTerminated(file, file.Size)
	}
	return nil, fmt.Errorf("load %s: %w", path, ErrNotFound)
}

func (f *FileSystem) loadAbsolute(path string) ([]byte, error) {
	parsed, err := f.formats.ParsePath(f.fs, path)
	if err != nil {
		return nil, fmt.Errorf("parse path: %w", err)
	}

	if parsed == nil {
		data, readErr := afero.ReadFile(f.fs, path)
		if readErr != nil {
			if errors.Is(readErr, os.ErrNotExist) {
				return nil, fmt.Errorf("load %s: %w", path, ErrNotFound)
			}
			return nil, fmt.Errorf("read file: %w", readErr)
		}
		return append(data, 0), nil
	}

	backend, err := f.formats.Open(f.fs, parsed.ArchivePath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = backend.Close() }()

	if parsed.InternalPath == "" {
		return nil, PathError{Op: "load", Path: path, Reason: "path names a package, not a file"}
	}
	file, err := backend.Open(parsed.InternalPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", parsed.InternalPath, err)
	}
	defer func() { _ = file.Close() }()
	return readTerminated(file, file.Size)
}

func readTerminated(r io.Reader, size int64) ([]byte, error) {
	// The declared size comes from the container, so the buffer only
	// grows as far as the data really goes.
	buf := bytes.NewBuffer(make([]byte, 0, archive.SizeHint(size)+1))
	n, err := io.Copy(buf, io.LimitReader(r, max(size, 0)))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if n != size {
		return nil, fmt.Errorf("read file: %w", io.ErrUnexpectedEOF)
	}
	buf.WriteByte(0)
	return buf.Bytes(), nil
}

// ListFiles returns the files below dir across every root, relative to
// dir. Files are listed once, in the order of the first root holding
// them. ext filters by extension; AnyExtension lists all and "" lists
// files without an extension. A depth of 1 lists direct children only and
// depth <= 0 is unlimited.
func (f *FileSystem) ListFiles(dir, ext string, depth int) []string {
	ext = strings.TrimPrefix(ext, ".")
	return f.list(dir, archive.Files, depth, func(name string) bool {
		return ext == AnyExtension || vpath.Ext(name) == strings.ToLower(ext)
	})
}

// ListDirectories returns the directories below dir across every root,
// relative to dir and without trailing slash.
func (f *FileSystem) ListDirectories(dir string, depth int) []string {
	return f.list(dir, archive.Directories, depth, nil)
}

func (f *FileSystem) list(dir string, kind archive.EntryKind, depth int, keep func(string) bool) []string {
	dir = strings.TrimPrefix(f.fixSeparators(dir), "/")
	dir, fixed := vpath.EnsureTrailingSlash(dir)
	if fixed {
		f.logger.Warn("search path does not end in '/'", "dir", dir)
	}

	var (
		result []string
		seen   = make(map[string]struct{})
	)
	for _, root := range f.roots.roots {
		for name := range root.Backend.Entries(dir, kind, depth) {
			if !vpath.HasPrefixFold(name, dir) {
				continue
			}
			rel := name[len(dir):]
			if rel == "" || (keep != nil && !keep(rel)) {
				continue
			}

			key := vpath.Key(rel)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			result = append(result, rel)
		}
	}
	return result
}

// FindFile returns the name of the first root holding path, or "".
func (f *FileSystem) FindFile(path string) string {
	if root := f.roots.FindOwning(f.fixSeparators(path)); root != nil {
		return root.Name
	}
	return ""
}

// FindRoot returns the name of the root whose name is the longest prefix
// of the absolute path abs, or "".
func (f *FileSystem) FindRoot(abs string) string {
	if root := f.roots.FindByPrefix(abs); root != nil {
		return root.Name
	}
	return ""
}

// Archive returns the backend of the root registered as name.
func (f *FileSystem) Archive(name string, pakOnly bool) archive.Backend {
	if root := f.roots.Lookup(name, pakOnly); root != nil {
		return root.Backend
	}
	return nil
}

// EachArchive calls fn with the name of every root.
func (f *FileSystem) EachArchive(fn func(name string), pakOnly, reverse bool) {
	f.roots.Each(func(root *Root) bool {
		fn(root.Name)
		return true
	}, pakOnly, reverse)
}

// Attach registers an observer of the realise and unrealise events.
func (f *FileSystem) Attach(observer Observer) {
	f.observers.attach(observer)
}

// Detach removes an observer.
func (f *FileSystem) Detach(observer Observer) {
	f.observers.detach(observer)
}

// Initialize scans the configured roots, loads DPK packages and notifies
// observers that the file system is ready. Roots left from a previous
// cycle are released first. An empty root path fails with ErrInvalidPath
// once the remaining roots are scanned, and observers are not notified.
func (f *FileSystem) Initialize() error {
	if err := f.populate(); err != nil {
		return err
	}
	f.logger.Info("filesystem initialised", "roots", f.roots.Len())
	f.observers.realise()
	return nil
}

// Refresh rebuilds the search roots like Initialize but without notifying
// observers, so state such as the open map is kept. Unlike a bare DPK
// reload it is a full reset: every configured root is released and
// rescanned before dependencies are loaded again, so packages added to or
// removed from disk since Initialize are picked up.
func (f *FileSystem) Refresh() error {
	if err := f.populate(); err != nil {
		return err
	}
	f.logger.Info("filesystem refreshed", "roots", f.roots.Len())
	return nil
}

// Shutdown notifies observers and releases every root.
func (f *FileSystem) Shutdown() error {
	f.observers.unrealise()
	f.logger.Info("filesystem shutdown")
	return f.Clear()
}

// Clear releases every root without notifying observers. It is safe to
// call repeatedly.
func (f *FileSystem) Clear() error {
	f.catalog.Clear()
	if err := f.roots.Clear(); err != nil {
		return fmt.Errorf("clear search roots: %w", err)
	}
	return nil
}

func (f *FileSystem) populate() error {
	if err := f.Clear(); err != nil {
		f.logger.Warn("failed to release roots", "err", err)
	}
	var errs []error
	for _, dir := range f.config.Roots {
		if err := f.InitDirectory(dir); err != nil {
			errs = append(errs, err)
		}
	}
	if err := f.Load(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
