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

package pakfs_test

import (
	"errors"
	"io"
	"iter"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pakfs "github.com/ZaparooProject/go-pakfs"
	"github.com/ZaparooProject/go-pakfs/archive"
)

// fakeBackend is an in-memory backend that counts Close calls.
type fakeBackend struct {
	files    map[string]string
	declared map[string]int64
	closeErr error
	closed   int
}

func newFakeBackend(files ...string) *fakeBackend {
	b := &fakeBackend{files: make(map[string]string)}
	for _, name := range files {
		b.files[name] = "fake:" + name
	}
	return b
}

func (b *fakeBackend) Contains(name string) bool {
	_, ok := b.files[name]
	return ok
}

func (b *fakeBackend) Open(name string) (*archive.File, error) {
	data, ok := b.files[name]
	if !ok {
		return nil, archive.FileNotFoundError{Archive: "fake", InternalPath: name}
	}
	size, ok := b.declared[name]
	if !ok {
		size = int64(len(data))
	}
	return &archive.File{
		ReadCloser: io.NopCloser(strings.NewReader(data)),
		Name:       name,
		Size:       size,
	}, nil
}

func (b *fakeBackend) OpenText(name string) (*archive.TextFile, error) {
	f, err := b.Open(name)
	if err != nil {
		return nil, err
	}
	return archive.NewTextFile(f), nil
}

func (b *fakeBackend) Entries(dir string, kind archive.EntryKind, _ int) iter.Seq[string] {
	var names []string
	if kind == archive.Files {
		for name := range b.files {
			if strings.HasPrefix(name, dir) {
				names = append(names, name)
			}
		}
	}
	slices.Sort(names)
	return slices.Values(names)
}

func (b *fakeBackend) Close() error {
	b.closed++
	return b.closeErr
}

func TestRegistry_Capacity(t *testing.T) {
	t.Parallel()

	reg := pakfs.NewRegistry(1)
	require.NoError(t, reg.Register(&pakfs.Root{Name: "/a/", Backend: newFakeBackend()}))
	assert.True(t, reg.Full())

	err := reg.Register(&pakfs.Root{Name: "/b/", Backend: newFakeBackend()})
	require.ErrorIs(t, err, pakfs.ErrCapacityExceeded)

	// Packages are not capped.
	require.NoError(t, reg.Register(&pakfs.Root{Name: "/a/pak0.pk3", Backend: newFakeBackend(), IsPackage: true}))
	assert.Equal(t, 2, reg.Len())

	unlimited := pakfs.NewRegistry(0)
	for range 100 {
		require.NoError(t, unlimited.Register(&pakfs.Root{Name: "/d/", Backend: newFakeBackend()}))
	}
	assert.False(t, unlimited.Full())
}

func TestRegistry_RejectsEmptyName(t *testing.T) {
	t.Parallel()

	reg := pakfs.NewRegistry(0)
	err := reg.Register(&pakfs.Root{Name: "", Backend: newFakeBackend()})
	require.ErrorIs(t, err, pakfs.ErrInvalidPath)

	var pathErr pakfs.PathError
	require.ErrorAs(t, err, &pathErr)
	assert.Equal(t, "register", pathErr.Op)
	assert.Zero(t, reg.Len())
}

func TestRegistry_ClearIsIdempotent(t *testing.T) {
	t.Parallel()

	first, second := newFakeBackend(), newFakeBackend()
	reg := pakfs.NewRegistry(0)
	require.NoError(t, reg.Register(&pakfs.Root{Name: "/a/", Backend: first}))
	require.NoError(t, reg.Register(&pakfs.Root{Name: "/a/pak0.pk3", Backend: second, IsPackage: true}))

	require.NoError(t, reg.Clear())
	require.NoError(t, reg.Clear())

	assert.Zero(t, reg.Len())
	assert.Equal(t, 1, first.closed)
	assert.Equal(t, 1, second.closed)
}

func TestRegistry_ClearReportsCloseErrors(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")
	failing := newFakeBackend()
	failing.closeErr = errBoom
	other := newFakeBackend()

	reg := pakfs.NewRegistry(0)
	require.NoError(t, reg.Register(&pakfs.Root{Name: "/bad.pk3", Backend: failing, IsPackage: true}))
	require.NoError(t, reg.Register(&pakfs.Root{Name: "/ok/", Backend: other}))

	err := reg.Clear()
	require.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "/bad.pk3")
	assert.Equal(t, 1, other.closed)
	assert.Zero(t, reg.Len())
}

func TestRegistry_FindOwning(t *testing.T) {
	t.Parallel()

	reg := pakfs.NewRegistry(0)
	a := &pakfs.Root{Name: "/a/", Backend: newFakeBackend("textures/foo.tga")}
	b := &pakfs.Root{Name: "/b/", Backend: newFakeBackend("textures/foo.tga", "textures/bar.tga")}
	require.NoError(t, reg.Register(a))
	require.NoError(t, reg.Register(b))

	assert.Same(t, a, reg.FindOwning("textures/foo.tga"))
	assert.Same(t, b, reg.FindOwning("textures/bar.tga"))
	assert.Nil(t, reg.FindOwning("textures/baz.tga"))
}

func TestRegistry_FindByPrefix(t *testing.T) {
	t.Parallel()

	reg := pakfs.NewRegistry(0)
	game := &pakfs.Root{Name: "/game/", Backend: newFakeBackend()}
	base := &pakfs.Root{Name: "/game/base/", Backend: newFakeBackend()}
	twin := &pakfs.Root{Name: "/GAME/base/", Backend: newFakeBackend()}
	require.NoError(t, reg.Register(game))
	require.NoError(t, reg.Register(base))
	require.NoError(t, reg.Register(twin))

	tests := []struct {
		want *pakfs.Root
		abs  string
	}{
		{abs: "/game/base/textures/a.tga", want: base},
		{abs: `\game\base\textures\a.tga`, want: base},
		{abs: "/game/mod/a.tga", want: game},
		{abs: "/other/a.tga", want: nil},
	}
	for _, tt := range tests {
		assert.Same(t, tt.want, reg.FindByPrefix(tt.abs), tt.abs)
	}
}

func TestRegistry_LookupAndEach(t *testing.T) {
	t.Parallel()

	reg := pakfs.NewRegistry(0)
	dir := &pakfs.Root{Name: "/base/", Backend: newFakeBackend()}
	pak := &pakfs.Root{Name: "/base/pak0.pk3", Backend: newFakeBackend(), IsPackage: true}
	dpk := &pakfs.Root{Name: "/base/res_1.0.dpk", Backend: newFakeBackend(), IsPackage: true}
	for _, root := range []*pakfs.Root{dir, pak, dpk} {
		require.NoError(t, reg.Register(root))
	}

	assert.Same(t, pak, reg.Lookup("/BASE/PAK0.PK3", true))
	assert.Same(t, dir, reg.Lookup("/base/", false))
	assert.Nil(t, reg.Lookup("/base/", true))

	var names []string
	reg.Each(func(root *pakfs.Root) bool {
		names = append(names, root.Name)
		return true
	}, true, true)
	assert.Equal(t, []string{"/base/res_1.0.dpk", "/base/pak0.pk3"}, names)

	names = nil
	reg.Each(func(root *pakfs.Root) bool {
		names = append(names, root.Name)
		return false
	}, false, false)
	assert.Equal(t, []string{"/base/"}, names)

	snapshot := reg.Roots()
	snapshot[0] = nil
	assert.Same(t, dir, reg.Roots()[0])
}
