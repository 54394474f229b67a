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
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pakfs "github.com/ZaparooProject/go-pakfs"
)

func dpkConfig(roots ...string) pakfs.Config {
	cfg := configWithRoots(roots...)
	cfg.DPK = pakfs.DPKConfig{
		Enabled:       true,
		BaseGame:      "unv",
		GameToolsPath: "/tools/",
	}
	return cfg
}

// writeDPK writes /pkg/<name>.dpk declaring deps.
func writeDPK(t *testing.T, fsys afero.Fs, name, deps string) {
	t.Helper()

	files := map[string]string{"scripts/" + name + ".shader": name}
	if deps != "" {
		files["DEPS"] = deps
	}
	writeZIP(t, fsys, "/pkg/"+name+".dpk", files)
}

func TestLoad_DependencyCycle(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/tools/unv/DEPS", "a\n")
	writeDPK(t, fsys, "a_1.0", "b 1.0\n")
	writeDPK(t, fsys, "b_1.0", "a\n")

	vfs := newTestFS(t, fsys, dpkConfig("/pkg"))
	require.NoError(t, vfs.Initialize())

	assert.Equal(t, []string{"/pkg/", "/tools/unv/", "/pkg/a_1.0.dpk", "/pkg/b_1.0.dpk"}, rootNames(vfs, false))
}

func TestLoad_DiamondDependency(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/tools/unv/DEPS", "a")
	writeDPK(t, fsys, "a_1.0", "b\nc\n")
	writeDPK(t, fsys, "b_1.0", "d")
	writeDPK(t, fsys, "c_1.0", "d 1.0")
	writeDPK(t, fsys, "d_1.0", "")

	vfs := newTestFS(t, fsys, dpkConfig("/pkg"))
	require.NoError(t, vfs.Initialize())

	assert.Equal(t,
		[]string{"/pkg/a_1.0.dpk", "/pkg/b_1.0.dpk", "/pkg/d_1.0.dpk", "/pkg/c_1.0.dpk"},
		rootNames(vfs, true))
}

func TestLoad_RepeatedDependency(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/tools/unv/DEPS", "a 1.0\nb 1.0\nb 1.0\n")
	writeDPK(t, fsys, "a_1.0", "")
	writeDPK(t, fsys, "b_1.0", "")

	vfs := newTestFS(t, fsys, dpkConfig("/pkg"))
	require.NoError(t, vfs.Initialize())

	assert.Equal(t, []string{"/pkg/a_1.0.dpk", "/pkg/b_1.0.dpk"}, rootNames(vfs, true))
}

func TestLoad_LatestVersion(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/tools/unv/DEPS", "tex\n")
	writeDPK(t, fsys, "tex_1.9", "")
	writeDPK(t, fsys, "tex_1.10", "")
	writeDPK(t, fsys, "tex_1.10~rc1", "")

	vfs := newTestFS(t, fsys, dpkConfig("/pkg"))
	require.NoError(t, vfs.Initialize())

	assert.Equal(t, []string{"/pkg/tex_1.10.dpk"}, rootNames(vfs, true))
	assert.Equal(t, "tex_1.10", readFile(t, vfs, "scripts/tex_1.10.shader"))
}

func TestLoad_SkipsBadDeclarations(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/tools/unv/DEPS", "\nmissing\na 9.9\nbad line here\n  \nb\n")
	writeDPK(t, fsys, "a_1.0", "")
	writeDPK(t, fsys, "b_2.0", "")

	vfs := newTestFS(t, fsys, dpkConfig("/pkg"))
	require.NoError(t, vfs.Initialize())

	assert.Equal(t, []string{"/pkg/b_2.0.dpk"}, rootNames(vfs, true))
}

func TestLoad_PackageDirectories(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/tools/unv/DEPS", "res\n")
	writeFile(t, fsys, "/pkg/res_1.0.dpkdir/DEPS", "tex 1.0\n")
	writeFile(t, fsys, "/pkg/res_1.0.dpkdir/textures/a.tga", "res")
	writeFile(t, fsys, "/pkg/unused_1.0.dpkdir/textures/b.tga", "unused")
	writeDPK(t, fsys, "tex_1.0", "")

	vfs := newTestFS(t, fsys, dpkConfig("/pkg"))
	require.NoError(t, vfs.Initialize())

	assert.Equal(t,
		[]string{"/pkg/", "/tools/unv/", "/pkg/res_1.0.dpkdir/", "/pkg/tex_1.0.dpk"},
		rootNames(vfs, false))
	assert.Equal(t, "res", readFile(t, vfs, "textures/a.tga"))
	assert.Empty(t, vfs.FindFile("textures/b.tga"))
}

func TestLoad_MapPackage(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/tools/unv/DEPS", "")
	writeFile(t, fsys, "/pkg/map-arena_1.0.dpkdir/maps/arena.map", "{}")
	writeFile(t, fsys, "/pkg/map-arena_1.0.dpkdir/DEPS", "tex\n")
	writeDPK(t, fsys, "tex_1.0", "")

	cfg := dpkConfig("/pkg")
	vfs := newTestFS(t, fsys, cfg)
	require.NoError(t, vfs.Initialize())
	assert.Empty(t, rootNames(vfs, true))

	vfs.SetMapPath("/pkg/map-arena_1.0.dpkdir/maps/arena.map")
	require.NoError(t, vfs.Refresh())

	assert.Equal(t,
		[]string{"/pkg/", "/tools/unv/", "/pkg/map-arena_1.0.dpkdir/", "/pkg/tex_1.0.dpk"},
		rootNames(vfs, false))
	assert.Equal(t, "{}", readFile(t, vfs, "maps/arena.map"))
}

func TestLoad_BasePackagePolicy(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	writeDPK(t, fsys, "a_1.0", "")

	lenient := newTestFS(t, fsys, dpkConfig("/pkg"))
	require.NoError(t, lenient.Initialize())
	assert.Equal(t, []string{"/pkg/"}, rootNames(lenient, false))

	cfg := dpkConfig("/pkg")
	cfg.DPK.RequireBase = true
	strict := newTestFS(t, fsys, cfg)
	require.ErrorIs(t, strict.Initialize(), pakfs.ErrMissingBasePackage)
}

func TestLoad_DisabledLoadsEverything(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/tools/unv/DEPS", "a\n")
	writeDPK(t, fsys, "a_1.0", "")
	writeDPK(t, fsys, "b_1.0", "")

	cfg := dpkConfig("/pkg")
	cfg.DPK.Enabled = false
	vfs := newTestFS(t, fsys, cfg)
	require.NoError(t, vfs.Initialize())

	assert.Equal(t, []string{"/pkg/", "/pkg/b_1.0.dpk", "/pkg/a_1.0.dpk"}, rootNames(vfs, false))
}
