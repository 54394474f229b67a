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

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupGameDir creates a base directory with a loose file and two packages.
func setupGameDir(t *testing.T) string {
	t.Helper()

	base := filepath.Join(t.TempDir(), "base")
	require.NoError(t, os.MkdirAll(filepath.Join(base, "scripts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "scripts", "shaderlist.txt"), []byte("base\n"), 0o644))

	for name, content := range map[string]string{"pak0.pk3": "pak0", "pak1.pk3": "pak1"} {
		var buf bytes.Buffer
		writer := zip.NewWriter(&buf)
		w, err := writer.Create("textures/wall.tga")
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
		require.NoError(t, writer.Close())
		require.NoError(t, os.WriteFile(filepath.Join(base, name), buf.Bytes(), 0o644))
	}
	return base
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := newRootCommand(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCLIVersion(t *testing.T) {
	t.Parallel()

	out, _, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "pakfs version "+appVersion+"\n", out)
}

func TestCLINoRoots(t *testing.T) {
	t.Parallel()

	_, _, err := runCLI(t, "roots")
	require.ErrorIs(t, err, errNoRoots)
}

func TestCLIRoots(t *testing.T) {
	t.Parallel()

	base := setupGameDir(t)

	out, _, err := runCLI(t, "--root", base, "roots")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, filepath.ToSlash(base)+"/", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], "pak1.pk3"), lines[1])
	assert.True(t, strings.HasSuffix(lines[2], "pak0.pk3"), lines[2])

	out, _, err = runCLI(t, "--root", base, "roots", "--paks", "--reverse")
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], "pak0.pk3"), lines[0])
}

func TestCLICatAndWhich(t *testing.T) {
	t.Parallel()

	base := setupGameDir(t)

	out, _, err := runCLI(t, "--root", base, "cat", "textures/wall.tga")
	require.NoError(t, err)
	assert.Equal(t, "pak1", out)

	out, _, err = runCLI(t, "--root", base, "cat", "--index", "1", "textures/wall.tga")
	require.NoError(t, err)
	assert.Equal(t, "pak0", out)

	out, _, err = runCLI(t, "--root", base, "which", "textures/wall.tga")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "pak1.pk3"), out)

	_, _, err = runCLI(t, "--root", base, "which", "textures/missing.tga")
	require.Error(t, err)
}

func TestCLIListAndCount(t *testing.T) {
	t.Parallel()

	base := setupGameDir(t)

	out, _, err := runCLI(t, "--root", base, "ls", "--depth", "0", "--ext", "tga")
	require.NoError(t, err)
	assert.Equal(t, "textures/wall.tga\n", out)

	out, _, err = runCLI(t, "--root", base, "dirs")
	require.NoError(t, err)
	assert.Equal(t, "scripts\ntextures\n", out)

	out, _, err = runCLI(t, "--root", base, "count", "--scope", "packages", "textures/wall.tga")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)

	_, _, err = runCLI(t, "--root", base, "count", "--scope", "bogus", "textures/wall.tga")
	require.Error(t, err)
}

func TestCLIConfig(t *testing.T) {
	t.Parallel()

	out, _, err := runCLI(t, "--root", "/games/base", "--mode", "sp", "--dpk", "config")
	require.NoError(t, err)
	assert.Contains(t, out, "/games/base")
	assert.Contains(t, out, "game_mode")
	assert.Contains(t, out, "[dpk]")
}
