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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pakfs "github.com/ZaparooProject/go-pakfs"
)

func TestLoadConfig_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pakfs.toml")
	content := `roots = ["/game/base", "/game/mod"]
forbidden_paths = "tmp* *.bak"
game_mode = "sp"
max_directories = 8

[dpk]
enabled = true
base_game = "unv"
game_tools_path = "/game/"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := pakfs.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"/game/base", "/game/mod"}, cfg.Roots)
	assert.Equal(t, []string{"tmp*", "*.bak"}, cfg.ForbiddenPatterns())
	assert.Equal(t, pakfs.GameModeSP, cfg.GameMode)
	assert.True(t, cfg.UsePaks, "use_paks keeps its default")
	assert.Equal(t, 8, cfg.MaxDirectories)
	assert.True(t, cfg.DPK.Enabled)
	assert.False(t, cfg.DPK.RequireBase)
	assert.Equal(t, "/game/unv/", cfg.BasePackagePath())
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := pakfs.LoadConfig("")
	require.NoError(t, err)
	assert.True(t, cfg.UsePaks)
	assert.Equal(t, pakfs.DefaultMaxDirectories, cfg.MaxDirectories)
	assert.False(t, cfg.DPK.Enabled)
}

func TestLoadConfig_Missing(t *testing.T) {
	t.Parallel()

	_, err := pakfs.LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

//nolint:paralleltest // t.Setenv cannot be used with t.Parallel
func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("PAKFS_GAME_MODE", "mp")
	t.Setenv("PAKFS_DPK_ENABLED", "true")

	cfg, err := pakfs.LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, pakfs.GameModeMP, cfg.GameMode)
	assert.True(t, cfg.DPK.Enabled)
}

func TestConfig_TOMLRoundTrip(t *testing.T) {
	t.Parallel()

	want := pakfs.DefaultConfig()
	want.Roots = []string{"/game/base"}
	want.ForbiddenPaths = "tmp*"
	want.GameMode = pakfs.GameModeMP
	want.DPK = pakfs.DPKConfig{Enabled: true, BaseGame: "unv", GameToolsPath: "/game/", RequireBase: true}
	want.MapPath = "/game/pkg/map-arena_1.0.dpkdir/maps/arena.map"

	data, err := want.TOML()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "pakfs.toml")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	got, err := pakfs.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestConfig_PrefixRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mode     string
		override string
		ignore   string
	}{
		{mode: "sp", override: "sp_", ignore: "mp_"},
		{mode: "MP", override: "mp_", ignore: "sp_"},
		{mode: "", override: "", ignore: ""},
		{mode: "coop", override: "", ignore: ""},
	}

	for _, tt := range tests {
		cfg := pakfs.Config{GameMode: tt.mode}
		override, ignore := cfg.PrefixRules()
		assert.Equal(t, tt.override, override, tt.mode)
		assert.Equal(t, tt.ignore, ignore, tt.mode)
	}
}
