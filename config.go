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
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// Game modes select which of the sp_/mp_ package prefixes overrides the
// other.
const (
	GameModeSP = "sp"
	GameModeMP = "mp"
)

// DefaultMaxDirectories is the default cap on plain directory roots.
const DefaultMaxDirectories = 64

// EnvPrefix is the prefix of environment variables overriding config keys.
const EnvPrefix = "PAKFS"

// Config holds everything the file system reads from its host.
type Config struct {
	// Roots are scanned in priority order by Initialize.
	Roots []string `mapstructure:"roots" toml:"roots"`

	// ForbiddenPaths is a whitespace-separated list of basename globs.
	ForbiddenPaths string `mapstructure:"forbidden_paths" toml:"forbidden_paths"`

	GameMode string `mapstructure:"game_mode" toml:"game_mode"`

	// UsePaks enables package discovery inside scanned directories.
	UsePaks bool `mapstructure:"use_paks" toml:"use_paks"`

	// MaxDirectories caps plain directory roots. Zero means unlimited.
	MaxDirectories int `mapstructure:"max_directories" toml:"max_directories"`

	DPK DPKConfig `mapstructure:"dpk" toml:"dpk"`

	// MapPath is the resource path of the map being edited, if any.
	MapPath string `mapstructure:"map_path" toml:"map_path"`
}

// DPKConfig configures dependency-driven package loading.
type DPKConfig struct {
	Enabled       bool   `mapstructure:"enabled" toml:"enabled"`
	BaseGame      string `mapstructure:"base_game" toml:"base_game"`
	GameToolsPath string `mapstructure:"game_tools_path" toml:"game_tools_path"`

	// RequireBase makes a missing base package a load error instead of
	// a warning.
	RequireBase bool `mapstructure:"require_base" toml:"require_base"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		UsePaks:        true,
		MaxDirectories: DefaultMaxDirectories,
	}
}

// LoadConfig reads a TOML, YAML or JSON config file. An empty path loads
// defaults plus PAKFS_* environment overrides only.
func LoadConfig(path string) (Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("roots", defaults.Roots)
	v.SetDefault("forbidden_paths", defaults.ForbiddenPaths)
	v.SetDefault("game_mode", defaults.GameMode)
	v.SetDefault("use_paks", defaults.UsePaks)
	v.SetDefault("max_directories", defaults.MaxDirectories)
	v.SetDefault("dpk.enabled", defaults.DPK.Enabled)
	v.SetDefault("dpk.base_game", defaults.DPK.BaseGame)
	v.SetDefault("dpk.game_tools_path", defaults.DPK.GameToolsPath)
	v.SetDefault("dpk.require_base", defaults.DPK.RequireBase)
	v.SetDefault("map_path", defaults.MapPath)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// ForbiddenPatterns splits ForbiddenPaths into glob patterns.
func (c Config) ForbiddenPatterns() []string {
	return strings.Fields(c.ForbiddenPaths)
}

// PrefixRules returns the package name prefix that takes precedence and
// the one that is skipped for the configured game mode. Both are empty
// outside sp and mp modes.
func (c Config) PrefixRules() (override, ignore string) {
	switch strings.ToLower(c.GameMode) {
	case GameModeSP:
		return "sp_", "mp_"
	case GameModeMP:
		return "mp_", "sp_"
	default:
		return "", ""
	}
}

// BasePackagePath returns the directory of the DPK base package.
func (c Config) BasePackagePath() string {
	return c.DPK.GameToolsPath + c.DPK.BaseGame + "/"
}

// TOML renders the configuration as a TOML document.
func (c Config) TOML() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to render config: %w", err)
	}
	return data, nil
}
