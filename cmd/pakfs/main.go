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

// Command pakfs inspects the virtual file system assembled from game
// directories and packages.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	pakfs "github.com/ZaparooProject/go-pakfs"
)

const appVersion = "0.1.0"

var errNoRoots = errors.New("no roots configured: use --root or a config file")

// app holds the global flags shared by every subcommand.
type app struct {
	stdout     io.Writer
	stderr     io.Writer
	configPath string
	mode       string
	forbidden  string
	roots      []string
	dpk        bool
	verbose    bool
}

func main() {
	if err := newRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "pakfs",
		Short: "Inspect a game's virtual file system",
		Long: `pakfs resolves asset paths the way the editor does: across loose
directories and pk3/dpk/7z/rar/txz packages, later packages overriding
earlier ones.

Examples:
  pakfs --root /games/q3/baseq3 ls textures/base/ --ext tga
  pakfs --root /games/q3/baseq3 which scripts/shaderlist.txt
  pakfs --config pakfs.toml --dpk cat DEPS`,
		SilenceUsage: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (TOML, YAML or JSON)")
	flags.StringArrayVar(&a.roots, "root", nil, "directory to scan, repeatable, highest priority first")
	flags.StringVar(&a.mode, "mode", "", "game mode selecting package prefixes (sp or mp)")
	flags.StringVar(&a.forbidden, "forbidden", "", "whitespace-separated forbidden basename globs")
	flags.BoolVar(&a.dpk, "dpk", false, "enable DPK dependency loading")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		a.newListCommand(),
		a.newDirsCommand(),
		a.newCatCommand(),
		a.newWhichCommand(),
		a.newCountCommand(),
		a.newRootsCommand(),
		a.newConfigCommand(),
		newVersionCommand(),
	)
	return root
}

// config loads the config file and applies flag overrides.
func (a *app) config(cmd *cobra.Command) (pakfs.Config, error) {
	cfg, err := pakfs.LoadConfig(a.configPath)
	if err != nil {
		return pakfs.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("root") {
		cfg.Roots = a.roots
	}
	if flags.Changed("mode") {
		cfg.GameMode = a.mode
	}
	if flags.Changed("forbidden") {
		cfg.ForbiddenPaths = a.forbidden
	}
	if flags.Changed("dpk") {
		cfg.DPK.Enabled = a.dpk
	}
	return cfg, nil
}

// open builds and initializes the file system. Callers must Shutdown it.
func (a *app) open(cmd *cobra.Command) (*pakfs.FileSystem, error) {
	cfg, err := a.config(cmd)
	if err != nil {
		return nil, err
	}
	if len(cfg.Roots) == 0 {
		return nil, errNoRoots
	}

	logger := log.NewWithOptions(a.stderr, log.Options{Prefix: "vfs"})
	logger.SetLevel(log.WarnLevel)
	if a.verbose {
		logger.SetLevel(log.DebugLevel)
	}

	vfs := pakfs.New(pakfs.WithConfig(cfg), pakfs.WithLogger(logger))
	if err := vfs.Initialize(); err != nil {
		_ = vfs.Clear()
		return nil, fmt.Errorf("initialize: %w", err)
	}
	return vfs, nil
}
