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
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	pakfs "github.com/ZaparooProject/go-pakfs"
)

func optionalArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func (a *app) newListCommand() *cobra.Command {
	var (
		ext   string
		depth int
	)
	cmd := &cobra.Command{
		Use:   "ls [DIR]",
		Short: "List files below a directory across all roots",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vfs, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = vfs.Shutdown() }()

			for _, name := range vfs.ListFiles(optionalArg(args), ext, depth) {
				fmt.Fprintln(a.stdout, name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&ext, "ext", pakfs.AnyExtension, "only list files with this extension")
	cmd.Flags().IntVar(&depth, "depth", 1, "levels to descend, 0 for unlimited")
	return cmd
}

func (a *app) newDirsCommand() *cobra.Command {
	var depth int
	cmd := &cobra.Command{
		Use:   "dirs [DIR]",
		Short: "List directories below a directory across all roots",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vfs, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = vfs.Shutdown() }()

			for _, name := range vfs.ListDirectories(optionalArg(args), depth) {
				fmt.Fprintln(a.stdout, name)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 1, "levels to descend, 0 for unlimited")
	return cmd
}

func (a *app) newCatCommand() *cobra.Command {
	var index int
	cmd := &cobra.Command{
		Use:   "cat PATH",
		Short: "Print a file",
		Long: `Print the file served for PATH. --index selects a shadowed copy,
counting roots from zero; a negative index reads PATH from disk, where it
may point inside a package (e.g. /games/base/pak0.pk3/scripts/a.shader).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vfs, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = vfs.Shutdown() }()

			data, err := vfs.LoadFileIndex(args[0], index)
			if err != nil {
				return err
			}
			_, err = a.stdout.Write(data[:len(data)-1])
			return err
		},
	}
	cmd.Flags().IntVar(&index, "index", 0, "which copy of the file to print")
	return cmd
}

func (a *app) newWhichCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "which PATH",
		Short: "Show the root serving a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vfs, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = vfs.Shutdown() }()

			root := vfs.FindFile(args[0])
			if root == "" {
				return fmt.Errorf("%s: %w", args[0], pakfs.ErrNotFound)
			}
			fmt.Fprintln(a.stdout, root)
			return nil
		},
	}
}

func parseScope(name string) (pakfs.Scope, error) {
	switch strings.ToLower(name) {
	case "", "all":
		return pakfs.ScopeAll, nil
	case "packages", "paks":
		return pakfs.ScopePackages, nil
	case "directories", "dirs":
		return pakfs.ScopeDirectories, nil
	default:
		return 0, fmt.Errorf("unknown scope %q (want all, packages or directories)", name)
	}
}

func (a *app) newCountCommand() *cobra.Command {
	var scopeName string
	cmd := &cobra.Command{
		Use:   "count PATH",
		Short: "Count the roots holding a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := parseScope(scopeName)
			if err != nil {
				return err
			}
			vfs, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = vfs.Shutdown() }()

			fmt.Fprintln(a.stdout, vfs.FileCount(args[0], scope))
			return nil
		},
	}
	cmd.Flags().StringVar(&scopeName, "scope", "all", "roots to search: all, packages or directories")
	return cmd
}

func (a *app) newRootsCommand() *cobra.Command {
	var paks, reverse bool
	cmd := &cobra.Command{
		Use:   "roots",
		Short: "List the search roots in lookup order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			vfs, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = vfs.Shutdown() }()

			vfs.EachArchive(func(name string) {
				fmt.Fprintln(a.stdout, name)
			}, paks, reverse)
			return nil
		},
	}
	cmd.Flags().BoolVar(&paks, "paks", false, "only list packages")
	cmd.Flags().BoolVar(&reverse, "reverse", false, "list lowest priority first")
	return cmd
}

func (a *app) newConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.config(cmd)
			if err != nil {
				return err
			}
			data, err := cfg.TOML()
			if err != nil {
				return err
			}
			_, err = a.stdout.Write(data)
			return err
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pakfs version %s\n", appVersion)
		},
	}
}
