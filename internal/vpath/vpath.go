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

// Package vpath normalizes logical asset paths.
//
// Logical paths use forward slashes only. Lookups inside packages are
// case-insensitive and go through Key; loose directories keep the
// original case because the host filesystem may be case-sensitive.
package vpath

import (
	"path"
	"strings"

	"golang.org/x/text/cases"
)

// Normalize replaces every backslash with a forward slash.
// Case is preserved.
func Normalize(p string) string {
	if !HasBackslash(p) {
		return p
	}
	return strings.ReplaceAll(p, "\\", "/")
}

// HasBackslash reports whether p contains a DOS separator.
func HasBackslash(p string) bool {
	return strings.IndexByte(p, '\\') >= 0
}

// Key returns the case-folded comparison key for p.
func Key(p string) string {
	return cases.Fold().String(Normalize(p))
}

// Equal reports whether a and b name the same logical path.
func Equal(a, b string) bool {
	return Key(a) == Key(b)
}

// HasPrefixFold reports whether p starts with prefix, ignoring case.
func HasPrefixFold(p, prefix string) bool {
	if len(p) < len(prefix) {
		return false
	}
	return strings.EqualFold(p[:len(prefix)], prefix)
}

// EnsureTrailingSlash appends "/" to a non-empty path that does not end
// with a separator. The second result reports whether a fix was needed.
func EnsureTrailingSlash(p string) (string, bool) {
	if p == "" || strings.HasSuffix(p, "/") || strings.HasSuffix(p, "\\") {
		return p, false
	}
	return p + "/", true
}

// Base returns the last element of p, ignoring a trailing slash.
func Base(p string) string {
	p = strings.TrimSuffix(Normalize(p), "/")
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

// Ext returns the lowercase extension of p without the leading dot.
func Ext(p string) string {
	ext := path.Ext(Base(p))
	if ext == "" {
		return ""
	}
	return strings.ToLower(ext[1:])
}

// TrimExt returns the base name of p without its extension.
func TrimExt(p string) string {
	base := Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}

// MatchForbidden reports whether the basename of name matches any of the
// glob patterns. Matching is case-insensitive; malformed patterns never match.
func MatchForbidden(name string, patterns []string) bool {
	base := strings.ToLower(Base(name))
	for _, pattern := range patterns {
		ok, err := path.Match(strings.ToLower(pattern), base)
		if err == nil && ok {
			return true
		}
	}
	return false
}

// Depth returns the number of path elements in a relative path.
func Depth(p string) int {
	p = strings.Trim(p, "/")
	if p == "" {
		return 0
	}
	return strings.Count(p, "/") + 1
}
