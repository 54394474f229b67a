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

package vpath_test

import (
	"strings"
	"testing"

	"github.com/ZaparooProject/go-pakfs/internal/vpath"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"textures/base/wall.tga", "textures/base/wall.tga"},
		{"textures\\base\\wall.tga", "textures/base/wall.tga"},
		{"Textures\\Base/Wall.TGA", "Textures/Base/Wall.TGA"},
		{"\\\\", "//"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got := vpath.Normalize(tt.in)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if strings.Contains(got, "\\") {
				t.Errorf("Normalize(%q) still contains a backslash", tt.in)
			}
			if again := vpath.Normalize(got); again != got {
				t.Errorf("Normalize is not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestKey(t *testing.T) {
	t.Parallel()

	if vpath.Key("Maps\\Q3DM1.bsp") != vpath.Key("maps/q3dm1.BSP") {
		t.Error("keys should fold case and separators")
	}
	if !vpath.Equal("SCRIPTS/a.shader", "scripts/A.shader") {
		t.Error("Equal should ignore case")
	}
	if vpath.Equal("scripts/a.shader", "scripts/b.shader") {
		t.Error("Equal should compare names")
	}
}

func TestEnsureTrailingSlash(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantFix bool
	}{
		{"/games/base", "/games/base/", true},
		{"/games/base/", "/games/base/", false},
		{"C:\\games\\base\\", "C:\\games\\base\\", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, fixed := vpath.EnsureTrailingSlash(tt.in)
		if got != tt.want || fixed != tt.wantFix {
			t.Errorf("EnsureTrailingSlash(%q) = (%q, %v), want (%q, %v)", tt.in, got, fixed, tt.want, tt.wantFix)
		}
	}
}

func TestExtAndBase(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in       string
		wantBase string
		wantExt  string
		wantTrim string
	}{
		{"/base/pak0.PK3", "pak0.PK3", "pk3", "pak0"},
		{"/base/assets.pk3dir/", "assets.pk3dir", "pk3dir", "assets"},
		{"res-core_0.52.dpk", "res-core_0.52.dpk", "dpk", "res-core_0.52"},
		{"noext", "noext", "", "noext"},
	}

	for _, tt := range tests {
		if got := vpath.Base(tt.in); got != tt.wantBase {
			t.Errorf("Base(%q) = %q, want %q", tt.in, got, tt.wantBase)
		}
		if got := vpath.Ext(tt.in); got != tt.wantExt {
			t.Errorf("Ext(%q) = %q, want %q", tt.in, got, tt.wantExt)
		}
		if got := vpath.TrimExt(tt.in); got != tt.wantTrim {
			t.Errorf("TrimExt(%q) = %q, want %q", tt.in, got, tt.wantTrim)
		}
	}
}

func TestMatchForbidden(t *testing.T) {
	t.Parallel()

	patterns := []string{"tmp*", "*.bak", "[bad"}

	tests := []struct {
		name string
		want bool
	}{
		{"tmp_backup", true},
		{"/games/TMP_old/", true},
		{"pak0.BAK", true},
		{"baseq3", false},
		{"[bad", false},
	}

	for _, tt := range tests {
		if got := vpath.MatchForbidden(tt.name, patterns); got != tt.want {
			t.Errorf("MatchForbidden(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestDepth(t *testing.T) {
	t.Parallel()

	if got := vpath.Depth(""); got != 0 {
		t.Errorf("Depth(\"\") = %d", got)
	}
	if got := vpath.Depth("textures/base/"); got != 2 {
		t.Errorf("Depth(textures/base/) = %d", got)
	}
}
