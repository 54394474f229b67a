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

package dpk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ZaparooProject/go-pakfs/dpk"
)

func TestCompareVersions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want int
	}{
		{a: "1.0", b: "1.0", want: 0},
		{a: "1.10", b: "1.9", want: 1},
		{a: "1.9", b: "1.10", want: -1},
		{a: "1.0~rc1", b: "1.0", want: -1},
		{a: "1.0~rc1", b: "1.0~rc2", want: -1},
		{a: "1.0", b: "1.0a", want: -1},
		{a: "1.0a", b: "1.0+", want: -1},
		{a: "01", b: "1", want: 0},
		{a: "2", b: "10", want: -1},
		{a: "0.52.1", b: "0.52", want: 1},
		{a: "", b: "0", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			t.Parallel()

			got := dpk.CompareVersions(tt.a, tt.b)
			switch {
			case tt.want < 0:
				assert.Negative(t, got)
			case tt.want > 0:
				assert.Positive(t, got)
			default:
				assert.Zero(t, got)
			}

			// Antisymmetry
			back := dpk.CompareVersions(tt.b, tt.a)
			switch {
			case got < 0:
				assert.Positive(t, back)
			case got > 0:
				assert.Negative(t, back)
			default:
				assert.Zero(t, back)
			}
		})
	}
}
