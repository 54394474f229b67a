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

package archive_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/ZaparooProject/go-pakfs/archive"
)

func TestFormatError(t *testing.T) {
	t.Parallel()

	err := archive.FormatError{Format: ".tar", Reason: "not supported"}

	msg := err.Error()
	if !strings.Contains(msg, ".tar") {
		t.Errorf("error message should contain format: %s", msg)
	}
	if !strings.Contains(msg, "not supported") {
		t.Errorf("error message should contain reason: %s", msg)
	}
	if !errors.Is(err, archive.ErrUnsupportedFormat) {
		t.Error("FormatError should unwrap to ErrUnsupportedFormat")
	}
}

func TestFormatError_NoReason(t *testing.T) {
	t.Parallel()

	err := archive.FormatError{Format: ".tar"}

	msg := err.Error()
	if !strings.Contains(msg, ".tar") {
		t.Errorf("error message should contain format: %s", msg)
	}
}

func TestFileNotFoundError(t *testing.T) {
	t.Parallel()

	err := archive.FileNotFoundError{
		Archive:      "/games/base/pak0.pk3",
		InternalPath: "textures/base/wall.tga",
	}

	msg := err.Error()
	if !strings.Contains(msg, "pak0.pk3") {
		t.Errorf("error message should contain archive: %s", msg)
	}
	if !strings.Contains(msg, "textures/base/wall.tga") {
		t.Errorf("error message should contain internal path: %s", msg)
	}
	if !errors.Is(err, archive.ErrNotFound) {
		t.Error("FileNotFoundError should unwrap to ErrNotFound")
	}
}
