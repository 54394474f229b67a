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
	"errors"
	"fmt"

	"github.com/ZaparooProject/go-pakfs/archive"
)

var (
	// ErrInvalidPath indicates a malformed path at the API boundary.
	ErrInvalidPath = errors.New("invalid path")

	// ErrCapacityExceeded indicates the directory cap was reached.
	ErrCapacityExceeded = errors.New("search root capacity exceeded")

	// ErrMissingBasePackage indicates the DPK base package could not be opened.
	ErrMissingBasePackage = errors.New("base package missing")

	// ErrUnsupportedFormat indicates a package extension with no registered opener.
	ErrUnsupportedFormat = archive.ErrUnsupportedFormat

	// ErrOpenFailure indicates a package or directory could not be opened.
	ErrOpenFailure = archive.ErrOpenFailure

	// ErrNotFound indicates a file is present in no search root.
	ErrNotFound = archive.ErrNotFound
)

// PathError describes a rejected path.
type PathError struct {
	Op     string
	Path   string
	Reason string
}

func (e PathError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Op, e.Path, e.Reason)
}

// Unwrap returns ErrInvalidPath so errors.Is works.
func (PathError) Unwrap() error {
	return ErrInvalidPath
}
