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

package archive

import (
	"errors"
	"fmt"
)

// Common errors for archive access.
var (
	// ErrNotFound indicates a file is not present in a backend.
	ErrNotFound = errors.New("file not found")

	// ErrUnsupportedFormat indicates no opener is registered for an extension.
	ErrUnsupportedFormat = errors.New("unsupported archive format")

	// ErrOpenFailure indicates a container could not be opened.
	ErrOpenFailure = errors.New("cannot open archive")

	// ErrInvalidBlockSize indicates a disc image that is not a whole
	// number of 2048 or 2352 byte sectors.
	ErrInvalidBlockSize = errors.New("invalid disc image block size")

	// ErrPVDNotFound indicates a disc image without an ISO9660 primary
	// volume descriptor.
	ErrPVDNotFound = errors.New("primary volume descriptor not found")

	// ErrInvalidExtent indicates a disc record pointing past the end of
	// the image.
	ErrInvalidExtent = errors.New("extent beyond end of disc image")
)

// FormatError indicates an unsupported or invalid archive format.
type FormatError struct {
	Format string
	Reason string
}

func (e FormatError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported archive format %s: %s", e.Format, e.Reason)
	}
	return fmt.Sprintf("unsupported archive format: %s", e.Format)
}

func (FormatError) Unwrap() error { return ErrUnsupportedFormat }

// FileNotFoundError indicates a file was not found in a backend.
type FileNotFoundError struct {
	Archive      string
	InternalPath string
}

func (e FileNotFoundError) Error() string {
	return fmt.Sprintf("file %q not found in %q", e.InternalPath, e.Archive)
}

func (FileNotFoundError) Unwrap() error { return ErrNotFound }
