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
	"fmt"

	"github.com/spf13/afero"

	"github.com/ZaparooProject/go-pakfs/chd"
)

func init() {
	Register("chd", func(fsys afero.Fs, path string) (Backend, error) {
		ia, err := OpenCHD(fsys, path)
		if err != nil {
			return nil, err
		}
		return ia, nil
	})
}

// OpenCHD opens the ISO9660 filesystem on the first data track of a CHD
// disc image. Closing the archive closes the image.
func OpenCHD(fsys afero.Fs, path string) (*ISOArchive, error) {
	disc, err := chd.Open(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("open CHD image: %w", err)
	}

	ia, err := newISOArchive(path, disc.DataTrackSectorReader(), disc, disc.DataTrackSize(), isoSectorSize)
	if err != nil {
		_ = disc.Close()
		return nil, fmt.Errorf("read CHD data track: %w", err)
	}
	return ia, nil
}
