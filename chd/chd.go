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

// Package chd reads the data track of CHD (MAME Compressed Hunks of
// Data) CD images as a stream of 2048 byte sectors.
package chd

import (
	"bytes"
	"fmt"
	"io"

	"github.com/spf13/afero"
)

// SectorSize is the user data size of a data track sector.
const SectorSize = 2048

// The ISO9660 primary volume descriptor sits in sector 16 of a data track.
const (
	pvdSector       = 16
	pvdSearchFrames = 100 // scanned when metadata is missing or wrong
)

var pvdMagic = []byte{0x01, 'C', 'D', '0', '0', '1'}

// CHD is an open CHD image.
type CHD struct {
	file      afero.File
	header    *Header
	hunks     *hunkMap
	tracks    []Track
	dataStart int64 // image frame of the data track's first sector
}

// Open reads the header, hunk map and track metadata of the CHD image at
// path.
func Open(fsys afero.Fs, path string) (*CHD, error) {
	file, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open CHD file: %w", err)
	}
	c := &CHD{file: file}
	if err := c.init(); err != nil {
		_ = file.Close()
		return nil, err
	}
	return c, nil
}

func (c *CHD) init() error {
	header, err := readHeader(c.file)
	if err != nil {
		return err
	}
	c.header = header

	c.hunks, err = newHunkMap(c.file, header)
	if err != nil {
		return fmt.Errorf("read hunk map: %w", err)
	}

	// Images without usable track metadata are still scanned for a
	// volume descriptor.
	if header.MetaOffset != 0 {
		if tracks, err := readTracks(c.file, header.MetaOffset); err == nil {
			c.tracks = tracks
		}
	}
	c.dataStart = c.locateDataTrack()
	return nil
}

// Close releases the underlying file.
func (c *CHD) Close() error {
	if err := c.file.Close(); err != nil {
		return fmt.Errorf("close CHD file: %w", err)
	}
	return nil
}

// Header returns the parsed image header.
func (c *CHD) Header() *Header {
	return c.header
}

// Tracks returns the CD tracks recorded in the image metadata.
func (c *CHD) Tracks() []Track {
	return c.tracks
}

func (c *CHD) dataTrack() (Track, bool) {
	for _, t := range c.tracks {
		if t.IsData() {
			return t, true
		}
	}
	return Track{}, false
}

// DataTrackSize returns the byte length of the first data track in
// 2048 byte sectors. Without track metadata the track runs to the end
// of the image.
func (c *CHD) DataTrackSize() int64 {
	if t, ok := c.dataTrack(); ok {
		return int64(t.DataFrames()) * SectorSize
	}
	return max(c.frames()-c.dataStart, 0) * SectorSize
}

func (c *CHD) frames() int64 {
	return int64(c.header.LogicalBytes / uint64(c.header.UnitBytes))
}

// DataTrackSectorReader returns a reader over the user data of the first
// data track, as a cooked ISO image would hold it.
func (c *CHD) DataTrackSectorReader() io.ReaderAt {
	return &sectorReader{chd: c, start: c.dataStart, size: c.DataTrackSize()}
}

// locateDataTrack trusts the metadata when a volume descriptor is where
// it says, and otherwise scans the first frames for one.
func (c *CHD) locateDataTrack() int64 {
	var start int64
	if t, ok := c.dataTrack(); ok {
		start = int64(t.DataFrame())
	}
	if c.hasPVD(start + pvdSector) {
		return start
	}
	for frame := int64(pvdSector); frame < min(c.frames(), pvdSearchFrames); frame++ {
		if c.hasPVD(frame) {
			return frame - pvdSector
		}
	}
	return start
}

func (c *CHD) hasPVD(frame int64) bool {
	data, err := c.userData(frame)
	return err == nil && bytes.HasPrefix(data, pvdMagic)
}

// userData returns the 2048 user bytes of an image frame. Raw frames
// start with a sync header; mode 2 frames carry 8 more header bytes.
func (c *CHD) userData(frame int64) ([]byte, error) {
	perHunk := c.header.UnitsPerHunk()
	hunk, err := c.hunks.read(uint64(frame / perHunk))
	if err != nil {
		return nil, err
	}
	unitBytes := int64(c.header.UnitBytes)
	unitStart := (frame % perHunk) * unitBytes
	unit := hunk[unitStart:min(unitStart+unitBytes, int64(len(hunk)))]

	if len(unit) >= 16 && bytes.Equal(unit[:len(cdSyncHeader)], cdSyncHeader[:]) {
		if unit[15] == 2 {
			unit = unit[24:]
		} else {
			unit = unit[16:]
		}
	}
	return unit[:min(len(unit), SectorSize)], nil
}

// sectorReader exposes a data track as a cooked sector stream.
type sectorReader struct {
	chd   *CHD
	start int64
	size  int64
}

func (sr *sectorReader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("chd: negative offset %d", off)
	}
	n := 0
	for n < len(p) {
		pos := off + int64(n)
		if pos >= sr.size {
			return n, io.EOF
		}
		data, err := sr.chd.userData(sr.start + pos/SectorSize)
		if err != nil {
			return n, err
		}
		within := pos % SectorSize
		if within >= int64(len(data)) {
			return n, io.EOF
		}
		limit := int(min(int64(len(p)-n), sr.size-pos))
		n += copy(p[n:n+limit], data[within:])
	}
	return n, nil
}
