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
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/spf13/afero"
)

func init() {
	Register("iso", func(fsys afero.Fs, path string) (Backend, error) {
		ia, err := OpenISO(fsys, path)
		if err != nil {
			return nil, err
		}
		return ia, nil
	})
}

const (
	isoSectorSize    = 2048
	isoRawSectorSize = 2352
	isoPVDSector     = 16

	// The primary volume descriptor is searched for in the first ~1MB.
	isoPVDSearchSize = 1000000
)

// PVD magic word: 0x01 followed by "CD001"
var isoPVDMagic = []byte{0x01, 'C', 'D', '0', '0', '1'}

type isoExtent struct {
	lba  uint32
	size uint32
}

type isoDirectory struct {
	name   string
	lba    uint32
	parent int // -1 for root
}

// ISOArchive provides access to files on an ISO9660 disc image. Both
// cooked (2048 byte) and raw (2352 byte) sector images are supported.
type ISOArchive struct {
	reader      io.ReaderAt
	closer      io.Closer
	index       *entryIndex[isoExtent]
	path        string
	size        int64
	blockSize   int
	blockOffset int64
}

// OpenISO opens an ISO9660 disc image and indexes its files.
func OpenISO(fsys afero.Fs, path string) (*ISOArchive, error) {
	file, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ISO image: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("stat ISO image: %w", err)
	}

	var blockSize int
	switch size := stat.Size(); {
	case size%isoRawSectorSize == 0:
		blockSize = isoRawSectorSize
	case size%isoSectorSize == 0:
		blockSize = isoSectorSize
	default:
		_ = file.Close()
		return nil, ErrInvalidBlockSize
	}

	ia, err := newISOArchive(path, file, file, stat.Size(), blockSize)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	return ia, nil
}

// newISOArchive indexes the ISO9660 filesystem found in the first size
// bytes of r. closer is released by Close; the caller keeps ownership on
// error.
func newISOArchive(path string, r io.ReaderAt, closer io.Closer, size int64, blockSize int) (*ISOArchive, error) {
	ia := &ISOArchive{
		reader:    r,
		closer:    closer,
		index:     newEntryIndex[isoExtent](),
		path:      path,
		size:      size,
		blockSize: blockSize,
	}
	if err := ia.init(); err != nil {
		return nil, err
	}
	ia.index.finish()
	return ia, nil
}

func (ia *ISOArchive) init() error {
	header := make([]byte, min(ia.size, isoPVDSearchSize))
	if _, err := ia.reader.ReadAt(header, 0); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read ISO header: %w", err)
	}

	pvdOffset := bytes.Index(header, isoPVDMagic)
	if pvdOffset < 0 {
		return ErrPVDNotFound
	}
	// Raw sectors carry a sync header before the user data, which shows
	// up here as an offset past sector 16.
	ia.blockOffset = int64(pvdOffset) - int64(isoPVDSector*ia.blockSize)

	pvd := make([]byte, isoSectorSize)
	if _, err := ia.reader.ReadAt(pvd, int64(pvdOffset)); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read primary volume descriptor: %w", err)
	}

	dirs, err := ia.readPathTable(pvd)
	if err != nil {
		return err
	}
	return ia.indexDirectories(dirs)
}

// readPathTable parses the little-endian path table named by the PVD.
func (ia *ISOArchive) readPathTable(pvd []byte) ([]isoDirectory, error) {
	tableSize := binary.LittleEndian.Uint32(pvd[132:136])
	tableLBA := binary.LittleEndian.Uint32(pvd[140:144])

	raw, err := ia.readExtent(isoExtent{lba: tableLBA, size: tableSize})
	if err != nil {
		return nil, fmt.Errorf("read path table: %w", err)
	}

	var dirs []isoDirectory
	for i := 0; i+8 <= len(raw); {
		nameLen := int(raw[i])
		if nameLen == 0 || i+8+nameLen > len(raw) {
			break
		}

		dir := isoDirectory{
			lba:    binary.LittleEndian.Uint32(raw[i+2 : i+6]),
			parent: int(binary.LittleEndian.Uint16(raw[i+6:i+8])) - 1,
			name:   string(raw[i+8 : i+8+nameLen]),
		}
		if len(dirs) == 0 {
			dir.name = ""
			dir.parent = -1
		}
		dirs = append(dirs, dir)

		// Entries are padded to an even length.
		i += 8 + nameLen + nameLen%2
	}
	return dirs, nil
}

// dirPath returns the full path of dirs[idx] without trailing slash.
func dirPath(dirs []isoDirectory, idx int) string {
	var parts []string
	for seen := 0; idx > 0 && idx < len(dirs) && seen < len(dirs); seen++ {
		parts = append(parts, dirs[idx].name)
		idx = dirs[idx].parent
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}

// indexDirectories reads the records of every directory in the path table.
func (ia *ISOArchive) indexDirectories(dirs []isoDirectory) error {
	for idx, dir := range dirs {
		prefix := dirPath(dirs, idx)
		if prefix != "" {
			ia.index.addDir(prefix)
			prefix += "/"
		}

		// The first record of a directory is "." and carries the
		// directory's own extent size.
		first := make([]byte, 34)
		if _, err := ia.reader.ReadAt(first, ia.sectorOffset(dir.lba)); err != nil {
			return fmt.Errorf("read directory %q: %w", prefix, err)
		}
		records, err := ia.readExtent(isoExtent{lba: dir.lba, size: binary.LittleEndian.Uint32(first[10:14])})
		if err != nil {
			return fmt.Errorf("read directory %q: %w", prefix, err)
		}
		ia.indexRecords(prefix, records)
	}
	return nil
}

func (ia *ISOArchive) indexRecords(prefix string, records []byte) {
	for offset := 0; offset < len(records); {
		recLen := int(records[offset])
		if recLen == 0 {
			// Records never span sectors; the rest of this one is padding.
			offset = (offset/isoSectorSize + 1) * isoSectorSize
			continue
		}
		if recLen < 34 || offset+recLen > len(records) {
			return
		}

		record := records[offset : offset+recLen]
		offset += recLen

		const flagDirectory = 0x02
		nameLen := int(record[32])
		if record[25]&flagDirectory != 0 || nameLen == 0 || 33+nameLen > len(record) {
			continue
		}

		ia.index.add(prefix+isoFileName(string(record[33:33+nameLen])),
			int64(binary.LittleEndian.Uint32(record[10:14])),
			isoExtent{
				lba:  binary.LittleEndian.Uint32(record[2:6]),
				size: binary.LittleEndian.Uint32(record[10:14]),
			})
	}
}

// isoFileName strips the ";1" version suffix and the trailing dot of
// names without an extension.
func isoFileName(name string) string {
	if i := strings.IndexByte(name, ';'); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSuffix(name, ".")
}

func (ia *ISOArchive) sectorOffset(lba uint32) int64 {
	return ia.blockOffset + int64(lba)*int64(ia.blockSize)
}

// readExtent reads size bytes starting at sector lba, skipping the raw
// sector framing between sectors. Extents reaching past the end of the
// image are rejected before anything is allocated.
func (ia *ISOArchive) readExtent(extent isoExtent) ([]byte, error) {
	if extent.size > 0 {
		sectors := (int64(extent.size) + isoSectorSize - 1) / isoSectorSize
		tail := int64(extent.size) - (sectors-1)*isoSectorSize
		end := ia.sectorOffset(extent.lba) + (sectors-1)*int64(ia.blockSize) + tail
		if end > ia.size {
			return nil, fmt.Errorf("%w: sector %d, %d bytes", ErrInvalidExtent, extent.lba, extent.size)
		}
	}

	data := make([]byte, extent.size)
	for done, lba := 0, extent.lba; done < len(data); lba++ {
		n := min(len(data)-done, isoSectorSize)
		if _, err := ia.reader.ReadAt(data[done:done+n], ia.sectorOffset(lba)); err != nil && !errors.Is(err, io.EOF) {
			return nil, err //nolint:wrapcheck // Callers add context
		}
		done += n
	}
	return data, nil
}

// Path returns the disc image file name.
func (ia *ISOArchive) Path() string {
	return ia.path
}

// Len returns the number of files on the disc.
func (ia *ISOArchive) Len() int {
	return ia.index.len()
}

// Contains reports whether the disc holds name.
func (ia *ISOArchive) Contains(name string) bool {
	_, ok := ia.index.lookup(name)
	return ok
}

// Open reads a file from the disc.
func (ia *ISOArchive) Open(name string) (*File, error) {
	entry, ok := ia.index.lookup(name)
	if !ok {
		return nil, FileNotFoundError{Archive: ia.path, InternalPath: name}
	}

	data, err := ia.readExtent(entry.payload)
	if err != nil {
		return nil, fmt.Errorf("read file in ISO: %w", err)
	}
	return &File{ReadCloser: nopCloser{Reader: bytes.NewReader(data)}, Name: entry.name, Size: entry.size}, nil
}

// OpenText opens a file on the disc for line reading.
func (ia *ISOArchive) OpenText(name string) (*TextFile, error) {
	return openText(ia, name)
}

// Entries enumerates files or directories below dir.
func (ia *ISOArchive) Entries(dir string, kind EntryKind, depth int) iter.Seq[string] {
	return ia.index.entries(dir, kind, depth)
}

// Close closes the disc image.
func (ia *ISOArchive) Close() error {
	return ia.closer.Close() //nolint:wrapcheck // Close error passthrough is intentional
}
