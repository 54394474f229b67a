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

package chd

import (
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Metadata tags describing CD tracks.
const (
	metaTrackV2 = 0x43485432 // "CHT2"
	metaTrackV1 = 0x43485452 // "CHTR"
	metaCDROM   = 0x43484344 // "CHCD"
)

// Tracks are padded to a multiple of this many frames inside the image.
const trackPadding = 4

// cdromTypeAudio is the CHCD track type of audio tracks.
const cdromTypeAudio = 7

// Track describes one CD track.
type Track struct {
	Type       string
	Number     int
	Frames     int // frames stored in the image, including a stored pregap
	Pregap     int
	Postgap    int
	StartFrame int // first frame of the track inside the image

	// pregapStored reports whether the pregap frames are part of Frames.
	pregapStored bool
}

// IsData reports whether the track holds data sectors.
func (t Track) IsData() bool {
	return !strings.EqualFold(t.Type, "AUDIO")
}

// DataFrame returns the image frame holding the track's first sector
// after its pregap.
func (t Track) DataFrame() int {
	if t.pregapStored {
		return t.StartFrame + t.Pregap
	}
	return t.StartFrame
}

// DataFrames returns the number of frames after the pregap.
func (t Track) DataFrames() int {
	if t.pregapStored {
		return max(t.Frames-t.Pregap, 0)
	}
	return t.Frames
}

// readTracks walks the metadata chain starting at offset and collects
// the CD track records.
func readTracks(r io.ReaderAt, offset uint64) ([]Track, error) {
	var tracks []Track
	seen := make(map[uint64]bool)
	for offset != 0 {
		if seen[offset] || len(seen) >= MaxMetadataEntries {
			return nil, fmt.Errorf("%w: metadata chain loops at %d", ErrInvalidMetadata, offset)
		}
		seen[offset] = true

		head := make([]byte, 16)
		if _, err := r.ReadAt(head, int64(offset)); err != nil {
			return nil, fmt.Errorf("read metadata at %d: %w", offset, err)
		}
		tag := binary.BigEndian.Uint32(head[0:4])
		length := uint32(head[5])<<16 | uint32(head[6])<<8 | uint32(head[7])
		next := binary.BigEndian.Uint64(head[8:16])

		if tag == metaTrackV2 || tag == metaTrackV1 || tag == metaCDROM {
			data := make([]byte, length)
			if _, err := r.ReadAt(data, int64(offset)+16); err != nil {
				return nil, fmt.Errorf("read metadata at %d: %w", offset, err)
			}
			if tag == metaCDROM {
				parsed, err := parseCDROMTracks(data)
				if err != nil {
					return nil, err
				}
				tracks = append(tracks, parsed...)
			} else {
				track, err := parseTrackText(data)
				if err != nil {
					return nil, err
				}
				tracks = append(tracks, track)
			}
			if len(tracks) > MaxTracks {
				return nil, fmt.Errorf("%w: more than %d tracks", ErrInvalidMetadata, MaxTracks)
			}
		}
		offset = next
	}

	start := 0
	for i := range tracks {
		tracks[i].StartFrame = start
		start += tracks[i].Frames
		start += (trackPadding - tracks[i].Frames%trackPadding) % trackPadding
	}
	return tracks, nil
}

// parseTrackText reads the KEY:VALUE form used by CHTR and CHT2, e.g.
// "TRACK:1 TYPE:MODE1_RAW SUBTYPE:NONE FRAMES:1234 PREGAP:150 PGTYPE:VMODE1_RAW".
func parseTrackText(data []byte) (Track, error) {
	var t Track
	for field := range strings.FieldsSeq(strings.TrimRight(string(data), "\x00")) {
		key, value, ok := strings.Cut(field, ":")
		if !ok {
			continue
		}
		var dst *int
		switch strings.ToUpper(key) {
		case "TYPE":
			t.Type = value
		case "PGTYPE":
			t.pregapStored = strings.HasPrefix(value, "V")
		case "TRACK":
			dst = &t.Number
		case "FRAMES":
			dst = &t.Frames
		case "PREGAP":
			dst = &t.Pregap
		case "POSTGAP":
			dst = &t.Postgap
		}
		if dst == nil {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return t, fmt.Errorf("%w: %s", ErrInvalidMetadata, field)
		}
		*dst = n
	}
	return t, nil
}

// parseCDROMTracks reads the binary CHCD record: a track count followed
// by 24 byte entries of type, subtype, data size, subcode size, frames
// and padding frames.
func parseCDROMTracks(data []byte) ([]Track, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: short CHCD record", ErrInvalidMetadata)
	}
	count := binary.BigEndian.Uint32(data[0:4])
	if count > MaxTracks || len(data) < 4+int(count)*24 {
		return nil, fmt.Errorf("%w: CHCD record with %d tracks", ErrInvalidMetadata, count)
	}
	tracks := make([]Track, count)
	for i := range tracks {
		entry := data[4+i*24:]
		typ := "DATA"
		if binary.BigEndian.Uint32(entry[0:4]) == cdromTypeAudio {
			typ = "AUDIO"
		}
		tracks[i] = Track{
			Number: i + 1,
			Type:   typ,
			Frames: int(binary.BigEndian.Uint32(entry[16:20])),
		}
	}
	return tracks, nil
}
