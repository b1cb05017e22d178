// Copyright 2025 The fastexif Authors
// SPDX-License-Identifier: MIT

package fastexif

import (
	"bytes"
	"encoding/binary"
	"sort"
)

var markerExif = []byte("Exif\x00\x00")

const (
	markerSOI  = 0xd8
	markerSOS  = 0xda
	markerAPP1 = 0xe1
)

// candidate is a byte-range hypothesis for "a metadata directory starts
// here", validated against the TIFF header structure. A container may carry
// several: embedded thumbnails, stray blocks from bad encoders.
type candidate struct {
	// offset of the byte-order marker within the container, for
	// deterministic tie-breaking.
	offset int
	score  int
	order  binary.ByteOrder
	// buf is the candidate-relative buffer: directory offsets index into it.
	buf []byte
	// dirs is the walked directory list, populated during validation.
	dirs []directory
	// decodable counts entries that decode cleanly, the tie-break proxy
	// for "the real, non-thumbnail block".
	decodable int
}

// locateCandidates finds every metadata block hypothesis in data, validates
// and scores each, and returns the survivors ordered best-first. An empty
// result means no metadata; the caller turns that into an empty map.
func locateCandidates(data []byte, kind ContainerKind, opts Options) []candidate {
	var raw []int // absolute offsets of would-be TIFF headers
	var ends map[int]int

	switch kind {
	case KindJPEG:
		raw, ends = scanJPEGSegments(data)
	case KindTIFF:
		// The file itself is the directory root.
		raw = []int{0}
	case KindBMFF:
		raw = scanBoxes(data, 0, len(data), 0)
	}

	var cands []candidate
	for _, off := range raw {
		end := len(data)
		if ends != nil {
			if e, found := ends[off]; found {
				end = e
			}
		}
		c, ok := validateCandidate(data, off, end, opts)
		if !ok {
			continue
		}
		cands = append(cands, c)
	}

	// Selection: highest score, then most decodable entries, then earliest
	// byte offset. Deterministic regardless of discovery order.
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		if cands[i].decodable != cands[j].decodable {
			return cands[i].decodable > cands[j].decodable
		}
		return cands[i].offset < cands[j].offset
	})

	return cands
}

// scanJPEGSegments walks the marker segments and records one candidate per
// APP1 segment carrying the "Exif\0\0" identifier. Malformed encoders emit
// more than one; all are collected.
func scanJPEGSegments(data []byte) (offsets []int, ends map[int]int) {
	ends = make(map[int]int)
	pos := 2 // past SOI
	for pos+4 <= len(data) {
		if data[pos] != 0xff {
			pos++
			continue
		}
		marker := data[pos+1]
		switch {
		case marker == 0xff:
			pos++
			continue
		case marker == 0x00 || marker == 0x01 || (marker >= 0xd0 && marker <= 0xd8):
			// Standalone markers carry no length field.
			pos += 2
			continue
		case marker == markerSOS:
			// Start of scan: entropy-coded data follows, no more segments.
			return offsets, ends
		}

		length := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		if length < 2 {
			return offsets, ends
		}
		segEnd := pos + 2 + length
		if segEnd > len(data) {
			return offsets, ends
		}

		if marker == markerAPP1 {
			payload := data[pos+4 : segEnd]
			if bytes.HasPrefix(payload, markerExif) {
				off := pos + 4 + len(markerExif)
				offsets = append(offsets, off)
				ends[off] = segEnd
			}
		}
		pos = segEnd
	}
	return offsets, ends
}

// Box types recursed into when walking an ISO-BMFF tree. meta is a FullBox;
// its payload starts after 4 version/flags bytes.
var containerBoxes = map[string]int{
	"meta": 4,
	"moov": 0, "trak": 0, "mdia": 0, "minf": 0, "stbl": 0, "udta": 0,
	"iinf": 0, "iprp": 0, "ipco": 0, "dinf": 0,
}

const maxBoxDepth = 16

// scanBoxes recursively walks the box tree between start and end and scans
// every leaf box payload for an "Exif" identifier. HEIF containers routinely
// hold more than one EXIF item (thumbnail vs primary), so every match
// becomes a candidate.
func scanBoxes(data []byte, start, end, depth int) []int {
	if depth > maxBoxDepth {
		return nil
	}
	var offsets []int
	pos := start
	for pos+8 <= end {
		size := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		boxType := string(data[pos+4 : pos+8])
		payload := pos + 8

		boxEnd := pos + size
		switch {
		case size == 0:
			boxEnd = end // extends to end of enclosing box
		case size == 1:
			// Extended 64-bit size.
			if pos+16 > end {
				return offsets
			}
			size64 := binary.BigEndian.Uint64(data[pos+8 : pos+16])
			// A box cannot be smaller than its own 16-byte extended header.
			if size64 < 16 || size64 > uint64(end-pos) {
				return offsets
			}
			boxEnd = pos + int(size64)
			payload = pos + 16
		case size < 8:
			return offsets
		}
		if boxEnd > end || boxEnd <= pos {
			return offsets
		}

		if skip, isContainer := containerBoxes[boxType]; isContainer {
			if payload+skip <= boxEnd {
				offsets = append(offsets, scanBoxes(data, payload+skip, boxEnd, depth+1)...)
			}
		} else if boxType != "ftyp" && boxType != "free" {
			offsets = append(offsets, scanExifMarkers(data, payload, boxEnd)...)
		}

		pos = boxEnd
	}
	return offsets
}

// scanExifMarkers finds "Exif" identifiers in a leaf payload and returns the
// offsets of the TIFF headers that follow (an optional NUL pair sits between
// the identifier and the header).
func scanExifMarkers(data []byte, start, end int) []int {
	var offsets []int
	segment := data[start:end]
	for i := 0; ; {
		j := bytes.Index(segment[i:], markerExif[:4])
		if j < 0 {
			break
		}
		pos := i + j + 4
		if pos+2 <= len(segment) && segment[pos] == 0 && segment[pos+1] == 0 {
			pos += 2
		}
		offsets = append(offsets, start+pos)
		i = i + j + 4
	}
	return offsets
}

// validateCandidate checks the TIFF header at off: a byte-order marker
// followed by structural version 42 and a root directory offset. Candidates
// failing the check score zero and are excluded.
func validateCandidate(data []byte, off, end int, opts Options) (candidate, bool) {
	if end > len(data) {
		end = len(data)
	}
	if off < 0 || off+8 > end {
		return candidate{}, false
	}
	buf := data[off:end]

	var order binary.ByteOrder
	switch binary.BigEndian.Uint16(buf[:2]) {
	case byteOrderLittleEndian:
		order = binary.LittleEndian
	case byteOrderBigEndian:
		order = binary.BigEndian
	default:
		return candidate{}, false
	}
	if order.Uint16(buf[2:4]) != tiffVersion {
		return candidate{}, false
	}

	c := candidate{offset: off, order: order, buf: buf, score: 100}

	r := &tiffReader{buf: buf, order: order}
	root := r.u32(4)
	if !r.has(root, 2) {
		// Root offset out of bounds: structurally valid header but nothing
		// to walk. Keep the candidate at base score with no directories.
		return c, true
	}
	c.score += 10

	count := uint32(r.u16(root))
	if count > 0 && count <= uint32(opts.LimitEntries) {
		c.score += 10
	}

	c.dirs = walkDirectories(r, root, opts)
	for _, d := range c.dirs {
		for _, e := range d.entries {
			if _, err := decodeValue(e, order); err == nil {
				c.decodable++
			}
		}
	}
	return c, true
}
