// Copyright 2025 The fastexif Authors
// SPDX-License-Identifier: MIT

package fastexif

import (
	"encoding/binary"
)

const (
	byteOrderBigEndian    = 0x4d4d
	byteOrderLittleEndian = 0x4949
	tiffVersion           = 42

	// Directories claiming more entries than this are treated as corrupt.
	maxDirEntries = 500

	// Depth cap for sub-IFD recursion; real files nest two levels deep.
	maxIFDDepth = 8

	ifdEntrySize = 12
)

// exifType represents the basic TIFF tag data types.
type exifType uint16

const (
	typeUnsignedByte  exifType = 1
	typeUnsignedASCII exifType = 2
	typeUnsignedShort exifType = 3
	typeUnsignedLong  exifType = 4
	typeUnsignedRat   exifType = 5
	typeSignedByte    exifType = 6
	typeUndef         exifType = 7
	typeSignedShort   exifType = 8
	typeSignedLong    exifType = 9
	typeSignedRat     exifType = 10
)

// Size in bytes of each type.
var typeSize = map[exifType]uint32{
	typeUnsignedByte:  1,
	typeUnsignedASCII: 1,
	typeUnsignedShort: 2,
	typeUnsignedLong:  4,
	typeUnsignedRat:   8,
	typeSignedByte:    1,
	typeUndef:         1,
	typeSignedShort:   2,
	typeSignedLong:    4,
	typeSignedRat:     8,
}

// Sub-IFD pointer tags. Their LONG value is the offset of another directory
// relative to the TIFF header, not a plain tag value.
var subIFDPointers = map[uint16]string{
	0x8769: "ExifIFD",
	0x8825: "GPSInfoIFD",
	0xa005: "InteropIFD",
}

// tiffReader reads integers out of a candidate-relative buffer. All offsets
// inside a directory structure are relative to the TIFF header at buf[0].
type tiffReader struct {
	buf   []byte
	order binary.ByteOrder
}

func (r *tiffReader) has(off, n uint32) bool {
	end := uint64(off) + uint64(n)
	return end <= uint64(len(r.buf))
}

// Out-of-range reads bail out with errStop, recovered at the API boundary.
// The walker checks bounds before reading so these fire only on misuse.
func (r *tiffReader) u16(off uint32) uint16 {
	if !r.has(off, 2) {
		panic(errStop)
	}
	return r.order.Uint16(r.buf[off : off+2])
}

func (r *tiffReader) u32(off uint32) uint32 {
	if !r.has(off, 4) {
		panic(errStop)
	}
	return r.order.Uint32(r.buf[off : off+4])
}

// rawEntry is a single 12-byte directory record with its value bytes resolved.
// data is always fully within the candidate buffer.
type rawEntry struct {
	tag   uint16
	typ   exifType
	count uint32
	data  []byte
}

// directory is one walked IFD with its namespace path, e.g. "IFD0/GPSInfoIFD".
type directory struct {
	name    string
	entries []rawEntry
}

// isGPS reports whether the directory uses the GPS tag-numbering space,
// which overlaps numerically with the main EXIF space.
func (d directory) isGPS() bool {
	return hasSuffix(d.name, "GPSInfoIFD")
}

func (d directory) isInterop() bool {
	return hasSuffix(d.name, "InteropIFD")
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

// walkDirectories parses the root IFD at rootOffset and every reachable
// sub-IFD and next-IFD in traversal order. Corrupt structure degrades the
// result: entries walked so far are kept, the rest is skipped.
func walkDirectories(r *tiffReader, rootOffset uint32, opts Options) []directory {
	var dirs []directory
	visited := make(map[uint32]bool)

	var walk func(offset uint32, name string, depth int)
	walk = func(offset uint32, name string, depth int) {
		if depth > maxIFDDepth || visited[offset] {
			return
		}
		visited[offset] = true

		entries, subdirs, next := walkOne(r, offset, opts)
		if entries == nil && len(subdirs) == 0 {
			return
		}
		dirs = append(dirs, directory{name: name, entries: entries})

		for _, sd := range subdirs {
			walk(sd.offset, name+"/"+sd.name, depth+1)
		}
		// Next-IFD chain: IFD0 -> IFD1 (thumbnail) and so on. Only followed
		// at the root level; sub-IFDs do not chain in practice.
		if next != 0 && depth == 0 {
			walk(next, nextIFDName(name), depth+1)
		}
	}

	walk(rootOffset, "IFD0", 0)
	return dirs
}

func nextIFDName(name string) string {
	if name == "IFD0" {
		return "IFD1"
	}
	return name + "+"
}

type subdirRef struct {
	name   string
	offset uint32
}

// walkOne parses a single IFD: a 2-byte entry count followed by count 12-byte
// records, then a 4-byte offset of the next IFD in the chain. Implausible
// counts and out-of-bounds records are skipped, never fatal.
func walkOne(r *tiffReader, offset uint32, opts Options) (entries []rawEntry, subdirs []subdirRef, next uint32) {
	if !r.has(offset, 2) {
		opts.Warnf("ifd: directory offset %#x out of bounds", offset)
		return nil, nil, 0
	}
	count := uint32(r.u16(offset))
	if count == 0 || count > uint32(opts.LimitEntries) {
		opts.Warnf("ifd: implausible entry count %d at %#x", count, offset)
		return nil, nil, 0
	}

	for i := uint32(0); i < count; i++ {
		rec := offset + 2 + i*ifdEntrySize
		if !r.has(rec, ifdEntrySize) {
			// Truncated directory: keep what we have.
			opts.Warnf("ifd: directory at %#x truncated after %d entries", offset, i)
			return entries, subdirs, 0
		}

		tag := r.u16(rec)
		typ := exifType(r.u16(rec + 2))
		valCount := r.u32(rec + 4)

		if name, isPointer := subIFDPointers[tag]; isPointer {
			subdirs = append(subdirs, subdirRef{name: name, offset: r.u32(rec + 8)})
			continue
		}

		size, known := typeSize[typ]
		if !known {
			opts.Warnf("ifd: tag %#04x has unsupported type %d, skipping", tag, typ)
			continue
		}
		valLen := uint64(size) * uint64(valCount)

		var data []byte
		if valLen <= 4 {
			// Inline: the value lives in the record's last 4 bytes,
			// byte-order significant.
			data = r.buf[rec+8 : rec+8+uint32(valLen)]
		} else {
			valOff := r.u32(rec + 8)
			if valLen > uint64(len(r.buf)) || !r.has(valOff, uint32(valLen)) {
				opts.Warnf("ifd: tag %#04x value range out of bounds, skipping", tag)
				continue
			}
			data = r.buf[valOff : uint64(valOff)+valLen]
		}

		entries = append(entries, rawEntry{tag: tag, typ: typ, count: valCount, data: data})
	}

	nextOff := offset + 2 + count*ifdEntrySize
	if r.has(nextOff, 4) {
		next = r.u32(nextOff)
	}
	return entries, subdirs, next
}
