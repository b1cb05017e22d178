// Copyright 2025 The fastexif Authors
// SPDX-License-Identifier: MIT

package fastexif

import "bytes"

// ContainerKind identifies the outer file format embedding the metadata.
type ContainerKind int

const (
	// KindUnknown means the sniffer could not classify the buffer.
	KindUnknown ContainerKind = iota
	// KindJPEG is a JPEG stream with APPn marker segments.
	KindJPEG
	// KindTIFF is a TIFF header at offset 0, including TIFF-based RAW
	// variants (DNG, CR2, NEF, ARW and friends).
	KindTIFF
	// KindBMFF is an ISO Base Media File Format box container
	// (HEIF/HEIC/AVIF, MP4/MOV).
	KindBMFF
)

func (k ContainerKind) String() string {
	switch k {
	case KindJPEG:
		return "JPEG"
	case KindTIFF:
		return "TIFF"
	case KindBMFF:
		return "ISO-BMFF"
	default:
		return "Unknown"
	}
}

var (
	magicTIFFLittle = []byte{'I', 'I', 0x2a, 0x00}
	magicTIFFBig    = []byte{'M', 'M', 0x00, 0x2a}
	boxFtyp         = []byte("ftyp")
)

// Sniff classifies data by magic bytes, never by file extension.
// Truncated input returns ErrUnsupportedFormat, it never panics.
func Sniff(data []byte) (ContainerKind, error) {
	if len(data) >= 2 && data[0] == 0xff && data[1] == 0xd8 {
		return KindJPEG, nil
	}
	if len(data) >= 4 {
		if bytes.Equal(data[:4], magicTIFFLittle) || bytes.Equal(data[:4], magicTIFFBig) {
			return KindTIFF, nil
		}
	}
	// ISO-BMFF starts with a 4-byte box size followed by "ftyp".
	if len(data) >= 8 && bytes.Equal(data[4:8], boxFtyp) {
		return KindBMFF, nil
	}
	return KindUnknown, ErrUnsupportedFormat
}
