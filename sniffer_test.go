// Copyright 2025 The fastexif Authors
// SPDX-License-Identifier: MIT

package fastexif

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestSniff(t *testing.T) {
	c := qt.New(t)

	for _, tc := range []struct {
		name string
		data []byte
		want ContainerKind
	}{
		{"JPEG", []byte{0xff, 0xd8, 0xff, 0xe0}, KindJPEG},
		{"TIFFLittle", []byte{'I', 'I', 0x2a, 0x00, 0x08, 0x00, 0x00, 0x00}, KindTIFF},
		{"TIFFBig", []byte{'M', 'M', 0x00, 0x2a, 0x00, 0x00, 0x00, 0x08}, KindTIFF},
		{"BMFF", []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'h', 'e', 'i', 'c'}, KindBMFF},
	} {
		c.Run(tc.name, func(c *qt.C) {
			kind, err := Sniff(tc.data)
			c.Assert(err, qt.IsNil)
			c.Assert(kind, qt.Equals, tc.want)
		})
	}

	c.Run("Unknown", func(c *qt.C) {
		kind, err := Sniff([]byte("not an image at all"))
		c.Assert(err, qt.Equals, ErrUnsupportedFormat)
		c.Assert(kind, qt.Equals, KindUnknown)
	})

	c.Run("Truncated", func(c *qt.C) {
		for _, data := range [][]byte{nil, {}, {0xff}, {'I'}, {0, 0, 0, 8}} {
			_, err := Sniff(data)
			c.Assert(err, qt.Equals, ErrUnsupportedFormat)
		}
	})

	c.Run("Stringer", func(c *qt.C) {
		c.Assert(KindJPEG.String(), qt.Equals, "JPEG")
		c.Assert(KindTIFF.String(), qt.Equals, "TIFF")
		c.Assert(KindBMFF.String(), qt.Equals, "ISO-BMFF")
		c.Assert(KindUnknown.String(), qt.Equals, "Unknown")
	})
}
