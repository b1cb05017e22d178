// Copyright 2025 The fastexif Authors
// SPDX-License-Identifier: MIT

package fastexif

import (
	"encoding/binary"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestReaderBailout(t *testing.T) {
	c := qt.New(t)
	r := &tiffReader{buf: []byte{0x01, 0x02, 0x03}, order: binary.LittleEndian}

	c.Assert(r.u16(1), qt.Equals, uint16(0x0302))

	// Out-of-range reads bail out with the stop sentinel, not a slice panic.
	c.Assert(func() { r.u16(2) }, qt.PanicMatches, `stop`)
	c.Assert(func() { r.u32(0) }, qt.PanicMatches, `stop`)
	c.Assert(func() { r.u32(0xfffffffd) }, qt.PanicMatches, `stop`)
}

func TestWalkDirectoriesTruncated(t *testing.T) {
	c := qt.New(t)

	// A directory claiming 3 entries but truncated after the first keeps
	// the entries walked so far.
	tiff := makeTestTIFF(c, [][2]string{{"Make", "Um"}}) // short enough to inline
	buf := append([]byte{}, tiff[:2+2+4+2+ifdEntrySize]...)
	binary.LittleEndian.PutUint16(buf[8:10], 3)
	r := &tiffReader{buf: buf, order: binary.LittleEndian}

	dirs := walkDirectories(r, 8, defaultOpts())
	c.Assert(len(dirs), qt.Equals, 1)
	c.Assert(len(dirs[0].entries), qt.Equals, 1)
	c.Assert(dirs[0].entries[0].tag, qt.Equals, uint16(0x10f))
}
