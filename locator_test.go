// Copyright 2025 The fastexif Authors
// SPDX-License-Identifier: MIT

package fastexif

import (
	"encoding/binary"
	"testing"

	qt "github.com/frankban/quicktest"
)

// makeTestTIFF builds a little-endian TIFF block holding the given fields,
// reusing the writer's encoder.
func makeTestTIFF(c *qt.C, fields [][2]string) []byte {
	c.Helper()
	m := NewMetadata()
	for _, f := range fields {
		m.Set(f[0], f[1])
	}
	seg, err := buildExifSegment(m)
	c.Assert(err, qt.IsNil)
	return seg[4+len(markerExif):]
}

func makeBox(typ string, payload []byte) []byte {
	b := binary.BigEndian.AppendUint32(nil, uint32(8+len(payload)))
	b = append(b, typ...)
	return append(b, payload...)
}

func exifPayload(tiff []byte) []byte {
	return append([]byte("Exif\x00\x00"), tiff...)
}

func defaultOpts() Options {
	var opts Options
	opts.applyDefaults()
	return opts
}

func TestLocateCandidatesHEIF(t *testing.T) {
	c := qt.New(t)

	good := makeTestTIFF(c, [][2]string{{"Make", "GoodCam"}, {"ISO", "200"}})

	// Structurally invalid: right byte-order marker, wrong version.
	bad := append([]byte{}, good...)
	binary.LittleEndian.PutUint16(bad[2:4], 43)

	var data []byte
	data = append(data, makeBox("ftyp", []byte("heic\x00\x00\x00\x00heicmif1"))...)
	data = append(data, makeBox("mdat", exifPayload(bad))...)
	data = append(data, makeBox("mdat", exifPayload(good))...)

	kind, err := Sniff(data)
	c.Assert(err, qt.IsNil)
	c.Assert(kind, qt.Equals, KindBMFF)

	cands := locateCandidates(data, kind, defaultOpts())
	c.Assert(len(cands), qt.Equals, 1)

	m, err := DecodeBytes(data, Options{})
	c.Assert(err, qt.IsNil)
	got, _ := m.Get("Make")
	c.Assert(got, qt.Equals, "GoodCam")
}

func TestLocateCandidatesNestedBoxes(t *testing.T) {
	c := qt.New(t)

	tiff := makeTestTIFF(c, [][2]string{{"Model", "NestedCam"}})

	// meta is a FullBox: 4 version/flags bytes precede the child boxes.
	item := makeBox("iinf", makeBox("infe", exifPayload(tiff)))
	meta := makeBox("meta", append([]byte{0, 0, 0, 0}, item...))

	var data []byte
	data = append(data, makeBox("ftyp", []byte("heic\x00\x00\x00\x00"))...)
	data = append(data, meta...)

	m, err := DecodeBytes(data, Options{})
	c.Assert(err, qt.IsNil)
	model, _ := m.Get("Model")
	c.Assert(model, qt.Equals, "NestedCam")
}

func TestLocateCandidatesJPEGMultipleSegments(t *testing.T) {
	c := qt.New(t)

	good := makeTestTIFF(c, [][2]string{{"Make", "RealCam"}, {"Model", "X1"}, {"ISO", "100"}})
	bad := append([]byte{}, good...)
	bad[0], bad[1] = 'X', 'X' // no byte-order marker at all

	segment := func(tiff []byte) []byte {
		payload := exifPayload(tiff)
		seg := []byte{0xff, markerAPP1}
		seg = binary.BigEndian.AppendUint16(seg, uint16(2+len(payload)))
		return append(seg, payload...)
	}

	var data []byte
	data = append(data, 0xff, 0xd8)
	data = append(data, segment(bad)...)
	data = append(data, segment(good)...)
	data = append(data, 0xff, 0xd9)

	m, err := DecodeBytes(data, Options{})
	c.Assert(err, qt.IsNil)
	got, _ := m.Get("Make")
	c.Assert(got, qt.Equals, "RealCam")
}

func TestCandidateTieBreakDecodableEntries(t *testing.T) {
	c := qt.New(t)

	// Both candidates validate; the one with more decodable entries must be
	// selected regardless of discovery order.
	small := makeTestTIFF(c, [][2]string{{"Make", "Thumbnail"}})
	big := makeTestTIFF(c, [][2]string{{"Make", "Primary"}, {"Model", "Z9"}, {"ISO", "64"}})

	var data []byte
	data = append(data, makeBox("ftyp", []byte("heic\x00\x00\x00\x00"))...)
	data = append(data, makeBox("mdat", exifPayload(small))...)
	data = append(data, makeBox("mdat", exifPayload(big))...)

	cands := locateCandidates(data, KindBMFF, defaultOpts())
	c.Assert(len(cands), qt.Equals, 2)
	c.Assert(cands[0].decodable > cands[1].decodable, qt.IsTrue)

	m, err := DecodeBytes(data, Options{})
	c.Assert(err, qt.IsNil)
	got, _ := m.Get("Make")
	c.Assert(got, qt.Equals, "Primary")

	// The losing candidate still fills names the winner lacks, and Model is
	// only in the winner here.
	model, _ := m.Get("Model")
	c.Assert(model, qt.Equals, "Z9")
}

func TestLocateCandidatesTIFF(t *testing.T) {
	c := qt.New(t)

	tiff := makeTestTIFF(c, [][2]string{{"Make", "RawCam"}})
	cands := locateCandidates(tiff, KindTIFF, defaultOpts())
	c.Assert(len(cands), qt.Equals, 1)
	c.Assert(cands[0].offset, qt.Equals, 0)

	m, err := DecodeBytes(tiff, Options{})
	c.Assert(err, qt.IsNil)
	got, _ := m.Get("Make")
	c.Assert(got, qt.Equals, "RawCam")
}

func TestScanBoxesShortExtendedSize(t *testing.T) {
	c := qt.New(t)

	// An extended-size box (size field 1) whose 64-bit size is smaller than
	// its own 16-byte header declares a payload ending before it starts.
	// Reading must degrade to no candidates, never crash.
	var data []byte
	data = append(data, makeBox("ftyp", []byte("heic\x00\x00\x00\x00"))...)
	data = append(data, 0, 0, 0, 1)
	data = append(data, "mdat"...)
	data = append(data, 0, 0, 0, 0, 0, 0, 0, 8) // size64 inside the header

	m, err := ReadBytes(data)
	c.Assert(err, qt.IsNil)
	c.Assert(m.Len(), qt.Equals, 0)
}

func TestLocateCandidatesNone(t *testing.T) {
	c := qt.New(t)

	// A well-formed JPEG with no metadata segment reads as an empty map.
	data := []byte{0xff, 0xd8, 0xff, 0xd9}
	m, err := ReadBytes(data)
	c.Assert(err, qt.IsNil)
	c.Assert(m.Len(), qt.Equals, 0)
}
