// Copyright 2025 The fastexif Authors
// SPDX-License-Identifier: MIT

package fastexif

import (
	"encoding/binary"
	"testing"

	qt "github.com/frankban/quicktest"
)

func asciiEntry(tag uint16, s string) rawEntry {
	data := append([]byte(s), 0)
	return rawEntry{tag: tag, typ: typeUnsignedASCII, count: uint32(len(data)), data: data}
}

func shortEntry(tag uint16, v uint16) rawEntry {
	return rawEntry{tag: tag, typ: typeUnsignedShort, count: 1, data: binary.LittleEndian.AppendUint16(nil, v)}
}

func TestAssembleRootAuthoritative(t *testing.T) {
	c := qt.New(t)

	// The thumbnail directory repeats Orientation with a junk value; the
	// root's value must survive the fold.
	cand := candidate{
		order: binary.LittleEndian,
		dirs: []directory{
			{name: "IFD0", entries: []rawEntry{
				asciiEntry(0x110, "Primary Cam"),
				shortEntry(0x112, 1),
			}},
			{name: "IFD1", entries: []rawEntry{
				shortEntry(0x112, 6),
				shortEntry(0x213, 2),
			}},
		},
	}

	m := assemble([]candidate{cand}, defaultOpts())

	orientation, _ := m.Get("Orientation")
	c.Assert(orientation, qt.Equals, "Horizontal (normal)")

	// Non-authoritative names are fair game for later directories.
	pos, _ := m.Get("YCbCrPositioning")
	c.Assert(pos, qt.Equals, "Co-sited")

	model, _ := m.Get("Model")
	c.Assert(model, qt.Equals, "Primary Cam")
}

func TestAssembleSecondaryFillsGapsOnly(t *testing.T) {
	c := qt.New(t)

	selected := candidate{
		order: binary.LittleEndian,
		dirs: []directory{
			{name: "IFD0", entries: []rawEntry{asciiEntry(0x10f, "RealMake")}},
		},
	}
	secondary := candidate{
		order: binary.LittleEndian,
		dirs: []directory{
			{name: "IFD0", entries: []rawEntry{
				asciiEntry(0x10f, "StaleMake"),
				asciiEntry(0x131, "OldEditor 1.0"),
			}},
		},
	}

	m := assemble([]candidate{selected, secondary}, defaultOpts())

	got, _ := m.Get("Make")
	c.Assert(got, qt.Equals, "RealMake")

	// Software only exists in the secondary candidate and fills in.
	software, _ := m.Get("Software")
	c.Assert(software, qt.Equals, "OldEditor 1.0")
}

func TestAssembleByteOrderField(t *testing.T) {
	c := qt.New(t)

	le := candidate{order: binary.LittleEndian, dirs: []directory{
		{name: "IFD0", entries: []rawEntry{asciiEntry(0x10f, "A")}},
	}}
	m := assemble([]candidate{le}, defaultOpts())

	order, found := m.Get("ExifByteOrder")
	c.Assert(found, qt.IsTrue)
	c.Assert(order, qt.Equals, "Little-endian (Intel, II)")
	c.Assert(m.Fields()[0].Name, qt.Equals, "ExifByteOrder")

	be := candidate{order: binary.BigEndian, dirs: nil}
	m = assemble([]candidate{be}, defaultOpts())
	order, _ = m.Get("ExifByteOrder")
	c.Assert(order, qt.Equals, "Big-endian (Motorola, MM)")
}

func TestAssembleEmpty(t *testing.T) {
	c := qt.New(t)
	m := assemble(nil, defaultOpts())
	c.Assert(m.Len(), qt.Equals, 0)
}
