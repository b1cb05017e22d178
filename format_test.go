// Copyright 2025 The fastexif Authors
// SPDX-License-Identifier: MIT

package fastexif

import (
	"encoding/binary"
	"testing"

	qt "github.com/frankban/quicktest"
)

func ratValue(num, den uint32) TypedValue {
	return TypedValue{Kind: typeUnsignedRat, Rats: []Rational{{Num: num, Den: den}}}
}

func sratValue(num, den int32) TypedValue {
	return TypedValue{Kind: typeSignedRat, SRats: []SRational{{Num: num, Den: den}}}
}

func shortValue(n uint16) TypedValue {
	return TypedValue{Kind: typeUnsignedShort, Shorts: []uint16{n}}
}

func TestFormatEntry(t *testing.T) {
	c := qt.New(t)
	le := binary.ByteOrder(binary.LittleEndian)
	exifDir := directory{name: "IFD0/ExifIFD"}

	format := func(dir directory, tag uint16, v TypedValue) string {
		_, s := formatEntry(dir, rawEntry{tag: tag, typ: v.Kind}, v, le)
		return s
	}

	c.Run("ExposureTime", func(c *qt.C) {
		c.Assert(format(exifDir, 0x829a, ratValue(1, 3200)), qt.Equals, "1/3200")
		c.Assert(format(exifDir, 0x829a, ratValue(30, 1)), qt.Equals, "30")
		c.Assert(format(exifDir, 0x829a, ratValue(5, 10)), qt.Equals, "0.5")
	})

	c.Run("ZeroDenominatorSentinel", func(c *qt.C) {
		// 0/0 must fall through to the raw rational display, never NaN.
		c.Assert(format(exifDir, 0x829a, ratValue(0, 0)), qt.Equals, "0/0")
		c.Assert(format(exifDir, 0x829d, ratValue(28, 0)), qt.Equals, "28/0")
	})

	c.Run("APEX", func(c *qt.C) {
		// Aperture APEX 4 -> f/4.0, shutter speed APEX 10 -> 2^-10 s.
		c.Assert(format(exifDir, 0x9202, ratValue(4, 1)), qt.Equals, "4.0")
		c.Assert(format(exifDir, 0x9201, sratValue(10, 1)), qt.Equals, "1/1024")
		c.Assert(format(exifDir, 0x9205, ratValue(97347, 32768)), qt.Equals, "2.8")
	})

	c.Run("ExposureCompensation", func(c *qt.C) {
		c.Assert(format(exifDir, 0x9204, sratValue(0, 1)), qt.Equals, "0")
		c.Assert(format(exifDir, 0x9204, sratValue(1, 3)), qt.Equals, "+1/3")
		c.Assert(format(exifDir, 0x9204, sratValue(-1, 2)), qt.Equals, "-1/2")
		c.Assert(format(exifDir, 0x9204, sratValue(2, 1)), qt.Equals, "+2")
	})

	c.Run("Version", func(c *qt.C) {
		v := TypedValue{Kind: typeUndef, Bytes: []byte{0x30, 0x32, 0x32, 0x30}}
		c.Assert(format(exifDir, 0x9000, v), qt.Equals, "0220")

		// Some writers store the digits as a LONG; the declared byte order
		// recovers them.
		long := TypedValue{Kind: typeUnsignedLong, Longs: []uint32{binary.LittleEndian.Uint32([]byte("0221"))}}
		c.Assert(format(exifDir, 0x9000, long), qt.Equals, "0221")
	})

	c.Run("Enums", func(c *qt.C) {
		ifd0 := directory{name: "IFD0"}
		c.Assert(format(ifd0, 0x112, shortValue(1)), qt.Equals, "Horizontal (normal)")
		c.Assert(format(ifd0, 0x112, shortValue(6)), qt.Equals, "Rotate 90 CW")
		c.Assert(format(exifDir, 0x9207, shortValue(5)), qt.Equals, "Multi-segment")
		c.Assert(format(exifDir, 0x9207, shortValue(99)), qt.Equals, "Unknown (99)")
		c.Assert(format(exifDir, 0x9209, shortValue(0x19)), qt.Equals, "Auto, Fired")
	})

	c.Run("Units", func(c *qt.C) {
		c.Assert(format(exifDir, 0x920a, ratValue(35, 1)), qt.Equals, "35.0 mm")
		c.Assert(format(exifDir, 0xa405, shortValue(36)), qt.Equals, "36 mm")
		c.Assert(format(exifDir, 0x829d, ratValue(28, 10)), qt.Equals, "2.8")
	})

	c.Run("GPS", func(c *qt.C) {
		gps := directory{name: "IFD0/GPSInfoIFD"}
		dms := TypedValue{Kind: typeUnsignedRat, Rats: []Rational{{43, 1}, {30, 1}, {0, 1}}}
		c.Assert(format(gps, 0x2, dms), qt.Equals, "43.5")

		ts := TypedValue{Kind: typeUnsignedRat, Rats: []Rational{{14, 1}, {5, 1}, {9, 1}}}
		c.Assert(format(gps, 0x7, ts), qt.Equals, "14:05:09")

		ver := TypedValue{Kind: typeUnsignedByte, Bytes: []byte{2, 3, 0, 0}}
		c.Assert(format(gps, 0x0, ver), qt.Equals, "2.3.0.0")
	})

	c.Run("UnknownTag", func(c *qt.C) {
		name, _ := formatEntry(exifDir, rawEntry{tag: 0xbeef, typ: typeUnsignedShort}, shortValue(7), le)
		c.Assert(name, qt.Equals, "UnknownTag_BEEF")
	})

	c.Run("Idempotent", func(c *qt.C) {
		v := ratValue(1, 3200)
		_, first := formatEntry(exifDir, rawEntry{tag: 0x829a, typ: v.Kind}, v, le)
		_, second := formatEntry(exifDir, rawEntry{tag: 0x829a, typ: v.Kind}, v, le)
		c.Assert(first, qt.Equals, second)
	})
}

func TestPrintFraction(t *testing.T) {
	c := qt.New(t)
	c.Assert(printFraction(0), qt.Equals, "0")
	c.Assert(printFraction(1), qt.Equals, "+1")
	c.Assert(printFraction(-2), qt.Equals, "-2")
	c.Assert(printFraction(0.5), qt.Equals, "+1/2")
	c.Assert(printFraction(1.0/3), qt.Equals, "+1/3")
	c.Assert(printFraction(-2.0/3), qt.Equals, "-2/3")
	c.Assert(printFraction(0.7), qt.Equals, "+0.700")
}

func TestFormatExposureTime(t *testing.T) {
	c := qt.New(t)
	c.Assert(formatExposureTime(0.0003125), qt.Equals, "1/3200")
	c.Assert(formatExposureTime(0.25), qt.Equals, "1/4")
	c.Assert(formatExposureTime(0.3), qt.Equals, "0.3")
	c.Assert(formatExposureTime(30), qt.Equals, "30")
	c.Assert(formatExposureTime(2.5), qt.Equals, "2.5")
}

func TestPrintableString(t *testing.T) {
	c := qt.New(t)
	c.Assert(printableString("Hello, World!"), qt.Equals, "Hello, World!")
	c.Assert(printableString("  padded  "), qt.Equals, "padded")
	c.Assert(printableString("nul\x00byte"), qt.Equals, "nulbyte")
}

func BenchmarkFormatEntry(b *testing.B) {
	dir := directory{name: "IFD0/ExifIFD"}
	e := rawEntry{tag: 0x829a, typ: typeUnsignedRat}
	v := ratValue(1, 3200)
	for i := 0; i < b.N; i++ {
		_, _ = formatEntry(dir, e, v, binary.LittleEndian)
	}
}
