// Copyright 2025 The fastexif Authors
// SPDX-License-Identifier: MIT

package fastexif

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var (
	errUnsupportedType = fmt.Errorf("fastexif: unsupported tag type")
	errTruncatedValue  = fmt.Errorf("fastexif: truncated tag value")
)

// Rational is an unsigned numerator/denominator pair. A zero denominator is
// preserved as read; interpreting it is the formatter's business.
type Rational struct {
	Num, Den uint32
}

// Float64 returns the quotient. Den == 0 yields +Inf (or NaN for 0/0).
func (r Rational) Float64() float64 {
	return float64(r.Num) / float64(r.Den)
}

func (r Rational) String() string {
	if r.Den == 1 {
		return fmt.Sprintf("%d", r.Num)
	}
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// SRational is the signed counterpart of Rational.
type SRational struct {
	Num, Den int32
}

func (r SRational) Float64() float64 {
	return float64(r.Num) / float64(r.Den)
}

func (r SRational) String() string {
	if r.Den == 1 {
		return fmt.Sprintf("%d", r.Num)
	}
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// TypedValue is the decoded form of one directory entry: a tagged union over
// the ten TIFF value types. Exactly the slice matching Kind is populated;
// consumers switch on Kind.
type TypedValue struct {
	Kind exifType

	Bytes   []byte // typeUnsignedByte, typeSignedByte, typeUndef
	ASCII   string // typeUnsignedASCII
	Shorts  []uint16
	Longs   []uint32
	Rats    []Rational
	SShorts []int16
	SLongs  []int32
	SRats   []SRational
}

// decodeValue converts a raw entry into a TypedValue per its declared type.
// It is pure: failures affect only this entry, never the directory.
func decodeValue(e rawEntry, order binary.ByteOrder) (TypedValue, error) {
	size, known := typeSize[e.typ]
	if !known {
		return TypedValue{}, errUnsupportedType
	}
	if uint64(len(e.data)) < uint64(size)*uint64(e.count) {
		return TypedValue{}, errTruncatedValue
	}

	v := TypedValue{Kind: e.typ}
	n := int(e.count)

	switch e.typ {
	case typeUnsignedByte, typeSignedByte, typeUndef:
		v.Bytes = e.data[:n]
	case typeUnsignedASCII:
		v.ASCII = decodeASCII(e.data[:n])
	case typeUnsignedShort:
		v.Shorts = make([]uint16, n)
		for i := range v.Shorts {
			v.Shorts[i] = order.Uint16(e.data[i*2:])
		}
	case typeSignedShort:
		v.SShorts = make([]int16, n)
		for i := range v.SShorts {
			v.SShorts[i] = int16(order.Uint16(e.data[i*2:]))
		}
	case typeUnsignedLong:
		v.Longs = make([]uint32, n)
		for i := range v.Longs {
			v.Longs[i] = order.Uint32(e.data[i*4:])
		}
	case typeSignedLong:
		v.SLongs = make([]int32, n)
		for i := range v.SLongs {
			v.SLongs[i] = int32(order.Uint32(e.data[i*4:]))
		}
	case typeUnsignedRat:
		v.Rats = make([]Rational, n)
		for i := range v.Rats {
			v.Rats[i] = Rational{
				Num: order.Uint32(e.data[i*8:]),
				Den: order.Uint32(e.data[i*8+4:]),
			}
		}
	case typeSignedRat:
		v.SRats = make([]SRational, n)
		for i := range v.SRats {
			v.SRats[i] = SRational{
				Num: int32(order.Uint32(e.data[i*8:])),
				Den: int32(order.Uint32(e.data[i*8+4:])),
			}
		}
	}

	return v, nil
}

// decodeASCII trims a single trailing NUL and decodes permissively: buffers
// that are not valid UTF-8 are reinterpreted as Latin-1, which maps every
// byte, so string decoding never fails a file.
func decodeASCII(b []byte) string {
	if len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	if utf8.Valid(b) {
		return string(b)
	}
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		// Latin-1 has no invalid input; keep the raw bytes if it ever does.
		return string(b)
	}
	return string(s)
}
