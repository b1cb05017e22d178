// Copyright 2025 The fastexif Authors
// SPDX-License-Identifier: MIT

package fastexif

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// formatEntry maps a decoded entry to its canonical field name and exiftool
// compatible display string. It is deterministic: identical input always
// yields the identical string.
func formatEntry(dir directory, e rawEntry, v TypedValue, order binary.ByteOrder) (string, string) {
	name := fieldName(dir, e.tag)

	if f, found := valueFormatters[name]; found {
		if s, ok := f(v, order); ok {
			return name, s
		}
	}

	if labels, found := enumLabels[name]; found {
		if n, ok := firstInt(v); ok {
			if label, known := labels[n]; known {
				return name, label
			}
			return name, fmt.Sprintf("Unknown (%d)", n)
		}
	}

	return name, defaultDisplay(name, v)
}

type valueFormatter func(v TypedValue, order binary.ByteOrder) (string, bool)

// Per-field formatters for everything that is not a plain enum or a default
// rendering: APEX conversions, unit-bearing rationals and version blobs.
var valueFormatters = map[string]valueFormatter{
	"ExposureTime": func(v TypedValue, _ binary.ByteOrder) (string, bool) {
		f, ok := ratFloat(v)
		if !ok {
			return "", false
		}
		return formatExposureTime(f), true
	},
	"FNumber": func(v TypedValue, _ binary.ByteOrder) (string, bool) {
		f, ok := ratFloat(v)
		if !ok {
			return "", false
		}
		return fmt.Sprintf("%.1f", f), true
	},
	// ShutterSpeedValue is APEX: exposure_time = 2^(-apex).
	"ShutterSpeedValue": func(v TypedValue, _ binary.ByteOrder) (string, bool) {
		f, ok := ratFloat(v)
		if !ok {
			return "", false
		}
		return formatExposureTime(math.Pow(2, -f)), true
	},
	// ApertureValue is APEX: f_number = 2^(apex/2).
	"ApertureValue":    formatAPEXAperture,
	"MaxApertureValue": formatAPEXAperture,
	// BrightnessValue and ExposureCompensation are linear in APEX (EV) units.
	"BrightnessValue": func(v TypedValue, _ binary.ByteOrder) (string, bool) {
		f, ok := ratFloat(v)
		if !ok {
			return "", false
		}
		return fmt.Sprintf("%.2f", f), true
	},
	"ExposureCompensation": func(v TypedValue, _ binary.ByteOrder) (string, bool) {
		f, ok := ratFloat(v)
		if !ok {
			return "", false
		}
		return printFraction(f), true
	},
	"FocalLength": func(v TypedValue, _ binary.ByteOrder) (string, bool) {
		f, ok := ratFloat(v)
		if !ok {
			return "", false
		}
		return fmt.Sprintf("%.1f mm", f), true
	},
	"FocalLengthIn35mmFormat": func(v TypedValue, _ binary.ByteOrder) (string, bool) {
		if n, ok := firstInt(v); ok {
			return fmt.Sprintf("%d mm", n), true
		}
		f, ok := ratFloat(v)
		if !ok {
			return "", false
		}
		return fmt.Sprintf("%.0f mm", f), true
	},
	"SubjectDistance": func(v TypedValue, _ binary.ByteOrder) (string, bool) {
		f, ok := ratFloat(v)
		if !ok {
			return "", false
		}
		return fmt.Sprintf("%.2f m", f), true
	},
	"DigitalZoomRatio": func(v TypedValue, _ binary.ByteOrder) (string, bool) {
		f, ok := ratFloat(v)
		if !ok {
			return "", false
		}
		if f == 1 {
			return "1", true
		}
		return formatDecimal(f), true
	},
	// Resolution-like fields are conventionally plain numbers.
	"XResolution":            formatRatDecimal,
	"YResolution":            formatRatDecimal,
	"FocalPlaneXResolution":  formatRatDecimal,
	"FocalPlaneYResolution":  formatRatDecimal,
	"CompressedBitsPerPixel": formatRatDecimal,

	"ExifVersion":     formatVersion,
	"FlashpixVersion": formatVersion,
	"InteropVersion":  formatVersion,
	"GPSVersionID": func(v TypedValue, _ binary.ByteOrder) (string, bool) {
		if v.Kind != typeUnsignedByte && v.Kind != typeUndef {
			return "", false
		}
		parts := make([]string, len(v.Bytes))
		for i, b := range v.Bytes {
			parts[i] = strconv.Itoa(int(b))
		}
		return strings.Join(parts, "."), true
	},

	"GPSLatitude":      formatDegrees,
	"GPSLongitude":     formatDegrees,
	"GPSDestLatitude":  formatDegrees,
	"GPSDestLongitude": formatDegrees,
	"GPSTimeStamp": func(v TypedValue, _ binary.ByteOrder) (string, bool) {
		if v.Kind != typeUnsignedRat || len(v.Rats) != 3 {
			return "", false
		}
		for _, r := range v.Rats {
			if r.Den == 0 {
				return "", false
			}
		}
		return fmt.Sprintf("%02d:%02d:%02d",
			v.Rats[0].Num/v.Rats[0].Den, v.Rats[1].Num/v.Rats[1].Den, v.Rats[2].Num/v.Rats[2].Den), true
	},
	"GPSAltitude": func(v TypedValue, _ binary.ByteOrder) (string, bool) {
		f, ok := ratFloat(v)
		if !ok {
			return "", false
		}
		return formatDecimal(f) + " m", true
	},

	"UserComment": func(v TypedValue, _ binary.ByteOrder) (string, bool) {
		if v.Kind != typeUndef {
			return "", false
		}
		// The first 8 bytes declare the character set.
		b := v.Bytes
		if len(b) >= 8 {
			b = b[8:]
		}
		return printableString(string(trimTrailingNulls(b))), true
	},
	"MakerNote": func(v TypedValue, _ binary.ByteOrder) (string, bool) {
		return fmt.Sprintf("(Binary data %d bytes)", len(v.Bytes)), true
	},
	"ComponentsConfiguration": func(v TypedValue, _ binary.ByteOrder) (string, bool) {
		if v.Kind != typeUndef {
			return "", false
		}
		return bytesSpaceDelim(v.Bytes), true
	},
}

func formatAPEXAperture(v TypedValue, _ binary.ByteOrder) (string, bool) {
	f, ok := ratFloat(v)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%.1f", math.Pow(2, f/2)), true
}

func formatRatDecimal(v TypedValue, _ binary.ByteOrder) (string, bool) {
	f, ok := ratFloat(v)
	if !ok {
		return "", false
	}
	return formatDecimal(f), true
}

// formatVersion interprets a 4-byte version blob as ASCII digit bytes in the
// container's declared byte order, e.g. 0x30 0x32 0x32 0x30 -> "0220".
func formatVersion(v TypedValue, order binary.ByteOrder) (string, bool) {
	var b []byte
	switch v.Kind {
	case typeUndef, typeUnsignedByte, typeUnsignedASCII:
		if v.Kind == typeUnsignedASCII {
			b = []byte(v.ASCII)
		} else {
			b = v.Bytes
		}
	case typeUnsignedLong:
		if len(v.Longs) != 1 {
			return "", false
		}
		// Stored as an integer: re-serialize in the declared byte order to
		// recover the original digit bytes.
		b = make([]byte, 4)
		order.PutUint32(b, v.Longs[0])
	default:
		return "", false
	}
	var sb strings.Builder
	for _, c := range b {
		if c >= 0x20 && c <= 0x7e {
			sb.WriteByte(c)
		}
	}
	if sb.Len() == 0 {
		return "", false
	}
	return sb.String(), true
}

// formatDegrees sums a degrees/minutes/seconds triple into a decimal. Some
// writers store the coordinate as a single pre-scaled rational; accept that
// too.
func formatDegrees(v TypedValue, _ binary.ByteOrder) (string, bool) {
	if v.Kind != typeUnsignedRat || len(v.Rats) == 0 || len(v.Rats) > 3 {
		return "", false
	}
	for _, r := range v.Rats {
		if r.Den == 0 {
			return "", false
		}
	}
	deg := v.Rats[0].Float64()
	if len(v.Rats) > 1 {
		deg += v.Rats[1].Float64() / 60
	}
	if len(v.Rats) > 2 {
		deg += v.Rats[2].Float64() / 3600
	}
	return formatDecimal(deg), true
}

// Fixed label tables, keyed by canonical field name. Codes missing from a
// table render as "Unknown (N)".
var enumLabels = map[string]map[int64]string{
	"Orientation": {
		1: "Horizontal (normal)", 2: "Mirror horizontal", 3: "Rotate 180", 4: "Mirror vertical",
		5: "Mirror horizontal and rotate 270 CW", 6: "Rotate 90 CW",
		7: "Mirror horizontal and rotate 90 CW", 8: "Rotate 270 CW",
	},
	"ResolutionUnit":           {1: "None", 2: "inches", 3: "cm"},
	"FocalPlaneResolutionUnit": {1: "None", 2: "inches", 3: "cm"},
	"YCbCrPositioning":         {1: "Centered", 2: "Co-sited"},
	"ExposureProgram": {
		0: "Not Defined", 1: "Manual", 2: "Program AE", 3: "Aperture-priority AE",
		4: "Shutter-priority AE", 5: "Creative (Slow speed)", 6: "Action (High speed)",
		7: "Portrait", 8: "Landscape",
	},
	"MeteringMode": {
		0: "Unknown", 1: "Average", 2: "Center-weighted average", 3: "Spot",
		4: "Multi-spot", 5: "Multi-segment", 6: "Partial", 255: "Other",
	},
	"LightSource": {
		0: "Unknown", 1: "Daylight", 2: "Fluorescent", 3: "Tungsten (Incandescent)", 4: "Flash",
		9: "Fine Weather", 10: "Cloudy", 11: "Shade", 12: "Daylight Fluorescent",
		13: "Day White Fluorescent", 14: "Cool White Fluorescent", 15: "White Fluorescent",
		17: "Standard Light A", 18: "Standard Light B", 19: "Standard Light C",
		20: "D55", 21: "D65", 22: "D75", 23: "D50", 24: "ISO Studio Tungsten", 255: "Other",
	},
	"Flash": {
		0x00: "No Flash", 0x01: "Fired", 0x05: "Fired, Return not detected",
		0x07: "Fired, Return detected", 0x08: "On, Did not fire", 0x09: "On, Fired",
		0x0d: "On, Return not detected", 0x0f: "On, Return detected",
		0x10: "Off, Did not fire", 0x18: "Auto, Did not fire", 0x19: "Auto, Fired",
		0x1d: "Auto, Fired, Return not detected", 0x1f: "Auto, Fired, Return detected",
		0x20: "No flash function", 0x41: "Fired, Red-eye reduction",
		0x45: "Fired, Red-eye reduction, Return not detected",
		0x47: "Fired, Red-eye reduction, Return detected",
		0x49: "On, Red-eye reduction",
		0x4d: "On, Red-eye reduction, Return not detected",
		0x4f: "On, Red-eye reduction, Return detected",
		0x59: "Auto, Fired, Red-eye reduction",
		0x5d: "Auto, Fired, Red-eye reduction, Return not detected",
		0x5f: "Auto, Fired, Red-eye reduction, Return detected",
	},
	"ColorSpace":       {1: "sRGB", 2: "Adobe RGB", 65533: "Wide Gamut RGB", 65534: "ICC Profile", 65535: "Uncalibrated"},
	"CustomRendered":   {0: "Normal", 1: "Custom"},
	"ExposureMode":     {0: "Auto", 1: "Manual", 2: "Auto bracket"},
	"WhiteBalance":     {0: "Auto", 1: "Manual"},
	"SceneCaptureType": {0: "Standard", 1: "Landscape", 2: "Portrait", 3: "Night"},
	"GainControl": {
		0: "None", 1: "Low gain up", 2: "High gain up", 3: "Low gain down", 4: "High gain down",
	},
	"Contrast":   {0: "Normal", 1: "Low", 2: "High"},
	"Saturation": {0: "Normal", 1: "Low", 2: "High"},
	"Sharpness":  {0: "Normal", 1: "Soft", 2: "Hard"},
	"SubjectDistanceRange": {
		0: "Unknown", 1: "Macro", 2: "Close", 3: "Distant",
	},
	"SensingMethod": {
		1: "Not defined", 2: "One-chip color area", 3: "Two-chip color area",
		4: "Three-chip color area", 5: "Color sequential area", 7: "Trilinear",
		8: "Color sequential linear",
	},
	"GPSAltitudeRef":  {0: "Above Sea Level", 1: "Below Sea Level"},
	"GPSDifferential": {0: "No Correction", 1: "Differential Corrected"},
}

// defaultDisplay renders values that have no field-specific rule.
func defaultDisplay(name string, v TypedValue) string {
	switch v.Kind {
	case typeUnsignedASCII:
		return printableString(v.ASCII)
	case typeUnsignedByte, typeSignedByte, typeUndef:
		b := trimTrailingNulls(v.Bytes)
		if len(b) > 32 {
			return fmt.Sprintf("(Binary data %d bytes)", len(v.Bytes))
		}
		if isPrintableASCII(b) && len(b) > 0 {
			return printableString(string(b))
		}
		return bytesSpaceDelim(b)
	case typeUnsignedShort:
		return intsSpaceDelim(len(v.Shorts), func(i int) int64 { return int64(v.Shorts[i]) })
	case typeSignedShort:
		return intsSpaceDelim(len(v.SShorts), func(i int) int64 { return int64(v.SShorts[i]) })
	case typeUnsignedLong:
		return intsSpaceDelim(len(v.Longs), func(i int) int64 { return int64(v.Longs[i]) })
	case typeSignedLong:
		return intsSpaceDelim(len(v.SLongs), func(i int) int64 { return int64(v.SLongs[i]) })
	case typeUnsignedRat:
		parts := make([]string, len(v.Rats))
		for i, r := range v.Rats {
			parts[i] = r.String()
		}
		return strings.Join(parts, " ")
	case typeSignedRat:
		parts := make([]string, len(v.SRats))
		for i, r := range v.SRats {
			parts[i] = r.String()
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}

// ratFloat extracts a single rational as float64. A zero denominator reports
// !ok so the caller falls back to the raw "n/0" sentinel display.
func ratFloat(v TypedValue) (float64, bool) {
	switch v.Kind {
	case typeUnsignedRat:
		if len(v.Rats) != 1 || v.Rats[0].Den == 0 {
			return 0, false
		}
		return v.Rats[0].Float64(), true
	case typeSignedRat:
		if len(v.SRats) != 1 || v.SRats[0].Den == 0 {
			return 0, false
		}
		return v.SRats[0].Float64(), true
	default:
		return 0, false
	}
}

// firstInt extracts a single integer value of any integral kind.
func firstInt(v TypedValue) (int64, bool) {
	switch v.Kind {
	case typeUnsignedByte, typeUndef:
		if len(v.Bytes) == 1 {
			return int64(v.Bytes[0]), true
		}
	case typeUnsignedShort:
		if len(v.Shorts) == 1 {
			return int64(v.Shorts[0]), true
		}
	case typeSignedShort:
		if len(v.SShorts) == 1 {
			return int64(v.SShorts[0]), true
		}
	case typeUnsignedLong:
		if len(v.Longs) == 1 {
			return int64(v.Longs[0]), true
		}
	case typeSignedLong:
		if len(v.SLongs) == 1 {
			return int64(v.SLongs[0]), true
		}
	}
	return 0, false
}

// formatExposureTime renders seconds the way exiftool's PrintExposureTime
// does: fast exposures as a 1/N fraction, slow ones as a decimal.
func formatExposureTime(secs float64) string {
	if secs > 0 && secs < 0.25001 {
		return fmt.Sprintf("1/%d", int(0.5+1/secs))
	}
	s := fmt.Sprintf("%.1f", secs)
	return strings.TrimSuffix(s, ".0")
}

// printFraction renders EV-style values the way exiftool's PrintFraction
// does: signed integers, halves and thirds, otherwise three decimals.
func printFraction(f float64) string {
	val := f * 1.00001 // avoid round-off errors
	switch {
	case val == 0:
		return "0"
	case math.Abs(math.Trunc(val)/val) > 0.999:
		return fmt.Sprintf("%+d", int(math.Trunc(val)))
	case math.Abs(math.Trunc(val*2)/(val*2)) > 0.999:
		return fmt.Sprintf("%+d/2", int(math.Trunc(val*2)))
	case math.Abs(math.Trunc(val*3)/(val*3)) > 0.999:
		return fmt.Sprintf("%+d/3", int(math.Trunc(val*3)))
	default:
		return fmt.Sprintf("%+.3f", val)
	}
}

func formatDecimal(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func bytesSpaceDelim(b []byte) string {
	parts := make([]string, len(b))
	for i, c := range b {
		parts[i] = strconv.Itoa(int(c))
	}
	return strings.Join(parts, " ")
}

func intsSpaceDelim(n int, at func(int) int64) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = strconv.FormatInt(at(i), 10)
	}
	return strings.Join(parts, " ")
}

func printableString(s string) string {
	ss := strings.Map(func(r rune) rune {
		if unicode.IsGraphic(r) || r == ' ' {
			return r
		}
		return -1
	}, s)
	return strings.TrimSpace(ss)
}

func isPrintableASCII(b []byte) bool {
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}

func trimTrailingNulls(b []byte) []byte {
	for len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return b
}
