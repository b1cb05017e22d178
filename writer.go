// Copyright 2025 The fastexif Authors
// SPDX-License-Identifier: MIT

package fastexif

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// HighPriorityFields is the default filter for CopyFields: timestamps,
// camera identity and the primary exposure parameters.
var HighPriorityFields = []string{
	"Make", "Model", "Software", "Orientation",
	"ModifyDate", "DateTimeOriginal", "CreateDate",
	"ExposureTime", "FNumber", "ISO", "ExposureCompensation",
	"FocalLength", "LensModel",
	"Artist", "Copyright",
	"GPSLatitude", "GPSLatitudeRef", "GPSLongitude", "GPSLongitudeRef",
}

type ifdFamily int

const (
	famRoot ifdFamily = iota
	famExif
	famGPS
)

type writeField struct {
	tag uint16
	typ exifType
	fam ifdFamily
}

// writeFields maps canonical field names to their wire encoding. Fields not
// listed here are skipped by the writer; the read path still reports them.
var writeFields = map[string]writeField{
	"ImageDescription": {0x10e, typeUnsignedASCII, famRoot},
	"Make":             {0x10f, typeUnsignedASCII, famRoot},
	"Model":            {0x110, typeUnsignedASCII, famRoot},
	"Orientation":      {0x112, typeUnsignedShort, famRoot},
	"XResolution":      {0x11a, typeUnsignedRat, famRoot},
	"YResolution":      {0x11b, typeUnsignedRat, famRoot},
	"ResolutionUnit":   {0x128, typeUnsignedShort, famRoot},
	"Software":         {0x131, typeUnsignedASCII, famRoot},
	"ModifyDate":       {0x132, typeUnsignedASCII, famRoot},
	"Artist":           {0x13b, typeUnsignedASCII, famRoot},
	"YCbCrPositioning": {0x213, typeUnsignedShort, famRoot},
	"Copyright":        {0x8298, typeUnsignedASCII, famRoot},

	"ExposureTime":            {0x829a, typeUnsignedRat, famExif},
	"FNumber":                 {0x829d, typeUnsignedRat, famExif},
	"ExposureProgram":         {0x8822, typeUnsignedShort, famExif},
	"ISO":                     {0x8827, typeUnsignedShort, famExif},
	"ExifVersion":             {0x9000, typeUndef, famExif},
	"DateTimeOriginal":        {0x9003, typeUnsignedASCII, famExif},
	"CreateDate":              {0x9004, typeUnsignedASCII, famExif},
	"OffsetTime":              {0x9010, typeUnsignedASCII, famExif},
	"OffsetTimeOriginal":      {0x9011, typeUnsignedASCII, famExif},
	"OffsetTimeDigitized":     {0x9012, typeUnsignedASCII, famExif},
	"ComponentsConfiguration": {0x9101, typeUndef, famExif},
	"CompressedBitsPerPixel":  {0x9102, typeUnsignedRat, famExif},
	"ShutterSpeedValue":       {0x9201, typeSignedRat, famExif},
	"ApertureValue":           {0x9202, typeUnsignedRat, famExif},
	"BrightnessValue":         {0x9203, typeSignedRat, famExif},
	"ExposureCompensation":    {0x9204, typeSignedRat, famExif},
	"MaxApertureValue":        {0x9205, typeUnsignedRat, famExif},
	"SubjectDistance":         {0x9206, typeUnsignedRat, famExif},
	"MeteringMode":            {0x9207, typeUnsignedShort, famExif},
	"LightSource":             {0x9208, typeUnsignedShort, famExif},
	"Flash":                   {0x9209, typeUnsignedShort, famExif},
	"FocalLength":             {0x920a, typeUnsignedRat, famExif},
	"UserComment":             {0x9286, typeUndef, famExif},
	"SubSecTime":              {0x9290, typeUnsignedASCII, famExif},
	"SubSecTimeOriginal":      {0x9291, typeUnsignedASCII, famExif},
	"SubSecTimeDigitized":     {0x9292, typeUnsignedASCII, famExif},
	"FlashpixVersion":         {0xa000, typeUndef, famExif},
	"ColorSpace":              {0xa001, typeUnsignedShort, famExif},
	"ExifImageWidth":          {0xa002, typeUnsignedLong, famExif},
	"ExifImageHeight":         {0xa003, typeUnsignedLong, famExif},

	"FocalPlaneXResolution":    {0xa20e, typeUnsignedRat, famExif},
	"FocalPlaneYResolution":    {0xa20f, typeUnsignedRat, famExif},
	"FocalPlaneResolutionUnit": {0xa210, typeUnsignedShort, famExif},
	"SensingMethod":            {0xa217, typeUnsignedShort, famExif},
	"CustomRendered":           {0xa401, typeUnsignedShort, famExif},
	"ExposureMode":             {0xa402, typeUnsignedShort, famExif},
	"WhiteBalance":             {0xa403, typeUnsignedShort, famExif},
	"DigitalZoomRatio":         {0xa404, typeUnsignedRat, famExif},
	"FocalLengthIn35mmFormat":  {0xa405, typeUnsignedShort, famExif},
	"SceneCaptureType":         {0xa406, typeUnsignedShort, famExif},
	"GainControl":              {0xa407, typeUnsignedShort, famExif},
	"Contrast":                 {0xa408, typeUnsignedShort, famExif},
	"Saturation":               {0xa409, typeUnsignedShort, famExif},
	"Sharpness":                {0xa40a, typeUnsignedShort, famExif},
	"SubjectDistanceRange":     {0xa40c, typeUnsignedShort, famExif},
	"ImageUniqueID":            {0xa420, typeUnsignedASCII, famExif},
	"OwnerName":                {0xa430, typeUnsignedASCII, famExif},
	"SerialNumber":             {0xa431, typeUnsignedASCII, famExif},
	"LensMake":                 {0xa433, typeUnsignedASCII, famExif},
	"LensModel":                {0xa434, typeUnsignedASCII, famExif},
	"LensSerialNumber":         {0xa435, typeUnsignedASCII, famExif},

	"GPSVersionID":       {0x0, typeUnsignedByte, famGPS},
	"GPSLatitudeRef":     {0x1, typeUnsignedASCII, famGPS},
	"GPSLatitude":        {0x2, typeUnsignedRat, famGPS},
	"GPSLongitudeRef":    {0x3, typeUnsignedASCII, famGPS},
	"GPSLongitude":       {0x4, typeUnsignedRat, famGPS},
	"GPSAltitudeRef":     {0x5, typeUnsignedByte, famGPS},
	"GPSAltitude":        {0x6, typeUnsignedRat, famGPS},
	"GPSTimeStamp":       {0x7, typeUnsignedRat, famGPS},
	"GPSSatellites":      {0x8, typeUnsignedASCII, famGPS},
	"GPSStatus":          {0x9, typeUnsignedASCII, famGPS},
	"GPSMapDatum":        {0x12, typeUnsignedASCII, famGPS},
	"GPSDestLatitude":    {0x14, typeUnsignedRat, famGPS},
	"GPSDestLongitude":   {0x16, typeUnsignedRat, famGPS},
	"GPSDateStamp":       {0x1d, typeUnsignedASCII, famGPS},
	"GPSDifferential":    {0x1e, typeUnsignedShort, famGPS},
}

const (
	tagExifIFDPointer = 0x8769
	tagGPSIFDPointer  = 0x8825

	// An APP1 segment length field is 16 bits and includes itself.
	maxSegmentPayload = 65533
)

// WriteBytes returns a copy of data with its metadata replaced by the fields
// in m. Existing metadata segments are stripped; the image payload is
// untouched. Only JPEG containers are writable.
func WriteBytes(data []byte, m *Metadata) ([]byte, error) {
	kind, err := Sniff(data)
	if err != nil {
		return nil, err
	}
	if kind != KindJPEG {
		return nil, ErrUnsupportedWrite
	}

	seg, err := buildExifSegment(m)
	if err != nil {
		return nil, err
	}
	return spliceJPEGSegment(data, seg), nil
}

// WriteFile reads the container at inPath, replaces its metadata with m and
// writes the result to outPath.
func WriteFile(inPath, outPath string, m *Metadata) error {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return errors.Wrapf(err, "fastexif: read %s", inPath)
	}
	out, err := WriteBytes(data, m)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return errors.Wrapf(err, "fastexif: write %s", outPath)
	}
	return nil
}

// CopyFields reads metadata from srcPath, keeps only the fields named in
// filter (nil means HighPriorityFields), and writes them into the container
// at dstPath, producing outPath.
func CopyFields(srcPath, dstPath, outPath string, filter []string) error {
	src, err := ReadFile(srcPath)
	if err != nil {
		return err
	}
	if filter == nil {
		filter = HighPriorityFields
	}

	m := NewMetadata()
	for _, name := range filter {
		if v, found := src.Get(name); found {
			m.Set(name, v)
		}
	}
	if m.Len() == 0 {
		return errors.Errorf("fastexif: no copyable fields in %s", srcPath)
	}
	return WriteFile(dstPath, outPath, m)
}

// wireEntry is one directory record ready for serialization: the payload is
// already in the output byte order.
type wireEntry struct {
	tag     uint16
	typ     exifType
	count   uint32
	payload []byte
}

// buildExifSegment encodes m into a complete APP1 segment: marker, length,
// "Exif\0\0" identifier and a little-endian TIFF block with IFD0 plus
// Exif and GPS sub-directories as needed.
func buildExifSegment(m *Metadata) ([]byte, error) {
	order := binary.LittleEndian

	var root, exifE, gps []wireEntry
	for _, f := range m.Fields() {
		def, found := writeFields[f.Name]
		if !found {
			continue
		}
		payload, count, ok := encodeWireValue(f.Name, def.typ, f.Value, order)
		if !ok {
			continue
		}
		e := wireEntry{tag: def.tag, typ: def.typ, count: count, payload: payload}
		switch def.fam {
		case famRoot:
			root = append(root, e)
		case famExif:
			exifE = append(exifE, e)
		case famGPS:
			gps = append(gps, e)
		}
	}
	if len(root)+len(exifE)+len(gps) == 0 {
		return nil, errors.New("fastexif: no writable fields")
	}

	tiff := buildTIFF(root, exifE, gps, order)

	payloadLen := len(markerExif) + len(tiff)
	if payloadLen > maxSegmentPayload-2 {
		return nil, errors.New("fastexif: metadata exceeds segment capacity")
	}

	seg := make([]byte, 0, 4+payloadLen)
	seg = append(seg, 0xff, markerAPP1)
	seg = binary.BigEndian.AppendUint16(seg, uint16(2+payloadLen))
	seg = append(seg, markerExif...)
	seg = append(seg, tiff...)
	return seg, nil
}

func dirSize(n int) int {
	return 2 + n*ifdEntrySize + 4
}

// valuesSize sums the out-of-line payload bytes for a directory, padded to
// 16-bit alignment.
func valuesSize(entries []wireEntry) int {
	var n int
	for _, e := range entries {
		if len(e.payload) > 4 {
			n += len(e.payload) + len(e.payload)%2
		}
	}
	return n
}

// buildTIFF lays out the header, directories and value areas and serializes
// them with all offsets resolved. Offsets are relative to the TIFF header.
func buildTIFF(root, exifE, gps []wireEntry, order binary.ByteOrder) []byte {
	sortEntries := func(entries []wireEntry) {
		sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })
	}

	// Pointer entries are part of IFD0 and must participate in layout before
	// their target offsets exist; the payloads are patched below.
	if len(exifE) > 0 {
		root = append(root, wireEntry{tag: tagExifIFDPointer, typ: typeUnsignedLong, count: 1, payload: make([]byte, 4)})
	}
	if len(gps) > 0 {
		root = append(root, wireEntry{tag: tagGPSIFDPointer, typ: typeUnsignedLong, count: 1, payload: make([]byte, 4)})
	}
	sortEntries(root)
	sortEntries(exifE)
	sortEntries(gps)

	rootOff := 8
	exifOff := rootOff + dirSize(len(root)) + valuesSize(root)
	gpsOff := exifOff
	if len(exifE) > 0 {
		gpsOff += dirSize(len(exifE)) + valuesSize(exifE)
	}

	for i := range root {
		switch root[i].tag {
		case tagExifIFDPointer:
			order.PutUint32(root[i].payload, uint32(exifOff))
		case tagGPSIFDPointer:
			order.PutUint32(root[i].payload, uint32(gpsOff))
		}
	}

	buf := make([]byte, 0, gpsOff+dirSize(len(gps))+valuesSize(gps))
	if order == binary.ByteOrder(binary.LittleEndian) {
		buf = append(buf, 'I', 'I')
	} else {
		buf = append(buf, 'M', 'M')
	}
	hdr := make([]byte, 6)
	order.PutUint16(hdr[:2], tiffVersion)
	order.PutUint32(hdr[2:], uint32(rootOff))
	buf = append(buf, hdr...)

	buf = appendDirectory(buf, root, rootOff, order)
	if len(exifE) > 0 {
		buf = appendDirectory(buf, exifE, exifOff, order)
	}
	if len(gps) > 0 {
		buf = appendDirectory(buf, gps, gpsOff, order)
	}
	return buf
}

// appendDirectory serializes one IFD at dirOff: entry count, records sorted
// by tag, a zero next-IFD offset, then the out-of-line value area.
func appendDirectory(buf []byte, entries []wireEntry, dirOff int, order binary.ByteOrder) []byte {
	var b2 [2]byte
	order.PutUint16(b2[:], uint16(len(entries)))
	buf = append(buf, b2[:]...)

	valOff := dirOff + dirSize(len(entries))
	var values []byte
	for _, e := range entries {
		var rec [ifdEntrySize]byte
		order.PutUint16(rec[0:2], e.tag)
		order.PutUint16(rec[2:4], uint16(e.typ))
		order.PutUint32(rec[4:8], e.count)
		if len(e.payload) <= 4 {
			copy(rec[8:], e.payload)
		} else {
			order.PutUint32(rec[8:12], uint32(valOff+len(values)))
			values = append(values, e.payload...)
			if len(e.payload)%2 == 1 {
				values = append(values, 0)
			}
		}
		buf = append(buf, rec[:]...)
	}

	var b4 [4]byte // next IFD: none
	buf = append(buf, b4[:]...)
	return append(buf, values...)
}

// spliceJPEGSegment strips every existing APP1/EXIF segment from data and
// inserts seg directly after the SOI marker.
func spliceJPEGSegment(data []byte, seg []byte) []byte {
	out := make([]byte, 0, len(data)+len(seg))
	out = append(out, data[:2]...) // SOI
	out = append(out, seg...)

	pos := 2
	for pos+4 <= len(data) {
		if data[pos] != 0xff {
			break
		}
		marker := data[pos+1]
		if marker == markerSOS || marker == 0x00 || marker == 0x01 || (marker >= 0xd0 && marker <= 0xd8) {
			break
		}
		length := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		if length < 2 || pos+2+length > len(data) {
			break
		}
		segEnd := pos + 2 + length
		if marker == markerAPP1 && len(data) >= pos+4+len(markerExif) &&
			string(data[pos+4:pos+4+len(markerExif)]) == string(markerExif) {
			pos = segEnd // drop the old metadata segment
			continue
		}
		out = append(out, data[pos:segEnd]...)
		pos = segEnd
	}
	return append(out, data[pos:]...)
}

// encodeWireValue turns a display string back into wire bytes for its
// declared type. Formatter transforms (APEX, unit suffixes, enum labels)
// are inverted per field name; unparsable values are skipped, not fatal.
func encodeWireValue(name string, typ exifType, value string, order binary.AppendByteOrder) (payload []byte, count uint32, ok bool) {
	switch name {
	case "FocalLength", "FocalLengthIn35mmFormat":
		value = strings.TrimSuffix(value, " mm")
	case "SubjectDistance", "GPSAltitude":
		value = strings.TrimSuffix(value, " m")
	case "ExposureCompensation", "BrightnessValue":
		value = strings.TrimPrefix(value, "+")
	case "ExposureTime":
		// Display form is already a rational or decimal.
	case "ShutterSpeedValue":
		secs, found := parseExposureSeconds(value)
		if !found || secs <= 0 {
			return nil, 0, false
		}
		value = formatDecimal(roundMicro(-math.Log2(secs)))
	case "ApertureValue", "MaxApertureValue":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f <= 0 {
			return nil, 0, false
		}
		value = formatDecimal(roundMicro(2 * math.Log2(f)))
	case "GPSVersionID":
		var b []byte
		for _, part := range strings.Split(value, ".") {
			n, err := strconv.ParseUint(part, 10, 8)
			if err != nil {
				return nil, 0, false
			}
			b = append(b, byte(n))
		}
		return b, uint32(len(b)), true
	case "GPSTimeStamp":
		parts := strings.Split(value, ":")
		if len(parts) != 3 {
			return nil, 0, false
		}
		var b []byte
		for _, part := range parts {
			n, err := strconv.ParseUint(part, 10, 32)
			if err != nil {
				return nil, 0, false
			}
			b = order.AppendUint32(b, uint32(n))
			b = order.AppendUint32(b, 1)
		}
		return b, 3, true
	case "ComponentsConfiguration":
		// Displayed as space-delimited byte values, stored raw.
		var b []byte
		for _, part := range strings.Fields(value) {
			n, err := strconv.ParseUint(part, 10, 8)
			if err != nil {
				return nil, 0, false
			}
			b = append(b, byte(n))
		}
		if len(b) == 0 {
			return nil, 0, false
		}
		return b, uint32(len(b)), true
	case "UserComment":
		b := append([]byte("ASCII\x00\x00\x00"), value...)
		return b, uint32(len(b)), true
	}

	switch typ {
	case typeUnsignedASCII:
		b := append([]byte(value), 0)
		return b, uint32(len(b)), true

	case typeUndef:
		return []byte(value), uint32(len(value)), true

	case typeUnsignedByte:
		n, found := parseWireInt(name, value)
		if !found || n < 0 || n > math.MaxUint8 {
			return nil, 0, false
		}
		return []byte{byte(n)}, 1, true

	case typeUnsignedShort:
		n, found := parseWireInt(name, value)
		if !found || n < 0 || n > math.MaxUint16 {
			return nil, 0, false
		}
		return order.AppendUint16(nil, uint16(n)), 1, true

	case typeUnsignedLong:
		n, found := parseWireInt(name, value)
		if !found || n < 0 || n > math.MaxUint32 {
			return nil, 0, false
		}
		return order.AppendUint32(nil, uint32(n)), 1, true

	case typeUnsignedRat:
		num, den, found := parseRationalString(value)
		if !found {
			return nil, 0, false
		}
		b := order.AppendUint32(nil, num)
		return order.AppendUint32(b, den), 1, true

	case typeSignedRat:
		num, den, found := parseSRationalString(value)
		if !found {
			return nil, 0, false
		}
		b := order.AppendUint32(nil, uint32(num))
		return order.AppendUint32(b, uint32(den)), 1, true
	}
	return nil, 0, false
}

// parseWireInt parses plain integers; everything enum-labeled goes through
// the reverse table first, including the "Unknown (N)" passthrough form.
func parseWireInt(name, value string) (int64, bool) {
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n, true
	}
	if labels, found := enumLabels[name]; found {
		for code, label := range labels {
			if label == value {
				return code, true
			}
		}
		var n int64
		if _, err := fmt.Sscanf(value, "Unknown (%d)", &n); err == nil {
			return n, true
		}
	}
	return 0, false
}

func parseRationalString(s string) (num, den uint32, ok bool) {
	if n, d, found := splitFraction(s); found {
		if n < 0 || d < 0 {
			return 0, 0, false
		}
		return uint32(n), uint32(d), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0, 0, false
	}
	if f == math.Trunc(f) && f <= math.MaxUint32 {
		return uint32(f), 1, true
	}
	return uint32(math.Round(f * 1e6)), 1e6, true
}

func parseSRationalString(s string) (num, den int32, ok bool) {
	if n, d, found := splitFraction(s); found {
		return int32(n), int32(d), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, 0, false
	}
	if f == math.Trunc(f) && math.Abs(f) <= math.MaxInt32 {
		return int32(f), 1, true
	}
	return int32(math.Round(f * 1e6)), 1e6, true
}

func splitFraction(s string) (num, den int64, ok bool) {
	i := strings.IndexByte(s, '/')
	if i < 0 {
		return 0, 0, false
	}
	n, err := strconv.ParseInt(s[:i], 10, 32)
	if err != nil {
		return 0, 0, false
	}
	d, err := strconv.ParseInt(s[i+1:], 10, 32)
	if err != nil {
		return 0, 0, false
	}
	return n, d, true
}

func parseExposureSeconds(s string) (float64, bool) {
	if n, d, found := splitFraction(s); found {
		if d == 0 {
			return 0, false
		}
		return float64(n) / float64(d), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// roundMicro keeps six decimal places so APEX round-trips are stable.
func roundMicro(f float64) float64 {
	return math.Round(f*1e6) / 1e6
}
