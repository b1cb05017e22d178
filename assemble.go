// Copyright 2025 The fastexif Authors
// SPDX-License-Identifier: MIT

package fastexif

import "encoding/binary"

// Camera identity fields that only the root directory of the selected
// candidate may set. Thumbnail directories repeat them with junk values
// (Orientation of the thumbnail, resolution of the preview) and must not
// clobber the real ones.
var rootAuthoritative = map[string]bool{
	"Make":             true,
	"Model":            true,
	"Orientation":      true,
	"ModifyDate":       true,
	"Software":         true,
	"Artist":           true,
	"Copyright":        true,
	"ImageDescription": true,
	"XResolution":      true,
	"YResolution":      true,
	"ResolutionUnit":   true,
}

// assemble folds ranked candidates into a single field map. The selected
// (best) candidate contributes first and owns every name it sets; lower
// ranked candidates only fill names still missing. Field order follows
// directory walk order of the selected candidate.
func assemble(cands []candidate, opts Options) *Metadata {
	m := NewMetadata()
	if len(cands) == 0 {
		return m
	}

	m.Set("ExifByteOrder", byteOrderName(cands[0].order))

	foldCandidate(m, cands[0], true, opts)
	for _, c := range cands[1:] {
		foldCandidate(m, c, false, opts)
	}
	return m
}

func byteOrderName(order binary.ByteOrder) string {
	if order == binary.LittleEndian {
		return "Little-endian (Intel, II)"
	}
	return "Big-endian (Motorola, MM)"
}

// foldCandidate decodes and formats every entry of every directory in c.
// Within the selected candidate, a later directory overwrites an earlier
// one's value for the same name, except for rootAuthoritative names already
// set by the root directory. Secondary candidates never overwrite.
func foldCandidate(m *Metadata, c candidate, selected bool, opts Options) {
	for _, dir := range c.dirs {
		isRoot := dir.name == "IFD0"
		for _, e := range dir.entries {
			v, err := decodeValue(e, c.order)
			if err != nil {
				opts.Warnf("%s: tag 0x%04x: %v", dir.name, e.tag, err)
				continue
			}
			name, display := formatEntry(dir, e, v, c.order)
			if !selected {
				if m.Has(name) {
					continue
				}
			} else if !isRoot && rootAuthoritative[name] && m.Has(name) {
				continue
			}
			m.Set(name, display)
		}
	}
}
