// Copyright 2025 The fastexif Authors
// SPDX-License-Identifier: MIT

// Package fastexif extracts and writes EXIF/TIFF-derived camera metadata from
// JPEG, TIFF-based RAW and ISO-BMFF (HEIF/HEIC, MP4) containers. Output field
// names and value formatting follow exiftool's conventions so that downstream
// consumers comparing output 1:1 see no divergence for supported fields.
package fastexif

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
)

// UnknownPrefix is used as prefix for tags not present in the name tables.
const UnknownPrefix = "UnknownTag_"

var (
	// ErrUnsupportedFormat is returned when the container cannot be classified.
	ErrUnsupportedFormat = fmt.Errorf("fastexif: unsupported format")

	// ErrUnsupportedWrite is returned by the write path for containers where
	// write-back is not implemented.
	ErrUnsupportedWrite = fmt.Errorf("fastexif: write not supported for this container")

	// Internal sentinel to bail out of the binary reader on truncated input.
	errStop = fmt.Errorf("stop")
)

// Options configures decoding.
type Options struct {
	// Warnf is called for recoverable parse problems (skipped entries,
	// implausible directories). Default is a no-op.
	Warnf func(format string, args ...any)

	// LimitEntries caps the number of entries accepted per directory.
	// Directories claiming more are treated as corrupt. Default 500.
	LimitEntries int
}

func (o *Options) applyDefaults() {
	if o.Warnf == nil {
		o.Warnf = func(string, ...any) {}
	}
	if o.LimitEntries == 0 {
		o.LimitEntries = maxDirEntries
	}
}

// Field is a single name/value pair in traversal order.
type Field struct {
	Name  string
	Value string
}

// Metadata is an ordered mapping from canonical field name to formatted value.
// Keys are unique; setting an existing key replaces the value in place.
type Metadata struct {
	keys   []string
	values map[string]string
}

// NewMetadata returns an empty Metadata.
func NewMetadata() *Metadata {
	return &Metadata{values: make(map[string]string)}
}

// Set adds or replaces a field. A replaced field keeps its original position.
func (m *Metadata) Set(name, value string) {
	if _, found := m.values[name]; !found {
		m.keys = append(m.keys, name)
	}
	m.values[name] = value
}

// Get returns the value for name and whether it is present.
func (m *Metadata) Get(name string) (string, bool) {
	v, ok := m.values[name]
	return v, ok
}

// Has reports whether name is present.
func (m *Metadata) Has(name string) bool {
	_, ok := m.values[name]
	return ok
}

// Len returns the number of fields.
func (m *Metadata) Len() int {
	return len(m.keys)
}

// Fields returns all fields in insertion order.
func (m *Metadata) Fields() []Field {
	fields := make([]Field, 0, len(m.keys))
	for _, k := range m.keys {
		fields = append(fields, Field{Name: k, Value: m.values[k]})
	}
	return fields
}

// MarshalJSON encodes the mapping as a JSON object in insertion order.
func (m *Metadata) MarshalJSON() ([]byte, error) {
	var buf []byte
	buf = append(buf, '{')
	for i, k := range m.keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, vb...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// ReadBytes extracts metadata from a complete container held in memory.
// A readable container that carries no metadata yields an empty Metadata,
// not an error.
func ReadBytes(data []byte) (*Metadata, error) {
	return DecodeBytes(data, Options{})
}

// ReadFile extracts metadata from the container at path.
func ReadFile(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "fastexif: read %s", path)
	}
	return ReadBytes(data)
}

// Read extracts metadata from r, which must provide the complete container.
func Read(r io.Reader) (*Metadata, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "fastexif: read")
	}
	return ReadBytes(data)
}

// DecodeBytes is ReadBytes with explicit options.
func DecodeBytes(data []byte, opts Options) (meta *Metadata, err error) {
	opts.applyDefaults()

	// The binary reader bails out of deeply nested parse state with a panic
	// on truncated input. Recover here so that adversarial buffers degrade
	// to fewer fields instead of crashing the caller.
	defer func() {
		if r := recover(); r != nil {
			if rerr, ok := r.(error); ok && rerr == errStop {
				if meta == nil {
					meta = NewMetadata()
				}
				return
			}
			panic(r)
		}
	}()

	kind, err := Sniff(data)
	if err != nil {
		return nil, err
	}

	cands := locateCandidates(data, kind, opts)
	return assemble(cands, opts), nil
}
