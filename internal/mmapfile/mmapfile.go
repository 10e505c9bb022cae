// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package mmapfile opens a read-only file and hands out zero-copy views
// over arbitrary byte ranges of it, backed by the OS's memory-mapping
// facility. It exists so that a random-access reader over a multi-
// gigabyte file never needs to read the whole file, or even a whole
// work-plane, into a Go-managed buffer before it can parse a few bytes
// out of it.
package mmapfile

import (
	"fmt"
	"os"
)

// Mapping owns an open file handle suitable for creating views. It does
// not itself hold any mapped memory; each View call creates and owns an
// independent OS mapping, so a View outlives a Close of the Mapping it
// was created from (mirroring how munmap/dropping a mapping on POSIX
// does not invalidate mappings created from the same descriptor).
type Mapping struct {
	file *os.File
	size int64
}

// Open opens path read-only and stats it. It fails if the OS cannot open
// the file.
func Open(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &Mapping{file: f, size: info.Size()}, nil
}

// FileSize returns the size of the underlying file as observed at Open
// time.
func (m *Mapping) FileSize() int64 {
	return m.size
}

// Close releases the Mapping's own file handle. Outstanding Views remain
// valid; they hold independent references to the mapped pages.
func (m *Mapping) Close() error {
	if m == nil || m.file == nil {
		return nil
	}
	return m.file.Close()
}

// View is a read-only window over [offset, offset+size) of the mapped
// file. Data always starts at the requested offset regardless of the
// page-alignment the OS required underneath.
type View struct {
	raw    []byte // the full, page-aligned OS mapping
	offset int    // data() = raw[offset:]
}

// Data returns the bytes requested by View, starting exactly at the
// requested offset.
func (v *View) Data() []byte {
	return v.raw[v.offset:]
}

// Size returns the number of bytes available via Data, which is always
// >= the min_size requested when the view was created.
func (v *View) Size() int64 {
	return int64(len(v.raw) - v.offset)
}

// Close unmaps the view's pages. Views must be closed; they are not
// finalized automatically.
func (v *View) Close() error {
	if v == nil || v.raw == nil {
		return nil
	}
	err := munmapRegion(v.raw)
	v.raw = nil
	return err
}

// View grants read access to at least minSize bytes starting at the
// absolute offset. When minSize == 0, the view runs to EOF.
func (m *Mapping) View(offset, minSize int64) (*View, error) {
	if offset < 0 || offset > m.size {
		return nil, fmt.Errorf("mmapfile: offset %d out of range [0, %d]", offset, m.size)
	}
	if minSize == 0 {
		minSize = m.size - offset
	}
	if minSize < 0 || offset+minSize > m.size {
		return nil, fmt.Errorf("mmapfile: range [%d, %d) exceeds file size %d", offset, offset+minSize, m.size)
	}
	if minSize == 0 {
		return &View{raw: []byte{}, offset: 0}, nil
	}

	granularity := int64(allocationGranularity())
	aligned := offset - offset%granularity
	delta := offset - aligned
	length := minSize + delta

	raw, err := mmapRegion(m.file, aligned, length)
	if err != nil {
		return nil, fmt.Errorf("mmapfile: mmap failed: %w", err)
	}
	return &View{raw: raw, offset: int(delta)}, nil
}
