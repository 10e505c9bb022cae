// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ovf

import "errors"

// Sentinel errors returned by the writer and reader. Callers should use
// errors.Is against these, since the concrete error returned is usually
// wrapped with additional context via fmt.Errorf("...: %w", ...).
var (
	// ErrNotOvf is returned by OpenFile when the first four bytes of a
	// file do not match the OVF magic bytes.
	ErrNotOvf = errors.New("ovf: not an OVF file (bad magic bytes)")

	// ErrCorrupt is returned when a file's job-LUT offset is zero or
	// negative, an offset in a LUT points outside of its expected range,
	// or the underlying codec fails to parse a length-delimited record.
	ErrCorrupt = errors.New("ovf: corrupt container")

	// ErrInvalidIndex is returned when a work-plane or vector-block index
	// is out of range.
	ErrInvalidIndex = errors.New("ovf: index out of range")

	// ErrNotOpen is returned by any reader query issued before OpenFile or
	// after CloseFile.
	ErrNotOpen = errors.New("ovf: no file open")

	// ErrInvalidState is returned when a writer method is called while
	// the writer's state machine is not in the state that method requires.
	ErrInvalidState = errors.New("ovf: writer method invalid in current state")

	// ErrNoCurrentWorkPlane is returned by AppendVectorBlock when no
	// work-plane has been buffered yet via AppendWorkPlane.
	ErrNoCurrentWorkPlane = errors.New("ovf: AppendVectorBlock called before AppendWorkPlane")
)
