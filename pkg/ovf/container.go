// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ovf reads and writes the Open Vector Format (OVF): a
// random-access binary container for additive-manufacturing jobs. A Job
// holds job-level metadata plus an ordered sequence of WorkPlanes; each
// WorkPlane holds metadata plus an ordered sequence of VectorBlocks.
//
// The container is laid out so that any single work-plane or vector
// block can be located and parsed without scanning the whole file: two
// levels of look-up tables (LUTs) record absolute byte offsets, and the
// two offsets that cannot be known until the data after them has been
// written (the job-LUT offset and each work-plane's LUT offset) are
// left as placeholders and patched in place once their target position
// is known.
package ovf

// magicBytes identifies a file as OVF. They are the first four bytes of
// every valid container.
var magicBytes = [4]byte{0x4C, 0x56, 0x46, 0x21} // "LVF!"

// kDefaultLutOffset is written in place of the job-LUT offset while its
// real value is still unknown. A file whose header still carries this
// sentinel at close time is partially written or corrupt.
const kDefaultLutOffset int64 = 0

// headerSize is the number of bytes occupied by the fixed-size file
// header: magic bytes followed by the patched job-LUT offset.
const headerSize = 4 + 8

// workPlaneLutOffsetSize is the size in bytes of the placeholder/patched
// WorkPlaneLUT offset at the start of every WorkPlaneBlock.
const workPlaneLutOffsetSize = 8
