// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ovf

import "encoding/binary"

// The two patched offsets in an OVF file (the job-LUT offset in the header
// and each work-plane's LUT offset) are raw signed 64-bit little-endian
// integers, independent of host byte order and independent of whatever
// wire encoding the message codec uses for payload bytes. These helpers
// keep that one spot in the format decoupled from the rest of the stack.

// putInt64LE writes v into buf (which must be at least 8 bytes) as a
// little-endian two's complement integer.
func putInt64LE(buf []byte, v int64) {
	binary.LittleEndian.PutUint64(buf, uint64(v))
}

// int64LE reads a little-endian two's complement integer from the first
// 8 bytes of buf.
func int64LE(buf []byte) int64 {
	return int64(binary.LittleEndian.Uint64(buf))
}

// appendInt64LE appends the little-endian encoding of v to buf and
// returns the extended slice.
func appendInt64LE(buf []byte, v int64) []byte {
	var tmp [8]byte
	putInt64LE(tmp[:], v)
	return append(buf, tmp[:]...)
}
