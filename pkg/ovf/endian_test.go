// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ovf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInt64LERoundTrip(t *testing.T) {
	cases := []int64{0, 1, -1, 12, 1 << 40, -(1 << 40)}
	for _, v := range cases {
		buf := make([]byte, 8)
		putInt64LE(buf, v)
		require.Equal(t, v, int64LE(buf))
	}
}

func TestAppendInt64LEIsLittleEndianRegardlessOfHost(t *testing.T) {
	buf := appendInt64LE(nil, 0x0102030405060708)
	require.Equal(t, []byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}, buf)
}
