// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ovf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVectorBlockMarshalUnmarshalRoundTrip(t *testing.T) {
	vb := &VectorBlock{
		MarkingParamsKey: 7,
		MetaData:         map[string]string{"power": "200W"},
		Repeats:          3,
		Points:           []float32{0, 0, 1.5, -2.25, 3, 3},
	}
	data, err := vb.Marshal()
	require.NoError(t, err)

	got := &VectorBlock{}
	require.NoError(t, got.Unmarshal(data))
	require.Equal(t, vb, got)
}

func TestJobMarshalUnmarshalRoundTrip(t *testing.T) {
	job := sampleJob()
	data, err := job.Marshal()
	require.NoError(t, err)

	got := &Job{}
	require.NoError(t, got.Unmarshal(data))
	require.Equal(t, job, got)
}

func TestEncodeDecodeDelimitedRoundTrip(t *testing.T) {
	lut := &JobLUT{WorkPlanePositions: []int64{12, 512, 10000}, JobShellPosition: 20000}
	data, err := encodeDelimited(lut)
	require.NoError(t, err)

	got := &JobLUT{}
	consumed, err := decodeDelimited(data, got)
	require.NoError(t, err)
	require.Equal(t, len(data), consumed)
	require.Equal(t, lut, got)
}

func TestDecodeDelimitedConcatenatedRecords(t *testing.T) {
	a := &WorkPlaneLUT{VectorBlockPositions: []int64{20, 40}, WorkPlaneShellPosition: 60}
	b := &WorkPlaneLUT{VectorBlockPositions: []int64{1000}, WorkPlaneShellPosition: 2000}

	encA, err := encodeDelimited(a)
	require.NoError(t, err)
	encB, err := encodeDelimited(b)
	require.NoError(t, err)
	stream := append(append([]byte{}, encA...), encB...)

	gotA := &WorkPlaneLUT{}
	n, err := decodeDelimited(stream, gotA)
	require.NoError(t, err)
	require.Equal(t, a, gotA)

	gotB := &WorkPlaneLUT{}
	_, err = decodeDelimited(stream[n:], gotB)
	require.NoError(t, err)
	require.Equal(t, b, gotB)
}

func TestDecodeDelimitedTruncatedIsCorrupt(t *testing.T) {
	lut := &JobLUT{WorkPlanePositions: []int64{12}, JobShellPosition: 99}
	data, err := encodeDelimited(lut)
	require.NoError(t, err)

	got := &JobLUT{}
	_, err = decodeDelimited(data[:len(data)-1], got)
	require.ErrorIs(t, err, ErrCorrupt)
}
