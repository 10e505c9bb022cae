// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ovf

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriterStateMachine(t *testing.T) {
	dir := t.TempDir()

	w := NewWriter()
	require.ErrorIs(t, w.AppendWorkPlane(&WorkPlane{}), ErrInvalidState)
	require.ErrorIs(t, w.AppendVectorBlock(&VectorBlock{}), ErrInvalidState)
	require.ErrorIs(t, w.FinishWrite(), ErrInvalidState)

	require.NoError(t, w.StartWritePartial(&Job{JobID: "j"}, filepath.Join(dir, "a.ovf")))
	require.ErrorIs(t, w.StartWritePartial(&Job{}, filepath.Join(dir, "b.ovf")), ErrInvalidState)
	require.ErrorIs(t, w.AppendVectorBlock(&VectorBlock{}), ErrNoCurrentWorkPlane)

	require.NoError(t, w.AppendWorkPlane(&WorkPlane{}))
	require.NoError(t, w.AppendVectorBlock(&VectorBlock{MarkingParamsKey: 1}))
	require.NoError(t, w.FinishWrite())

	require.ErrorIs(t, w.FinishWrite(), ErrInvalidState)
}

func TestWriteFullJobMagicAndOffsetDiscipline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "magic.ovf")
	job := sampleJob()

	w := NewWriter()
	require.NoError(t, w.WriteFullJob(job, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(data), 12)

	// P6: magic bytes.
	require.Equal(t, []byte{0x4C, 0x56, 0x46, 0x21}, data[:4])

	// P5: job-LUT offset is > 12 and < file size.
	jobLutPos := int64(binary.LittleEndian.Uint64(data[4:12]))
	require.Greater(t, jobLutPos, int64(12))
	require.Less(t, jobLutPos, int64(len(data)))

	// I4/P5: each work-plane's LUT offset lies in [start+8, upper), where
	// upper is the next work-plane's start (or the job-shell position, for
	// the last one).
	reader := NewReader()
	var outJob Job
	require.NoError(t, reader.OpenFile(path, &outJob))
	defer reader.CloseFile()

	for i := 0; i < len(reader.jobLut.WorkPlanePositions); i++ {
		start, upper := reader.workPlaneRange(i)
		wpLutOffset := int64(binary.LittleEndian.Uint64(data[start : start+8]))
		require.GreaterOrEqual(t, wpLutOffset, start+8)
		require.Less(t, wpLutOffset, upper)
	}
}
