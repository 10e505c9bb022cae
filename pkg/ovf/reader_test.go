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

func writeSampleFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, NewWriter().WriteFullJob(sampleJob(), path))
	return path
}

func TestOpenFileCorruptionDetection(t *testing.T) {
	dir := t.TempDir()

	t.Run("truncated footer", func(t *testing.T) {
		path := writeSampleFile(t, dir, "truncated.ovf")
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, data[:len(data)-8], 0o644))

		var job Job
		err = NewReader().OpenFile(path, &job)
		require.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("bad magic", func(t *testing.T) {
		path := writeSampleFile(t, dir, "badmagic.ovf")
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		data[0] ^= 0xFF
		require.NoError(t, os.WriteFile(path, data, 0o644))

		var job Job
		err = NewReader().OpenFile(path, &job)
		require.ErrorIs(t, err, ErrNotOvf)
	})

	t.Run("zeroed job-LUT offset", func(t *testing.T) {
		path := writeSampleFile(t, dir, "zerolut.ovf")
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		binary.LittleEndian.PutUint64(data[4:12], 0)
		require.NoError(t, os.WriteFile(path, data, 0o644))

		var job Job
		err = NewReader().OpenFile(path, &job)
		require.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("too small to hold a header", func(t *testing.T) {
		path := filepath.Join(dir, "tiny.ovf")
		require.NoError(t, os.WriteFile(path, []byte{0x4C, 0x56, 0x46}, 0o644))

		var job Job
		err := NewReader().OpenFile(path, &job)
		require.ErrorIs(t, err, ErrCorrupt)
	})
}

func TestQueriesFailBeforeOpenAndAfterClose(t *testing.T) {
	r := NewReader()
	var wp WorkPlane
	var vb VectorBlock
	require.ErrorIs(t, r.GetWorkPlane(0, &wp), ErrNotOpen)
	require.ErrorIs(t, r.GetWorkPlaneShell(0, &wp), ErrNotOpen)
	require.ErrorIs(t, r.GetVectorBlock(0, 0, &vb), ErrNotOpen)
	require.ErrorIs(t, r.CacheFullJob(), ErrNotOpen)
	require.ErrorIs(t, r.CacheWorkPlaneShells(), ErrNotOpen)
	require.ErrorIs(t, r.ClearCache(), ErrNotOpen)
	require.False(t, r.IsFileOpen())

	path := writeSampleFile(t, t.TempDir(), "sample.ovf")
	var job Job
	require.NoError(t, r.OpenFile(path, &job))
	require.True(t, r.IsFileOpen())
	require.NoError(t, r.CloseFile())
	require.NoError(t, r.CloseFile()) // idempotent

	require.ErrorIs(t, r.GetWorkPlane(0, &wp), ErrNotOpen)
	require.False(t, r.IsFileOpen())
}

func TestEmptyJobRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.ovf")
	require.NoError(t, NewWriter().WriteFullJob(&Job{}, path))

	r := NewReader()
	var job Job
	require.NoError(t, r.OpenFile(path, &job))
	defer r.CloseFile()

	require.True(t, r.IsFileOpen())
	require.Equal(t, int32(0), job.NumWorkPlanes)

	var wp WorkPlane
	require.ErrorIs(t, r.GetWorkPlane(0, &wp), ErrInvalidIndex)
	var vb VectorBlock
	require.ErrorIs(t, r.GetVectorBlock(0, 0, &vb), ErrInvalidIndex)
}
