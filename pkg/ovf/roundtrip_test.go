// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ovf

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildIncremental constructs the same job as buildFullJob(n, m) but via
// StartWritePartial/AppendWorkPlane/AppendVectorBlock/FinishWrite.
func buildIncremental(t *testing.T, path string, n, m int) {
	t.Helper()
	job := buildFullJob(n, m)

	w := NewWriter()
	shell := cloneExcluding(job, "work_planes").(*Job)
	require.NoError(t, w.StartWritePartial(shell, path))
	for _, wp := range job.WorkPlanes {
		wpShell := cloneExcluding(wp, "vector_blocks").(*WorkPlane)
		require.NoError(t, w.AppendWorkPlane(wpShell))
		for _, vb := range wp.VectorBlocks {
			require.NoError(t, w.AppendVectorBlock(vb))
		}
	}
	require.NoError(t, w.FinishWrite())
}

// buildFullJob builds a deterministic job with n work-planes of m vector
// blocks each, every vector block carrying distinct field values so a
// structural mismatch after round-tripping is easy to spot.
func buildFullJob(n, m int) *Job {
	job := &Job{JobID: "multi-plane-job", JobMetaData: map[string]string{"material": "AlSi10Mg"}}
	for i := 0; i < n; i++ {
		wp := &WorkPlane{WorkPlaneNumber: int32(i), ZPosInMM: float32(i) * 0.03}
		for j := 0; j < m; j++ {
			wp.VectorBlocks = append(wp.VectorBlocks, &VectorBlock{
				MarkingParamsKey: int32(i*100 + j),
				Repeats:          int32(j + 1),
				Points:           []float32{float32(i), float32(j), float32(i + j)},
			})
		}
		job.WorkPlanes = append(job.WorkPlanes, wp)
	}
	return job
}

// TestRoundTripStructuralEquality is P1: read(write(J)) == J structurally.
func TestRoundTripStructuralEquality(t *testing.T) {
	job := buildFullJob(2, 3)
	path := filepath.Join(t.TempDir(), "p1.ovf")
	require.NoError(t, NewWriter().WriteFullJob(job, path))

	r := NewReader()
	var outShell Job
	require.NoError(t, r.OpenFile(path, &outShell))
	defer r.CloseFile()

	require.NoError(t, r.CacheFullJob())
	got := r.cachedJob
	require.Equal(t, job.JobID, got.JobID)
	require.Equal(t, job.JobMetaData, got.JobMetaData)
	require.Equal(t, int32(len(job.WorkPlanes)), got.NumWorkPlanes)
	require.Equal(t, job.WorkPlanes, got.WorkPlanes)
}

// TestSingleWorkPlaneZeroBlocks is scenario 2.
func TestSingleWorkPlaneZeroBlocks(t *testing.T) {
	job := &Job{JobID: "single", WorkPlanes: []*WorkPlane{{WorkPlaneNumber: 0, ZPosInMM: 0.1}}}
	path := filepath.Join(t.TempDir(), "single.ovf")
	require.NoError(t, NewWriter().WriteFullJob(job, path))

	r := NewReader()
	var outShell Job
	require.NoError(t, r.OpenFile(path, &outShell))
	defer r.CloseFile()

	var wp WorkPlane
	require.NoError(t, r.GetWorkPlane(0, &wp))
	require.Empty(t, wp.VectorBlocks)
	require.Equal(t, float32(0.1), wp.ZPosInMM)
}

// TestIncrementalEquivalentToFull is P2 and scenario 3.
func TestIncrementalEquivalentToFull(t *testing.T) {
	dir := t.TempDir()
	fullPath := filepath.Join(dir, "full.ovf")
	incPath := filepath.Join(dir, "incremental.ovf")

	job := buildFullJob(2, 3)
	require.NoError(t, NewWriter().WriteFullJob(job, fullPath))
	buildIncremental(t, incPath, 2, 3)

	readJob := func(path string) *Job {
		r := NewReader()
		var shell Job
		require.NoError(t, r.OpenFile(path, &shell))
		defer r.CloseFile()
		require.NoError(t, r.CacheFullJob())
		return r.cachedJob
	}

	require.Equal(t, readJob(fullPath), readJob(incPath))
}

// TestRandomAccessConsistency is P3 and scenario 4.
func TestRandomAccessConsistency(t *testing.T) {
	job := buildFullJob(2, 3)
	path := filepath.Join(t.TempDir(), "random.ovf")
	require.NoError(t, NewWriter().WriteFullJob(job, path))

	r := NewReader()
	var shell Job
	require.NoError(t, r.OpenFile(path, &shell))
	defer r.CloseFile()

	var wp1 WorkPlane
	require.NoError(t, r.GetWorkPlane(1, &wp1))

	var vb WorkPlane
	require.NoError(t, r.GetWorkPlaneShell(1, &vb))
	expectedShell := cloneExcluding(&wp1, "vector_blocks").(*WorkPlane)
	require.Equal(t, expectedShell, &vb)

	var got VectorBlock
	require.NoError(t, r.GetVectorBlock(1, 2, &got))
	require.Equal(t, wp1.VectorBlocks[2], &got)
}

// TestCacheTransparency is P4 and scenario 5: results must be identical
// regardless of which cache tier is active when the query runs.
func TestCacheTransparency(t *testing.T) {
	job := buildFullJob(2, 3)
	path := filepath.Join(t.TempDir(), "cache.ovf")
	require.NoError(t, NewWriter().WriteFullJob(job, path))

	query := func(r *Reader) (WorkPlane, VectorBlock, WorkPlane) {
		var wp0, shell1 WorkPlane
		var vb10 VectorBlock
		require.NoError(t, r.GetWorkPlane(0, &wp0))
		require.NoError(t, r.GetVectorBlock(1, 0, &vb10))
		require.NoError(t, r.GetWorkPlaneShell(1, &shell1))
		return wp0, vb10, shell1
	}

	tiers := []func(r *Reader){
		func(r *Reader) { require.NoError(t, r.ClearCache()) },
		func(r *Reader) { require.NoError(t, r.CacheWorkPlaneShells()) },
		func(r *Reader) { require.NoError(t, r.CacheFullJob()) },
	}

	var reference [3]any
	for idx, setTier := range tiers {
		r := NewReader()
		var shell Job
		require.NoError(t, r.OpenFile(path, &shell))
		setTier(r)
		wp0, vb10, shell1 := query(r)
		reference[idx] = []any{wp0, vb10, shell1}
		r.CloseFile()
	}
	require.Equal(t, reference[0], reference[1])
	require.Equal(t, reference[1], reference[2])

	// Switching tiers mid-lifetime must not change subsequent results
	// either.
	r := NewReader()
	var shell Job
	require.NoError(t, r.OpenFile(path, &shell))
	defer r.CloseFile()
	require.NoError(t, r.CacheFullJob())
	wpA, vbA, shellA := query(r)
	require.NoError(t, r.ClearCache())
	require.NoError(t, r.CacheWorkPlaneShells())
	wpB, vbB, shellB := query(r)
	require.Equal(t, wpA, wpB)
	require.Equal(t, vbA, vbB)
	require.Equal(t, shellA, shellB)
}

// TestIndexBounds is P7.
func TestIndexBounds(t *testing.T) {
	job := buildFullJob(2, 3)
	path := filepath.Join(t.TempDir(), "bounds.ovf")
	require.NoError(t, NewWriter().WriteFullJob(job, path))

	r := NewReader()
	var shell Job
	require.NoError(t, r.OpenFile(path, &shell))
	defer r.CloseFile()

	var wp WorkPlane
	var vb VectorBlock
	require.ErrorIs(t, r.GetWorkPlane(-1, &wp), ErrInvalidIndex)
	require.ErrorIs(t, r.GetWorkPlane(2, &wp), ErrInvalidIndex)
	require.ErrorIs(t, r.GetVectorBlock(0, -1, &vb), ErrInvalidIndex)
	require.ErrorIs(t, r.GetVectorBlock(0, 3, &vb), ErrInvalidIndex)
}
