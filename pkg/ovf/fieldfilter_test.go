// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ovf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleJob() *Job {
	return &Job{
		JobID:       "job-1",
		JobMetaData: map[string]string{"operator": "alice"},
		WorkPlanes: []*WorkPlane{
			{
				WorkPlaneNumber: 0,
				ZPosInMM:        0.03,
				MetaData:        map[string]string{"laser": "A"},
				VectorBlocks: []*VectorBlock{
					{MarkingParamsKey: 1, Points: []float32{0, 0, 1, 1}},
					{MarkingParamsKey: 2, Points: []float32{2, 2, 3, 3}},
				},
			},
			{
				WorkPlaneNumber: 1,
				ZPosInMM:        0.06,
				VectorBlocks: []*VectorBlock{
					{MarkingParamsKey: 1, Points: []float32{4, 4, 5, 5}},
				},
			},
		},
	}
}

func TestCloneExcludingWorkPlanes(t *testing.T) {
	job := sampleJob()
	shell := cloneExcluding(job, "work_planes").(*Job)

	require.Empty(t, shell.WorkPlanes)
	require.Equal(t, job.JobID, shell.JobID)
	require.Equal(t, job.JobMetaData, shell.JobMetaData)

	// Mutating the clone's metadata must not affect the source: the
	// copy has to be deep, not just a slice/map header copy.
	shell.JobMetaData["operator"] = "bob"
	require.Equal(t, "alice", job.JobMetaData["operator"])
}

func TestCloneExcludingVectorBlocks(t *testing.T) {
	job := sampleJob()
	wp := job.WorkPlanes[0]
	shell := cloneExcluding(wp, "vector_blocks").(*WorkPlane)

	require.Empty(t, shell.VectorBlocks)
	require.Equal(t, wp.WorkPlaneNumber, shell.WorkPlaneNumber)
	require.Equal(t, wp.ZPosInMM, shell.ZPosInMM)
	require.Equal(t, wp.MetaData, shell.MetaData)
}

func TestCloneExcludingNoneIsFullDeepCopy(t *testing.T) {
	job := sampleJob()
	clone := cloneExcluding(job).(*Job)

	require.Equal(t, job, clone)

	clone.WorkPlanes[0].VectorBlocks[0].Points[0] = 99
	require.NotEqual(t, job.WorkPlanes[0].VectorBlocks[0].Points[0], clone.WorkPlanes[0].VectorBlocks[0].Points[0])
}
