// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ovf

// The concrete message schema (Job, WorkPlane, VectorBlock and the two LUT
// messages) is, per the format's own design, owned by an external
// definition: any codec that can serialize-to-bytes, parse-from-bytes and
// structurally clone a message satisfies the container format. This file
// provides one such realization, wire-compatible with a small protobuf
// schema, so that the writer and reader in this package have something
// concrete to drive. Writer and Reader take and return these concrete
// types; other message definitions are not accepted by their methods.
//
// Struct tags of the form `ovf:"name"` name the top-level field a message
// exposes to the field filter (fieldfilter.go); they play the role that
// protobuf field-descriptor names play in the original C++ implementation.

// Job is the top-level container: job metadata plus an ordered sequence
// of work-planes. NumWorkPlanes is maintained by the writer in the
// job-shell it stores and equals the number of work-planes written to the
// file; the stored job-shell itself has WorkPlanes empty.
type Job struct {
	JobID         string            `ovf:"job_id"`
	JobMetaData   map[string]string `ovf:"job_meta_data"`
	NumWorkPlanes int32             `ovf:"num_work_planes"`
	WorkPlanes    []*WorkPlane      `ovf:"work_planes"`
}

// WorkPlane is one physical layer / slice: metadata plus an ordered
// sequence of vector blocks. WorkPlaneNumber is overwritten by the writer
// with the plane's index in insertion order when it commits the shell.
type WorkPlane struct {
	WorkPlaneNumber int32             `ovf:"work_plane_number"`
	ZPosInMM        float32           `ovf:"z_pos_in_mm"`
	MetaData        map[string]string `ovf:"meta_data"`
	VectorBlocks    []*VectorBlock    `ovf:"vector_blocks"`
}

// VectorBlock is a group of laser/tool-path vectors sharing one set of
// marking parameters.
type VectorBlock struct {
	MarkingParamsKey int32             `ovf:"marking_params_key"`
	MetaData         map[string]string `ovf:"meta_data"`
	Repeats          int32             `ovf:"repeats"`
	Points           []float32         `ovf:"points"`
}

// JobLUT is the job-level look-up table written right before EOF: the
// absolute offset of every WorkPlaneBlock in the file, in order, plus
// the offset of the job-shell record.
type JobLUT struct {
	WorkPlanePositions []int64 `ovf:"work_plane_positions"`
	JobShellPosition   int64   `ovf:"job_shell_position"`
}

// WorkPlaneLUT is the per-work-plane look-up table: the absolute offset
// of every vector block belonging to that plane, plus the offset of the
// plane's own shell record.
type WorkPlaneLUT struct {
	VectorBlockPositions   []int64 `ovf:"vector_block_positions"`
	WorkPlaneShellPosition int64   `ovf:"work_plane_shell_position"`
}
