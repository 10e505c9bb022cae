// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ovf

import (
	"fmt"
	"io"
	"os"
)

type writerState int

const (
	writerNone writerState = iota
	writerPartial
	writerComplete
)

// Writer is the incremental writer state machine described in the
// format's design: it streams header, work-planes and footer to disk in
// one pass, patching the two placeholder offsets once their real values
// are known. A Writer is single-owner: its methods must not be called
// concurrently, and it is not safe to copy.
//
// AppendWorkPlane buffers the work-plane it is given as the "current"
// one; the previously buffered work-plane, if any, is committed to disk
// first. This one-ahead buffering lets AppendVectorBlock extend the
// current work-plane without having committed it yet.
type Writer struct {
	f     *os.File
	state writerState

	jobShell           *Job
	jobLut             *JobLUT
	jobLutOffsetOffset int64

	currentWP *WorkPlane
}

// NewWriter returns a Writer ready for StartWritePartial or WriteFullJob.
func NewWriter() *Writer {
	return &Writer{state: writerNone}
}

// JobShell returns the in-memory job-shell being accumulated by the
// current write operation. It is only meaningful between
// StartWritePartial and FinishWrite (or during WriteFullJob); it is nil
// otherwise.
func (w *Writer) JobShell() *Job {
	return w.jobShell
}

func (w *Writer) tell() (int64, error) {
	return w.f.Seek(0, io.SeekCurrent)
}

// StartWritePartial opens path for writing and writes the file header
// derived from jobShell. It transitions the writer None -> PartialWrite.
func (w *Writer) StartWritePartial(jobShell *Job, path string) error {
	if w.state != writerNone {
		return fmt.Errorf("StartWritePartial: %w", ErrInvalidState)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w.f = f
	if err := w.writeHeader(jobShell); err != nil {
		w.f.Close()
		w.f = nil
		w.jobShell = nil
		w.jobLut = nil
		return err
	}
	w.state = writerPartial
	return nil
}

// AppendWorkPlane buffers wp as the current work-plane, first committing
// whichever work-plane was previously buffered (if any).
func (w *Writer) AppendWorkPlane(wp *WorkPlane) error {
	if w.state != writerPartial {
		return fmt.Errorf("AppendWorkPlane: %w", ErrInvalidState)
	}
	if w.currentWP != nil {
		if err := w.writeFullWorkPlane(w.currentWP); err != nil {
			return err
		}
	}
	w.currentWP = cloneExcluding(wp).(*WorkPlane)
	return nil
}

// AppendVectorBlock merges vb into the currently buffered work-plane's
// vector blocks. It fails with ErrNoCurrentWorkPlane if no work-plane has
// been appended yet.
func (w *Writer) AppendVectorBlock(vb *VectorBlock) error {
	if w.state != writerPartial {
		return fmt.Errorf("AppendVectorBlock: %w", ErrInvalidState)
	}
	if w.currentWP == nil {
		return ErrNoCurrentWorkPlane
	}
	w.currentWP.VectorBlocks = append(w.currentWP.VectorBlocks, cloneExcluding(vb).(*VectorBlock))
	return nil
}

// FinishWrite commits any buffered work-plane, writes the footer, and
// closes the file. It transitions the writer PartialWrite -> None.
func (w *Writer) FinishWrite() error {
	if w.state != writerPartial {
		return fmt.Errorf("FinishWrite: %w", ErrInvalidState)
	}
	err := w.writeFooter()
	w.state = writerNone
	closeErr := w.f.Close()
	w.f = nil
	w.jobShell = nil
	w.jobLut = nil
	w.currentWP = nil
	if err != nil {
		return err
	}
	return closeErr
}

// WriteFullJob writes job to path in a single call: header, every
// work-plane in order, then footer. It requires the writer to be in
// state None and leaves it in state None.
func (w *Writer) WriteFullJob(job *Job, path string) error {
	if w.state != writerNone {
		return fmt.Errorf("WriteFullJob: %w", ErrInvalidState)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w.f = f
	w.state = writerComplete

	if err := w.writeHeader(job); err != nil {
		return w.abort(err)
	}
	for _, wp := range job.WorkPlanes {
		if err := w.writeFullWorkPlane(wp); err != nil {
			return w.abort(err)
		}
	}
	if err := w.writeFooter(); err != nil {
		return w.abort(err)
	}

	w.state = writerNone
	err = w.f.Close()
	w.f = nil
	w.jobShell = nil
	w.jobLut = nil
	return err
}

// abort leaves the partially written file on disk (no rollback, per the
// format's failure semantics) and resets the writer to state None.
func (w *Writer) abort(cause error) error {
	w.f.Close()
	w.f = nil
	w.state = writerNone
	w.jobShell = nil
	w.jobLut = nil
	w.currentWP = nil
	return cause
}

// writeHeader is called once per file, from either StartWritePartial or
// WriteFullJob.
func (w *Writer) writeHeader(job *Job) error {
	shell := cloneExcluding(job, "work_planes").(*Job)
	shell.NumWorkPlanes = 0
	w.jobShell = shell

	if _, err := w.f.Write(magicBytes[:]); err != nil {
		return err
	}

	off, err := w.tell()
	if err != nil {
		return err
	}
	w.jobLutOffsetOffset = off

	var placeholder [8]byte
	putInt64LE(placeholder[:], kDefaultLutOffset)
	if _, err := w.f.Write(placeholder[:]); err != nil {
		return err
	}

	w.jobLut = &JobLUT{}
	return nil
}

// writeFullWorkPlane commits wp to disk as the next WorkPlaneBlock: its
// start offset is recorded in the job-LUT, a placeholder for its own
// WorkPlaneLUT offset is written, then every vector block, the
// work-plane shell, and the WorkPlaneLUT itself are appended, and
// finally the placeholder is patched in place.
func (w *Writer) writeFullWorkPlane(wp *WorkPlane) error {
	workPlaneStart, err := w.tell()
	if err != nil {
		return err
	}
	w.jobLut.WorkPlanePositions = append(w.jobLut.WorkPlanePositions, workPlaneStart)

	var placeholder [8]byte
	putInt64LE(placeholder[:], kDefaultLutOffset)
	if _, err := w.f.Write(placeholder[:]); err != nil {
		return err
	}

	wpLut := &WorkPlaneLUT{}
	for _, vb := range wp.VectorBlocks {
		pos, err := w.tell()
		if err != nil {
			return err
		}
		wpLut.VectorBlockPositions = append(wpLut.VectorBlockPositions, pos)

		data, err := encodeDelimited(vb)
		if err != nil {
			return err
		}
		if _, err := w.f.Write(data); err != nil {
			return err
		}
	}

	shellToWrite := cloneExcluding(wp, "vector_blocks").(*WorkPlane)
	shellToWrite.WorkPlaneNumber = w.jobShell.NumWorkPlanes

	shellPos, err := w.tell()
	if err != nil {
		return err
	}
	wpLut.WorkPlaneShellPosition = shellPos
	data, err := encodeDelimited(shellToWrite)
	if err != nil {
		return err
	}
	if _, err := w.f.Write(data); err != nil {
		return err
	}

	wpLutPos, err := w.tell()
	if err != nil {
		return err
	}
	lutData, err := encodeDelimited(wpLut)
	if err != nil {
		return err
	}
	if _, err := w.f.Write(lutData); err != nil {
		return err
	}

	if _, err := w.f.Seek(workPlaneStart, io.SeekStart); err != nil {
		return err
	}
	var patched [8]byte
	putInt64LE(patched[:], wpLutPos)
	if _, err := w.f.Write(patched[:]); err != nil {
		return err
	}
	if _, err := w.f.Seek(0, io.SeekEnd); err != nil {
		return err
	}

	w.jobShell.NumWorkPlanes++
	return nil
}

// writeFooter commits any still-buffered current work-plane, then writes
// the job-shell and job-LUT and patches the header's placeholder offset.
func (w *Writer) writeFooter() error {
	if w.currentWP != nil {
		wp := w.currentWP
		w.currentWP = nil
		if err := w.writeFullWorkPlane(wp); err != nil {
			return err
		}
	}

	if _, err := w.f.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	jobShellPos, err := w.tell()
	if err != nil {
		return err
	}
	shellData, err := encodeDelimited(w.jobShell)
	if err != nil {
		return err
	}
	if _, err := w.f.Write(shellData); err != nil {
		return err
	}

	jobLutPos, err := w.tell()
	if err != nil {
		return err
	}
	w.jobLut.JobShellPosition = jobShellPos

	if _, err := w.f.Seek(w.jobLutOffsetOffset, io.SeekStart); err != nil {
		return err
	}
	var patched [8]byte
	putInt64LE(patched[:], jobLutPos)
	if _, err := w.f.Write(patched[:]); err != nil {
		return err
	}

	if _, err := w.f.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	lutData, err := encodeDelimited(w.jobLut)
	if err != nil {
		return err
	}
	if _, err := w.f.Write(lutData); err != nil {
		return err
	}

	return w.f.Sync()
}
