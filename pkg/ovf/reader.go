// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ovf

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/ClusterCockpit/ovf/internal/mmapfile"
)

// DefaultAutoCacheThreshold is the file size above which OpenFile
// automatically runs CacheFullJob, on the assumption that a caller
// opening a large file is about to do more than one random query.
const DefaultAutoCacheThreshold = 64 * 1024 * 1024

type cacheTier int

const (
	cacheNone cacheTier = iota
	cacheShellsOnly
	cacheFull
)

// Reader is the random-access reader backed by a memory-mapped file. It
// supports multiple concurrent readers guarded by a sync.RWMutex: query
// methods (GetWorkPlane*, GetVectorBlock, Is*Cached, IsFileOpen) take a
// shared lock, state-mutating methods (OpenFile, CloseFile, Cache*,
// ClearCache) take an exclusive one.
type Reader struct {
	mu sync.RWMutex

	autoCacheThreshold int64

	mapping  *mmapfile.Mapping
	jobShell *Job
	jobLut   *JobLUT
	wpLuts   []*WorkPlaneLUT

	tier      cacheTier
	cachedJob *Job
}

// NewReader returns a Reader that auto-caches the full job on open for
// files larger than DefaultAutoCacheThreshold.
func NewReader() *Reader {
	return &Reader{autoCacheThreshold: DefaultAutoCacheThreshold}
}

// NewReaderWithThreshold is like NewReader but with a caller-supplied
// auto-cache threshold, in bytes. A threshold <= 0 disables auto-caching.
func NewReaderWithThreshold(threshold int64) *Reader {
	return &Reader{autoCacheThreshold: threshold}
}

// IsFileOpen reports whether a file mapping is currently held.
func (r *Reader) IsFileOpen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mapping != nil
}

// CloseFile drops the mapping and any cache. It is idempotent.
func (r *Reader) CloseFile() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeLocked()
	return nil
}

func (r *Reader) closeLocked() {
	if r.mapping != nil {
		r.mapping.Close()
	}
	r.mapping = nil
	r.jobShell = nil
	r.jobLut = nil
	r.wpLuts = nil
	r.tier = cacheNone
	r.cachedJob = nil
}

// OpenFile closes any previously open file, parses the header and both
// levels of the LUT, and fills outJob with the job-shell. Subsequent
// queries against this Reader are valid once OpenFile returns nil.
func (r *Reader) OpenFile(path string, outJob *Job) error {
	r.mu.Lock()
	err := r.openLocked(path, outJob)
	r.mu.Unlock()
	if err != nil {
		return err
	}

	if r.autoCacheThreshold > 0 && r.mapping.FileSize() > r.autoCacheThreshold {
		return r.CacheFullJob()
	}
	return nil
}

func (r *Reader) openLocked(path string, outJob *Job) error {
	r.closeLocked()

	mapping, err := mmapfile.Open(path)
	if err != nil {
		return err
	}
	if mapping.FileSize() < headerSize {
		mapping.Close()
		return fmt.Errorf("OpenFile: file smaller than header: %w", ErrCorrupt)
	}

	headerView, err := mapping.View(0, headerSize)
	if err != nil {
		mapping.Close()
		return err
	}
	hdr := headerView.Data()
	if !bytes.Equal(hdr[:4], magicBytes[:]) {
		headerView.Close()
		mapping.Close()
		return fmt.Errorf("OpenFile: %w", ErrNotOvf)
	}
	jobLutPos := int64LE(hdr[4:12])
	headerView.Close()
	if jobLutPos < 0 || jobLutPos == kDefaultLutOffset {
		mapping.Close()
		return fmt.Errorf("OpenFile: job-LUT offset %d: %w", jobLutPos, ErrCorrupt)
	}

	jobLutView, err := mapping.View(jobLutPos, 0)
	if err != nil {
		mapping.Close()
		return err
	}
	jobLut := &JobLUT{}
	if _, err := decodeDelimited(jobLutView.Data(), jobLut); err != nil {
		jobLutView.Close()
		mapping.Close()
		return err
	}
	jobLutView.Close()

	n := len(jobLut.WorkPlanePositions)
	wpLuts := make([]*WorkPlaneLUT, n)
	for i := 0; i < n; i++ {
		start := jobLut.WorkPlanePositions[i]
		var upper int64
		if i+1 < n {
			upper = jobLut.WorkPlanePositions[i+1]
		} else {
			upper = jobLut.JobShellPosition
		}
		if upper <= start+workPlaneLutOffsetSize {
			mapping.Close()
			return fmt.Errorf("OpenFile: work-plane %d: %w", i, ErrCorrupt)
		}

		view, err := mapping.View(start, upper-start)
		if err != nil {
			mapping.Close()
			return err
		}
		data := view.Data()
		wpLutPos := int64LE(data[:workPlaneLutOffsetSize])
		if wpLutPos < start+workPlaneLutOffsetSize || wpLutPos >= upper {
			view.Close()
			mapping.Close()
			return fmt.Errorf("OpenFile: work-plane %d LUT offset out of range: %w", i, ErrCorrupt)
		}

		wpLut := &WorkPlaneLUT{}
		if _, err := decodeDelimited(data[wpLutPos-start:], wpLut); err != nil {
			view.Close()
			mapping.Close()
			return err
		}
		wpLuts[i] = wpLut
		view.Close()
	}

	shellView, err := mapping.View(jobLut.JobShellPosition, 0)
	if err != nil {
		mapping.Close()
		return err
	}
	jobShell := &Job{}
	if _, err := decodeDelimited(shellView.Data(), jobShell); err != nil {
		shellView.Close()
		mapping.Close()
		return err
	}
	shellView.Close()

	r.mapping = mapping
	r.jobLut = jobLut
	r.wpLuts = wpLuts
	r.jobShell = jobShell
	r.tier = cacheNone
	r.cachedJob = nil

	*outJob = *cloneExcluding(jobShell).(*Job)
	return nil
}

func (r *Reader) numWorkPlanesLocked() int {
	return len(r.jobLut.WorkPlanePositions)
}

// workPlaneRange returns the byte range [start, upper) a WorkPlaneBlock
// occupies, per invariant I4: the next block's start (or the job-shell
// position, for the last block) is the end of this one.
func (r *Reader) workPlaneRange(i int) (start, upper int64) {
	start = r.jobLut.WorkPlanePositions[i]
	if i+1 < r.numWorkPlanesLocked() {
		upper = r.jobLut.WorkPlanePositions[i+1]
	} else {
		upper = r.jobLut.JobShellPosition
	}
	return start, upper
}

// GetWorkPlane fills outWp with the full work-plane i, including its
// vector blocks.
func (r *Reader) GetWorkPlane(i int, outWp *WorkPlane) error {
	return r.getWorkPlane(i, true, outWp)
}

// GetWorkPlaneShell fills outWp with work-plane i, with vector blocks
// left empty.
func (r *Reader) GetWorkPlaneShell(i int, outWp *WorkPlane) error {
	return r.getWorkPlane(i, false, outWp)
}

func (r *Reader) getWorkPlane(i int, includeVectorBlocks bool, outWp *WorkPlane) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.mapping == nil {
		return ErrNotOpen
	}
	if i < 0 || i >= r.numWorkPlanesLocked() {
		return fmt.Errorf("GetWorkPlane(%d): %w", i, ErrInvalidIndex)
	}

	if r.tier == cacheFull && includeVectorBlocks {
		*outWp = *cloneExcluding(r.cachedJob.WorkPlanes[i]).(*WorkPlane)
		return nil
	}
	if r.tier != cacheNone && !includeVectorBlocks {
		// The cached entry carries vector_blocks under Full and has none
		// under ShellsOnly; excluding "vector_blocks" here gives the shell
		// either way.
		*outWp = *cloneExcluding(r.cachedJob.WorkPlanes[i], "vector_blocks").(*WorkPlane)
		return nil
	}

	wp, err := r.parseWorkPlaneShell(i)
	if err != nil {
		return err
	}
	if includeVectorBlocks {
		vbs, err := r.parseVectorBlocks(i)
		if err != nil {
			return err
		}
		wp.VectorBlocks = vbs
	}
	*outWp = *wp
	return nil
}

// GetVectorBlock fills outVb with vector block j of work-plane i.
func (r *Reader) GetVectorBlock(i, j int, outVb *VectorBlock) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.mapping == nil {
		return ErrNotOpen
	}
	if i < 0 || i >= r.numWorkPlanesLocked() {
		return fmt.Errorf("GetVectorBlock(%d, %d): %w", i, j, ErrInvalidIndex)
	}
	m := len(r.wpLuts[i].VectorBlockPositions)
	if j < 0 || j >= m {
		return fmt.Errorf("GetVectorBlock(%d, %d): %w", i, j, ErrInvalidIndex)
	}

	if r.tier == cacheFull {
		*outVb = *cloneExcluding(r.cachedJob.WorkPlanes[i].VectorBlocks[j]).(*VectorBlock)
		return nil
	}

	vb, err := r.parseVectorBlock(i, j)
	if err != nil {
		return err
	}
	*outVb = *vb
	return nil
}

func (r *Reader) parseWorkPlaneShell(i int) (*WorkPlane, error) {
	start, upper := r.workPlaneRange(i)
	view, err := r.mapping.View(start, upper-start)
	if err != nil {
		return nil, err
	}
	defer view.Close()

	data := view.Data()
	localOff := r.wpLuts[i].WorkPlaneShellPosition - start
	if localOff < 0 || localOff >= int64(len(data)) {
		return nil, fmt.Errorf("work-plane %d shell offset out of range: %w", i, ErrCorrupt)
	}
	wp := &WorkPlane{}
	if _, err := decodeDelimited(data[localOff:], wp); err != nil {
		return nil, err
	}
	return wp, nil
}

func (r *Reader) parseVectorBlocks(i int) ([]*VectorBlock, error) {
	start, upper := r.workPlaneRange(i)
	view, err := r.mapping.View(start, upper-start)
	if err != nil {
		return nil, err
	}
	defer view.Close()

	data := view.Data()
	positions := r.wpLuts[i].VectorBlockPositions
	out := make([]*VectorBlock, len(positions))
	for j, pos := range positions {
		localOff := pos - start
		if localOff < 0 || localOff >= int64(len(data)) {
			return nil, fmt.Errorf("work-plane %d vector-block %d offset out of range: %w", i, j, ErrCorrupt)
		}
		vb := &VectorBlock{}
		if _, err := decodeDelimited(data[localOff:], vb); err != nil {
			return nil, err
		}
		out[j] = vb
	}
	return out, nil
}

func (r *Reader) parseVectorBlock(i, j int) (*VectorBlock, error) {
	start, upper := r.workPlaneRange(i)
	view, err := r.mapping.View(start, upper-start)
	if err != nil {
		return nil, err
	}
	defer view.Close()

	data := view.Data()
	pos := r.wpLuts[i].VectorBlockPositions[j]
	localOff := pos - start
	if localOff < 0 || localOff >= int64(len(data)) {
		return nil, fmt.Errorf("work-plane %d vector-block %d offset out of range: %w", i, j, ErrCorrupt)
	}
	vb := &VectorBlock{}
	if _, err := decodeDelimited(data[localOff:], vb); err != nil {
		return nil, err
	}
	return vb, nil
}

// ClearCache drops any cached work-planes, returning to tier None.
func (r *Reader) ClearCache() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mapping == nil {
		return ErrNotOpen
	}
	r.tier = cacheNone
	r.cachedJob = nil
	return nil
}

// CacheWorkPlaneShells ensures the shell-level cache tier, dropping any
// cached vector blocks if the tier was already Full.
func (r *Reader) CacheWorkPlaneShells() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mapping == nil {
		return ErrNotOpen
	}
	switch r.tier {
	case cacheFull:
		for _, wp := range r.cachedJob.WorkPlanes {
			wp.VectorBlocks = nil
		}
		r.tier = cacheShellsOnly
	case cacheNone:
		job := cloneExcluding(r.jobShell).(*Job)
		n := r.numWorkPlanesLocked()
		job.WorkPlanes = make([]*WorkPlane, n)
		for i := 0; i < n; i++ {
			wp, err := r.parseWorkPlaneShell(i)
			if err != nil {
				return err
			}
			job.WorkPlanes[i] = wp
		}
		r.cachedJob = job
		r.tier = cacheShellsOnly
	case cacheShellsOnly:
		// no-op
	}
	return nil
}

// CacheFullJob ensures the full cache tier.
func (r *Reader) CacheFullJob() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mapping == nil {
		return ErrNotOpen
	}
	switch r.tier {
	case cacheShellsOnly:
		for i, wp := range r.cachedJob.WorkPlanes {
			vbs, err := r.parseVectorBlocks(i)
			if err != nil {
				return err
			}
			wp.VectorBlocks = vbs
		}
		r.tier = cacheFull
	case cacheNone:
		job := cloneExcluding(r.jobShell).(*Job)
		n := r.numWorkPlanesLocked()
		job.WorkPlanes = make([]*WorkPlane, n)
		for i := 0; i < n; i++ {
			wp, err := r.parseWorkPlaneShell(i)
			if err != nil {
				return err
			}
			vbs, err := r.parseVectorBlocks(i)
			if err != nil {
				return err
			}
			wp.VectorBlocks = vbs
			job.WorkPlanes[i] = wp
		}
		r.cachedJob = job
		r.tier = cacheFull
	case cacheFull:
		// no-op
	}
	return nil
}

// IsWorkPlaneShellsCached reports whether the cache tier is at least
// ShellsOnly.
func (r *Reader) IsWorkPlaneShellsCached() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tier == cacheShellsOnly || r.tier == cacheFull
}

// IsFullJobCached reports whether the cache tier is Full.
func (r *Reader) IsFullJobCached() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tier == cacheFull
}
