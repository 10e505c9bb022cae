// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build unix

package mmapfile

import (
	"os"

	"golang.org/x/sys/unix"
)

func allocationGranularity() int {
	return os.Getpagesize()
}

func mmapRegion(f *os.File, alignedOffset, length int64) ([]byte, error) {
	return unix.Mmap(int(f.Fd()), alignedOffset, int(length), unix.PROT_READ, unix.MAP_SHARED)
}

func munmapRegion(raw []byte) error {
	return unix.Munmap(raw)
}
