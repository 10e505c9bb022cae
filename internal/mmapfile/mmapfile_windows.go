// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build windows

package mmapfile

import (
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

func allocationGranularity() int {
	var info windows.SystemInfo
	windows.GetSystemInfo(&info)
	return int(info.AllocationGranularity)
}

func mmapRegion(f *os.File, alignedOffset, length int64) ([]byte, error) {
	h, err := windows.CreateFileMapping(windows.Handle(f.Fd()), nil, windows.PAGE_READONLY, 0, 0, nil)
	if err != nil {
		return nil, err
	}
	defer windows.CloseHandle(h)

	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_READ,
		uint32(alignedOffset>>32), uint32(alignedOffset&0xFFFFFFFF), uintptr(length))
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(length)), nil
}

func munmapRegion(raw []byte) error {
	return windows.UnmapViewOfFile(uintptr(unsafe.Pointer(&raw[0])))
}
