// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package mmapfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mapped.bin")
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestViewExposesExactRequestedRange(t *testing.T) {
	content := make([]byte, 5000)
	for i := range content {
		content[i] = byte(i)
	}
	path := writeTempFile(t, content)

	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()
	require.EqualValues(t, len(content), m.FileSize())

	v, err := m.View(4096+10, 100)
	require.NoError(t, err)
	defer v.Close()

	require.EqualValues(t, 100, v.Size())
	require.Equal(t, content[4096+10:4096+10+100], v.Data())
}

func TestViewToEOFWhenMinSizeIsZero(t *testing.T) {
	content := []byte("hello, open vector format")
	path := writeTempFile(t, content)

	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()

	v, err := m.View(7, 0)
	require.NoError(t, err)
	defer v.Close()

	require.Equal(t, content[7:], v.Data())
}

func TestViewOutlivesMappingClose(t *testing.T) {
	content := []byte("0123456789")
	path := writeTempFile(t, content)

	m, err := Open(path)
	require.NoError(t, err)

	v, err := m.View(2, 4)
	require.NoError(t, err)
	defer v.Close()

	require.NoError(t, m.Close())
	require.Equal(t, content[2:6], v.Data())
}

func TestViewRejectsOutOfRangeRequests(t *testing.T) {
	path := writeTempFile(t, []byte("short"))

	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()

	_, err = m.View(-1, 1)
	require.Error(t, err)
	_, err = m.View(0, 1000)
	require.Error(t, err)
	_, err = m.View(100, 1)
	require.Error(t, err)
}
