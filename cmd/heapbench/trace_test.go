package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heapkit/heapalloc/validator"
)

func writeTrace(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trace.txt")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadTraceBasicTrio(t *testing.T) {
	path := writeTrace(t, `
# basic trio scenario
a p1 24
a p2 24
f p1
a p3 24
`)
	ops, err := loadTrace(path)
	require.NoError(t, err)
	require.Len(t, ops, 4)

	assert.Equal(t, validator.OpAllocate, ops[0].Kind)
	assert.Equal(t, validator.OpAllocate, ops[1].Kind)
	assert.Equal(t, validator.Op{Kind: validator.OpFree, Target: 0}, ops[2])
	assert.Equal(t, validator.OpAllocate, ops[3].Kind)
}

func TestLoadTraceReallocateReferencesCorrectSlot(t *testing.T) {
	path := writeTrace(t, `
a p1 16
a p2 16
f p1
r p2 4096
`)
	ops, err := loadTrace(path)
	require.NoError(t, err)
	require.Len(t, ops, 4)

	// p2 was allocated at slot 1, then p1 (slot 0) was freed, shifting p2
	// down to slot 0.
	assert.Equal(t, validator.Op{Kind: validator.OpReallocate, Target: 0, Size: 4096}, ops[3])
}

func TestLoadTraceRejectsUnknownID(t *testing.T) {
	path := writeTrace(t, "f ghost\n")
	_, err := loadTrace(path)
	assert.Error(t, err)
}

func TestLoadTraceIgnoresCommentsAndBlankLines(t *testing.T) {
	path := writeTrace(t, "\n# comment\n\na p1 8\n")
	ops, err := loadTrace(path)
	require.NoError(t, err)
	require.Len(t, ops, 1)
}
