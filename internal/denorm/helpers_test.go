package denorm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/denorm/internal/access"
	"github.com/roach88/denorm/internal/ir"
)

// at reads a nested value by path, failing the test when it is missing.
func at(t *testing.T, v ir.IRValue, path ...string) ir.IRValue {
	t.Helper()
	out, ok := access.GetIn(v, path...)
	require.True(t, ok, "path %v not found", path)
	return out
}

// entityAt returns store[partition][id].
func entityAt(t *testing.T, store ir.IRValue, partition, id string) ir.IRValue {
	t.Helper()
	return at(t, store, partition, id)
}
