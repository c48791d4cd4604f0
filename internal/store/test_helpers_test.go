package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/denorm/internal/ir"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// book builds a minimal book entity.
func book(id int64, title string) ir.IRObject {
	return ir.IRObject{
		"id":     ir.IRInt(id),
		"title":  ir.IRString(title),
		"author": ir.IRInt(1),
	}
}
