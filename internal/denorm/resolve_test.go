package denorm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/denorm/internal/ir"
	"github.com/roach88/denorm/internal/schema"
	"github.com/roach88/denorm/internal/testutil"
)

func TestResolve(t *testing.T) {
	lib := testutil.NewLibrary()
	store := testutil.LibraryStore()
	book1 := entityAt(t, store, "books", "1")

	tests := []struct {
		name      string
		input     ir.IRValue
		wantID    ir.IRValue
		wantFound bool
	}{
		{"int id", ir.IRInt(1), ir.IRInt(1), true},
		{"string id", ir.IRString("1"), ir.IRString("1"), true},
		{"partial entity", ir.IRObject{"id": ir.IRInt(1), "title": ir.IRString("stale")}, ir.IRInt(1), true},
		{"unknown id", ir.IRInt(42), ir.IRInt(42), false},
		{"entity without id", ir.IRObject{"title": ir.IRString("x")}, nil, false},
		{"bool id", ir.IRBool(true), ir.IRBool(true), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := Resolve(tt.input, store, lib.Book)

			assert.Equal(t, "books", ref.Key)
			assert.Equal(t, tt.wantID, ref.ID)
			assert.Equal(t, tt.wantFound, ref.Found)
			if tt.wantFound {
				assert.True(t, ir.Same(book1, ref.Entity), "stored copy must win")
			} else {
				assert.Nil(t, ref.Entity)
			}
		})
	}
}

func TestResolve_CustomIDAttribute(t *testing.T) {
	author := schema.NewEntity("authors", schema.WithIDAttribute("slug"))
	store := ir.IRObject{
		"authors": ir.IRObject{
			"grrm": ir.IRObject{"slug": ir.IRString("grrm"), "name": ir.IRString("George")},
		},
	}

	ref := Resolve(ir.IRObject{"slug": ir.IRString("grrm")}, store, author)

	assert.True(t, ref.Found)
	assert.Equal(t, ir.IRString("George"), at(t, ref.Entity, "name"))
}

func TestResolve_NullEntityIsMissing(t *testing.T) {
	lib := testutil.NewLibrary()
	store := ir.IRObject{"books": ir.IRObject{"1": ir.IRNull{}}}

	ref := Resolve(ir.IRInt(1), store, lib.Book)

	assert.False(t, ref.Found)
}

func TestResolve_PersistentStore(t *testing.T) {
	lib := testutil.NewLibrary()
	store := ir.Freeze(testutil.LibraryStore())

	ref := Resolve(ir.IRInt(2), store, lib.Book)

	assert.True(t, ref.Found)
	assert.IsType(t, &ir.IRMap{}, ref.Entity)
}
