package denorm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/denorm/internal/access"
	"github.com/roach88/denorm/internal/ir"
	"github.com/roach88/denorm/internal/schema"
	"github.com/roach88/denorm/internal/testutil"
)

// ============================================================================
// Entities
// ============================================================================

func TestPlain_Entity(t *testing.T) {
	lib := testutil.NewLibrary()
	store := testutil.LibraryStore()

	got, err := Denormalize(ir.IRInt(1), store, lib.Book, Options{})
	require.NoError(t, err)

	assert.Equal(t, ir.IRString("Game of Thrones"), at(t, got, "title"))
	assert.Equal(t, ir.IRString("Georges RR Martin"), at(t, got, "author", "name"))
	assert.Equal(t, ir.IRString("Super livre"), at(t, got, "reviews", "0", "content"))
	assert.Equal(t, ir.IRString("Bof bof"), at(t, got, "reviews", "1", "content"))
}

func TestPlain_CycleResolvesToSharedObject(t *testing.T) {
	lib := testutil.NewLibrary()
	store := testutil.LibraryStore()

	got, err := Denormalize(ir.IRInt(1), store, lib.Book, Options{})
	require.NoError(t, err)

	// book 1 -> author 1 -> books[0] is book 1 again
	assert.True(t, ir.Same(got, at(t, got, "author", "books", "0")))
	// book 2's author is the same author object
	assert.True(t, ir.Same(at(t, got, "author"), at(t, got, "author", "books", "1", "author")))

	_, err = ir.MarshalCanonical(got)
	assert.ErrorIs(t, err, ir.ErrCyclicValue)
}

func TestPlain_DoesNotMutateStore(t *testing.T) {
	lib := testutil.NewLibrary()
	store := testutil.LibraryStore()

	_, err := Denormalize(ir.IRArray{ir.IRInt(1), ir.IRInt(2)}, store, schema.ArrayOf(lib.Book), Options{})
	require.NoError(t, err)

	assert.True(t, ir.Equal(testutil.LibraryStore(), store))
	assert.Equal(t, ir.IRInt(1), entityAt(t, store, "books", "1").(ir.IRObject)["author"])
}

func TestPlain_StoredCopyWins(t *testing.T) {
	lib := testutil.NewLibrary()
	store := testutil.LibraryStore()
	partial := ir.IRObject{"id": ir.IRInt(2), "title": ir.IRString("stale")}

	got, err := Denormalize(partial, store, lib.Book, Options{})
	require.NoError(t, err)

	assert.Equal(t, ir.IRString("Livre 2"), at(t, got, "title"))
	assert.Equal(t, ir.IRString("stale"), partial["title"])
}

func TestPlain_MissingEntity(t *testing.T) {
	lib := testutil.NewLibrary()
	store := testutil.LibraryStore()

	t.Run("root", func(t *testing.T) {
		got, err := Denormalize(ir.IRInt(42), store, lib.Book, Options{})
		require.NoError(t, err)
		assert.Equal(t, ir.IRNull{}, got)
	})

	t.Run("nested", func(t *testing.T) {
		got, err := Denormalize(ir.IRInt(3), store, lib.Book, Options{})
		require.NoError(t, err)
		assert.Equal(t, ir.IRString("Orphan"), at(t, got, "title"))
		assert.Equal(t, ir.IRNull{}, at(t, got, "author"))
	})

	t.Run("missing partition", func(t *testing.T) {
		got, err := Denormalize(ir.IRInt(1), ir.IRObject{}, lib.Book, Options{})
		require.NoError(t, err)
		assert.Equal(t, ir.IRNull{}, got)
	})
}

func TestPlain_Idempotent(t *testing.T) {
	lib := testutil.NewLibrary()
	store := testutil.LibraryStore()

	once, err := Denormalize(ir.IRInt(1), store, lib.Book, Options{})
	require.NoError(t, err)
	twice, err := Denormalize(once, store, lib.Book, Options{})
	require.NoError(t, err)

	assert.True(t, ir.Equal(once, twice))
}

func TestPlain_StringAndIntIDsShareSlot(t *testing.T) {
	lib := testutil.NewLibrary()
	store := testutil.LibraryStore()
	value := ir.IRArray{ir.IRInt(1), ir.IRString("1")}

	got, err := Denormalize(value, store, schema.ArrayOf(lib.Review), Options{})
	require.NoError(t, err)

	assert.True(t, ir.Same(at(t, got, "0"), at(t, got, "1")))
}

// ============================================================================
// Collections, unions and composites
// ============================================================================

func TestPlain_CollectionKeepsOrder(t *testing.T) {
	store := ir.IRObject{
		"tags": ir.IRObject{
			"1": ir.IRObject{"id": ir.IRInt(1), "label": ir.IRString("a")},
			"2": ir.IRObject{"id": ir.IRInt(2), "label": ir.IRString("b")},
			"3": ir.IRObject{"id": ir.IRInt(3), "label": ir.IRString("c")},
		},
	}
	tag := schema.NewEntity("tags")

	got, err := Denormalize(ir.IRArray{ir.IRInt(3), ir.IRInt(1), ir.IRInt(2)}, store, schema.ArrayOf(tag), Options{})
	require.NoError(t, err)

	arr, ok := got.(ir.IRArray)
	require.True(t, ok)
	require.Len(t, arr, 3)
	assert.Equal(t, ir.IRString("c"), at(t, arr[0], "label"))
	assert.Equal(t, ir.IRString("a"), at(t, arr[1], "label"))
	assert.Equal(t, ir.IRString("b"), at(t, arr[2], "label"))
}

func TestPlain_CollectionOfNonSequence(t *testing.T) {
	lib := testutil.NewLibrary()

	_, err := Denormalize(ir.IRInt(1), testutil.LibraryStore(), schema.ArrayOf(lib.Review), Options{})

	var typeErr *access.TypeError
	require.True(t, errors.As(err, &typeErr))
	assert.Equal(t, ir.IRInt(1), typeErr.Value)
}

func TestPlain_Union(t *testing.T) {
	lib := testutil.NewLibrary()
	store := testutil.LibraryStore()

	t.Run("selects item by discriminator", func(t *testing.T) {
		got, err := Denormalize(ir.IRObject{"kind": ir.IRString("magazine"), "id": ir.IRInt(7)}, store, lib.Publication, Options{})
		require.NoError(t, err)
		assert.Equal(t, ir.IRString("Locus"), at(t, got, "title"))
		assert.Equal(t, ir.IRString("Georges RR Martin"), at(t, got, "editor", "name"))
	})

	t.Run("missing discriminator", func(t *testing.T) {
		_, err := Denormalize(ir.IRObject{"id": ir.IRInt(7)}, store, lib.Publication, Options{})
		require.Error(t, err)
		assert.True(t, IsSchemaMismatch(err))

		var se *SchemaMismatchError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, ErrCodeSchemaMismatch, se.Code)
		assert.Equal(t, "kind", se.Attribute)
		assert.Empty(t, se.Tag)
	})

	t.Run("scalar value", func(t *testing.T) {
		_, err := Denormalize(ir.IRInt(7), store, lib.Publication, Options{})
		assert.True(t, IsSchemaMismatch(err))
	})

	t.Run("unknown tag", func(t *testing.T) {
		_, err := Denormalize(ir.IRObject{"kind": ir.IRString("comic"), "id": ir.IRInt(7)}, store, lib.Publication, Options{})

		var se *SchemaMismatchError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, "comic", se.Tag)
		assert.Equal(t, []string{"book", "magazine"}, se.Tags)
	})

	t.Run("error carries field path", func(t *testing.T) {
		root := schema.Composite{"latest": lib.Publication}
		_, err := Denormalize(ir.IRObject{"latest": ir.IRObject{"id": ir.IRInt(1)}}, store, root, Options{})
		assert.True(t, IsSchemaMismatch(err))
		assert.ErrorContains(t, err, "latest: SCHEMA_MISMATCH")
	})
}

func TestPlain_Composite(t *testing.T) {
	lib := testutil.NewLibrary()
	store := testutil.LibraryStore()
	root := schema.Composite{
		"featured": schema.ArrayOf(lib.Review),
		"pinned":   lib.Review,
		"_private": lib.Review,
	}
	value := ir.IRObject{
		"featured": ir.IRArray{ir.IRInt(2)},
		"_private": ir.IRInt(1),
		"note":     ir.IRString("kept"),
	}

	got, err := Denormalize(value, store, root, Options{})
	require.NoError(t, err)

	assert.Equal(t, ir.IRString("Bof bof"), at(t, got, "featured", "0", "content"))
	assert.Equal(t, ir.IRInt(1), at(t, got, "_private"))
	assert.Equal(t, ir.IRString("kept"), at(t, got, "note"))
	_, hasPinned := access.Get(got, "pinned")
	assert.False(t, hasPinned, "absent fields stay absent")

	// input untouched
	assert.Equal(t, ir.IRArray{ir.IRInt(2)}, value["featured"])
}

func TestPlain_Passthrough(t *testing.T) {
	lib := testutil.NewLibrary()
	store := testutil.LibraryStore()
	value := ir.IRObject{"id": ir.IRInt(1)}

	tests := []struct {
		name  string
		value ir.IRValue
		node  schema.Node
	}{
		{"nil schema", value, nil},
		{"empty composite", value, schema.Composite{}},
		{"nil entity pointer", value, (*schema.Entity)(nil)},
		{"null value", ir.IRNull{}, lib.Book},
		{"scalar under composite", ir.IRString("x"), schema.Composite{"a": lib.Book}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Denormalize(tt.value, store, tt.node, Options{})
			require.NoError(t, err)
			assert.True(t, ir.Same(tt.value, got))
		})
	}

	t.Run("go nil value", func(t *testing.T) {
		got, err := Denormalize(nil, store, lib.Book, Options{})
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

// ============================================================================
// Persistent containers
// ============================================================================

func TestPlain_PersistentFamilyPreserved(t *testing.T) {
	lib := testutil.NewLibrary()
	store := ir.Freeze(testutil.LibraryStore())

	got, err := Denormalize(ir.NewIRList(ir.IRInt(2), ir.IRInt(1)), store, schema.ArrayOf(lib.Review), Options{})
	require.NoError(t, err)

	list, ok := got.(*ir.IRList)
	require.True(t, ok)
	require.Equal(t, 2, list.Len())
	assert.IsType(t, &ir.IRMap{}, list.Get(0))
	assert.Equal(t, ir.IRString("Bof bof"), at(t, list.Get(0), "content"))
}

func TestPlain_PersistentEntity(t *testing.T) {
	lib := testutil.NewLibrary()
	store := ir.Freeze(testutil.LibraryStore())
	before := entityAt(t, store, "books", "1")

	got, err := Denormalize(ir.IRInt(1), store, lib.Book, Options{})
	require.NoError(t, err)

	assert.IsType(t, &ir.IRMap{}, got)
	assert.Equal(t, ir.IRString("Georges RR Martin"), at(t, got, "author", "name"))
	assert.IsType(t, &ir.IRList{}, at(t, got, "reviews"))

	// stored entity still holds raw ids
	assert.Equal(t, ir.IRInt(1), at(t, before, "author"))
	assert.True(t, ir.Same(before, entityAt(t, store, "books", "1")))

	// persistent graphs are acyclic: the revisit sees the undenormalized entity
	assert.True(t, ir.Same(before, at(t, got, "author", "books", "0")))
}
