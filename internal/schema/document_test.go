package schema

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileYAML(t *testing.T) {
	cat, err := LoadFile(filepath.Join("testdata", "library.yaml"))
	require.NoError(t, err)

	assert.Equal(t, []string{"authors", "books", "magazines", "reviews"}, cat.Keys())

	books, ok := cat.Entity("books")
	require.True(t, ok)
	authors, _ := cat.Entity("authors")
	reviews, _ := cat.Entity("reviews")

	assert.Equal(t, "slug", authors.IDAttribute)
	assert.Equal(t, "id", books.IDAttribute)
	assert.Same(t, authors, books.Fields["author"])
	assert.Equal(t, []string{"author", "reviews"}, books.FieldNames(), "private _links is not traversed")

	coll, ok := books.Fields["reviews"].(*Collection)
	require.True(t, ok)
	assert.Same(t, reviews, coll.Item)

	back, ok := authors.Fields["books"].(*Collection)
	require.True(t, ok)
	assert.Same(t, books, back.Item, "cyclic references resolve to the same entity")

	root, ok := cat.Root.(Composite)
	require.True(t, ok)
	assert.Equal(t, KindCollection, Classify(root["featured"]))

	u, ok := root["latest"].(*Union)
	require.True(t, ok)
	assert.Equal(t, "kind", u.SchemaAttribute)
	assert.Equal(t, []string{"book", "magazine"}, u.Tags())
}

func TestLoadFileCUE(t *testing.T) {
	cat, err := LoadFile(filepath.Join("testdata", "library.cue"))
	require.NoError(t, err)

	books, ok := cat.Entity("books")
	require.True(t, ok)
	assert.Same(t, books, cat.Root)

	authors, _ := cat.Entity("authors")
	assert.Equal(t, "slug", authors.IDAttribute)
	assert.Same(t, authors, books.Fields["author"])
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join("testdata", "nope.yaml"))
	require.Error(t, err)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		path    string
		message string
	}{
		{
			name:    "no entities",
			doc:     "root: books\n",
			path:    "entities",
			message: "at least one entity",
		},
		{
			name:    "unknown entity",
			doc:     "entities:\n  books:\n    fields:\n      author: authors\n",
			path:    "entities.books.fields.author",
			message: `unknown entity "authors"`,
		},
		{
			name:    "collection arity",
			doc:     "entities:\n  books:\n    fields:\n      tags: [books, books]\n",
			path:    "entities.books.fields.tags",
			message: "exactly one item schema",
		},
		{
			name:    "bad union",
			doc:     "entities:\n  books: {}\nroot:\n  union: books\n",
			path:    "root.union",
			message: "union must map tags",
		},
		{
			name:    "unexpected union key",
			doc:     "entities:\n  books: {}\nroot:\n  union: {book: books}\n  extra: books\n",
			path:    "root.extra",
			message: "unexpected key",
		},
		{
			name:    "scalar reference",
			doc:     "entities:\n  books:\n    fields:\n      n: 3\n",
			path:    "entities.books.fields.n",
			message: "unsupported reference type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			var de *DocumentError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.path, de.Path)
			assert.Contains(t, de.Message, tt.message)
		})
	}
}

func TestParseCUEError(t *testing.T) {
	_, err := ParseCUE([]byte("entities: {"), "broken.cue")
	var de *DocumentError
	require.ErrorAs(t, err, &de)
	assert.Contains(t, de.Message, "compile cue")
}

func TestCatalogResolve(t *testing.T) {
	cat, err := Parse([]byte("entities:\n  books: {}\n"))
	require.NoError(t, err)

	n, err := cat.Resolve([]any{"books"})
	require.NoError(t, err)
	assert.Equal(t, KindCollection, Classify(n))

	_, err = cat.Resolve("films")
	require.Error(t, err)
}
