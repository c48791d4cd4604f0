package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testSchema = `entities:
  books:
    fields:
      author: authors
      reviews: [reviews]
  authors:
    fields:
      books: [books]
  reviews: {}
root: books
`

const testStore = `{
  "books":   {"1": {"id": 1, "title": "Dune", "author": 1, "reviews": [1]}},
  "authors": {"1": {"id": 1, "name": "Frank Herbert", "books": [1]}},
  "reviews": {"1": {"id": 1, "text": "Classic"}}
}`

// writeFile writes content under dir and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// libraryFiles writes the test schema and store and returns their paths.
func libraryFiles(t *testing.T) (schemaPath, storePath string) {
	t.Helper()
	dir := t.TempDir()
	return writeFile(t, dir, "library.yaml", testSchema), writeFile(t, dir, "store.json", testStore)
}

// executeCommand runs the root command with args and captures its output.
func executeCommand(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}
