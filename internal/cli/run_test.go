package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Plain(t *testing.T) {
	schemaPath, storePath := libraryFiles(t)

	out, _, err := executeCommand(t, "run", "--schema", schemaPath, "--store", storePath, "--value", "1")
	require.NoError(t, err)
	assert.Equal(t,
		`{"author":{"books":[{"$cycle":true}],"id":1,"name":"Frank Herbert"},"id":1,"reviews":[{"id":1,"text":"Classic"}],"title":"Dune"}`+"\n",
		out)
}

func TestRun_Memoized(t *testing.T) {
	schemaPath, storePath := libraryFiles(t)

	out, _, err := executeCommand(t, "run", "--schema", schemaPath, "--store", storePath, "--value", "1", "--memoized")
	require.NoError(t, err)
	assert.Equal(t,
		`{"author":{"books":[1],"id":1,"name":"Frank Herbert"},"id":1,"reviews":[{"id":1,"text":"Classic"}],"title":"Dune"}`+"\n",
		out)
}

func TestRun_MemoizedRepeatJSON(t *testing.T) {
	schemaPath, storePath := libraryFiles(t)

	out, _, err := executeCommand(t, "run", "--schema", schemaPath, "--store", storePath,
		"--value", "1", "--memoized", "--repeat", "3", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status  string    `json:"status"`
		CacheID string    `json:"cache_id"`
		Data    RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))

	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.CacheID)
	assert.Equal(t, 3, resp.Data.Runs)
	assert.True(t, resp.Data.Reused)
	require.NotNil(t, resp.Data.Cache)
	assert.Equal(t, int64(3), resp.Data.Cache.Misses)
	assert.Equal(t, int64(9), resp.Data.Cache.Hits)
	assert.Equal(t, 3, resp.Data.Cache.Slots)
	assert.JSONEq(t,
		`{"author":{"books":[1],"id":1,"name":"Frank Herbert"},"id":1,"reviews":[{"id":1,"text":"Classic"}],"title":"Dune"}`,
		string(resp.Data.Result))
}

func TestRun_PlainRepeatIsNotReused(t *testing.T) {
	schemaPath, storePath := libraryFiles(t)

	out, _, err := executeCommand(t, "run", "--schema", schemaPath, "--store", storePath,
		"--value", "1", "--repeat", "2", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.False(t, resp.Data.Reused)
	assert.Nil(t, resp.Data.Cache)
}

func TestRun_MemoizedFromEnv(t *testing.T) {
	schemaPath, storePath := libraryFiles(t)
	t.Setenv("DENORM_MEMOIZED", "true")

	out, _, err := executeCommand(t, "run", "--schema", schemaPath, "--store", storePath, "--value", "1")
	require.NoError(t, err)
	assert.Contains(t, out, `"books":[1]`)

	out, _, err = executeCommand(t, "run", "--schema", schemaPath, "--store", storePath, "--value", "1", "--memoized=false")
	require.NoError(t, err)
	assert.Contains(t, out, `"$cycle":true`)
}

func TestRun_RootAndPersistent(t *testing.T) {
	schemaPath, storePath := libraryFiles(t)

	out, _, err := executeCommand(t, "run", "--schema", schemaPath, "--store", storePath,
		"--root", "{picks: [reviews]}", "--value", `{"picks": [1, 9]}`, "--persistent")
	require.NoError(t, err)
	assert.Equal(t, `{"picks":[{"id":1,"text":"Classic"},null]}`+"\n", out)
}

func TestRun_FromDatabase(t *testing.T) {
	schemaPath, storePath := libraryFiles(t)
	dbPath := filepath.Join(t.TempDir(), "library.db")

	_, _, err := executeCommand(t, "import", "--db", dbPath, storePath)
	require.NoError(t, err)

	out, _, err := executeCommand(t, "run", "--schema", schemaPath, "--db", dbPath, "--value", "1", "--memoized")
	require.NoError(t, err)
	assert.Contains(t, out, `"name":"Frank Herbert"`)
}

func TestRun_VerboseLogsCacheStats(t *testing.T) {
	schemaPath, storePath := libraryFiles(t)

	_, stderr, err := executeCommand(t, "run", "--schema", schemaPath, "--store", storePath,
		"--value", "1", "--memoized", "-v")
	require.NoError(t, err)
	assert.Contains(t, stderr, "hits=1 misses=3")
}

func TestRun_Errors(t *testing.T) {
	schemaPath, storePath := libraryFiles(t)

	tests := []struct {
		name string
		args []string
		code int
		want string
	}{
		{
			name: "store and db",
			args: []string{"run", "--schema", schemaPath, "--store", storePath, "--db", "x.db", "--value", "1"},
			code: ExitFailure,
			want: "none of the others can be",
		},
		{
			name: "missing database",
			args: []string{"run", "--schema", schemaPath, "--db", "/nonexistent/x.db", "--value", "1"},
			code: ExitCommandError,
			want: "database not found",
		},
		{
			name: "bad value",
			args: []string{"run", "--schema", schemaPath, "--store", storePath, "--value", "{"},
			code: ExitCommandError,
			want: "failed to parse value",
		},
		{
			name: "bad repeat",
			args: []string{"run", "--schema", schemaPath, "--store", storePath, "--value", "1", "--repeat", "0"},
			code: ExitCommandError,
			want: "--repeat must be at least 1",
		},
		{
			name: "unknown root",
			args: []string{"run", "--schema", schemaPath, "--store", storePath, "--value", "1", "--root", "publishers"},
			code: ExitCommandError,
			want: "failed to load schema",
		},
		{
			name: "union mismatch",
			args: []string{"run", "--schema", schemaPath, "--store", storePath, "--root", "{union: {book: books}}", "--value", `{"id": 1}`},
			code: ExitFailure,
			want: "SCHEMA_MISMATCH",
		},
		{
			name: "sequence where entity ids expected",
			args: []string{"run", "--schema", schemaPath, "--store", storePath, "--root", "[books]", "--value", "1"},
			code: ExitFailure,
			want: "denormalization failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := executeCommand(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRun_SchemaMismatchJSON(t *testing.T) {
	schemaPath, storePath := libraryFiles(t)

	out, _, err := executeCommand(t, "run", "--schema", schemaPath, "--store", storePath,
		"--root", "{union: {book: books}}", "--value", `{"id": 1}`, "--format", "json")
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeSchemaMismatch, resp.Error.Code)
}
