package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/denorm/internal/access"
	"github.com/roach88/denorm/internal/ir"
)

// libraryScenario returns an in-memory scenario over testdata/library.yaml.
func libraryScenario(name string, steps ...Step) *Scenario {
	return &Scenario{
		Name:        name,
		Description: "library scenario",
		Schema:      filepath.Join("testdata", "library.yaml"),
		Store: map[string]map[string]any{
			"books": {
				"1": map[string]any{"id": 1, "title": "Game of Thrones", "author": 1, "reviews": []any{1, 2}},
			},
			"authors": {
				"1": map[string]any{"id": 1, "name": "Georges RR Martin"},
			},
			"reviews": {
				"1": map[string]any{"id": 1, "text": "Super livre"},
				"2": map[string]any{"id": 2, "text": "Bof bof"},
			},
		},
		Value: 1,
		Steps: steps,
	}
}

func TestRun_PlainSingleStep(t *testing.T) {
	result, err := Run(libraryScenario("plain", Step{Name: "initial"}))
	require.NoError(t, err)

	assert.True(t, result.Pass)
	require.Len(t, result.Steps, 1)
	name, ok := access.GetIn(result.Steps[0].Value, "author", "name")
	require.True(t, ok)
	assert.Equal(t, ir.IRString("Georges RR Martin"), name)
	assert.Equal(t, int64(0), result.Cache.Misses, "plain runs do not touch a cache")
}

func TestRun_MemoizedReusesUnchangedResult(t *testing.T) {
	s := libraryScenario("memo", Step{Name: "a"}, Step{Name: "b"})
	s.Memoized = true

	result, err := Run(s)
	require.NoError(t, err)

	a, _ := result.Step("a")
	b, _ := result.Step("b")
	assert.True(t, ir.Same(a, b))
	assert.Equal(t, 4, result.Cache.Slots)
	assert.Greater(t, result.Cache.Hits, int64(0))
}

func TestRun_DeletePatchYieldsNull(t *testing.T) {
	for _, backend := range []string{BackendMemory, BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			s := libraryScenario("delete_"+backend,
				Step{Name: "initial"},
				Step{Name: "deleted", Patch: []Patch{{Partition: "authors", ID: "1", Delete: true}}},
			)
			s.Memoized = true
			s.Backend = backend

			result, err := Run(s)
			require.NoError(t, err)

			author, ok := access.GetIn(result.Steps[1].Value, "author")
			require.True(t, ok)
			assert.Equal(t, ir.IRNull{}, author)
		})
	}
}

func TestRun_EntityPatchAddsPartition(t *testing.T) {
	s := libraryScenario("add_partition",
		Step{
			Name:  "magazine",
			Value: 7,
			Patch: []Patch{{Partition: "magazines", ID: "7", Entity: map[string]any{"id": 7, "editor": 1}}},
		},
	)
	s.Root = "magazines"

	result, err := Run(s)
	require.NoError(t, err)

	editor, ok := access.GetIn(result.Steps[0].Value, "editor", "name")
	require.True(t, ok)
	assert.Equal(t, ir.IRString("Georges RR Martin"), editor)
}

func TestRun_ReuseFeedsEarlierResult(t *testing.T) {
	s := libraryScenario("reuse",
		Step{Name: "first"},
		Step{Name: "second", Reuse: "first"},
	)
	s.Memoized = true

	result, err := Run(s)
	require.NoError(t, err)

	first, _ := result.Step("first")
	second, _ := result.Step("second")
	assert.True(t, ir.Same(first, second), "an expanded entity resolves to the same cached result")
}

func TestRun_BoundedCache(t *testing.T) {
	s := libraryScenario("bounded", Step{Name: "a"}, Step{Name: "b"})
	s.Memoized = true
	s.CacheCapacity = 1

	result, err := Run(s)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Cache.Slots)
	assert.Greater(t, result.Cache.Evictions, int64(0))
	a, _ := result.Step("a")
	b, _ := result.Step("b")
	assert.True(t, ir.Equal(a, b))
}

func TestRun_AssertionFailuresMarkResult(t *testing.T) {
	s := libraryScenario("failing", Step{Name: "a"}, Step{Name: "b"})
	s.Assertions = []Assertion{{Type: AssertSame, Step: "b", Against: "a"}}

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Assertion failed: same at b")
}

func TestRun_Errors(t *testing.T) {
	t.Run("missing schema", func(t *testing.T) {
		s := libraryScenario("x", Step{Name: "a"})
		s.Schema = "testdata/nope.yaml"
		_, err := Run(s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load schema")
	})

	t.Run("bad root", func(t *testing.T) {
		s := libraryScenario("x", Step{Name: "a"})
		s.Root = "publishers"
		_, err := Run(s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to resolve root")
	})

	t.Run("set on missing entity", func(t *testing.T) {
		s := libraryScenario("x", Step{Name: "a", Patch: []Patch{{Partition: "books", ID: "9", Set: map[string]any{"x": 1}}}})
		_, err := Run(s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "step 0 (a): patch 0")
	})

	t.Run("union without discriminator", func(t *testing.T) {
		s := libraryScenario("x", Step{Name: "a"})
		s.Root = map[string]any{"union": map[string]any{"book": "books"}}
		s.Value = map[string]any{"id": 1}
		_, err := Run(s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SCHEMA_MISMATCH")
	})
}

// ============================================================
// Scenario files
// ============================================================

func TestRun_ScenarioFiles(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "assertion failures: %v", result.Errors)
		})
	}
}
