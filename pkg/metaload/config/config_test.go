package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/metaload/pkg/metaload/internalerr"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRunFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "metaload.yaml", `sources:
  dir: /data/umls/2024AA
store:
  driver: postgres
  dsn: postgres://localhost/entities
  max_conns: 4
defaults:
  batch_size: 100
  batch_delay: 25ms
  batch_retries: 2
parallelism: 3
categories:
  - name: diseases
    semantic_types: [T047, T191]
    sources: [SNOMEDCT_US, MSH]
  - name: lab_tests
    semantic_types: [T059]
    sources: [LNC]
    term_types: [LN, PT]
    batch_size: 20
`)

	f, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/umls/2024AA", f.Sources.Dir)
	assert.Equal(t, "postgres", f.Store.Driver)
	assert.Equal(t, 4, f.Store.MaxConns)
	assert.Equal(t, 25*time.Millisecond, f.Defaults.BatchDelay)
	assert.Equal(t, 3, f.Parallelism)
	require.Len(t, f.Categories, 2)
	assert.Equal(t, []string{"LN", "PT"}, f.Categories[1].TermTypes)

	cats, err := f.Resolve(nil)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, 100, cats[0].BatchSize)
	assert.Equal(t, 20, cats[1].BatchSize)
	assert.Equal(t, 2, cats[1].BatchRetries)
	assert.Equal(t, 25*time.Millisecond, cats[1].BatchDelay)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.yaml", "categories: [name: {")

	_, err := Load(path)
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestResolveFallsBackToBuiltins(t *testing.T) {
	f := &File{}
	cats, err := f.Resolve(nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"diseases", "medications", "symptoms", "procedures",
		"anatomy", "biological_functions", "lab_tests", "risk_factors",
	}, CategoryNames(cats))
}

func TestResolveSelectsNamedCategories(t *testing.T) {
	f := &File{}
	cats, err := f.Resolve([]string{"lab_tests", "diseases"})
	require.NoError(t, err)
	assert.Equal(t, []string{"lab_tests", "diseases"}, CategoryNames(cats))

	_, err = f.Resolve([]string{"vehicles"})
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)
}

func TestResolveRejectsDuplicates(t *testing.T) {
	f := &File{Categories: []Category{
		{Name: "diseases", SemanticTypes: []string{"T047"}},
		{Name: "diseases", SemanticTypes: []string{"T191"}},
	}}
	_, err := f.Resolve(nil)
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)
}

func TestCategoryValidate(t *testing.T) {
	tests := []struct {
		name string
		cat  Category
		ok   bool
	}{
		{"valid", Category{Name: "diseases", SemanticTypes: []string{"T047"}}, true},
		{"no name", Category{SemanticTypes: []string{"T047"}}, false},
		{"no codes", Category{Name: "diseases"}, false},
		{"negative batch", Category{Name: "d", SemanticTypes: []string{"T047"}, BatchSize: -1}, false},
		{"column width", Category{Name: "d", SemanticTypes: []string{"T047"}, MaxNameLength: 255}, true},
		{"wider than column", Category{Name: "d", SemanticTypes: []string{"T047"}, MaxNameLength: 300}, false},
		{"negative retries", Category{Name: "d", SemanticTypes: []string{"T047"}, BatchRetries: -2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cat.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)
		})
	}
}

func TestDefaultCategoriesAreValid(t *testing.T) {
	for _, c := range DefaultCategories() {
		assert.NoError(t, c.Validate(), c.Name)
		assert.NotEmpty(t, c.Sources, c.Name)
	}

	a := DefaultCategories()
	a[0].Sources[0] = "mutated"
	assert.Equal(t, "SNOMEDCT_US", DefaultCategories()[0].Sources[0])
}

func TestSourcesResolvePrefersMetaDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "META"), 0o755))

	in, err := Sources{Dir: dir}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "META", SemanticTypesFile), in.SemanticTypes)
	assert.Equal(t, filepath.Join(dir, "META", ConceptsFile), in.Concepts)
}

func TestSourcesResolveExplicitPaths(t *testing.T) {
	dir := t.TempDir()
	in, err := Sources{Dir: dir, Concepts: "/tmp/subset.RRF"}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, SemanticTypesFile), in.SemanticTypes)
	assert.Equal(t, "/tmp/subset.RRF", in.Concepts)

	_, err = Sources{SemanticTypes: "/tmp/MRSTY.RRF"}.Resolve()
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)
}
