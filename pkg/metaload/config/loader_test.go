package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/metaload/pkg/metaload/internalerr"
)

func TestLoaderOverridesRunFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "run.yaml", `sources:
  dir: /ignored
store:
  driver: sqlite
  dsn: from-file.db
parallelism: 2
`)

	l := &Loader{
		Path:        path,
		SourceDir:   dir,
		StoreDSN:    "override.db",
		Parallelism: 4,
		Only:        []string{"symptoms"},
	}
	run, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, SemanticTypesFile), run.Inputs.SemanticTypes)
	assert.Equal(t, "sqlite", run.Store.Driver)
	assert.Equal(t, "override.db", run.Store.DSN)
	assert.Equal(t, 4, run.Parallelism)
	assert.Equal(t, []string{"symptoms"}, CategoryNames(run.Categories))
}

func TestLoaderWithoutRunFile(t *testing.T) {
	l := &Loader{SemanticTypesPath: "a.RRF", ConceptsPath: "b.RRF"}
	run, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, "metaload.db", run.Store.DSN)
	assert.Equal(t, 1, run.Parallelism)
	assert.Len(t, run.Categories, len(DefaultCategories()))
}

func TestLoaderRequiresInputs(t *testing.T) {
	_, err := (&Loader{}).Load()
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)
}

func TestLoaderStoreDrivers(t *testing.T) {
	sc, err := (&Loader{StoreDriver: "PostgreSQL", StoreDSN: "postgres://db/x"}).Store()
	require.NoError(t, err)
	assert.Equal(t, "postgres", sc.Driver)

	_, err = (&Loader{StoreDriver: "postgres"}).Store()
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)

	_, err = (&Loader{StoreDriver: "mysql", StoreDSN: "x"}).Store()
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)
}
