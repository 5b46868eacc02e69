package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.Execute()
	return out.String(), err
}

func consoLine(cui, sab, tty, name, pref string) string {
	f := make([]string, 19)
	f[0], f[1], f[11], f[12], f[14], f[16] = cui, "ENG", sab, tty, name, pref
	return strings.Join(f, "|") + "\n"
}

func release(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "MRSTY.RRF"),
		[]byte("C0018801|T047|B2.2.1.2.1|Disease or Syndrome|AT0001|256|\nC0015967|T184|A2.2.2|Sign or Symptom|AT0002|256|\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "MRCONSO.RRF"),
		[]byte(consoLine("C0018801", "MSH", "PT", "Heart Failure", "Y")+consoLine("C0015967", "MSH", "PT", "Fever", "Y")), 0o644))
	return dir
}

func TestCategoriesCommand(t *testing.T) {
	out, err := run(t, "categories")
	require.NoError(t, err)
	assert.Contains(t, out, "biological_functions")
	assert.Contains(t, out, "IN,PIN,BN,SCD,PT,SY")
	assert.Contains(t, out, "PT,PV,SY")

	out, err = run(t, "categories", "--category", "lab_tests")
	require.NoError(t, err)
	assert.Contains(t, out, "lab_tests")
	assert.NotContains(t, out, "diseases")
}

func TestImportStatusPurge(t *testing.T) {
	dir := release(t)
	db := filepath.Join(t.TempDir(), "entities.db")

	out, err := run(t, "import", "--source-dir", dir, "--dsn", db, "--category", "diseases,symptoms")
	require.NoError(t, err)
	assert.Contains(t, out, "DONE")

	out, err = run(t, "import", "--source-dir", dir, "--dsn", db, "--category", "diseases")
	require.NoError(t, err)
	assert.Contains(t, out, "ALREADY_IMPORTED")

	out, err = run(t, "status", "--dsn", db, "--category", "diseases,anatomy")
	require.NoError(t, err)
	assert.Regexp(t, `diseases\s+1\s+true`, out)
	assert.Regexp(t, `anatomy\s+0\s+false`, out)

	_, err = run(t, "purge", "--dsn", db)
	assert.Error(t, err)

	out, err = run(t, "purge", "--dsn", db, "--category", "diseases")
	require.NoError(t, err)
	assert.Contains(t, out, "diseases\t1 deleted")
}

func TestImportReadsEnvironment(t *testing.T) {
	dir := release(t)
	t.Setenv("METALOAD_DSN", filepath.Join(t.TempDir(), "env.db"))
	t.Setenv("METALOAD_IMPORT_SOURCE_DIR", dir)

	out, err := run(t, "import", "--category", "symptoms")
	require.NoError(t, err)
	assert.Contains(t, out, "symptoms")
	assert.Contains(t, out, "DONE")
}

func TestCategoryListFromEnvironment(t *testing.T) {
	dir := release(t)
	t.Setenv("METALOAD_DSN", filepath.Join(t.TempDir(), "env.db"))
	t.Setenv("METALOAD_IMPORT_SOURCE_DIR", dir)
	t.Setenv("METALOAD_CATEGORY", "diseases, symptoms")

	out, err := run(t, "import")
	require.NoError(t, err)
	assert.Regexp(t, `diseases\s+DONE`, out)
	assert.Regexp(t, `symptoms\s+DONE`, out)
	assert.NotContains(t, out, "anatomy")

	out, err = run(t, "purge")
	require.NoError(t, err)
	assert.Contains(t, out, "diseases\t1 deleted")
	assert.Contains(t, out, "symptoms\t1 deleted")
}

func TestImportFailsWithoutInputs(t *testing.T) {
	_, err := run(t, "import", "--dsn", filepath.Join(t.TempDir(), "x.db"))
	assert.Error(t, err)
}

func TestImportReportsFailedCategory(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, "import", "--source-dir", dir, "--dsn", filepath.Join(t.TempDir(), "x.db"), "--category", "anatomy")
	require.Error(t, err)
	assert.Contains(t, out, "FAILED")
}
