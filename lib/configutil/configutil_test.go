package configutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name        string            `json:"name"`
	Concurrency int               `json:"concurrency"`
	Interval    Duration          `json:"interval"`
	Rankings    map[string]string `json:"rankings"`
}

func TestReadConfigMergesLocal(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "unicrawl.json5")

	err := os.WriteFile(base, []byte(`{
		// base values
		name: "base",
		concurrency: 4,
		interval: "2s",
		rankings: { qs: "qs.csv" },
	}`), 0600)
	require.NoError(t, err)
	err = os.WriteFile(LocalPath(base), []byte(`{ concurrency: 8 }`), 0600)
	require.NoError(t, err)

	config, err := ReadConfig[testConfig](base)
	require.NoError(t, err)
	require.Equal(t, "base", config.Name)
	require.Equal(t, 8, config.Concurrency)
	require.Equal(t, 2*time.Second, config.Interval.Std())
	require.Equal(t, "qs.csv", config.Rankings["qs"])
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "none.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)

	config, err := ReadConfigOr(filepath.Join(t.TempDir(), "none.json5"), testConfig{Concurrency: 3})
	require.NoError(t, err)
	require.Equal(t, 3, config.Concurrency)
}

func TestReadConfigOrFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unicrawl.json5")
	err := os.WriteFile(path, []byte(`{ name: "set" }`), 0600)
	require.NoError(t, err)

	config, err := ReadConfigOr(path, testConfig{Name: "default", Concurrency: 3})
	require.NoError(t, err)
	require.Equal(t, "set", config.Name)
	require.Equal(t, 3, config.Concurrency)
}

func TestLocalPath(t *testing.T) {
	require.Equal(t, "a/b.local.json5", LocalPath("a/b.json5"))
	require.Equal(t, "b.local", LocalPath("b"))
}

func TestRequireEnv(t *testing.T) {
	t.Setenv("UNICRAWL_TEST_KEY", "  value ")
	value, err := RequireEnv("UNICRAWL_TEST_KEY")
	require.NoError(t, err)
	require.Equal(t, "value", value)

	t.Setenv("UNICRAWL_TEST_KEY", "")
	_, err = RequireEnv("UNICRAWL_TEST_KEY")
	require.ErrorIs(t, err, ErrMissingEnv)
}
