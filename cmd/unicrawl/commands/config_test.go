package commands

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReadConfigMergesDefaultsAndLocal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "unicrawl.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{
		// batch settings
		concurrency: 8,
		retry: { max_attempts: 5, max_interval: "10s" },
		rankings: { ranking_qs_news_2024: "ranking_data/qs.csv" },
	}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unicrawl.local.json5"), []byte(`{
		llm: { provider: "gemini" },
	}`), 0o644))

	cfg, err := readConfig(path)
	require.NoError(t, err)
	require.Equal(t, 8, cfg.Concurrency)
	require.Equal(t, "gemini", cfg.LLM.Provider)
	require.Equal(t, "cache_repo/response_cache.jsonl", cfg.CacheFile)
	require.Equal(t, "ranking_data/qs.csv", cfg.Rankings["ranking_qs_news_2024"])

	policy := cfg.Retry.Policy()
	require.Equal(t, 5, policy.MaxAttempts)
	require.Equal(t, time.Second, policy.InitialInterval)
	require.Equal(t, 10*time.Second, policy.MaxInterval)
}

func TestReadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := readConfig(filepath.Join(t.TempDir(), "missing.json5"))
	require.NoError(t, err)
	require.Equal(t, defaultConfig().CacheFile, cfg.CacheFile)
	require.Equal(t, 3, cfg.Retry.Policy().MaxAttempts)
}
