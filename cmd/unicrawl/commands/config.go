package commands

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/IvanKyuu/university-crawl/lib/configutil"
	configlibsql "github.com/IvanKyuu/university-crawl/lib/configutil/libsql"
	"github.com/IvanKyuu/university-crawl/lib/llm"
	"github.com/IvanKyuu/university-crawl/lib/restyutil"
	"github.com/IvanKyuu/university-crawl/lib/retry"
	"github.com/IvanKyuu/university-crawl/lib/search"
)

type AttributesConfig struct {
	University string `json:"university"`
	Program    string `json:"program"`
}

type RetryConfig struct {
	MaxAttempts     int                 `json:"max_attempts"`
	InitialInterval configutil.Duration `json:"initial_interval"`
	MaxInterval     configutil.Duration `json:"max_interval"`
}

func (c RetryConfig) Policy() retry.Policy {
	policy := retry.Default()
	if c.MaxAttempts > 0 {
		policy.MaxAttempts = c.MaxAttempts
	}
	if c.InitialInterval > 0 {
		policy.InitialInterval = c.InitialInterval.Std()
	}
	if c.MaxInterval > 0 {
		policy.MaxInterval = c.MaxInterval.Std()
	}
	policy.Notify = func(err error, wait time.Duration) {
		slog.Debug("retrying", "wait", wait, "err", err)
	}
	return policy
}

type TuitionConfig struct {
	BaseURL string `json:"base_url"`
}

type Config struct {
	CacheFile  string              `json:"cache_file"`
	Attributes AttributesConfig    `json:"attributes"`
	Seeds      string              `json:"seeds"`
	Rankings   map[string]string   `json:"rankings"`
	Database   configlibsql.Struct `json:"database"`
	LLM        llm.Config          `json:"llm"`
	Search     search.Config       `json:"search"`
	Tuition    TuitionConfig       `json:"tuition"`

	Concurrency   int         `json:"concurrency"`
	FlushSchedule string      `json:"flush_schedule"`
	Retry         RetryConfig `json:"retry"`
	// HTTPDumpDir receives request/response dumps when running verbose.
	HTTPDumpDir string `json:"http_dump_dir"`
}

func defaultConfig() Config {
	return Config{
		CacheFile: "cache_repo/response_cache.jsonl",
		Attributes: AttributesConfig{
			University: "cache_repo/university_attributes.xlsx",
		},
		Database:      configlibsql.Struct{File: "unicrawl.db"},
		LLM:           llm.Config{Provider: "anthropic"},
		Search:        search.Config{Primary: "tavily"},
		Concurrency:   4,
		FlushSchedule: "@every 5m",
		Retry: RetryConfig{
			MaxAttempts:     3,
			InitialInterval: configutil.Duration(time.Second),
			MaxInterval:     configutil.Duration(30 * time.Second),
		},
		HTTPDumpDir: ".dev/resty",
	}
}

func readConfig(path string) (Config, error) {
	return configutil.ReadConfigOr(path, defaultConfig())
}

// dump returns where HTTP exchanges of `component` are written, nil unless
// verbose.
func (c Config) dump(component string) restyutil.InstrumentOutput {
	if !verbose || c.HTTPDumpDir == "" {
		return nil
	}
	out, err := restyutil.NewFilesystemOutput(filepath.Join(c.HTTPDumpDir, component), "")
	if err != nil {
		slog.Warn("failed to create dump directory", "component", component, "err", err)
		return nil
	}
	return out
}
