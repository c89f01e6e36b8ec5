package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IvanKyuu/university-crawl/internal/adapters"
	"github.com/IvanKyuu/university-crawl/internal/attribute"
	"github.com/IvanKyuu/university-crawl/internal/chrono"
	"github.com/IvanKyuu/university-crawl/internal/db"
	"github.com/IvanKyuu/university-crawl/internal/ledger"
	"github.com/IvanKyuu/university-crawl/internal/profile"
	"github.com/IvanKyuu/university-crawl/internal/resolver"
	"github.com/IvanKyuu/university-crawl/internal/respcache"
	"github.com/IvanKyuu/university-crawl/internal/sheets"
	"github.com/IvanKyuu/university-crawl/internal/telemetry"
	"github.com/IvanKyuu/university-crawl/lib/llm"
	"github.com/IvanKyuu/university-crawl/lib/rankings"
	"github.com/IvanKyuu/university-crawl/lib/scrapers/universitystudy"
	"github.com/IvanKyuu/university-crawl/lib/search"
	"github.com/IvanKyuu/university-crawl/lib/util/serviceutil"
)

// app holds what every command shares: the config, the response cache and
// the database.
type app struct {
	cfg   Config
	tel   telemetry.API
	clock chrono.TimeAPI
	cache *respcache.Cache
	conn  *sql.DB
}

// openApp reads the config, loads the response cache and opens the
// database, exiting on failure.
func openApp(ctx context.Context) *app {
	cfg, err := readConfig(configPath)
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}

	a := &app{
		cfg:   cfg,
		tel:   telemetry.SlogAPI{},
		clock: chrono.StandardTime{},
	}
	a.cache = respcache.New(a.tel)
	count, err := a.cache.Load(ctx, cfg.CacheFile)
	if err != nil {
		serviceutil.Fatal("failed to load response cache", err)
	}
	slog.Debug("loaded response cache", "path", cfg.CacheFile, "entries", count)

	a.conn, err = cfg.Database.OpenDB()
	if err != nil {
		serviceutil.Fatal("failed to open database", err)
	}
	if err := db.Migrate(ctx, a.conn); err != nil {
		serviceutil.Fatal("failed to migrate database", err)
	}
	return a
}

func (a *app) Close() {
	if err := a.conn.Close(); err != nil {
		slog.Warn("failed to close database", "err", err)
	}
}

func (a *app) flush(ctx context.Context) {
	if err := a.cache.Flush(ctx, a.cfg.CacheFile); err != nil {
		a.tel.ReportBroken("cache.flush", err)
		return
	}
	slog.Debug("flushed response cache", "path", a.cfg.CacheFile, "entries", a.cache.Len())
}

func (a *app) ledger() ledger.Ledger {
	return ledger.NewStore(a.conn, a.tel, a.clock)
}

func (a *app) profiles() *profile.Store {
	return profile.NewStore(a.conn, a.clock)
}

func (a *app) attributePath(kind profile.Kind) string {
	if kind == profile.KindProgram {
		return a.cfg.Attributes.Program
	}
	return a.cfg.Attributes.University
}

// attributes loads the metadata of `kind`. A kind without a configured
// file has no attributes.
func (a *app) attributes(kind profile.Kind) (*attribute.Store, error) {
	path := a.attributePath(kind)
	if path == "" {
		return nil, fmt.Errorf("no %s attribute file configured", kind)
	}
	rows, err := sheets.ReadAttributes(path, "")
	if err != nil {
		return nil, fmt.Errorf("read %s attributes: %w", kind, err)
	}
	return attribute.LoadRows(rows, a.tel), nil
}

func (a *app) seeds() *profile.Seeds {
	if a.cfg.Seeds == "" {
		return profile.NewSeeds(nil)
	}
	rows, err := sheets.ReadSeeds(a.cfg.Seeds, "")
	if err != nil {
		a.tel.ReportWarning("seeds", "path", a.cfg.Seeds, "err", err)
		return profile.NewSeeds(nil)
	}
	return profile.NewSeeds(rows)
}

func (a *app) rankings() rankings.Set {
	set, err := rankings.OpenSet(a.cfg.Rankings)
	if err != nil {
		// tables that opened are still served
		a.tel.ReportWarning("rankings", "err", err)
	}
	return set
}

// sources builds the adapters shared by both resolvers. Missing
// credentials are fatal.
func (a *app) sources(ctx context.Context, runID string) resolver.Context {
	llmConfig := a.cfg.LLM
	llmConfig.Dump = a.cfg.dump("llm")
	provider, err := llm.New(ctx, llmConfig)
	if err != nil {
		serviceutil.Fatal("failed to create llm provider", err)
	}

	rc := resolver.Context{
		Cache:     a.cache,
		Rankings:  a.rankings(),
		Generator: adapters.NewGenerative(provider),
		Ledger:    a.ledger(),
		Retry:     a.cfg.Retry.Policy(),
		Telemetry: a.tel,
		RunID:     runID,
	}

	if a.cfg.Search.Primary != "" {
		searcher, err := search.New(a.cfg.Search.Primary, a.cfg.Search.BaseURL, a.cfg.dump("search"))
		if err != nil {
			serviceutil.Fatal("failed to create searcher", err)
		}
		rc.Retriever = adapters.NewRetrieval(searcher, provider)
	}
	if a.cfg.Search.Alternate != "" {
		searcher, err := search.New(a.cfg.Search.Alternate, a.cfg.Search.BaseURL, a.cfg.dump("search"))
		if errors.Is(err, search.ErrMissingCredential) {
			a.tel.ReportWarning("search.alternate", "err", err)
		} else if err != nil {
			serviceutil.Fatal("failed to create alternate searcher", err)
		} else {
			rc.AlternateRetriever = adapters.NewRetrieval(searcher, provider)
		}
	}

	client, err := universitystudy.NewClient(universitystudy.Options{
		BaseURL: a.cfg.Tuition.BaseURL,
		Dump:    a.cfg.dump("universitystudy"),
	})
	if err != nil {
		serviceutil.Fatal("failed to create tuition scraper", err)
	}
	rc.Tuition = adapters.NewTuitionScraper(client)
	return rc
}

// resolver builds the resolver for `kind` on top of shared sources.
func (a *app) resolver(rc resolver.Context, kind profile.Kind) (*resolver.Resolver, error) {
	store, err := a.attributes(kind)
	if err != nil {
		return nil, err
	}
	rc.Attributes = store
	return resolver.New(rc)
}
