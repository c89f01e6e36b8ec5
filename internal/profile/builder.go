// Package profile assembles university and program records out of resolved
// attributes.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	otelattr "go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/IvanKyuu/university-crawl/internal/adapters"
	"github.com/IvanKyuu/university-crawl/internal/respcache"
	"github.com/IvanKyuu/university-crawl/internal/resolver"
	"github.com/IvanKyuu/university-crawl/internal/telemetry"
	"github.com/IvanKyuu/university-crawl/lib/retry"
)

var tracer = otel.Tracer("unicrawl/internal/profile")

const (
	DefaultConcurrency = 4
	basicInfoMemoSize  = 128
)

type Options struct {
	// Universities resolves university attributes. Required.
	Universities *resolver.Resolver
	// Programs resolves program attributes. BuildProgram fails without it.
	Programs *resolver.Resolver

	Seeds       *Seeds
	Index       *Index
	Concurrency int
	Retry       retry.Policy
	Telemetry   telemetry.API
}

type Builder struct {
	universities *resolver.Resolver
	programs     *resolver.Resolver
	seeds        *Seeds
	index        *Index
	memo         *lru.Cache[string, adapters.BasicInfo]
	concurrency  int
	retry        retry.Policy
	tel          telemetry.API
}

func NewBuilder(opts Options) (*Builder, error) {
	if opts.Universities == nil {
		return nil, fmt.Errorf("builder needs a university resolver")
	}
	if opts.Index == nil {
		opts.Index = NewIndex()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.Default()
	}
	if opts.Telemetry == nil {
		opts.Telemetry = telemetry.SlogAPI{}
	}
	memo, err := lru.New[string, adapters.BasicInfo](basicInfoMemoSize)
	if err != nil {
		return nil, err
	}
	return &Builder{
		universities: opts.Universities,
		programs:     opts.Programs,
		seeds:        opts.Seeds,
		index:        opts.Index,
		memo:         memo,
		concurrency:  opts.Concurrency,
		retry:        opts.Retry,
		tel:          telemetry.NewScopedAPI("profile", opts.Telemetry),
	}, nil
}

func (b *Builder) Index() *Index {
	return b.index
}

func decodeBasicInfo(value any) (adapters.BasicInfo, bool) {
	var raw []byte
	switch v := value.(type) {
	case adapters.BasicInfo:
		return v, v.UniversityName != ""
	case string:
		raw = []byte(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return adapters.BasicInfo{}, false
		}
		raw = encoded
	}
	var info adapters.BasicInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return adapters.BasicInfo{}, false
	}
	return info, info.UniversityName != ""
}

func basicInfoEntry(info adapters.BasicInfo) respcache.Entry {
	return respcache.Entry{
		Value: map[string]any{
			"university_name": info.UniversityName,
			"abbreviation":    info.Abbreviation,
			"website":         info.Website,
			"wikipedia":       info.Wikipedia,
		},
		Evidence: info.References(),
	}
}

// BasicInfo returns the canonical name, abbreviation, website and wikipedia
// page of a university, trying the seed rows, the in-process memo, the
// response cache and the generative model in that order.
func (b *Builder) BasicInfo(ctx context.Context, name string) (adapters.BasicInfo, error) {
	if seed, ok := b.seeds.Lookup(name); ok {
		return seed.BasicInfo(), nil
	}
	if info, ok := b.memo.Get(name); ok {
		return info, nil
	}

	cache := b.universities.Cache()
	if entry, ok := cache.Get(respcache.BasicInfoKey(name)); ok {
		if info, ok := decodeBasicInfo(entry.Value); ok {
			b.memo.Add(name, info)
			return info, nil
		}
		b.tel.ReportWarning("basic_info.undecodable", "name", name)
	}

	generator := b.universities.Generator()
	info, err := retry.DoValue(ctx, b.retry, func(ctx context.Context) (adapters.BasicInfo, error) {
		return generator.BasicInfo(ctx, name)
	})
	if err != nil {
		return adapters.BasicInfo{}, fmt.Errorf("basic info of %s: %w", name, err)
	}

	entry := basicInfoEntry(info)
	cache.Put(respcache.BasicInfoKey(name), entry)
	b.memo.Add(name, info)
	if info.UniversityName != name {
		cache.Put(respcache.BasicInfoKey(info.UniversityName), entry)
		b.memo.Add(info.UniversityName, info)
	}
	return info, nil
}

// resolveAll resolves every attribute of `names` for the record's entity
// into the record. Attribute failures are kept on the record and never
// abort the build, only cancellation does. Tuition attributes go first and
// one at a time, since a single crawl answers both of them.
func (b *Builder) resolveAll(ctx context.Context, res *resolver.Resolver, record *Record, names []string, refs []string) error {
	var mutex sync.Mutex
	entity := record.Entity()

	resolveOne := func(ctx context.Context, name string) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		result, err := res.Resolve(ctx, resolver.Request{
			Entity:     entity,
			Attribute:  name,
			References: refs,
		})

		mutex.Lock()
		defer mutex.Unlock()
		switch {
		case errors.Is(err, context.Canceled) && ctx.Err() != nil:
			return err
		case err != nil:
			record.Failures[name] = err.Error()
			b.tel.ReportWarning("attribute.failed", "entity", entity, "attribute", name, "err", err)
		case !result.IsEmpty():
			record.Attributes[name] = result.Value
			record.Evidence[name] = result.Evidence
		}
		return nil
	}

	var rest []string
	for _, name := range names {
		desc, err := res.Attributes().Get(name)
		if err != nil || !desc.IsTuition() {
			rest = append(rest, name)
			continue
		}
		if err := resolveOne(ctx, name); err != nil {
			return err
		}
	}

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(b.concurrency)
	for _, name := range rest {
		group.Go(func() error {
			return resolveOne(gctx, name)
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// pending lists the attributes of the resolver's store the record still
// needs, in load order.
func pending(res *resolver.Resolver, record Record) []string {
	var names []string
	for _, name := range res.Attributes().Names() {
		if record.Kind.identity(name) || record.Filled(name) {
			continue
		}
		names = append(names, name)
	}
	return names
}

// Build resolves every known attribute of university `name` and registers
// the record in the index under its canonical name and `name`.
func (b *Builder) Build(ctx context.Context, name string) (Record, error) {
	ctx, span := tracer.Start(ctx, "Build")
	defer span.End()
	span.SetAttributes(otelattr.String("name", name))

	info, err := b.BasicInfo(ctx, name)
	if err != nil {
		if ctx.Err() != nil {
			return Record{}, ctx.Err()
		}
		b.tel.ReportWarning("basic_info.failed", "name", name, "err", err)
		info = adapters.BasicInfo{UniversityName: name}
	}
	canonical := info.UniversityName

	record := NewRecord(KindUniversity, 0, canonical)
	if existing, ok := b.index.Get(KindUniversity, canonical); ok {
		record.ID = existing.ID
	} else if seed, ok := b.seeds.Lookup(name); ok && seed.ID > 0 {
		record.ID = seed.ID
	}
	if err != nil {
		record.Failures["basic_info"] = err.Error()
	}
	for field, value := range map[string]string{
		"abbreviation": info.Abbreviation,
		"website":      info.Website,
		"wikipedia":    info.Wikipedia,
	} {
		if value != "" {
			record.Attributes[field] = value
			record.Evidence[field] = info.References()
		}
	}

	if err := b.resolveAll(ctx, b.universities, &record, pending(b.universities, record), info.References()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build cancelled")
		return Record{}, err
	}

	if record.ID == 0 {
		record.ID = b.index.NextID(KindUniversity)
	}
	b.index.Put(record, name)
	b.tel.ReportCount("attributes.resolved", int64(len(record.Attributes)))
	if len(record.Failures) > 0 {
		b.tel.ReportCount("attributes.failed", int64(len(record.Failures)))
	}
	return record, nil
}

// BuildProgram resolves the attributes of `program` offered by
// `university`, with the university's website and wikipedia page as
// references.
func (b *Builder) BuildProgram(ctx context.Context, university, program string) (Record, error) {
	ctx, span := tracer.Start(ctx, "BuildProgram")
	defer span.End()
	span.SetAttributes(
		otelattr.String("university", university),
		otelattr.String("program", program),
	)

	if b.programs == nil {
		return Record{}, fmt.Errorf("no program attributes loaded")
	}

	info, err := b.BasicInfo(ctx, university)
	if err != nil {
		if ctx.Err() != nil {
			return Record{}, ctx.Err()
		}
		b.tel.ReportWarning("basic_info.failed", "name", university, "err", err)
		info = adapters.BasicInfo{UniversityName: university}
	}

	record := NewRecord(KindProgram, 0, program)
	record.University = info.UniversityName
	if parent, ok := b.index.Get(KindUniversity, info.UniversityName); ok {
		record.UniversityID = parent.ID
	} else if seed, ok := b.seeds.Lookup(university); ok {
		record.UniversityID = seed.ID
	}
	if existing, ok := b.index.Get(KindProgram, record.Entity()); ok {
		record.ID = existing.ID
	}
	if err != nil {
		record.Failures["basic_info"] = err.Error()
	}
	if info.Website != "" {
		record.Attributes["university_official_website"] = info.Website
	}

	if err := b.resolveAll(ctx, b.programs, &record, pending(b.programs, record), info.References()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build cancelled")
		return Record{}, err
	}

	if record.ID == 0 {
		record.ID = b.index.NextID(KindProgram)
	}
	b.index.Put(record, ProgramEntity(university, program))
	return record, nil
}
