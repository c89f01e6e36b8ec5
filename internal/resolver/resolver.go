// Package resolver walks the fallback chain of sources for one attribute of
// one entity and caches whatever it settles on.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	otelattr "go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"github.com/IvanKyuu/university-crawl/internal/adapters"
	"github.com/IvanKyuu/university-crawl/internal/attribute"
	"github.com/IvanKyuu/university-crawl/internal/ledger"
	"github.com/IvanKyuu/university-crawl/internal/respcache"
	"github.com/IvanKyuu/university-crawl/internal/telemetry"
	"github.com/IvanKyuu/university-crawl/lib/retry"
)

var (
	tracer = otel.Tracer("unicrawl/internal/resolver")
	meter  = otel.Meter("unicrawl/internal/resolver")
)

// Context is everything a run resolves with. It is built once and shared by
// every resolution of the run.
type Context struct {
	Attributes *attribute.Store
	Cache      *respcache.Cache

	Tuition  adapters.TuitionFetcher
	Rankings adapters.RankingSource
	// Retriever may be nil, in which case retrieval is skipped.
	Retriever adapters.Retriever
	// AlternateRetriever serves attributes assigned to the alternate search
	// provider. Retriever is used when it is nil.
	AlternateRetriever adapters.Retriever
	Generator          adapters.Generator

	Ledger    ledger.Ledger
	Retry     retry.Policy
	Telemetry telemetry.API
	RunID     string
}

type Request struct {
	Entity    string
	Attribute string
	// References are tried before the descriptor's own references.
	References []string
}

type Result struct {
	Value    any
	Evidence []string
	// Stage is the stage that produced the value: StageCached, one of the
	// TRY stages, StageResolved when every stage came back empty, or
	// StageFailed.
	Stage    Stage
	Outcome  Outcome
	Attempts []Attempt
}

func (r Result) IsEmpty() bool {
	return respcache.Entry{Value: r.Value}.IsEmpty()
}

type Resolver struct {
	rc    Context
	tel   telemetry.API
	group singleflight.Group

	stageCounter    metric.Int64Counter
	filteredCounter metric.Int64Counter
}

func New(rc Context) (*Resolver, error) {
	if rc.Attributes == nil || rc.Cache == nil || rc.Generator == nil {
		return nil, fmt.Errorf("resolver context needs attributes, a cache and a generator")
	}
	if rc.Telemetry == nil {
		rc.Telemetry = telemetry.SlogAPI{}
	}
	if rc.Retry.MaxAttempts == 0 {
		rc.Retry = retry.Default()
	}

	stageCounter, err := meter.Int64Counter(
		"unicrawl.resolver.stage",
		metric.WithDescription("sources consulted, by stage"),
	)
	if err != nil {
		return nil, err
	}
	filteredCounter, err := meter.Int64Counter(
		"unicrawl.resolver.filtered",
		metric.WithDescription("answers dropped for containing a no-answer marker"),
	)
	if err != nil {
		return nil, err
	}

	return &Resolver{
		rc:              rc,
		tel:             telemetry.NewScopedAPI("resolver", rc.Telemetry),
		stageCounter:    stageCounter,
		filteredCounter: filteredCounter,
	}, nil
}

func (r *Resolver) Attributes() *attribute.Store {
	return r.rc.Attributes
}

func (r *Resolver) Cache() *respcache.Cache {
	return r.rc.Cache
}

func (r *Resolver) Generator() adapters.Generator {
	return r.rc.Generator
}

func cachedResult(entry respcache.Entry) Result {
	outcome := OutcomeResolved
	if entry.IsEmpty() {
		outcome = OutcomeEmpty
	}
	return Result{
		Value:    entry.Value,
		Evidence: entry.Evidence,
		Stage:    StageCached,
		Outcome:  outcome,
	}
}

// Resolve returns the cached answer for the request or walks the sources:
// the dedicated crawler or ranking table, then retrieval, then the
// generative model. The first non-empty answer is cached and returned. When
// every source comes back empty the empty answer is cached too. When the
// last source errors nothing is cached and the stage errors are returned.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Result, error) {
	ctx, span := tracer.Start(ctx, "Resolve")
	defer span.End()
	span.SetAttributes(
		otelattr.String("entity", req.Entity),
		otelattr.String("attribute", req.Attribute),
	)

	desc, err := r.rc.Attributes.Get(req.Attribute)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unknown attribute")
		return Result{}, err
	}

	key := respcache.AttributeKey(req.Entity, req.Attribute)
	if entry, ok := r.rc.Cache.Get(key); ok {
		r.count(ctx, StageCached)
		return cachedResult(entry), nil
	}

	shared, err, _ := r.group.Do(key.String(), func() (any, error) {
		if entry, ok := r.rc.Cache.Get(key); ok {
			return cachedResult(entry), nil
		}
		return r.resolve(ctx, desc, req, key)
	})
	result, _ := shared.(Result)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolution failed")
		return result, err
	}
	span.SetAttributes(
		otelattr.String("stage", result.Stage.String()),
		otelattr.String("outcome", result.Outcome.String()),
	)
	return result, nil
}

func (r *Resolver) count(ctx context.Context, stage Stage) {
	r.stageCounter.Add(ctx, 1, metric.WithAttributes(otelattr.String("stage", stage.String())))
}

func (r *Resolver) resolve(ctx context.Context, desc attribute.Descriptor, req Request, key respcache.Key) (Result, error) {
	var attempts []Attempt
	var errs []error

	settle := func(stage Stage, answer adapters.Answer) (Result, error) {
		evidence := answer.Evidence
		if evidence == nil {
			evidence = []string{}
		}
		r.rc.Cache.Put(key, respcache.Entry{Value: answer.Value, Evidence: evidence})
		return Result{
			Value:    answer.Value,
			Evidence: evidence,
			Stage:    stage,
			Outcome:  OutcomeResolved,
			Attempts: attempts,
		}, nil
	}

	if answer, attempt, ok := r.tryDedicated(ctx, desc, req); ok {
		attempts = append(attempts, attempt)
		if attempt.Err != nil {
			errs = append(errs, attempt.Err)
		}
		if !attempt.Empty && attempt.Err == nil {
			return settle(StageDedicated, answer)
		}
	}

	if retriever, source := r.retrieverFor(desc); retriever != nil {
		answer, attempt := r.tryRetrieval(ctx, retriever, source, desc, req)
		attempts = append(attempts, attempt)
		if attempt.Err != nil {
			errs = append(errs, attempt.Err)
		}
		if !attempt.Empty && attempt.Err == nil {
			return settle(StageRetrieval, answer)
		}
	}

	answer, attempt := r.tryGenerative(ctx, desc, req)
	attempts = append(attempts, attempt)
	if attempt.Err != nil {
		errs = append(errs, attempt.Err)
		return Result{
			Value:    "",
			Evidence: []string{},
			Stage:    StageFailed,
			Outcome:  OutcomeFailed,
			Attempts: attempts,
		}, fmt.Errorf("resolve %s of %s: %w", req.Attribute, req.Entity, errors.Join(errs...))
	}
	if !attempt.Empty {
		return settle(StageGenerative, answer)
	}

	outcome := OutcomeExhausted
	for _, a := range attempts {
		if a.Filtered {
			outcome = OutcomeFiltered
			break
		}
	}
	r.rc.Cache.Put(key, respcache.Entry{Value: "", Evidence: []string{}})
	return Result{
		Value:    "",
		Evidence: []string{},
		Stage:    StageResolved,
		Outcome:  outcome,
		Attempts: attempts,
	}, nil
}

// tryDedicated runs the tuition crawler for tuition attributes and the
// static table for ranking attributes that have one. ok is false when
// neither applies.
func (r *Resolver) tryDedicated(ctx context.Context, desc attribute.Descriptor, req Request) (adapters.Answer, Attempt, bool) {
	switch {
	case desc.IsTuition() && r.rc.Tuition != nil:
		answer, attempt := r.tryTuition(ctx, desc, req)
		return answer, attempt, true
	case desc.IsRanking() && r.rc.Rankings != nil && r.rc.Rankings.Has(desc.Name):
		ctx, span := tracer.Start(ctx, "TryRankingTable")
		defer span.End()
		r.count(ctx, StageDedicated)

		rank, found := r.rc.Rankings.Ranking(desc.Name, req.Entity)
		rank = strings.TrimSpace(rank)
		attempt := Attempt{Stage: StageDedicated, Source: "rankings", Empty: !found || rank == ""}
		return adapters.Answer{Value: rank, Evidence: []string{}}, attempt, true
	}
	return adapters.Answer{}, Attempt{}, false
}

func (r *Resolver) tryTuition(ctx context.Context, desc attribute.Descriptor, req Request) (adapters.Answer, Attempt) {
	ctx, span := tracer.Start(ctx, "TryTuition")
	defer span.End()
	r.count(ctx, StageDedicated)

	attempt := Attempt{Stage: StageDedicated, Source: "tuition"}
	tuition, err := retry.DoValue(ctx, r.rc.Retry, func(ctx context.Context) (adapters.Tuition, error) {
		return r.rc.Tuition.FetchTuition(ctx, req.Entity)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "tuition crawl failed")
		attempt.Err = err
		attempt.Empty = true
		r.recordTrouble(ctx, req, err)
		return adapters.Answer{}, attempt
	}

	domesticName, internationalName := attribute.TuitionAttributes()
	fields := map[string]string{
		domesticName:      tuition.Domestic,
		internationalName: tuition.International,
	}
	for name, value := range fields {
		if value == "" || name == desc.Name || !r.rc.Attributes.Has(name) {
			continue
		}
		sibling := respcache.AttributeKey(req.Entity, name)
		if !r.rc.Cache.Contains(sibling) {
			r.rc.Cache.Put(sibling, respcache.Entry{Value: value, Evidence: []string{}})
		}
	}

	var value any
	if field, ok := fields[desc.Name]; ok {
		value = field
		attempt.Empty = field == ""
	} else {
		value = fields
		attempt.Empty = tuition.Domestic == "" && tuition.International == ""
	}
	return adapters.Answer{Value: value, Evidence: []string{}}, attempt
}

func (r *Resolver) recordTrouble(ctx context.Context, req Request, cause error) {
	if r.rc.Ledger == nil || errors.Is(cause, context.Canceled) {
		return
	}
	err := r.rc.Ledger.Record(ctx, ledger.Entry{
		RunID:     r.rc.RunID,
		Entity:    req.Entity,
		Attribute: req.Attribute,
		Handler:   attribute.HandlerDedicatedCrawler.String(),
		Message:   cause.Error(),
	})
	if err != nil {
		r.tel.ReportBroken("ledger", err)
	}
}

func (r *Resolver) retrieverFor(desc attribute.Descriptor) (adapters.Retriever, string) {
	if desc.Handler == attribute.HandlerGenerative {
		return nil, ""
	}
	if desc.Handler == attribute.HandlerAlternateSearch && r.rc.AlternateRetriever != nil {
		return r.rc.AlternateRetriever, "alternate"
	}
	if r.rc.Retriever == nil {
		return nil, ""
	}
	return r.rc.Retriever, "retrieval"
}

func (r *Resolver) references(desc attribute.Descriptor, req Request) []string {
	refs := make([]string, 0, len(req.References)+len(desc.References))
	refs = append(refs, req.References...)
	refs = append(refs, desc.References...)
	return refs
}

// filter empties string answers that carry a no-answer marker.
func (r *Resolver) filter(ctx context.Context, answer adapters.Answer, attempt *Attempt) adapters.Answer {
	text, ok := answer.Value.(string)
	if !ok {
		attempt.Empty = respcache.Entry{Value: answer.Value}.IsEmpty()
		return answer
	}
	text = strings.TrimSpace(text)
	filtered, dropped := Filter(text)
	if dropped {
		attempt.Filtered = true
		r.filteredCounter.Add(ctx, 1, metric.WithAttributes(otelattr.String("stage", attempt.Stage.String())))
		r.tel.ReportDebug("filtered", attempt.Stage.String(), text)
	}
	attempt.Empty = filtered == ""
	answer.Value = filtered
	return answer
}

func (r *Resolver) tryRetrieval(ctx context.Context, retriever adapters.Retriever, source string, desc attribute.Descriptor, req Request) (adapters.Answer, Attempt) {
	ctx, span := tracer.Start(ctx, "TryRetrieval")
	defer span.End()
	r.count(ctx, StageRetrieval)

	attempt := Attempt{Stage: StageRetrieval, Source: source}
	refs := r.references(desc, req)
	if desc.IsRanking() {
		// ranking searches stay on the descriptor's own sources
		refs = append([]string(nil), desc.References...)
	}
	query := adapters.NewQuery(req.Entity, desc, refs)
	answer, err := retry.DoValue(ctx, r.rc.Retry, func(ctx context.Context) (adapters.Answer, error) {
		if desc.IsRanking() {
			return retriever.RetrieveRanking(ctx, query)
		}
		return retriever.Retrieve(ctx, query)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "retrieval failed")
		r.tel.ReportDebug("retrieval-failed", req.Entity, req.Attribute, err)
		attempt.Err = err
		attempt.Empty = true
		return adapters.Answer{}, attempt
	}
	answer = r.filter(ctx, answer, &attempt)
	return answer, attempt
}

func (r *Resolver) tryGenerative(ctx context.Context, desc attribute.Descriptor, req Request) (adapters.Answer, Attempt) {
	ctx, span := tracer.Start(ctx, "TryGenerative")
	defer span.End()
	r.count(ctx, StageGenerative)

	attempt := Attempt{Stage: StageGenerative, Source: "generative"}
	query := adapters.NewQuery(req.Entity, desc, r.references(desc, req))
	answer, err := retry.DoValue(ctx, r.rc.Retry, func(ctx context.Context) (adapters.Answer, error) {
		return r.rc.Generator.Generate(ctx, query)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		r.tel.ReportDebug("generative-failed", req.Entity, req.Attribute, err)
		attempt.Err = err
		attempt.Empty = true
		return adapters.Answer{}, attempt
	}
	answer = r.filter(ctx, answer, &attempt)
	return answer, attempt
}
