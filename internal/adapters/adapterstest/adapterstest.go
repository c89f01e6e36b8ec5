// Package adapterstest provides in-memory sources that count their calls.
package adapterstest

import (
	"context"
	"sync"

	"github.com/IvanKyuu/university-crawl/internal/adapters"
	"github.com/IvanKyuu/university-crawl/lib/llm"
	"github.com/IvanKyuu/university-crawl/lib/search"
)

type calls struct {
	mutex   sync.Mutex
	queries []adapters.Query
}

func (c *calls) record(q adapters.Query) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.queries = append(c.queries, q)
}

// Queries returns every query received, in order.
func (c *calls) Queries() []adapters.Query {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	out := make([]adapters.Query, len(c.queries))
	copy(out, c.queries)
	return out
}

func (c *calls) Calls() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.queries)
}

// Tuition returns Result, or Err when set.
type Tuition struct {
	calls
	Result adapters.Tuition
	Err    error
}

func (t *Tuition) FetchTuition(_ context.Context, entity string) (adapters.Tuition, error) {
	t.record(adapters.Query{Entity: entity})
	if t.Err != nil {
		return adapters.Tuition{}, t.Err
	}
	return t.Result, nil
}

// Retriever answers from Answers keyed by attribute. Attributes without an
// answer get an empty one.
type Retriever struct {
	calls
	Answers map[string]adapters.Answer
	Errs    map[string]error

	rankingMutex sync.Mutex
	rankingCalls int
}

func (r *Retriever) lookup(q adapters.Query) (adapters.Answer, error) {
	r.record(q)
	if err := r.Errs[q.Attribute]; err != nil {
		return adapters.Answer{}, err
	}
	if answer, ok := r.Answers[q.Attribute]; ok {
		return answer, nil
	}
	return adapters.Answer{Value: ""}, nil
}

func (r *Retriever) Retrieve(_ context.Context, q adapters.Query) (adapters.Answer, error) {
	return r.lookup(q)
}

func (r *Retriever) RetrieveRanking(_ context.Context, q adapters.Query) (adapters.Answer, error) {
	r.rankingMutex.Lock()
	r.rankingCalls++
	r.rankingMutex.Unlock()
	return r.lookup(q)
}

func (r *Retriever) RankingCalls() int {
	r.rankingMutex.Lock()
	defer r.rankingMutex.Unlock()
	return r.rankingCalls
}

// Generator answers from Answers keyed by attribute and Info keyed by name.
type Generator struct {
	calls
	Answers map[string]adapters.Answer
	Errs    map[string]error
	Info    map[string]adapters.BasicInfo

	infoMutex sync.Mutex
	infoCalls []string
}

func (g *Generator) Generate(_ context.Context, q adapters.Query) (adapters.Answer, error) {
	g.record(q)
	if err := g.Errs[q.Attribute]; err != nil {
		return adapters.Answer{}, err
	}
	if answer, ok := g.Answers[q.Attribute]; ok {
		return answer, nil
	}
	return adapters.Answer{Value: ""}, nil
}

func (g *Generator) BasicInfo(_ context.Context, name string) (adapters.BasicInfo, error) {
	g.infoMutex.Lock()
	g.infoCalls = append(g.infoCalls, name)
	g.infoMutex.Unlock()
	if info, ok := g.Info[name]; ok {
		return info, nil
	}
	return adapters.BasicInfo{UniversityName: name}, nil
}

func (g *Generator) InfoCalls() []string {
	g.infoMutex.Lock()
	defer g.infoMutex.Unlock()
	out := make([]string, len(g.infoCalls))
	copy(out, g.infoCalls)
	return out
}

// Rankings maps table to entity to rank.
type Rankings map[string]map[string]string

func (r Rankings) Has(table string) bool {
	_, ok := r[table]
	return ok
}

func (r Rankings) Ranking(table, entity string) (string, bool) {
	rank, ok := r[table][entity]
	return rank, ok
}

// Provider replies with Reply, or calls Respond when it is set.
type Provider struct {
	Reply   string
	Respond func(req llm.Request) (string, error)

	mutex    sync.Mutex
	requests []llm.Request
}

func (p *Provider) Name() string {
	return "fake"
}

func (p *Provider) Complete(_ context.Context, req llm.Request) (string, error) {
	p.mutex.Lock()
	p.requests = append(p.requests, req)
	p.mutex.Unlock()
	if p.Respond != nil {
		return p.Respond(req)
	}
	return p.Reply, nil
}

func (p *Provider) Requests() []llm.Request {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	out := make([]llm.Request, len(p.requests))
	copy(out, p.requests)
	return out
}

// Searcher returns Results, or Err when set.
type Searcher struct {
	Results []search.Result
	Err     error

	mutex   sync.Mutex
	queries []search.Query
}

func (s *Searcher) Name() string {
	return "fake"
}

func (s *Searcher) Search(_ context.Context, q search.Query) ([]search.Result, error) {
	s.mutex.Lock()
	s.queries = append(s.queries, q)
	s.mutex.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Results, nil
}

func (s *Searcher) Queries() []search.Query {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	out := make([]search.Query, len(s.queries))
	copy(out, s.queries)
	return out
}
