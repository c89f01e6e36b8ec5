// Package adapters defines the sources an attribute can be resolved from and
// implements them on top of the scrapers, search and llm clients in lib/.
package adapters

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"

	"github.com/IvanKyuu/university-crawl/internal/attribute"
)

var tracer = otel.Tracer("unicrawl/internal/adapters")

var (
	// ErrMalformedResponse is returned when a model reply cannot be parsed.
	// It is never retried.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrScrapeStructureMismatch is returned when a scraped page does not
	// have the expected shape. It is recorded for manual follow-up.
	ErrScrapeStructureMismatch = errors.New("scrape structure mismatch")
)

// Query is everything a source is told about one attribute question.
type Query struct {
	Entity     string
	Attribute  string
	Format     string
	Example    string
	Prompt     string
	References []string
	Breadth    int
}

// NewQuery builds the query for `desc`, sending its query name and the
// given references.
func NewQuery(entity string, desc attribute.Descriptor, references []string) Query {
	return Query{
		Entity:     entity,
		Attribute:  desc.QueryName(),
		Format:     desc.Format,
		Example:    desc.Example,
		Prompt:     desc.Prompt,
		References: references,
		Breadth:    desc.Breadth,
	}
}

// Answer is a value and the urls it was taken from, in order.
type Answer struct {
	Value    any
	Evidence []string
}

type Tuition struct {
	Domestic      string
	International string
}

type BasicInfo struct {
	UniversityName string `json:"university_name"`
	Abbreviation   string `json:"abbreviation"`
	Website        string `json:"website"`
	Wikipedia      string `json:"wikipedia"`
}

// References returns the non-empty website and wikipedia links.
func (b BasicInfo) References() []string {
	var out []string
	for _, ref := range []string{b.Website, b.Wikipedia} {
		if ref != "" {
			out = append(out, ref)
		}
	}
	return out
}

// Retriever answers from web search results.
type Retriever interface {
	Retrieve(ctx context.Context, q Query) (Answer, error)
	RetrieveRanking(ctx context.Context, q Query) (Answer, error)
}

// Generator answers from a model alone.
type Generator interface {
	Generate(ctx context.Context, q Query) (Answer, error)
	BasicInfo(ctx context.Context, name string) (BasicInfo, error)
}

type TuitionFetcher interface {
	FetchTuition(ctx context.Context, entity string) (Tuition, error)
}

// RankingSource looks an entity up in a static ranking table. The second
// result is false when the table is unknown or the entity matches zero or
// several rows.
type RankingSource interface {
	Has(table string) bool
	Ranking(table, entity string) (string, bool)
}
