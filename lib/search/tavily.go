package search

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/IvanKyuu/university-crawl/lib/restyutil"
)

const tavilyBaseURL = "https://api.tavily.com"

type TavilyOptions struct {
	APIKey  string
	BaseURL string
	Dump    restyutil.InstrumentOutput
}

type Tavily struct {
	client *resty.Client
}

type tavilyRequest struct {
	Query          string   `json:"query"`
	MaxResults     int      `json:"max_results,omitempty"`
	SearchDepth    string   `json:"search_depth"`
	IncludeDomains []string `json:"include_domains,omitempty"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

func NewTavily(opts TavilyOptions) (*Tavily, error) {
	key := opts.APIKey
	if key == "" {
		key = strings.TrimSpace(os.Getenv("TAVILY_API_KEY"))
	}
	if key == "" {
		return nil, fmt.Errorf("%w: TAVILY_API_KEY", ErrMissingCredential)
	}
	base := opts.BaseURL
	if base == "" {
		base = tavilyBaseURL
	}

	client := resty.New().
		SetBaseURL(strings.TrimSuffix(base, "/")).
		SetAuthToken(key).
		SetTimeout(time.Minute)
	restyutil.InstrumentClient(client, tracer, opts.Dump)
	return &Tavily{client: client}, nil
}

func (t *Tavily) Name() string {
	return "tavily"
}

func (t *Tavily) Search(ctx context.Context, q Query) ([]Result, error) {
	ctx, span := tracer.Start(ctx, "Tavily.Search")
	defer span.End()
	span.SetAttributes(attribute.String("query", q.Text))

	var body tavilyResponse
	res, err := t.client.R().
		SetContext(ctx).
		SetBody(tavilyRequest{
			Query:          q.Text,
			MaxResults:     q.MaxResults,
			SearchDepth:    "advanced",
			IncludeDomains: q.Domains,
		}).
		SetResult(&body).
		Post("/search")
	if err := classify(res, err); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "tavily search failed")
		return nil, err
	}

	results := make([]Result, 0, len(body.Results))
	for _, r := range body.Results {
		results = append(results, Result{Title: r.Title, URL: r.URL, Content: r.Content})
	}
	if q.MaxResults > 0 && len(results) > q.MaxResults {
		results = results[:q.MaxResults]
	}
	span.SetAttributes(attribute.Int("results", len(results)))
	return results, nil
}
