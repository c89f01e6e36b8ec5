package search

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/IvanKyuu/university-crawl/lib/restyutil"
)

const googleBaseURL = "https://www.googleapis.com"

// google's custom search api returns at most 10 items per page
const googleMaxResults = 10

type GoogleOptions struct {
	APIKey   string
	EngineID string
	BaseURL  string
	Dump     restyutil.InstrumentOutput
}

// Google queries the Custom Search JSON API.
type Google struct {
	client   *resty.Client
	key      string
	engineID string
}

type googleResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}

func NewGoogle(opts GoogleOptions) (*Google, error) {
	key := opts.APIKey
	if key == "" {
		key = strings.TrimSpace(os.Getenv("GOOGLE_API_KEY"))
	}
	engine := opts.EngineID
	if engine == "" {
		engine = strings.TrimSpace(os.Getenv("GOOGLE_CSE_ID"))
	}
	if key == "" || engine == "" {
		return nil, fmt.Errorf("%w: GOOGLE_API_KEY and GOOGLE_CSE_ID", ErrMissingCredential)
	}
	base := opts.BaseURL
	if base == "" {
		base = googleBaseURL
	}

	client := resty.New().
		SetBaseURL(strings.TrimSuffix(base, "/")).
		SetTimeout(30 * time.Second)
	restyutil.InstrumentClient(client, tracer, opts.Dump)
	return &Google{client: client, key: key, engineID: engine}, nil
}

func (g *Google) Name() string {
	return "google"
}

func (g *Google) Search(ctx context.Context, q Query) ([]Result, error) {
	ctx, span := tracer.Start(ctx, "Google.Search")
	defer span.End()
	span.SetAttributes(attribute.String("query", q.Text))

	num := q.MaxResults
	if num <= 0 || num > googleMaxResults {
		num = googleMaxResults
	}
	text := q.Text
	if len(q.Domains) > 0 {
		sites := make([]string, len(q.Domains))
		for i, d := range q.Domains {
			sites[i] = "site:" + d
		}
		text = fmt.Sprintf("%s (%s)", text, strings.Join(sites, " OR "))
	}

	var body googleResponse
	res, err := g.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"key": g.key,
			"cx":  g.engineID,
			"q":   text,
			"num": strconv.Itoa(num),
		}).
		SetResult(&body).
		Get("/customsearch/v1")
	if err := classify(res, err); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "google search failed")
		return nil, err
	}

	results := make([]Result, 0, len(body.Items))
	for _, item := range body.Items {
		results = append(results, Result{Title: item.Title, URL: item.Link, Content: item.Snippet})
	}
	return results, nil
}
