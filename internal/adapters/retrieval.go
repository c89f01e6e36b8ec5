package adapters

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/IvanKyuu/university-crawl/lib/llm"
	"github.com/IvanKyuu/university-crawl/lib/search"
)

const attributeRetrievalPrompt = `Find the attribute based only on the context provided.
If you don't know or you are not sure, just return "not available" without further explaining
You will only use information that related to the %s.
You can check here for additional reference: %s.
%s
Context: %s
Attribute: %s
Output format: %s
Output example: %s`

const rankingRetrievalPrompt = `Find the ranking based only on the context provided.
If you don't know or you are not sure, just return "not available" without further explaining
You can check here: %s.
Focus on the latest results from these websites.
Context: %s
Attribute: %s of %s
output format: %s`

// Retrieval searches the web for context and asks a model to answer from
// that context only.
type Retrieval struct {
	searcher search.Searcher
	provider llm.Provider
}

func NewRetrieval(searcher search.Searcher, provider llm.Provider) Retrieval {
	return Retrieval{searcher: searcher, provider: provider}
}

func (r Retrieval) Name() string {
	return r.searcher.Name()
}

func renderContext(results []search.Result) string {
	if len(results) == 0 {
		return "(no search results)"
	}
	var out strings.Builder
	for i, result := range results {
		fmt.Fprintf(&out, "\n[%d] %s (%s)\n%s\n", i+1, result.Title, result.URL, result.Content)
	}
	return out.String()
}

func evidence(results []search.Result) []string {
	urls := make([]string, 0, len(results))
	for _, result := range results {
		if result.URL != "" {
			urls = append(urls, result.URL)
		}
	}
	return urls
}

func (r Retrieval) answer(ctx context.Context, q search.Query, prompt func(context string) string) (Answer, error) {
	results, err := r.searcher.Search(ctx, q)
	if err != nil {
		return Answer{}, fmt.Errorf("search: %w", err)
	}

	reply, err := r.provider.Complete(ctx, llm.Request{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: prompt(renderContext(results))}},
	})
	if err != nil {
		return Answer{}, err
	}
	return Answer{
		Value:    strings.TrimSpace(llm.TrimFence(reply)),
		Evidence: evidence(results),
	}, nil
}

func (r Retrieval) Retrieve(ctx context.Context, q Query) (Answer, error) {
	ctx, span := tracer.Start(ctx, "Retrieval.Retrieve")
	defer span.End()
	span.SetAttributes(
		attribute.String("entity", q.Entity),
		attribute.String("attribute", q.Attribute),
		attribute.String("searcher", r.searcher.Name()),
	)

	searchText := fmt.Sprintf(
		"For %s. %s\n If you find the website that you are referring from the university,  load the whole page directly",
		q.Entity, q.Prompt,
	)
	answer, err := r.answer(ctx, search.Query{Text: searchText, MaxResults: q.Breadth}, func(context string) string {
		return fmt.Sprintf(
			attributeRetrievalPrompt,
			q.Entity, strings.Join(q.References, ", "), q.Prompt,
			context, q.Attribute, q.Format, q.Example,
		)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "retrieval failed")
	}
	return answer, err
}

// RetrieveRanking searches only the reference sites when there are any.
func (r Retrieval) RetrieveRanking(ctx context.Context, q Query) (Answer, error) {
	ctx, span := tracer.Start(ctx, "Retrieval.RetrieveRanking")
	defer span.End()
	span.SetAttributes(
		attribute.String("entity", q.Entity),
		attribute.String("attribute", q.Attribute),
		attribute.String("searcher", r.searcher.Name()),
	)

	references := strings.Join(q.References, ", ")
	searchText := fmt.Sprintf("For %s %s You may wish to refer %s", q.Entity, q.Attribute, references)
	answer, err := r.answer(ctx, search.Query{
		Text:       searchText,
		MaxResults: q.Breadth,
		Domains:    search.Domains(q.References),
	}, func(context string) string {
		return fmt.Sprintf(rankingRetrievalPrompt, references, context, q.Attribute, q.Entity, q.Format)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ranking retrieval failed")
	}
	return answer, err
}
