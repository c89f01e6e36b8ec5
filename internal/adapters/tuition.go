package adapters

import (
	"context"
	"errors"
	"fmt"

	"github.com/IvanKyuu/university-crawl/lib/scrapers/universitystudy"
)

// TuitionScraper reads undergraduate tuition from universitystudy.ca.
type TuitionScraper struct {
	client *universitystudy.Client
}

func NewTuitionScraper(client *universitystudy.Client) TuitionScraper {
	return TuitionScraper{client: client}
}

func (s TuitionScraper) FetchTuition(ctx context.Context, entity string) (Tuition, error) {
	ctx, span := tracer.Start(ctx, "FetchTuition")
	defer span.End()

	tuition, err := s.client.FetchTuition(ctx, entity)
	if errors.Is(err, universitystudy.ErrStructureMismatch) {
		return Tuition{}, fmt.Errorf("%w: %w", ErrScrapeStructureMismatch, err)
	}
	if err != nil {
		return Tuition{}, err
	}
	return Tuition{Domestic: tuition.Domestic, International: tuition.International}, nil
}
