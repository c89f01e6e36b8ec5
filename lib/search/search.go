// Package search queries web search APIs for pages that may answer an
// attribute question.
package search

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"

	"github.com/IvanKyuu/university-crawl/lib/restyutil"
	"github.com/IvanKyuu/university-crawl/lib/retry"
)

var tracer = otel.Tracer("unicrawl/lib/search")

var ErrMissingCredential = errors.New("missing search credential")

type Query struct {
	Text       string
	MaxResults int
	// Domains restricts results to these hosts when the provider supports it.
	Domains []string
}

type Result struct {
	Title   string
	URL     string
	Content string
}

type Searcher interface {
	Name() string
	Search(ctx context.Context, q Query) ([]Result, error)
}

// Config names the searchers to build. Keys come from the environment.
type Config struct {
	Primary   string `json:"primary"`
	Alternate string `json:"alternate"`
	// BaseURL overrides the endpoint, used against local fakes.
	BaseURL string `json:"base_url"`
}

// New builds the searcher called `name`: "tavily" or "google". `dump` may
// be nil.
func New(name, baseURL string, dump restyutil.InstrumentOutput) (Searcher, error) {
	switch strings.ToLower(name) {
	case "tavily":
		return NewTavily(TavilyOptions{BaseURL: baseURL, Dump: dump})
	case "google":
		return NewGoogle(GoogleOptions{BaseURL: baseURL, Dump: dump})
	default:
		return nil, fmt.Errorf("unknown searcher %q", name)
	}
}

// Domains extracts the hosts of reference urls, skipping anything that does
// not parse as an absolute url.
func Domains(references []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, ref := range references {
		ref = strings.TrimSpace(ref)
		if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
			continue
		}
		host := strings.TrimPrefix(strings.TrimPrefix(ref, "https://"), "http://")
		if slash := strings.IndexByte(host, '/'); slash >= 0 {
			host = host[:slash]
		}
		host = strings.TrimPrefix(host, "www.")
		if host == "" || seen[host] {
			continue
		}
		seen[host] = true
		out = append(out, host)
	}
	return out
}

func classify(res *resty.Response, err error) error {
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		var netErr net.Error
		if errors.As(err, &netErr) {
			return retry.Transient(err)
		}
		return err
	}
	if !res.IsError() {
		return nil
	}
	statusErr := fmt.Errorf("search: %s", res.Status())
	if res.StatusCode() == 429 || res.StatusCode() >= 500 {
		return retry.Transient(statusErr)
	}
	return statusErr
}
