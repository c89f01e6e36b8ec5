// Package universitystudy scrapes undergraduate tuition fees from the
// universitystudy.ca directory of canadian universities.
package universitystudy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http/cookiejar"
	"net/url"
	"slices"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/IvanKyuu/university-crawl/lib/htmlutil"
	"github.com/IvanKyuu/university-crawl/lib/restyutil"
	"github.com/IvanKyuu/university-crawl/lib/retry"
)

var tracer = otel.Tracer("unicrawl/lib/scrapers/universitystudy")

const (
	DefaultBaseURL = "https://universitystudy.ca"
	directoryPath  = "/canadian-universities/"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36 Edg/123.0.0.0"

	tuitionHeading = "TUITION FEES"
	feeMarker      = "Undergraduate tuition fees"
)

var (
	// ErrStructureMismatch is returned when a page no longer has the
	// elements the scraper looks for.
	ErrStructureMismatch   = errors.New("page structure mismatch")
	ErrUniversityNotListed = fmt.Errorf("%w: university not listed", ErrStructureMismatch)
)

type Tuition struct {
	Domestic      string
	International string
}

type Options struct {
	BaseURL string
	Dump    restyutil.InstrumentOutput
}

type Client struct {
	base *url.URL
	http *resty.Client
}

func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeaders(map[string]string{
		"User-Agent":                userAgent,
		"DNT":                       "1",
		"Upgrade-Insecure-Requests": "1",
	})
	client.SetTimeout(30 * time.Second)
	restyutil.InstrumentClient(client, tracer, opts.Dump)

	return &Client{base: base, http: client}, nil
}

func (c *Client) document(ctx context.Context, link string) (*goquery.Document, error) {
	res, err := c.http.R().
		SetContext(ctx).
		Get(link)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		var netErr net.Error
		if errors.As(err, &netErr) {
			return nil, retry.Transient(err)
		}
		return nil, err
	}
	if res.IsError() {
		statusErr := fmt.Errorf("fetch %s: %s", link, res.Status())
		if res.StatusCode() == 429 || res.StatusCode() >= 500 {
			return nil, retry.Transient(statusErr)
		}
		return nil, statusErr
	}
	return goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
}

// UniversityURL finds the directory entry whose link text equals `name`,
// ignoring case and surrounding whitespace.
func (c *Client) UniversityURL(ctx context.Context, name string) (string, error) {
	ctx, span := tracer.Start(ctx, "UniversityURL")
	defer span.End()

	directory := c.base.JoinPath(directoryPath)
	doc, err := c.document(ctx, directory.String())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch directory")
		return "", err
	}

	want := strings.ToLower(strings.TrimSpace(name))
	for _, anchor := range htmlutil.GetAnchors(ctx, directory, doc.Find("a")) {
		if strings.ToLower(strings.TrimSpace(anchor.Name)) == want {
			return anchor.Href, nil
		}
	}

	span.SetStatus(codes.Error, "university not listed")
	return "", fmt.Errorf("%w: %q", ErrUniversityNotListed, name)
}

// FetchTuition looks `name` up in the directory and scrapes its page.
func (c *Client) FetchTuition(ctx context.Context, name string) (Tuition, error) {
	ctx, span := tracer.Start(ctx, "FetchTuition")
	defer span.End()
	span.SetAttributes(attribute.String("university", name))

	link, err := c.UniversityURL(ctx, name)
	if err != nil {
		return Tuition{}, err
	}
	tuition, err := c.Tuition(ctx, link)
	if err != nil {
		return Tuition{}, err
	}
	slog.DebugContext(ctx, "scraped tuition", "university", name, "tuition", tuition)
	return tuition, nil
}

// Tuition returns the first two distinct undergraduate fees listed after
// the tuition heading of the page at `link`, in page order: domestic then
// international. A missing fee is left empty.
func (c *Client) Tuition(ctx context.Context, link string) (Tuition, error) {
	ctx, span := tracer.Start(ctx, "Tuition")
	defer span.End()

	doc, err := c.document(ctx, link)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch university page")
		return Tuition{}, err
	}

	fees, err := ParseFees(doc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse tuition")
		return Tuition{}, fmt.Errorf("%s: %w", link, err)
	}

	var tuition Tuition
	if len(fees) > 0 {
		tuition.Domestic = fees[0]
	}
	if len(fees) > 1 {
		tuition.International = fees[1]
	}
	return tuition, nil
}

// ParseFees walks every element after the first h2 containing the tuition
// heading, in document order, collecting the first span of each element
// that mentions undergraduate tuition fees.
func ParseFees(doc *goquery.Document) ([]string, error) {
	heading := doc.Find("h2").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.Text(), tuitionHeading)
	}).First()
	if heading.Length() == 0 {
		return nil, fmt.Errorf("%w: no %q heading", ErrStructureMismatch, tuitionHeading)
	}

	all := doc.Find("*").Nodes
	start := slices.Index(all, heading.Nodes[0])

	var fees []string
	for _, node := range all[start+1:] {
		if len(fees) >= 2 {
			break
		}
		if !strings.Contains(htmlutil.GetText(node), feeMarker) {
			continue
		}
		span := goquery.NewDocumentFromNode(node).Find("span").First()
		if span.Length() == 0 {
			continue
		}
		fee := htmlutil.CleanText(span.Text())
		if fee == "" || slices.Contains(fees, fee) {
			continue
		}
		fees = append(fees, fee)
	}
	if len(fees) == 0 {
		return nil, fmt.Errorf("%w: no undergraduate fees after heading", ErrStructureMismatch)
	}
	return fees, nil
}
