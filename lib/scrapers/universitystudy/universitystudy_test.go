package universitystudy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/IvanKyuu/university-crawl/lib/retry"
)

const directoryPage = `<html><body>
<ul>
  <li><a href="/universities/university-of-waterloo/"> University of Waterloo </a></li>
  <li><a href="/universities/ubc/">The University of British Columbia</a></li>
</ul>
</body></html>`

const waterlooPage = `<html><body>
<h2>ADMISSIONS</h2>
<div><p>Undergraduate tuition fees <span>ignored</span></p></div>
<h2>TUITION FEES</h2>
<div class="fees">
  <p>Undergraduate tuition fees (domestic) <span>$7,000 - $16,000</span></p>
  <p>Undergraduate tuition fees (international) <span>$45,000 - $66,000</span></p>
  <p>Graduate tuition fees <span>$10,000</span></p>
</div>
</body></html>`

func newServer(t *testing.T, pages map[string]string) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(page))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetchTuition(t *testing.T) {
	server := newServer(t, map[string]string{
		"/canadian-universities/":              directoryPage,
		"/universities/university-of-waterloo/": waterlooPage,
	})
	client, err := NewClient(Options{BaseURL: server.URL})
	require.NoError(t, err)

	tuition, err := client.FetchTuition(context.Background(), "university of waterloo")
	require.NoError(t, err)
	require.Equal(t, Tuition{
		Domestic:      "$7,000 - $16,000",
		International: "$45,000 - $66,000",
	}, tuition)
}

func TestFetchTuitionUnlisted(t *testing.T) {
	server := newServer(t, map[string]string{
		"/canadian-universities/": directoryPage,
	})
	client, err := NewClient(Options{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.FetchTuition(context.Background(), "University of Nowhere")
	require.ErrorIs(t, err, ErrStructureMismatch)
	require.ErrorIs(t, err, ErrUniversityNotListed)
}

func TestFetchTuitionServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()
	client, err := NewClient(Options{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.FetchTuition(context.Background(), "University of Waterloo")
	require.True(t, retry.IsTransient(err))
}

func TestParseFees(t *testing.T) {
	testCases := []struct {
		name     string
		page     string
		expected []string
		mismatch bool
	}{
		{
			name:     "two fees",
			page:     waterlooPage,
			expected: []string{"$7,000 - $16,000", "$45,000 - $66,000"},
		},
		{
			name: "duplicate fee is skipped",
			page: `<h2>TUITION FEES</h2>
				<p>Undergraduate tuition fees <span>$5,000</span></p>
				<p>Undergraduate tuition fees <span>$5,000</span></p>`,
			expected: []string{"$5,000"},
		},
		{
			name:     "no heading",
			page:     `<h2>Other</h2><p>Undergraduate tuition fees <span>$1</span></p>`,
			mismatch: true,
		},
		{
			name:     "heading without fees",
			page:     `<h2>TUITION FEES</h2><p>Contact the registrar.</p>`,
			mismatch: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(tc.page))
			require.NoError(t, err)
			fees, err := ParseFees(doc)
			if tc.mismatch {
				require.ErrorIs(t, err, ErrStructureMismatch)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expected, fees)
		})
	}
}
