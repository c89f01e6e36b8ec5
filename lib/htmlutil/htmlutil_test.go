package htmlutil

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestGetAnchors(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<ul>
			<li><a href="/universities/ubc/"> University of
				British Columbia </a></li>
			<li><a href="https://example.ca/mcgill">McGill <b>University</b></a></li>
			<li><a>no link</a></li>
		</ul>`))
	require.NoError(t, err)

	base, err := url.Parse("https://universitystudy.ca/canadian-universities/")
	require.NoError(t, err)

	anchors := GetAnchors(context.Background(), base, doc.Find("a"))
	diff := cmp.Diff([]Anchor{
		{Name: "University of British Columbia", Href: "https://universitystudy.ca/universities/ubc/"},
		{Name: "McGill University", Href: "https://example.ca/mcgill"},
	}, anchors)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestCleanText(t *testing.T) {
	require.Equal(t, "Undergraduate tuition fees: $7,179", CleanText("\n  Undergraduate tuition fees:\u0007   $7,179 \t"))
}
