package attribute

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/IvanKyuu/university-crawl/internal/telemetry"
)

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name     string
		row      Row
		expected Descriptor
		notes    int
	}{
		{
			name: "missing fields",
			row: Row{
				ColumnFormat:  "NaN",
				ColumnHandler: "nan",
				ColumnBreadth: "",
			},
			expected: Descriptor{Name: "description", Breadth: DefaultBreadth},
		},
		{
			name:     "non-numeric k_value",
			row:      Row{ColumnBreadth: "abc"},
			expected: Descriptor{Name: "description", Breadth: DefaultBreadth},
			notes:    1,
		},
		{
			name:     "k_value below one",
			row:      Row{ColumnBreadth: "0"},
			expected: Descriptor{Name: "description", Breadth: DefaultBreadth},
			notes:    1,
		},
		{
			name:     "exponent k_value beyond int range",
			row:      Row{ColumnBreadth: "1e30"},
			expected: Descriptor{Name: "description", Breadth: DefaultBreadth},
			notes:    1,
		},
		{
			name:     "k_value beyond int64",
			row:      Row{ColumnBreadth: "99999999999999999999"},
			expected: Descriptor{Name: "description", Breadth: DefaultBreadth},
			notes:    1,
		},
		{
			name:     "integral float k_value",
			row:      Row{ColumnBreadth: "5.0"},
			expected: Descriptor{Name: "description", Breadth: 5},
		},
		{
			name: "populated row",
			row: Row{
				ColumnFormat:    "A paragraph",
				ColumnReference: "https://a.ca, https://b.ca\nhttps://c.ca",
				ColumnPrompt:    "Keep it short",
				ColumnExample:   "UBC is ...",
				ColumnHandler:   "LANGCHAIN_TAVILY",
				ColumnBreadth:   "3",
				ColumnMapping:   "overview",
			},
			expected: Descriptor{
				Name:       "description",
				Format:     "A paragraph",
				Prompt:     "Keep it short",
				References: []string{"https://a.ca", "https://b.ca", "https://c.ca"},
				Example:    "UBC is ...",
				Handler:    HandlerRetrievalSearch,
				Breadth:    3,
				Mapping:    "overview",
			},
		},
		{
			name:     "unknown handler",
			row:      Row{ColumnHandler: "CARRIER_PIGEON"},
			expected: Descriptor{Name: "description", Breadth: DefaultBreadth},
			notes:    1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			desc, notes := Normalize("description", tc.row)
			diff := cmp.Diff(tc.expected, desc)
			if diff != "" {
				t.Fatal(diff)
			}
			require.Len(t, notes, tc.notes)
		})
	}
}

func TestParseBreadth(t *testing.T) {
	testCases := []struct {
		input    string
		expected int
		ok       bool
	}{
		{input: "3", expected: 3, ok: true},
		{input: " 7.0 ", expected: 7, ok: true},
		{input: "0", ok: false},
		{input: "-3", ok: false},
		{input: "2.5", ok: false},
		{input: "1e30", ok: false},
		{input: "99999999999999999999", ok: false},
		{input: "-1e30", ok: false},
		{input: "4294967296", ok: false},
	}

	for _, test := range testCases {
		t.Run(test.input, func(t *testing.T) {
			n, ok := ParseBreadth(test.input)
			require.Equal(t, test.ok, ok)
			if ok {
				require.Equal(t, test.expected, n)
			}
		})
	}
}

func TestParseHandler(t *testing.T) {
	testCases := []struct {
		input    string
		expected Handler
		ok       bool
	}{
		{"TUITION_CRAWL", HandlerDedicatedCrawler, true},
		{"dedicated_crawler", HandlerDedicatedCrawler, true},
		{"langchain_tavily", HandlerRetrievalSearch, true},
		{"GPT_GENERAL", HandlerAlternateSearch, true},
		{"GPT_BASIC", HandlerGenerative, true},
		{"NOT_SPECIFIED", HandlerUnspecified, true},
		{"", HandlerUnspecified, true},
		{"bogus", HandlerUnspecified, false},
	}
	for _, tc := range testCases {
		handler, ok := ParseHandler(tc.input)
		require.Equal(t, tc.expected, handler, tc.input)
		require.Equal(t, tc.ok, ok, tc.input)
	}
	require.Equal(t, "TUITION_CRAWL", HandlerDedicatedCrawler.String())
}

func TestStoreUnknownAttribute(t *testing.T) {
	store := NewStore(
		Descriptor{Name: "description"},
		Descriptor{Name: "graduation_rate"},
		Descriptor{Name: "description", Format: "ignored"},
	)
	require.Equal(t, []string{"description", "graduation_rate"}, store.Names())

	desc, err := store.Get("description")
	require.NoError(t, err)
	require.Empty(t, desc.Format)

	_, err = store.Get("graduaton_rate")
	var unknown *UnknownAttributeError
	require.True(t, errors.As(err, &unknown))
	require.Equal(t, "graduation_rate", unknown.Suggestion)

	_, err = store.Get("zzz")
	require.True(t, errors.As(err, &unknown))
	require.Empty(t, unknown.Suggestion)
}

func TestDescriptorClassification(t *testing.T) {
	require.True(t, Descriptor{Name: "domestic_student_tuition"}.IsTuition())
	require.True(t, Descriptor{Name: "fees", Handler: HandlerDedicatedCrawler}.IsTuition())
	require.False(t, Descriptor{Name: "description"}.IsTuition())
	require.True(t, Descriptor{Name: "ranking_qs_news_2024"}.IsRanking())
	require.Equal(t, "overview", Descriptor{Name: "description", Mapping: "overview"}.QueryName())
}

func TestLoadJSONL(t *testing.T) {
	input := strings.Join([]string{
		`{"description": {"attribute_format": "A paragraph", "k_value": 5.0, "handler": NaN, "mapping": NaN}}`,
		``,
		`{"ranking_qs_news_2024": {"k_value": "abc", "handler": "LANGCHAIN_TAVILY"}}`,
	}, "\n")

	recorder := telemetry.NewRecorder()
	store, err := LoadJSONL(strings.NewReader(input), recorder)
	require.NoError(t, err)
	require.Equal(t, []string{"description", "ranking_qs_news_2024"}, store.Names())

	desc, err := store.Get("description")
	require.NoError(t, err)
	require.Equal(t, 5, desc.Breadth)
	require.Equal(t, HandlerUnspecified, desc.Handler)
	require.Empty(t, desc.Mapping)

	ranking, err := store.Get("ranking_qs_news_2024")
	require.NoError(t, err)
	require.Equal(t, DefaultBreadth, ranking.Breadth)
	require.Len(t, recorder.Find(telemetry.LevelWarning, "normalize"), 1)
}
