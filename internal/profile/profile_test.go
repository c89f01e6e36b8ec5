package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/IvanKyuu/university-crawl/internal/adapters"
	"github.com/IvanKyuu/university-crawl/internal/adapters/adapterstest"
	"github.com/IvanKyuu/university-crawl/internal/attribute"
	"github.com/IvanKyuu/university-crawl/internal/respcache"
	"github.com/IvanKyuu/university-crawl/internal/resolver"
	"github.com/IvanKyuu/university-crawl/internal/telemetry"
	"github.com/IvanKyuu/university-crawl/lib/retry"
)

const ubc = "The University of British Columbia"

type fixture struct {
	tuition   *adapterstest.Tuition
	retriever *adapterstest.Retriever
	generator *adapterstest.Generator
	cache     *respcache.Cache
	recorder  *telemetry.Recorder
	builder   *Builder
}

func testPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
}

func newFixture(t *testing.T, seeds ...Seed) *fixture {
	t.Helper()
	f := &fixture{
		tuition:   &adapterstest.Tuition{Result: adapters.Tuition{Domestic: "7179", International: "32728"}},
		retriever: &adapterstest.Retriever{},
		generator: &adapterstest.Generator{
			Info: map[string]adapters.BasicInfo{
				"UBC": {
					UniversityName: ubc,
					Abbreviation:   "UBC",
					Website:        "https://www.ubc.ca",
					Wikipedia:      "https://en.wikipedia.org/wiki/University_of_British_Columbia",
				},
			},
		},
		recorder: telemetry.NewRecorder(),
	}
	f.cache = respcache.New(f.recorder)

	universities, err := resolver.New(resolver.Context{
		Attributes: attribute.NewStore(
			attribute.Descriptor{Name: "university_name", Breadth: 10},
			attribute.Descriptor{Name: "website", Handler: attribute.HandlerGenerative, Breadth: 10},
			attribute.Descriptor{Name: "wikipedia", Handler: attribute.HandlerGenerative, Breadth: 10},
			attribute.Descriptor{Name: "domestic_student_tuition", Handler: attribute.HandlerDedicatedCrawler, Breadth: 10},
			attribute.Descriptor{Name: "international_student_tuition", Handler: attribute.HandlerDedicatedCrawler, Breadth: 10},
			attribute.Descriptor{Name: "description", Handler: attribute.HandlerRetrievalSearch, Breadth: 10},
			attribute.Descriptor{Name: "coop_opportunity", Breadth: 10},
		),
		Cache:     f.cache,
		Tuition:   f.tuition,
		Retriever: f.retriever,
		Generator: f.generator,
		Retry:     testPolicy(),
		Telemetry: f.recorder,
	})
	require.NoError(t, err)

	programs, err := resolver.New(resolver.Context{
		Attributes: attribute.NewStore(
			attribute.Descriptor{Name: "program_name", Breadth: 10},
			attribute.Descriptor{Name: "university_official_website", Breadth: 10},
			attribute.Descriptor{Name: "degree_type", Handler: attribute.HandlerGenerative, Breadth: 10},
		),
		Cache:     f.cache,
		Retriever: f.retriever,
		Generator: f.generator,
		Retry:     testPolicy(),
		Telemetry: f.recorder,
	})
	require.NoError(t, err)

	f.builder, err = NewBuilder(Options{
		Universities: universities,
		Programs:     programs,
		Seeds:        NewSeeds(seeds),
		Concurrency:  3,
		Retry:        testPolicy(),
		Telemetry:    f.recorder,
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) externalCalls() int {
	return f.tuition.Calls() + f.retriever.Calls() + f.generator.Calls() + len(f.generator.InfoCalls())
}

func attributesQueried(queries []adapters.Query) []string {
	var names []string
	for _, q := range queries {
		names = append(names, q.Attribute)
	}
	return names
}

func TestBuildUniversity(t *testing.T) {
	f := newFixture(t)
	f.retriever.Answers = map[string]adapters.Answer{
		"description": {
			Value:    "UBC is a public research university in Vancouver. It was founded in 1908.",
			Evidence: []string{"https://www.ubc.ca/about"},
		},
	}
	ctx := context.Background()

	record, err := f.builder.Build(ctx, "UBC")
	require.NoError(t, err)

	require.Equal(t, KindUniversity, record.Kind)
	require.Equal(t, ubc, record.Name)
	require.Equal(t, int64(1), record.ID)
	require.Empty(t, record.Failures)

	want := map[string]any{
		"abbreviation":                  "UBC",
		"website":                       "https://www.ubc.ca",
		"wikipedia":                     "https://en.wikipedia.org/wiki/University_of_British_Columbia",
		"domestic_student_tuition":      "7179",
		"international_student_tuition": "32728",
		"description":                   "UBC is a public research university in Vancouver. It was founded in 1908.",
	}
	if diff := cmp.Diff(want, record.Attributes); diff != "" {
		t.Fatal(diff)
	}
	require.Equal(t, []string{"https://www.ubc.ca/about"}, record.Evidence["description"])

	// tuition comes from the crawler once for both fields
	require.Equal(t, 1, f.tuition.Calls())
	require.NotContains(t, attributesQueried(f.retriever.Queries()), "domestic_student_tuition")
	require.NotContains(t, attributesQueried(f.generator.Queries()), "international_student_tuition")

	// filled by basic info, never resolved
	for _, queried := range [][]string{attributesQueried(f.retriever.Queries()), attributesQueried(f.generator.Queries())} {
		require.NotContains(t, queried, "website")
		require.NotContains(t, queried, "wikipedia")
		require.NotContains(t, queried, "university_name")
	}

	// exhausted on every source and cached empty
	require.NotContains(t, record.Attributes, "coop_opportunity")
	entry, ok := f.cache.Get(respcache.AttributeKey(ubc, "coop_opportunity"))
	require.True(t, ok)
	require.True(t, entry.IsEmpty())

	// references are the website and wikipedia page
	for _, q := range f.retriever.Queries() {
		require.Equal(t, []string{"https://www.ubc.ca", "https://en.wikipedia.org/wiki/University_of_British_Columbia"}, q.References)
	}

	calls := f.externalCalls()
	again, err := f.builder.Build(ctx, "UBC")
	require.NoError(t, err)
	require.Equal(t, calls, f.externalCalls())
	require.Equal(t, record.ID, again.ID)
	require.Equal(t, record.Attributes, again.Attributes)
}

func TestBuildRegistersCanonicalNameAndAlias(t *testing.T) {
	f := newFixture(t)
	record, err := f.builder.Build(context.Background(), "UBC")
	require.NoError(t, err)

	for _, name := range []string{"UBC", "ubc", ubc, "the university of british columbia"} {
		got, ok := f.builder.Index().Get(KindUniversity, name)
		require.True(t, ok, name)
		require.Equal(t, record.ID, got.ID)
	}
	require.Len(t, f.builder.Index().All(KindUniversity), 1)

	// basic info cached under both names
	for _, name := range []string{"UBC", ubc} {
		entry, ok := f.cache.Get(respcache.BasicInfoKey(name))
		require.True(t, ok, name)
		info, ok := decodeBasicInfo(entry.Value)
		require.True(t, ok)
		require.Equal(t, ubc, info.UniversityName)
	}
}

func TestBuildUsesSeedRow(t *testing.T) {
	f := newFixture(t, Seed{ID: 42, Name: "Simon Fraser University", Abbreviation: "SFU", Website: "https://www.sfu.ca"})

	record, err := f.builder.Build(context.Background(), "sfu")
	require.NoError(t, err)
	require.Equal(t, int64(42), record.ID)
	require.Equal(t, "Simon Fraser University", record.Name)
	require.Equal(t, "https://www.sfu.ca", record.Attributes["website"])
	require.Empty(t, f.generator.InfoCalls())

	// wikipedia was not seeded, so it is resolved
	require.Contains(t, attributesQueried(f.generator.Queries()), "wikipedia")
}

func TestBuildBasicInfoFromCache(t *testing.T) {
	f := newFixture(t)
	f.cache.Put(respcache.BasicInfoKey("MIT"), respcache.Entry{Value: map[string]any{
		"university_name": "Massachusetts Institute of Technology",
		"website":         "https://mit.edu",
	}})

	info, err := f.builder.BasicInfo(context.Background(), "MIT")
	require.NoError(t, err)
	require.Equal(t, "Massachusetts Institute of Technology", info.UniversityName)
	require.Equal(t, "https://mit.edu", info.Website)
	require.Empty(t, f.generator.InfoCalls())
}

func TestBuildKeepsAttributeFailures(t *testing.T) {
	f := newFixture(t)
	f.tuition.Err = errors.New("connection reset")
	f.generator.Errs = map[string]error{
		"description": errors.New("model unavailable"),
	}

	record, err := f.builder.Build(context.Background(), "UBC")
	require.NoError(t, err)
	require.Contains(t, record.Failures, "description")
	require.Contains(t, record.Failures["description"], "model unavailable")
	require.NotContains(t, record.Attributes, "description")
	require.NotEmpty(t, f.recorder.Find(telemetry.LevelWarning, "attribute.failed"))
}

func TestBuildStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.builder.Build(ctx, "UBC")
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, f.builder.Index().All(KindUniversity))
}

func TestBuildProgram(t *testing.T) {
	f := newFixture(t)
	f.generator.Answers = map[string]adapters.Answer{
		"degree_type": {Value: "Bachelor of Science"},
	}
	ctx := context.Background()

	university, err := f.builder.Build(ctx, "UBC")
	require.NoError(t, err)

	record, err := f.builder.BuildProgram(ctx, "UBC", "Computer Science")
	require.NoError(t, err)
	require.Equal(t, KindProgram, record.Kind)
	require.Equal(t, ubc, record.University)
	require.Equal(t, university.ID, record.UniversityID)
	require.Equal(t, ubc+" / Computer Science", record.Entity())
	require.Equal(t, "Bachelor of Science", record.Attributes["degree_type"])
	require.Equal(t, "https://www.ubc.ca", record.Attributes["university_official_website"])

	var degreeQuery adapters.Query
	for _, q := range f.generator.Queries() {
		require.NotEqual(t, "program_name", q.Attribute)
		if q.Attribute == "degree_type" {
			degreeQuery = q
		}
	}
	require.Equal(t, ubc+" / Computer Science", degreeQuery.Entity)

	_, ok := f.builder.Index().Get(KindProgram, "UBC / Computer Science")
	require.True(t, ok)
}

func TestRecordTranslation(t *testing.T) {
	record := NewRecord(KindUniversity, 7, ubc)
	record.Attributes["website"] = "https://www.ubc.ca"
	record.Attributes["ranking_qs_news_2024"] = "34"

	ch := record.CH()
	require.Equal(t, ubc, ch["学校名"])
	require.Equal(t, "https://www.ubc.ca", ch["学校官方网站"])
	require.Equal(t, "34", ch["QS新闻2024排名"])
	require.Equal(t, int64(7), ch["id_"])

	back, err := FromMap(KindUniversity, ch, LangCH)
	require.NoError(t, err)
	require.Equal(t, record.Name, back.Name)
	require.Equal(t, record.ID, back.ID)
	require.Equal(t, record.Attributes, back.Attributes)

	en := record.EN()
	require.Equal(t, ubc, en["university_name"])
	require.Equal(t, "34", en["ranking_qs_news_2024"])
}

func TestFromMapDropsUnknownKeys(t *testing.T) {
	record, err := FromMap(KindProgram, map[string]any{
		"program_id":   float64(3),
		"program_name": "Computer Science",
		"学校":           ubc,
		"项目特色":         "co-op",
		"favourite":    "blue",
	}, LangCH)
	require.NoError(t, err)
	require.Equal(t, int64(3), record.ID)
	require.Equal(t, ubc, record.University)
	require.Equal(t, map[string]any{"characteristics": "co-op"}, record.Attributes)

	_, err = FromMap(KindUniversity, map[string]any{"website": "x"}, LangEN)
	require.Error(t, err)
}

func TestWriteJSONL(t *testing.T) {
	a := NewRecord(KindUniversity, 1, ubc)
	a.Attributes["website"] = "https://www.ubc.ca"
	b := NewRecord(KindUniversity, 2, "Simon Fraser University")

	var buf bytes.Buffer
	require.NoError(t, WriteJSONL(&buf, []Record{a, b}, LangCH))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.Equal(t, ubc, first["学校名"])
	require.Equal(t, "https://www.ubc.ca", first["学校官方网站"])
}

func TestIndexNextID(t *testing.T) {
	index := NewIndex()
	index.Put(NewRecord(KindUniversity, 5, "A"))
	require.Equal(t, int64(6), index.NextID(KindUniversity))
	require.Equal(t, int64(1), index.NextID(KindProgram))
}
