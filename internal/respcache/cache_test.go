package respcache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/IvanKyuu/university-crawl/internal/telemetry"
)

func TestKeyString(t *testing.T) {
	testCases := []struct {
		key      Key
		expected string
	}{
		{BasicInfoKey("MIT"), `('MIT', 'BASIC_INFO')`},
		{Key{Entity: "MIT", Attribute: "website", Method: "GPT_BASIC"}, `(('MIT', 'website'), 'GPT_BASIC')`},
		{AttributeKey("Queen's University", "description"), `(("Queen's University", 'description'), 'ATTRIBUTE_INFO')`},
		{AttributeKey(`Queen's "Best"`, "x"), `(('Queen\'s "Best"', 'x'), 'ATTRIBUTE_INFO')`},
		{AttributeKey("Université Laval", "line\nbreak"), `(('Université Laval', 'line\nbreak'), 'ATTRIBUTE_INFO')`},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.expected, tc.key.String())
		parsed, err := ParseKey(tc.expected)
		require.NoError(t, err)
		require.Equal(t, tc.key, parsed)
	}
}

func TestParseKeyLegacyForms(t *testing.T) {
	testCases := []struct {
		input    string
		expected Key
	}{
		{`('MIT', 'website', 'GPT_BASIC')`, Key{Entity: "MIT", Attribute: "website", Method: "GPT_BASIC"}},
		{`('MIT', <GPTMethodType.BASIC_INFO: 1>)`, BasicInfoKey("MIT")},
		{`(('UBC', 'ranking'), <GPTMethodType.ATTRIBUTE_INFO: 2>)`, AttributeKey("UBC", "ranking")},
		{`(('UBC', 'ranking'), HandlerType.GPT_GENERAL)`, Key{Entity: "UBC", Attribute: "ranking", Method: "GPT_GENERAL"}},
	}
	for _, tc := range testCases {
		parsed, err := ParseKey(tc.input)
		require.NoError(t, err, tc.input)
		require.Equal(t, tc.expected, parsed)
	}

	for _, bad := range []string{``, `MIT`, `('MIT')`, `('MIT', 'a'`, `(('a', 'b', 'c'), 'd')`, `('a', 'b') extra`} {
		_, err := ParseKey(bad)
		require.Error(t, err, bad)
	}
}

func TestFlushLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache", "response_cache.jsonl")

	cache := New(telemetry.NewRecorder())
	key := Key{Entity: "MIT", Attribute: "website", Method: "GPT_BASIC"}
	cache.Put(key, Entry{Value: "https://mit.edu", Evidence: []string{}})
	cache.Put(AttributeKey("UBC", "coop_opportunity"), Entry{Value: ""})
	cache.Put(AttributeKey("UBC", "popular_programs"), Entry{
		Value:    []any{"Computer Science", "Commerce"},
		Evidence: []string{"https://ubc.ca", "https://ubc.ca"},
	})
	require.NoError(t, cache.Flush(ctx, path))

	loaded := New(telemetry.NewRecorder())
	n, err := loaded.Load(ctx, path)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	entry, ok := loaded.Get(key)
	require.True(t, ok)
	diff := cmp.Diff(Entry{Value: "https://mit.edu", Evidence: []string{}}, entry)
	if diff != "" {
		t.Fatal(diff)
	}

	programs, ok := loaded.Get(AttributeKey("UBC", "popular_programs"))
	require.True(t, ok)
	require.Equal(t, []any{"Computer Science", "Commerce"}, programs.Value)
	require.Equal(t, []string{"https://ubc.ca", "https://ubc.ca"}, programs.Evidence)

	empty, ok := loaded.Get(AttributeKey("UBC", "coop_opportunity"))
	require.True(t, ok)
	require.True(t, empty.IsEmpty())

	_, err = os.Stat(path + ".lock")
	require.NoError(t, err)
}

func TestLoadSkipsMalformedLines(t *testing.T) {
	input := strings.Join([]string{
		`{"('MIT', 'BASIC_INFO')": [{"university_name": "MIT"}, []]}`,
		`{not json`,
		`{"MIT": ["x", []]}`,
		`{"(('MIT', 'website'), <GPTMethodType.ATTRIBUTE_INFO: 2>)": ["https://mit.edu", ["https://mit.edu"]]}`,
	}, "\n")

	recorder := telemetry.NewRecorder()
	cache := New(recorder)
	_, err := cache.ReadFrom(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, 2, cache.Len())
	require.True(t, cache.Contains(BasicInfoKey("MIT")))
	require.True(t, cache.Contains(AttributeKey("MIT", "website")))
	require.Len(t, recorder.Find(telemetry.LevelWarning, "malformed-line"), 1)
	require.Len(t, recorder.Find(telemetry.LevelWarning, "malformed-key"), 1)
}

func TestLoadKeepsGoingPastLongLines(t *testing.T) {
	long := strings.Repeat("x", 17*1024*1024)
	input := strings.Join([]string{
		`{"('UBC', 'BASIC_INFO')": ["` + long,
		`{"(('UBC', 'description'), 'ATTRIBUTE_INFO')": ["` + long + `", []]}`,
		`{"(('UBC', 'website'), 'ATTRIBUTE_INFO')": ["https://www.ubc.ca", ["https://www.ubc.ca"]]}`,
	}, "\n")

	path := filepath.Join(t.TempDir(), "cache.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(input), 0o644))

	recorder := telemetry.NewRecorder()
	cache := New(recorder)
	n, err := cache.Load(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	description, ok := cache.Get(AttributeKey("UBC", "description"))
	require.True(t, ok)
	require.Equal(t, long, description.Value)
	require.True(t, cache.Contains(AttributeKey("UBC", "website")))
	require.Len(t, recorder.Find(telemetry.LevelWarning, "malformed-line"), 1)
}

func TestLoadMissingFile(t *testing.T) {
	cache := New(telemetry.NewRecorder())
	n, err := cache.Load(context.Background(), filepath.Join(t.TempDir(), "nope.jsonl"))
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestDelete(t *testing.T) {
	cache := New(telemetry.NewRecorder())
	cache.Put(AttributeKey("UBC", "a"), Entry{Value: "1"})
	cache.Put(AttributeKey("UBC", "b"), Entry{Value: "2"})
	cache.Put(AttributeKey("SFU", "a"), Entry{Value: "3"})

	require.True(t, cache.Delete(AttributeKey("SFU", "a")))
	require.False(t, cache.Delete(AttributeKey("SFU", "a")))
	require.Equal(t, 2, cache.DeleteEntity("UBC"))
	require.Zero(t, cache.Len())
}

func TestConcurrentPut(t *testing.T) {
	cache := New(telemetry.NewRecorder())
	wg := sync.WaitGroup{}
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := AttributeKey("UBC", string(rune('a'+i%8)))
			cache.Put(key, Entry{Value: "v"})
			cache.Get(key)
		}()
	}
	wg.Wait()
	require.Equal(t, 8, cache.Len())
}
