package sheets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/IvanKyuu/university-crawl/internal/attribute"
	"github.com/IvanKyuu/university-crawl/internal/profile"
	"github.com/IvanKyuu/university-crawl/internal/telemetry"
)

func writeSheet(t *testing.T, sheet string, rows [][]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "book.xlsx")
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName(f.GetSheetName(0), sheet))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReadAttributes(t *testing.T) {
	path := writeSheet(t, "university", [][]any{
		{"attribute_name", "attribute_format", "attribute_reference", "handler", "k_value"},
		{"website", "url", "", "GPT_BASIC", "5.0"},
		{"", "orphan", "", "", ""},
		{"description", "text", "https://a.example, https://b.example", "LANGCHAIN_TAVILY", ""},
	})

	rows, err := ReadAttributes(path, "")
	require.NoError(t, err)
	want := []attribute.NamedRow{
		{Name: "website", Row: attribute.Row{
			"attribute_format": "url", "attribute_reference": "", "handler": "GPT_BASIC", "k_value": "5.0",
		}},
		{Name: "description", Row: attribute.Row{
			"attribute_format": "text", "attribute_reference": "https://a.example, https://b.example",
			"handler": "LANGCHAIN_TAVILY", "k_value": "",
		}},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatal(diff)
	}

	store := attribute.LoadRows(rows, telemetry.NewRecorder())
	desc, err := store.Get("website")
	require.NoError(t, err)
	require.Equal(t, 5, desc.Breadth)
	require.Equal(t, attribute.HandlerGenerative, desc.Handler)
}

func TestReadAttributesFirstColumnName(t *testing.T) {
	path := writeSheet(t, "Sheet1", [][]any{
		{"", "handler"},
		{"faculty", "GOOGLE_SEARCH"},
	})
	rows, err := ReadAttributes(path, "Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "faculty", rows[0].Name)
}

func TestReadAttributesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attributes.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"website": {"handler": "GPT_BASIC", "k_value": NaN}}`+"\n"), 0o644))

	rows, err := ReadAttributes(path, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "website", rows[0].Name)
	require.Equal(t, "GPT_BASIC", rows[0].Row["handler"])
}

func TestReadSeeds(t *testing.T) {
	path := writeSheet(t, "seeds", [][]any{
		{"id_", "学校名", "abbreviation", "Website", "wikipedia"},
		{1, "The University of British Columbia", "UBC", "https://www.ubc.ca", ""},
		{"", "", "X", "", ""},
	})

	seeds, err := ReadSeeds(path, "seeds")
	require.NoError(t, err)
	want := []profile.Seed{{
		ID: 1, Name: "The University of British Columbia", Abbreviation: "UBC", Website: "https://www.ubc.ca",
	}}
	if diff := cmp.Diff(want, seeds); diff != "" {
		t.Fatal(diff)
	}
}

func TestReadSeedsFromRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "universities.jsonl")
	record := profile.NewRecord(profile.KindUniversity, 3, "Simon Fraser University")
	record.Attributes["abbreviation"] = "SFU"
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, profile.WriteJSONL(f, []profile.Record{record}, profile.LangCH))
	require.NoError(t, f.Close())

	seeds, err := ReadSeeds(path, "")
	require.NoError(t, err)
	require.Equal(t, []profile.Seed{{ID: 3, Name: "Simon Fraser University", Abbreviation: "SFU"}}, seeds)
}

func TestWriteRecords(t *testing.T) {
	a := profile.NewRecord(profile.KindUniversity, 1, "The University of British Columbia")
	a.Attributes["website"] = "https://www.ubc.ca"
	a.Attributes["statistics"] = map[string]any{"students": 70000}
	a.Attributes["custom_note"] = "kept"
	b := profile.NewRecord(profile.KindUniversity, 2, "Simon Fraser University")

	path := filepath.Join(t.TempDir(), "out", "universities.xlsx")
	require.NoError(t, WriteRecords(path, "", []profile.Record{a, b}, profile.LangCH))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("university")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	head := rows[0]
	require.Equal(t, "id_", head[0])
	require.Equal(t, "学校名", head[1])
	require.Equal(t, "custom_note", head[len(head)-1])

	column := func(name string) int {
		for i, h := range head {
			if h == name {
				return i
			}
		}
		t.Fatalf("no column %s", name)
		return -1
	}
	require.Equal(t, "1", rows[1][0])
	require.Equal(t, "https://www.ubc.ca", rows[1][column("学校官方网站")])
	require.Equal(t, `{"students":70000}`, rows[1][column("统计数据")])
	require.Equal(t, "Simon Fraser University", rows[2][1])
}

func TestWriteRecordsRejectsMixedKinds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mixed.xlsx")
	err := WriteRecords(path, "", []profile.Record{
		profile.NewRecord(profile.KindUniversity, 1, "A"),
		profile.NewRecord(profile.KindProgram, 1, "B"),
	}, profile.LangEN)
	require.Error(t, err)
}
