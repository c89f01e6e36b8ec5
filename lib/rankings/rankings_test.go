package rankings

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const qsTable = `university_name,rank,qs_uni_link
University of Toronto,21,https://www.topuniversities.com/universities/university-toronto
McGill University,29,https://www.topuniversities.com/universities/mcgill-university
University of British Columbia,34,https://www.topuniversities.com/universities/university-british-columbia
University of X,400,
University of X Okanagan,=601,
`

func TestLookupUnique(t *testing.T) {
	table, err := ReadCSV("ranking_qs_news_2024", strings.NewReader(qsTable))
	require.NoError(t, err)
	require.Equal(t, 5, table.Len())

	row, ok := table.Lookup("mcgill")
	require.True(t, ok)
	require.Equal(t, "29", table.Rank(row))
}

func TestLookupAmbiguousReturnsNone(t *testing.T) {
	table, err := ReadCSV("ranking_qs_news_2024", strings.NewReader(qsTable))
	require.NoError(t, err)

	_, ok := table.Lookup("University of X")
	require.False(t, ok)

	diff := cmp.Diff([]string{"University of X", "University of X Okanagan"}, table.Candidates("university of x"))
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestLookupMissing(t *testing.T) {
	table, err := ReadCSV("ranking_qs_news_2024", strings.NewReader(qsTable))
	require.NoError(t, err)

	_, ok := table.Lookup("Harvard University")
	require.False(t, ok)
	_, ok = table.Lookup("  ")
	require.False(t, ok)
}

func TestScoreOrdersBySimilarity(t *testing.T) {
	table, err := ReadCSV("ranking_qs_news_2024", strings.NewReader(qsTable))
	require.NoError(t, err)

	candidates := table.Candidates("university of x")
	scored := Score("University of X", candidates)
	require.Len(t, scored, 2)
	require.Equal(t, "University of X", scored[0].Name)
	require.InDelta(t, 1.0, scored[0].Score, 1e-9)
	require.Less(t, scored[1].Score, scored[0].Score)

	closest := table.Closest("Univ of British Columbia", 2)
	require.Len(t, closest, 2)
	require.Equal(t, "University of British Columbia", closest[0].Name)
	require.GreaterOrEqual(t, closest[0].Score, closest[1].Score)

	require.Len(t, table.Closest("McGill", 10), table.Len())
}

func TestSetRanking(t *testing.T) {
	arwu, err := NewTable("ranking_arwu_rank_2023", [][]string{
		{"university_name", "ranking_arwu_rank_2023"},
		{"University of Toronto", "24"},
	})
	require.NoError(t, err)

	set := Set{"ranking_arwu_rank_2023": arwu}
	rank, ok := set.Ranking("ranking_arwu_rank_2023", "university of toronto")
	require.True(t, ok)
	require.Equal(t, "24", rank)

	_, ok = set.Ranking("ranking_times_rank_2024", "university of toronto")
	require.False(t, ok)
}

func TestNoNameColumn(t *testing.T) {
	_, err := ReadCSV("bad", strings.NewReader("name,rank\nA,1\n"))
	require.ErrorIs(t, err, ErrNoNameColumn)
}
