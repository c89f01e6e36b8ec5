package rankings

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/IvanKyuu/university-crawl/lib/textutil"
)

var ErrNoNameColumn = errors.New("ranking table has no university_name column")

// Row is one ranking table row keyed by column header.
type Row map[string]string

// Table is a pre-fetched ranking table such as the QS or ARWU lists.
type Table struct {
	Name    string
	columns []string
	rows    []Row
	names   []string
}

// NewTable builds a table from records whose first entry is the header.
// The header must contain "university_name".
func NewTable(name string, records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNoNameColumn)
	}
	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	nameIdx := slices.Index(header, "university_name")
	if nameIdx < 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNoNameColumn)
	}

	table := &Table{Name: name, columns: header}
	for _, record := range records[1:] {
		if nameIdx >= len(record) || strings.TrimSpace(record[nameIdx]) == "" {
			continue
		}
		row := Row{}
		for i, col := range header {
			if i < len(record) {
				row[col] = strings.TrimSpace(record[i])
			}
		}
		table.rows = append(table.rows, row)
		table.names = append(table.names, row["university_name"])
	}
	return table, nil
}

// ReadCSV parses a CSV ranking table.
func ReadCSV(name string, r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return NewTable(name, records)
}

// OpenCSV reads a CSV ranking table from disk.
func OpenCSV(name, path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(name, f)
}

func (t *Table) Len() int {
	return len(t.rows)
}

func (t *Table) Columns() []string {
	return t.columns
}

// Lookup returns the only row whose university_name contains `entity`,
// case-insensitively. No match and more than one match both return false.
func (t *Table) Lookup(entity string) (Row, bool) {
	if strings.TrimSpace(entity) == "" {
		return nil, false
	}
	matches := textutil.MatchName(entity, t.names)
	if len(matches) != 1 {
		return nil, false
	}
	return t.rows[matches[0]], true
}

// Candidates lists every university_name containing `entity`, used to
// explain an ambiguous lookup.
func (t *Table) Candidates(entity string) []string {
	var out []string
	for _, idx := range textutil.MatchName(entity, t.names) {
		out = append(out, t.names[idx])
	}
	return out
}

// Match is a university_name scored against a looked up name.
type Match struct {
	Name  string
	Score float64
}

// Score orders `names` by Jaro-Winkler similarity to `entity`, highest
// first. Equal scores keep the order of `names`.
func Score(entity string, names []string) []Match {
	folded := textutil.Fold(entity)
	out := make([]Match, len(names))
	for i, name := range names {
		out[i] = Match{
			Name:  name,
			Score: matchr.JaroWinkler(folded, textutil.Fold(name), false),
		}
	}
	slices.SortStableFunc(out, func(a, b Match) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	return out
}

// Closest returns the `n` names in the table most similar to `entity`.
func (t *Table) Closest(entity string, n int) []Match {
	matches := Score(entity, t.names)
	if n >= 0 && len(matches) > n {
		matches = matches[:n]
	}
	return matches
}

// Rank extracts the rank value of a row, preferring a "rank" column and
// then a column named after the table.
func (t *Table) Rank(row Row) string {
	if rank, ok := row["rank"]; ok {
		return rank
	}
	return row[t.Name]
}

// Set holds ranking tables keyed by the attribute they answer, for example
// "ranking_qs_news_2024".
type Set map[string]*Table

// OpenSet opens a CSV table for each attribute -> path entry.
func OpenSet(paths map[string]string) (Set, error) {
	set := Set{}
	var errs []error
	for attribute, path := range paths {
		table, err := OpenCSV(attribute, path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		set[attribute] = table
	}
	return set, errors.Join(errs...)
}

// Ranking returns the rank of `entity` in the table for `attribute`.
func (s Set) Ranking(attribute, entity string) (string, bool) {
	table, ok := s[attribute]
	if !ok {
		return "", false
	}
	row, ok := table.Lookup(entity)
	if !ok {
		return "", false
	}
	rank := table.Rank(row)
	return rank, rank != ""
}

// Has reports whether a table answers `attribute`.
func (s Set) Has(attribute string) bool {
	_, ok := s[attribute]
	return ok
}
