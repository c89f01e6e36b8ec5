// Package sheets reads attribute metadata and seed rows from spreadsheets
// and writes built records back out.
package sheets

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/IvanKyuu/university-crawl/internal/attribute"
	"github.com/IvanKyuu/university-crawl/internal/profile"
)

const nameColumn = "attribute_name"

func isJSONL(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".jsonl" || ext == ".json"
}

// readSheet returns the rows of `sheet`, or of the first sheet when it is
// empty.
func readSheet(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q of %s: %w", sheet, path, err)
	}
	return rows, nil
}

func header(row []string) []string {
	out := make([]string, len(row))
	for i, h := range row {
		out[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return out
}

func at(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// ReadAttributes reads metadata rows in sheet order. The attribute name is
// taken from the attribute_name column, or the first column when there is
// none. A .jsonl path is read as the attribute cache file instead.
func ReadAttributes(path, sheet string) ([]attribute.NamedRow, error) {
	if isJSONL(path) {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return attribute.ReadJSONL(f)
	}

	rows, err := readSheet(path, sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: no header row", path)
	}

	columns := header(rows[0])
	nameAt := slices.Index(columns, nameColumn)
	if nameAt < 0 {
		nameAt = 0
	}

	var out []attribute.NamedRow
	for _, row := range rows[1:] {
		name := at(row, nameAt)
		if name == "" {
			continue
		}
		values := attribute.Row{}
		for i, column := range columns {
			if i == nameAt || column == "" {
				continue
			}
			values[column] = at(row, i)
		}
		out = append(out, attribute.NamedRow{Name: name, Row: values})
	}
	return out, nil
}

// ReadSeeds reads known universities. Columns may use the English or the
// Chinese output names. A .jsonl path is read as previously written records.
func ReadSeeds(path, sheet string) ([]profile.Seed, error) {
	if isJSONL(path) {
		return readSeedRecords(path)
	}

	rows, err := readSheet(path, sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	columns := header(rows[0])
	index := map[string]int{}
	for i, column := range columns {
		column = profile.KindUniversity.ToEN(column)
		if column == "id" {
			column = "id_"
		}
		if column == "name" {
			column = "university_name"
		}
		if _, ok := index[column]; !ok {
			index[column] = i
		}
	}
	get := func(row []string, column string) string {
		i, ok := index[column]
		if !ok {
			return ""
		}
		return at(row, i)
	}

	var seeds []profile.Seed
	for _, row := range rows[1:] {
		name := get(row, "university_name")
		if name == "" {
			continue
		}
		id, _ := strconv.ParseFloat(get(row, "id_"), 64)
		seeds = append(seeds, profile.Seed{
			ID:           int64(id),
			Name:         name,
			Abbreviation: get(row, "abbreviation"),
			Website:      get(row, "website"),
			Wikipedia:    get(row, "wikipedia"),
		})
	}
	return seeds, nil
}

func readSeedRecords(path string) ([]profile.Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var seeds []profile.Seed
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(text, &m); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		lang := profile.LangEN
		if _, ok := m["学校名"]; ok {
			lang = profile.LangCH
		}
		record, err := profile.FromMap(profile.KindUniversity, m, lang)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		field := func(key string) string {
			s, _ := record.Attributes[key].(string)
			return s
		}
		seeds = append(seeds, profile.Seed{
			ID:           record.ID,
			Name:         record.Name,
			Abbreviation: field("abbreviation"),
			Website:      field("website"),
			Wikipedia:    field("wikipedia"),
		})
	}
	return seeds, scanner.Err()
}

func cellValue(value any) any {
	switch v := value.(type) {
	case nil:
		return ""
	case string, int, int64, float64, bool:
		return v
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	return string(encoded)
}

// columnsOf returns the kind's fields in order followed by any other keys
// the records carry, sorted.
func columnsOf(kind profile.Kind, records []profile.Record) []string {
	var columns []string
	known := map[string]bool{}
	for _, field := range kind.Fields() {
		columns = append(columns, field.EN)
		known[field.EN] = true
	}
	var extra []string
	for _, record := range records {
		for key := range record.Attributes {
			if !known[key] {
				known[key] = true
				extra = append(extra, key)
			}
		}
	}
	slices.Sort(extra)
	return append(columns, extra...)
}

// WriteRecords writes one row per record under a header of the kind's
// field names in `lang`. Records must share a kind.
func WriteRecords(path, sheet string, records []profile.Record, lang profile.Lang) error {
	kind := profile.KindUniversity
	if len(records) > 0 {
		kind = records[0].Kind
	}
	if sheet == "" {
		sheet = string(kind)
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return err
	}

	columns := columnsOf(kind, records)
	head := make([]any, len(columns))
	for i, column := range columns {
		if lang == profile.LangCH {
			head[i] = kind.ToCH(column)
		} else {
			head[i] = column
		}
	}
	if err := f.SetSheetRow(sheet, "A1", &head); err != nil {
		return err
	}

	for i, record := range records {
		if record.Kind != kind {
			return fmt.Errorf("record %s is a %s, expected %s", record.Entity(), record.Kind, kind)
		}
		values := record.EN()
		row := make([]any, len(columns))
		for j, column := range columns {
			row[j] = cellValue(values[column])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}
