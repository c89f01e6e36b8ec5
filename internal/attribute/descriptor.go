package attribute

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/IvanKyuu/university-crawl/lib/textutil"
)

const DefaultBreadth = 10

// Columns of a metadata row.
const (
	ColumnFormat    = "attribute_format"
	ColumnReference = "attribute_reference"
	ColumnPrompt    = "attribute_prompt"
	ColumnExample   = "example"
	ColumnHandler   = "handler"
	ColumnBreadth   = "k_value"
	ColumnMapping   = "mapping"
)

var Columns = []string{
	ColumnFormat,
	ColumnReference,
	ColumnPrompt,
	ColumnExample,
	ColumnHandler,
	ColumnBreadth,
	ColumnMapping,
}

var tuitionAttributes = []string{"domestic_student_tuition", "international_student_tuition"}

// Row is one loosely typed metadata row, column name to cell text.
type Row map[string]string

// Descriptor is how to resolve one attribute.
type Descriptor struct {
	Name       string
	Format     string
	Prompt     string
	References []string
	Example    string
	Handler    Handler
	Breadth    int
	Mapping    string
}

// QueryName is the attribute name sent to external sources.
func (d Descriptor) QueryName() string {
	if d.Mapping != "" {
		return d.Mapping
	}
	return d.Name
}

func (d Descriptor) IsRanking() bool {
	return strings.Contains(d.Name, "ranking")
}

func (d Descriptor) IsTuition() bool {
	if d.Handler == HandlerDedicatedCrawler {
		return true
	}
	for _, name := range tuitionAttributes {
		if d.Name == name {
			return true
		}
	}
	return false
}

// TuitionAttributes returns the two attributes the tuition crawler fills.
func TuitionAttributes() (domestic, international string) {
	return tuitionAttributes[0], tuitionAttributes[1]
}

// isMissing reports the sentinels spreadsheet exports use for empty cells.
func isMissing(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "nan", "NaN", "null", "None":
		return true
	}
	return false
}

func cell(row Row, column string) string {
	value := row[column]
	if isMissing(value) {
		return ""
	}
	return strings.TrimSpace(value)
}

// ParseBreadth coerces a k_value cell to an integer of at least 1.
// Integral floats such as "5.0" are accepted. Values beyond math.MaxInt32
// are rejected.
func ParseBreadth(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, n >= 1 && n <= math.MaxInt32
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < 1 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// Normalize turns a metadata row into a fully populated descriptor. Missing
// strings become empty, a missing or unknown handler becomes
// HandlerUnspecified and an unusable breadth becomes DefaultBreadth. Each
// substitution other than a plainly empty cell is described in the returned
// notes.
func Normalize(name string, row Row) (Descriptor, []string) {
	var notes []string

	handler, ok := ParseHandler(row[ColumnHandler])
	if !ok {
		notes = append(notes, fmt.Sprintf("unknown handler %q, using %s", row[ColumnHandler], handler))
	}

	breadth := DefaultBreadth
	if raw := row[ColumnBreadth]; !isMissing(raw) {
		parsed, ok := ParseBreadth(raw)
		if ok {
			breadth = parsed
		} else {
			notes = append(notes, fmt.Sprintf("invalid k_value %q, using %d", raw, DefaultBreadth))
		}
	}

	return Descriptor{
		Name:       strings.TrimSpace(name),
		Format:     cell(row, ColumnFormat),
		Prompt:     cell(row, ColumnPrompt),
		References: textutil.SplitList(cell(row, ColumnReference)),
		Example:    cell(row, ColumnExample),
		Handler:    handler,
		Breadth:    breadth,
		Mapping:    cell(row, ColumnMapping),
	}, notes
}
