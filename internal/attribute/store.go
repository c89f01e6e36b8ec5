package attribute

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/antzucaro/matchr"
	"github.com/titanous/json5"

	"github.com/IvanKyuu/university-crawl/internal/telemetry"
)

const suggestionThreshold = 0.85

// UnknownAttributeError is returned for an attribute with no descriptor.
type UnknownAttributeError struct {
	Name string
	// Suggestion is the closest known name, if any is close enough.
	Suggestion string
}

func (e *UnknownAttributeError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown attribute %q (did you mean %q?)", e.Name, e.Suggestion)
	}
	return fmt.Sprintf("unknown attribute %q", e.Name)
}

// Store holds the descriptors of a run. It is not modified after it is built.
type Store struct {
	names       []string
	descriptors map[string]Descriptor
}

// NewStore keeps the first descriptor given for each name.
func NewStore(descs ...Descriptor) *Store {
	s := &Store{descriptors: make(map[string]Descriptor, len(descs))}
	for _, d := range descs {
		if _, exists := s.descriptors[d.Name]; exists || d.Name == "" {
			continue
		}
		s.names = append(s.names, d.Name)
		s.descriptors[d.Name] = d
	}
	return s
}

func (s *Store) Get(name string) (Descriptor, error) {
	d, ok := s.descriptors[name]
	if ok {
		return d, nil
	}

	err := &UnknownAttributeError{Name: name}
	best := 0.0
	for _, candidate := range s.names {
		score := matchr.JaroWinkler(name, candidate, false)
		if score >= suggestionThreshold && score > best {
			best = score
			err.Suggestion = candidate
		}
	}
	return Descriptor{}, err
}

func (s *Store) Has(name string) bool {
	_, ok := s.descriptors[name]
	return ok
}

// Names returns attribute names in load order.
func (s *Store) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

func (s *Store) Len() int {
	return len(s.names)
}

type NamedRow struct {
	Name string
	Row  Row
}

// LoadRows normalizes each row, reporting substituted defaults to `tel`.
func LoadRows(rows []NamedRow, tel telemetry.API) *Store {
	descs := make([]Descriptor, 0, len(rows))
	for _, r := range rows {
		desc, notes := Normalize(r.Name, r.Row)
		for _, note := range notes {
			tel.ReportWarning("normalize", desc.Name, note)
		}
		descs = append(descs, desc)
	}
	return NewStore(descs...)
}

// ReadJSONL reads the attribute cache format, one or more
// `{"<name>": {"<column>": <value>}}` objects per line. Values may be any
// json5 scalar, including NaN. Within a line names are taken in sorted order.
func ReadJSONL(r io.Reader) ([]NamedRow, error) {
	var rows []NamedRow
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var object map[string]map[string]any
		if err := json5.Unmarshal(text, &object); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		names := make([]string, 0, len(object))
		for name := range object {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			row := Row{}
			for column, value := range object[name] {
				row[column] = cellString(value)
			}
			rows = append(rows, NamedRow{Name: name, Row: row})
		}
	}
	return rows, scanner.Err()
}

// LoadJSONL reads the attribute cache format into a store.
func LoadJSONL(r io.Reader, tel telemetry.API) (*Store, error) {
	rows, err := ReadJSONL(r)
	if err != nil {
		return nil, err
	}
	return LoadRows(rows, tel), nil
}

func cellString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if math.IsNaN(v) {
			return "NaN"
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
