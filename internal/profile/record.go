package profile

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

type Lang string

const (
	LangEN Lang = "en"
	LangCH Lang = "ch"
)

func ParseLang(s string) (Lang, error) {
	switch Lang(strings.ToLower(strings.TrimSpace(s))) {
	case LangEN, "":
		return LangEN, nil
	case LangCH, "zh", "cn":
		return LangCH, nil
	}
	return "", fmt.Errorf("unknown language %q, expected en or ch", s)
}

// Record is a university or program profile. Empty attributes are left out.
type Record struct {
	Kind Kind
	ID   int64
	Name string
	// University is the parent university of a program record.
	University   string
	UniversityID int64

	Attributes map[string]any
	Evidence   map[string][]string
	// Failures holds the error of each attribute that could not be resolved.
	Failures map[string]string
}

func NewRecord(kind Kind, id int64, name string) Record {
	return Record{
		Kind:       kind,
		ID:         id,
		Name:       name,
		Attributes: map[string]any{},
		Evidence:   map[string][]string{},
		Failures:   map[string]string{},
	}
}

// Entity is the name the record's attributes are resolved and cached under.
func (r Record) Entity() string {
	if r.Kind == KindProgram {
		return ProgramEntity(r.University, r.Name)
	}
	return r.Name
}

func ProgramEntity(university, program string) string {
	return university + " / " + program
}

// Filled reports whether `attribute` has a non-empty value.
func (r Record) Filled(attribute string) bool {
	value, ok := r.Attributes[attribute]
	if !ok || value == nil {
		return false
	}
	if s, ok := value.(string); ok {
		return s != ""
	}
	return true
}

// EN returns the record keyed by English names.
func (r Record) EN() map[string]any {
	out := make(map[string]any, len(r.Attributes)+4)
	for key, value := range r.Attributes {
		out[key] = value
	}
	out[r.Kind.IDField()] = r.ID
	out[r.Kind.NameField()] = r.Name
	if r.Kind == KindProgram {
		out["university_name"] = r.University
		out["university_id"] = r.UniversityID
	}
	return out
}

// CH returns the record keyed by Chinese names. Keys without a translation
// keep their English name.
func (r Record) CH() map[string]any {
	en := r.EN()
	out := make(map[string]any, len(en))
	for key, value := range en {
		out[r.Kind.ToCH(key)] = value
	}
	return out
}

func (r Record) Map(lang Lang) map[string]any {
	if lang == LangCH {
		return r.CH()
	}
	return r.EN()
}

func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.EN())
}

func toInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), v == float64(int64(v))
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	}
	return 0, false
}

// FromMap reads a record keyed by either language. Keys that are not output
// keys of the kind are dropped.
func FromMap(kind Kind, m map[string]any, lang Lang) (Record, error) {
	en := make(map[string]any, len(m))
	for key, value := range m {
		if lang == LangCH {
			key = kind.ToEN(key)
		}
		en[key] = value
	}
	return fromEN(kind, en, false)
}

func fromEN(kind Kind, en map[string]any, keepUnknown bool) (Record, error) {
	name, _ := en[kind.NameField()].(string)
	if name == "" {
		return Record{}, fmt.Errorf("%s record without %s", kind, kind.NameField())
	}
	id, _ := toInt64(en[kind.IDField()])

	record := NewRecord(kind, id, name)
	if kind == KindProgram {
		record.University, _ = en["university_name"].(string)
		record.UniversityID, _ = toInt64(en["university_id"])
	}
	for key, value := range en {
		if kind.identity(key) || (!keepUnknown && !kind.Valid(key)) {
			continue
		}
		record.Attributes[key] = value
	}
	return record, nil
}

// WriteJSONL writes one object per record in `lang`.
func WriteJSONL(w io.Writer, records []Record, lang Lang) error {
	buffered := bufio.NewWriter(w)
	encoder := json.NewEncoder(buffered)
	encoder.SetEscapeHTML(false)
	for _, record := range records {
		if err := encoder.Encode(record.Map(lang)); err != nil {
			return fmt.Errorf("encode %s: %w", record.Name, err)
		}
	}
	return buffered.Flush()
}
