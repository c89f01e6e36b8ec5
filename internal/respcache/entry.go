package respcache

import (
	"bytes"
	"encoding/json"
)

// Entry is a cached answer and the urls it came from.
type Entry struct {
	Value    any
	Evidence []string
}

// IsEmpty reports whether the entry records that nothing was found.
func (e Entry) IsEmpty() bool {
	switch v := e.Value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	}
	return false
}

// MarshalJSON writes the entry as [value, [evidence...]].
func (e Entry) MarshalJSON() ([]byte, error) {
	evidence := e.Evidence
	if evidence == nil {
		evidence = []string{}
	}
	return json.Marshal([]any{e.Value, evidence})
}

// UnmarshalJSON accepts [value, [evidence...]] and, for entries written
// without evidence, any bare json value.
func (e *Entry) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		e.Evidence = nil
		return json.Unmarshal(data, &e.Value)
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) != 2 {
		e.Evidence = nil
		return json.Unmarshal(data, &e.Value)
	}

	var value any
	if err := json.Unmarshal(parts[0], &value); err != nil {
		return err
	}
	var evidence []string
	if err := json.Unmarshal(parts[1], &evidence); err != nil {
		// a two element list value, such as a pair of programs
		e.Evidence = nil
		return json.Unmarshal(data, &e.Value)
	}
	e.Value = value
	e.Evidence = evidence
	return nil
}
