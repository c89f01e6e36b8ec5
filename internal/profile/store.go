package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/IvanKyuu/university-crawl/internal/chrono"
	"github.com/IvanKyuu/university-crawl/internal/db"
)

var ErrNotFound = errors.New("profile not found")

// Store persists records in the profiles table, one row per kind and
// entity name.
type Store struct {
	queries *db.Queries
	time    chrono.TimeAPI
}

func NewStore(conn db.DBTX, clock chrono.TimeAPI) *Store {
	return &Store{queries: db.New(conn), time: clock}
}

func (s *Store) Save(ctx context.Context, runID string, record Record) error {
	attributes, err := json.Marshal(record.EN())
	if err != nil {
		return fmt.Errorf("encode attributes of %s: %w", record.Entity(), err)
	}
	evidence, err := json.Marshal(record.Evidence)
	if err != nil {
		return fmt.Errorf("encode evidence of %s: %w", record.Entity(), err)
	}
	failures, err := json.Marshal(record.Failures)
	if err != nil {
		return fmt.Errorf("encode failures of %s: %w", record.Entity(), err)
	}

	err = s.queries.UpsertProfile(ctx, db.UpsertProfileParams{
		Kind:       string(record.Kind),
		Name:       record.Entity(),
		ProfileID:  record.ID,
		RunID:      runID,
		Attributes: string(attributes),
		Evidence:   string(evidence),
		Failures:   string(failures),
		UpdatedAt:  s.time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("save %s %s: %w", record.Kind, record.Entity(), err)
	}
	return nil
}

func decodeProfile(row db.Profile) (Record, error) {
	kind, err := ParseKind(row.Kind)
	if err != nil {
		return Record{}, err
	}
	var attributes map[string]any
	if err := json.Unmarshal([]byte(row.Attributes), &attributes); err != nil {
		return Record{}, fmt.Errorf("decode attributes of %s: %w", row.Name, err)
	}
	record, err := fromEN(kind, attributes, true)
	if err != nil {
		return Record{}, err
	}
	record.ID = row.ProfileID
	if row.Evidence != "" {
		if err := json.Unmarshal([]byte(row.Evidence), &record.Evidence); err != nil {
			return Record{}, fmt.Errorf("decode evidence of %s: %w", row.Name, err)
		}
	}
	if row.Failures != "" {
		if err := json.Unmarshal([]byte(row.Failures), &record.Failures); err != nil {
			return Record{}, fmt.Errorf("decode failures of %s: %w", row.Name, err)
		}
	}
	if record.Evidence == nil {
		record.Evidence = map[string][]string{}
	}
	if record.Failures == nil {
		record.Failures = map[string]string{}
	}
	return record, nil
}

// Load returns the record saved under `entity`, ErrNotFound when there is
// none.
func (s *Store) Load(ctx context.Context, kind Kind, entity string) (Record, error) {
	row, err := s.queries.GetProfile(ctx, string(kind), entity)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%s %s: %w", kind, entity, ErrNotFound)
	}
	if err != nil {
		return Record{}, err
	}
	return decodeProfile(row)
}

func (s *Store) List(ctx context.Context, kind Kind) ([]Record, error) {
	rows, err := s.queries.ListProfiles(ctx, string(kind))
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		record, err := decodeProfile(row)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// NewRunID returns a fresh id stamped onto the ledger entries and saved
// records of one run.
func NewRunID() string {
	return uuid.NewString()
}
