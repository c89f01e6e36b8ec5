// Package ledger records sources that failed in a way that needs a person
// to look at them, such as a scraped page whose layout changed.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/IvanKyuu/university-crawl/internal/chrono"
	"github.com/IvanKyuu/university-crawl/internal/db"
	"github.com/IvanKyuu/university-crawl/internal/telemetry"
)

const defaultListLimit = 1000

type Entry struct {
	ID        int64
	RunID     string
	Entity    string
	Attribute string
	Handler   string
	Message   string
	CreatedAt time.Time
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	Entity    string
	Attribute string
	RunID     string
	Limit     int
}

func (f Filter) limit() int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}

func (f Filter) match(e Entry) bool {
	return (f.Entity == "" || f.Entity == e.Entity) &&
		(f.Attribute == "" || f.Attribute == e.Attribute) &&
		(f.RunID == "" || f.RunID == e.RunID)
}

type Ledger interface {
	Record(ctx context.Context, entry Entry) error
	List(ctx context.Context, filter Filter) ([]Entry, error)
	Clear(ctx context.Context) error
}

// Memory keeps entries for the lifetime of the process.
type Memory struct {
	tel  telemetry.API
	time chrono.TimeAPI

	mutex   sync.Mutex
	entries []Entry
}

func NewMemory(tel telemetry.API, clock chrono.TimeAPI) *Memory {
	return &Memory{tel: telemetry.NewScopedAPI("ledger", tel), time: clock}
}

func (m *Memory) Record(_ context.Context, entry Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = m.time.Now()
	}

	m.mutex.Lock()
	entry.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, entry)
	m.mutex.Unlock()

	report(m.tel, entry)
	return nil
}

func (m *Memory) List(_ context.Context, filter Filter) ([]Entry, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var out []Entry
	for _, e := range m.entries {
		if len(out) >= filter.limit() {
			break
		}
		if filter.match(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Memory) Clear(context.Context) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.entries = nil
	return nil
}

// Store keeps entries in the trouble_ledger table.
type Store struct {
	tel  telemetry.API
	time chrono.TimeAPI
	qry  *db.Queries
}

func NewStore(conn *sql.DB, tel telemetry.API, clock chrono.TimeAPI) *Store {
	return &Store{
		tel:  telemetry.NewScopedAPI("ledger", tel),
		time: clock,
		qry:  db.New(conn),
	}
}

func (s *Store) Record(ctx context.Context, entry Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.time.Now()
	}
	_, err := s.qry.InsertTrouble(ctx, db.InsertTroubleParams{
		RunID:     entry.RunID,
		Entity:    entry.Entity,
		Attribute: entry.Attribute,
		Handler:   entry.Handler,
		Message:   entry.Message,
		CreatedAt: entry.CreatedAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("record trouble: %w", err)
	}
	report(s.tel, entry)
	return nil
}

func (s *Store) List(ctx context.Context, filter Filter) ([]Entry, error) {
	rows, err := s.qry.ListTrouble(ctx, db.ListTroubleParams{
		Entity:    filter.Entity,
		Attribute: filter.Attribute,
		RunID:     filter.RunID,
		Limit:     int64(filter.limit()),
	})
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, len(rows))
	for i, row := range rows {
		entries[i] = Entry{
			ID:        row.ID,
			RunID:     row.RunID,
			Entity:    row.Entity,
			Attribute: row.Attribute,
			Handler:   row.Handler,
			Message:   row.Message,
			CreatedAt: time.Unix(row.CreatedAt, 0),
		}
	}
	return entries, nil
}

func (s *Store) Clear(ctx context.Context) error {
	n, err := s.qry.ClearTrouble(ctx)
	if err != nil {
		return err
	}
	s.tel.ReportCount("cleared", n)
	return nil
}

func report(tel telemetry.API, entry Entry) {
	tel.ReportWarning(
		"trouble",
		fmt.Sprintf("%s / %s / %s", entry.Entity, entry.Attribute, entry.Handler),
		entry.Message,
	)
}
