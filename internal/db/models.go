package db

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

type TroubleLedger struct {
	ID        int64
	RunID     string
	Entity    string
	Attribute string
	Handler   string
	Message   string
	CreatedAt int64
}

type Profile struct {
	Kind       string
	Name       string
	ProfileID  int64
	RunID      string
	Attributes string
	Evidence   string
	Failures   string
	UpdatedAt  int64
}
