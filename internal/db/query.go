package db

import (
	"context"
)

const insertTrouble = `insert into trouble_ledger (run_id, entity, attribute, handler, message, created_at)
values (?, ?, ?, ?, ?, ?)`

type InsertTroubleParams struct {
	RunID     string
	Entity    string
	Attribute string
	Handler   string
	Message   string
	CreatedAt int64
}

func (q *Queries) InsertTrouble(ctx context.Context, arg InsertTroubleParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, insertTrouble,
		arg.RunID,
		arg.Entity,
		arg.Attribute,
		arg.Handler,
		arg.Message,
		arg.CreatedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

const listTrouble = `select id, run_id, entity, attribute, handler, message, created_at
from trouble_ledger
where (? = '' or entity = ?) and (? = '' or attribute = ?) and (? = '' or run_id = ?)
order by id
limit ?`

type ListTroubleParams struct {
	Entity    string
	Attribute string
	RunID     string
	Limit     int64
}

func (q *Queries) ListTrouble(ctx context.Context, arg ListTroubleParams) ([]TroubleLedger, error) {
	rows, err := q.db.QueryContext(ctx, listTrouble,
		arg.Entity, arg.Entity,
		arg.Attribute, arg.Attribute,
		arg.RunID, arg.RunID,
		arg.Limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []TroubleLedger
	for rows.Next() {
		var i TroubleLedger
		if err := rows.Scan(
			&i.ID,
			&i.RunID,
			&i.Entity,
			&i.Attribute,
			&i.Handler,
			&i.Message,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const clearTrouble = `delete from trouble_ledger`

func (q *Queries) ClearTrouble(ctx context.Context) (int64, error) {
	result, err := q.db.ExecContext(ctx, clearTrouble)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const upsertProfile = `insert into profiles (kind, name, profile_id, run_id, attributes, evidence, failures, updated_at)
values (?, ?, ?, ?, ?, ?, ?, ?)
on conflict (kind, name) do update set
    profile_id = excluded.profile_id,
    run_id = excluded.run_id,
    attributes = excluded.attributes,
    evidence = excluded.evidence,
    failures = excluded.failures,
    updated_at = excluded.updated_at`

type UpsertProfileParams = Profile

func (q *Queries) UpsertProfile(ctx context.Context, arg UpsertProfileParams) error {
	_, err := q.db.ExecContext(ctx, upsertProfile,
		arg.Kind,
		arg.Name,
		arg.ProfileID,
		arg.RunID,
		arg.Attributes,
		arg.Evidence,
		arg.Failures,
		arg.UpdatedAt,
	)
	return err
}

const getProfile = `select kind, name, profile_id, run_id, attributes, evidence, failures, updated_at
from profiles
where kind = ? and name = ?`

func (q *Queries) GetProfile(ctx context.Context, kind, name string) (Profile, error) {
	row := q.db.QueryRowContext(ctx, getProfile, kind, name)
	var i Profile
	err := row.Scan(
		&i.Kind,
		&i.Name,
		&i.ProfileID,
		&i.RunID,
		&i.Attributes,
		&i.Evidence,
		&i.Failures,
		&i.UpdatedAt,
	)
	return i, err
}

const listProfiles = `select kind, name, profile_id, run_id, attributes, evidence, failures, updated_at
from profiles
where kind = ?
order by profile_id, name`

func (q *Queries) ListProfiles(ctx context.Context, kind string) ([]Profile, error) {
	rows, err := q.db.QueryContext(ctx, listProfiles, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Profile
	for rows.Next() {
		var i Profile
		if err := rows.Scan(
			&i.Kind,
			&i.Name,
			&i.ProfileID,
			&i.RunID,
			&i.Attributes,
			&i.Evidence,
			&i.Failures,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
