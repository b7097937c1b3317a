package watcher

import (
	"context"
	"database/sql"
	"encoding/json"

	"jwassist-backend/lib/timezone"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Store persists the last observed snapshot per (domain, scope). The
// scope is the domain's natural partition key, the academic year for
// grades, the term for exams, so a new term starts from a clean
// baseline instead of diffing against the old one.
type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

func (s Store) Get(ctx context.Context, domain, scope string) ([]byte, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`select data from snapshots where domain = ? and scope = ?`,
		domain, scope,
	)
	var data []byte
	err := row.Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s Store) Put(ctx context.Context, domain, scope string, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`insert into snapshots (domain, scope, data, updated_at)
		values (?, ?, ?, ?)
		on conflict (domain, scope) do update set
			data = excluded.data,
			updated_at = excluded.updated_at`,
		domain, scope, data, timezone.Now().Unix(),
	)
	return err
}

// snapshot documents wrap their records in a named array so the stored
// JSON stays compatible with the snapshot files the legacy tooling kept
type snapshotDoc[T any] struct {
	Records []T `json:"records"`
}

// LoadSnapshot returns the stored records for a (domain, scope), or nil
// when nothing has been observed yet.
func LoadSnapshot[T any](ctx context.Context, store Store, domain, scope string) ([]T, error) {
	data, ok, err := store.Get(ctx, domain, scope)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var doc snapshotDoc[T]
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Records, nil
}

func SaveSnapshot[T any](ctx context.Context, store Store, domain, scope string, records []T) error {
	data, err := json.Marshal(snapshotDoc[T]{Records: records})
	if err != nil {
		return err
	}
	return store.Put(ctx, domain, scope, data)
}
