// Package planstore persists operation plans in SQLite.
package planstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/portlogistics/portplan/core/model"
)

// SQLiteStore implements planning.PlanStore on a SQLite database. The plan
// body is stored as JSON next to its version and day.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// a single connection serializes writers and keeps :memory: databases shared
	db.SetMaxOpenConns(1)
	schema := `CREATE TABLE IF NOT EXISTS operation_plans (
        id TEXT PRIMARY KEY,
        day TEXT NOT NULL UNIQUE,
        version INTEGER NOT NULL,
        updated_at INTEGER NOT NULL,
        body TEXT NOT NULL
    );`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (model.OperationPlan, error) {
	return s.one(ctx, `SELECT body FROM operation_plans WHERE id = ?`, id, id)
}

func (s *SQLiteStore) GetByDay(ctx context.Context, day string) (model.OperationPlan, error) {
	return s.one(ctx, `SELECT body FROM operation_plans WHERE day = ?`, day, "day "+day)
}

func (s *SQLiteStore) one(ctx context.Context, query, arg, label string) (model.OperationPlan, error) {
	var body string
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return model.OperationPlan{}, fmt.Errorf("%w: %s", model.ErrPlanNotFound, label)
	}
	if err != nil {
		return model.OperationPlan{}, err
	}
	return decode(body)
}

// Save writes plan inside a transaction when the stored version matches
// expectedVersion.
func (s *SQLiteStore) Save(ctx context.Context, plan model.OperationPlan, expectedVersion int64) (saved model.OperationPlan, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.OperationPlan{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current int64
	err = tx.QueryRowContext(ctx, `SELECT version FROM operation_plans WHERE id = ?`, plan.ID).Scan(&current)
	exists := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return model.OperationPlan{}, err
	}
	switch {
	case !exists && expectedVersion != 0:
		return model.OperationPlan{}, fmt.Errorf("%w: %s", model.ErrPlanNotFound, plan.ID)
	case exists && current != expectedVersion:
		return model.OperationPlan{}, fmt.Errorf("%w: %s at version %d, expected %d", model.ErrVersionConflict, plan.ID, current, expectedVersion)
	}

	var other string
	err = tx.QueryRowContext(ctx, `SELECT id FROM operation_plans WHERE day = ? AND id <> ?`, plan.PlanDate, plan.ID).Scan(&other)
	if err == nil {
		return model.OperationPlan{}, fmt.Errorf("%w: day %s already has plan %s", model.ErrVersionConflict, plan.PlanDate, other)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return model.OperationPlan{}, err
	}

	saved = plan.Clone()
	saved.Version = expectedVersion + 1
	b, err := json.Marshal(saved)
	if err != nil {
		return model.OperationPlan{}, err
	}
	if exists {
		var res sql.Result
		res, err = tx.ExecContext(ctx,
			`UPDATE operation_plans SET day = ?, version = ?, updated_at = ?, body = ? WHERE id = ? AND version = ?`,
			saved.PlanDate, saved.Version, saved.UpdatedAt.UnixNano(), string(b), saved.ID, expectedVersion)
		if err != nil {
			return model.OperationPlan{}, err
		}
		var n int64
		if n, err = res.RowsAffected(); err != nil {
			return model.OperationPlan{}, err
		}
		if n != 1 {
			err = fmt.Errorf("%w: %s", model.ErrVersionConflict, saved.ID)
			return model.OperationPlan{}, err
		}
	} else {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO operation_plans (id, day, version, updated_at, body) VALUES (?, ?, ?, ?, ?)`,
			saved.ID, saved.PlanDate, saved.Version, saved.UpdatedAt.UnixNano(), string(b))
		if err != nil {
			return model.OperationPlan{}, err
		}
	}
	if err = tx.Commit(); err != nil {
		return model.OperationPlan{}, err
	}
	return saved, nil
}

// List returns all plans ordered by day.
func (s *SQLiteStore) List(ctx context.Context) ([]model.OperationPlan, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT body FROM operation_plans ORDER BY day`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.OperationPlan
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		p, err := decode(body)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func decode(body string) (model.OperationPlan, error) {
	var p model.OperationPlan
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return model.OperationPlan{}, fmt.Errorf("decode plan: %w", err)
	}
	return p, nil
}
