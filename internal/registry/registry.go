// Package registry records training runs in a SQLite database.
package registry

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/YuminosukeSato/weldsim/pkg/errors"
	"github.com/YuminosukeSato/weldsim/weld"
)

//go:embed schema.sql
var schemaSQL string

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("training run not found")

// Registry stores one row per trained bank.
type Registry struct {
	db *sql.DB
}

// Open creates or opens the registry database at path.
func Open(path string) (*Registry, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open registry")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to connect to registry")
	}

	// one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "failed to execute %q", pragma)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to apply schema")
	}
	return &Registry{db: db}, nil
}

// Close closes the database.
func (r *Registry) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Record inserts info. Recording the same id twice replaces the row.
func (r *Registry) Record(ctx context.Context, info weld.BankInfo) error {
	var report sql.NullString
	if info.Report != nil {
		data, err := json.Marshal(info.Report)
		if err != nil {
			return errors.Wrap(err, "failed to encode report")
		}
		report = sql.NullString{String: string(data), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO training_runs
			(id, kind, seed, samples, estimators, source, trained_at, report_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		info.ID, string(info.Kind), int64(info.Seed), info.Samples, info.Estimators,
		info.Source, info.TrainedAt.UTC().Format(time.RFC3339Nano), report)
	return errors.Wrapf(err, "failed to record run %s", info.ID)
}

// Get returns the run with id.
func (r *Registry) Get(ctx context.Context, id string) (weld.BankInfo, error) {
	row := r.db.QueryRowContext(ctx, selectRuns+` WHERE id = ?`, id)
	info, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return weld.BankInfo{}, errors.Wrapf(ErrNotFound, "id %s", id)
	}
	return info, err
}

// List returns up to limit runs, newest first. limit <= 0 means all.
func (r *Registry) List(ctx context.Context, limit int) ([]weld.BankInfo, error) {
	query := selectRuns + ` ORDER BY trained_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list runs")
	}
	defer rows.Close()

	var runs []weld.BankInfo
	for rows.Next() {
		info, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, info)
	}
	return runs, errors.Wrap(rows.Err(), "failed to iterate runs")
}

const selectRuns = `SELECT id, kind, seed, samples, estimators, source, trained_at, report_json FROM training_runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (weld.BankInfo, error) {
	var (
		info      weld.BankInfo
		kind      string
		seed      int64
		trainedAt string
		report    sql.NullString
	)
	if err := s.Scan(&info.ID, &kind, &seed, &info.Samples, &info.Estimators, &info.Source, &trainedAt, &report); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return weld.BankInfo{}, err
		}
		return weld.BankInfo{}, errors.Wrap(err, "failed to scan run")
	}
	info.Kind = weld.Kind(kind)
	info.Seed = uint64(seed)

	t, err := time.Parse(time.RFC3339Nano, trainedAt)
	if err != nil {
		return weld.BankInfo{}, errors.Wrapf(err, "bad trained_at %q", trainedAt)
	}
	info.TrainedAt = t

	if report.Valid {
		info.Report = &weld.EvaluationReport{}
		if err := json.Unmarshal([]byte(report.String), info.Report); err != nil {
			return weld.BankInfo{}, errors.Wrap(err, "failed to decode report")
		}
	}
	return info, nil
}
