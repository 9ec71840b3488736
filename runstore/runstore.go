// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package runstore persists run logs (etable.Table of per-step statistics)
// in a SQLite database, so that many simulation runs can be compared with
// plain SQL queries.  Values are stored in long form, one row per
// (run, step row, column).
package runstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/emer/etable/etable"
	"github.com/emer/etable/etensor"
	_ "modernc.org/sqlite" // SQLite driver
)

// ErrNoRun is returned when a run id is not in the store.
var ErrNoRun = errors.New("runstore: no such run")

const schemaDDL = `
CREATE TABLE IF NOT EXISTS runs (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL,
	network    TEXT NOT NULL,
	created_at TEXT NOT NULL,
	nrows      INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS run_values (
	run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	row    INTEGER NOT NULL,
	col    INTEGER NOT NULL,
	name   TEXT NOT NULL,
	value  REAL NOT NULL,
	PRIMARY KEY (run_id, row, col)
);
CREATE INDEX IF NOT EXISTS idx_run_values_name ON run_values(run_id, name);
`

// Run is the metadata of one saved run
type Run struct {
	ID      int64
	Name    string
	Network string
	Created time.Time
	Rows    int
}

// Store is a SQLite database of run logs
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the store at given path.
// Use ":memory:" for a temporary in-memory store.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

// InitSchema creates the tables if they do not exist
func InitSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schemaDDL)
	return err
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun saves all numeric columns of the table as a new run, returning its id.
func (s *Store) SaveRun(ctx context.Context, name, network string, dt *etable.Table) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `INSERT INTO runs (name, network, created_at, nrows) VALUES (?, ?, ?, ?)`,
		name, network, time.Now().UTC().Format(time.RFC3339), dt.Rows)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_values (run_id, row, col, name, value) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for ci, cl := range dt.Cols {
		if cl.DataType() == etensor.STRING {
			continue
		}
		cnm := dt.ColNames[ci]
		for row := 0; row < dt.Rows; row++ {
			if _, err := stmt.ExecContext(ctx, id, row, ci, cnm, cl.FloatVal1D(row)); err != nil {
				return 0, fmt.Errorf("failed to insert %v row %d: %w", cnm, row, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

// Runs returns all saved runs, oldest first
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, network, created_at, nrows FROM runs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var created string
		if err := rows.Scan(&r.ID, &r.Name, &r.Network, &created, &r.Rows); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Created, _ = time.Parse(time.RFC3339, created)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Means returns the mean over all steps of every column of given run
func (s *Store) Means(ctx context.Context, id int64) (map[string]float64, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, id).Scan(&n); err != nil {
		return nil, fmt.Errorf("failed to count runs: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: %d", ErrNoRun, id)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT name, AVG(value) FROM run_values WHERE run_id = ? GROUP BY name`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query means: %w", err)
	}
	defer rows.Close()

	means := make(map[string]float64)
	for rows.Next() {
		var nm string
		var m float64
		if err := rows.Scan(&nm, &m); err != nil {
			return nil, fmt.Errorf("failed to scan mean: %w", err)
		}
		means[nm] = m
	}
	return means, rows.Err()
}

// LoadRun reads a saved run back into a table of float64 columns,
// in the column order it was saved with.
func (s *Store) LoadRun(ctx context.Context, id int64) (*etable.Table, error) {
	var nrows int
	err := s.db.QueryRowContext(ctx, `SELECT nrows FROM runs WHERE id = ?`, id).Scan(&nrows)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrNoRun, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	crows, err := s.db.QueryContext(ctx, `SELECT DISTINCT col, name FROM run_values WHERE run_id = ? ORDER BY col`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	var sch etable.Schema
	for crows.Next() {
		var ci int
		var nm string
		if err := crows.Scan(&ci, &nm); err != nil {
			crows.Close()
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		sch = append(sch, etable.Column{Name: nm, Type: etensor.FLOAT64})
	}
	crows.Close()
	if err := crows.Err(); err != nil {
		return nil, err
	}

	dt := etable.New(sch, nrows)
	vrows, err := s.db.QueryContext(ctx, `SELECT row, name, value FROM run_values WHERE run_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query values: %w", err)
	}
	defer vrows.Close()
	for vrows.Next() {
		var row int
		var nm string
		var v float64
		if err := vrows.Scan(&row, &nm, &v); err != nil {
			return nil, fmt.Errorf("failed to scan value: %w", err)
		}
		dt.SetCellFloat(nm, row, v)
	}
	return dt, vrows.Err()
}
