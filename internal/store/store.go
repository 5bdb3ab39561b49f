// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists convolution scan results in a local SQLite
// database so runs can be listed, inspected, and exported later.
// Instrument configurations are not persisted; a stored scan records
// only what was computed and how.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/tasconv/pkg/types"
)

const dbFile = "tasconv.db"

// Store manages the scan-result SQLite database.
type Store struct {
	db         *sql.DB
	maxResults int
}

// ScanRecord describes one stored scan run.
type ScanRecord struct {
	ID        int64     `json:"id" yaml:"id"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Model     string    `json:"model" yaml:"model"`
	Method    string    `json:"method" yaml:"method"`
	Accuracy  string    `json:"accuracy" yaml:"accuracy"`
	Scale     float64   `json:"scale" yaml:"scale"`
	Seed      int64     `json:"seed" yaml:"seed"`
	NPoints   int       `json:"npoints" yaml:"npoints"`
}

// NewStore opens or creates the results database at
// cfg.ResultsDir/tasconv.db, creating the schema when absent.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	dir := cfg.ResultsDir
	if dir == "" {
		dir = "results"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating results directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{db: db, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS scans (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at TEXT NOT NULL,
			model TEXT NOT NULL,
			method TEXT NOT NULL,
			accuracy TEXT NOT NULL,
			scale REAL NOT NULL,
			seed INTEGER NOT NULL,
			npoints INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS points (
			scan_id INTEGER NOT NULL REFERENCES scans(id) ON DELETE CASCADE,
			idx INTEGER NOT NULL,
			h REAL NOT NULL,
			k REAL NOT NULL,
			l REAL NOT NULL,
			w REAL NOT NULL,
			intensity REAL NOT NULL,
			PRIMARY KEY (scan_id, idx)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_points_scan_id ON points(scan_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveScan stores one completed convolution run and returns its id.
func (s *Store) SaveScan(ctx context.Context, model string, cfg types.ConvolutionConfig, traj types.Trajectory, intensity []float64) (int64, error) {
	if len(traj) != len(intensity) {
		return 0, fmt.Errorf("trajectory has %d points but %d intensities", len(traj), len(intensity))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO scans (created_at, model, method, accuracy, scale, seed, npoints)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339Nano),
		model, cfg.Method, formatAccuracy(cfg.Accuracy), cfg.Scale, cfg.Seed, len(traj),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting scan: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("scan id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO points (scan_id, idx, h, k, l, w, intensity) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, q := range traj {
		if _, err := stmt.ExecContext(ctx, id, i, q.H, q.K, q.L, q.W, intensity[i]); err != nil {
			return 0, fmt.Errorf("inserting point %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing scan: %w", err)
	}
	return id, nil
}

// ListScans returns the most recent stored scans, newest first, up to
// the store's result limit.
func (s *Store) ListScans(ctx context.Context) ([]ScanRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, model, method, accuracy, scale, seed, npoints
		 FROM scans ORDER BY id DESC LIMIT ?`, s.maxResults)
	if err != nil {
		return nil, fmt.Errorf("listing scans: %w", err)
	}
	defer rows.Close()

	var out []ScanRecord
	for rows.Next() {
		var (
			rec     ScanRecord
			created string
		)
		if err := rows.Scan(&rec.ID, &created, &rec.Model, &rec.Method, &rec.Accuracy, &rec.Scale, &rec.Seed, &rec.NPoints); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
			rec.CreatedAt = t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ScanPoints returns the trajectory and intensities of one stored scan
// in original order.
func (s *Store) ScanPoints(ctx context.Context, id int64) (types.Trajectory, []float64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT h, k, l, w, intensity FROM points WHERE scan_id = ? ORDER BY idx`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("loading points: %w", err)
	}
	defer rows.Close()

	var (
		traj      types.Trajectory
		intensity []float64
	)
	for rows.Next() {
		var (
			q types.QPoint
			v float64
		)
		if err := rows.Scan(&q.H, &q.K, &q.L, &q.W, &v); err != nil {
			return nil, nil, fmt.Errorf("scanning point: %w", err)
		}
		traj = append(traj, q)
		intensity = append(intensity, v)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	if len(traj) == 0 {
		return nil, nil, fmt.Errorf("scan %d not found", id)
	}
	return traj, intensity, nil
}

// scanExport is the YAML document written by ExportYAML.
type scanExport struct {
	Scan   ScanRecord        `yaml:"scan"`
	Points []scanExportPoint `yaml:"points"`
}

type scanExportPoint struct {
	H         float64 `yaml:"h"`
	K         float64 `yaml:"k"`
	L         float64 `yaml:"l"`
	W         float64 `yaml:"w"`
	Intensity float64 `yaml:"intensity"`
}

// ExportYAML writes one stored scan with all its points as YAML to w.
func (s *Store) ExportYAML(ctx context.Context, id int64, w io.Writer) error {
	var (
		rec     ScanRecord
		created string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, model, method, accuracy, scale, seed, npoints FROM scans WHERE id = ?`, id,
	).Scan(&rec.ID, &created, &rec.Model, &rec.Method, &rec.Accuracy, &rec.Scale, &rec.Seed, &rec.NPoints)
	if err == sql.ErrNoRows {
		return fmt.Errorf("scan %d not found", id)
	}
	if err != nil {
		return fmt.Errorf("loading scan %d: %w", id, err)
	}
	if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
		rec.CreatedAt = t
	}

	traj, intensity, err := s.ScanPoints(ctx, id)
	if err != nil {
		return err
	}

	doc := scanExport{Scan: rec, Points: make([]scanExportPoint, len(traj))}
	for i, q := range traj {
		doc.Points[i] = scanExportPoint{H: q.H, K: q.K, L: q.L, W: q.W, Intensity: intensity[i]}
	}

	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(doc)
}

func formatAccuracy(accuracy []int) string {
	parts := make([]string, len(accuracy))
	for i, v := range accuracy {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ",")
}
