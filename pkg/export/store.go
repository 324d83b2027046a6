package export

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"maskstats/internal/models"
)

// ErrRunNotFound is returned by LoadRun for unknown run IDs
var ErrRunNotFound = errors.New("run not found")

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	created_at  TEXT NOT NULL,
	cell_file   TEXT NOT NULL,
	nuclei_file TEXT NOT NULL,
	pixel_size  REAL
);
CREATE TABLE IF NOT EXISTS basic_stats (
	run_id            TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	component         TEXT NOT NULL,
	count             INTEGER NOT NULL,
	area_mean         REAL NOT NULL,
	area_std          REAL NOT NULL,
	unit              TEXT NOT NULL,
	eccentricity_mean REAL NOT NULL,
	eccentricity_std  REAL NOT NULL,
	PRIMARY KEY (run_id, component)
);
CREATE TABLE IF NOT EXISTS spatial_stats (
	run_id             TEXT PRIMARY KEY REFERENCES runs(run_id) ON DELETE CASCADE,
	count              INTEGER NOT NULL,
	avg_nnd            REAL NOT NULL,
	std_nnd            REAL NOT NULL,
	density            REAL NOT NULL,
	avg_neighbor_count REAL NOT NULL,
	std_neighbor_count REAL NOT NULL,
	dist_unit          TEXT NOT NULL,
	density_unit       TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS relational_stats (
	run_id        TEXT PRIMARY KEY REFERENCES runs(run_id) ON DELETE CASCADE,
	matched_pairs INTEGER NOT NULL,
	avg_ratio     REAL NOT NULL,
	std_ratio     REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS matched_pairs (
	run_id          TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	dependent_index INTEGER NOT NULL,
	reference_index INTEGER NOT NULL,
	reference_area  INTEGER NOT NULL,
	dependent_area  INTEGER NOT NULL,
	ratio           REAL NOT NULL,
	PRIMARY KEY (run_id, dependent_index)
);
`

// timeLayout is fixed-width so that created_at sorts lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const (
	componentCells  = "cells"
	componentNuclei = "nuclei"
)

// Run is one stored analysis pass
type Run struct {
	ID         string
	CreatedAt  time.Time
	CellFile   string
	NucleiFile string
	PixelSize  *float64
	Stats      models.ComprehensiveStats
	Pairs      []models.MatchedPair
}

// Store keeps analysis runs in a SQLite database
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the database at path
func OpenStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("error creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores a run in one transaction and returns its generated ID
func (s *Store) SaveRun(ctx context.Context, run *Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO runs (run_id, created_at, cell_file, nuclei_file, pixel_size) VALUES (?, ?, ?, ?, ?)",
		run.ID, run.CreatedAt.UTC().Format(timeLayout), run.CellFile, run.NucleiFile, nullFloat(run.PixelSize),
	); err != nil {
		return "", fmt.Errorf("error inserting run: %w", err)
	}

	for component, b := range map[string]*models.BasicStats{
		componentCells:  run.Stats.CellStats,
		componentNuclei: run.Stats.NucleiStats,
	} {
		if b == nil {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO basic_stats (run_id, component, count, area_mean, area_std, unit, eccentricity_mean, eccentricity_std)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, component, b.Count, b.AreaMean, b.AreaStd, b.Unit, b.EccentricityMean, b.EccentricityStd,
		); err != nil {
			return "", fmt.Errorf("error inserting %s stats: %w", component, err)
		}
	}

	if sp := run.Stats.SpatialStats; sp != nil {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO spatial_stats (run_id, count, avg_nnd, std_nnd, density, avg_neighbor_count, std_neighbor_count, dist_unit, density_unit)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, sp.Count, sp.AvgNND, sp.StdNND, sp.Density, sp.AvgNeighborCount, sp.StdNeighborCount, sp.DistUnit, sp.DensityUnit,
		); err != nil {
			return "", fmt.Errorf("error inserting spatial stats: %w", err)
		}
	}

	if rel := run.Stats.RelationalStats; rel != nil {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO relational_stats (run_id, matched_pairs, avg_ratio, std_ratio) VALUES (?, ?, ?, ?)",
			run.ID, rel.MatchedPairs, rel.AvgRatio, rel.StdRatio,
		); err != nil {
			return "", fmt.Errorf("error inserting relational stats: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO matched_pairs (run_id, dependent_index, reference_index, reference_area, dependent_area, ratio)
			 VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return "", fmt.Errorf("error preparing pair insert: %w", err)
		}
		defer stmt.Close()
		for _, p := range run.Pairs {
			if _, err := stmt.ExecContext(ctx, run.ID, p.DependentIndex, p.ReferenceIndex, p.ReferenceArea, p.DependentArea, p.Ratio); err != nil {
				return "", fmt.Errorf("error inserting pair %d: %w", p.DependentIndex, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("error committing run: %w", err)
	}
	return run.ID, nil
}

// LoadRun reads a stored run back
func (s *Store) LoadRun(ctx context.Context, id string) (*Run, error) {
	run := &Run{ID: id}

	var created string
	var pixel sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		"SELECT created_at, cell_file, nuclei_file, pixel_size FROM runs WHERE run_id = ?", id,
	).Scan(&created, &run.CellFile, &run.NucleiFile, &pixel)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error reading run: %w", err)
	}
	if run.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("error parsing run timestamp: %w", err)
	}
	if pixel.Valid {
		v := pixel.Float64
		run.PixelSize = &v
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT component, count, area_mean, area_std, unit, eccentricity_mean, eccentricity_std
		 FROM basic_stats WHERE run_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("error reading basic stats: %w", err)
	}
	for rows.Next() {
		var component string
		b := &models.BasicStats{}
		if err := rows.Scan(&component, &b.Count, &b.AreaMean, &b.AreaStd, &b.Unit, &b.EccentricityMean, &b.EccentricityStd); err != nil {
			rows.Close()
			return nil, fmt.Errorf("error scanning basic stats: %w", err)
		}
		switch component {
		case componentCells:
			run.Stats.CellStats = b
		case componentNuclei:
			run.Stats.NucleiStats = b
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading basic stats: %w", err)
	}

	sp := &models.SpatialStats{}
	err = s.db.QueryRowContext(ctx,
		`SELECT count, avg_nnd, std_nnd, density, avg_neighbor_count, std_neighbor_count, dist_unit, density_unit
		 FROM spatial_stats WHERE run_id = ?`, id,
	).Scan(&sp.Count, &sp.AvgNND, &sp.StdNND, &sp.Density, &sp.AvgNeighborCount, &sp.StdNeighborCount, &sp.DistUnit, &sp.DensityUnit)
	switch {
	case err == nil:
		run.Stats.SpatialStats = sp
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("error reading spatial stats: %w", err)
	}

	rel := &models.RelationalStats{}
	err = s.db.QueryRowContext(ctx,
		"SELECT matched_pairs, avg_ratio, std_ratio FROM relational_stats WHERE run_id = ?", id,
	).Scan(&rel.MatchedPairs, &rel.AvgRatio, &rel.StdRatio)
	switch {
	case err == nil:
		run.Stats.RelationalStats = rel
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("error reading relational stats: %w", err)
	}

	if run.Stats.RelationalStats != nil {
		if run.Pairs, err = s.loadPairs(ctx, id); err != nil {
			return nil, err
		}
	}
	return run, nil
}

func (s *Store) loadPairs(ctx context.Context, id string) ([]models.MatchedPair, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT dependent_index, reference_index, reference_area, dependent_area, ratio
		 FROM matched_pairs WHERE run_id = ? ORDER BY dependent_index`, id)
	if err != nil {
		return nil, fmt.Errorf("error reading pairs: %w", err)
	}
	defer rows.Close()

	pairs := []models.MatchedPair{}
	for rows.Next() {
		var p models.MatchedPair
		if err := rows.Scan(&p.DependentIndex, &p.ReferenceIndex, &p.ReferenceArea, &p.DependentArea, &p.Ratio); err != nil {
			return nil, fmt.Errorf("error scanning pair: %w", err)
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

// ListRuns returns stored run IDs, newest first
func (s *Store) ListRuns(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT run_id FROM runs ORDER BY created_at DESC, run_id")
	if err != nil {
		return nil, fmt.Errorf("error listing runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning run: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteRun removes a run and all its rows
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE run_id = ?", id)
	if err != nil {
		return fmt.Errorf("error deleting run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	return nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
