// Package store records analysis runs in a SQLite database so that profile
// metrics can be tracked from one run to the next.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"dosekit/internal/models"
)

// ErrRunNotFound is returned when a run ID is not in the database
var ErrRunNotFound = errors.New("store: run not found")

// timeLayout is fixed width so that stored timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store is a results database
type Store struct {
	db *sql.DB
}

// HistoryPoint is one run's metrics for a profile label
type HistoryPoint struct {
	RunID     string
	CreatedAt time.Time
	Profile   models.ProfileResult
}

// Open opens the database at path, creating it if needed. Call Migrate
// before first use.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps the foreign_keys pragma in effect.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenMigrated opens the database at path and brings its schema up to date
func OpenMigrated(path string) (*Store, error) {
	s, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun records run with its profile metrics and DVH summaries. An empty
// ID is replaced by a new UUID and a zero CreatedAt by the current time.
func (s *Store) SaveRun(ctx context.Context, run *models.AnalysisRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO analysis_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UTC().Format(timeLayout), run.DoseFile, run.StructureFile,
		run.PatientID, run.PatientName, run.Frame, run.MaxDose,
		run.Extent.X.Min, run.Extent.X.Max, run.Extent.Y.Min, run.Extent.Y.Max, run.Extent.Z.Min, run.Extent.Z.Max)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	for i, p := range run.Profiles {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO profile_metrics (run_id, position, label, plane, depth, left_edge, right_edge, flatness, symmetry, wedged, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, p.Label(), string(p.Plane), p.Depth, p.Left, p.Right, p.Flatness, p.Symmetry, p.Wedged, p.Error)
		if err != nil {
			return fmt.Errorf("failed to insert profile %s: %w", p.Label(), err)
		}
	}

	for i, d := range run.DVHs {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO dvh_results (run_id, position, structure, voxels, max_dose, mean_dose, error)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, d.Structure, d.Voxels, d.MaxDose, d.MeanDose, d.Error)
		if err != nil {
			return fmt.Errorf("failed to insert DVH %s: %w", d.Structure, err)
		}
	}

	return tx.Commit()
}

const runColumns = `run_id, created_at, dose_file, structure_file, patient_id, patient_name, frame, max_dose,
	x_min, x_max, y_min, y_max, z_min, z_max`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (models.AnalysisRun, error) {
	var run models.AnalysisRun
	var created string
	ext := &run.Extent
	if err := row.Scan(&run.ID, &created, &run.DoseFile, &run.StructureFile, &run.PatientID, &run.PatientName,
		&run.Frame, &run.MaxDose, &ext.X.Min, &ext.X.Max, &ext.Y.Min, &ext.Y.Max, &ext.Z.Min, &ext.Z.Max); err != nil {
		return run, err
	}
	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return run, fmt.Errorf("run %s: bad created_at %q: %w", run.ID, created, err)
	}
	run.CreatedAt = t
	return run, nil
}

// ListRuns returns the most recent runs, newest first, without their
// profiles or DVHs. A limit of 0 or less returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]models.AnalysisRun, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM analysis_runs ORDER BY created_at DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.AnalysisRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun loads a run with its profile metrics and DVH summaries. Curves
// are not stored and come back empty.
func (s *Store) GetRun(ctx context.Context, id string) (*models.AnalysisRun, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM analysis_runs WHERE run_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT plane, depth, left_edge, right_edge, flatness, symmetry, wedged, error
		FROM profile_metrics WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		run.Profiles = append(run.Profiles, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT structure, voxels, max_dose, mean_dose, error
		FROM dvh_results WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var d models.DVHResult
		if err := rows.Scan(&d.Structure, &d.Voxels, &d.MaxDose, &d.MeanDose, &d.Error); err != nil {
			return nil, err
		}
		run.DVHs = append(run.DVHs, d)
	}
	return &run, rows.Err()
}

func scanProfile(row scanner, extra ...interface{}) (models.ProfileResult, error) {
	var p models.ProfileResult
	var plane string
	dest := append(extra, &plane, &p.Depth, &p.Left, &p.Right, &p.Flatness, &p.Symmetry, &p.Wedged, &p.Error)
	if err := row.Scan(dest...); err != nil {
		return p, err
	}
	p.Plane = models.Plane(plane)
	return p, nil
}

// ProfileHistory returns the metrics recorded for a profile label such as
// "crossplane@100", oldest run first
func (s *Store) ProfileHistory(ctx context.Context, label string) ([]HistoryPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.run_id, r.created_at, p.plane, p.depth, p.left_edge, p.right_edge, p.flatness, p.symmetry, p.wedged, p.error
		FROM profile_metrics p
		JOIN analysis_runs r ON r.run_id = p.run_id
		WHERE p.label = ?
		ORDER BY r.created_at, p.position`, label)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []HistoryPoint
	for rows.Next() {
		var h HistoryPoint
		var created string
		if h.Profile, err = scanProfile(rows, &h.RunID, &created); err != nil {
			return nil, err
		}
		if h.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("run %s: bad created_at %q: %w", h.RunID, created, err)
		}
		history = append(history, h)
	}
	return history, rows.Err()
}
