package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/scanrig/internal/cloud"
)

// Scan status values.
const (
	ScanAcquiring = "acquiring"
	ScanComplete  = "complete"
	ScanFailed    = "failed"
)

// ErrScanNotFound is returned when a scan id does not exist.
var ErrScanNotFound = errors.New("scan not found")

// Scan is one acquisition run of the rig.
type Scan struct {
	ID                 string     `json:"scan_id"`
	Positions          int        `json:"positions"`
	Steps              int        `json:"steps"`
	ZeroAngleOffsetDeg float64    `json:"zero_angle_offset_deg"`
	RingMode           string     `json:"ring_mode"`
	Status             string     `json:"status"`
	Error              string     `json:"error,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

// CreateScan records a new scan in the acquiring state and returns its id.
func (db *DB) CreateScan(positions, steps int, zeroAngleOffsetDeg float64, mode cloud.RingMode) (string, error) {
	if positions < 1 || steps < 1 {
		return "", &cloud.InvalidDimensionsError{Positions: positions, Steps: steps}
	}
	id := uuid.NewString()
	_, err := db.Exec(
		`INSERT INTO scans (scan_id, positions, steps, zero_angle_offset_deg, ring_mode, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, positions, steps, zeroAngleOffsetDeg, mode.String(), ScanAcquiring, db.clock.Now().UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create scan: %w", err)
	}
	return id, nil
}

// CompleteScan marks a scan as fully acquired.
func (db *DB) CompleteScan(id string) error {
	return db.finishScan(id, ScanComplete, "")
}

// FailScan marks a scan as failed, keeping whatever readings were recorded.
func (db *DB) FailScan(id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return db.finishScan(id, ScanFailed, msg)
}

func (db *DB) finishScan(id, status, msg string) error {
	res, err := db.Exec(
		`UPDATE scans SET status = ?, error = NULLIF(?, ''), completed_at = ? WHERE scan_id = ?`,
		status, msg, db.clock.Now().UnixNano(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update scan %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrScanNotFound, id)
	}
	return nil
}

const scanColumns = `scan_id, positions, steps, zero_angle_offset_deg, ring_mode, status, COALESCE(error, ''), created_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScan(row rowScanner) (*Scan, error) {
	var s Scan
	var created int64
	var completed sql.NullInt64
	if err := row.Scan(&s.ID, &s.Positions, &s.Steps, &s.ZeroAngleOffsetDeg, &s.RingMode, &s.Status, &s.Error, &created, &completed); err != nil {
		return nil, err
	}
	s.CreatedAt = time.Unix(0, created)
	if completed.Valid {
		t := time.Unix(0, completed.Int64)
		s.CompletedAt = &t
	}
	return &s, nil
}

// GetScan returns the scan with the given id.
func (db *DB) GetScan(id string) (*Scan, error) {
	s, err := scanScan(db.QueryRow(`SELECT `+scanColumns+` FROM scans WHERE scan_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrScanNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan %s: %w", id, err)
	}
	return s, nil
}

// LatestScan returns the most recently created scan with the given status,
// or of any status when status is empty.
func (db *DB) LatestScan(status string) (*Scan, error) {
	s, err := scanScan(db.QueryRow(
		`SELECT `+scanColumns+` FROM scans WHERE (? = '' OR status = ?) ORDER BY created_at DESC LIMIT 1`,
		status, status,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrScanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest scan: %w", err)
	}
	return s, nil
}

// ListScans returns all scans, newest first.
func (db *DB) ListScans() ([]Scan, error) {
	rows, err := db.Query(`SELECT ` + scanColumns + ` FROM scans ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query scans: %w", err)
	}
	defer rows.Close()

	var scans []Scan
	for rows.Next() {
		s, err := scanScan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		scans = append(scans, *s)
	}
	return scans, rows.Err()
}

// ScanRecorder persists readings of one scan as they arrive. It satisfies
// acquire.Sink.
type ScanRecorder struct {
	db     *DB
	scanID string
}

// Recorder returns a ScanRecorder for scan id.
func (db *DB) Recorder(id string) *ScanRecorder {
	return &ScanRecorder{db: db, scanID: id}
}

func (r *ScanRecorder) BeginPosition(p int, axis float64) error {
	_, err := r.db.Exec(
		`INSERT OR REPLACE INTO scan_positions (scan_id, position, axis_m) VALUES (?, ?, ?)`,
		r.scanID, p, axis,
	)
	return err
}

func (r *ScanRecorder) RecordReading(p, s int, raw string) error {
	_, err := r.db.Exec(
		`INSERT OR REPLACE INTO scan_readings (scan_id, position, step, raw) VALUES (?, ?, ?, ?)`,
		r.scanID, p, s, raw,
	)
	return err
}

// LoadRawGrid rebuilds the RawGrid of a scan from its stored readings. A scan
// missing positions yields a *cloud.MalformedGridError; ragged positions are
// left for the converter to reject.
func (db *DB) LoadRawGrid(id string) (*cloud.RawGrid, error) {
	scan, err := db.GetScan(id)
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(`SELECT position, axis_m FROM scan_positions WHERE scan_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	grid := &cloud.RawGrid{Steps: scan.Steps}
	for rows.Next() {
		var p int
		var axis float64
		if err := rows.Scan(&p, &axis); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		if p != len(grid.Positions) {
			rows.Close()
			return nil, &cloud.MalformedGridError{Position: len(grid.Positions), Step: -1, Reason: "position missing from scan"}
		}
		grid.Positions = append(grid.Positions, cloud.Position{Axis: axis, Readings: make([]string, 0, scan.Steps)})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(grid.Positions) != scan.Positions {
		return nil, &cloud.MalformedGridError{
			Position: len(grid.Positions),
			Step:     -1,
			Reason:   fmt.Sprintf("scan has %d of %d positions", len(grid.Positions), scan.Positions),
		}
	}

	rows, err = db.Query(`SELECT position, step, raw FROM scan_readings WHERE scan_id = ? ORDER BY position, step`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p, s int
		var raw string
		if err := rows.Scan(&p, &s, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		if p < 0 || p >= len(grid.Positions) {
			return nil, &cloud.MalformedGridError{Position: p, Step: s, Reason: "reading for unknown position"}
		}
		if s != len(grid.Positions[p].Readings) {
			return nil, &cloud.MalformedGridError{Position: p, Step: len(grid.Positions[p].Readings), Reason: "reading missing from scan"}
		}
		grid.Positions[p].Readings = append(grid.Positions[p].Readings, raw)
	}
	return grid, rows.Err()
}
