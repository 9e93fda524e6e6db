package db

import (
	"fmt"

	"github.com/banshee-data/scanrig/internal/cloud"
)

// SaveCloud replaces the stored points and edges of a scan in one
// transaction. Points keep their slice order as idx, so edges stay valid
// references.
func (db *DB) SaveCloud(id string, points []cloud.Point, edges []cloud.Edge, mode cloud.RingMode) (err error) {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.Exec(`UPDATE scans SET ring_mode = ? WHERE scan_id = ?`, mode.String(), id)
	if err != nil {
		return fmt.Errorf("failed to update scan: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrScanNotFound, id)
	}
	if _, err = tx.Exec(`DELETE FROM scan_points WHERE scan_id = ?`, id); err != nil {
		return err
	}
	if _, err = tx.Exec(`DELETE FROM scan_edges WHERE scan_id = ?`, id); err != nil {
		return err
	}

	pointStmt, err := tx.Prepare(`INSERT INTO scan_points (scan_id, idx, x, y, z) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer pointStmt.Close()
	for i, p := range points {
		if _, err = pointStmt.Exec(id, i, p.X, p.Y, p.Z); err != nil {
			return fmt.Errorf("failed to insert point %d: %w", i, err)
		}
	}

	edgeStmt, err := tx.Prepare(`INSERT INTO scan_edges (scan_id, idx, a, b) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer edgeStmt.Close()
	for i, e := range edges {
		if _, err = edgeStmt.Exec(id, i, e.A, e.B); err != nil {
			return fmt.Errorf("failed to insert edge %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// LoadPoints returns the stored points of a scan in index order.
func (db *DB) LoadPoints(id string) ([]cloud.Point, error) {
	rows, err := db.Query(`SELECT x, y, z FROM scan_points WHERE scan_id = ? ORDER BY idx`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query points: %w", err)
	}
	defer rows.Close()

	var points []cloud.Point
	for rows.Next() {
		var p cloud.Point
		if err := rows.Scan(&p.X, &p.Y, &p.Z); err != nil {
			return nil, fmt.Errorf("failed to scan point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// LoadEdges returns the stored edges of a scan in index order.
func (db *DB) LoadEdges(id string) ([]cloud.Edge, error) {
	rows, err := db.Query(`SELECT a, b FROM scan_edges WHERE scan_id = ? ORDER BY idx`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	var edges []cloud.Edge
	for rows.Next() {
		var e cloud.Edge
		if err := rows.Scan(&e.A, &e.B); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}
