package export

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"

	"github.com/banshee-data/scanrig/internal/cloud"
)

// ErrNoPoints is returned when an export is asked to write an empty cloud.
var ErrNoPoints = errors.New("no points to export")

// WriteXYZ writes one "x y z" line per point, in cloud order. Coordinates use
// the shortest representation that parses back to the same float64.
func WriteXYZ(w io.Writer, points []cloud.Point) error {
	bw := bufio.NewWriter(w)
	line := make([]byte, 0, 80)
	for _, p := range points {
		line = strconv.AppendFloat(line[:0], p.X, 'g', -1, 64)
		line = append(line, ' ')
		line = strconv.AppendFloat(line, p.Y, 'g', -1, 64)
		line = append(line, ' ')
		line = strconv.AppendFloat(line, p.Z, 'g', -1, 64)
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteLineSet writes one "a b" index pair per edge.
func WriteLineSet(w io.Writer, edges []cloud.Edge) error {
	bw := bufio.NewWriter(w)
	for _, e := range edges {
		if _, err := fmt.Fprintf(bw, "%d %d\n", e.A, e.B); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteASC writes a CloudCompare .asc body. intensity may be nil, otherwise it
// must hold one value per point.
func WriteASC(w io.Writer, points []cloud.Point, intensity []int) error {
	if len(points) == 0 {
		return ErrNoPoints
	}
	if intensity != nil && len(intensity) != len(points) {
		return fmt.Errorf("intensity has %d values for %d points", len(intensity), len(points))
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# Exported points\n")
	fmt.Fprintf(bw, "# Format: X Y Z Intensity\n")
	for i, p := range points {
		v := 0
		if intensity != nil {
			v = intensity[i]
		}
		if _, err := fmt.Fprintf(bw, "%.6f %.6f %.6f %d\n", p.X, p.Y, p.Z, v); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ExportASC writes points to name inside dir and returns the written path.
func ExportASC(dir, name string, points []cloud.Point, intensity []int) (string, error) {
	if len(points) == 0 {
		return "", ErrNoPoints
	}
	f, path, err := Create(dir, name)
	if err != nil {
		return "", err
	}
	if err := WriteASC(f, points, intensity); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	log.Printf("Exported %d points to %s", len(points), path)
	return path, nil
}

// ExportXYZ writes points to name inside dir and returns the written path.
func ExportXYZ(dir, name string, points []cloud.Point) (string, error) {
	if len(points) == 0 {
		return "", ErrNoPoints
	}
	return exportFile(dir, name, func(w io.Writer) error { return WriteXYZ(w, points) })
}

// ExportLineSet writes edges to name inside dir and returns the written path.
func ExportLineSet(dir, name string, edges []cloud.Edge) (string, error) {
	return exportFile(dir, name, func(w io.Writer) error { return WriteLineSet(w, edges) })
}

func exportFile(dir, name string, write func(io.Writer) error) (string, error) {
	f, path, err := Create(dir, name)
	if err != nil {
		return "", err
	}
	if err := write(f); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	log.Printf("Exported %s", path)
	return path, nil
}

// Intensities returns the parsed distance of each reading in grid order, for
// use as the .asc intensity column.
func Intensities(grid *cloud.RawGrid) ([]int, error) {
	out := make([]int, 0, len(grid.Positions)*grid.Steps)
	for p, pos := range grid.Positions {
		for s, raw := range pos.Readings {
			d, err := cloud.ParseReading(raw)
			if err != nil {
				return nil, &cloud.MalformedGridError{Position: p, Step: s, Reason: "unparseable reading", Err: err}
			}
			out = append(out, int(d))
		}
	}
	return out, nil
}
