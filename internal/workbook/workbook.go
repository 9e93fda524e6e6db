// Package workbook stores rig readings in the spreadsheet layout used by the
// rig's original acquisition tooling:
//
//	A1      "Motor Position"
//	B1..    "x(m)=" over every position column
//	B2..    carriage coordinate of the position (metres)
//	A3..    step index
//	B3..    raw reading of (position, step)
//
// One column per position, one row per step.
package workbook

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/banshee-data/scanrig/internal/cloud"
)

const (
	headerRows  = 2
	titleCell   = "A1"
	titleText   = "Motor Position"
	axisLabel   = "x(m)="
	firstColumn = 2
)

// Writer fills a workbook as readings arrive. It satisfies acquire.Sink.
type Writer struct {
	f     *excelize.File
	sheet string
	steps int
}

// NewWriter creates an in-memory workbook for rotations of steps readings.
func NewWriter(steps int) (*Writer, error) {
	if steps < 1 {
		return nil, fmt.Errorf("steps must be >= 1, got %d", steps)
	}
	f := excelize.NewFile()
	w := &Writer{f: f, sheet: f.GetSheetName(0), steps: steps}

	if err := f.SetCellValue(w.sheet, titleCell, titleText); err != nil {
		return nil, err
	}
	for s := range steps {
		cell, err := excelize.CoordinatesToCellName(1, headerRows+1+s)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(w.sheet, cell, s); err != nil {
			return nil, err
		}
	}
	return w, nil
}

func (w *Writer) set(col, row int, v any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return w.f.SetCellValue(w.sheet, cell, v)
}

func (w *Writer) BeginPosition(p int, axis float64) error {
	if err := w.set(firstColumn+p, 1, axisLabel); err != nil {
		return err
	}
	return w.set(firstColumn+p, 2, axis)
}

// RecordReading stores raw as text so readings that fail to parse are kept
// verbatim for inspection.
func (w *Writer) RecordReading(p, s int, raw string) error {
	if s < 0 || s >= w.steps {
		return fmt.Errorf("step %d outside rotation of %d steps", s, w.steps)
	}
	return w.set(firstColumn+p, headerRows+1+s, raw)
}

// Save writes the workbook to path.
func (w *Writer) Save(path string) error {
	if err := w.f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.f.Close()
}

// WriteGrid saves a complete grid to path.
func WriteGrid(path string, grid *cloud.RawGrid) error {
	w, err := NewWriter(grid.Steps)
	if err != nil {
		return err
	}
	defer w.Close()

	for p, pos := range grid.Positions {
		if err := w.BeginPosition(p, pos.Axis); err != nil {
			return err
		}
		for s, raw := range pos.Readings {
			if err := w.RecordReading(p, s, raw); err != nil {
				return err
			}
		}
	}
	return w.Save(path)
}

// Read loads a RawGrid from the first sheet of the workbook at path. When
// steps is zero it is taken from the number of step rows. Short columns are
// returned ragged so the converter reports them.
func Read(path string, steps int) (*cloud.RawGrid, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook rows: %w", err)
	}
	if len(rows) < headerRows {
		return nil, &cloud.MalformedGridError{Position: -1, Step: -1, Reason: "workbook is missing its header rows"}
	}
	if steps <= 0 {
		steps = len(rows) - headerRows
	}

	axisRow := rows[1]
	grid := &cloud.RawGrid{Steps: steps}
	for col := firstColumn - 1; col < len(axisRow); col++ {
		p := col - (firstColumn - 1)
		axis, err := strconv.ParseFloat(strings.TrimSpace(axisRow[col]), 64)
		if err != nil {
			return nil, &cloud.MalformedGridError{Position: p, Step: -1, Reason: fmt.Sprintf("axis value %q", axisRow[col]), Err: err}
		}

		var readings []string
		for s := 0; s < steps && headerRows+s < len(rows); s++ {
			row := rows[headerRows+s]
			if col < len(row) {
				readings = append(readings, row[col])
			} else {
				readings = append(readings, "")
			}
		}
		for len(readings) > 0 && readings[len(readings)-1] == "" {
			readings = readings[:len(readings)-1]
		}
		grid.Positions = append(grid.Positions, cloud.Position{Axis: axis, Readings: readings})
	}
	return grid, nil
}
