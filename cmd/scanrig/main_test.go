package main

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/scanrig/internal/cloud"
	"github.com/banshee-data/scanrig/internal/db"
	"github.com/banshee-data/scanrig/internal/workbook"
)

type rigFixture struct {
	dir    string
	config string
	dbPath string
}

func newRigFixture(t *testing.T) rigFixture {
	t.Helper()
	dir := t.TempDir()
	f := rigFixture{
		dir:    dir,
		config: filepath.Join(dir, "rig.json"),
		dbPath: filepath.Join(dir, "scans.db"),
	}
	body := `{"positions": 3, "steps": 8, "axis_step_m": -0.2, "read_timeout": "5s", "export_dir": "` + filepath.Join(dir, "out") + `"}`
	require.NoError(t, os.WriteFile(f.config, []byte(body), 0644))
	return f
}

func (f rigFixture) run(t *testing.T, args ...string) error {
	t.Helper()
	cmd := append([]string{args[0], "-config", f.config, "-db", f.dbPath}, args[1:]...)
	return run(cmd)
}

func (f rigFixture) open(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.NewDB(f.dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func TestRun_UnknownCommand(t *testing.T) {
	assert.Error(t, run([]string{"teleport"}))
}

func TestRun_Version(t *testing.T) {
	assert.NoError(t, run([]string{"version"}))
}

func TestRun_HelpFlag(t *testing.T) {
	err := run([]string{"convert", "-h"})
	assert.ErrorIs(t, err, flag.ErrHelp)
}

func TestAcquireDev(t *testing.T) {
	f := newRigFixture(t)
	book := filepath.Join(f.dir, "dataset.xlsx")
	require.NoError(t, f.run(t, "acquire", "-dev", "-workbook", book))

	database := f.open(t)
	scan, err := database.LatestScan(db.ScanComplete)
	require.NoError(t, err)
	assert.Equal(t, 3, scan.Positions)
	assert.Equal(t, 8, scan.Steps)

	points, err := database.LoadPoints(scan.ID)
	require.NoError(t, err)
	assert.Len(t, points, 24)
	edges, err := database.LoadEdges(scan.ID)
	require.NoError(t, err)
	assert.Len(t, edges, cloud.EdgeCount(3, 8, cloud.RingClosed))

	grid, err := workbook.Read(book, 8)
	require.NoError(t, err)
	stored, err := database.LoadRawGrid(scan.ID)
	require.NoError(t, err)
	assert.Equal(t, stored, grid)
}

func TestAcquireFraming(t *testing.T) {
	f := newRigFixture(t)
	require.NoError(t, f.run(t, "acquire", "-dev", "-framing", "9600 7E2"))
	assert.Error(t, f.run(t, "acquire", "-dev", "-framing", "9600 7X2"))
}

func TestConvertRenderInspect(t *testing.T) {
	f := newRigFixture(t)
	require.NoError(t, f.run(t, "acquire", "-dev"))

	out := filepath.Join(f.dir, "out")
	require.NoError(t, f.run(t, "convert", "-ring", "reference", "-xyz", "points.xyz", "-asc", "points.asc", "-lines", "lines.txt"))

	xyz, err := os.ReadFile(filepath.Join(out, "points.xyz"))
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(xyz)), "\n"), 24)

	lines, err := os.ReadFile(filepath.Join(out, "lines.txt"))
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(lines)), "\n"), cloud.EdgeCount(3, 8, cloud.RingReference))

	asc, err := os.ReadFile(filepath.Join(out, "points.asc"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(asc), "# Exported points\n"))

	database := f.open(t)
	scan, err := database.LatestScan(db.ScanComplete)
	require.NoError(t, err)
	assert.Equal(t, "reference", scan.RingMode)

	require.NoError(t, f.run(t, "render", "-html", "scan.html", "-png", "scan.png", "-projection", "xz"))
	html, err := os.ReadFile(filepath.Join(out, "scan.html"))
	require.NoError(t, err)
	assert.Contains(t, string(html), "scatter3D")
	png, err := os.ReadFile(filepath.Join(out, "scan.png"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	var buf bytes.Buffer
	require.NoError(t, inspectScan(&buf, database, scan))
	report := buf.String()
	assert.Contains(t, report, "3 positions x 8 steps")
	assert.Contains(t, report, "components  1")
	assert.Contains(t, report, "zeros")

	buf.Reset()
	scans, err := database.ListScans()
	require.NoError(t, err)
	require.NoError(t, listScans(&buf, scans))
	assert.Contains(t, buf.String(), scan.ID)
}

func TestConvertWorkbookImport(t *testing.T) {
	f := newRigFixture(t)
	book := filepath.Join(f.dir, "bench.xlsx")
	grid := &cloud.RawGrid{Steps: 8, Positions: []cloud.Position{
		{Axis: 0, Readings: []string{"100", "100", "100", "100", "100", "100", "100", "100"}},
		{Axis: -0.2, Readings: []string{"200", "200", "200", "200", "200", "200", "200", "200"}},
	}}
	require.NoError(t, workbook.WriteGrid(book, grid))

	require.NoError(t, f.run(t, "convert", "-workbook", book, "-offset", "0"))

	database := f.open(t)
	scan, err := database.LatestScan(db.ScanComplete)
	require.NoError(t, err)
	assert.Equal(t, 2, scan.Positions)
	assert.Equal(t, 0.0, scan.ZeroAngleOffsetDeg)

	points, err := database.LoadPoints(scan.ID)
	require.NoError(t, err)
	require.Len(t, points, 16)
	// offset 0: step 0 points along +z.
	assert.InDelta(t, 0.1, points[0].Z, 1e-9)
	assert.InDelta(t, 0, points[0].Y, 1e-9)
}

func TestConvertRejectsMalformedWorkbook(t *testing.T) {
	f := newRigFixture(t)
	book := filepath.Join(f.dir, "short.xlsx")
	require.NoError(t, workbook.WriteGrid(book, &cloud.RawGrid{Steps: 8, Positions: []cloud.Position{
		{Axis: 0, Readings: []string{"1", "2", "3"}},
	}}))

	err := f.run(t, "convert", "-workbook", book)
	var mge *cloud.MalformedGridError
	assert.ErrorAs(t, err, &mge)

	scans, err := f.open(t).ListScans()
	require.NoError(t, err)
	assert.Empty(t, scans)
}

func TestRenderRequiresOutput(t *testing.T) {
	f := newRigFixture(t)
	assert.Error(t, f.run(t, "render"))
}

func TestConvertWithoutScans(t *testing.T) {
	f := newRigFixture(t)
	err := f.run(t, "convert")
	assert.ErrorIs(t, err, db.ErrScanNotFound)
}

func TestMigrate(t *testing.T) {
	f := newRigFixture(t)
	require.NoError(t, f.run(t, "migrate", "up"))
	require.NoError(t, f.run(t, "migrate", "version"))
	require.NoError(t, f.run(t, "migrate", "down"))
	require.NoError(t, f.run(t, "migrate", "force", "2"))
	assert.Error(t, f.run(t, "migrate", "sideways"))
	assert.Error(t, f.run(t, "migrate", "force", "two"))
	assert.Error(t, f.run(t, "migrate"))
}
