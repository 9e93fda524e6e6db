package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/banshee-data/scanrig/internal/cloud"
	"github.com/banshee-data/scanrig/internal/db"
	"github.com/banshee-data/scanrig/internal/export"
	"github.com/banshee-data/scanrig/internal/workbook"
)

func runConvert(args []string) error {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	scanID := fs.String("scan", "", "scan id (default: latest complete scan)")
	workbookPath := fs.String("workbook", "", "import readings from this .xlsx workbook as a new scan")
	offset := fs.Float64("offset", cloud.DefaultZeroAngleOffsetDeg, "angle of step 0 in degrees (default: scan or config)")
	ring := fs.String("ring", "", "ring mode: closed or reference (default: scan or config)")
	outDir := fs.String("out", "", "export directory (default: config export_dir)")
	xyzName := fs.String("xyz", "", "write points as .xyz to this file in the export directory")
	ascName := fs.String("asc", "", "write points as CloudCompare .asc to this file in the export directory")
	linesName := fs.String("lines", "", "write edge index pairs to this file in the export directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}
	database, err := common.openDB(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	zeroOffset := cfg.GetZeroAngleOffsetDeg()
	mode := cfg.GetRingMode()

	var (
		id   string
		grid *cloud.RawGrid
	)
	if *workbookPath != "" {
		grid, err = workbook.Read(*workbookPath, cfg.GetSteps())
		if err != nil {
			return err
		}
	} else {
		scan, err := resolveScan(database, *scanID)
		if err != nil {
			return err
		}
		id = scan.ID
		zeroOffset = scan.ZeroAngleOffsetDeg
		if m, err := cloud.ParseRingMode(scan.RingMode); err == nil {
			mode = m
		}
		grid, err = database.LoadRawGrid(id)
		if err != nil {
			return err
		}
	}

	if isSet(fs, "offset") {
		zeroOffset = *offset
	}
	if *ring != "" {
		if mode, err = cloud.ParseRingMode(*ring); err != nil {
			return err
		}
	}

	points, edges, err := convertGrid(grid, zeroOffset, mode)
	if err != nil {
		return err
	}

	if id == "" {
		if id, err = importGrid(database, grid, zeroOffset, mode); err != nil {
			return err
		}
		log.Printf("imported %s as scan %s", *workbookPath, id)
	}
	if err := database.SaveCloud(id, points, edges, mode); err != nil {
		return err
	}
	log.Printf("scan %s: converted %d points, %d edges (%s ring, offset %.1f°)", id, len(points), len(edges), mode, zeroOffset)

	dir := *outDir
	if dir == "" {
		dir = cfg.GetExportDir()
	}
	if *xyzName != "" {
		if _, err := export.ExportXYZ(dir, *xyzName, points); err != nil {
			return err
		}
	}
	if *linesName != "" {
		if _, err := export.ExportLineSet(dir, *linesName, edges); err != nil {
			return err
		}
	}
	if *ascName != "" {
		intensity, err := export.Intensities(grid)
		if err != nil {
			return err
		}
		if _, err := export.ExportASC(dir, *ascName, points, intensity); err != nil {
			return err
		}
	}
	fmt.Println(id)
	return nil
}

// importGrid stores a complete grid as a new scan.
func importGrid(database *db.DB, grid *cloud.RawGrid, offset float64, mode cloud.RingMode) (string, error) {
	positions, steps := grid.Dimensions()
	id, err := database.CreateScan(positions, steps, offset, mode)
	if err != nil {
		return "", err
	}
	rec := database.Recorder(id)
	for p, pos := range grid.Positions {
		if err := rec.BeginPosition(p, pos.Axis); err != nil {
			return "", err
		}
		for s, raw := range pos.Readings {
			if err := rec.RecordReading(p, s, raw); err != nil {
				return "", err
			}
		}
	}
	return id, database.CompleteScan(id)
}
