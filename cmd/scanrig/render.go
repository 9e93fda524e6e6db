package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"

	"github.com/banshee-data/scanrig/internal/export"
	"github.com/banshee-data/scanrig/internal/render"
)

func runRender(args []string) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	scanID := fs.String("scan", "", "scan id (default: latest complete scan)")
	outDir := fs.String("out", "", "export directory (default: config export_dir)")
	htmlName := fs.String("html", "", "write an interactive 3D chart to this file")
	pngName := fs.String("png", "", "write a static projection to this file")
	projection := fs.String("projection", "yz", "PNG projection: xy, xz or yz")
	wireframe := fs.Bool("wireframe", true, "draw edges in the HTML chart")
	assetsHost := fs.String("assets-host", "", "host serving echarts assets for the HTML chart")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *htmlName == "" && *pngName == "" {
		return errors.New("nothing to render: set -html and/or -png")
	}
	proj, err := render.ParseProjection(*projection)
	if err != nil {
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

	scan, err := resolveScan(database, *scanID)
	if err != nil {
		return err
	}
	points, err := database.LoadPoints(scan.ID)
	if err != nil {
		return err
	}
	if len(points) == 0 {
		return fmt.Errorf("scan %s has no points: run convert first", scan.ID)
	}
	edges, err := database.LoadEdges(scan.ID)
	if err != nil {
		return err
	}

	dir := *outDir
	if dir == "" {
		dir = cfg.GetExportDir()
	}
	title := fmt.Sprintf("Scan %s (%dx%d, %s ring)", scan.ID, scan.Positions, scan.Steps, scan.RingMode)

	if *htmlName != "" {
		o := render.HTMLOptions{Title: title, AssetsHost: *assetsHost, Wireframe: *wireframe}
		err := writeExport(dir, *htmlName, func(w io.Writer) error {
			return render.HTML(w, points, edges, o)
		})
		if err != nil {
			return err
		}
	}
	if *pngName != "" {
		o := render.PNGOptions{Title: title, PointRadius: 1}
		err := writeExport(dir, *pngName, func(w io.Writer) error {
			return render.WritePNG(w, points, edges, proj, o)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func writeExport(dir, name string, write func(io.Writer) error) error {
	f, path, err := export.Create(dir, name)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to render %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Printf("rendered %s", path)
	return nil
}

