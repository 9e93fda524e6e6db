package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/scanrig/internal/cloud"
	"github.com/banshee-data/scanrig/internal/db"
)

func runInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	scanID := fs.String("scan", "", "scan id (default: latest complete scan)")
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

	scan, err := resolveScan(database, *scanID)
	if err != nil {
		return err
	}
	return inspectScan(os.Stdout, database, scan)
}

func inspectScan(out io.Writer, database *db.DB, scan *db.Scan) error {
	fmt.Fprintf(out, "scan        %s\n", scan.ID)
	fmt.Fprintf(out, "status      %s\n", scan.Status)
	fmt.Fprintf(out, "created     %s\n", scan.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(out, "dimensions  %d positions x %d steps\n", scan.Positions, scan.Steps)
	fmt.Fprintf(out, "offset      %.3f°\n", scan.ZeroAngleOffsetDeg)
	fmt.Fprintf(out, "ring mode   %s\n", scan.RingMode)

	points, err := database.LoadPoints(scan.ID)
	if err != nil {
		return err
	}
	edges, err := database.LoadEdges(scan.ID)
	if err != nil {
		return err
	}
	if len(points) > 0 {
		lo, hi := cloud.Bounds(points)
		components, err := cloud.Components(len(points), edges)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "points      %d\n", len(points))
		mode, err := cloud.ParseRingMode(scan.RingMode)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "edges       %d (expected %d)\n", len(edges), cloud.EdgeCount(scan.Positions, scan.Steps, mode))
		fmt.Fprintf(out, "components  %d\n", components)
		fmt.Fprintf(out, "bounds      x [%.3f, %.3f] y [%.3f, %.3f] z [%.3f, %.3f] m\n", lo.X, hi.X, lo.Y, hi.Y, lo.Z, hi.Z)
	} else {
		fmt.Fprintf(out, "points      none (not converted)\n")
	}

	grid, err := database.LoadRawGrid(scan.ID)
	if err != nil {
		fmt.Fprintf(out, "readings    incomplete: %v\n", err)
		return nil
	}
	stats, err := cloud.RadialStats(grid)
	if err != nil {
		fmt.Fprintf(out, "readings    unparseable: %v\n", err)
		return nil
	}

	fmt.Fprintln(out)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "pos\tx (m)\tmean (mm)\tstddev (mm)\tmin (mm)\tmax (mm)\tzeros\t")
	for _, st := range stats {
		fmt.Fprintf(tw, "%d\t%.3f\t%.1f\t%.1f\t%.0f\t%.0f\t%d\t\n",
			st.Position, st.Axis, st.MeanMM, st.StdDevMM, st.MinMM, st.MaxMM, st.Zeros)
	}
	return tw.Flush()
}

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
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

	scans, err := database.ListScans()
	if err != nil {
		return err
	}
	return listScans(os.Stdout, scans)
}

func listScans(out io.Writer, scans []db.Scan) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCAN\tSTATUS\tSIZE\tRING\tCREATED")
	for _, s := range scans {
		fmt.Fprintf(tw, "%s\t%s\t%dx%d\t%s\t%s\n",
			s.ID, s.Status, s.Positions, s.Steps, s.RingMode, s.CreatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}
