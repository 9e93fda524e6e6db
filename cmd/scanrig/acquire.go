package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/scanrig/internal/acquire"
	"github.com/banshee-data/scanrig/internal/cloud"
	"github.com/banshee-data/scanrig/internal/serialmux"
	"github.com/banshee-data/scanrig/internal/workbook"
)

// Dimensions of the synthetic corridor streamed in dev mode.
const (
	devCorridorWidthMM  = 2000
	devCorridorHeightMM = 1200
)

func runAcquire(args []string) error {
	fs := flag.NewFlagSet("acquire", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	devMode := fs.Bool("dev", false, "stream a synthetic corridor scan instead of opening the serial port")
	interval := fs.Duration("interval", 0, "delay between synthetic readings in dev mode")
	port := fs.String("port", "", "serial port (overrides config)")
	framing := fs.String("framing", "", `serial framing such as "115200 8N1" (overrides config)`)
	workbookPath := fs.String("workbook", "", "also write readings to this .xlsx workbook")
	listen := fs.String("listen", "", "serve /debug/ routes on this address while acquiring")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}
	layout := cfg.Layout()
	offset := cfg.GetZeroAngleOffsetDeg()
	mode := cfg.GetRingMode()

	portOpts := cfg.PortOptions()
	if *framing != "" {
		if portOpts, err = serialmux.ParsePortOptions(*framing); err != nil {
			return err
		}
	}

	var mux serialmux.SerialMuxInterface
	if *devMode {
		shape := acquire.Corridor(devCorridorWidthMM, devCorridorHeightMM, layout.Steps, offset)
		mux = serialmux.NewMockSerialMux(acquire.SyntheticReadings(layout, shape), cfg.GetSentinel(), *interval)
	} else {
		path := *port
		if path == "" {
			path = cfg.GetPortPath()
		}
		mux, err = serialmux.NewRealSerialMux(path, portOpts, cfg.GetSentinel())
		if err != nil {
			return fmt.Errorf("failed to open scanner port: %w", err)
		}
	}
	defer mux.Close()

	database, err := common.openDB(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	id, err := database.CreateScan(layout.Positions, layout.Steps, offset, mode)
	if err != nil {
		return err
	}
	log.Printf("scan %s: acquiring %d positions x %d steps", id, layout.Positions, layout.Steps)

	sinks := acquire.MultiSink{database.Recorder(id)}
	var book *workbook.Writer
	if *workbookPath != "" {
		book, err = workbook.NewWriter(layout.Steps)
		if err != nil {
			return err
		}
		defer book.Close()
		sinks = append(sinks, book)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *listen != "" {
		httpMux := http.NewServeMux()
		mux.AttachAdminRoutes(httpMux)
		database.AttachAdminRoutes(httpMux)
		shutdown := serveDebug(*listen, httpMux)
		defer shutdown()
	}

	collector := acquire.NewCollector(mux, layout, sinks)
	collector.ReadTimeout = cfg.GetReadTimeout()
	collector.Progress = func(p, s int) {
		if s == layout.Steps-1 {
			log.Printf("scan %s: position %d/%d complete", id, p+1, layout.Positions)
		}
	}

	grid, collectErr := collector.Collect(ctx)
	if book != nil {
		if err := book.Save(*workbookPath); err != nil {
			log.Printf("scan %s: %v", id, err)
		}
	}
	if collectErr != nil {
		if err := database.FailScan(id, collectErr); err != nil {
			log.Printf("scan %s: failed to mark scan failed: %v", id, err)
		}
		return fmt.Errorf("scan %s: %w", id, collectErr)
	}
	if err := database.CompleteScan(id); err != nil {
		return err
	}

	points, edges, err := convertGrid(grid, offset, mode)
	if err != nil {
		return fmt.Errorf("scan %s: %w", id, err)
	}
	if err := database.SaveCloud(id, points, edges, mode); err != nil {
		return err
	}
	log.Printf("scan %s: stored %d points and %d edges", id, len(points), len(edges))
	fmt.Println(id)
	return nil
}

// convertGrid runs the converter and topology builder over grid.
func convertGrid(grid *cloud.RawGrid, offset float64, mode cloud.RingMode) ([]cloud.Point, []cloud.Edge, error) {
	points, err := cloud.NewConverter(offset).Convert(grid)
	if err != nil {
		return nil, nil, err
	}
	positions, steps := grid.Dimensions()
	edges, err := cloud.BuildEdges(positions, steps, mode)
	if err != nil {
		return nil, nil, err
	}
	return points, edges, nil
}

// serveDebug starts an HTTP server for debug routes and returns a function
// that shuts it down.
func serveDebug(addr string, handler http.Handler) func() {
	server := &http.Server{Addr: addr, Handler: handler}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("debug server: %v", err)
		}
	}()
	log.Printf("debug routes on http://%s/debug/", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("debug server shutdown error: %v", err)
			server.Close()
		}
	}
}
