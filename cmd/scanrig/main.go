package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/banshee-data/scanrig/internal/config"
	"github.com/banshee-data/scanrig/internal/db"
	"github.com/banshee-data/scanrig/internal/version"
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	if err := run(flag.Args()); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("%s: %v", flag.Arg(0), err)
	}
}

func run(args []string) error {
	command, rest := args[0], args[1:]
	switch command {
	case "acquire":
		return runAcquire(rest)
	case "convert":
		return runConvert(rest)
	case "render":
		return runRender(rest)
	case "inspect":
		return runInspect(rest)
	case "list":
		return runList(rest)
	case "migrate":
		return runMigrate(rest)
	case "version":
		fmt.Printf("scanrig version %s\n", version.String())
		return nil
	case "help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func printUsage() {
	fmt.Println(`scanrig - acquire and convert rotating distance scans

Usage: scanrig <command> [options]

Commands:
  acquire    Read a scan from the rig (or a synthetic one with -dev) into the database
  convert    Convert a stored scan or workbook into points and edges
  render     Render a converted scan as an HTML 3D chart or PNG projection
  inspect    Print dimensions, bounds, connectivity and radial statistics of a scan
  list       List stored scans
  migrate    Manage database schema: up | down | version | force N
  version    Show scanrig version
  help       Show this help message

Common Flags:
  -config <file>   Rig configuration JSON (default: built-in reference rig)
  -db <file>       Database path (overrides db_path from the config)

Examples:
  # Acquire from the rig and keep a spreadsheet copy
  scanrig acquire -config rig.json -workbook dataset.xlsx

  # Acquire a synthetic corridor scan and serve debug routes while it runs
  scanrig acquire -dev -listen localhost:8080

  # Re-convert the latest scan using the reference ring layout
  scanrig convert -ring reference -xyz points.xyz -lines lines.txt

  # Render the latest scan
  scanrig render -html scan.html -png scan.png -projection xz`)
}

// commonFlags are accepted by every command that touches the database.
type commonFlags struct {
	configPath string
	dbPath     string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "rig configuration JSON file")
	fs.StringVar(&c.dbPath, "db", "", "sqlite database path (overrides config)")
}

func (c *commonFlags) load() (*config.RigConfig, error) {
	if c.configPath == "" {
		return config.EmptyRigConfig(), nil
	}
	return config.LoadRigConfig(c.configPath)
}

func (c *commonFlags) openDB(cfg *config.RigConfig) (*db.DB, error) {
	path := c.dbPath
	if path == "" {
		path = cfg.GetDBPath()
	}
	return db.NewDB(path)
}

// isSet reports whether name was given on the command line.
func isSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// resolveScan returns the scan with id, or the latest complete scan when id
// is empty.
func resolveScan(database *db.DB, id string) (*db.Scan, error) {
	if id != "" {
		return database.GetScan(id)
	}
	scan, err := database.LatestScan(db.ScanComplete)
	if errors.Is(err, db.ErrScanNotFound) {
		return nil, fmt.Errorf("no complete scans in database: %w", err)
	}
	return scan, err
}
