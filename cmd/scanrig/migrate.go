package main

import (
	"errors"
	"flag"
	"fmt"
	"strconv"

	"github.com/banshee-data/scanrig/internal/db"
)

func runMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("usage: scanrig migrate up | down | version | force N")
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}
	path := common.dbPath
	if path == "" {
		path = cfg.GetDBPath()
	}
	// OpenDB leaves the schema alone so down and force act on what is there.
	database, err := db.OpenDB(path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	switch action := fs.Arg(0); action {
	case "up":
		return database.MigrateUp()
	case "down":
		return database.MigrateDown()
	case "version":
		version, dirty, err := database.MigrateVersion()
		if err != nil {
			return err
		}
		if version == 0 {
			fmt.Println("no migrations applied")
			return nil
		}
		fmt.Printf("schema version %d (dirty=%t)\n", version, dirty)
		return nil
	case "force":
		if fs.NArg() < 2 {
			return errors.New("usage: scanrig migrate force N")
		}
		version, err := strconv.Atoi(fs.Arg(1))
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", fs.Arg(1), err)
		}
		return database.MigrateForce(version)
	default:
		return fmt.Errorf("unknown migrate action %q", action)
	}
}
