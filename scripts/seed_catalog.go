package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"hotelbooking/internal/catalog"
	"hotelbooking/internal/database"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		roomsPath = flag.String("rooms", "configs/rooms.yaml", "path to rooms.yaml")
		dbPath    = flag.String("db", "./data/hotel.db", "path to sqlite db")
		dryRun    = flag.Bool("dry-run", false, "validate the catalog without writing")
	)
	flag.Parse()

	c, err := catalog.Load(*roomsPath)
	if err != nil {
		return err
	}
	if *dryRun {
		fmt.Printf("ok: rooms=%d guests=%d\n", len(c.Rooms), len(c.Guests))
		return nil
	}

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.Apply(ctx, db); err != nil {
		return err
	}

	fmt.Printf("done: rooms=%d guests=%d\n", len(c.Rooms), len(c.Guests))
	return nil
}
