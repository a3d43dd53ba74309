package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"hotelbooking/internal/config"
	"hotelbooking/internal/database"
	"hotelbooking/internal/export"
	"hotelbooking/internal/logging"
	"hotelbooking/internal/models"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to config file")
	limit := flag.Int("limit", models.MaxAuditLimit, "number of most recent entries to export")
	outDir := flag.String("out", "", "output directory (defaults to exports.path)")
	flag.Parse()

	if *configPath == "" {
		*configPath = "configs/config.yaml"
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App, "auditexport")
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}
	logger := logging.Component(baseLogger, "auditexport-main")

	db, err := database.Open(cfg.Database.Path, database.Options{BusyTimeoutMS: cfg.Database.BusyTimeoutMS}, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	dir := *outDir
	if dir == "" {
		dir = cfg.Exports.Path
	}
	if *limit <= 0 || *limit > models.MaxAuditLimit {
		*limit = models.MaxAuditLimit
	}

	path, err := export.NewAuditExporter(db, dir, logger).Export(context.Background(), *limit)
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}
