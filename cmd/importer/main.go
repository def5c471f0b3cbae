package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claritydx/feesched-api/pkg/logger"

	"github.com/claritydx/feesched-api/internal/config"
	"github.com/claritydx/feesched-api/internal/repository/postgres"
	"github.com/claritydx/feesched-api/internal/service/importer"
)

// The importer worker polls the drop folder and loads any fee schedule CSVs
// it finds, moving each to the processed or error folder.
func main() {
	log := logger.NewLogger(nil)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err, "failed to load configuration")
	}
	if cfg.Importer.DropDir == "" {
		log.Fatal(nil, "importer.drop_dir is required")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	base := postgres.NewBaseRepository(db)
	svc := importer.NewService(
		postgres.NewJurisdictionRepository(base),
		postgres.NewProcedureRepository(base),
		postgres.NewFeeScheduleRepository(base),
		log,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interval := cfg.Importer.Interval
	if interval <= 0 {
		interval = time.Minute
	}

	log.Info("importer worker started, watching " + cfg.Importer.DropDir)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := svc.ProcessPending(ctx, cfg.Importer.DropDir, cfg.Importer.ProcessedDir, cfg.Importer.ErrorDir); err != nil {
			log.Error(err, "drop folder sweep failed")
		}

		select {
		case <-ctx.Done():
			log.Info("importer worker stopped")
			return
		case <-ticker.C:
		}
	}
}
