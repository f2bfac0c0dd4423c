package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/nexpharm/pharmacy-intel/internal/intel/repository"
	"github.com/nexpharm/pharmacy-intel/pkg/config"
	"github.com/nexpharm/pharmacy-intel/pkg/database"
	"github.com/nexpharm/pharmacy-intel/pkg/logger"
	"github.com/spf13/pflag"
)

const serviceName = "feed-import"

func main() {
	salesPath := pflag.String("sales", "data/pharmacy_sales.json", "sales export (JSON array)")
	purchasesPath := pflag.String("purchases", "data/pharmacy_purchases.json", "purchases export (JSON array)")
	replace := pflag.Bool("replace", false, "delete existing sales and purchases before importing")
	timeout := pflag.Duration("timeout", 5*time.Minute, "import timeout")
	pflag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load("intel-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Database.Validate(cfg.Server.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "database configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(serviceName, cfg.Server.Environment)

	sales, err := decodeFile(*salesPath, repository.DecodeSales)
	if err != nil {
		log.Fatal().Err(err).Str("path", *salesPath).Msg("failed to read sales export")
	}
	purchases, err := decodeFile(*purchasesPath, repository.DecodePurchases)
	if err != nil {
		log.Fatal().Err(err).Str("path", *purchasesPath).Msg("failed to read purchases export")
	}

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to feed database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	stats, err := repository.NewImporter(db, log).Import(ctx, sales, purchases, *replace)
	if err != nil {
		log.Fatal().Err(err).Msg("feed import failed")
	}

	fmt.Printf("imported %d sales (%d skipped) and %d purchases\n", stats.Sales, stats.SkippedSales, stats.Purchases)
}

func decodeFile[T any](path string, decode func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decode(f)
}
