package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"

	"contrast_engine/config"
	"contrast_engine/internal/migration"
	"contrast_engine/internal/validation"
	"contrast_engine/metrics"
	catalogmigrations "contrast_engine/migrations/catalog"
	"contrast_engine/migrations/infrastructure"
	migrationiface "contrast_engine/pkg/dbconnect/migration"
	mongoconnect "contrast_engine/pkg/dbconnect/mongo"
	"contrast_engine/pkg/dbconnect/postgres"
	"contrast_engine/pkg/logger"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to yaml config (env vars used when empty)")
		runMigrate  = flag.Bool("migrate", false, "run the staging-to-catalog batch migration")
		runValidate = flag.Bool("validate", false, "revalidate catalogued products against live pages")
		storeName   = flag.String("store", "", "limit validation to one store")
	)
	flag.Parse()

	if !*runMigrate && !*runValidate {
		log.Fatal("nothing to do: pass -migrate and/or -validate")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	connector := postgres.NewPgConnector(cfg.Postgres)
	db, err := connector.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer db.Close()

	migrationApply := []migrationiface.MigrationInterface{
		&infrastructure.MigrationsSchema{},
		&catalogmigrations.CreateStoresTable{},
		&catalogmigrations.CreateProductsTable{},
		&catalogmigrations.CreateProductPricesTable{},
	}
	for _, m := range migrationApply {
		if err := m.UpMigration(db); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
	}
	log.Println("Catalog migrations applied successfully!")

	if cfg.MetricsAddr != "" {
		go func() {
			http.Handle("/metrics", metrics.MetricsHandler())
			if err := http.ListenAndServe(cfg.MetricsAddr, nil); err != nil {
				log.Printf("Metrics server stopped: %v", err)
			}
		}()
	}

	if *runMigrate {
		mongoConnector := mongoconnect.NewMongoConnector(cfg.Mongo)
		if _, err := mongoConnector.Connect(ctx); err != nil {
			log.Fatalf("Failed to connect to Mongo: %v", err)
		}
		defer mongoConnector.Disconnect(ctx)

		source := migration.NewMongoSource(mongoConnector.StagingCollection())
		migrator := migration.NewMigrator(db, cfg.Migrator.BatchSize, cfg.Migrator.Workers,
			logger.NewLogger(os.Stdout, ""))

		report, err := migrator.Run(ctx, source)
		if err != nil {
			log.Fatalf("Migration run failed: %v", err)
		}
		_ = source.Close(ctx)
		log.Printf("Migration report: %+v", report)
	}

	if *runValidate {
		registry, err := validation.LoadSelectorRegistry(cfg.Validation.SelectorsPath)
		if err != nil {
			log.Fatalf("Failed to load selectors: %v", err)
		}

		validator := validation.NewValidator(db, registry, cfg.Validation,
			logger.NewLogger(os.Stdout, ""))

		var report validation.Report
		if *storeName != "" {
			report, err = validator.ValidateStore(ctx, *storeName)
		} else {
			report, err = validator.ValidateAll(ctx)
		}
		if err != nil && !errors.Is(err, validation.ErrNoSelectors) {
			log.Fatalf("Validation run failed: %v", err)
		}
		log.Printf("Validation report: %+v", report)
	}
}

func loadConfig(path string) (*config.AppConfig, error) {
	if path == "" {
		return config.DefaultConfig(), nil
	}
	return config.LoadConfig(path)
}
