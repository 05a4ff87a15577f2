package main

import (
	"context"
	"flag"
	"os"
	"time"

	bqdataset "github.com/insightx/insightx/internal/dataset/bigquery"
	"github.com/insightx/insightx/internal/dataset/load"
	"github.com/insightx/insightx/internal/domain"
	"github.com/insightx/insightx/internal/logger"
)

// ingest loads a transaction CSV export (local file or GCS object) into the
// BigQuery transactions table the API can then query directly.
func main() {
	log := logger.New()

	csvPath := flag.String("csv", "", "path to a local CSV export")
	bucket := flag.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket holding the export")
	object := flag.String("object", os.Getenv("GCS_OBJECT"), "GCS object name")
	project := flag.String("bq-project", os.Getenv("BQ_PROJECT"), "BigQuery project")
	dataset := flag.String("bq-dataset", "payments", "BigQuery dataset")
	table := flag.String("bq-table", "transactions", "BigQuery table")
	flag.Parse()

	if *csvPath == "" && (*bucket == "" || *object == "") {
		log.Fatal().Msg("Either --csv or --bucket/--object is required")
	}
	if *project == "" {
		log.Fatal().Msg("--bq-project (or BQ_PROJECT) is required")
	}

	// Bounded context so the CLI doesn't hang on a stuck upload.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	loader := load.NewCSVLoader(log)
	var rows []domain.Transaction
	var err error
	if *csvPath != "" {
		rows, err = loader.FromFile(*csvPath)
	} else {
		rows, err = loader.FromGCS(ctx, *bucket, *object)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load dataset")
	}

	repo, err := bqdataset.NewRepository(ctx, *project, *dataset, *table)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer repo.Close()

	if err := repo.EnsureTable(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure table")
	}

	start := time.Now()
	if err := repo.InsertTransactions(ctx, rows); err != nil {
		log.Fatal().Err(err).Msg("Failed to insert transactions")
	}

	log.Info().
		Int("rows", len(rows)).
		Dur("duration", time.Since(start)).
		Msg("Ingest complete")
}
