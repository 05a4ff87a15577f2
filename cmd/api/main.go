package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/insightx/insightx/internal/analysis"
	"github.com/insightx/insightx/internal/api/handlers"
	"github.com/insightx/insightx/internal/api/middleware"
	"github.com/insightx/insightx/internal/conversation"
	"github.com/insightx/insightx/internal/dataset"
	bqdataset "github.com/insightx/insightx/internal/dataset/bigquery"
	"github.com/insightx/insightx/internal/dataset/load"
	"github.com/insightx/insightx/internal/dataset/memory"
	"github.com/insightx/insightx/internal/engine"
	"github.com/insightx/insightx/internal/logger"
	"github.com/insightx/insightx/internal/nlp"
	"github.com/insightx/insightx/internal/response"
)

func main() {
	// Parse command-line flags
	var (
		port       = flag.String("port", "8080", "HTTP server port")
		source     = flag.String("source", envOr("DATASET_SOURCE", "synthetic"), "dataset source: csv, gcs, bigquery or synthetic")
		csvPath    = flag.String("csv", os.Getenv("DATASET_FILE"), "path to the CSV dataset (source=csv)")
		bucket     = flag.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket holding the dataset (source=gcs)")
		object     = flag.String("object", os.Getenv("GCS_OBJECT"), "GCS object name (source=gcs)")
		bqProject  = flag.String("bq-project", os.Getenv("BQ_PROJECT"), "BigQuery project (source=bigquery)")
		bqDataset  = flag.String("bq-dataset", envOr("BQ_DATASET", "payments"), "BigQuery dataset (source=bigquery)")
		bqTable    = flag.String("bq-table", envOr("BQ_TABLE", "transactions"), "BigQuery table (source=bigquery)")
		synthetic  = flag.Int("synthetic-rows", 50000, "row count for the synthetic dataset")
		sessionTTL = flag.Duration("session-ttl", conversation.DefaultTTL, "conversation session TTL")
		useGemini  = flag.Bool("gemini", os.Getenv("USE_GEMINI") == "true", "rephrase explanations with Gemini")
	)
	flag.Parse()

	log := logger.New()
	ctx := context.Background()

	// Pick the dataset backend.
	var accessor dataset.Accessor
	loader := load.NewCSVLoader(log)
	switch *source {
	case "csv":
		rows, err := loader.FromFile(*csvPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *csvPath).Msg("Failed to load dataset")
		}
		accessor = memory.NewStore(rows)
	case "gcs":
		rows, err := loader.FromGCS(ctx, *bucket, *object)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load dataset from GCS")
		}
		accessor = memory.NewStore(rows)
	case "bigquery":
		repo, err := bqdataset.NewRepository(ctx, *bqProject, *bqDataset, *bqTable)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery accessor")
		}
		defer repo.Close()
		accessor = repo
	case "synthetic":
		accessor = memory.NewStore(load.Synthetic(*synthetic, 1))
		log.Info().Int("rows", *synthetic).Msg("Using synthetic dataset")
	default:
		log.Fatal().Str("source", *source).Msg("Unknown dataset source")
	}

	// Optional Gemini-backed explanation rephrasing; template fallback
	// otherwise.
	var model response.TextModel
	if *useGemini {
		gemini, err := response.NewGemini(ctx, os.Getenv("GEMINI_MODEL"))
		if err != nil {
			log.Warn().Err(err).Msg("Gemini unavailable, using template explanations")
		} else {
			model = gemini
		}
	}

	dict := nlp.NewDictionary()
	sessions := conversation.NewStore(*sessionTTL)
	builder := analysis.NewBuilder(accessor)
	generator := response.NewGenerator(log, model)
	eng := engine.NewService(log, dict, sessions, builder, generator)

	queryHandler := handlers.NewQueryHandler(eng, log)
	metaHandler := handlers.NewMetaHandler(dict, log)
	sessionsHandler := handlers.NewSessionsHandler(eng, log)

	// Create router
	mux := http.NewServeMux()

	mux.HandleFunc("/api/query", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			queryHandler.HandleQuery(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/supported-entities", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			metaHandler.HandleSupportedEntities(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/example-queries", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			metaHandler.HandleExampleQueries(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/sessions/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
		switch {
		case r.Method == http.MethodGet && strings.HasSuffix(rest, "/history"):
			sessionsHandler.GetHistory(w, r, strings.TrimSuffix(rest, "/history"))
		case r.Method == http.MethodPost && strings.HasSuffix(rest, "/reset"):
			sessionsHandler.ResetSession(w, r, strings.TrimSuffix(rest, "/reset"))
		case r.Method == http.MethodDelete && rest != "":
			sessionsHandler.DeleteSession(w, r, rest)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/health", metaHandler.HandleHealth)

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Str("source", *source).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
