// cmd/orchestrator/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"search-orchestrator/internal/answercache"
	"search-orchestrator/internal/clients/classifier"
	"search-orchestrator/internal/clients/scorer"
	"search-orchestrator/internal/combiner"
	"search-orchestrator/internal/common/aws"
	"search-orchestrator/internal/common/config"
	"search-orchestrator/internal/common/database"
	stderrors "search-orchestrator/internal/common/errors"
	"search-orchestrator/internal/common/logger"
	"search-orchestrator/internal/common/observability"
	"search-orchestrator/internal/executor"
	"search-orchestrator/internal/feedback"
	"search-orchestrator/internal/models"
	"search-orchestrator/internal/orchestrator"
	"search-orchestrator/internal/ranker"
	"search-orchestrator/internal/registry"
	"search-orchestrator/internal/semcache"
	"search-orchestrator/internal/sources/duckduckgo"
	"search-orchestrator/internal/sources/internalkb"
	"search-orchestrator/internal/sources/wikipedia"
	"search-orchestrator/internal/sources/wolfram"
	"search-orchestrator/internal/statsfeed"
	"search-orchestrator/internal/storage/conversations"
	"search-orchestrator/pkg/catalog"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	zapLog.Info("Starting search orchestrator...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	// Rebuild the logger once the configured level/format is known.
	zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.NewZapAdapter(zapLog)

	obs := observability.New("search-orchestrator")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Load Source Catalog ---
	cat, err := catalog.Load(cfg.Sources.CatalogPath)
	if err != nil {
		zapLog.Fatal("source catalog load failed", zap.Error(err))
	}

	creds := registry.Credentials{
		"wolfram": cfg.Sources.WolframAppID != "",
	}
	reg, err := registry.NewFromCatalog(cat, creds)
	if err != nil {
		zapLog.Fatal("source registry build failed", zap.Error(err))
	}
	zapLog.Info("Source registry ready", zap.Int("enabled", len(reg.ListEnabled())))

	// --- Init PostgreSQL with retry ---
	// Persistence is optional: without it answers still flow, feedback does not.
	var pg *database.PostgresClient
	if cfg.Database.Postgres.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			// Test the connection with context
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

		if err != nil {
			zapLog.Error("postgres unavailable, running without persistence", zap.Error(err))
			pg = nil
		} else {
			defer pg.Close()
			zapLog.Info("PostgreSQL connected successfully")
		}
	}

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	if cfg.Database.Elasticsearch.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			// Test the connection
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

		if err != nil {
			zapLog.Error("elasticsearch unavailable, internal-kb source disabled", zap.Error(err))
			esClient = nil
			reg.Disable("internal-kb")
		} else {
			zapLog.Info("Elasticsearch connected successfully")
		}
	}

	// --- Init Redis with retry ---
	var redisClient *database.RedisClient
	if cfg.Database.Redis.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			redisClient, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			// Test the connection with context
			return redisClient.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")

		if err != nil {
			zapLog.Error("redis unavailable, exact-match cache disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
			zapLog.Info("Redis connected successfully")
		}
	}

	// --- Init External Service Clients ---
	var classifierClient orchestrator.Classifier
	if cfg.Services.Classifier.BaseURL != "" {
		classifierClient = classifier.New(cfg.Services.Classifier, log)
	}

	var scorerClient ranker.Scorer
	if cfg.Services.Scorer.BaseURL != "" {
		scorerClient = scorer.New(cfg.Services.Scorer, log)
	}

	var alerter statsfeed.Alerter
	if cfg.Alerts.SNS.Enabled {
		snsClient, err := aws.NewSNSClient(ctx, cfg.Alerts.SNS.Region, cfg.Alerts.SNS.TopicARN)
		if err != nil {
			zapLog.Error("sns client failed, alerts disabled", zap.Error(err))
		} else {
			alerter = snsClient
		}
	}

	// --- Build Search Clients ---
	clients := buildSearchClients(cfg, esClient, log, zapLog)

	// --- Assemble the Pipeline ---
	stats := statsfeed.New(cfg.Stats, reg, alerter, log)

	var store *conversations.Store
	if pg != nil {
		store = conversations.New(pg.DB, log)
	}

	var exactCache *answercache.Cache
	if redisClient != nil {
		exactCache = answercache.New(redisClient.Client, cfg.Cache, log)
	}

	deps := orchestrator.Deps{
		Registry:   reg,
		Ranker:     ranker.New(cfg.Ranking, scorerClient, log),
		Executor:   executor.New(cfg.Executor, log),
		Combiner:   combiner.New(cfg.Combiner, log),
		SemCache:   semcache.New(cfg.Cache),
		ExactCache: exactCache,
		Stats:      stats,
		Classifier: classifierClient,
		Clients:    clients,
		Obs:        obs,
	}
	if store != nil {
		deps.Store = store
	}

	orch := orchestrator.New(cfg, deps, log)

	var fbService *feedback.Service
	if store != nil {
		fbService = feedback.New(store, stats, log)
	}

	zapLog.Info("Pipeline assembled",
		zap.Int("searchClients", len(clients)),
		zap.Bool("persistence", store != nil),
		zap.Bool("exactCache", exactCache != nil),
	)

	// --- Metrics Server ---
	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			zapLog.Info("Metrics server listening", zap.String("address", cfg.Metrics.Address))
			if err := http.ListenAndServe(cfg.Metrics.Address, mux); err != nil {
				zapLog.Error("Metrics server failed", zap.Error(err))
			}
		}()
	}

	// --- API Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "ready",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/v1/questions", handleQuestion(orch))
	mux.HandleFunc("/v1/feedback", handleFeedback(fbService))
	mux.HandleFunc("/v1/corrections", handleCorrection(fbService))

	srv := &http.Server{
		Addr:    ":8080",
		Handler: mux,
	}

	go func() {
		zapLog.Info("API server listening on :8080")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("API server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down API server", zap.Error(err))
	}

	zapLog.Info("Search orchestrator stopped gracefully")
}

// buildSearchClients constructs one client per catalog source that this
// deployment can actually reach.
func buildSearchClients(cfg *config.Config, esClient *database.ElasticsearchClient, log logger.Logger, zapLog *zap.Logger) []executor.SearchClient {
	clients := []executor.SearchClient{
		wikipedia.New(cfg.Executor.SourceTimeout("wikipedia"), log),
		duckduckgo.New(cfg.Executor.SourceTimeout("duckduckgo"), log),
	}

	if cfg.Sources.WolframAppID != "" {
		clients = append(clients, wolfram.New(cfg.Sources.WolframAppID, cfg.Executor.SourceTimeout("wolfram"), log))
	} else {
		zapLog.Info("wolfram credential missing, source stays inactive")
	}

	if esClient != nil {
		clients = append(clients, internalkb.New(esClient, cfg.Database.Elasticsearch.Index, log))
	}

	return clients
}

// ==========================
// HTTP Handlers
// ==========================

type questionRequest struct {
	Question string `json:"question"`
}

func handleQuestion(orch *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req questionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		answer, err := orch.Process(r.Context(), req.Question)
		if err != nil {
			writeError(w, statusForError(err), err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(answer)
	}
}

func handleFeedback(svc *feedback.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if svc == nil {
			writeError(w, http.StatusServiceUnavailable, "feedback requires persistence")
			return
		}

		var fb models.Feedback
		if err := json.NewDecoder(r.Body).Decode(&fb); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := svc.Register(r.Context(), fb); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func handleCorrection(svc *feedback.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if svc == nil {
			writeError(w, http.StatusServiceUnavailable, "corrections require persistence")
			return
		}

		var cor models.Correction
		if err := json.NewDecoder(r.Body).Decode(&cor); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := svc.RegisterCorrection(r.Context(), cor); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func statusForError(err error) int {
	switch stderrors.GetErrorCode(err) {
	case stderrors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case stderrors.ErrCodeNoSourcesActive:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
