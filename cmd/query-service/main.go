package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/vitaltrace-ai/platform/pkg/alerts"
	"github.com/vitaltrace-ai/platform/pkg/common/config"
	"github.com/vitaltrace-ai/platform/pkg/common/database"
	"github.com/vitaltrace-ai/platform/pkg/common/kafka"
	"github.com/vitaltrace-ai/platform/pkg/common/logger"
	"github.com/vitaltrace-ai/platform/pkg/compose"
	"github.com/vitaltrace-ai/platform/pkg/fhir"
	"github.com/vitaltrace-ai/platform/pkg/intake"
	"github.com/vitaltrace-ai/platform/pkg/llm"
	"github.com/vitaltrace-ai/platform/pkg/observability/metrics"
	"github.com/vitaltrace-ai/platform/pkg/pipeline"
	"github.com/vitaltrace-ai/platform/pkg/query"
	"github.com/vitaltrace-ai/platform/pkg/router"
	"github.com/vitaltrace-ai/platform/pkg/session"
	"github.com/vitaltrace-ai/platform/pkg/terminology"
	"github.com/vitaltrace-ai/platform/pkg/trend"
)

type auditAdapter struct {
	repo *alerts.Repository
}

func (a auditAdapter) RecordRun(ctx context.Context, entry pipeline.AuditEntry) error {
	params := map[string]interface{}{
		"patient_id": entry.Params.PatientID,
		"since":      entry.Params.Since,
		"until":      entry.Params.Until,
		"count":      entry.Params.Count,
		"max_items":  entry.Params.MaxItems,
	}
	if len(entry.Params.Codes) > 0 {
		codes := make([]interface{}, len(entry.Params.Codes))
		for i, c := range entry.Params.Codes {
			codes[i] = c
		}
		params["codes"] = codes
	}
	return a.repo.CreateRun(ctx, &alerts.RunRecord{
		ID:           uuid.New().String(),
		ThreadID:     entry.ThreadID,
		Query:        entry.Query,
		Route:        string(entry.Route),
		Params:       params,
		FetchedCount: entry.FetchedCount,
		FlagCount:    entry.FlagCount,
	})
}

func main() {
	logger.Init()
	metrics.Init()
	cfg := config.Load()

	catalog, err := terminology.Load(cfg.CatalogPath)
	if err != nil {
		logger.Log.WithError(err).Warn("failed to load terminology catalog, using default")
	}

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}

	alertRepo := alerts.NewRepository(db)
	if err := alertRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate alert tables")
	}

	llmClient := llm.NewClient(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModelName, cfg.LLMTimeout)

	registry := session.NewRegistry(func() fhir.Searcher {
		return fhir.NewClient(fhir.Options{
			BaseURL:      cfg.FHIRBaseURL,
			Timeout:      cfg.FHIRTimeout,
			TokenURL:     cfg.FHIRTokenURL,
			ClientID:     cfg.FHIRClientID,
			ClientSecret: cfg.FHIRClientSecret,
			Scopes:       cfg.FHIRScopes,
			MaxItemsCap:  cfg.FHIRMaxItemsCap,
		})
	})

	producer := kafka.NewProducer(cfg.FlagEventTopic)
	defer producer.Close()

	store := session.NewStore(database.GetRedis(), cfg.SessionTTL)

	orchestrator, err := pipeline.New(pipeline.Options{
		Parser:    intake.NewParser(catalog),
		Router:    router.New(router.NewLLMClassifier(llmClient)),
		Registry:  registry,
		Engine:    trend.NewEngine(trend.FreqAuto),
		Narrator:  compose.NewNarrator(llmClient, catalog),
		Store:     store,
		Publisher: producer,
		Audit:     auditAdapter{repo: alertRepo},
	})
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to build pipeline")
	}

	queryHandler := query.NewHTTPHandler(orchestrator, cfg.MaxRequestBody)
	alertsHandler := alerts.NewHTTPHandler(alertRepo)

	muxRouter := mux.NewRouter()
	muxRouter.Use(query.Recovery, query.Logging, query.CORS)
	muxRouter.Use(query.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))

	muxRouter.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	muxRouter.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	muxRouter.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	api := muxRouter.PathPrefix("/api/v1").Subrouter()
	queryHandler.Register(api)
	alertsHandler.Register(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      muxRouter,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Query Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Query Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	database.CloseRedis()
	database.ClosePostgres()

	logger.Log.Info("Query Service stopped")
}
