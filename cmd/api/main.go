package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	httpadp "loan-intake-service/internal/adapter/http"
	"loan-intake-service/internal/adapter/middleware"
	origclient "loan-intake-service/internal/adapter/origination"
	"loan-intake-service/internal/adapter/repository/memory"
	"loan-intake-service/internal/adapter/repository/rediskv"
	"loan-intake-service/internal/adapter/repository/sqlkv"
	"loan-intake-service/internal/config"
	"loan-intake-service/internal/domain/kv"
	"loan-intake-service/internal/domain/session"
	"loan-intake-service/internal/infrastructure/cache"
	"loan-intake-service/internal/infrastructure/db"
	"loan-intake-service/internal/usecase/customer"
	"loan-intake-service/internal/usecase/draftstore"
	"loan-intake-service/internal/usecase/merge"
	"loan-intake-service/internal/usecase/precheck"
	"loan-intake-service/internal/usecase/submission"
	"loan-intake-service/internal/usecase/uploadqueue"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	config.LoadEnv()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	kvs, rdb, err := openKV(cfg)
	if err != nil {
		logger.Error("open store backend", "backend", string(cfg.StoreBackend), "error", err)
		os.Exit(1)
	}

	clk := clock.New()
	store := memory.NewSessionStore()
	queue := uploadqueue.New(kvs)
	drafts := draftstore.New(kvs)
	mergeEngine := merge.NewEngine(store, logger)
	precheckEngine := precheck.NewEngine(store, clk, mergeEngine, logger)
	client := origclient.NewClient(cfg.OriginationBaseURL, cfg.OriginationTimeout)
	orch := submission.NewOrchestrator(store, client, queue, logger)
	customerUC := customer.NewUsecase(client, clk, cfg.DecisionMaxAttempts, cfg.DecisionPollDelay, logger)

	// Every mutation snapshots the session into the draft store so an
	// interrupted run can resume where it left off.
	store.Subscribe(func(snap *session.ApplicationSession) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := drafts.Save(ctx, snap.ID, draftstore.FromSession(snap)); err != nil {
			logger.Warn("draft autosave failed", "session_id", snap.ID, "error", err)
		}
	})

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger(), echomw.Recover())
	e.Validator = httpadp.NewValidator()

	h := httpadp.NewHandler(string(cfg.StoreBackend))
	sessions := httpadp.NewSessionHandler(store)
	documents := httpadp.NewDocumentHandler(precheckEngine)
	submissions := httpadp.NewSubmissionHandler(orch, queue)
	draftH := httpadp.NewDraftHandler(store, drafts)
	customers := httpadp.NewCustomerHandler(customerUC)

	e.GET("/health", h.Health)

	api := e.Group("/api/v1")
	api.POST("/sessions", sessions.CreateSession)
	api.GET("/sessions/:session_id", sessions.GetSession)
	api.PATCH("/sessions/:session_id/customer", sessions.PatchCustomer)
	api.PATCH("/sessions/:session_id/loan", sessions.PatchLoan)
	api.PUT("/sessions/:session_id/step", sessions.SetStep)
	api.POST("/sessions/:session_id/reset", sessions.ResetSession)

	api.POST("/sessions/:session_id/documents/:kind", documents.AttachDocument)
	api.DELETE("/sessions/:session_id/documents/:kind", documents.RemoveDocument)

	api.POST("/sessions/:session_id/draft", draftH.SaveDraft)
	api.GET("/sessions/:session_id/draft", draftH.LoadDraft)
	api.POST("/sessions/:session_id/draft/restore", draftH.RestoreDraft)
	api.DELETE("/sessions/:session_id/draft", draftH.ClearDraft)

	// Routes that reach the origination backend require a bearer credential.
	authed := api.Group("", middleware.Bearer())
	if rdb != nil {
		ttl := time.Duration(cfg.IdempTTLSecs) * time.Second
		authed.Use(middleware.Idempotency(rdb, ttl))
	}
	authed.POST("/sessions/:session_id/application", submissions.EnsureApplication)
	authed.POST("/sessions/:session_id/submit", submissions.Submit)
	authed.POST("/sessions/:session_id/documents/:kind/upload", submissions.UploadDocument)
	authed.POST("/sessions/:session_id/uploads/retry", submissions.RetryUploads)
	authed.GET("/sessions/:session_id/uploads/pending", submissions.PendingUploads)
	authed.POST("/customers", customers.RegisterCustomer)

	addr := ":" + cfg.AppPort
	logger.Info("listening", "addr", addr, "backend", string(cfg.StoreBackend))
	if err := e.Start(addr); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// openKV opens the configured durable store. The redis client is returned
// separately because the idempotency middleware needs it directly.
func openKV(cfg *config.Config) (kv.Store, *redis.Client, error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB, 5*time.Second)
		if err != nil {
			return nil, nil, err
		}
		return rediskv.New(rdb), rdb, nil
	case config.BackendMySQL:
		gdb, err := db.OpenMySQL(cfg.MySQLDSN())
		if err != nil {
			return nil, nil, err
		}
		s, err := sqlkv.New(gdb)
		return s, nil, err
	default:
		gdb, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		s, err := sqlkv.New(gdb)
		return s, nil, err
	}
}
