// cmd/match-engine/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"beautymatch/internal/common/config"
	"beautymatch/internal/common/database"
	"beautymatch/internal/common/logger"
	"beautymatch/internal/common/observability"
	"beautymatch/internal/engine/matching"
	"beautymatch/internal/engine/rating"
	"beautymatch/internal/engine/scoring"
	"beautymatch/internal/models"
	"beautymatch/internal/outcome"
	"beautymatch/internal/store/matchstore"
	"beautymatch/internal/store/providerdir"
	"beautymatch/internal/store/ratingstore"
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
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting match engine...",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Provider directory: Postgres by default, Elasticsearch when the
	// stylist catalog is indexed there ---
	var directory matching.Directory
	pgDirectory := providerdir.NewPostgresDirectory(pg.DB, log)
	directory = pgDirectory

	if cfg.Database.Elasticsearch.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		directory = providerdir.NewElasticsearchDirectory(esClient.Client, esClient.Index, log)
		zapLog.Info("Elasticsearch connected successfully",
			zap.String("index", esClient.Index),
		)
	}

	// --- Engines ---
	ratingStore := ratingstore.NewRedisStore(rdb.Client, log)
	ratingEngine := rating.NewEngine(ratingStore, rating.FromAppConfig(cfg.Rating), log)

	scoringCfg, err := scoring.FromAppConfig(cfg.Scoring, cfg.Rating.Initial)
	if err != nil {
		zapLog.Fatal("scoring config invalid", zap.Error(err))
	}
	scorer := scoring.NewScorer(scoringCfg, log)

	matches := matchstore.NewPostgresStore(pg.DB, log)

	engine, err := matching.NewEngine(directory, matches, ratingEngine,
		scorer, matching.FromAppConfig(cfg.Matching), log)
	if err != nil {
		zapLog.Fatal("matching engine init failed", zap.Error(err))
	}
	zapLog.Info("Engines initialized",
		zap.String("algorithm", engine.Algorithm()),
	)

	reporter := outcome.NewReporter(pgDirectory, ratingEngine, log)
	outcomeConsumer := outcome.NewConsumer(rdb.Client, reporter, cfg.Outcome, log)

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Metrics.Address))
		if err := http.ListenAndServe(cfg.Metrics.Address, nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Consumers ---
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return outcomeConsumer.Run(gctx)
	})
	g.Go(func() error {
		return consumeRuns(gctx, rdb.Client, engine, obs, cfg, log)
	})

	zapLog.Info("Match engine running",
		zap.String("runQueue", cfg.Matching.RunQueue),
		zap.String("outcomeQueue", cfg.Outcome.Queue),
	)

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining consumers...")
	cancel()

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		zapLog.Error("consumer exited with error", zap.Error(err))
	}
	zapLog.Info("Match engine stopped")
}

// runRequest is one queued matching-run trigger.
type runRequest struct {
	RunID     string                      `json:"runId"`
	Customers []models.CustomerPreference `json:"customers"`
}

// consumeRuns drains run triggers from the run queue and executes them. A
// failed run is logged and dropped; the producer owns retry policy for runs.
func consumeRuns(ctx context.Context, client *redis.Client, engine *matching.Engine, obs *observability.Observability, cfg *config.Config, log logger.Logger) error {
	log = log.WithFields(map[string]interface{}{"component": "run-consumer"})
	blockTimeout := config.GetDuration(cfg.Outcome.BlockTimeout)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		vals, err := client.BRPop(ctx, blockTimeout, cfg.Matching.RunQueue).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error("run queue read failed", map[string]interface{}{
				"error": err.Error(),
			})
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		var req runRequest
		if err := json.Unmarshal([]byte(vals[1]), &req); err != nil {
			log.Warn("dropping malformed run request", map[string]interface{}{
				"error": err.Error(),
			})
			continue
		}

		started := time.Now()
		result, err := engine.Run(ctx, matching.Request{
			RunID:     req.RunID,
			Customers: req.Customers,
		})
		if err != nil {
			obs.RecordRun(ctx, "failed")
			log.Error("matching run failed", map[string]interface{}{
				"runId": req.RunID,
				"error": err.Error(),
			})
			continue
		}

		status := "converged"
		if !result.Converged {
			status = "capped"
		}
		obs.RecordRun(ctx, status)
		obs.RecordRunDuration(ctx, time.Since(started), status)
	}
}
