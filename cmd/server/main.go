package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/abdullahmohammed1234/repopulse/internal/benchmark"
	"github.com/abdullahmohammed1234/repopulse/internal/cache"
	"github.com/abdullahmohammed1234/repopulse/internal/database"
	apperrors "github.com/abdullahmohammed1234/repopulse/internal/errors"
	"github.com/abdullahmohammed1234/repopulse/internal/features"
	"github.com/abdullahmohammed1234/repopulse/internal/history"
	"github.com/abdullahmohammed1234/repopulse/internal/monitoring"
	"github.com/abdullahmohammed1234/repopulse/internal/ratelimit"
	"github.com/abdullahmohammed1234/repopulse/internal/repometrics"
	"github.com/abdullahmohammed1234/repopulse/internal/risk"
	"github.com/abdullahmohammed1234/repopulse/internal/types"
)

const version = "1.0.0"

func main() {
	appLogger := monitoring.NewLogger()

	// Configuration from environment with defaults
	port := getEnvOrDefault("PORT", "8080")
	dataDir := getEnvOrDefault("DATA_DIR", "./data")
	weightsFile := os.Getenv("WEIGHTS_FILE")
	redisAddr := os.Getenv("REDIS_ADDR")
	redisPassword := os.Getenv("REDIS_PASSWORD")

	// Weight configuration: file-backed snapshot, defaults when absent
	weights, err := risk.NewStore(weightsFile)
	if err != nil {
		slog.Error("Failed to load weight configuration", "error", err)
		os.Exit(1)
	}

	// Persistence
	db, err := database.NewDB(dataDir)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer apperrors.SafeClose(db, "database")

	repo := database.NewRepository(db)
	historyService := history.NewService(repo, weights)

	// Monitoring
	appMetrics := monitoring.NewMetrics()

	// Rate limiting: Redis sliding window, in-memory fallback
	redisClient, err := ratelimit.NewRedisClient(redisAddr, redisPassword, 0)
	if err != nil {
		slog.Warn("Redis unavailable", "error", err)
	}
	defer apperrors.SafeClose(redisClient, "redis")
	limiter := ratelimit.NewRateLimiter(redisClient, ratelimit.DefaultConfig(), appMetrics)

	// Benchmark response cache
	appCache := cache.NewCache(15 * time.Minute)

	r := gin.New()

	r.Use(appMetrics.Middleware())
	r.Use(apperrors.ErrorHandler())
	r.Use(apperrors.RecoveryHandler())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(limiter.IPRateLimitMiddleware())
	r.Use(appCache.Middleware("/api/v1/benchmark", appMetrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   version,
			"weights":   weights.Current(),
			"database":  db.GetPoolStats(),
			"ratelimit": limiter.GetStats(),
		})
	})

	r.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, appMetrics.GetStats())
	})

	r.GET("/cache/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, appCache.Stats())
	})

	api := r.Group("/api/v1")

	// Risk prediction: extract features, score against the active weight
	// snapshot, optionally persist when the PR identity is supplied.
	api.POST("/risk/predict", func(c *gin.Context) {
		var req types.PredictRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(apperrors.NewValidationError("invalid request body", map[string]string{"body": err.Error()}))
			return
		}
		if fields := validateFacts(req.Facts); len(fields) > 0 {
			c.Error(apperrors.NewValidationError("invalid pull request facts", fields))
			return
		}

		start := time.Now()
		extracted := features.Extract(req.Facts, req.Contributor, req.TargetFiles)
		result, err := risk.Score(extracted.Vector, weights.Current())
		if err != nil {
			c.Error(err)
			return
		}
		appMetrics.IncrementScoringCall()
		appLogger.ScoringLogger(req.Repository, req.PRNumber, result.RiskScore, string(result.RiskLevel), time.Since(start))

		if req.Repository != "" && req.PRNumber > 0 {
			if err := persistRiskScore(c.Request.Context(), repo, req, result); err != nil {
				slog.Warn("Failed to persist risk score",
					"repository", req.Repository,
					"pr_number", req.PRNumber,
					"error", err)
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"risk_score":      result.RiskScore,
			"risk_level":      result.RiskLevel,
			"top_factors":     result.TopFactors,
			"recommendations": result.Recommendations,
			"features":        extracted.Vector,
			"clamped":         extracted.Clamped,
		})
	})

	// What-if simulation: scored on the same path as prediction, persisted
	// for later restore.
	api.POST("/simulate", func(c *gin.Context) {
		var req types.SimulateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(apperrors.NewValidationError("invalid request body", map[string]string{"body": err.Error()}))
			return
		}
		if fields := validateFacts(req.Facts); len(fields) > 0 {
			c.Error(apperrors.NewValidationError("invalid pull request facts", fields))
			return
		}

		record, err := historyService.RunAndSave(c.Request.Context(), req)
		if err != nil {
			c.Error(err)
			return
		}
		appMetrics.IncrementSimulationRun()
		appLogger.SimulationLogger(record.ID, record.Repository, record.Result.RiskScore, record.Result.RelativeLabel)

		c.JSON(http.StatusOK, record)
	})

	api.GET("/simulations/:repository", func(c *gin.Context) {
		repository := c.Param("repository")
		limit := history.DefaultListLimit
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				c.Error(apperrors.NewValidationError("invalid limit", map[string]string{"limit": raw}))
				return
			}
			limit = parsed
		}

		records, err := historyService.List(c.Request.Context(), repository, limit)
		if err != nil {
			c.Error(err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"repository":  repository,
			"simulations": records,
			"total":       len(records),
		})
	})

	api.GET("/simulations/restore/:id", func(c *gin.Context) {
		id := c.Param("id")
		if _, err := uuid.Parse(id); err != nil {
			c.Error(apperrors.NewValidationError("invalid simulation id", map[string]string{"id": id}))
			return
		}

		record, err := historyService.Restore(c.Request.Context(), id)
		if errors.Is(err, database.ErrNotFound) {
			c.Error(apperrors.NewNotFoundError("simulation", id))
			return
		}
		if err != nil {
			c.Error(err)
			return
		}

		c.JSON(http.StatusOK, record)
	})

	// Cross-repository benchmark over caller-supplied histories.
	api.POST("/benchmark", func(c *gin.Context) {
		var req types.BenchmarkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(apperrors.NewValidationError("invalid request body", map[string]string{"body": err.Error()}))
			return
		}
		if len(req.Repositories) == 0 {
			c.Error(apperrors.NewValidationError("empty cohort", map[string]string{"repositories": "at least one repository history is required"}))
			return
		}

		start := time.Now()
		indices := repometrics.AggregateAll(req.Repositories)
		rows, distribution := benchmark.Run(indices)
		appMetrics.IncrementBenchmarkRun()
		appLogger.BenchmarkLogger(len(rows), time.Since(start))

		c.JSON(http.StatusOK, gin.H{
			"rows":         rows,
			"distribution": distribution,
			"cohort_size":  len(rows),
			"generated_at": time.Now().Format(time.RFC3339),
		})
	})

	api.GET("/weights", func(c *gin.Context) {
		c.JSON(http.StatusOK, weights.Current())
	})

	api.POST("/weights", func(c *gin.Context) {
		var cfg risk.Config
		if err := c.ShouldBindJSON(&cfg); err != nil {
			c.Error(apperrors.NewValidationError("invalid weight configuration", map[string]string{"body": err.Error()}))
			return
		}
		if err := weights.Swap(&cfg); err != nil {
			c.Error(apperrors.NewConfigurationError("weight configuration rejected", err))
			return
		}
		appMetrics.IncrementWeightReload()
		slog.Info("Weight configuration updated", "weights", cfg.Weights, "thresholds", cfg.Thresholds)

		c.JSON(http.StatusOK, weights.Current())
	})

	api.POST("/weights/reload", func(c *gin.Context) {
		if weightsFile == "" {
			c.Error(apperrors.NewConfigurationError("no weights file configured", nil))
			return
		}
		if err := weights.Reload(); err != nil {
			c.Error(apperrors.NewConfigurationError("weight reload failed", err))
			return
		}
		appMetrics.IncrementWeightReload()
		slog.Info("Weight configuration reloaded", "path", weightsFile)

		c.JSON(http.StatusOK, weights.Current())
	})

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Start server with graceful shutdown
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		slog.Info("Starting server", "port", port, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.SystemLogger("shutdown", "signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited")
}

// validateFacts rejects negative counts outright. Values above the
// documented maximums pass through; the extractor clamps them and the
// response reports which features were clamped.
func validateFacts(facts types.PullRequestFacts) map[string]string {
	fields := make(map[string]string)
	if facts.LinesAdded < 0 {
		fields["lines_added"] = fmt.Sprintf("must be non-negative, got %d", facts.LinesAdded)
	}
	if facts.LinesDeleted < 0 {
		fields["lines_deleted"] = fmt.Sprintf("must be non-negative, got %d", facts.LinesDeleted)
	}
	if facts.FilesChanged < 0 {
		fields["files_changed"] = fmt.Sprintf("must be non-negative, got %d", facts.FilesChanged)
	}
	if facts.CommitsCount < 0 {
		fields["commits_count"] = fmt.Sprintf("must be non-negative, got %d", facts.CommitsCount)
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func persistRiskScore(ctx context.Context, repo *database.Repository, req types.PredictRequest, result risk.Result) error {
	factorsJSON, err := json.Marshal(result.TopFactors)
	if err != nil {
		return fmt.Errorf("failed to marshal top factors: %w", err)
	}
	recsJSON, err := json.Marshal(result.Recommendations)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendations: %w", err)
	}

	return repo.SaveRiskScore(ctx, database.RiskScoreRow{
		ID:              uuid.New().String(),
		Repository:      req.Repository,
		PRNumber:        req.PRNumber,
		RiskScore:       result.RiskScore,
		RiskLevel:       string(result.RiskLevel),
		TopFactors:      string(factorsJSON),
		Recommendations: string(recsJSON),
		CreatedAt:       time.Now().UTC(),
	})
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
