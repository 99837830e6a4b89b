// Package monitoring carries the service's structured logging and in-process
// metrics counters.
package monitoring

import (
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog with domain-specific logging helpers.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a JSON structured logger and installs it as the process
// default so package-level slog calls share the same handler.
func NewLogger() *Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{
					Key:   "timestamp",
					Value: slog.StringValue(a.Value.Time().Format(time.RFC3339)),
				}
			}
			return a
		},
	})

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return &Logger{Logger: logger}
}

// RequestLogger logs HTTP request details.
func (l *Logger) RequestLogger(method, path, ip string, statusCode int, duration time.Duration) {
	l.Info("HTTP Request",
		"method", method,
		"path", path,
		"ip", ip,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
	)
}

// ScoringLogger logs one risk scoring call.
func (l *Logger) ScoringLogger(repository string, prNumber int, score float64, level string, duration time.Duration) {
	l.Info("Risk Scored",
		"repository", repository,
		"pr_number", prNumber,
		"risk_score", score,
		"risk_level", level,
		"duration_ms", duration.Milliseconds(),
	)
}

// SimulationLogger logs one simulation run.
func (l *Logger) SimulationLogger(id, repository string, score float64, relativeLabel string) {
	l.Info("Simulation Completed",
		"simulation_id", id,
		"repository", repository,
		"risk_score", score,
		"relative_label", relativeLabel,
	)
}

// BenchmarkLogger logs one benchmark run over a cohort.
func (l *Logger) BenchmarkLogger(cohortSize int, duration time.Duration) {
	l.Info("Benchmark Completed",
		"cohort_size", cohortSize,
		"duration_ms", duration.Milliseconds(),
	)
}

// SystemLogger logs process-level events such as startup and shutdown.
func (l *Logger) SystemLogger(event, details string) {
	l.Info("System Event",
		"event", event,
		"details", details,
		"uptime", time.Since(startTime).String(),
	)
}

var startTime = time.Now()
