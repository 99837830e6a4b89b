// Package database persists risk scores and simulation history in SQLite.
// The scoring engine itself never touches the database; only the HTTP layer
// and the history service do.
package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite connection with pooling and prepared statements.
type DB struct {
	*sql.DB
	pool     *ConnectionPool
	prepared map[string]*sql.Stmt
	mutex    sync.RWMutex
}

// ConnectionPool manages database connection pooling.
type ConnectionPool struct {
	db           *sql.DB
	maxOpenConns int
	maxIdleConns int
	maxLifetime  time.Duration
}

// NewConnectionPool configures pooling on the given connection.
func NewConnectionPool(db *sql.DB, maxOpen, maxIdle int, maxLifetime time.Duration) *ConnectionPool {
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)

	return &ConnectionPool{
		db:           db,
		maxOpenConns: maxOpen,
		maxIdleConns: maxIdle,
		maxLifetime:  maxLifetime,
	}
}

// GetStats returns connection pool statistics.
func (cp *ConnectionPool) GetStats() map[string]interface{} {
	stats := cp.db.Stats()

	return map[string]interface{}{
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"max_open_connections": cp.maxOpenConns,
		"max_idle_connections": cp.maxIdleConns,
		"max_lifetime_seconds": cp.maxLifetime.Seconds(),
		"wait_count":           stats.WaitCount,
		"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
	}
}

// NewDB opens (creating if needed) the SQLite database under dataDir with
// WAL journaling, runs migrations, and prepares the hot-path statements.
func NewDB(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "repopulse.db")
	connStr := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pool := NewConnectionPool(db, 25, 5, 5*time.Minute)

	database := &DB{
		DB:       db,
		pool:     pool,
		prepared: make(map[string]*sql.Stmt),
	}

	if err := database.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := database.initPreparedStatements(); err != nil {
		return nil, fmt.Errorf("failed to initialize prepared statements: %w", err)
	}

	slog.Info("Database initialized",
		"path", dbPath,
		"max_open_conns", pool.maxOpenConns,
		"max_idle_conns", pool.maxIdleConns)

	return database, nil
}

// migrate creates the tables and indexes.
func (db *DB) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS pr_risk_scores (
			id TEXT PRIMARY KEY,
			repository TEXT NOT NULL,
			pr_number INTEGER NOT NULL,
			risk_score REAL NOT NULL,
			risk_level TEXT NOT NULL,
			top_factors TEXT NOT NULL, -- JSON
			recommendations TEXT NOT NULL, -- JSON
			created_at DATETIME NOT NULL,
			UNIQUE(repository, pr_number)
		)`,

		`CREATE TABLE IF NOT EXISTS simulations (
			id TEXT PRIMARY KEY,
			repository TEXT NOT NULL,
			requested_by TEXT,
			request TEXT NOT NULL, -- JSON SimulateRequest
			result TEXT NOT NULL, -- JSON simulate.Result
			risk_score REAL NOT NULL,
			risk_level TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_pr_risk_scores_repo ON pr_risk_scores(repository)`,
		`CREATE INDEX IF NOT EXISTS idx_pr_risk_scores_created ON pr_risk_scores(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_simulations_repo ON simulations(repository)`,
		`CREATE INDEX IF NOT EXISTS idx_simulations_created ON simulations(created_at DESC)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	return nil
}

// initPreparedStatements prepares the frequently used statements.
func (db *DB) initPreparedStatements() error {
	statements := map[string]string{
		"insert_risk_score": `INSERT INTO pr_risk_scores (
			id, repository, pr_number, risk_score, risk_level,
			top_factors, recommendations, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(repository, pr_number) DO UPDATE SET
			risk_score = excluded.risk_score,
			risk_level = excluded.risk_level,
			top_factors = excluded.top_factors,
			recommendations = excluded.recommendations,
			created_at = excluded.created_at`,

		"get_risk_scores_by_repo": `SELECT id, repository, pr_number, risk_score, risk_level,
			top_factors, recommendations, created_at
			FROM pr_risk_scores WHERE repository = ? ORDER BY created_at DESC LIMIT ?`,

		"get_repo_avg_risk": `SELECT COALESCE(AVG(risk_score), 0), COUNT(*)
			FROM pr_risk_scores WHERE repository = ?`,

		"insert_simulation": `INSERT INTO simulations (
			id, repository, requested_by, request, result,
			risk_score, risk_level, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,

		"get_simulations_by_repo": `SELECT id, repository, requested_by, request, result,
			risk_score, risk_level, created_at
			FROM simulations WHERE repository = ? ORDER BY created_at DESC LIMIT ?`,

		"get_simulation_by_id": `SELECT id, repository, requested_by, request, result,
			risk_score, risk_level, created_at
			FROM simulations WHERE id = ?`,
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, query := range statements {
		stmt, err := db.Prepare(query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement %s: %w", name, err)
		}
		db.prepared[name] = stmt
	}

	return nil
}

// GetPreparedStatement retrieves a prepared statement by name.
func (db *DB) GetPreparedStatement(name string) (*sql.Stmt, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	stmt, exists := db.prepared[name]
	if !exists {
		return nil, fmt.Errorf("prepared statement %s not found", name)
	}

	return stmt, nil
}

// GetPoolStats returns database connection pool statistics.
func (db *DB) GetPoolStats() map[string]interface{} {
	return db.pool.GetStats()
}

// Close closes the prepared statements and the connection.
func (db *DB) Close() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, stmt := range db.prepared {
		if err := stmt.Close(); err != nil {
			slog.Warn("Failed to close prepared statement", "name", name, "error", err)
		}
	}
	db.prepared = make(map[string]*sql.Stmt)

	return db.DB.Close()
}
