package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("record not found")

// Repository provides typed access to the persisted rows via the prepared
// statements on DB.
type Repository struct {
	db *DB
}

// NewRepository creates a repository over the given database.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// SaveRiskScore upserts one PR risk score, keyed by (repository, pr_number).
func (r *Repository) SaveRiskScore(ctx context.Context, row RiskScoreRow) error {
	stmt, err := r.db.GetPreparedStatement("insert_risk_score")
	if err != nil {
		return err
	}

	_, err = stmt.ExecContext(ctx,
		row.ID, row.Repository, row.PRNumber, row.RiskScore, row.RiskLevel,
		row.TopFactors, row.Recommendations, row.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save risk score: %w", err)
	}
	return nil
}

// ListRiskScores returns the most recent scores for a repository.
func (r *Repository) ListRiskScores(ctx context.Context, repository string, limit int) ([]RiskScoreRow, error) {
	stmt, err := r.db.GetPreparedStatement("get_risk_scores_by_repo")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, repository, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list risk scores: %w", err)
	}
	defer rows.Close()

	var out []RiskScoreRow
	for rows.Next() {
		var row RiskScoreRow
		if err := rows.Scan(&row.ID, &row.Repository, &row.PRNumber, &row.RiskScore,
			&row.RiskLevel, &row.TopFactors, &row.Recommendations, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan risk score: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// RepoAvgRisk returns the mean persisted risk score for a repository and
// how many scores back it. A repository with no scores averages 0.
func (r *Repository) RepoAvgRisk(ctx context.Context, repository string) (avg float64, count int, err error) {
	stmt, err := r.db.GetPreparedStatement("get_repo_avg_risk")
	if err != nil {
		return 0, 0, err
	}

	if err := stmt.QueryRowContext(ctx, repository).Scan(&avg, &count); err != nil {
		return 0, 0, fmt.Errorf("failed to query repo average risk: %w", err)
	}
	return avg, count, nil
}

// SaveSimulation inserts one simulation run.
func (r *Repository) SaveSimulation(ctx context.Context, row SimulationRow) error {
	stmt, err := r.db.GetPreparedStatement("insert_simulation")
	if err != nil {
		return err
	}

	_, err = stmt.ExecContext(ctx,
		row.ID, row.Repository, row.RequestedBy, row.Request, row.Result,
		row.RiskScore, row.RiskLevel, row.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save simulation: %w", err)
	}
	return nil
}

// ListSimulations returns the most recent simulations for a repository.
func (r *Repository) ListSimulations(ctx context.Context, repository string, limit int) ([]SimulationRow, error) {
	stmt, err := r.db.GetPreparedStatement("get_simulations_by_repo")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, repository, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list simulations: %w", err)
	}
	defer rows.Close()

	var out []SimulationRow
	for rows.Next() {
		var row SimulationRow
		if err := scanSimulation(rows, &row); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// GetSimulation returns one simulation by id, or ErrNotFound.
func (r *Repository) GetSimulation(ctx context.Context, id string) (SimulationRow, error) {
	stmt, err := r.db.GetPreparedStatement("get_simulation_by_id")
	if err != nil {
		return SimulationRow{}, err
	}

	var row SimulationRow
	var requestedBy sql.NullString
	err = stmt.QueryRowContext(ctx, id).Scan(&row.ID, &row.Repository, &requestedBy,
		&row.Request, &row.Result, &row.RiskScore, &row.RiskLevel, &row.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return SimulationRow{}, ErrNotFound
	}
	if err != nil {
		return SimulationRow{}, fmt.Errorf("failed to get simulation: %w", err)
	}
	row.RequestedBy = requestedBy.String
	return row, nil
}

func scanSimulation(rows *sql.Rows, row *SimulationRow) error {
	var requestedBy sql.NullString
	if err := rows.Scan(&row.ID, &row.Repository, &requestedBy, &row.Request,
		&row.Result, &row.RiskScore, &row.RiskLevel, &row.CreatedAt); err != nil {
		return fmt.Errorf("failed to scan simulation: %w", err)
	}
	row.RequestedBy = requestedBy.String
	return nil
}
