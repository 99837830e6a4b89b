// Package history runs simulations and persists them so a past run can be
// listed and restored by id. Restores replay the stored result, not a
// re-score: the caller sees exactly what the original run produced even if
// weights changed since.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/abdullahmohammed1234/repopulse/internal/database"
	"github.com/abdullahmohammed1234/repopulse/internal/risk"
	"github.com/abdullahmohammed1234/repopulse/internal/simulate"
	"github.com/abdullahmohammed1234/repopulse/internal/types"
)

// DefaultListLimit bounds how many simulations a listing returns.
const DefaultListLimit = 50

// SimulationRecord is one stored simulation, request and result both
// deserialized.
type SimulationRecord struct {
	ID          string                `json:"id"`
	Repository  string                `json:"repository"`
	RequestedBy string                `json:"requested_by,omitempty"`
	Request     types.SimulateRequest `json:"request"`
	Result      simulate.Result       `json:"result"`
	CreatedAt   time.Time             `json:"created_at"`
}

// Service runs and persists simulations.
type Service struct {
	repo    *database.Repository
	weights *risk.Store
}

// NewService creates a simulation history service.
func NewService(repo *database.Repository, weights *risk.Store) *Service {
	return &Service{repo: repo, weights: weights}
}

// RunAndSave scores the simulated PR against the repository's persisted
// average, stores the run under a fresh id, and returns the record.
func (s *Service) RunAndSave(ctx context.Context, req types.SimulateRequest) (SimulationRecord, error) {
	repoAvg, scored, err := s.repo.RepoAvgRisk(ctx, req.Repository)
	if err != nil {
		return SimulationRecord{}, err
	}

	result, err := simulate.Simulate(req.Facts, req.Contributor, req.TargetFiles, simulate.RepoContext{
		RepoAvgRisk: repoAvg,
		Config:      s.weights.Current(),
	})
	if err != nil {
		return SimulationRecord{}, err
	}

	record := SimulationRecord{
		ID:          uuid.New().String(),
		Repository:  req.Repository,
		RequestedBy: req.RequestedBy,
		Request:     req,
		Result:      result,
		CreatedAt:   time.Now().UTC(),
	}

	requestJSON, err := json.Marshal(req)
	if err != nil {
		return SimulationRecord{}, fmt.Errorf("failed to marshal simulation request: %w", err)
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return SimulationRecord{}, fmt.Errorf("failed to marshal simulation result: %w", err)
	}

	err = s.repo.SaveSimulation(ctx, database.SimulationRow{
		ID:          record.ID,
		Repository:  record.Repository,
		RequestedBy: record.RequestedBy,
		Request:     string(requestJSON),
		Result:      string(resultJSON),
		RiskScore:   result.RiskScore,
		RiskLevel:   string(result.RiskLevel),
		CreatedAt:   record.CreatedAt,
	})
	if err != nil {
		return SimulationRecord{}, err
	}

	slog.Info("Simulation saved",
		"simulation_id", record.ID,
		"repository", record.Repository,
		"risk_score", result.RiskScore,
		"risk_level", result.RiskLevel,
		"baseline_scores", scored,
	)

	return record, nil
}

// List returns the most recent simulations for a repository, newest first.
func (s *Service) List(ctx context.Context, repository string, limit int) ([]SimulationRecord, error) {
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}

	rows, err := s.repo.ListSimulations(ctx, repository, limit)
	if err != nil {
		return nil, err
	}

	records := make([]SimulationRecord, 0, len(rows))
	for _, row := range rows {
		record, err := recordFromRow(row)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// Restore loads one stored simulation by id. database.ErrNotFound passes
// through so the API layer can answer 404.
func (s *Service) Restore(ctx context.Context, id string) (SimulationRecord, error) {
	row, err := s.repo.GetSimulation(ctx, id)
	if err != nil {
		return SimulationRecord{}, err
	}
	return recordFromRow(row)
}

func recordFromRow(row database.SimulationRow) (SimulationRecord, error) {
	record := SimulationRecord{
		ID:          row.ID,
		Repository:  row.Repository,
		RequestedBy: row.RequestedBy,
		CreatedAt:   row.CreatedAt,
	}
	if err := json.Unmarshal([]byte(row.Request), &record.Request); err != nil {
		return SimulationRecord{}, fmt.Errorf("failed to decode stored simulation request %s: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.Result), &record.Result); err != nil {
		return SimulationRecord{}, fmt.Errorf("failed to decode stored simulation result %s: %w", row.ID, err)
	}
	return record, nil
}
