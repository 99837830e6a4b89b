package database

import "time"

// RiskScoreRow is a persisted pull-request risk score. TopFactors and
// Recommendations are stored as JSON text.
type RiskScoreRow struct {
	ID              string    `json:"id"`
	Repository      string    `json:"repository"`
	PRNumber        int       `json:"pr_number"`
	RiskScore       float64   `json:"risk_score"`
	RiskLevel       string    `json:"risk_level"`
	TopFactors      string    `json:"top_factors"`
	Recommendations string    `json:"recommendations"`
	CreatedAt       time.Time `json:"created_at"`
}

// SimulationRow is a persisted simulation run: the full request and result
// as JSON, plus the headline score for listing without deserializing.
type SimulationRow struct {
	ID          string    `json:"id"`
	Repository  string    `json:"repository"`
	RequestedBy string    `json:"requested_by,omitempty"`
	Request     string    `json:"request"`
	Result      string    `json:"result"`
	RiskScore   float64   `json:"risk_score"`
	RiskLevel   string    `json:"risk_level"`
	CreatedAt   time.Time `json:"created_at"`
}
