package models

import (
	"time"

	"github.com/google/uuid"
)

// Snapshot records the scores of a single pipeline scan, used for trend
// tracking over time.
type Snapshot struct {
	ID              string    `json:"id" db:"id"`
	GraphName       string    `json:"graph_name" db:"graph_name"`
	GraphID         string    `json:"graph_id" db:"graph_id"`
	ComplexityScore float64   `json:"complexity_score" db:"complexity_score"`
	FragilityScore  float64   `json:"fragility_score" db:"fragility_score"`
	MaturityScore   float64   `json:"maturity_score" db:"maturity_score"`
	FindingCount    int       `json:"finding_count" db:"finding_count"`
	NodeCount       int       `json:"node_count" db:"node_count"`
	EdgeCount       int       `json:"edge_count" db:"edge_count"`
	ScannedAt       time.Time `json:"scanned_at" db:"scanned_at"`
}

// TableName returns the table name for the Snapshot model
func (Snapshot) TableName() string {
	return "snapshots"
}

// NewSnapshot creates a new Snapshot instance
func NewSnapshot(graphName string) *Snapshot {
	return &Snapshot{
		ID:        uuid.NewString(),
		GraphName: graphName,
		ScannedAt: time.Now().UTC(),
	}
}

// TrendDirection describes how a metric moved between two snapshots
type TrendDirection string

const (
	TrendImproved  TrendDirection = "improved"
	TrendRegressed TrendDirection = "regressed"
	TrendStable    TrendDirection = "stable"
)

// Trend captures the delta of one metric between consecutive snapshots
type Trend struct {
	Metric    string         `json:"metric"`
	Previous  float64        `json:"previous"`
	Current   float64        `json:"current"`
	Delta     float64        `json:"delta"`
	Direction TrendDirection `json:"direction"`
}
