package model

import "time"

// RunStatus represents the current state of a classification run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run records one batch classification over an input source.
type Run struct {
	ID         string     `json:"id"`
	Source     string     `json:"source"`
	RulesPath  string     `json:"rules_path,omitempty"`
	Status     RunStatus  `json:"status"`
	Counts     RunCounts  `json:"counts"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// RunCounts breaks a run's records down by outcome.
type RunCounts struct {
	Total        int `json:"total"`
	Classified   int `json:"classified"`
	Unclassified int `json:"unclassified"`
	Invalid      int `json:"invalid"`
}
