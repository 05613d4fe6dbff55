// Package domain defines the types and ports of the geometry catalog
package domain

import (
	"encoding/json"
	"time"
)

// Record is one constructed detector persisted under a run
type Record struct {
	RunID      string          `json:"run_id"`
	Detector   string          `json:"detector"`
	Model      string          `json:"model"`
	Kind       string          `json:"kind"`
	Solids     int             `json:"solids"`
	Volumes    int             `json:"volumes"`
	Placements int             `json:"placements"`
	Manifest   json.RawMessage `json:"manifest,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Summary drops the manifest, for listings
func (r Record) Summary() Record {
	r.Manifest = nil
	return r
}

// RunSummary aggregates the detectors recorded under one run
type RunSummary struct {
	RunID     string    `json:"run_id"`
	Detectors int       `json:"detectors"`
	CreatedAt time.Time `json:"created_at"`
}

// ListRunsInput pages through runs, newest first
type ListRunsInput struct {
	Limit  int `query:"limit" validate:"min=0"`
	Offset int `query:"offset" validate:"min=0"`
}

// RunInput addresses one run
type RunInput struct {
	RunID string `path:"run" validate:"required,max=64"`
}

// DetectorInput addresses one detector of a run
type DetectorInput struct {
	RunID    string `path:"run" validate:"required,max=64"`
	Detector string `path:"name" validate:"required,max=128"`
}
