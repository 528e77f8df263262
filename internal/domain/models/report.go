package models

import "time"

// Status distinguishes a populated result from an empty one. Failures are
// returned as errors.
type Status string

const (
	StatusOK    Status = "ok"
	StatusEmpty Status = "empty"
)

// Report wraps a view result with run metadata.
type Report[T any] struct {
	RunID       string    `json:"run_id"`
	View        string    `json:"view"`
	Status      Status    `json:"status"`
	GeneratedAt time.Time `json:"generated_at"`
	Data        T         `json:"data"`
	Failed      []string  `json:"failed,omitempty"`
	Warnings    []string  `json:"warnings,omitempty"`
}

// Warn appends a warning message.
func (r *Report[T]) Warn(msg string) { r.Warnings = append(r.Warnings, msg) }

// RunEvent is published after every pipeline run.
type RunEvent struct {
	RunID      string    `json:"run_id"`
	View       string    `json:"view"`
	Status     Status    `json:"status"`
	Requested  int       `json:"requested"`
	Failed     []string  `json:"failed,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	At         time.Time `json:"at"`
}
