package models

import "time"

// Report describes the outcome of one monitoring run.
type Report struct {
	// RunID correlates log lines and API responses for one run.
	RunID string `json:"run_id"`

	// Result is nil when extraction failed entirely.
	Result *CheckResult `json:"result,omitempty"`

	// MissingFields lists the fields that could not be read.
	MissingFields []Field `json:"missing_fields,omitempty"`

	// NotifyAttempted is true when the notifier was invoked.
	NotifyAttempted bool `json:"notify_attempted"`

	// Notified is true when the webhook acknowledged the alert.
	Notified bool `json:"notified"`

	// LayoutFingerprint is the SimHash of the rendered DOM structure, in hex.
	LayoutFingerprint string `json:"layout_fingerprint,omitempty"`

	// LayoutDistance is the Hamming distance to the pinned fingerprint,
	// or -1 when no fingerprint is pinned.
	LayoutDistance int `json:"layout_distance"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
}

// CheckResponse is the response for POST /api/v1/check.
type CheckResponse struct {
	Success bool         `json:"success"`
	Report  *Report      `json:"report,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string   `json:"status"` // "healthy" or "busy"
	Uptime  string   `json:"uptime"`
	Runs    RunStats `json:"runs"`
	Version string   `json:"version"`
}

// RunStats counts runs since the process started.
type RunStats struct {
	Total   int64 `json:"total"`
	Failed  int64 `json:"failed"`
	Running bool  `json:"running"`
}
