// Package orchestrator defines the persisted record of one checkout attempt
// driven end to end through RDIE: the CheckoutRun (one Temporal workflow
// execution) and its IntentOutcomes (one row per rdie.Intent the workflow
// ran), plus the WebSocket message shapes the API layer streams to clients.
package orchestrator

import (
	"time"

	"github.com/bravebird/rdie/pkg/rdie"
)

// RunStatus is the lifecycle state of a CheckoutRun or IntentOutcome.
type RunStatus string

const (
	StatusPending  RunStatus = "pending"
	StatusRunning  RunStatus = "running"
	StatusSuccess  RunStatus = "success"
	StatusFailed   RunStatus = "failed"
	StatusCanceled RunStatus = "canceled"
)

// CheckoutRun represents a single end-to-end execution of a checkout flow:
// one Temporal workflow run driving a sequence of Intents against one
// product/cart URL.
type CheckoutRun struct {
	ID                 string     `json:"id" db:"id"`
	TemporalRunID      string     `json:"temporal_run_id" db:"temporal_run_id"`
	TemporalWorkflowID string     `json:"temporal_workflow_id" db:"temporal_workflow_id"`
	TargetURL          string     `json:"target_url" db:"target_url"`
	Status             RunStatus  `json:"status" db:"status"`
	RequestJSON        string     `json:"request" db:"request"` // serialized CheckoutRequest
	StartedAt          *time.Time `json:"started_at" db:"started_at"`
	CompletedAt        *time.Time `json:"completed_at" db:"completed_at"`
	ErrorMessage       string     `json:"error_message,omitempty" db:"error_message"`

	// Computed fields, not stored directly.
	Request  CheckoutRequest `json:"-"`
	Outcomes []IntentOutcome `json:"outcomes,omitempty"`
}

// CheckoutRequest is the input to a CheckoutRun: the page to drive and the
// ordered Intents to run against it.
type CheckoutRequest struct {
	TargetURL     string        `json:"target_url"`
	Intents       []rdie.Intent `json:"intents"`
	Headless      bool          `json:"headless"`
	TimeoutSecs   int           `json:"timeout_seconds"`
	RetryAttempts int           `json:"retry_attempts"`
}

// IntentOutcome is the persisted result of running one rdie.Intent within a
// CheckoutRun, pairing the Intent's position in the run with RDIE's Outcome.
type IntentOutcome struct {
	ID             string     `json:"id" db:"id"`
	RunID          string     `json:"run_id" db:"run_id"`
	IntentID       string     `json:"intent_id" db:"intent_id"`
	SequenceID     int        `json:"sequence_id" db:"sequence_id"`
	IntentKind     string     `json:"intent_kind" db:"intent_kind"`
	Status         RunStatus  `json:"status" db:"status"`
	Method         string     `json:"method,omitempty" db:"method"`
	MatchedText    string     `json:"matched_text,omitempty" db:"matched_text"`
	Navigated      bool       `json:"navigated" db:"navigated"`
	ScreenshotPath string     `json:"screenshot_path,omitempty" db:"screenshot_path"`
	ErrorKind      string     `json:"error_kind,omitempty" db:"error_kind"`
	ErrorMessage   string     `json:"error_message,omitempty" db:"error_message"`
	ExecutedAt     *time.Time `json:"executed_at" db:"executed_at"`
	DurationMS     int64      `json:"duration_ms,omitempty" db:"duration_ms"`
}

// FromOutcome fills in the result fields of an IntentOutcome from the
// rdie.Outcome the controller returned.
func (o *IntentOutcome) FromOutcome(outcome rdie.Outcome, duration time.Duration) {
	o.Method = outcome.Method
	o.MatchedText = outcome.MatchedText
	o.Navigated = outcome.Navigated
	o.DurationMS = duration.Milliseconds()
	if outcome.Success {
		o.Status = StatusSuccess
	} else {
		o.Status = StatusFailed
		if outcome.Error != nil {
			o.ErrorKind = string(outcome.Error.Kind)
			o.ErrorMessage = outcome.Error.Detail
		}
	}
}

// CheckoutResult is the terminal summary of a CheckoutRun, returned by the
// Temporal workflow and surfaced to API clients.
type CheckoutResult struct {
	RunID         string          `json:"run_id"`
	Status        RunStatus       `json:"status"`
	Outcomes      []IntentOutcome `json:"outcomes"`
	TotalDuration int64           `json:"total_duration_ms"`
	ErrorMessage  string          `json:"error_message,omitempty"`
}

// WSMessage is a WebSocket envelope for real-time run updates.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// IntentStatusUpdate is the WSMessage payload sent as each Intent finishes.
type IntentStatusUpdate struct {
	RunID      string    `json:"run_id"`
	IntentID   string    `json:"intent_id"`
	SequenceID int       `json:"sequence_id"`
	Status     RunStatus `json:"status"`
	Message    string    `json:"message,omitempty"`
}
