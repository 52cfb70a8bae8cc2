package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bravebird/rdie/pkg/orchestrator"

	_ "github.com/go-sql-driver/mysql"
)

// DB represents the database connection
type DB struct {
	conn *sql.DB
}

// New creates a new database connection
func New(dsn string) (*DB, error) {
	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// ==================== Checkout Runs ====================

// CreateCheckoutRun creates a new checkout run
func (db *DB) CreateCheckoutRun(ctx context.Context, run *orchestrator.CheckoutRun) error {
	query := `
		INSERT INTO checkout_runs (id, temporal_run_id, temporal_workflow_id, target_url, status, request)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := db.conn.ExecContext(ctx, query,
		run.ID,
		run.TemporalRunID,
		run.TemporalWorkflowID,
		run.TargetURL,
		run.Status,
		run.RequestJSON,
	)

	return err
}

// GetCheckoutRun retrieves a checkout run by ID
func (db *DB) GetCheckoutRun(ctx context.Context, id string) (*orchestrator.CheckoutRun, error) {
	query := `
		SELECT id, temporal_run_id, temporal_workflow_id, target_url, status,
		       request, started_at, completed_at, error_message
		FROM checkout_runs
		WHERE id = ?
	`

	var run orchestrator.CheckoutRun
	err := db.conn.QueryRowContext(ctx, query, id).Scan(
		&run.ID,
		&run.TemporalRunID,
		&run.TemporalWorkflowID,
		&run.TargetURL,
		&run.Status,
		&run.RequestJSON,
		&run.StartedAt,
		&run.CompletedAt,
		&run.ErrorMessage,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return &run, nil
}

// ListCheckoutRuns retrieves the most recent checkout runs.
func (db *DB) ListCheckoutRuns(ctx context.Context, limit int) ([]orchestrator.CheckoutRun, error) {
	query := `
		SELECT id, temporal_run_id, temporal_workflow_id, target_url, status,
		       request, started_at, completed_at, error_message
		FROM checkout_runs
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []orchestrator.CheckoutRun
	for rows.Next() {
		var run orchestrator.CheckoutRun
		err := rows.Scan(
			&run.ID,
			&run.TemporalRunID,
			&run.TemporalWorkflowID,
			&run.TargetURL,
			&run.Status,
			&run.RequestJSON,
			&run.StartedAt,
			&run.CompletedAt,
			&run.ErrorMessage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, nil
}

// UpdateCheckoutRunStatus updates the status of a checkout run
func (db *DB) UpdateCheckoutRunStatus(ctx context.Context, id string, status orchestrator.RunStatus, errorMsg string) error {
	query := `
		UPDATE checkout_runs
		SET status = ?, error_message = ?,
		    completed_at = CASE WHEN ? IN ('success', 'failed', 'canceled') THEN NOW() ELSE completed_at END
		WHERE id = ?
	`

	_, err := db.conn.ExecContext(ctx, query, status, errorMsg, status, id)
	return err
}

// ==================== Intent Outcomes ====================

// CreateIntentOutcome records that an Intent has started running.
func (db *DB) CreateIntentOutcome(ctx context.Context, outcome *orchestrator.IntentOutcome) error {
	query := `
		INSERT INTO intent_outcomes (id, run_id, intent_id, sequence_id, intent_kind, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := db.conn.ExecContext(ctx, query,
		outcome.ID,
		outcome.RunID,
		outcome.IntentID,
		outcome.SequenceID,
		outcome.IntentKind,
		outcome.Status,
	)

	return err
}

// UpdateIntentOutcome persists the terminal result of one Intent.
func (db *DB) UpdateIntentOutcome(ctx context.Context, outcome *orchestrator.IntentOutcome) error {
	query := `
		UPDATE intent_outcomes
		SET status = ?, method = ?, matched_text = ?, navigated = ?,
		    screenshot_path = ?, error_kind = ?, error_message = ?,
		    executed_at = ?, duration_ms = ?
		WHERE id = ?
	`

	_, err := db.conn.ExecContext(ctx, query,
		outcome.Status,
		outcome.Method,
		outcome.MatchedText,
		outcome.Navigated,
		outcome.ScreenshotPath,
		outcome.ErrorKind,
		outcome.ErrorMessage,
		outcome.ExecutedAt,
		outcome.DurationMS,
		outcome.ID,
	)

	return err
}

// GetIntentOutcomes retrieves every Intent outcome for a run, in the order
// the controller ran them.
func (db *DB) GetIntentOutcomes(ctx context.Context, runID string) ([]orchestrator.IntentOutcome, error) {
	query := `
		SELECT id, run_id, intent_id, sequence_id, intent_kind, status, method,
		       matched_text, navigated, screenshot_path, error_kind, error_message,
		       executed_at, duration_ms
		FROM intent_outcomes
		WHERE run_id = ?
		ORDER BY sequence_id
	`

	rows, err := db.conn.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []orchestrator.IntentOutcome
	for rows.Next() {
		var o orchestrator.IntentOutcome
		err := rows.Scan(
			&o.ID,
			&o.RunID,
			&o.IntentID,
			&o.SequenceID,
			&o.IntentKind,
			&o.Status,
			&o.Method,
			&o.MatchedText,
			&o.Navigated,
			&o.ScreenshotPath,
			&o.ErrorKind,
			&o.ErrorMessage,
			&o.ExecutedAt,
			&o.DurationMS,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		outcomes = append(outcomes, o)
	}

	return outcomes, nil
}
