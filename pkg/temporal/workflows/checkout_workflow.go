package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/bravebird/rdie/pkg/orchestrator"
	"github.com/bravebird/rdie/pkg/rdie"
)

// CheckoutWorkflow drives one CheckoutRequest end to end: it launches a
// browser session, runs every Intent through RDIE in order, and records an
// IntentOutcome per Intent (spec §9's "demo orchestrator ... calls RDIE per
// Intent" wired as one Temporal Activity per Intent, mirroring the teacher's
// one-activity-per-SemanticAction workflow shape).
func CheckoutWorkflow(ctx workflow.Context, input orchestrator.CheckoutRequest) (orchestrator.CheckoutResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("starting checkout workflow", "targetURL", input.TargetURL, "intents", len(input.Intents))

	result := orchestrator.CheckoutResult{
		Status:   orchestrator.StatusRunning,
		Outcomes: make([]orchestrator.IntentOutcome, 0, len(input.Intents)),
	}

	err := workflow.SetQueryHandler(ctx, "getProgress", func() (orchestrator.CheckoutResult, error) {
		return result, nil
	})
	if err != nil {
		logger.Error("failed to register query handler", "error", err)
	}

	startTime := workflow.Now(ctx)

	timeout := time.Duration(input.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	retries := input.RetryAttempts
	if retries <= 0 {
		retries = 3
	}

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		HeartbeatTimeout:    20 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        time.Minute,
			MaximumAttempts:        int32(retries),
			NonRetryableErrorTypes: []string{"FatalBrowserError"},
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	var session BrowserSession
	err = workflow.ExecuteActivity(ctx, "InitializeBrowserActivity", BrowserInitInput{
		Headless:  input.Headless,
		TargetURL: input.TargetURL,
	}).Get(ctx, &session)
	if err != nil {
		result.Status = orchestrator.StatusFailed
		result.ErrorMessage = "failed to initialize browser: " + err.Error()
		return result, nil
	}

	defer func() {
		_ = workflow.ExecuteActivity(ctx, "CloseBrowserActivity", session.SessionID).Get(ctx, nil)
	}()

	for i, intent := range input.Intents {
		logger.Info("running intent", "sequence", i, "kind", intent.Kind)

		var outcome orchestrator.IntentOutcome
		actErr := workflow.ExecuteActivity(ctx, "ExecuteIntentActivity", ExecuteIntentInput{
			SessionID:  session.SessionID,
			Intent:     intent,
			SequenceID: i,
		}).Get(ctx, &outcome)

		outcome.SequenceID = i
		outcome.IntentID = intent.ID
		outcome.IntentKind = string(intent.Kind)

		if actErr != nil {
			outcome.Status = orchestrator.StatusFailed
			outcome.ErrorMessage = actErr.Error()

			var screenshotPath string
			_ = workflow.ExecuteActivity(ctx, "TakeScreenshotActivity", ScreenshotInput{
				SessionID: session.SessionID,
				Filename:  intent.ID + "_failure.png",
			}).Get(ctx, &screenshotPath)
			outcome.ScreenshotPath = screenshotPath
		}

		result.Outcomes = append(result.Outcomes, outcome)

		if outcome.Status != orchestrator.StatusSuccess && !continueOnFailure(intent) {
			result.Status = orchestrator.StatusFailed
			result.ErrorMessage = "intent " + intent.String() + " failed: " + outcome.ErrorMessage
			break
		}
	}

	result.TotalDuration = workflow.Now(ctx).Sub(startTime).Milliseconds()

	if result.Status != orchestrator.StatusFailed {
		allSuccess := true
		for _, o := range result.Outcomes {
			if o.Status != orchestrator.StatusSuccess {
				allSuccess = false
				break
			}
		}
		if allSuccess {
			result.Status = orchestrator.StatusSuccess
		} else {
			result.Status = orchestrator.StatusFailed
		}
	}

	logger.Info("checkout workflow completed", "status", result.Status, "duration", result.TotalDuration)
	return result, nil
}

// continueOnFailure reports whether the workflow should keep running
// subsequent Intents after one fails. Checkbox Intents are typically
// optional marketing opt-ins; everything else (field fills, selections,
// and the add-to-cart/checkout actions) is load-bearing for the rest of
// the sequence.
func continueOnFailure(intent rdie.Intent) bool {
	return intent.Kind == rdie.IntentCheckbox
}

// BrowserSession holds the live browser session handle an Activity
// returned; the session itself lives in the Activities process, keyed by
// SessionID (Temporal workflow code never touches rod/browser objects
// directly).
type BrowserSession struct {
	SessionID string `json:"session_id"`
}

// BrowserInitInput is the input for browser initialization.
type BrowserInitInput struct {
	Headless  bool   `json:"headless"`
	TargetURL string `json:"target_url"`
}

// ExecuteIntentInput is the input for running a single rdie.Intent.
type ExecuteIntentInput struct {
	SessionID  string      `json:"session_id"`
	Intent     rdie.Intent `json:"intent"`
	SequenceID int         `json:"sequence_id"`
}

// ScreenshotInput is the input for taking a screenshot.
type ScreenshotInput struct {
	SessionID string `json:"session_id"`
	Filename  string `json:"filename"`
}
