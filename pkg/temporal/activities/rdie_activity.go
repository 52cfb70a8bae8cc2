package activities

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"

	"github.com/bravebird/rdie/internal/popup"
	"github.com/bravebird/rdie/pkg/orchestrator"
	"github.com/bravebird/rdie/pkg/rdie"
	"github.com/bravebird/rdie/pkg/rdie/controller"
	"github.com/bravebird/rdie/pkg/rdie/driver"
	"github.com/bravebird/rdie/pkg/rdie/keyword"
	"github.com/bravebird/rdie/pkg/rdie/ocr"
	"github.com/bravebird/rdie/pkg/rdie/shipping"
	"github.com/bravebird/rdie/pkg/temporal/workflows"
)

// BrowserPool holds the live rod.Browser/rod.Page a session owns; Temporal
// workflow code never sees these, only the opaque SessionID (mirrors the
// teacher's session-pool pattern).
type BrowserPool struct {
	sessions map[string]*BrowserSessionData
	mu       sync.RWMutex
}

// BrowserSessionData is one session's live browser handles plus the RDIE
// collaborators built against them.
type BrowserSessionData struct {
	Browser   *rod.Browser
	Page      *rod.Page
	Driver    driver.Driver
	Dismisser *popup.Dismisser
	CreatedAt time.Time
}

var browserPool = &BrowserPool{
	sessions: make(map[string]*BrowserSessionData),
}

// Activities holds activity implementations and their shared configuration.
type Activities struct {
	ScreenshotDir string
	OCR           rdie.OCRFunc
	Logger        *zap.SugaredLogger
	Keywords      *keyword.Registry
}

// NewActivities constructs Activities. If ocrEngine is nil, OCR falls back
// to ocr.NoOp (spec §6: RDIE never blocks on OCR being installed).
func NewActivities(screenshotDir string, ocrEngine rdie.OCRFunc, logger *zap.SugaredLogger) *Activities {
	if ocrEngine == nil {
		ocrEngine = ocr.NoOp
	}
	return &Activities{
		ScreenshotDir: screenshotDir,
		OCR:           ocrEngine,
		Logger:        logger,
		Keywords:      keyword.NewRegistry(nil, nil),
	}
}

// InitializeBrowserActivity launches a browser, navigates to the target
// URL, and runs one popup-dismissal pass before handing control to RDIE.
func (a *Activities) InitializeBrowserActivity(ctx context.Context, input workflows.BrowserInitInput) (workflows.BrowserSession, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("initializing browser session", "headless", input.Headless)

	l := launcher.New()
	if chromeBin := os.Getenv("CHROME_BIN"); chromeBin != "" {
		l = l.Bin(chromeBin)
	}
	l = l.Headless(input.Headless)
	l = l.Set("no-sandbox")
	l = l.Set("disable-gpu")
	l = l.Set("disable-dev-shm-usage")

	url, err := l.Launch()
	if err != nil {
		return workflows.BrowserSession{}, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		return workflows.BrowserSession{}, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		browser.Close()
		return workflows.BrowserSession{}, fmt.Errorf("failed to create page: %w", err)
	}

	rodDriver := driver.NewRodPage(page)
	if input.TargetURL != "" {
		if err := rodDriver.Goto(input.TargetURL, driver.NavigateOptions{WaitUntil: "load", Timeout: 30 * time.Second}); err != nil {
			browser.Close()
			return workflows.BrowserSession{}, fmt.Errorf("failed to navigate: %w", err)
		}
	}

	dismisser := popup.New(rodDriver, a.Logger)
	dismisser.Comprehensive()

	sessionID := uuid.New().String()
	browserPool.mu.Lock()
	browserPool.sessions[sessionID] = &BrowserSessionData{
		Browser:   browser,
		Page:      page,
		Driver:    rodDriver,
		Dismisser: dismisser,
		CreatedAt: time.Now(),
	}
	browserPool.mu.Unlock()

	logger.Info("browser session created", "sessionID", sessionID)
	return workflows.BrowserSession{SessionID: sessionID}, nil
}

// CloseBrowserActivity tears down a browser session.
func (a *Activities) CloseBrowserActivity(ctx context.Context, sessionID string) error {
	logger := activity.GetLogger(ctx)
	logger.Info("closing browser session", "sessionID", sessionID)

	browserPool.mu.Lock()
	defer browserPool.mu.Unlock()

	session, ok := browserPool.sessions[sessionID]
	if !ok {
		return nil
	}
	if session.Browser != nil {
		session.Browser.Close()
	}
	delete(browserPool.sessions, sessionID)
	return nil
}

// ExecuteIntentActivity runs one rdie.Intent against the session's live
// page, recording the Outcome as an IntentOutcome (spec §9: one Temporal
// Activity per Intent). Every Intent kind but
// IntentSelectCheapestShipping goes through the C7 controller; that one has
// no Searching/Acting/Verifying pass of its own and runs its own
// scan/compare/click/verify loop instead (see pkg/rdie/shipping).
func (a *Activities) ExecuteIntentActivity(ctx context.Context, input workflows.ExecuteIntentInput) (orchestrator.IntentOutcome, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("executing intent", "kind", input.Intent.Kind, "sequence", input.SequenceID)

	browserPool.mu.RLock()
	session, ok := browserPool.sessions[input.SessionID]
	browserPool.mu.RUnlock()
	if !ok {
		return orchestrator.IntentOutcome{}, fmt.Errorf("browser session not found: %s", input.SessionID)
	}

	start := time.Now()

	var (
		outcome rdie.Outcome
		err     error
	)
	if input.Intent.Kind == rdie.IntentSelectCheapestShipping {
		outcome, err = shipping.New(session.Driver).SelectCheapest(input.Intent.MaxRetries)
	} else {
		rdieCtx := rdie.Context{
			Driver:        session.Driver,
			Keywords:      a.Keywords,
			OCR:           a.OCR,
			ScreenshotDir: a.ScreenshotDir,
		}
		ctl := controller.New(rdieCtx)
		outcome, err = ctl.Run(input.Intent)
	}
	if err != nil {
		return orchestrator.IntentOutcome{}, err
	}

	activity.RecordHeartbeat(ctx, fmt.Sprintf("completed intent %d", input.SequenceID))

	result := orchestrator.IntentOutcome{
		SequenceID: input.SequenceID,
		IntentID:   input.Intent.ID,
		IntentKind: string(input.Intent.Kind),
	}
	result.FromOutcome(outcome, time.Since(start))

	if !outcome.Success {
		if outcome.Error != nil && outcome.Error.Kind != rdie.ErrBrowserDisconnected {
			return result, temporal.NewNonRetryableApplicationError(outcome.Error.Error(), string(outcome.Error.Kind), nil)
		}
		return result, fmt.Errorf("%s", outcome.Error.Error())
	}
	return result, nil
}

// TakeScreenshotActivity captures a full-page screenshot for a session.
func (a *Activities) TakeScreenshotActivity(ctx context.Context, input workflows.ScreenshotInput) (string, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("taking screenshot", "sessionID", input.SessionID)

	browserPool.mu.RLock()
	session, ok := browserPool.sessions[input.SessionID]
	browserPool.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("browser session not found")
	}

	if err := os.MkdirAll(a.ScreenshotDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create screenshot dir: %w", err)
	}

	path := filepath.Join(a.ScreenshotDir, input.Filename)
	data, err := session.Driver.Screenshot(driver.ScreenshotOptions{Path: path, FullPage: true})
	if err != nil {
		return "", fmt.Errorf("failed to take screenshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save screenshot: %w", err)
	}
	return path, nil
}
