// Command demo drives a single CheckoutRun directly against RDIE, without
// a Temporal server, for local manual testing of Intent sequences.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"

	"github.com/bravebird/rdie/internal/config"
	"github.com/bravebird/rdie/internal/popup"
	"github.com/bravebird/rdie/internal/rdielog"
	"github.com/bravebird/rdie/pkg/orchestrator"
	"github.com/bravebird/rdie/pkg/rdie"
	"github.com/bravebird/rdie/pkg/rdie/controller"
	"github.com/bravebird/rdie/pkg/rdie/driver"
	"github.com/bravebird/rdie/pkg/rdie/keyword"
	"github.com/bravebird/rdie/pkg/rdie/ocr"
	"github.com/bravebird/rdie/pkg/rdie/shipping"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("usage: demo <target-url> <intents.json>")
		os.Exit(1)
	}
	targetURL := os.Args[1]
	intentsPath := os.Args[2]

	cfg, err := config.Load()
	if err != nil {
		fmt.Println("failed to load configuration:", err)
		os.Exit(1)
	}

	logger, err := rdielog.New(cfg.Logging.Level, false)
	if err != nil {
		fmt.Println("failed to build logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	raw, err := os.ReadFile(intentsPath)
	if err != nil {
		logger.Fatalw("failed to read intents file", "error", err)
	}
	var intents []rdie.Intent
	if err := json.Unmarshal(raw, &intents); err != nil {
		logger.Fatalw("failed to parse intents file", "error", err)
	}
	for i := range intents {
		if intents[i].ID == "" {
			intents[i].ID = uuid.New().String()
		}
	}

	l := launcher.New().Headless(cfg.Browser.Headless)
	if cfg.Browser.ChromeBin != "" {
		l = l.Bin(cfg.Browser.ChromeBin)
	}
	l = l.Set("no-sandbox").Set("disable-gpu").Set("disable-dev-shm-usage")

	controlURL, err := l.Launch()
	if err != nil {
		logger.Fatalw("failed to launch browser", "error", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		logger.Fatalw("failed to connect to browser", "error", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		logger.Fatalw("failed to create page", "error", err)
	}

	rodDriver := driver.NewRodPage(page)
	if err := rodDriver.Goto(targetURL, driver.NavigateOptions{WaitUntil: "load", Timeout: 30 * time.Second}); err != nil {
		logger.Fatalw("failed to navigate", "error", err)
	}

	popup.New(rodDriver, logger).Comprehensive()

	ocrFunc := ocr.NoOp
	if engine, err := ocr.NewTesseract(); err == nil {
		ocrFunc = engine.Read
		defer engine.Close()
	}

	rdieCtx := rdie.Context{
		Driver:        rodDriver,
		Keywords:      keyword.NewRegistry(nil, nil),
		Logger:        logger,
		OCR:           ocrFunc,
		ScreenshotDir: cfg.Browser.ScreenshotDir,
	}
	ctl := controller.New(rdieCtx)
	shipper := shipping.New(rodDriver)

	result := orchestrator.CheckoutResult{Status: orchestrator.StatusRunning}
	start := time.Now()

	for i, intent := range intents {
		logger.Infow("running intent", "sequence", i, "intent", intent.String())

		var (
			outcome rdie.Outcome
			err     error
		)
		if intent.Kind == rdie.IntentSelectCheapestShipping {
			outcome, err = shipper.SelectCheapest(intent.MaxRetries)
		} else {
			outcome, err = ctl.Run(intent)
		}
		ioResult := orchestrator.IntentOutcome{
			SequenceID: i,
			IntentID:   intent.ID,
			IntentKind: string(intent.Kind),
		}
		if err != nil {
			ioResult.Status = orchestrator.StatusFailed
			ioResult.ErrorMessage = err.Error()
			result.Outcomes = append(result.Outcomes, ioResult)
			result.Status = orchestrator.StatusFailed
			result.ErrorMessage = fmt.Sprintf("intent %s: %v", intent.String(), err)
			break
		}

		ioResult.FromOutcome(outcome, time.Since(start))
		result.Outcomes = append(result.Outcomes, ioResult)

		if ioResult.Status != orchestrator.StatusSuccess && intent.Kind != rdie.IntentCheckbox {
			result.Status = orchestrator.StatusFailed
			result.ErrorMessage = fmt.Sprintf("intent %s failed: %s", intent.String(), ioResult.ErrorMessage)
			break
		}
	}

	if result.Status == orchestrator.StatusRunning {
		result.Status = orchestrator.StatusSuccess
	}
	result.TotalDuration = time.Since(start).Milliseconds()

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))

	if result.Status != orchestrator.StatusSuccess {
		os.Exit(1)
	}
}
