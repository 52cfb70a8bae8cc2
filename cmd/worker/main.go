package main

import (
	"log"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/bravebird/rdie/internal/config"
	"github.com/bravebird/rdie/internal/rdielog"
	"github.com/bravebird/rdie/pkg/rdie/ocr"
	"github.com/bravebird/rdie/pkg/temporal/activities"
	"github.com/bravebird/rdie/pkg/temporal/workflows"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := rdielog.New(cfg.Logging.Level, cfg.Logging.JSON)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	c, err := client.Dial(client.Options{HostPort: cfg.Temporal.HostPort})
	if err != nil {
		logger.Fatalw("failed to create Temporal client", "error", err)
	}
	defer c.Close()

	ocrEngine, err := ocr.NewTesseract()
	var ocrFunc = ocr.NoOp
	if err != nil {
		logger.Warnw("tesseract unavailable, OCR disabled", "error", err)
	} else {
		ocrFunc = ocrEngine.Read
		defer ocrEngine.Close()
	}

	acts := activities.NewActivities(cfg.Browser.ScreenshotDir, ocrFunc, logger)

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     5,
		MaxConcurrentWorkflowTaskExecutionSize: 10,
	})

	w.RegisterWorkflow(workflows.CheckoutWorkflow)

	w.RegisterActivity(acts.InitializeBrowserActivity)
	w.RegisterActivity(acts.CloseBrowserActivity)
	w.RegisterActivity(acts.ExecuteIntentActivity)
	w.RegisterActivity(acts.TakeScreenshotActivity)

	logger.Infow("starting Temporal worker", "taskQueue", cfg.Temporal.TaskQueue, "temporalHost", cfg.Temporal.HostPort)

	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Fatalw("worker failed", "error", err)
	}
}
