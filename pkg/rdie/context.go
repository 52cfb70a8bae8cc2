package rdie

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bravebird/rdie/pkg/rdie/driver"
	"github.com/bravebird/rdie/pkg/rdie/keyword"
)

// Context is the explicit collaborator bundle threaded through every C1-C7
// call, replacing the source's module-level singleton "current page"
// reference (spec §9 Design Notes). Callers build one Context per browser
// session and reuse it across sequential Intents.
type Context struct {
	Driver   driver.Driver
	Keywords *keyword.Registry
	Logger   *zap.SugaredLogger
	OCR      OCRFunc

	// ScreenshotDir is where the Verifier's OCR fallback and debug dumps
	// are written. Not a contract (§6 "Environment/CLI/files... are not
	// contracts"), purely a local convenience default.
	ScreenshotDir string
}

// OCRFunc is the optional OCR contract (§6): imageToString(path) -> string.
// RDIE never blocks on OCR being installed; a nil OCRFunc simply disables
// the OCR fallback path in the Verifier.
type OCRFunc func(path string) (string, error)

// NewMarkerID returns a fresh, per-call random suffix for DOM markers
// (data-element-index-<id>, data-rdie-marker-<id>), satisfying the
// single-use/no-collision invariant in §3.
func NewMarkerID() string {
	return uuid.New().String()
}

// WithLogger returns a shallow copy of c with Logger replaced, useful for
// attaching per-Intent structured fields (intent, attempt) without mutating
// the shared Context.
func (c Context) WithLogger(l *zap.SugaredLogger) Context {
	c.Logger = l
	return c
}
