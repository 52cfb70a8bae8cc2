// Package ocr implements the OCR contract spec §6 requires RDIE to accept
// without ever hard-depending on: OCR is "opt-in (enabled iff an OCR engine
// is available)" (§4.6). Callers pass an rdie.OCRFunc; this package
// provides a no-op (always-miss) implementation and a real one backed by
// Tesseract. gosseract.NewClient always returns a client, so an engine that
// cannot run is reported as an error from Read, not at construction time.
package ocr

import (
	"errors"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// ErrUnavailable is returned by NewTesseract when no OCR engine can be
// constructed (e.g. the tesseract binary/data files are not installed).
// Callers should fall back to NoOp, not fail startup.
var ErrUnavailable = errors.New("ocr: tesseract engine unavailable")

// NoOp always reports no text found; RDIE degrades to DOM-only verification
// when wired with it (spec §4.6 "OCR is opt-in").
func NoOp(path string) (string, error) {
	return "", nil
}

// Tesseract wraps a gosseract client for one-off, full-page-screenshot OCR
// calls. It is not safe for concurrent use from multiple goroutines (mirrors
// gosseract's own client, which is stateful per call).
type Tesseract struct {
	client *gosseract.Client
}

// NewTesseract constructs a Tesseract OCR function. It returns
// ErrUnavailable only if gosseract hands back no client; it does not probe
// whether the engine can actually run. RDIE's Context.OCR field should be
// left nil (or set to NoOp) on that error rather than aborting startup.
func NewTesseract() (*Tesseract, error) {
	client := gosseract.NewClient()
	if client == nil {
		return nil, ErrUnavailable
	}
	return &Tesseract{client: client}, nil
}

// Read implements rdie.OCRFunc: runs OCR on the screenshot at path and
// returns the extracted text.
func (t *Tesseract) Read(path string) (string, error) {
	if err := t.client.SetImage(path); err != nil {
		return "", fmt.Errorf("ocr: set image: %w", err)
	}
	text, err := t.client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr: extract text: %w", err)
	}
	return text, nil
}

// Close releases the underlying Tesseract client.
func (t *Tesseract) Close() error {
	return t.client.Close()
}
