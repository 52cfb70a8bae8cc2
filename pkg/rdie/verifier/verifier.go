// Package verifier implements C6, the Verifier: after C5 acts, it decides
// whether the intended state actually holds (spec §4.6).
package verifier

import (
	"fmt"
	"strings"

	"github.com/bravebird/rdie/pkg/rdie"
	"github.com/bravebird/rdie/pkg/rdie/assets"
	"github.com/bravebird/rdie/pkg/rdie/cascade"
	"github.com/bravebird/rdie/pkg/rdie/driver"
	"github.com/bravebird/rdie/pkg/rdie/normalize"
)

// Result is C6's verdict, carrying enough detail for C7 to decide whether to
// retry with a corrected value.
type Result struct {
	Verified    bool
	Method      string
	MatchedText string
	Observed    string // the mismatching observed value, for field fills only
}

// VerifyFill implements §4.6's field-fill check: re-read the element's
// current value and compare against the intended value with C1.matches
// (phone-aware when fieldKind is "phone").
func VerifyFill(el driver.Element, intendedValue string, fieldKind rdie.FieldKind) (Result, error) {
	observed, err := el.InputValue()
	if err != nil {
		return Result{}, err
	}
	nfk := normalize.FieldKind(fieldKind)
	if normalize.Matches(observed, intendedValue, nfk) {
		return Result{Verified: true, Method: "input-value-match", MatchedText: observed}, nil
	}
	return Result{Verified: false, Observed: observed}, nil
}

type verificationResp struct {
	Verified    bool   `json:"verified"`
	Method      string `json:"method"`
	MatchedText string `json:"matchedText"`
}

// VerifySelection implements §4.6's DOM-scan path for variant/dropdown/radio
// selections, running verification.js's four priority-ordered checks.
func VerifySelection(frame driver.Frame, targetValue string) (Result, error) {
	var resp verificationResp
	if err := frame.Evaluate(assets.Verification(), []interface{}{targetValue}, &resp); err != nil {
		return Result{}, err
	}
	return Result{Verified: resp.Verified, Method: resp.Method, MatchedText: resp.MatchedText}, nil
}

// VerifyAction implements §4.6's action-intent shortcut: add-to-cart and
// checkout-style clicks have no element-level post-condition, so a
// successful C5 click is immediately verified; C7 owns the page-transition
// check.
func VerifyAction() Result {
	return Result{Verified: true, Method: "action-intent-immediate"}
}

// ScreenshotFunc takes a full-page screenshot and returns the path it was
// written to, abstracting over driver.Driver.Screenshot + a path policy the
// caller controls (spec §6: files/paths are not contracts, purely local
// convenience).
type ScreenshotFunc func() (string, error)

// VerifyViaOCR implements §4.6's OCR fallback: only ever called after a
// field-fill's DOM verification (VerifyFill) has already failed. Never used
// to confirm a selection among several siblings (spec §4.6's OCR Open
// Question — OCR cannot tell "which swatch is selected" from "which
// swatches exist"); suitable for address/field-value confirmation and
// debugging.
func VerifyViaOCR(shoot ScreenshotFunc, ocr rdie.OCRFunc, targetValue string) (Result, error) {
	if ocr == nil {
		return Result{}, nil
	}
	path, err := shoot()
	if err != nil {
		return Result{}, err
	}
	text, err := ocr(path)
	if err != nil {
		return Result{}, err
	}
	if text == "" {
		return Result{}, nil
	}

	strictTarget := normalize.NormalizeStrict(targetValue)
	strictText := normalize.NormalizeStrict(text)
	if strictTarget != "" && strings.Contains(strictText, strictTarget) {
		return Result{Verified: true, Method: "ocr-strict", MatchedText: targetValue}, nil
	}

	fuzzyTarget := normalize.Normalize(targetValue)
	fuzzyText := normalize.Normalize(text)
	if fuzzyTarget != "" && strings.Contains(fuzzyText, fuzzyTarget) {
		return Result{Verified: true, Method: "ocr-fuzzy", MatchedText: targetValue}, nil
	}

	if tokenBagMatch(fuzzyTarget, fuzzyText) {
		return Result{Verified: true, Method: "ocr-token-bag", MatchedText: targetValue}, nil
	}

	return Result{Verified: false}, nil
}

// tokenBagMatch reports whether every word of length > 2 in target appears
// somewhere in text (§4.6's third OCR strategy).
func tokenBagMatch(target, text string) bool {
	words := strings.Fields(target)
	found := false
	for _, w := range words {
		if len(w) <= 2 {
			continue
		}
		found = true
		if !strings.Contains(text, w) {
			return false
		}
	}
	return found
}

// Screenshotter builds a ScreenshotFunc against a driver.Driver, writing a
// single full-page screenshot to path each call.
func Screenshotter(d driver.Driver, path string) ScreenshotFunc {
	return func() (string, error) {
		data, err := d.Screenshot(driver.ScreenshotOptions{Path: path, FullPage: true})
		if err != nil {
			return "", err
		}
		if len(data) == 0 {
			return "", fmt.Errorf("verifier: empty screenshot")
		}
		return path, nil
	}
}

// ReadValidationErrors implements §4.6's separate validation-error-reader
// entry point: the caller (C7 or the orchestrator) uses the returned texts
// to decide whether to re-fill with a corrected value.
func ReadValidationErrors(frame driver.Frame) ([]string, error) {
	var errs []string
	if err := frame.Evaluate(assets.ValidationErrors(), nil, &errs); err != nil {
		return nil, err
	}
	return errs, nil
}

// Verify dispatches to the right §4.6 strategy for the given cascade
// action, running the OCR fallback only when DOM verification of a field
// fill fails and an OCR function is configured. Selection verification
// never falls back to OCR (spec §4.6, §9).
func Verify(d driver.Driver, res cascade.Result, intent rdie.Intent, ocr rdie.OCRFunc, screenshotPath string) (Result, error) {
	switch intent.Kind {
	case rdie.IntentClickAction:
		return VerifyAction(), nil
	case rdie.IntentFillField:
		var (
			result Result
			err    error
		)
		if res.Element != nil {
			result, err = VerifyFill(res.Element, intent.Value, intent.FieldKind)
		} else {
			var el driver.Element
			el, err = res.Frame.QuerySelector(fmt.Sprintf(`[%s="%s"]`, res.MarkerAttr, res.MarkerVal))
			if err != nil || el == nil {
				return Result{}, err
			}
			result, err = VerifyFill(el, intent.Value, intent.FieldKind)
		}
		if err != nil || result.Verified || ocr == nil {
			return result, err
		}
		return VerifyViaOCR(Screenshotter(d, screenshotPath), ocr, intent.Value)
	case rdie.IntentSelectVariant, rdie.IntentSelectDropdown:
		// OCR is never used to confirm which sibling among several is
		// selected: it can tell a value is present on the page, not which
		// swatch/option the DOM actually has selected (spec §4.6, §9 — known
		// to produce false positives). DOM verification is the only signal.
		target := intent.VariantValue
		if target == "" {
			target = intent.Value
		}
		return VerifySelection(res.Frame, target)
	case rdie.IntentCheckbox:
		return VerifyAction(), nil
	default:
		return VerifyAction(), nil
	}
}
