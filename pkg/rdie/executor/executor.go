// Package executor implements C5, the Action Executor: given C4's winning
// candidate, it performs the implied action under the scan-plan-act
// discipline (spec §4.5 preamble) and the eight per-action strategies
// (§4.5.1-4.5.8).
package executor

import (
	"fmt"
	"time"

	"github.com/bravebird/rdie/pkg/rdie"
	"github.com/bravebird/rdie/pkg/rdie/assets"
	"github.com/bravebird/rdie/pkg/rdie/cascade"
	"github.com/bravebird/rdie/pkg/rdie/driver"
)

const (
	maxReacquireAttempts = 3
	scrollNudgePixels    = 300
	dropdownPollAttempts = 3
	dependentWaitTries   = 10
)

// sleep is overridden in tests to make scan-plan-act's re-stabilization
// waits instantaneous.
var sleep = time.Sleep

// inspectResp mirrors assets.InspectElement's return shape.
type inspectResp struct {
	Found       bool         `json:"found"`
	Kind        string       `json:"kind"`
	Geometry    rdie.Geometry `json:"geometry"`
	Interactive bool         `json:"interactive"`
}

func marker(markerAttr, markerVal string) string {
	return fmt.Sprintf(`[%s="%s"]`, markerAttr, markerVal)
}

// reacquire re-reads an element's live geometry by marker attribute, the
// scan-plan-act precondition for every pointer event (spec §4.5 preamble).
func reacquire(frame driver.Frame, markerAttr, markerVal string) (inspectResp, error) {
	var resp inspectResp
	err := frame.Evaluate(assets.InspectElement(), []interface{}{markerAttr, markerVal}, &resp)
	return resp, err
}

// ensureActionable runs the scan-plan-act scroll loop until the marked
// element is visible, in viewport, and not obscured, or returns a typed
// failure.
func ensureActionable(frame driver.Frame, markerAttr, markerVal string) (inspectResp, error) {
	var last inspectResp
	for attempt := 1; attempt <= maxReacquireAttempts; attempt++ {
		resp, err := reacquire(frame, markerAttr, markerVal)
		if err != nil {
			return inspectResp{}, err
		}
		last = resp
		if !resp.Found {
			return inspectResp{}, &rdie.OutcomeError{Kind: rdie.ErrNotFound, Detail: "marked element vanished during scan-plan-act"}
		}
		if !resp.Geometry.Visible() {
			return inspectResp{}, &rdie.OutcomeError{Kind: rdie.ErrNotVisible, Detail: "element has zero area"}
		}
		if !resp.Geometry.InViewport {
			el, qerr := frame.QuerySelector(marker(markerAttr, markerVal))
			if qerr == nil && el != nil {
				el.ScrollIntoViewIfNeeded()
			}
			sleep(50 * time.Millisecond)
			continue
		}
		if resp.Geometry.ObscuredByPoint {
			frame.Evaluate(`(function(dy){ window.scrollBy(0, dy); return {}; })`, []interface{}{scrollNudgePixels}, nil)
			sleep(50 * time.Millisecond)
			continue
		}
		return resp, nil
	}
	if last.Geometry.ObscuredByPoint {
		return inspectResp{}, &rdie.OutcomeError{Kind: rdie.ErrObscured, Detail: "element remained obscured after scroll attempts"}
	}
	return inspectResp{}, &rdie.OutcomeError{Kind: rdie.ErrNotVisible, Detail: "element never entered the viewport"}
}

type actionClickResp struct {
	Dispatched bool   `json:"dispatched"`
	Strategy   string `json:"strategy"`
}

// clickMarked performs §4.5.1's click strategy chain: a real coordinate
// click via the driver first (el.Click), falling back to the JS strategies
// in action_click.js only if the driver-level click could not be confirmed
// dispatched.
func clickMarked(frame driver.Frame, markerAttr, markerVal string) (method string, err error) {
	if _, err := ensureActionable(frame, markerAttr, markerVal); err != nil {
		return "", err
	}
	el, err := frame.QuerySelector(marker(markerAttr, markerVal))
	if err != nil {
		return "", err
	}
	if el != nil {
		if cerr := el.Click(driver.ClickOptions{}); cerr == nil {
			return "coordinate-click", nil
		}
	}
	var resp actionClickResp
	if err := frame.Evaluate(assets.ActionClick(), []interface{}{markerAttr, markerVal}, &resp); err != nil {
		return "", err
	}
	if !resp.Dispatched {
		return "", &rdie.OutcomeError{Kind: rdie.ErrNotInteractive, Detail: "no click strategy dispatched"}
	}
	return resp.Strategy, nil
}

// Execute performs the action implied by a cascade.Result for the given
// Intent, returning the method string Outcome.Method reports. d is only
// needed for iframe_type, which must type via the driver's page-level
// keyboard API rather than DOM manipulation (the payment iframe is
// cross-origin).
func Execute(d driver.Driver, res cascade.Result, intent rdie.Intent) (string, error) {
	if intent.Kind == rdie.IntentCheckbox {
		return executeCheckbox(res, intent)
	}
	switch res.Action {
	case "click":
		return clickMarked(res.Frame, res.MarkerAttr, res.MarkerVal)
	case "select":
		return executeSelect(res, intent)
	case "dropdown":
		return executeDropdown(d, res, intent)
	case "fill":
		return executeFill(res, intent)
	case "iframe_type":
		return executeIframeType(d, res, intent)
	case "quantity_input":
		return executeQuantityInput(res, intent)
	case "quantity_buttons":
		return executeQuantityButtons(res, intent)
	default:
		return "", &rdie.OutcomeError{Kind: rdie.ErrUnsupported, Detail: "no executor for action " + res.Action}
	}
}

// executeSelect implements §4.5.2: element.value = option; dispatch change.
// RodElement.SelectOption selects by the option's visible text (spec:
// "search options with C1.matches and pick the first whose text ... or
// value matches").
func executeSelect(res cascade.Result, intent rdie.Intent) (string, error) {
	if _, err := ensureActionable(res.Frame, res.MarkerAttr, res.MarkerVal); err != nil {
		return "", err
	}
	el, err := res.Frame.QuerySelector(marker(res.MarkerAttr, res.MarkerVal))
	if err != nil {
		return "", err
	}
	if el == nil {
		return "", &rdie.OutcomeError{Kind: rdie.ErrNotFound, Detail: "select element vanished"}
	}
	if err := el.SelectOption(intent.Value); err != nil {
		return "", &rdie.OutcomeError{Kind: rdie.ErrValueRejected, Detail: err.Error()}
	}
	return "native-select", nil
}

type dropdownResp struct {
	Opened         bool   `json:"opened"`
	MatchedSelector string `json:"matchedSelector"`
}

type optionCountResp struct {
	Count int `json:"count"`
}

// executeDropdown implements §4.5.3: open the trigger, poll for newly
// rendered options, click the matching one; falls back to type-ahead if no
// option matched textually.
func executeDropdown(d driver.Driver, res cascade.Result, intent rdie.Intent) (string, error) {
	var before optionCountResp
	res.Frame.Evaluate(
		`(function(a,v){ var t=document.querySelector("["+a+'="'+v+'"]'); var c=t?(t.closest('[role=combobox], .v-select, [class*=dropdown]')||t.parentElement):document; return {count:c.querySelectorAll('[role=option], li, .item, .option').length}; })`,
		[]interface{}{res.MarkerAttr, res.MarkerVal}, &before,
	)

	if _, err := clickMarked(res.Frame, res.MarkerAttr, res.MarkerVal); err != nil {
		return "", err
	}

	target := intent.Value
	var resp dropdownResp
	for attempt := 0; attempt < dropdownPollAttempts; attempt++ {
		err := res.Frame.Evaluate(assets.ActionDropdown(), []interface{}{res.MarkerAttr, res.MarkerVal, before.Count, target}, &resp)
		if err != nil {
			return "", err
		}
		if resp.Opened {
			break
		}
		sleep(500 * time.Millisecond)
	}
	if !resp.Opened {
		return "", &rdie.OutcomeError{Kind: rdie.ErrNotFound, Detail: "dropdown never opened"}
	}
	if resp.MatchedSelector != "" {
		el, err := res.Frame.QuerySelector(resp.MatchedSelector)
		if err == nil && el != nil {
			if cerr := el.Click(driver.ClickOptions{}); cerr == nil {
				return "dropdown-option-click", nil
			}
		}
	}
	// type-ahead fallback: type the first 3 characters of target for
	// combobox-style filtering, then re-scan once more.
	if len(target) > 0 {
		n := 3
		if len(target) < n {
			n = len(target)
		}
		if d != nil {
			d.KeyboardType(target[:n], 50*time.Millisecond)
		}
		var rescan dropdownResp
		res.Frame.Evaluate(assets.ActionDropdown(), []interface{}{res.MarkerAttr, res.MarkerVal, before.Count, target[:n]}, &rescan)
		if rescan.MatchedSelector != "" {
			el, err := res.Frame.QuerySelector(rescan.MatchedSelector)
			if err == nil && el != nil {
				if cerr := el.Click(driver.ClickOptions{}); cerr == nil {
					return "dropdown-typeahead-click", nil
				}
			}
		}
	}
	return "", &rdie.OutcomeError{Kind: rdie.ErrNotFound, Detail: "no dropdown option matched " + target}
}

// executeFill implements §4.5.5: focus, fill, dispatch input/change/blur.
// If Fill throws, retry once with a JS value assignment.
func executeFill(res cascade.Result, intent rdie.Intent) (string, error) {
	if _, err := ensureActionable(res.Frame, res.MarkerAttr, res.MarkerVal); err != nil {
		return "", err
	}
	el, err := res.Frame.QuerySelector(marker(res.MarkerAttr, res.MarkerVal))
	if err != nil {
		return "", err
	}
	if el == nil {
		return "", &rdie.OutcomeError{Kind: rdie.ErrNotFound, Detail: "field vanished"}
	}
	if err := el.Fill(intent.Value); err == nil {
		return "fill", nil
	}
	var resp struct {
		Success bool `json:"success"`
	}
	jsErr := res.Frame.Evaluate(
		`(function(a,v,val){ var el=document.querySelector("["+a+'="'+v+'"]'); if(!el) return {success:false}; el.focus(); el.value=val; el.dispatchEvent(new Event("input",{bubbles:true})); el.dispatchEvent(new Event("change",{bubbles:true})); el.dispatchEvent(new Event("blur",{bubbles:true})); return {success:true}; })`,
		[]interface{}{res.MarkerAttr, res.MarkerVal, intent.Value}, &resp,
	)
	if jsErr != nil {
		return "", jsErr
	}
	if !resp.Success {
		return "", &rdie.OutcomeError{Kind: rdie.ErrValueRejected, Detail: "fill and JS-assignment fallback both failed"}
	}
	return "js-assign-fill", nil
}

// executeIframeType implements §4.5.6: click to focus the cross-origin
// iframe, then type via the driver's keyboard API — never DOM manipulation —
// then Tab to trigger the Element's internal validation.
func executeIframeType(d driver.Driver, res cascade.Result, intent rdie.Intent) (string, error) {
	if _, err := clickMarked(res.Frame, res.MarkerAttr, res.MarkerVal); err != nil {
		return "", err
	}
	if err := d.KeyboardType(intent.Value, 20*time.Millisecond); err != nil {
		return "", &rdie.OutcomeError{Kind: rdie.ErrValueRejected, Detail: err.Error()}
	}
	if err := d.KeyboardPress("Tab"); err != nil {
		return "", err
	}
	return "iframe-keyboard-type", nil
}

type quantityResp struct {
	Success    bool   `json:"success"`
	Method     string `json:"method"`
	FinalValue string `json:"finalValue"`
}

// executeQuantityInput implements §4.5.4's set-value path directly via the
// driver's Fill, since C4 already located a concrete input element.
func executeQuantityInput(res cascade.Result, intent rdie.Intent) (string, error) {
	if res.Element == nil {
		return "", &rdie.OutcomeError{Kind: rdie.ErrNotFound, Detail: "no quantity input element"}
	}
	target := fmt.Sprintf("%d", intent.Quantity)
	if err := res.Element.Fill(target); err != nil {
		return "", &rdie.OutcomeError{Kind: rdie.ErrValueRejected, Detail: err.Error()}
	}
	sleep(500 * time.Millisecond)
	current, err := res.Element.InputValue()
	if err == nil && current == target {
		return "set-value", nil
	}
	// the site reset it: Fill replaces the whole value (select-all-then-type,
	// driver/rod.go), so build up the target string and re-Fill the
	// accumulated prefix each iteration rather than appending one character
	// at a time.
	prefix := ""
	for _, ch := range target {
		prefix += string(ch)
		if err := res.Element.Fill(prefix); err != nil {
			return "", &rdie.OutcomeError{Kind: rdie.ErrValueRejected, Detail: err.Error()}
		}
	}
	return "char-by-char", nil
}

// executeQuantityButtons implements §4.5.4's increment-button path,
// bounded at 20 clicks.
func executeQuantityButtons(res cascade.Result, intent rdie.Intent) (string, error) {
	var resp quantityResp
	err := res.Frame.Evaluate(assets.ActionQuantity(), []interface{}{res.ContainerSelector, intent.Quantity}, &resp)
	if err != nil {
		return "", err
	}
	if !resp.Success {
		return "", &rdie.OutcomeError{Kind: rdie.ErrValueRejected, Detail: "increment buttons did not reach target quantity"}
	}
	return resp.Method, nil
}

type checkedResp struct {
	Checked bool `json:"checked"`
}

// executeCheckbox implements §4.5.7: click the associated label (preferred)
// or the input, but only if the current checked state differs from the
// intent's target state.
func executeCheckbox(res cascade.Result, intent rdie.Intent) (string, error) {
	var resp checkedResp
	err := res.Frame.Evaluate(
		`(function(a,v){ var el=document.querySelector("["+a+'="'+v+'"]'); return {checked: !!(el && el.checked)}; })`,
		[]interface{}{res.MarkerAttr, res.MarkerVal}, &resp,
	)
	if err != nil {
		return "", err
	}
	wantChecked := intent.State == rdie.CheckboxChecked
	if resp.Checked == wantChecked {
		return "already-in-target-state", nil
	}
	return clickMarked(res.Frame, res.MarkerAttr, res.MarkerVal)
}

// WaitForDependentDropdown implements §4.5.8: poll up to 5s for a visible
// <select> not matching excludeSelector (the parent) to appear after a
// parent selection (e.g. country state). A select that was already visible
// before the parent selection also counts.
func WaitForDependentDropdown(frame driver.Frame, excludeSelector string) (driver.Element, error) {
	sel := "select"
	if excludeSelector != "" {
		sel = "select:not(" + excludeSelector + ")"
	}
	for i := 0; i < dependentWaitTries; i++ {
		els, err := frame.QuerySelectorAll(sel)
		if err != nil {
			return nil, err
		}
		for _, el := range els {
			visible, verr := el.IsVisible()
			if verr == nil && visible {
				return el, nil
			}
		}
		sleep(500 * time.Millisecond)
	}
	return nil, nil
}
