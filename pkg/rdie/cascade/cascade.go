// Package cascade implements C4, the Locator Cascade: given an Intent and a
// root driver, it runs the four search phases (spec §4.4) across every
// frame and returns the first phase that yields a candidate, wrapped with
// enough information (owning Frame, Action, marker) for C5 to act on it.
package cascade

import (
	"strconv"

	"github.com/bravebird/rdie/pkg/rdie"
	"github.com/bravebird/rdie/pkg/rdie/assets"
	"github.com/bravebird/rdie/pkg/rdie/driver"
	"github.com/bravebird/rdie/pkg/rdie/keyword"
)

// Phase names, exposed for logging and for C7's attempt bookkeeping.
const (
	PhaseIframe    = "iframe"
	PhaseOverlay   = "overlay"
	PhaseDOMTree   = "dom_tree"
	PhasePattern   = "pattern_match"
	PhaseDiscovery = "discovery"
	PhaseQuantity  = "quantity_locate"
)

// quantitySelectors is tried in order by locateQuantity; none of spec §4.2's
// keyword table covers quantity, so C4 locates it structurally instead of by
// textBag match (§4.5.4 assumes C4 already handed it an input-or-buttons
// candidate).
var quantitySelectors = []string{
	`input[name*="quantity"]`,
	`input[id*="quantity"]`,
	`input[name*="qty"]`,
	`[data-quantity-input]`,
	`input[type="number"]`,
}

var quantityButtonContainerSelectors = []string{
	`[class*="quantity"]`,
	`[class*="qty-selector"]`,
	`[data-quantity-selector]`,
}

// Result is what C4 hands to C5: a live element, the frame that owns it, and
// the action C5 should perform.
type Result struct {
	Found      bool
	Phase      string
	Action     string // click | select | dropdown | fill | iframe_type | quantity_input | quantity_buttons
	Frame      driver.Frame
	Element    driver.Element
	Candidate  rdie.CandidateElement
	MarkerAttr string
	MarkerVal  string
	Target     string // the literal target string that hit

	// ContainerSelector is set only for the quantity_buttons action: the CSS
	// selector of the increment-button container, since no single element
	// handle stands in for "the quantity widget".
	ContainerSelector string
}

type jsCandidate struct {
	Kind        string       `json:"kind"`
	TextBag     rdie.TextBag `json:"textBag"`
	Geometry    rdie.Geometry `json:"geometry"`
	Interactive bool         `json:"interactive"`
}

func toCandidate(jc jsCandidate, frame driver.Frame) rdie.CandidateElement {
	return rdie.CandidateElement{
		FrameID:     frame.ID(),
		Kind:        rdie.CandidateKind(jc.Kind),
		TextBag:     jc.TextBag,
		Geometry:    jc.Geometry,
		Interactive: jc.Interactive,
	}
}

type overlayResp struct {
	Found      bool        `json:"found"`
	Index      int         `json:"index"`
	Score      float64     `json:"score"`
	MarkerAttr string      `json:"markerAttr"`
	Candidate  jsCandidate `json:"candidate"`
}

type foundResp struct {
	Found      bool        `json:"found"`
	Action     string      `json:"action"`
	Candidate  jsCandidate `json:"candidate"`
	MarkerAttr string      `json:"markerAttr"`
}

type discoveryResp struct {
	Found      bool        `json:"found"`
	Score      float64     `json:"score"`
	Candidate  jsCandidate `json:"candidate"`
	MarkerAttr string      `json:"markerAttr"`
}

type iframeResp struct {
	Found      bool   `json:"found"`
	Src        string `json:"src"`
	Title      string `json:"title"`
	Name       string `json:"name"`
	MarkerAttr string `json:"markerAttr"`
}

// TargetsForIntent returns the ordered list of literal strings the
// button/selection phases (overlay, dom_tree_search, pattern_match) should
// try, in priority order (spec §4.2's ordering guarantee — e.g. "add for
// ship" before "add to bag" — flows from KeywordSet.All()'s tier order).
// FillField/SelectDropdown intents do not use this: see locateField, which
// searches by the field's own keyword set rather than by the value being
// written.
func TargetsForIntent(intent rdie.Intent, reg *keyword.Registry) []string {
	switch intent.Kind {
	case rdie.IntentSelectVariant:
		return []string{intent.VariantValue}
	case rdie.IntentClickAction:
		return reg.ClickKeywords(intent.ClickKind)
	case rdie.IntentCheckbox:
		return []string{intent.LabelIntent}
	default:
		return nil
	}
}

// DetectPaymentIframe runs the pre-cascade payment-iframe short-circuit
// (spec §4.4 "Verification iframes") in the main frame only.
func DetectPaymentIframe(main driver.Frame, fieldKind rdie.FieldKind, markerNonce string) (Result, error) {
	var resp iframeResp
	err := main.Evaluate(assets.PaymentIframeDetect(), []interface{}{string(fieldKind), markerNonce}, &resp)
	if err != nil {
		if isCrossOrigin(err) {
			return Result{}, nil
		}
		return Result{}, err
	}
	if !resp.Found {
		return Result{}, nil
	}
	return Result{
		Found:      true,
		Phase:      PhaseIframe,
		Action:     "iframe_type",
		Frame:      main,
		MarkerAttr: resp.MarkerAttr,
		MarkerVal:  "1",
	}, nil
}

// Run executes Phases 1-3 (Searching, per spec §4.7) for the given Intent
// across main-frame-then-children, trying each candidate target string in
// order within a phase before moving to the next phase. containerSelector
// is the already-resolved §4.3 step-1 scope (empty means full document).
func Run(d driver.Driver, intent rdie.Intent, reg *keyword.Registry, containerSelector, markerNonce string) (Result, error) {
	if intent.Kind == rdie.IntentSetQuantity {
		return locateQuantity(d)
	}
	if intent.Kind == rdie.IntentFillField || intent.Kind == rdie.IntentSelectDropdown {
		return locateField(d, reg.FieldKeywords(string(intent.FieldKind)), markerNonce)
	}

	targets := TargetsForIntent(intent, reg)
	if len(targets) == 0 {
		return Result{}, nil
	}

	frames, err := d.Frames()
	if err != nil {
		return Result{}, err
	}

	for _, target := range targets {
		if target == "" {
			continue
		}
		if res, err := runOverlay(frames, target, containerSelector, markerNonce); err != nil {
			return Result{}, err
		} else if res.Found {
			res.Target = target
			return res, nil
		}
	}

	for _, target := range targets {
		if target == "" {
			continue
		}
		if res, err := runDOMTree(frames, target, markerNonce); err != nil {
			return Result{}, err
		} else if res.Found {
			res.Target = target
			return res, nil
		}
	}

	for _, target := range targets {
		if target == "" {
			continue
		}
		if res, err := runPatternMatch(frames, target, string(intent.Kind), markerNonce); err != nil {
			return Result{}, err
		} else if res.Found {
			res.Target = target
			return res, nil
		}
	}

	return Result{}, nil
}

// RunDiscovery executes Phase 4 (spec §4.7's Escalate transition), only
// ever called by C7 for variant/field intents after three failed attempts.
func RunDiscovery(d driver.Driver, intent rdie.Intent, reg *keyword.Registry, markerNonce string) (Result, error) {
	if intent.Kind == rdie.IntentClickAction {
		return Result{}, nil
	}
	var targets []string
	switch intent.Kind {
	case rdie.IntentFillField, rdie.IntentSelectDropdown:
		targets = reg.FieldKeywords(string(intent.FieldKind))
	default:
		targets = TargetsForIntent(intent, reg)
	}
	frames, err := d.Frames()
	if err != nil {
		return Result{}, err
	}
	for _, target := range targets {
		if target == "" {
			continue
		}
		var best Result
		bestScore := -1.0
		for _, f := range frames {
			var resp discoveryResp
			err := f.Evaluate(assets.Discovery(), []interface{}{target, markerNonce}, &resp)
			if err != nil {
				if isCrossOrigin(err) {
					continue
				}
				return Result{}, err
			}
			if !resp.Found {
				continue
			}
			if resp.Score > bestScore {
				bestScore = resp.Score
				best = Result{
					Found:      true,
					Phase:      PhaseDiscovery,
					Action:     "click",
					Frame:      f,
					Candidate:  toCandidate(resp.Candidate, f),
					MarkerAttr: resp.MarkerAttr,
					MarkerVal:  "1",
					Target:     target,
				}
			}
		}
		if best.Found {
			return best, nil
		}
	}
	return Result{}, nil
}

func runOverlay(frames []driver.Frame, target, containerSelector, markerNonce string) (Result, error) {
	var best Result
	bestScore := -1.0
	found := false
	for _, f := range frames {
		var resp overlayResp
		err := f.Evaluate(assets.OverlaySearch(), []interface{}{target, markerNonce, containerSelector}, &resp)
		if err != nil {
			if isCrossOrigin(err) {
				continue
			}
			return Result{}, err
		}
		if !resp.Found {
			continue
		}
		if !found || resp.Score > bestScore {
			found = true
			bestScore = resp.Score
			best = Result{
				Found:      true,
				Phase:      PhaseOverlay,
				Action:     pickActionForKind(resp.Candidate.Kind),
				Frame:      f,
				Candidate:  toCandidate(resp.Candidate, f),
				MarkerAttr: resp.MarkerAttr,
				MarkerVal:  strconv.Itoa(resp.Index),
			}
		}
	}
	return best, nil
}

func runDOMTree(frames []driver.Frame, target, markerNonce string) (Result, error) {
	for _, f := range frames {
		var resp foundResp
		err := f.Evaluate(assets.DOMTreeSearch(), []interface{}{target, markerNonce}, &resp)
		if err != nil {
			if isCrossOrigin(err) {
				continue
			}
			return Result{}, err
		}
		if !resp.Found {
			continue
		}
		return Result{
			Found:      true,
			Phase:      PhaseDOMTree,
			Action:     "click",
			Frame:      f,
			Candidate:  toCandidate(resp.Candidate, f),
			MarkerAttr: resp.MarkerAttr,
			MarkerVal:  "1",
		}, nil
	}
	return Result{}, nil
}

func runPatternMatch(frames []driver.Frame, target, intentKind, markerNonce string) (Result, error) {
	for _, f := range frames {
		var resp foundResp
		err := f.Evaluate(assets.PatternMatch(), []interface{}{target, intentKind, markerNonce}, &resp)
		if err != nil {
			if isCrossOrigin(err) {
				continue
			}
			return Result{}, err
		}
		if !resp.Found {
			continue
		}
		return Result{
			Found:      true,
			Phase:      PhasePattern,
			Action:     resp.Action,
			Frame:      f,
			Candidate:  toCandidate(resp.Candidate, f),
			MarkerAttr: resp.MarkerAttr,
			MarkerVal:  "1",
		}, nil
	}
	return Result{}, nil
}

// locateField runs field_locate.js across every frame for a FillField/
// SelectDropdown Intent, matching on the field's keyword set rather than
// the value to be written (see TargetsForIntent's doc comment).
func locateField(d driver.Driver, fieldKeywords []string, markerNonce string) (Result, error) {
	if len(fieldKeywords) == 0 {
		return Result{}, nil
	}
	frames, err := d.Frames()
	if err != nil {
		return Result{}, err
	}
	kwArgs := make([]interface{}, len(fieldKeywords))
	for i, k := range fieldKeywords {
		kwArgs[i] = k
	}
	for _, f := range frames {
		var resp foundResp
		err := f.Evaluate(assets.FieldLocate(), []interface{}{kwArgs, markerNonce}, &resp)
		if err != nil {
			if isCrossOrigin(err) {
				continue
			}
			return Result{}, err
		}
		if !resp.Found {
			continue
		}
		return Result{
			Found:      true,
			Phase:      "field_locate",
			Action:     "fill",
			Frame:      f,
			Candidate:  toCandidate(resp.Candidate, f),
			MarkerAttr: resp.MarkerAttr,
			MarkerVal:  "1",
		}, nil
	}
	return Result{}, nil
}

func locateQuantity(d driver.Driver) (Result, error) {
	main := d.MainFrame()
	for _, sel := range quantitySelectors {
		els, err := main.QuerySelectorAll(sel)
		if err != nil {
			return Result{}, err
		}
		for _, el := range els {
			visible, err := el.IsVisible()
			if err != nil || !visible {
				continue
			}
			return Result{
				Found:   true,
				Phase:   PhaseQuantity,
				Action:  "quantity_input",
				Frame:   main,
				Element: el,
			}, nil
		}
	}
	for _, sel := range quantityButtonContainerSelectors {
		els, err := main.QuerySelectorAll(sel)
		if err != nil {
			return Result{}, err
		}
		if len(els) > 0 {
			return Result{
				Found:             true,
				Phase:             PhaseQuantity,
				Action:            "quantity_buttons",
				Frame:             main,
				ContainerSelector: sel,
			}, nil
		}
	}
	return Result{}, nil
}

func pickActionForKind(kind string) string {
	switch kind {
	case "select":
		return "select"
	case "radio", "checkbox":
		return "click"
	default:
		return "click"
	}
}

func isCrossOrigin(err error) bool {
	de, ok := err.(*driver.DriverError)
	return ok && de.Kind == "CrossOrigin"
}
