// Package controller implements C7, the Retry/Escalation Controller: the
// state machine that drives one Intent to an Outcome (spec §4.7).
//
// States: Searching -> Acting -> Verifying -> { Success | Retry | Escalate | Giving-Up }.
package controller

import (
	"fmt"
	"time"

	"github.com/bravebird/rdie/pkg/rdie"
	"github.com/bravebird/rdie/pkg/rdie/cascade"
	"github.com/bravebird/rdie/pkg/rdie/driver"
	"github.com/bravebird/rdie/pkg/rdie/executor"
	"github.com/bravebird/rdie/pkg/rdie/indexer"
	"github.com/bravebird/rdie/pkg/rdie/keyword"
	"github.com/bravebird/rdie/pkg/rdie/verifier"
)

const (
	maxAttempts      = 3
	hardWallTime     = 45 * time.Second
	stabilizeWait    = 1500 * time.Millisecond
	navigationSettle = 2 * time.Second
)

// sleep and now are overridden in tests so the state machine's waits and
// wall-time ceiling don't actually cost real time.
var (
	sleep = time.Sleep
	now   = time.Now
)

// cartIconSelectors is tried, in order, by the checkout recovery chain's
// step (a) (spec §4.7 "try to find a cart icon in the header and click it").
var cartIconSelectors = []string{
	`[class*="cart-icon"]`, `[class*="cart-link"]`, `[aria-label*="cart" i]`,
	`[href*="/cart"]`, `[data-cart-icon]`, `header [class*="cart"]`,
}

// checkoutLandingPaths is tried, in order, by the checkout recovery chain's
// step (b) (spec §4.7).
var checkoutLandingPaths = []string{
	"/cart", "/checkout", "/basket", "/bag", "/shopping-cart", "/checkout/cart",
}

// Controller drives a single Intent through Searching/Acting/Verifying.
// ContainerSelector is the optional §4.3 step-1 scoping hint, re-resolved
// from scratch on every attempt rather than cached (spec §4.7: "no caching
// across attempts").
type Controller struct {
	Ctx               rdie.Context
	ContainerSelector string
}

// New constructs a Controller bound to ctx.
func New(ctx rdie.Context) *Controller {
	return &Controller{Ctx: ctx}
}

// Run drives intent to completion, implementing the full §4.7 state
// machine including Phase-4 escalation and the action-intent recovery
// chains.
func (c *Controller) Run(intent rdie.Intent) (rdie.Outcome, error) {
	deadline := now().Add(hardWallTime)
	markerNonce := intent.ID
	if markerNonce == "" {
		markerNonce = rdie.NewMarkerID()
	}

	var lastErr *rdie.OutcomeError
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if now().After(deadline) {
			return rdie.Failed(string(intent.Kind), rdie.ErrTimeout, "hard wall-time ceiling exceeded"), nil
		}

		containerSelector := c.resolveContainer()

		res, err := cascade.Run(c.Ctx.Driver, intent, c.Ctx.Keywords, containerSelector, markerNonce)
		if err != nil {
			if outcome, handled := c.handleDriverErr(intent, err); handled {
				return outcome, nil
			}
			lastErr = &rdie.OutcomeError{Kind: rdie.ErrNotFound, Detail: err.Error()}
			c.waitAndLog(intent, attempt, "search error: "+err.Error())
			continue
		}
		if !res.Found {
			lastErr = &rdie.OutcomeError{Kind: rdie.ErrNotFound, Detail: "no candidate found in phases 1-3"}
			c.waitAndLog(intent, attempt, "not found")
			continue
		}

		outcome, oerr, done := c.actAndVerify(intent, res, markerNonce)
		if done {
			return outcome, nil
		}
		lastErr = oerr
		c.waitAndLog(intent, attempt, "act/verify failed: "+oerr.Error())
	}

	// attempt 3 exhausted.
	if intent.Kind == rdie.IntentSelectVariant || intent.Kind == rdie.IntentFillField || intent.Kind == rdie.IntentSelectDropdown {
		if outcome, ok := c.escalate(intent, markerNonce); ok {
			return outcome, nil
		}
	}
	if intent.Kind == rdie.IntentClickAction {
		if outcome, ok := c.recover(intent); ok {
			return outcome, nil
		}
	}

	if lastErr == nil {
		lastErr = &rdie.OutcomeError{Kind: rdie.ErrNotFound, Detail: "giving up after all attempts"}
	}
	return rdie.Failed(string(intent.Kind), lastErr.Kind, lastErr.Detail), nil
}

// resolveContainer re-runs C3's container-scope decision from scratch
// (spec §4.7: no caching across attempts).
func (c *Controller) resolveContainer() string {
	if c.ContainerSelector == "" {
		return ""
	}
	scoped, _ := indexer.ResolveContainer(c.Ctx.Driver.MainFrame(), c.ContainerSelector)
	if scoped {
		return c.ContainerSelector
	}
	return ""
}

// actAndVerify runs one Acting->Verifying pass for an already-located
// candidate. done=true means Run should return outcome immediately.
func (c *Controller) actAndVerify(intent rdie.Intent, res cascade.Result, markerNonce string) (rdie.Outcome, *rdie.OutcomeError, bool) {
	method, err := executor.Execute(c.Ctx.Driver, res, intent)
	if err != nil {
		if outcome, handled := c.handleDriverErr(intent, err); handled {
			return outcome, nil, true
		}
		oerr, ok := err.(*rdie.OutcomeError)
		if !ok {
			oerr = &rdie.OutcomeError{Kind: rdie.ErrNotInteractive, Detail: err.Error()}
		}
		return rdie.Outcome{}, oerr, false
	}

	screenshotPath := ""
	if c.Ctx.ScreenshotDir != "" {
		screenshotPath = fmt.Sprintf("%s/%s.png", c.Ctx.ScreenshotDir, markerNonce)
	}
	vres, verr := verifier.Verify(c.Ctx.Driver, res, intent, c.Ctx.OCR, screenshotPath)
	if verr != nil {
		if outcome, handled := c.handleDriverErr(intent, verr); handled {
			return outcome, nil, true
		}
		return rdie.Outcome{}, &rdie.OutcomeError{Kind: rdie.ErrVerificationFailed, Detail: verr.Error()}, false
	}
	if !vres.Verified {
		detail := "verification did not confirm the intended state"
		if vres.Observed != "" {
			detail = fmt.Sprintf("observed %q, wanted %q", vres.Observed, intent.Value)
		}
		return rdie.Outcome{}, &rdie.OutcomeError{Kind: rdie.ErrVerificationFailed, Detail: detail}, false
	}

	return rdie.Outcome{
		Success:     true,
		Action:      res.Action,
		Method:      method,
		Verified:    true,
		MatchedText: vres.MatchedText,
	}, nil, true
}

// escalate implements §4.7's Escalate transition: run Phase 4 Discovery and,
// on success, allow exactly one more Acting->Verifying pass.
func (c *Controller) escalate(intent rdie.Intent, markerNonce string) (rdie.Outcome, bool) {
	res, err := cascade.RunDiscovery(c.Ctx.Driver, intent, c.Ctx.Keywords, markerNonce)
	if err != nil || !res.Found {
		return rdie.Outcome{}, false
	}
	outcome, _, done := c.actAndVerify(intent, res, markerNonce)
	return outcome, done && outcome.Success
}

// recover implements §4.7's intent-specific recovery chains for action
// intents, each step acting as a fresh Intent with its own attempt budget.
func (c *Controller) recover(intent rdie.Intent) (rdie.Outcome, bool) {
	switch intent.ClickKind {
	case "add_to_cart":
		return c.recoverAddToCart(intent)
	case "checkout":
		return c.recoverCheckout(intent)
	default:
		return rdie.Outcome{}, false
	}
}

// recoverAddToCart cycles the prioritized add_to_cart keyword list as
// distinct single-keyword intents (spec §4.7.1).
func (c *Controller) recoverAddToCart(intent rdie.Intent) (rdie.Outcome, bool) {
	keywords := c.Ctx.Keywords.ClickKeywords("add_to_cart")
	for _, kw := range keywords {
		sub := New(c.Ctx)
		sub.ContainerSelector = c.ContainerSelector
		sub.Ctx.Keywords = keyword.NewRegistry(nil, map[string]keyword.KeywordSet{
			"add_to_cart": {Primary: []string{kw}},
		})
		if outcome, ok := sub.runSingleAttempt(intent); ok {
			return outcome, true
		}
	}
	return rdie.Outcome{}, false
}

// recoverCheckout implements §4.7's three-step checkout recovery chain.
func (c *Controller) recoverCheckout(intent rdie.Intent) (rdie.Outcome, bool) {
	main := c.Ctx.Driver.MainFrame()

	// (a) find and click a cart icon in the header.
	for _, sel := range cartIconSelectors {
		el, err := main.QuerySelector(sel)
		if err != nil || el == nil {
			continue
		}
		if visible, _ := el.IsVisible(); !visible {
			continue
		}
		if clickErr := el.Click(driver.ClickOptions{}); clickErr == nil {
			sleep(navigationSettle)
			sub := New(c.Ctx)
			sub.ContainerSelector = c.ContainerSelector
			if outcome, ok := sub.runSingleAttempt(intent); ok {
				return outcome, true
			}
		}
	}

	// (b) direct URL navigation to a known checkout-landing path list,
	// verifying each lands on a page exposing a checkout button or >=2
	// form fields with an email/form signature.
	originalURL := c.Ctx.Driver.URL()
	for _, path := range checkoutLandingPaths {
		target := originalURL
		if idx := authorityEnd(originalURL); idx > 0 {
			target = originalURL[:idx] + path
		}
		if err := c.Ctx.Driver.Goto(target, driver.NavigateOptions{WaitUntil: "load", Timeout: 10 * time.Second}); err != nil {
			continue
		}
		sleep(navigationSettle)
		if c.looksLikeCheckoutLanding() {
			sub := New(c.Ctx)
			if outcome, ok := sub.runSingleAttempt(intent); ok {
				return outcome, true
			}
		}
	}

	// (c) return to the original URL and retry once more.
	c.Ctx.Driver.Goto(originalURL, driver.NavigateOptions{WaitUntil: "load", Timeout: 10 * time.Second})
	sleep(navigationSettle)
	sub := New(c.Ctx)
	sub.ContainerSelector = c.ContainerSelector
	outcome, _ := sub.runSingleAttempt(intent)
	return outcome, outcome.Success
}

// runSingleAttempt runs one Searching->Acting->Verifying pass without the
// multi-attempt/escalation machinery, used by the recovery chains where each
// step is itself bounded.
func (c *Controller) runSingleAttempt(intent rdie.Intent) (rdie.Outcome, bool) {
	markerNonce := rdie.NewMarkerID()
	res, err := cascade.Run(c.Ctx.Driver, intent, c.Ctx.Keywords, c.resolveContainer(), markerNonce)
	if err != nil || !res.Found {
		return rdie.Outcome{}, false
	}
	outcome, _, done := c.actAndVerify(intent, res, markerNonce)
	return outcome, done && outcome.Success
}

// looksLikeCheckoutLanding implements §4.7.2 (b)'s landing-page check: a
// checkout button or >=2 email/form-signature fields.
func (c *Controller) looksLikeCheckoutLanding() bool {
	main := c.Ctx.Driver.MainFrame()
	if el, err := main.QuerySelector(`[class*="checkout"], button[name*="checkout"]`); err == nil && el != nil {
		return true
	}
	fields, err := main.QuerySelectorAll(`input[type=email], input[name*="email"], form input`)
	if err != nil {
		return false
	}
	return len(fields) >= 2
}

// handleDriverErr implements §4.7's Navigation-as-success and
// BrowserDisconnected handling. handled=true means the caller should return
// outcome immediately without further retry.
func (c *Controller) handleDriverErr(intent rdie.Intent, err error) (rdie.Outcome, bool) {
	de, ok := err.(*driver.DriverError)
	if !ok {
		return rdie.Outcome{}, false
	}
	switch de.Kind {
	case "Navigated":
		sleep(navigationSettle)
		return rdie.NavigatedSuccess(string(intent.Kind), "navigation-detected"), true
	case "Disconnected":
		return rdie.Failed(string(intent.Kind), rdie.ErrBrowserDisconnected, de.Message), true
	default:
		return rdie.Outcome{}, false
	}
}

func (c *Controller) waitAndLog(intent rdie.Intent, attempt int, reason string) {
	if c.Ctx.Logger != nil {
		c.Ctx.Logger.Debugw("retrying intent", "intent", intent.String(), "attempt", attempt, "reason", reason)
	}
	sleep(stabilizeWait)
}

// authorityEnd returns the index of the path's leading slash after the
// scheme://host[:port] authority section, or -1 if url has no scheme.
func authorityEnd(url string) int {
	schemeEnd := -1
	for i := 0; i+2 < len(url); i++ {
		if url[i] == ':' && url[i+1] == '/' && url[i+2] == '/' {
			schemeEnd = i + 3
			break
		}
	}
	if schemeEnd < 0 {
		return -1
	}
	for i := schemeEnd; i < len(url); i++ {
		if url[i] == '/' {
			return i
		}
	}
	return len(url)
}
