// Package shipping implements §6's selectCheapestShipping operation: unlike
// every other named public operation, there is no Intent variant that
// reduces "compare shipping-method prices and click the lowest" to a single
// locate/act/verify pass, so it gets its own scan -> compare -> click ->
// verify loop here instead of going through controller.Controller.Run.
package shipping

import (
	_ "embed"
	"time"

	"github.com/bravebird/rdie/pkg/rdie"
	"github.com/bravebird/rdie/pkg/rdie/driver"
)

//go:embed scan.js
var scanJS string

//go:embed select.js
var selectJS string

const settleWait = 800 * time.Millisecond

var sleep = time.Sleep

// Option is one shipping method scan.js found, with the price it parsed out
// of the option's text.
type Option struct {
	Index    int     `json:"index"`
	Label    string  `json:"label"`
	Price    float64 `json:"price"`
	Selected bool    `json:"selected"`
}

type selectResp struct {
	Success bool   `json:"success"`
	Method  string `json:"method"`
}

// Selector drives the scan/compare/click/verify cycle against a single
// page's main frame, mirroring internal/address.Verifier's shape for a
// collaborator with no Intent of its own.
type Selector struct {
	Driver driver.Driver
}

func New(d driver.Driver) *Selector {
	return &Selector{Driver: d}
}

// SelectCheapest scans the page for shipping-method options, clicks the
// lowest-priced one, and verifies the click stuck, retrying the full
// scan/click/verify cycle up to maxRetries times (§4.7's retry budget,
// applied here since this operation has no Controller to own it).
func (s *Selector) SelectCheapest(maxRetries int) (rdie.Outcome, error) {
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr *rdie.OutcomeError
	for attempt := 1; attempt <= maxRetries; attempt++ {
		options, err := s.scan()
		if err != nil {
			lastErr = &rdie.OutcomeError{Kind: rdie.ErrNotFound, Detail: err.Error()}
			sleep(settleWait)
			continue
		}
		if len(options) == 0 {
			lastErr = &rdie.OutcomeError{Kind: rdie.ErrNotFound, Detail: "no shipping options found on page"}
			sleep(settleWait)
			continue
		}

		cheapest := cheapestOf(options)
		if cheapest.Selected {
			return rdie.Outcome{
				Success:     true,
				Action:      "select_cheapest_shipping",
				Method:      "already-selected",
				Verified:    true,
				MatchedText: cheapest.Label,
			}, nil
		}

		var resp selectResp
		if err := s.Driver.Evaluate(selectJS, []interface{}{cheapest.Index}, &resp); err != nil {
			lastErr = &rdie.OutcomeError{Kind: rdie.ErrNotInteractive, Detail: err.Error()}
			sleep(settleWait)
			continue
		}
		if !resp.Success {
			lastErr = &rdie.OutcomeError{Kind: rdie.ErrNotFound, Detail: "shipping option marker disappeared before click"}
			sleep(settleWait)
			continue
		}
		sleep(settleWait)

		verified, verr := s.verifySelected(cheapest.Index)
		if verr != nil {
			lastErr = &rdie.OutcomeError{Kind: rdie.ErrVerificationFailed, Detail: verr.Error()}
			continue
		}
		if verified {
			return rdie.Outcome{
				Success:     true,
				Action:      "select_cheapest_shipping",
				Method:      resp.Method,
				Verified:    true,
				MatchedText: cheapest.Label,
			}, nil
		}
		lastErr = &rdie.OutcomeError{Kind: rdie.ErrVerificationFailed, Detail: "selection did not stick after click"}
	}

	if lastErr == nil {
		lastErr = &rdie.OutcomeError{Kind: rdie.ErrNotFound, Detail: "giving up after all attempts"}
	}
	return rdie.Failed("select_cheapest_shipping", lastErr.Kind, lastErr.Detail), nil
}

func (s *Selector) scan() ([]Option, error) {
	var options []Option
	if err := s.Driver.Evaluate(scanJS, nil, &options); err != nil {
		return nil, err
	}
	return options, nil
}

// verifySelected re-scans and checks that the option at index is now the
// one carrying Selected, since scan.js re-derives the marker/index mapping
// fresh each call rather than caching it across attempts (same no-caching
// rule controller.Controller follows for its container scope).
func (s *Selector) verifySelected(index int) (bool, error) {
	options, err := s.scan()
	if err != nil {
		return false, err
	}
	for _, o := range options {
		if o.Index == index {
			return o.Selected, nil
		}
	}
	return false, nil
}

// cheapestOf returns the lowest-priced option, breaking ties toward the
// first one encountered (scan.js's DOM order).
func cheapestOf(options []Option) Option {
	best := options[0]
	for _, o := range options[1:] {
		if o.Price < best.Price {
			best = o
		}
	}
	return best
}
