// Package popup implements the popup/cookie/overlay dismissal heuristics
// named as RDIE's external collaborator: a catalog substantial enough to
// stay out of the core engine, run by the demo orchestrator before handing
// the page to RDIE.
package popup

import (
	_ "embed"
	"time"

	"github.com/bravebird/rdie/pkg/rdie/driver"
	"go.uber.org/zap"
)

//go:embed dismiss.js
var dismissJS string

const (
	settleWait    = 500 * time.Millisecond
	delayedWait   = 2 * time.Second
	stubbornWait  = 1 * time.Second
	captchaSafeX  = 10.0
	captchaSafeY  = 10.0
	outsideModalX = 50.0
	outsideModalY = 300.0
)

var sleep = time.Sleep

type sweepResult struct {
	Dismissed       int  `json:"dismissed"`
	CaptchaDetected bool `json:"captchaDetected"`
}

// Dismisser runs repeated dismissal sweeps against a page, mirroring
// popup_dismisser.py's click-outside / JS-sweep / captcha-safe-click
// sequence.
type Dismisser struct {
	Driver driver.Driver
	Logger *zap.SugaredLogger
}

func New(d driver.Driver, logger *zap.SugaredLogger) *Dismisser {
	return &Dismisser{Driver: d, Logger: logger}
}

// Sweep runs one dismissal pass: an outside-modal click, the nine-phase JS
// sweep, and a captcha-safe click if the sweep flagged one. It reports how
// many elements it dismissed.
func (d *Dismisser) Sweep() (int, error) {
	d.Driver.MouseClick(outsideModalX, outsideModalY)
	sleep(settleWait)

	var result sweepResult
	if err := d.Driver.Evaluate(dismissJS, nil, &result); err != nil {
		return 0, err
	}

	if result.CaptchaDetected {
		if err := d.Driver.MouseClick(captchaSafeX, captchaSafeY); err == nil {
			result.Dismissed++
		}
	}

	if result.Dismissed > 0 {
		if d.Logger != nil {
			d.Logger.Debugw("dismissed popups", "count", result.Dismissed)
		}
		sleep(settleWait)
	}

	d.Driver.KeyboardPress("Escape")
	return result.Dismissed, nil
}

// Comprehensive runs three sweeps spaced out to catch popups that render
// immediately, shortly after load, and only after the first two sweeps
// disturbed the page (mirrors comprehensive_popup_handler's three-pass
// cadence).
func (d *Dismisser) Comprehensive() (bool, error) {
	d.Driver.WaitForLoadState("networkidle", 5*time.Second)

	first, err := d.Sweep()
	if err != nil {
		return false, err
	}

	sleep(delayedWait)
	second, err := d.Sweep()
	if err != nil {
		return first > 0, err
	}

	if first > 0 || second > 0 {
		sleep(stubbornWait)
		d.Sweep()
	}

	return first > 0 || second > 0, nil
}

// OnInterval runs Sweep repeatedly for duration, spaced by interval, for
// SPAs whose popups keep reappearing (e.g. re-rendered on every route
// change). Returns once duration elapses or ctx-less deadline passes; it
// does not abort early on error, since a single failed sweep (e.g. a
// mid-navigation evaluate) shouldn't stop the watch.
func (d *Dismisser) OnInterval(interval, duration time.Duration) {
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		d.Sweep()
		sleep(interval)
	}
}
