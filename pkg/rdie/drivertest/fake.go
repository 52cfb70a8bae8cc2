// Package drivertest provides in-memory fakes for the driver.Driver/Frame/
// Element contract, so C1-C7's orchestration logic can be unit tested
// without a real browser. Evaluate/Eval calls are satisfied from a
// programmable response queue rather than by actually running the supplied
// JS, since the fake has no JS engine; tests assert on what RDIE *sent*
// (the script/args) and control what it receives back.
package drivertest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bravebird/rdie/pkg/rdie/driver"
)

// EvalResponse is one canned response for a FakeFrame/FakeElement Evaluate/
// Eval call, consumed in FIFO order.
type EvalResponse struct {
	Value interface{}
	Err   error
}

// FakeFrame is a scriptable driver.Frame.
type FakeFrame struct {
	FrameID   string
	FrameURL  string
	Responses []EvalResponse
	Elements  map[string][]*FakeElement

	// Calls records every Evaluate invocation for assertions.
	Calls []FakeCall
}

// FakeCall records one Evaluate/Eval invocation.
type FakeCall struct {
	Script string
	Args   []interface{}
}

func (f *FakeFrame) ID() string  { return f.FrameID }
func (f *FakeFrame) URL() string { return f.FrameURL }

func (f *FakeFrame) Evaluate(js string, args []interface{}, out interface{}) error {
	f.Calls = append(f.Calls, FakeCall{Script: js, Args: args})
	if len(f.Responses) == 0 {
		return fmt.Errorf("drivertest: no canned response queued")
	}
	resp := f.Responses[0]
	f.Responses = f.Responses[1:]
	if resp.Err != nil {
		return resp.Err
	}
	return assign(resp.Value, out)
}

func (f *FakeFrame) QuerySelector(selector string) (driver.Element, error) {
	els := f.Elements[selector]
	if len(els) == 0 {
		return nil, nil
	}
	return els[0], nil
}

func (f *FakeFrame) QuerySelectorAll(selector string) ([]driver.Element, error) {
	els := f.Elements[selector]
	out := make([]driver.Element, 0, len(els))
	for _, e := range els {
		out = append(out, e)
	}
	return out, nil
}

// FakeElement is a scriptable driver.Element.
type FakeElement struct {
	Visible       bool
	Box           driver.Rect
	Value         string
	Attrs         map[string]string
	FillErr       error
	ClickErr      error
	SelectErr     error
	EvalResponses []EvalResponse

	// ResetFirstFill simulates a page script that reverts the very first
	// Fill call (e.g. a framework onChange handler clearing a bulk-set
	// value), so callers relying on it to stick must fall back to filling
	// the field incrementally.
	ResetFirstFill bool
	fillCalls      int
}

func (e *FakeElement) IsVisible() (bool, error)         { return e.Visible, nil }
func (e *FakeElement) BoundingBox() (driver.Rect, error) { return e.Box, nil }
func (e *FakeElement) InputValue() (string, error)       { return e.Value, nil }

func (e *FakeElement) Fill(value string) error {
	if e.FillErr != nil {
		return e.FillErr
	}
	e.fillCalls++
	if e.ResetFirstFill && e.fillCalls == 1 {
		e.Value = ""
		return nil
	}
	e.Value = value
	return nil
}

func (e *FakeElement) SelectOption(value string) error {
	if e.SelectErr != nil {
		return e.SelectErr
	}
	e.Value = value
	return nil
}

func (e *FakeElement) Click(driver.ClickOptions) error { return e.ClickErr }
func (e *FakeElement) ScrollIntoViewIfNeeded() error    { return nil }

func (e *FakeElement) Attribute(name string) (string, error) {
	if e.Attrs == nil {
		return "", nil
	}
	return e.Attrs[name], nil
}

func (e *FakeElement) Eval(js string, out interface{}) error {
	if len(e.EvalResponses) == 0 {
		return fmt.Errorf("drivertest: no canned element eval response queued")
	}
	resp := e.EvalResponses[0]
	e.EvalResponses = e.EvalResponses[1:]
	if resp.Err != nil {
		return resp.Err
	}
	return assign(resp.Value, out)
}

// assign round-trips value through JSON so callers can hand in plain Go
// structs/maps the same way a real JSON-over-CDP bridge would.
func assign(value interface{}, out interface{}) error {
	if out == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// FakeDriver is a scriptable driver.Driver backed by a single FakeFrame as
// the main frame, plus optional extra child frames.
type FakeDriver struct {
	Main       *FakeFrame
	Children   []driver.Frame
	PageURL    string
	Shots      [][]byte
	NavigateTo []string
}

func (d *FakeDriver) URL() string                { return d.PageURL }
func (d *FakeDriver) Title() (string, error)      { return "", nil }
func (d *FakeDriver) Content() (string, error)     { return "", nil }
func (d *FakeDriver) MainFrame() driver.Frame       { return d.Main }

func (d *FakeDriver) Frames() ([]driver.Frame, error) {
	return append([]driver.Frame{d.Main}, d.Children...), nil
}

func (d *FakeDriver) Evaluate(js string, args []interface{}, out interface{}) error {
	return d.Main.Evaluate(js, args, out)
}

func (d *FakeDriver) MouseClick(x, y float64) error                              { return nil }
func (d *FakeDriver) KeyboardPress(key string) error                             { return nil }
func (d *FakeDriver) KeyboardType(s string, delay time.Duration) error           { return nil }
func (d *FakeDriver) WaitForLoadState(state string, timeout time.Duration) error { return nil }

func (d *FakeDriver) Screenshot(driver.ScreenshotOptions) ([]byte, error) {
	if len(d.Shots) == 0 {
		return nil, nil
	}
	shot := d.Shots[0]
	d.Shots = d.Shots[1:]
	return shot, nil
}

func (d *FakeDriver) Goto(url string, opts driver.NavigateOptions) error {
	d.NavigateTo = append(d.NavigateTo, url)
	d.PageURL = url
	return nil
}
