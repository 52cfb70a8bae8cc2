package driver

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

// navigationPattern and closedPattern are the exact exception-message
// classifiers spec §4.7/§7 specify: any exception whose message matches
// navigationPattern during Acting/Verifying is navigation-as-success;
// closedPattern is terminal (BrowserDisconnected, no retry).
var (
	navigationPattern = regexp.MustCompile(`(?i)Execution context was destroyed|navigation`)
	closedPattern     = regexp.MustCompile(`(?i)Target .* closed|browser has been closed`)
)

// classifyErr turns a raw rod error into one of our DriverError sentinels,
// or returns err unchanged if it isn't one of the two classes RDIE's
// controller pattern-matches on.
func classifyErr(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case closedPattern.MatchString(msg):
		return &DriverError{Kind: "Disconnected", Message: msg}
	case navigationPattern.MatchString(msg):
		return &DriverError{Kind: "Navigated", Message: msg}
	default:
		return err
	}
}

// RodPage adapts a *rod.Page to the Driver interface.
type RodPage struct {
	page *rod.Page
}

// NewRodPage wraps an already-navigated rod page.
func NewRodPage(page *rod.Page) *RodPage {
	return &RodPage{page: page}
}

func (d *RodPage) URL() string {
	info, err := d.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (d *RodPage) Title() (string, error) {
	info, err := d.page.Info()
	if err != nil {
		return "", classifyErr(err)
	}
	return info.Title, nil
}

func (d *RodPage) Content() (string, error) {
	html, err := d.page.HTML()
	return html, classifyErr(err)
}

func (d *RodPage) MainFrame() Frame {
	return &RodFrame{page: d.page, id: "main"}
}

func (d *RodPage) Frames() ([]Frame, error) {
	frames := []Frame{d.MainFrame()}

	iframeEls, err := d.page.Elements("iframe")
	if err != nil {
		return frames, nil // best-effort; main frame is always usable
	}
	for i, el := range iframeEls {
		framePage, err := el.Frame()
		if err != nil {
			// cross-origin or detached iframe: skip without error, per
			// spec §4.4 "Cross-origin frames that throw on evaluate are
			// skipped without error".
			continue
		}
		frames = append(frames, &RodFrame{page: framePage, id: fmt.Sprintf("iframe-%d", i)})
	}
	return frames, nil
}

func (d *RodPage) Evaluate(js string, args []interface{}, out interface{}) error {
	return (&RodFrame{page: d.page, id: "main"}).Evaluate(js, args, out)
}

func (d *RodPage) MouseClick(x, y float64) error {
	if err := d.page.Mouse.MoveTo(proto.Point{X: x, Y: y}); err != nil {
		return classifyErr(err)
	}
	return classifyErr(d.page.Mouse.Click(proto.InputMouseButtonLeft, 1))
}

func (d *RodPage) KeyboardPress(key string) error {
	k, ok := keyByName[key]
	if !ok {
		k = input.Enter
	}
	return classifyErr(d.page.Keyboard.Press(k))
}

func (d *RodPage) KeyboardType(s string, delay time.Duration) error {
	for _, r := range s {
		if err := d.page.Keyboard.Press(input.Key(r)); err != nil {
			return classifyErr(err)
		}
		if delay > 0 {
			time.Sleep(delay)
		}
	}
	return nil
}

func (d *RodPage) WaitForLoadState(state string, timeout time.Duration) error {
	_ = state
	return classifyErr(d.page.Timeout(timeout).WaitStable(300 * time.Millisecond))
}

func (d *RodPage) Screenshot(opts ScreenshotOptions) ([]byte, error) {
	data, err := d.page.Screenshot(opts.FullPage, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	return data, classifyErr(err)
}

func (d *RodPage) Goto(url string, opts NavigateOptions) error {
	p := d.page
	if opts.Timeout > 0 {
		p = p.Timeout(opts.Timeout)
	}
	return classifyErr(p.Navigate(url))
}

// RodFrame adapts a *rod.Page scoped to one frame (main or an iframe's
// own context, obtained via Element.Frame()) to the Frame interface.
type RodFrame struct {
	page *rod.Page
	id   string
}

func (f *RodFrame) ID() string { return f.id }

func (f *RodFrame) URL() string {
	info, err := f.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (f *RodFrame) Evaluate(js string, args []interface{}, out interface{}) error {
	result, err := f.page.Eval(js, args...)
	if err != nil {
		return classifyErr(err)
	}
	if out == nil {
		return nil
	}
	raw, err := result.Value.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal eval result: %w", err)
	}
	return json.Unmarshal(raw, out)
}

func (f *RodFrame) QuerySelector(selector string) (Element, error) {
	el, err := f.page.Element(selector)
	if err != nil {
		return nil, classifyErr(err)
	}
	return &RodElement{el: el}, nil
}

func (f *RodFrame) QuerySelectorAll(selector string) ([]Element, error) {
	els, err := f.page.Elements(selector)
	if err != nil {
		return nil, classifyErr(err)
	}
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, &RodElement{el: el})
	}
	return out, nil
}

// RodElement adapts a *rod.Element to the Element interface.
type RodElement struct {
	el *rod.Element
}

func (e *RodElement) IsVisible() (bool, error) {
	v, err := e.el.Visible()
	return v, classifyErr(err)
}

func (e *RodElement) BoundingBox() (Rect, error) {
	box, err := e.el.Shape()
	if err != nil || box == nil || len(box.Quads) == 0 {
		return Rect{}, classifyErr(err)
	}
	q := box.Quads[0]
	x := q[0]
	y := q[1]
	w := q[2] - q[0]
	h := q[5] - q[1]
	return Rect{X: x, Y: y, W: w, H: h}, nil
}

func (e *RodElement) InputValue() (string, error) {
	v, err := e.el.Property("value")
	if err != nil {
		return "", classifyErr(err)
	}
	return v.String(), nil
}

func (e *RodElement) Fill(value string) error {
	e.el.MustSelectAllText()
	return classifyErr(e.el.Input(value))
}

func (e *RodElement) SelectOption(value string) error {
	return classifyErr(e.el.Select([]string{value}, true, rod.SelectorTypeText))
}

func (e *RodElement) Click(opts ClickOptions) error {
	_ = opts
	return classifyErr(e.el.Click(proto.InputMouseButtonLeft, 1))
}

func (e *RodElement) ScrollIntoViewIfNeeded() error {
	return classifyErr(e.el.ScrollIntoView())
}

func (e *RodElement) Attribute(name string) (string, error) {
	v, err := e.el.Attribute(name)
	if err != nil {
		return "", classifyErr(err)
	}
	if v == nil {
		return "", nil
	}
	return *v, nil
}

func (e *RodElement) Eval(js string, out interface{}) error {
	result, err := e.el.Eval(js)
	if err != nil {
		return classifyErr(err)
	}
	if out == nil {
		return nil
	}
	raw, err := result.Value.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal eval result: %w", err)
	}
	return json.Unmarshal(raw, out)
}

var keyByName = map[string]input.Key{
	"Enter":      input.Enter,
	"Tab":        input.Tab,
	"Escape":     input.Escape,
	"Backspace":  input.Backspace,
	"ArrowUp":    input.ArrowUp,
	"ArrowDown":  input.ArrowDown,
	"ArrowLeft":  input.ArrowLeft,
	"ArrowRight": input.ArrowRight,
}
