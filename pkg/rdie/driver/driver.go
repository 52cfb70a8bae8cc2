// Package driver defines the Browser Driver Contract RDIE requires of its
// collaborator (spec §6) and a go-rod backed implementation of it.
package driver

import "time"

// NavigateOptions mirrors the driver.goto(url, {wait_until, timeout}) shape
// from §6.
type NavigateOptions struct {
	WaitUntil string
	Timeout   time.Duration
}

// ScreenshotOptions mirrors driver.screenshot({path, full_page}).
type ScreenshotOptions struct {
	Path     string
	FullPage bool
}

// ClickOptions mirrors element.click({force?, timeout?}).
type ClickOptions struct {
	Force   bool
	Timeout time.Duration
}

// Rect is the element's bounding box, analogous to Playwright's
// bounding_box() and the CandidateElement Geometry in pkg/rdie.
type Rect struct {
	X, Y, W, H float64
}

// Driver is the root collaborator RDIE consumes: a Page with frame
// isolation, JS evaluation, and navigation, per §6.
type Driver interface {
	URL() string
	Title() (string, error)
	Content() (string, error)
	Frames() ([]Frame, error)
	// MainFrame is a convenience accessor equivalent to Frames()[0].
	MainFrame() Frame

	// Evaluate runs jsString in the main frame's page context and decodes
	// the JSON-compatible result into out (a pointer). args are JSON
	// marshaled and spliced into the call.
	Evaluate(jsString string, args []interface{}, out interface{}) error

	MouseClick(x, y float64) error
	KeyboardPress(key string) error
	KeyboardType(s string, delay time.Duration) error

	WaitForLoadState(state string, timeout time.Duration) error
	Screenshot(opts ScreenshotOptions) ([]byte, error)
	Goto(url string, opts NavigateOptions) error
}

// Frame is one frame (main or child) within which elements can be queried
// and JS evaluated, per §6's "frame isolation... accessible by iteration".
type Frame interface {
	ID() string
	URL() string
	// Evaluate runs jsString scoped to this frame. Cross-origin frames are
	// expected to return ErrCrossOrigin so C4 can skip them without error
	// (spec §4.4 "Cross-origin frames that throw on evaluate are skipped
	// without error").
	Evaluate(jsString string, args []interface{}, out interface{}) error
	QuerySelector(selector string) (Element, error)
	QuerySelectorAll(selector string) ([]Element, error)
}

// Element is a live handle to a DOM node, per §6's element-handle contract.
type Element interface {
	IsVisible() (bool, error)
	BoundingBox() (Rect, error)
	InputValue() (string, error)
	Fill(value string) error
	SelectOption(value string) error
	Click(opts ClickOptions) error
	ScrollIntoViewIfNeeded() error

	// Attribute reads a single DOM attribute, empty string if absent.
	Attribute(name string) (string, error)
	// Eval runs jsString with `this` bound to the element and decodes the
	// result into out.
	Eval(jsString string, out interface{}) error
}

// ErrCrossOrigin is returned by Frame.Evaluate when the frame refuses
// cross-origin script execution. C4 treats it as "skip, not fail".
var ErrCrossOrigin = &DriverError{Kind: "CrossOrigin", Message: "cross-origin frame refused evaluate"}

// ErrDisconnected is returned when the underlying browser/tab has gone away;
// C7 converts this into ErrBrowserDisconnected and aborts without retry
// (spec §4.7 Navigation-as-success / §7).
var ErrDisconnected = &DriverError{Kind: "Disconnected", Message: "target closed or browser has been closed"}

// ErrNavigated signals the execution-context-destroyed/navigation class of
// exception spec §4.7 treats as navigation-as-success.
var ErrNavigated = &DriverError{Kind: "Navigated", Message: "execution context was destroyed"}

// DriverError is a classified driver-level failure. C7 pattern-matches on
// .Kind (not on message regexes) because the Go driver implementation
// classifies rod errors once, at the boundary, instead of re-deriving the
// classification from error strings on every retry (see rod.go's
// classifyErr).
type DriverError struct {
	Kind    string
	Message string
}

func (e *DriverError) Error() string { return e.Message }
