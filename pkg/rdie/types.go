// Package rdie defines the data model shared by every RDIE component:
// Intent, Outcome, ErrorKind, and the internal CandidateElement record.
package rdie

import "fmt"

// FieldKind enumerates the field semantics a FillField or SelectDropdown
// Intent can target.
type FieldKind string

const (
	FieldEmail        FieldKind = "email"
	FieldFirstName    FieldKind = "first_name"
	FieldLastName     FieldKind = "last_name"
	FieldPhone        FieldKind = "phone"
	FieldAddressLine1 FieldKind = "address_line1"
	FieldAddressLine2 FieldKind = "address_line2"
	FieldCity         FieldKind = "city"
	FieldState        FieldKind = "state"
	FieldPostal       FieldKind = "postal"
	FieldCountry      FieldKind = "country"
	FieldPassword     FieldKind = "password"
	FieldCardNumber   FieldKind = "card_number"
	FieldCardExpiry   FieldKind = "card_expiry"
	FieldCardCVV      FieldKind = "card_cvv"
	FieldUPIID        FieldKind = "upi_id"
	FieldLandmark     FieldKind = "landmark"
	FieldCustom       FieldKind = "custom"
)

// CheckboxState is the target state of a Checkbox Intent.
type CheckboxState string

const (
	CheckboxChecked   CheckboxState = "checked"
	CheckboxUnchecked CheckboxState = "unchecked"
)

// IntentKind tags which variant of Intent is populated.
type IntentKind string

const (
	IntentSelectVariant          IntentKind = "select_variant"
	IntentClickAction            IntentKind = "click_action"
	IntentFillField              IntentKind = "fill_field"
	IntentSelectDropdown         IntentKind = "select_dropdown"
	IntentSetQuantity            IntentKind = "set_quantity"
	IntentCheckbox               IntentKind = "checkbox"
	// IntentSelectCheapestShipping has no Searching/Acting/Verifying pass of
	// its own: it carries selectCheapestShipping(maxRetries)'s MaxRetries
	// budget to pkg/rdie/shipping.Selector, which runs its own scan/compare/
	// click/verify loop rather than going through controller.Controller.Run.
	IntentSelectCheapestShipping IntentKind = "select_cheapest_shipping"
)

// Intent is a tagged record describing what the caller wants done to the
// page. Exactly one of the variant fields is meaningful, selected by Kind.
type Intent struct {
	Kind IntentKind `json:"kind"`

	// SelectVariant
	VariantType  string `json:"variant_type,omitempty"`
	VariantValue string `json:"variant_value,omitempty"`

	// ClickAction
	ClickKind string `json:"click_kind,omitempty"`

	// FillField / SelectDropdown
	FieldKind FieldKind `json:"field_kind,omitempty"`
	Value     string    `json:"value,omitempty"`

	// SetQuantity
	Quantity int `json:"quantity,omitempty"`

	// Checkbox
	LabelIntent string        `json:"label_intent,omitempty"`
	State       CheckboxState `json:"state,omitempty"`

	// SelectCheapestShipping
	MaxRetries int `json:"max_retries,omitempty"`

	// ID correlates this Intent across logs, Temporal activities, and the
	// orchestrator's CheckoutRun ledger. Set by the caller; when it is
	// empty, the controller uses a fresh NewMarkerID() as its marker nonce
	// and leaves ID empty.
	ID string `json:"id,omitempty"`
}

func (i Intent) String() string {
	switch i.Kind {
	case IntentSelectVariant:
		return fmt.Sprintf("SelectVariant(%s=%s)", i.VariantType, i.VariantValue)
	case IntentClickAction:
		return fmt.Sprintf("ClickAction(%s)", i.ClickKind)
	case IntentFillField:
		return fmt.Sprintf("FillField(%s)", i.FieldKind)
	case IntentSelectDropdown:
		return fmt.Sprintf("SelectDropdown(%s=%s)", i.FieldKind, i.Value)
	case IntentSetQuantity:
		return fmt.Sprintf("SetQuantity(%d)", i.Quantity)
	case IntentCheckbox:
		return fmt.Sprintf("Checkbox(%s=%s)", i.LabelIntent, i.State)
	case IntentSelectCheapestShipping:
		return fmt.Sprintf("SelectCheapestShipping(maxRetries=%d)", i.MaxRetries)
	default:
		return string(i.Kind)
	}
}

// ErrorKind enumerates the terminal error shapes RDIE surfaces to callers.
type ErrorKind string

const (
	ErrNotFound           ErrorKind = "NotFound"
	ErrNotVisible         ErrorKind = "NotVisible"
	ErrNotInteractive     ErrorKind = "NotInteractive"
	ErrObscured           ErrorKind = "Obscured"
	ErrValueRejected      ErrorKind = "ValueRejected"
	ErrVerificationFailed ErrorKind = "VerificationFailed"
	ErrBrowserDisconnected ErrorKind = "BrowserDisconnected"
	ErrNavigationDetected ErrorKind = "NavigationDetected"
	ErrTimeout            ErrorKind = "Timeout"
	ErrUnsupported        ErrorKind = "Unsupported"
)

// OutcomeError carries the typed failure reason for an unsuccessful or
// partially-verified Outcome.
type OutcomeError struct {
	Kind   ErrorKind `json:"kind"`
	Detail string    `json:"detail"`
}

func (e *OutcomeError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Outcome is the single typed result every RDIE public operation returns.
type Outcome struct {
	Success     bool          `json:"success"`
	Action      string        `json:"action"`
	Method      string        `json:"method"`
	Verified    bool          `json:"verified"`
	Navigated   bool          `json:"navigated"`
	MatchedText string        `json:"matched_text,omitempty"`
	Error       *OutcomeError `json:"error,omitempty"`
}

// Failed returns a non-success Outcome carrying the given ErrorKind/detail.
func Failed(action string, kind ErrorKind, detail string) Outcome {
	return Outcome{
		Success: false,
		Action:  action,
		Error:   &OutcomeError{Kind: kind, Detail: detail},
	}
}

// NavigatedSuccess returns the navigation-as-success Outcome (§7 "Navigation
// exceptions are not errors").
func NavigatedSuccess(action, method string) Outcome {
	return Outcome{Success: true, Action: action, Method: method, Navigated: true, Verified: true}
}

// CandidateKind tags the structural role of a CandidateElement.
type CandidateKind string

const (
	KindButton  CandidateKind = "button"
	KindLink    CandidateKind = "link"
	KindInput   CandidateKind = "input"
	KindSelect  CandidateKind = "select"
	KindRadio   CandidateKind = "radio"
	KindCheckbox CandidateKind = "checkbox"
	KindLabel   CandidateKind = "label"
	KindSwatch  CandidateKind = "swatch"
	KindOption  CandidateKind = "option"
	KindGeneric CandidateKind = "generic"
)

// TextBag is the bundle of text-bearing attributes C1.matches compares
// against a target value.
type TextBag struct {
	Text        string            `json:"text"`
	AriaLabel   string            `json:"ariaLabel"`
	Title       string            `json:"title"`
	Value       string            `json:"value"`
	Alt         string            `json:"alt"`
	Placeholder string            `json:"placeholder"`
	Name        string            `json:"name"`
	ID          string            `json:"id"`
	ClassName   string            `json:"className"`
	DataAttrs   map[string]string `json:"dataAttrs"`
}

// Geometry is the live, instant-in-time bounding box of a CandidateElement.
type Geometry struct {
	X               float64 `json:"x"`
	Y               float64 `json:"y"`
	W               float64 `json:"w"`
	H               float64 `json:"h"`
	InViewport      bool    `json:"inViewport"`
	ObscuredByPoint bool    `json:"obscuredByPointTest"`
}

// CenterPoint returns the coordinate C5 must click: the geometric center.
func (g Geometry) CenterPoint() (float64, float64) {
	return g.X + g.W/2, g.Y + g.H/2
}

// Visible reports whether the candidate has non-zero area, per the
// CandidateElement invariant (§3: "Every CandidateElement has w>0 ∧ h>0 at
// the instant of scoring").
func (g Geometry) Visible() bool {
	return g.W > 0 && g.H > 0
}

// CandidateElement is C3/C4's internal record for one live DOM element
// considered as a possible Intent target.
type CandidateElement struct {
	// Handle is an opaque, driver-specific reference to the live element
	// (a *rod.Element in the production driver).
	Handle interface{} `json:"-"`
	// FrameID identifies which frame (main or child) owns Handle; used to
	// compare frame-local bests against the running global best in C4's
	// frame traversal.
	FrameID string `json:"frameId"`

	Kind       CandidateKind `json:"kind"`
	TextBag    TextBag       `json:"textBag"`
	Geometry   Geometry      `json:"geometry"`
	Interactive bool         `json:"interactive"`

	// Score is transient: recomputed per search, never persisted or
	// compared across Intents.
	Score float64 `json:"score"`

	// MarkerID is the single-use DOM marker (data-element-index, etc.)
	// C4 wrote for this candidate, if any; the cascade reports its marker
	// through cascade.Result.MarkerAttr/MarkerVal and leaves this empty.
	// Markers are not removed from the DOM after use; their attribute
	// names carry a per-Intent nonce, so Intents do not collide (§3
	// no-marker-collision invariant).
	MarkerID string `json:"markerId,omitempty"`
}
