// Package address implements the Address Verifier collaborator: given a
// target delivery address, find the best-matching saved address on a
// checkout page by weighted field similarity, select it if the match is
// good enough, or fall back to initiating a new-address form.
package address

import (
	_ "embed"
	"strings"
	"time"

	"github.com/bravebird/rdie/pkg/rdie/driver"
	"github.com/pmezard/go-difflib/difflib"
)

//go:embed extract.js
var extractJS string

//go:embed select.js
var selectJS string

//go:embed add_new.js
var addNewJS string

// Weights mirror the scorer's priority: PIN code is the single most
// reliable signal for an Indian address, followed by city, street, name.
const (
	pinCodeWeight = 0.40
	cityWeight    = 0.25
	streetWeight  = 0.20
	nameWeight    = 0.15

	// MatchThreshold is the minimum weighted score required to reuse a
	// saved address instead of adding a new one.
	MatchThreshold = 0.70

	selectSettleWait = 1 * time.Second
	formSettleWait   = 1500 * time.Millisecond
)

var sleep = time.Sleep

// Action is the three-state result the Verifier returns: selected_existing
// means a saved address was selected, while add_new_initiated means a
// new-address form was opened for RDIE field fills. No cmd/ entry point
// calls the Verifier.
type Action string

const (
	ActionSelectedExisting Action = "selected_existing"
	ActionAddNewInitiated  Action = "add_new_initiated"
	ActionAddNewFailed     Action = "add_new_failed"
)

// Target is the address RDIE is trying to have selected or entered.
type Target struct {
	FirstName    string
	LastName     string
	AddressLine1 string
	AddressLine2 string
	City         string
	Province     string
	PostalCode   string
	Country      string
	Phone        string
}

// Saved is one address card extracted from the page.
type Saved struct {
	Index    int    `json:"index"`
	Text     string `json:"text"`
	Preview  string `json:"preview"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	PinCode  string `json:"pinCode"`
	City     string `json:"city"`
	Selected bool   `json:"selected"`
}

// Match pairs a Saved address with its weighted similarity score.
type Match struct {
	Saved Saved
	Score float64
}

// Result is the outcome of a verify-and-select pass.
type Result struct {
	Action         Action
	MatchScore     float64
	AddressPreview string
	Error          string
}

type selectResp struct {
	Success bool   `json:"success"`
	Method  string `json:"method"`
}

type clickResp struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
}

// Verifier drives the extract -> score -> select-or-add-new flow against a
// single page's main frame.
type Verifier struct {
	Driver driver.Driver
}

func New(d driver.Driver) *Verifier {
	return &Verifier{Driver: d}
}

// VerifyAndSelect implements the three-state contract: select a saved
// address scoring at or above MatchThreshold, or click "Add new address"
// and report add_new_initiated so the caller proceeds to fill the form.
func (v *Verifier) VerifyAndSelect(target Target) (Result, error) {
	saved, err := v.extractSaved()
	if err != nil {
		return Result{}, err
	}
	if len(saved) == 0 {
		return v.addNewAddress()
	}

	best := BestMatch(saved, target)
	if best == nil || best.Score < MatchThreshold {
		return v.addNewAddress()
	}

	var resp selectResp
	if err := v.Driver.Evaluate(selectJS, []interface{}{best.Saved.Index}, &resp); err != nil {
		return Result{}, err
	}
	sleep(selectSettleWait)

	if !resp.Success {
		return v.addNewAddress()
	}
	return Result{
		Action:         ActionSelectedExisting,
		MatchScore:     best.Score,
		AddressPreview: best.Saved.Preview,
	}, nil
}

func (v *Verifier) extractSaved() ([]Saved, error) {
	var saved []Saved
	if err := v.Driver.Evaluate(extractJS, nil, &saved); err != nil {
		return nil, err
	}
	return saved, nil
}

func (v *Verifier) addNewAddress() (Result, error) {
	var resp clickResp
	if err := v.Driver.Evaluate(addNewJS, nil, &resp); err != nil {
		return Result{}, err
	}
	if !resp.Success {
		return Result{Action: ActionAddNewFailed, Error: "add new address button not found"}, nil
	}
	sleep(formSettleWait)
	return Result{Action: ActionAddNewInitiated}, nil
}

// BestMatch scores every saved address against target and returns the
// highest-scoring one, or nil if saved is empty.
func BestMatch(saved []Saved, target Target) *Match {
	var best *Match
	for _, addr := range saved {
		score := scoreAddress(addr, target)
		if best == nil || score > best.Score {
			m := Match{Saved: addr, Score: score}
			best = &m
		}
	}
	return best
}

func scoreAddress(addr Saved, target Target) float64 {
	var score float64

	targetPin := strings.TrimSpace(target.PostalCode)
	if targetPin != "" && addr.PinCode != "" && targetPin == addr.PinCode {
		score += pinCodeWeight
	}

	targetCity := strings.TrimSpace(target.City)
	if targetCity != "" && addr.City != "" {
		score += similarity(targetCity, addr.City) * cityWeight
	}

	targetStreet := strings.TrimSpace(target.AddressLine1 + " " + target.AddressLine2)
	if targetStreet != "" && addr.Text != "" {
		score += similarity(targetStreet, addr.Text) * streetWeight
	}

	targetName := strings.TrimSpace(target.FirstName + " " + target.LastName)
	if targetName != "" && addr.Name != "" {
		score += similarity(targetName, addr.Name) * nameWeight
	}

	return score
}

// similarity is a character-level SequenceMatcher.ratio() analog: an exact
// match (after lowercasing/trimming) short-circuits to 1.0, otherwise
// go-difflib computes the same ratio Python's difflib.SequenceMatcher would.
func similarity(a, b string) float64 {
	s1 := strings.ToLower(strings.TrimSpace(a))
	s2 := strings.ToLower(strings.TrimSpace(b))
	if s1 == "" || s2 == "" {
		return 0
	}
	if s1 == s2 {
		return 1.0
	}
	m := difflib.NewMatcher(splitChars(s1), splitChars(s2))
	return m.Ratio()
}

func splitChars(s string) []string {
	runes := []rune(s)
	out := make([]string, len(runes))
	for i, r := range runes {
		out[i] = string(r)
	}
	return out
}
