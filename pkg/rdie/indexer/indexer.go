// Package indexer implements C3, the Element Indexer: it produces the
// candidate pool for a search by defining the selector tiers (spec §4.3)
// and the container-scoping decision every cascade phase must honor
// (§4.3 step 1, §8 testable property 7 "selector-scope safety").
package indexer

import "github.com/bravebird/rdie/pkg/rdie/driver"

// Tier is one of the four selector tiers C4 picks from or merges (§4.3).
type Tier string

const (
	// TierA is the strict tier, for actions.
	TierA Tier = "button, [role=button], input[type=submit], input[type=button]"
	// TierB is the selection-widgets tier.
	TierB Tier = "input[type=radio], input[type=checkbox], label, select, option, [role=option], [role=combobox]"
	// TierC is the permissive tier, for discovery.
	TierC Tier = TierA + ", " + TierB + `, a, [onclick], [style*="cursor:pointer"], [class*="clickable"], [class*="selectable"], [class*="swatch"], img[alt]`
	// TierD is the inputs tier.
	TierD Tier = `input:not([type=hidden]):not([type=checkbox]):not([type=radio]), textarea, select`
)

// minContainerHeight is the §4.3 step-1 threshold: a containerSelector only
// scopes the search if it resolves to a visible element taller than this.
const minContainerHeight = 100.0

// ResolveContainer implements §4.3 step 1: if containerSelector matches a
// visible element with height > 100px, the search scope is that element's
// subtree; otherwise the full document root (scoped=false).
func ResolveContainer(frame driver.Frame, containerSelector string) (scoped bool, err error) {
	if containerSelector == "" {
		return false, nil
	}
	el, err := frame.QuerySelector(containerSelector)
	if err != nil {
		// Not found is not an error here: it just means "no scoping".
		if _, isDriverErr := err.(*driver.DriverError); isDriverErr {
			return false, nil
		}
		return false, err
	}
	if el == nil {
		return false, nil
	}
	visible, err := el.IsVisible()
	if err != nil || !visible {
		return false, nil
	}
	box, err := el.BoundingBox()
	if err != nil {
		return false, nil
	}
	return box.H > minContainerHeight, nil
}
