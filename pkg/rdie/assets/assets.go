// Package assets embeds the pre-authored JS payloads RDIE feeds to the
// browser driver as opaque strings (spec §9 "Embedded JS strings executed
// in the browser"). Each file is a small, pure DSL fragment; each accessor
// below composes its file with the shared helpers and the sanitization
// wrapper when it is called, and the composed string is not cached.
package assets

import (
	_ "embed"
	"fmt"
	"strings"
)

//go:embed exclusion_helper.js
var exclusionHelper string

//go:embed inspect_element.js
var inspectElement string

//go:embed overlay_search.js
var overlaySearch string

//go:embed dom_tree_search.js
var domTreeSearch string

//go:embed pattern_match.js
var patternMatch string

//go:embed discovery.js
var discovery string

//go:embed verification.js
var verification string

//go:embed validation_errors.js
var validationErrors string

//go:embed action_click.js
var actionClick string

//go:embed action_quantity.js
var actionQuantity string

//go:embed action_dropdown.js
var actionDropdown string

//go:embed payment_iframe.js
var paymentIframe string

//go:embed field_locate.js
var fieldLocate string

// helpers is prepended to every payload that references __rdieShouldExclude
// or __rdieInspect, so each phase file can stay a single pure function
// without repeating the shared DOM-walk logic.
var helpers = exclusionHelper + "\n" + inspectElement + "\n"

// sanitize wraps a composed payload expression in the harness spec §9
// requires: (a) await the result if it is a thenable, (b) recursively
// strip non-ASCII characters from returned strings (defends against the
// driver's JSON bridge on legacy runtimes), and (c) convert thrown
// exceptions into {found:false, error:...} shapes. Everything before the
// payload's trailing "(function" line (leading comments, the shared helper
// declarations) goes into the wrapper's body as statements, so only that
// function expression is bound to __fn. Runs on every accessor call.
func sanitize(fnExpr string) string {
	prelude := ""
	if i := strings.LastIndex(fnExpr, "\n(function"); i >= 0 {
		prelude, fnExpr = fnExpr[:i], fnExpr[i+1:]
	}
	return fmt.Sprintf(`(async function() {
%s
  function __rdieStripNonAscii(v) {
    if (typeof v === "string") return v.replace(/[^\x00-\x7F]/g, "");
    if (Array.isArray(v)) return v.map(__rdieStripNonAscii);
    if (v && typeof v === "object") {
      var out = {};
      for (var k in v) out[k] = __rdieStripNonAscii(v[k]);
      return out;
    }
    return v;
  }
  try {
    var __fn = (%s);
    var __result = __fn.apply(this, arguments);
    if (__result && typeof __result.then === "function") {
      __result = await __result;
    }
    return __rdieStripNonAscii(__result);
  } catch (e) {
    return { found: false, verified: false, success: false, error: String(e && e.message ? e.message : e) };
  }
})`, prelude, fnExpr)
}

// OverlaySearch returns the composed Phase 1 payload (spec §4.4).
func OverlaySearch() string { return sanitize(helpers + overlaySearch) }

// DOMTreeSearch returns the composed Phase 2 payload.
func DOMTreeSearch() string { return sanitize(helpers + domTreeSearch) }

// PatternMatch returns the composed Phase 3 payload.
func PatternMatch() string { return sanitize(helpers + patternMatch) }

// Discovery returns the composed Phase 4 payload.
func Discovery() string { return sanitize(helpers + discovery) }

// Verification returns the composed C6 DOM-scan payload.
func Verification() string { return sanitize(helpers + verification) }

// ValidationErrors returns the composed C6 validation-error-reader payload.
func ValidationErrors() string { return sanitize(validationErrors) }

// ActionClick returns the composed C5 click-fallback payload.
func ActionClick() string { return sanitize(helpers + actionClick) }

// ActionQuantity returns the composed C5 quantity payload.
func ActionQuantity() string { return sanitize(actionQuantity) }

// ActionDropdown returns the composed C5 custom-dropdown payload.
func ActionDropdown() string { return sanitize(actionDropdown) }

// FieldLocate returns the composed field/dropdown locator payload.
func FieldLocate() string { return sanitize(helpers + fieldLocate) }

// PaymentIframeDetect returns the composed pre-cascade payment-iframe
// detection payload (spec §4.4 "Verification iframes").
func PaymentIframeDetect() string { return sanitize(paymentIframe) }

// InspectElement returns the composed single-element re-inspection payload
// used by C5's scan-plan-act geometry re-acquisition loop (spec §4.5
// preamble: "(re)acquire the element's geometry" before every pointer
// event). Runs at frame scope against the marker attribute C4 already wrote,
// rather than against a live element handle, since a stale handle is
// exactly the failure mode scan-plan-act defends against.
//
// Args: (markerAttr, markerValue)
// Returns: {found, kind, textBag, geometry, interactive}
func InspectElement() string {
	return sanitize(helpers + `(function(markerAttr, markerValue) {
  var el = document.querySelector("[" + markerAttr + '="' + markerValue + '"]');
  if (!el) return { found: false };
  var info = __rdieInspect(el);
  info.found = true;
  return info;
})`)
}
