// Package normalize implements C1, the Normalizer: pure, side-effect-free
// text utilities for candidate/target comparison and exclusion predicates.
package normalize

import (
	"regexp"
	"strings"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	// punctuationRe strips punctuation except intra-word hyphens and digits.
	punctuationRe = regexp.MustCompile(`[^\p{L}\p{N}\s-]`)
	// strayHyphenRe matches hyphens that do not sit between two word characters.
	strayHyphenRe = regexp.MustCompile(`(^|\s)-+|-+(\s|$)`)
	nonAlnumRe    = regexp.MustCompile(`[^\p{L}\p{N}]`)
	nonDigitRe    = regexp.MustCompile(`\D`)
)

// Normalize lowercases, trims, collapses internal whitespace to single
// spaces, and strips punctuation except intra-word hyphens and digits.
// Empty/undefined input returns "".
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToLower(s)
	s = punctuationRe.ReplaceAllString(s, " ")
	s = strayHyphenRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// NormalizeStrict keeps alphanumerics only (no spaces). Used for OCR/exact
// checks.
func NormalizeStrict(s string) string {
	if s == "" {
		return ""
	}
	return nonAlnumRe.ReplaceAllString(strings.ToLower(s), "")
}

// DigitsOnly strips non-digits; used only for phone comparison.
func DigitsOnly(s string) string {
	return nonDigitRe.ReplaceAllString(s, "")
}

// isMultiWord reports whether the normalized value contains more than one
// word.
func isMultiWord(normalized string) bool {
	return strings.Contains(strings.TrimSpace(normalized), " ")
}

// wordSet returns the distinct normalized words of s.
func wordSet(normalized string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(normalized) {
		set[w] = struct{}{}
	}
	return set
}

// containmentMatch reports whether word appears as a prefix/suffix
// containment of any word in the set (used by the bag-match rule, §4.1
// rule 3: "every target word appears in candidate word-set using
// prefix/suffix containment").
func containmentMatch(word string, set map[string]struct{}) bool {
	for w := range set {
		if w == word || strings.HasPrefix(w, word) || strings.HasSuffix(w, word) ||
			strings.HasPrefix(word, w) || strings.HasSuffix(word, w) {
			return true
		}
	}
	return false
}

// FieldKind is a minimal local alias so normalize.Matches can special-case
// phone fields without importing the rdie package (avoiding an import
// cycle — normalize is a leaf per the dependency order in spec §2).
type FieldKind string

// PhoneFieldKind is the sentinel FieldKind value Matches checks for rule 4
// (phone-aware digit comparison).
const PhoneFieldKind FieldKind = "phone"

// Matches implements C1's ordered decision procedure (§4.1), short-circuiting
// on the first rule that holds:
//  1. exact match on normalized strings
//  2. (multi-word target) phrase containment
//  3. (multi-word target) bag match: every target word present via
//     prefix/suffix containment
//  4. (phone field only) digit-string containment
func Matches(candidateText, targetValue string, fieldKind FieldKind) bool {
	a := Normalize(candidateText)
	b := Normalize(targetValue)
	if a == "" || b == "" {
		return false
	}

	// 1. exact match
	if a == b {
		return true
	}

	multiWord := isMultiWord(b)

	// 2. phrase match
	if multiWord && strings.Contains(a, b) {
		return true
	}

	// 3. bag match
	if multiWord {
		candidateWords := wordSet(a)
		allPresent := true
		for w := range wordSet(b) {
			if !containmentMatch(w, candidateWords) {
				allPresent = false
				break
			}
		}
		if allPresent {
			return true
		}
	}

	// 4. phone match
	if fieldKind == PhoneFieldKind {
		ad := DigitsOnly(candidateText)
		bd := DigitsOnly(targetValue)
		if bd != "" && strings.Contains(ad, bd) {
			return true
		}
	}

	return false
}

// exclusionTokens is the class/id/name token set whose presence on an
// element or an ancestor (within 5 levels) disqualifies a candidate before
// scoring (§4.1 shouldExclude).
var exclusionTokens = []string{
	"country", "localization", "currency", "language", "region",
	"shipping-picker", "search", "filter", "sort", "breadcrumb",
	"navigation", "recommendation", "related", "you-may-also-like", "cookie",
}

// ExclusionTokens returns a copy of the canonical exclusion-token list. The
// JS-side check in assets/exclusion_helper.js carries its own hard-coded
// copy of the same tokens (spec §4.3 step 4 calls shouldExclude per element).
func ExclusionTokens() []string {
	out := make([]string, len(exclusionTokens))
	copy(out, exclusionTokens)
	return out
}

// ElementAncestorTokens is the minimal shape ShouldExclude needs: the
// element's own class/id/name tokens plus the same for each of up to 5
// ancestors, nearest first. The caller fills it in, so C1 itself never
// touches the driver (it stays a pure, leaf package); the cascade's JS
// payloads apply the same rule in the browser instead of building one.
type ElementAncestorTokens struct {
	// Self and Ancestors are each a lowercased blob of class+id+name
	// tokens for one node (self first, then ancestors nearest-first,
	// capped at 5 per §4.1 "within 5 levels").
	Self      string
	Ancestors []string
}

// ShouldExclude returns true if the element or any ancestor within 5 levels
// carries a token from the exclusion set (§4.1).
func ShouldExclude(tokens ElementAncestorTokens) bool {
	if containsAnyToken(tokens.Self) {
		return true
	}
	for i, a := range tokens.Ancestors {
		if i >= 5 {
			break
		}
		if containsAnyToken(a) {
			return true
		}
	}
	return false
}

func containsAnyToken(blob string) bool {
	lower := strings.ToLower(blob)
	for _, tok := range exclusionTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// crossContamination is the cross-contamination matrix §4.1 requires for
// address/name fields: a candidate whose label blob contains a "forbidden"
// token for the given FieldKind is rejected even though it may otherwise
// match (e.g. a first-name input whose label also says "last", or an
// address field whose label also says "email").
var crossContamination = map[FieldKind][]string{
	"first_name":    {"last"},
	"last_name":     {"first"},
	"address_line1": {"email", "phone"},
	"address_line2": {"email", "phone"},
	"email":         {"phone", "address"},
	"phone":         {"email"},
	"city":          {"email"},
	"postal":        {"email", "phone"},
}

// CrossContaminated reports whether labelBlob (the element's own text-bag,
// lowercased) mentions a forbidden term for fieldKind, per §4.1's
// cross-contamination matrix.
func CrossContaminated(fieldKind FieldKind, labelBlob string) bool {
	forbidden, ok := crossContamination[fieldKind]
	if !ok {
		return false
	}
	lower := strings.ToLower(labelBlob)
	for _, term := range forbidden {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// knownHosts maps a hostname substring to the storefront family siteHint
// returns. Kept small and explicit per §4.1: "a known set of hostnames".
var knownHosts = map[string]string{
	"shopify":    "shopify",
	"myshopify":  "shopify",
	"bigcommerce": "bigcommerce",
	"magento":    "magento",
	"woocommerce": "woocommerce",
	"salesforce": "salesforce-commerce",
	"demandware": "salesforce-commerce",
}

// SiteHint returns the detected storefront family for url if it matches a
// known hostname substring; otherwise "generic" (§4.1).
func SiteHint(url string) string {
	lower := strings.ToLower(url)
	for substr, family := range knownHosts {
		if strings.Contains(lower, substr) {
			return family
		}
	}
	return "generic"
}
