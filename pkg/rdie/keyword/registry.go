// Package keyword implements C2, the Keyword Registry: a static table
// mapping each FieldKind/ClickAction kind to an ordered keyword list,
// exposed as data (spec §4.2), overridable by the orchestrator (spec §6
// "Keyword catalogue").
//
// The three-tier KeywordSet shape (primary/secondary/patterns) is grounded
// on original_source/src/checkout_ai/utils/ecommerce_keywords.py's
// dataclass of the same name, which gives "ordered by expected
// discriminating power" (§4.2) three literal tiers instead of one
// ambiguous flat ordering.
package keyword

// KeywordSet holds the keyword variations for one intent kind, ordered by
// expected discriminating power: Primary first, then Secondary, then
// Patterns (cross-lingual/regex-shaped synonyms).
type KeywordSet struct {
	Primary   []string
	Secondary []string
	Patterns  []string
}

// All returns Primary+Secondary+Patterns concatenated, preserving tier
// order.
func (k KeywordSet) All() []string {
	out := make([]string, 0, len(k.Primary)+len(k.Secondary)+len(k.Patterns))
	out = append(out, k.Primary...)
	out = append(out, k.Secondary...)
	out = append(out, k.Patterns...)
	return out
}

// Registry is the keyword → intent-kind table. Callers may construct their
// own via NewRegistry(overrides) to inject localized keywords (spec §6).
type Registry struct {
	fields map[string]KeywordSet
	clicks map[string]KeywordSet
}

// NewRegistry returns a Registry seeded with DefaultFields/DefaultClicks,
// with any entries in overrideFields/overrideClicks replacing the default
// for that key (a full KeywordSet replacement, not a per-tier merge — the
// orchestrator owns the whole set once it overrides a key).
func NewRegistry(overrideFields, overrideClicks map[string]KeywordSet) *Registry {
	r := &Registry{
		fields: cloneMap(DefaultFields()),
		clicks: cloneMap(DefaultClicks()),
	}
	for k, v := range overrideFields {
		r.fields[k] = v
	}
	for k, v := range overrideClicks {
		r.clicks[k] = v
	}
	return r
}

func cloneMap(m map[string]KeywordSet) map[string]KeywordSet {
	out := make(map[string]KeywordSet, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// FieldKeywords returns the ordered keyword list for a FillField/
// SelectDropdown field kind, or nil if unknown.
func (r *Registry) FieldKeywords(fieldKind string) []string {
	if set, ok := r.fields[fieldKind]; ok {
		return set.All()
	}
	return nil
}

// ClickKeywords returns the ordered keyword list for a ClickAction kind.
// For "add_to_cart" this is the exact prioritized chain C7's intent-specific
// recovery (§4.7.1) cycles through as distinct intents.
func (r *Registry) ClickKeywords(clickKind string) []string {
	if set, ok := r.clicks[clickKind]; ok {
		return set.All()
	}
	return nil
}

// DefaultFields is the built-in FieldKind keyword table.
func DefaultFields() map[string]KeywordSet {
	return map[string]KeywordSet{
		"email": {
			Primary:   []string{"email", "e-mail", "email address"},
			Secondary: []string{"your email", "contact email", "correo"},
		},
		"first_name": {
			Primary:   []string{"first name", "given name", "firstname"},
			Secondary: []string{"name"},
		},
		"last_name": {
			Primary:   []string{"last name", "surname", "family name", "lastname"},
		},
		"phone": {
			Primary:   []string{"phone", "phone number", "mobile", "telephone"},
			Secondary: []string{"contact number", "cell"},
		},
		"address_line1": {
			Primary:   []string{"address", "address line 1", "street address", "address 1"},
			Secondary: []string{"house number and street"},
		},
		"address_line2": {
			Primary:   []string{"address line 2", "apartment", "suite", "unit", "address 2"},
		},
		"city": {
			Primary: []string{"city", "town"},
		},
		"state": {
			Primary:   []string{"state", "province", "region"},
			Secondary: []string{"state/province"},
		},
		"postal": {
			Primary:   []string{"postal code", "zip code", "zip", "postcode"},
			Secondary: []string{"pin code", "pincode"},
		},
		"country": {
			Primary: []string{"country", "country/region"},
		},
		"password": {
			Primary: []string{"password", "pass"},
		},
		"card_number": {
			Primary:   []string{"card number", "credit card number", "card no"},
			Secondary: []string{"number"},
		},
		"card_expiry": {
			Primary:   []string{"expiry", "expiration date", "exp date", "mm/yy"},
		},
		"card_cvv": {
			Primary:   []string{"cvv", "cvc", "security code", "card verification"},
		},
		"upi_id": {
			Primary: []string{"upi id", "vpa", "upi address"},
		},
		"landmark": {
			Primary: []string{"landmark", "nearby landmark"},
		},
	}
}

// DefaultClicks is the built-in ClickAction keyword table. The add_to_cart
// ordering is the one §4.2 calls out explicitly: "add for ship" is ordered
// before "add to bag" on storefronts where both appear (pickup-vs-ship
// disambiguation), and the full chain is what C7's intent-specific recovery
// cycles through.
func DefaultClicks() map[string]KeywordSet {
	return map[string]KeywordSet{
		"add_to_cart": {
			Primary: []string{
				"add for ship", "add to cart", "add to bag", "add to basket", "buy now",
			},
			Secondary: []string{"add item", "add selected", "add to trolley"},
		},
		"checkout": {
			Primary:   []string{"checkout", "check out", "proceed to checkout"},
			Secondary: []string{"continue to checkout", "go to checkout"},
		},
		"continue": {
			Primary: []string{"continue", "next", "proceed"},
		},
		"guest_checkout": {
			Primary:   []string{"guest checkout", "checkout as guest", "continue as guest"},
			Secondary: []string{"guest"},
		},
		"view_cart": {
			Primary:   []string{"view cart", "view bag", "view basket", "go to cart"},
			Secondary: []string{"cart", "bag", "basket"},
		},
	}
}
