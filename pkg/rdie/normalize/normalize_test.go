package normalize

import "testing"

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"  Midnight   Blue! ": "midnight blue",
		"":                    "",
		"Size: S/M/L":         "size s m l",
		"co-op":                "co-op",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMatchesExact(t *testing.T) {
	if !Matches("Midnight Blue", "midnight blue", "") {
		t.Fatal("expected exact match")
	}
}

func TestMatchesPhrase(t *testing.T) {
	if !Matches("Color: Midnight Blue (in stock)", "Midnight Blue", "") {
		t.Fatal("expected phrase containment match")
	}
}

func TestMatchesBag(t *testing.T) {
	if !Matches("Blue Midnight Edition", "Midnight Blue", "") {
		t.Fatal("expected bag match regardless of word order")
	}
}

func TestMatchesBagRejectsPartial(t *testing.T) {
	if Matches("Midnight Only", "Midnight Blue", "") {
		t.Fatal("expected no match when a target word is entirely absent")
	}
}

func TestMatchesPhone(t *testing.T) {
	if !Matches("(415) 555-0100", "4155550100", PhoneFieldKind) {
		t.Fatal("expected phone digit-containment match")
	}
	if !Matches("+1 415 555 0100 ext 9", "5550100", PhoneFieldKind) {
		t.Fatal("expected phone substring match within a longer stored number")
	}
}

func TestShouldExcludeSelf(t *testing.T) {
	if !ShouldExclude(ElementAncestorTokens{Self: "main-navigation-link"}) {
		t.Fatal("expected navigation token on self to exclude")
	}
}

func TestShouldExcludeAncestor(t *testing.T) {
	tokens := ElementAncestorTokens{
		Self:      "button primary",
		Ancestors: []string{"card", "recommendation-carousel", "page-body"},
	}
	if !ShouldExclude(tokens) {
		t.Fatal("expected recommendation ancestor to exclude")
	}
}

func TestShouldExcludeBeyondFiveLevels(t *testing.T) {
	tokens := ElementAncestorTokens{
		Self:      "button",
		Ancestors: []string{"a", "b", "c", "d", "e", "cookie-banner"},
	}
	if ShouldExclude(tokens) {
		t.Fatal("exclusion token at ancestor level 6 must not count (§4.1: within 5 levels)")
	}
}

func TestCrossContaminated(t *testing.T) {
	if !CrossContaminated("first_name", "First / Last Name") {
		t.Fatal("expected first_name field mentioning 'last' to be cross-contaminated")
	}
	if CrossContaminated("first_name", "First Name") {
		t.Fatal("did not expect a clean first_name label to be flagged")
	}
}

func TestSiteHint(t *testing.T) {
	if got := SiteHint("https://checkout.myshopify.com/cart"); got != "shopify" {
		t.Errorf("SiteHint shopify = %q", got)
	}
	if got := SiteHint("https://example-store.com/checkout"); got != "generic" {
		t.Errorf("SiteHint generic = %q", got)
	}
}
