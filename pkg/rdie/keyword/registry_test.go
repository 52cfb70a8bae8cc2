package keyword

import "testing"

func TestAddToCartOrderingShipBeforeBag(t *testing.T) {
	r := NewRegistry(nil, nil)
	all := r.ClickKeywords("add_to_cart")

	shipIdx, bagIdx := -1, -1
	for i, kw := range all {
		switch kw {
		case "add for ship":
			shipIdx = i
		case "add to bag":
			bagIdx = i
		}
	}
	if shipIdx == -1 || bagIdx == -1 {
		t.Fatalf("expected both keywords present, got %v", all)
	}
	if shipIdx >= bagIdx {
		t.Fatalf("expected 'add for ship' (%d) before 'add to bag' (%d)", shipIdx, bagIdx)
	}
}

func TestOverrideReplacesWholeSet(t *testing.T) {
	r := NewRegistry(map[string]KeywordSet{
		"email": {Primary: []string{"correo electronico"}},
	}, nil)
	got := r.FieldKeywords("email")
	if len(got) != 1 || got[0] != "correo electronico" {
		t.Fatalf("expected override to fully replace the default set, got %v", got)
	}
}

func TestUnknownKindReturnsNil(t *testing.T) {
	r := NewRegistry(nil, nil)
	if got := r.FieldKeywords("does_not_exist"); got != nil {
		t.Fatalf("expected nil for unknown field kind, got %v", got)
	}
}
