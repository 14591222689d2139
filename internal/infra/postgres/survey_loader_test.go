package postgres

import (
	"testing"
)

func TestNormalizeOptionsObjectArray(t *testing.T) {
	raw := []byte(`[{"id":"o2","label":"No","order":2},{"id":"o1","label":"Yes","order":1}]`)
	opts := normalizeOptions(raw)
	if len(opts) != 2 {
		t.Fatalf("expected 2 options, got %d", len(opts))
	}
	// Sorted by order.
	if opts[0].ID != "o1" || opts[1].ID != "o2" {
		t.Fatalf("expected order-sorted options, got %+v", opts)
	}
}

func TestNormalizeOptionsBareLabels(t *testing.T) {
	opts := normalizeOptions([]byte(`["Yes","No"]`))
	if len(opts) != 2 {
		t.Fatalf("expected 2 options, got %d", len(opts))
	}
	if opts[0].ID != "Yes" || opts[0].Label != "Yes" || opts[0].Order != 1 {
		t.Fatalf("bare label must become id/label with positional order, got %+v", opts[0])
	}
}

func TestNormalizeOptionsLegacyJoined(t *testing.T) {
	for _, raw := range []string{`"Yes;No;Maybe"`, `Yes;No;Maybe`} {
		opts := normalizeOptions([]byte(raw))
		if len(opts) != 3 {
			t.Fatalf("%s: expected 3 options, got %+v", raw, opts)
		}
		if opts[2].Label != "Maybe" || opts[2].Order != 3 {
			t.Fatalf("%s: unexpected last option %+v", raw, opts[2])
		}
	}
}

func TestNormalizeOptionsEmpty(t *testing.T) {
	for _, raw := range [][]byte{nil, []byte(""), []byte("null"), []byte(`" ; ; "`)} {
		if opts := normalizeOptions(raw); len(opts) != 0 {
			t.Fatalf("%q: expected no options, got %+v", raw, opts)
		}
	}
}

func TestNormalizeOptionsMixedArray(t *testing.T) {
	// Object and bare-string entries can coexist in stored data.
	opts := normalizeOptions([]byte(`[{"id":"o1","label":"Yes","order":1},"No"]`))
	if len(opts) != 2 {
		t.Fatalf("expected 2 options, got %+v", opts)
	}
	if opts[1].ID != "No" || opts[1].Order != 2 {
		t.Fatalf("bare entry should keep its position, got %+v", opts[1])
	}
}
