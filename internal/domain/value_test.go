package domain

import (
	"encoding/json"
	"math"
	"testing"
)

func TestValueEmptiness(t *testing.T) {
	cases := []struct {
		name  string
		value Value
		empty bool
	}{
		{"null", NullValue(), true},
		{"empty text", TextValue(""), true},
		{"text", TextValue("hi"), false},
		{"empty list", ListValue(nil), true},
		{"list", ListValue([]string{"a"}), false},
		{"NaN", NumberValue(math.NaN()), true},
		{"zero", NumberValue(0), false},
		{"false", BoolValue(false), false},
	}
	for _, tc := range cases {
		if got := tc.value.IsEmpty(); got != tc.empty {
			t.Errorf("%s: IsEmpty() = %v, want %v", tc.name, got, tc.empty)
		}
	}
}

func TestValueJSONRoundTrip(t *testing.T) {
	for _, v := range []Value{
		NullValue(),
		BoolValue(true),
		NumberValue(7),
		TextValue("free text"),
		ListValue([]string{"a", "b"}),
	} {
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal %+v: %v", v, err)
		}
		var back Value
		if err := json.Unmarshal(raw, &back); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if !v.Equal(back) {
			t.Fatalf("round trip changed %+v into %+v", v, back)
		}
	}
}

func TestValueCoercions(t *testing.T) {
	if !TextValue("true").AsBool() || TextValue("no").AsBool() {
		t.Fatalf("text boolean coercion broken")
	}
	if !NumberValue(1).AsBool() || NumberValue(0).AsBool() {
		t.Fatalf("number boolean coercion broken")
	}
	if TextValue("8").AsInt() != 8 || TextValue("x").AsInt() != 0 {
		t.Fatalf("integer coercion broken")
	}
}

func TestNormalizePhone(t *testing.T) {
	if got := NormalizePhone("+55 (11) 99999-8888"); got != "5511999998888" {
		t.Fatalf("expected digits only, got %q", got)
	}
	if got := NormalizePhone("no digits"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
