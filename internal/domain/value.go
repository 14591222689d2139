package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueKind discriminates the shapes an answer value can take.
type ValueKind uint8

const (
	ValueNull ValueKind = iota
	ValueBool
	ValueNumber
	ValueText
	ValueList
)

// Value is the tagged union held by an Answer. The zero Value is null.
// Constructors below are the only way to produce a non-null Value, so the
// shape always matches the owning question's kind.
type Value struct {
	kind ValueKind
	b    bool
	n    float64
	s    string
	list []string
}

func NullValue() Value               { return Value{} }
func BoolValue(b bool) Value         { return Value{kind: ValueBool, b: b} }
func NumberValue(n float64) Value    { return Value{kind: ValueNumber, n: n} }
func TextValue(s string) Value       { return Value{kind: ValueText, s: s} }
func ListValue(items []string) Value { return Value{kind: ValueList, list: items} }

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsNull() bool    { return v.kind == ValueNull }

// Bool returns the boolean payload; only meaningful for ValueBool.
func (v Value) Bool() bool { return v.b }

// Number returns the numeric payload; only meaningful for ValueNumber.
func (v Value) Number() float64 { return v.n }

// Text returns the text payload; only meaningful for ValueText.
func (v Value) Text() string { return v.s }

// List returns the string list payload; only meaningful for ValueList.
// The returned slice must not be mutated by the caller.
func (v Value) List() []string { return v.list }

// IsEmpty reports whether the value counts as unanswered for validation:
// null, empty text, empty list, or NaN.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case ValueNull:
		return true
	case ValueText:
		return v.s == ""
	case ValueList:
		return len(v.list) == 0
	case ValueNumber:
		return math.IsNaN(v.n)
	default:
		return false
	}
}

// Equal compares two values by kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case ValueNull:
		return true
	case ValueBool:
		return v.b == o.b
	case ValueNumber:
		return v.n == o.n
	case ValueText:
		return v.s == o.s
	case ValueList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != o.list[i] {
				return false
			}
		}
		return true
	}
	return false
}

// Contains reports list membership; false for non-list values.
func (v Value) Contains(token string) bool {
	for _, item := range v.list {
		if item == token {
			return true
		}
	}
	return false
}

// AsBool coerces the value to a boolean the way vote inputs arrive from
// clients: real booleans pass through, numbers are non-zero, text matches
// the usual truthy spellings.
func (v Value) AsBool() bool {
	switch v.kind {
	case ValueBool:
		return v.b
	case ValueNumber:
		return v.n != 0
	case ValueText:
		switch strings.ToLower(strings.TrimSpace(v.s)) {
		case "true", "1", "yes", "sim":
			return true
		}
	}
	return false
}

// AsInt coerces the value to an integer, defaulting to 0 on parse failure.
func (v Value) AsInt() int {
	switch v.kind {
	case ValueNumber:
		if math.IsNaN(v.n) {
			return 0
		}
		return int(v.n)
	case ValueText:
		if n, err := strconv.Atoi(strings.TrimSpace(v.s)); err == nil {
			return n
		}
	case ValueBool:
		if v.b {
			return 1
		}
	}
	return 0
}

// Token renders the value as a single option token for toggle-in-set input.
func (v Value) Token() string {
	switch v.kind {
	case ValueText:
		return v.s
	case ValueNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case ValueBool:
		return strconv.FormatBool(v.b)
	}
	return ""
}

// MarshalJSON encodes the payload directly (null, bool, number, string or
// string array), matching the wire shape clients send and the persisted form.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueNull:
		return []byte("null"), nil
	case ValueBool:
		return json.Marshal(v.b)
	case ValueNumber:
		if math.IsNaN(v.n) {
			return []byte("null"), nil
		}
		return json.Marshal(v.n)
	case ValueText:
		return json.Marshal(v.s)
	case ValueList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	}
	return nil, fmt.Errorf("unknown value kind %d", v.kind)
}

// UnmarshalJSON accepts any of the payload shapes clients may send.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*v = NullValue()
		return nil
	}
	switch trimmed[0] {
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = BoolValue(b)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = TextValue(s)
	case '[':
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*v = ListValue(list)
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*v = NumberValue(n)
	}
	return nil
}
