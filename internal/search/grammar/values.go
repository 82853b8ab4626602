package grammar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Value is a parsed literal.
type Value interface {
	Node
	// Express returns the native value used in comparisons.
	Express() any
}

// EmptySet is what the Empty literal expresses to: a collection with no members.
type EmptySet struct{}

func (EmptySet) String() string { return "Empty" }

// NoneValue is the None literal, expressing to nil.
type NoneValue struct{}

// EmptyValue is the Empty literal.
type EmptyValue struct{}

// StringValue is a quoted or bare word value.
type StringValue struct {
	Text   string
	Quoted bool
}

// NumericValue keeps both the parsed number and its lexical form.
type NumericValue struct {
	Float float64
	Raw   string
}

// TypedValue is an explicit |type|value| literal.
type TypedValue struct {
	Type string
	Raw  string
	val  any
}

func (NoneValue) node()    {}
func (EmptyValue) node()   {}
func (StringValue) node()  {}
func (NumericValue) node() {}
func (TypedValue) node()   {}

func (NoneValue) Express() any      { return nil }
func (EmptyValue) Express() any     { return EmptySet{} }
func (v StringValue) Express() any  { return v.Text }
func (v NumericValue) Express() any { return v.Float }
func (v TypedValue) Express() any   { return v.val }

func (NoneValue) String() string  { return "None" }
func (EmptyValue) String() string { return "Empty" }

func (v StringValue) String() string {
	if v.Quoted {
		return strconv.Quote(v.Text)
	}
	return v.Text
}

func (v NumericValue) String() string { return v.Raw }

func (v TypedValue) String() string {
	return fmt.Sprintf("|%s|%s|", v.Type, v.Raw)
}

// IsInteger reports whether the lexical form has no fraction or exponent.
func (v NumericValue) IsInteger() bool {
	return !strings.ContainsAny(v.Raw, ".eE")
}

// NewTypedValue converts raw to the declared type.
func NewTypedValue(typ, raw string) (TypedValue, error) {
	v := TypedValue{Type: typ, Raw: raw}
	s := strings.TrimSpace(raw)
	var err error
	switch typ {
	case "int":
		v.val, err = strconv.ParseInt(s, 10, 64)
	case "float":
		v.val, err = strconv.ParseFloat(s, 64)
	case "bool":
		v.val, err = strconv.ParseBool(s)
	case "str", "string":
		v.val = raw
	case "date":
		v.val, err = time.Parse(time.DateOnly, s)
	case "datetime":
		v.val, err = parseDateTime(s)
	default:
		return v, fmt.Errorf("unknown type %q", typ)
	}
	if err != nil {
		return v, fmt.Errorf("invalid %s value %q", typ, raw)
	}
	return v, nil
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	time.DateTime,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

func parseDateTime(s string) (time.Time, error) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized datetime %q", s)
}
