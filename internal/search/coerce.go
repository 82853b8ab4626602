package search

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/atlekbai/collection_search/internal/query"
	"github.com/atlekbai/collection_search/internal/schema"
	"github.com/atlekbai/collection_search/internal/search/grammar"
)

// coerce converts a literal to a bind argument comparable with column c.
func coerce(d query.Dialect, c *schema.Column, v grammar.Value, prefs DatePrefs) (any, error) {
	raw := v.Express()
	if raw == nil {
		return nil, nil
	}
	mismatch := fmt.Errorf("%w: cannot compare %s column %q with %s", ErrTypeMismatch, c.Type, c.Name, v)

	switch c.Type {
	case schema.ColInteger, schema.ColFloat:
		switch x := raw.(type) {
		case float64:
			if c.Type == schema.ColInteger {
				return numericArg(v), nil
			}
			return x, nil
		case int64:
			return x, nil
		case bool:
			if x {
				return int64(1), nil
			}
			return int64(0), nil
		case string:
			if n, err := strconv.ParseInt(x, 10, 64); err == nil {
				return n, nil
			}
			if f, err := strconv.ParseFloat(x, 64); err == nil {
				return f, nil
			}
		}
		return nil, mismatch

	case schema.ColBoolean:
		switch x := raw.(type) {
		case bool:
			return x, nil
		case float64:
			if x == 0 || x == 1 {
				return x == 1, nil
			}
		case int64:
			if x == 0 || x == 1 {
				return x == 1, nil
			}
		case string:
			if b, err := strconv.ParseBool(x); err == nil {
				return b, nil
			}
			switch strings.ToLower(x) {
			case "yes", "y":
				return true, nil
			case "no", "n":
				return false, nil
			}
		}
		return nil, mismatch

	case schema.ColDate, schema.ColTimestamp:
		var t time.Time
		switch x := raw.(type) {
		case time.Time:
			t = x
		case string:
			parsed, err := ParseDate(x, prefs)
			if err != nil {
				return nil, err
			}
			t = parsed
		default:
			return nil, mismatch
		}
		if c.Type == schema.ColDate {
			return d.DateArg(t), nil
		}
		return d.TimeArg(t), nil
	}

	switch x := raw.(type) {
	case string:
		return x, nil
	case time.Time:
		return x.Format(time.RFC3339), nil
	}
	return literalText(v), nil
}

// numericArg keeps integer literals integral.
func numericArg(v grammar.Value) any {
	if nv, ok := v.(grammar.NumericValue); ok && nv.IsInteger() {
		if n, err := strconv.ParseInt(nv.Raw, 10, 64); err == nil {
			return n
		}
	}
	return v.Express()
}

// literalText is the text a literal matches in pattern comparisons.
func literalText(v grammar.Value) string {
	switch x := v.(type) {
	case grammar.StringValue:
		return x.Text
	case grammar.NumericValue:
		return x.Raw
	case grammar.TypedValue:
		return x.Raw
	}
	return fmt.Sprint(v.Express())
}
