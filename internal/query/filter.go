package query

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

type FilterOp string

const (
	OpEq        FilterOp = "="
	OpEqEq      FilterOp = "=="
	OpNeq       FilterOp = "!="
	OpNeqAlt    FilterOp = "<>"
	OpLt        FilterOp = "<"
	OpLte       FilterOp = "<="
	OpGt        FilterOp = ">"
	OpGte       FilterOp = ">="
	OpIs        FilterOp = "is"
	OpNot       FilterOp = "not"
	OpLike      FilterOp = "like"
	OpIlike     FilterOp = "ilike"
	OpContains  FilterOp = "contains"
	OpHas       FilterOp = "has"
	OpIcontains FilterOp = "icontains"
	OpIhas      FilterOp = "ihas"
)

var validOps = map[FilterOp]bool{
	OpEq: true, OpEqEq: true, OpNeq: true, OpNeqAlt: true,
	OpLt: true, OpLte: true, OpGt: true, OpGte: true,
	OpIs: true, OpNot: true, OpLike: true, OpIlike: true,
	OpContains: true, OpHas: true, OpIcontains: true, OpIhas: true,
}

// ValidOp reports whether op is a known comparison operator.
func ValidOp(op string) bool {
	return validOps[FilterOp(op)]
}

// IsPattern reports whether op matches text patterns rather than values.
func IsPattern(op string) bool {
	switch FilterOp(op) {
	case OpLike, OpIlike, OpContains, OpHas, OpIcontains, OpIhas:
		return true
	}
	return false
}

// IsNegation reports whether op is one of the inequality operators.
func IsNegation(op string) bool {
	switch FilterOp(op) {
	case OpNeq, OpNeqAlt, OpNot:
		return true
	}
	return false
}

// IsEquality reports whether op is one of the equality operators.
func IsEquality(op string) bool {
	switch FilterOp(op) {
	case OpEq, OpEqEq, OpIs:
		return true
	}
	return false
}

// Compare returns a condition applying op between the SQL expression col and val.
// A nil val compiles to IS NULL / IS NOT NULL for the (in)equality operators.
func (d Dialect) Compare(col, op string, val any) (sq.Sqlizer, error) {
	if !ValidOp(op) {
		return nil, fmt.Errorf("unknown operator %q", op)
	}
	if val == nil {
		switch {
		case IsEquality(op):
			return sq.Eq{col: nil}, nil
		case IsNegation(op):
			return sq.NotEq{col: nil}, nil
		default:
			return nil, fmt.Errorf("operator %q cannot be used with None", op)
		}
	}

	switch FilterOp(op) {
	case OpEq, OpEqEq, OpIs:
		return sq.Eq{col: val}, nil
	case OpNeq, OpNeqAlt, OpNot:
		return sq.NotEq{col: val}, nil
	case OpLt:
		return sq.Lt{col: val}, nil
	case OpLte:
		return sq.LtOrEq{col: val}, nil
	case OpGt:
		return sq.Gt{col: val}, nil
	case OpGte:
		return sq.GtOrEq{col: val}, nil
	case OpLike:
		return sq.Expr(fmt.Sprintf(`%s LIKE ?`, d.TextExpr(col)), fmt.Sprint(val)), nil
	case OpIlike:
		return d.ILike(col, fmt.Sprint(val)), nil
	case OpContains, OpHas:
		return sq.Expr(fmt.Sprintf(`%s LIKE ?`, d.TextExpr(col)), "%"+fmt.Sprint(val)+"%"), nil
	default:
		return d.ILike(col, "%"+fmt.Sprint(val)+"%"), nil
	}
}

// ILike matches col against pattern ignoring case on every backend.
func (d Dialect) ILike(col, pattern string) sq.Sqlizer {
	return sq.Expr(fmt.Sprintf(`lower(%s) LIKE lower(?)`, d.TextExpr(col)), pattern)
}
