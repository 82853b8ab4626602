package search

import (
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/atlekbai/collection_search/internal/query"
	"github.com/atlekbai/collection_search/internal/search/grammar"
)

// Evaluate applies an expression to env.Query.
func (env *Environment) Evaluate(node grammar.Node) error {
	q, err := env.eval(env.Query, node)
	if err != nil {
		return err
	}
	env.Query = q
	return nil
}

func (env *Environment) eval(q *query.Query, node grammar.Node) (*query.Query, error) {
	switch n := node.(type) {
	case *grammar.Comparison:
		q, a, err := env.resolve(q, n.Ident)
		if err != nil {
			return nil, err
		}
		cond, err := env.compare(q, a, n.Op, n.Value)
		if err != nil {
			return nil, err
		}
		return q.Where(cond), nil

	case *grammar.In:
		q, a, err := env.resolve(q, n.Ident)
		if err != nil {
			return nil, err
		}
		cond, err := env.membership(q, a, n.Values)
		if err != nil {
			return nil, err
		}
		return q.Where(cond), nil

	case *grammar.On:
		q, a, err := env.resolve(q, n.Ident)
		if err != nil {
			return nil, err
		}
		cond, err := env.onDate(q, a, n.Value)
		if err != nil {
			return nil, err
		}
		return q.Where(cond), nil

	case *grammar.Between:
		q, a, err := env.resolve(q, n.Ident)
		if err != nil {
			return nil, err
		}
		if a.column == nil {
			return nil, fmt.Errorf("%w: BETWEEN needs a column, %s.%s is a relation", ErrTypeMismatch, a.entity.Name, a.name())
		}
		d := q.Dialect()
		low, err := coerce(d, a.column, n.Low, env.Dates)
		if err != nil {
			return nil, err
		}
		high, err := coerce(d, a.column, n.High, env.Dates)
		if err != nil {
			return nil, err
		}
		if low == nil || high == nil {
			return nil, fmt.Errorf("%w: BETWEEN bounds cannot be None", ErrTypeMismatch)
		}
		col := a.expr(d)
		return q.Where(sq.GtOrEq{col: low}, sq.LtOrEq{col: high}), nil

	case *grammar.Aggregate:
		return env.aggregate(q, n)

	case *grammar.Not:
		operand, err := env.eval(q.Fresh(), n.Operand)
		if err != nil {
			return nil, err
		}
		return q.Except(operand), nil

	case *grammar.And:
		for _, operand := range n.Operands {
			var err error
			if q, err = env.eval(q, operand); err != nil {
				return nil, err
			}
		}
		return q, nil

	case *grammar.Or:
		acc, err := env.eval(q, n.Operands[0])
		if err != nil {
			return nil, err
		}
		for _, operand := range n.Operands[1:] {
			next, err := env.eval(q.Fresh(), operand)
			if err != nil {
				return nil, err
			}
			acc = acc.Union(next)
		}
		return acc, nil

	case *grammar.Paren:
		sub, err := env.eval(q.Fresh(), n.Expr)
		if err != nil {
			return nil, err
		}
		return q.In(sub), nil
	}
	return nil, fmt.Errorf("cannot evaluate %T", node)
}

// compare builds the condition for attr op value.
func (env *Environment) compare(q *query.Query, a attribute, op string, v grammar.Value) (sq.Sqlizer, error) {
	d := q.Dialect()
	raw := v.Express()
	if _, ok := raw.(grammar.EmptySet); ok {
		return env.emptyCondition(q, a, op)
	}

	if a.column == nil {
		if a.rel.IsCollection() {
			return nil, fmt.Errorf("%w: %s.%s is a collection, compare it with Empty or one of its attributes",
				ErrTypeMismatch, a.entity.Name, a.rel.Name)
		}
		return d.Compare(query.ColumnRef(a.alias, a.rel.Column), op, numericArg(v))
	}

	if query.IsPattern(op) {
		if raw == nil {
			return nil, fmt.Errorf("operator %q cannot be used with None", op)
		}
		return d.Compare(query.ColumnRef(a.alias, a.column.Name), op, literalText(v))
	}
	val, err := coerce(d, a.column, v, env.Dates)
	if err != nil {
		return nil, err
	}
	return d.Compare(a.expr(d), op, val)
}

// emptyCondition compiles comparisons with Empty: = tests that the relation
// has no rows, != that it has at least one.
func (env *Environment) emptyCondition(q *query.Query, a attribute, op string) (sq.Sqlizer, error) {
	if a.rel == nil {
		return nil, fmt.Errorf("%w: Empty needs a relation, %s.%s is a column", ErrTypeMismatch, a.entity.Name, a.name())
	}
	var empty bool
	switch {
	case query.IsEquality(op):
		empty = true
	case query.IsNegation(op):
		empty = false
	default:
		return nil, fmt.Errorf("operator %q cannot be used with Empty", op)
	}
	if a.rel.IsCollection() {
		return q.RelatedExists(a.entity, a.alias, a.rel, a.target, empty), nil
	}
	fk := query.ColumnRef(a.alias, a.rel.Column)
	if empty {
		return sq.Eq{fk: nil}, nil
	}
	return sq.NotEq{fk: nil}, nil
}

func (env *Environment) membership(q *query.Query, a attribute, values []grammar.Value) (sq.Sqlizer, error) {
	d := q.Dialect()
	var ref string
	args := make([]any, 0, len(values))
	hasNull := false
	if a.column == nil {
		if a.rel.IsCollection() {
			return nil, fmt.Errorf("%w: %s.%s is a collection", ErrTypeMismatch, a.entity.Name, a.rel.Name)
		}
		ref = query.ColumnRef(a.alias, a.rel.Column)
		for _, v := range values {
			if arg := numericArg(v); arg != nil {
				args = append(args, arg)
			} else {
				hasNull = true
			}
		}
	} else {
		ref = a.expr(d)
		for _, v := range values {
			val, err := coerce(d, a.column, v, env.Dates)
			if err != nil {
				return nil, err
			}
			if val == nil {
				hasNull = true
				continue
			}
			args = append(args, val)
		}
	}
	// None in the list matches NULL.
	switch {
	case !hasNull:
		return sq.Eq{ref: args}, nil
	case len(args) == 0:
		return sq.Eq{ref: nil}, nil
	}
	return sq.Or{sq.Eq{ref: args}, sq.Eq{ref: nil}}, nil
}

// onDate matches a whole UTC day: [midnight, next midnight) for timestamps,
// equality for dates.
func (env *Environment) onDate(q *query.Query, a attribute, v grammar.Value) (sq.Sqlizer, error) {
	if a.column == nil || !a.column.IsTemporal() {
		return nil, fmt.Errorf("%w: on needs a date or timestamp column, %s.%s is not one",
			ErrTypeMismatch, a.entity.Name, a.name())
	}
	var t time.Time
	switch x := v.Express().(type) {
	case time.Time:
		t = x.UTC()
	case string:
		parsed, err := ParseDate(x, env.Dates)
		if err != nil {
			return nil, err
		}
		t = parsed
	default:
		return nil, fmt.Errorf("%w: on needs a date, got %s", ErrTypeMismatch, v)
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)

	d := q.Dialect()
	col := a.expr(d)
	if a.column.IsTimestamp() {
		return sq.And{
			sq.GtOrEq{col: d.TimeArg(day)},
			sq.Lt{col: d.TimeArg(day.AddDate(0, 0, 1))},
		}, nil
	}
	return sq.Eq{col: d.DateArg(day)}, nil
}

// aggregate filters q to the root ids whose group satisfies fn(ident) op value.
func (env *Environment) aggregate(q *query.Query, n *grammar.Aggregate) (*query.Query, error) {
	sub, a, err := env.resolve(q.Fresh(), n.Ident)
	if err != nil {
		return nil, err
	}
	if a.column == nil {
		return nil, fmt.Errorf("%w: %s() needs a column, %s.%s is a relation", ErrTypeMismatch, n.Func, a.entity.Name, a.name())
	}
	d := q.Dialect()

	var val any
	if n.Func == "count" {
		val = numericArg(n.Value)
	} else if val, err = coerce(d, a.column, n.Value, env.Dates); err != nil {
		return nil, err
	}
	having, err := d.Compare(fmt.Sprintf("%s(%s)", strings.ToUpper(n.Func), a.expr(d)), n.Op, val)
	if err != nil {
		return nil, err
	}
	return q.In(sub.Having(having)), nil
}
