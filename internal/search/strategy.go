package search

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	sq "github.com/Masterminds/squirrel"

	"github.com/atlekbai/collection_search/internal/db"
	"github.com/atlekbai/collection_search/internal/query"
	"github.com/atlekbai/collection_search/internal/schema"
	"github.com/atlekbai/collection_search/internal/search/grammar"
)

// Usage is a strategy's claim on a search text.
type Usage int

const (
	// Exclude removes the strategy from the selection.
	Exclude Usage = iota
	// Include adds the strategy alongside the other included ones.
	Include
	// Only selects the strategy alone, ignoring every other one.
	Only
)

func (u Usage) String() string {
	switch u {
	case Only:
		return "only"
	case Include:
		return "include"
	}
	return "exclude"
}

// Strategy is one way of reading a search text.
type Strategy interface {
	Name() string
	Use(text string) Usage
	// Search returns the queries whose rows answer text.
	Search(ctx context.Context, session db.Session, text string) ([]*query.Query, error)
}

// SelectStrategies returns the strategies that apply to text, in registration
// order. The first strategy answering Only is returned alone.
func SelectStrategies(strategies []Strategy, text string) []Strategy {
	var selected []Strategy
	for _, s := range strategies {
		switch s.Use(text) {
		case Only:
			return []Strategy{s}
		case Include:
			selected = append(selected, s)
		case Exclude:
			for i, other := range selected {
				if other == s {
					selected = append(selected[:i], selected[i+1:]...)
					break
				}
			}
		}
	}
	return selected
}

// deps are shared by the built-in strategies.
type deps struct {
	reg    *schema.Registry
	parser *grammar.Cache
	prefs  Preferences
	log    *slog.Logger
}

func (d *deps) domain(name string) (*schema.Domain, error) {
	dom, ok := d.reg.Domain(name)
	if !ok {
		return nil, &UnknownDomainError{Domain: name}
	}
	return dom, nil
}

// MapperSearch reads the full grammar: domain WHERE expression.
type MapperSearch struct{ *deps }

func (s *MapperSearch) Name() string { return "MapperSearch" }

func (s *MapperSearch) Use(text string) Usage {
	if _, err := s.parser.Parse(grammar.GrammarQuery, text); err == nil {
		return Only
	}
	return Exclude
}

func (s *MapperSearch) Search(ctx context.Context, session db.Session, text string) ([]*query.Query, error) {
	node, err := s.parser.Parse(grammar.GrammarQuery, text)
	if err != nil {
		return nil, err
	}
	q := node.(*grammar.Query)
	dom, err := s.domain(q.Domain)
	if err != nil {
		return nil, err
	}
	env := NewEnvironment(s.reg, session, dom, s.prefs.Dates)
	if err := env.Evaluate(q.Expr); err != nil {
		return nil, err
	}
	return []*query.Query{env.Query}, nil
}

// DomainSearch reads the shorthand grammar: domain op values, matched
// against the domain's default columns.
type DomainSearch struct{ *deps }

func (s *DomainSearch) Name() string { return "DomainSearch" }

func (s *DomainSearch) Use(text string) Usage {
	if _, err := s.parser.Parse(grammar.GrammarDomain, text); err == nil {
		return Include
	}
	return Exclude
}

func (s *DomainSearch) Search(ctx context.Context, session db.Session, text string) ([]*query.Query, error) {
	node, err := s.parser.Parse(grammar.GrammarDomain, text)
	if err != nil {
		return nil, err
	}
	n := node.(*grammar.DomainExpr)
	dom, err := s.domain(n.Domain)
	if err != nil {
		return nil, err
	}
	q := query.New(session.Dialect(), dom.Entity)
	if n.Star {
		if query.IsNegation(n.Op) {
			return nil, nil
		}
		return []*query.Query{q}, nil
	}
	if !query.ValidOp(n.Op) {
		return nil, fmt.Errorf("unknown operator %q", n.Op)
	}

	d := q.Dialect()
	var conds sq.Or
	for _, name := range dom.DefaultColumns {
		col, _ := dom.Entity.Column(name)
		ref := query.ColumnRef(q.Alias(), name)
		for _, v := range n.Values {
			switch {
			case query.IsPattern(n.Op):
				conds = append(conds, d.ILike(ref, "%"+literalText(v)+"%"))
			default:
				val, err := coerce(d, col, v, s.prefs.Dates)
				if err != nil {
					// the value cannot match a column of another type
					continue
				}
				cond, err := d.Compare(ref, n.Op, val)
				if err != nil {
					return nil, err
				}
				conds = append(conds, cond)
			}
		}
	}
	if len(conds) == 0 {
		return nil, nil
	}
	return []*query.Query{q.Where(conds)}, nil
}

// ConfirmFunc asks the user whether to run a possibly slow search.
type ConfirmFunc func(ctx context.Context, msg string) bool

type allowBroadKey struct{}

// AllowBroad returns a context answering broad-search prompts with allow.
func AllowBroad(ctx context.Context, allow bool) context.Context {
	return context.WithValue(ctx, allowBroadKey{}, allow)
}

// ContextConfirm answers with the value set by AllowBroad, declining when
// there is none. Servers use it where no one can be prompted.
func ContextConfirm(ctx context.Context, _ string) bool {
	allow, _ := ctx.Value(allowBroadKey{}).(bool)
	return allow
}

// ValueListSearch matches bare values against the default columns of
// every registered domain.
type ValueListSearch struct {
	*deps
	confirm ConfirmFunc
}

func (s *ValueListSearch) Name() string { return "ValueListSearch" }

// Use yields to DomainSearch when the text reads as a shorthand expression
// on a registered domain.
func (s *ValueListSearch) Use(text string) Usage {
	if _, err := s.parser.Parse(grammar.GrammarValueList, text); err != nil {
		return Exclude
	}
	if node, err := s.parser.Parse(grammar.GrammarDomain, text); err == nil {
		if _, ok := s.reg.Domain(node.(*grammar.DomainExpr).Domain); ok {
			return Exclude
		}
	}
	return Include
}

func (s *ValueListSearch) Search(ctx context.Context, session db.Session, text string) ([]*query.Query, error) {
	node, err := s.parser.Parse(grammar.GrammarValueList, text)
	if err != nil {
		return nil, err
	}
	values := node.(*grammar.ValueList).Values

	if s.broad(values) {
		msg := fmt.Sprintf("Searching for %d value(s) where some are shorter than %d characters or there are more than %d may be slow. Continue?",
			len(values), s.prefs.MinTermLength, s.prefs.MaxTerms)
		if s.confirm == nil || !s.confirm(ctx, msg) {
			s.log.DebugContext(ctx, "user declined broad value-list search", "text", text)
			return nil, nil
		}
	}

	var out []*query.Query
	for _, dom := range s.reg.Domains() {
		q := query.New(session.Dialect(), dom.Entity)
		d := q.Dialect()
		var conds sq.Or
		for _, name := range dom.DefaultColumns {
			ref := query.ColumnRef(q.Alias(), name)
			for _, v := range values {
				conds = append(conds, d.ILike(ref, "%"+literalText(v)+"%"))
			}
		}
		out = append(out, q.Where(conds))
	}
	return out, nil
}

func (s *ValueListSearch) broad(values []grammar.Value) bool {
	if len(values) > s.prefs.MaxTerms {
		return true
	}
	for _, v := range values {
		if utf8.RuneCountInString(literalText(v)) < s.prefs.MinTermLength {
			return true
		}
	}
	return false
}
