package search

import (
	"fmt"

	"github.com/atlekbai/collection_search/internal/db"
	"github.com/atlekbai/collection_search/internal/query"
	"github.com/atlekbai/collection_search/internal/schema"
	"github.com/atlekbai/collection_search/internal/search/grammar"
)

// Environment is the per-search evaluation context. Query is the
// in-progress query; evaluation replaces it as nodes add filters and joins.
type Environment struct {
	Registry *schema.Registry
	Session  db.Session
	Domain   *schema.Domain
	Query    *query.Query
	Dates    DatePrefs

	proxyDepth int
}

// maxProxyDepth bounds nested association proxy expansion.
const maxProxyDepth = 16

// NewEnvironment starts an unfiltered query over domain.
func NewEnvironment(reg *schema.Registry, session db.Session, domain *schema.Domain, dates DatePrefs) *Environment {
	return &Environment{
		Registry: reg,
		Session:  session,
		Domain:   domain,
		Query:    query.New(session.Dialect(), domain.Entity),
		Dates:    dates,
	}
}

// attribute is a resolved identifier leaf: a column, or a relation when the
// identifier ends on one.
type attribute struct {
	entity *schema.Entity
	alias  string
	column *schema.Column
	rel    *schema.Relation
	target *schema.Entity
}

func (a attribute) name() string {
	if a.column != nil {
		return a.column.Name
	}
	return a.rel.Name
}

// expr returns the SQL expression compared against literals. Temporal
// columns are normalized by the dialect.
func (a attribute) expr(d query.Dialect) string {
	ref := query.ColumnRef(a.alias, a.column.Name)
	switch a.column.Type {
	case schema.ColTimestamp:
		return d.TimestampExpr(ref)
	case schema.ColDate:
		return d.DateExpr(ref)
	}
	return ref
}

// resolve walks an identifier from the root of q, joining as needed.
func (env *Environment) resolve(q *query.Query, id grammar.Identifier) (*query.Query, attribute, error) {
	switch n := id.(type) {
	case *grammar.Ident:
		q, ent, alias, err := env.createJoins(q, q.Root(), q.Alias(), n.Path, false)
		if err != nil {
			return nil, attribute{}, err
		}
		return env.resolveLeaf(q, ent, alias, n.Leaf)

	case *grammar.FilteredIdent:
		q, ent, alias, err := env.createJoins(q, q.Root(), q.Alias(), n.Path, true)
		if err != nil {
			return nil, attribute{}, err
		}
		q, fattr, err := env.resolveLeaf(q, ent, alias, n.Filter.Attr)
		if err != nil {
			return nil, attribute{}, err
		}
		cond, err := env.compare(q, fattr, n.Filter.Op, n.Filter.Value)
		if err != nil {
			return nil, attribute{}, err
		}
		q = q.Where(cond)
		q, ent, alias, err = env.createJoins(q, ent, alias, n.Rest.Path, false)
		if err != nil {
			return nil, attribute{}, err
		}
		return env.resolveLeaf(q, ent, alias, n.Rest.Leaf)
	}
	return nil, attribute{}, &AttributeError{Entity: q.Root().Name, Attr: id.String()}
}

// createJoins extends q with a join for each relation in steps, starting at
// ent under alias. Association proxies expand into their paths. aliasLast
// forces a fresh alias on the final join.
func (env *Environment) createJoins(q *query.Query, ent *schema.Entity, alias string, steps []string, aliasLast bool) (*query.Query, *schema.Entity, string, error) {
	if len(steps) == 0 {
		return q, ent, alias, nil
	}
	name := steps[0]
	if p, ok := ent.Proxy(name); ok {
		if err := env.enterProxy(ent, p); err != nil {
			return nil, nil, "", err
		}
		defer env.leaveProxy()
		expanded := append(append([]string(nil), p.Path...), steps[1:]...)
		return env.createJoins(q, ent, alias, expanded, aliasLast)
	}
	rel, ok := ent.Relation(name)
	if !ok {
		return nil, nil, "", &AttributeError{Entity: ent.Name, Attr: name}
	}
	target, err := env.target(ent, rel)
	if err != nil {
		return nil, nil, "", err
	}
	q, toAlias := q.Join(ent, alias, rel, target, aliasLast && len(steps) == 1)
	return env.createJoins(q, target, toAlias, steps[1:], aliasLast)
}

func (env *Environment) resolveLeaf(q *query.Query, ent *schema.Entity, alias, leaf string) (*query.Query, attribute, error) {
	if p, ok := ent.Proxy(leaf); ok {
		if err := env.enterProxy(ent, p); err != nil {
			return nil, attribute{}, err
		}
		defer env.leaveProxy()
		last := len(p.Path) - 1
		q, ent, alias, err := env.createJoins(q, ent, alias, p.Path[:last], false)
		if err != nil {
			return nil, attribute{}, err
		}
		return env.resolveLeaf(q, ent, alias, p.Path[last])
	}
	if c, ok := ent.Column(leaf); ok {
		return q, attribute{entity: ent, alias: alias, column: c}, nil
	}
	if r, ok := ent.Relation(leaf); ok {
		target, err := env.target(ent, r)
		if err != nil {
			return nil, attribute{}, err
		}
		return q, attribute{entity: ent, alias: alias, rel: r, target: target}, nil
	}
	return nil, attribute{}, &AttributeError{Entity: ent.Name, Attr: leaf}
}

func (env *Environment) target(ent *schema.Entity, rel *schema.Relation) (*schema.Entity, error) {
	target := env.Registry.Entity(rel.Target)
	if target == nil {
		return nil, fmt.Errorf("%s.%s targets unknown entity %q", ent.Name, rel.Name, rel.Target)
	}
	return target, nil
}

func (env *Environment) enterProxy(ent *schema.Entity, p *schema.Proxy) error {
	if env.proxyDepth >= maxProxyDepth {
		return fmt.Errorf("proxy %s.%s expands into itself", ent.Name, p.Name)
	}
	env.proxyDepth++
	return nil
}

func (env *Environment) leaveProxy() { env.proxyDepth-- }
