package query

import (
	"fmt"
	"maps"
	"slices"

	sq "github.com/Masterminds/squirrel"

	"github.com/atlekbai/collection_search/internal/schema"
)

// Query is an in-progress relational query selecting the ids of a root
// entity. Every method returns a new Query and leaves the receiver untouched,
// so a Query can be captured and combined later (UNION, EXCEPT, IN).
type Query struct {
	d      Dialect
	root   *schema.Entity
	alias  string
	joins  []join
	joined map[string]int
	where  []sq.Sqlizer
	group  bool
	having []sq.Sqlizer
	ops    []setOp
	seq    *int
}

type join struct {
	entity *schema.Entity
	alias  string
	on     string
}

type setOp struct {
	kind string
	q    *Query
}

// New returns a query selecting every id of root.
func New(d Dialect, root *schema.Entity) *Query {
	return newQuery(d, root, new(int))
}

func newQuery(d Dialect, root *schema.Entity, seq *int) *Query {
	return &Query{
		d:      d,
		root:   root,
		alias:  root.Table,
		joined: map[string]int{root.Name: 1},
		seq:    seq,
	}
}

// Fresh returns an unfiltered query over the same root. Aliases generated by
// the fresh query never collide with the receiver's.
func (q *Query) Fresh() *Query {
	return newQuery(q.d, q.root, q.seq)
}

func (q *Query) Root() *schema.Entity { return q.root }
func (q *Query) Alias() string        { return q.alias }
func (q *Query) Dialect() Dialect     { return q.d }

// IDColumn returns the qualified primary key of the root.
func (q *Query) IDColumn() string {
	return ColumnRef(q.alias, q.root.PrimaryKey)
}

// Joined reports whether entity already appears in the FROM clause.
func (q *Query) Joined(entity string) bool {
	return q.joined[entity] > 0
}

// NextAlias returns an alias for table unique within this query tree.
func (q *Query) NextAlias(table string) string {
	*q.seq++
	return fmt.Sprintf("%s_%d", table, *q.seq)
}

func (q *Query) clone() *Query {
	c := *q
	c.joins = slices.Clone(q.joins)
	c.joined = maps.Clone(q.joined)
	c.where = slices.Clone(q.where)
	c.having = slices.Clone(q.having)
	c.ops = slices.Clone(q.ops)
	return &c
}

// flatten turns a compound query into a plain one filtering root ids by
// membership in the compound, so it can take further joins and filters.
func (q *Query) flatten() *Query {
	if len(q.ops) == 0 {
		return q.clone()
	}
	w := q.Fresh()
	w.where = []sq.Sqlizer{inQuery{col: w.IDColumn(), q: q}}
	return w
}

// Where adds conditions, AND'd with the existing ones.
func (q *Query) Where(conds ...sq.Sqlizer) *Query {
	c := q.flatten()
	c.where = append(c.where, conds...)
	return c
}

// Join adds an inner join from the entity under fromAlias along rel. The
// target gets a generated alias when it was joined before or when aliased is
// set; otherwise its table name is used. Returns the target's alias.
func (q *Query) Join(from *schema.Entity, fromAlias string, rel *schema.Relation, to *schema.Entity, aliased bool) (*Query, string) {
	c := q.flatten()
	alias := to.Table
	if aliased || c.joined[to.Name] > 0 {
		alias = c.NextAlias(to.Table)
	}
	c.joins = append(c.joins, join{
		entity: to,
		alias:  alias,
		on:     joinOn(from, fromAlias, rel, to, alias),
	})
	c.joined[to.Name]++
	return c, alias
}

// RelatedExists returns an (NOT) EXISTS condition over the rows reached
// from the entity under fromAlias along rel.
func (q *Query) RelatedExists(from *schema.Entity, fromAlias string, rel *schema.Relation, to *schema.Entity, negate bool) sq.Sqlizer {
	alias := q.NextAlias(to.Table)
	sql := fmt.Sprintf(`EXISTS (SELECT 1 FROM %s WHERE %s)`,
		TableSource(to, alias), joinOn(from, fromAlias, rel, to, alias))
	if negate {
		sql = "NOT " + sql
	}
	return sq.Expr(sql)
}

// Having groups by the root id and filters groups with conds.
func (q *Query) Having(conds ...sq.Sqlizer) *Query {
	c := q.flatten()
	c.group = true
	c.having = append(c.having, conds...)
	return c
}

// In keeps the root ids selected by sub.
func (q *Query) In(sub *Query) *Query {
	return q.Where(inQuery{col: q.IDColumn(), q: sub})
}

// Union returns q UNION other.
func (q *Query) Union(other *Query) *Query {
	c := q.clone()
	c.ops = append(c.ops, setOp{kind: "UNION", q: other})
	return c
}

// Except returns q minus the ids of other.
func (q *Query) Except(other *Query) *Query {
	c := q.clone()
	c.ops = append(c.ops, setOp{kind: q.d.Except, q: other})
	return c
}

// ToSql renders the id query with ? placeholders. It implements sq.Sqlizer
// so a Query can be nested inside other conditions.
func (q *Query) ToSql() (string, []any, error) {
	sql, args, err := q.selectSQL()
	if err != nil {
		return "", nil, err
	}
	for _, op := range q.ops {
		opSQL, opArgs, err := op.q.flatten().selectSQL()
		if err != nil {
			return "", nil, err
		}
		sql = sql + " " + op.kind + " " + opSQL
		args = append(args, opArgs...)
	}
	return sql, args, nil
}

func (q *Query) selectSQL() (string, []any, error) {
	qb := sq.Select(q.IDColumn()).From(TableSource(q.root, q.alias))
	if !q.group {
		qb = qb.Distinct()
	}
	for _, j := range q.joins {
		qb = qb.Join(fmt.Sprintf(`%s ON %s`, TableSource(j.entity, j.alias), j.on))
	}
	for _, cond := range q.where {
		qb = qb.Where(cond)
	}
	if q.group {
		qb = qb.GroupBy(q.IDColumn())
		for _, cond := range q.having {
			qb = qb.Having(cond)
		}
	}
	return qb.ToSql()
}

// SQL renders the id query with the dialect's placeholders.
func (q *Query) SQL() (string, []any, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return "", nil, err
	}
	sql, err = q.d.Rebind(sql)
	return sql, args, err
}

// RowsSQL returns SQL selecting the full root rows whose ids q matches.
func (q *Query) RowsSQL() (string, []any, error) {
	pk := ColumnRef(rowAlias, q.root.PrimaryKey)
	return sq.Select(QI(rowAlias) + ".*").
		From(TableSource(q.root, rowAlias)).
		Where(inQuery{col: pk, q: q}).
		OrderBy(pk).
		PlaceholderFormat(q.d.Placeholder).
		ToSql()
}

// inQuery renders col IN (subquery).
type inQuery struct {
	col string
	q   *Query
}

func (c inQuery) ToSql() (string, []any, error) {
	sql, args, err := c.q.ToSql()
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf(`%s IN (%s)`, c.col, sql), args, nil
}
