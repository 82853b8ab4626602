package grammar

import (
	"fmt"
	"strings"
)

// Node is the interface all AST nodes implement. Nodes are immutable once
// parsed and String renders them deterministically.
type Node interface {
	node() // marker method
	String() string
}

// Ident is a dotted attribute path: Path holds the relations to walk and
// Leaf the attribute resolved on the last one.
type Ident struct {
	Path []string
	Leaf string
}

// Filter is the inline [attr op value] clause of a filtered identifier.
type Filter struct {
	Attr  string
	Op    string
	Value Value
}

// FilteredIdent walks Path, filters the rows reached by its last segment,
// then continues with Rest.
type FilteredIdent struct {
	Path   []string
	Filter Filter
	Rest   *Ident
}

// Identifier is either an *Ident or a *FilteredIdent.
type Identifier interface {
	Node
	identifier()
}

// Comparison is ident op value.
type Comparison struct {
	Ident Identifier
	Op    string
	Value Value
}

// In is ident in (v1, v2, ...).
type In struct {
	Ident  Identifier
	Values []Value
}

// On is ident on date.
type On struct {
	Ident Identifier
	Value Value
}

// Aggregate is func(ident) op value.
type Aggregate struct {
	Func  string // sum, min, max, count
	Ident Identifier
	Op    string
	Value Value
}

// Between is ident BETWEEN low AND high, inclusive on both ends.
type Between struct {
	Ident Identifier
	Low   Value
	High  Value
}

// Not negates its operand.
type Not struct {
	Operand Node
}

// And intersects its operands.
type And struct {
	Operands []Node
}

// Or unions its operands.
type Or struct {
	Operands []Node
}

// Paren is a parenthesized group evaluated as an isolated subquery.
type Paren struct {
	Expr Node
}

// Query is the full grammar: domain WHERE expr.
type Query struct {
	Domain string
	Expr   Node
}

// DomainExpr is the shorthand grammar: domain op values, or domain op *.
type DomainExpr struct {
	Domain string
	Op     string
	Values []Value
	Star   bool
}

// ValueList is a bare list of values searched across every domain.
type ValueList struct {
	Values []Value
}

func (*Ident) node()         {}
func (*FilteredIdent) node() {}
func (*Comparison) node()    {}
func (*In) node()            {}
func (*On) node()            {}
func (*Aggregate) node()     {}
func (*Between) node()       {}
func (*Not) node()           {}
func (*And) node()           {}
func (*Or) node()            {}
func (*Paren) node()         {}
func (*Query) node()         {}
func (*DomainExpr) node()    {}
func (*ValueList) node()     {}

func (*Ident) identifier()         {}
func (*FilteredIdent) identifier() {}

// Segments returns the full path including the leaf.
func (n *Ident) Segments() []string {
	return append(append([]string(nil), n.Path...), n.Leaf)
}

func (n *Ident) String() string {
	return strings.Join(n.Segments(), ".")
}

func (f Filter) String() string {
	return fmt.Sprintf("%s %s %s", f.Attr, f.Op, f.Value)
}

func (n *FilteredIdent) String() string {
	return fmt.Sprintf("%s[%s].%s", strings.Join(n.Path, "."), n.Filter, n.Rest)
}

func (n *Comparison) String() string {
	return fmt.Sprintf("%s %s %s", n.Ident, n.Op, n.Value)
}

func (n *In) String() string {
	return fmt.Sprintf("%s in (%s)", n.Ident, joinValues(n.Values, ", "))
}

func (n *On) String() string {
	return fmt.Sprintf("%s on %s", n.Ident, n.Value)
}

func (n *Aggregate) String() string {
	return fmt.Sprintf("%s(%s) %s %s", n.Func, n.Ident, n.Op, n.Value)
}

func (n *Between) String() string {
	return fmt.Sprintf("%s BETWEEN %s AND %s", n.Ident, n.Low, n.High)
}

func (n *Not) String() string {
	return "NOT " + n.Operand.String()
}

func (n *And) String() string {
	return "(" + joinNodes(n.Operands, " AND ") + ")"
}

func (n *Or) String() string {
	return "(" + joinNodes(n.Operands, " OR ") + ")"
}

func (n *Paren) String() string {
	return "[" + n.Expr.String() + "]"
}

func (n *Query) String() string {
	return fmt.Sprintf("%s WHERE %s", n.Domain, n.Expr)
}

func (n *DomainExpr) String() string {
	if n.Star {
		return fmt.Sprintf("%s %s *", n.Domain, n.Op)
	}
	return fmt.Sprintf("%s %s %s", n.Domain, n.Op, joinValues(n.Values, ", "))
}

func (n *ValueList) String() string {
	return joinValues(n.Values, ", ")
}

func joinValues(vals []Value, sep string) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = v.String()
	}
	return strings.Join(parts, sep)
}

func joinNodes(nodes []Node, sep string) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, sep)
}
