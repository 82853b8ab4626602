package schema

import (
	"strings"
)

// QuoteIdent quotes a SQL identifier, escaping embedded double quotes.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

type ColumnType string

const (
	ColText      ColumnType = "text"
	ColInteger   ColumnType = "integer"
	ColFloat     ColumnType = "float"
	ColBoolean   ColumnType = "boolean"
	ColDate      ColumnType = "date"
	ColTimestamp ColumnType = "timestamp"
)

var validColumnTypes = map[ColumnType]bool{
	ColText: true, ColInteger: true, ColFloat: true,
	ColBoolean: true, ColDate: true, ColTimestamp: true,
}

type Column struct {
	Name string     `yaml:"name"`
	Type ColumnType `yaml:"type"`
}

// IsNumeric returns true for integer and float columns.
func (c *Column) IsNumeric() bool {
	return c.Type == ColInteger || c.Type == ColFloat
}

// IsTimestamp returns true for columns holding a time of day.
func (c *Column) IsTimestamp() bool {
	return c.Type == ColTimestamp
}

// IsTemporal returns true for date and timestamp columns.
func (c *Column) IsTemporal() bool {
	return c.Type == ColDate || c.Type == ColTimestamp
}

type RelationKind string

const (
	// ManyToOne relations hold the foreign key on the owning entity.
	ManyToOne RelationKind = "many_to_one"
	// OneToMany relations hold the foreign key on the target entity.
	OneToMany RelationKind = "one_to_many"
)

// Relation is a declared relationship from one entity to another.
// Column names the foreign key: on the owner for ManyToOne, on the target for OneToMany.
type Relation struct {
	Name   string       `yaml:"name"`
	Kind   RelationKind `yaml:"kind"`
	Target string       `yaml:"target"`
	Column string       `yaml:"column"`
}

// IsCollection reports whether the relation yields zero or more target rows.
func (r *Relation) IsCollection() bool {
	return r.Kind == OneToMany
}

// Proxy is a virtual attribute standing for a path of relations ending in
// a relation or column, e.g. plant.species -> accession.species.
type Proxy struct {
	Name string   `yaml:"name"`
	Path []string `yaml:"path"`
}

type Entity struct {
	Name       string     `yaml:"name"`
	Table      string     `yaml:"table"`
	PrimaryKey string     `yaml:"primary_key"`
	Columns    []Column   `yaml:"columns"`
	Relations  []Relation `yaml:"relations"`
	Proxies    []Proxy    `yaml:"proxies"`

	columns   map[string]*Column
	relations map[string]*Relation
	proxies   map[string]*Proxy
}

func (e *Entity) index() {
	e.columns = make(map[string]*Column, len(e.Columns))
	for i := range e.Columns {
		e.columns[e.Columns[i].Name] = &e.Columns[i]
	}
	e.relations = make(map[string]*Relation, len(e.Relations))
	for i := range e.Relations {
		e.relations[e.Relations[i].Name] = &e.Relations[i]
	}
	e.proxies = make(map[string]*Proxy, len(e.Proxies))
	for i := range e.Proxies {
		e.proxies[e.Proxies[i].Name] = &e.Proxies[i]
	}
}

func (e *Entity) Column(name string) (*Column, bool) {
	c, ok := e.columns[name]
	return c, ok
}

func (e *Entity) Relation(name string) (*Relation, bool) {
	r, ok := e.relations[name]
	return r, ok
}

func (e *Entity) Proxy(name string) (*Proxy, bool) {
	p, ok := e.proxies[name]
	return p, ok
}

// HasColumn reports whether the entity maps a column with the given name.
func (e *Entity) HasColumn(name string) bool {
	_, ok := e.columns[name]
	return ok
}

// Domain is a searchable entity registered under a canonical name and
// zero or more shorthand aliases.
type Domain struct {
	Name           string
	Shorthands     []string
	Entity         *Entity
	DefaultColumns []string
}
