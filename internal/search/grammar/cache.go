package grammar

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Grammar names one of the three entry grammars.
type Grammar int

const (
	GrammarQuery Grammar = iota
	GrammarDomain
	GrammarValueList
)

var grammarNames = map[Grammar]string{
	GrammarQuery:     "query",
	GrammarDomain:    "domain expression",
	GrammarValueList: "value list",
}

func (g Grammar) String() string {
	if s, ok := grammarNames[g]; ok {
		return s
	}
	return fmt.Sprintf("Grammar(%d)", int(g))
}

// Parse parses text with grammar g.
func Parse(g Grammar, text string) (Node, error) {
	var (
		node Node
		err  error
	)
	switch g {
	case GrammarQuery:
		var q *Query
		if q, err = ParseQuery(text); err == nil {
			node = q
		}
	case GrammarDomain:
		var d *DomainExpr
		if d, err = ParseDomainExpr(text); err == nil {
			node = d
		}
	case GrammarValueList:
		var v *ValueList
		if v, err = ParseValueList(text); err == nil {
			node = v
		}
	default:
		err = fmt.Errorf("unknown grammar %d", int(g))
	}
	return node, err
}

type cacheKey struct {
	g    Grammar
	text string
}

type cacheEntry struct {
	node Node
	err  error
}

// Cache memoizes parse results, failures included. ASTs are immutable so a
// cached tree can be shared between searches.
type Cache struct {
	lru *lru.Cache[cacheKey, cacheEntry]
}

func NewCache(size int) (*Cache, error) {
	c, err := lru.New[cacheKey, cacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("parse cache: %w", err)
	}
	return &Cache{lru: c}, nil
}

// Parse returns the cached result for (g, text), parsing on a miss.
func (c *Cache) Parse(g Grammar, text string) (Node, error) {
	key := cacheKey{g: g, text: text}
	if e, ok := c.lru.Get(key); ok {
		return e.node, e.err
	}
	node, err := Parse(g, text)
	c.lru.Add(key, cacheEntry{node: node, err: err})
	return node, err
}

func (c *Cache) Len() int { return c.lru.Len() }
