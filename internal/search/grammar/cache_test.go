package grammar

import "testing"

func TestCacheSharesTrees(t *testing.T) {
	c, err := NewCache(4)
	if err != nil {
		t.Fatal(err)
	}
	a, err := c.Parse(GrammarQuery, "plant WHERE qty = 0")
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.Parse(GrammarQuery, "plant WHERE qty = 0")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatal("expected the cached tree to be returned")
	}
	if _, ok := a.(*Query); !ok {
		t.Fatalf("expected *Query, got %T", a)
	}
}

func TestCacheKeysByGrammar(t *testing.T) {
	c, err := NewCache(4)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Parse(GrammarDomain, "plant = rosa"); err != nil {
		t.Fatal(err)
	}
	node, err := c.Parse(GrammarValueList, "plant = rosa")
	if err == nil {
		t.Fatalf("expected value list grammar to reject %q, got %v", "plant = rosa", node)
	}
	if node != nil {
		t.Fatalf("expected nil node on failure, got %T", node)
	}
	if _, err := c.Parse(GrammarValueList, "plant = rosa"); err == nil {
		t.Fatal("expected cached failure")
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}
}

func TestCacheRejectsZeroSize(t *testing.T) {
	if _, err := NewCache(0); err == nil {
		t.Fatal("expected error for zero size")
	}
}
