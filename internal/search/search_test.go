package search

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlekbai/collection_search/internal/db"
	"github.com/atlekbai/collection_search/internal/query"
	"github.com/atlekbai/collection_search/internal/schema"
	"github.com/atlekbai/collection_search/internal/search/grammar"
	"github.com/atlekbai/collection_search/internal/search/searchtest"
)

// --- Helpers ---

func newGarden(t *testing.T, opts ...Option) *Searcher {
	t.Helper()
	reg, sess := searchtest.Garden(t)
	s, err := New(reg, sess, opts...)
	require.NoError(t, err)
	return s
}

func keys(res *Result) []string {
	out := make([]string, 0, len(res.Entities))
	for _, e := range res.Entities {
		out = append(out, e.Key())
	}
	slices.Sort(out)
	return out
}

func search(t *testing.T, s *Searcher, text string) []string {
	t.Helper()
	res, err := s.Search(context.Background(), text)
	require.NoError(t, err, text)
	require.Empty(t, res.Errors, text)
	return keys(res)
}

func intersect(a, b []string) []string {
	out := []string{}
	for _, k := range a {
		if slices.Contains(b, k) {
			out = append(out, k)
		}
	}
	return out
}

func union(a, b []string) []string {
	out := slices.Clone(a)
	for _, k := range b {
		if !slices.Contains(out, k) {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

func minus(a, b []string) []string {
	out := []string{}
	for _, k := range a {
		if !slices.Contains(b, k) {
			out = append(out, k)
		}
	}
	return out
}

// --- Facade ---

func TestPlantQtyScenario(t *testing.T) {
	s := newGarden(t)
	assert.Equal(t, []string{"plant:2", "plant:3"}, search(t, s, "plant WHERE qty = 0"))

	prefs := DefaultPreferences()
	prefs.ActiveOnly = true
	s = newGarden(t, WithPreferences(prefs))
	assert.Equal(t, []string{"plant:3"}, search(t, s, "plant WHERE qty = 0"))

	cached := s.CachedResults("MapperSearch")
	assert.Len(t, cached, 2, "cache keeps rows from before the active filter")
}

func TestResultIdentity(t *testing.T) {
	s := newGarden(t)
	res, err := s.Search(context.Background(), "species WHERE accessions.code like 'R%'")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, res.ID)
	// species 1 has two matching accessions but is returned once
	assert.Equal(t, []string{"species:1", "species:2"}, keys(res))
}

func TestCachedResultsResetPerSearch(t *testing.T) {
	s := newGarden(t)
	search(t, s, "plant WHERE qty = 0")
	require.Len(t, s.CachedResults("MapperSearch"), 2)
	search(t, s, "genus = Rosa")
	assert.Empty(t, s.CachedResults("MapperSearch"))
	assert.Len(t, s.CachedResults("DomainSearch"), 1)
}

// --- Boolean algebra ---

func TestAndIsIntersection(t *testing.T) {
	s := newGarden(t)
	tests := []struct{ a, b string }{
		{"accessions.code like 'R%'", "genus.name = 'Rosa'"},
		{"genus.name = 'Quercus'", "genus.name = 'Rosa'"},
		{"genus.name = 'Rosa'", "genus.name = 'Rosa'"},
		{"accessions != Empty", "vernacular_names.name contains oak"},
	}
	for _, tt := range tests {
		a := search(t, s, "species WHERE "+tt.a)
		b := search(t, s, "species WHERE "+tt.b)
		both := search(t, s, "species WHERE "+tt.a+" AND "+tt.b)
		assert.Equal(t, intersect(a, b), both, "%s AND %s", tt.a, tt.b)
	}
}

func TestOrIsUnion(t *testing.T) {
	s := newGarden(t)
	a := search(t, s, "species WHERE accessions.code = 'M-001'")
	b := search(t, s, "species WHERE vernacular_names.name = 'dog rose'")
	require.Equal(t, []string{"species:4"}, a)
	require.Equal(t, []string{"species:1"}, b)

	// species 4 has no vernacular name, so an inline OR over both joins would drop it
	got := search(t, s, "species WHERE accessions.code = 'M-001' OR vernacular_names.name = 'dog rose'")
	assert.Equal(t, union(a, b), got)
	assert.Equal(t, []string{"species:1", "species:4"}, got)
}

func TestNotIsComplement(t *testing.T) {
	s := newGarden(t)
	all := search(t, s, "species = *")
	rosa := search(t, s, "species WHERE genus.name = 'Rosa'")
	got := search(t, s, "species WHERE NOT genus.name = 'Rosa'")
	assert.Equal(t, minus(all, rosa), got)
	assert.Equal(t, []string{"species:4", "species:5", "species:6"}, got)
}

func TestNotFollowedByFilter(t *testing.T) {
	s := newGarden(t)
	got := search(t, s, "species WHERE NOT genus.name = 'Rosa' AND accessions != Empty")
	assert.Equal(t, []string{"species:4", "species:5"}, got)
}

func TestParenIsolatesJoins(t *testing.T) {
	s := newGarden(t)
	got := search(t, s, "plant WHERE (accession.code = 'R-001' AND accession.species.epithet = 'canina') OR location.code = 'BED'")
	assert.Equal(t, []string{"plant:1", "plant:2"}, got)

	got = search(t, s, "plant WHERE (accession.code = 'R-003') AND location.code = 'BED'")
	assert.Equal(t, []string{"plant:2"}, got)
}

// --- Node semantics ---

func TestEmptySentinel(t *testing.T) {
	s := newGarden(t)
	tests := []struct {
		text string
		want []string
	}{
		{"species WHERE accessions = Empty", []string{"species:3", "species:6"}},
		{"species WHERE accessions != Empty", []string{"species:1", "species:2", "species:4", "species:5"}},
		{"species WHERE accessions is Empty", []string{"species:3", "species:6"}},
		{"species WHERE accessions not Empty", []string{"species:1", "species:2", "species:4", "species:5"}},
		{"genus WHERE species = Empty", []string{"genus:4"}},
		{"location WHERE parent = Empty", []string{"location:1", "location:3"}},
		{"location WHERE parent <> Empty", []string{"location:2"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, search(t, s, tt.text), tt.text)
	}
}

func TestDateOn(t *testing.T) {
	s := newGarden(t)
	// timestamps compare in UTC: 2 is at midnight, 4 is 23:00 UTC; 3 is 01:30 UTC the next day
	assert.Equal(t, []string{"accession:2", "accession:4"}, search(t, s, "accession WHERE created on 2024-03-15"))
	assert.Equal(t, []string{"accession:2", "accession:4"}, search(t, s, "accession WHERE created on |date|2024-03-15|"))
	assert.Equal(t, []string{"accession:1", "accession:3"}, search(t, s, "accession WHERE date_accd on 2024-03-15"))
	assert.Equal(t, []string{"accession:1", "accession:3"}, search(t, s, "accession WHERE date_accd on 'March 15, 2024'"))
}

func TestDateComparisons(t *testing.T) {
	s := newGarden(t)
	assert.Equal(t, []string{"accession:1", "accession:2", "accession:3"},
		search(t, s, "accession WHERE date_accd >= 2024-01-01"))
	assert.Equal(t, []string{"accession:4", "accession:5"},
		search(t, s, "accession WHERE date_accd BETWEEN 2020-01-01 AND 2021-12-31"))
}

func TestAggregateHaving(t *testing.T) {
	s := newGarden(t)
	tests := []struct {
		text string
		want []string
	}{
		{"genus WHERE count(species.id) > 2", []string{"genus:1"}},
		{"genus WHERE count(species.id) = 2", []string{"genus:3"}},
		{"genus WHERE count(species.id) = 1", []string{"genus:2"}},
		{"genus WHERE count(species.id) >= 1", []string{"genus:1", "genus:2", "genus:3"}},
		{"species WHERE sum(accessions.plants.qty) >= 5", []string{"species:1"}},
		{"genus WHERE max(species.accessions.date_accd) >= 2024-01-01", []string{"genus:1"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, search(t, s, tt.text), tt.text)
	}
}

func TestFilteredIdentifier(t *testing.T) {
	s := newGarden(t)
	assert.Equal(t, []string{"genus:1"}, search(t, s, "genus WHERE species.accessions.code = 'R-001'"))
	assert.Empty(t, search(t, s, "genus WHERE species[epithet = 'gallica'].accessions.code = 'R-001'"))
	assert.Equal(t, []string{"genus:1"}, search(t, s, "genus WHERE species[epithet = 'canina'].accessions.code = 'R-002'"))
}

func TestProxies(t *testing.T) {
	s := newGarden(t)
	assert.Equal(t, []string{"plant:1"}, search(t, s, "plant WHERE species.epithet = 'canina'"))
	assert.Equal(t, []string{"species:5", "species:6"}, search(t, s, "species WHERE genus_name = 'Quercus'"))
}

func TestSelfReferenceIsAliased(t *testing.T) {
	s := newGarden(t)
	assert.Equal(t, []string{"location:2"}, search(t, s, "location WHERE parent.code = 'GH'"))
}

func TestMembershipAndRanges(t *testing.T) {
	s := newGarden(t)
	assert.Equal(t, []string{"plant:1", "plant:3"}, search(t, s, "plant WHERE id in 1, 3"))
	assert.Equal(t, []string{"genus:1", "genus:4"}, search(t, s, "genus WHERE name in ('Rosa', 'Ilex')"))
	assert.Equal(t, []string{"plant:1"}, search(t, s, "plant WHERE qty BETWEEN 1 AND 5"))
	assert.Equal(t, []string{"plant:1", "plant:2", "plant:3"}, search(t, s, "plant WHERE qty between 0 and 5"))
	assert.Equal(t, []string{"location:2"}, search(t, s, "location WHERE parent in 1"))
}

func TestNoneAndTypedLiterals(t *testing.T) {
	s := newGarden(t)
	assert.Equal(t, []string{"genus:4"}, search(t, s, "genus WHERE author = None"))
	assert.Equal(t, []string{"genus:1", "genus:2", "genus:3"}, search(t, s, "genus WHERE author != None"))
	assert.Equal(t, []string{"plant:1"}, search(t, s, "plant WHERE qty = |int|5|"))
	assert.Equal(t, []string{"plant:1", "plant:3"}, search(t, s, "plant WHERE active = |bool|true|"))
	assert.Equal(t, []string{"plant:2"}, search(t, s, "plant WHERE active = false"))
}

func TestPatternOperators(t *testing.T) {
	s := newGarden(t)
	assert.Equal(t, []string{"genus:1"}, search(t, s, "genus WHERE name like 'Ros%'"))
	assert.Equal(t, []string{"genus:2"}, search(t, s, "genus WHERE name icontains XILL"))
	assert.Equal(t, []string{"vernacular_name:3", "vernacular_name:4"}, search(t, s, "vern WHERE name contains oak"))
}

// --- Strategies ---

func TestStrategyPrecedence(t *testing.T) {
	s := newGarden(t)
	text := "plant WHERE code like P1"
	_, err := grammar.ParseValueList(text)
	require.NoError(t, err, "text must also read as a value list")

	assert.Equal(t, []string{"MapperSearch"}, s.Strategies(text))
	assert.Equal(t, []string{"plant:1"}, search(t, s, text))
}

func TestStrategySelection(t *testing.T) {
	s := newGarden(t)
	tests := []struct {
		text string
		want []string
	}{
		{"rosa", []string{"ValueListSearch"}},
		{"plant like P", []string{"DomainSearch"}},
		{"rose like x", []string{"DomainSearch", "ValueListSearch"}},
		{"plant WHERE qty = 0", []string{"MapperSearch"}},
		{"plant WHERE qty =", []string{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.Strategies(tt.text), tt.text)
	}
}

type fakeStrategy struct {
	name   string
	usages []Usage
	calls  int
}

func fake(name string, usages ...Usage) *fakeStrategy {
	return &fakeStrategy{name: name, usages: usages}
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Use(string) Usage {
	u := f.usages[min(f.calls, len(f.usages)-1)]
	f.calls++
	return u
}

func (f *fakeStrategy) Search(context.Context, db.Session, string) ([]*query.Query, error) {
	return nil, nil
}

func names(strategies []Strategy) []string {
	out := []string{}
	for _, s := range strategies {
		out = append(out, s.Name())
	}
	return out
}

func TestSelectStrategies(t *testing.T) {
	tests := []struct {
		name string
		list func() []Strategy
		want []string
	}{
		{"only wins", func() []Strategy {
			return []Strategy{fake("a", Include), fake("b", Only), fake("c", Include)}
		}, []string{"b"}},
		{"include keeps order", func() []Strategy {
			return []Strategy{fake("a", Include), fake("x", Exclude), fake("c", Include)}
		}, []string{"a", "c"}},
		{"nothing applies", func() []Strategy {
			return []Strategy{fake("x", Exclude)}
		}, []string{}},
		{"exclude removes an earlier include", func() []Strategy {
			tog := fake("tog", Include, Exclude)
			return []Strategy{tog, fake("a", Include), tog}
		}, []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(SelectStrategies(tt.list(), "")))
		})
	}
}

func TestDomainSearch(t *testing.T) {
	s := newGarden(t)
	tests := []struct {
		text string
		want []string
	}{
		{"gen = Rosa", []string{"genus:1"}},
		{"genus like ros", []string{"genus:1"}},
		{"loc contains bed", []string{"location:3"}},
		{"genus = *", []string{"genus:1", "genus:2", "genus:3", "genus:4"}},
		{"genus != *", []string{}},
		{"vern = 'dog rose'", []string{"vernacular_name:1"}},
		{"plant = P1, P3", []string{"plant:1", "plant:3"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, search(t, s, tt.text), tt.text)
	}
}

func TestValueListSearch(t *testing.T) {
	s := newGarden(t)
	assert.Equal(t, []string{"genus:1"}, search(t, s, "Rosa"))
}

func TestBroadValueListNeedsConfirmation(t *testing.T) {
	s := newGarden(t)
	assert.Equal(t, []string{}, search(t, s, "oak"), "declined without a prompt")

	var prompts []string
	confirm := func(_ context.Context, msg string) bool {
		prompts = append(prompts, msg)
		return true
	}
	s = newGarden(t, WithConfirm(confirm))
	assert.Equal(t, []string{"vernacular_name:3", "vernacular_name:4"}, search(t, s, "oak"))
	assert.Len(t, prompts, 1)

	assert.Equal(t, []string{"genus:1", "genus:2", "genus:3", "genus:4"},
		search(t, s, "rosa quercus maxillaria ilex"))
	assert.Len(t, prompts, 2, "more than three terms asks too")

	search(t, s, "rosa quercus")
	assert.Len(t, prompts, 2, "long terms within the limit do not ask")
}

func TestBroadValueListThresholdsConfigurable(t *testing.T) {
	prefs := DefaultPreferences()
	prefs.MinTermLength = 3
	s := newGarden(t, WithPreferences(prefs), WithConfirm(func(context.Context, string) bool { return false }))
	assert.Equal(t, []string{"vernacular_name:3", "vernacular_name:4"}, search(t, s, "oak"))
}

// --- Errors ---

func TestUnknownDomain(t *testing.T) {
	s := newGarden(t)
	_, err := s.Search(context.Background(), "shrub WHERE x = 1")
	var ude *UnknownDomainError
	require.True(t, errors.As(err, &ude), "got %v", err)
	assert.Equal(t, "shrub", ude.Domain)
}

func TestAttributeErrors(t *testing.T) {
	s := newGarden(t)
	tests := []struct {
		text         string
		entity, attr string
	}{
		{"plant WHERE bogus = 1", "plant", "bogus"},
		{"plant WHERE accession.bogus.code = 1", "accession", "bogus"},
		{"genus WHERE species[bogus = 1].epithet = x", "species", "bogus"},
	}
	for _, tt := range tests {
		_, err := s.Search(context.Background(), tt.text)
		var ae *AttributeError
		require.True(t, errors.As(err, &ae), "%s: got %v", tt.text, err)
		assert.Equal(t, tt.entity, ae.Entity, tt.text)
		assert.Equal(t, tt.attr, ae.Attr, tt.text)
	}
}

func TestTypeMismatch(t *testing.T) {
	s := newGarden(t)
	for _, text := range []string{
		"plant WHERE code on 2024-03-15",
		"plant WHERE qty = many",
		"species WHERE accessions = 1",
		"genus WHERE name = Empty",
		"plant WHERE qty BETWEEN None AND 5",
	} {
		_, err := s.Search(context.Background(), text)
		assert.ErrorIs(t, err, ErrTypeMismatch, text)
	}
}

func TestInListMatchesNone(t *testing.T) {
	s := newGarden(t)
	assert.Equal(t, []string{"genus:1", "genus:3", "genus:4"}, search(t, s, "genus WHERE author in (None, 'L.')"))
}

func TestUnresolvableSchema(t *testing.T) {
	_, sess := searchtest.Garden(t)
	reg := schema.NewRegistry()
	require.NoError(t, reg.AddEntity(&schema.Entity{
		Name:    "location",
		Columns: []schema.Column{{Name: "id", Type: schema.ColInteger}, {Name: "name", Type: schema.ColText}},
		Relations: []schema.Relation{
			{Name: "parent", Kind: schema.ManyToOne, Target: "location", Column: "parent_id"},
			{Name: "bed", Kind: schema.ManyToOne, Target: "bed", Column: "bed_id"},
		},
		Proxies: []schema.Proxy{{Name: "loop", Path: []string{"parent", "loop"}}},
	}))
	require.NoError(t, reg.AddDomain([]string{"location"}, "location", []string{"name"}))
	s, err := New(reg, sess)
	require.NoError(t, err)

	tests := []struct {
		text string
		want string
	}{
		{"location WHERE loop = 1", "expands into itself"},
		{"location WHERE bed.name = x", `targets unknown entity "bed"`},
		{"location WHERE bed = None", `targets unknown entity "bed"`},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			_, err := s.Search(context.Background(), tt.text)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.True(t, IsInputError(err))
		})
	}
}

func TestNoStrategyReportsColumn(t *testing.T) {
	s := newGarden(t)
	_, err := s.Search(context.Background(), "plant WHERE qty =")
	require.ErrorIs(t, err, ErrNoStrategy)
	var pe *grammar.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 18, pe.Column)
	assert.Contains(t, err.Error(), "Error in search string at column 18")
}

func TestFailingStrategyDoesNotHideOthers(t *testing.T) {
	s := newGarden(t, WithConfirm(func(context.Context, string) bool { return true }))
	res, err := s.Search(context.Background(), "rose like x")
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "DomainSearch", res.Errors[0].Strategy)
	var ude *UnknownDomainError
	assert.True(t, errors.As(res.Errors[0], &ude))
	// "x" matches across domains through the value list
	assert.NotEmpty(t, res.Entities)
}

func TestContextConfirm(t *testing.T) {
	s := newGarden(t, WithConfirm(ContextConfirm))
	ctx := context.Background()

	res, err := s.Search(ctx, "oak")
	require.NoError(t, err)
	assert.Empty(t, res.Entities)

	res, err = s.Search(AllowBroad(ctx, true), "oak")
	require.NoError(t, err)
	assert.Equal(t, []string{"vernacular_name:3", "vernacular_name:4"}, keys(res))
}
