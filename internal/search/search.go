package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/atlekbai/collection_search/internal/db"
	"github.com/atlekbai/collection_search/internal/query"
	"github.com/atlekbai/collection_search/internal/schema"
	"github.com/atlekbai/collection_search/internal/search/grammar"
)

// parseCacheSize bounds the number of parsed texts kept per Searcher.
const parseCacheSize = 256

// Preferences tune searching.
type Preferences struct {
	// ActiveOnly drops entities whose active column is false.
	ActiveOnly bool
	// A value-list search with a term shorter than MinTermLength or with
	// more than MaxTerms terms asks for confirmation first.
	MinTermLength int
	MaxTerms      int
	Dates         DatePrefs
}

func DefaultPreferences() Preferences {
	return Preferences{MinTermLength: 4, MaxTerms: 3}
}

// Result is the outcome of one search.
type Result struct {
	ID       uuid.UUID
	Entities []db.Entity
	// Errors holds the strategies that failed while others succeeded.
	Errors []*StrategyError
}

// Searcher runs search texts against a session. Searches are serialized.
type Searcher struct {
	reg        *schema.Registry
	session    db.Session
	parser     *grammar.Cache
	strategies []Strategy
	prefs      Preferences
	confirm    ConfirmFunc
	log        *slog.Logger

	mu      sync.Mutex
	results map[string][]db.Entity
}

type Option func(*Searcher)

func WithPreferences(p Preferences) Option {
	return func(s *Searcher) { s.prefs = p }
}

// WithConfirm sets the prompt used before broad value-list searches.
// Without one, broad searches are declined.
func WithConfirm(fn ConfirmFunc) Option {
	return func(s *Searcher) { s.confirm = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Searcher) { s.log = l }
}

func New(reg *schema.Registry, session db.Session, opts ...Option) (*Searcher, error) {
	parser, err := grammar.NewCache(parseCacheSize)
	if err != nil {
		return nil, err
	}
	s := &Searcher{
		reg:     reg,
		session: session,
		parser:  parser,
		prefs:   DefaultPreferences(),
		log:     slog.Default(),
		results: make(map[string][]db.Entity),
	}
	for _, opt := range opts {
		opt(s)
	}
	d := &deps{reg: reg, parser: parser, prefs: s.prefs, log: s.log}
	s.strategies = []Strategy{
		&MapperSearch{d},
		&DomainSearch{d},
		&ValueListSearch{deps: d, confirm: s.confirm},
	}
	return s, nil
}

// Strategies returns the names of the strategies that apply to text.
func (s *Searcher) Strategies(text string) []string {
	selected := SelectStrategies(s.strategies, text)
	names := make([]string, len(selected))
	for i, st := range selected {
		names[i] = st.Name()
	}
	return names
}

// CachedResults returns the rows a strategy produced in the last search,
// before the active-only filter.
func (s *Searcher) CachedResults(strategy string) []db.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.results[strategy])
}

type plan struct {
	strategy string
	queries  []*query.Query
}

// Search selects the strategies for text, evaluates them and returns the
// union of their rows, deduplicated. A strategy failing to evaluate is
// recorded in Result.Errors; Search fails only when every strategy does or
// when the session fails.
func (s *Searcher) Search(ctx context.Context, text string) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := &Result{ID: uuid.New()}
	log := s.log.With("search_id", res.ID.String())
	clear(s.results)

	selected := SelectStrategies(s.strategies, text)
	if len(selected) == 0 {
		perr := s.furthestParseError(text)
		log.DebugContext(ctx, "no strategy applies", "text", text, "error", perr)
		return nil, fmt.Errorf("%w: %w", ErrNoStrategy, perr)
	}

	var plans []plan
	for _, st := range selected {
		log.DebugContext(ctx, "strategy selected", "strategy", st.Name(), "text", text)
		queries, err := st.Search(ctx, s.session, text)
		if err != nil {
			log.WarnContext(ctx, "strategy failed", "strategy", st.Name(), "error", err)
			res.Errors = append(res.Errors, &StrategyError{Strategy: st.Name(), Err: err})
			continue
		}
		plans = append(plans, plan{strategy: st.Name(), queries: queries})
	}
	if len(plans) == 0 {
		errs := make([]error, len(res.Errors))
		for i, e := range res.Errors {
			errs[i] = e
		}
		return nil, errors.Join(errs...)
	}

	fetched := make([][]db.Entity, len(plans))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range plans {
		g.Go(func() error {
			var rows []db.Entity
			for _, q := range p.queries {
				if log.Enabled(gctx, slog.LevelDebug) {
					sqlStr, args, _ := q.SQL()
					log.DebugContext(gctx, "query", "strategy", p.strategy, "sql", sqlStr, "args", args)
				}
				ents, err := s.session.Fetch(gctx, q)
				if err != nil {
					return fmt.Errorf("%s: %w", p.strategy, err)
				}
				rows = append(rows, ents...)
			}
			fetched[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for i, p := range plans {
		s.results[p.strategy] = fetched[i]
		for _, e := range fetched[i] {
			if s.prefs.ActiveOnly && !e.Active() {
				continue
			}
			if seen[e.Key()] {
				continue
			}
			seen[e.Key()] = true
			res.Entities = append(res.Entities, e)
		}
	}
	log.DebugContext(ctx, "search done", "results", len(res.Entities), "failed_strategies", len(res.Errors))
	return res, nil
}

// furthestParseError returns the parse error that got furthest into text
// across the grammars.
func (s *Searcher) furthestParseError(text string) error {
	var best *grammar.ParseError
	for _, g := range []grammar.Grammar{grammar.GrammarQuery, grammar.GrammarDomain, grammar.GrammarValueList} {
		_, err := s.parser.Parse(g, text)
		var pe *grammar.ParseError
		if errors.As(err, &pe) && (best == nil || pe.Column > best.Column) {
			best = pe
		}
	}
	if best == nil {
		return &grammar.ParseError{Column: 1, Msg: "unrecognized search"}
	}
	return best
}
