package schema

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrNoDefaultColumns = errors.New("domain requires at least one default search column")
	ErrNoDomainName     = errors.New("domain requires at least one name")
)

// Registry maps domain names to entities and their default search columns.
// It is filled once at startup and only read while searching.
type Registry struct {
	mu       sync.RWMutex
	entities map[string]*Entity
	domains  map[string]*Domain
	aliases  map[string]string
	order    []string
}

func NewRegistry() *Registry {
	return &Registry{
		entities: make(map[string]*Entity),
		domains:  make(map[string]*Domain),
		aliases:  make(map[string]string),
	}
}

// AddEntity registers entity metadata. Relation targets are checked by Validate
// once every entity is known.
func (r *Registry) AddEntity(e *Entity) error {
	if e.Name == "" {
		return fmt.Errorf("entity requires a name")
	}
	if e.Table == "" {
		e.Table = e.Name
	}
	if e.PrimaryKey == "" {
		e.PrimaryKey = "id"
	}
	for _, c := range e.Columns {
		if !validColumnTypes[c.Type] {
			return fmt.Errorf("entity %s: column %q has unknown type %q", e.Name, c.Name, c.Type)
		}
	}
	for _, rel := range e.Relations {
		if rel.Kind != ManyToOne && rel.Kind != OneToMany {
			return fmt.Errorf("entity %s: relation %q has unknown kind %q", e.Name, rel.Name, rel.Kind)
		}
		if rel.Column == "" {
			return fmt.Errorf("entity %s: relation %q requires a foreign key column", e.Name, rel.Name)
		}
	}
	for _, p := range e.Proxies {
		if len(p.Path) < 2 {
			return fmt.Errorf("entity %s: proxy %q needs a path of at least two attributes", e.Name, p.Name)
		}
		for _, other := range e.Proxies {
			if p.Path[0] == other.Name {
				return fmt.Errorf("entity %s: proxy %q starts with proxy %q", e.Name, p.Name, other.Name)
			}
		}
	}
	e.index()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entities[e.Name]; exists {
		return fmt.Errorf("entity %s already registered", e.Name)
	}
	r.entities[e.Name] = e
	return nil
}

// Validate checks that every relation points at a registered entity.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entities {
		for _, rel := range e.Relations {
			if _, ok := r.entities[rel.Target]; !ok {
				return fmt.Errorf("entity %s: relation %q targets unknown entity %q", e.Name, rel.Name, rel.Target)
			}
		}
	}
	return nil
}

// AddDomain registers a searchable domain. The first name is canonical, the
// rest are shorthands resolving to it.
func (r *Registry) AddDomain(names []string, entity string, defaultColumns []string) error {
	if len(names) == 0 {
		return ErrNoDomainName
	}
	if len(defaultColumns) == 0 {
		return fmt.Errorf("domain %s: %w", names[0], ErrNoDefaultColumns)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ent, ok := r.entities[entity]
	if !ok {
		return fmt.Errorf("domain %s: unknown entity %q", names[0], entity)
	}
	for _, col := range defaultColumns {
		if !ent.HasColumn(col) {
			return fmt.Errorf("domain %s: entity %s has no column %q", names[0], entity, col)
		}
	}
	for _, name := range names {
		if _, exists := r.domains[name]; exists {
			return fmt.Errorf("domain name %q already registered", name)
		}
		if _, exists := r.aliases[name]; exists {
			return fmt.Errorf("domain name %q already registered", name)
		}
	}

	d := &Domain{
		Name:           names[0],
		Shorthands:     append([]string(nil), names[1:]...),
		Entity:         ent,
		DefaultColumns: append([]string(nil), defaultColumns...),
	}
	r.domains[d.Name] = d
	for _, short := range d.Shorthands {
		r.aliases[short] = d.Name
	}
	r.order = append(r.order, d.Name)
	return nil
}

// Domain resolves a canonical or shorthand domain name.
func (r *Registry) Domain(name string) (*Domain, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if canonical, ok := r.aliases[name]; ok {
		name = canonical
	}
	d, ok := r.domains[name]
	return d, ok
}

// Domains returns the canonical domains in registration order.
func (r *Registry) Domains() []*Domain {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Domain, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.domains[name])
	}
	return out
}

func (r *Registry) Entity(name string) *Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entities[name]
}

// DomainCount returns the number of canonical domains.
func (r *Registry) DomainCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
