// Package registry holds the static, immutable table that maps a
// (category, operation) pair advertised to the agent onto the concrete
// (upstream, tool) pair the gateway actually calls.
package registry

import "sort"

// BatchCategory is the synthetic category handled by the batch executor
// rather than routed to any single upstream. It never appears as a
// destination in the mapping table.
const BatchCategory = "batch"

// Mapping is one row of the operation table: a category/operation pair as
// seen by the agent, and the upstream/tool pair it resolves to.
type Mapping struct {
	Category    string
	Operation   string
	Upstream    string
	Tool        string
	Cacheable   bool
	Description string
}

type key struct {
	category  string
	operation string
}

// Registry is an immutable lookup table built once at startup from a fixed
// set of Mappings.
type Registry struct {
	byKey      map[key]Mapping
	byCategory map[string][]Mapping
}

// New builds a Registry from mappings. Later entries with a duplicate
// (category, operation) key overwrite earlier ones, matching the "route as
// written" guidance for ambiguous source tables.
func New(mappings []Mapping) *Registry {
	r := &Registry{
		byKey:      make(map[key]Mapping, len(mappings)),
		byCategory: make(map[string][]Mapping),
	}
	for _, m := range mappings {
		k := key{category: m.Category, operation: m.Operation}
		if _, exists := r.byKey[k]; !exists {
			r.byCategory[m.Category] = append(r.byCategory[m.Category], m)
		} else {
			for i, existing := range r.byCategory[m.Category] {
				if existing.Operation == m.Operation {
					r.byCategory[m.Category][i] = m
					break
				}
			}
		}
		r.byKey[k] = m
	}
	for cat := range r.byCategory {
		sort.Slice(r.byCategory[cat], func(i, j int) bool {
			return r.byCategory[cat][i].Operation < r.byCategory[cat][j].Operation
		})
	}
	return r
}

// Resolve looks up the mapping for a (category, operation) pair.
func (r *Registry) Resolve(category, operation string) (Mapping, bool) {
	m, ok := r.byKey[key{category: category, operation: operation}]
	return m, ok
}

// ListOperations returns the operation names declared for a category, in
// sorted order, for use as a JSON schema enum.
func (r *Registry) ListOperations(category string) []string {
	entries := r.byCategory[category]
	ops := make([]string, len(entries))
	for i, m := range entries {
		ops[i] = m.Operation
	}
	return ops
}

// Categories returns every non-batch category name present in the table,
// sorted.
func (r *Registry) Categories() []string {
	cats := make([]string, 0, len(r.byCategory))
	for cat := range r.byCategory {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	return cats
}

// CacheableFor returns, sorted, the names of the cache-eligible operations
// routed to the given upstream, across all categories.
func (r *Registry) CacheableFor(upstream string) []string {
	var ops []string
	for _, entries := range r.byCategory {
		for _, m := range entries {
			if m.Upstream == upstream && m.Cacheable {
				ops = append(ops, m.Operation)
			}
		}
	}
	sort.Strings(ops)
	return ops
}
