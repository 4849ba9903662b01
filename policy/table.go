package policy

import (
	"strings"

	"github.com/goliatone/go-dispatch"
)

// Table holds the default execution policy plus named per-operation
// overrides. Overrides are registered under every canonical key variant of
// their name, so "StoryWrite", "story_write", and "story write" all hit the
// same entry. Pure lookup, no mutation after construction.
type Table struct {
	def       ExecutionPolicy
	overrides map[string]ExecutionPolicy
}

// NewTable builds a resolver table. Policies are normalized on the way in;
// when two override names collapse to the same canonical key the first
// registration wins.
func NewTable(def ExecutionPolicy, overrides map[string]ExecutionPolicy) *Table {
	t := &Table{
		def:       def.Normalize(),
		overrides: make(map[string]ExecutionPolicy, len(overrides)),
	}
	for name, p := range overrides {
		normalized := p.Normalize()
		for _, key := range dispatch.KeyVariants(name) {
			if _, exists := t.overrides[key]; !exists {
				t.overrides[key] = normalized
			}
		}
	}
	return t
}

// Default returns the table's fallback policy.
func (t *Table) Default() ExecutionPolicy {
	if t == nil {
		return Default()
	}
	return t.def
}

// HasOverride reports whether any spelling variant of name matches a
// registered override.
func (t *Table) HasOverride(name string) bool {
	if t == nil {
		return false
	}
	_, ok := t.lookup(name)
	return ok
}

// Resolve returns the effective policy for an operation. It is total and
// never fails: a non-empty operation name is matched by its spelling
// variants; an empty one falls back to metadata["operation"]; anything
// unmatched gets the table default.
func (t *Table) Resolve(operation string, metadata map[string]string) ExecutionPolicy {
	if t == nil {
		return Default()
	}
	if strings.TrimSpace(operation) != "" {
		if p, ok := t.lookup(operation); ok {
			return p
		}
		return t.def
	}
	if meta := strings.TrimSpace(metadata["operation"]); meta != "" {
		if p, ok := t.lookup(meta); ok {
			return p
		}
	}
	return t.def
}

func (t *Table) lookup(name string) (ExecutionPolicy, bool) {
	for _, key := range dispatch.KeyVariants(name) {
		if p, ok := t.overrides[key]; ok {
			return p, true
		}
	}
	return ExecutionPolicy{}, false
}
