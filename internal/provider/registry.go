package provider

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Registry is the immutable, ordered table of providers
type Registry struct {
	entries []Entry
	byID    map[string]int
}

// NewRegistry validates entries and builds a registry that keeps their
// declaration order. All validation problems are reported together.
func NewRegistry(entries ...Entry) (*Registry, error) {
	var result *multierror.Error
	byID := make(map[string]int, len(entries))

	for i, e := range entries {
		switch {
		case e.ID == "":
			result = multierror.Append(result, fmt.Errorf("entry at index %d has empty id", i))
		case e.ID != strings.ToLower(e.ID):
			result = multierror.Append(result, fmt.Errorf("entry %q: id must be lowercase", e.ID))
		default:
			if prev, dup := byID[e.ID]; dup {
				result = multierror.Append(result, fmt.Errorf("entry %q at index %d duplicates index %d", e.ID, i, prev))
			}
			byID[e.ID] = i
		}
		if e.Name == "" {
			result = multierror.Append(result, fmt.Errorf("entry %q has empty name", e.ID))
		}
		if !e.Category.Valid() {
			result = multierror.Append(result, fmt.Errorf("entry %q has unknown category %q", e.ID, e.Category))
		}
		if e.Adapter == nil {
			result = multierror.Append(result, fmt.Errorf("entry %q has no adapter", e.ID))
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("invalid provider registry: %w", err)
	}

	return &Registry{
		entries: append([]Entry(nil), entries...),
		byID:    byID,
	}, nil
}

// All returns every entry in declaration order. The slice is a copy.
func (r *Registry) All() []Entry {
	return append([]Entry(nil), r.entries...)
}

// FindByID resolves a single entry
func (r *Registry) FindByID(id string) (Entry, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Entry{}, false
	}
	return r.entries[i], true
}

// Len returns the number of entries
func (r *Registry) Len() int {
	return len(r.entries)
}
