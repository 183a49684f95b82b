package domain

import "sort"

// FilterKind discriminates the filter variants.
type FilterKind int

const (
	// FilterAll selects every catalog identifier for the kind and mode.
	FilterAll FilterKind = iota
	// FilterDefault selects the mode's default scenarios (scenario kind only).
	FilterDefault
	// FilterExplicit selects an explicit identifier set.
	FilterExplicit
)

// Sentinel values accepted on the command line.
const (
	SentinelAll     = "all"
	SentinelDefault = "default"
)

// Filter selects a subset of catalog identifiers: everything, the mode
// defaults, or an explicit set. The zero value selects everything.
type Filter struct {
	kind FilterKind
	ids  []string
}

// NewAllFilter returns a filter selecting every known identifier.
func NewAllFilter() Filter {
	return Filter{kind: FilterAll}
}

// NewDefaultFilter returns a filter selecting the mode defaults.
func NewDefaultFilter() Filter {
	return Filter{kind: FilterDefault}
}

// NewExplicitFilter returns a filter selecting the given identifiers.
// Duplicates are silently dropped and the set is sorted.
func NewExplicitFilter(ids ...string) Filter {
	seen := make(map[string]bool, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	sort.Strings(unique)
	return Filter{kind: FilterExplicit, ids: unique}
}

// ParseFilter builds a filter from command-line arguments. An empty argument
// list or the "all" sentinel selects everything; the "default" sentinel
// selects the mode defaults. A sentinel takes precedence over any ids given
// alongside it.
func ParseFilter(args []string) Filter {
	if len(args) == 0 {
		return NewAllFilter()
	}
	for _, arg := range args {
		switch arg {
		case SentinelAll:
			return NewAllFilter()
		case SentinelDefault:
			return NewDefaultFilter()
		}
	}
	return NewExplicitFilter(args...)
}

// Kind returns the filter variant.
func (f Filter) Kind() FilterKind {
	return f.kind
}

// IDs returns the explicit identifier set. Empty unless Kind is
// FilterExplicit.
func (f Filter) IDs() []string {
	return f.ids
}

// String renders the filter for logs and error messages.
func (f Filter) String() string {
	switch f.kind {
	case FilterAll:
		return SentinelAll
	case FilterDefault:
		return SentinelDefault
	default:
		out := ""
		for i, id := range f.ids {
			if i > 0 {
				out += ","
			}
			out += id
		}
		return out
	}
}
