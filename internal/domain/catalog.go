package domain

import "sort"

// Mode selects whether a run covers historical observed-forcing data or
// future projected-forcing data.
type Mode string

const (
	ModeHist   Mode = "hist"
	ModeFuture Mode = "future"
)

// ProjectionStartYear is the first year covered by future scenarios.
// Historical data ends the year before.
const ProjectionStartYear = 2015

// IdentifierKind names a class of catalog identifiers
type IdentifierKind string

const (
	KindVariable IdentifierKind = "variable"
	KindScenario IdentifierKind = "scenario"
	KindModel    IdentifierKind = "model"
)

// CatalogEntry holds the universe of valid identifiers for one mode.
type CatalogEntry struct {
	Mode             Mode     `json:"mode"`
	Variables        []string `json:"variables"`
	Scenarios        []string `json:"scenarios"`
	Models           []string `json:"models"`
	DefaultScenarios []string `json:"default_scenarios"`
	MinYear          int      `json:"min_year"`
	MaxYear          int      `json:"max_year"`
}

// Catalog is the immutable registry of known variables, scenarios and models,
// partitioned by mode. It is constructed once at startup and passed explicitly
// into the planner; it performs pure lookup and validation only.
type Catalog struct {
	entries map[Mode]CatalogEntry
	// model -> mode -> set of variables the model provides
	compat map[Mode]map[string]map[string]bool
}

// ids extracts the identifier set of the given kind from an entry.
func (e CatalogEntry) ids(kind IdentifierKind) []string {
	switch kind {
	case KindVariable:
		return e.Variables
	case KindScenario:
		return e.Scenarios
	case KindModel:
		return e.Models
	}
	return nil
}

// DefaultCatalog returns the catalog for the cmip6-stat-downscaled-over-italy
// dataset.
func DefaultCatalog() *Catalog {
	variables := []string{"hurs", "pr", "sfcWind", "tas", "tasmax", "tasmin"}
	models := []string{
		"CESM2",
		"CMCC-CM2-SR5",
		"CNRM-ESM2-1",
		"EC-Earth3-Veg",
		"IPSL-CM6A-LR",
		"MIROC6",
		"MPI-ESM1-2-HR",
		"NorESM2-MM",
		"UKESM1-0-LL",
	}

	// Not every model provides every variable. The remaining five models
	// provide the full set.
	partial := map[string][]string{
		"CESM2":         {"pr", "sfcWind", "tas"},
		"CMCC-CM2-SR5":  {"hurs", "pr", "sfcWind", "tas"},
		"CNRM-ESM2-1":   {"hurs", "pr", "tas", "tasmax", "tasmin"},
		"EC-Earth3-Veg": {"hurs", "pr", "tas", "tasmax", "tasmin"},
	}

	compat := make(map[Mode]map[string]map[string]bool)
	for _, mode := range []Mode{ModeHist, ModeFuture} {
		compat[mode] = make(map[string]map[string]bool)
		for _, model := range models {
			vars, ok := partial[model]
			if !ok {
				vars = variables
			}
			set := make(map[string]bool, len(vars))
			for _, v := range vars {
				set[v] = true
			}
			compat[mode][model] = set
		}
	}

	return &Catalog{
		entries: map[Mode]CatalogEntry{
			ModeHist: {
				Mode:             ModeHist,
				Variables:        variables,
				Scenarios:        []string{"historical"},
				Models:           models,
				DefaultScenarios: []string{"historical"},
				MinYear:          1985,
				MaxYear:          ProjectionStartYear - 1,
			},
			ModeFuture: {
				Mode:             ModeFuture,
				Variables:        variables,
				Scenarios:        []string{"ssp126", "ssp370"},
				Models:           models,
				DefaultScenarios: []string{"ssp126", "ssp370"},
				MinYear:          ProjectionStartYear,
				MaxYear:          2100,
			},
		},
		compat: compat,
	}
}

// Modes returns the known modes in a stable order.
func (c *Catalog) Modes() []Mode {
	modes := make([]Mode, 0, len(c.entries))
	for mode := range c.entries {
		modes = append(modes, mode)
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i] < modes[j] })
	return modes
}

// Lookup returns the catalog entry for a mode.
func (c *Catalog) Lookup(mode Mode) (CatalogEntry, error) {
	entry, ok := c.entries[mode]
	if !ok {
		return CatalogEntry{}, &InvalidModeError{Mode: string(mode)}
	}
	return entry, nil
}

// Validate checks that every requested id is known for the given kind and
// mode. Unknown ids are reported together in a single error.
func (c *Catalog) Validate(mode Mode, kind IdentifierKind, ids []string) error {
	entry, err := c.Lookup(mode)
	if err != nil {
		return err
	}

	known := make(map[string]bool)
	for _, id := range entry.ids(kind) {
		known[id] = true
	}

	var unknown []string
	for _, id := range ids {
		if !known[id] {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		return &UnknownIdentifierError{Mode: mode, Kind: kind, IDs: unknown}
	}
	return nil
}

// Resolve turns a filter into the effective identifier set for a kind and
// mode: the whole catalog set for All, the mode's default scenarios for
// Default (scenario kind only), or the validated explicit set. The result is
// sorted and duplicate-free.
func (c *Catalog) Resolve(mode Mode, kind IdentifierKind, filter Filter) ([]string, error) {
	entry, err := c.Lookup(mode)
	if err != nil {
		return nil, err
	}

	switch filter.Kind() {
	case FilterAll:
		return sortedCopy(entry.ids(kind)), nil
	case FilterDefault:
		if kind != KindScenario {
			return nil, &UnknownIdentifierError{Mode: mode, Kind: kind, IDs: []string{"default"}}
		}
		return sortedCopy(entry.DefaultScenarios), nil
	default:
		ids := filter.IDs()
		if err := c.Validate(mode, kind, ids); err != nil {
			return nil, err
		}
		return ids, nil
	}
}

// ValidateYearRange checks that from <= to and that both years are plausible
// for the mode: historical years precede the projection start, future years
// do not.
func (c *Catalog) ValidateYearRange(mode Mode, from, to int) error {
	entry, err := c.Lookup(mode)
	if err != nil {
		return err
	}
	if from > to {
		return &InvalidYearRangeError{Mode: mode, From: from, To: to, Reason: "from-year is after to-year"}
	}
	if from < entry.MinYear || to > entry.MaxYear {
		return &InvalidYearRangeError{
			Mode: mode, From: from, To: to,
			Reason: "outside the valid range for this mode",
			Min:    entry.MinYear, Max: entry.MaxYear,
		}
	}
	return nil
}

// Compatible reports whether the given model provides the given variable in
// the given mode. Unknown combinations are reported as incompatible.
func (c *Catalog) Compatible(mode Mode, model, variable string) bool {
	models, ok := c.compat[mode]
	if !ok {
		return false
	}
	vars, ok := models[model]
	if !ok {
		return false
	}
	return vars[variable]
}

// ModelVariables returns the variables a model provides in a mode, sorted.
func (c *Catalog) ModelVariables(mode Mode, model string) []string {
	models, ok := c.compat[mode]
	if !ok {
		return nil
	}
	vars, ok := models[model]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(vars))
	for v := range vars {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func sortedCopy(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	sort.Strings(out)
	return out
}
