// Package entity holds the static knowledge base of named entities and the
// correlator that matches market movers against news clusters.
package entity

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/halcyonlabs/meridian/internal/interfaces"
	"github.com/halcyonlabs/meridian/internal/models"
)

// minAliasLength is the shortest alias the index accepts. Short aliases match
// inside unrelated words far too easily.
const minAliasLength = 3

// Index is the derived read-only lookup structure over the entity registry.
// Built once at startup; rebuilt only if the registry changes, which in
// practice means process lifetime.
type Index struct {
	records   map[string]models.EntityRecord
	byAlias   map[string]string   // lowercased alias -> entity id
	byKeyword map[string][]string // lowercased keyword -> entity ids
	bySector  map[string][]string
	byType    map[models.EntityType][]string

	// aliasPatterns holds one compiled case-insensitive word-boundary pattern
	// per alias, so "AI" never matches inside "RAID".
	aliasPatterns map[string]*regexp.Regexp
}

// BuildIndex validates the records and builds every lookup structure.
// Validation failures are malformed configuration: fatal at startup, never
// raised mid-cycle.
func BuildIndex(records []models.EntityRecord) (*Index, error) {
	idx := &Index{
		records:       make(map[string]models.EntityRecord, len(records)),
		byAlias:       make(map[string]string),
		byKeyword:     make(map[string][]string),
		bySector:      make(map[string][]string),
		byType:        make(map[models.EntityType][]string),
		aliasPatterns: make(map[string]*regexp.Regexp),
	}

	for _, rec := range records {
		if rec.ID == "" || rec.DisplayName == "" {
			return nil, fmt.Errorf("%w: entity with empty id or display name", interfaces.ErrMalformedConfiguration)
		}
		if !rec.Type.IsValid() {
			return nil, fmt.Errorf("%w: entity %s has unknown type %q", interfaces.ErrMalformedConfiguration, rec.ID, rec.Type)
		}
		if _, dup := idx.records[rec.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate entity id %s", interfaces.ErrMalformedConfiguration, rec.ID)
		}
		if len(rec.Aliases) == 0 {
			return nil, fmt.Errorf("%w: entity %s has an empty alias set", interfaces.ErrMalformedConfiguration, rec.ID)
		}

		idx.records[rec.ID] = rec

		for _, alias := range rec.Aliases {
			normalized := strings.ToLower(strings.TrimSpace(alias))
			if len(normalized) < minAliasLength {
				return nil, fmt.Errorf("%w: entity %s alias %q shorter than %d characters", interfaces.ErrMalformedConfiguration, rec.ID, alias, minAliasLength)
			}
			if owner, clash := idx.byAlias[normalized]; clash && owner != rec.ID {
				return nil, fmt.Errorf("%w: alias %q claimed by both %s and %s", interfaces.ErrMalformedConfiguration, alias, owner, rec.ID)
			}
			idx.byAlias[normalized] = rec.ID
			if _, ok := idx.aliasPatterns[normalized]; !ok {
				idx.aliasPatterns[normalized] = wordBoundaryPattern(normalized)
			}
		}

		for _, keyword := range rec.Keywords {
			normalized := strings.ToLower(strings.TrimSpace(keyword))
			if normalized == "" {
				continue
			}
			idx.byKeyword[normalized] = append(idx.byKeyword[normalized], rec.ID)
		}

		if rec.Sector != "" {
			sector := strings.ToLower(rec.Sector)
			idx.bySector[sector] = append(idx.bySector[sector], rec.ID)
		}

		idx.byType[rec.Type] = append(idx.byType[rec.Type], rec.ID)
	}

	// Related ids must resolve; a dangling reference is a config bug, not
	// something to discover mid-cycle.
	for _, rec := range idx.records {
		for _, rel := range rec.RelatedIDs {
			if _, ok := idx.records[rel]; !ok {
				return nil, fmt.Errorf("%w: entity %s references unknown related id %s", interfaces.ErrMalformedConfiguration, rec.ID, rel)
			}
		}
	}

	return idx, nil
}

// wordBoundaryPattern compiles a case-insensitive whole-word pattern for an
// alias. QuoteMeta keeps aliases with dots or dashes literal.
func wordBoundaryPattern(alias string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(alias) + `\b`)
}

// ByID returns the entity with the given id.
func (idx *Index) ByID(id string) (models.EntityRecord, bool) {
	rec, ok := idx.records[id]
	return rec, ok
}

// ByAlias resolves a case-insensitive exact alias to its owning entity.
func (idx *Index) ByAlias(alias string) (models.EntityRecord, bool) {
	id, ok := idx.byAlias[strings.ToLower(strings.TrimSpace(alias))]
	if !ok {
		return models.EntityRecord{}, false
	}
	return idx.records[id], true
}

// ByKeyword returns the ids of entities carrying the keyword.
func (idx *Index) ByKeyword(keyword string) []string {
	return idx.byKeyword[strings.ToLower(strings.TrimSpace(keyword))]
}

// BySector returns the ids of entities in a sector.
func (idx *Index) BySector(sector string) []string {
	return idx.bySector[strings.ToLower(sector)]
}

// ByType returns the ids of entities of the given type.
func (idx *Index) ByType(t models.EntityType) []string {
	return idx.byType[t]
}

// Len returns the number of registered entities.
func (idx *Index) Len() int {
	return len(idx.records)
}

// AliasInText reports whether the alias appears in the text as a whole word.
func (idx *Index) AliasInText(alias, text string) bool {
	pattern, ok := idx.aliasPatterns[strings.ToLower(strings.TrimSpace(alias))]
	if !ok {
		return false
	}
	return pattern.MatchString(text)
}

// CountriesInText returns the ISO codes of every country entity whose alias
// appears as a whole word in the text. Used to attribute news clusters to
// monitored countries. Result is sorted for determinism.
func (idx *Index) CountriesInText(text string) []string {
	seen := make(map[string]struct{})
	for _, id := range idx.byType[models.EntityTypeCountry] {
		rec := idx.records[id]
		for _, alias := range rec.Aliases {
			if idx.AliasInText(alias, text) {
				seen[id] = struct{}{}
				break
			}
		}
	}

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
