package services

import (
	"context"
	"strings"
	"sync"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
	"github.com/custodia-labs/fusionqa/internal/core/ports/driven"
)

// Ensure AliasResolver implements the interface.
var _ driven.EntityResolver = (*AliasResolver)(nil)

// AliasResolver folds an entity into a canonical entity when its name is a
// registered alias of the same type. Unregistered names resolve to themselves.
type AliasResolver struct {
	mu      sync.RWMutex
	aliases map[string]domain.Entity
}

// NewAliasResolver creates an empty resolver.
func NewAliasResolver() *AliasResolver {
	return &AliasResolver{aliases: make(map[string]domain.Entity)}
}

// Register records alias as another surface form of canonical.
func (r *AliasResolver) Register(alias string, canonical domain.Entity) {
	canonical.Name = domain.NormaliseName(canonical.Name)
	canonical.Aliases = domain.MergeAliases(canonical.Aliases, []string{alias})

	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[domain.CanonicalKey(canonical.Type, alias)] = canonical
}

// Resolve returns the canonical entity for e, carrying e's name as an alias.
func (r *AliasResolver) Resolve(_ context.Context, e domain.Entity) (domain.Entity, error) {
	r.mu.RLock()
	canonical, ok := r.aliases[e.Key()]
	r.mu.RUnlock()
	if !ok || canonical.Key() == e.Key() {
		return e, nil
	}

	aliases := []string{e.Name}
	if strings.EqualFold(e.Name, canonical.Name) {
		aliases = nil
	}
	canonical.Aliases = domain.MergeAliases(canonical.Aliases, append(aliases, e.Aliases...))
	return canonical, nil
}

// resolveExtraction applies the resolver to every entity and rewrites
// relation endpoints to the resolved names. A nil resolver is the identity.
func resolveExtraction(ctx context.Context, resolver driven.EntityResolver, ex domain.Extraction) (domain.Extraction, error) {
	if resolver == nil {
		return ex, nil
	}

	mapped := make(map[string]domain.EntityRef, len(ex.Entities))
	entities := make([]domain.Entity, 0, len(ex.Entities))
	for _, e := range ex.Entities {
		resolved, err := resolver.Resolve(ctx, e)
		if err != nil {
			return domain.Extraction{}, err
		}
		mapped[e.Key()] = resolved.Ref()
		entities = append(entities, resolved)
	}

	relations := make([]domain.Relation, 0, len(ex.Relations))
	for _, rel := range ex.Relations {
		if ref, ok := mapped[rel.Source.Key()]; ok {
			rel.Source = ref
		}
		if ref, ok := mapped[rel.Target.Key()]; ok {
			rel.Target = ref
		}
		if rel.Source.Key() == rel.Target.Key() {
			continue
		}
		relations = append(relations, rel)
	}

	return mergeExtractions([]domain.Extraction{{Entities: entities, Relations: relations}}), nil
}

// mergeExtractions unions extractions in order, merging entities by
// canonical key and relations by relation key.
func mergeExtractions(parts []domain.Extraction) domain.Extraction {
	var out domain.Extraction
	entityIndex := make(map[string]int)
	relationIndex := make(map[string]int)

	for _, part := range parts {
		for _, e := range part.Entities {
			if i, ok := entityIndex[e.Key()]; ok {
				out.Entities[i].Aliases = domain.MergeAliases(out.Entities[i].Aliases, e.Aliases)
				continue
			}
			entityIndex[e.Key()] = len(out.Entities)
			out.Entities = append(out.Entities, e)
		}
		for _, r := range part.Relations {
			if i, ok := relationIndex[r.Key()]; ok {
				out.Relations[i].Provenance = domain.MergeProvenance(out.Relations[i].Provenance, r.Provenance)
				continue
			}
			relationIndex[r.Key()] = len(out.Relations)
			r.Provenance = append([]domain.Provenance(nil), r.Provenance...)
			out.Relations = append(out.Relations, r)
		}
	}

	return out
}
