package domain

import (
	"strings"
	"sync"
	"unicode"
)

// EntityType classifies an entity.
type EntityType string

// Built-in entity types.
const (
	EntityPerson       EntityType = "PERSON"
	EntityOrganization EntityType = "ORGANIZATION"
	EntityLocation     EntityType = "LOCATION"
	EntityDate         EntityType = "DATE"
	EntityMoney        EntityType = "MONEY"
	EntityProduct      EntityType = "PRODUCT"
	EntityConcept      EntityType = "CONCEPT"
)

// RelationType classifies a directed relation between two entities.
type RelationType string

// Built-in relation types.
const (
	RelationOperatesIn   RelationType = "OPERATES_IN"
	RelationBelongsTo    RelationType = "BELONGS_TO"
	RelationWorksFor     RelationType = "WORKS_FOR"
	RelationLocatedIn    RelationType = "LOCATED_IN"
	RelationOwns         RelationType = "OWNS"
	RelationInvestsIn    RelationType = "INVESTS_IN"
	RelationCompetesWith RelationType = "COMPETES_WITH"
	RelationPartnersWith RelationType = "PARTNERS_WITH"
	RelationProduces     RelationType = "PRODUCES"
	RelationRelatedTo    RelationType = "RELATED_TO"
)

var (
	vocabMu       sync.RWMutex
	entityTypes   = []EntityType{EntityPerson, EntityOrganization, EntityLocation, EntityDate, EntityMoney, EntityProduct, EntityConcept}
	relationTypes = []RelationType{
		RelationOperatesIn, RelationBelongsTo, RelationWorksFor, RelationLocatedIn, RelationOwns,
		RelationInvestsIn, RelationCompetesWith, RelationPartnersWith, RelationProduces, RelationRelatedTo,
	}
)

// RegisterEntityType extends the entity vocabulary. Names are upper-cased.
func RegisterEntityType(t EntityType) {
	t = EntityType(strings.ToUpper(strings.TrimSpace(string(t))))
	if t == "" {
		return
	}
	vocabMu.Lock()
	defer vocabMu.Unlock()
	for _, known := range entityTypes {
		if known == t {
			return
		}
	}
	entityTypes = append(entityTypes, t)
}

// RegisterRelationType extends the relation vocabulary. Names are upper-cased.
func RegisterRelationType(t RelationType) {
	t = RelationType(strings.ToUpper(strings.TrimSpace(string(t))))
	if t == "" {
		return
	}
	vocabMu.Lock()
	defer vocabMu.Unlock()
	for _, known := range relationTypes {
		if known == t {
			return
		}
	}
	relationTypes = append(relationTypes, t)
}

// EntityTypes returns the current entity vocabulary.
func EntityTypes() []EntityType {
	vocabMu.RLock()
	defer vocabMu.RUnlock()
	return append([]EntityType(nil), entityTypes...)
}

// RelationTypes returns the current relation vocabulary.
func RelationTypes() []RelationType {
	vocabMu.RLock()
	defer vocabMu.RUnlock()
	return append([]RelationType(nil), relationTypes...)
}

// ParseEntityType normalises s and reports whether it is in the vocabulary.
func ParseEntityType(s string) (EntityType, bool) {
	t := EntityType(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range EntityTypes() {
		if known == t {
			return t, true
		}
	}
	return t, false
}

// ParseRelationType normalises s and reports whether it is in the vocabulary.
// Spaces and hyphens are treated as underscores.
func ParseRelationType(s string) (RelationType, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	t := RelationType(s)
	for _, known := range RelationTypes() {
		if known == t {
			return t, true
		}
	}
	return t, false
}

// NormaliseName trims a name and collapses internal whitespace.
func NormaliseName(name string) string {
	return strings.Join(strings.FieldsFunc(name, unicode.IsSpace), " ")
}

// CanonicalKey identifies an entity uniquely by type and case-folded name.
func CanonicalKey(t EntityType, name string) string {
	return string(t) + ":" + strings.ToLower(NormaliseName(name))
}

// Entity is a node in the knowledge graph.
type Entity struct {
	// Name is the display name, normalised for whitespace.
	Name string

	// Type is drawn from the entity vocabulary.
	Type EntityType

	// Aliases are alternative surface forms merged into this entity.
	Aliases []string
}

// Key returns the entity's canonical key.
func (e Entity) Key() string {
	return CanonicalKey(e.Type, e.Name)
}

// Ref returns a reference to this entity.
func (e Entity) Ref() EntityRef {
	return EntityRef{Name: e.Name, Type: e.Type}
}

// EntityRef points at an entity by name and type.
type EntityRef struct {
	Name string
	Type EntityType
}

// Key returns the referenced entity's canonical key.
func (r EntityRef) Key() string {
	return CanonicalKey(r.Type, r.Name)
}

// Provenance ties a relation or citation to the text that produced it.
type Provenance struct {
	SourceID string
	ChunkID  string
}

// Relation is a directed, typed edge between two entities.
type Relation struct {
	Source     EntityRef
	Type       RelationType
	Target     EntityRef
	Provenance []Provenance
}

// Key identifies the edge for deduplication: (type, source key, target key).
func (r Relation) Key() string {
	return string(r.Type) + "|" + r.Source.Key() + "|" + r.Target.Key()
}

// Extraction is the set of entities and relations found in one chunk.
type Extraction struct {
	Entities  []Entity
	Relations []Relation
}

// MergeAliases returns the union of a and b preserving first-seen order,
// comparing case-insensitively.
func MergeAliases(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string(nil), a...), b...) {
		k := strings.ToLower(NormaliseName(s))
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, NormaliseName(s))
	}
	return out
}

// MergeProvenance returns the union of a and b preserving first-seen order.
func MergeProvenance(a, b []Provenance) []Provenance {
	seen := make(map[Provenance]struct{}, len(a)+len(b))
	out := make([]Provenance, 0, len(a)+len(b))
	for _, p := range append(append([]Provenance(nil), a...), b...) {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
