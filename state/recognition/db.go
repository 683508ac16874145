package recognition

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"trustmesh/engine/library"
)

type db struct {
	byID    map[string]Definition
	bySlug  map[string]Definition
	pending *library.Stack[Instance]
}

func newDb() db {
	return db{
		byID:    make(map[string]Definition),
		bySlug:  make(map[string]Definition),
		pending: library.NewStack[Instance](64),
	}
}

// upsert stores d under its id and slug unless a newer version is already held.
// Equal timestamps favour the incoming definition.
func (s *db) upsert(d Definition) bool {
	existing, exists := s.byID[d.ID]
	if exists && existing.Timestamp.Compare(d.Timestamp) > 0 {
		return false
	}
	if exists && existing.Slug != "" && existing.Slug != d.Slug {
		if held, ok := s.bySlug[existing.Slug]; ok && held.ID == d.ID {
			delete(s.bySlug, existing.Slug)
		}
	}
	s.byID[d.ID] = d
	if d.Slug != "" {
		s.bySlug[d.Slug] = d
	}
	return true
}

func (s *db) lookup(inst Instance) (Definition, bool) {
	if inst.DefinitionID != "" {
		if d, ok := s.byID[inst.DefinitionID]; ok {
			return d, true
		}
	}
	if inst.DefinitionSlug != "" {
		if d, ok := s.bySlug[inst.DefinitionSlug]; ok {
			return d, true
		}
	}
	return Definition{}, false
}

func (s *db) ids() []string {
	k := maps.Keys(s.byID)
	slices.Sort(k)
	return k
}

func (s *db) slugs() []string {
	k := maps.Keys(s.bySlug)
	slices.Sort(k)
	return k
}

func (s *db) reset() {
	s.byID = make(map[string]Definition)
	s.bySlug = make(map[string]Definition)
	s.pending.Reset()
}
