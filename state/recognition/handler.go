package recognition

import (
	"trustmesh/engine/library"
	"trustmesh/state/signals"
)

// Publisher receives resolved signals. Implementations must de-duplicate by Signal.ID.
type Publisher interface {
	Publish(signals.Signal) bool
}

// Mind holds the definition caches and the instances still waiting for their definition.
// It is not safe for concurrent use; the owner serializes every call.
type Mind struct {
	db
	publisher  Publisher
	log        library.Logger
	maxPending int
}

// NewMind returns an empty Mind publishing into p. maxPending bounds the pending instances,
// 0 means unbounded.
func NewMind(p Publisher, log library.Logger, maxPending int) *Mind {
	if log == nil {
		log = library.Nop
	}
	return &Mind{
		db:         newDb(),
		publisher:  p,
		log:        log,
		maxPending: maxPending,
	}
}

// IngestDefinitions caches defs and then retries every pending instance once.
func (m *Mind) IngestDefinitions(defs []Definition) (added, resolved int) {
	for _, d := range defs {
		id := firstNonEmpty(d.ID, d.Slug, d.HRL)
		if id == "" {
			m.log.Warn("definition missing id/slug", library.Fields{"name": d.Name, "ts": d.Timestamp})
			continue
		}
		d.ID = id
		if m.upsert(d) {
			added++
		}
	}
	resolved = m.sweep()
	if resolved > 0 {
		m.log.Info("resolved pending instances", library.Fields{"resolved": resolved, "pending": m.pending.Len()})
	}
	m.log.Debug("definitions cached", library.Fields{"added": added, "total": len(m.byID)})
	return
}

// IngestInstances publishes every instance whose definition is known and queues the rest.
func (m *Mind) IngestInstances(insts []Instance) (resolved, queued int) {
	for _, inst := range insts {
		if m.resolve(inst) {
			resolved++
			continue
		}
		m.log.Debug("cannot resolve instance yet", library.Fields{"hrl": inst.HRL, "definition": inst.Reference()})
		m.enqueue(inst)
		queued++
	}
	m.log.Debug("instances ingested", library.Fields{"resolved": resolved, "queued": queued, "pending": m.pending.Len()})
	return
}

// sweep pops every pending instance once and pushes back the ones that still don't resolve.
func (m *Mind) sweep() (resolved int) {
	n := m.pending.Len()
	for i := 0; i < n; i++ {
		inst, ok := m.pending.Pop()
		if !ok {
			break
		}
		if m.resolve(inst) {
			resolved++
			continue
		}
		m.pending.Push(inst)
	}
	if n > 0 {
		m.log.Debug("pending sweep", library.Fields{"swept": n, "resolved": resolved, "pending": m.pending.Len()})
	}
	return
}

func (m *Mind) enqueue(inst Instance) {
	if m.maxPending > 0 {
		for m.pending.Len() >= m.maxPending {
			evicted, _ := m.pending.Pop()
			m.log.Warn("pending queue full, dropping oldest instance", library.Fields{
				"hrl": evicted.HRL, "definition": evicted.Reference(), "max": m.maxPending,
			})
		}
	}
	m.pending.Push(inst)
}

// resolve publishes inst if its definition is cached, looking up by id before slug.
func (m *Mind) resolve(inst Instance) bool {
	def, ok := m.lookup(inst)
	if !ok {
		return false
	}
	sig := BuildSignal(inst, def)
	if m.publisher.Publish(sig) {
		m.log.Info("resolved instance", library.Fields{"definition": firstNonEmpty(def.Slug, def.ID), "owner": inst.Owner, "id": sig.ID})
	}
	return true
}

// Definition finds a cached definition by id, then by slug.
func (m *Mind) Definition(idOrSlug string) (Definition, bool) {
	if d, ok := m.byID[idOrSlug]; ok {
		return d, true
	}
	d, ok := m.bySlug[idOrSlug]
	return d, ok
}

func (m *Mind) Definitions() []Definition {
	out := make([]Definition, 0, len(m.byID))
	for _, d := range m.byID {
		out = append(out, d)
	}
	return out
}

// Pending returns the waiting instances, oldest first.
func (m *Mind) Pending() []Instance {
	return m.pending.Items()
}

// IDs and Slugs are the cached definition keys, sorted.
func (m *Mind) IDs() []string   { return m.ids() }
func (m *Mind) Slugs() []string { return m.slugs() }

// Reset drops every definition and pending instance without publishing anything.
func (m *Mind) Reset() {
	m.reset()
}

func firstNonEmpty(s ...string) string {
	for _, v := range s {
		if v != "" {
			return v
		}
	}
	return ""
}
