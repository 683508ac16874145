package eventconductor

import (
	"trustmesh/engine/library"
)

type DebugInfo struct {
	Initialized            bool            `json:"initialized"`
	DefinitionsCount       int             `json:"definitionsCount"`
	PendingInstancesCount  int             `json:"pendingInstancesCount"`
	DefinitionIDs          []string        `json:"definitionIds"`
	DefinitionSlugs        []string        `json:"definitionSlugs"`
	PendingInstancesDefIDs []string        `json:"pendingInstancesDefIds"`
	Topic                  library.TopicID `json:"topic"`
	Subscriptions          int             `json:"subscriptions"`
}

func (c *Conductor) DebugInfo() DebugInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	info := DebugInfo{
		Initialized:     c.initialized,
		DefinitionIDs:   c.mind.IDs(),
		DefinitionSlugs: c.mind.Slugs(),
		Topic:           c.opts.Topic,
		Subscriptions:   len(c.disposers),
	}
	info.DefinitionsCount = len(info.DefinitionIDs)
	for _, p := range c.mind.Pending() {
		info.PendingInstancesCount++
		if ref := p.Reference(); ref != "" {
			info.PendingInstancesDefIDs = append(info.PendingInstancesDefIDs, ref)
		}
	}
	return info
}
