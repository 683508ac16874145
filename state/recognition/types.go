package recognition

import (
	"trustmesh/engine/library"
)

// Definition is a kind of recognition, e.g. a badge that can be granted many times.
type Definition struct {
	ID          string      `json:"id"`
	Slug        string      `json:"slug,omitempty"`
	Name        string      `json:"name,omitempty"`
	Description string      `json:"description,omitempty"`
	Icon        string      `json:"icon,omitempty"`
	HRL         library.HRL `json:"hrl"`
	Timestamp   Timestamp   `json:"ts"`
}

// Instance grants a Definition to Owner. It names its definition by id, by slug, or both.
type Instance struct {
	Owner          library.Account `json:"owner,omitempty"`
	Issuer         library.Account `json:"issuer,omitempty"`
	Note           string          `json:"note,omitempty"`
	DefinitionID   string          `json:"definitionId,omitempty"`
	DefinitionSlug string          `json:"definitionSlug,omitempty"`
	HRL            library.HRL     `json:"hrl"`
	Timestamp      Timestamp       `json:"ts"`
}

// Reference is whatever the instance uses to find its definition, for logs.
func (i Instance) Reference() string {
	if i.DefinitionID != "" {
		return i.DefinitionID
	}
	return i.DefinitionSlug
}
