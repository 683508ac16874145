package signals

import (
	"trustmesh/engine/library"
)

type Class = string

type Status = string

const (
	ClassRecognition Class  = "recognition"
	StatusOnchain    Status = "onchain"
)

// Signal is a feed entry ready for display. ID is stable for a given source message, so
// publishing the same message twice is harmless.
type Signal struct {
	ID        string  `json:"id"`
	Class     Class   `json:"class"`
	TopicType string  `json:"topicType"`
	Direction string  `json:"direction"`
	Actors    Actors  `json:"actors"`
	Payload   Payload `json:"payload"`
	Ts        int64   `json:"ts"`
	Status    Status  `json:"status"`
	Type      string  `json:"type"`
	Meta      Meta    `json:"meta"`
}

type Actors struct {
	From library.Account `json:"from"`
	To   library.Account `json:"to,omitempty"`
}

type Payload struct {
	DefinitionID   string          `json:"definitionId"`
	DefinitionSlug string          `json:"definitionSlug,omitempty"`
	DefinitionName string          `json:"definitionName,omitempty"`
	DefinitionIcon string          `json:"definitionIcon,omitempty"`
	Note           string          `json:"note,omitempty"`
	Owner          library.Account `json:"owner,omitempty"`
	Issuer         library.Account `json:"issuer,omitempty"`
}

type Meta struct {
	Tag string      `json:"tag"`
	HRL library.HRL `json:"hrl"`
}
