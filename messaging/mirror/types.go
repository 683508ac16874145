package mirror

import (
	"trustmesh/engine/library"
	"trustmesh/state/recognition"
)

// Message is a topic message as returned by the mirror node REST and WebSocket APIs.
type Message struct {
	ConsensusTimestamp string          `json:"consensus_timestamp"`
	Message            string          `json:"message"`
	SequenceNumber     int64           `json:"sequence_number"`
	TopicID            library.TopicID `json:"topic_id,omitempty"`
}

type messagesPage struct {
	Messages []Message `json:"messages"`
	Links    struct {
		Next string `json:"next"`
	} `json:"links"`
}

type Kind string

const (
	KindDefinition Kind = "definition"
	KindInstance   Kind = "instance"
)

// Decoded is a recognition message. Exactly one of Definition and Instance is meaningful,
// chosen by Kind.
type Decoded struct {
	Kind       Kind
	HRL        library.HRL
	Timestamp  recognition.Timestamp
	Definition recognition.Definition
	Instance   recognition.Instance
}

type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)
