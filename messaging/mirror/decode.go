package mirror

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"trustmesh/engine/library"
	"trustmesh/state/recognition"
)

// HRLFor is the handle of the message at seq on topic.
func HRLFor(topic library.TopicID, seq int64) library.HRL {
	return fmt.Sprintf("hcs://11/%s/%d", topic, seq)
}

// Decode interprets the base64 payload of m as a recognition definition or instance.
// It returns false for anything it cannot interpret and never panics on bad input.
func Decode(m Message) (d Decoded, ok bool) {
	raw := strings.TrimSpace(m.Message)
	if raw == "" {
		return d, false
	}
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return d, false
	}
	if !gjson.ValidBytes(b) {
		return d, false
	}
	root := gjson.ParseBytes(b)
	if !root.IsObject() {
		return d, false
	}
	body := root
	for _, k := range []string{"payload", "data"} {
		if v := root.Get(k); v.IsObject() {
			body = v
			break
		}
	}
	kind, ok := kindOf(root, body)
	if !ok {
		return d, false
	}
	d.Kind = kind
	d.HRL = HRLFor(m.TopicID, m.SequenceNumber)
	d.Timestamp = recognition.Timestamp(m.ConsensusTimestamp)
	switch kind {
	case KindDefinition:
		d.Definition = recognition.Definition{
			ID:          field(body, root, "id", "definitionId", "definition_id"),
			Slug:        field(body, root, "slug"),
			Name:        field(body, root, "name", "title"),
			Description: field(body, root, "description"),
			Icon:        field(body, root, "icon", "icon_url", "emoji"),
			HRL:         d.HRL,
			Timestamp:   d.Timestamp,
		}
	case KindInstance:
		d.Instance = recognition.Instance{
			Owner:          field(body, root, "owner", "recipient", "to"),
			Issuer:         field(body, root, "issuer", "issued_by", "from"),
			Note:           field(body, root, "note", "reason"),
			DefinitionID:   field(body, root, "definitionId", "definition_id"),
			DefinitionSlug: field(body, root, "definitionSlug", "definition_slug"),
			HRL:            d.HRL,
			Timestamp:      d.Timestamp,
		}
	}
	return d, true
}

func kindOf(root, body gjson.Result) (Kind, bool) {
	declared := strings.ToLower(field(root, body, "type", "kind", "schema"))
	switch {
	case strings.Contains(declared, "definition"):
		return KindDefinition, true
	case strings.Contains(declared, "instance"), strings.Contains(declared, "mint"):
		return KindInstance, true
	}
	hasRef := field(body, root, "definitionId", "definition_id", "definitionSlug", "definition_slug") != ""
	if hasRef && field(body, root, "owner", "recipient", "to") != "" {
		return KindInstance, true
	}
	if !hasRef && field(body, root, "name", "title") != "" && field(body, root, "id", "slug") != "" {
		return KindDefinition, true
	}
	return "", false
}

// field returns the first non-empty string found under keys, looking in primary before fallback.
func field(primary, fallback gjson.Result, keys ...string) string {
	for _, r := range []gjson.Result{primary, fallback} {
		for _, k := range keys {
			if v := r.Get(k); v.Exists() && v.Type == gjson.String && v.Str != "" {
				return v.Str
			}
		}
	}
	return ""
}
