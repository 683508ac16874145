package recognition

import (
	"strings"

	"trustmesh/state/signals"
)

const (
	signalType = "recognition_mint"
	metaTag    = "hcs_recognition"
)

var idReplacer = strings.NewReplacer(":", "_", "/", "_")

// SignalID is derived from the message handle alone, so a message seen twice maps to one signal.
func SignalID(inst Instance) string {
	return "recognition_" + idReplacer.Replace(inst.HRL)
}

// BuildSignal denormalizes def into the signal for inst.
func BuildSignal(inst Instance, def Definition) signals.Signal {
	from := inst.Issuer
	if from == "" {
		from = "system"
	}
	return signals.Signal{
		ID:        SignalID(inst),
		Class:     signals.ClassRecognition,
		TopicType: "SIGNAL",
		Direction: "inbound",
		Actors: signals.Actors{
			From: from,
			To:   inst.Owner,
		},
		Payload: signals.Payload{
			DefinitionID:   def.ID,
			DefinitionSlug: def.Slug,
			DefinitionName: def.Name,
			DefinitionIcon: def.Icon,
			Note:           inst.Note,
			Owner:          inst.Owner,
			Issuer:         inst.Issuer,
		},
		Ts:     inst.Timestamp.UnixMilli(),
		Status: signals.StatusOnchain,
		Type:   signalType,
		Meta: signals.Meta{
			Tag: metaTag,
			HRL: inst.HRL,
		},
	}
}
