package horde

import (
	"encoding/json"
	"time"
)

// EventKind enum for journal event classification
type EventKind uint8

const (
	EventUnknown EventKind = iota
	EventWaveStart
	EventSpawn
	EventDamage
	EventKill
	EventRemoved
	EventTierChange
	EventCull
	EventReset

	eventKindCount
)

// EventVersion is the journal schema version.
const EventVersion uint8 = 1

// Event is one journal record.
type Event struct {
	Version   uint8           `json:"version"`
	Kind      EventKind       `json:"kind"`
	Timestamp int64           `json:"timestamp"` // Unix nano
	Sequence  uint64          `json:"sequence"`
	Tick      uint64          `json:"tick"`
	EntityID  EntityID        `json:"entityId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// String returns human-readable event kind
func (k EventKind) String() string {
	switch k {
	case EventWaveStart:
		return "wave_start"
	case EventSpawn:
		return "spawn"
	case EventDamage:
		return "damage"
	case EventKill:
		return "kill"
	case EventRemoved:
		return "removed"
	case EventTierChange:
		return "tier_change"
	case EventCull:
		return "cull"
	case EventReset:
		return "reset"
	default:
		return "unknown"
	}
}

// MarshalText writes the kind by name so JSONL lines are greppable.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// WaveStartPayload contains wave escalation details
type WaveStartPayload struct {
	Wave      int     `json:"wave"`
	BurstSize int     `json:"burstSize"`
	BaseSpeed float64 `json:"baseSpeed"`
}

// SpawnPayload contains spawn point details
type SpawnPayload struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// DamagePayload contains damage event details
type DamagePayload struct {
	Source string `json:"source"`
	Damage int    `json:"damage"`
	Health int    `json:"health"`
}

// KillPayload contains kill event details
type KillPayload struct {
	Exploded bool   `json:"exploded"`
	Kills    uint64 `json:"kills"`
}

// TierChangePayload contains tier transition details
type TierChangePayload struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	AverageFPS float64 `json:"averageFps"`
}

// CullPayload contains emergency cull details
type CullPayload struct {
	Removed   int `json:"removed"`
	Remaining int `json:"remaining"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload any) json.RawMessage {
	if payload == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event with the current timestamp
func NewEvent(kind EventKind, tick uint64, id EntityID, payload any) Event {
	return Event{
		Version:   EventVersion,
		Kind:      kind,
		Timestamp: time.Now().UnixNano(),
		Tick:      tick,
		EntityID:  id,
		Payload:   EncodePayload(payload),
	}
}
