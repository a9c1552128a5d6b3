package domain

import "time"

// EventKind identifies a domain event emitted by a state-changing call.
type EventKind string

// Domain event kinds, one per observable state transition.
const (
	// EventPlantSeeded is emitted when a plant or plot is created.
	EventPlantSeeded EventKind = "plant_seeded"
	// EventPlantWatered is emitted after a successful watering.
	EventPlantWatered EventKind = "plant_watered"
	// EventStageAdvanced is emitted after a successful stage advance.
	EventStageAdvanced EventKind = "stage_advanced"
	// EventPlantMatured is emitted exactly once, when terminal issuance
	// consumes a plant of the multi-plant garden.
	EventPlantMatured EventKind = "plant_matured"
	// EventRewardGranted is emitted when a blooming plot draws its reward.
	EventRewardGranted EventKind = "reward_granted"
	// EventRewardDeposited is emitted when the administrator funds the vault.
	EventRewardDeposited EventKind = "reward_deposited"
	// EventTreasuryWithdrawn is emitted when the administrator drains the treasury.
	EventTreasuryWithdrawn EventKind = "treasury_withdrawn"
)

// Event is one entry of the append-only journal. Events replace the log
// polling of the reference system: every operation returns the events it
// produced, and the store retains the full sequence for replay.
// Fields not meaningful for a given kind are zero.
type Event struct {
	Seq     uint64       `json:"seq"`
	Kind    EventKind    `json:"kind"`
	At      time.Time    `json:"at"`
	Owner   string       `json:"owner,omitempty"`
	PlantID uint64       `json:"plant_id,omitempty"`
	Stage   GrowthStage  `json:"stage,omitempty"`
	Tier    DonationTier `json:"tier,omitempty"`
	Level   uint64       `json:"level,omitempty"`
	Amount  Amount       `json:"amount,omitempty"`
}
