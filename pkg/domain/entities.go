// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by gardencore.
package domain

import (
	"time"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityPlant identifies a plant record in the multi-plant garden.
	EntityPlant EntityType = "plant"
	// EntityPlot identifies the owner-keyed plot record of the single-plot garden.
	EntityPlot EntityType = "plot"
)

// GrowthStage represents the canonical plant growth states. Stages are
// ordered and only ever advance; StageAdult is terminal.
type GrowthStage uint8

// Canonical growth stages, in advancement order.
const (
	// StageSeed indicates a freshly planted seed.
	StageSeed GrowthStage = iota
	// StageSprout indicates the first visible growth.
	StageSprout
	// StageGrowing indicates active vegetative growth.
	StageGrowing
	// StageAdult indicates the terminal, fully grown stage.
	StageAdult
)

var stageNames = map[GrowthStage]string{
	StageSeed:    "seed",
	StageSprout:  "sprout",
	StageGrowing: "growing",
	StageAdult:   "adult",
}

// String returns the stage name, or "unknown" for out-of-range values.
func (s GrowthStage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// IsValid reports whether the stage is one of the canonical values.
func (s GrowthStage) IsValid() bool {
	_, ok := stageNames[s]
	return ok
}

// IsTerminal reports whether the stage admits no further advancement.
func (s GrowthStage) IsTerminal() bool {
	return s == StageAdult
}

// Next returns the following stage. ok is false at the terminal stage.
func (s GrowthStage) Next() (GrowthStage, bool) {
	if s.IsTerminal() || !s.IsValid() {
		return s, false
	}
	return s + 1, true
}

// DonationTier classifies a plant by the quantity pledged at planting time.
type DonationTier uint8

// Donation tiers derived from the immutable planting quantity.
const (
	// TierSeedling covers quantities below 5.
	TierSeedling DonationTier = 0
	// TierGrower covers quantities from 5 through 9.
	TierGrower DonationTier = 1
	// TierPatron covers quantities of 10 and above.
	TierPatron DonationTier = 2
)

// TierFor maps a planting quantity to its donation tier. It is a pure
// function of the quantity, so the tier stays answerable for a plant long
// after the record has been retired.
func TierFor(quantity uint64) DonationTier {
	switch {
	case quantity >= 10:
		return TierPatron
	case quantity >= 5:
		return TierGrower
	default:
		return TierSeedling
	}
}

// Growth timing and watering constants shared by both garden variants.
const (
	// StageDwell is the minimum time a plant must remain in a stage before
	// the next advance is accepted.
	StageDwell = 60 * time.Second
	// WaterIncrement is added to the water level per successful watering.
	WaterIncrement = 20
	// InitialWaterLevel is the water level assigned at planting.
	InitialWaterLevel = 100
	// PlotBloomWaterings is the count of successful waterings at which a
	// single-plot plant blooms and draws its reward from the vault.
	PlotBloomWaterings = 14
	// PlotNeglectWindow is the maximum gap between waterings before a
	// single-plot plant is considered dead.
	PlotNeglectWindow = 24 * time.Hour
)

// Plant is an individually tracked plant in the multi-plant garden.
// The ID is allocated sequentially starting at 1 and is never reused;
// Owner and Quantity are immutable after creation.
type Plant struct {
	ID          uint64      `json:"id"`
	Owner       string      `json:"owner"`
	Stage       GrowthStage `json:"stage"`
	WaterLevel  uint64      `json:"water_level"`
	Quantity    uint64      `json:"quantity"`
	PlantedAt   time.Time   `json:"planted_at"`
	LastStageAt time.Time   `json:"last_stage_at"`
	Exists      bool        `json:"exists"`
	IsDead      bool        `json:"is_dead"`
}

// Tier returns the donation tier derived from the planting quantity.
func (p Plant) Tier() DonationTier {
	return TierFor(p.Quantity)
}

// DwellElapsed reports whether the plant has sat in its current stage for
// at least the stage dwell period as of now.
func (p Plant) DwellElapsed(now time.Time) bool {
	return now.Sub(p.LastStageAt) >= StageDwell
}

// Plot is the owner-keyed plant of the single-plot garden. At most one live
// plot exists per owner. Death is neglect-driven: a plot whose last watering
// is older than PlotNeglectWindow rejects further progress.
type Plot struct {
	Owner         string      `json:"owner"`
	Name          string      `json:"name"`
	Stage         GrowthStage `json:"stage"`
	WaterLevel    uint64      `json:"water_level"`
	Waterings     uint64      `json:"waterings"`
	PlantedAt     time.Time   `json:"planted_at"`
	LastWateredAt time.Time   `json:"last_watered_at"`
	LastStageAt   time.Time   `json:"last_stage_at"`
	IsDead        bool        `json:"is_dead"`
	Rewarded      bool        `json:"rewarded"`
}

// Age returns the time elapsed since planting.
func (p Plot) Age(now time.Time) time.Duration {
	return now.Sub(p.PlantedAt)
}

// NeglectLapsed reports whether the plot has gone unwatered past the
// neglect window as of now.
func (p Plot) NeglectLapsed(now time.Time) bool {
	return now.Sub(p.LastWateredAt) > PlotNeglectWindow
}

// DwellElapsed reports whether the plot's current stage is old enough for
// the next advance.
func (p Plot) DwellElapsed(now time.Time) bool {
	return now.Sub(p.LastStageAt) >= StageDwell
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before ChangePayload
	After  ChangePayload
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported mutations captured in the audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates the outcome of a committed transaction: the ordered
// domain events it produced and any violations raised by the rules engine.
type Result struct {
	Events     []Event
	Violations []Violation
}

// Merge appends events and violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Events) > 0 {
		r.Events = append(r.Events, other.Events...)
	}
	if len(other.Violations) > 0 {
		r.Violations = append(r.Violations, other.Violations...)
	}
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
