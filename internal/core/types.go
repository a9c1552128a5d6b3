package core

import "gardencore/pkg/domain"

type (
	EntityType         = domain.EntityType
	GrowthStage        = domain.GrowthStage
	DonationTier       = domain.DonationTier
	Severity           = domain.Severity
	Amount             = domain.Amount
	Plant              = domain.Plant
	Plot               = domain.Plot
	Event              = domain.Event
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RulesEngine        = domain.RulesEngine
	RuleViolationError = domain.RuleViolationError
	CollectibleLedger  = domain.CollectibleLedger
	RewardVault        = domain.RewardVault
)

const (
	EntityPlant = domain.EntityPlant
	EntityPlot  = domain.EntityPlot
)

const (
	StageSeed    = domain.StageSeed
	StageSprout  = domain.StageSprout
	StageGrowing = domain.StageGrowing
	StageAdult   = domain.StageAdult
)

const (
	TierSeedling = domain.TierSeedling
	TierGrower   = domain.TierGrower
	TierPatron   = domain.TierPatron
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
)
