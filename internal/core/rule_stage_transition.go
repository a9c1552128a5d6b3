package core

import (
	"context"
	"fmt"

	"gardencore/pkg/domain"
)

// StageTransitionRule blocks illegal growth-state transitions on stored
// records: backward moves, skipped stages, mutation of consumed plants, and
// resurrection. The garden services never produce such changes; the rule is
// the store-level backstop for anything else writing through a transaction.
func StageTransitionRule() domain.Rule {
	return stageTransitionRule{}
}

type stageTransitionRule struct{}

type stageMachine struct {
	entity    domain.EntityType
	label     string
	extractor func(payload domain.ChangePayload) (id string, stage GrowthStage, consumed bool, ok bool)
}

var stageMachines = map[domain.EntityType]stageMachine{
	domain.EntityPlant: {
		entity: domain.EntityPlant,
		label:  "plant",
		extractor: func(payload domain.ChangePayload) (string, GrowthStage, bool, bool) {
			plant, ok := domain.DecodeChangePayload[Plant](payload)
			if !ok {
				return "", 0, false, false
			}
			return fmt.Sprintf("%d", plant.ID), plant.Stage, !plant.Exists, true
		},
	},
	domain.EntityPlot: {
		entity: domain.EntityPlot,
		label:  "plot",
		extractor: func(payload domain.ChangePayload) (string, GrowthStage, bool, bool) {
			plot, ok := domain.DecodeChangePayload[Plot](payload)
			if !ok {
				return "", 0, false, false
			}
			return plot.Owner, plot.Stage, false, true
		},
	},
}

func (stageTransitionRule) Name() string { return "stage_transition" }

func (stageTransitionRule) Evaluate(_ context.Context, _ domain.RuleView, changes []Change) (Result, error) {
	res := Result{}
	for _, change := range changes {
		machine, ok := stageMachines[change.Entity]
		if !ok {
			continue
		}

		afterID, afterStage, afterConsumed, ok := machine.extractor(change.After)
		if !ok {
			continue
		}
		if !afterStage.IsValid() {
			res.Violations = append(res.Violations, violation(machine, afterID,
				fmt.Sprintf("%s %s is set to invalid stage %d", machine.label, afterID, afterStage)))
			continue
		}

		if change.Action != domain.ActionUpdate {
			continue
		}
		beforeID, beforeStage, beforeConsumed, ok := machine.extractor(change.Before)
		if !ok {
			continue
		}
		switch {
		case beforeConsumed && !afterConsumed:
			res.Violations = append(res.Violations, violation(machine, beforeID,
				fmt.Sprintf("%s %s cannot be resurrected after terminal issuance", machine.label, beforeID)))
		case beforeConsumed:
			res.Violations = append(res.Violations, violation(machine, beforeID,
				fmt.Sprintf("%s %s is consumed and accepts no further mutation", machine.label, beforeID)))
		case afterStage < beforeStage:
			res.Violations = append(res.Violations, violation(machine, afterID,
				fmt.Sprintf("cannot move %s %s backward from %s to %s", machine.label, afterID, beforeStage, afterStage)))
		case afterStage > beforeStage+1:
			res.Violations = append(res.Violations, violation(machine, afterID,
				fmt.Sprintf("cannot advance %s %s from %s past %s in one step", machine.label, afterID, beforeStage, beforeStage+1)))
		}
	}
	return res, nil
}

func violation(machine stageMachine, id, message string) Violation {
	return Violation{
		Rule:     "stage_transition",
		Severity: domain.SeverityBlock,
		Message:  message,
		Entity:   machine.entity,
		EntityID: id,
	}
}
