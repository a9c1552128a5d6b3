// Package core implements the growth and reward engine: fee-gated plant
// lifecycle management, time-gated stage advancement, tier classification,
// and terminal-state reward issuance against a transactional store.
package core

import (
	"context"
	"fmt"
	"strconv"

	"gardencore/pkg/domain"
)

// GardenService exposes the multi-plant garden operations. Every mutating
// call runs as one atomic transaction against the backing store: it either
// fully applies its field mutations and event emissions, or fully reverts.
type GardenService struct {
	store  domain.PersistentStore
	ledger domain.CollectibleLedger
	admin  string
	obs    observability
}

// NewGardenService constructs the multi-plant engine. The admin identity is
// the only caller permitted to drain the treasury. The stage transition
// rule is registered on the store's engine when the store exposes one.
func NewGardenService(store domain.PersistentStore, ledger domain.CollectibleLedger, admin string, opts ...Option) *GardenService {
	obs := defaultObservability()
	for _, opt := range opts {
		opt(&obs)
	}
	if engine := extractRulesEngine(store); engine != nil {
		engine.Register(StageTransitionRule())
	}
	return &GardenService{
		store:  store,
		ledger: ledger,
		admin:  admin,
		obs:    obs,
	}
}

// Store returns the underlying storage implementation.
func (s *GardenService) Store() domain.PersistentStore { return s.store }

// Admin returns the designated administrator identity.
func (s *GardenService) Admin() string { return s.admin }

// PlantSeed registers a new plant for owner against a proportional deposit.
// The full payment, including any overpayment, is retained by the treasury.
func (s *GardenService) PlantSeed(ctx context.Context, owner string, quantity uint64, payment Amount) (Plant, Result, error) {
	ctx, done := s.obs.instrument(ctx, "plant_seed")
	var planted Plant
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if quantity == 0 {
			return domain.ErrInvalidQuantity
		}
		required, err := domain.RequiredDeposit(domain.FeePlant, quantity)
		if err != nil {
			return err
		}
		if payment < required {
			return domain.InsufficientDepositError{Kind: domain.FeePlant, Required: required}
		}
		planted, err = tx.CreatePlant(owner, quantity)
		if err != nil {
			return err
		}
		tx.CreditTreasury(payment)
		tx.Record(Event{Kind: domain.EventPlantSeeded, Owner: owner, PlantID: planted.ID})
		return nil
	})
	done(err)
	return planted, res, err
}

// WaterPlant adds the watering increment to the plant's water level against
// a proportional deposit and returns the new level. Watering never gates
// stage advancement and stage advancement never gates watering.
func (s *GardenService) WaterPlant(ctx context.Context, caller string, id uint64, payment Amount) (uint64, Result, error) {
	ctx, done := s.obs.instrument(ctx, "water_plant")
	var level uint64
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		plant, ok := tx.FindPlant(id)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityPlant, Key: strconv.FormatUint(id, 10)}
		}
		if !plant.Exists {
			return domain.ErrAlreadyConsumed
		}
		if plant.Owner != caller {
			return domain.ErrNotOwner
		}
		required, err := domain.RequiredDeposit(domain.FeeWater, plant.Quantity)
		if err != nil {
			return err
		}
		if payment < required {
			return domain.InsufficientDepositError{Kind: domain.FeeWater, Required: required}
		}
		updated, err := tx.UpdatePlant(id, func(p *Plant) error {
			p.WaterLevel += domain.WaterIncrement
			return nil
		})
		if err != nil {
			return err
		}
		level = updated.WaterLevel
		tx.CreditTreasury(payment)
		tx.Record(Event{Kind: domain.EventPlantWatered, Owner: plant.Owner, PlantID: id, Level: level})
		return nil
	})
	done(err)
	return level, res, err
}

// advancePlant applies at most one stage step inside tx, regardless of how
// much dwell surplus has accumulated.
func advancePlant(tx domain.Transaction, id uint64) (Plant, error) {
	plant, ok := tx.FindPlant(id)
	if !ok {
		return Plant{}, domain.NotFoundError{Entity: domain.EntityPlant, Key: strconv.FormatUint(id, 10)}
	}
	if !plant.Exists {
		return Plant{}, domain.ErrAlreadyConsumed
	}
	if plant.Stage.IsTerminal() {
		return Plant{}, domain.ErrAlreadyMature
	}
	if !plant.DwellElapsed(tx.Now()) {
		return Plant{}, domain.ErrTooEarly
	}
	updated, err := tx.UpdatePlant(id, func(p *Plant) error {
		next, ok := p.Stage.Next()
		if !ok {
			return domain.ErrAlreadyMature
		}
		p.Stage = next
		p.LastStageAt = tx.Now()
		return nil
	})
	if err != nil {
		return Plant{}, err
	}
	tx.Record(Event{Kind: domain.EventStageAdvanced, Owner: updated.Owner, PlantID: id, Stage: updated.Stage})
	return updated, nil
}

// AdvanceStage moves the plant exactly one stage forward once the dwell
// period has elapsed.
func (s *GardenService) AdvanceStage(ctx context.Context, id uint64) (Plant, Result, error) {
	ctx, done := s.obs.instrument(ctx, "advance_stage")
	var advanced Plant
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		advanced, err = advancePlant(tx, id)
		return err
	})
	done(err)
	return advanced, res, err
}

// HarvestCollectible attempts a stage advance and, when the advance lands
// the plant on the terminal stage, performs terminal issuance exactly once:
// it emits the maturity event, mints the collectible on the external ledger
// with the canonical content URI, and retires the record. A failed mint
// aborts every state change. When the advance stops short of the terminal
// stage the call behaves exactly like AdvanceStage and must be repeated
// after the next dwell period.
func (s *GardenService) HarvestCollectible(ctx context.Context, id uint64, contentRef string) (Plant, Result, error) {
	ctx, done := s.obs.instrument(ctx, "harvest_collectible")
	var harvested Plant
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		advanced, err := advancePlant(tx, id)
		if err != nil {
			return err
		}
		harvested = advanced
		if !advanced.Stage.IsTerminal() {
			return nil
		}
		tier := advanced.Tier()
		harvested, err = tx.UpdatePlant(id, func(p *Plant) error {
			p.Exists = false
			return nil
		})
		if err != nil {
			return err
		}
		tx.Record(Event{Kind: domain.EventPlantMatured, Owner: advanced.Owner, PlantID: id, Tier: tier})
		if err := s.ledger.Mint(ctx, id, advanced.Owner); err != nil {
			return fmt.Errorf("mint collectible %d: %w", id, err)
		}
		if err := s.ledger.SetTokenURI(ctx, id, domain.ResolveContentURI(contentRef)); err != nil {
			return fmt.Errorf("set collectible uri %d: %w", id, err)
		}
		return nil
	})
	done(err)
	return harvested, res, err
}

// DonationLevel classifies the plant by its planting quantity. The tier
// stays answerable after terminal issuance because the quantity is
// immutable on the retired record.
func (s *GardenService) DonationLevel(ctx context.Context, id uint64) (DonationTier, error) {
	_, done := s.obs.instrument(ctx, "donation_level")
	plant, ok := s.store.GetPlant(id)
	if !ok {
		err := domain.NotFoundError{Entity: domain.EntityPlant, Key: strconv.FormatUint(id, 10)}
		done(err)
		return 0, err
	}
	done(nil)
	return plant.Tier(), nil
}

// GetPlant returns the stored plant record, retired records included.
func (s *GardenService) GetPlant(ctx context.Context, id uint64) (Plant, error) {
	_, done := s.obs.instrument(ctx, "get_plant")
	plant, ok := s.store.GetPlant(id)
	if !ok {
		err := domain.NotFoundError{Entity: domain.EntityPlant, Key: strconv.FormatUint(id, 10)}
		done(err)
		return Plant{}, err
	}
	done(nil)
	return plant, nil
}

// ListPlants returns all plant records ordered by id.
func (s *GardenService) ListPlants(ctx context.Context) []Plant {
	_, done := s.obs.instrument(ctx, "list_plants")
	plants := s.store.ListPlants()
	done(nil)
	return plants
}

// Withdraw drains the accumulated treasury balance to the administrator.
// Draining an empty treasury succeeds and transfers nothing.
func (s *GardenService) Withdraw(ctx context.Context, caller string) (Amount, Result, error) {
	ctx, done := s.obs.instrument(ctx, "withdraw")
	var drained Amount
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if caller != s.admin {
			return domain.ErrNotOwner
		}
		drained = tx.DrainTreasury()
		tx.Record(Event{Kind: domain.EventTreasuryWithdrawn, Owner: caller, Amount: drained})
		return nil
	})
	done(err)
	return drained, res, err
}

// TreasuryBalance reports the retained native-currency balance.
func (s *GardenService) TreasuryBalance() Amount {
	return s.store.TreasuryBalance()
}
