package core

import (
	"context"
	"time"

	"gardencore/pkg/domain"
)

// PlotService exposes the single-plot garden: one owner holds at most one
// plant at a time, progress is driven by watering, neglect kills, and the
// bloom reward is drawn from the shared pool instead of minting a
// collectible.
type PlotService struct {
	store domain.PersistentStore
	vault domain.RewardVault
	admin string
	nowFn func() time.Time
	obs   observability
}

// NewPlotService constructs the single-plot engine. Bloom rewards are paid
// through the vault; the admin identity is the only caller permitted to
// fund it.
func NewPlotService(store domain.PersistentStore, vault domain.RewardVault, admin string, opts ...Option) *PlotService {
	obs := defaultObservability()
	for _, opt := range opts {
		opt(&obs)
	}
	return &PlotService{
		store: store,
		vault: vault,
		admin: admin,
		nowFn: selectNowFunc(store, obs.clock),
		obs:   obs,
	}
}

// Store returns the underlying storage implementation.
func (s *PlotService) Store() domain.PersistentStore { return s.store }

// AddPlant claims the caller's plot against the flat deposit. A caller
// already holding a plot is rejected; there is no replacement or reset
// path, dead or bloomed plots included.
func (s *PlotService) AddPlant(ctx context.Context, owner, name string, payment Amount) (Plot, Result, error) {
	ctx, done := s.obs.instrument(ctx, "add_plant")
	var created Plot
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, exists := tx.FindPlot(owner); exists {
			return domain.ErrPlotExists
		}
		if payment < domain.PlotSeedFee {
			return domain.InsufficientDepositError{Kind: domain.FeePlot, Required: domain.PlotSeedFee}
		}
		now := tx.Now()
		var err error
		created, err = tx.CreatePlot(Plot{
			Owner:         owner,
			Name:          name,
			Stage:         domain.StageSeed,
			PlantedAt:     now,
			LastWateredAt: now,
			LastStageAt:   now,
		})
		if err != nil {
			return err
		}
		tx.CreditTreasury(payment)
		tx.Record(Event{Kind: domain.EventPlantSeeded, Owner: owner})
		return nil
	})
	done(err)
	return created, res, err
}

// Water waters the caller's plot. Death is derived from the neglect clock
// at call time: a plot unwatered past the neglect window rejects progress
// with no state change. A live plot gains the watering increment, advances
// one stage when its dwell has elapsed, and on the bloom watering draws the
// reward from the pool exactly once. The plot is not consumed by blooming.
func (s *PlotService) Water(ctx context.Context, owner string, payment Amount) (Plot, Result, error) {
	ctx, done := s.obs.instrument(ctx, "water_plot")
	var watered Plot
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		plot, ok := tx.FindPlot(owner)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityPlot, Key: owner}
		}
		now := tx.Now()
		if plot.IsDead || plot.NeglectLapsed(now) {
			return domain.ErrPlantDead
		}
		if payment < domain.PlotSeedFee {
			return domain.InsufficientDepositError{Kind: domain.FeePlot, Required: domain.PlotSeedFee}
		}
		var advanced, bloomed bool
		updated, err := tx.UpdatePlot(owner, func(p *Plot) error {
			p.WaterLevel += domain.WaterIncrement
			p.Waterings++
			p.LastWateredAt = now
			if !p.Stage.IsTerminal() && p.DwellElapsed(now) {
				next, _ := p.Stage.Next()
				p.Stage = next
				p.LastStageAt = now
				advanced = true
			}
			if p.Waterings >= domain.PlotBloomWaterings && !p.Rewarded {
				p.Rewarded = true
				bloomed = true
			}
			return nil
		})
		if err != nil {
			return err
		}
		watered = updated
		tx.CreditTreasury(payment)
		tx.Record(Event{Kind: domain.EventPlantWatered, Owner: owner, Level: watered.WaterLevel})
		if advanced {
			tx.Record(Event{Kind: domain.EventStageAdvanced, Owner: owner, Stage: watered.Stage})
		}
		if bloomed {
			if err := s.vault.Payout(tx, owner, domain.PlotBloomReward); err != nil {
				return err
			}
		}
		return nil
	})
	done(err)
	return watered, res, err
}

// DepositReward funds the shared reward pool through the vault.
// Administrator only.
func (s *PlotService) DepositReward(ctx context.Context, caller string, amount Amount) (Result, error) {
	ctx, done := s.obs.instrument(ctx, "deposit_reward")
	if caller != s.admin {
		done(domain.ErrNotOwner)
		return Result{}, domain.ErrNotOwner
	}
	res, err := s.vault.Deposit(ctx, caller, amount)
	done(err)
	return res, err
}

// Age returns the time elapsed since the caller's plot was planted.
func (s *PlotService) Age(ctx context.Context, owner string) (time.Duration, error) {
	_, done := s.obs.instrument(ctx, "plot_age")
	plot, ok := s.store.GetPlot(owner)
	if !ok {
		err := domain.NotFoundError{Entity: domain.EntityPlot, Key: owner}
		done(err)
		return 0, err
	}
	done(nil)
	return plot.Age(s.nowFn()), nil
}

// IsDead reports whether the caller's plot has lapsed past the neglect
// window. The check is derived from the clock and performs no mutation.
func (s *PlotService) IsDead(ctx context.Context, owner string) (bool, error) {
	_, done := s.obs.instrument(ctx, "plot_is_dead")
	plot, ok := s.store.GetPlot(owner)
	if !ok {
		err := domain.NotFoundError{Entity: domain.EntityPlot, Key: owner}
		done(err)
		return false, err
	}
	done(nil)
	return plot.IsDead || plot.NeglectLapsed(s.nowFn()), nil
}

// GetPlot returns the caller's plot with the derived dead flag populated.
func (s *PlotService) GetPlot(ctx context.Context, owner string) (Plot, error) {
	_, done := s.obs.instrument(ctx, "get_plot")
	plot, ok := s.store.GetPlot(owner)
	if !ok {
		err := domain.NotFoundError{Entity: domain.EntityPlot, Key: owner}
		done(err)
		return Plot{}, err
	}
	done(nil)
	if plot.NeglectLapsed(s.nowFn()) {
		plot.IsDead = true
	}
	return plot, nil
}

// PoolBalance reports the shared reward pool balance.
func (s *PlotService) PoolBalance() Amount {
	return s.vault.Balance()
}
