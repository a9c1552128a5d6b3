package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"gardencore/pkg/domain"
)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestStoreRunInTransactionAndSnapshots(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, ok := tx.FindPlant(1); ok {
			t.Fatalf("expected missing plant lookup")
		}
		created, err := tx.CreatePlant("alice", 5)
		if err != nil {
			return err
		}
		if created.ID != 1 {
			t.Fatalf("first plant id = %d, want 1", created.ID)
		}
		if created.Stage != domain.StageSeed {
			t.Fatalf("new plant stage = %v, want seed", created.Stage)
		}
		if created.WaterLevel != domain.InitialWaterLevel {
			t.Fatalf("new plant water = %d, want %d", created.WaterLevel, domain.InitialWaterLevel)
		}
		if !created.Exists {
			t.Fatalf("new plant should exist")
		}
		view := tx.Snapshot()
		if len(view.ListPlants()) != 1 {
			t.Fatalf("snapshot mismatch")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("run transaction: %v", err)
	}
	if len(store.ListPlants()) != 1 {
		t.Fatalf("expected persisted plant")
	}
	snapshot := store.ExportState()
	store.ImportState(Snapshot{})
	if len(store.ListPlants()) != 0 {
		t.Fatalf("expected cleared state")
	}
	store.ImportState(snapshot)
	if len(store.ListPlants()) != 1 {
		t.Fatalf("expected restored state")
	}
	if store.RulesEngine() == nil {
		t.Fatalf("expected rules engine")
	}
	if store.NowFunc() == nil {
		t.Fatalf("expected now func")
	}
}

func TestSequentialPlantIDsSurviveSnapshot(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			_, err := tx.CreatePlant("alice", 1)
			return err
		}); err != nil {
			t.Fatalf("plant %d: %v", i, err)
		}
	}
	snapshot := store.ExportState()
	// Drop the counter to simulate an old snapshot missing it.
	snapshot.NextPlantID = 0
	restored := NewStore(nil)
	restored.ImportState(snapshot)
	if _, err := restored.RunInTransaction(ctx, func(tx domain.Transaction) error {
		created, err := tx.CreatePlant("bob", 1)
		if err != nil {
			return err
		}
		if created.ID != 4 {
			t.Fatalf("allocated id %d, want 4", created.ID)
		}
		return nil
	}); err != nil {
		t.Fatalf("restored create: %v", err)
	}
}

func TestTransactionRollbackOnError(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	boom := errors.New("boom")
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.CreatePlant("alice", 2); err != nil {
			return err
		}
		tx.CreditTreasury(5000)
		tx.Record(domain.Event{Kind: domain.EventPlantSeeded, Owner: "alice"})
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if len(store.ListPlants()) != 0 {
		t.Fatalf("rolled back transaction left plants behind")
	}
	if store.TreasuryBalance() != 0 {
		t.Fatalf("rolled back transaction left treasury credit behind")
	}
	if len(store.Events(0)) != 0 {
		t.Fatalf("rolled back transaction left events behind")
	}
}

type blockEverything struct{}

func (blockEverything) Name() string { return "block-everything" }

func (blockEverything) Evaluate(ctx context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	if len(changes) == 0 {
		return domain.Result{}, nil
	}
	return domain.Result{Violations: []domain.Violation{{Rule: "block-everything", Severity: domain.SeverityBlock, Message: "no"}}}, nil
}

func TestBlockingRuleAbortsCommit(t *testing.T) {
	engine := domain.NewRulesEngine()
	engine.Register(blockEverything{})
	store := NewStore(engine)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.CreatePlant("alice", 1)
		return e
	})
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected rule violation error, got %v", err)
	}
	if len(store.ListPlants()) != 0 {
		t.Fatalf("blocked transaction must not commit")
	}
}

func TestEventSequenceAssignment(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		res, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			if _, err := tx.CreatePlant("alice", 1); err != nil {
				return err
			}
			tx.Record(domain.Event{Kind: domain.EventPlantSeeded, Owner: "alice"})
			return nil
		})
		if err != nil {
			t.Fatalf("tx %d: %v", i, err)
		}
		if len(res.Events) != 1 {
			t.Fatalf("tx %d returned %d events", i, len(res.Events))
		}
		if res.Events[0].Seq != uint64(i+1) {
			t.Fatalf("tx %d event seq = %d, want %d", i, res.Events[0].Seq, i+1)
		}
	}
	all := store.Events(0)
	if len(all) != 2 {
		t.Fatalf("journal holds %d events, want 2", len(all))
	}
	tail := store.Events(1)
	if len(tail) != 1 || tail[0].Seq != 2 {
		t.Fatalf("Events(1) = %+v, want single seq 2", tail)
	}
}

func TestPoolCreditAndDebit(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		tx.CreditPool(10_000)
		return tx.DebitPool(4000)
	}); err != nil {
		t.Fatalf("credit/debit: %v", err)
	}
	if store.PoolBalance() != 6000 {
		t.Fatalf("pool = %d, want 6000", uint64(store.PoolBalance()))
	}
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.DebitPool(7000)
	})
	var insufficient domain.InsufficientPoolError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected insufficient pool error, got %v", err)
	}
	if store.PoolBalance() != 6000 {
		t.Fatalf("failed debit should not change the pool")
	}
}

func TestTransactionClock(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewStore(nil)
	store.SetNowFunc(fixedClock(at))
	var planted domain.Plant
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if !tx.Now().Equal(at) {
			t.Fatalf("tx.Now() = %v, want %v", tx.Now(), at)
		}
		var err error
		planted, err = tx.CreatePlant("alice", 1)
		return err
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !planted.PlantedAt.Equal(at) || !planted.LastStageAt.Equal(at) {
		t.Fatalf("plant timestamps %v/%v, want %v", planted.PlantedAt, planted.LastStageAt, at)
	}
}

func TestPlotLifecycleInStore(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreatePlot(domain.Plot{Owner: "alice", Name: "fern"})
		return err
	}); err != nil {
		t.Fatalf("create plot: %v", err)
	}
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreatePlot(domain.Plot{Owner: "alice", Name: "rose"})
		return err
	})
	if !errors.Is(err, domain.ErrPlotExists) {
		t.Fatalf("duplicate plot: got %v", err)
	}
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.UpdatePlot("alice", func(p *domain.Plot) error {
			p.Waterings++
			return nil
		})
		return err
	}); err != nil {
		t.Fatalf("update plot: %v", err)
	}
	plot, ok := store.GetPlot("alice")
	if !ok || plot.Waterings != 1 {
		t.Fatalf("plot after update: %+v ok=%v", plot, ok)
	}
}
