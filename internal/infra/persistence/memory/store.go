// Package memory provides an in-memory implementation of the garden
// persistence store used for tests and ephemeral environments.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"gardencore/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Plant aliases domain.Plant for in-memory persistence operations.
	Plant = domain.Plant
	// Plot aliases domain.Plot.
	Plot = domain.Plot
	// Event aliases domain.Event journal entries.
	Event = domain.Event
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing a committed transaction.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
	// Amount aliases domain.Amount.
	Amount = domain.Amount
)

type memoryState struct {
	plants      map[uint64]Plant
	plots       map[string]Plot
	nextPlantID uint64
	treasury    Amount
	pool        Amount
	events      []Event
	eventSeq    uint64
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Plants      map[uint64]Plant `json:"plants"`
	Plots       map[string]Plot  `json:"plots"`
	NextPlantID uint64           `json:"next_plant_id"`
	Treasury    Amount           `json:"treasury"`
	Pool        Amount           `json:"pool"`
	Events      []Event          `json:"events"`
	EventSeq    uint64           `json:"event_seq"`
}

func newMemoryState() memoryState {
	return memoryState{
		plants:      make(map[uint64]Plant),
		plots:       make(map[string]Plot),
		nextPlantID: 1,
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.plants {
		cloned.plants[k] = v
	}
	for k, v := range s.plots {
		cloned.plots[k] = v
	}
	cloned.nextPlantID = s.nextPlantID
	cloned.treasury = s.treasury
	cloned.pool = s.pool
	cloned.events = append([]Event(nil), s.events...)
	cloned.eventSeq = s.eventSeq
	return cloned
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Plants:      make(map[uint64]Plant, len(state.plants)),
		Plots:       make(map[string]Plot, len(state.plots)),
		NextPlantID: state.nextPlantID,
		Treasury:    state.treasury,
		Pool:        state.pool,
		Events:      append([]Event(nil), state.events...),
		EventSeq:    state.eventSeq,
	}
	for k, v := range state.plants {
		s.Plants[k] = v
	}
	for k, v := range state.plots {
		s.Plots[k] = v
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Plants {
		state.plants[k] = v
	}
	for k, v := range s.Plots {
		state.plots[k] = v
	}
	if s.NextPlantID > 0 {
		state.nextPlantID = s.NextPlantID
	}
	state.treasury = s.Treasury
	state.pool = s.Pool
	state.events = append([]Event(nil), s.Events...)
	state.eventSeq = s.EventSeq
	return state
}

// migrateSnapshot normalizes snapshots written by earlier layouts: a zero
// id cursor is moved past the highest allocated plant id, and the event
// sequence past the last journal entry.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Plants == nil {
		snapshot.Plants = map[uint64]Plant{}
	}
	if snapshot.Plots == nil {
		snapshot.Plots = map[string]Plot{}
	}
	var maxID uint64
	for id := range snapshot.Plants {
		if id > maxID {
			maxID = id
		}
	}
	if snapshot.NextPlantID <= maxID {
		snapshot.NextPlantID = maxID + 1
	}
	for _, event := range snapshot.Events {
		if event.Seq > snapshot.EventSeq {
			snapshot.EventSeq = event.Seq
		}
	}
	return snapshot
}

// Store implements domain.PersistentStore backed by process memory.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the currently configured engine for integration points.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// SetNowFunc replaces the time provider. Tests use this to simulate
// elapsed dwell and neglect periods deterministically.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn == nil {
		fn = func() time.Time { return time.Now().UTC() }
	}
	s.nowFn = fn
}

// transaction represents a mutation set applied to the store state.
type transaction struct {
	state   *memoryState
	changes []Change
	pending []Event
	now     time.Time
}

var _ Transaction = (*transaction)(nil)

// transactionView exposes a read-only snapshot of the transactional state.
type transactionView struct {
	state *memoryState
}

var _ TransactionView = transactionView{}

// ListPlants returns all plants within the snapshot, ordered by id.
func (v transactionView) ListPlants() []Plant {
	out := make([]Plant, 0, len(v.state.plants))
	for _, p := range v.state.plants {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FindPlant retrieves a plant by id from the snapshot.
func (v transactionView) FindPlant(id uint64) (Plant, bool) {
	p, ok := v.state.plants[id]
	return p, ok
}

// ListPlots returns all plots, ordered by owner.
func (v transactionView) ListPlots() []Plot {
	out := make([]Plot, 0, len(v.state.plots))
	for _, p := range v.state.plots {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Owner < out[j].Owner })
	return out
}

// FindPlot retrieves the plot belonging to owner.
func (v transactionView) FindPlot(owner string) (Plot, bool) {
	p, ok := v.state.plots[owner]
	return p, ok
}

// TreasuryBalance returns the accumulated native-currency balance.
func (v transactionView) TreasuryBalance() Amount { return v.state.treasury }

// PoolBalance returns the shared reward pool balance.
func (v transactionView) PoolBalance() Amount { return v.state.pool }

// Snapshot returns a read-only view of the transactional state.
func (t *transaction) Snapshot() TransactionView {
	return transactionView{state: t.state}
}

// Now returns the transaction timestamp.
func (t *transaction) Now() time.Time { return t.now }

func (t *transaction) recordChange(entity domain.EntityType, action domain.Action, before, after any) {
	change := Change{Entity: entity, Action: action}
	if before != nil {
		if payload, err := domain.NewChangePayloadFromValue(before); err == nil {
			change.Before = payload
		}
	}
	if after != nil {
		if payload, err := domain.NewChangePayloadFromValue(after); err == nil {
			change.After = payload
		}
	}
	t.changes = append(t.changes, change)
}

// CreatePlant allocates the next sequential id and stores a new seed-stage
// plant with the initial water level.
func (t *transaction) CreatePlant(owner string, quantity uint64) (Plant, error) {
	if quantity == 0 {
		return Plant{}, domain.ErrInvalidQuantity
	}
	plant := Plant{
		ID:          t.state.nextPlantID,
		Owner:       owner,
		Stage:       domain.StageSeed,
		WaterLevel:  domain.InitialWaterLevel,
		Quantity:    quantity,
		PlantedAt:   t.now,
		LastStageAt: t.now,
		Exists:      true,
	}
	t.state.nextPlantID++
	t.state.plants[plant.ID] = plant
	t.recordChange(domain.EntityPlant, domain.ActionCreate, nil, plant)
	return plant, nil
}

// UpdatePlant mutates a plant in place.
func (t *transaction) UpdatePlant(id uint64, mutator func(*Plant) error) (Plant, error) {
	current, ok := t.state.plants[id]
	if !ok {
		return Plant{}, domain.NotFoundError{Entity: domain.EntityPlant, Key: formatID(id)}
	}
	updated := current
	if err := mutator(&updated); err != nil {
		return Plant{}, err
	}
	t.state.plants[id] = updated
	t.recordChange(domain.EntityPlant, domain.ActionUpdate, current, updated)
	return updated, nil
}

// FindPlant retrieves a plant by id.
func (t *transaction) FindPlant(id uint64) (Plant, bool) {
	p, ok := t.state.plants[id]
	return p, ok
}

// CreatePlot stores the owner-keyed plot record.
func (t *transaction) CreatePlot(plot Plot) (Plot, error) {
	if _, exists := t.state.plots[plot.Owner]; exists {
		return Plot{}, domain.ErrPlotExists
	}
	t.state.plots[plot.Owner] = plot
	t.recordChange(domain.EntityPlot, domain.ActionCreate, nil, plot)
	return plot, nil
}

// UpdatePlot mutates the plot belonging to owner.
func (t *transaction) UpdatePlot(owner string, mutator func(*Plot) error) (Plot, error) {
	current, ok := t.state.plots[owner]
	if !ok {
		return Plot{}, domain.NotFoundError{Entity: domain.EntityPlot, Key: owner}
	}
	updated := current
	if err := mutator(&updated); err != nil {
		return Plot{}, err
	}
	t.state.plots[owner] = updated
	t.recordChange(domain.EntityPlot, domain.ActionUpdate, current, updated)
	return updated, nil
}

// FindPlot retrieves the plot belonging to owner.
func (t *transaction) FindPlot(owner string) (Plot, bool) {
	p, ok := t.state.plots[owner]
	return p, ok
}

// CreditTreasury retains a received payment.
func (t *transaction) CreditTreasury(amount Amount) {
	t.state.treasury += amount
}

// DrainTreasury zeroes the treasury and returns the drained amount.
func (t *transaction) DrainTreasury() Amount {
	drained := t.state.treasury
	t.state.treasury = 0
	return drained
}

// CreditPool funds the shared reward pool.
func (t *transaction) CreditPool(amount Amount) {
	t.state.pool += amount
}

// DebitPool withdraws from the reward pool.
func (t *transaction) DebitPool(amount Amount) error {
	if t.state.pool < amount {
		return domain.InsufficientPoolError{Requested: amount, Available: t.state.pool}
	}
	t.state.pool -= amount
	return nil
}

// Record appends a domain event. Sequence numbers are assigned at commit.
func (t *transaction) Record(event Event) {
	if event.At.IsZero() {
		event.At = t.now
	}
	t.pending = append(t.pending, event)
}

// RunInTransaction executes fn within a transactional copy of the store state.
// A returned error or a blocking rule violation discards every mutation.
func (s *Store) RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := s.state.clone()
	tx := &transaction{state: &staged, now: s.nowFn()}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := transactionView{state: &staged}
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if result.HasBlocking() {
			return result, domain.RuleViolationError{Result: result}
		}
	}

	for _, event := range tx.pending {
		staged.eventSeq++
		event.Seq = staged.eventSeq
		staged.events = append(staged.events, event)
		result.Events = append(result.Events, event)
	}

	s.state = staged
	return result, nil
}

// View executes fn against a read-only snapshot of the current state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	staged := s.state.clone()
	s.mu.RUnlock()
	return fn(transactionView{state: &staged})
}

// GetPlant retrieves a plant by id.
func (s *Store) GetPlant(id uint64) (Plant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.plants[id]
	return p, ok
}

// ListPlants returns all plants ordered by id.
func (s *Store) ListPlants() []Plant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return transactionView{state: &s.state}.ListPlants()
}

// GetPlot retrieves the plot belonging to owner.
func (s *Store) GetPlot(owner string) (Plot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.plots[owner]
	return p, ok
}

// ListPlots returns all plots ordered by owner.
func (s *Store) ListPlots() []Plot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return transactionView{state: &s.state}.ListPlots()
}

// TreasuryBalance returns the accumulated native-currency balance.
func (s *Store) TreasuryBalance() Amount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.treasury
}

// PoolBalance returns the shared reward pool balance.
func (s *Store) PoolBalance() Amount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.pool
}

// Events returns journal entries with sequence numbers greater than afterSeq.
func (s *Store) Events(afterSeq uint64) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, 0, len(s.state.events))
	for _, event := range s.state.events {
		if event.Seq > afterSeq {
			out = append(out, event)
		}
	}
	return out
}

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
