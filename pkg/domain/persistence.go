package domain

import (
	"context"
	"time"
)

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. Every mutation either commits in full
// or leaves no observable effect.
type Transaction interface {
	Snapshot() TransactionView
	// Now returns the transaction timestamp. Every time comparison within
	// one atomic operation observes this single instant.
	Now() time.Time
	// CreatePlant allocates the next sequential id and stores a new plant
	// record at StageSeed with the initial water level.
	CreatePlant(owner string, quantity uint64) (Plant, error)
	// UpdatePlant mutates a plant in place. The mutator sees a copy; the
	// update is recorded only when it returns nil.
	UpdatePlant(id uint64, mutator func(*Plant) error) (Plant, error)
	FindPlant(id uint64) (Plant, bool)
	// CreatePlot stores the owner-keyed plot record.
	CreatePlot(plot Plot) (Plot, error)
	UpdatePlot(owner string, mutator func(*Plot) error) (Plot, error)
	FindPlot(owner string) (Plot, bool)
	// CreditTreasury retains a received payment in the treasury balance.
	CreditTreasury(amount Amount)
	// DrainTreasury zeroes the treasury and returns the drained amount.
	DrainTreasury() Amount
	// CreditPool funds the shared reward pool.
	CreditPool(amount Amount)
	// DebitPool withdraws from the reward pool; it fails when the pool
	// holds less than the requested amount.
	DebitPool(amount Amount) error
	// Record appends a domain event to the journal. The sequence number
	// and timestamp are assigned at commit.
	Record(event Event)
}

// TransactionView provides read-only access to snapshot data for rules
// and queries.
type TransactionView interface {
	ListPlants() []Plant
	FindPlant(id uint64) (Plant, bool)
	ListPlots() []Plot
	FindPlot(owner string) (Plot, bool)
	TreasuryBalance() Amount
	PoolBalance() Amount
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetPlant(id uint64) (Plant, bool)
	ListPlants() []Plant
	GetPlot(owner string) (Plot, bool)
	ListPlots() []Plot
	TreasuryBalance() Amount
	PoolBalance() Amount
	// Events returns journal entries with sequence numbers greater than
	// afterSeq, in order.
	Events(afterSeq uint64) []Event
}

// ContentGatewayPrefix is the canonical URI template prefix applied to
// caller-supplied content references at terminal issuance.
const ContentGatewayPrefix = "https://gateway.pinata.cloud/ipfs/"

// ResolveContentURI expands a content reference into its canonical URI.
func ResolveContentURI(contentRef string) string {
	return ContentGatewayPrefix + contentRef
}

// CollectibleLedger is the external token ledger the garden calls into at
// terminal issuance. The engine only triggers minting; transfer and
// approval semantics live entirely on the ledger side.
type CollectibleLedger interface {
	Mint(ctx context.Context, id uint64, owner string) error
	SetTokenURI(ctx context.Context, id uint64, uri string) error
	OwnerOf(id uint64) (string, bool)
	BalanceOf(owner string) int
	TokenURI(id uint64) (string, bool)
}

// RewardVault is the payable escrow backing single-plot bloom rewards.
// Deposits run their own transaction; payouts join the caller's transaction
// so a failed bloom aborts the watering that triggered it.
type RewardVault interface {
	Deposit(ctx context.Context, funder string, amount Amount) (Result, error)
	Payout(tx Transaction, to string, amount Amount) error
	Balance() Amount
}
