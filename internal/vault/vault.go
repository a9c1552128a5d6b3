// Package vault exposes the shared reward pool as a payable escrow. The pool
// balance itself lives inside the persistent store so deposits and payouts
// commit atomically with the growth ledger.
package vault

import (
	"context"

	"gardencore/pkg/domain"
)

var _ domain.RewardVault = (*Vault)(nil)

// Vault wraps a persistent store's reward pool.
type Vault struct {
	store domain.PersistentStore
}

// New returns a vault backed by the given store.
func New(store domain.PersistentStore) *Vault {
	return &Vault{store: store}
}

// Deposit credits the reward pool in its own transaction and journals the
// funding party.
func (v *Vault) Deposit(ctx context.Context, funder string, amount domain.Amount) (domain.Result, error) {
	return v.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		tx.CreditPool(amount)
		tx.Record(domain.Event{Kind: domain.EventRewardDeposited, Owner: funder, Amount: amount})
		return nil
	})
}

// Payout debits the reward pool in favor of the recipient within the
// caller's transaction, so a failed payout aborts whatever triggered it.
// It fails when the pool cannot cover the amount.
func (v *Vault) Payout(tx domain.Transaction, to string, amount domain.Amount) error {
	if err := tx.DebitPool(amount); err != nil {
		return err
	}
	tx.Record(domain.Event{Kind: domain.EventRewardGranted, Owner: to, Amount: amount})
	return nil
}

// Balance reports the current pool balance.
func (v *Vault) Balance() domain.Amount {
	return v.store.PoolBalance()
}
