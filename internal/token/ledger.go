// Package token provides the collectible ledger the growth engine mints
// into when a plant reaches its terminal stage.
package token

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"sync"

	"gardencore/internal/blob"
	"gardencore/pkg/domain"
)

var _ domain.CollectibleLedger = (*Ledger)(nil)

// Ledger is an in-process collectible registry. Token ids mirror plant ids,
// so a mint for an id that already exists is a hard failure rather than an
// overwrite. When a blob store is attached, each minted token pins a small
// metadata document describing the collectible.
type Ledger struct {
	mu     sync.RWMutex
	owners map[uint64]string
	uris   map[uint64]string
	blobs  blob.Store
}

// NewLedger constructs an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		owners: make(map[uint64]string),
		uris:   make(map[uint64]string),
	}
}

// WithBlobStore attaches a blob store used to pin token metadata at mint time.
func (l *Ledger) WithBlobStore(store blob.Store) *Ledger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.blobs = store
	return l
}

// Mint records ownership of a new token. Minting an existing id fails.
func (l *Ledger) Mint(ctx context.Context, id uint64, owner string) error {
	if owner == "" {
		return fmt.Errorf("token %d: owner required", id)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.owners[id]; ok {
		return fmt.Errorf("token %d already minted to %s", id, existing)
	}
	l.owners[id] = owner
	if l.blobs != nil {
		doc := fmt.Sprintf("{\n  \"token_id\": %d,\n  \"owner\": %q\n}\n", id, owner)
		key := "collectibles/" + strconv.FormatUint(id, 10) + ".json"
		if _, err := l.blobs.Put(ctx, key, bytes.NewReader([]byte(doc)), blob.PutOptions{ContentType: "application/json"}); err != nil {
			delete(l.owners, id)
			return fmt.Errorf("pin token %d metadata: %w", id, err)
		}
	}
	return nil
}

// SetTokenURI associates a content URI with a minted token.
func (l *Ledger) SetTokenURI(ctx context.Context, id uint64, uri string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.owners[id]; !ok {
		return fmt.Errorf("token %d not minted", id)
	}
	l.uris[id] = uri
	return nil
}

// OwnerOf reports the owner of a token, if minted.
func (l *Ledger) OwnerOf(id uint64) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	owner, ok := l.owners[id]
	return owner, ok
}

// BalanceOf counts the tokens held by owner.
func (l *Ledger) BalanceOf(owner string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	count := 0
	for _, o := range l.owners {
		if o == owner {
			count++
		}
	}
	return count
}

// TokenURI reports the content URI recorded for a token.
func (l *Ledger) TokenURI(id uint64) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	uri, ok := l.uris[id]
	return uri, ok
}

// TotalMinted reports how many tokens the ledger holds.
func (l *Ledger) TotalMinted() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.owners)
}
