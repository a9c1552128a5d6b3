package token

import (
	"context"
	"io"
	"strings"
	"testing"

	"gardencore/internal/blob"
	memblob "gardencore/internal/infra/blob/memory"
)

func TestLedgerMintAndQuery(t *testing.T) {
	ledger := NewLedger()
	ctx := context.Background()

	if err := ledger.Mint(ctx, 1, "alice"); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Mint(ctx, 1, "bob"); err == nil {
		t.Fatalf("duplicate mint must fail")
	}
	if err := ledger.Mint(ctx, 2, ""); err == nil {
		t.Fatalf("empty owner must fail")
	}
	if err := ledger.Mint(ctx, 2, "alice"); err != nil {
		t.Fatalf("mint 2: %v", err)
	}

	owner, ok := ledger.OwnerOf(1)
	if !ok || owner != "alice" {
		t.Fatalf("OwnerOf(1) = %q, %v", owner, ok)
	}
	if _, ok := ledger.OwnerOf(9); ok {
		t.Fatalf("unminted token should not resolve")
	}
	if got := ledger.BalanceOf("alice"); got != 2 {
		t.Fatalf("BalanceOf(alice) = %d, want 2", got)
	}
	if got := ledger.BalanceOf("bob"); got != 0 {
		t.Fatalf("BalanceOf(bob) = %d, want 0", got)
	}
	if got := ledger.TotalMinted(); got != 2 {
		t.Fatalf("TotalMinted = %d, want 2", got)
	}
}

func TestLedgerTokenURI(t *testing.T) {
	ledger := NewLedger()
	ctx := context.Background()
	if err := ledger.SetTokenURI(ctx, 1, "https://example.com/1"); err == nil {
		t.Fatalf("setting uri on unminted token must fail")
	}
	if err := ledger.Mint(ctx, 1, "alice"); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.SetTokenURI(ctx, 1, "https://example.com/1"); err != nil {
		t.Fatalf("set uri: %v", err)
	}
	uri, ok := ledger.TokenURI(1)
	if !ok || uri != "https://example.com/1" {
		t.Fatalf("TokenURI(1) = %q, %v", uri, ok)
	}
	if _, ok := ledger.TokenURI(2); ok {
		t.Fatalf("unminted token should have no uri")
	}
}

func TestLedgerPinsMetadata(t *testing.T) {
	blobs := memblob.New()
	ledger := NewLedger().WithBlobStore(blobs)
	ctx := context.Background()
	if err := ledger.Mint(ctx, 7, "alice"); err != nil {
		t.Fatalf("mint: %v", err)
	}
	info, rc, err := blobs.Get(ctx, "collectibles/7.json")
	if err != nil {
		t.Fatalf("pinned metadata missing: %v", err)
	}
	defer func() { _ = rc.Close() }()
	if info.ContentType != "application/json" {
		t.Fatalf("content type %q", info.ContentType)
	}
	body, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(body), "\"owner\": \"alice\"") {
		t.Fatalf("metadata body %q", body)
	}
}

func TestLedgerMintRevertsWhenPinFails(t *testing.T) {
	blobs := memblob.New()
	ctx := context.Background()
	// Occupy the metadata key so the pin collides.
	if _, err := blobs.Put(ctx, "collectibles/3.json", strings.NewReader("{}"), blob.PutOptions{}); err != nil {
		t.Fatalf("seed blob: %v", err)
	}
	ledger := NewLedger().WithBlobStore(blobs)
	if err := ledger.Mint(ctx, 3, "alice"); err == nil {
		t.Fatalf("expected pin failure")
	}
	if _, ok := ledger.OwnerOf(3); ok {
		t.Fatalf("failed mint must not record ownership")
	}
}
