package fs

import (
	"context"
	"io"
	"strings"
	"testing"

	"gardencore/internal/blob/core"
)

func TestFilesystemStoreRoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	if store.Driver() != core.DriverFilesystem {
		t.Fatalf("driver = %q", store.Driver())
	}

	info, err := store.Put(ctx, "collectibles/1.json", strings.NewReader(`{"token_id":1}`), core.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"owner": "alice"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.ETag == "" || info.Size == 0 {
		t.Fatalf("put info: %+v", info)
	}
	if _, err := store.Put(ctx, "collectibles/1.json", strings.NewReader("x"), core.PutOptions{}); err == nil {
		t.Fatalf("overwriting an existing key must fail")
	}

	got, rc, err := store.Get(ctx, "collectibles/1.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(body) != `{"token_id":1}` {
		t.Fatalf("body %q", body)
	}
	if got.Metadata["owner"] != "alice" || got.ContentType != "application/json" {
		t.Fatalf("info %+v", got)
	}

	head, err := store.Head(ctx, "collectibles/1.json")
	if err != nil || head.ETag != info.ETag {
		t.Fatalf("head: %+v err=%v", head, err)
	}

	infos, err := store.List(ctx, "collectibles/")
	if err != nil || len(infos) != 1 {
		t.Fatalf("list: %+v err=%v", infos, err)
	}

	deleted, err := store.Delete(ctx, "collectibles/1.json")
	if err != nil || !deleted {
		t.Fatalf("delete: %v deleted=%v", err, deleted)
	}
	deleted, err = store.Delete(ctx, "collectibles/1.json")
	if err != nil || deleted {
		t.Fatalf("second delete: %v deleted=%v", err, deleted)
	}
}

func TestFilesystemStoreRejectsTraversal(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	for _, key := range []string{"", "  ", "../escape", "/abs", "a/../../b"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err == nil {
			t.Fatalf("key %q must be rejected", key)
		}
	}
}
