package indexer

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"randomnft/core/events"
)

func setupIndexer(t *testing.T, source Source) *Indexer {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "index.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("sqlite open: %v", err)
	}
	fixed := time.Date(2024, 12, 1, 12, 0, 0, 0, time.UTC)
	idx, err := New(Config{DB: db, Source: source, Now: func() time.Time { return fixed }})
	if err != nil {
		t.Fatalf("new indexer: %v", err)
	}
	return idx
}

func waitForCursor(t *testing.T, idx *Indexer, want uint64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if idx.Cursor() >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("cursor stuck at %d, want %d", idx.Cursor(), want)
}

func TestIndexerProjectsLifecycle(t *testing.T) {
	log := events.NewLog()
	alice := [20]byte{0xaa}
	owner := [20]byte{0x01}
	log.Emit(events.AssetRequested{RequestID: 1, Requester: alice, Paid: big.NewInt(100)})
	log.Emit(events.AssetRequested{RequestID: 2, Requester: alice, Paid: big.NewInt(150)})

	idx := setupIndexer(t, log)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- idx.Run(ctx) }()

	waitForCursor(t, idx, 2)
	log.Emit(events.AssetMinted{AssetID: 0, RequestID: 1, Owner: alice, Category: 2, URI: "ipfs://bernard", MintedAt: 1_700_000_000})
	log.Emit(events.TreasuryWithdrawn{Owner: owner, Amount: big.NewInt(250)})
	waitForCursor(t, idx, 4)
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("run returned %v", err)
	}

	assets, err := idx.Assets(context.Background(), AssetFilter{})
	if err != nil {
		t.Fatalf("assets: %v", err)
	}
	if len(assets) != 1 || assets[0].RequestID != 1 || assets[0].Category != 2 || assets[0].URI != "ipfs://bernard" {
		t.Fatalf("unexpected assets %+v", assets)
	}
	if want := time.Unix(1_700_000_000, 0).UTC(); !assets[0].MintedAt.Equal(want) {
		t.Fatalf("minted at %s, want ledger time %s", assets[0].MintedAt, want)
	}
	pending, err := idx.PendingRequests(context.Background())
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != 2 || pending[0].Paid != "150" {
		t.Fatalf("unexpected pending %+v", pending)
	}
	var first RequestRow
	if err := idx.DB().First(&first, 1).Error; err != nil {
		t.Fatalf("load request: %v", err)
	}
	if !first.Fulfilled || first.AssetID == nil || *first.AssetID != 0 || first.FulfilledAt == nil {
		t.Fatalf("request not marked fulfilled: %+v", first)
	}
	if first.FulfilledAt.Unix() != 1_700_000_000 {
		t.Fatalf("fulfilled at %s", first.FulfilledAt)
	}
	var withdrawals []WithdrawalRow
	if err := idx.DB().Find(&withdrawals).Error; err != nil {
		t.Fatalf("withdrawals: %v", err)
	}
	if len(withdrawals) != 1 || withdrawals[0].Amount != "250" {
		t.Fatalf("unexpected withdrawals %+v", withdrawals)
	}
}

func TestIndexerSkipsReplayedRecords(t *testing.T) {
	idx := setupIndexer(t, nil)
	rec := events.Record{Sequence: 1, Type: events.TypeTreasuryWithdrawn, Attributes: map[string]string{"owner": "0x01", "amount": "5"}}
	for i := 0; i < 2; i++ {
		if err := idx.Apply(context.Background(), rec); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}
	var count int64
	idx.DB().Model(&WithdrawalRow{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected one withdrawal, got %d", count)
	}
	if err := idx.Run(context.Background()); err == nil {
		t.Fatalf("expected error without source")
	}
}

func TestIndexerCategoryCounts(t *testing.T) {
	idx := setupIndexer(t, nil)
	ctx := context.Background()
	for i, category := range []string{"0", "2", "2", "1", "2"} {
		rec := events.Record{
			Sequence: uint64(i + 1),
			Type:     events.TypeAssetMinted,
			Attributes: map[string]string{
				"assetId":   string(rune('0' + i)),
				"requestId": string(rune('1' + i)),
				"owner":     "0xaa",
				"category":  category,
				"uri":       "ipfs://x",
			},
		}
		if err := idx.Apply(ctx, rec); err != nil {
			t.Fatalf("apply %d: %v", i, err)
		}
	}
	counts, err := idx.CategoryCounts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	want := []CategoryCount{{0, 1}, {1, 1}, {2, 3}}
	if len(counts) != len(want) {
		t.Fatalf("unexpected counts %+v", counts)
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Fatalf("count %d: got %+v want %+v", i, counts[i], want[i])
		}
	}
	two := uint8(2)
	assets, err := idx.Assets(ctx, AssetFilter{Category: &two, Limit: 2})
	if err != nil {
		t.Fatalf("assets: %v", err)
	}
	if len(assets) != 2 || assets[0].ID != 1 {
		t.Fatalf("unexpected filtered assets %+v", assets)
	}
	bad := events.Record{Sequence: 10, Type: events.TypeAssetMinted, Attributes: map[string]string{"assetId": "x"}}
	if err := idx.Apply(ctx, bad); err == nil {
		t.Fatalf("expected malformed record error")
	}
}
