package state

import (
	"bytes"
	"encoding/binary"
	"math/big"
	"testing"

	"randomnft/core/types"
	"randomnft/native/randomnft"
	"randomnft/storage"
)

func TestRandomNFTKeyFormats(t *testing.T) {
	reqKey := RandomNFTRequestKey(1)
	expected := binary.BigEndian.AppendUint64([]byte("randomnft/request/"), 1)
	if !bytes.Equal(reqKey, expected) {
		t.Fatalf("unexpected request key: %x", reqKey)
	}
	assetKey := RandomNFTAssetKey(258)
	expected = binary.BigEndian.AppendUint64([]byte("randomnft/asset/"), 258)
	if !bytes.Equal(assetKey, expected) {
		t.Fatalf("unexpected asset key: %x", assetKey)
	}
	if bytes.Compare(RandomNFTRequestKey(2), RandomNFTRequestKey(256)) >= 0 {
		t.Fatalf("request keys must sort by id")
	}
}

func TestKVStagesUntilCommit(t *testing.T) {
	db := storage.NewMemDB()
	mgr := NewManager(db)

	if err := mgr.KVPut([]byte("answer"), uint64(42)); err != nil {
		t.Fatalf("put: %v", err)
	}
	var got uint64
	ok, err := mgr.KVGet([]byte("answer"), &got)
	if err != nil || !ok || got != 42 {
		t.Fatalf("staged read: ok=%v got=%d err=%v", ok, got, err)
	}
	if len(db.Keys()) != 0 {
		t.Fatalf("write reached database before commit: %v", db.Keys())
	}
	if mgr.Dirty() != 1 {
		t.Fatalf("expected one dirty key, got %d", mgr.Dirty())
	}

	if err := mgr.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if mgr.Dirty() != 0 {
		t.Fatalf("dirty keys after commit: %d", mgr.Dirty())
	}
	fresh := NewManager(db)
	got = 0
	ok, err = fresh.KVGet([]byte("answer"), &got)
	if err != nil || !ok || got != 42 {
		t.Fatalf("committed read: ok=%v got=%d err=%v", ok, got, err)
	}
}

func TestKVDiscardDropsStagedWrites(t *testing.T) {
	db := storage.NewMemDB()
	mgr := NewManager(db)
	if err := mgr.KVPut([]byte("k"), uint64(1)); err != nil {
		t.Fatalf("put: %v", err)
	}
	mgr.Discard()
	ok, err := mgr.KVGet([]byte("k"), new(uint64))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatalf("discarded write still visible")
	}
	if len(db.Keys()) != 0 {
		t.Fatalf("discarded write reached database")
	}
}

func TestKVRejectsEmptyKey(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	if err := mgr.KVPut(nil, uint64(1)); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if _, err := mgr.KVGet(nil, nil); err == nil {
		t.Fatalf("expected error for empty key")
	}
}

func TestAccountDefaultsToZeroBalance(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	addr := [20]byte{0xaa}
	account, err := mgr.GetAccount(addr)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if account.Balance == nil || account.Balance.Sign() != 0 {
		t.Fatalf("expected zero balance, got %v", account.Balance)
	}
	if err := mgr.PutAccount(addr, &types.Account{Nonce: 2, Balance: big.NewInt(77)}); err != nil {
		t.Fatalf("put account: %v", err)
	}
	account, err = mgr.GetAccount(addr)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if account.Nonce != 2 || account.Balance.Int64() != 77 {
		t.Fatalf("unexpected account: %+v", account)
	}
}

func TestRandomNFTRecordsRoundTrip(t *testing.T) {
	db := storage.NewMemDB()
	mgr := NewManager(db)

	counters, err := mgr.RandomNFTCounters()
	if err != nil {
		t.Fatalf("counters: %v", err)
	}
	if counters != nil {
		t.Fatalf("expected no counters before first write")
	}

	req := &randomnft.Request{ID: 1, Requester: [20]byte{0x01}, Paid: big.NewInt(10), RequestedAt: 5}
	asset := &randomnft.Asset{ID: 0, Owner: [20]byte{0x01}, Category: 2, URI: "ipfs://x", RequestID: 1, MintedAt: 6}
	if err := mgr.RandomNFTRequestPut(req); err != nil {
		t.Fatalf("put request: %v", err)
	}
	if err := mgr.RandomNFTAssetPut(asset); err != nil {
		t.Fatalf("put asset: %v", err)
	}
	if err := mgr.RandomNFTCountersPut(&randomnft.Counters{Requests: 1, Assets: 1, Treasury: big.NewInt(10)}); err != nil {
		t.Fatalf("put counters: %v", err)
	}
	if err := mgr.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	reopened := NewManager(db)
	gotReq, ok, err := reopened.RandomNFTRequestGet(1)
	if err != nil || !ok {
		t.Fatalf("get request: ok=%v err=%v", ok, err)
	}
	if gotReq.Requester != req.Requester || gotReq.Paid.Cmp(req.Paid) != 0 || gotReq.RequestedAt != 5 {
		t.Fatalf("unexpected request: %+v", gotReq)
	}
	gotAsset, ok, err := reopened.RandomNFTAssetGet(0)
	if err != nil || !ok {
		t.Fatalf("get asset: ok=%v err=%v", ok, err)
	}
	if *gotAsset != *asset {
		t.Fatalf("unexpected asset: %+v", gotAsset)
	}
	if _, ok, err := reopened.RandomNFTRequestGet(2); err != nil || ok {
		t.Fatalf("expected missing request, ok=%v err=%v", ok, err)
	}
	gotCounters, err := reopened.RandomNFTCounters()
	if err != nil {
		t.Fatalf("counters: %v", err)
	}
	if gotCounters.Requests != 1 || gotCounters.Assets != 1 || gotCounters.Treasury.Int64() != 10 {
		t.Fatalf("unexpected counters: %+v", gotCounters)
	}
}
