package webhooks

import (
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"randomnft/core/events"
)

func TestDispatcherSignsMintedPayload(t *testing.T) {
	var (
		mu        sync.Mutex
		signature string
		event     string
		body      []byte
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		mu.Lock()
		body = data
		signature = r.Header.Get(SignatureHeader)
		event = r.Header.Get(EventHeader)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	secret := []byte("secret")
	dispatcher, err := NewDispatcher(server.URL, secret)
	if err != nil {
		t.Fatalf("dispatcher: %v", err)
	}
	defer dispatcher.Close()

	dispatcher.Emit(events.AssetMinted{AssetID: 4, RequestID: 5, Owner: [20]byte{0xaa}, Category: 1, URI: "ipfs://shiba", MintedAt: 1_700_000_000})
	dispatcher.Emit(events.AssetRequested{RequestID: 6})

	waitFor(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return signature != ""
	}, time.Second)
	mu.Lock()
	defer mu.Unlock()
	if signature == "" {
		t.Fatalf("expected signature header")
	}
	if !Verify(secret, body, signature) {
		t.Fatalf("signature does not verify")
	}
	if event != string(EventAssetMinted) {
		t.Fatalf("unexpected event header %q", event)
	}
	var payload MintedPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.AssetID != 4 || payload.RequestID != 5 || payload.URI != "ipfs://shiba" || payload.DeliveryID == "" {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if payload.OccurredAt.Unix() != 1_700_000_000 {
		t.Fatalf("occurredAt %s does not carry the mint time", payload.OccurredAt)
	}
}

func TestDispatcherRetries(t *testing.T) {
	attempts := int32(0)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	dispatcher, err := NewDispatcher(server.URL, []byte("secret"), WithRetryPolicy(5, time.Millisecond*10, time.Millisecond*20))
	if err != nil {
		t.Fatalf("dispatcher: %v", err)
	}
	defer dispatcher.Close()
	dispatcher.Emit(events.TreasuryWithdrawn{Owner: [20]byte{0x01}, Amount: big.NewInt(300)})
	waitFor(func() bool { return atomic.LoadInt32(&attempts) >= 3 }, time.Second)
	if atomic.LoadInt32(&attempts) < 3 {
		t.Fatalf("expected retries, got %d", atomic.LoadInt32(&attempts))
	}
}

func TestDispatcherValidation(t *testing.T) {
	if _, err := NewDispatcher(" ", []byte("s")); err == nil {
		t.Fatalf("expected endpoint error")
	}
	if _, err := NewDispatcher("http://localhost", nil); err == nil {
		t.Fatalf("expected secret error")
	}
	if Verify([]byte("a"), []byte("body"), Sign([]byte("b"), []byte("body"))) {
		t.Fatalf("foreign secret verified")
	}
}

func waitFor(cond func() bool, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond * 10)
	}
}
