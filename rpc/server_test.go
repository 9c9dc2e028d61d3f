package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"randomnft/core/events"
	"randomnft/core/state"
	"randomnft/crypto"
	"randomnft/native/randomnft"
	"randomnft/oracle"
	"randomnft/rpc/middleware"
	"randomnft/storage"
)

var (
	testOwner = [20]byte{0x0a}
	testAlice = [20]byte{0xa1}
	authCfg   = middleware.AuthConfig{HMACSecret: []byte("test-secret"), Issuer: "randomnft", Audience: "randomnft-api"}
)

type harness struct {
	server *httptest.Server
	engine *randomnft.Engine
	mock   *oracle.MockCoordinator
	key    *crypto.PrivateKey
	log    *events.Log
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	mock := oracle.NewMockCoordinator(key)
	sub := mock.CreateSubscription()
	require.NoError(t, mock.FundSubscription(sub, big.NewInt(1_000_000_000_000_000_000)))
	require.NoError(t, mock.AddConsumer(sub, randomnft.ConsumerAddress))

	engine, err := randomnft.NewEngine(randomnft.Params{
		MintFee:     big.NewInt(100),
		Owner:       testOwner,
		Coordinator: mock.Address(),
		Boundaries:  []uint64{10, 30, 100},
		TokenURIs:   []string{"ipfs://pug", "ipfs://shiba", "ipfs://bernard"},
	})
	require.NoError(t, err)
	log := events.NewLog()
	engine.SetState(state.NewManager(storage.NewMemDB()))
	engine.SetEmitter(log)
	engine.SetCoordinator(mock, randomnft.OracleSettings{Consumer: randomnft.ConsumerAddress, SubscriptionID: sub})
	consumer := randomnft.NewOracleConsumer(engine, nil, nil)
	mock.SetConsumer(consumer)

	srv, err := New(Config{
		Ledger:   engine,
		Consumer: consumer,
		Events:   log,
		Auth:     middleware.NewAuthenticator(authCfg, nil),
		Faucet:   big.NewInt(1_000),
	})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &harness{server: ts, engine: engine, mock: mock, key: key, log: log}
}

func (h *harness) do(t *testing.T, method, path string, caller *[20]byte, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, h.server.URL+path, reader)
	require.NoError(t, err)
	if caller != nil {
		token, err := middleware.IssueToken(authCfg, *caller, time.Minute)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestMintLifecycleOverHTTP(t *testing.T) {
	h := newHarness(t)
	alice := testAlice

	resp, body := h.do(t, http.MethodGet, "/v1/mint-fee", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "100", body["amount"])

	resp, _ = h.do(t, http.MethodPost, "/v1/faucet", &alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = h.do(t, http.MethodPost, "/v1/requests", &alice, map[string]string{"value": "99"})
	require.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	require.Equal(t, "insufficient_fee", body["code"])

	resp, body = h.do(t, http.MethodPost, "/v1/requests", &alice, map[string]string{"value": "150"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Equal(t, "1", body["requestId"])

	resp, body = h.do(t, http.MethodGet, "/v1/requests/1/owner", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, crypto.FormatAddress(alice), body["owner"])

	require.NoError(t, h.mock.FulfillWithWords(context.Background(), 1, []*uint256.Int{uint256.NewInt(22)}))

	resp, body = h.do(t, http.MethodGet, "/v1/assets/0", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 1, body["category"])
	require.Equal(t, "ipfs://shiba", body["uri"])

	resp, body = h.do(t, http.MethodGet, "/v1/counters", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 1, body["requests"])
	require.EqualValues(t, 1, body["assets"])

	resp, body = h.do(t, http.MethodGet, "/v1/treasury", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "150", body["amount"])

	resp, body = h.do(t, http.MethodPost, "/v1/withdraw", &alice, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "unauthorized", body["code"])

	owner := testOwner
	resp, body = h.do(t, http.MethodPost, "/v1/withdraw", &owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "150", body["amount"])

	resp, body = h.do(t, http.MethodGet, "/v1/accounts/"+crypto.FormatAddress(owner)+"/balance", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "150", body["amount"])
}

func TestFulfillEndpoint(t *testing.T) {
	h := newHarness(t)
	alice := testAlice
	require.NoError(t, h.engine.Credit(alice, big.NewInt(1_000)))
	id, err := h.engine.RequestAsset(context.Background(), alice, big.NewInt(100))
	require.NoError(t, err)

	imposter, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	forged := oracle.Fulfillment{RequestID: id, Words: []*uint256.Int{uint256.NewInt(5)}}
	require.NoError(t, forged.Sign(imposter))
	resp, body := h.do(t, http.MethodPost, "/v1/oracle/fulfill", nil, forged)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "only_coordinator", body["code"])

	genuine := oracle.Fulfillment{RequestID: id, Words: []*uint256.Int{uint256.NewInt(5)}}
	require.NoError(t, genuine.Sign(h.key))
	resp, body = h.do(t, http.MethodPost, "/v1/oracle/fulfill", nil, genuine)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["fulfilled"])
	require.EqualValues(t, 0, body["assetId"])

	resp, body = h.do(t, http.MethodPost, "/v1/oracle/fulfill", nil, genuine)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "unknown_or_fulfilled_request", body["code"])

	unsigned := oracle.Fulfillment{RequestID: id, Words: []*uint256.Int{uint256.NewInt(5)}}
	resp, body = h.do(t, http.MethodPost, "/v1/oracle/fulfill", nil, unsigned)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_signature", body["code"])
}

func TestQueryEndpoints(t *testing.T) {
	h := newHarness(t)

	resp, body := h.do(t, http.MethodGet, "/v1/categories/1", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 30, body["boundary"])
	require.Equal(t, "ipfs://shiba", body["uri"])

	resp, body = h.do(t, http.MethodGet, "/v1/categories/3", nil, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "range_out_of_bounds", body["code"])

	resp, body = h.do(t, http.MethodGet, "/v1/select/88", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 2, body["category"])

	resp, body = h.do(t, http.MethodGet, "/v1/select/200", nil, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "range_out_of_bounds", body["code"])

	resp, body = h.do(t, http.MethodGet, "/v1/requests/9", nil, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "not_found", body["code"])

	resp, _ = h.do(t, http.MethodGet, "/v1/requests/abc", nil, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = h.do(t, http.MethodPost, "/v1/requests", nil, map[string]string{"value": "100"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = h.do(t, http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))
}

func TestEventsPollAndStream(t *testing.T) {
	h := newHarness(t)
	alice := testAlice
	require.NoError(t, h.engine.Credit(alice, big.NewInt(1_000)))
	_, err := h.engine.RequestAsset(context.Background(), alice, big.NewInt(100))
	require.NoError(t, err)

	resp, err := http.Get(h.server.URL + "/v1/events?since=0")
	require.NoError(t, err)
	var records []events.Record
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&records))
	resp.Body.Close()
	require.Len(t, records, 1)
	require.Equal(t, events.TypeAssetRequested, records[0].Type)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	wsURL := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/v1/events/ws?since=0"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	var rec events.Record
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &rec))
	require.Equal(t, uint64(1), rec.Sequence)

	require.NoError(t, h.mock.FulfillRandomWords(ctx, 1))
	_, data, err = conn.Read(ctx)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &rec))
	require.Equal(t, uint64(2), rec.Sequence)
	require.Equal(t, events.TypeAssetMinted, rec.Type)
}
