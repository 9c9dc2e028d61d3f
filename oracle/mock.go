package oracle

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"golang.org/x/time/rate"

	"randomnft/crypto"
)

// Subscription is a prepaid account that funds randomness requests.
type Subscription struct {
	ID        uint64
	Balance   *big.Int
	Consumers []common.Address
}

type subscription struct {
	balance   *big.Int
	consumers map[common.Address]struct{}
}

type pendingRequest struct {
	req      Request
	queuedAt time.Time
}

// MockCoordinator is an in-process coordinator for local networks. It keeps
// prepaid subscriptions, queues requests and delivers pseudo-random words
// either on demand (FulfillRandomWords) or from the Run loop after a delay.
type MockCoordinator struct {
	key      *crypto.PrivateKey
	seed     common.Hash
	baseFee  *big.Int
	delay    time.Duration
	limiter  *rate.Limiter
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu       sync.Mutex
	consumer Consumer
	subs     map[uint64]*subscription
	nextSub  uint64
	pending  map[uint64]pendingRequest
}

// MockOption customises the mock coordinator.
type MockOption func(*MockCoordinator)

// WithBaseFee sets the amount charged to a subscription per request.
func WithBaseFee(fee *big.Int) MockOption {
	return func(m *MockCoordinator) {
		if fee != nil {
			m.baseFee = new(big.Int).Set(fee)
		}
	}
}

// WithFulfillDelay sets how long a request waits before Run delivers it.
func WithFulfillDelay(delay time.Duration) MockOption {
	return func(m *MockCoordinator) { m.delay = delay }
}

// WithDeliveryRate paces deliveries made by Run.
func WithDeliveryRate(perSecond float64, burst int) MockOption {
	return func(m *MockCoordinator) {
		if perSecond <= 0 {
			return
		}
		if burst <= 0 {
			burst = 1
		}
		m.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithSeed fixes the seed mixed into every random word.
func WithSeed(seed common.Hash) MockOption {
	return func(m *MockCoordinator) { m.seed = seed }
}

// WithMockClock overrides the time source.
func WithMockClock(now func() time.Time) MockOption {
	return func(m *MockCoordinator) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the logger used for delivery failures.
func WithLogger(logger *slog.Logger) MockOption {
	return func(m *MockCoordinator) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMockCoordinator constructs a mock coordinator signing with key.
func NewMockCoordinator(key *crypto.PrivateKey, opts ...MockOption) *MockCoordinator {
	m := &MockCoordinator{
		key:      key,
		baseFee:  big.NewInt(100_000_000_000_000_000), // 0.1 LINK
		interval: 250 * time.Millisecond,
		limiter:  rate.NewLimiter(rate.Inf, 1),
		now:      time.Now,
		logger:   slog.Default(),
		subs:     make(map[uint64]*subscription),
		pending:  make(map[uint64]pendingRequest),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Address returns the signer identity consumers must trust.
func (m *MockCoordinator) Address() common.Address {
	return m.key.Address()
}

// SetConsumer configures where fulfillments are delivered.
func (m *MockCoordinator) SetConsumer(c Consumer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consumer = c
}

// CreateSubscription opens an empty subscription and returns its id.
func (m *MockCoordinator) CreateSubscription() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSub++
	m.subs[m.nextSub] = &subscription{balance: big.NewInt(0), consumers: make(map[common.Address]struct{})}
	return m.nextSub
}

// FundSubscription adds amount to the subscription balance.
func (m *MockCoordinator) FundSubscription(id uint64, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("oracle: fund amount must be positive")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[id]
	if !ok {
		return ErrInvalidSubscription
	}
	sub.balance.Add(sub.balance, amount)
	return nil
}

// AddConsumer authorises consumer to draw on the subscription.
func (m *MockCoordinator) AddConsumer(id uint64, consumer common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[id]
	if !ok {
		return ErrInvalidSubscription
	}
	sub.consumers[consumer] = struct{}{}
	return nil
}

// GetSubscription returns a snapshot of the subscription.
func (m *MockCoordinator) GetSubscription(id uint64) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[id]
	if !ok {
		return Subscription{}, ErrInvalidSubscription
	}
	out := Subscription{ID: id, Balance: new(big.Int).Set(sub.balance)}
	for addr := range sub.consumers {
		out.Consumers = append(out.Consumers, addr)
	}
	sort.Slice(out.Consumers, func(i, j int) bool {
		return out.Consumers[i].Hex() < out.Consumers[j].Hex()
	})
	return out, nil
}

// RequestRandomness charges the subscription and queues the request.
func (m *MockCoordinator) RequestRandomness(_ context.Context, req Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[req.SubscriptionID]
	if !ok {
		return ErrInvalidSubscription
	}
	if _, ok := sub.consumers[req.Consumer]; !ok {
		return ErrInvalidConsumer
	}
	if _, exists := m.pending[req.RequestID]; exists {
		return ErrDuplicateRequest
	}
	if sub.balance.Cmp(m.baseFee) < 0 {
		return ErrInsufficientBalance
	}
	sub.balance.Sub(sub.balance, m.baseFee)
	if req.NumWords == 0 {
		req.NumWords = 1
	}
	m.pending[req.RequestID] = pendingRequest{req: req, queuedAt: m.now()}
	return nil
}

// Requeue queues a request that was already paid for, such as one left
// pending across a restart. The subscription is not charged again.
func (m *MockCoordinator) Requeue(req Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[req.SubscriptionID]
	if !ok {
		return ErrInvalidSubscription
	}
	if _, ok := sub.consumers[req.Consumer]; !ok {
		return ErrInvalidConsumer
	}
	if _, exists := m.pending[req.RequestID]; exists {
		return ErrDuplicateRequest
	}
	if req.NumWords == 0 {
		req.NumWords = 1
	}
	m.pending[req.RequestID] = pendingRequest{req: req, queuedAt: m.now()}
	return nil
}

// Pending returns the ids of queued requests in ascending order.
func (m *MockCoordinator) Pending() []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]uint64, 0, len(m.pending))
	for id := range m.pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// RandomWords derives the words delivered for a request.
func (m *MockCoordinator) RandomWords(requestID uint64, n uint32) []*uint256.Int {
	words := make([]*uint256.Int, n)
	for i := range words {
		buf := make([]byte, 0, common.HashLength+12)
		buf = append(buf, m.seed[:]...)
		buf = binary.BigEndian.AppendUint64(buf, requestID)
		buf = binary.BigEndian.AppendUint32(buf, uint32(i))
		words[i] = new(uint256.Int).SetBytes(ethcrypto.Keccak256(buf))
	}
	return words
}

// FulfillRandomWords delivers the words for a queued request immediately.
func (m *MockCoordinator) FulfillRandomWords(ctx context.Context, requestID uint64) error {
	return m.FulfillWithWords(ctx, requestID, nil)
}

// FulfillWithWords delivers caller-chosen words for a queued request. A nil
// slice falls back to the derived words.
func (m *MockCoordinator) FulfillWithWords(ctx context.Context, requestID uint64, words []*uint256.Int) error {
	m.mu.Lock()
	pending, ok := m.pending[requestID]
	if !ok {
		m.mu.Unlock()
		return ErrUnknownRequest
	}
	consumer := m.consumer
	if consumer == nil {
		m.mu.Unlock()
		return ErrConsumerNotSet
	}
	delete(m.pending, requestID)
	m.mu.Unlock()

	if words == nil {
		words = m.RandomWords(requestID, pending.req.NumWords)
	}
	f := Fulfillment{RequestID: requestID, Words: words}
	if err := f.Sign(m.key); err != nil {
		return err
	}
	return consumer.FulfillRandomness(ctx, f)
}

// Run delivers queued requests once they are older than the configured delay.
// Failed deliveries are logged and dropped.
func (m *MockCoordinator) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		for _, id := range m.ready() {
			if err := m.limiter.Wait(ctx); err != nil {
				return err
			}
			if err := m.FulfillRandomWords(ctx, id); err != nil {
				m.logger.Warn("randomness delivery rejected", "requestId", id, "error", err)
			}
		}
	}
}

func (m *MockCoordinator) ready() []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	ids := make([]uint64, 0)
	for id, p := range m.pending {
		if now.Sub(p.queuedAt) >= m.delay {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
