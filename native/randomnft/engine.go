package randomnft

import (
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"randomnft/core/events"
	"randomnft/core/types"
	"randomnft/oracle"
)

type engineState interface {
	RandomNFTRequestGet(id uint64) (*Request, bool, error)
	RandomNFTRequestPut(req *Request) error
	RandomNFTAssetGet(id uint64) (*Asset, bool, error)
	RandomNFTAssetPut(asset *Asset) error
	RandomNFTCounters() (*Counters, error)
	RandomNFTCountersPut(counters *Counters) error
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
	Commit() error
	Discard()
}

// OracleSettings describes how randomness requests are addressed to the
// coordinator.
type OracleSettings struct {
	Consumer         common.Address
	KeyHash          common.Hash
	SubscriptionID   uint64
	MinConfirmations uint16
	CallbackGasLimit uint32
	NumWords         uint32
	// CallTimeout bounds each RequestRandomness call. Zero selects
	// DefaultCoordinatorTimeout.
	CallTimeout time.Duration
}

// DefaultCoordinatorTimeout bounds coordinator calls made while the engine
// lock is held.
const DefaultCoordinatorTimeout = 3 * time.Second

// Engine owns the request registry, mint ledger and treasury of one
// collection. Every mutating call holds mu for its whole duration and either
// commits all of its writes or none of them.
type Engine struct {
	mu          sync.Mutex
	state       engineState
	emitter     events.Emitter
	params      Params
	selector    *Selector
	coordinator oracle.Coordinator
	oracleCfg   OracleSettings
	nowFn       func() int64
}

// NewEngine validates params and constructs an engine with default
// dependencies.
func NewEngine(params Params) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	selector, err := NewSelector(params.Boundaries)
	if err != nil {
		return nil, err
	}
	params.MintFee = new(big.Int).Set(params.MintFee)
	params.Boundaries = selector.Boundaries()
	params.TokenURIs = append([]string(nil), params.TokenURIs...)
	return &Engine{
		params:   params,
		selector: selector,
		emitter:  events.NoopEmitter{},
		oracleCfg: OracleSettings{
			NumWords: 1,
		},
		nowFn: func() int64 {
			return time.Now().Unix()
		},
	}, nil
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = state
}

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetCoordinator configures where admitted requests are forwarded. A nil
// coordinator keeps requests local; fulfillments must then be injected
// directly.
func (e *Engine) SetCoordinator(c oracle.Coordinator, settings OracleSettings) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if settings.NumWords == 0 {
		settings.NumWords = 1
	}
	e.coordinator = c
	e.oracleCfg = settings
}

func (e *Engine) coordinatorTimeout() time.Duration {
	if e.oracleCfg.CallTimeout > 0 {
		return e.oracleCfg.CallTimeout
	}
	return DefaultCoordinatorTimeout
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) now() uint64 {
	if e == nil || e.nowFn == nil {
		return uint64(time.Now().Unix())
	}
	ts := e.nowFn()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

func (e *Engine) counters() (*Counters, error) {
	c, err := e.state.RandomNFTCounters()
	if err != nil {
		return nil, err
	}
	return ensureCounters(c), nil
}

// MintFee returns the configured fee.
func (e *Engine) MintFee() *big.Int {
	return new(big.Int).Set(e.params.MintFee)
}

// Owner returns the account allowed to withdraw the treasury.
func (e *Engine) Owner() [20]byte { return e.params.Owner }

// Coordinator returns the only account allowed to deliver randomness.
func (e *Engine) Coordinator() [20]byte { return e.params.Coordinator }

// RequestCounter returns the id of the most recent request, 0 when none.
func (e *Engine) RequestCounter() (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return 0, ErrNilState
	}
	c, err := e.counters()
	if err != nil {
		return 0, err
	}
	return c.Requests, nil
}

// AssetCounter returns the number of assets minted so far.
func (e *Engine) AssetCounter() (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return 0, ErrNilState
	}
	c, err := e.counters()
	if err != nil {
		return 0, err
	}
	return c.Assets, nil
}

// CategoryBoundary returns the cumulative boundary of category index.
func (e *Engine) CategoryBoundary(index int) (uint64, error) {
	return e.selector.Boundary(index)
}

// Categories reports how many categories the collection has.
func (e *Engine) Categories() int { return e.selector.Len() }

// SelectCategory exposes the selection function for auditing.
func (e *Engine) SelectCategory(modded uint64) (uint8, error) {
	return e.selector.Select(modded)
}

// Balance returns the external balance held by addr.
func (e *Engine) Balance(addr [20]byte) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, ErrNilState
	}
	account, err := e.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(account.EnsureBalance().Balance), nil
}

// Credit adds amount to the external balance of addr. Local networks use it
// as a faucet.
func (e *Engine) Credit(addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return ErrNilState
	}
	defer e.state.Discard()
	account, err := e.state.GetAccount(addr)
	if err != nil {
		return err
	}
	account = account.EnsureBalance()
	account.Balance.Add(account.Balance, amount)
	if err := e.state.PutAccount(addr, account); err != nil {
		return err
	}
	return e.state.Commit()
}
