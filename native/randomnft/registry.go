package randomnft

import (
	"context"
	"fmt"
	"math"
	"math/big"

	"github.com/holiman/uint256"

	"randomnft/core/events"
	"randomnft/core/types"
)

// RequestAsset admits a paid mint request from requester and forwards it to
// the randomness coordinator. The returned id is one above the previous
// request id; the first request receives 1.
func (e *Engine) RequestAsset(ctx context.Context, requester [20]byte, paid *big.Int) (uint64, error) {
	if err := AdmitFee(paid, e.params.MintFee); err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return 0, ErrNilState
	}
	defer e.state.Discard()

	var payer *types.Account
	if !e.params.ExternalPayments {
		account, err := e.state.GetAccount(requester)
		if err != nil {
			return 0, err
		}
		payer = account.EnsureBalance()
		if payer.Balance.Cmp(paid) < 0 {
			return 0, ErrInsufficientFunds
		}
	}
	counters, err := e.counters()
	if err != nil {
		return 0, err
	}
	if counters.Requests == math.MaxUint64 {
		return 0, ErrCounterOverflow
	}
	id := counters.Requests + 1

	req := &Request{
		ID:          id,
		Requester:   requester,
		Paid:        new(big.Int).Set(paid),
		RequestedAt: e.now(),
	}
	counters.Requests = id
	e.credit(counters, paid)

	if err := e.state.RandomNFTRequestPut(req); err != nil {
		return 0, err
	}
	if payer != nil {
		payer.Balance.Sub(payer.Balance, paid)
		if err := e.state.PutAccount(requester, payer); err != nil {
			return 0, err
		}
	}
	if err := e.state.RandomNFTCountersPut(counters); err != nil {
		return 0, err
	}
	if e.coordinator != nil {
		out := e.outbound(id)
		// The engine lock is held across this call, so it gets its own
		// deadline and every other operation waits at most that long.
		callCtx, cancel := context.WithTimeout(ctx, e.coordinatorTimeout())
		err := e.coordinator.RequestRandomness(callCtx, out)
		cancel()
		if err != nil {
			return 0, fmt.Errorf("randomnft: request randomness: %w", err)
		}
	}
	if err := e.state.Commit(); err != nil {
		return 0, err
	}
	e.emit(events.AssetRequested{RequestID: id, Requester: requester, Paid: req.Paid})
	return id, nil
}

// FulfillRandomness resolves request requestID with a random value delivered
// by caller. The request is marked fulfilled and its asset minted in the same
// commit; an unknown or already fulfilled id leaves state untouched.
func (e *Engine) FulfillRandomness(caller [20]byte, requestID uint64, random *uint256.Int) (*Asset, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, ErrNilState
	}
	if e.params.Coordinator == ([20]byte{}) || caller != e.params.Coordinator {
		return nil, ErrOnlyCoordinator
	}
	if random == nil {
		return nil, ErrMissingRandomness
	}
	defer e.state.Discard()

	req, ok, err := e.state.RandomNFTRequestGet(requestID)
	if err != nil {
		return nil, err
	}
	if !ok || req.Fulfilled {
		return nil, ErrUnknownOrAlreadyFulfilledRequest
	}
	category, err := e.selector.Select(ModValue(random))
	if err != nil {
		return nil, err
	}
	counters, err := e.counters()
	if err != nil {
		return nil, err
	}
	asset, err := e.mint(counters, req.Requester, category, req.ID)
	if err != nil {
		return nil, err
	}
	req.Fulfilled = true
	req.AssetID = asset.ID
	req.FulfilledAt = asset.MintedAt

	if err := e.state.RandomNFTRequestPut(req); err != nil {
		return nil, err
	}
	if err := e.state.RandomNFTAssetPut(asset); err != nil {
		return nil, err
	}
	if err := e.state.RandomNFTCountersPut(counters); err != nil {
		return nil, err
	}
	if err := e.state.Commit(); err != nil {
		return nil, err
	}
	e.emit(events.AssetMinted{
		AssetID:   asset.ID,
		RequestID: req.ID,
		Owner:     asset.Owner,
		Category:  asset.Category,
		URI:       asset.URI,
		MintedAt:  asset.MintedAt,
	})
	return asset.Clone(), nil
}

// Request returns the stored request.
func (e *Engine) Request(id uint64) (*Request, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, ErrNilState
	}
	req, ok, err := e.state.RandomNFTRequestGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRequestNotFound
	}
	return req, nil
}

// OwnerOf returns the account that submitted request id.
func (e *Engine) OwnerOf(id uint64) ([20]byte, error) {
	req, err := e.Request(id)
	if err != nil {
		return [20]byte{}, err
	}
	return req.Requester, nil
}

// PendingRequests scans the registry for requests still waiting for
// randomness, in id order.
func (e *Engine) PendingRequests() ([]*Request, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, ErrNilState
	}
	return e.pendingLocked()
}

func (e *Engine) pendingLocked() ([]*Request, error) {
	counters, err := e.counters()
	if err != nil {
		return nil, err
	}
	var out []*Request
	for id := uint64(1); id <= counters.Requests; id++ {
		req, ok, err := e.state.RandomNFTRequestGet(id)
		if err != nil {
			return nil, err
		}
		if ok && !req.Fulfilled {
			out = append(out, req)
		}
	}
	return out, nil
}
