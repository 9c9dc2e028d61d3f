package randomnft

import (
	"math/big"

	"randomnft/core/events"
)

func (e *Engine) credit(counters *Counters, amount *big.Int) {
	counters.Treasury.Add(counters.Treasury, amount)
}

// TreasuryBalance returns the fees collected and not yet withdrawn.
func (e *Engine) TreasuryBalance() (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, ErrNilState
	}
	c, err := e.counters()
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(c.Treasury), nil
}

// Withdraw moves the whole treasury balance to the owner's account. Zeroing
// the treasury and crediting the owner are committed together.
func (e *Engine) Withdraw(caller [20]byte) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, ErrNilState
	}
	if caller != e.params.Owner {
		return nil, ErrUnauthorized
	}
	defer e.state.Discard()

	counters, err := e.counters()
	if err != nil {
		return nil, err
	}
	owner, err := e.state.GetAccount(caller)
	if err != nil {
		return nil, err
	}
	owner = owner.EnsureBalance()
	amount := new(big.Int).Set(counters.Treasury)
	owner.Balance.Add(owner.Balance, amount)
	counters.Treasury.SetInt64(0)

	if err := e.state.PutAccount(caller, owner); err != nil {
		return nil, err
	}
	if err := e.state.RandomNFTCountersPut(counters); err != nil {
		return nil, err
	}
	if err := e.state.Commit(); err != nil {
		return nil, err
	}
	e.emit(events.TreasuryWithdrawn{Owner: caller, Amount: amount})
	return new(big.Int).Set(amount), nil
}
