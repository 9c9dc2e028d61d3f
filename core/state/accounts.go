package state

import (
	"randomnft/core/types"
)

// GetAccount returns the account stored for addr, or a zero-balance account
// when none exists.
func (m *Manager) GetAccount(addr [20]byte) (*types.Account, error) {
	account := new(types.Account)
	ok, err := m.KVGet(accountKey(addr), account)
	if err != nil {
		return nil, err
	}
	if !ok {
		return (*types.Account)(nil).EnsureBalance(), nil
	}
	return account.EnsureBalance(), nil
}

// PutAccount stages the account record for addr.
func (m *Manager) PutAccount(addr [20]byte, account *types.Account) error {
	return m.KVPut(accountKey(addr), account.EnsureBalance())
}
