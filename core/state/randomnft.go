package state

import (
	"randomnft/native/randomnft"
)

// RandomNFTRequestGet loads a mint request.
func (m *Manager) RandomNFTRequestGet(id uint64) (*randomnft.Request, bool, error) {
	req := new(randomnft.Request)
	ok, err := m.KVGet(RandomNFTRequestKey(id), req)
	if err != nil || !ok {
		return nil, ok, err
	}
	return req, true, nil
}

// RandomNFTRequestPut stages a mint request.
func (m *Manager) RandomNFTRequestPut(req *randomnft.Request) error {
	return m.KVPut(RandomNFTRequestKey(req.ID), req)
}

// RandomNFTAssetGet loads a minted asset.
func (m *Manager) RandomNFTAssetGet(id uint64) (*randomnft.Asset, bool, error) {
	asset := new(randomnft.Asset)
	ok, err := m.KVGet(RandomNFTAssetKey(id), asset)
	if err != nil || !ok {
		return nil, ok, err
	}
	return asset, true, nil
}

// RandomNFTAssetPut stages a minted asset.
func (m *Manager) RandomNFTAssetPut(asset *randomnft.Asset) error {
	return m.KVPut(RandomNFTAssetKey(asset.ID), asset)
}

// RandomNFTCounters loads the request/asset counters and treasury balance.
func (m *Manager) RandomNFTCounters() (*randomnft.Counters, error) {
	counters := new(randomnft.Counters)
	ok, err := m.KVGet(randomNFTCountersKey, counters)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return counters, nil
}

// RandomNFTCountersPut stages the counters record.
func (m *Manager) RandomNFTCountersPut(counters *randomnft.Counters) error {
	return m.KVPut(randomNFTCountersKey, counters)
}
