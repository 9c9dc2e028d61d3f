package randomnft

import "math"

// mint allocates the next asset id and builds the asset. Counters are only
// mutated in memory; the caller persists them with the asset.
func (e *Engine) mint(counters *Counters, owner [20]byte, category uint8, requestID uint64) (*Asset, error) {
	if counters.Assets == math.MaxUint64 {
		return nil, ErrCounterOverflow
	}
	uri, err := e.TokenURI(category)
	if err != nil {
		return nil, err
	}
	asset := &Asset{
		ID:        counters.Assets,
		Owner:     owner,
		Category:  category,
		URI:       uri,
		RequestID: requestID,
		MintedAt:  e.now(),
	}
	counters.Assets++
	return asset, nil
}

// TokenURI returns the metadata locator shared by every asset of category.
func (e *Engine) TokenURI(category uint8) (string, error) {
	if int(category) >= len(e.params.TokenURIs) {
		return "", ErrRangeOutOfBounds
	}
	return e.params.TokenURIs[category], nil
}

// Asset returns a minted asset.
func (e *Engine) Asset(id uint64) (*Asset, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, ErrNilState
	}
	asset, ok, err := e.state.RandomNFTAssetGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAssetNotFound
	}
	return asset, nil
}
