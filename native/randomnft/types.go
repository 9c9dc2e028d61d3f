package randomnft

import "math/big"

// Request is a pending claim awaiting a random value from the coordinator.
type Request struct {
	ID          uint64   `json:"id"`
	Requester   [20]byte `json:"requester"`
	Paid        *big.Int `json:"paid"`
	Fulfilled   bool     `json:"fulfilled"`
	AssetID     uint64   `json:"assetId"`
	RequestedAt uint64   `json:"requestedAt"`
	FulfilledAt uint64   `json:"fulfilledAt"`
}

// Clone returns a deep copy of the request.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	clone := *r
	if r.Paid != nil {
		clone.Paid = new(big.Int).Set(r.Paid)
	}
	return &clone
}

// Asset is the token minted for exactly one fulfilled request.
type Asset struct {
	ID        uint64   `json:"id"`
	Owner     [20]byte `json:"owner"`
	Category  uint8    `json:"category"`
	URI       string   `json:"uri"`
	RequestID uint64   `json:"requestId"`
	MintedAt  uint64   `json:"mintedAt"`
}

// Clone returns a copy of the asset.
func (a *Asset) Clone() *Asset {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}

// Counters groups the shared mutable cells of the ledger. They are persisted
// as one record so a single write covers every counter touched by an
// operation.
type Counters struct {
	Requests uint64   `json:"requests"`
	Assets   uint64   `json:"assets"`
	Treasury *big.Int `json:"treasury"`
}

// Clone returns a deep copy of the counters.
func (c *Counters) Clone() *Counters {
	if c == nil {
		return nil
	}
	clone := *c
	if c.Treasury != nil {
		clone.Treasury = new(big.Int).Set(c.Treasury)
	}
	return &clone
}

func ensureCounters(c *Counters) *Counters {
	if c == nil {
		return &Counters{Treasury: big.NewInt(0)}
	}
	if c.Treasury == nil {
		c.Treasury = big.NewInt(0)
	}
	return c
}

// Params configures a ledger instance. They are fixed at construction.
type Params struct {
	MintFee     *big.Int
	Owner       [20]byte
	Coordinator [20]byte
	Boundaries  []uint64
	TokenURIs   []string
	// ExternalPayments marks deployments where the payment arrives with the
	// call itself, so no internal account is debited.
	ExternalPayments bool
}

// Validate checks the parameters for internal consistency.
func (p Params) Validate() error {
	if p.MintFee == nil || p.MintFee.Sign() < 0 {
		return ErrInvalidMintFee
	}
	if _, err := NewSelector(p.Boundaries); err != nil {
		return err
	}
	if len(p.TokenURIs) != len(p.Boundaries) {
		return ErrInvalidTokenURIs
	}
	for _, uri := range p.TokenURIs {
		if uri == "" {
			return ErrInvalidTokenURIs
		}
	}
	if p.Owner == ([20]byte{}) {
		return ErrOwnerNotSet
	}
	return nil
}
