package events

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"randomnft/core/types"
)

const (
	// TypeAssetRequested is emitted when a paid mint request is admitted.
	TypeAssetRequested = "randomnft.asset.requested"
	// TypeAssetMinted is emitted when a fulfilled request produces its asset.
	TypeAssetMinted = "randomnft.asset.minted"
	// TypeTreasuryWithdrawn is emitted when the owner drains the treasury.
	TypeTreasuryWithdrawn = "randomnft.treasury.withdrawn"
)

// AssetRequested records the admission of a mint request.
type AssetRequested struct {
	RequestID uint64
	Requester [20]byte
	Paid      *big.Int
}

func (AssetRequested) EventType() string { return TypeAssetRequested }

func (e AssetRequested) Event() *types.Event {
	paid := "0"
	if e.Paid != nil {
		paid = e.Paid.String()
	}
	return &types.Event{
		Type: TypeAssetRequested,
		Attributes: map[string]string{
			"requestId": strconv.FormatUint(e.RequestID, 10),
			"requester": common.Address(e.Requester).Hex(),
			"paid":      paid,
		},
	}
}

// AssetMinted records the asset produced by a fulfillment.
type AssetMinted struct {
	AssetID   uint64
	RequestID uint64
	Owner     [20]byte
	Category  uint8
	URI       string
	// MintedAt is the ledger time of the mint in unix seconds.
	MintedAt uint64
}

func (AssetMinted) EventType() string { return TypeAssetMinted }

func (e AssetMinted) Event() *types.Event {
	return &types.Event{
		Type: TypeAssetMinted,
		Attributes: map[string]string{
			"assetId":   strconv.FormatUint(e.AssetID, 10),
			"requestId": strconv.FormatUint(e.RequestID, 10),
			"owner":     common.Address(e.Owner).Hex(),
			"category":  strconv.FormatUint(uint64(e.Category), 10),
			"uri":       e.URI,
			"mintedAt":  strconv.FormatUint(e.MintedAt, 10),
		},
	}
}

// TreasuryWithdrawn records an owner withdrawal.
type TreasuryWithdrawn struct {
	Owner  [20]byte
	Amount *big.Int
}

func (TreasuryWithdrawn) EventType() string { return TypeTreasuryWithdrawn }

func (e TreasuryWithdrawn) Event() *types.Event {
	amount := "0"
	if e.Amount != nil {
		amount = e.Amount.String()
	}
	return &types.Event{
		Type: TypeTreasuryWithdrawn,
		Attributes: map[string]string{
			"owner":  common.Address(e.Owner).Hex(),
			"amount": amount,
		},
	}
}
