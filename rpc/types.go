package rpc

import (
	"strconv"

	"randomnft/crypto"
	"randomnft/native/randomnft"
)

// RequestResult describes a mint request.
type RequestResult struct {
	ID          uint64  `json:"id"`
	Requester   string  `json:"requester"`
	Paid        string  `json:"paid"`
	Fulfilled   bool    `json:"fulfilled"`
	AssetID     *uint64 `json:"assetId,omitempty"`
	RequestedAt uint64  `json:"requestedAt"`
	FulfilledAt uint64  `json:"fulfilledAt,omitempty"`
}

func requestResultFrom(req *randomnft.Request) RequestResult {
	out := RequestResult{
		ID:          req.ID,
		Requester:   crypto.FormatAddress(req.Requester),
		Paid:        "0",
		Fulfilled:   req.Fulfilled,
		RequestedAt: req.RequestedAt,
		FulfilledAt: req.FulfilledAt,
	}
	if req.Paid != nil {
		out.Paid = req.Paid.String()
	}
	if req.Fulfilled {
		id := req.AssetID
		out.AssetID = &id
	}
	return out
}

// AssetResult describes a minted asset.
type AssetResult struct {
	ID        uint64 `json:"id"`
	Owner     string `json:"owner"`
	Category  uint8  `json:"category"`
	URI       string `json:"uri"`
	RequestID uint64 `json:"requestId"`
	MintedAt  uint64 `json:"mintedAt"`
}

func assetResultFrom(asset *randomnft.Asset) AssetResult {
	return AssetResult{
		ID:        asset.ID,
		Owner:     crypto.FormatAddress(asset.Owner),
		Category:  asset.Category,
		URI:       asset.URI,
		RequestID: asset.RequestID,
		MintedAt:  asset.MintedAt,
	}
}

// CategoryResult describes one rarity band.
type CategoryResult struct {
	Index    int    `json:"index"`
	Boundary uint64 `json:"boundary"`
	URI      string `json:"uri"`
}

// CountersResult reports both ledger counters.
type CountersResult struct {
	Requests uint64 `json:"requests"`
	Assets   uint64 `json:"assets"`
}

// ErrorResult is the body of every non-2xx answer.
type ErrorResult struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type valueRequest struct {
	Value string `json:"value"`
}

type amountResult struct {
	Amount string `json:"amount"`
}

func formatUint(v uint64) string { return strconv.FormatUint(v, 10) }
