package exports

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"strconv"
	"time"

	"randomnft/integrations/indexer"
)

// MintsCSV builds a CSV export of minted assets and returns the serialised
// data alongside a SHA-256 checksum of the payload.
func MintsCSV(assets []indexer.AssetRow) ([]byte, string, error) {
	buffer := &bytes.Buffer{}
	writer := csv.NewWriter(buffer)
	header := []string{"asset_id", "request_id", "owner", "category", "uri", "minted_at"}
	if err := writer.Write(header); err != nil {
		return nil, "", err
	}
	for _, asset := range assets {
		record := []string{
			strconv.FormatUint(asset.ID, 10),
			strconv.FormatUint(asset.RequestID, 10),
			asset.Owner,
			strconv.FormatUint(uint64(asset.Category), 10),
			asset.URI,
			mintedAt(asset),
		}
		if err := writer.Write(record); err != nil {
			return nil, "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, "", err
	}
	data := buffer.Bytes()
	checksum := sha256.Sum256(data)
	return data, hex.EncodeToString(checksum[:]), nil
}

func mintedAt(asset indexer.AssetRow) string {
	if asset.MintedAt.IsZero() {
		return ""
	}
	return asset.MintedAt.UTC().Format(time.RFC3339Nano)
}
