package exports

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"randomnft/integrations/indexer"
)

// MintsJSONL builds a JSON Lines export of minted assets and returns the
// serialised payload alongside a checksum.
func MintsJSONL(assets []indexer.AssetRow) ([]byte, string, error) {
	buffer := &bytes.Buffer{}
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	for _, asset := range assets {
		payload := map[string]interface{}{
			"assetId":   asset.ID,
			"requestId": asset.RequestID,
			"owner":     asset.Owner,
			"category":  asset.Category,
			"uri":       asset.URI,
			"mintedAt":  mintedAt(asset),
		}
		if err := encoder.Encode(payload); err != nil {
			return nil, "", err
		}
	}
	data := buffer.Bytes()
	checksum := sha256.Sum256(data)
	return data, hex.EncodeToString(checksum[:]), nil
}
