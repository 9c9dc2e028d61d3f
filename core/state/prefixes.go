package state

import "encoding/binary"

var (
	kvPrefix             = []byte("kv/")
	accountPrefix        = []byte("account/")
	randomNFTRequestPref = []byte("randomnft/request/")
	randomNFTAssetPref   = []byte("randomnft/asset/")
	randomNFTCountersKey = []byte("randomnft/counters")
)

func accountKey(addr [20]byte) []byte {
	buf := make([]byte, 0, len(accountPrefix)+len(addr))
	buf = append(buf, accountPrefix...)
	return append(buf, addr[:]...)
}

func uint64Key(prefix []byte, id uint64) []byte {
	buf := make([]byte, 0, len(prefix)+8)
	buf = append(buf, prefix...)
	return binary.BigEndian.AppendUint64(buf, id)
}

// RandomNFTRequestKey returns the state key of a mint request.
func RandomNFTRequestKey(id uint64) []byte { return uint64Key(randomNFTRequestPref, id) }

// RandomNFTAssetKey returns the state key of a minted asset.
func RandomNFTAssetKey(id uint64) []byte { return uint64Key(randomNFTAssetPref, id) }
