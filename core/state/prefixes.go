package state

import (
	"encoding/binary"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"fairswap/crypto"
)

var (
	accountPrefix        = []byte("account:")
	assetPrefix          = []byte("asset:")
	tokenAccountPrefix   = []byte("token-account:")
	holdersPrefix        = []byte("asset-holders:")
	depositPrefix        = []byte("deposit:")
	offerPrefix          = []byte("fairswap/offer:")
	offerTombstonePrefix = []byte("fairswap/offer-closed:")
	proposalPrefix       = []byte("fairswap/proposal:")
	proposalIndexPrefix  = []byte("fairswap/offer-proposals:")
	receiptPrefix        = []byte("receipt:")

	assetListKey      = ethcrypto.Keccak256([]byte("asset-list"))
	heightKey         = ethcrypto.Keccak256([]byte("meta/height"))
	openOfferCountKey = ethcrypto.Keccak256([]byte("fairswap/open-offers"))
)

func prefixedKey(prefix []byte, id []byte) []byte {
	buf := make([]byte, len(prefix)+len(id))
	copy(buf, prefix)
	copy(buf[len(prefix):], id)
	return ethcrypto.Keccak256(buf)
}

func accountKey(addr crypto.Address) []byte { return prefixedKey(accountPrefix, addr[:]) }

func assetKey(symbol string) []byte { return prefixedKey(assetPrefix, []byte(symbol)) }

func tokenAccountKey(addr crypto.Address) []byte { return prefixedKey(tokenAccountPrefix, addr[:]) }

func holdersKey(symbol string) []byte { return prefixedKey(holdersPrefix, []byte(symbol)) }

func depositKey(record crypto.Address) []byte { return prefixedKey(depositPrefix, record[:]) }

func offerKey(addr crypto.Address) []byte { return prefixedKey(offerPrefix, addr[:]) }

func offerTombstoneKey(addr crypto.Address) []byte {
	return prefixedKey(offerTombstonePrefix, addr[:])
}

func proposalKey(addr crypto.Address) []byte { return prefixedKey(proposalPrefix, addr[:]) }

func proposalIndexKey(offer crypto.Address) []byte {
	return prefixedKey(proposalIndexPrefix, offer[:])
}

func receiptKey(height uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], height)
	return prefixedKey(receiptPrefix, buf[:])
}
