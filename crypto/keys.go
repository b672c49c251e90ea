package crypto

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix is the human-readable part used when rendering addresses.
const AddressPrefix = "fsw"

// AddressLength is the size of every ledger address, identities and derived
// records alike.
const AddressLength = 32

var (
	ErrInvalidAddress   = errors.New("crypto: invalid address")
	ErrInvalidSignature = errors.New("crypto: invalid signature")
)

// Address identifies an account in the ledger. Externally-owned identities use
// the X coordinate of their secp256k1 public key; records owned by the
// protocol use derived addresses that are guaranteed to be off the curve.
type Address [AddressLength]byte

// ZeroAddress is the empty address.
var ZeroAddress Address

// BytesToAddress copies b into an Address. b must be exactly 32 bytes.
func BytesToAddress(b []byte) (Address, error) {
	var addr Address
	if len(b) != AddressLength {
		return addr, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidAddress, AddressLength, len(b))
	}
	copy(addr[:], b)
	return addr, nil
}

func (a Address) Bytes() []byte { return append([]byte(nil), a[:]...) }

func (a Address) IsZero() bool { return a == ZeroAddress }

func (a Address) Hex() string { return "0x" + hex.EncodeToString(a[:]) }

func (a Address) String() string {
	conv, err := bech32.ConvertBits(a[:], 8, 5, true)
	if err != nil {
		return a.Hex()
	}
	encoded, err := bech32.Encode(AddressPrefix, conv)
	if err != nil {
		return a.Hex()
	}
	return encoded
}

// MarshalText renders the bech32 form so addresses read naturally in JSON.
func (a Address) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress accepts either the bech32 form or a 0x-prefixed hex string.
func ParseAddress(value string) (Address, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return Address{}, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		raw, err := hex.DecodeString(trimmed[2:])
		if err != nil {
			return Address{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
		}
		return BytesToAddress(raw)
	}
	prefix, decoded, err := bech32.Decode(trimmed)
	if err != nil {
		return Address{}, fmt.Errorf("%w: invalid bech32 string: %v", ErrInvalidAddress, err)
	}
	if prefix != AddressPrefix {
		return Address{}, fmt.Errorf("%w: unexpected prefix %q", ErrInvalidAddress, prefix)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("%w: error converting bits: %v", ErrInvalidAddress, err)
	}
	return BytesToAddress(conv)
}

// --- Key Management ---

type PrivateKey struct {
	*ecdsa.PrivateKey
}

type PublicKey struct {
	*ecdsa.PublicKey
}

func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := ecdsa.GenerateKey(crypto.S256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// Bytes returns the byte representation of the private key.
func (k *PrivateKey) Bytes() []byte {
	return crypto.FromECDSA(k.PrivateKey)
}

func (k *PrivateKey) PubKey() *PublicKey {
	return &PublicKey{&k.PrivateKey.PublicKey}
}

// Address returns the identity address owned by this key.
func (k *PrivateKey) Address() Address {
	return k.PubKey().Address()
}

// Address returns the X coordinate of the public key.
func (k *PublicKey) Address() Address {
	var addr Address
	k.X.FillBytes(addr[:])
	return addr
}

func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	key, err := crypto.ToECDSA(b)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// Keccak256 hashes the concatenation of the supplied byte slices.
func Keccak256(data ...[]byte) [32]byte {
	return crypto.Keccak256Hash(data...)
}

// Sign produces a 65-byte recoverable signature over a 32-byte digest.
func Sign(digest []byte, key *PrivateKey) ([]byte, error) {
	if key == nil {
		return nil, errors.New("crypto: nil private key")
	}
	return crypto.Sign(digest, key.PrivateKey)
}

// Recover returns the identity address that produced sig over digest.
func Recover(digest, sig []byte) (Address, error) {
	if len(sig) != crypto.SignatureLength {
		return Address{}, fmt.Errorf("%w: expected %d bytes", ErrInvalidSignature, crypto.SignatureLength)
	}
	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return (&PublicKey{pub}).Address(), nil
}
