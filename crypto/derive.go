package crypto

import (
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

const (
	MaxSeeds      = 16
	MaxSeedLength = 32

	pdaMarker = "ProgramDerivedAddress"

	// compressedEvenY prefixes a compressed secp256k1 key with an even Y.
	compressedEvenY = 0x02
)

var (
	ErrMaxSeedLengthExceeded = errors.New("crypto: seed length exceeded")
	ErrInvalidSeeds          = errors.New("crypto: derived address lands on curve")
	ErrNoViableBump          = errors.New("crypto: unable to find a viable bump")
)

// ProgramID namespaces every derived address produced by this ledger.
var ProgramID = Keccak256([]byte("fairswap.program.v1"))

// CreateProgramAddress derives the address for the seeds and bump. The result
// must not be a valid secp256k1 X coordinate, which guarantees no private key
// can sign for it.
func CreateProgramAddress(seeds [][]byte, bump uint8) (Address, error) {
	if len(seeds) > MaxSeeds {
		return Address{}, ErrMaxSeedLengthExceeded
	}
	parts := make([][]byte, 0, len(seeds)+3)
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return Address{}, ErrMaxSeedLengthExceeded
		}
		parts = append(parts, seed)
	}
	parts = append(parts, []byte{bump}, ProgramID[:], []byte(pdaMarker))
	candidate := Address(Keccak256(parts...))
	if IsOnCurve(candidate) {
		return Address{}, ErrInvalidSeeds
	}
	return candidate, nil
}

// FindProgramAddress walks bumps from 255 down and returns the first (canonical)
// off-curve address for the seeds.
func FindProgramAddress(seeds ...[]byte) (Address, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		addr, err := CreateProgramAddress(seeds, uint8(bump))
		if err == nil {
			return addr, uint8(bump), nil
		}
		if !errors.Is(err, ErrInvalidSeeds) {
			return Address{}, 0, err
		}
	}
	return Address{}, 0, ErrNoViableBump
}

// VerifyProgramAddress re-derives the address from seeds and bump and checks it
// against the supplied address.
func VerifyProgramAddress(addr Address, bump uint8, seeds ...[]byte) error {
	derived, err := CreateProgramAddress(seeds, bump)
	if err != nil {
		return err
	}
	if derived != addr {
		return fmt.Errorf("%w: derived %s, supplied %s", ErrInvalidAddress, derived, addr)
	}
	return nil
}

// IsOnCurve reports whether addr is the X coordinate of a secp256k1 point.
func IsOnCurve(addr Address) bool {
	compressed := make([]byte, 0, 33)
	compressed = append(compressed, compressedEvenY)
	compressed = append(compressed, addr[:]...)
	_, err := secp256k1.ParsePubKey(compressed)
	return err == nil
}
