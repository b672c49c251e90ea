package types

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"fairswap/crypto"
)

// TxType defines the purpose of a transaction.
type TxType byte

const (
	TxTypeTransfer         TxType = 0x01 // Native-unit transfer between identities
	TxTypeOpenAccount      TxType = 0x02 // Open the signer's token account for an asset
	TxTypeTokenTransfer    TxType = 0x03 // Move tokens between two token accounts
	TxTypeCreateOffer      TxType = 0x10
	TxTypeCancelOffer      TxType = 0x11
	TxTypeExecuteSwap      TxType = 0x12
	TxTypeSubmitProposal   TxType = 0x13
	TxTypeAcceptProposal   TxType = 0x14
	TxTypeWithdrawProposal TxType = 0x15
	TxTypeRegisterAsset    TxType = 0x20 // Admin: register a new asset kind
	TxTypeMint             TxType = 0x21 // Asset authority mints into a token account
)

var (
	ErrUnsigned       = errors.New("types: transaction not signed")
	ErrInvalidPayload = errors.New("types: invalid payload")
)

func (t TxType) String() string {
	switch t {
	case TxTypeTransfer:
		return "transfer"
	case TxTypeOpenAccount:
		return "open_account"
	case TxTypeTokenTransfer:
		return "token_transfer"
	case TxTypeCreateOffer:
		return "create_offer"
	case TxTypeCancelOffer:
		return "cancel_offer"
	case TxTypeExecuteSwap:
		return "execute_swap"
	case TxTypeSubmitProposal:
		return "submit_proposal"
	case TxTypeAcceptProposal:
		return "accept_proposal"
	case TxTypeWithdrawProposal:
		return "withdraw_proposal"
	case TxTypeRegisterAsset:
		return "register_asset"
	case TxTypeMint:
		return "mint"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(t))
	}
}

// Transaction is a signed request to apply one operation against the ledger.
// Payload carries the RLP encoding of the operation-specific parameters.
type Transaction struct {
	ChainID uint64 `json:"chainId"`
	Type    TxType `json:"type"`
	Nonce   uint64 `json:"nonce"`
	Payload []byte `json:"payload"`

	R *big.Int `json:"r"`
	S *big.Int `json:"s"`
	V *big.Int `json:"v"`

	from *crypto.Address
}

type unsignedTx struct {
	ChainID uint64
	Type    TxType
	Nonce   uint64
	Payload []byte
}

// NewTransaction encodes payload and returns an unsigned transaction.
func NewTransaction(chainID uint64, txType TxType, nonce uint64, payload interface{}) (*Transaction, error) {
	data, err := rlp.EncodeToBytes(payload)
	if err != nil {
		return nil, fmt.Errorf("types: encode payload: %w", err)
	}
	return &Transaction{ChainID: chainID, Type: txType, Nonce: nonce, Payload: data}, nil
}

// Hash is keccak256 over the RLP encoding of the unsigned fields.
func (tx *Transaction) Hash() ([32]byte, error) {
	enc, err := rlp.EncodeToBytes(unsignedTx{tx.ChainID, tx.Type, tx.Nonce, tx.Payload})
	if err != nil {
		return [32]byte{}, err
	}
	return crypto.Keccak256(enc), nil
}

func (tx *Transaction) Sign(key *crypto.PrivateKey) error {
	hash, err := tx.Hash()
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(hash[:], key)
	if err != nil {
		return err
	}
	tx.R = new(big.Int).SetBytes(sig[:32])
	tx.S = new(big.Int).SetBytes(sig[32:64])
	tx.V = new(big.Int).SetBytes([]byte{sig[64] + 27})
	tx.from = nil
	return nil
}

// From recovers the signing identity.
func (tx *Transaction) From() (crypto.Address, error) {
	if tx.from != nil {
		return *tx.from, nil
	}
	if tx.R == nil || tx.S == nil || tx.V == nil {
		return crypto.Address{}, ErrUnsigned
	}
	hash, err := tx.Hash()
	if err != nil {
		return crypto.Address{}, err
	}
	if tx.R.BitLen() > 256 || tx.S.BitLen() > 256 || tx.V.Uint64() < 27 {
		return crypto.Address{}, crypto.ErrInvalidSignature
	}
	sig := make([]byte, 65)
	tx.R.FillBytes(sig[:32])
	tx.S.FillBytes(sig[32:64])
	sig[64] = byte(tx.V.Uint64() - 27)
	addr, err := crypto.Recover(hash[:], sig)
	if err != nil {
		return crypto.Address{}, err
	}
	tx.from = &addr
	return addr, nil
}

// DecodePayload decodes the transaction payload into out.
func (tx *Transaction) DecodePayload(out interface{}) error {
	if err := rlp.DecodeBytes(tx.Payload, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidPayload, tx.Type, err)
	}
	return nil
}

// MarshalBinary returns the RLP wire form of the signed transaction.
func (tx *Transaction) MarshalBinary() ([]byte, error) {
	return rlp.EncodeToBytes(signedTx{tx.ChainID, tx.Type, tx.Nonce, tx.Payload, tx.R, tx.S, tx.V})
}

func (tx *Transaction) UnmarshalBinary(data []byte) error {
	var dec signedTx
	if err := rlp.DecodeBytes(data, &dec); err != nil {
		return fmt.Errorf("types: decode transaction: %w", err)
	}
	*tx = Transaction{ChainID: dec.ChainID, Type: dec.Type, Nonce: dec.Nonce, Payload: dec.Payload, R: dec.R, S: dec.S, V: dec.V}
	return nil
}

type signedTx struct {
	ChainID uint64
	Type    TxType
	Nonce   uint64
	Payload []byte
	R, S, V *big.Int
}
