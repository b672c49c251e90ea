package bank

import "errors"

var (
	ErrUnauthorized        = errors.New("bank: unauthorized")
	ErrAssetMismatch       = errors.New("bank: asset mismatch")
	ErrInsufficientBalance = errors.New("bank: insufficient balance")
	ErrInsufficientDeposit = errors.New("bank: insufficient native balance for storage deposit")
	ErrAccountNotFound     = errors.New("bank: token account not found")
	ErrAccountExists       = errors.New("bank: token account already exists")
	ErrAssetNotFound       = errors.New("bank: asset not found")
	ErrAssetExists         = errors.New("bank: asset already registered")
	ErrInvalidSymbol       = errors.New("bank: invalid asset symbol")
	ErrInvalidAmount       = errors.New("bank: amount must be positive")
	ErrBalanceOverflow     = errors.New("bank: balance overflow")
	ErrNonZeroBalance      = errors.New("bank: account balance not zero")
	ErrDepositNotFound     = errors.New("bank: deposit not found")
	ErrNilState            = errors.New("bank: state not configured")
)
