package bank

import (
	"fmt"
	"math"

	"fairswap/crypto"
)

// Schedule prices storage deposits. A record of size n bytes reserves
// (BaseBytes + n) * PerByte native units from its creator.
type Schedule struct {
	BaseBytes uint64
	PerByte   uint64
}

// DefaultSchedule mirrors the deposit constants used by the reference network.
func DefaultSchedule() Schedule {
	return Schedule{BaseBytes: 128, PerByte: 10}
}

// DepositFor returns the deposit required for a record of size bytes.
func (s Schedule) DepositFor(size uint64) uint64 {
	total := s.BaseBytes + size
	if s.PerByte != 0 && total > math.MaxUint64/s.PerByte {
		return math.MaxUint64
	}
	return total * s.PerByte
}

// Reserve debits the deposit for a record of size bytes from payer and records
// it against record.
func (l *Ledger) Reserve(payer, record crypto.Address, size uint64) (uint64, error) {
	if err := l.ready(); err != nil {
		return 0, err
	}
	if _, exists, err := l.state.DepositGet(record); err != nil {
		return 0, err
	} else if exists {
		return 0, fmt.Errorf("bank: deposit for %s already reserved", record)
	}
	amount := l.schedule.DepositFor(size)
	account, err := l.state.AccountGet(payer)
	if err != nil {
		return 0, err
	}
	if account.Balance < amount {
		return 0, fmt.Errorf("%w: need %d, have %d", ErrInsufficientDeposit, amount, account.Balance)
	}
	account = account.Clone()
	account.Balance -= amount
	if err := l.state.AccountPut(payer, account); err != nil {
		return 0, err
	}
	if err := l.state.DepositPut(&Deposit{Record: record, Payer: payer, Amount: amount}); err != nil {
		return 0, err
	}
	return amount, nil
}

// Refund returns the deposit held against record to its original payer.
func (l *Ledger) Refund(record crypto.Address) (*Deposit, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	deposit, ok, err := l.state.DepositGet(record)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDepositNotFound, record)
	}
	account, err := l.state.AccountGet(deposit.Payer)
	if err != nil {
		return nil, err
	}
	if account.Balance > math.MaxUint64-deposit.Amount {
		return nil, ErrBalanceOverflow
	}
	account = account.Clone()
	account.Balance += deposit.Amount
	if err := l.state.AccountPut(deposit.Payer, account); err != nil {
		return nil, err
	}
	if err := l.state.DepositDelete(record); err != nil {
		return nil, err
	}
	return deposit, nil
}
