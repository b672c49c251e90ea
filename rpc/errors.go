package rpc

import (
	"encoding/json"
	"errors"
	"net/http"

	"fairswap/core"
	"fairswap/core/types"
	"fairswap/crypto"
	"fairswap/native/bank"
	"fairswap/native/common"
	"fairswap/native/fairswap"
)

const (
	codeModulePaused        = -32021
	codePreconditionFailed  = -32022
	codeForbidden           = -32023
	codeInsufficientBalance = -32024
	codeDuplicateRecord     = -32025
	codeQuotaExceeded       = -32026
)

// classify maps a ledger error onto an HTTP status and JSON-RPC code.
func classify(err error) (int, int) {
	switch {
	case errors.Is(err, common.ErrModulePaused):
		return http.StatusServiceUnavailable, codeModulePaused
	case errors.Is(err, fairswap.ErrUnauthorized),
		errors.Is(err, bank.ErrUnauthorized),
		errors.Is(err, core.ErrNotAdmin):
		return http.StatusForbidden, codeForbidden
	case errors.Is(err, fairswap.ErrInsufficientBalance),
		errors.Is(err, bank.ErrInsufficientBalance),
		errors.Is(err, bank.ErrInsufficientDeposit):
		return http.StatusBadRequest, codeInsufficientBalance
	case errors.Is(err, fairswap.ErrDuplicateRecord),
		errors.Is(err, bank.ErrAccountExists),
		errors.Is(err, bank.ErrAssetExists):
		return http.StatusConflict, codeDuplicateRecord
	case errors.Is(err, fairswap.ErrPreconditionFailed),
		errors.Is(err, bank.ErrAccountNotFound),
		errors.Is(err, bank.ErrAssetNotFound),
		errors.Is(err, bank.ErrAssetMismatch),
		errors.Is(err, bank.ErrInvalidAmount),
		errors.Is(err, bank.ErrInvalidSymbol),
		errors.Is(err, bank.ErrNonZeroBalance),
		errors.Is(err, bank.ErrBalanceOverflow):
		return http.StatusBadRequest, codePreconditionFailed
	case errors.Is(err, core.ErrInvalidNonce),
		errors.Is(err, core.ErrInvalidChainID),
		errors.Is(err, core.ErrUnknownTxType),
		errors.Is(err, types.ErrUnsigned),
		errors.Is(err, types.ErrInvalidPayload),
		errors.Is(err, crypto.ErrInvalidSignature),
		errors.Is(err, crypto.ErrInvalidAddress):
		return http.StatusBadRequest, codeInvalidParams
	case errors.Is(err, common.ErrQuotaRequestsExceeded),
		errors.Is(err, common.ErrQuotaBytesExceeded),
		errors.Is(err, common.ErrQuotaCounterOverflow):
		return http.StatusTooManyRequests, codeQuotaExceeded
	default:
		return http.StatusInternalServerError, codeServerError
	}
}

func writeLedgerError(w http.ResponseWriter, id json.RawMessage, message string, err error) {
	status, code := classify(err)
	writeError(w, status, id, code, message, err.Error())
}
