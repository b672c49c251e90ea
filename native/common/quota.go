package common

import (
	"errors"
	"math"
)

var (
	ErrQuotaRequestsExceeded = errors.New("quota requests exceeded")
	ErrQuotaBytesExceeded    = errors.New("quota payload bytes exceeded")
	ErrQuotaCounterOverflow  = errors.New("quota counter overflow")
)

// QuotaNow captures the current quota usage counters for an address.
type QuotaNow struct {
	ReqCount  uint32
	BytesUsed uint64
	EpochID   uint64
}

// Quota defines the limits enforced on transaction submissions per sender.
// Zero disables the corresponding limit.
type Quota struct {
	MaxRequestsPerEpoch uint32
	MaxBytesPerEpoch    uint64
	EpochSeconds        uint32
}

// Epoch maps a unix timestamp onto the quota window it falls in.
func (q Quota) Epoch(unix int64) uint64 {
	if unix < 0 {
		return 0
	}
	span := int64(q.EpochSeconds)
	if span <= 0 {
		span = 60
	}
	return uint64(unix / span)
}

// CheckQuota verifies whether the additional request and payload bytes fit
// within the configured quota. The returned QuotaNow reflects the updated
// counters when the quota is not exceeded.
func CheckQuota(q Quota, nowEpoch uint64, prev QuotaNow, addReq uint32, addBytes uint64) (QuotaNow, error) {
	next := prev
	if prev.EpochID != nowEpoch {
		next = QuotaNow{EpochID: nowEpoch}
	}

	if addReq > 0 {
		if next.ReqCount > math.MaxUint32-addReq {
			return prev, ErrQuotaCounterOverflow
		}
		next.ReqCount += addReq
	}
	if q.MaxRequestsPerEpoch > 0 && next.ReqCount > q.MaxRequestsPerEpoch {
		return prev, ErrQuotaRequestsExceeded
	}

	if addBytes > 0 {
		if next.BytesUsed > math.MaxUint64-addBytes {
			return prev, ErrQuotaCounterOverflow
		}
		next.BytesUsed += addBytes
	}
	if q.MaxBytesPerEpoch > 0 && next.BytesUsed > q.MaxBytesPerEpoch {
		return prev, ErrQuotaBytesExceeded
	}

	return next, nil
}
