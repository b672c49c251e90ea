package state

import (
	"sort"

	"fairswap/core/types"
)

// storedEvent is the RLP form of types.Event; attributes are kept as sorted
// parallel lists.
type storedEvent struct {
	Type   string
	Keys   []string
	Values []string
}

type storedReceipt struct {
	TxHash [32]byte
	Events []storedEvent
}

// ReceiptPut records the receipt committed at receipt.Height.
func (s *StateDB) ReceiptPut(receipt *types.Receipt) error {
	stored := storedReceipt{TxHash: receipt.TxHash, Events: make([]storedEvent, 0, len(receipt.Events))}
	for _, evt := range receipt.Events {
		if evt == nil {
			continue
		}
		keys := make([]string, 0, len(evt.Attributes))
		for k := range evt.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		values := make([]string, len(keys))
		for i, k := range keys {
			values[i] = evt.Attributes[k]
		}
		stored.Events = append(stored.Events, storedEvent{Type: evt.Type, Keys: keys, Values: values})
	}
	return s.putRLP(receiptKey(receipt.Height), &stored)
}

// ReceiptGet returns the receipt committed at height.
func (s *StateDB) ReceiptGet(height uint64) (*types.Receipt, bool, error) {
	var stored storedReceipt
	ok, err := s.getRLP(receiptKey(height), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	receipt := &types.Receipt{TxHash: stored.TxHash, Height: height, Events: make([]*types.Event, 0, len(stored.Events))}
	for _, evt := range stored.Events {
		attrs := make(map[string]string, len(evt.Keys))
		for i, k := range evt.Keys {
			if i < len(evt.Values) {
				attrs[k] = evt.Values[i]
			}
		}
		receipt.Events = append(receipt.Events, &types.Event{Type: evt.Type, Attributes: attrs})
	}
	return receipt, true, nil
}
