package types

// Event represents a typed event emitted during state transitions.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Receipt summarises a committed transaction.
type Receipt struct {
	TxHash [32]byte `json:"txHash"`
	Height uint64   `json:"height"`
	Events []*Event `json:"events"`
}
