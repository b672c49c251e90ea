package events

import (
	"sync"

	"fairswap/core/types"
)

// Envelope pairs an event with the ledger height and transaction that produced it.
type Envelope struct {
	Height uint64       `json:"height"`
	TxHash [32]byte     `json:"txHash"`
	Event  *types.Event `json:"event"`
}

// Feed fans committed events out to subscribers. Slow subscribers drop events
// rather than block the committing writer.
type Feed struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Envelope
	buffer int
}

// NewFeed returns a feed whose subscriber channels hold up to buffer events.
func NewFeed(buffer int) *Feed {
	if buffer <= 0 {
		buffer = 64
	}
	return &Feed{subs: make(map[int]chan Envelope), buffer: buffer}
}

// Subscribe returns a channel of envelopes and a cancel function that closes it.
func (f *Feed) Subscribe() (<-chan Envelope, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	ch := make(chan Envelope, f.buffer)
	f.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if sub, ok := f.subs[id]; ok {
				delete(f.subs, id)
				close(sub)
			}
		})
	}
}

// Publish delivers env to every subscriber without blocking and returns how
// many subscribers missed it.
func (f *Feed) Publish(env Envelope) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	dropped := 0
	for _, ch := range f.subs {
		select {
		case ch <- env:
		default:
			dropped++
		}
	}
	return dropped
}

// Subscribers reports the number of live subscriptions.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
