package httpcore

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/uuid"
)

// nonceEntry tracks a single Digest nonce's issue time and the highest
// client-supplied nonce-count seen for it, per spec.md §6: nc must
// strictly increase on each reuse of a nonce, and a nonce expires after
// a fixed TTL regardless of nc.
type nonceEntry struct {
	value   string
	issued  time.Time
	lastNC  uint64
}

// nonceLedger is a bounded LRU of outstanding Digest nonces. Capacity
// bounds memory under a flood of Authorization: Digest attempts; TTL
// bounds how long a nonce may be replayed.
type nonceLedger struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	ll       *list.List
	index    map[string]*list.Element
}

func newNonceLedger(capacity int, ttl time.Duration) *nonceLedger {
	return &nonceLedger{
		capacity: capacity,
		ttl:      ttl,
		ll:       list.New(),
		index:    map[string]*list.Element{},
	}
}

// Issue mints a fresh nonce and records it.
func (n *nonceLedger) Issue() string {
	n.mu.Lock()
	defer n.mu.Unlock()

	value := uuid.New().String()
	el := n.ll.PushFront(&nonceEntry{value: value, issued: time.Now()})
	n.index[value] = el

	for n.ll.Len() > n.capacity {
		oldest := n.ll.Back()
		if oldest == nil {
			break
		}
		n.ll.Remove(oldest)
		delete(n.index, oldest.Value.(*nonceEntry).value)
	}
	return value
}

// Validate checks that value is known, unexpired, and that nc is
// strictly greater than any nc previously seen for it. On success it
// records nc and promotes the entry to most-recently-used.
func (n *nonceLedger) Validate(value string, nc uint64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	el, ok := n.index[value]
	if !ok {
		return false
	}
	entry := el.Value.(*nonceEntry)
	if time.Since(entry.issued) > n.ttl {
		n.ll.Remove(el)
		delete(n.index, value)
		return false
	}
	if nc <= entry.lastNC {
		return false
	}
	entry.lastNC = nc
	n.ll.MoveToFront(el)
	return true
}
