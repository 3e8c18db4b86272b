package state

import "sync"

// Ticket identifies one asynchronous file read for a field.
type Ticket struct {
	Field string
	Seq   uint64
}

// Tickets orders file reads per field. Each new selection takes a ticket;
// only the newest ticket of a field may complete, so a slow read that
// resolves after the user picked other files is discarded.
type Tickets struct {
	mu     sync.Mutex
	latest map[string]uint64
}

// Issue hands out the next ticket for field, superseding earlier ones.
func (t *Tickets) Issue(field string) Ticket {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.latest == nil {
		t.latest = make(map[string]uint64)
	}
	t.latest[field]++
	return Ticket{Field: field, Seq: t.latest[field]}
}

// Current reports whether ticket is still the newest for its field.
func (t *Tickets) Current(ticket Ticket) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return ticket.Seq != 0 && t.latest[ticket.Field] == ticket.Seq
}

// Reset forgets every issued ticket, invalidating reads in flight.
func (t *Tickets) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for field := range t.latest {
		t.latest[field]++
	}
}
