package sequence

import "sync/atomic"

// Sequencer hands out strictly increasing IDs. Each owner keeps its own
// instance; IDs are never reused.
type Sequencer struct {
	next atomic.Uint64
}

// New creates a sequencer whose first issued ID is start.
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.next.Store(start)
	return s
}

// Next returns the next ID.
func (s *Sequencer) Next() uint64 {
	return s.next.Add(1) - 1
}

// Peek returns the ID the next call to Next will issue.
func (s *Sequencer) Peek() uint64 {
	return s.next.Load()
}
