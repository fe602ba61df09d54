package snapshot

import "sync/atomic"

/*
Snapshot Reader

The owner of a book publishes a fresh snapshot after every mutation;
any number of goroutines may Load concurrently. Published snapshots are
never modified.
*/

type Reader struct {
	current atomic.Pointer[Book]
}

func NewReader(initial *Book) *Reader {
	r := &Reader{}
	if initial == nil {
		initial = &Book{}
	}
	r.current.Store(initial)
	return r
}

// Publish makes s the snapshot returned by Load.
func (r *Reader) Publish(s *Book) {
	r.current.Store(s)
}

// Load returns the latest published snapshot.
func (r *Reader) Load() *Book {
	return r.current.Load()
}
