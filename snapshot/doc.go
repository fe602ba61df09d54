// Package snapshot provides immutable, point-in-time views of an order
// book. A snapshot is captured by the goroutine that owns the book and
// published through a Reader, so queries never observe a side that is
// being mutated.
package snapshot
