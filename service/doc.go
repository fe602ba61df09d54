// Package service makes an order book safe to share. Engine owns the book
// on a single goroutine, serializes submit and match commands in arrival
// order, and serves queries from immutable snapshots.
package service
