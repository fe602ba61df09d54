// Package orderbook implements a single-instrument limit order book with
// price-time priority. Each side is a red-black tree of price levels
// ordered by an explicit Priority, and every level is a FIFO queue of
// resting orders.
//
// Submission and matching are separate steps: Submit only rests an order,
// Match drains all crossing interest and returns the resulting trades at
// the sell order's price. The book is single-writer and takes no locks;
// see package service for a serialized, shareable engine.
package orderbook
