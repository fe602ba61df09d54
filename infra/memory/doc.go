// Package memory provides object reuse primitives for the hot path.
// The order book recycles fully filled orders through a typed Pool
// instead of leaving every fill to the garbage collector.
package memory
