// Package search implements the query-time engine of §4.G: a
// Searcher owning an immutable graph and a per-engine quantizer, the
// base-layer best-first traversal with prefetch scheduling, and the
// Optimize auto-tune protocol for the (po, pl) prefetch parameters.
package search
