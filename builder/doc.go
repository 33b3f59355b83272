// Package builder implements the layered HNSW construction protocol
// of §4.F: per-point level assignment, greedy descent through the
// upper layers, layer-local best-first search, relative-neighborhood
// heuristic selection, and reciprocal edge insertion with re-pruning.
// Build finishes by freezing the result into a graph.DenseGraph with
// its graph.HnswInitializer attached.
package builder
