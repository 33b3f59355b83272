// Package graph implements the three tightly-coupled storage
// structures of §4.C/§4.D/§4.E: a fixed-arity adjacency arena
// (DenseGraph), the upper-layer hierarchical initializer
// (HnswInitializer), and the bounded best-first candidate pool
// (LinearPool).
package graph
