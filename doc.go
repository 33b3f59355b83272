// Package vann is an approximate nearest-neighbor vector search engine:
// a layered HNSW-style graph over quantized (or full-precision) vector
// codes, with pluggable distance kernels and an auto-tuning search
// engine.
//
// # Quick start
//
//	idx, _ := vann.NewIndex(vann.HNSW, dim, distance.L2, vann.WithM(32))
//	g, _ := idx.Build(corpus, n)
//	_ = g.Save("graph.bin")
//
//	g, _ = vann.LoadGraph("graph.bin")
//	s, _ := vann.NewSearcher(g, corpus, n, dim, distance.L2, vann.LevelFP32)
//	_ = s.Optimize(0)
//	s.SetEF(100)
//	ids, _ := s.Search(query, 10)
//
// The graph is built once and shared immutably across any number of
// Searchers. Each Searcher owns its own quantizer; BatchSearch clones
// it per goroutine, but a bare Search call on one Searcher is not
// reentrant across goroutines.
package vann
