package graph

import (
	"encoding/binary"
	"fmt"
	"io"
)

// HnswInitializer is the boxed upper-layer structure of §4.D: a
// singleton top entry point plus, per node, a flat buffer of its
// upper-layer adjacency lists (levels[u] rows of K ids each).
type HnswInitializer struct {
	N, K int
	ep   int32

	levels []int32
	lists  [][]int32
}

// NewHnswInitializer allocates an initializer for N nodes with
// per-layer arity K. Callers populate levels/lists via SetLevels and
// SetEdges (or Load) before use.
func NewHnswInitializer(n, k int) *HnswInitializer {
	return &HnswInitializer{
		N:      n,
		K:      k,
		ep:     EmptyID,
		levels: make([]int32, n),
		lists:  make([][]int32, n),
	}
}

// SetEntryPoint records the single top-layer entry point.
func (hi *HnswInitializer) SetEntryPoint(ep int32) { hi.ep = ep }

// EntryPoint returns the singleton top entry point.
func (hi *HnswInitializer) EntryPoint() int32 { return hi.ep }

// SetLevels records u's upper-layer height and allocates its flat
// adjacency buffer (levels[u] * K entries, EmptyID-filled).
func (hi *HnswInitializer) SetLevels(u int32, level int32) {
	hi.levels[u] = level
	buf := make([]int32, int(level)*hi.K)
	for i := range buf {
		buf[i] = EmptyID
	}
	hi.lists[u] = buf
}

// Level returns u's upper-layer height.
func (hi *HnswInitializer) Level(u int32) int32 { return hi.levels[u] }

// At returns the i-th neighbor of u at the given 1-based level.
func (hi *HnswInitializer) At(level int, u int32, i int) int32 {
	return hi.lists[u][(level-1)*hi.K+i]
}

// Edges returns the full K-wide neighbor row of u at the given
// 1-based level, including trailing EmptyID slots.
func (hi *HnswInitializer) Edges(level int, u int32) []int32 {
	start := (level - 1) * hi.K
	return hi.lists[u][start : start+hi.K]
}

// SetEdges overwrites u's neighbor row at the given 1-based level.
func (hi *HnswInitializer) SetEdges(level int, u int32, ids []int32) {
	row := hi.Edges(level, u)
	n := len(ids)
	if n > hi.K {
		n = hi.K
	}
	copy(row, ids[:n])
	for i := n; i < hi.K; i++ {
		row[i] = EmptyID
	}
}

// Initialize performs the §4.D greedy descent from the top entry
// point down to layer 1, seeding pool with the best node found. The
// level range walked is fixed at levels[ep] as of loop entry: any
// neighbor v discovered at layer `level` necessarily has
// levels[v] >= level (HNSW neighbors only connect within the same
// layer), so Edges(level, v) stays valid after moving u to v.
func (hi *HnswInitializer) Initialize(pool *LinearPool, quant Distancer) {
	if hi.N == 0 {
		return
	}
	u := hi.ep
	topLevel := hi.levels[u]
	cur := quant.QueryDistance(int(u))

	for level := topLevel; level >= 1; level-- {
		u, cur = hi.ClimbLayer(int(level), u, cur, quant)
	}
	pool.Insert(u, cur)
}

// ClimbLayer repeatedly moves to a strictly closer neighbor of u at
// the given 1-based level until no neighbor improves on cur, per the
// inner repeat-loop of §4.D. Builders reuse this at construction time
// with a Distancer bound to the point being inserted rather than an
// encoded query.
func (hi *HnswInitializer) ClimbLayer(level int, u int32, cur float32, quant Distancer) (int32, float32) {
	for {
		improved := false
		for _, v := range hi.Edges(level, u) {
			if v == EmptyID {
				break
			}
			d := quant.QueryDistance(int(v))
			if d < cur {
				u = v
				cur = d
				improved = true
			}
		}
		if !improved {
			break
		}
	}
	return u, cur
}

// DegreeAt returns the number of active (non-EmptyID) neighbors of u
// at the given 1-based level.
func (hi *HnswInitializer) DegreeAt(level int, u int32) int {
	row := hi.Edges(level, u)
	d := 0
	for _, v := range row {
		if v == EmptyID {
			break
		}
		d++
	}
	return d
}

// AddEdgeAt idempotently appends v to u's row at the given 1-based
// level. It is a no-op if v is already present or the row is full.
func (hi *HnswInitializer) AddEdgeAt(level int, u, v int32) {
	row := hi.Edges(level, u)
	d := hi.DegreeAt(level, u)
	for i := 0; i < d; i++ {
		if row[i] == v {
			return
		}
	}
	if d >= len(row) {
		return
	}
	row[d] = v
}

// Save writes the HnswInitializer block of §6:
// N:i32, K:i32, ep:i32, then per node a count_i:i32 (= levels[i]*K)
// followed by count_i i32 entries.
func (hi *HnswInitializer) Save(w io.Writer) error {
	hdr := make([]byte, 12)
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(hi.N))
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(hi.K))
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(hi.ep))
	if _, err := w.Write(hdr); err != nil {
		return fmt.Errorf("graph: write initializer header: %w", err)
	}

	for i := 0; i < hi.N; i++ {
		row := hi.lists[i]
		count := len(row)
		buf := make([]byte, 4+4*count)
		binary.LittleEndian.PutUint32(buf[0:4], uint32(count))
		for j, v := range row {
			binary.LittleEndian.PutUint32(buf[4+4*j:8+4*j], uint32(v))
		}
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("graph: write initializer row %d: %w", i, err)
		}
	}
	return nil
}

// LoadHnswInitializer reads the HnswInitializer block of §6, sizing
// N and K from the stream header rather than any constructor default
// (SPEC_FULL §13.2 / spec §9 Open Question note). Rows are read and
// appended one at a time, so a header whose counts exceed the data
// actually present fails with a read error instead of an allocation
// of the claimed size.
func LoadHnswInitializer(r io.Reader) (*HnswInitializer, error) {
	hdr := make([]byte, 12)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, fmt.Errorf("graph: read initializer header: %w", err)
	}
	n := int(binary.LittleEndian.Uint32(hdr[0:4]))
	k := int(binary.LittleEndian.Uint32(hdr[4:8]))
	ep := int32(binary.LittleEndian.Uint32(hdr[8:12]))

	hi := &HnswInitializer{
		N:  n,
		K:  k,
		ep: ep,
	}

	for i := 0; i < n; i++ {
		var countBuf [4]byte
		if _, err := io.ReadFull(r, countBuf[:]); err != nil {
			return nil, fmt.Errorf("graph: read initializer row %d count: %w", i, err)
		}
		count := int(binary.LittleEndian.Uint32(countBuf[:]))

		row := []int32{}
		for j := 0; j < count; j++ {
			var entry [4]byte
			if _, err := io.ReadFull(r, entry[:]); err != nil {
				return nil, fmt.Errorf("graph: read initializer row %d entries: %w", i, err)
			}
			row = append(row, int32(binary.LittleEndian.Uint32(entry[:])))
		}
		hi.lists = append(hi.lists, row)
		hi.levels = append(hi.levels, 0)
		if k > 0 {
			hi.levels[i] = int32(count / k)
		}
	}
	return hi, nil
}
