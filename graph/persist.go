package graph

import (
	"encoding/binary"
	"fmt"
	"io"
	"unsafe"

	"github.com/klauspost/compress/zstd"

	"github.com/hupe1980/vann/persistence"
)

// saveOptions configures Save's on-disk representation.
type saveOptions struct {
	compressed bool
}

// SaveOption mutates saveOptions.
type SaveOption func(*saveOptions)

// WithCompression wraps the §6 block layout in a zstd stream. The
// wire format itself is unchanged; only the bytes on disk are
// compressed, so a graph saved with WithCompression must be Loaded
// with WithCompression too. Off by default, keeping §6's literal byte
// layout and §8's round-trip property intact for plain Save/Load.
func WithCompression() SaveOption {
	return func(o *saveOptions) { o.compressed = true }
}

// Save writes the full on-disk graph format of §6 to path: the
// HnswInitializer block (an empty one, N=0, when no initializer is
// attached), the DenseGraph block, then the Metadata block, followed
// by a trailing CRC32 of everything written so Load can detect
// accidental corruption. The write goes through an atomic
// temp-file-plus-rename so a crash mid-write never leaves a truncated
// graph at path.
func (g *DenseGraph) Save(path string, opts ...SaveOption) error {
	var o saveOptions
	for _, fn := range opts {
		fn(&o)
	}
	return persistence.SaveToFile(path, func(w io.Writer) error {
		dst := w
		if o.compressed {
			enc, err := zstd.NewWriter(w)
			if err != nil {
				return fmt.Errorf("graph: open zstd writer: %w", err)
			}
			defer enc.Close()
			dst = enc
		}

		csw := persistence.NewChecksumWriter(dst)
		if err := g.encode(csw); err != nil {
			return err
		}

		var sumBuf [4]byte
		binary.LittleEndian.PutUint32(sumBuf[:], csw.Sum())
		if _, err := dst.Write(sumBuf[:]); err != nil {
			return fmt.Errorf("graph: write checksum: %w", err)
		}
		return nil
	})
}

// Load reads path written by Save back into a fresh DenseGraph,
// including its HnswInitializer when one was present at save time,
// and verifies the trailing CRC32 before returning it. Pass
// WithCompression if the file was saved with it.
func Load(path string, opts ...SaveOption) (*DenseGraph, error) {
	var o saveOptions
	for _, fn := range opts {
		fn(&o)
	}

	var g *DenseGraph
	err := persistence.LoadFromFile(path, func(r io.Reader) error {
		src := r
		if o.compressed {
			dec, err := zstd.NewReader(r)
			if err != nil {
				return fmt.Errorf("graph: open zstd reader: %w", err)
			}
			defer dec.Close()
			src = dec
		}

		csr := persistence.NewChecksumReader(src)
		decoded, err := decode(csr)
		if err != nil {
			return err
		}

		var sumBuf [4]byte
		if _, err := io.ReadFull(src, sumBuf[:]); err != nil {
			return fmt.Errorf("graph: read checksum: %w", err)
		}
		if err := csr.Verify(binary.LittleEndian.Uint32(sumBuf[:])); err != nil {
			return fmt.Errorf("graph: %w", err)
		}

		g = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// emptyInitializer is written in place of the HnswInitializer block
// when a graph has no upper layers (e.g. a flat FP32 index): N=0,
// K=0, ep=EmptyID, with zero per-node rows.
func emptyInitializer() *HnswInitializer {
	return &HnswInitializer{ep: EmptyID}
}

func (g *DenseGraph) encode(w io.Writer) error {
	init := g.initializer
	if init == nil {
		init = emptyInitializer()
	}
	if err := init.Save(w); err != nil {
		return err
	}
	if err := g.encodeDenseGraph(w); err != nil {
		return err
	}
	return g.encodeMetadata(w)
}

func decode(r io.Reader) (*DenseGraph, error) {
	hi, err := LoadHnswInitializer(r)
	if err != nil {
		return nil, err
	}
	var initializer *HnswInitializer
	if hi.N > 0 {
		initializer = hi
	}

	g, err := decodeDenseGraph(r)
	if err != nil {
		return nil, err
	}
	g.initializer = initializer

	md, err := decodeMetadata(r)
	if err != nil {
		return nil, err
	}
	g.metadata = md
	return g, nil
}

// encodeDenseGraph writes the DenseGraph block of §6:
// num_nodes:u64, max_degree:u64, adjacency (node_t row-major),
// degrees_len:u64 + degrees:u64×n, entry_points_len:u64 + entry_points:u64×n.
// Each typed section goes through a persistence.BinaryIndexWriter so the
// same alignment-checked unsafe write path backs every binary format
// this module persists.
func (g *DenseGraph) encodeDenseGraph(w io.Writer) error {
	hdr := make([]byte, 16)
	binary.LittleEndian.PutUint64(hdr[0:8], uint64(g.numNodes))
	binary.LittleEndian.PutUint64(hdr[8:16], uint64(g.maxDegree))
	if _, err := w.Write(hdr); err != nil {
		return fmt.Errorf("graph: write dense graph header: %w", err)
	}

	bw := persistence.NewBinaryIndexWriter(w)
	if err := bw.WriteUint32Slice(asUint32Slice(g.adjacency)); err != nil {
		return fmt.Errorf("graph: write adjacency: %w", err)
	}

	degrees := widenToUint64(g.degrees)
	if err := writeU64Len(w, len(degrees)); err != nil {
		return err
	}
	if err := bw.WriteUint64Slice(degrees); err != nil {
		return fmt.Errorf("graph: write degrees: %w", err)
	}

	eps := widenToUint64(g.EntryPoints())
	if err := writeU64Len(w, len(eps)); err != nil {
		return err
	}
	if err := bw.WriteUint64Slice(eps); err != nil {
		return fmt.Errorf("graph: write entry points: %w", err)
	}
	return nil
}

func decodeDenseGraph(r io.Reader) (*DenseGraph, error) {
	hdr := make([]byte, 16)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, fmt.Errorf("graph: read dense graph header: %w", err)
	}
	numNodes := int(binary.LittleEndian.Uint64(hdr[0:8]))
	maxDegree := int(binary.LittleEndian.Uint64(hdr[8:16]))

	br := persistence.NewBinaryIndexReader(r)
	adjU32, err := br.ReadUint32Slice(numNodes * maxDegree)
	if err != nil {
		return nil, fmt.Errorf("graph: read adjacency: %w", err)
	}
	adjacency := asInt32Slice(adjU32)

	degreesLen, err := readU64Len(r)
	if err != nil {
		return nil, fmt.Errorf("graph: read degrees length: %w", err)
	}
	degreesU64, err := br.ReadUint64Slice(degreesLen)
	if err != nil {
		return nil, fmt.Errorf("graph: read degrees: %w", err)
	}
	degrees := narrowToInt32(degreesU64)

	epLen, err := readU64Len(r)
	if err != nil {
		return nil, fmt.Errorf("graph: read entry points length: %w", err)
	}
	epsU64, err := br.ReadUint64Slice(epLen)
	if err != nil {
		return nil, fmt.Errorf("graph: read entry points: %w", err)
	}
	eps := narrowToInt32(epsU64)

	g := &DenseGraph{
		numNodes:  numNodes,
		maxDegree: maxDegree,
		adjacency: adjacency,
		degrees:   degrees,
	}
	g.SetEntryPoints(eps)
	return g, nil
}

// asUint32Slice reinterprets an []int32 as []uint32 without copying;
// the two's-complement bit pattern round-trips exactly through
// asInt32Slice, so EmptyID (-1) survives the wire format unchanged.
func asUint32Slice(s []int32) []uint32 {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&s[0])), len(s))
}

func asInt32Slice(s []uint32) []int32 {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*int32)(unsafe.Pointer(&s[0])), len(s))
}

func widenToUint64(s []int32) []uint64 {
	out := make([]uint64, len(s))
	for i, v := range s {
		out[i] = uint64(v)
	}
	return out
}

func narrowToInt32(s []uint64) []int32 {
	out := make([]int32, len(s))
	for i, v := range s {
		out[i] = int32(v)
	}
	return out
}

// encodeMetadata writes the Metadata block of §6: total_edges:u64,
// builder_name (length-prefixed utf8), distance_type (length-prefixed utf8).
func (g *DenseGraph) encodeMetadata(w io.Writer) error {
	var teBuf [8]byte
	binary.LittleEndian.PutUint64(teBuf[:], g.metadata.TotalEdges)
	if _, err := w.Write(teBuf[:]); err != nil {
		return fmt.Errorf("graph: write total edges: %w", err)
	}
	if err := writeString(w, g.metadata.BuilderName); err != nil {
		return fmt.Errorf("graph: write builder name: %w", err)
	}
	if err := writeString(w, g.metadata.DistanceType); err != nil {
		return fmt.Errorf("graph: write distance type: %w", err)
	}
	return nil
}

func decodeMetadata(r io.Reader) (Metadata, error) {
	var teBuf [8]byte
	if _, err := io.ReadFull(r, teBuf[:]); err != nil {
		return Metadata{}, fmt.Errorf("graph: read total edges: %w", err)
	}
	md := Metadata{TotalEdges: binary.LittleEndian.Uint64(teBuf[:])}

	builderName, err := readString(r)
	if err != nil {
		return Metadata{}, fmt.Errorf("graph: read builder name: %w", err)
	}
	md.BuilderName = builderName

	distanceType, err := readString(r)
	if err != nil {
		return Metadata{}, fmt.Errorf("graph: read distance type: %w", err)
	}
	md.DistanceType = distanceType
	return md, nil
}

func writeU64Len(w io.Writer, n int) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(n))
	_, err := w.Write(buf[:])
	return err
}

func readU64Len(r io.Reader) (int, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int(binary.LittleEndian.Uint64(buf[:])), nil
}

func writeString(w io.Writer, s string) error {
	if err := writeU64Len(w, len(s)); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

func readString(r io.Reader) (string, error) {
	n, err := readU64Len(r)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
