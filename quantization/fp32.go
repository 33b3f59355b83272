package quantization

import (
	"encoding/binary"
	"math"

	"github.com/hupe1980/vann/distance"
)

// FP32Quantizer is the identity encoding: codes are the raw vector
// bytes, little-endian, padded to a 16-wide dimension alignment.
type FP32Quantizer struct {
	metric   distance.Metric
	dim      int
	dAlign   int
	distFn   distance.Func
	codes    []byte
	n        int
	query    []float32
	queryRaw []byte
}

// NewFP32Quantizer builds an untrained FP32 quantizer for metric m.
// All three metrics have an f32 kernel, so construction never fails;
// the error return exists for interface symmetry with SQ8/SQ4.
func NewFP32Quantizer(m distance.Metric) (*FP32Quantizer, error) {
	fn, err := distance.ForMetric(m)
	if err != nil {
		return nil, err
	}
	return &FP32Quantizer{metric: m, distFn: fn}, nil
}

func (q *FP32Quantizer) Train(data []float32, n, d int) error {
	q.dim = d
	q.dAlign = alignDim(d)
	q.n = n
	q.codes = newAlignedBuffer(n * q.dAlign * 4)
	q.query = make([]float32, q.dAlign)
	q.queryRaw = newAlignedBuffer(q.dAlign * 4)
	for i := 0; i < n; i++ {
		q.Encode(data[i*d:(i+1)*d], q.Code(i))
	}
	return nil
}

func (q *FP32Quantizer) Encode(in []float32, out []byte) {
	for j := 0; j < q.dAlign; j++ {
		var v float32
		if j < len(in) {
			v = in[j]
		}
		binary.LittleEndian.PutUint32(out[j*4:], math.Float32bits(v))
	}
}

func (q *FP32Quantizer) Decode(code []byte, out []float32) {
	for j := 0; j < q.dim; j++ {
		out[j] = math.Float32frombits(binary.LittleEndian.Uint32(code[j*4:]))
	}
}

func (q *FP32Quantizer) Code(i int) []byte {
	stride := q.dAlign * 4
	return q.codes[i*stride : (i+1)*stride]
}

func (q *FP32Quantizer) EncodeQuery(query []float32) {
	q.Encode(query, q.queryRaw)
	q.decodeInto(q.queryRaw, q.query)
}

func (q *FP32Quantizer) decodeInto(code []byte, dst []float32) {
	for j := 0; j < q.dAlign; j++ {
		dst[j] = math.Float32frombits(binary.LittleEndian.Uint32(code[j*4:]))
	}
}

func (q *FP32Quantizer) QueryDistance(i int) float32 {
	return q.QueryDistanceRaw(q.Code(i))
}

func (q *FP32Quantizer) QueryDistanceRaw(code []byte) float32 {
	var v [64]float32 // fast path avoids an allocation for common dims
	buf := v[:0]
	if q.dAlign <= len(v) {
		buf = v[:q.dAlign]
	} else {
		buf = make([]float32, q.dAlign)
	}
	q.decodeInto(code, buf)
	return q.distFn(q.query, buf)
}

func (q *FP32Quantizer) Prefetch(i, lines int) {
	// No portable cache-line prefetch intrinsic is exposed by the Go
	// runtime; touching the first byte of each requested line is the
	// closest software-prefetch equivalent available without cgo/asm.
	code := q.Code(i)
	const lineSize = 64
	for l := 0; l < lines && l*lineSize < len(code); l++ {
		_ = code[l*lineSize]
	}
}

func (q *FP32Quantizer) CodeSize() int { return q.dAlign * 4 }
func (q *FP32Quantizer) Dim() int      { return q.dim }
func (q *FP32Quantizer) Name() string  { return "fp32" }

// Clone shares codes with q but allocates independent query buffers.
func (q *FP32Quantizer) Clone() Quantizer {
	clone := *q
	clone.query = make([]float32, q.dAlign)
	clone.queryRaw = newAlignedBuffer(q.dAlign * 4)
	return &clone
}

// Reorder copies the first k pool ids as-is: FP32 pool distances are
// already exact, so no re-ranking is needed (§4.B.1).
func (q *FP32Quantizer) Reorder(pool PoolView, rawQuery []float32, out []int32, k int) {
	n := pool.Size()
	for i := 0; i < k; i++ {
		if i < n {
			out[i] = pool.ID(i)
		} else {
			out[i] = -1
		}
	}
}
