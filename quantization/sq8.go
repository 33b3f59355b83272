package quantization

import (
	"fmt"
	"math"
	"sort"

	"github.com/hupe1980/vann/distance"
)

// SQ8Quantizer is per-dimension affine 8-bit scalar quantization
// (§3, §4.B.2): offset[j] = min over the corpus, scale[j] =
// (max-min)/255, falling back to scale=1 for a zero-range dimension.
type SQ8Quantizer struct {
	metric distance.Metric
	useIP  bool

	dim, dAlign int
	offset      []float32
	scale       []float32

	codes []byte
	n     int

	query []byte

	companion *FP32Quantizer
}

// NewSQ8Quantizer builds an untrained SQ8 quantizer for metric m. An
// optional FP32 companion supplies the full-precision reorder step;
// pass nil for the degenerate identity-copy fallback (SPEC_FULL §13.1).
func NewSQ8Quantizer(m distance.Metric, companion *FP32Quantizer) (*SQ8Quantizer, error) {
	if !distance.SupportsCode(m, 8) {
		return nil, fmt.Errorf("%w: metric %v has no SQ8 kernel", ErrUnsupported, m)
	}
	return &SQ8Quantizer{metric: m, useIP: m == distance.IP, companion: companion}, nil
}

func (q *SQ8Quantizer) Train(data []float32, n, d int) error {
	q.dim = d
	q.dAlign = alignDim(d)
	q.n = n
	q.offset = make([]float32, q.dAlign)
	q.scale = make([]float32, q.dAlign)

	for j := 0; j < d; j++ {
		minV, maxV := data[j], data[j]
		for i := 1; i < n; i++ {
			v := data[i*d+j]
			if v < minV {
				minV = v
			}
			if v > maxV {
				maxV = v
			}
		}
		q.offset[j] = minV
		rng := maxV - minV
		if rng == 0 {
			q.scale[j] = 1
		} else {
			q.scale[j] = rng / 255.0
		}
	}
	for j := d; j < q.dAlign; j++ {
		q.offset[j] = 0
		q.scale[j] = 1
	}

	q.codes = newAlignedBuffer(n * q.dAlign)
	q.query = newAlignedBuffer(q.dAlign)

	for i := 0; i < n; i++ {
		q.Encode(data[i*d:(i+1)*d], q.Code(i))
	}
	if q.companion != nil {
		if err := q.companion.Train(data, n, d); err != nil {
			return err
		}
	}
	return nil
}

func (q *SQ8Quantizer) Encode(in []float32, out []byte) {
	for j := 0; j < q.dAlign; j++ {
		var x float32
		if j < len(in) {
			x = in[j]
		}
		out[j] = quantizeByte(x, q.offset[j], q.scale[j])
	}
}

func quantizeByte(x, offset, scale float32) byte {
	normalized := (x - offset) / scale
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 255 {
		normalized = 255
	}
	return byte(math.Round(float64(normalized)))
}

func (q *SQ8Quantizer) Decode(code []byte, out []float32) {
	for j := 0; j < q.dim; j++ {
		out[j] = float32(code[j])*q.scale[j] + q.offset[j]
	}
}

func (q *SQ8Quantizer) Code(i int) []byte {
	return q.codes[i*q.dAlign : (i+1)*q.dAlign]
}

func (q *SQ8Quantizer) EncodeQuery(query []float32) {
	q.Encode(query, q.query)
	if q.companion != nil {
		q.companion.EncodeQuery(query)
	}
}

func (q *SQ8Quantizer) QueryDistance(i int) float32 {
	return q.QueryDistanceRaw(q.Code(i))
}

func (q *SQ8Quantizer) QueryDistanceRaw(code []byte) float32 {
	if q.useIP {
		return distance.IPCodeDistance(q.query, code)
	}
	return distance.L2SqrCode(q.query, code)
}

// Scale returns the learned per-dimension scale for dimension j,
// exposed for the §8 reconstruction-error property tests.
func (q *SQ8Quantizer) Scale(j int) float32 { return q.scale[j] }

func (q *SQ8Quantizer) Prefetch(i, lines int) {
	code := q.Code(i)
	const lineSize = 64
	for l := 0; l < lines && l*lineSize < len(code); l++ {
		_ = code[l*lineSize]
	}
}

func (q *SQ8Quantizer) CodeSize() int { return q.dAlign }
func (q *SQ8Quantizer) Dim() int      { return q.dim }
func (q *SQ8Quantizer) Name() string  { return "sq8" }

// Clone shares codes/offset/scale/companion with q but allocates an
// independent query buffer (§5's per-engine quantizer reentrancy note).
func (q *SQ8Quantizer) Clone() Quantizer {
	clone := *q
	clone.query = newAlignedBuffer(q.dAlign)
	if q.companion != nil {
		clone.companion = q.companion.Clone().(*FP32Quantizer)
	}
	return &clone
}

// Reorder re-ranks pool candidates with the FP32 companion's exact
// distances when one is attached; otherwise it degenerates to a
// straight id copy (§4.B.2, SPEC_FULL §13.1).
func (q *SQ8Quantizer) Reorder(pool PoolView, rawQuery []float32, out []int32, k int) {
	reorderWithCompanion(q.companion, pool, rawQuery, out, k)
}

// reorderWithCompanion implements the shared SQ8/SQ4 reorder rule
// from §4.B: when companion is non-nil, re-score up to k candidates
// with its exact distance and sort ascending; otherwise copy ids.
func reorderWithCompanion(companion *FP32Quantizer, pool PoolView, rawQuery []float32, out []int32, k int) {
	n := pool.Size()
	if companion == nil {
		for i := 0; i < k; i++ {
			if i < n {
				out[i] = pool.ID(i)
			} else {
				out[i] = -1
			}
		}
		return
	}

	companion.EncodeQuery(rawQuery)

	cand := n
	if cand > k {
		cand = k
	}
	type scored struct {
		id   int32
		dist float32
	}
	scores := make([]scored, cand)
	for i := 0; i < cand; i++ {
		id := pool.ID(i)
		scores[i] = scored{id: id, dist: companion.QueryDistance(int(id))}
	}
	sort.Slice(scores, func(a, b int) bool { return scores[a].dist < scores[b].dist })

	resultSize := len(scores)
	if resultSize > k {
		resultSize = k
	}
	for i := 0; i < k; i++ {
		if i < resultSize {
			out[i] = scores[i].id
		} else {
			out[i] = -1
		}
	}
}
