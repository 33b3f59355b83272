package quantization

import (
	"fmt"
	"math"

	"github.com/hupe1980/vann/distance"
)

// SQ4Quantizer is globally-scaled 4-bit scalar quantization (§3,
// §4.B.3): a single offset/scale pair learned from the entire
// corpus, with two values packed per byte (low nibble at even
// indices, high nibble at odd).
type SQ4Quantizer struct {
	metric distance.Metric

	dim, dAlign int
	offset      float32
	scale       float32

	codes []byte
	n     int

	query []byte

	companion *FP32Quantizer
}

// NewSQ4Quantizer builds an untrained SQ4 quantizer for metric m.
// Only L2 has an SQ4 kernel (§9); IP and cosine fail at construction.
func NewSQ4Quantizer(m distance.Metric, companion *FP32Quantizer) (*SQ4Quantizer, error) {
	if !distance.SupportsCode(m, 4) {
		return nil, fmt.Errorf("%w: metric %v has no SQ4 kernel", ErrUnsupported, m)
	}
	return &SQ4Quantizer{metric: m, companion: companion}, nil
}

func (q *SQ4Quantizer) Train(data []float32, n, d int) error {
	q.dim = d
	q.dAlign = alignDim(d)
	q.n = n

	minV, maxV := data[0], data[0]
	for _, v := range data[:n*d] {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	q.offset = minV
	rng := maxV - minV
	if rng == 0 {
		q.scale = 1
	} else {
		q.scale = rng / 15.0
	}

	q.codes = newAlignedBuffer(n * q.dAlign / 2)
	q.query = newAlignedBuffer(q.dAlign / 2)

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

func (q *SQ4Quantizer) Encode(in []float32, out []byte) {
	for i := range out {
		out[i] = 0
	}
	// Only the first len(in) nibbles are set; the alignment tail stays
	// zero.
	for j := 0; j < q.dAlign && j < len(in); j++ {
		nibble := quantizeNibble(in[j], q.offset, q.scale)
		if j%2 == 0 {
			out[j/2] |= nibble
		} else {
			out[j/2] |= nibble << 4
		}
	}
}

func quantizeNibble(x, offset, scale float32) byte {
	normalized := (x - offset) / scale
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 15 {
		normalized = 15
	}
	return byte(math.Round(float64(normalized)))
}

func (q *SQ4Quantizer) Decode(code []byte, out []float32) {
	for j := 0; j < q.dim; j++ {
		var nibble byte
		if j%2 == 0 {
			nibble = code[j/2] & 0x0F
		} else {
			nibble = (code[j/2] >> 4) & 0x0F
		}
		out[j] = float32(nibble)*q.scale + q.offset
	}
}

func (q *SQ4Quantizer) Code(i int) []byte {
	stride := q.dAlign / 2
	return q.codes[i*stride : (i+1)*stride]
}

func (q *SQ4Quantizer) EncodeQuery(query []float32) {
	q.Encode(query, q.query)
	if q.companion != nil {
		q.companion.EncodeQuery(query)
	}
}

func (q *SQ4Quantizer) QueryDistance(i int) float32 {
	return q.QueryDistanceRaw(q.Code(i))
}

func (q *SQ4Quantizer) QueryDistanceRaw(code []byte) float32 {
	return distance.L2SqrPacked(q.query, code, q.dAlign)
}

func (q *SQ4Quantizer) Prefetch(i, lines int) {
	code := q.Code(i)
	const lineSize = 64
	for l := 0; l < lines && l*lineSize < len(code); l++ {
		_ = code[l*lineSize]
	}
}

func (q *SQ4Quantizer) CodeSize() int { return q.dAlign / 2 }
func (q *SQ4Quantizer) Dim() int      { return q.dim }
func (q *SQ4Quantizer) Name() string  { return "sq4" }

// Clone shares codes/offset/scale/companion with q but allocates an
// independent query buffer (§5's per-engine quantizer reentrancy note).
func (q *SQ4Quantizer) Clone() Quantizer {
	clone := *q
	clone.query = newAlignedBuffer(q.dAlign / 2)
	if q.companion != nil {
		clone.companion = q.companion.Clone().(*FP32Quantizer)
	}
	return &clone
}

// Reorder follows the identical rule SQ8 uses (§4.B.3).
func (q *SQ4Quantizer) Reorder(pool PoolView, rawQuery []float32, out []int32, k int) {
	reorderWithCompanion(q.companion, pool, rawQuery, out, k)
}
