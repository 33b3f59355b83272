package quantization

import "unsafe"

// valueAlign is the per-dimension alignment unit from §3: dim is
// rounded up to 16 before computing a code stride.
const valueAlign = 16

// byteAlign is the code buffer alignment required by §3: every
// get_code(i) pointer must be a multiple of 64.
const byteAlign = 64

func alignDim(d int) int {
	return (d + valueAlign - 1) / valueAlign * valueAlign
}

// newAlignedBuffer returns a byte slice of exactly n bytes whose
// first element's address is a multiple of byteAlign. It over-
// allocates and slices forward to the first aligned offset, at the
// 64-byte granularity §3 requires for SIMD-accessed code buffers.
func newAlignedBuffer(n int) []byte {
	if n == 0 {
		return make([]byte, 0)
	}
	buf := make([]byte, n+byteAlign-1)
	addr := uintptr(unsafe.Pointer(&buf[0]))
	off := int((byteAlign - addr%byteAlign) % byteAlign)
	return buf[off : off+n : off+n]
}

// AlignedFloat32 returns a float32 slice of exactly n elements whose
// first element's address is a multiple of byteAlign (64), the same
// guarantee newAlignedBuffer gives code buffers. Callers outside this
// package (the fvecs loader, per §3/§12.3) use this so a decoded
// corpus can be handed to Train without a defensive copy.
func AlignedFloat32(n int) []float32 {
	raw := newAlignedBuffer(n * 4)
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&raw[0])), n)
}
