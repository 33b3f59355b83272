package simd

// Scalar reference kernels. Every tiered kernel below must agree with
// these to within the floating-point tolerance permitted by §4.A
// (reassociation inside a reduction, ≤1e-5 relative error).

func l2SqrGeneric(a, b []float32) float32 {
	var sum float32
	for i := 0; i < len(a); i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func ipGeneric(a, b []float32) float32 {
	var sum float32
	for i := 0; i < len(a); i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// l2SqrLanes2/4/8 accumulate into 2/4/8 independent lanes before a
// final horizontal sum, the same reassociation a 128/256/512-bit
// reduction would perform. They process any trailing remainder with
// the scalar loop.
func l2SqrLanes2(a, b []float32) float32 {
	n := len(a)
	lanes := n - n%2
	var s0, s1 float32
	for i := 0; i < lanes; i += 2 {
		d0 := a[i] - b[i]
		d1 := a[i+1] - b[i+1]
		s0 += d0 * d0
		s1 += d1 * d1
	}
	sum := s0 + s1
	for i := lanes; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func l2SqrLanes4(a, b []float32) float32 {
	n := len(a)
	lanes := n - n%4
	var s0, s1, s2, s3 float32
	for i := 0; i < lanes; i += 4 {
		d0 := a[i] - b[i]
		d1 := a[i+1] - b[i+1]
		d2 := a[i+2] - b[i+2]
		d3 := a[i+3] - b[i+3]
		s0 += d0 * d0
		s1 += d1 * d1
		s2 += d2 * d2
		s3 += d3 * d3
	}
	sum := s0 + s1 + s2 + s3
	for i := lanes; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func l2SqrLanes8(a, b []float32) float32 {
	n := len(a)
	lanes := n - n%8
	var s [8]float32
	for i := 0; i < lanes; i += 8 {
		for j := 0; j < 8; j++ {
			d := a[i+j] - b[i+j]
			s[j] += d * d
		}
	}
	sum := s[0] + s[1] + s[2] + s[3] + s[4] + s[5] + s[6] + s[7]
	for i := lanes; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func ipLanes2(a, b []float32) float32 {
	n := len(a)
	lanes := n - n%2
	var s0, s1 float32
	for i := 0; i < lanes; i += 2 {
		s0 += a[i] * b[i]
		s1 += a[i+1] * b[i+1]
	}
	sum := s0 + s1
	for i := lanes; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func ipLanes4(a, b []float32) float32 {
	n := len(a)
	lanes := n - n%4
	var s0, s1, s2, s3 float32
	for i := 0; i < lanes; i += 4 {
		s0 += a[i] * b[i]
		s1 += a[i+1] * b[i+1]
		s2 += a[i+2] * b[i+2]
		s3 += a[i+3] * b[i+3]
	}
	sum := s0 + s1 + s2 + s3
	for i := lanes; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func ipLanes8(a, b []float32) float32 {
	n := len(a)
	lanes := n - n%8
	var s [8]float32
	for i := 0; i < lanes; i += 8 {
		for j := 0; j < 8; j++ {
			s[j] += a[i+j] * b[i+j]
		}
	}
	sum := s[0] + s[1] + s[2] + s[3] + s[4] + s[5] + s[6] + s[7]
	for i := lanes; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func l2SqrU8Generic(a, b []byte) float32 {
	var sum float32
	for i := 0; i < len(a); i++ {
		d := float32(a[i]) - float32(b[i])
		sum += d * d
	}
	return sum
}

func ipU8Generic(a, b []byte) float32 {
	var sum float32
	for i := 0; i < len(a); i++ {
		sum += float32(a[i]) * float32(b[i])
	}
	return sum
}

// l2SqrU4Generic unpacks two nibble-packed SQ4 codes (low nibble at
// even logical index, high nibble at odd) and sums squared
// differences over n logical values.
func l2SqrU4Generic(a, b []byte, n int) float32 {
	var sum float32
	for j := 0; j < n; j++ {
		var av, bv byte
		if j%2 == 0 {
			av = a[j/2] & 0x0F
			bv = b[j/2] & 0x0F
		} else {
			av = (a[j/2] >> 4) & 0x0F
			bv = (b[j/2] >> 4) & 0x0F
		}
		d := float32(av) - float32(bv)
		sum += d * d
	}
	return sum
}
