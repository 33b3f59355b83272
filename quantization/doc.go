// Package quantization implements the three concrete encodings of
// §4.B: full precision (FP32), 8-bit per-dimension scalar
// quantization (SQ8), and 4-bit globally-scaled, nibble-packed scalar
// quantization (SQ4).
//
// Every quantizer trains against a corpus, exposes a stable per-id
// code pointer, and can score a previously-encoded query against any
// corpus id without re-encoding. SQ8 and SQ4 quantizers may carry an
// optional FP32 "reorder companion" used to re-rank a candidate set
// with full-precision distances once the approximate search has
// narrowed it down.
package quantization
