// Package fvecs loads the record-oriented vector file formats used by
// the CLI driver (§6): fvecs (dim:i32 + dim×f32 per record) for base
// and query corpora, and the matching ivecs variant for ground-truth
// neighbor lists.
package fvecs
