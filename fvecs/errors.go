package fvecs

import "errors"

// ErrInconsistentDim is returned when a file's records do not all
// declare the same dimension.
var ErrInconsistentDim = errors.New("fvecs: inconsistent dimension across records")

// ErrTruncated is returned when a file's size is not an exact
// multiple of its record size, per §6's "loader fails" requirement.
var ErrTruncated = errors.New("fvecs: file size is not a multiple of the record size")
