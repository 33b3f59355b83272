package search

import "errors"

// ErrNotInitialized is returned by Search/BatchSearch/Optimize when
// called before a successful Searcher construction with trained
// corpus data (§4.G "Failure": searching before set_data is an error).
var ErrNotInitialized = errors.New("search: searcher has no corpus data")

// ErrDimMismatch is returned when a query's length does not match
// the trained corpus dimension.
var ErrDimMismatch = errors.New("search: query dimension mismatch")

// ErrInvalidArgument covers negative k and unknown quantizer levels.
var ErrInvalidArgument = errors.New("search: invalid argument")
