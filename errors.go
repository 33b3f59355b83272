package vann

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/hupe1980/vann/builder"
	"github.com/hupe1980/vann/fvecs"
	"github.com/hupe1980/vann/graph"
	"github.com/hupe1980/vann/persistence"
	"github.com/hupe1980/vann/quantization"
	"github.com/hupe1980/vann/search"
)

// The five error kinds of §7. Internal packages return their own
// typed errors; translateError maps them onto these at the façade
// boundary so callers have one small, stable vocabulary to check
// with errors.Is.
var (
	// ErrInvalidArgument covers dim mismatch, negative k, unknown
	// metric/algorithm/quantizer, and corpus/query shape disagreement.
	ErrInvalidArgument = errors.New("vann: invalid argument")

	// ErrNotInitialized is returned when search is attempted before
	// data is set or before a graph is loaded.
	ErrNotInitialized = errors.New("vann: not initialized")

	// ErrFileIO covers a missing/unreadable path, a truncated or
	// size-inconsistent fvecs file, or a malformed index file.
	ErrFileIO = errors.New("vann: file I/O error")

	// ErrMemory is returned on aligned allocation failure.
	ErrMemory = errors.New("vann: memory allocation error")

	// ErrUnsupported is returned for a metric/code-type combination
	// with no kernel (e.g. cosine on SQ4).
	ErrUnsupported = errors.New("vann: unsupported operation")
)

// ErrDimensionMismatch is a sharper, structured form of
// ErrInvalidArgument for callers that want the expected/actual shape.
//
// The original underlying error (if any) can be accessed via
// errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("vann: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// ErrInvalidMetric is a sharper, structured form of
// ErrInvalidArgument naming the offending metric.
type ErrInvalidMetric struct {
	Metric int
	cause  error
}

func (e *ErrInvalidMetric) Error() string {
	return fmt.Sprintf("vann: invalid metric: %d", e.Metric)
}

func (e *ErrInvalidMetric) Unwrap() error { return e.cause }

// translateError maps an internal package error onto the façade's
// error kinds. Lower layers never log or print (§7); this is the one
// place that boundary is crossed.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, graph.ErrNotInitialized),
		errors.Is(err, search.ErrNotInitialized):
		return fmt.Errorf("%w: %w", ErrNotInitialized, err)

	case errors.Is(err, search.ErrDimMismatch):
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)

	case errors.Is(err, search.ErrInvalidArgument),
		errors.Is(err, builder.ErrInvalidArgument):
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)

	case errors.Is(err, quantization.ErrUnsupported):
		return fmt.Errorf("%w: %w", ErrUnsupported, err)

	case errors.Is(err, quantization.ErrNotTrained):
		return fmt.Errorf("%w: %w", ErrNotInitialized, err)

	case errors.Is(err, fvecs.ErrInconsistentDim),
		errors.Is(err, fvecs.ErrTruncated),
		errors.Is(err, fs.ErrNotExist),
		errors.Is(err, fs.ErrPermission),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.As(err, new(*persistence.ChecksumMismatchError)):
		return fmt.Errorf("%w: %w", ErrFileIO, err)
	}

	return err
}
