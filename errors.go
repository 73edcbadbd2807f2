package vecbuild

import (
	"errors"
	"fmt"

	"github.com/hupe1980/vecbuild/catalog"
	"github.com/hupe1980/vecbuild/index/ivf"
	"github.com/hupe1980/vecbuild/index/pq"
)

var (
	// ErrInvalidK is returned when a search limit is not positive.
	ErrInvalidK = errors.New("k must be positive")

	// ErrIndexExists is returned by CreateIndex when the index name is
	// taken and the builder did not request replacement.
	ErrIndexExists = catalog.ErrIndexExists

	// ErrNoVectors is returned when index construction is attempted
	// without training data.
	ErrNoVectors = errors.New("no vectors to index")
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// ErrInvalidStageParams indicates that the resolved stage parameters cannot
// train an index, for example zero sub-vectors or a dimension that is not
// divisible by the sub-vector count. The builder passes override records
// through untouched; validation happens at construction time.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidStageParams struct {
	Stage  string
	Reason string
	cause  error
}

func (e *ErrInvalidStageParams) Error() string {
	return fmt.Sprintf("invalid %s stage parameters: %s", e.Stage, e.Reason)
}

func (e *ErrInvalidStageParams) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Stage parameter normalization. The builder passes override records
	// through untouched, so malformed records surface here.
	var dnd *pq.ErrDimensionNotDivisible
	if errors.As(err, &dnd) {
		return &ErrInvalidStageParams{
			Stage:  "pq",
			Reason: dnd.Error(),
			cause:  err,
		}
	}
	if errors.Is(err, pq.ErrInvalidNumBits) {
		return &ErrInvalidStageParams{Stage: "pq", Reason: err.Error(), cause: err}
	}
	if errors.Is(err, ivf.ErrInvalidNumPartitions) {
		return &ErrInvalidStageParams{Stage: "ivf", Reason: err.Error(), cause: err}
	}

	return err
}
