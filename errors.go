package fk

import "errors"

// Errors returned while wrapping memory.
var (
	// ErrInvalidDimensions is returned when width, height or plane count is negative
	// (or the plane count is zero).
	ErrInvalidDimensions = errors.New("fk: invalid dimensions")

	// ErrInvalidFormat is returned when an element format is not recognized.
	ErrInvalidFormat = errors.New("fk: invalid format")

	// ErrInvalidStride is returned when the row pitch is smaller than a row of pixels.
	ErrInvalidStride = errors.New("fk: pitch too small for width")

	// ErrDataTooSmall is returned when a buffer cannot hold the described region.
	ErrDataTooSmall = errors.New("fk: data buffer too small")
)

// Build-time contract violations. They are reported before any launch.
var (
	// ErrChannelMismatch is returned when a scalar, a destination list or a
	// format does not have the channel count the operation requires.
	ErrChannelMismatch = errors.New("fk: channel count mismatch")

	// ErrTypeMismatch is returned when the output format of a stage differs
	// from the input format of the next one.
	ErrTypeMismatch = errors.New("fk: stage format mismatch")

	// ErrInvalidChain is returned for chains that do not start with exactly
	// one read and end with exactly one write.
	ErrInvalidChain = errors.New("fk: invalid chain")

	// ErrBatchLength is returned when batch parameter arrays differ in length,
	// are empty, or the active plane count is out of range.
	ErrBatchLength = errors.New("fk: batch length mismatch")

	// ErrBatchMismatch is returned when batch planes differ in kind or format.
	ErrBatchMismatch = errors.New("fk: batch planes differ")

	// ErrInvalidSize is returned for resize targets or scale factors that do
	// not describe a positive output size.
	ErrInvalidSize = errors.New("fk: invalid size")

	// ErrDegenerate is returned by single-plane builders for a source with
	// zero width or height. Batch builders log it and mark the plane inactive.
	ErrDegenerate = errors.New("fk: degenerate source geometry")

	// ErrExtentMismatch is returned when a destination cannot hold the
	// output extent of a chain.
	ErrExtentMismatch = errors.New("fk: destination smaller than output extent")
)

// Submission-time faults.
var (
	// ErrSubmission wraps every fault reported by a stream right after a
	// launch was submitted. Such faults are fatal for the call.
	ErrSubmission = errors.New("fk: launch submission failed")

	// ErrInvalidLaunch is reported by a stream for a malformed launch
	// configuration.
	ErrInvalidLaunch = errors.New("fk: invalid launch configuration")

	// ErrStreamClosed is reported when submitting to a closed stream.
	ErrStreamClosed = errors.New("fk: stream closed")

	// ErrFallbackToCPU indicates that no accelerator device is available.
	ErrFallbackToCPU = errors.New("fk: falling back to CPU execution")
)
