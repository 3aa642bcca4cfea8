// Package errors defines the sentinel errors shared by the index builder and
// the BuildError type that carries the stage, bucket, and file implicated in
// a fatal build failure.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedRecord = errors.New("malformed record")
	ErrMissingID       = errors.New("missing document id")
	ErrMalformedID     = errors.New("malformed document id")
	ErrSpillIO         = errors.New("spill storage failure")
	ErrChunkWrite      = errors.New("chunk write failure")
	ErrManifestWrite   = errors.New("manifest write failure")
	ErrOutputWrite     = errors.New("output write failure")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrIncompleteIndex = errors.New("incomplete index")
)

// Stage names the build phase a BuildError was raised in.
type Stage string

const (
	StagePrepare   Stage = "prepare"
	StagePartition Stage = "partition"
	StageMerge     Stage = "merge"
	StageCatalog   Stage = "catalog"
	StageManifest  Stage = "manifest"
)

// BuildError is a fatal build failure. Err is one of the sentinels above and
// Cause is the underlying error.
type BuildError struct {
	Err    error
	Stage  Stage
	Bucket string
	Path   string
	Cause  error
}

func (e *BuildError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Stage, e.Err.Error())
	if e.Bucket != "" {
		msg += fmt.Sprintf(" (bucket %s)", e.Bucket)
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" (file %s)", e.Path)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *BuildError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func New(sentinel error, stage Stage, cause error) *BuildError {
	return &BuildError{
		Err:   sentinel,
		Stage: stage,
		Cause: cause,
	}
}

func NewBucket(sentinel error, stage Stage, bucket, path string, cause error) *BuildError {
	return &BuildError{
		Err:    sentinel,
		Stage:  stage,
		Bucket: bucket,
		Path:   path,
		Cause:  cause,
	}
}

// Newf wraps a formatted message with a sentinel so errors.Is still matches.
func Newf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}

// IsFatal reports whether err should stop a build run. Per-record problems
// are absorbed by the caller and never reach this check.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var be *BuildError
	if errors.As(err, &be) {
		return true
	}
	return !errors.Is(err, ErrMalformedRecord)
}

// SkipReason maps a record-level error to a short label for counters and
// logs.
func SkipReason(err error) string {
	switch {
	case errors.Is(err, ErrMissingID):
		return "missing_id"
	case errors.Is(err, ErrMalformedID):
		return "malformed_id"
	case errors.Is(err, ErrMalformedRecord):
		return "malformed"
	default:
		return "unknown"
	}
}
