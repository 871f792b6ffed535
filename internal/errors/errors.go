// Package errors defines the failure taxonomy of the plate reader.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode identifies a class of failure.
type ErrorCode string

const (
	// CodeSegmentation marks a plate whose geometry could not be normalized or
	// segmented. The plate is skipped and flagged; nothing is guessed.
	CodeSegmentation ErrorCode = "SEGMENTATION_FAILURE"
	// CodeClassifierUnavailable marks a missing or failing character classifier.
	// It is fatal for the reader instance.
	CodeClassifierUnavailable ErrorCode = "CLASSIFIER_UNAVAILABLE"
)

// Stage names the pipeline stage a segmentation failure came from.
type Stage string

const (
	StageInput   Stage = "input"
	StageSkew    Stage = "skew"
	StageCrop    Stage = "crop"
	StageExtract Stage = "extract"
)

// codeError is a bare sentinel carrying only a code.
type codeError ErrorCode

func (e codeError) Error() string { return string(e) }

// Sentinels for errors.Is.
var (
	ErrSegmentation          error = codeError(CodeSegmentation)
	ErrClassifierUnavailable error = codeError(CodeClassifierUnavailable)
)

// SegmentationError reports why a plate crop could not be segmented.
type SegmentationError struct {
	Stage  Stage
	Reason string
	Cause  error
}

func (e *SegmentationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s (caused by: %v)", CodeSegmentation, e.Stage, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %s", CodeSegmentation, e.Stage, e.Reason)
}

func (e *SegmentationError) Unwrap() error { return e.Cause }

// Is matches ErrSegmentation.
func (e *SegmentationError) Is(target error) bool { return target == ErrSegmentation }

// NewSegmentationError builds a SegmentationError for stage.
func NewSegmentationError(stage Stage, reason string, cause error) *SegmentationError {
	return &SegmentationError{Stage: stage, Reason: reason, Cause: cause}
}

// ClassifierError reports a classifier that failed to load or to answer.
type ClassifierError struct {
	Backend string
	Message string
	Cause   error
}

func (e *ClassifierError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s (caused by: %v)", CodeClassifierUnavailable, e.Backend, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %s", CodeClassifierUnavailable, e.Backend, e.Message)
}

func (e *ClassifierError) Unwrap() error { return e.Cause }

// Is matches ErrClassifierUnavailable.
func (e *ClassifierError) Is(target error) bool { return target == ErrClassifierUnavailable }

// NewClassifierError builds a ClassifierError for the named backend.
func NewClassifierError(backend, message string, cause error) *ClassifierError {
	return &ClassifierError{Backend: backend, Message: message, Cause: cause}
}

// ToMap converts the error to fields suitable for logs and storage.
func (e *SegmentationError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"error_code": string(CodeSegmentation),
		"stage":      string(e.Stage),
		"reason":     e.Reason,
	}
	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}
	return result
}

// IsSegmentation reports whether err is, or wraps, a segmentation failure.
func IsSegmentation(err error) bool {
	return stderrors.Is(err, ErrSegmentation)
}

// IsClassifierUnavailable reports whether err is, or wraps, a classifier failure.
func IsClassifierUnavailable(err error) bool {
	return stderrors.Is(err, ErrClassifierUnavailable)
}
