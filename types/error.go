package types

import (
	"github.com/juju/errors"
)

var (
	_ error = &GraphCycleError{}
	_ error = &UnsupportedNodeTypeError{}
	_ error = &ValidationError{}
	_ error = &AdapterRequestError{}
	_ error = &JobFailedError{}
	_ error = &TimeoutError{}
)

// GraphCycleError means the resolver could not order the graph; execution is refused.
type GraphCycleError struct {
	*baseError
	Pipeline string
}

func NewGraphCycleErrorf(pipeline, format string, args ...interface{}) error {
	return &GraphCycleError{baseError: newBaseErr(errors.Errorf(format, args...)), Pipeline: pipeline}
}

// UnsupportedNodeTypeError means no adapter is registered for a node's type.
type UnsupportedNodeTypeError struct {
	*baseError
	Type NodeType
}

func NewUnsupportedNodeTypeError(typ NodeType) error {
	return &UnsupportedNodeTypeError{baseError: newBaseErr(errors.Errorf("no adapter for node type %q", typ)), Type: typ}
}

// ValidationError means an adapter precondition was unmet; no network call was attempted.
type ValidationError struct {
	*baseError
}

func NewValidationError(otherErr error) error {
	return &ValidationError{baseError: newBaseErr(otherErr)}
}

func NewValidationErrorf(format string, args ...interface{}) error {
	return NewValidationError(errors.Errorf(format, args...))
}

// AdapterRequestError wraps a network or HTTP failure during submit or poll.
type AdapterRequestError struct {
	*baseError
}

func NewAdapterRequestError(otherErr error) error {
	return &AdapterRequestError{baseError: newBaseErr(otherErr)}
}

func NewAdapterRequestErrorf(format string, args ...interface{}) error {
	return NewAdapterRequestError(errors.Errorf(format, args...))
}

// JobFailedError means the backend reported a terminal error status for a job.
type JobFailedError struct {
	*baseError
}

func NewJobFailedErrorf(format string, args ...interface{}) error {
	return &JobFailedError{baseError: newBaseErr(errors.Errorf(format, args...))}
}

// TimeoutError means polling exceeded its wall-clock budget. The remote job is
// not cancelled; only the local state is marked failed.
type TimeoutError struct {
	*baseError
}

func NewTimeoutErrorf(format string, args ...interface{}) error {
	return &TimeoutError{baseError: newBaseErr(errors.Errorf(format, args...))}
}

func IsGraphCycleError(err error) bool {
	_, ok := unwrapErr(err).(*GraphCycleError)
	return ok
}

func IsUnsupportedNodeTypeError(err error) bool {
	_, ok := unwrapErr(err).(*UnsupportedNodeTypeError)
	return ok
}

func IsValidationError(err error) bool {
	_, ok := unwrapErr(err).(*ValidationError)
	return ok
}

func IsAdapterRequestError(err error) bool {
	_, ok := unwrapErr(err).(*AdapterRequestError)
	return ok
}

func IsJobFailedError(err error) bool {
	_, ok := unwrapErr(err).(*JobFailedError)
	return ok
}

func IsTimeoutError(err error) bool {
	_, ok := unwrapErr(err).(*TimeoutError)
	return ok
}

func newBaseErr(otherErr error) *baseError {
	return &baseError{otherErr}
}

// unwrapErr walks juju/errors annotation wrappers down to the typed error, so
// classification survives errors.Trace/Annotate along the propagation path.
func unwrapErr(err error) error {
	for err != nil {
		switch err.(type) {
		case *GraphCycleError, *UnsupportedNodeTypeError, *ValidationError,
			*AdapterRequestError, *JobFailedError, *TimeoutError:
			return err
		}
		cause := errors.Unwrap(err)
		if cause == nil || cause == err {
			return err
		}
		err = cause
	}
	return nil
}

type baseError struct {
	BaseErr error
}

func (e *baseError) Error() string {
	return e.BaseErr.Error()
}

func (e *baseError) Unwrap() error {
	return e.BaseErr
}
