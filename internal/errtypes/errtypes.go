// Package errtypes contains the error taxonomy shared by the store, the
// transfer state machine, the worker dispatcher and the web controllers.
package errtypes

import (
	"errors"
	"net/http"
	"strings"
)

// NotFound is the error to use when a record is not found.
type NotFound string

func (e NotFound) Error() string { return "error: not found: " + string(e) }

// IsNotFound implements the IsNotFound interface.
func (e NotFound) IsNotFound() {}

// Conflict is the error to use when an action is not allowed in the
// current state of a record: deleting a required record, an invalid
// status transition, or a second run while one is in flight.
type Conflict string

func (e Conflict) Error() string { return "error: conflict: " + string(e) }

// IsConflict implements the IsConflict interface.
func (e Conflict) IsConflict() {}

// FieldError is a single problem with a submitted form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (f FieldError) Error() string { return f.Field + ": " + f.Message }

// ValidationError collects every FieldError found while validating a form.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Error())
	}
	return "error: validation failed: " + strings.Join(msgs, "; ")
}

// IsValidation implements the IsValidation interface.
func (e *ValidationError) IsValidation() {}

// Add appends a field error.
func (e *ValidationError) Add(field, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: message})
}

// Merge appends the field errors of other, if any.
func (e *ValidationError) Merge(other error) {
	var ve *ValidationError
	if errors.As(other, &ve) {
		e.Errors = append(e.Errors, ve.Errors...)
	}
}

// Fields returns the errors keyed by field name. When a field has more
// than one error the first one wins.
func (e *ValidationError) Fields() map[string]string {
	out := make(map[string]string, len(e.Errors))
	for _, fe := range e.Errors {
		if _, ok := out[fe.Field]; !ok {
			out[fe.Field] = fe.Message
		}
	}
	return out
}

// ErrOrNil returns nil when no field errors were collected.
func (e *ValidationError) ErrOrNil() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}

// DispatchError means the worker pool could not be reached, or refused
// the job before running it. Stored state must not change.
type DispatchError struct {
	JobName string
	Err     error
}

func (e *DispatchError) Error() string {
	return "error: dispatch " + e.JobName + ": " + e.Err.Error()
}

func (e *DispatchError) Unwrap() error { return e.Err }

// IsDispatch implements the IsDispatch interface.
func (e *DispatchError) IsDispatch() {}

// TimeoutError means a synchronous job did not answer before its deadline.
// The outcome is unknown.
type TimeoutError struct {
	JobName string
	Err     error
}

func (e *TimeoutError) Error() string {
	return "error: timeout waiting for " + e.JobName + ": " + e.Err.Error()
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// IsTimeout implements the IsTimeout interface.
func (e *TimeoutError) IsTimeout() {}

// WorkerReportedFailure means the job ran and the worker's own result
// says it failed.
type WorkerReportedFailure struct {
	JobName string
	Reason  string
}

func (e *WorkerReportedFailure) Error() string {
	return "error: worker reported failure for " + e.JobName + ": " + e.Reason
}

// IsWorkerReportedFailure implements the IsWorkerReportedFailure interface.
func (e *WorkerReportedFailure) IsWorkerReportedFailure() {}

// IsNotFound is the interface to implement
// to specify that a record is not found.
type IsNotFound interface {
	IsNotFound()
}

// IsConflict is the interface to implement
// to specify that an action conflicts with the record's state.
type IsConflict interface {
	IsConflict()
}

// IsValidation is the interface to implement
// to specify that submitted input was rejected.
type IsValidation interface {
	IsValidation()
}

// IsDispatch is the interface to implement
// to specify that the worker pool was unreachable.
type IsDispatch interface {
	IsDispatch()
}

// IsTimeout is the interface to implement
// to specify that a job deadline elapsed.
type IsTimeout interface {
	IsTimeout()
}

// IsWorkerReportedFailure is the interface to implement
// to specify that the worker reported a failed job.
type IsWorkerReportedFailure interface {
	IsWorkerReportedFailure()
}

// HTTPStatus maps an error from this package to an HTTP status code.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var (
		nf  IsNotFound
		cf  IsConflict
		val IsValidation
		dp  IsDispatch
		to  IsTimeout
		wf  IsWorkerReportedFailure
	)
	switch {
	case errors.As(err, &val):
		return http.StatusBadRequest
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.As(err, &cf):
		return http.StatusConflict
	case errors.As(err, &dp):
		return http.StatusBadGateway
	case errors.As(err, &to):
		return http.StatusGatewayTimeout
	case errors.As(err, &wf):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
