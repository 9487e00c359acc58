package apperrors

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrBadRequest      = errors.New("bad request")
	ErrUnauthenticated = errors.New("could not validate credentials")
)

// RequestError carries a client-facing message for a failed request.
// It matches ErrBadRequest under errors.Is and unwraps to the underlying cause.
type RequestError struct {
	Message string
	Cause   error
}

func (e *RequestError) Error() string {
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Cause
}

func (e *RequestError) Is(target error) bool {
	return target == ErrBadRequest
}

// BadRequest returns a validation failure with the given message.
func BadRequest(message string) error {
	return &RequestError{Message: message}
}

// External wraps a failure reported by an external system (a datasource or the
// compute cluster) so that its text reaches the caller as a bad request.
func External(err error) error {
	if err == nil {
		return nil
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return err
	}
	return &RequestError{Message: err.Error(), Cause: err}
}

// Message returns the client-facing text of err if it is a RequestError.
func Message(err error) (string, bool) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Message, true
	}
	return "", false
}
