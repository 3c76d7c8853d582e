package bsplice

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// ErrDone is returned by a body stage that needs no more input for the request. It is not a failure: stages that
// forward a delivery must not treat it as one, see [Failed].
var ErrDone = errors.New("bsplice: done")

// ErrSubrequestLimit is returned when a main request tries to start more nested requests than allowed.
var ErrSubrequestLimit = errors.New("bsplice: too many subrequests")

// ErrNoSubrequester is returned when a request that cannot start nested requests is asked to.
var ErrNoSubrequester = errors.New("bsplice: request has no subrequester")

// Failed reports whether the result of forwarding a delivery or header is a failure.
func Failed(err error) bool {
	return err != nil && !errors.Is(err, ErrDone)
}

// Code is an error code that mirrors the http status codes. Handlers return it (wrapped in an [*Error]) so the host can
// render a matching response when nothing has been sent yet.
type Code int

const (
	CodeUnknown             Code = 0
	CodeBadRequest          Code = http.StatusBadRequest          // RFC 9110, 15.5.1
	CodeForbidden           Code = http.StatusForbidden           // RFC 9110, 15.5.4
	CodeNotFound            Code = http.StatusNotFound            // RFC 9110, 15.5.5
	CodeMethodNotAllowed    Code = http.StatusMethodNotAllowed    // RFC 9110, 15.5.6
	CodeRequestTimeout      Code = http.StatusRequestTimeout      // RFC 9110, 15.5.9
	CodeInternalServerError Code = http.StatusInternalServerError // RFC 9110, 15.6.1
	CodeBadGateway          Code = http.StatusBadGateway          // RFC 9110, 15.6.3
	CodeServiceUnavailable  Code = http.StatusServiceUnavailable  // RFC 9110, 15.6.4
	CodeGatewayTimeout      Code = http.StatusGatewayTimeout      // RFC 9110, 15.6.5
)

// Error describes an http error.
type Error struct {
	code Code
	err  error
}

// NewError inits a new error given the error code.
func NewError(c Code, underlying error) *Error {
	return &Error{c, underlying}
}

func (e *Error) Code() Code    { return e.code }
func (e *Error) Unwrap() error { return e.err }
func (e *Error) Error() string {
	status := http.StatusText(int(e.Code()))
	if status == "" {
		status = "Unknown"
	}

	return fmt.Sprintf("%s: %s", status, e.err.Error())
}

// CodeOf returns the error's status code if it is or wraps an [*Error] and
// [CodeUnknown] otherwise.
func CodeOf(err error) Code {
	var herr *Error
	if errors.As(err, &herr) {
		return herr.Code()
	}

	return CodeUnknown
}

// statusOf picks the status code to render for a handler error.
func statusOf(err error) int {
	if c := CodeOf(err); c != CodeUnknown && http.StatusText(int(c)) != "" {
		return int(c)
	}

	return http.StatusInternalServerError
}
