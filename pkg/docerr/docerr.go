// Package docerr defines the stable error classification used across the
// document engine.
//
// Every failure that crosses a package boundary is classified into one of a
// fixed set of codes so callers can branch on the class instead of parsing
// messages. The underlying cause stays attached for server-side logs while
// Message carries the generic text that is safe to surface to callers.
package docerr

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Code identifies a stable error class.
type Code string

// The set of codes is fixed; new failure modes must map onto one of these.
const (
	Validation        Code = "VALIDATION_ERROR"
	PDFCorrupted      Code = "PDF_CORRUPTED"
	FileSizeExceeded  Code = "FILE_SIZE_EXCEEDED"
	InvalidImage      Code = "INVALID_IMAGE"
	QuotaExceeded     Code = "QUOTA_EXCEEDED"
	RateLimitExceeded Code = "RATE_LIMIT_EXCEEDED"
	PermissionDenied  Code = "PERMISSION_DENIED"
	Timeout           Code = "TIMEOUT"
	RecognitionFailed Code = "RECOGNITION_FAILED"
)

// Error couples a code with a generic message and an optional wrapped cause.
type Error struct {
	Code       Code
	Message    string // generic text, safe to surface to callers
	Page       int    // page index the error applies to, -1 when not page-scoped
	RetryAfter int    // seconds to wait before retrying, 0 when not applicable
	Err        error  // underlying cause, for logs only
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *Error) Unwrap() error { return e.Err }

// New creates a classified error without an underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message, Page: -1}
}

// Newf creates a classified error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Page: -1}
}

// Wrap attaches a classification to an underlying error.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Page: -1, Err: err}
}

// OnPage marks the error as scoped to a single page and returns it.
func (e *Error) OnPage(page int) *Error {
	e.Page = page
	return e
}

// WithRetryAfter attaches a back-off hint in seconds and returns the error.
func (e *Error) WithRetryAfter(seconds int) *Error {
	e.RetryAfter = seconds
	return e
}

// CodeOf extracts the classification from an error chain.
// Unclassified errors report an empty Code.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// HasCode reports whether the error chain carries the given code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// Classify maps an upstream recognition failure onto the taxonomy.
// Already-classified errors pass through unchanged. gRPC status codes from
// the recognition service translate as follows: resource exhaustion becomes
// QuotaExceeded (with any server-provided retry hint), a rejected payload
// becomes InvalidImage, credential failures become PermissionDenied and
// exceeded deadlines become Timeout. Everything else is RecognitionFailed,
// which keeps the full cause for logs but surfaces only a generic message.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var de *Error
	if errors.As(err, &de) {
		return de
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(Timeout, "operation timed out", err)
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.ResourceExhausted:
			e := Wrap(QuotaExceeded, "recognition quota exhausted", err)
			for _, d := range st.Details() {
				if ri, ok := d.(*errdetails.RetryInfo); ok && ri.RetryDelay != nil {
					e.RetryAfter = int(ri.RetryDelay.Seconds)
				}
			}
			return e
		case codes.InvalidArgument:
			return Wrap(InvalidImage, "image rejected by recognition service", err)
		case codes.PermissionDenied, codes.Unauthenticated:
			return Wrap(PermissionDenied, "recognition credentials rejected", err)
		case codes.DeadlineExceeded:
			return Wrap(Timeout, "recognition call timed out", err)
		}
	}

	return Wrap(RecognitionFailed, "text recognition failed", err)
}
