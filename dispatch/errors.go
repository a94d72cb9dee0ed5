package dispatch

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

var (
	// ErrRequest indicates that the API answered a request with a non-2xx status.
	ErrRequest = errors.New("dispatch: request failed")

	// ErrUnsupportedMethod indicates a RequestSpec method other than GET, PUT, POST or DELETE.
	ErrUnsupportedMethod = errors.New("dispatch: unsupported method")

	// ErrDecode indicates a successful GET whose body is not valid JSON.
	ErrDecode = errors.New("dispatch: invalid response body")
)

// MethodError reports a RequestSpec method the API does not use.
type MethodError struct {
	Method string
}

// Error names the rejected method.
func (e *MethodError) Error() string {
	return fmt.Sprintf("dispatch: unsupported method %q", e.Method)
}

// Is enables errors.Is(err, ErrUnsupportedMethod).
func (e *MethodError) Is(target error) bool {
	return target == ErrUnsupportedMethod
}

// RequestError reports a non-2xx response from a resource endpoint.
type RequestError struct {
	Method     string
	URL        string
	StatusCode int
	// Body is the response payload verbatim.
	Body string
	// Message is the upstream error message, if the payload carried one.
	Message string
}

// Error returns a message including method, URL and status.
func (e *RequestError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("dispatch: %s %s returned status %d: %s", e.Method, e.URL, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("dispatch: %s %s returned status %d", e.Method, e.URL, e.StatusCode)
}

// Is enables errors.Is(err, ErrRequest).
func (e *RequestError) Is(target error) bool {
	return target == ErrRequest
}

// upstreamMessage extracts the error message of a Web API or OAuth2 error payload.
func upstreamMessage(body []byte) string {
	for _, path := range []string{"error.message", "error_description", "error"} {
		if v := gjson.GetBytes(body, path); v.Exists() && v.Type == gjson.String {
			return v.String()
		}
	}
	return ""
}
