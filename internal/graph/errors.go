package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an API failure for the resolver's cascade decisions.
type Kind int

const (
	KindOther Kind = iota
	KindNotFound
	KindAccessDenied
	KindThrottled
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindAccessDenied:
		return "access_denied"
	case KindThrottled:
		return "throttled"
	default:
		return "other"
	}
}

// Error is a classified API failure. Status and Body are retained raw for
// diagnostics; RequestID is the server-side correlation id when present.
type Error struct {
	Kind      Kind
	Status    int
	Endpoint  string
	Code      string // service error code from the response body
	Message   string
	RequestID string
	Body      string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("graph: %s %s (%d %s)", e.Endpoint, e.Code, e.Status, e.Kind)
	}
	return fmt.Sprintf("graph: %s failed (%d %s)", e.Endpoint, e.Status, e.Kind)
}

// IsNotFound reports whether err is an API not-found failure.
func IsNotFound(err error) bool {
	return errKind(err) == KindNotFound
}

// IsAccessDenied reports whether err is an API access-denied failure.
func IsAccessDenied(err error) bool {
	return errKind(err) == KindAccessDenied
}

func errKind(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindOther
}

// errorBody is the service's error envelope.
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// classify maps an HTTP status plus error body onto a Kind. The service
// reports path misses as 404, but some malformed-path responses come back
// as 400 with an itemNotFound code, so the body code is consulted too.
func classify(status int, body []byte) (Kind, string, string) {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)

	code := eb.Error.Code

	switch {
	case status == http.StatusNotFound || code == "itemNotFound":
		return KindNotFound, code, eb.Error.Message
	case status == http.StatusUnauthorized || status == http.StatusForbidden ||
		code == "accessDenied" || code == "notAllowed":
		return KindAccessDenied, code, eb.Error.Message
	case status == http.StatusTooManyRequests:
		return KindThrottled, code, eb.Error.Message
	default:
		return KindOther, code, eb.Error.Message
	}
}
