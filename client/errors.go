package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
	"github.com/wnt/empyreal/transport"
)

var (
	// ErrRateLimited matches 429 responses
	ErrRateLimited = errors.New("rate limited")
	// ErrNotFound matches 400 responses (unknown entity or rejected input)
	ErrNotFound = errors.New("not found")
	// ErrUnknownService matches 500 and every other unexpected status
	ErrUnknownService = errors.New("unknown service error")
	// ErrUnconfiguredClient is returned when no client is active in the context
	ErrUnconfiguredClient = errors.New("no client configured in context")
)

// Kind classifies an API error
type Kind int

const (
	KindUnknown Kind = iota
	KindRateLimited
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// APIError is a non-2xx response translated into a domain error
type APIError struct {
	Kind       Kind
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s (status %d)", e.sentinel(), e.StatusCode)
	}
	return fmt.Sprintf("%s (status %d): %s", e.sentinel(), e.StatusCode, e.Detail)
}

func (e *APIError) sentinel() error {
	switch e.Kind {
	case KindRateLimited:
		return ErrRateLimited
	case KindNotFound:
		return ErrNotFound
	default:
		return ErrUnknownService
	}
}

// Is lets errors.Is match the kind sentinels
func (e *APIError) Is(target error) bool {
	return target == e.sentinel()
}

// CheckResponse maps a transport result onto the error taxonomy. It is the only
// place status codes are interpreted; nil means success.
func CheckResponse(resp *transport.Response) error {
	if resp == nil {
		return &APIError{Kind: KindUnknown}
	}
	if resp.IsSuccess() {
		return nil
	}

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Detail:     detail(resp.Body),
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		apiErr.Kind = KindRateLimited
	case http.StatusBadRequest:
		apiErr.Kind = KindNotFound
	default:
		apiErr.Kind = KindUnknown
	}
	return apiErr
}

func detail(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	d := gjson.GetBytes(body, "detail")
	if !d.Exists() {
		return ""
	}
	if d.Type == gjson.String {
		return d.String()
	}
	// FastAPI validation errors put a list here.
	return d.Raw
}
