package domain

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Problem implements RFC 9457 problem details.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	Extensions map[string]interface{} `json:"-"`

	// Log carries the internal error for server-side logging only.
	Log error `json:"-"`
}

func (p *Problem) Error() string {
	return fmt.Sprintf("[%d] %s: %s", p.Status, p.Title, p.Detail)
}

func (p *Problem) MarshalJSON() ([]byte, error) {
	type Alias Problem

	data := make(map[string]interface{})
	for k, v := range p.Extensions {
		data[k] = v
	}

	stdJSON, _ := json.Marshal(Alias(*p))
	_ = json.Unmarshal(stdJSON, &data)

	return json.Marshal(data)
}

type ProblemOption func(*Problem)

// NewProblem creates a generic Problem.
func NewProblem(status int, title, detail string, opts ...ProblemOption) *Problem {
	p := &Problem{
		Type:       "about:blank", // RFC default
		Title:      title,
		Status:     status,
		Detail:     detail,
		Extensions: make(map[string]interface{}),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// WithExtension adds a custom key-value pair to the serialized problem.
func WithExtension(key string, value interface{}) ProblemOption {
	return func(p *Problem) {
		p.Extensions[key] = value
	}
}

// WithLog attaches an internal error for server-side logging.
func WithLog(err error) ProblemOption {
	return func(p *Problem) {
		p.Log = err
	}
}

// WithType sets the RFC "type" URI.
func WithType(uri string) ProblemOption {
	return func(p *Problem) {
		p.Type = uri
	}
}

// ValidationError creates a rich validation error from a field->message map.
func ValidationError(fieldErrors map[string]string) *Problem {
	return NewProblem(
		http.StatusBadRequest,
		"Validation Error",
		"One or more fields failed validation",
		WithExtension("errors", fieldErrors),
	)
}

// BadRequestError creates a standard 400 problem.
func BadRequestError(detail string, opts ...ProblemOption) *Problem {
	return NewProblem(http.StatusBadRequest, "Bad Request", detail, opts...)
}

// NotFoundError creates a standard 404 problem.
func NotFoundError(detail string, opts ...ProblemOption) *Problem {
	return NewProblem(http.StatusNotFound, "Not Found", detail, opts...)
}

// ConflictError creates a 409 problem, used when a registry mutation is
// rejected (duplicate name, unknown id).
func ConflictError(detail string, opts ...ProblemOption) *Problem {
	return NewProblem(http.StatusConflict, "Conflict", detail, opts...)
}

// UnauthorizedError creates a 401 problem.
func UnauthorizedError(detail string) *Problem {
	return NewProblem(http.StatusUnauthorized, "Unauthorized", detail)
}

// InternalError creates a 500 problem with the original error attached
// for logging.
func InternalError(detail string, err error) *Problem {
	return NewProblem(http.StatusInternalServerError, "Internal Server Error", detail, WithLog(err))
}

// UpstreamError creates a 502 problem for failures talking to a backend.
func UpstreamError(detail string, err error) *Problem {
	return NewProblem(http.StatusBadGateway, "Upstream Provider Error", detail, WithLog(err))
}
