package v1

import (
	"context"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"

	"github.com/modelrelay/modelrelay/internal/core/domain"
	"github.com/modelrelay/modelrelay/internal/core/ports"
	"github.com/modelrelay/modelrelay/internal/fallback"
	"github.com/modelrelay/modelrelay/internal/translate"
)

type DispatchHandler struct {
	dispatcher *fallback.Dispatcher
	upstream   ports.Upstream
}

func NewDispatchHandler(dispatcher *fallback.Dispatcher, upstream ports.Upstream) *DispatchHandler {
	return &DispatchHandler{
		dispatcher: dispatcher,
		upstream:   upstream,
	}
}

// CreateCompletion accepts a completion request in any supported wire
// format, resolves the model name against the virtual model registry and
// relays the winning backend's response verbatim.
func (h *DispatchHandler) CreateCompletion(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		_ = c.Error(domain.BadRequestError("Failed to read request body"))
		return
	}

	model := gjson.GetBytes(body, "model").String()
	if model == "" {
		_ = c.Error(domain.BadRequestError("Request body is missing the 'model' field"))
		return
	}

	// The caller's format is not declared out of band; shape detection on
	// the body decides how to translate per entry.
	result, err := h.dispatcher.Dispatch(c.Request.Context(), model, "", body)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			c.Abort()
		case errors.Is(err, fallback.ErrEmptyChain):
			_ = c.Error(domain.ConflictError("Virtual model has no fallback entries configured"))
		default:
			var problem *domain.Problem
			if errors.As(err, &problem) {
				_ = c.Error(problem)
				return
			}
			_ = c.Error(domain.InternalError("Failed to dispatch request", err))
		}
		return
	}

	if result.Bypassed {
		h.passthrough(c, model, body)
		return
	}

	c.Header("X-Relay-Provider", result.Entry.Provider)
	c.Header("X-Relay-Model", result.Entry.ModelID)
	if result.Exhausted {
		c.Header("X-Relay-Exhausted", "true")
	}
	relay(c, result.Response)
}

// passthrough forwards the unmodified request to a concrete provider when
// the model name resolves to no enabled virtual model. The target provider
// comes from the X-Target-Provider header, or from the body shape when the
// header is absent.
func (h *DispatchHandler) passthrough(c *gin.Context, model string, body []byte) {
	provider := c.GetHeader("X-Target-Provider")
	if provider == "" {
		switch translate.Detect(body) {
		case domain.FormatAnthropic:
			provider = "anthropic"
		case domain.FormatGoogle:
			provider = "google"
		default:
			provider = "openai"
		}
	}

	resp, err := h.upstream.Send(c.Request.Context(), provider, model, body)
	if err != nil {
		_ = c.Error(domain.UpstreamError("Passthrough request failed", err))
		return
	}

	c.Header("X-Relay-Provider", provider)
	c.Header("X-Relay-Bypassed", "true")
	relay(c, resp)
}

// relay writes an upstream response back verbatim: status, content type and
// body untouched.
func relay(c *gin.Context, resp *ports.UpstreamResponse) {
	contentType := "application/json"
	if ct, ok := resp.Headers["Content-Type"]; ok && len(ct) > 0 {
		contentType = ct[0]
	}
	c.Data(resp.StatusCode, contentType, resp.Body)
}
