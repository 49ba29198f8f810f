package ports

import (
	"context"
	"time"

	"github.com/modelrelay/modelrelay/internal/core/domain"
)

// ConfigStore loads and persists the fallback configuration document.
// Load must tolerate malformed content and degrade to an empty, disabled
// configuration rather than fail the process.
type ConfigStore interface {
	Load(ctx context.Context) (domain.FallbackConfig, error)
	Save(ctx context.Context, cfg domain.FallbackConfig) error
}

// RouteCache remembers the last-successful fallback entry per virtual
// model for a bounded window (sticky routing).
type RouteCache interface {
	Get(ctx context.Context, virtualModel string) (domain.CachedEntryInfo, bool)
	Set(ctx context.Context, virtualModel string, info domain.CachedEntryInfo) error
	Delete(ctx context.Context, virtualModel string) error
}

// UpstreamResponse is the raw result of one backend attempt. Body and
// status are kept verbatim so exhaustion can surface the real upstream
// diagnostic to the caller.
type UpstreamResponse struct {
	StatusCode int
	Headers    map[string][]string
	Body       []byte
}

// Upstream sends a translated request body to a provider backend.
// Implementations must honor ctx cancellation and deadlines.
type Upstream interface {
	Send(ctx context.Context, provider, model string, body []byte) (*UpstreamResponse, error)
}

// TokenSource yields a usable bearer credential for a provider. Acquisition
// and refresh live outside this engine; a failed lookup is treated by the
// dispatcher as just another fallback-triggering error.
type TokenSource interface {
	Token(ctx context.Context, provider string) (string, error)
}

// Attempt records one backend attempt made by the dispatcher.
type Attempt struct {
	ID                string
	RequestID         string
	VirtualModel      string
	EntryID           string
	Provider          string
	ModelID           string
	StatusCode        int
	TriggeredFallback bool
	Terminal          string // succeeded, canceled, or empty while the chain keeps walking
	LatencyMS         int64
	CreatedAt         time.Time
}

// AttemptSink receives dispatch attempts for asynchronous persistence.
type AttemptSink interface {
	Record(a *Attempt)
}
