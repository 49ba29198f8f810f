package fallback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/modelrelay/modelrelay/internal/core/domain"
	"github.com/modelrelay/modelrelay/internal/core/ports"
	"github.com/modelrelay/modelrelay/internal/store/cache"
)

type fakeStore struct {
	mu    sync.Mutex
	cfg   domain.FallbackConfig
	fail  error
	saves int
}

func (s *fakeStore) Load(ctx context.Context) (domain.FallbackConfig, error) {
	return s.cfg, s.fail
}

func (s *fakeStore) Save(ctx context.Context, cfg domain.FallbackConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.cfg = cfg
	s.saves++
	return nil
}

type sentRequest struct {
	provider string
	model    string
	body     []byte
}

type fakeUpstream struct {
	mu    sync.Mutex
	calls []sentRequest
	send  func(ctx context.Context, provider, model string, body []byte) (*ports.UpstreamResponse, error)
}

func (u *fakeUpstream) Send(ctx context.Context, provider, model string, body []byte) (*ports.UpstreamResponse, error) {
	u.mu.Lock()
	u.calls = append(u.calls, sentRequest{provider: provider, model: model, body: body})
	u.mu.Unlock()
	return u.send(ctx, provider, model, body)
}

func (u *fakeUpstream) sentModels() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]string, len(u.calls))
	for i, c := range u.calls {
		out[i] = c.model
	}
	return out
}

type fakeSink struct {
	mu       sync.Mutex
	attempts []ports.Attempt
}

func (s *fakeSink) Record(a *ports.Attempt) {
	s.mu.Lock()
	s.attempts = append(s.attempts, *a)
	s.mu.Unlock()
}

func threeEntryConfig() domain.FallbackConfig {
	return domain.FallbackConfig{
		IsEnabled: true,
		VirtualModels: []domain.VirtualModel{{
			ID:        "vm1",
			Name:      "relay-fast",
			IsEnabled: true,
			FallbackEntries: []domain.FallbackEntry{
				{ID: "e1", Provider: "openai", ModelID: "gpt-4o", Priority: 1},
				{ID: "e2", Provider: "anthropic", ModelID: "claude-3-haiku", Priority: 2},
				{ID: "e3", Provider: "google", ModelID: "gemini-pro", Priority: 3},
			},
		}},
	}
}

func newTestDispatcher(t *testing.T, cfg domain.FallbackConfig, upstream ports.Upstream, sink ports.AttemptSink) (*Dispatcher, ports.RouteCache) {
	t.Helper()
	holder := NewConfigHolder(&fakeStore{cfg: cfg})
	require.NoError(t, holder.Load(context.Background()))
	routeCache := cache.NewMemory()
	return NewDispatcher(holder, routeCache, upstream, sink, time.Minute), routeCache
}

const inboundBody = `{"model":"relay-fast","messages":[{"role":"user","content":"hi"}]}`

func TestDispatch_ExhaustionWalksChainInOrderExactlyOnce(t *testing.T) {
	upstream := &fakeUpstream{
		send: func(ctx context.Context, provider, model string, body []byte) (*ports.UpstreamResponse, error) {
			return &ports.UpstreamResponse{StatusCode: 429, Body: []byte(`{"error":"` + model + ` overloaded"}`)}, nil
		},
	}
	sink := &fakeSink{}
	d, _ := newTestDispatcher(t, threeEntryConfig(), upstream, sink)

	result, err := d.Dispatch(context.Background(), "relay-fast", "", []byte(inboundBody))
	require.NoError(t, err)

	assert.True(t, result.Exhausted)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, []string{"gpt-4o", "claude-3-haiku", "gemini-pro"}, upstream.sentModels())

	// The caller gets the last entry's real response, not a synthesized one.
	assert.Equal(t, 429, result.Response.StatusCode)
	assert.Contains(t, string(result.Response.Body), "gemini-pro overloaded")

	require.Len(t, sink.attempts, 3)
	for _, a := range sink.attempts {
		assert.True(t, a.TriggeredFallback)
	}
}

func TestDispatch_SuccessStopsChainAndCachesEntry(t *testing.T) {
	upstream := &fakeUpstream{
		send: func(ctx context.Context, provider, model string, body []byte) (*ports.UpstreamResponse, error) {
			if model == "gpt-4o" {
				return &ports.UpstreamResponse{StatusCode: 429, Body: []byte(`{}`)}, nil
			}
			return &ports.UpstreamResponse{StatusCode: 200, Body: []byte(`{"ok":true}`)}, nil
		},
	}
	d, routeCache := newTestDispatcher(t, threeEntryConfig(), upstream, nil)

	result, err := d.Dispatch(context.Background(), "relay-fast", "", []byte(inboundBody))
	require.NoError(t, err)

	assert.False(t, result.Exhausted)
	assert.Equal(t, "e2", result.Entry.ID)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, 200, result.Response.StatusCode)

	info, ok := routeCache.Get(context.Background(), "relay-fast")
	require.True(t, ok)
	assert.Equal(t, "e2", info.EntryID)
}

func TestDispatch_StickyCacheStartsMidChainNeverWraps(t *testing.T) {
	upstream := &fakeUpstream{
		send: func(ctx context.Context, provider, model string, body []byte) (*ports.UpstreamResponse, error) {
			return &ports.UpstreamResponse{StatusCode: 503, Body: []byte(`{}`)}, nil
		},
	}
	d, routeCache := newTestDispatcher(t, threeEntryConfig(), upstream, nil)

	require.NoError(t, routeCache.Set(context.Background(), "relay-fast",
		domain.CachedEntryInfo{EntryID: "e2", CachedAt: time.Now()}))

	result, err := d.Dispatch(context.Background(), "relay-fast", "", []byte(inboundBody))
	require.NoError(t, err)

	// Only the cached entry and those after it are tried; e1 is skipped.
	assert.Equal(t, []string{"claude-3-haiku", "gemini-pro"}, upstream.sentModels())
	assert.True(t, result.Exhausted)
}

func TestDispatch_OrphanedCacheEntryStartsFromHead(t *testing.T) {
	upstream := &fakeUpstream{
		send: func(ctx context.Context, provider, model string, body []byte) (*ports.UpstreamResponse, error) {
			return &ports.UpstreamResponse{StatusCode: 200, Body: []byte(`{}`)}, nil
		},
	}
	d, routeCache := newTestDispatcher(t, threeEntryConfig(), upstream, nil)

	// Entry id no longer present in the chain (deleted by a config edit).
	require.NoError(t, routeCache.Set(context.Background(), "relay-fast",
		domain.CachedEntryInfo{EntryID: "gone", CachedAt: time.Now()}))

	result, err := d.Dispatch(context.Background(), "relay-fast", "", []byte(inboundBody))
	require.NoError(t, err)
	assert.Equal(t, "e1", result.Entry.ID)
}

func TestDispatch_CancellationDoesNotAdvanceChain(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	upstream := &fakeUpstream{
		send: func(ctx context.Context, provider, model string, body []byte) (*ports.UpstreamResponse, error) {
			cancel()
			return nil, context.Canceled
		},
	}
	d, _ := newTestDispatcher(t, threeEntryConfig(), upstream, nil)

	_, err := d.Dispatch(ctx, "relay-fast", "", []byte(inboundBody))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, upstream.sentModels(), 1, "cancellation is abandonment, not a fallback trigger")
}

func TestDispatch_TransportFailuresAdvanceThenError(t *testing.T) {
	upstream := &fakeUpstream{
		send: func(ctx context.Context, provider, model string, body []byte) (*ports.UpstreamResponse, error) {
			return nil, errors.New("connection refused")
		},
	}
	d, _ := newTestDispatcher(t, threeEntryConfig(), upstream, nil)

	_, err := d.Dispatch(context.Background(), "relay-fast", "", []byte(inboundBody))
	require.Error(t, err)
	assert.Len(t, upstream.sentModels(), 3)
}

func TestDispatch_UnknownModelBypasses(t *testing.T) {
	d, _ := newTestDispatcher(t, threeEntryConfig(), &fakeUpstream{}, nil)

	result, err := d.Dispatch(context.Background(), "gpt-4o", "", []byte(inboundBody))
	require.NoError(t, err)
	assert.True(t, result.Bypassed)
}

func TestDispatch_DisabledConfigBypasses(t *testing.T) {
	cfg := threeEntryConfig()
	cfg.IsEnabled = false
	d, _ := newTestDispatcher(t, cfg, &fakeUpstream{}, nil)

	result, err := d.Dispatch(context.Background(), "relay-fast", "", []byte(inboundBody))
	require.NoError(t, err)
	assert.True(t, result.Bypassed)
}

func TestDispatch_EmptyChainIsAnError(t *testing.T) {
	cfg := domain.FallbackConfig{
		IsEnabled: true,
		VirtualModels: []domain.VirtualModel{{
			ID: "vm1", Name: "empty", IsEnabled: true,
		}},
	}
	d, _ := newTestDispatcher(t, cfg, &fakeUpstream{}, nil)

	_, err := d.Dispatch(context.Background(), "empty", "", []byte(inboundBody))
	assert.ErrorIs(t, err, ErrEmptyChain)
}

func TestDispatch_RewritesModelPerEntry(t *testing.T) {
	upstream := &fakeUpstream{
		send: func(ctx context.Context, provider, model string, body []byte) (*ports.UpstreamResponse, error) {
			return &ports.UpstreamResponse{StatusCode: 200, Body: []byte(`{}`)}, nil
		},
	}
	d, _ := newTestDispatcher(t, threeEntryConfig(), upstream, nil)

	_, err := d.Dispatch(context.Background(), "relay-fast", "", []byte(inboundBody))
	require.NoError(t, err)

	require.Len(t, upstream.calls, 1)
	assert.Contains(t, string(upstream.calls[0].body), `"model":"gpt-4o"`)
	assert.NotContains(t, string(upstream.calls[0].body), "relay-fast")
}

func TestDispatch_GoogleEntryBodyCarriesNoModelField(t *testing.T) {
	upstream := &fakeUpstream{
		send: func(ctx context.Context, provider, model string, body []byte) (*ports.UpstreamResponse, error) {
			return &ports.UpstreamResponse{StatusCode: 200, Body: []byte(`{"candidates":[]}`)}, nil
		},
	}
	cfg := domain.FallbackConfig{
		IsEnabled: true,
		VirtualModels: []domain.VirtualModel{{
			ID: "vm1", Name: "relay-fast", IsEnabled: true,
			FallbackEntries: []domain.FallbackEntry{
				{ID: "e1", Provider: "google", ModelID: "gemini-pro", Priority: 1},
			},
		}},
	}
	d, _ := newTestDispatcher(t, cfg, upstream, nil)

	_, err := d.Dispatch(context.Background(), "relay-fast", "", []byte(inboundBody))
	require.NoError(t, err)

	require.Len(t, upstream.calls, 1)
	sent := upstream.calls[0].body
	// generateContent takes the model from the URL and rejects unknown
	// top-level body fields
	assert.False(t, gjson.GetBytes(sent, "model").Exists())
	assert.True(t, gjson.GetBytes(sent, "contents").Exists())
	assert.Equal(t, "gemini-pro", upstream.calls[0].model)
}

func TestDispatch_AttemptTimeoutAdvancesChain(t *testing.T) {
	calls := 0
	upstream := &fakeUpstream{
		send: func(ctx context.Context, provider, model string, body []byte) (*ports.UpstreamResponse, error) {
			calls++
			if calls == 1 {
				// First entry hangs until the per-attempt deadline fires.
				<-ctx.Done()
				return nil, ctx.Err()
			}
			return &ports.UpstreamResponse{StatusCode: 200, Body: []byte(`{"ok":true}`)}, nil
		},
	}
	holder := NewConfigHolder(&fakeStore{cfg: threeEntryConfig()})
	require.NoError(t, holder.Load(context.Background()))
	d := NewDispatcher(holder, cache.NewMemory(), upstream, nil, 20*time.Millisecond)

	result, err := d.Dispatch(context.Background(), "relay-fast", "", []byte(inboundBody))
	require.NoError(t, err, "a timed-out attempt is a fallback trigger, not a dispatch failure")
	assert.False(t, result.Exhausted)
	assert.Equal(t, "e2", result.Entry.ID)
	assert.Equal(t, []string{"gpt-4o", "claude-3-haiku"}, upstream.sentModels())
}

func TestDispatch_RecordsRouteState(t *testing.T) {
	upstream := &fakeUpstream{
		send: func(ctx context.Context, provider, model string, body []byte) (*ports.UpstreamResponse, error) {
			return &ports.UpstreamResponse{StatusCode: 200, Body: []byte(`{}`)}, nil
		},
	}
	d, _ := newTestDispatcher(t, threeEntryConfig(), upstream, nil)

	_, err := d.Dispatch(context.Background(), "relay-fast", "", []byte(inboundBody))
	require.NoError(t, err)

	state, ok := d.RouteState("relay-fast")
	require.True(t, ok)
	assert.Equal(t, 0, state.CurrentEntryIndex)
	assert.Equal(t, "e1", state.CurrentEntry.ID)
	assert.Equal(t, 3, state.TotalEntries)
}
