package fallback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"

	"github.com/modelrelay/modelrelay/internal/core/domain"
	"github.com/modelrelay/modelrelay/internal/core/ports"
	"github.com/modelrelay/modelrelay/internal/platform/logger"
	"github.com/modelrelay/modelrelay/internal/translate"
)

// ErrEmptyChain is returned when a virtual model resolves but has no
// entries to try.
var ErrEmptyChain = errors.New("virtual model has no fallback entries")

// Result is the outcome of one dispatch. On exhaustion Response holds the
// last entry's real upstream response, never a synthesized error.
type Result struct {
	Response  *ports.UpstreamResponse
	Entry     domain.FallbackEntry
	State     domain.RouteState
	Bypassed  bool
	Exhausted bool
	Attempts  int
}

// Dispatcher walks a virtual model's chain, translating the request for
// each entry's provider and advancing on classified failures. Entries are
// tried strictly one at a time: trying two paid backends in parallel for
// the same logical request would double-bill the user.
type Dispatcher struct {
	configs        *ConfigHolder
	cache          ports.RouteCache
	upstream       ports.Upstream
	sink           ports.AttemptSink
	attemptTimeout time.Duration

	mu     sync.RWMutex
	states map[string]domain.RouteState
}

func NewDispatcher(configs *ConfigHolder, cache ports.RouteCache, upstream ports.Upstream, sink ports.AttemptSink, attemptTimeout time.Duration) *Dispatcher {
	if attemptTimeout <= 0 {
		attemptTimeout = 2 * time.Minute
	}
	return &Dispatcher{
		configs:        configs,
		cache:          cache,
		upstream:       upstream,
		sink:           sink,
		attemptTimeout: attemptTimeout,
		states:         make(map[string]domain.RouteState),
	}
}

// Resolve looks up an enabled virtual model by exact name in an enabled
// configuration. A miss means the engine is bypassed entirely.
func (d *Dispatcher) Resolve(name string) (domain.VirtualModel, bool) {
	cfg := d.configs.Snapshot()
	if !cfg.IsEnabled {
		return domain.VirtualModel{}, false
	}
	for _, vm := range cfg.VirtualModels {
		if vm.IsEnabled && vm.Name == name {
			return vm, true
		}
	}
	return domain.VirtualModel{}, false
}

// RouteState returns the last observed route state for a virtual model.
func (d *Dispatcher) RouteState(name string) (domain.RouteState, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	state, ok := d.states[name]
	return state, ok
}

// Dispatch routes one request. sourceProvider may be empty when the
// caller's format is unknown; translation then falls back to shape
// detection. The response is returned verbatim in the winning entry's
// native format.
func (d *Dispatcher) Dispatch(ctx context.Context, modelName, sourceProvider string, body []byte) (*Result, error) {
	vm, ok := d.Resolve(modelName)
	if !ok {
		return &Result{Bypassed: true}, nil
	}

	entries := OrderedEntries(vm)
	if len(entries) == 0 {
		return nil, ErrEmptyChain
	}

	requestID := uuid.NewString()
	start := d.startIndex(ctx, vm, entries)

	var lastResp *ports.UpstreamResponse
	var lastEntry domain.FallbackEntry
	attempts := 0

	// Starting mid-chain via the sticky cache still walks forward through
	// the remaining entries only; the chain never wraps.
	for i := start; i < len(entries); i++ {
		entry := entries[i]
		state := d.observe(vm.Name, i, entry, len(entries))

		resp, err := d.attempt(ctx, requestID, vm.Name, sourceProvider, entry, body)
		attempts++

		if err != nil {
			if ctx.Err() != nil {
				// Caller abandoned the request; cancellation is not a
				// fallback trigger.
				d.record(requestID, vm.Name, entry, 0, false, "canceled", 0)
				return nil, ctx.Err()
			}
			logger.Warn("Backend attempt failed",
				zap.String("virtual_model", vm.Name),
				zap.String("provider", entry.Provider),
				zap.String("model", entry.ModelID),
				zap.Error(err),
			)
			continue
		}

		if !ShouldFallbackResponse(resp.StatusCode, resp.Body) {
			d.remember(ctx, vm.Name, entry)
			return &Result{Response: resp, Entry: entry, State: state, Attempts: attempts}, nil
		}

		logger.Info("Fallback triggered",
			zap.String("virtual_model", vm.Name),
			zap.String("provider", entry.Provider),
			zap.String("model", entry.ModelID),
			zap.Int("status", resp.StatusCode),
			zap.Int("entry_index", i),
		)
		lastResp, lastEntry = resp, entry
	}

	if lastResp == nil {
		// Every attempt failed at the transport layer.
		return nil, domain.UpstreamError("all fallback entries unreachable", nil)
	}

	state, _ := d.RouteState(vm.Name)
	return &Result{Response: lastResp, Entry: lastEntry, State: state, Exhausted: true, Attempts: attempts}, nil
}

// attempt translates, sends and records a single try against one entry.
func (d *Dispatcher) attempt(ctx context.Context, requestID, vmName, sourceProvider string, entry domain.FallbackEntry, body []byte) (*ports.UpstreamResponse, error) {
	started := time.Now()

	converted, err := translate.ConvertRequest(body, sourceProvider, entry.Provider)
	if err != nil {
		return nil, err
	}
	// Google addresses the model in the request URL; writing it into the
	// body would hand generateContent a field it rejects.
	if domain.FamilyForProvider(entry.Provider) != domain.FormatGoogle {
		converted, err = sjson.SetBytes(converted, "model", entry.ModelID)
		if err != nil {
			return nil, err
		}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, d.attemptTimeout)
	defer cancel()

	resp, err := d.upstream.Send(attemptCtx, entry.Provider, entry.ModelID, converted)
	latency := time.Since(started).Milliseconds()

	if err != nil {
		if ctx.Err() == nil {
			d.record(requestID, vmName, entry, 0, true, "", latency)
		}
		return nil, err
	}

	triggered := ShouldFallbackResponse(resp.StatusCode, resp.Body)
	terminal := ""
	if !triggered {
		terminal = "succeeded"
	}
	d.record(requestID, vmName, entry, resp.StatusCode, triggered, terminal, latency)

	return resp, nil
}

// startIndex picks where to enter the chain: a valid cached entry that
// still exists in the current chain, otherwise the head. An entry id
// orphaned by a chain edit is a cache miss.
func (d *Dispatcher) startIndex(ctx context.Context, vm domain.VirtualModel, entries []domain.FallbackEntry) int {
	if d.cache == nil {
		return 0
	}
	info, ok := d.cache.Get(ctx, vm.Name)
	if !ok || !info.Valid(time.Now()) {
		return 0
	}
	for i, e := range entries {
		if e.ID == info.EntryID {
			return i
		}
	}
	return 0
}

func (d *Dispatcher) remember(ctx context.Context, vmName string, entry domain.FallbackEntry) {
	if d.cache == nil {
		return
	}
	if err := d.cache.Set(ctx, vmName, domain.CachedEntryInfo{EntryID: entry.ID, CachedAt: time.Now()}); err != nil {
		logger.Warn("Failed to update route cache", zap.String("virtual_model", vmName), zap.Error(err))
	}
}

func (d *Dispatcher) observe(vmName string, index int, entry domain.FallbackEntry, total int) domain.RouteState {
	state := domain.RouteState{
		VirtualModelName:  vmName,
		CurrentEntryIndex: index,
		CurrentEntry:      entry,
		TotalEntries:      total,
		LastUpdated:       time.Now(),
	}
	d.mu.Lock()
	d.states[vmName] = state
	d.mu.Unlock()
	return state
}

func (d *Dispatcher) record(requestID, vmName string, entry domain.FallbackEntry, status int, triggered bool, terminal string, latencyMS int64) {
	if d.sink == nil {
		return
	}
	d.sink.Record(&ports.Attempt{
		ID:                uuid.NewString(),
		RequestID:         requestID,
		VirtualModel:      vmName,
		EntryID:           entry.ID,
		Provider:          entry.Provider,
		ModelID:           entry.ModelID,
		StatusCode:        status,
		TriggeredFallback: triggered,
		Terminal:          terminal,
		LatencyMS:         latencyMS,
		CreatedAt:         time.Now(),
	})
}
