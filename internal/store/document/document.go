// Package document persists the fallback configuration as a single JSON
// document at a well-known path shared with any UI that edits it.
package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"

	"github.com/modelrelay/modelrelay/internal/core/domain"
)

type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the persisted document. Malformed content degrades instead
// of failing: a non-object document yields an empty disabled config, a
// malformed model or entry record is filtered out rather than poisoning
// the whole load.
func (s *Store) Load(ctx context.Context) (domain.FallbackConfig, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.FallbackConfig{}, nil
		}
		return domain.FallbackConfig{}, fmt.Errorf("read config document: %w", err)
	}

	return Parse(raw), nil
}

// Parse decodes a configuration document leniently.
func Parse(raw []byte) domain.FallbackConfig {
	if !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
		return domain.FallbackConfig{}
	}

	doc := gjson.ParseBytes(raw)
	cfg := domain.FallbackConfig{
		IsEnabled: doc.Get("isEnabled").Bool(),
	}

	models := doc.Get("virtualModels")
	if !models.IsArray() {
		return cfg
	}

	models.ForEach(func(_, m gjson.Result) bool {
		if !m.IsObject() {
			return true
		}
		vm := domain.VirtualModel{
			ID:        m.Get("id").Str,
			Name:      m.Get("name").Str,
			IsEnabled: m.Get("isEnabled").Bool(),
		}
		if vm.ID == "" || vm.Name == "" {
			return true
		}

		m.Get("fallbackEntries").ForEach(func(_, e gjson.Result) bool {
			entry := domain.FallbackEntry{
				ID:       e.Get("id").Str,
				Provider: e.Get("provider").Str,
				ModelID:  e.Get("modelId").Str,
				Priority: int(e.Get("priority").Int()),
			}
			if entry.ID == "" || entry.Provider == "" || entry.ModelID == "" || entry.Priority < 1 {
				return true
			}
			vm.FallbackEntries = append(vm.FallbackEntries, entry)
			return true
		})

		cfg.VirtualModels = append(cfg.VirtualModels, vm)
		return true
	})

	return cfg
}

// Save writes the document atomically: marshal, write a sibling temp
// file, rename into place. Mutations are rare, so correctness beats
// throughput here.
func (s *Store) Save(ctx context.Context, cfg domain.FallbackConfig) error {
	if cfg.VirtualModels == nil {
		cfg.VirtualModels = []domain.VirtualModel{}
	}
	for i := range cfg.VirtualModels {
		if cfg.VirtualModels[i].FallbackEntries == nil {
			cfg.VirtualModels[i].FallbackEntries = []domain.FallbackEntry{}
		}
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config document: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write config document: %w", err)
	}
	return os.Rename(tmp, s.path)
}
