// Package fallback implements the fallback-chain registry, the error
// classifier and the dispatcher that walks a virtual model's chain until
// one backend succeeds.
package fallback

import (
	"strings"

	"github.com/google/uuid"

	"github.com/modelrelay/modelrelay/internal/core/domain"
)

// Registry mutations are pure: every operation returns a fresh
// configuration and reports ok=false on conflict without partial writes,
// so callers can diff before persisting.

func cloneConfig(cfg domain.FallbackConfig) domain.FallbackConfig {
	out := cfg
	out.VirtualModels = make([]domain.VirtualModel, len(cfg.VirtualModels))
	for i, vm := range cfg.VirtualModels {
		out.VirtualModels[i] = vm
		out.VirtualModels[i].FallbackEntries = append([]domain.FallbackEntry(nil), vm.FallbackEntries...)
	}
	return out
}

// reprice assigns a dense 1..N priority sequence following slice order.
// Priorities are never hand-edited independently of position.
func reprice(entries []domain.FallbackEntry) {
	for i := range entries {
		entries[i].Priority = i + 1
	}
}

func findModel(cfg *domain.FallbackConfig, id string) *domain.VirtualModel {
	for i := range cfg.VirtualModels {
		if cfg.VirtualModels[i].ID == id {
			return &cfg.VirtualModels[i]
		}
	}
	return nil
}

func nameTaken(cfg domain.FallbackConfig, name, excludeID string) bool {
	for _, vm := range cfg.VirtualModels {
		if vm.ID != excludeID && strings.EqualFold(vm.Name, name) {
			return true
		}
	}
	return false
}

// AddVirtualModel appends a new enabled virtual model with an empty chain.
// The name is trimmed; a case-insensitive duplicate rejects the mutation.
func AddVirtualModel(cfg domain.FallbackConfig, name string) (domain.FallbackConfig, bool) {
	name = strings.TrimSpace(name)
	if name == "" || nameTaken(cfg, name, "") {
		return cfg, false
	}

	out := cloneConfig(cfg)
	out.VirtualModels = append(out.VirtualModels, domain.VirtualModel{
		ID:        uuid.NewString(),
		Name:      name,
		IsEnabled: true,
	})
	return out, true
}

// RenameVirtualModel renames a model, keeping the case-insensitive
// uniqueness invariant.
func RenameVirtualModel(cfg domain.FallbackConfig, id, newName string) (domain.FallbackConfig, bool) {
	newName = strings.TrimSpace(newName)
	if newName == "" || nameTaken(cfg, newName, id) {
		return cfg, false
	}

	out := cloneConfig(cfg)
	vm := findModel(&out, id)
	if vm == nil {
		return cfg, false
	}
	vm.Name = newName
	return out, true
}

// RemoveVirtualModel deletes a model and its owned entries.
func RemoveVirtualModel(cfg domain.FallbackConfig, id string) (domain.FallbackConfig, bool) {
	out := cloneConfig(cfg)
	for i := range out.VirtualModels {
		if out.VirtualModels[i].ID == id {
			out.VirtualModels = append(out.VirtualModels[:i], out.VirtualModels[i+1:]...)
			return out, true
		}
	}
	return cfg, false
}

// ToggleVirtualModel flips a model's enabled flag.
func ToggleVirtualModel(cfg domain.FallbackConfig, id string) (domain.FallbackConfig, bool) {
	out := cloneConfig(cfg)
	vm := findModel(&out, id)
	if vm == nil {
		return cfg, false
	}
	vm.IsEnabled = !vm.IsEnabled
	return out, true
}

// SetEnabled flips the global routing switch.
func SetEnabled(cfg domain.FallbackConfig, enabled bool) domain.FallbackConfig {
	out := cloneConfig(cfg)
	out.IsEnabled = enabled
	return out
}

// AddFallbackEntry appends an entry at the end of the chain with
// priority max+1 (1 for an empty chain).
func AddFallbackEntry(cfg domain.FallbackConfig, modelID, provider, upstreamModel string) (domain.FallbackConfig, bool) {
	provider = strings.TrimSpace(provider)
	upstreamModel = strings.TrimSpace(upstreamModel)
	if provider == "" || upstreamModel == "" {
		return cfg, false
	}

	out := cloneConfig(cfg)
	vm := findModel(&out, modelID)
	if vm == nil {
		return cfg, false
	}

	maxPriority := 0
	for _, e := range vm.FallbackEntries {
		if e.Priority > maxPriority {
			maxPriority = e.Priority
		}
	}

	vm.FallbackEntries = append(vm.FallbackEntries, domain.FallbackEntry{
		ID:       uuid.NewString(),
		Provider: provider,
		ModelID:  upstreamModel,
		Priority: maxPriority + 1,
	})
	return out, true
}

// RemoveFallbackEntry deletes an entry and re-derives dense priorities
// from the surviving order.
func RemoveFallbackEntry(cfg domain.FallbackConfig, modelID, entryID string) (domain.FallbackConfig, bool) {
	out := cloneConfig(cfg)
	vm := findModel(&out, modelID)
	if vm == nil {
		return cfg, false
	}

	for i := range vm.FallbackEntries {
		if vm.FallbackEntries[i].ID == entryID {
			vm.FallbackEntries = append(vm.FallbackEntries[:i], vm.FallbackEntries[i+1:]...)
			reprice(vm.FallbackEntries)
			return out, true
		}
	}
	return cfg, false
}

// MoveFallbackEntry relocates an entry to a new zero-based position and
// re-derives dense priorities. Out-of-range positions are clamped.
func MoveFallbackEntry(cfg domain.FallbackConfig, modelID, entryID string, newIndex int) (domain.FallbackConfig, bool) {
	out := cloneConfig(cfg)
	vm := findModel(&out, modelID)
	if vm == nil {
		return cfg, false
	}

	from := -1
	for i := range vm.FallbackEntries {
		if vm.FallbackEntries[i].ID == entryID {
			from = i
			break
		}
	}
	if from == -1 {
		return cfg, false
	}

	if newIndex < 0 {
		newIndex = 0
	}
	if newIndex >= len(vm.FallbackEntries) {
		newIndex = len(vm.FallbackEntries) - 1
	}

	entry := vm.FallbackEntries[from]
	rest := append(vm.FallbackEntries[:from], vm.FallbackEntries[from+1:]...)
	rest = append(rest, domain.FallbackEntry{})
	copy(rest[newIndex+1:], rest[newIndex:])
	rest[newIndex] = entry
	vm.FallbackEntries = rest

	reprice(vm.FallbackEntries)
	return out, true
}

// OrderedEntries returns a model's entries in ascending priority order
// without mutating the stored slice.
func OrderedEntries(vm domain.VirtualModel) []domain.FallbackEntry {
	entries := append([]domain.FallbackEntry(nil), vm.FallbackEntries...)
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].Priority < entries[j-1].Priority; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
	return entries
}
