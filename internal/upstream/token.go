package upstream

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// StaticTokenSource serves credentials from configuration. Acquisition
// and refresh belong to an external auth service; when that service is
// wired in it replaces this implementation behind the same interface.
type StaticTokenSource struct {
	mu     sync.RWMutex
	tokens map[string]string
}

func NewStaticTokenSource(tokens map[string]string) *StaticTokenSource {
	normalized := make(map[string]string, len(tokens))
	for k, v := range tokens {
		normalized[strings.ToLower(k)] = v
	}
	return &StaticTokenSource{tokens: normalized}
}

func (s *StaticTokenSource) Token(ctx context.Context, provider string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, ok := s.tokens[strings.ToLower(provider)]
	if !ok || token == "" {
		return "", fmt.Errorf("no credential for provider %q", provider)
	}
	return token, nil
}

// SetToken swaps a provider's credential, e.g. after an external refresh.
func (s *StaticTokenSource) SetToken(provider, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[strings.ToLower(provider)] = token
}
