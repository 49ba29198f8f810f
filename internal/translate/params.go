package translate

import (
	"math"

	"github.com/modelrelay/modelrelay/internal/core/domain"
)

// genParams is the normalized union of the sampling parameters the three
// families spell differently.
type genParams struct {
	maxTokens   *int
	temperature *float64
	topP        *float64
	topK        *int
	stops       []string
}

// maxTokensKeys in lookup order: the first non-null spelling wins.
var maxTokensKeys = []string{"maxOutputTokens", "maxTokens", "max_tokens", "max_completion_tokens"}

var stopKeys = []string{"stop", "stop_sequences", "stopSequences"}

// extractParams pulls every known spelling of the sampling parameters out
// of the request, removing the source fields as it goes.
func extractParams(req map[string]any) genParams {
	var p genParams

	genCfg := asMap(req["generationConfig"])

	for _, key := range maxTokensKeys {
		if v, ok := asNumber(req[key]); ok && p.maxTokens == nil {
			n := int(v)
			if n < 1 {
				n = 1
			}
			p.maxTokens = &n
		}
		delete(req, key)
	}
	if p.maxTokens == nil && genCfg != nil {
		if v, ok := asNumber(genCfg["maxOutputTokens"]); ok {
			n := int(v)
			if n < 1 {
				n = 1
			}
			p.maxTokens = &n
		}
	}

	for _, key := range stopKeys {
		if p.stops == nil {
			p.stops = asStringList(req[key])
		}
		delete(req, key)
	}
	if p.stops == nil && genCfg != nil {
		p.stops = asStringList(genCfg["stopSequences"])
	}

	p.temperature = takeFloat(req, genCfg, "temperature", "temperature")
	p.topP = takeFloat(req, genCfg, "top_p", "topP")
	if v := takeFloat(req, genCfg, "top_k", "topK"); v != nil {
		n := int(*v)
		p.topK = &n
	}

	delete(req, "generationConfig")

	return p.sanitize()
}

// sanitize silently drops out-of-range values so the backend applies its
// own defaults instead of rejecting the request.
func (p genParams) sanitize() genParams {
	if p.temperature != nil && (*p.temperature < 0 || *p.temperature > 2) {
		p.temperature = nil
	}
	if p.topP != nil && (*p.topP < 0 || *p.topP > 1) {
		p.topP = nil
	}
	if p.topK != nil && *p.topK < 1 {
		p.topK = nil
	}
	return p
}

// emitParams writes the normalized parameters back under the target
// family's canonical names only.
func emitParams(req map[string]any, p genParams, dst domain.FormatFamily) {
	if dst == domain.FormatGoogle {
		cfg := map[string]any{}
		if p.maxTokens != nil {
			cfg["maxOutputTokens"] = *p.maxTokens
		}
		if p.temperature != nil {
			cfg["temperature"] = *p.temperature
		}
		if p.topP != nil {
			cfg["topP"] = *p.topP
		}
		if p.topK != nil {
			cfg["topK"] = *p.topK
		}
		if len(p.stops) > 0 {
			cfg["stopSequences"] = toAnySlice(p.stops)
		}
		if len(cfg) > 0 {
			req["generationConfig"] = cfg
		}
		return
	}

	if p.maxTokens != nil {
		req["max_tokens"] = *p.maxTokens
	}
	if p.temperature != nil {
		req["temperature"] = *p.temperature
	}
	if p.topP != nil {
		req["top_p"] = *p.topP
	}

	switch dst {
	case domain.FormatAnthropic:
		if p.topK != nil {
			req["top_k"] = *p.topK
		}
		if len(p.stops) > 0 {
			req["stop_sequences"] = toAnySlice(p.stops)
		}
	default:
		// OpenAI has no top_k equivalent; it is dropped.
		if len(p.stops) > 0 {
			req["stop"] = toAnySlice(p.stops)
		}
	}
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

func asStringList(v any) []string {
	switch s := v.(type) {
	case string:
		if s == "" {
			return nil
		}
		return []string{s}
	case []any:
		var out []string
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

func toAnySlice(strs []string) []any {
	out := make([]any, len(strs))
	for i, s := range strs {
		out[i] = s
	}
	return out
}

// takeFloat reads snakeKey from the request and camelKey from the Google
// generationConfig, deleting the top-level spellings.
func takeFloat(req, genCfg map[string]any, snakeKey, camelKey string) *float64 {
	var out *float64
	if v, ok := asNumber(req[snakeKey]); ok {
		out = &v
	}
	if v, ok := asNumber(req[camelKey]); ok && out == nil {
		out = &v
	}
	delete(req, snakeKey)
	delete(req, camelKey)
	if out == nil && genCfg != nil {
		if v, ok := asNumber(genCfg[camelKey]); ok {
			out = &v
		}
	}
	return out
}
