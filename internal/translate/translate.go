// Package translate converts chat-completion request bodies between the
// OpenAI, Anthropic and Google wire formats. Conversions are lossy only
// where a target has no equivalent slot; in that case source-only fields
// are dropped rather than left dangling in a target-incompatible shape.
package translate

import (
	"encoding/json"
	"fmt"

	"github.com/modelrelay/modelrelay/internal/core/domain"
)

// messageKey returns the key a family stores its turn list under.
func messageKey(f domain.FormatFamily) string {
	if f == domain.FormatGoogle {
		return "contents"
	}
	return "messages"
}

// ConvertRequest rewrites body into the target provider's native format.
// sourceProvider may be empty, in which case the format is inferred from
// the body shape. The output never mixes vocabularies from two families.
func ConvertRequest(body []byte, sourceProvider, targetProvider string) ([]byte, error) {
	var req map[string]any
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("parse request body: %w", err)
	}

	src := domain.FamilyForProvider(sourceProvider)
	if sourceProvider == "" {
		src = Detect(body)
	}
	dst := domain.FamilyForProvider(targetProvider)

	system := extractSystem(req, src)
	msgs := convertMessages(asSlice(req[messageKey(src)]), src, dst)
	params := extractParams(req)
	tools := extractTools(req, src)

	delete(req, messageKey(src))
	req[messageKey(dst)] = msgs

	emitSystem(req, system, dst)
	emitParams(req, params, dst)
	emitTools(req, tools, dst)

	cleanup(req, dst)

	return json.Marshal(req)
}

// extractSystem pulls the system prompt out of whichever slot the source
// family uses, removing the source fields so no duplicate remains.
func extractSystem(req map[string]any, src domain.FormatFamily) string {
	switch src {
	case domain.FormatAnthropic:
		system := req["system"]
		delete(req, "system")
		switch s := system.(type) {
		case string:
			return s
		case []any:
			return joinTextBlocks(s)
		}
		return ""

	case domain.FormatGoogle:
		for _, key := range []string{"system_instruction", "systemInstruction"} {
			if si := asMap(req[key]); si != nil {
				delete(req, "system_instruction")
				delete(req, "systemInstruction")
				for _, p := range asSlice(si["parts"]) {
					if part := asMap(p); part != nil {
						if t := asString(part["text"]); t != "" {
							return t
						}
					}
				}
				return ""
			}
		}
		return ""

	default:
		msgs := asSlice(req["messages"])
		for i, raw := range msgs {
			msg := asMap(raw)
			if msg == nil || asString(msg["role"]) != "system" {
				continue
			}
			req["messages"] = append(append([]any{}, msgs[:i]...), msgs[i+1:]...)
			switch content := msg["content"].(type) {
			case string:
				return content
			case []any:
				for _, p := range content {
					if part := asMap(p); part != nil {
						if t := blockText(part); t != "" {
							return t
						}
					}
				}
			}
			return ""
		}
		return ""
	}
}

// emitSystem writes the system prompt into the target's slot.
func emitSystem(req map[string]any, system string, dst domain.FormatFamily) {
	if system == "" {
		return
	}
	switch dst {
	case domain.FormatAnthropic:
		req["system"] = system
	case domain.FormatGoogle:
		req["system_instruction"] = map[string]any{
			"parts": []any{map[string]any{"text": system}},
		}
	default:
		msgs := asSlice(req["messages"])
		sysMsg := map[string]any{"role": "system", "content": system}
		req["messages"] = append([]any{any(sysMsg)}, msgs...)
	}
}

// foreignKeys lists top-level fields structurally foreign to each family.
// The cleanup pass deletes them after all field-level conversions so the
// output never carries another family's vocabulary.
var foreignKeys = map[domain.FormatFamily][]string{
	domain.FormatOpenAI: {
		"system", "system_instruction", "systemInstruction", "contents",
		"generationConfig", "safetySettings", "stop_sequences", "stopSequences",
		"maxTokens", "maxOutputTokens", "max_completion_tokens",
		"top_k", "topK", "topP", "functionDeclarations",
		"anthropic_version", "thinking", "metadata",
	},
	domain.FormatAnthropic: {
		"system_instruction", "systemInstruction", "contents",
		"generationConfig", "safetySettings", "stop", "stopSequences",
		"maxTokens", "maxOutputTokens", "max_completion_tokens",
		"topK", "topP", "functions", "functionDeclarations",
		"frequency_penalty", "presence_penalty", "logit_bias", "n", "seed",
		"response_format", "logprobs", "top_logprobs", "user",
	},
	domain.FormatGoogle: {
		// Google carries the model in the URL, not the body.
		"model",
		"system", "messages", "stop", "stop_sequences", "stopSequences",
		"max_tokens", "maxTokens", "max_completion_tokens", "maxOutputTokens",
		"temperature", "top_p", "top_k", "topP", "topK",
		"functions", "functionDeclarations",
		"anthropic_version", "thinking", "metadata",
		"frequency_penalty", "presence_penalty", "logit_bias", "n", "seed",
		"response_format", "logprobs", "top_logprobs", "user", "stream",
	},
}

func cleanup(req map[string]any, dst domain.FormatFamily) {
	for _, key := range foreignKeys[dst] {
		delete(req, key)
	}
}
