package translate

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/modelrelay/modelrelay/internal/core/domain"
)

// convertMessages rewrites the source message list into the target
// family's shape. The returned slice is always safe to emit under the
// target's message key (`contents` for Google, `messages` otherwise).
func convertMessages(msgs []any, src, dst domain.FormatFamily) []any {
	if src == dst {
		return scrubThinking(msgs, dst)
	}

	switch {
	case src == domain.FormatAnthropic && dst == domain.FormatOpenAI:
		return anthropicToOpenAIMessages(msgs)
	case src == domain.FormatOpenAI && dst == domain.FormatAnthropic:
		return openAIToAnthropicMessages(msgs)
	case src == domain.FormatGoogle && dst == domain.FormatOpenAI:
		return googleToOpenAIMessages(msgs)
	case src == domain.FormatGoogle && dst == domain.FormatAnthropic:
		return openAIToAnthropicMessages(googleToOpenAIMessages(msgs))
	case dst == domain.FormatGoogle && src == domain.FormatOpenAI:
		return openAIToGoogleContents(msgs)
	case dst == domain.FormatGoogle && src == domain.FormatAnthropic:
		return openAIToGoogleContents(anthropicToOpenAIMessages(msgs))
	}
	return msgs
}

// scrubThinking enforces the thinking-block policy on same-family
// conversions: unsigned thinking blocks never leave for a non-Anthropic
// target.
func scrubThinking(msgs []any, dst domain.FormatFamily) []any {
	if dst == domain.FormatAnthropic {
		return msgs
	}

	out := make([]any, 0, len(msgs))
	for _, raw := range msgs {
		msg := asMap(raw)
		if msg == nil {
			out = append(out, raw)
			continue
		}
		blocks := asSlice(msg["content"])
		if blocks == nil {
			out = append(out, msg)
			continue
		}
		kept := make([]any, 0, len(blocks))
		for _, b := range blocks {
			m := asMap(b)
			if m != nil && asString(m["type"]) == "thinking" && asString(m["signature"]) == "" {
				continue
			}
			kept = append(kept, b)
		}
		msg["content"] = kept
		out = append(out, msg)
	}
	return out
}

// anthropicToOpenAIMessages splits block-array messages into OpenAI's flat
// shape. Assistant tool_use blocks become tool_calls, user tool_result
// blocks become inline text markers, unsigned thinking blocks are dropped.
func anthropicToOpenAIMessages(msgs []any) []any {
	out := make([]any, 0, len(msgs))

	for _, raw := range msgs {
		msg := asMap(raw)
		if msg == nil {
			continue
		}
		role := asString(msg["role"])
		blocks := asSlice(msg["content"])

		if blocks == nil {
			// Plain string content converts as-is.
			out = append(out, map[string]any{"role": role, "content": msg["content"]})
			continue
		}

		switch role {
		case "assistant":
			out = append(out, anthropicAssistantToOpenAI(blocks))
		default:
			out = append(out, anthropicUserToOpenAI(role, blocks))
		}
	}
	return out
}

func anthropicAssistantToOpenAI(blocks []any) map[string]any {
	var texts []string
	var toolCalls []any
	var signedThinking []any

	for _, b := range blocks {
		m := asMap(b)
		if m == nil {
			continue
		}
		switch asString(m["type"]) {
		case "text":
			if t := asString(m["text"]); t != "" {
				texts = append(texts, t)
			}
		case "tool_use":
			id := asString(m["id"])
			if id == "" {
				id = "call_" + uuid.NewString()
			}
			args := "{}"
			if input := m["input"]; input != nil {
				if raw, err := json.Marshal(input); err == nil {
					args = string(raw)
				}
			}
			toolCalls = append(toolCalls, map[string]any{
				"id":   id,
				"type": "function",
				"function": map[string]any{
					"name":      asString(m["name"]),
					"arguments": args,
				},
			})
		case "thinking":
			if asString(m["signature"]) != "" {
				signedThinking = append(signedThinking, m)
			}
		}
	}

	text := strings.Join(texts, "\n")
	msg := map[string]any{"role": "assistant"}

	if len(signedThinking) > 0 {
		content := make([]any, 0, len(signedThinking)+1)
		if text != "" {
			content = append(content, map[string]any{"type": "text", "text": text})
		}
		msg["content"] = append(content, signedThinking...)
	} else {
		msg["content"] = text
	}

	if len(toolCalls) > 0 {
		msg["tool_calls"] = toolCalls
	}
	return msg
}

func anthropicUserToOpenAI(role string, blocks []any) map[string]any {
	var texts []string
	var images []any

	for _, b := range blocks {
		m := asMap(b)
		if m == nil {
			continue
		}
		switch asString(m["type"]) {
		case "text":
			if t := asString(m["text"]); t != "" {
				texts = append(texts, t)
			}
		case "tool_result":
			texts = append(texts, toolResultMarker(m))
		case "image":
			if img := anthropicImageToOpenAI(m); img != nil {
				images = append(images, img)
			}
		}
	}

	text := strings.Join(texts, "\n")
	if len(images) == 0 {
		return map[string]any{"role": role, "content": text}
	}

	content := make([]any, 0, len(images)+1)
	if text != "" {
		content = append(content, map[string]any{"type": "text", "text": text})
	}
	return map[string]any{"role": role, "content": append(content, images...)}
}

// openAIToAnthropicMessages converts OpenAI messages to Anthropic's block
// shape. role:tool messages are buffered and merged into the next non-tool
// turn as tool_result blocks on a user message; a trailing buffer flushes
// as a final user message.
func openAIToAnthropicMessages(msgs []any) []any {
	out := make([]any, 0, len(msgs))
	var pendingResults []any

	flush := func() {
		if len(pendingResults) == 0 {
			return
		}
		out = append(out, map[string]any{"role": "user", "content": pendingResults})
		pendingResults = nil
	}

	for _, raw := range msgs {
		msg := asMap(raw)
		if msg == nil {
			continue
		}
		role := asString(msg["role"])

		if role == "tool" {
			pendingResults = append(pendingResults, map[string]any{
				"type":        "tool_result",
				"tool_use_id": asString(msg["tool_call_id"]),
				"content":     asString(msg["content"]),
			})
			continue
		}

		if role == "user" && len(pendingResults) > 0 {
			// Merge buffered results into this user turn.
			blocks := pendingResults
			pendingResults = nil
			blocks = append(blocks, openAIContentToAnthropicBlocks(msg["content"])...)
			out = append(out, map[string]any{"role": "user", "content": blocks})
			continue
		}
		flush()

		if role == "assistant" {
			if conv := openAIAssistantToAnthropic(msg); conv != nil {
				out = append(out, conv)
			}
			continue
		}

		out = append(out, map[string]any{"role": role, "content": msg["content"]})
	}
	flush()

	return out
}

func openAIAssistantToAnthropic(msg map[string]any) map[string]any {
	toolCalls := asSlice(msg["tool_calls"])
	if toolCalls == nil {
		return map[string]any{"role": "assistant", "content": msg["content"]}
	}

	var blocks []any
	if text := asString(msg["content"]); text != "" {
		blocks = append(blocks, map[string]any{"type": "text", "text": text})
	}

	for _, raw := range toolCalls {
		call := asMap(raw)
		if call == nil {
			continue
		}
		fn := asMap(call["function"])
		if fn == nil {
			continue
		}

		var input map[string]any
		if err := json.Unmarshal([]byte(asString(fn["arguments"])), &input); err != nil {
			// Malformed arguments drop only this call, not the request.
			continue
		}

		id := asString(call["id"])
		if id == "" {
			id = "toolu_" + uuid.NewString()
		}
		blocks = append(blocks, map[string]any{
			"type":  "tool_use",
			"id":    id,
			"name":  asString(fn["name"]),
			"input": input,
		})
	}

	if len(blocks) == 0 {
		return nil
	}
	return map[string]any{"role": "assistant", "content": blocks}
}

// googleToOpenAIMessages flattens Google contents into OpenAI messages.
func googleToOpenAIMessages(contents []any) []any {
	out := make([]any, 0, len(contents))

	for _, raw := range contents {
		entry := asMap(raw)
		if entry == nil {
			continue
		}
		role := asString(entry["role"])
		if role == "model" {
			role = "assistant"
		}
		if role == "" {
			role = "user"
		}

		var texts []string
		var toolCalls []any
		for _, p := range asSlice(entry["parts"]) {
			part := asMap(p)
			if part == nil {
				continue
			}
			if t := asString(part["text"]); t != "" {
				texts = append(texts, t)
			}
			if fc := asMap(part["functionCall"]); fc != nil {
				args := "{}"
				if raw, err := json.Marshal(fc["args"]); err == nil && fc["args"] != nil {
					args = string(raw)
				}
				toolCalls = append(toolCalls, map[string]any{
					"id":   "call_" + uuid.NewString(),
					"type": "function",
					"function": map[string]any{
						"name":      asString(fc["name"]),
						"arguments": args,
					},
				})
			}
			if fr := asMap(part["functionResponse"]); fr != nil {
				if raw, err := json.Marshal(fr["response"]); err == nil {
					texts = append(texts, "[Tool Result (id: "+asString(fr["name"])+")]\n"+string(raw))
				}
			}
		}

		msg := map[string]any{"role": role, "content": strings.Join(texts, "\n")}
		if len(toolCalls) > 0 {
			msg["tool_calls"] = toolCalls
		}
		out = append(out, msg)
	}
	return out
}

// openAIToGoogleContents converts OpenAI messages into Google contents.
func openAIToGoogleContents(msgs []any) []any {
	out := make([]any, 0, len(msgs))

	for _, raw := range msgs {
		msg := asMap(raw)
		if msg == nil {
			continue
		}
		role := asString(msg["role"])

		if role == "tool" {
			out = append(out, map[string]any{
				"role": "user",
				"parts": []any{map[string]any{
					"functionResponse": map[string]any{
						"name":     asString(msg["tool_call_id"]),
						"response": map[string]any{"content": msg["content"]},
					},
				}},
			})
			continue
		}

		googleRole := "user"
		if role == "assistant" {
			googleRole = "model"
		}

		var parts []any
		switch content := msg["content"].(type) {
		case string:
			if content != "" {
				parts = append(parts, map[string]any{"text": content})
			}
		case []any:
			for _, p := range content {
				part := asMap(p)
				if part == nil {
					continue
				}
				switch asString(part["type"]) {
				case "text":
					parts = append(parts, map[string]any{"text": asString(part["text"])})
				case "thinking":
					// Signed thinking maps onto Gemini's thought parts;
					// unsigned thinking is not replayable and is dropped.
					if sig := asString(part["signature"]); sig != "" {
						parts = append(parts, map[string]any{
							"text":             asString(part["thinking"]),
							"thought":          true,
							"thoughtSignature": sig,
						})
					}
				case "image_url":
					if urlObj := asMap(part["image_url"]); urlObj != nil {
						if media, data, ok := parseDataURI(asString(urlObj["url"])); ok {
							parts = append(parts, map[string]any{
								"inlineData": map[string]any{"mimeType": media, "data": data},
							})
						}
					}
				}
			}
		}

		for _, raw := range asSlice(msg["tool_calls"]) {
			call := asMap(raw)
			if call == nil {
				continue
			}
			fn := asMap(call["function"])
			if fn == nil {
				continue
			}
			var args map[string]any
			if err := json.Unmarshal([]byte(asString(fn["arguments"])), &args); err != nil {
				continue
			}
			parts = append(parts, map[string]any{
				"functionCall": map[string]any{"name": asString(fn["name"]), "args": args},
			})
		}

		if len(parts) == 0 {
			continue
		}
		out = append(out, map[string]any{"role": googleRole, "parts": parts})
	}
	return out
}
