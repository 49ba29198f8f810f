package translate

import (
	"fmt"
	"strings"
)

// asMap narrows an untyped JSON value to an object, or nil.
func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// blockText returns the text of a text block, or "".
func blockText(block map[string]any) string {
	if asString(block["type"]) != "text" {
		return ""
	}
	return asString(block["text"])
}

// joinTextBlocks concatenates all text blocks in order, newline separated.
func joinTextBlocks(blocks []any) string {
	var parts []string
	for _, b := range blocks {
		if m := asMap(b); m != nil {
			if t := blockText(m); t != "" {
				parts = append(parts, t)
			}
		}
	}
	return strings.Join(parts, "\n")
}

// anthropicBlocksToOpenAIContent converts a block array to OpenAI content.
// Text-only arrays collapse to a plain string; anything else becomes an
// OpenAI content array with the merged text first and non-text blocks
// converted one to one.
func anthropicBlocksToOpenAIContent(blocks []any) any {
	text := joinTextBlocks(blocks)

	var rest []any
	for _, b := range blocks {
		m := asMap(b)
		if m == nil {
			continue
		}
		switch asString(m["type"]) {
		case "text":
			// merged above
		case "image":
			if img := anthropicImageToOpenAI(m); img != nil {
				rest = append(rest, img)
			}
		case "thinking":
			if asString(m["signature"]) != "" {
				rest = append(rest, m)
			}
		}
	}

	if len(rest) == 0 {
		return text
	}

	out := make([]any, 0, len(rest)+1)
	if text != "" {
		out = append(out, map[string]any{"type": "text", "text": text})
	}
	return append(out, rest...)
}

// openAIContentToAnthropicBlocks is the inverse: strings become a single
// text block, image_url parts are parsed back into Anthropic sources.
func openAIContentToAnthropicBlocks(content any) []any {
	if s, ok := content.(string); ok {
		if s == "" {
			return nil
		}
		return []any{map[string]any{"type": "text", "text": s}}
	}

	var blocks []any
	for _, part := range asSlice(content) {
		m := asMap(part)
		if m == nil {
			continue
		}
		switch asString(m["type"]) {
		case "text":
			blocks = append(blocks, map[string]any{"type": "text", "text": asString(m["text"])})
		case "image_url":
			if img := openAIImageToAnthropic(m); img != nil {
				blocks = append(blocks, img)
			}
		case "thinking":
			blocks = append(blocks, m)
		}
	}
	return blocks
}

// anthropicImageToOpenAI converts an image block to an image_url part.
// Base64 sources become data URIs, URL sources pass straight through.
func anthropicImageToOpenAI(block map[string]any) map[string]any {
	source := asMap(block["source"])
	if source == nil {
		return nil
	}
	switch asString(source["type"]) {
	case "base64":
		mediaType := asString(source["media_type"])
		data := asString(source["data"])
		if data == "" {
			return nil
		}
		return map[string]any{
			"type":      "image_url",
			"image_url": map[string]any{"url": fmt.Sprintf("data:%s;base64,%s", mediaType, data)},
		}
	case "url":
		url := asString(source["url"])
		if url == "" {
			return nil
		}
		return map[string]any{
			"type":      "image_url",
			"image_url": map[string]any{"url": url},
		}
	}
	return nil
}

// openAIImageToAnthropic parses an image_url part; data URIs are unpacked
// back into base64 sources.
func openAIImageToAnthropic(part map[string]any) map[string]any {
	urlObj := asMap(part["image_url"])
	if urlObj == nil {
		return nil
	}
	url := asString(urlObj["url"])
	if url == "" {
		return nil
	}

	if strings.HasPrefix(url, "data:") {
		mediaType, data, ok := parseDataURI(url)
		if !ok {
			return nil
		}
		return map[string]any{
			"type": "image",
			"source": map[string]any{
				"type":       "base64",
				"media_type": mediaType,
				"data":       data,
			},
		}
	}

	return map[string]any{
		"type":   "image",
		"source": map[string]any{"type": "url", "url": url},
	}
}

// parseDataURI splits "data:<media>;base64,<payload>".
func parseDataURI(uri string) (mediaType, data string, ok bool) {
	rest := strings.TrimPrefix(uri, "data:")
	meta, payload, found := strings.Cut(rest, ",")
	if !found {
		return "", "", false
	}
	mediaType = strings.TrimSuffix(meta, ";base64")
	return mediaType, payload, true
}

// toolResultMarker renders a tool_result block as inline text for targets
// with no structural tool-result type in user messages.
func toolResultMarker(block map[string]any) string {
	id := asString(block["tool_use_id"])
	content := block["content"]

	var text string
	switch c := content.(type) {
	case string:
		text = c
	case []any:
		text = joinTextBlocks(c)
	}
	return fmt.Sprintf("[Tool Result (id: %s)]\n%s", id, text)
}
