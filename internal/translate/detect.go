package translate

import (
	"github.com/tidwall/gjson"

	"github.com/modelrelay/modelrelay/internal/core/domain"
)

// Detect infers the format family of a request body whose origin is
// unknown. It is a best-effort fallback: when the source provider is
// known, FamilyForProvider is authoritative and detection is skipped.
//
// The checks run in decreasing order of distinctiveness: Google's
// top-level fields are unambiguous, Anthropic's array-of-blocks content
// is next, and OpenAI's flat shape is the permissive default.
func Detect(body []byte) domain.FormatFamily {
	if gjson.GetBytes(body, "contents").Exists() || gjson.GetBytes(body, "generationConfig").Exists() {
		return domain.FormatGoogle
	}

	if sys := gjson.GetBytes(body, "system"); sys.Type == gjson.String && sys.Str != "" {
		return domain.FormatAnthropic
	}

	if gjson.GetBytes(body, "messages.0.content").IsArray() {
		return domain.FormatAnthropic
	}

	anthropic := false
	gjson.GetBytes(body, "messages").ForEach(func(_, msg gjson.Result) bool {
		content := msg.Get("content")
		if !content.IsArray() {
			return true
		}
		content.ForEach(func(_, block gjson.Result) bool {
			switch block.Get("type").Str {
			case "tool_use", "tool_result", "thinking":
				anthropic = true
			}
			return !anthropic
		})
		return !anthropic
	})
	if anthropic {
		return domain.FormatAnthropic
	}

	return domain.FormatOpenAI
}
