package domain

import "strings"

// FormatFamily identifies one of the three structurally distinct
// chat-completion wire formats a provider can speak.
type FormatFamily string

const (
	FormatOpenAI    FormatFamily = "openai"
	FormatAnthropic FormatFamily = "anthropic"
	FormatGoogle    FormatFamily = "google"
)

// providerFamilies maps a provider name to its wire format. Providers that
// expose OpenAI-compatible endpoints all share the openai family.
var providerFamilies = map[string]FormatFamily{
	"openai":     FormatOpenAI,
	"azure":      FormatOpenAI,
	"openrouter": FormatOpenAI,
	"deepseek":   FormatOpenAI,
	"groq":       FormatOpenAI,
	"mistral":    FormatOpenAI,
	"xai":        FormatOpenAI,
	"ollama":     FormatOpenAI,
	"anthropic":  FormatAnthropic,
	"claude":     FormatAnthropic,
	"google":     FormatGoogle,
	"gemini":     FormatGoogle,
	"vertex":     FormatGoogle,
}

// FamilyForProvider resolves a provider name to its format family.
// Unknown providers default to the OpenAI family, which is the de facto
// compatibility format for most gateways.
func FamilyForProvider(provider string) FormatFamily {
	if f, ok := providerFamilies[strings.ToLower(strings.TrimSpace(provider))]; ok {
		return f
	}
	return FormatOpenAI
}
