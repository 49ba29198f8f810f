package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/modelrelay/modelrelay/internal/core/domain"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		body string
		want domain.FormatFamily
	}{
		{
			name: "google contents",
			body: `{"contents":[{"role":"user","parts":[{"text":"hi"}]}]}`,
			want: domain.FormatGoogle,
		},
		{
			name: "google generationConfig alone",
			body: `{"messages":[],"generationConfig":{"temperature":0.5}}`,
			want: domain.FormatGoogle,
		},
		{
			name: "anthropic string system",
			body: `{"system":"be terse","messages":[{"role":"user","content":"hi"}]}`,
			want: domain.FormatAnthropic,
		},
		{
			name: "empty system string is not anthropic",
			body: `{"system":"","messages":[{"role":"user","content":"hi"}]}`,
			want: domain.FormatOpenAI,
		},
		{
			name: "anthropic block-array first message",
			body: `{"messages":[{"role":"user","content":[{"type":"text","text":"hi"}]}]}`,
			want: domain.FormatAnthropic,
		},
		{
			name: "anthropic tool_use in later message",
			body: `{"messages":[{"role":"user","content":"hi"},{"role":"assistant","content":[{"type":"tool_use","id":"t1","name":"f","input":{}}]}]}`,
			want: domain.FormatAnthropic,
		},
		{
			name: "plain openai",
			body: `{"model":"gpt-4o","messages":[{"role":"user","content":"hi"}]}`,
			want: domain.FormatOpenAI,
		},
		{
			name: "empty object defaults to openai",
			body: `{}`,
			want: domain.FormatOpenAI,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect([]byte(tt.body)))
		})
	}
}

func TestFamilyForProvider_UnknownDefaultsToOpenAI(t *testing.T) {
	assert.Equal(t, domain.FormatOpenAI, domain.FamilyForProvider("some-new-provider"))
	assert.Equal(t, domain.FormatAnthropic, domain.FamilyForProvider("Anthropic"))
	assert.Equal(t, domain.FormatGoogle, domain.FamilyForProvider("gemini"))
}
