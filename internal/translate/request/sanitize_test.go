package request_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kestrelai/devstral-gateway/internal/translate/request"
)

func TestSanitizeToolName_PassesThroughValidName(t *testing.T) {
	assert.Equal(t, "get_weather", request.SanitizeToolName("get_weather"))
}

func TestSanitizeToolName_ReplacesDisallowedCharacters(t *testing.T) {
	assert.Equal(t, "get_weather", request.SanitizeToolName("get weather!"))
}

func TestSanitizeToolName_TrimsLeadingAndTrailingUnderscores(t *testing.T) {
	assert.Equal(t, "name", request.SanitizeToolName("!name!"))
}

func TestSanitizeToolName_TruncatesToMaxLength(t *testing.T) {
	got := request.SanitizeToolName(strings.Repeat("a", 100))
	assert.Len(t, got, 64)
}

func TestSanitizeToolName_EmptyResultFallsBackToDefault(t *testing.T) {
	assert.Equal(t, "unknown_tool", request.SanitizeToolName("!!!"))
}

func TestSanitizeToolName_WhitespaceOnlyFallsBackToDefault(t *testing.T) {
	assert.Equal(t, "unknown_tool", request.SanitizeToolName("   "))
}
