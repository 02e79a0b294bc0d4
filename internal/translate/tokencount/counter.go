// Package tokencount implements the gateway's input-token estimator (spec
// §6, §6a): a BPE count over message text, tool payloads, and the system
// prompt, using the same GPT-4 encoding a Mistral tokenizer approximates
// closely enough for admission-free estimation purposes.
package tokencount

import (
	"encoding/json"
	"log/slog"
	"math"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/kestrelai/devstral-gateway/internal/translate/types"
)

var (
	encoderOnce sync.Once
	encoder     *tiktoken.Tiktoken
	useFallback bool
)

func loadEncoder() {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		slog.Warn("tokencount: cl100k_base encoder unavailable, falling back to char heuristic for the rest of this process", "error", err)
		useFallback = true
		return
	}
	encoder = enc
}

// countText returns the BPE token count for s, falling back to
// ceil(len(s)/4) for the lifetime of the process if the encoder could
// never be constructed (spec §6a: "never retries per-request").
func countText(s string) int {
	encoderOnce.Do(loadEncoder)
	if useFallback || s == "" {
		if s == "" {
			return 0
		}
		return int(math.Ceil(float64(len(s)) / 4))
	}
	return len(encoder.Encode(s, nil, nil))
}

// Count sums BPE tokens over a request's message text parts, JSON-encoded
// tool inputs/results, system prompt text, and each tool's name,
// description, and JSON-encoded input schema (spec §6).
func Count(req types.AnthropicRequest) int {
	total := 0

	if req.System != nil {
		total += countText(req.System.Text)
		for _, block := range req.System.Blocks {
			total += countText(block.Text)
		}
	}

	for _, msg := range req.Messages {
		total += countText(msg.Content.Text)
		for _, block := range msg.Content.Blocks {
			total += countBlock(block)
		}
	}

	for _, tool := range req.Tools {
		total += countText(tool.Name)
		total += countText(tool.Description)
		total += countJSON(tool.InputSchema)
	}

	return total
}

func countBlock(block types.AnthropicContentBlock) int {
	switch block.Type {
	case types.AnthropicBlockText:
		return countText(block.Text)
	case types.AnthropicBlockToolUse:
		return countText(block.Name) + countJSON(block.Input)
	case types.AnthropicBlockToolResult:
		if len(block.Content.Blocks) > 0 {
			total := 0
			for _, inner := range block.Content.Blocks {
				total += countBlock(inner)
			}
			return total
		}
		return countText(block.Content.Text)
	default:
		return 0
	}
}

func countJSON(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	return countText(string(raw))
}
