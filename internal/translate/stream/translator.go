// Package stream implements the OpenAI SSE → Anthropic SSE state machine
// (spec §4.5): the most delicate of the gateway's translation components,
// since it must track open content blocks across an unbounded sequence of
// small byte chunks and still produce a well-formed Anthropic event
// sequence no matter how the upstream chunks it.
package stream

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/kestrelai/devstral-gateway/internal/translate/mistralparse"
	"github.com/kestrelai/devstral-gateway/internal/translate/toolid"
	"github.com/kestrelai/devstral-gateway/internal/translate/types"
)

// mistralInlineWindow is the sliding-buffer size used while deciding
// whether accumulating text is actually a `[TOOL_CALLS]` marker in
// disguise. It must be at least len("[TOOL_CALLS]") so the marker can
// never be split across a flush (spec §9 design note).
const mistralInlineWindow = 24

// Translator converts one upstream OpenAI chat-completion SSE stream into
// the matching sequence of Anthropic SSE frames. It is a pure state
// machine: Feed consumes raw bytes and returns the events they produce;
// Finish flushes whatever the state machine is still holding. Translator
// is not safe for concurrent use — each stream gets its own instance.
type Translator struct {
	messageID      string
	model          string
	estimatedInput int
	mistralMode    bool

	lineBuf bytes.Buffer

	started  bool
	done     bool
	finished bool

	contentIndex int
	openBlocks   map[int]bool

	textOpen    bool
	localTokens int

	toolBlockByIndex map[int]int
	toolBaseIndex    int
	toolBaseSet      bool

	mistralInline  bool
	mistralBuf     strings.Builder
	mistralArmed   bool

	pendingStopReason *string
	upstreamCompleted int
	haveUsage         bool
}

// New builds a Translator for one response. messageID seeds the
// message_start event's id; model is the declared output model name;
// estimatedInputTokens is the precomputed prompt token count (spec §6).
// The inline tool-call recovery mode is switched on when model contains
// "mistral", "devstral" or "codestral" (case-insensitive).
func New(messageID, model string, estimatedInputTokens int) *Translator {
	return &Translator{
		messageID:        messageID,
		model:            model,
		estimatedInput:   estimatedInputTokens,
		mistralMode:      isMistralFamily(model),
		openBlocks:       make(map[int]bool),
		toolBlockByIndex: make(map[int]int),
	}
}

func isMistralFamily(model string) bool {
	lower := strings.ToLower(model)
	return strings.Contains(lower, "mistral") || strings.Contains(lower, "devstral") || strings.Contains(lower, "codestral")
}

// Feed appends raw upstream bytes, reassembles complete SSE lines, and
// returns the Anthropic events those lines produce. Partial trailing lines
// are retained for the next call.
func (t *Translator) Feed(chunk []byte) []types.AnthropicEvent {
	if t.finished {
		return nil
	}
	t.lineBuf.Write(chunk)

	var events []types.AnthropicEvent
	for {
		raw := t.lineBuf.Bytes()
		idx := bytes.IndexByte(raw, '\n')
		if idx == -1 {
			break
		}
		line := raw[:idx]
		t.lineBuf.Next(idx + 1)
		events = append(events, t.handleLine(bytes.TrimRight(line, "\r"))...)
		if t.finished {
			break
		}
	}
	return events
}

// Finish flushes any state still held when the upstream body ends without
// an explicit `[DONE]` sentinel (a malformed or truncated upstream
// response), so the client still sees a well-formed Anthropic message.
func (t *Translator) Finish() []types.AnthropicEvent {
	if t.finished {
		return nil
	}
	return t.finalize()
}

func (t *Translator) handleLine(line []byte) []types.AnthropicEvent {
	const prefix = "data: "
	if !bytes.HasPrefix(line, []byte(prefix)) {
		return nil
	}
	payload := bytes.TrimSpace(line[len(prefix):])
	if string(payload) == "[DONE]" {
		return t.finalize()
	}

	var chunk types.OpenAIStreamChunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		return nil
	}
	return t.handleChunk(chunk)
}

func (t *Translator) handleChunk(chunk types.OpenAIStreamChunk) []types.AnthropicEvent {
	var events []types.AnthropicEvent

	if !t.started {
		events = append(events, t.emitMessageStart())
	}

	for _, choice := range chunk.Choices {
		events = append(events, t.handleDelta(choice.Delta)...)
		if choice.FinishReason != nil {
			events = append(events, t.handleFinishReason(*choice.FinishReason)...)
		}
	}

	if chunk.Usage != nil {
		t.haveUsage = true
		t.upstreamCompleted = chunk.Usage.CompletionTokens
		if t.pendingStopReason != nil {
			events = append(events, t.emitFinal()...)
		}
	}

	return events
}

func (t *Translator) emitMessageStart() types.AnthropicEvent {
	t.started = true
	return types.AnthropicEvent{
		Type: types.EventMessageStart,
		Data: types.MessageStartData{
			Type: "message_start",
			Message: types.MessageStartDataMessage{
				ID:      t.messageID,
				Type:    "message",
				Role:    "assistant",
				Content: []types.AnthropicContentBlock{},
				Model:   t.model,
				Usage:   types.AnthropicUsage{InputTokens: t.estimatedInput, OutputTokens: 0},
			},
		},
	}
}

func (t *Translator) handleDelta(delta types.OpenAIStreamDelta) []types.AnthropicEvent {
	var events []types.AnthropicEvent

	if delta.Content != nil && *delta.Content != "" {
		events = append(events, t.handleTextFragment(*delta.Content)...)
	}

	for _, toolDelta := range delta.ToolCalls {
		events = append(events, t.handleToolDelta(toolDelta)...)
	}

	return events
}

func (t *Translator) handleTextFragment(text string) []types.AnthropicEvent {
	if !t.mistralMode {
		return t.emitTextDelta(text)
	}

	t.mistralBuf.WriteString(text)
	buffered := t.mistralBuf.String()

	if strings.Contains(buffered, "[TOOL_CALLS]") {
		t.mistralInline = true
		return nil
	}
	if t.mistralInline {
		return nil
	}

	if len(buffered) <= mistralInlineWindow {
		return nil
	}

	safeLen := len(buffered) - mistralInlineWindow
	safe := buffered[:safeLen]
	t.mistralBuf.Reset()
	t.mistralBuf.WriteString(buffered[safeLen:])
	if safe == "" {
		return nil
	}
	return t.emitTextDelta(safe)
}

func (t *Translator) emitTextDelta(text string) []types.AnthropicEvent {
	var events []types.AnthropicEvent
	if !t.textOpen && !t.toolBaseSet {
		events = append(events, t.openTextBlock())
	}
	if !t.textOpen {
		// A tool block base was already claimed (out-of-spec ordering: text
		// arriving after tool calls started); nothing sane to open here.
		return events
	}
	t.localTokens++
	events = append(events, types.AnthropicEvent{
		Type: types.EventContentBlockDelta,
		Data: ContentBlockDelta(t.contentIndex, types.TextDelta(text)),
	})
	return events
}

func (t *Translator) openTextBlock() types.AnthropicEvent {
	t.textOpen = true
	t.openBlocks[t.contentIndex] = true
	return types.AnthropicEvent{
		Type: types.EventContentBlockStart,
		Data: ContentBlockStart(t.contentIndex, types.AnthropicContentBlock{Type: types.AnthropicBlockText, Text: ""}),
	}
}

func (t *Translator) handleToolDelta(toolDelta types.OpenAIStreamToolCallDelta) []types.AnthropicEvent {
	var events []types.AnthropicEvent

	if !t.toolBaseSet {
		if t.textOpen {
			events = append(events, t.closeBlock(t.contentIndex))
			t.contentIndex++
		}
		t.toolBaseIndex = t.contentIndex
		t.toolBaseSet = true
	}

	blockIndex, seen := t.toolBlockByIndex[toolDelta.Index]
	if !seen {
		blockIndex = t.toolBaseIndex + toolDelta.Index
		t.toolBlockByIndex[toolDelta.Index] = blockIndex
		t.openBlocks[blockIndex] = true
		id := toolid.Normalize(toolDelta.ID)
		events = append(events, types.AnthropicEvent{
			Type: types.EventContentBlockStart,
			Data: ContentBlockStart(blockIndex, types.AnthropicContentBlock{
				Type: types.AnthropicBlockToolUse,
				ID:   id,
				Name: toolDelta.Function.Name,
			}),
		})
	}

	if toolDelta.Function.Arguments != "" {
		t.localTokens++
		events = append(events, types.AnthropicEvent{
			Type: types.EventContentBlockDelta,
			Data: ContentBlockDelta(blockIndex, types.InputJSONDelta(toolDelta.Function.Arguments)),
		})
	}

	return events
}

func (t *Translator) closeBlock(index int) types.AnthropicEvent {
	delete(t.openBlocks, index)
	if index == t.contentIndex {
		t.textOpen = false
	}
	return types.AnthropicEvent{
		Type: types.EventContentBlockStop,
		Data: types.ContentBlockStopData{Type: "content_block_stop", Index: index},
	}
}

// handleFinishReason runs when a chunk carries a finish_reason. OpenAI
// never sends further content after this point (only, optionally, a
// trailing usage-only chunk), so this is also where Mistral inline-mode
// buffer resolution happens: flushMistralBuffer may override the mapped
// stop reason to "tool_use" if it recovers any calls.
func (t *Translator) handleFinishReason(reason string) []types.AnthropicEvent {
	var events []types.AnthropicEvent

	stopReason := mapFinishReason(reason)
	t.pendingStopReason = &stopReason

	if t.mistralMode {
		events = append(events, t.flushMistralBuffer()...)
	}
	events = append(events, t.closeAllOpenBlocks()...)

	if !t.haveUsage {
		return events
	}
	events = append(events, t.emitFinal()...)
	return events
}

func (t *Translator) closeAllOpenBlocks() []types.AnthropicEvent {
	indices := make([]int, 0, len(t.openBlocks))
	for idx := range t.openBlocks {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	var events []types.AnthropicEvent
	for _, idx := range indices {
		events = append(events, t.closeBlock(idx))
	}
	return events
}

func mapFinishReason(reason string) string {
	switch reason {
	case "stop":
		return "end_turn"
	case "tool_calls":
		return "tool_use"
	case "length":
		return "max_tokens"
	default:
		return reason
	}
}

// emitFinal produces the message_delta + message_stop pair once both a
// stop reason and a usage-bearing chunk have been observed (spec §4.5
// step 5).
func (t *Translator) emitFinal() []types.AnthropicEvent {
	if t.finished {
		return nil
	}
	t.finished = true
	t.done = true

	outputTokens := t.localTokens
	if t.upstreamCompleted > outputTokens {
		outputTokens = t.upstreamCompleted
	}

	stopReason := "end_turn"
	if t.pendingStopReason != nil {
		stopReason = *t.pendingStopReason
	}

	return []types.AnthropicEvent{
		{
			Type: types.EventMessageDelta,
			Data: types.MessageDeltaData{
				Type:  "message_delta",
				Delta: types.MessageDeltaInner{StopReason: &stopReason},
				Usage: types.AnthropicUsage{InputTokens: t.estimatedInput, OutputTokens: outputTokens},
			},
		},
		{Type: types.EventMessageStop, Data: types.MessageStopData{Type: "message_stop"}},
	}
}

// finalize runs when the stream ends (either `[DONE]` was seen or the
// upstream body closed): it recovers any buffered Mistral inline tool
// calls, flushes remaining plain text, closes open blocks, and emits the
// closing message_delta/message_stop pair exactly once.
func (t *Translator) finalize() []types.AnthropicEvent {
	var events []types.AnthropicEvent

	if !t.started {
		events = append(events, t.emitMessageStart())
	}

	if t.mistralMode {
		events = append(events, t.flushMistralBuffer()...)
	}

	if t.textOpen || len(t.openBlocks) > 0 {
		events = append(events, t.closeAllOpenBlocks()...)
	}

	if t.pendingStopReason == nil {
		stop := "end_turn"
		t.pendingStopReason = &stop
	}
	events = append(events, t.emitFinal()...)
	return events
}

// flushMistralBuffer resolves the sliding-window buffer at stream end: if
// the `[TOOL_CALLS]` marker was ever observed, parse the full buffer and
// emit tool_use blocks instead of the buffered text (spec §4.5); otherwise
// the buffered tail is ordinary trailing text.
func (t *Translator) flushMistralBuffer() []types.AnthropicEvent {
	buffered := t.mistralBuf.String()
	t.mistralBuf.Reset()
	if buffered == "" {
		return nil
	}

	if !t.mistralInline {
		return t.emitTextDelta(buffered)
	}

	var events []types.AnthropicEvent
	if t.textOpen {
		events = append(events, t.closeBlock(t.contentIndex))
		t.contentIndex++
	}

	calls := mistralparse.Parse(buffered)
	for i, call := range calls {
		blockIndex := t.contentIndex
		t.contentIndex++
		t.openBlocks[blockIndex] = true
		id := toolid.Normalize("mistral_inline_" + strconv.Itoa(i) + "_" + call.Name)
		events = append(events, types.AnthropicEvent{
			Type: types.EventContentBlockStart,
			Data: ContentBlockStart(blockIndex, types.AnthropicContentBlock{
				Type: types.AnthropicBlockToolUse,
				ID:   id,
				Name: call.Name,
			}),
		})
		events = append(events, types.AnthropicEvent{
			Type: types.EventContentBlockDelta,
			Data: ContentBlockDelta(blockIndex, types.InputJSONDelta(string(call.Arguments))),
		})
	}

	if len(calls) > 0 {
		stop := "tool_use"
		t.pendingStopReason = &stop
	}

	return events
}

// ContentBlockStart builds a content_block_start payload.
func ContentBlockStart(index int, block types.AnthropicContentBlock) types.ContentBlockStartData {
	return types.ContentBlockStartData{Type: "content_block_start", Index: index, ContentBlock: block}
}

// ContentBlockDelta builds a content_block_delta payload.
func ContentBlockDelta(index int, delta types.AnthropicDelta) types.ContentBlockDeltaData {
	return types.ContentBlockDeltaData{Type: "content_block_delta", Index: index, Delta: delta}
}
