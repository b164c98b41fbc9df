// Package datastream encodes persisted turns into data stream protocol lines.
//
// Every line has the shape <tag>:<JSON payload>. A turn always encodes as a
// start-step line, its content lines, a finish-step line and, unless the
// model is continuing with tool calls, a finish-message line.
package datastream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"chatloop/internal/domain"
	"chatloop/internal/domain/models/llm"
)

// Line tags
const (
	TagStartStep     = "f"
	TagText          = "0"
	TagToolCallStart = "b"
	TagToolCallDelta = "c"
	TagToolCall      = "9"
	TagToolResult    = "a"
	TagData          = "2"
	TagError         = "3"
	TagAnnotation    = "8"
	TagReasoning     = "g"
	TagFinishStep    = "e"
	TagFinishMessage = "d"
)

// PlaceholderToolName stands in for a missing tool name on streaming tool parts
const PlaceholderToolName = "unknownTool"

type startStepPayload struct {
	TurnID string `json:"turnId"`
}

type toolCallStartPayload struct {
	ToolCallID string `json:"toolCallId"`
	ToolName   string `json:"toolName"`
}

type toolCallDeltaPayload struct {
	ToolCallID    string `json:"toolCallId"`
	ArgsTextDelta string `json:"argsTextDelta"`
}

type toolCallPayload struct {
	ToolCallID string `json:"toolCallId"`
	ToolName   string `json:"toolName"`
	Args       any    `json:"args"`
}

type toolResultPayload struct {
	ToolCallID string `json:"toolCallId"`
	Result     any    `json:"result"`
}

type finishStepPayload struct {
	FinishReason string    `json:"finishReason"`
	Usage        llm.Usage `json:"usage"`
	IsContinued  bool      `json:"isContinued"`
}

type finishMessagePayload struct {
	FinishReason string    `json:"finishReason"`
	Usage        llm.Usage `json:"usage"`
}

// Encode converts one turn into its ordered protocol lines, without trailing
// newlines. It reads nothing but the turn, so encoding the same turn twice
// yields identical lines.
//
// A tool call part without a toolCallId or toolName, or a tool result part
// without a toolCallId, fails with domain.ErrMalformedPart.
func Encode(turn *llm.Turn) ([]string, error) {
	lines := make([]string, 0, len(turn.Parts)+3)

	line, err := encodeLine(TagStartStep, startStepPayload{TurnID: turn.ID})
	if err != nil {
		return nil, err
	}
	lines = append(lines, line)

	if len(turn.Parts) == 0 {
		line, err := encodeLine(TagText, turn.Text)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}

	for i, part := range turn.Parts {
		line, ok, err := encodePart(turn.ID, i, part)
		if err != nil {
			return nil, fmt.Errorf("turn %s part %d: %w", turn.ID, i, err)
		}
		if ok {
			lines = append(lines, line)
		}
	}

	finishReason := turn.FinishReasonOrDefault().Wire()
	usage := turn.UsageOrZero()
	continued := finishReason == llm.WireFinishReasonToolCalls

	line, err = encodeLine(TagFinishStep, finishStepPayload{
		FinishReason: finishReason,
		Usage:        usage,
		IsContinued:  continued,
	})
	if err != nil {
		return nil, err
	}
	lines = append(lines, line)

	if !continued {
		line, err := encodeLine(TagFinishMessage, finishMessagePayload{
			FinishReason: finishReason,
			Usage:        usage,
		})
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}

	return lines, nil
}

// encodePart returns ok=false for parts that produce no line
func encodePart(turnID string, index int, part llm.Part) (string, bool, error) {
	var (
		line string
		err  error
	)

	switch p := part.(type) {
	case llm.TextPart:
		line, err = encodeLine(TagText, p.Text)
	case llm.ToolInvocationPart:
		if !knownToolState(p.State) {
			return "", false, nil
		}
		line, err = encodeToolInvocation(turnID, index, p)
	case llm.DataPart:
		line, err = encodeRaw(TagData, p.Value)
	case llm.ErrorPart:
		line, err = encodeLine(TagError, p.Message)
	case llm.AnnotationPart:
		line, err = encodeRaw(TagAnnotation, p.Value)
	case llm.ReasoningPart:
		line, err = encodeLine(TagReasoning, p.Reasoning)
	case llm.UnknownPart:
		if p.Text == "" {
			return "", false, nil
		}
		line, err = encodeLine(TagText, p.Text)
	default:
		return "", false, nil
	}

	if err != nil {
		return "", false, err
	}
	return line, true, nil
}

func encodeToolInvocation(turnID string, index int, p llm.ToolInvocationPart) (string, error) {
	switch p.State {
	case llm.ToolStateStreamStart:
		return encodeLine(TagToolCallStart, toolCallStartPayload{
			ToolCallID: orPlaceholderID(p.ToolCallID, turnID, index),
			ToolName:   orPlaceholderName(p.ToolName),
		})

	case llm.ToolStatePartialCall:
		delta := ""
		if p.ArgsTextDelta != nil {
			delta = *p.ArgsTextDelta
		}
		return encodeLine(TagToolCallDelta, toolCallDeltaPayload{
			ToolCallID:    orPlaceholderID(p.ToolCallID, turnID, index),
			ArgsTextDelta: delta,
		})

	case llm.ToolStateCall:
		if p.ToolCallID == "" {
			return "", fmt.Errorf("%w: tool call without toolCallId", domain.ErrMalformedPart)
		}
		if p.ToolName == "" {
			return "", fmt.Errorf("%w: tool call %s without toolName", domain.ErrMalformedPart, p.ToolCallID)
		}
		var args any = map[string]any{}
		if p.Args != nil {
			args = p.Args
		}
		return encodeLine(TagToolCall, toolCallPayload{
			ToolCallID: p.ToolCallID,
			ToolName:   p.ToolName,
			Args:       args,
		})

	case llm.ToolStateResult:
		if p.ToolCallID == "" {
			return "", fmt.Errorf("%w: tool result without toolCallId", domain.ErrMalformedPart)
		}
		result := p.Result
		if result == nil {
			result = map[string]any{}
		}
		return encodeLine(TagToolResult, toolResultPayload{
			ToolCallID: p.ToolCallID,
			Result:     result,
		})

	default:
		return "", fmt.Errorf("%w: unknown tool invocation state %q", domain.ErrMalformedPart, p.State)
	}
}

func knownToolState(s llm.ToolInvocationState) bool {
	switch s {
	case llm.ToolStateStreamStart, llm.ToolStatePartialCall, llm.ToolStateCall, llm.ToolStateResult:
		return true
	}
	return false
}

// orPlaceholderID derives a stable id from the turn and part position
func orPlaceholderID(id, turnID string, index int) string {
	if id != "" {
		return id
	}
	return "call_" + turnID + "_" + strconv.Itoa(index)
}

func orPlaceholderName(name string) string {
	if name != "" {
		return name
	}
	return PlaceholderToolName
}

// encodeRaw writes an already-encoded JSON value. Empty values become [].
func encodeRaw(tag string, raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return tag + ":[]", nil
	}
	if !json.Valid(raw) {
		return "", fmt.Errorf("%w: invalid JSON for %s line", domain.ErrMalformedPart, tag)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrMalformedPart, err)
	}
	return tag + ":" + buf.String(), nil
}

func encodeLine(tag string, v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encode %s line: %w", tag, err)
	}
	return tag + ":" + string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
