package datastream

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatloop/internal/domain"
	"chatloop/internal/domain/models/llm"
)

func strPtr(s string) *string { return &s }

func TestEncode_TextTurn(t *testing.T) {
	turn := &llm.Turn{
		ID:    "turn-1",
		Role:  llm.RoleAssistant,
		Text:  "Hello",
		Parts: llm.Parts{llm.TextPart{Text: "Hello"}},
		Metadata: &llm.Metadata{
			FinishReason: llm.FinishReasonStop,
			Usage:        &llm.Usage{PromptTokens: 10, CompletionTokens: 5},
		},
	}

	lines, err := Encode(turn)
	require.NoError(t, err)
	assert.Equal(t, []string{
		`f:{"turnId":"turn-1"}`,
		`0:"Hello"`,
		`e:{"finishReason":"stop","usage":{"promptTokens":10,"completionTokens":5},"isContinued":false}`,
		`d:{"finishReason":"stop","usage":{"promptTokens":10,"completionTokens":5}}`,
	}, lines)
}

func TestEncode_ToolTurnContinues(t *testing.T) {
	turn := &llm.Turn{
		ID:   "turn-2",
		Role: llm.RoleAssistant,
		Parts: llm.Parts{
			llm.ToolInvocationPart{
				ToolCallID: "call-1",
				ToolName:   "getWeather",
				State:      llm.ToolStateCall,
				Args:       map[string]any{"latitude": 52.52, "longitude": 13.41},
			},
			llm.ToolInvocationPart{
				ToolCallID: "call-1",
				State:      llm.ToolStateResult,
				Result:     map[string]any{"temperature": 12.5},
			},
		},
		Metadata: &llm.Metadata{
			FinishReason: llm.FinishReasonToolCalls,
			Usage:        &llm.Usage{PromptTokens: 7, CompletionTokens: 3},
		},
	}

	lines, err := Encode(turn)
	require.NoError(t, err)
	assert.Equal(t, []string{
		`f:{"turnId":"turn-2"}`,
		`9:{"toolCallId":"call-1","toolName":"getWeather","args":{"latitude":52.52,"longitude":13.41}}`,
		`a:{"toolCallId":"call-1","result":{"temperature":12.5}}`,
		`e:{"finishReason":"tool-calls","usage":{"promptTokens":7,"completionTokens":3},"isContinued":true}`,
	}, lines)
}

func TestEncode_ErrorTurn(t *testing.T) {
	turn := &llm.Turn{
		ID:       "turn-err",
		Role:     llm.RoleAssistant,
		Text:     "provider down",
		Parts:    llm.Parts{llm.ErrorPart{Message: "provider down"}},
		Metadata: &llm.Metadata{FinishReason: llm.FinishReasonError, Usage: &llm.Usage{}},
	}

	lines, err := Encode(turn)
	require.NoError(t, err)
	assert.Equal(t, []string{
		`f:{"turnId":"turn-err"}`,
		`3:"provider down"`,
		`e:{"finishReason":"error","usage":{"promptTokens":0,"completionTokens":0},"isContinued":false}`,
		`d:{"finishReason":"error","usage":{"promptTokens":0,"completionTokens":0}}`,
	}, lines)
}

func TestEncode_EmptyPartsUsesText(t *testing.T) {
	lines, err := Encode(&llm.Turn{ID: "u1", Role: llm.RoleUser, Text: `<b>"hi"</b> & bye`})
	require.NoError(t, err)
	require.Len(t, lines, 4)
	assert.Equal(t, `0:"<b>\"hi\"</b> & bye"`, lines[1])

	// Missing metadata defaults to stop with zero usage
	assert.Equal(t, `e:{"finishReason":"stop","usage":{"promptTokens":0,"completionTokens":0},"isContinued":false}`, lines[2])
	assert.Equal(t, `d:{"finishReason":"stop","usage":{"promptTokens":0,"completionTokens":0}}`, lines[3])

	lines, err = Encode(&llm.Turn{ID: "u2"})
	require.NoError(t, err)
	assert.Equal(t, `0:""`, lines[1])
}

func TestEncode_EachPartKind(t *testing.T) {
	turn := &llm.Turn{
		ID: "t",
		Parts: llm.Parts{
			llm.ToolInvocationPart{ToolCallID: "x", ToolName: "getWeather", State: llm.ToolStateStreamStart},
			llm.ToolInvocationPart{ToolCallID: "x", ToolName: "getWeather", State: llm.ToolStatePartialCall, ArgsTextDelta: strPtr(`{"lat`)},
			llm.DataPart{Value: json.RawMessage(`[{"a": 1}]`)},
			llm.AnnotationPart{Value: json.RawMessage(`[{"source":"web"}]`)},
			llm.ReasoningPart{Reasoning: "let me think"},
			llm.UnknownPart{Type: "legacy", Text: "fallback text"},
			llm.UnknownPart{Type: "source"},
		},
		Metadata: &llm.Metadata{FinishReason: llm.FinishReasonLength},
	}

	lines, err := Encode(turn)
	require.NoError(t, err)
	assert.Equal(t, []string{
		`f:{"turnId":"t"}`,
		`b:{"toolCallId":"x","toolName":"getWeather"}`,
		`c:{"toolCallId":"x","argsTextDelta":"{\"lat"}`,
		`2:[{"a":1}]`,
		`8:[{"source":"web"}]`,
		`g:"let me think"`,
		`0:"fallback text"`,
		`e:{"finishReason":"length","usage":{"promptTokens":0,"completionTokens":0},"isContinued":false}`,
		`d:{"finishReason":"length","usage":{"promptTokens":0,"completionTokens":0}}`,
	}, lines)
}

func TestEncode_OptionalFieldDefaults(t *testing.T) {
	turn := &llm.Turn{
		ID: "t9",
		Parts: llm.Parts{
			llm.ToolInvocationPart{State: llm.ToolStateStreamStart},
			llm.ToolInvocationPart{State: llm.ToolStatePartialCall},
			llm.ToolInvocationPart{ToolCallID: "c", ToolName: "getWeather", State: llm.ToolStateCall},
			llm.ToolInvocationPart{ToolCallID: "c", State: llm.ToolStateResult},
			llm.DataPart{},
			llm.AnnotationPart{},
		},
		Metadata: &llm.Metadata{FinishReason: llm.FinishReasonContentFilter},
	}

	lines, err := Encode(turn)
	require.NoError(t, err)
	assert.Equal(t, `b:{"toolCallId":"call_t9_0","toolName":"unknownTool"}`, lines[1])
	assert.Equal(t, `c:{"toolCallId":"call_t9_1","argsTextDelta":""}`, lines[2])
	assert.Equal(t, `9:{"toolCallId":"c","toolName":"getWeather","args":{}}`, lines[3])
	assert.Equal(t, `a:{"toolCallId":"c","result":{}}`, lines[4])
	assert.Equal(t, `2:[]`, lines[5])
	assert.Equal(t, `8:[]`, lines[6])
	assert.True(t, strings.HasPrefix(lines[7], `e:{"finishReason":"content-filter"`))
}

func TestEncode_ResultStringKeptVerbatim(t *testing.T) {
	turn := &llm.Turn{
		ID: "t",
		Parts: llm.Parts{
			llm.ToolInvocationPart{ToolCallID: "c", State: llm.ToolStateResult, Result: "sunny, 21C"},
		},
	}
	lines, err := Encode(turn)
	require.NoError(t, err)
	assert.Equal(t, `a:{"toolCallId":"c","result":"sunny, 21C"}`, lines[1])
}

func TestEncode_MalformedParts(t *testing.T) {
	tests := []struct {
		name string
		part llm.Part
	}{
		{"call without id", llm.ToolInvocationPart{ToolName: "getWeather", State: llm.ToolStateCall}},
		{"call without name", llm.ToolInvocationPart{ToolCallID: "c", State: llm.ToolStateCall}},
		{"result without id", llm.ToolInvocationPart{State: llm.ToolStateResult, Result: "x"}},
		{"invalid data json", llm.DataPart{Value: json.RawMessage(`{oops`)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(&llm.Turn{ID: "t", Parts: llm.Parts{tt.part}})
			assert.ErrorIs(t, err, domain.ErrMalformedPart)
		})
	}
}

func TestEncode_UnknownToolStateSkipped(t *testing.T) {
	lines, err := Encode(&llm.Turn{ID: "t", Parts: llm.Parts{
		llm.ToolInvocationPart{ToolCallID: "c", State: "approval-requested"},
	}})
	require.NoError(t, err)
	assert.Len(t, lines, 3)
}

func genFinishReason() gopter.Gen {
	return gen.OneConstOf(
		llm.FinishReasonStop,
		llm.FinishReasonLength,
		llm.FinishReasonContentFilter,
		llm.FinishReasonToolCalls,
		llm.FinishReasonError,
		llm.FinishReasonOther,
		llm.FinishReasonUnknown,
		llm.FinishReason(""),
	)
}

func genPart() gopter.Gen {
	return gen.OneGenOf(
		gen.AlphaString().Map(func(s string) llm.Part { return llm.TextPart{Text: s} }),
		gen.AlphaString().Map(func(s string) llm.Part { return llm.ReasoningPart{Reasoning: s} }),
		gen.AlphaString().Map(func(s string) llm.Part { return llm.ErrorPart{Message: s} }),
		gen.AlphaString().Map(func(s string) llm.Part {
			return llm.ToolInvocationPart{ToolName: s, State: llm.ToolStateStreamStart}
		}),
		gen.AlphaString().Map(func(s string) llm.Part {
			return llm.ToolInvocationPart{ToolCallID: "id-" + s, ToolName: "getWeather", State: llm.ToolStateCall}
		}),
		gen.AlphaString().Map(func(s string) llm.Part {
			return llm.ToolInvocationPart{ToolCallID: "id-" + s, State: llm.ToolStateResult, Result: s}
		}),
	)
}

func genTurn() gopter.Gen {
	return gopter.CombineGens(
		gen.Identifier(),
		gen.AlphaString(),
		gen.SliceOf(genPart()),
		genFinishReason(),
		gen.IntRange(0, 10000),
		gen.IntRange(0, 10000),
	).Map(func(v []any) *llm.Turn {
		parts := llm.Parts{}
		for _, p := range v[2].([]llm.Part) {
			parts = append(parts, p)
		}
		return &llm.Turn{
			ID:    v[0].(string),
			Role:  llm.RoleAssistant,
			Text:  v[1].(string),
			Parts: parts,
			Metadata: &llm.Metadata{
				FinishReason: v[3].(llm.FinishReason),
				Usage:        &llm.Usage{PromptTokens: v[4].(int), CompletionTokens: v[5].(int)},
			},
		}
	})
}

func TestEncodeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("turns without parts encode to four lines", prop.ForAll(
		func(id, text string) bool {
			lines, err := Encode(&llm.Turn{ID: id, Text: text})
			if err != nil || len(lines) != 4 {
				return false
			}
			var got string
			if err := json.Unmarshal([]byte(strings.TrimPrefix(lines[1], "0:")), &got); err != nil {
				return false
			}
			return strings.HasPrefix(lines[0], "f:") &&
				strings.HasPrefix(lines[1], "0:") && got == text &&
				strings.HasPrefix(lines[2], "e:") &&
				strings.HasPrefix(lines[3], "d:")
		},
		gen.Identifier(),
		gen.AlphaString(),
	))

	properties.Property("encoding is deterministic", prop.ForAll(
		func(turn *llm.Turn) bool {
			first, err1 := Encode(turn)
			second, err2 := Encode(turn)
			return err1 == nil && err2 == nil && strings.Join(first, "\n") == strings.Join(second, "\n")
		},
		genTurn(),
	))

	properties.Property("finish message is emitted unless continuing", prop.ForAll(
		func(turn *llm.Turn) bool {
			lines, err := Encode(turn)
			if err != nil {
				return false
			}
			continued := turn.Metadata.FinishReason == llm.FinishReasonToolCalls
			last := lines[len(lines)-1]

			if continued {
				var step finishStepPayload
				if err := json.Unmarshal([]byte(strings.TrimPrefix(last, "e:")), &step); err != nil {
					return false
				}
				return strings.HasPrefix(last, "e:") && step.IsContinued
			}

			prev := lines[len(lines)-2]
			return strings.HasPrefix(last, "d:") &&
				strings.HasPrefix(prev, "e:") &&
				strings.Contains(prev, `"isContinued":false`)
		},
		genTurn(),
	))

	properties.Property("one content line per part", prop.ForAll(
		func(turn *llm.Turn) bool {
			lines, err := Encode(turn)
			if err != nil {
				return false
			}
			framing := 3
			if turn.Metadata.FinishReason == llm.FinishReasonToolCalls {
				framing = 2
			}
			content := len(turn.Parts)
			if content == 0 {
				content = 1
			}
			return len(lines) == framing+content
		},
		genTurn(),
	))

	properties.TestingRun(t)
}
