package llm

// FinishReason is the provider-side outcome of one inference round.
// Values are persisted in turn metadata as-is.
type FinishReason string

const (
	FinishReasonStop          FinishReason = "Stop"
	FinishReasonLength        FinishReason = "Length"
	FinishReasonContentFilter FinishReason = "ContentFilter"
	FinishReasonToolCalls     FinishReason = "ToolCalls"
	FinishReasonError         FinishReason = "Error"
	FinishReasonOther         FinishReason = "Other"
	FinishReasonUnknown       FinishReason = "Unknown"
)

// Wire finish reasons understood by the client SDK
const (
	WireFinishReasonStop          = "stop"
	WireFinishReasonLength        = "length"
	WireFinishReasonContentFilter = "content-filter"
	WireFinishReasonToolCalls     = "tool-calls"
	WireFinishReasonError         = "error"
	WireFinishReasonUnknown       = "unknown"
)

// Wire maps a provider finish reason to its wire value.
// Total: anything unrecognized (including Other) maps to "unknown".
func (f FinishReason) Wire() string {
	switch f {
	case FinishReasonStop:
		return WireFinishReasonStop
	case FinishReasonLength:
		return WireFinishReasonLength
	case FinishReasonContentFilter:
		return WireFinishReasonContentFilter
	case FinishReasonToolCalls:
		return WireFinishReasonToolCalls
	case FinishReasonError:
		return WireFinishReasonError
	default:
		return WireFinishReasonUnknown
	}
}

// WantsToolContinuation reports whether the provider stopped to let tools run
func (f FinishReason) WantsToolContinuation() bool {
	return f == FinishReasonToolCalls
}

// FinishReasonFromStopReason maps a raw provider stop reason to a FinishReason.
// Understands the Anthropic (end_turn, tool_use, ...) and OpenAI
// (stop, tool_calls, ...) vocabularies.
func FinishReasonFromStopReason(raw string) FinishReason {
	switch raw {
	case "end_turn", "stop_sequence", "stop":
		return FinishReasonStop
	case "max_tokens", "length":
		return FinishReasonLength
	case "tool_use", "tool_calls", "function_call":
		return FinishReasonToolCalls
	case "refusal", "content_filter":
		return FinishReasonContentFilter
	case "pause_turn":
		return FinishReasonOther
	default:
		return FinishReasonUnknown
	}
}
