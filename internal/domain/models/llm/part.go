package llm

import (
	"encoding/json"
)

// Part type constants (storage "type" discriminator)
const (
	PartTypeText           = "text"
	PartTypeToolInvocation = "tool-invocation"
	PartTypeData           = "data"
	PartTypeError          = "error"
	PartTypeAnnotation     = "annotation"
	PartTypeReasoning      = "reasoning"
)

// ToolInvocationState is the lifecycle state of a tool invocation part
type ToolInvocationState string

const (
	ToolStateStreamStart ToolInvocationState = "streamStart"
	ToolStatePartialCall ToolInvocationState = "partial-call"
	ToolStateCall        ToolInvocationState = "call"
	ToolStateResult      ToolInvocationState = "result"
)

// Part is one typed content unit inside a turn. The set of implementations is
// closed: TextPart, ToolInvocationPart, DataPart, ErrorPart, AnnotationPart,
// ReasoningPart and UnknownPart.
type Part interface {
	PartType() string
	isPart()
}

// TextPart carries plain text
type TextPart struct {
	Text string
}

// ToolInvocationPart describes one tool call at a given lifecycle state.
//
// A call part always has ToolCallID and ToolName; a result part always has
// ToolCallID and Result. ToolName may be empty on a result part.
// Nil Args / ArgsTextDelta / Result mean the field is absent.
type ToolInvocationPart struct {
	ToolCallID    string
	ToolName      string
	State         ToolInvocationState
	Args          map[string]any
	ArgsTextDelta *string
	Result        any
}

// DataPart carries an arbitrary JSON value
type DataPart struct {
	Value json.RawMessage
}

// ErrorPart carries a user-visible error message
type ErrorPart struct {
	Message string
}

// AnnotationPart carries a JSON array of annotations
type AnnotationPart struct {
	Value json.RawMessage
}

// ReasoningPart carries model reasoning text
type ReasoningPart struct {
	Reasoning string
}

// UnknownPart is a stored part whose type was missing or not recognized.
// Text keeps the part's "text" field, if any; Raw keeps the original JSON.
type UnknownPart struct {
	Type string
	Text string
	Raw  json.RawMessage
}

func (TextPart) PartType() string           { return PartTypeText }
func (ToolInvocationPart) PartType() string { return PartTypeToolInvocation }
func (DataPart) PartType() string           { return PartTypeData }
func (ErrorPart) PartType() string          { return PartTypeError }
func (AnnotationPart) PartType() string     { return PartTypeAnnotation }
func (ReasoningPart) PartType() string      { return PartTypeReasoning }
func (p UnknownPart) PartType() string      { return p.Type }

func (TextPart) isPart()           {}
func (ToolInvocationPart) isPart() {}
func (DataPart) isPart()           {}
func (ErrorPart) isPart()          {}
func (AnnotationPart) isPart()     {}
func (ReasoningPart) isPart()      {}
func (UnknownPart) isPart()        {}

// Parts is an ordered part sequence. Order is semantically meaningful.
type Parts []Part

// ToolCalls returns the invocation parts in the given state, in order
func (ps Parts) ToolCalls(state ToolInvocationState) []ToolInvocationPart {
	var out []ToolInvocationPart
	for _, p := range ps {
		if inv, ok := p.(ToolInvocationPart); ok && inv.State == state {
			out = append(out, inv)
		}
	}
	return out
}
