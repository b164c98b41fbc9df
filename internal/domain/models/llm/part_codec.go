package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// storedPart is the persisted JSON shape of a part.
// It matches the client SDK's UI message part layout so hydrated turns can be
// handed to the client unchanged.
type storedPart struct {
	Type           string                `json:"type,omitempty"`
	Text           *string               `json:"text,omitempty"`
	ToolInvocation *storedToolInvocation `json:"toolInvocation,omitempty"`
	Data           json.RawMessage       `json:"data,omitempty"`
	Message        *string               `json:"message,omitempty"`
	Annotations    json.RawMessage       `json:"annotations,omitempty"`
	Reasoning      *string               `json:"reasoning,omitempty"`
}

type storedToolInvocation struct {
	State         ToolInvocationState `json:"state"`
	ToolCallID    string              `json:"toolCallId,omitempty"`
	ToolName      string              `json:"toolName,omitempty"`
	Args          map[string]any      `json:"args,omitempty"`
	ArgsTextDelta *string             `json:"argsTextDelta,omitempty"`
	Result        any                 `json:"result,omitempty"`
}

// MarshalJSON encodes parts in their storage layout
func (ps Parts) MarshalJSON() ([]byte, error) {
	if ps == nil {
		return []byte("[]"), nil
	}

	out := make([]json.RawMessage, 0, len(ps))
	for i, p := range ps {
		raw, err := marshalPart(p)
		if err != nil {
			return nil, fmt.Errorf("part %d: %w", i, err)
		}
		out = append(out, raw)
	}
	return json.Marshal(out)
}

func marshalPart(p Part) (json.RawMessage, error) {
	var sp storedPart

	switch v := p.(type) {
	case TextPart:
		sp = storedPart{Type: PartTypeText, Text: &v.Text}
	case ToolInvocationPart:
		sp = storedPart{
			Type: PartTypeToolInvocation,
			ToolInvocation: &storedToolInvocation{
				State:         v.State,
				ToolCallID:    v.ToolCallID,
				ToolName:      v.ToolName,
				Args:          v.Args,
				ArgsTextDelta: v.ArgsTextDelta,
				Result:        v.Result,
			},
		}
	case DataPart:
		sp = storedPart{Type: PartTypeData, Data: v.Value}
	case ErrorPart:
		sp = storedPart{Type: PartTypeError, Message: &v.Message}
	case AnnotationPart:
		sp = storedPart{Type: PartTypeAnnotation, Annotations: v.Value}
	case ReasoningPart:
		sp = storedPart{Type: PartTypeReasoning, Reasoning: &v.Reasoning}
	case UnknownPart:
		// Keep the original payload so unknown parts survive a round trip
		if len(v.Raw) > 0 {
			return v.Raw, nil
		}
		sp = storedPart{Type: v.Type}
		if v.Text != "" {
			sp.Text = &v.Text
		}
	default:
		return nil, fmt.Errorf("unsupported part %T", p)
	}

	return json.Marshal(sp)
}

// UnmarshalJSON decodes parts from their storage layout.
// A part with a missing or unrecognized type becomes an UnknownPart that keeps
// its "text" field.
func (ps *Parts) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*ps = nil
		return nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return fmt.Errorf("decode parts: %w", err)
	}

	parts := make(Parts, 0, len(raws))
	for i, raw := range raws {
		p, err := unmarshalPart(raw)
		if err != nil {
			return fmt.Errorf("decode part %d: %w", i, err)
		}
		parts = append(parts, p)
	}

	*ps = parts
	return nil
}

func unmarshalPart(raw json.RawMessage) (Part, error) {
	var sp storedPart
	dec := json.NewDecoder(bytes.NewReader(raw))
	// Keep numbers as written so re-encoding is byte-stable
	dec.UseNumber()
	if err := dec.Decode(&sp); err != nil {
		return nil, err
	}

	switch sp.Type {
	case PartTypeText:
		return TextPart{Text: deref(sp.Text)}, nil

	case PartTypeToolInvocation:
		if sp.ToolInvocation == nil {
			return ToolInvocationPart{}, nil
		}
		inv := sp.ToolInvocation
		return ToolInvocationPart{
			ToolCallID:    inv.ToolCallID,
			ToolName:      inv.ToolName,
			State:         inv.State,
			Args:          inv.Args,
			ArgsTextDelta: inv.ArgsTextDelta,
			Result:        inv.Result,
		}, nil

	case PartTypeData:
		return DataPart{Value: sp.Data}, nil

	case PartTypeError:
		if sp.Message == nil {
			return ErrorPart{Message: "Unknown error"}, nil
		}
		return ErrorPart{Message: *sp.Message}, nil

	case PartTypeAnnotation:
		return AnnotationPart{Value: sp.Annotations}, nil

	case PartTypeReasoning:
		return ReasoningPart{Reasoning: deref(sp.Reasoning)}, nil

	default:
		return UnknownPart{
			Type: sp.Type,
			Text: deref(sp.Text),
			Raw:  append(json.RawMessage(nil), raw...),
		}, nil
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
