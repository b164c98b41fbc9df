package llm

import (
	"fmt"

	llmprovider "github.com/haowjy/meridian-llm-go"
)

// Tool names exposed to the model
const (
	ToolGetWeather = "getWeather"
)

// FunctionDetails represents the function definition (OpenAI format)
type FunctionDetails struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolDefinition describes a server-side tool in OpenAI function format:
//
//	{
//	  "type": "function",
//	  "function": {
//	    "name": "getWeather",
//	    "description": "Get the current weather at a location",
//	    "parameters": {"type": "object", "properties": {...}, "required": [...]}
//	  }
//	}
type ToolDefinition struct {
	Type     string           `json:"type"`
	Function *FunctionDetails `json:"function"`
}

// Name returns the function name, or "" for an incomplete definition
func (td ToolDefinition) Name() string {
	if td.Function == nil {
		return ""
	}
	return td.Function.Name
}

// ToLibraryTool checks the definition by building the provider library's
// custom tool from it.
func (td *ToolDefinition) ToLibraryTool() (*llmprovider.Tool, error) {
	if td.Function == nil {
		return nil, fmt.Errorf("tool definition must have a 'function' field")
	}
	if td.Function.Name == "" {
		return nil, fmt.Errorf("function name is required")
	}
	if td.Function.Parameters == nil {
		return nil, fmt.Errorf("function parameters are required")
	}

	tool, err := llmprovider.NewCustomTool(
		td.Function.Name,
		td.Function.Description,
		td.Function.Parameters,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create custom tool '%s': %w", td.Function.Name, err)
	}
	return tool, nil
}

// GetWeatherToolDefinition returns the schema for the 'getWeather' tool.
func GetWeatherToolDefinition() ToolDefinition {
	return ToolDefinition{
		Type: "function",
		Function: &FunctionDetails{
			Name:        ToolGetWeather,
			Description: "Get the current weather at a location",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"latitude": map[string]any{
						"type":        "number",
						"description": "Latitude of the location in decimal degrees (-90 to 90).",
						"minimum":     -90,
						"maximum":     90,
					},
					"longitude": map[string]any{
						"type":        "number",
						"description": "Longitude of the location in decimal degrees (-180 to 180).",
						"minimum":     -180,
						"maximum":     180,
					},
				},
				"required": []string{"latitude", "longitude"},
			},
		},
	}
}

// GetToolDefinitionByName returns the full definition for a known tool name,
// or nil if the name is not recognized.
func GetToolDefinitionByName(name string) *ToolDefinition {
	switch name {
	case ToolGetWeather:
		def := GetWeatherToolDefinition()
		return &def
	default:
		return nil
	}
}
