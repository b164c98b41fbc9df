package llm

import (
	"testing"
)

func TestParseModel(t *testing.T) {
	tests := []struct {
		name         string
		modelStr     string
		wantProvider string
		wantModel    string
		wantErr      bool
	}{
		{
			name:         "claude-haiku with version",
			modelStr:     "claude-haiku-4-5-20251001",
			wantProvider: "anthropic",
			wantModel:    "claude-haiku-4-5-20251001",
		},
		{
			name:         "explicit openai prefix",
			modelStr:     "openai/gpt-4.1",
			wantProvider: "openai",
			wantModel:    "gpt-4.1",
		},
		{
			name:         "explicit prefix keeps later slashes",
			modelStr:     "openai/meta-llama/llama-3.1-8b",
			wantProvider: "openai",
			wantModel:    "meta-llama/llama-3.1-8b",
		},
		{
			name:         "gpt model",
			modelStr:     "gpt-4o-mini",
			wantProvider: "openai",
			wantModel:    "gpt-4o-mini",
		},
		{
			name:         "o-series model",
			modelStr:     "o4-mini",
			wantProvider: "openai",
			wantModel:    "o4-mini",
		},
		{
			name:         "lorem-fast model",
			modelStr:     "lorem-fast",
			wantProvider: "lorem",
			wantModel:    "lorem-fast",
		},
		{
			name:     "empty string",
			modelStr: "",
			wantErr:  true,
		},
		{
			name:     "unknown prefix",
			modelStr: "gemini-pro",
			wantErr:  true,
		},
		{
			name:     "empty provider",
			modelStr: "/gpt-4.1",
			wantErr:  true,
		},
		{
			name:     "empty model",
			modelStr: "openai/",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseModel(tt.modelStr)

			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseModel() expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseModel() unexpected error: %v", err)
			}
			if got.Provider != tt.wantProvider {
				t.Errorf("ParseModel() provider = %v, want %v", got.Provider, tt.wantProvider)
			}
			if got.Model != tt.wantModel {
				t.Errorf("ParseModel() model = %v, want %v", got.Model, tt.wantModel)
			}
		})
	}
}
