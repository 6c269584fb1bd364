package common

import (
	"strings"
	"testing"

	"resumepilot/internal/errors"
	"resumepilot/internal/types"
)

func TestValidateOutputFormat(t *testing.T) {
	supported := []string{"json", "text", "markdown", "yaml"}
	tests := []struct {
		name      string
		format    string
		supported []string
		wantErr   string
	}{
		{name: "json", format: "json", supported: supported},
		{name: "yaml", format: "yaml", supported: supported},
		{name: "unknown", format: "xml", supported: supported,
			wantErr: "unsupported output format 'xml'. Supported formats: [json text markdown yaml]"},
		{name: "case sensitive", format: "JSON", supported: supported,
			wantErr: "unsupported output format 'JSON'. Supported formats: [json text markdown yaml]"},
		{name: "empty format", format: "", supported: []string{"json"},
			wantErr: "unsupported output format ''. Supported formats: [json]"},
		{name: "no restriction configured", format: "xml", supported: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputFormat(tt.format, tt.supported)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			appErr, ok := errors.AsAppError(err)
			if !ok {
				t.Fatalf("expected AppError, got %v", err)
			}
			if appErr.Code != errors.ErrCodeInvalidFormat {
				t.Errorf("code = %s, want %s", appErr.Code, errors.ErrCodeInvalidFormat)
			}
			if appErr.Message != tt.wantErr {
				t.Errorf("message = %q, want %q", appErr.Message, tt.wantErr)
			}
		})
	}
}

func TestValidateInput(t *testing.T) {
	temp := float32(1.5)
	tokens := int32(0)

	tests := []struct {
		name        string
		input       any
		expectError bool
		fields      []string
	}{
		{
			name:  "valid bullets",
			input: types.BulletsInput{Bullets: "- did things"},
		},
		{
			name:        "missing required",
			input:       types.CoverLetterInput{Resume: "resume"},
			expectError: true,
			fields:      []string{"jobDescription"},
		},
		{
			name:        "bad enum",
			input:       types.EmailInput{Kind: "spam"},
			expectError: true,
			fields:      []string{"kind"},
		},
		{
			name: "override ranges",
			input: types.GenerateInput{
				Prompt:    "hi",
				Overrides: types.Overrides{Provider: "cohere", Temperature: &temp, MaxOutputTokens: &tokens},
			},
			expectError: true,
			fields:      []string{"provider", "temperature", "maxOutputTokens"},
		},
		{
			name:        "bio length bounds",
			input:       types.BioInput{Platform: "linkedin", Resume: "r", MaxLength: 10},
			expectError: true,
			fields:      []string{"maxLength"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInput(tt.input)
			if !tt.expectError {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				}
				return
			}

			appErr, ok := errors.AsAppError(err)
			if !ok {
				t.Fatalf("Expected AppError, got %T", err)
			}
			if appErr.Type != errors.ErrorTypeValidation || appErr.Code != errors.ErrCodeInvalidInput {
				t.Errorf("Unexpected error classification: %s/%s", appErr.Type, appErr.Code)
			}
			fields, _ := appErr.Context["fields"].(map[string]string)
			if len(fields) != len(tt.fields) {
				t.Errorf("Expected %d invalid fields, got %v", len(tt.fields), fields)
			}
			for _, f := range tt.fields {
				if _, ok := fields[f]; !ok {
					t.Errorf("Expected field %q in %v", f, fields)
				}
			}
		})
	}
}

func TestValidateInputMessage(t *testing.T) {
	err := ValidateInput(types.ProjectsInput{TargetRole: "SRE", Count: 20})
	if err == nil {
		t.Fatal("Expected error")
	}
	if !strings.Contains(err.Error(), "count must be at most 10") {
		t.Errorf("Unexpected message: %s", err.Error())
	}
}

// Benchmark tests to ensure validation is fast
func BenchmarkValidateOutputFormat(b *testing.B) {
	supportedFormats := []string{"json", "text", "markdown"}

	b.Run("valid format", func(b *testing.B) {
		for b.Loop() {
			_ = ValidateOutputFormat("json", supportedFormats)
		}
	})

	b.Run("invalid format", func(b *testing.B) {
		for b.Loop() {
			_ = ValidateOutputFormat("xml", supportedFormats)
		}
	})
}

func BenchmarkValidateInput(b *testing.B) {
	input := types.BioInput{Platform: "github", Resume: "resume"}

	for b.Loop() {
		_ = ValidateInput(input)
	}
}
