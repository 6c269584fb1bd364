package formatters

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"resumepilot/internal/types"

	"gopkg.in/yaml.v3"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("yaml", "any", &YAMLFormatter{})
	registry.RegisterFormatter("text", "GenerationOutput", &GenerationTextFormatter{})
	registry.RegisterFormatter("markdown", "GenerationOutput", &GenerationMarkdownFormatter{})
	registry.RegisterFormatter("text", "ProviderListing", &ProvidersTextFormatter{})
	registry.RegisterFormatter("markdown", "ProviderListing", &ProvidersMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		// Fall back to generic formatter
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	slices.Sort(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.GenerationOutput, *types.GenerationOutput:
		return "GenerationOutput"
	case types.ProviderListing, *types.ProviderListing:
		return "ProviderListing"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// YAMLFormatter handles YAML formatting for any data type
type YAMLFormatter struct{}

func (yf *YAMLFormatter) Format(data any) (string, error) {
	var buf strings.Builder
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (yf *YAMLFormatter) SupportedType() string {
	return "any"
}

func asGenerationOutput(data any) (*types.GenerationOutput, error) {
	switch v := data.(type) {
	case types.GenerationOutput:
		return &v, nil
	case *types.GenerationOutput:
		if v == nil {
			return nil, fmt.Errorf("nil GenerationOutput")
		}
		return v, nil
	}
	return nil, fmt.Errorf("expected GenerationOutput, got %T", data)
}

func asProviderListing(data any) (*types.ProviderListing, error) {
	switch v := data.(type) {
	case types.ProviderListing:
		return &v, nil
	case *types.ProviderListing:
		if v == nil {
			return nil, fmt.Errorf("nil ProviderListing")
		}
		return v, nil
	}
	return nil, fmt.Errorf("expected ProviderListing, got %T", data)
}

// GenerationTextFormatter prints the generated content followed by a short
// provenance footer
type GenerationTextFormatter struct{}

func (gtf *GenerationTextFormatter) Format(data any) (string, error) {
	result, err := asGenerationOutput(data)
	if err != nil {
		return "", err
	}

	var output strings.Builder

	output.WriteString(strings.TrimSpace(result.Content))
	output.WriteString("\n\n")
	output.WriteString(fmt.Sprintf("--- %s via %s (%s)", result.Task, result.Provider, result.Model))
	if result.Usage != nil {
		output.WriteString(fmt.Sprintf(", %d tokens", result.Usage.TotalTokens))
	}
	output.WriteString(" ---\n")

	if len(result.FallbackErrors) > 0 {
		output.WriteString("Fallbacks:\n")
		for _, e := range result.FallbackErrors {
			output.WriteString("  - " + e + "\n")
		}
	}

	return output.String(), nil
}

func (gtf *GenerationTextFormatter) SupportedType() string {
	return "GenerationOutput"
}

// GenerationMarkdownFormatter handles markdown formatting for task results
type GenerationMarkdownFormatter struct{}

var taskTitles = map[string]string{
	"bullets":      "Resume Bullets",
	"cover_letter": "Cover Letter",
	"projects":     "Project Suggestions",
	"email":        "Email Draft",
	"bio":          "Profile Bio",
	"generate":     "Generated Text",
}

func (gmf *GenerationMarkdownFormatter) Format(data any) (string, error) {
	result, err := asGenerationOutput(data)
	if err != nil {
		return "", err
	}

	title, ok := taskTitles[result.Task]
	if !ok {
		title = result.Task
	}

	var output strings.Builder

	output.WriteString("# " + title + "\n\n")
	output.WriteString(strings.TrimSpace(result.Content))
	output.WriteString("\n\n")

	output.WriteString("## Generation Details\n\n")
	output.WriteString(fmt.Sprintf("- **Provider:** %s\n", result.Provider))
	output.WriteString(fmt.Sprintf("- **Model:** %s\n", result.Model))
	if result.Usage != nil {
		output.WriteString(fmt.Sprintf("- **Tokens:** %d input, %d output, %d total\n",
			result.Usage.InputTokens, result.Usage.OutputTokens, result.Usage.TotalTokens))
	}
	if result.RequestID != "" {
		output.WriteString(fmt.Sprintf("- **Request ID:** `%s`\n", result.RequestID))
	}

	if len(result.FallbackErrors) > 0 {
		output.WriteString("\n### Failed Providers\n\n")
		for _, e := range result.FallbackErrors {
			output.WriteString("- " + e + "\n")
		}
	}

	return output.String(), nil
}

func (gmf *GenerationMarkdownFormatter) SupportedType() string {
	return "GenerationOutput"
}

// ProvidersTextFormatter lists providers one per line in fallback order
type ProvidersTextFormatter struct{}

func (ptf *ProvidersTextFormatter) Format(data any) (string, error) {
	listing, err := asProviderListing(data)
	if err != nil {
		return "", err
	}

	if len(listing.Providers) == 0 {
		return "No text-generation providers configured.\n" +
			"Set GROQ_API_KEY, GEMINI_API_KEY, OPENAI_API_KEY or ANTHROPIC_API_KEY.\n", nil
	}

	var output strings.Builder
	output.WriteString("=== PROVIDERS (fallback order) ===\n")
	for i, p := range listing.Providers {
		output.WriteString(fmt.Sprintf("%d. %-10s %-32s %s", i+1, p.Name, p.Model, healthLabel(p)))
		if p.Breaker != "" {
			output.WriteString(" breaker=" + p.Breaker)
		}
		if p.Probe != nil && p.Probe.Error != "" {
			output.WriteString(" error=" + p.Probe.Error)
		}
		output.WriteString("\n")
	}
	return output.String(), nil
}

func (ptf *ProvidersTextFormatter) SupportedType() string {
	return "ProviderListing"
}

// ProvidersMarkdownFormatter renders providers as a table
type ProvidersMarkdownFormatter struct{}

func (pmf *ProvidersMarkdownFormatter) Format(data any) (string, error) {
	listing, err := asProviderListing(data)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	output.WriteString("# Providers\n\n")
	if len(listing.Providers) == 0 {
		output.WriteString("_No text-generation providers configured._\n")
		return output.String(), nil
	}

	output.WriteString("| # | Provider | Model | Status | Breaker |\n")
	output.WriteString("|---|----------|-------|--------|---------|\n")
	for i, p := range listing.Providers {
		output.WriteString(fmt.Sprintf("| %d | %s | `%s` | %s | %s |\n",
			i+1, p.Name, p.Model, healthLabel(p), p.Breaker))
	}
	return output.String(), nil
}

func (pmf *ProvidersMarkdownFormatter) SupportedType() string {
	return "ProviderListing"
}

func healthLabel(p types.ProviderStatus) string {
	switch {
	case !p.Healthy:
		return "unhealthy"
	case p.Probe != nil:
		return "available"
	default:
		return "configured"
	}
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()
