package types

import "resumepilot/internal/llm"

// Overrides adjusts generation parameters for a single call. Zero values keep
// the task defaults.
type Overrides struct {
	Provider        string   `json:"provider,omitempty" yaml:"provider,omitempty" validate:"omitempty,oneof=groq gemini openai anthropic"`
	Temperature     *float32 `json:"temperature,omitempty" yaml:"temperature,omitempty" validate:"omitempty,gte=0,lte=1"`
	MaxOutputTokens *int32   `json:"maxOutputTokens,omitempty" yaml:"maxOutputTokens,omitempty" validate:"omitempty,gt=0"`
}

// GenerateInput is a raw prompt passed straight to the provider facade
type GenerateInput struct {
	Prompt       string `json:"prompt" validate:"required"`
	SystemPrompt string `json:"systemPrompt,omitempty"`
	Overrides
}

// BulletsInput represents the input for rewriting resume bullet points
type BulletsInput struct {
	Bullets        string `json:"bullets" validate:"required"`
	TargetRole     string `json:"targetRole,omitempty"`
	JobDescription string `json:"jobDescription,omitempty"`
	Overrides
}

// CoverLetterInput represents the input for writing a cover letter
type CoverLetterInput struct {
	Resume         string `json:"resume" validate:"required"`
	JobDescription string `json:"jobDescription" validate:"required"`
	CompanyName    string `json:"companyName,omitempty"`
	Tone           string `json:"tone,omitempty" validate:"omitempty,oneof=professional enthusiastic conversational formal"`
	Overrides
}

// ProjectsInput represents the input for suggesting portfolio projects
type ProjectsInput struct {
	TargetRole string `json:"targetRole" validate:"required"`
	Skills     string `json:"skills,omitempty"`
	Resume     string `json:"resume,omitempty"`
	Count      int    `json:"count,omitempty" validate:"omitempty,min=1,max=10"`
	Overrides
}

// Email kinds accepted by EmailInput.Kind
const (
	EmailApplication = "application"
	EmailFollowUp    = "follow_up"
	EmailNetworking  = "networking"
	EmailThankYou    = "thank_you"
)

// EmailInput represents the input for drafting a job-search email
type EmailInput struct {
	Kind           string `json:"kind" validate:"required,oneof=application follow_up networking thank_you"`
	Recipient      string `json:"recipient,omitempty"`
	CompanyName    string `json:"companyName,omitempty"`
	Role           string `json:"role,omitempty"`
	Context        string `json:"context,omitempty"`
	Resume         string `json:"resume,omitempty"`
	JobDescription string `json:"jobDescription,omitempty"`
	Overrides
}

// BioInput represents the input for writing a social profile bio
type BioInput struct {
	Platform  string `json:"platform" validate:"required,oneof=linkedin twitter github portfolio"`
	Resume    string `json:"resume" validate:"required"`
	Headline  string `json:"headline,omitempty"`
	MaxLength int    `json:"maxLength,omitempty" validate:"omitempty,min=50,max=5000"`
	Overrides
}

// GenerationOutput is the result of any task
type GenerationOutput struct {
	Task           string          `json:"task" yaml:"task"`
	Content        string          `json:"content" yaml:"content"`
	Provider       string          `json:"provider" yaml:"provider"`
	Model          string          `json:"model" yaml:"model"`
	Usage          *llm.TokenUsage `json:"usage,omitempty" yaml:"usage,omitempty"`
	FallbackErrors []string        `json:"fallbackErrors,omitempty" yaml:"fallbackErrors,omitempty"`
	RequestID      string          `json:"requestId,omitempty" yaml:"requestId,omitempty"`
}

// ProviderStatus describes one configured provider for listings and health checks
type ProviderStatus struct {
	Name    string         `json:"name" yaml:"name"`
	Kind    string         `json:"kind" yaml:"kind"`
	Model   string         `json:"model" yaml:"model"`
	Healthy bool           `json:"healthy" yaml:"healthy"`
	Breaker string         `json:"breaker,omitempty" yaml:"breaker,omitempty"`
	Probe   *llm.ModelInfo `json:"probe,omitempty" yaml:"probe,omitempty"`
	Stats   map[string]any `json:"stats,omitempty" yaml:"stats,omitempty"`
}

// ProviderListing is the ordered set of usable providers
type ProviderListing struct {
	Providers []ProviderStatus `json:"providers" yaml:"providers"`
	Order     []string         `json:"order" yaml:"order"`
}
