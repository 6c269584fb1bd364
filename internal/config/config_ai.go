package config

// Task names, shared by the CLI, the HTTP API and prompt configuration.
const (
	TaskBullets     = "bullets"
	TaskCoverLetter = "cover_letter"
	TaskProjects    = "projects"
	TaskEmail       = "email"
	TaskBio         = "bio"
)

// TaskNames lists every task in a stable order.
var TaskNames = []string{TaskBullets, TaskCoverLetter, TaskProjects, TaskEmail, TaskBio}

// TasksConfig holds per-task overrides
type TasksConfig struct {
	Bullets     TaskAIConfig `mapstructure:"bullets"`
	CoverLetter TaskAIConfig `mapstructure:"coverLetter"`
	Projects    TaskAIConfig `mapstructure:"projects"`
	Email       TaskAIConfig `mapstructure:"email"`
	Bio         TaskAIConfig `mapstructure:"bio"`
}

// TaskAIConfig holds generation settings for one task. Unset fields fall back
// to the global AI settings.
type TaskAIConfig struct {
	Temperature       *float32    `mapstructure:"temperature"`
	MaxOutputTokens   *int32      `mapstructure:"maxOutputTokens"`
	PreferredProvider string      `mapstructure:"preferredProvider"`
	UseSystemPrompts  *bool       `mapstructure:"useSystemPrompts"`
	Prompts           TaskPrompts `mapstructure:"prompts"`
}

// TaskPrompts holds inline prompt templates or paths to template files.
// File content takes precedence over inline text.
type TaskPrompts struct {
	System     string `mapstructure:"system"`
	SystemFile string `mapstructure:"systemFile"`
	User       string `mapstructure:"user"`
	UserFile   string `mapstructure:"userFile"`
}

// Get returns the raw settings of a task; unknown names yield the zero value.
func (t *TasksConfig) Get(task string) TaskAIConfig {
	if p := t.ptr(task); p != nil {
		return *p
	}
	return TaskAIConfig{}
}

func (t *TasksConfig) ptr(task string) *TaskAIConfig {
	switch task {
	case TaskBullets:
		return &t.Bullets
	case TaskCoverLetter:
		return &t.CoverLetter
	case TaskProjects:
		return &t.Projects
	case TaskEmail:
		return &t.Email
	case TaskBio:
		return &t.Bio
	}
	return nil
}

// GetTaskConfig returns the settings for a task with global fallbacks applied
func (c *Config) GetTaskConfig(task string) TaskAIConfig {
	cfg := c.AI.Tasks.Get(task)
	c.applyTaskDefaults(&cfg)
	return cfg
}

// applyTaskDefaults applies global defaults to task-specific configuration
func (c *Config) applyTaskDefaults(cfg *TaskAIConfig) {
	if cfg.Temperature == nil {
		t := c.AI.Temperature
		cfg.Temperature = &t
	}
	if cfg.MaxOutputTokens == nil {
		n := c.AI.MaxOutputTokens
		cfg.MaxOutputTokens = &n
	}
	if cfg.PreferredProvider == "" {
		cfg.PreferredProvider = c.AI.PreferredProvider
	}
	if cfg.UseSystemPrompts == nil {
		b := c.AI.UseSystemPrompts
		cfg.UseSystemPrompts = &b
	}
}

// NamedProvider pairs a provider name with its settings.
type NamedProvider struct {
	Name   string
	Config ProviderConfig
}

// Get returns the settings for a provider name.
func (p ProvidersConfig) Get(name string) (ProviderConfig, bool) {
	switch name {
	case "groq":
		return p.Groq, true
	case "gemini":
		return p.Gemini, true
	case "openai":
		return p.OpenAI, true
	case "anthropic":
		return p.Anthropic, true
	}
	return ProviderConfig{}, false
}

func (p *ProvidersConfig) setAPIKey(name, key string) bool {
	switch name {
	case "groq":
		p.Groq.APIKey = key
	case "gemini":
		p.Gemini.APIKey = key
	case "openai":
		p.OpenAI.APIKey = key
	case "anthropic":
		p.Anthropic.APIKey = key
	default:
		return false
	}
	return true
}

// OrderedProviders returns provider settings in fallback priority order,
// configured or not.
func (a *AIConfig) OrderedProviders() []NamedProvider {
	out := make([]NamedProvider, 0, len(a.ProviderOrder))
	for _, name := range a.ProviderOrder {
		if pc, ok := a.Providers.Get(name); ok {
			out = append(out, NamedProvider{Name: name, Config: pc})
		}
	}
	return out
}

// ConfiguredProviders returns the names of providers that have a credential.
func (a *AIConfig) ConfiguredProviders() []string {
	var names []string
	for _, np := range a.OrderedProviders() {
		if np.Config.APIKey != "" {
			names = append(names, np.Name)
		}
	}
	return names
}
