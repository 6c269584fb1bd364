package ai

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"resumepilot/internal/config"
)

// DefaultSystemPrompts provides the default system instructions per task
var DefaultSystemPrompts = map[string]string{
	config.TaskBullets: `You are an expert resume writer. You rewrite resume bullet points so they are concise, start with a strong action verb and show measurable impact.

- NEVER invent metrics, employers, tools or achievements that are not in the source bullets
- Keep each bullet to one or two lines
- Prefer concrete outcomes over responsibilities`,

	config.TaskCoverLetter: `You are an experienced career coach who writes tailored cover letters.

- Use only experience that appears in the candidate's resume
- Connect the candidate's strongest relevant achievements to the role's requirements
- Keep the letter under 400 words and avoid clichés`,

	config.TaskProjects: `You are a senior engineer and hiring manager who mentors candidates on portfolio projects.
Suggest realistic projects that demonstrate the skills a hiring team looks for, scoped so one person can finish them in a few weeks.`,

	config.TaskEmail: `You are a career coach who writes short, courteous job-search emails.
Emails must have a clear subject line, a specific ask and no filler.`,

	config.TaskBio: `You are a personal branding expert who writes profile bios.
Bios are written in first person unless the platform convention says otherwise, stay factual and match the platform's tone and length limits.`,
}

// DefaultUserPrompts provides the default user prompt templates per task.
// Templates are rendered with the task's input struct.
var DefaultUserPrompts = map[string]string{
	config.TaskBullets: `Rewrite the following resume bullet points.
{{- if .TargetRole}}

**Target role:** {{.TargetRole}}
{{- end}}
{{- if .JobDescription}}

Emphasize experience that matches this job description:
-----
{{.JobDescription}}
-----
{{- end}}

**Bullets:**
-----
{{.Bullets}}
-----

Return only the rewritten bullets, one per line, each starting with "- ".`,

	config.TaskCoverLetter: `Write a cover letter{{if .CompanyName}} for a position at {{.CompanyName}}{{end}} in a {{or .Tone "professional"}} tone.

**Resume:**
-----
{{.Resume}}
-----

**Job Description:**
-----
{{.JobDescription}}
-----`,

	config.TaskProjects: `Suggest {{or .Count 3}} portfolio projects for someone targeting the role "{{.TargetRole}}".
{{- if .Skills}}

Current skills: {{.Skills}}
{{- end}}
{{- if .Resume}}

Resume for context:
-----
{{.Resume}}
-----
{{- end}}

For each project give a title, a two-sentence description, the key technologies and the skills it demonstrates.`,

	config.TaskEmail: `Draft a {{if eq .Kind "follow_up"}}follow-up{{else if eq .Kind "thank_you"}}thank-you{{else}}{{.Kind}}{{end}} email{{if .Recipient}} to {{.Recipient}}{{end}}{{if .CompanyName}} at {{.CompanyName}}{{end}}{{if .Role}} about the {{.Role}} role{{end}}.
{{- if .Context}}

Additional context: {{.Context}}
{{- end}}
{{- if .Resume}}

Candidate resume:
-----
{{.Resume}}
-----
{{- end}}
{{- if .JobDescription}}

Job description:
-----
{{.JobDescription}}
-----
{{- end}}

Include a subject line.`,

	config.TaskBio: `Write a {{.Platform}} bio{{if .MaxLength}} of at most {{.MaxLength}} characters{{end}}.
{{- if .Headline}}

Headline: {{.Headline}}
{{- end}}

Base it on this resume:
-----
{{.Resume}}
-----`,
}

// resolvePrompt selects a prompt in priority order: file, inline config,
// built-in default.
func resolvePrompt(loadedFromFile, fromConfig, fromDefault string) string {
	if loadedFromFile != "" {
		return loadedFromFile
	}
	if fromConfig != "" {
		return fromConfig
	}
	return fromDefault
}

// renderPrompt executes a prompt template against data
func renderPrompt(name, text string, data any) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse %s prompt: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}
