package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"
)

// PromptKind distinguishes system instructions from user prompt templates.
type PromptKind string

const (
	PromptSystem PromptKind = "system"
	PromptUser   PromptKind = "user"
)

type promptFile struct {
	task string
	kind PromptKind
	path string
}

// PromptStore holds prompt templates read from files. It is safe for
// concurrent use and can be reloaded while the server runs.
type PromptStore struct {
	mu      sync.RWMutex
	files   []promptFile
	content map[string]string
}

// NewPromptStore returns an empty store.
func NewPromptStore() *PromptStore {
	return &PromptStore{content: map[string]string{}}
}

func promptKey(task string, kind PromptKind) string {
	return task + "." + string(kind)
}

// Get returns the loaded template for a task, if a file supplied one.
func (s *PromptStore) Get(task string, kind PromptKind) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.content[promptKey(task, kind)]
	return v, ok
}

// Len returns the number of loaded templates.
func (s *PromptStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.content)
}

// Files returns the absolute paths backing the store.
func (s *PromptStore) Files() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.files))
	for i, f := range s.files {
		out[i] = f.path
	}
	return out
}

// Reload re-reads every file. On any error the previous content is kept.
func (s *PromptStore) Reload() error {
	s.mu.RLock()
	files := append([]promptFile(nil), s.files...)
	s.mu.RUnlock()

	next := make(map[string]string, len(files))
	for _, f := range files {
		content, err := loadPromptFromFile(f.path, f.kind, f.task)
		if err != nil {
			return err
		}
		next[promptKey(f.task, f.kind)] = content
	}

	s.mu.Lock()
	s.content = next
	s.mu.Unlock()
	return nil
}

func (s *PromptStore) addFile(task string, kind PromptKind, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path for %s %s prompt file '%s': %w", task, kind, path, err)
	}
	s.mu.Lock()
	s.files = append(s.files, promptFile{task: task, kind: kind, path: absPath})
	s.mu.Unlock()
	return nil
}

// loadPromptsFromFiles builds a store from every configured prompt file
func (c *Config) loadPromptsFromFiles() (*PromptStore, error) {
	store := NewPromptStore()

	for _, task := range TaskNames {
		prompts := c.AI.Tasks.Get(task).Prompts
		if prompts.SystemFile != "" {
			if err := store.addFile(task, PromptSystem, prompts.SystemFile); err != nil {
				return nil, err
			}
		}
		if prompts.UserFile != "" {
			if err := store.addFile(task, PromptUser, prompts.UserFile); err != nil {
				return nil, err
			}
		}
	}

	if err := store.Reload(); err != nil {
		return nil, err
	}

	if n := store.Len(); n > 0 {
		log.Printf("[CONFIG] Custom prompts loaded from files: %d", n)
	}
	return store, nil
}

// loadPromptFromFile reads and checks one prompt template
func loadPromptFromFile(filePath string, kind PromptKind, task string) (string, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s %s prompt file not found: %s", kind, task, filePath)
		}
		return "", fmt.Errorf("failed to read %s %s prompt file '%s': %w", kind, task, filePath, err)
	}

	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return "", fmt.Errorf("%s %s prompt file '%s' is empty", kind, task, filePath)
	}

	if _, err := template.New(task).Parse(trimmed); err != nil {
		return "", fmt.Errorf("%s %s prompt file '%s' is not a valid template: %w", kind, task, filePath, err)
	}

	return trimmed, nil
}

// validatePromptFiles checks that configured prompt files exist before loading
func (c *Config) validatePromptFiles() error {
	var validationErrors []string

	validateFile := func(filePath string, kind PromptKind, task string) {
		if filePath == "" {
			return
		}
		absPath, err := filepath.Abs(filePath)
		if err != nil {
			validationErrors = append(validationErrors, fmt.Sprintf("invalid path for %s %s prompt: %s", kind, task, filePath))
			return
		}
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			validationErrors = append(validationErrors, fmt.Sprintf("%s %s prompt file not found: %s", kind, task, absPath))
		}
	}

	for _, task := range TaskNames {
		prompts := c.AI.Tasks.Get(task).Prompts
		validateFile(prompts.SystemFile, PromptSystem, task)
		validateFile(prompts.UserFile, PromptUser, task)
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("prompt file validation failed:\n%s", strings.Join(validationErrors, "\n"))
	}
	return nil
}
