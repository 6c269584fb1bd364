package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func writePromptFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to create prompt file %s: %v", name, err)
	}
	return path
}

func TestLoadPromptsFromFiles(t *testing.T) {
	tempDir := t.TempDir()

	systemContent := "You write concise cover letters."
	userContent := "Resume:\n{{.Resume}}\n\nJob:\n{{.JobDescription}}"

	config := &Config{
		AI: AIConfig{
			Tasks: TasksConfig{
				CoverLetter: TaskAIConfig{
					Prompts: TaskPrompts{
						SystemFile: writePromptFile(t, tempDir, "system.cover.md", systemContent),
						UserFile:   writePromptFile(t, tempDir, "user.cover.md", "  "+userContent+"\n"),
					},
				},
			},
		},
	}

	store, err := config.loadPromptsFromFiles()
	if err != nil {
		t.Fatalf("Failed to load prompts from files: %v", err)
	}

	if got, ok := store.Get(TaskCoverLetter, PromptSystem); !ok || got != systemContent {
		t.Errorf("system prompt = %q, %v", got, ok)
	}
	if got, ok := store.Get(TaskCoverLetter, PromptUser); !ok || got != userContent {
		t.Errorf("user prompt = %q, %v (content should be trimmed)", got, ok)
	}
	if _, ok := store.Get(TaskBio, PromptUser); ok {
		t.Error("tasks without files must not have loaded prompts")
	}
	if len(store.Files()) != 2 {
		t.Errorf("Files() = %v", store.Files())
	}
}

func TestValidatePromptFiles(t *testing.T) {
	tempDir := t.TempDir()

	config := &Config{
		AI: AIConfig{
			Tasks: TasksConfig{
				Bio: TaskAIConfig{
					Prompts: TaskPrompts{SystemFile: writePromptFile(t, tempDir, "valid.md", "Valid content")},
				},
			},
		},
	}

	if err := config.validatePromptFiles(); err != nil {
		t.Errorf("Expected validation to pass for valid file, got error: %v", err)
	}

	config.AI.Tasks.Bio.Prompts.SystemFile = filepath.Join(tempDir, "nonexistent.md")
	if err := config.validatePromptFiles(); err == nil {
		t.Error("Expected validation to fail for non-existent file")
	}
}

func TestLoadPromptFromFile(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name    string
		content *string
		wantErr bool
	}{
		{name: "valid", content: ptr("Rewrite these bullets: {{.Bullets}}")},
		{name: "empty", content: ptr("  \n"), wantErr: true},
		{name: "broken template", content: ptr("Hello {{.Name"), wantErr: true},
		{name: "missing", content: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(tempDir, tt.name+".md")
			if tt.content != nil {
				writePromptFile(t, tempDir, tt.name+".md", *tt.content)
			}

			got, err := loadPromptFromFile(path, PromptUser, TaskBullets)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != *tt.content {
				t.Errorf("content = %q", got)
			}
		})
	}
}

func TestPromptStoreReloadKeepsContentOnError(t *testing.T) {
	tempDir := t.TempDir()
	path := writePromptFile(t, tempDir, "bio.md", "first {{.Platform}}")

	store := NewPromptStore()
	if err := store.addFile(TaskBio, PromptUser, path); err != nil {
		t.Fatal(err)
	}
	if err := store.Reload(); err != nil {
		t.Fatal(err)
	}

	writePromptFile(t, tempDir, "bio.md", "second {{.Platform}}")
	if err := store.Reload(); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.Get(TaskBio, PromptUser); got != "second {{.Platform}}" {
		t.Errorf("after reload got %q", got)
	}

	writePromptFile(t, tempDir, "bio.md", "")
	if err := store.Reload(); err == nil {
		t.Fatal("expected reload of empty file to fail")
	}
	if got, _ := store.Get(TaskBio, PromptUser); got != "second {{.Platform}}" {
		t.Errorf("failed reload replaced content: %q", got)
	}
}

func TestPromptsWithoutLoadIsSharedAndEmpty(t *testing.T) {
	config := &Config{}

	var wg sync.WaitGroup
	stores := make([]*PromptStore, 8)
	for i := range stores {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stores[i] = config.Prompts()
		}()
	}
	wg.Wait()

	for _, s := range stores {
		if s != stores[0] {
			t.Fatal("Prompts returned different stores for one config")
		}
	}
	if stores[0].Len() != 0 || len(stores[0].Files()) != 0 {
		t.Errorf("expected empty store, got %d templates", stores[0].Len())
	}
	if config.prompts != nil {
		t.Error("Prompts must not assign to the config")
	}
}

func ptr[T any](v T) *T {
	return &v
}
