package history

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/chaicli/chai/providers/ai"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore returned error: %v", err)
	}
	return store
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := testStore(t)

	messages := []ai.Message{
		{Role: ai.RoleUser, Content: "What is Go?"},
		{Role: ai.RoleAssistant, Content: "A programming language."},
	}

	saved, err := store.Save("golang", "anthropic", "claude-sonnet-4-0", messages)
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if saved.ID == "" {
		t.Error("expected a generated chat id")
	}

	loaded, err := store.Load("golang")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded.Provider != "anthropic" || loaded.Model != "claude-sonnet-4-0" {
		t.Errorf("expected provider and model to round-trip, got %s:%s", loaded.Provider, loaded.Model)
	}
	if len(loaded.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(loaded.Messages))
	}
	if loaded.Messages[1].Content != "A programming language." {
		t.Errorf("expected message content to round-trip, got %q", loaded.Messages[1].Content)
	}
}

func TestSaveFilePermissions(t *testing.T) {
	store := testStore(t)

	if _, err := store.Save("private", "openai", "gpt-4o-mini", []ai.Message{{Role: ai.RoleUser, Content: "secret"}}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	path, _ := store.Path("private")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat returned error: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected owner-only permissions, got %v", info.Mode().Perm())
	}
}

func TestExists(t *testing.T) {
	store := testStore(t)

	if store.Exists("ghost") {
		t.Error("expected Exists to report false for an unsaved chat")
	}
	store.Save("real", "mistral", "mistral-small-latest", []ai.Message{{Role: ai.RoleUser, Content: "hi"}})
	if !store.Exists("real") {
		t.Error("expected Exists to report true after saving")
	}
}

func TestInvalidNames(t *testing.T) {
	store := testStore(t)

	for _, name := range []string{"", "a/b", `a\b`, ".", ".."} {
		if _, err := store.Path(name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("name %q: expected ErrInvalidName, got %v", name, err)
		}
		if _, err := store.Save(name, "openai", "gpt-4o-mini", nil); !errors.Is(err, ErrInvalidName) {
			t.Errorf("name %q: expected Save to reject, got %v", name, err)
		}
	}
}

func TestLoadRepairsHandEditedFile(t *testing.T) {
	store := testStore(t)

	// Trailing comma after the last message: invalid JSON that a hand edit
	// commonly introduces.
	damaged := `{
		"id": "abc",
		"provider": "openai",
		"model": "gpt-4o-mini",
		"messages": [
			{"role": "user", "content": "hello"},
		]
	}`
	path, _ := store.Path("edited")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll returned error: %v", err)
	}
	if err := os.WriteFile(path, []byte(damaged), 0o600); err != nil {
		t.Fatalf("WriteFile returned error: %v", err)
	}

	loaded, err := store.Load("edited")
	if err != nil {
		t.Fatalf("expected the repairing parse to succeed, got %v", err)
	}
	if len(loaded.Messages) != 1 || loaded.Messages[0].Content != "hello" {
		t.Errorf("expected repaired content, got %+v", loaded.Messages)
	}
}

func TestLoadMissingFile(t *testing.T) {
	store := testStore(t)

	if _, err := store.Load("nope"); err == nil {
		t.Fatal("expected an error for a missing chat file")
	}
}
