// Package history persists chat transcripts to disk so conversations can be
// saved with /save and restored with /load across runs.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kaptinlin/jsonrepair"

	"github.com/chaicli/chai/providers/ai"
)

// ErrInvalidName reports a chat name that cannot be used as a file name.
var ErrInvalidName = errors.New("invalid chat name")

// File is the on-disk shape of a saved conversation.
type File struct {
	ID       string       `json:"id"`
	Provider string       `json:"provider"`
	Model    string       `json:"model"`
	SavedAt  time.Time    `json:"saved_at"`
	Messages []ai.Message `json:"messages"`
}

// Store reads and writes saved chats under a single directory.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. An empty dir selects the default
// location under the user's config directory.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolving config directory: %w", err)
		}
		dir = filepath.Join(configDir, "chai", "chats")
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory holding saved chats.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file path for a chat name after validating it.
func (s *Store) Path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.dir, name+".json"), nil
}

// Exists reports whether a saved chat with the given name already exists.
func (s *Store) Exists(name string) bool {
	path, err := s.Path(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Save writes a conversation under the given name, overwriting any previous
// file. Files are written with owner-only permissions since transcripts may
// contain sensitive text.
func (s *Store) Save(name, provider, model string, messages []ai.Message) (*File, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating chats directory: %w", err)
	}
	file := &File{
		ID:       uuid.NewString(),
		Provider: provider,
		Model:    model,
		SavedAt:  time.Now().UTC(),
		Messages: messages,
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding chat: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("writing chat file: %w", err)
	}
	return file, nil
}

// Load reads a saved conversation by name. Saved files are plain JSON and may
// have been edited by hand, so a strict parse failure falls back to a
// repairing parse before giving up.
func (s *Store) Load(name string) (*File, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading chat file: %w", err)
	}
	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(string(data))
		if repairErr != nil {
			return nil, fmt.Errorf("decoding chat file %s: %w", name, err)
		}
		if err := json.Unmarshal([]byte(repaired), &file); err != nil {
			return nil, fmt.Errorf("decoding chat file %s: %w", name, err)
		}
	}
	return &file, nil
}
