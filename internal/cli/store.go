package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"symptom-checker/internal/domain"
	"symptom-checker/internal/repository"
)

type storedConversation struct {
	ConversationID string          `json:"conversation_id"`
	Version        int64           `json:"version"`
	State          json.RawMessage `json:"state"`
}

// fileStore keeps a single conversation in a JSON file, mirroring the
// versioning rules of the DynamoDB store. An empty path keeps it in memory.
type fileStore struct {
	path string

	mu  sync.Mutex
	mem *storedConversation
}

func newFileStore(path string) *fileStore {
	return &fileStore{path: path}
}

func (s *fileStore) read() (*storedConversation, error) {
	if s.path == "" {
		return s.mem, nil
	}
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading state file: %w", err)
	}
	var sc storedConversation
	if err := json.Unmarshal(b, &sc); err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrCorruptState, err)
	}
	return &sc, nil
}

func (s *fileStore) write(sc *storedConversation) error {
	if s.path == "" {
		s.mem = sc
		return nil
	}
	b, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state file: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".symptomctl-*")
	if err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("writing state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	return os.Rename(tmp.Name(), s.path)
}

// ConversationID returns the id of the stored conversation, or "" when there
// is none yet or the file cannot be read as a conversation.
func (s *fileStore) ConversationID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, err := s.read()
	if errors.Is(err, repository.ErrCorruptState) {
		return "", nil
	}
	if err != nil || sc == nil {
		return "", err
	}
	return sc.ConversationID, nil
}

func (s *fileStore) Load(_ context.Context, conversationID string) (domain.ConversationState, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, err := s.read()
	if err != nil {
		return domain.ConversationState{}, 0, err
	}
	if sc == nil || sc.ConversationID != conversationID {
		return domain.ConversationState{}, 0, repository.ErrNotFound
	}
	var st domain.ConversationState
	if err := json.Unmarshal(sc.State, &st); err != nil {
		return domain.ConversationState{}, sc.Version, fmt.Errorf("%w: %v", repository.ErrCorruptState, err)
	}
	return st, sc.Version, nil
}

func (s *fileStore) Save(_ context.Context, conversationID string, st domain.ConversationState, expectedVersion int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, err := s.read()
	if err != nil && !errors.Is(err, repository.ErrCorruptState) {
		return 0, err
	}
	var current int64
	if sc != nil && sc.ConversationID == conversationID {
		current = sc.Version
	}
	if current != expectedVersion {
		return 0, repository.ErrVersionConflict
	}
	blob, err := json.Marshal(st)
	if err != nil {
		return 0, fmt.Errorf("encoding state: %w", err)
	}
	next := expectedVersion + 1
	if err := s.write(&storedConversation{ConversationID: conversationID, Version: next, State: blob}); err != nil {
		return 0, err
	}
	return next, nil
}
