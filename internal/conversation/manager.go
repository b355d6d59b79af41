// Package conversation persists per (user, document) message history as one
// JSON record per pair. History gives the answer pipeline short-term
// memory; corrupted records read as empty rather than failing a request.
package conversation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Avishkar74/AskTube/internal/domain"
	"github.com/Avishkar74/AskTube/internal/logger"
)

// DefaultMaxHistory bounds the retained history to 2*DefaultMaxHistory
// messages (user and assistant turns counted separately).
const DefaultMaxHistory = 10

// Manager stores conversations under a single directory.
type Manager struct {
	dir        string
	maxHistory int
}

// NewManager creates a conversation manager rooted at dir. A non-positive
// maxHistory falls back to DefaultMaxHistory.
func NewManager(dir string, maxHistory int) *Manager {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Manager{dir: dir, maxHistory: maxHistory}
}

// MaxHistory returns the per-conversation history bound.
func (m *Manager) MaxHistory() int { return m.maxHistory }

func (m *Manager) path(userID, documentID string) string {
	return filepath.Join(m.dir, fmt.Sprintf("%s_%s.json", sanitize(userID), sanitize(documentID)))
}

// sanitize keeps identifiers filesystem-safe.
func sanitize(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, id)
}

// Load returns the conversation for a (user, document) pair. A missing or
// corrupted record reads as an empty conversation, never as an error.
func (m *Manager) Load(userID, documentID string) domain.Conversation {
	data, err := os.ReadFile(m.path(userID, documentID))
	if err != nil {
		return m.empty(userID, documentID)
	}
	var conv domain.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		logger.Warn("corrupted conversation record for %s/%s, starting fresh", userID, documentID)
		return m.empty(userID, documentID)
	}
	return conv
}

func (m *Manager) empty(userID, documentID string) domain.Conversation {
	now := time.Now().Format(time.RFC3339)
	return domain.Conversation{
		UserID:     userID,
		DocumentID: documentID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Append adds a message to the history and persists the record. History is
// truncated to the most recent 2*maxHistory entries, oldest first.
func (m *Manager) Append(userID, documentID, role, content string, citations []domain.RetrievalResult) error {
	conv := m.Load(userID, documentID)
	conv.Messages = append(conv.Messages, domain.Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().Format(time.RFC3339),
		Citations: citations,
	})
	if limit := 2 * m.maxHistory; len(conv.Messages) > limit {
		conv.Messages = conv.Messages[len(conv.Messages)-limit:]
	}
	return m.save(conv)
}

// SetTranscript stores the raw transcript with the conversation so the
// answer pipeline can fall back to it when retrieval yields nothing.
func (m *Manager) SetTranscript(userID, documentID, transcript string) error {
	conv := m.Load(userID, documentID)
	conv.Transcript = transcript
	return m.save(conv)
}

// Transcript returns the stored transcript, "" when none is stored.
func (m *Manager) Transcript(userID, documentID string) string {
	return m.Load(userID, documentID).Transcript
}

// Clear removes a conversation record, reporting whether one existed.
func (m *Manager) Clear(userID, documentID string) bool {
	err := os.Remove(m.path(userID, documentID))
	return err == nil
}

// Summary describes one stored conversation for listings.
type Summary struct {
	UserID       string `json:"user_id"`
	DocumentID   string `json:"document_id"`
	MessageCount int    `json:"message_count"`
	UpdatedAt    string `json:"updated_at"`
}

// List enumerates stored conversations, optionally filtered by user,
// most recently updated first. Unreadable records are skipped.
func (m *Manager) List(userID string) []Summary {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil
	}
	var out []Summary
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(m.dir, entry.Name()))
		if err != nil {
			continue
		}
		var conv domain.Conversation
		if err := json.Unmarshal(data, &conv); err != nil {
			continue
		}
		if userID != "" && conv.UserID != userID {
			continue
		}
		out = append(out, Summary{
			UserID:       conv.UserID,
			DocumentID:   conv.DocumentID,
			MessageCount: len(conv.Messages),
			UpdatedAt:    conv.UpdatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt > out[j].UpdatedAt })
	return out
}

func (m *Manager) save(conv domain.Conversation) error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("create conversation dir: %w", err)
	}
	conv.UpdatedAt = time.Now().Format(time.RFC3339)
	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path(conv.UserID, conv.DocumentID), data, 0o644)
}
