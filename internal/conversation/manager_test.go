package conversation

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Avishkar74/AskTube/internal/domain"
)

func TestAppendAndLoad(t *testing.T) {
	m := NewManager(t.TempDir(), 10)

	require.NoError(t, m.Append("alice", "vid1", domain.RoleUser, "what is this about?", nil))
	require.NoError(t, m.Append("alice", "vid1", domain.RoleAssistant, "it is about Go", nil))

	conv := m.Load("alice", "vid1")
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, domain.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, "what is this about?", conv.Messages[0].Content)
	assert.Equal(t, domain.RoleAssistant, conv.Messages[1].Role)
	assert.NotEmpty(t, conv.Messages[0].Timestamp)
}

func TestAppendKeepsCitations(t *testing.T) {
	m := NewManager(t.TempDir(), 10)
	score := 0.9
	citations := []domain.RetrievalResult{{ChunkID: 2, Text: "cited text", Score: &score}}

	require.NoError(t, m.Append("alice", "vid1", domain.RoleAssistant, "grounded answer", citations))

	conv := m.Load("alice", "vid1")
	require.Len(t, conv.Messages, 1)
	require.Len(t, conv.Messages[0].Citations, 1)
	assert.Equal(t, 2, conv.Messages[0].Citations[0].ChunkID)
}

func TestFIFOEviction(t *testing.T) {
	m := NewManager(t.TempDir(), 2) // keeps at most 4 messages

	for i := 0; i < 6; i++ {
		require.NoError(t, m.Append("alice", "vid1", domain.RoleUser, fmt.Sprintf("message %d", i), nil))
	}

	conv := m.Load("alice", "vid1")
	require.Len(t, conv.Messages, 4)
	assert.Equal(t, "message 2", conv.Messages[0].Content, "oldest messages are discarded first")
	assert.Equal(t, "message 5", conv.Messages[3].Content)
}

func TestLoadMissingReturnsEmpty(t *testing.T) {
	m := NewManager(t.TempDir(), 10)

	conv := m.Load("nobody", "nothing")
	assert.Empty(t, conv.Messages)
	assert.Equal(t, "nobody", conv.UserID)
	assert.NotEmpty(t, conv.CreatedAt)
}

func TestCorruptedRecordReadsAsEmpty(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, 10)
	require.NoError(t, m.Append("alice", "vid1", domain.RoleUser, "hello", nil))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "alice_vid1.json"), []byte("{broken"), 0o644))

	conv := m.Load("alice", "vid1")
	assert.Empty(t, conv.Messages)

	// Appending on top of a corrupted record starts a fresh history.
	require.NoError(t, m.Append("alice", "vid1", domain.RoleUser, "again", nil))
	assert.Len(t, m.Load("alice", "vid1").Messages, 1)
}

func TestTranscriptRoundTrip(t *testing.T) {
	m := NewManager(t.TempDir(), 10)

	assert.Empty(t, m.Transcript("alice", "vid1"))
	require.NoError(t, m.SetTranscript("alice", "vid1", "full transcript text"))
	assert.Equal(t, "full transcript text", m.Transcript("alice", "vid1"))

	// Messages survive a transcript update.
	require.NoError(t, m.Append("alice", "vid1", domain.RoleUser, "q", nil))
	require.NoError(t, m.SetTranscript("alice", "vid1", "revised"))
	assert.Len(t, m.Load("alice", "vid1").Messages, 1)
}

func TestClear(t *testing.T) {
	m := NewManager(t.TempDir(), 10)
	require.NoError(t, m.Append("alice", "vid1", domain.RoleUser, "hello", nil))

	assert.True(t, m.Clear("alice", "vid1"))
	assert.False(t, m.Clear("alice", "vid1"), "second clear reports nothing to remove")
	assert.Empty(t, m.Load("alice", "vid1").Messages)
}

func TestListFiltersByUser(t *testing.T) {
	m := NewManager(t.TempDir(), 10)
	require.NoError(t, m.Append("alice", "vid1", domain.RoleUser, "a", nil))
	require.NoError(t, m.Append("bob", "vid2", domain.RoleUser, "b", nil))

	all := m.List("")
	assert.Len(t, all, 2)

	alice := m.List("alice")
	require.Len(t, alice, 1)
	assert.Equal(t, "vid1", alice[0].DocumentID)
	assert.Equal(t, 1, alice[0].MessageCount)
}
