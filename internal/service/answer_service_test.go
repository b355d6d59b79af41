package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Avishkar74/AskTube/internal/conversation"
	"github.com/Avishkar74/AskTube/internal/domain"
	"github.com/Avishkar74/AskTube/internal/embedding"
	"github.com/Avishkar74/AskTube/internal/llm"
	"github.com/Avishkar74/AskTube/internal/summarizer"
	"github.com/Avishkar74/AskTube/internal/vectorstore"
)

type fakeBackend struct {
	out     string
	err     error
	prompts []string
}

func (f *fakeBackend) Name() string  { return "fake" }
func (f *fakeBackend) Model() string { return "fake-model" }
func (f *fakeBackend) Generate(_ context.Context, prompt string, _ llm.GenerateOptions) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.out, f.err
}
func (f *fakeBackend) IsAvailable(context.Context) bool { return true }

type fakeResolver struct {
	backend llm.Backend
	err     error
}

func (r fakeResolver) Get(string, string) (llm.Backend, error) { return r.backend, r.err }
func (r fakeResolver) AutoSelect(context.Context, string, string) (llm.Backend, error) {
	return r.backend, r.err
}

type fixture struct {
	svc     *AnswerService
	store   *vectorstore.Store
	conv    *conversation.Manager
	backend *fakeBackend
}

func newFixture(t *testing.T, resolverErr error) *fixture {
	t.Helper()
	backend := &fakeBackend{out: "generated answer"}
	resolver := fakeResolver{backend: backend, err: resolverErr}
	store := vectorstore.NewStore(t.TempDir(), embedding.NewHashingEmbedder())
	conv := conversation.NewManager(t.TempDir(), 10)
	svc := NewAnswerService(store, embedding.NewHashingEmbedder(), conv, summarizer.NewFrequencySummarizer(), resolver)
	return &fixture{svc: svc, store: store, conv: conv, backend: backend}
}

func secs(v float64) *float64 { return &v }

func buildIndex(t *testing.T, store *vectorstore.Store, timed bool) {
	t.Helper()
	chunks := []domain.Chunk{
		{ChunkID: 1, Text: "goroutines are explained in depth"},
		{ChunkID: 2, Text: "channels carry values between goroutines"},
		{ChunkID: 3, Text: "the closing remarks thank the audience"},
	}
	if timed {
		spans := [][2]float64{{0, 10}, {10, 20}, {20, 30}}
		for i := range chunks {
			chunks[i].StartSec = secs(spans[i][0])
			chunks[i].EndSec = secs(spans[i][1])
		}
	}
	require.NoError(t, store.Build(context.Background(), "vid1", chunks, "hash1"))
}

func TestAnswerGroundedInRetrievedChunks(t *testing.T) {
	f := newFixture(t, nil)
	buildIndex(t, f.store, false)

	answer := f.svc.Answer(context.Background(), "vid1", "what are goroutines?", AskOptions{})

	assert.Equal(t, "generated answer", answer.Text)
	assert.NotEmpty(t, answer.Citations)
	assert.Equal(t, "fake", answer.Meta.Backend)
	assert.True(t, answer.Meta.UseRAG)
	assert.False(t, answer.Meta.Fallback)

	require.Len(t, f.backend.prompts, 1)
	prompt := f.backend.prompts[0]
	assert.Contains(t, prompt, "[c1]")
	assert.Contains(t, prompt, "STRICTLY")
	assert.True(t, strings.HasSuffix(prompt, "User question: what are goroutines?\nAnswer:"))
}

func TestAnswerPersistsConversation(t *testing.T) {
	f := newFixture(t, nil)
	buildIndex(t, f.store, false)

	f.svc.Answer(context.Background(), "vid1", "what are goroutines?", AskOptions{UserID: "alice"})

	msgs := f.conv.Load("alice", "vid1").Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
	assert.Equal(t, "what are goroutines?", msgs[0].Content)
	assert.Equal(t, domain.RoleAssistant, msgs[1].Role)
	assert.NotEmpty(t, msgs[1].Citations)
}

func TestAnswerTimestampQueryUsesTimedChunks(t *testing.T) {
	f := newFixture(t, nil)
	buildIndex(t, f.store, true)

	answer := f.svc.Answer(context.Background(), "vid1", "what is said at 0:15?", AskOptions{Window: 0})

	require.Len(t, answer.Citations, 1)
	assert.Equal(t, 2, answer.Citations[0].ChunkID)
	assert.Nil(t, answer.Citations[0].Score)
}

func TestAnswerHistoryInPrompt(t *testing.T) {
	f := newFixture(t, nil)
	buildIndex(t, f.store, false)
	require.NoError(t, f.conv.Append("alice", "vid1", domain.RoleUser, "earlier question", nil))

	f.svc.Answer(context.Background(), "vid1", "follow up", AskOptions{UserID: "alice"})

	require.Len(t, f.backend.prompts, 1)
	assert.Contains(t, f.backend.prompts[0], "User: earlier question")
}

func TestAnswerFallsBackToTranscriptWithoutIndex(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.conv.SetTranscript("default", "vid1", "the talk covers testing in Go."))

	answer := f.svc.Answer(context.Background(), "vid1", "what is covered?", AskOptions{})

	assert.Empty(t, answer.Citations)
	require.Len(t, f.backend.prompts, 1)
	assert.Contains(t, f.backend.prompts[0], "Transcript:")
	assert.Contains(t, f.backend.prompts[0], "testing in Go")
}

func TestAnswerDisableRAGSkipsRetrieval(t *testing.T) {
	f := newFixture(t, nil)
	buildIndex(t, f.store, false)

	answer := f.svc.Answer(context.Background(), "vid1", "what are goroutines?", AskOptions{DisableRAG: true})

	assert.Empty(t, answer.Citations)
	assert.False(t, answer.Meta.UseRAG)
	require.Len(t, f.backend.prompts, 1)
	assert.NotContains(t, f.backend.prompts[0], "[c1]")
}

func TestAnswerDegradesWhenNoBackendResolves(t *testing.T) {
	f := newFixture(t, domain.ErrNoBackendAvailable)
	require.NoError(t, f.conv.SetTranscript("default", "vid1",
		"Go makes concurrency approachable. Go ships a race detector. Nothing else matters."))

	answer := f.svc.Answer(context.Background(), "vid1", "what about concurrency?", AskOptions{})

	assert.True(t, answer.Meta.Fallback)
	assert.Contains(t, answer.Text, "extract of the transcript")
}

func TestAnswerInabilityWithoutTranscript(t *testing.T) {
	f := newFixture(t, domain.ErrNoBackendAvailable)

	answer := f.svc.Answer(context.Background(), "vid1", "anything?", AskOptions{})

	assert.True(t, answer.Meta.Fallback)
	assert.Equal(t, inabilityMessage, answer.Text)
}

func TestAnswerGenerationFaultDegrades(t *testing.T) {
	f := newFixture(t, nil)
	f.backend.err = domain.ErrGeneration
	buildIndex(t, f.store, false)

	answer := f.svc.Answer(context.Background(), "vid1", "what are goroutines?", AskOptions{})

	assert.True(t, answer.Meta.Fallback)
	assert.NotEmpty(t, answer.Text)
}

func TestSummarizeLLMBacked(t *testing.T) {
	f := newFixture(t, nil)
	f.backend.out = "a tidy summary"
	require.NoError(t, f.conv.SetTranscript("default", "vid1", "long transcript text."))

	answer := f.svc.Summarize(context.Background(), "vid1", AskOptions{})

	assert.Equal(t, "a tidy summary", answer.Text)
	assert.False(t, answer.Meta.Fallback)
	require.Len(t, f.backend.prompts, 1)
	assert.Contains(t, f.backend.prompts[0], "Summarize")
}

func TestSummarizeFallsBackToExtractive(t *testing.T) {
	f := newFixture(t, domain.ErrNoBackendAvailable)
	require.NoError(t, f.conv.SetTranscript("default", "vid1",
		"Go routines run concurrently. Go channels synchronize them. Lunch was fine."))

	answer := f.svc.Summarize(context.Background(), "vid1", AskOptions{})

	assert.True(t, answer.Meta.Fallback)
	assert.Contains(t, answer.Text, "transcript")
}

func TestSummarizeWithoutTranscript(t *testing.T) {
	f := newFixture(t, nil)

	answer := f.svc.Summarize(context.Background(), "vid1", AskOptions{})

	assert.True(t, answer.Meta.Fallback)
	assert.Contains(t, answer.Text, "no transcript")
}

func TestTranscriptFallsBackToIndexedChunks(t *testing.T) {
	f := newFixture(t, nil)
	buildIndex(t, f.store, false)

	got := f.svc.transcript("default", "vid1")
	assert.Contains(t, got, "goroutines are explained in depth")
	assert.Contains(t, got, "closing remarks")
}
