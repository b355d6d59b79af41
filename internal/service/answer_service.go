// Package service assembles answers about a document: it routes the query
// to semantic or timestamp retrieval, builds a grounded prompt, calls a
// generation backend and records the exchange. Every degradation on the
// query path downgrades the answer instead of failing the request.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Avishkar74/AskTube/internal/conversation"
	"github.com/Avishkar74/AskTube/internal/domain"
	"github.com/Avishkar74/AskTube/internal/llm"
	"github.com/Avishkar74/AskTube/internal/logger"
	"github.com/Avishkar74/AskTube/internal/router"
	"github.com/Avishkar74/AskTube/internal/vectorstore"
)

const (
	// Raw-transcript prompts are truncated to keep the context window sane.
	maxTranscriptChars = 15000

	answerMaxTokens      = 512
	answerTemperature    = 0.3
	summaryMaxTokens     = 384
	fallbackSummaryLines = 5
)

const inabilityMessage = "I could not generate an answer for this video right now. " +
	"Please check that a generation backend is reachable and try again."

// BackendResolver picks a generation backend; llm.Factory implements it.
type BackendResolver interface {
	Get(kind, model string) (llm.Backend, error)
	AutoSelect(ctx context.Context, preferred, model string) (llm.Backend, error)
}

// AnswerService turns questions about an indexed document into answers.
type AnswerService struct {
	store         *vectorstore.Store
	embedder      domain.Embedder
	conversations *conversation.Manager
	summarizer    domain.Summarizer
	backends      BackendResolver
}

// NewAnswerService wires the answer pipeline together.
func NewAnswerService(store *vectorstore.Store, embedder domain.Embedder, conversations *conversation.Manager, summarizer domain.Summarizer, backends BackendResolver) *AnswerService {
	return &AnswerService{
		store:         store,
		embedder:      embedder,
		conversations: conversations,
		summarizer:    summarizer,
		backends:      backends,
	}
}

// AskOptions tunes one Answer call. Backend "" means auto-select; TopK <= 0
// and Window < 0 mean the router defaults; DisableRAG skips retrieval and
// prompts from the raw transcript.
type AskOptions struct {
	UserID     string
	Backend    string
	Model      string
	TopK       int
	Window     int
	DisableRAG bool
}

// Answer answers a question about a document. Retrieval and generation
// failures degrade the answer (transcript prompt, extractive fallback,
// finally a canned inability message) rather than returning an error; the
// exchange is persisted to the conversation before returning.
func (s *AnswerService) Answer(ctx context.Context, documentID, query string, opts AskOptions) domain.Answer {
	userID := opts.UserID
	if userID == "" {
		userID = "default"
	}

	meta := domain.AnswerMeta{UseRAG: !opts.DisableRAG}

	var citations []domain.RetrievalResult
	if !opts.DisableRAG && s.store.HasIndex(documentID) {
		route := router.RouteQuery(query, router.Options{TopK: opts.TopK, Window: opts.Window})
		citations = s.retrieve(ctx, documentID, query, route)
		meta.TopK = route.TopK
		meta.Window = route.Window
	}

	transcript := s.transcript(userID, documentID)
	prompt := s.buildPrompt(userID, documentID, query, citations, transcript)

	text, genErr := s.generate(ctx, prompt, answerMaxTokens, opts, &meta)
	if genErr != nil {
		logger.Warn("generation failed for %s: %v", documentID, genErr)
		text = s.extractiveFallback(transcript)
		meta.Fallback = true
	}

	answer := domain.Answer{Text: text, Citations: citations, Meta: meta}
	s.record(userID, documentID, query, answer)
	return answer
}

// Summarize produces a summary of the document transcript, LLM-backed when
// a backend responds and extractive otherwise.
func (s *AnswerService) Summarize(ctx context.Context, documentID string, opts AskOptions) domain.Answer {
	userID := opts.UserID
	if userID == "" {
		userID = "default"
	}
	transcript := s.transcript(userID, documentID)
	meta := domain.AnswerMeta{}

	if transcript == "" {
		return domain.Answer{Text: "There is no transcript stored for this video yet.", Meta: domain.AnswerMeta{Fallback: true}}
	}

	prompt := fmt.Sprintf(
		"Summarize the following video transcript in a few concise paragraphs. Cover the main topics in order.\n\nTranscript:\n%s\n\nSummary:",
		truncate(transcript, maxTranscriptChars))

	text, err := s.generate(ctx, prompt, summaryMaxTokens, opts, &meta)
	if err != nil {
		logger.Warn("summary generation failed for %s: %v", documentID, err)
		text = s.extractiveFallback(transcript)
		meta.Fallback = true
	}
	return domain.Answer{Text: text, Meta: meta}
}

// retrieve runs the routed retrieval. Failures read as zero results.
func (s *AnswerService) retrieve(ctx context.Context, documentID, query string, route router.Route) []domain.RetrievalResult {
	if route.Mode == router.ModeTimestamp {
		return s.store.GetByTimestamp(documentID, route.TimeSec, route.Window)
	}
	vec, err := s.embedder.EmbedOne(ctx, query)
	if err != nil {
		logger.Warn("query embedding failed, skipping retrieval: %v", err)
		return nil
	}
	return s.store.Search(documentID, vec, route.TopK)
}

// buildPrompt assembles the system instruction, grounding block, recent
// history and the question into a single prompt.
func (s *AnswerService) buildPrompt(userID, documentID, query string, citations []domain.RetrievalResult, transcript string) string {
	var b strings.Builder

	switch {
	case len(citations) > 0:
		b.WriteString("You are an assistant answering questions about a video transcript. ")
		b.WriteString("Answer STRICTLY using the provided context chunks; cite chunks as [cN]. ")
		b.WriteString("If the context does not contain the answer, say so.\n\n")
		b.WriteString("Context:\n")
		for i, c := range citations {
			fmt.Fprintf(&b, "[c%d] %s\n\n", i+1, c.Text)
		}
	case transcript != "":
		b.WriteString("You are an assistant answering questions about a video transcript. ")
		b.WriteString("Answer using the transcript below; if it does not contain the answer, say so.\n\n")
		b.WriteString("Transcript:\n")
		b.WriteString(truncate(transcript, maxTranscriptChars))
		b.WriteString("\n\n")
	default:
		b.WriteString("You are an assistant answering questions about a video. ")
		b.WriteString("No transcript context is available; say so if you cannot answer.\n\n")
	}

	if history := s.renderHistory(userID, documentID); history != "" {
		b.WriteString("Conversation so far:\n")
		b.WriteString(history)
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "User question: %s\nAnswer:", query)
	return b.String()
}

// renderHistory formats the most recent messages as "Role: content" lines.
func (s *AnswerService) renderHistory(userID, documentID string) string {
	messages := s.conversations.Load(userID, documentID).Messages
	if limit := s.conversations.MaxHistory(); len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	var b strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&b, "%s: %s\n", renderRole(m.Role), m.Content)
	}
	return b.String()
}

// generate resolves a backend and runs the completion, filling in meta.
func (s *AnswerService) generate(ctx context.Context, prompt string, maxTokens int, opts AskOptions, meta *domain.AnswerMeta) (string, error) {
	var backend llm.Backend
	var err error
	if opts.Backend != "" {
		backend, err = s.backends.Get(opts.Backend, opts.Model)
	} else {
		backend, err = s.backends.AutoSelect(ctx, "", opts.Model)
	}
	if err != nil {
		return "", err
	}
	meta.Backend = backend.Name()
	meta.Model = backend.Model()

	out, err := backend.Generate(ctx, prompt, llm.GenerateOptions{
		MaxTokens:   maxTokens,
		Temperature: answerTemperature,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// extractiveFallback derives a backend-free answer from the transcript.
func (s *AnswerService) extractiveFallback(transcript string) string {
	if transcript != "" && s.summarizer != nil {
		if summary, err := s.summarizer.Summarize(transcript, fallbackSummaryLines); err == nil && summary != "" {
			return "No generation backend responded; here is an extract of the transcript instead:\n\n" + summary
		}
	}
	return inabilityMessage
}

// transcript prefers the stored transcript and falls back to the indexed
// chunks joined in order.
func (s *AnswerService) transcript(userID, documentID string) string {
	if t := s.conversations.Transcript(userID, documentID); t != "" {
		return t
	}
	chunks := s.store.ListAll(documentID)
	if len(chunks) == 0 {
		return ""
	}
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, c.Text)
	}
	return strings.Join(parts, " ")
}

// record persists the question and the answer to the conversation. Storage
// faults are logged, never surfaced to the caller.
func (s *AnswerService) record(userID, documentID, query string, answer domain.Answer) {
	if err := s.conversations.Append(userID, documentID, domain.RoleUser, query, nil); err != nil {
		logger.Warn("persist user message: %v", err)
	}
	if err := s.conversations.Append(userID, documentID, domain.RoleAssistant, answer.Text, answer.Citations); err != nil {
		logger.Warn("persist assistant message: %v", err)
	}
}

func renderRole(role string) string {
	switch role {
	case domain.RoleUser:
		return "User"
	case domain.RoleAssistant:
		return "Assistant"
	default:
		return role
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
