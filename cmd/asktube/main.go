package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/Avishkar74/AskTube/internal/chunker"
	"github.com/Avishkar74/AskTube/internal/config"
	"github.com/Avishkar74/AskTube/internal/conversation"
	"github.com/Avishkar74/AskTube/internal/domain"
	"github.com/Avishkar74/AskTube/internal/embedding"
	"github.com/Avishkar74/AskTube/internal/indexer"
	"github.com/Avishkar74/AskTube/internal/llm"
	"github.com/Avishkar74/AskTube/internal/logger"
	"github.com/Avishkar74/AskTube/internal/service"
	"github.com/Avishkar74/AskTube/internal/summarizer"
	"github.com/Avishkar74/AskTube/internal/tui"
	"github.com/Avishkar74/AskTube/internal/vectorstore"
)

const usageText = `Usage: asktube [flags] <command> <video-id> [args]

Commands:
  index <video-id> <transcript.txt>   build the vector index for a video
  ask <video-id> <question...>        answer one question
  chat <video-id>                     interactive chat session
  chunks <video-id>                   list indexed chunks
  stats <video-id>                    show index status
  summarize <video-id>                summarize the transcript
  clear <video-id>                    delete the conversation history
`

func main() {
	_ = godotenv.Load()

	var (
		cfgPath      string
		verbose      bool
		userID       string
		backendKind  string
		model        string
		topK         int
		window       int
		noRAG        bool
		force        bool
		segmentsPath string
	)
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional)")
	flag.BoolVar(&verbose, "verbose", false, "Enable debug logging")
	flag.StringVar(&userID, "user", "default", "User id owning the conversation")
	flag.StringVar(&backendKind, "backend", "", "Generation backend: ollama or openai (default: auto-select)")
	flag.StringVar(&model, "model", "", "Generation model override")
	flag.IntVar(&topK, "topk", -1, "Chunks to retrieve for semantic queries")
	flag.IntVar(&window, "window", -1, "Neighbor chunks around a timestamp hit")
	flag.BoolVar(&noRAG, "no-rag", false, "Answer from the raw transcript instead of retrieval")
	flag.BoolVar(&force, "force", false, "Rebuild the index even when content is unchanged")
	flag.StringVar(&segmentsPath, "segments", "", "JSON file of time-coded transcript segments")
	flag.Parse()

	logger.SetVerbose(verbose)

	args := flag.Args()
	if len(args) < 2 {
		fmt.Print(usageText)
		os.Exit(1)
	}
	command, documentID := args[0], args[1]

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	emb, err := embedding.Shared(func() (domain.Embedder, error) { return buildEmbedder(cfg) })
	if err != nil {
		log.Fatalf("embedder init failed: %v", err)
	}

	store := vectorstore.NewStore(cfg.Index.Dir, emb)
	conv := conversation.NewManager(cfg.Conversation.Dir, cfg.Conversation.MaxHistory)
	factory := llm.Factory{
		OllamaBaseURL: cfg.LLM.OllamaBaseURL,
		OpenAIBaseURL: cfg.LLM.OpenAIBaseURL,
	}
	svc := service.NewAnswerService(store, emb, conv, summarizer.NewFrequencySummarizer(), factory)
	ix := indexer.New(store,
		chunker.NewTextChunker(cfg.Chunker.TargetTokens, cfg.Chunker.OverlapTokens),
		chunker.NewSegmentChunker(cfg.Chunker.SegmentChars))

	if backendKind == "" {
		backendKind = cfg.LLM.Backend
	}
	if model == "" {
		model = cfg.LLM.Model
	}
	if topK < 0 {
		topK = cfg.Retrieval.TopK
	}
	if window < 0 {
		window = cfg.Retrieval.Window
	}
	opts := service.AskOptions{
		UserID:     userID,
		Backend:    backendKind,
		Model:      model,
		TopK:       topK,
		Window:     window,
		DisableRAG: noRAG || !cfg.Retrieval.UseRAGEnabled(),
	}

	ctx := context.Background()

	switch command {
	case "index":
		if len(args) < 3 && segmentsPath == "" {
			log.Fatalf("index needs a transcript file or -segments")
		}
		var text string
		if len(args) >= 3 {
			data, err := os.ReadFile(args[2])
			if err != nil {
				log.Fatalf("read transcript: %v", err)
			}
			text = string(data)
		}
		segments, err := loadSegments(segmentsPath)
		if err != nil {
			log.Fatalf("read segments: %v", err)
		}
		res, err := ix.IndexTranscript(ctx, documentID, text, segments, force)
		if err != nil {
			log.Fatalf("index failed: %v", err)
		}
		if err := conv.SetTranscript(userID, documentID, transcriptText(text, segments)); err != nil {
			logger.Warn("store transcript: %v", err)
		}
		if res.Skipped {
			fmt.Printf("Index for %s is up to date (%d chunks).\n", documentID, res.ChunkCount)
		} else {
			fmt.Printf("Indexed %s: %d chunks.\n", documentID, res.ChunkCount)
		}

	case "ask":
		if len(args) < 3 {
			log.Fatalf("ask needs a question")
		}
		answer := svc.Answer(ctx, documentID, strings.Join(args[2:], " "), opts)
		printAnswer(answer)

	case "chat":
		m := tui.New(svc, conv, documentID, opts)
		if _, err := tea.NewProgram(m).Run(); err != nil {
			log.Fatal(err)
		}

	case "chunks":
		chunks := store.ListAll(documentID)
		if len(chunks) == 0 {
			fmt.Printf("No index for %s.\n", documentID)
			return
		}
		for _, c := range chunks {
			if c.StartSec != nil && c.EndSec != nil {
				fmt.Printf("[%d] %.0fs-%.0fs %s\n", c.ChunkID, *c.StartSec, *c.EndSec, c.Text)
			} else {
				fmt.Printf("[%d] %s\n", c.ChunkID, c.Text)
			}
		}

	case "stats":
		if !store.HasIndex(documentID) {
			fmt.Printf("No index for %s.\n", documentID)
			return
		}
		fmt.Printf("document: %s\nchunks: %d\ncontent hash: %s\nembedder: %s\n",
			documentID, store.Stats(documentID).ChunkCount, store.ContentHash(documentID), emb.Name())

	case "summarize":
		answer := svc.Summarize(ctx, documentID, opts)
		printAnswer(answer)

	case "clear":
		if conv.Clear(userID, documentID) {
			fmt.Printf("Cleared conversation for %s/%s.\n", userID, documentID)
		} else {
			fmt.Printf("No conversation stored for %s/%s.\n", userID, documentID)
		}

	default:
		fmt.Print(usageText)
		os.Exit(1)
	}
}

func buildEmbedder(cfg *config.AppConfig) (domain.Embedder, error) {
	switch cfg.Embedder.Type {
	case "ollama", "":
		var ec config.OllamaEmbedderConfig
		if cfg.Embedder.Ollama != nil {
			ec = *cfg.Embedder.Ollama
		}
		return embedding.NewOllamaEmbedder(embedding.OllamaConfig{
			BaseURL: ec.BaseURL,
			Model:   ec.Model,
			Timeout: time.Duration(ec.TimeoutSecs) * time.Second,
		}), nil
	case "openai":
		var ec config.OpenAIEmbedderConfig
		if cfg.Embedder.OpenAI != nil {
			ec = *cfg.Embedder.OpenAI
		}
		return embedding.NewOpenAIEmbedder(embedding.OpenAIEmbedderConfig{
			BaseURL: ec.BaseURL,
			Model:   ec.Model,
		})
	case "hashing":
		return embedding.NewHashingEmbedder(), nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}
}

func loadSegments(path string) ([]domain.Segment, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var segments []domain.Segment
	if err := json.Unmarshal(data, &segments); err != nil {
		return nil, err
	}
	return segments, nil
}

// transcriptText picks the transcript to store with the conversation:
// plain text when given, otherwise the segment texts joined.
func transcriptText(text string, segments []domain.Segment) string {
	if text != "" {
		return text
	}
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		parts = append(parts, seg.Text)
	}
	return strings.Join(parts, " ")
}

func printAnswer(answer domain.Answer) {
	fmt.Println(answer.Text)
	for i, c := range answer.Citations {
		if c.StartSec != nil && c.EndSec != nil {
			fmt.Printf("  [c%d] %.0fs-%.0fs %s\n", i+1, *c.StartSec, *c.EndSec, snippet(c.Text))
		} else {
			fmt.Printf("  [c%d] %s\n", i+1, snippet(c.Text))
		}
	}
	if answer.Meta.Fallback {
		fmt.Println("(degraded answer: no generation backend responded)")
	}
}

func snippet(text string) string {
	if len(text) > 100 {
		return text[:100] + "..."
	}
	return text
}
