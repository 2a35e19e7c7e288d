package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"llmproxy/internal/ai"
	"llmproxy/internal/filters"
	"llmproxy/internal/model"
	"llmproxy/internal/vectorstore"
)

const defaultContextTopK = 3

// ContextSearcher is the retrieval side of the vector store.
type ContextSearcher interface {
	Search(ctx context.Context, vector []float32, topK int) ([]vectorstore.ScoredText, error)
}

// LogPublisher hands a finished audit entry to the async persistence queue.
type LogPublisher interface {
	Publish(ctx context.Context, entry model.PromptLog) error
}

// ChatService runs the proxy pipeline: mask PII in the last user message,
// inject retrieved context, forward upstream, unmask and sanitize the
// answer, and publish an audit log entry.
type ChatService struct {
	detector  *filters.PIIDetector
	sanitizer *filters.OutputSanitizer
	llm       *ai.OpenAICompatibleClient
	chatCfg   ai.ChatConfig
	embCfg    ai.EmbeddingConfig
	searcher  ContextSearcher // nil when the indexing engine is unavailable
	publisher LogPublisher
	topK      int
}

func NewChatService(
	detector *filters.PIIDetector,
	llm *ai.OpenAICompatibleClient,
	chatCfg ai.ChatConfig,
	embCfg ai.EmbeddingConfig,
	searcher ContextSearcher,
	publisher LogPublisher,
) *ChatService {
	return &ChatService{
		detector:  detector,
		sanitizer: filters.NewOutputSanitizer(),
		llm:       llm,
		chatCfg:   chatCfg,
		embCfg:    embCfg,
		searcher:  searcher,
		publisher: publisher,
		topK:      defaultContextTopK,
	}
}

// Complete proxies one completion request.
func (s *ChatService) Complete(ctx context.Context, request model.ChatRequest) (*model.ChatResponse, error) {
	lastUser := -1
	for i := range request.Messages {
		if request.Messages[i].Role == "user" {
			lastUser = i
		}
	}
	if lastUser < 0 {
		return nil, fmt.Errorf("%w: no user message found", ErrInvalidInput)
	}
	original := request.Messages[lastUser].Content

	masked, mappings := s.detector.DetectAndMask(original)
	log.Printf("masked %d PII entities", len(mappings))

	ragContext, err := s.retrieveContext(ctx, masked)
	if err != nil {
		return nil, fmt.Errorf("retrieve context failed: %w", err)
	}

	// Rewrite only the forwarded copy; the caller's request stays intact.
	forwarded := request
	forwarded.Messages = append([]model.ChatMessage(nil), request.Messages...)
	forwarded.Messages[lastUser].Content = ragContext + masked

	response, err := s.llm.ChatCompletion(ctx, s.chatCfg, forwarded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	llmOutput := ""
	if len(response.Choices) > 0 {
		llmOutput = response.Choices[0].Message.Content
	}
	var sanitized []string
	for i := range response.Choices {
		content := s.detector.Unmask(response.Choices[i].Message.Content, mappings)
		content, removed := s.sanitizer.Sanitize(content)
		sanitized = append(sanitized, removed...)
		response.Choices[i].Message.Content = content
	}
	if len(sanitized) > 0 {
		log.Printf("sanitized %d dangerous fragments from response", len(sanitized))
	}
	finalOutput := ""
	if len(response.Choices) > 0 {
		finalOutput = response.Choices[0].Message.Content
	}

	s.publishLog(ctx, model.PromptLog{
		ID:          uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		Original:    original,
		Masked:      masked,
		RAGContext:  strings.TrimSpace(ragContext),
		LLMOutput:   llmOutput,
		FinalOutput: finalOutput,
		PIIMappings: marshalMappings(mappings),
		Sanitized:   marshalRemoved(sanitized),
	})

	return response, nil
}

// retrieveContext embeds the masked prompt and pulls the top matching chunks.
// Without an engine the proxy works with an empty context.
func (s *ChatService) retrieveContext(ctx context.Context, query string) (string, error) {
	if s.searcher == nil {
		return "", nil
	}
	vector, err := s.llm.Embed(ctx, s.embCfg, query)
	if err != nil {
		return "", fmt.Errorf("embed query failed: %w", err)
	}
	hits, err := s.searcher.Search(ctx, vector, s.topK)
	if err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}
	if len(hits) == 0 {
		return "", nil
	}
	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = h.Text
	}
	return "Relevant context:\n" + strings.Join(texts, "\n\n") + "\n\n", nil
}

func (s *ChatService) publishLog(ctx context.Context, entry model.PromptLog) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, entry); err != nil {
		log.Printf("publish prompt log failed: %v", err)
	}
}

func marshalMappings(mappings map[string]string) string {
	b, err := json.Marshal(mappings)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func marshalRemoved(removed []string) string {
	if len(removed) == 0 {
		return ""
	}
	b, err := json.Marshal(removed)
	if err != nil {
		return "[]"
	}
	return string(b)
}
