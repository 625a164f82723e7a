package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"pipelineiq-backend/internal/analytics"
	"pipelineiq-backend/internal/domain"
	"pipelineiq-backend/internal/repository"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

// ErrSuperseded is returned when a newer message on the same conversation
// started before this one finished. The stale result is discarded.
var ErrSuperseded = errors.New("request superseded by a newer one")

// ErrAssistantDisabled is returned when no LLM backend is configured.
var ErrAssistantDisabled = errors.New("assistant is not configured")

// TextGenerator abstracts the LLM call so the service can be tested without
// network access.
type TextGenerator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// GenAIGenerator calls the Gemini API.
type GenAIGenerator struct {
	Client *genai.Client
	Model  string
}

func NewGenAIGenerator(ctx context.Context, apiKey, model string) (*GenAIGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("genai api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GenAIGenerator{Client: client, Model: model}, nil
}

func (g *GenAIGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	result, err := g.Client.Models.GenerateContent(ctx, g.Model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return result.Text(), nil
}

// DealLister and TaskLister are the repository slices the assistant reads.
type DealLister interface {
	List(ctx context.Context, f repository.DealFilter, limit int) ([]domain.Deal, error)
}

type TaskLister interface {
	List(ctx context.Context, userIDs []int64, includeCompleted bool, limit int) ([]domain.Task, error)
}

// PipelineSnapshot carries the named figures backing an assistant reply so
// the client can render them alongside the prose.
type PipelineSnapshot struct {
	OpenDeals        int     `json:"openDeals"`
	ClosedDeals      int     `json:"closedDeals"`
	PipelineNetGCI   float64 `json:"pipelineNetGci"`
	OpenTasks        int     `json:"openTasks"`
	ClosingThisMonth int     `json:"closingThisMonth"`
}

type ChatMessage struct {
	Role    string            `json:"role"`
	Content string            `json:"content"`
	SentAt  time.Time         `json:"sentAt"`
	Stats   *PipelineSnapshot `json:"stats,omitempty"`
}

type conversation struct {
	history    []ChatMessage
	generation uint64
	cancel     context.CancelFunc
}

// AssistantService answers chat questions about the caller's pipeline. Each
// conversation allows one in-flight generation at a time: a new message
// cancels the previous call and any result from a superseded generation is
// dropped instead of being appended out of order.
type AssistantService struct {
	Gen    TextGenerator
	Deals  DealLister
	Tasks  TaskLister
	Logger *slog.Logger

	mu            sync.Mutex
	conversations map[string]*conversation
}

func NewAssistantService(gen TextGenerator, deals DealLister, tasks TaskLister, logger *slog.Logger) *AssistantService {
	return &AssistantService{
		Gen:           gen,
		Deals:         deals,
		Tasks:         tasks,
		Logger:        logger,
		conversations: make(map[string]*conversation),
	}
}

// StartConversation allocates a new conversation id.
func (s *AssistantService) StartConversation() string {
	id := uuid.NewString()
	s.mu.Lock()
	s.conversations[id] = &conversation{}
	s.mu.Unlock()
	return id
}

// History returns the messages exchanged so far.
func (s *AssistantService) History(conversationID string) []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil
	}
	out := make([]ChatMessage, len(conv.history))
	copy(out, conv.history)
	return out
}

// Chat sends a message and returns the assistant's reply. The pipeline
// snapshot visible to userIDs is serialized into the prompt context.
func (s *AssistantService) Chat(ctx context.Context, userIDs []int64, conversationID, message string) (*ChatMessage, error) {
	s.mu.Lock()
	conv, ok := s.conversations[conversationID]
	if !ok {
		conv = &conversation{}
		s.conversations[conversationID] = conv
	}
	if conv.cancel != nil {
		conv.cancel()
	}
	conv.generation++
	gen := conv.generation
	genCtx, cancel := context.WithCancel(ctx)
	conv.cancel = cancel
	prior := make([]ChatMessage, len(conv.history))
	copy(prior, conv.history)
	s.mu.Unlock()
	defer cancel()

	blob, snapshot, err := s.contextBlob(genCtx, userIDs)
	if err != nil {
		return nil, err
	}
	prompt := buildPrompt(blob, prior, message)

	reply, err := s.Gen.Generate(genCtx, systemInstruction, prompt)

	s.mu.Lock()
	defer s.mu.Unlock()
	if conv.generation != gen {
		s.Logger.Debug("discarding stale assistant reply", "conversation_id", conversationID, "generation", gen)
		return nil, ErrSuperseded
	}
	conv.cancel = nil
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	conv.history = append(conv.history,
		ChatMessage{Role: "user", Content: message, SentAt: now},
		ChatMessage{Role: "assistant", Content: reply, SentAt: now, Stats: &snapshot},
	)
	return &conv.history[len(conv.history)-1], nil
}

const systemInstruction = "You are a real-estate sales assistant. Answer using only the pipeline data provided. Be concise and quantitative where possible."

// contextBlob renders the caller's visible deals and open tasks into a plain
// text snapshot the model can reason over, plus the numeric summary returned
// with the reply.
func (s *AssistantService) contextBlob(ctx context.Context, userIDs []int64) (string, PipelineSnapshot, error) {
	deals, err := s.Deals.List(ctx, repository.DealFilter{UserIDs: userIDs}, 200)
	if err != nil {
		return "", PipelineSnapshot{}, fmt.Errorf("load deals for assistant: %w", err)
	}
	tasks, err := s.Tasks.List(ctx, userIDs, false, 50)
	if err != nil {
		return "", PipelineSnapshot{}, fmt.Errorf("load tasks for assistant: %w", err)
	}

	now := time.Now().UTC()
	snapshot := PipelineSnapshot{OpenTasks: len(tasks)}
	for _, d := range deals {
		switch d.Status {
		case domain.StageClosed:
			snapshot.ClosedDeals++
		case domain.StageDead:
		default:
			snapshot.OpenDeals++
			snapshot.PipelineNetGCI += analytics.NetCommission(d)
		}
	}
	snapshot.ClosingThisMonth = len(analytics.ClosingThisMonth(deals, now))

	var b strings.Builder
	b.WriteString("DEALS:\n")
	for _, d := range deals {
		stage := string(d.Status)
		if d.PipelineStatus != nil {
			stage = d.PipelineStatus.Name
		}
		fmt.Fprintf(&b, "- %s | %s | stage=%s | price=%.0f | net_commission=%.2f", d.ClientName, d.DealType, stage, analytics.SalePrice(d), analytics.NetCommission(d))
		if d.CloseDate != "" {
			fmt.Fprintf(&b, " | close_date=%s", d.CloseDate)
		}
		if d.Status == domain.StageDead && d.ArchiveReason != "" {
			fmt.Fprintf(&b, " | archived=%s", d.ArchiveReason)
		}
		b.WriteString("\n")
	}
	b.WriteString("OPEN TASKS:\n")
	for _, t := range tasks {
		fmt.Fprintf(&b, "- %s", t.Title)
		if t.DueDate != "" {
			fmt.Fprintf(&b, " (due %s)", t.DueDate)
		}
		b.WriteString("\n")
	}
	return b.String(), snapshot, nil
}

// maxPromptHistory bounds how many prior messages get serialized into the
// prompt so long conversations do not grow it without limit.
const maxPromptHistory = 10

func buildPrompt(blob string, history []ChatMessage, message string) string {
	if len(history) > maxPromptHistory {
		history = history[len(history)-maxPromptHistory:]
	}
	var b strings.Builder
	b.WriteString("Pipeline snapshot:\n")
	b.WriteString(blob)
	if len(history) > 0 {
		b.WriteString("\nConversation so far:\n")
		for _, m := range history {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
	}
	b.WriteString("\nuser: ")
	b.WriteString(message)
	return b.String()
}
