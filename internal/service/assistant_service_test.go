package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"pipelineiq-backend/internal/domain"
	"pipelineiq-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	mu      sync.Mutex
	delay   time.Duration
	reply   string
	prompts []string
}

func (f *fakeGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	delay := f.delay
	f.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.reply, nil
}

type fakeDeals struct{ deals []domain.Deal }

func (f fakeDeals) List(ctx context.Context, _ repository.DealFilter, _ int) ([]domain.Deal, error) {
	return f.deals, nil
}

type fakeTasks struct{ tasks []domain.Task }

func (f fakeTasks) List(ctx context.Context, _ []int64, _ bool, _ int) ([]domain.Task, error) {
	return f.tasks, nil
}

func newTestAssistant(gen TextGenerator) *AssistantService {
	deals := fakeDeals{deals: []domain.Deal{{
		ClientName:          "Jordan Reyes",
		DealType:            domain.DealTypeBuyer,
		Status:              domain.StageInProgress,
		ExpectedSalePrice:   450000,
		GrossCommissionRate: 0.03,
		CloseDate:           "2025-09-15",
	}}}
	tasks := fakeTasks{tasks: []domain.Task{{Title: "Schedule inspection", DueDate: "2025-09-01"}}}
	return NewAssistantService(gen, deals, tasks, discardLogger())
}

func TestChatIncludesPipelineContext(t *testing.T) {
	gen := &fakeGenerator{reply: "You have one buyer deal in progress."}
	svc := newTestAssistant(gen)
	id := svc.StartConversation()

	msg, err := svc.Chat(context.Background(), []int64{1}, id, "How is my pipeline?")
	require.NoError(t, err)
	assert.Equal(t, "assistant", msg.Role)
	assert.Equal(t, "You have one buyer deal in progress.", msg.Content)

	require.NotNil(t, msg.Stats)
	assert.Equal(t, 1, msg.Stats.OpenDeals)
	assert.Equal(t, 1, msg.Stats.OpenTasks)
	assert.InDelta(t, 13500.0, msg.Stats.PipelineNetGCI, 1e-9)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Jordan Reyes")
	assert.Contains(t, gen.prompts[0], "Schedule inspection")
	assert.Contains(t, gen.prompts[0], "How is my pipeline?")
}

func TestChatAppendsHistoryAcrossTurns(t *testing.T) {
	gen := &fakeGenerator{reply: "ok"}
	svc := newTestAssistant(gen)
	id := svc.StartConversation()

	_, err := svc.Chat(context.Background(), []int64{1}, id, "first question")
	require.NoError(t, err)
	_, err = svc.Chat(context.Background(), []int64{1}, id, "second question")
	require.NoError(t, err)

	history := svc.History(id)
	require.Len(t, history, 4)
	assert.Equal(t, "first question", history[0].Content)
	assert.Equal(t, "second question", history[2].Content)

	// The second prompt carries the first exchange.
	require.Len(t, gen.prompts, 2)
	assert.Contains(t, gen.prompts[1], "first question")
}

func TestChatSupersededRequestIsDiscarded(t *testing.T) {
	gen := &fakeGenerator{reply: "late answer", delay: 200 * time.Millisecond}
	svc := newTestAssistant(gen)
	id := svc.StartConversation()

	errCh := make(chan error, 1)
	go func() {
		_, err := svc.Chat(context.Background(), []int64{1}, id, "slow question")
		errCh <- err
	}()
	time.Sleep(50 * time.Millisecond)

	gen.mu.Lock()
	gen.delay = 0
	gen.reply = "fresh answer"
	gen.mu.Unlock()

	msg, err := svc.Chat(context.Background(), []int64{1}, id, "newer question")
	require.NoError(t, err)
	assert.Equal(t, "fresh answer", msg.Content)

	firstErr := <-errCh
	assert.ErrorIs(t, firstErr, ErrSuperseded)

	// Only the surviving exchange lands in history.
	history := svc.History(id)
	require.Len(t, history, 2)
	assert.Equal(t, "newer question", history[0].Content)
}

func TestBuildPromptTrimsLongHistory(t *testing.T) {
	var history []ChatMessage
	for i := 0; i < 3*maxPromptHistory; i++ {
		history = append(history, ChatMessage{Role: "user", Content: fmt.Sprintf("message %d", i)})
	}

	prompt := buildPrompt("snapshot", history, "latest question")
	assert.NotContains(t, prompt, "message 0\n")
	assert.NotContains(t, prompt, "message 19\n")
	assert.Contains(t, prompt, "message 20\n")
	assert.Contains(t, prompt, "message 29\n")
	assert.Contains(t, prompt, "latest question")
}

func TestChatUnknownConversationIsCreated(t *testing.T) {
	gen := &fakeGenerator{reply: "hello"}
	svc := newTestAssistant(gen)

	msg, err := svc.Chat(context.Background(), []int64{1}, "missing-id", "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Content)
	assert.Len(t, svc.History("missing-id"), 2)
}
