package session

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorboard/internal/llm"
	"tutorboard/internal/logger"
	"tutorboard/internal/store"
	"tutorboard/pkg/types"
)

// fakeCompleter routes prompts to canned responses by substring matching,
// standing in for the completion service.
type fakeCompleter struct {
	respond func(prompt string) (string, error)
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return f.respond(prompt)
}

// recordingSink captures outbound events instead of delivering them.
type recordingSink struct {
	mu     sync.Mutex
	events []*types.Event
}

func (r *recordingSink) Send(userID string, event *types.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) all() []*types.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*types.Event(nil), r.events...)
}

func (r *recordingSink) eventTypes() []string {
	var out []string
	for _, ev := range r.all() {
		out = append(out, ev.Type)
	}
	return out
}

const questionsJSON = `{
  "questions": [
    {"id": "q1", "question": "What stops a recursive call?", "options": ["A", "B", "C", "D"], "correct_answer": "The base case"},
    {"id": "q2", "question": "What grows with each call?", "options": ["A", "B", "C", "D"], "correct_answer": "The call stack"},
    {"id": "q3", "question": "Which form reuses the frame?", "options": ["A", "B", "C", "D"], "correct_answer": "Tail recursion"}
  ]
}`

func echoCompleter() *fakeCompleter {
	return &fakeCompleter{respond: func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "multiple choice questions"):
			return "```json\n" + questionsJSON + "\n```", nil
		case strings.Contains(prompt, "casual message"):
			return "Hey! How can I help?", nil
		case strings.Contains(prompt, "encouraging paragraph"):
			return "Nice work, review the call stack.", nil
		default:
			return "Recursion is a function calling itself...", nil
		}
	}}
}

func newTestMachine(completer *fakeCompleter) (*Machine, *store.MemoryStore, *recordingSink) {
	st := store.NewMemoryStore()
	sink := &recordingSink{}
	m := NewMachine(st, completer, sink, logger.NewNop())
	return m, st, sink
}

func TestHandle_CasualMessage(t *testing.T) {
	m, st, sink := newTestMachine(echoCompleter())
	ctx := context.Background()

	m.Handle(ctx, "alice", &types.ClientMessage{Type: types.MessageTypeMessage, Content: "hi there"})

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, types.EventTypeMessage, events[0].Type)
	assert.Equal(t, "Hey! How can I help?", events[0].Content)

	// Casual inputs never write a conversation record or offer a test.
	records, err := st.Conversations(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestHandle_LessonFlow(t *testing.T) {
	m, st, sink := newTestMachine(echoCompleter())
	ctx := context.Background()

	m.Handle(ctx, "alice", &types.ClientMessage{Type: types.MessageTypeMessage, Content: "teach me about recursion"})

	require.Equal(t, []string{
		types.EventTypeTyping,
		types.EventTypeMessage,
		types.EventTypeAssessmentOffer,
	}, sink.eventTypes())

	events := sink.all()
	assert.Equal(t, "Thinking...", events[0].Content)
	assert.Equal(t, "Recursion is a function calling itself...", events[1].Content)
	assert.Equal(t, "recursion", events[2].Topic)
	assert.Equal(t, "Would you like to take a quick test?", events[2].Content)

	records, err := st.Conversations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "teach me about recursion", records[0].Topic)
	assert.Equal(t, "alice", records[0].UserID)
}

func TestHandle_CasualTokenSuppressesOffer(t *testing.T) {
	m, st, sink := newTestMachine(echoCompleter())
	ctx := context.Background()

	// Four words, so not casual, but the greeting still suppresses the offer.
	m.Handle(ctx, "alice", &types.ClientMessage{Type: types.MessageTypeChatMessage, Message: "hello explain neural networks please"})

	assert.Equal(t, []string{types.EventTypeTyping, types.EventTypeMessage}, sink.eventTypes())

	records, err := st.Conversations(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestHandle_LongTitleTruncated(t *testing.T) {
	m, st, _ := newTestMachine(echoCompleter())
	ctx := context.Background()

	long := strings.Repeat("a", 60)
	m.Handle(ctx, "alice", &types.ClientMessage{Type: types.MessageTypeStartLesson, Topic: long})

	records, err := st.Conversations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, strings.Repeat("a", 50)+"...", records[0].Title)
	assert.Equal(t, long, records[0].Topic)
}

func TestHandle_CompletionFailureDegradesToApology(t *testing.T) {
	failing := &fakeCompleter{respond: func(string) (string, error) {
		return "", llm.ErrCompletionUnavailable
	}}
	m, _, sink := newTestMachine(failing)

	m.Handle(context.Background(), "alice", &types.ClientMessage{Type: types.MessageTypeMessage, Content: "explain gravity"})

	events := sink.all()
	require.Equal(t, []string{
		types.EventTypeTyping,
		types.EventTypeMessage,
		types.EventTypeAssessmentOffer,
	}, sink.eventTypes())
	assert.Equal(t, llm.Apology, events[1].Content)
}

func TestHandle_StartAssessment(t *testing.T) {
	m, st, sink := newTestMachine(echoCompleter())
	ctx := context.Background()

	m.Handle(ctx, "alice", &types.ClientMessage{Type: types.MessageTypeStartAssessment, Topic: "recursion"})

	events := sink.all()
	require.Len(t, events, 1)
	require.Equal(t, types.EventTypeAssessment, events[0].Type)
	require.NotNil(t, events[0].Assessment)

	sent := events[0].Assessment
	require.Len(t, sent.Questions, 3)
	for _, q := range sent.Questions {
		assert.Empty(t, q.CorrectAnswer, "client payload must not carry correct answers")
	}

	// The stored copy keeps the answers for grading.
	stored, err := st.AssessmentByID(ctx, sent.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "The base case", stored.Questions[0].CorrectAnswer)
}

func TestHandle_StartAssessmentMalformedJSON(t *testing.T) {
	bad := &fakeCompleter{respond: func(string) (string, error) {
		return "Here are some questions for you!", nil
	}}
	m, _, sink := newTestMachine(bad)

	m.Handle(context.Background(), "alice", &types.ClientMessage{Type: types.MessageTypeStartAssessment, Topic: "recursion"})

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, types.EventTypeError, events[0].Type)
	assert.Equal(t, "Failed to create assessment", events[0].Content)
}

func TestHandle_StartAssessmentEmptyQuestions(t *testing.T) {
	empty := &fakeCompleter{respond: func(string) (string, error) {
		return `{"questions": []}`, nil
	}}
	m, _, sink := newTestMachine(empty)

	m.Handle(context.Background(), "alice", &types.ClientMessage{Type: types.MessageTypeStartAssessment, Topic: "recursion"})

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, types.EventTypeError, events[0].Type)
}

func TestHandle_SubmitAssessment(t *testing.T) {
	m, st, sink := newTestMachine(echoCompleter())
	ctx := context.Background()

	m.Handle(ctx, "alice", &types.ClientMessage{Type: types.MessageTypeStartAssessment, Topic: "recursion"})
	assessmentID := sink.all()[0].Assessment.ID

	m.Handle(ctx, "alice", &types.ClientMessage{
		Type:         types.MessageTypeSubmitAssessment,
		AssessmentID: assessmentID,
		Answers: map[string]string{
			"q1": "The base case",
			"q2": "The call stack",
			"q3": "wrong",
		},
	})

	events := sink.all()
	require.Len(t, events, 2)
	require.Equal(t, types.EventTypeAssessmentResult, events[1].Type)

	result := events[1].Result
	require.NotNil(t, result)
	assert.Equal(t, 66.7, result.Score)
	assert.Equal(t, types.PassStatusImprove, result.PassStatus)
	assert.Equal(t, 2, result.CorrectAnswers)
	assert.Equal(t, 3, result.TotalQuestions)
	assert.Equal(t, "Nice work, review the call stack.", result.OverallFeedback)

	// Result written exactly once.
	saved, err := st.ResultsByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, 66.7, saved[0].Score)
}

func TestHandle_SubmitUnknownAssessment(t *testing.T) {
	m, st, sink := newTestMachine(echoCompleter())
	ctx := context.Background()

	m.Handle(ctx, "alice", &types.ClientMessage{
		Type:         types.MessageTypeSubmitAssessment,
		AssessmentID: "missing",
		Answers:      map[string]string{"q1": "A"},
	})

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, types.EventTypeError, events[0].Type)
	assert.Equal(t, "Assessment not found", events[0].Content)

	saved, err := st.ResultsByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestHandle_SubmitFeedbackFallback(t *testing.T) {
	completer := echoCompleter()
	m, _, sink := newTestMachine(completer)
	ctx := context.Background()

	m.Handle(ctx, "alice", &types.ClientMessage{Type: types.MessageTypeStartAssessment, Topic: "recursion"})
	assessmentID := sink.all()[0].Assessment.ID

	// Feedback call fails; grading still completes with the fixed line.
	completer.respond = func(prompt string) (string, error) {
		return "", llm.ErrCompletionUnavailable
	}
	m.Handle(ctx, "alice", &types.ClientMessage{
		Type:         types.MessageTypeSubmitAssessment,
		AssessmentID: assessmentID,
		Answers:      map[string]string{"q1": "The base case"},
	})

	result := sink.all()[1].Result
	require.NotNil(t, result)
	assert.Equal(t, 33.3, result.Score)
	assert.Equal(t, types.PassStatusRetake, result.PassStatus)
	assert.Equal(t, "Assessment completed.", result.OverallFeedback)
}

func TestHandle_UnsupportedMessage(t *testing.T) {
	m, _, sink := newTestMachine(echoCompleter())

	tests := []*types.ClientMessage{
		{Type: "dance"},
		{Type: types.MessageTypeStartLesson},
		{Type: types.MessageTypeStartAssessment},
		{Type: types.MessageTypeSubmitAssessment, AssessmentID: "a1"},
	}
	for _, msg := range tests {
		m.Handle(context.Background(), "alice", msg)
	}

	events := sink.all()
	require.Len(t, events, len(tests))
	for _, ev := range events {
		assert.Equal(t, types.EventTypeError, ev.Type)
		assert.Equal(t, "Unsupported message type or missing data.", ev.Content)
	}
}

func TestHandle_EndToEndScenario(t *testing.T) {
	m, _, sink := newTestMachine(echoCompleter())
	ctx := context.Background()

	m.Handle(ctx, "alice", &types.ClientMessage{Type: types.MessageTypeMessage, Content: "teach me about recursion"})
	m.Handle(ctx, "alice", &types.ClientMessage{Type: types.MessageTypeStartAssessment, Topic: "recursion"})

	events := sink.all()
	require.Equal(t, []string{
		types.EventTypeTyping,
		types.EventTypeMessage,
		types.EventTypeAssessmentOffer,
		types.EventTypeAssessment,
	}, sink.eventTypes())
	assert.Equal(t, "recursion", events[2].Topic)

	m.Handle(ctx, "alice", &types.ClientMessage{
		Type:         types.MessageTypeSubmitAssessment,
		AssessmentID: events[3].Assessment.ID,
		Answers:      map[string]string{"q1": "The base case", "q2": "no", "q3": "no"},
	})

	final := sink.all()
	require.Len(t, final, 5)
	result := final[4].Result
	require.NotNil(t, result)
	assert.Equal(t, 33.3, result.Score)
	assert.Equal(t, types.PassStatusRetake, result.PassStatus)
}
