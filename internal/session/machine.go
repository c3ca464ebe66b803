// Package session implements the tutoring state machine: it consumes one
// inbound message at a time per user, drives the lesson, assessment-offer,
// assessment and grading lifecycle, and emits outbound events through the
// connection registry.
package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"tutorboard/internal/llm"
	"tutorboard/internal/logger"
	"tutorboard/internal/topic"
	"tutorboard/pkg/interfaces"
	"tutorboard/pkg/types"
)

// Fixed client-facing strings. These are part of the wire contract.
const (
	typingContent      = "Thinking..."
	offerContent       = "Would you like to take a quick test?"
	unsupportedContent = "Unsupported message type or missing data."
	notFoundContent    = "Assessment not found"
	genFailedContent   = "Failed to create assessment"
	submitFailContent  = "Failed to process assessment"
	fallbackFeedback   = "Assessment completed."
)

// Machine handles inbound messages for all users. It holds no per-user
// state of its own; everything session-scoped lives in the store, so the
// machine is safe for concurrent use across users.
type Machine struct {
	store     interfaces.SessionStore
	completer interfaces.Completer
	events    interfaces.EventSink
	log       *logger.Logger
	now       func() time.Time
}

// NewMachine wires the state machine to its collaborators.
func NewMachine(store interfaces.SessionStore, completer interfaces.Completer, events interfaces.EventSink, log *logger.Logger) *Machine {
	return &Machine{
		store:     store,
		completer: completer,
		events:    events,
		log:       log,
		now:       time.Now,
	}
}

// Handle processes one inbound message for a user. It never propagates an
// error to the connection loop: failures become error events or logged
// degradations, and only a transport disconnect ends a session.
func (m *Machine) Handle(ctx context.Context, userID string, msg *types.ClientMessage) {
	if err := msg.Validate(); err != nil {
		m.sendError(userID, unsupportedContent)
		return
	}

	switch msg.Type {
	case types.MessageTypeStartLesson, types.MessageTypeChatMessage, types.MessageTypeMessage:
		m.handleLesson(ctx, userID, msg.Text())
	case types.MessageTypeStartAssessment:
		m.handleStartAssessment(ctx, userID, msg.Topic)
	case types.MessageTypeSubmitAssessment:
		m.handleSubmit(ctx, userID, msg.AssessmentID, msg.Answers)
	}
}

// handleLesson answers free text: a casual reply for chit-chat, otherwise a
// lesson followed by an assessment offer for the extracted topic.
func (m *Machine) handleLesson(ctx context.Context, userID, text string) {
	casual := topic.IsCasual(text)

	// Casual inputs never produce a conversation record.
	if !casual {
		rec := types.ConversationRecord{
			ID:        uuid.New().String(),
			Title:     types.ConversationTitle(text),
			Topic:     text,
			Timestamp: m.now().Unix(),
			UserID:    userID,
		}
		if err := m.store.AppendConversation(ctx, userID, rec); err != nil {
			m.log.Warn("conversation record skipped", "user_id", userID, "error", err)
		}
	}

	if casual {
		m.send(userID, &types.Event{
			Type:    types.EventTypeMessage,
			Content: m.complete(ctx, llm.CasualPrompt(text)),
		})
		return
	}

	m.send(userID, &types.Event{Type: types.EventTypeTyping, Content: typingContent})
	m.send(userID, &types.Event{
		Type:    types.EventTypeMessage,
		Content: m.complete(ctx, llm.LessonPrompt(text)),
	})

	// A greeting mixed into a longer request still suppresses the offer,
	// even though the request itself was answered as a lesson.
	if !topic.HasCasualToken(text) {
		m.send(userID, &types.Event{
			Type:    types.EventTypeAssessmentOffer,
			Topic:   topic.Extract(text),
			Content: offerContent,
		})
	}
}

// handleStartAssessment generates three multiple-choice questions for the
// topic and atomically replaces any prior assessment for the user+topic.
func (m *Machine) handleStartAssessment(ctx context.Context, userID, topicName string) {
	raw, err := m.completer.Complete(ctx, llm.AssessmentPrompt(topicName))
	if err != nil {
		m.log.Warn("assessment generation failed", "user_id", userID, "topic", topicName, "error", err)
		m.sendError(userID, genFailedContent)
		return
	}

	var payload struct {
		Questions []types.Question `json:"questions"`
	}
	if err := json.Unmarshal([]byte(llm.StripFence(raw)), &payload); err != nil || len(payload.Questions) == 0 {
		m.log.Warn("assessment generation failed", "user_id", userID, "topic", topicName,
			"error", ErrAssessmentGenerationFailed)
		m.sendError(userID, genFailedContent)
		return
	}

	assessment := &types.Assessment{
		ID:        uuid.New().String(),
		Topic:     topicName,
		Questions: payload.Questions,
		Timestamp: m.now().Unix(),
	}
	if err := m.store.ReplaceAssessment(ctx, userID, assessment); err != nil {
		m.log.Error("assessment not persisted", "user_id", userID, "topic", topicName, "error", err)
		m.sendError(userID, genFailedContent)
		return
	}

	// The client payload never carries correct answers.
	m.send(userID, &types.Event{
		Type:       types.EventTypeAssessment,
		Assessment: assessment.ClientView(),
	})
}

// handleSubmit grades a submission by exact matching and attaches prose
// feedback from the model. The numeric score never comes from the model.
func (m *Machine) handleSubmit(ctx context.Context, userID, assessmentID string, answers map[string]string) {
	assessment, err := m.store.AssessmentByID(ctx, assessmentID)
	if err != nil {
		m.log.Error("assessment lookup failed", "user_id", userID, "assessment_id", assessmentID, "error", err)
		m.sendError(userID, submitFailContent)
		return
	}
	if assessment == nil {
		m.log.Info("submission for unknown assessment", "user_id", userID,
			"assessment_id", assessmentID, "error", ErrAssessmentNotFound)
		m.sendError(userID, notFoundContent)
		return
	}

	result := Grade(assessment, answers)
	result.Timestamp = m.now().Unix()
	result.OverallFeedback = m.overallFeedback(ctx, assessment.Topic, result)

	if err := m.store.SaveResult(ctx, userID, assessment.ID, result); err != nil {
		// The grade is already computed; deliver it even if persistence
		// degraded, so the user is not left without an outcome.
		m.log.Warn("assessment result not persisted", "user_id", userID,
			"assessment_id", assessment.ID, "error", err)
	}

	m.send(userID, &types.Event{Type: types.EventTypeAssessmentResult, Result: result})
}

// overallFeedback asks the model for supplementary prose about a graded
// result, substituting a fixed line when the call fails.
func (m *Machine) overallFeedback(ctx context.Context, topicName string, result *types.AssessmentResult) string {
	summaries := make([]llm.FeedbackSummary, len(result.Feedback))
	for i, f := range result.Feedback {
		summaries[i] = llm.FeedbackSummary{
			Question:      f.Question,
			UserAnswer:    f.UserAnswer,
			CorrectAnswer: f.CorrectAnswer,
			IsCorrect:     f.IsCorrect,
		}
	}
	feedback, err := m.completer.Complete(ctx, llm.FeedbackPrompt(topicName, result.Score, summaries))
	if err != nil {
		m.log.Warn("feedback generation failed", "topic", topicName, "error", err)
		return fallbackFeedback
	}
	return feedback
}

// complete runs a completion and substitutes the fixed apology on failure,
// so lesson flow never aborts on a model error.
func (m *Machine) complete(ctx context.Context, prompt string) string {
	content, err := m.completer.Complete(ctx, prompt)
	if err != nil {
		m.log.Warn("completion degraded to apology", "error", err)
		return llm.Apology
	}
	return content
}

func (m *Machine) send(userID string, event *types.Event) {
	m.events.Send(userID, event)
}

func (m *Machine) sendError(userID, content string) {
	m.send(userID, &types.Event{Type: types.EventTypeError, Content: content})
}
