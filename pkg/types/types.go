package types

// Inbound message types accepted on the tutoring WebSocket.
// start_lesson, chat_message and message are handled identically; they differ
// only in which field carries the text payload.
const (
	MessageTypeStartLesson      = "start_lesson"
	MessageTypeChatMessage      = "chat_message"
	MessageTypeMessage          = "message"
	MessageTypeStartAssessment  = "start_assessment"
	MessageTypeSubmitAssessment = "submit_assessment"
)

// Outbound event types pushed to the client.
const (
	EventTypeTyping           = "typing"
	EventTypeMessage          = "message"
	EventTypeAssessmentOffer  = "assessment_offer"
	EventTypeAssessment       = "assessment"
	EventTypeAssessmentResult = "assessment_result"
	EventTypeError            = "error"
)

// Pass status buckets derived from the assessment score.
const (
	PassStatusPass    = "pass"
	PassStatusImprove = "improve"
	PassStatusRetake  = "retake"
)

// ClientMessage is a single inbound JSON frame from the tutoring client.
type ClientMessage struct {
	Type         string            `json:"type"`
	Topic        string            `json:"topic,omitempty"`
	Message      string            `json:"message,omitempty"`
	Content      string            `json:"content,omitempty"`
	AssessmentID string            `json:"assessment_id,omitempty"`
	Answers      map[string]string `json:"answers,omitempty"`
}

// Text returns the free-text payload regardless of which field the client
// used to carry it.
func (m *ClientMessage) Text() string {
	if m.Topic != "" {
		return m.Topic
	}
	if m.Message != "" {
		return m.Message
	}
	return m.Content
}

// Event is a single outbound JSON frame pushed to the tutoring client.
// At most one of the optional payload fields is set depending on Type.
type Event struct {
	Type       string            `json:"type"`
	Content    string            `json:"content,omitempty"`
	Topic      string            `json:"topic,omitempty"`
	Assessment *Assessment       `json:"assessment,omitempty"`
	Result     *AssessmentResult `json:"result,omitempty"`
}

// ConversationRecord is one entry in a user's recent conversation list.
// Records are prepended newest-first and never updated in place.
type ConversationRecord struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Topic     string      `json:"topic"`
	Timestamp int64       `json:"timestamp"`
	UserID    string      `json:"user_id"`
	History   []ChatEntry `json:"chat_history,omitempty"`
}

// ChatEntry is one turn of stored chat history attached to a conversation
// by the read-side projection. The session backend never writes these.
type ChatEntry struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// Question is a single multiple-choice question within an assessment.
// CorrectAnswer is persisted but stripped before the question reaches a
// client, hence the omitempty tag.
type Question struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
}

// Assessment is a generated question set tied to a user and topic.
type Assessment struct {
	ID        string     `json:"id"`
	Topic     string     `json:"topic"`
	Questions []Question `json:"questions"`
	Timestamp int64      `json:"timestamp"`
}

// ClientView returns a copy of the assessment with correct answers removed.
// Sending answers alongside questions would let the client grade itself.
func (a *Assessment) ClientView() *Assessment {
	view := &Assessment{
		ID:        a.ID,
		Topic:     a.Topic,
		Timestamp: a.Timestamp,
		Questions: make([]Question, len(a.Questions)),
	}
	for i, q := range a.Questions {
		view.Questions[i] = Question{
			ID:       q.ID,
			Question: q.Question,
			Options:  q.Options,
		}
	}
	return view
}

// QuestionFeedback is the per-question breakdown in a graded result.
type QuestionFeedback struct {
	Question      string `json:"question"`
	UserAnswer    string `json:"user_answer"`
	CorrectAnswer string `json:"correct_answer"`
	IsCorrect     bool   `json:"is_correct"`
	Score         int    `json:"score"`
}

// AssessmentResult is the graded outcome of a submitted assessment,
// written exactly once per submission.
type AssessmentResult struct {
	Score           float64            `json:"score"`
	PassStatus      string             `json:"pass_status"`
	CorrectAnswers  int                `json:"correct_answers"`
	TotalQuestions  int                `json:"total_questions"`
	Feedback        []QuestionFeedback `json:"feedback"`
	OverallFeedback string             `json:"overall_feedback"`
	Topic           string             `json:"topic"`
	Timestamp       int64              `json:"timestamp"`
}

// ConversationTitle derives a list title from a topic, truncated to 50
// characters with an ellipsis when longer.
func ConversationTitle(topic string) string {
	runes := []rune(topic)
	if len(runes) > 50 {
		return string(runes[:50]) + "..."
	}
	return topic
}
