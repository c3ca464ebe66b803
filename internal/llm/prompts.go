package llm

import (
	"fmt"
	"strings"
)

// Apology is substituted by callers whenever a completion call fails, so
// session flow never aborts on a model error.
const Apology = "Sorry, I couldn't generate a response at the moment."

// CasualPrompt asks for a short conversational reply to a greeting or
// acknowledgement.
func CasualPrompt(text string) string {
	return fmt.Sprintf("Respond briefly and friendly to this casual message: %s. Keep it conversational and helpful.", text)
}

// LessonPrompt asks the model to teach a topic in five steps, or answer a
// general question directly.
func LessonPrompt(request string) string {
	return fmt.Sprintf(`Respond to this user request: %q

If it's asking to learn about a topic, teach it in 5 clear steps:
- Basic definition and concept
- Key ideas and rules
- Process and methodology
- 2 concrete examples
- Significance and applications

If it's a general question, provide a helpful and educational answer.
Keep responses clear and educational.`, request)
}

// AssessmentPrompt instructs the model to return exactly three multiple
// choice questions about the topic as JSON.
func AssessmentPrompt(topic string) string {
	return fmt.Sprintf(`Create 3 multiple choice questions about %q.

Each question should test understanding of %s. Return JSON format:

{
  "questions": [
    {
      "id": "q1",
      "question": "[specific question about %s]",
      "options": ["[real option A]", "[real option B]", "[real option C]", "[real option D]"],
      "correct_answer": "[correct option text]"
    },
    {
      "id": "q2",
      "question": "[different question about %s]",
      "options": ["[real option A]", "[real option B]", "[real option C]", "[real option D]"],
      "correct_answer": "[correct option text]"
    },
    {
      "id": "q3",
      "question": "[third question about %s]",
      "options": ["[real option A]", "[real option B]", "[real option C]", "[real option D]"],
      "correct_answer": "[correct option text]"
    }
  ]
}

Make questions specific and educational about %s.`, topic, topic, topic, topic, topic, topic)
}

// FeedbackSummary describes one graded question for the feedback prompt.
type FeedbackSummary struct {
	Question      string
	UserAnswer    string
	CorrectAnswer string
	IsCorrect     bool
}

// FeedbackPrompt asks for prose feedback on a graded assessment. The score
// is computed locally by exact matching; the model only supplies
// encouragement and study suggestions.
func FeedbackPrompt(topic string, score float64, summaries []FeedbackSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A student scored %.1f%% on a quiz about %q. The graded questions:\n", score, topic)
	for _, s := range summaries {
		outcome := "incorrect"
		if s.IsCorrect {
			outcome = "correct"
		}
		fmt.Fprintf(&b, "\nQuestion: %s\nCorrect answer: %s\nStudent answer: %s (%s)\n",
			s.Question, s.CorrectAnswer, s.UserAnswer, outcome)
	}
	b.WriteString(`
Write a short, encouraging paragraph of feedback about the student's performance.
Mention what they understood well and what to review. Plain text only, no JSON,
do not restate the score.`)
	return b.String()
}

// StripFence removes a Markdown code-fence wrapper from a model response,
// with or without a language tag. Text without a fence passes through.
func StripFence(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "```json"):
		s = strings.TrimPrefix(s, "```json")
	case strings.HasPrefix(s, "```"):
		s = strings.TrimPrefix(s, "```")
	default:
		return s
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
