package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tutorboard/pkg/types"
)

func threeQuestionAssessment() *types.Assessment {
	return &types.Assessment{
		ID:    "a1",
		Topic: "recursion",
		Questions: []types.Question{
			{ID: "q1", Question: "What stops a recursive call?", Options: []string{"A", "B", "C", "D"}, CorrectAnswer: "The base case"},
			{ID: "q2", Question: "What grows with each call?", Options: []string{"A", "B", "C", "D"}, CorrectAnswer: "The call stack"},
			{ID: "q3", Question: "Which form reuses the frame?", Options: []string{"A", "B", "C", "D"}, CorrectAnswer: "Tail recursion"},
		},
	}
}

func TestGrade_AllCorrect(t *testing.T) {
	result := Grade(threeQuestionAssessment(), map[string]string{
		"q1": "The base case",
		"q2": "The call stack",
		"q3": "Tail recursion",
	})

	assert.Equal(t, 100.0, result.Score)
	assert.Equal(t, types.PassStatusPass, result.PassStatus)
	assert.Equal(t, 3, result.CorrectAnswers)
	assert.Equal(t, 3, result.TotalQuestions)
}

func TestGrade_TwoOfThreeImproves(t *testing.T) {
	result := Grade(threeQuestionAssessment(), map[string]string{
		"q1": "The base case",
		"q2": "The call stack",
		"q3": "Head recursion",
	})

	assert.Equal(t, 66.7, result.Score)
	assert.Equal(t, types.PassStatusImprove, result.PassStatus)
	assert.Equal(t, 2, result.CorrectAnswers)
}

func TestGrade_OneOfThreeRetakes(t *testing.T) {
	result := Grade(threeQuestionAssessment(), map[string]string{
		"q1": "The base case",
		"q2": "wrong",
		"q3": "also wrong",
	})

	assert.Equal(t, 33.3, result.Score)
	assert.Equal(t, types.PassStatusRetake, result.PassStatus)
}

func TestGrade_MissingAnswerIsIncorrect(t *testing.T) {
	result := Grade(threeQuestionAssessment(), map[string]string{
		"q1": "The base case",
	})

	assert.Equal(t, 1, result.CorrectAnswers)
	assert.Len(t, result.Feedback, 3)
	assert.Equal(t, noAnswer, result.Feedback[1].UserAnswer)
	assert.False(t, result.Feedback[1].IsCorrect)
	assert.Equal(t, 0, result.Feedback[1].Score)
}

func TestGrade_ExactMatchOnly(t *testing.T) {
	// Case and whitespace differences do not count as correct.
	result := Grade(threeQuestionAssessment(), map[string]string{
		"q1": "the base case",
		"q2": " The call stack",
		"q3": "Tail recursion",
	})

	assert.Equal(t, 1, result.CorrectAnswers)
	assert.Equal(t, 33.3, result.Score)
}

func TestPassStatusThresholds(t *testing.T) {
	assert.Equal(t, types.PassStatusPass, passStatus(80))
	assert.Equal(t, types.PassStatusImprove, passStatus(79.9))
	assert.Equal(t, types.PassStatusImprove, passStatus(50))
	assert.Equal(t, types.PassStatusRetake, passStatus(49.9))
	assert.Equal(t, types.PassStatusRetake, passStatus(0))
}
