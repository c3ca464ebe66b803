package session

import (
	"math"

	"tutorboard/pkg/types"
)

// noAnswer marks questions the client left out of the submission.
const noAnswer = "No answer provided"

// Grade scores a submission against its assessment. Correctness is exact
// string comparison between the submitted answer and the stored correct
// answer; the score is the percentage of matches rounded to one decimal.
// This is the sole source of the numeric score.
func Grade(a *types.Assessment, answers map[string]string) *types.AssessmentResult {
	total := len(a.Questions)
	correct := 0
	feedback := make([]types.QuestionFeedback, 0, total)

	for _, q := range a.Questions {
		userAnswer, answered := answers[q.ID]
		if !answered {
			userAnswer = noAnswer
		}
		isCorrect := answered && userAnswer == q.CorrectAnswer
		points := 0
		if isCorrect {
			correct++
			points = 1
		}
		feedback = append(feedback, types.QuestionFeedback{
			Question:      q.Question,
			UserAnswer:    userAnswer,
			CorrectAnswer: q.CorrectAnswer,
			IsCorrect:     isCorrect,
			Score:         points,
		})
	}

	var score float64
	if total > 0 {
		score = round1(float64(correct) / float64(total) * 100)
	}

	return &types.AssessmentResult{
		Score:          score,
		PassStatus:     passStatus(score),
		CorrectAnswers: correct,
		TotalQuestions: total,
		Feedback:       feedback,
		Topic:          a.Topic,
	}
}

// passStatus maps a score to its outcome bucket.
func passStatus(score float64) string {
	switch {
	case score >= 80:
		return types.PassStatusPass
	case score >= 50:
		return types.PassStatusImprove
	default:
		return types.PassStatusRetake
	}
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
