package models

// CompletionEvent is the quiz/game completion payload consumed from the quiz
// delivery collaborator. Score is on a 0-100 scale.
type CompletionEvent struct {
	UserID           string  `json:"user_id" validate:"required"`
	CorrectAnswers   int64   `json:"correct_answers" validate:"min=0"`
	TotalQuestions   int64   `json:"total_questions" validate:"min=0"`
	Score            float64 `json:"score" validate:"min=0,max=100"`
	TimeSpentSeconds int64   `json:"time_spent_seconds" validate:"min=0"`
	Category         string  `json:"category,omitempty"`
	IsExam           bool    `json:"is_exam,omitempty"`
	ExamPassed       bool    `json:"exam_passed,omitempty"`
}

// SkillSignal is the (possibly absent) profile produced by the external skill
// assessment collaborator. The challenge generator must degrade gracefully when
// it is nil or thin.
type SkillSignal struct {
	OverallSkillLevel      float64  `json:"overall_skill_level"` // 0-1
	ConfidenceLevel        float64  `json:"confidence_level"`    // 0-1
	TotalPracticeQuestions int64    `json:"total_practice_questions"`
	WeakAreas              []string `json:"weak_areas"`
}
