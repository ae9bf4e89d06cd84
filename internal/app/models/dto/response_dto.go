package dto

import (
	"time"

	"github.com/yigit/classroom/internal/app/models"
)

// AnswerRequest is one answer in a submission. Choice questions use optionIds,
// every other type uses text.
type AnswerRequest struct {
	QuestionID string   `json:"questionId" binding:"required" example:"q1"`
	Text       string   `json:"text" binding:"max=20000"`
	OptionIDs  []string `json:"optionIds"`
}

// SubmitFormRequest submits answers to a form
type SubmitFormRequest struct {
	Answers []AnswerRequest `json:"answers" binding:"dive"`
}

// AttemptResponse describes an open attempt. Deadline is set for timed forms.
type AttemptResponse struct {
	FormID           int64      `json:"formId" example:"12"`
	StartedAt        time.Time  `json:"startedAt"`
	Deadline         *time.Time `json:"deadline,omitempty"`
	TimeLimitMinutes int        `json:"timeLimitMinutes,omitempty" example:"30"`
}

// ToAnswers converts request answers to models
func (r *SubmitFormRequest) ToAnswers() []models.Answer {
	out := make([]models.Answer, 0, len(r.Answers))
	for _, a := range r.Answers {
		out = append(out, models.Answer{QuestionID: a.QuestionID, Text: a.Text, OptionIDs: a.OptionIDs})
	}
	return out
}

// ManualGradeRequest scores one answer by hand
type ManualGradeRequest struct {
	QuestionID string   `json:"questionId" binding:"required" example:"q4"`
	Points     *float64 `json:"points" binding:"required,gte=0" example:"3.5"`
	Feedback   string   `json:"feedback" binding:"max=5000"`
}

// FormResponseDTO is a response with its respondent. For the respondent's own view,
// scores are zeroed until scoreVisible and the answer key is attached only when
// the form shows correct answers.
type FormResponseDTO struct {
	models.Response
	Respondent   *UserSummary      `json:"respondent,omitempty"`
	ScoreVisible bool              `json:"scoreVisible"`
	AnswerKey    []models.Question `json:"answerKey,omitempty"`
}

// ReleaseScoresResponse reports how many responses were released
type ReleaseScoresResponse struct {
	Released int `json:"released" example:"24"`
}
