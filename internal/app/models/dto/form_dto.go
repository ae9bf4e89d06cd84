package dto

import (
	"time"

	"github.com/yigit/classroom/internal/app/models"
)

// QuestionRequest is one question of a form definition. Omitting partialCredit
// on a CHECKBOXES question applies the server's grading default.
type QuestionRequest struct {
	ID               string                  `json:"id" example:"q1"`
	Type             models.QuestionType     `json:"type" example:"MULTIPLE_CHOICE"`
	Title            string                  `json:"title" example:"2 + 2 = ?"`
	Description      string                  `json:"description"`
	Required         bool                    `json:"required"`
	Points           float64                 `json:"points" example:"2"`
	Options          []models.QuestionOption `json:"options"`
	CorrectOptionIDs []string                `json:"correctOptionIds"`
	AcceptedAnswers  []string                `json:"acceptedAnswers"`
	CaseSensitive    bool                    `json:"caseSensitive"`
	PartialCredit    *bool                   `json:"partialCredit"`
	ScaleMin         int                     `json:"scaleMin"`
	ScaleMax         int                     `json:"scaleMax"`
}

// FormRequest creates or replaces a form definition
type FormRequest struct {
	Title       string              `json:"title" binding:"required,max=200" example:"Midterm"`
	Description string              `json:"description" binding:"max=5000"`
	Questions   []QuestionRequest   `json:"questions"`
	Settings    models.FormSettings `json:"settings"`
}

// ToQuestions converts request questions to models
func (r *FormRequest) ToQuestions(defaultPartialCredit bool) []models.Question {
	out := make([]models.Question, 0, len(r.Questions))
	for _, q := range r.Questions {
		partial := defaultPartialCredit && q.Type == models.QuestionCheckboxes
		if q.PartialCredit != nil {
			partial = *q.PartialCredit
		}
		out = append(out, models.Question{
			ID:               q.ID,
			Type:             q.Type,
			Title:            q.Title,
			Description:      q.Description,
			Required:         q.Required,
			Points:           q.Points,
			Options:          q.Options,
			CorrectOptionIDs: q.CorrectOptionIDs,
			AcceptedAnswers:  q.AcceptedAnswers,
			CaseSensitive:    q.CaseSensitive,
			PartialCredit:    partial,
			ScaleMin:         q.ScaleMin,
			ScaleMax:         q.ScaleMax,
		})
	}
	return out
}

// FormResponse is a form with its computed total
type FormResponse struct {
	models.Form
	TotalPoints float64 `json:"totalPoints" example:"20"`
}

// FormSummary is a form in a list
type FormSummary struct {
	ID            int64      `json:"id"`
	ClassID       int64      `json:"classId"`
	Title         string     `json:"title"`
	Published     bool       `json:"published"`
	IsQuiz        bool       `json:"isQuiz"`
	QuestionCount int        `json:"questionCount"`
	TotalPoints   float64    `json:"totalPoints"`
	OpensAt       *time.Time `json:"opensAt,omitempty"`
	ClosesAt      *time.Time `json:"closesAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// NewFormSummary maps a form for list views
func NewFormSummary(f *models.Form, totalPoints float64) FormSummary {
	return FormSummary{
		ID:            f.ID,
		ClassID:       f.ClassID,
		Title:         f.Title,
		Published:     f.Published,
		IsQuiz:        f.Settings.IsQuiz,
		QuestionCount: len(f.Questions),
		TotalPoints:   totalPoints,
		OpensAt:       f.Settings.OpensAt,
		ClosesAt:      f.Settings.ClosesAt,
		CreatedAt:     f.CreatedAt,
	}
}
