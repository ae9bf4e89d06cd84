package grading

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/pkg/apperrors"
)

const (
	defaultScaleMin = 1
	defaultScaleMax = 5
)

// Normalize fills defaults on a form before validation: missing question and option ids,
// TRUE_FALSE options, linear scale bounds and the score release mode.
func Normalize(form *models.Form) {
	if form.Settings.ReleaseScores == "" {
		form.Settings.ReleaseScores = models.ReleaseImmediately
	}
	for i := range form.Questions {
		q := &form.Questions[i]
		q.Title = strings.TrimSpace(q.Title)
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		if q.Type == models.QuestionTrueFalse && len(q.Options) == 0 {
			q.Options = []models.QuestionOption{
				{ID: "true", Label: "True"},
				{ID: "false", Label: "False"},
			}
		}
		for j := range q.Options {
			if q.Options[j].ID == "" {
				q.Options[j].ID = fmt.Sprintf("%s-%d", q.ID, j+1)
			}
		}
		if q.Type == models.QuestionLinearScale && q.ScaleMin == 0 && q.ScaleMax == 0 {
			q.ScaleMin, q.ScaleMax = defaultScaleMin, defaultScaleMax
		}
		if q.Type == models.QuestionLinearScale {
			q.Points = 0
		}
	}
}

// ValidateForm checks the structural rules of a form definition
func ValidateForm(form *models.Form) error {
	details := make(map[string]interface{})

	if strings.TrimSpace(form.Title) == "" {
		details["title"] = "title is required"
	}

	s := form.Settings
	if s.ReleaseScores != models.ReleaseImmediately && s.ReleaseScores != models.ReleaseAfterReview {
		details["settings.releaseScores"] = "must be IMMEDIATELY or AFTER_REVIEW"
	}
	if s.OpensAt != nil && s.ClosesAt != nil && !s.ClosesAt.After(*s.OpensAt) {
		details["settings.closesAt"] = "must be after opensAt"
	}
	if s.TimeLimitMinutes < 0 {
		details["settings.timeLimitMinutes"] = "must not be negative"
	}

	ids := make(map[string]struct{}, len(form.Questions))
	for i := range form.Questions {
		q := &form.Questions[i]
		prefix := fmt.Sprintf("questions[%d]", i)

		if _, dup := ids[q.ID]; dup {
			details[prefix+".id"] = "duplicate question id " + q.ID
		}
		ids[q.ID] = struct{}{}

		if !q.Type.IsValid() {
			details[prefix+".type"] = "unknown question type"
			continue
		}
		if q.Title == "" {
			details[prefix+".title"] = "title is required"
		}
		if q.Points < 0 {
			details[prefix+".points"] = "must not be negative"
		}

		if q.Type.IsChoice() {
			validateChoice(q, prefix, details)
		} else if len(q.Options) > 0 || len(q.CorrectOptionIDs) > 0 {
			details[prefix+".options"] = "only choice questions take options"
		}

		if q.Type == models.QuestionLinearScale && q.ScaleMin >= q.ScaleMax {
			details[prefix+".scaleMax"] = "must be greater than scaleMin"
		}
	}

	if len(details) > 0 {
		return apperrors.NewValidationError("invalid form definition", details)
	}
	return nil
}

func validateChoice(q *models.Question, prefix string, details map[string]interface{}) {
	if len(q.Options) < 2 {
		details[prefix+".options"] = "at least two options are required"
	}
	optionIDs := make(map[string]struct{}, len(q.Options))
	for _, o := range q.Options {
		if _, dup := optionIDs[o.ID]; dup {
			details[prefix+".options"] = "duplicate option id " + o.ID
		}
		optionIDs[o.ID] = struct{}{}
	}
	for _, id := range q.CorrectOptionIDs {
		if _, ok := optionIDs[id]; !ok {
			details[prefix+".correctOptionIds"] = "unknown option id " + id
		}
	}
	if q.Type.IsSingleChoice() && len(q.CorrectOptionIDs) > 1 {
		details[prefix+".correctOptionIds"] = "at most one correct option is allowed"
	}
}

// ValidateAnswers checks submitted answers against the form: every question id and
// option id must exist, single-choice questions take one option, scale values must be in
// range and required questions must be answered.
func ValidateAnswers(form *models.Form, answers []models.Answer) error {
	details := make(map[string]interface{})
	seen := make(map[string]struct{}, len(answers))

	for _, a := range answers {
		q, ok := form.Question(a.QuestionID)
		if !ok {
			details[a.QuestionID] = "unknown question"
			continue
		}
		if _, dup := seen[a.QuestionID]; dup {
			details[a.QuestionID] = "answered more than once"
			continue
		}
		seen[a.QuestionID] = struct{}{}

		if msg := checkAnswer(q, &a); msg != "" {
			details[a.QuestionID] = msg
		}
	}
	if len(details) > 0 {
		return apperrors.NewCustomError(apperrors.ErrInvalidAnswer, "invalid answers").WithDetails(details)
	}

	missing := make([]string, 0)
	for i := range form.Questions {
		q := &form.Questions[i]
		if !q.Required {
			continue
		}
		a, ok := findAnswer(answers, q.ID)
		if !ok || a.IsEmpty() {
			missing = append(missing, q.ID)
		}
	}
	if len(missing) > 0 {
		return apperrors.NewCustomError(apperrors.ErrMissingAnswer, "required questions were not answered").
			WithDetails(map[string]interface{}{"questions": missing})
	}
	return nil
}

func checkAnswer(q *models.Question, a *models.Answer) string {
	if q.Type.IsChoice() {
		if strings.TrimSpace(a.Text) != "" {
			return "choice questions are answered with optionIds"
		}
		if q.Type.IsSingleChoice() && len(a.OptionIDs) > 1 {
			return "only one option may be selected"
		}
		picked := make(map[string]struct{}, len(a.OptionIDs))
		for _, id := range a.OptionIDs {
			if !q.HasOption(id) {
				return "unknown option " + id
			}
			if _, dup := picked[id]; dup {
				return "option selected more than once"
			}
			picked[id] = struct{}{}
		}
		return ""
	}

	if len(a.OptionIDs) > 0 {
		return "text questions do not take optionIds"
	}
	if q.Type == models.QuestionLinearScale && strings.TrimSpace(a.Text) != "" {
		v, err := strconv.Atoi(strings.TrimSpace(a.Text))
		if err != nil || v < q.ScaleMin || v > q.ScaleMax {
			return fmt.Sprintf("value must be an integer between %d and %d", q.ScaleMin, q.ScaleMax)
		}
	}
	return ""
}

func findAnswer(answers []models.Answer, questionID string) (*models.Answer, bool) {
	for i := range answers {
		if answers[i].QuestionID == questionID {
			return &answers[i], true
		}
	}
	return nil, false
}
