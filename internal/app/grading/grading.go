// Package grading scores form responses.
//
// Every function here is pure: it reads a form definition and a set of answers and
// returns new values. Persistence, authorization and notifications live in the services.
package grading

import (
	"math"
	"strings"
	"time"

	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/pkg/apperrors"
)

// Result is the outcome of grading a set of answers against a form
type Result struct {
	Answers     []models.Answer
	Score       float64
	TotalPoints float64
	Status      models.ResponseStatus
}

// IsScorable reports whether a question contributes to the total
func IsScorable(q *models.Question) bool {
	return q.Type != models.QuestionLinearScale && q.Points > 0
}

// TotalPoints sums the points of every scorable question. Non-quiz forms are worth 0.
func TotalPoints(form *models.Form) float64 {
	if !form.Settings.IsQuiz {
		return 0
	}
	var total float64
	for i := range form.Questions {
		if IsScorable(&form.Questions[i]) {
			total += form.Questions[i].Points
		}
	}
	return round2(total)
}

// Grade evaluates answers against form. The returned answers follow the form's question
// order and contain one entry per question, unanswered ones included. Answers must have
// passed ValidateAnswers.
func Grade(form *models.Form, answers []models.Answer) Result {
	byQuestion := make(map[string]models.Answer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	graded := make([]models.Answer, 0, len(form.Questions))
	for i := range form.Questions {
		q := &form.Questions[i]
		a, ok := byQuestion[q.ID]
		if !ok {
			a = models.Answer{QuestionID: q.ID}
		}
		out := models.Answer{
			QuestionID: q.ID,
			Text:       strings.TrimSpace(a.Text),
			OptionIDs:  a.OptionIDs,
		}
		if form.Settings.IsQuiz {
			evaluate(q, &out)
		}
		graded = append(graded, out)
	}

	res := Result{
		Answers:     graded,
		TotalPoints: TotalPoints(form),
	}
	res.Score, res.Status = tally(form, graded)
	return res
}

// evaluate fills in the scoring fields of a for question q
func evaluate(q *models.Question, a *models.Answer) {
	if q.Type == models.QuestionLinearScale {
		return
	}

	if a.IsEmpty() {
		if IsScorable(q) {
			setAuto(a, 0, false)
		}
		return
	}

	var (
		score   float64
		correct bool
	)
	switch q.Type {
	case models.QuestionParagraph:
		a.NeedsReview = q.Points > 0
		return

	case models.QuestionShortAnswer:
		if len(q.AcceptedAnswers) == 0 {
			a.NeedsReview = q.Points > 0
			return
		}
		correct = matchesAccepted(a.Text, q.AcceptedAnswers, q.CaseSensitive)
		if correct {
			score = q.Points
		}

	case models.QuestionMultipleChoice, models.QuestionDropdown, models.QuestionTrueFalse:
		if len(q.CorrectOptionIDs) == 0 {
			a.NeedsReview = q.Points > 0
			return
		}
		correct = len(a.OptionIDs) == 1 && a.OptionIDs[0] == q.CorrectOptionIDs[0]
		if correct {
			score = q.Points
		}

	case models.QuestionCheckboxes:
		if len(q.CorrectOptionIDs) == 0 {
			a.NeedsReview = q.Points > 0
			return
		}
		score, correct = scoreCheckboxes(q, a.OptionIDs)

	default:
		return
	}

	setAuto(a, score, correct)
}

func setAuto(a *models.Answer, score float64, correct bool) {
	s := round2(score)
	a.AutoScore = &s
	a.Score = s
	a.Correct = &correct
	a.NeedsReview = false
}

// scoreCheckboxes awards full points for an exact match. With partial credit the score is
// points * max(0, (correctSelected - wrongSelected) / |correct|).
func scoreCheckboxes(q *models.Question, selected []string) (float64, bool) {
	correctSet := make(map[string]struct{}, len(q.CorrectOptionIDs))
	for _, id := range q.CorrectOptionIDs {
		correctSet[id] = struct{}{}
	}

	seen := make(map[string]struct{}, len(selected))
	var hits, misses int
	for _, id := range selected {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := correctSet[id]; ok {
			hits++
		} else {
			misses++
		}
	}

	exact := hits == len(correctSet) && misses == 0
	if exact {
		return q.Points, true
	}
	if !q.PartialCredit {
		return 0, false
	}

	ratio := float64(hits-misses) / float64(len(correctSet))
	return round2(q.Points * math.Max(0, ratio)), false
}

func matchesAccepted(text string, accepted []string, caseSensitive bool) bool {
	given := normalizeText(text)
	if !caseSensitive {
		given = strings.ToLower(given)
	}
	for _, candidate := range accepted {
		c := normalizeText(candidate)
		if !caseSensitive {
			c = strings.ToLower(c)
		}
		if c != "" && c == given {
			return true
		}
	}
	return false
}

// normalizeText trims and collapses internal whitespace
func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ApplyManualGrade sets a teacher-assigned score on one answer and recomputes the response
// totals. The manual score overrides any automatic score.
func ApplyManualGrade(form *models.Form, resp *models.Response, questionID string, points float64, feedback string, graderID int64, now time.Time) error {
	if !form.Settings.IsQuiz {
		return apperrors.NewCustomError(apperrors.ErrQuestionNotGraded, "form is not a quiz")
	}

	q, ok := form.Question(questionID)
	if !ok {
		return apperrors.ErrQuestionNotFound
	}
	if !IsScorable(q) {
		return apperrors.ErrQuestionNotGraded
	}
	if points < 0 || points > q.Points || math.IsNaN(points) {
		return apperrors.NewCustomError(apperrors.ErrPointsOutOfRange, "points must be between 0 and the question's points").
			WithDetails(map[string]interface{}{"min": 0, "max": q.Points})
	}

	a, ok := resp.Answer(questionID)
	if !ok {
		resp.Answers = append(resp.Answers, models.Answer{QuestionID: questionID})
		a = &resp.Answers[len(resp.Answers)-1]
	}

	score := round2(points)
	correct := score == q.Points
	a.ManualScore = &score
	a.Score = score
	a.Correct = &correct
	a.NeedsReview = false
	a.Feedback = strings.TrimSpace(feedback)

	resp.Score, resp.Status = tally(form, resp.Answers)
	resp.TotalPoints = TotalPoints(form)
	resp.GradedBy = &graderID
	resp.UpdatedAt = now
	if resp.Status == models.ResponseGraded {
		resp.GradedAt = &now
	}
	return nil
}

// Regrade rescores a stored response against an edited form. Answers to removed
// questions are kept but no longer count, new questions are scored as unanswered and
// a manual score survives only while it still fits its question.
func Regrade(form *models.Form, resp *models.Response, now time.Time) {
	for i := range form.Questions {
		if _, ok := resp.Answer(form.Questions[i].ID); !ok {
			resp.Answers = append(resp.Answers, models.Answer{QuestionID: form.Questions[i].ID})
		}
	}

	for i := range resp.Answers {
		a := &resp.Answers[i]
		q, ok := form.Question(a.QuestionID)
		if !ok {
			continue
		}
		manual := a.ManualScore
		a.AutoScore, a.ManualScore, a.Correct = nil, nil, nil
		a.Score, a.NeedsReview = 0, false
		if !form.Settings.IsQuiz {
			continue
		}
		evaluate(q, a)
		if manual != nil && IsScorable(q) && *manual <= q.Points {
			correct := *manual == q.Points
			a.ManualScore = manual
			a.Score = *manual
			a.Correct = &correct
			a.NeedsReview = false
		}
	}

	wasGraded := resp.Status == models.ResponseGraded
	resp.Score, resp.Status = tally(form, resp.Answers)
	resp.TotalPoints = TotalPoints(form)
	switch {
	case resp.Status != models.ResponseGraded:
		resp.GradedAt = nil
	case !wasGraded:
		resp.GradedAt = &now
	}
}

// tally sums answer scores and derives the response status
func tally(form *models.Form, answers []models.Answer) (float64, models.ResponseStatus) {
	if !form.Settings.IsQuiz {
		return 0, models.ResponseSubmitted
	}
	var (
		score   float64
		pending bool
	)
	for i := range answers {
		if _, ok := form.Question(answers[i].QuestionID); !ok {
			continue
		}
		score += answers[i].Score
		if answers[i].NeedsReview {
			pending = true
		}
	}
	if pending {
		return round2(score), models.ResponsePendingReview
	}
	return round2(score), models.ResponseGraded
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
