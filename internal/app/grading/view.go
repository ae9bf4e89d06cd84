package grading

import (
	"hash/fnv"
	"math/rand/v2"
	"strconv"

	"github.com/yigit/classroom/internal/app/models"
)

// ScoreVisible reports whether the respondent may see scores and correctness.
// Scores show once the response is fully graded and either the form releases
// immediately or the teacher released them.
func ScoreVisible(form *models.Form, resp *models.Response) bool {
	if !form.Settings.IsQuiz || resp.Status != models.ResponseGraded {
		return false
	}
	return form.Settings.ReleaseScores == models.ReleaseImmediately || resp.Released
}

// RespondentForm returns a copy of form as a respondent sees it. Answer keys are removed
// unless reveal is set, and questions and options are shuffled per user when enabled.
func RespondentForm(form *models.Form, userID int64, reveal bool) models.Form {
	out := *form
	out.Questions = make([]models.Question, len(form.Questions))
	for i, q := range form.Questions {
		q.Options = append([]models.QuestionOption(nil), q.Options...)
		if !reveal {
			q.CorrectOptionIDs = nil
			q.AcceptedAnswers = nil
		}
		out.Questions[i] = q
	}

	if !form.Settings.ShuffleQuestions && !form.Settings.ShuffleOptions {
		return out
	}

	rng := seededRand(form.ID, userID)
	if form.Settings.ShuffleQuestions {
		rng.Shuffle(len(out.Questions), func(i, j int) {
			out.Questions[i], out.Questions[j] = out.Questions[j], out.Questions[i]
		})
	}
	if form.Settings.ShuffleOptions {
		for i := range out.Questions {
			q := &out.Questions[i]
			if !q.Type.IsChoice() || q.Type == models.QuestionTrueFalse {
				continue
			}
			rng.Shuffle(len(q.Options), func(a, b int) {
				q.Options[a], q.Options[b] = q.Options[b], q.Options[a]
			})
		}
	}
	return out
}

// RespondentResponse returns a copy of resp with scoring hidden until ScoreVisible
func RespondentResponse(form *models.Form, resp *models.Response) models.Response {
	out := *resp
	out.Answers = make([]models.Answer, len(resp.Answers))
	copy(out.Answers, resp.Answers)

	if ScoreVisible(form, resp) {
		return out
	}

	out.Score = 0
	out.GradedBy = nil
	for i := range out.Answers {
		a := &out.Answers[i]
		a.AutoScore = nil
		a.ManualScore = nil
		a.Score = 0
		a.Correct = nil
		a.Feedback = ""
	}
	return out
}

// seededRand is deterministic for a (form, user) pair so a respondent sees the same order
// on every load.
func seededRand(formID, userID int64) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strconv.FormatInt(formID, 10) + ":" + strconv.FormatInt(userID, 10)))
	sum := h.Sum64()
	return rand.New(rand.NewPCG(sum, sum^0x9e3779b97f4a7c15))
}
