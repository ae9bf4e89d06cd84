package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authz "github.com/yigit/classroom/internal/app/auth"
	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/app/models/dto"
	"github.com/yigit/classroom/internal/app/repositories"
	"github.com/yigit/classroom/internal/pkg/apperrors"
)

func quizRequest(settings models.FormSettings) *dto.FormRequest {
	settings.IsQuiz = true
	return &dto.FormRequest{
		Title: "Chapter 3 quiz",
		Questions: []dto.QuestionRequest{
			{
				ID:               "q1",
				Type:             models.QuestionMultipleChoice,
				Title:            "Unit of force?",
				Required:         true,
				Points:           2,
				Options:          []models.QuestionOption{{ID: "a", Label: "Joule"}, {ID: "b", Label: "Newton"}},
				CorrectOptionIDs: []string{"b"},
			},
			{
				ID:     "q2",
				Type:   models.QuestionParagraph,
				Title:  "Explain inertia",
				Points: 3,
			},
		},
		Settings: settings,
	}
}

// formFixture is a class with one teacher, two students and a quiz
type formFixture struct {
	env     *testEnv
	teacher authz.Actor
	alice   authz.Actor
	bob     authz.Actor
	classID int64
	formID  int64
}

func newFormFixture(t *testing.T, settings models.FormSettings) *formFixture {
	t.Helper()
	env := newTestEnv(t)
	f := &formFixture{
		env:     env,
		teacher: env.user(t, "teach", models.RoleTeacher),
		alice:   env.user(t, "alice", models.RoleStudent),
		bob:     env.user(t, "bob", models.RoleStudent),
	}
	class := env.class(t, f.teacher, f.alice, f.bob)
	f.classID = class.ID

	form, err := env.svc.Form.Create(context.Background(), f.teacher, class.ID, quizRequest(settings))
	require.NoError(t, err)
	f.formID = form.ID
	return f
}

func (f *formFixture) publish(t *testing.T) {
	t.Helper()
	_, err := f.env.svc.Form.Publish(context.Background(), f.teacher, f.formID)
	require.NoError(t, err)
}

func answers(pairs ...dto.AnswerRequest) *dto.SubmitFormRequest {
	return &dto.SubmitFormRequest{Answers: pairs}
}

func TestFormService_CreateAppliesDefaults(t *testing.T) {
	f := newFormFixture(t, models.FormSettings{})
	ctx := context.Background()

	form, err := f.env.svc.Form.Get(ctx, f.teacher, f.formID)
	require.NoError(t, err)
	assert.Equal(t, models.ReleaseImmediately, form.Settings.ReleaseScores)
	assert.Equal(t, 5.0, form.TotalPoints)
	assert.False(t, form.Published)

	_, err = f.env.svc.Form.Create(ctx, f.alice, f.classID, quizRequest(models.FormSettings{}))
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	bad := quizRequest(models.FormSettings{})
	bad.Questions[0].CorrectOptionIDs = []string{"z"}
	_, err = f.env.svc.Form.Create(ctx, f.teacher, f.classID, bad)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestFormService_PublishVisibility(t *testing.T) {
	f := newFormFixture(t, models.FormSettings{})
	ctx := context.Background()
	env := f.env

	_, err := env.svc.Form.Get(ctx, f.alice, f.formID)
	assert.ErrorIs(t, err, apperrors.ErrFormNotFound)

	listed, err := env.svc.Form.ListByClass(ctx, f.alice, f.classID)
	require.NoError(t, err)
	assert.Empty(t, listed)

	_, err = env.svc.Response.Submit(ctx, f.alice, f.formID, answers(dto.AnswerRequest{QuestionID: "q1", OptionIDs: []string{"b"}}))
	assert.ErrorIs(t, err, apperrors.ErrFormNotPublished)

	f.publish(t)

	view, err := env.svc.Form.Get(ctx, f.alice, f.formID)
	require.NoError(t, err)
	require.Len(t, view.Questions, 2)
	for _, q := range view.Questions {
		assert.Empty(t, q.CorrectOptionIDs, "answer key is hidden from students")
	}

	listed, err = env.svc.Form.ListByClass(ctx, f.alice, f.classID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, 2, listed[0].QuestionCount)

	notes := env.notifications(t, f.bob.UserID)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationFormPublished, notes[0].Type)

	_, err = env.svc.Form.Unpublish(ctx, f.teacher, f.formID)
	require.NoError(t, err)
	f.publish(t)
	assert.Len(t, env.notifications(t, f.bob.UserID), 1, "republishing does not notify again")
}

func TestFormService_PublishNeedsQuestions(t *testing.T) {
	f := newFormFixture(t, models.FormSettings{})
	ctx := context.Background()

	empty, err := f.env.svc.Form.Create(ctx, f.teacher, f.classID, &dto.FormRequest{Title: "Empty"})
	require.NoError(t, err)
	_, err = f.env.svc.Form.Publish(ctx, f.teacher, empty.ID)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestResponseService_SubmissionWindow(t *testing.T) {
	opens := time.Date(2025, 3, 11, 8, 0, 0, 0, time.UTC)
	closes := opens.Add(2 * time.Hour)
	f := newFormFixture(t, models.FormSettings{OpensAt: &opens, ClosesAt: &closes, TimeLimitMinutes: 30})
	f.publish(t)
	ctx := context.Background()
	env := f.env
	valid := dto.AnswerRequest{QuestionID: "q1", OptionIDs: []string{"b"}}

	_, err := env.svc.Response.Submit(ctx, f.alice, f.formID, answers(valid))
	assert.ErrorIs(t, err, apperrors.ErrFormNotOpen)

	_, err = env.svc.Response.Start(ctx, f.alice, f.formID)
	assert.ErrorIs(t, err, apperrors.ErrFormNotOpen)

	env.now = opens.Add(5 * time.Minute)
	_, err = env.svc.Response.Submit(ctx, f.alice, f.formID, answers(valid))
	assert.ErrorIs(t, err, apperrors.ErrAttemptNotStarted, "timed forms need a recorded start")

	attempt, err := env.svc.Response.Start(ctx, f.alice, f.formID)
	require.NoError(t, err)
	assert.Equal(t, env.now, attempt.StartedAt)
	require.NotNil(t, attempt.Deadline)
	assert.Equal(t, env.now.Add(30*time.Minute), *attempt.Deadline)

	env.now = opens.Add(20 * time.Minute)
	again, err := env.svc.Response.Start(ctx, f.alice, f.formID)
	require.NoError(t, err)
	assert.Equal(t, attempt.StartedAt, again.StartedAt, "restarting keeps the clock running")

	env.now = opens.Add(45 * time.Minute)
	_, err = env.svc.Response.Submit(ctx, f.alice, f.formID, answers(valid))
	assert.ErrorIs(t, err, apperrors.ErrFormClosed)
	assert.Equal(t, "time limit exceeded", apperrors.MessageOf(err))

	_, err = env.svc.Response.Start(ctx, f.bob, f.formID)
	require.NoError(t, err)
	env.now = opens.Add(45*time.Minute + 30*time.Second)
	resp, err := env.svc.Response.Submit(ctx, f.bob, f.formID, answers(valid))
	require.NoError(t, err, "within the limit plus grace")
	require.NotNil(t, resp.StartedAt)
	assert.Equal(t, opens.Add(45*time.Minute), *resp.StartedAt)

	_, err = env.svc.Response.Submit(ctx, f.bob, f.formID, answers(valid))
	assert.ErrorIs(t, err, apperrors.ErrAttemptNotStarted, "a submission closes the attempt")

	_, err = env.svc.Response.Submit(ctx, f.teacher, f.formID, answers(valid))
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	env.now = closes.Add(time.Second)
	_, err = env.svc.Response.Submit(ctx, f.bob, f.formID, answers(valid))
	assert.ErrorIs(t, err, apperrors.ErrFormClosed)
	_, err = env.svc.Response.Start(ctx, f.bob, f.formID)
	assert.ErrorIs(t, err, apperrors.ErrFormClosed)
}

func TestResponseService_AnswerValidation(t *testing.T) {
	f := newFormFixture(t, models.FormSettings{})
	f.publish(t)
	ctx := context.Background()

	_, err := f.env.svc.Response.Submit(ctx, f.alice, f.formID, answers(dto.AnswerRequest{QuestionID: "q2", Text: "no q1"}))
	assert.ErrorIs(t, err, apperrors.ErrMissingAnswer)

	_, err = f.env.svc.Response.Submit(ctx, f.alice, f.formID, answers(dto.AnswerRequest{QuestionID: "q1", OptionIDs: []string{"x"}}))
	assert.ErrorIs(t, err, apperrors.ErrInvalidAnswer)
}

func TestResponseService_ImmediateRelease(t *testing.T) {
	f := newFormFixture(t, models.FormSettings{ShowCorrectAnswers: true})
	f.publish(t)
	ctx := context.Background()
	env := f.env

	// the paragraph is left blank so nothing needs review
	resp, err := env.svc.Response.Submit(ctx, f.alice, f.formID, answers(dto.AnswerRequest{QuestionID: "q1", OptionIDs: []string{"b"}}))
	require.NoError(t, err)
	assert.Equal(t, models.ResponseGraded, resp.Status)
	assert.True(t, resp.ScoreVisible)
	assert.Equal(t, 2.0, resp.Score)
	assert.Equal(t, 5.0, resp.TotalPoints)
	require.NotEmpty(t, resp.AnswerKey)
	assert.Equal(t, []string{"b"}, resp.AnswerKey[0].CorrectOptionIDs)

	second, err := env.svc.Response.Submit(ctx, f.alice, f.formID, answers(dto.AnswerRequest{QuestionID: "q1", OptionIDs: []string{"a"}}))
	require.NoError(t, err, "forms accept several responses unless limited")
	assert.Equal(t, 0.0, second.Score)

	latest, err := env.svc.Response.MyResponse(ctx, f.alice, f.formID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	_, err = env.svc.Response.MyResponse(ctx, f.bob, f.formID)
	assert.ErrorIs(t, err, apperrors.ErrResponseNotFound)

	_, err = env.svc.Response.Get(ctx, f.bob, resp.ID)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	teacherView, err := env.svc.Response.Get(ctx, f.teacher, resp.ID)
	require.NoError(t, err)
	require.NotNil(t, teacherView.Respondent)
	assert.Equal(t, "alice", teacherView.Respondent.Username)

	var submittedNotes int
	for _, n := range env.notifications(t, f.teacher.UserID) {
		if n.Type == models.NotificationResponseSubmitted {
			submittedNotes++
		}
	}
	assert.Equal(t, 2, submittedNotes)
}

func TestResponseService_ReviewAndRelease(t *testing.T) {
	f := newFormFixture(t, models.FormSettings{
		ReleaseScores:      models.ReleaseAfterReview,
		ShowCorrectAnswers: true,
		LimitOneResponse:   true,
	})
	f.publish(t)
	ctx := context.Background()
	env := f.env

	submitted, err := env.svc.Response.Submit(ctx, f.alice, f.formID, answers(
		dto.AnswerRequest{QuestionID: "q1", OptionIDs: []string{"b"}},
		dto.AnswerRequest{QuestionID: "q2", Text: "Objects resist changes in motion."},
	))
	require.NoError(t, err)
	assert.Equal(t, models.ResponsePendingReview, submitted.Status)
	assert.False(t, submitted.ScoreVisible)
	assert.Zero(t, submitted.Score)
	assert.Empty(t, submitted.AnswerKey)

	_, err = env.svc.Response.Submit(ctx, f.alice, f.formID, answers(dto.AnswerRequest{QuestionID: "q1", OptionIDs: []string{"a"}}))
	assert.ErrorIs(t, err, apperrors.ErrAlreadyResponded)

	_, err = env.svc.Response.GradeAnswer(ctx, f.teacher, submitted.ID, &dto.ManualGradeRequest{QuestionID: "q2", Points: ptr(4.0)})
	assert.ErrorIs(t, err, apperrors.ErrPointsOutOfRange)

	_, err = env.svc.Response.GradeAnswer(ctx, f.alice, submitted.ID, &dto.ManualGradeRequest{QuestionID: "q2", Points: ptr(3.0)})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	graded, err := env.svc.Response.GradeAnswer(ctx, f.teacher, submitted.ID, &dto.ManualGradeRequest{QuestionID: "q2", Points: ptr(2.5), Feedback: "good"})
	require.NoError(t, err)
	assert.Equal(t, models.ResponseGraded, graded.Status)
	assert.Equal(t, 4.5, graded.Score)

	mine, err := env.svc.Response.MyResponse(ctx, f.alice, f.formID)
	require.NoError(t, err)
	assert.False(t, mine.ScoreVisible, "scores stay hidden until released")
	assert.Zero(t, mine.Score)
	assert.Empty(t, env.mail.Sent())

	_, err = env.svc.Response.ReleaseScores(ctx, f.alice, f.formID)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	n, err := env.svc.Response.ReleaseScores(ctx, f.teacher, f.formID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = env.svc.Response.ReleaseScores(ctx, f.teacher, f.formID)
	require.NoError(t, err)
	assert.Zero(t, n, "already released responses are skipped")

	mine, err = env.svc.Response.MyResponse(ctx, f.alice, f.formID)
	require.NoError(t, err)
	assert.True(t, mine.ScoreVisible)
	assert.Equal(t, 4.5, mine.Score)
	assert.NotEmpty(t, mine.AnswerKey)

	notes := env.notifications(t, f.alice.UserID)
	require.NotEmpty(t, notes)
	assert.Equal(t, models.NotificationResponseGraded, notes[0].Type)
	sent := env.mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "alice@school.edu", sent[0].To)

	stats, err := env.svc.Response.Stats(ctx, f.teacher, f.formID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ResponseCount)
	assert.Equal(t, 1, stats.GradedCount)
	assert.Equal(t, 4.5, stats.Mean)
	assert.Equal(t, 5.0, stats.TotalPoints)

	list, err := env.svc.Response.ListByForm(ctx, f.teacher, f.formID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Released)
}

func TestResponseService_ReleaseNeedsQuiz(t *testing.T) {
	f := newFormFixture(t, models.FormSettings{})
	ctx := context.Background()

	survey, err := f.env.svc.Form.Create(ctx, f.teacher, f.classID, &dto.FormRequest{
		Title:     "Feedback",
		Questions: []dto.QuestionRequest{{ID: "s1", Type: models.QuestionLinearScale, Title: "Pace?"}},
	})
	require.NoError(t, err)
	assert.Zero(t, survey.TotalPoints)

	_, err = f.env.svc.Response.ReleaseScores(ctx, f.teacher, survey.ID)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestFormService_UpdateRegradesResponses(t *testing.T) {
	f := newFormFixture(t, models.FormSettings{})
	f.publish(t)
	ctx := context.Background()
	env := f.env

	submitted, err := env.svc.Response.Submit(ctx, f.alice, f.formID, answers(
		dto.AnswerRequest{QuestionID: "q1", OptionIDs: []string{"b"}},
		dto.AnswerRequest{QuestionID: "q2", Text: "Objects keep moving."},
	))
	require.NoError(t, err)
	require.Equal(t, models.ResponsePendingReview, submitted.Status)
	before := len(env.notifications(t, f.alice.UserID))

	req := quizRequest(models.FormSettings{})
	req.Questions = req.Questions[:1]
	updated, err := env.svc.Form.Update(ctx, f.teacher, f.formID, req)
	require.NoError(t, err)
	assert.Equal(t, 2.0, updated.TotalPoints)

	stored, err := env.svc.Response.Get(ctx, f.teacher, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ResponseGraded, stored.Status, "the removed paragraph no longer blocks grading")
	assert.Equal(t, 2.0, stored.Score)
	assert.Equal(t, 2.0, stored.TotalPoints)
	require.NotNil(t, stored.GradedAt)

	_, err = env.svc.Response.GradeAnswer(ctx, f.teacher, submitted.ID, &dto.ManualGradeRequest{QuestionID: "q2", Points: ptr(1.0)})
	assert.ErrorIs(t, err, apperrors.ErrQuestionNotFound)

	notes := env.notifications(t, f.alice.UserID)
	require.Len(t, notes, before+1)
	assert.Equal(t, models.NotificationResponseGraded, notes[0].Type)

	// changing the answer key rescores automatically
	req.Questions[0].CorrectOptionIDs = []string{"a"}
	_, err = env.svc.Form.Update(ctx, f.teacher, f.formID, req)
	require.NoError(t, err)
	stored, err = env.svc.Response.Get(ctx, f.teacher, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, stored.Score)
	assert.Equal(t, models.ResponseGraded, stored.Status)
}

// slowResponses delays reads so concurrent graders overlap
type slowResponses struct {
	repositories.IResponseRepository
	delay time.Duration
}

func (s *slowResponses) GetByID(ctx context.Context, id int64) (*models.Response, error) {
	resp, err := s.IResponseRepository.GetByID(ctx, id)
	time.Sleep(s.delay)
	return resp, err
}

func TestResponseService_ConcurrentManualGrades(t *testing.T) {
	f := newFormFixture(t, models.FormSettings{ReleaseScores: models.ReleaseAfterReview})
	ctx := context.Background()
	env := f.env

	req := quizRequest(models.FormSettings{ReleaseScores: models.ReleaseAfterReview})
	req.Questions = append(req.Questions, dto.QuestionRequest{ID: "q3", Type: models.QuestionParagraph, Title: "Explain momentum", Points: 3})
	_, err := env.svc.Form.Update(ctx, f.teacher, f.formID, req)
	require.NoError(t, err)
	f.publish(t)

	submitted, err := env.svc.Response.Submit(ctx, f.alice, f.formID, answers(
		dto.AnswerRequest{QuestionID: "q1", OptionIDs: []string{"b"}},
		dto.AnswerRequest{QuestionID: "q2", Text: "Objects keep moving."},
		dto.AnswerRequest{QuestionID: "q3", Text: "Mass times velocity."},
	))
	require.NoError(t, err)

	responses := NewResponseService(
		&slowResponses{IResponseRepository: env.repos.ResponseRepository, delay: 20 * time.Millisecond},
		env.repos.FormRepository, env.repos.UserRepository, env.svc.Authorization, env.svc.Notification,
		zerolog.Nop(), func() time.Time { return env.now },
	)

	grade := func(questionID string, points float64) {
		_, err := responses.GradeAnswer(ctx, f.teacher, submitted.ID, &dto.ManualGradeRequest{QuestionID: questionID, Points: ptr(points)})
		assert.NoError(t, err)
	}

	var wg sync.WaitGroup
	for _, q := range []string{"q2", "q3"} {
		wg.Add(1)
		go func(questionID string) {
			defer wg.Done()
			grade(questionID, 1)
		}(q)
	}
	wg.Wait()

	stored, err := env.repos.ResponseRepository.GetByID(ctx, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ResponseGraded, stored.Status)
	assert.Equal(t, 4.0, stored.Score)
	for _, id := range []string{"q2", "q3"} {
		a, ok := stored.Answer(id)
		require.True(t, ok)
		assert.False(t, a.NeedsReview, id)
		assert.Equal(t, 1.0, a.Score, id)
	}

	// a release landing while a regrade is in flight stays released
	wg.Add(2)
	go func() {
		defer wg.Done()
		grade("q2", 2)
	}()
	go func() {
		defer wg.Done()
		time.Sleep(5 * time.Millisecond)
		n, err := responses.ReleaseScores(ctx, f.teacher, f.formID)
		assert.NoError(t, err)
		assert.Equal(t, 1, n)
	}()
	wg.Wait()

	stored, err = env.repos.ResponseRepository.GetByID(ctx, submitted.ID)
	require.NoError(t, err)
	assert.True(t, stored.Released)
	assert.Equal(t, 5.0, stored.Score)
}

func TestResponseService_ImmediateReleaseDoesNotRenotify(t *testing.T) {
	f := newFormFixture(t, models.FormSettings{})
	f.publish(t)
	ctx := context.Background()
	env := f.env

	submitted, err := env.svc.Response.Submit(ctx, f.alice, f.formID, answers(
		dto.AnswerRequest{QuestionID: "q1", OptionIDs: []string{"b"}},
		dto.AnswerRequest{QuestionID: "q2", Text: "Objects keep moving."},
	))
	require.NoError(t, err)
	_, err = env.svc.Response.GradeAnswer(ctx, f.teacher, submitted.ID, &dto.ManualGradeRequest{QuestionID: "q2", Points: ptr(3.0)})
	require.NoError(t, err)

	n, err := env.svc.Response.ReleaseScores(ctx, f.teacher, f.formID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	graded := 0
	for _, note := range env.notifications(t, f.alice.UserID) {
		if note.Type == models.NotificationResponseGraded {
			graded++
		}
	}
	assert.Equal(t, 1, graded, "only the grade that made the score visible notifies")
	assert.Len(t, env.mail.Sent(), 1)
}
