package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	authz "github.com/yigit/classroom/internal/app/auth"
	"github.com/yigit/classroom/internal/app/grading"
	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/app/models/dto"
	"github.com/yigit/classroom/internal/app/repositories"
	"github.com/yigit/classroom/internal/pkg/apperrors"
)

// timeLimitGrace is added to a form's time limit to absorb network latency
const timeLimitGrace = time.Minute

// ResponseService collects, grades and reports on form responses
type ResponseService struct {
	responseRepo repositories.IResponseRepository
	formRepo     repositories.IFormRepository
	userRepo     repositories.IUserRepository
	authz        *authz.AuthorizationService
	notifier     *NotificationService
	logger       zerolog.Logger
	now          func() time.Time
}

// NewResponseService creates a new ResponseService
func NewResponseService(
	responseRepo repositories.IResponseRepository,
	formRepo repositories.IFormRepository,
	userRepo repositories.IUserRepository,
	authorization *authz.AuthorizationService,
	notifier *NotificationService,
	logger zerolog.Logger,
	now func() time.Time,
) *ResponseService {
	return &ResponseService{
		responseRepo: responseRepo,
		formRepo:     formRepo,
		userRepo:     userRepo,
		authz:        authorization,
		notifier:     notifier,
		logger:       logger,
		now:          now,
	}
}

// respondentView builds what a respondent may see of their own response
func respondentView(form *models.Form, resp *models.Response) *dto.FormResponseDTO {
	visible := grading.ScoreVisible(form, resp)
	out := &dto.FormResponseDTO{
		Response:     grading.RespondentResponse(form, resp),
		ScoreVisible: visible,
	}
	if visible && form.Settings.ShowCorrectAnswers {
		out.AnswerKey = grading.RespondentForm(form, resp.UserID, true).Questions
	}
	return out
}

// checkWindow verifies the form accepts responses at now
func checkWindow(form *models.Form, now time.Time) error {
	if !form.Published {
		return apperrors.ErrFormNotPublished
	}
	if form.Settings.OpensAt != nil && now.Before(*form.Settings.OpensAt) {
		return apperrors.ErrFormNotOpen
	}
	if form.Settings.ClosesAt != nil && now.After(*form.Settings.ClosesAt) {
		return apperrors.ErrFormClosed
	}
	return nil
}

// attemptDeadline is when a timed attempt started at startedAt runs out, or nil
func attemptDeadline(form *models.Form, startedAt time.Time) *time.Time {
	limit := form.Settings.TimeLimitMinutes
	if limit <= 0 {
		return nil
	}
	deadline := startedAt.Add(time.Duration(limit) * time.Minute)
	return &deadline
}

// checkAttempt returns the start of the user's open attempt. Timed forms must have
// been started through Start and are rejected once the limit plus grace has passed.
func (s *ResponseService) checkAttempt(ctx context.Context, form *models.Form, userID int64, now time.Time) (*time.Time, error) {
	startedAt, err := s.responseRepo.GetAttempt(ctx, form.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attempt: %w", err)
	}
	if form.Settings.TimeLimitMinutes <= 0 {
		return startedAt, nil
	}
	if startedAt == nil {
		return nil, apperrors.ErrAttemptNotStarted
	}
	if now.After(attemptDeadline(form, *startedAt).Add(timeLimitGrace)) {
		return nil, apperrors.NewCustomError(apperrors.ErrFormClosed, "time limit exceeded")
	}
	return startedAt, nil
}

// Start opens an attempt for the calling student and records its start time on the
// server. Starting again before submitting returns the original attempt.
func (s *ResponseService) Start(ctx context.Context, actor authz.Actor, formID int64) (*dto.AttemptResponse, error) {
	form, err := s.formRepo.GetByID(ctx, formID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authz.RequireStudent(ctx, actor, form.ClassID); err != nil {
		return nil, err
	}
	now := s.now()
	if err := checkWindow(form, now); err != nil {
		return nil, err
	}
	if form.Settings.LimitOneResponse {
		existing, err := s.responseRepo.ListByUser(ctx, formID, actor.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to load responses: %w", err)
		}
		if len(existing) > 0 {
			return nil, apperrors.ErrAlreadyResponded
		}
	}

	startedAt, err := s.responseRepo.StartAttempt(ctx, formID, actor.UserID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to start attempt: %w", err)
	}
	s.logger.Debug().Int64("formID", formID).Int64("userID", actor.UserID).Time("startedAt", startedAt).Msg("Form attempt started")

	return &dto.AttemptResponse{
		FormID:           formID,
		StartedAt:        startedAt,
		Deadline:         attemptDeadline(form, startedAt),
		TimeLimitMinutes: form.Settings.TimeLimitMinutes,
	}, nil
}

// Submit grades and stores the calling student's answers
func (s *ResponseService) Submit(ctx context.Context, actor authz.Actor, formID int64, req *dto.SubmitFormRequest) (*dto.FormResponseDTO, error) {
	form, err := s.formRepo.GetByID(ctx, formID)
	if err != nil {
		return nil, err
	}
	access, err := s.authz.RequireStudent(ctx, actor, form.ClassID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := checkWindow(form, now); err != nil {
		return nil, err
	}
	startedAt, err := s.checkAttempt(ctx, form, actor.UserID, now)
	if err != nil {
		return nil, err
	}

	answers := req.ToAnswers()
	if err := grading.ValidateAnswers(form, answers); err != nil {
		return nil, err
	}
	result := grading.Grade(form, answers)

	resp := &models.Response{
		FormID:      form.ID,
		ClassID:     form.ClassID,
		UserID:      actor.UserID,
		Answers:     result.Answers,
		Score:       result.Score,
		TotalPoints: result.TotalPoints,
		Status:      result.Status,
		StartedAt:   startedAt,
		SubmittedAt: now,
	}
	if resp.Status == models.ResponseGraded {
		resp.GradedAt = &now
	}

	if err := s.responseRepo.Create(ctx, resp, form.Settings.LimitOneResponse); err != nil {
		if apperrors.Is(err, apperrors.ErrAlreadyResponded) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to store response: %w", err)
	}

	s.logger.Info().
		Int64("formID", form.ID).
		Int64("responseID", resp.ID).
		Str("status", string(resp.Status)).
		Msg("Form response submitted")

	classID := form.ClassID
	s.notifier.Notify(ctx, []int64{form.CreatedBy}, NotificationPayload{
		Type:    models.NotificationResponseSubmitted,
		Title:   "New response: " + form.Title,
		Body:    access.Class.Name,
		Link:    classLink(classID, "forms", fmt.Sprint(form.ID), "responses", fmt.Sprint(resp.ID)),
		ClassID: &classID,
	})

	return respondentView(form, resp), nil
}

// loadFormForTeacher fetches a form the caller teaches
func (s *ResponseService) loadFormForTeacher(ctx context.Context, actor authz.Actor, formID int64) (*models.Form, error) {
	form, err := s.formRepo.GetByID(ctx, formID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authz.RequireClassTeacher(ctx, actor, form.ClassID); err != nil {
		return nil, err
	}
	return form, nil
}

// ListByForm lists a form's responses with their respondents
func (s *ResponseService) ListByForm(ctx context.Context, actor authz.Actor, formID int64) ([]dto.FormResponseDTO, error) {
	if _, err := s.loadFormForTeacher(ctx, actor, formID); err != nil {
		return nil, err
	}

	responses, err := s.responseRepo.ListByForm(ctx, formID)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}

	ids := make([]int64, 0, len(responses))
	for _, r := range responses {
		ids = append(ids, r.UserID)
	}
	users, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load respondents: %w", err)
	}

	out := make([]dto.FormResponseDTO, 0, len(responses))
	for _, r := range responses {
		out = append(out, dto.FormResponseDTO{
			Response:     *r,
			Respondent:   dto.NewUserSummary(users[r.UserID]),
			ScoreVisible: true,
		})
	}
	return out, nil
}

// Get returns a response to its owner or to the class teacher
func (s *ResponseService) Get(ctx context.Context, actor authz.Actor, responseID int64) (*dto.FormResponseDTO, error) {
	resp, err := s.responseRepo.GetByID(ctx, responseID)
	if err != nil {
		return nil, err
	}
	form, err := s.formRepo.GetByID(ctx, resp.FormID)
	if err != nil {
		return nil, err
	}
	access, err := s.authz.RequireMember(ctx, actor, form.ClassID)
	if err != nil {
		return nil, err
	}

	if access.IsTeacher(actor) {
		out := &dto.FormResponseDTO{Response: *resp, ScoreVisible: true}
		if u, err := s.userRepo.GetByID(ctx, resp.UserID); err == nil {
			out.Respondent = dto.NewUserSummary(u)
		}
		return out, nil
	}
	if resp.UserID != actor.UserID {
		return nil, apperrors.NewForbiddenError("you can only view your own responses")
	}
	return respondentView(form, resp), nil
}

// MyResponse returns the caller's latest response to a form
func (s *ResponseService) MyResponse(ctx context.Context, actor authz.Actor, formID int64) (*dto.FormResponseDTO, error) {
	form, err := s.formRepo.GetByID(ctx, formID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authz.RequireMember(ctx, actor, form.ClassID); err != nil {
		return nil, err
	}

	responses, err := s.responseRepo.ListByUser(ctx, formID, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load responses: %w", err)
	}
	if len(responses) == 0 {
		return nil, apperrors.ErrResponseNotFound
	}
	return respondentView(form, responses[0]), nil
}

// GradeAnswer sets a manual score on one answer of a response. The grade is applied
// to the stored response under its lock, so concurrent graders never overwrite each other.
func (s *ResponseService) GradeAnswer(ctx context.Context, actor authz.Actor, responseID int64, req *dto.ManualGradeRequest) (*dto.FormResponseDTO, error) {
	current, err := s.responseRepo.GetByID(ctx, responseID)
	if err != nil {
		return nil, err
	}
	form, err := s.loadFormForTeacher(ctx, actor, current.FormID)
	if err != nil {
		return nil, err
	}
	if req.Points == nil {
		return nil, apperrors.NewValidationError("points are required", map[string]interface{}{"points": "required"})
	}

	var wasGraded bool
	resp, err := s.responseRepo.Mutate(ctx, responseID, func(r *models.Response) error {
		wasGraded = r.Status == models.ResponseGraded
		return grading.ApplyManualGrade(form, r, req.QuestionID, *req.Points, req.Feedback, actor.UserID, s.now())
	})
	if err != nil {
		return nil, err
	}

	if !wasGraded && grading.ScoreVisible(form, resp) {
		s.notifyGraded(ctx, form, resp)
	}
	return &dto.FormResponseDTO{Response: *resp, ScoreVisible: true}, nil
}

// ReleaseScores releases every graded response of a form. Respondents of AFTER_REVIEW
// forms are notified.
func (s *ResponseService) ReleaseScores(ctx context.Context, actor authz.Actor, formID int64) (int, error) {
	form, err := s.loadFormForTeacher(ctx, actor, formID)
	if err != nil {
		return 0, err
	}
	if !form.Settings.IsQuiz {
		return 0, apperrors.NewBadRequestError("only quizzes have scores to release")
	}

	released, err := s.responseRepo.ReleaseGraded(ctx, formID)
	if err != nil {
		return 0, fmt.Errorf("failed to release scores: %w", err)
	}
	// immediate forms already notified each student when their score became visible
	if form.Settings.ReleaseScores == models.ReleaseAfterReview {
		for _, resp := range released {
			s.notifyGraded(ctx, form, resp)
		}
	}

	s.logger.Info().Int64("formID", formID).Int("released", len(released)).Msg("Scores released")
	return len(released), nil
}

func (s *ResponseService) notifyGraded(ctx context.Context, form *models.Form, resp *models.Response) {
	notifyResponseGraded(ctx, s.notifier, form, resp)
}

// notifyResponseGraded tells a respondent their score is visible
func notifyResponseGraded(ctx context.Context, notifier *NotificationService, form *models.Form, resp *models.Response) {
	classID := form.ClassID
	notifier.Notify(ctx, []int64{resp.UserID}, NotificationPayload{
		Type:    models.NotificationResponseGraded,
		Title:   "Graded: " + form.Title,
		Body:    fmt.Sprintf("Your score: %g/%g.", resp.Score, resp.TotalPoints),
		Link:    classLink(classID, "forms", fmt.Sprint(form.ID), "responses", fmt.Sprint(resp.ID)),
		ClassID: &classID,
	})
}

// Stats summarizes a form's responses
func (s *ResponseService) Stats(ctx context.Context, actor authz.Actor, formID int64) (*grading.FormStats, error) {
	form, err := s.loadFormForTeacher(ctx, actor, formID)
	if err != nil {
		return nil, err
	}
	responses, err := s.responseRepo.ListByForm(ctx, formID)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}

	values := make([]models.Response, 0, len(responses))
	for _, r := range responses {
		values = append(values, *r)
	}
	stats := grading.Summarize(form, values)
	return &stats, nil
}
