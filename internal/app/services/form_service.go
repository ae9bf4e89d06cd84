package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	authz "github.com/yigit/classroom/internal/app/auth"
	"github.com/yigit/classroom/internal/app/grading"
	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/app/models/dto"
	"github.com/yigit/classroom/internal/app/repositories"
	"github.com/yigit/classroom/internal/pkg/apperrors"
)

// FormService manages exams, quizzes and surveys
type FormService struct {
	formRepo     repositories.IFormRepository
	responseRepo repositories.IResponseRepository
	classRepo    repositories.IClassRepository
	authz        *authz.AuthorizationService
	notifier     *NotificationService
	defaults     GradingDefaults
	logger       zerolog.Logger
	now          func() time.Time
}

// NewFormService creates a new FormService
func NewFormService(
	formRepo repositories.IFormRepository,
	responseRepo repositories.IResponseRepository,
	classRepo repositories.IClassRepository,
	authorization *authz.AuthorizationService,
	notifier *NotificationService,
	defaults GradingDefaults,
	logger zerolog.Logger,
	now func() time.Time,
) *FormService {
	return &FormService{
		formRepo:     formRepo,
		responseRepo: responseRepo,
		classRepo:    classRepo,
		authz:        authorization,
		notifier:     notifier,
		defaults:     defaults,
		logger:       logger,
		now:          now,
	}
}

// apply copies a form definition from req onto form and validates it
func (s *FormService) apply(form *models.Form, req *dto.FormRequest) error {
	form.Title = strings.TrimSpace(req.Title)
	form.Description = req.Description
	form.Questions = req.ToQuestions(s.defaults.DefaultPartialCredit)
	form.Settings = req.Settings
	if form.Settings.ReleaseScores == "" {
		form.Settings.ReleaseScores = s.defaults.DefaultRelease
	}

	grading.Normalize(form)
	return grading.ValidateForm(form)
}

func newFormResponse(form *models.Form) *dto.FormResponse {
	return &dto.FormResponse{Form: *form, TotalPoints: grading.TotalPoints(form)}
}

// Create adds an unpublished form to a class
func (s *FormService) Create(ctx context.Context, actor authz.Actor, classID int64, req *dto.FormRequest) (*dto.FormResponse, error) {
	if _, err := s.authz.RequireClassTeacher(ctx, actor, classID); err != nil {
		return nil, err
	}

	form := &models.Form{ClassID: classID, CreatedBy: actor.UserID}
	if err := s.apply(form, req); err != nil {
		return nil, err
	}
	if err := s.formRepo.Create(ctx, form); err != nil {
		return nil, fmt.Errorf("failed to create form: %w", err)
	}

	s.logger.Info().
		Int64("formID", form.ID).
		Int64("classID", classID).
		Int("questions", len(form.Questions)).
		Msg("Form created")
	return newFormResponse(form), nil
}

// loadForTeacher fetches a form the caller teaches
func (s *FormService) loadForTeacher(ctx context.Context, actor authz.Actor, formID int64) (*models.Form, *authz.ClassAccess, error) {
	form, err := s.formRepo.GetByID(ctx, formID)
	if err != nil {
		return nil, nil, err
	}
	access, err := s.authz.RequireClassTeacher(ctx, actor, form.ClassID)
	if err != nil {
		return nil, nil, err
	}
	return form, access, nil
}

// Get returns a form. Teachers see the full definition; students see the published
// form without the answer key, shuffled for them when shuffling is on.
func (s *FormService) Get(ctx context.Context, actor authz.Actor, formID int64) (*dto.FormResponse, error) {
	form, err := s.formRepo.GetByID(ctx, formID)
	if err != nil {
		return nil, err
	}
	access, err := s.authz.RequireMember(ctx, actor, form.ClassID)
	if err != nil {
		return nil, err
	}
	if access.IsTeacher(actor) {
		return newFormResponse(form), nil
	}
	if !form.Published {
		return nil, apperrors.ErrFormNotFound
	}

	view := grading.RespondentForm(form, actor.UserID, false)
	return &dto.FormResponse{Form: view, TotalPoints: grading.TotalPoints(form)}, nil
}

// ListByClass lists a class's forms; students only see published ones
func (s *FormService) ListByClass(ctx context.Context, actor authz.Actor, classID int64) ([]dto.FormSummary, error) {
	access, err := s.authz.RequireMember(ctx, actor, classID)
	if err != nil {
		return nil, err
	}

	forms, err := s.formRepo.ListByClass(ctx, classID, !access.IsTeacher(actor))
	if err != nil {
		return nil, fmt.Errorf("failed to list forms: %w", err)
	}
	out := make([]dto.FormSummary, 0, len(forms))
	for _, f := range forms {
		out = append(out, dto.NewFormSummary(f, grading.TotalPoints(f)))
	}
	return out, nil
}

// Update replaces a form definition and regrades the responses already submitted
func (s *FormService) Update(ctx context.Context, actor authz.Actor, formID int64, req *dto.FormRequest) (*dto.FormResponse, error) {
	form, _, err := s.loadForTeacher(ctx, actor, formID)
	if err != nil {
		return nil, err
	}
	if err := s.apply(form, req); err != nil {
		return nil, err
	}
	if err := s.formRepo.Update(ctx, form); err != nil {
		return nil, fmt.Errorf("failed to update form: %w", err)
	}
	if err := s.regradeResponses(ctx, form); err != nil {
		return nil, err
	}
	return newFormResponse(form), nil
}

// regradeResponses rescores every stored response against the current form.
// Respondents whose score becomes visible are notified.
func (s *FormService) regradeResponses(ctx context.Context, form *models.Form) error {
	responses, err := s.responseRepo.ListByForm(ctx, form.ID)
	if err != nil {
		return fmt.Errorf("failed to list responses: %w", err)
	}

	var errs []error
	for _, r := range responses {
		var wasGraded bool
		updated, err := s.responseRepo.Mutate(ctx, r.ID, func(resp *models.Response) error {
			wasGraded = resp.Status == models.ResponseGraded
			grading.Regrade(form, resp, s.now())
			return nil
		})
		if err != nil {
			s.logger.Error().Err(err).Int64("formID", form.ID).Int64("responseID", r.ID).Msg("Failed to regrade response")
			errs = append(errs, err)
			continue
		}
		if !wasGraded && grading.ScoreVisible(form, updated) {
			notifyResponseGraded(ctx, s.notifier, form, updated)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to regrade %d response(s): %w", len(errs), errors.Join(errs...))
	}

	if len(responses) > 0 {
		s.logger.Info().Int64("formID", form.ID).Int("responses", len(responses)).Msg("Responses regraded")
	}
	return nil
}

// Delete removes a form and its responses
func (s *FormService) Delete(ctx context.Context, actor authz.Actor, formID int64) error {
	if _, _, err := s.loadForTeacher(ctx, actor, formID); err != nil {
		return err
	}
	if err := s.formRepo.Delete(ctx, formID); err != nil {
		return fmt.Errorf("failed to delete form: %w", err)
	}
	return nil
}

// Publish makes a form visible to students and notifies them the first time
func (s *FormService) Publish(ctx context.Context, actor authz.Actor, formID int64) (*dto.FormResponse, error) {
	form, access, err := s.loadForTeacher(ctx, actor, formID)
	if err != nil {
		return nil, err
	}
	if len(form.Questions) == 0 {
		return nil, apperrors.NewBadRequestError("a form needs at least one question before publishing")
	}
	if form.Published {
		return newFormResponse(form), nil
	}

	firstPublish := form.PublishedAt == nil
	form.Published = true
	if firstPublish {
		form.PublishedAt = models.TimePtr(s.now())
	}
	if err := s.formRepo.Update(ctx, form); err != nil {
		return nil, fmt.Errorf("failed to publish form: %w", err)
	}

	if firstPublish {
		ids, err := s.classRepo.MemberIDs(ctx, form.ClassID, models.MemberStudent)
		if err != nil {
			s.logger.Error().Err(err).Int64("formID", form.ID).Msg("Failed to load students for form notification")
		} else {
			classID := form.ClassID
			s.notifier.Notify(ctx, ids, NotificationPayload{
				Type:    models.NotificationFormPublished,
				Title:   "New form: " + form.Title,
				Body:    access.Class.Name,
				Link:    classLink(classID, "forms", fmt.Sprint(form.ID)),
				ClassID: &classID,
			})
		}
	}
	return newFormResponse(form), nil
}

// Unpublish hides a form from students
func (s *FormService) Unpublish(ctx context.Context, actor authz.Actor, formID int64) (*dto.FormResponse, error) {
	form, _, err := s.loadForTeacher(ctx, actor, formID)
	if err != nil {
		return nil, err
	}
	if !form.Published {
		return newFormResponse(form), nil
	}
	form.Published = false
	if err := s.formRepo.Update(ctx, form); err != nil {
		return nil, fmt.Errorf("failed to unpublish form: %w", err)
	}
	return newFormResponse(form), nil
}
