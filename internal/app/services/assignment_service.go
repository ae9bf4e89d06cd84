package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	authz "github.com/yigit/classroom/internal/app/auth"
	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/app/models/dto"
	"github.com/yigit/classroom/internal/app/repositories"
	"github.com/yigit/classroom/internal/pkg/apperrors"
)

// AssignmentService defines coursework and submission operations
type AssignmentService interface {
	Create(ctx context.Context, actor authz.Actor, classID int64, req *dto.CreateAssignmentRequest) (*models.Assignment, error)
	Get(ctx context.Context, actor authz.Actor, assignmentID int64) (*models.Assignment, error)
	ListByClass(ctx context.Context, actor authz.Actor, classID int64) ([]*models.Assignment, error)
	Update(ctx context.Context, actor authz.Actor, assignmentID int64, req *dto.UpdateAssignmentRequest) (*models.Assignment, error)
	Delete(ctx context.Context, actor authz.Actor, assignmentID int64) error

	Submit(ctx context.Context, actor authz.Actor, assignmentID int64, req *dto.SubmitAssignmentRequest) (*models.Submission, error)
	ListSubmissions(ctx context.Context, actor authz.Actor, assignmentID int64) ([]dto.SubmissionResponse, error)
	MySubmission(ctx context.Context, actor authz.Actor, assignmentID int64) (*models.Submission, error)
	Grade(ctx context.Context, actor authz.Actor, submissionID int64, req *dto.GradeSubmissionRequest) (*models.Submission, error)
}

// assignmentServiceImpl implements AssignmentService
type assignmentServiceImpl struct {
	assignmentRepo repositories.IAssignmentRepository
	userRepo       repositories.IUserRepository
	classRepo      repositories.IClassRepository
	authz          *authz.AuthorizationService
	notifier       *NotificationService
	logger         zerolog.Logger
	now            func() time.Time
}

// NewAssignmentService creates a new AssignmentService
func NewAssignmentService(
	assignmentRepo repositories.IAssignmentRepository,
	userRepo repositories.IUserRepository,
	classRepo repositories.IClassRepository,
	authorization *authz.AuthorizationService,
	notifier *NotificationService,
	logger zerolog.Logger,
	now func() time.Time,
) AssignmentService {
	return &assignmentServiceImpl{
		assignmentRepo: assignmentRepo,
		userRepo:       userRepo,
		classRepo:      classRepo,
		authz:          authorization,
		notifier:       notifier,
		logger:         logger,
		now:            now,
	}
}

// Create adds an assignment to a class and tells its students
func (s *assignmentServiceImpl) Create(ctx context.Context, actor authz.Actor, classID int64, req *dto.CreateAssignmentRequest) (*models.Assignment, error) {
	access, err := s.authz.RequireClassTeacher(ctx, actor, classID)
	if err != nil {
		return nil, err
	}

	assignment := &models.Assignment{
		ClassID:      classID,
		Title:        strings.TrimSpace(req.Title),
		Instructions: req.Instructions,
		Points:       req.Points,
		DueAt:        req.DueAt,
		AllowLate:    req.AllowLate,
		Attachments:  dto.ToAttachments(req.Attachments),
		CreatedBy:    actor.UserID,
	}
	if assignment.Title == "" {
		return nil, apperrors.NewValidationError("title is required", map[string]interface{}{"title": "required"})
	}
	if assignment.Points < 0 || math.IsNaN(assignment.Points) {
		return nil, apperrors.NewValidationError("points must not be negative", map[string]interface{}{"points": "gte=0"})
	}

	if err := s.assignmentRepo.Create(ctx, assignment); err != nil {
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}

	s.notifyStudents(ctx, access.Class, NotificationPayload{
		Type:  models.NotificationAssignmentCreated,
		Title: "New assignment: " + assignment.Title,
		Body:  access.Class.Name,
		Link:  classLink(classID, "assignments", fmt.Sprint(assignment.ID)),
	})
	return assignment, nil
}

// notifyStudents notifies every student of a class
func (s *assignmentServiceImpl) notifyStudents(ctx context.Context, class *models.Class, payload NotificationPayload) {
	ids, err := s.classRepo.MemberIDs(ctx, class.ID, models.MemberStudent)
	if err != nil {
		s.logger.Error().Err(err).Int64("classID", class.ID).Msg("Failed to load class students for notification")
		return
	}
	classID := class.ID
	payload.ClassID = &classID
	s.notifier.Notify(ctx, ids, payload)
}

// load fetches an assignment and checks the caller belongs to its class
func (s *assignmentServiceImpl) load(ctx context.Context, actor authz.Actor, assignmentID int64, teacher bool) (*models.Assignment, *authz.ClassAccess, error) {
	assignment, err := s.assignmentRepo.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, nil, err
	}
	var access *authz.ClassAccess
	if teacher {
		access, err = s.authz.RequireClassTeacher(ctx, actor, assignment.ClassID)
	} else {
		access, err = s.authz.RequireMember(ctx, actor, assignment.ClassID)
	}
	if err != nil {
		return nil, nil, err
	}
	return assignment, access, nil
}

// Get returns an assignment of a class the caller belongs to
func (s *assignmentServiceImpl) Get(ctx context.Context, actor authz.Actor, assignmentID int64) (*models.Assignment, error) {
	assignment, _, err := s.load(ctx, actor, assignmentID, false)
	return assignment, err
}

// ListByClass lists a class's assignments, newest first
func (s *assignmentServiceImpl) ListByClass(ctx context.Context, actor authz.Actor, classID int64) ([]*models.Assignment, error) {
	if _, err := s.authz.RequireMember(ctx, actor, classID); err != nil {
		return nil, err
	}
	assignments, err := s.assignmentRepo.ListByClass(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return assignments, nil
}

// Update edits an assignment
func (s *assignmentServiceImpl) Update(ctx context.Context, actor authz.Actor, assignmentID int64, req *dto.UpdateAssignmentRequest) (*models.Assignment, error) {
	assignment, _, err := s.load(ctx, actor, assignmentID, true)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		assignment.Title = strings.TrimSpace(*req.Title)
	}
	if req.Instructions != nil {
		assignment.Instructions = *req.Instructions
	}
	if req.Points != nil {
		assignment.Points = *req.Points
	}
	if req.ClearDueAt {
		assignment.DueAt = nil
	} else if req.DueAt != nil {
		assignment.DueAt = req.DueAt
	}
	if req.AllowLate != nil {
		assignment.AllowLate = *req.AllowLate
	}
	if req.Attachments != nil {
		assignment.Attachments = dto.ToAttachments(*req.Attachments)
	}

	if assignment.Title == "" {
		return nil, apperrors.NewValidationError("title is required", map[string]interface{}{"title": "required"})
	}
	if err := s.assignmentRepo.Update(ctx, assignment); err != nil {
		return nil, fmt.Errorf("failed to update assignment: %w", err)
	}
	return assignment, nil
}

// Delete removes an assignment and its submissions
func (s *assignmentServiceImpl) Delete(ctx context.Context, actor authz.Actor, assignmentID int64) error {
	if _, _, err := s.load(ctx, actor, assignmentID, true); err != nil {
		return err
	}
	if err := s.assignmentRepo.Delete(ctx, assignmentID); err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	return nil
}

// Submit hands in or replaces the calling student's work
func (s *assignmentServiceImpl) Submit(ctx context.Context, actor authz.Actor, assignmentID int64, req *dto.SubmitAssignmentRequest) (*models.Submission, error) {
	assignment, err := s.assignmentRepo.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authz.RequireStudent(ctx, actor, assignment.ClassID); err != nil {
		return nil, err
	}

	now := s.now()
	late := assignment.IsPastDue(now)
	if late && !assignment.AllowLate {
		return nil, apperrors.ErrDeadlinePassed
	}
	if strings.TrimSpace(req.Text) == "" && len(req.Attachments) == 0 {
		return nil, apperrors.NewValidationError("a submission needs text or attachments", nil)
	}

	submission := &models.Submission{
		AssignmentID: assignmentID,
		StudentID:    actor.UserID,
		Text:         req.Text,
		Attachments:  dto.ToAttachments(req.Attachments),
		Status:       models.SubmissionSubmitted,
		Late:         late,
		SubmittedAt:  now,
	}
	if err := s.assignmentRepo.UpsertSubmission(ctx, submission); err != nil {
		return nil, fmt.Errorf("failed to save submission: %w", err)
	}

	s.logger.Debug().
		Int64("assignmentID", assignmentID).
		Int64("studentID", actor.UserID).
		Bool("late", late).
		Msg("Submission saved")
	return submission, nil
}

// ListSubmissions lists an assignment's submissions with their students
func (s *assignmentServiceImpl) ListSubmissions(ctx context.Context, actor authz.Actor, assignmentID int64) ([]dto.SubmissionResponse, error) {
	if _, _, err := s.load(ctx, actor, assignmentID, true); err != nil {
		return nil, err
	}

	submissions, err := s.assignmentRepo.ListSubmissions(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	ids := make([]int64, 0, len(submissions))
	for _, sub := range submissions {
		ids = append(ids, sub.StudentID)
	}
	users, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load students: %w", err)
	}

	out := make([]dto.SubmissionResponse, 0, len(submissions))
	for _, sub := range submissions {
		out = append(out, dto.SubmissionResponse{Submission: *sub, Student: dto.NewUserSummary(users[sub.StudentID])})
	}
	return out, nil
}

// MySubmission returns the calling student's submission
func (s *assignmentServiceImpl) MySubmission(ctx context.Context, actor authz.Actor, assignmentID int64) (*models.Submission, error) {
	if _, _, err := s.load(ctx, actor, assignmentID, false); err != nil {
		return nil, err
	}
	return s.assignmentRepo.GetSubmissionFor(ctx, assignmentID, actor.UserID)
}

// Grade scores a submission and returns it to the student
func (s *assignmentServiceImpl) Grade(ctx context.Context, actor authz.Actor, submissionID int64, req *dto.GradeSubmissionRequest) (*models.Submission, error) {
	submission, err := s.assignmentRepo.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	assignment, access, err := s.load(ctx, actor, submission.AssignmentID, true)
	if err != nil {
		return nil, err
	}

	if req.Grade == nil {
		return nil, apperrors.NewValidationError("grade is required", map[string]interface{}{"grade": "required"})
	}
	grade := math.Round(*req.Grade*100) / 100
	if grade < 0 || grade > assignment.Points || math.IsNaN(grade) {
		return nil, apperrors.NewCustomError(apperrors.ErrPointsOutOfRange, "grade must be between 0 and the assignment's points").
			WithDetails(map[string]interface{}{"min": 0, "max": assignment.Points})
	}

	now := s.now()
	submission.Grade = &grade
	submission.Feedback = strings.TrimSpace(req.Feedback)
	submission.Status = models.SubmissionReturned
	submission.GradedAt = &now
	if err := s.assignmentRepo.UpdateSubmissionGrade(ctx, submission); err != nil {
		return nil, fmt.Errorf("failed to grade submission: %w", err)
	}

	classID := access.Class.ID
	s.notifier.Notify(ctx, []int64{submission.StudentID}, NotificationPayload{
		Type:    models.NotificationSubmissionGraded,
		Title:   "Graded: " + assignment.Title,
		Body:    fmt.Sprintf("You received %g/%g.", grade, assignment.Points),
		Link:    classLink(classID, "assignments", fmt.Sprint(assignment.ID)),
		ClassID: &classID,
	})
	return submission, nil
}
