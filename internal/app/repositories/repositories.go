package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/classroom/internal/app/models"
)

// IUserRepository defines user persistence
type IUserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	// GetByIdentifier matches username or email, case-insensitively
	GetByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
	UpdateLastLogin(ctx context.Context, userID int64, at time.Time) error
	CountByRole(ctx context.Context, role models.RoleType) (int64, error)
	// FindByFilter pages users ordered by id
	FindByFilter(ctx context.Context, filter UserFilter, page, size int) ([]*models.User, int64, error)
}

// UserFilter narrows an account listing. Zero values match everything.
type UserFilter struct {
	Role   *models.RoleType
	Active *bool
	// Search matches username, email, first or last name as a case-insensitive substring
	Search string
}

// ITokenRepository defines refresh token persistence
type ITokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByToken(ctx context.Context, token string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, token string) error
	RevokeAllForUser(ctx context.Context, userID int64) error
}

// IClassRepository defines class and membership persistence
type IClassRepository interface {
	// Create stores the class and the owner's TEACHER membership together
	Create(ctx context.Context, class *models.Class) error
	GetByID(ctx context.Context, id int64) (*models.Class, error)
	GetByCode(ctx context.Context, code string) (*models.Class, error)
	ListForUser(ctx context.Context, userID int64, includeArchived bool, page, size int) ([]*models.Class, int64, error)
	Update(ctx context.Context, class *models.Class) error
	UpdateCode(ctx context.Context, classID int64, code string) error
	Delete(ctx context.Context, id int64) error

	AddMember(ctx context.Context, member *models.ClassMember) error
	GetMember(ctx context.Context, classID, userID int64) (*models.ClassMember, error)
	ListMembers(ctx context.Context, classID int64) ([]*models.ClassMember, error)
	RemoveMember(ctx context.Context, classID, userID int64) error
	// MemberIDs lists member user ids; an empty role matches everyone
	MemberIDs(ctx context.Context, classID int64, role models.MemberRole) ([]int64, error)
}

// IAssignmentRepository defines assignment and submission persistence
type IAssignmentRepository interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	GetByID(ctx context.Context, id int64) (*models.Assignment, error)
	ListByClass(ctx context.Context, classID int64) ([]*models.Assignment, error)
	Update(ctx context.Context, assignment *models.Assignment) error
	Delete(ctx context.Context, id int64) error

	// UpsertSubmission inserts or replaces the student's submission for the assignment
	UpsertSubmission(ctx context.Context, submission *models.Submission) error
	GetSubmission(ctx context.Context, id int64) (*models.Submission, error)
	GetSubmissionFor(ctx context.Context, assignmentID, studentID int64) (*models.Submission, error)
	ListSubmissions(ctx context.Context, assignmentID int64) ([]*models.Submission, error)
	ListSubmissionsByClass(ctx context.Context, classID int64) ([]*models.Submission, error)
	UpdateSubmissionGrade(ctx context.Context, submission *models.Submission) error
}

// IFormRepository defines form persistence
type IFormRepository interface {
	Create(ctx context.Context, form *models.Form) error
	GetByID(ctx context.Context, id int64) (*models.Form, error)
	ListByClass(ctx context.Context, classID int64, publishedOnly bool) ([]*models.Form, error)
	Update(ctx context.Context, form *models.Form) error
	Delete(ctx context.Context, id int64) error
}

// IResponseRepository defines form response persistence
type IResponseRepository interface {
	// Create stores a response. With exclusive set, it fails with
	// apperrors.ErrAlreadyResponded when the user already responded to the form.
	Create(ctx context.Context, response *models.Response, exclusive bool) error
	GetByID(ctx context.Context, id int64) (*models.Response, error)
	ListByForm(ctx context.Context, formID int64) ([]*models.Response, error)
	ListByUser(ctx context.Context, formID, userID int64) ([]*models.Response, error)
	ListByClass(ctx context.Context, classID int64) ([]*models.Response, error)
	// Mutate loads a response, applies fn and saves it as one atomic step.
	// Concurrent callers on the same response are serialized.
	Mutate(ctx context.Context, id int64, fn func(*models.Response) error) (*models.Response, error)
	// StartAttempt records the start of a timed attempt, keeping an already open one.
	// Create closes the attempt.
	StartAttempt(ctx context.Context, formID, userID int64, now time.Time) (time.Time, error)
	GetAttempt(ctx context.Context, formID, userID int64) (*time.Time, error)
	// ReleaseGraded marks every unreleased GRADED response of the form released
	// and returns the responses it changed
	ReleaseGraded(ctx context.Context, formID int64) ([]*models.Response, error)
}

// IMaterialRepository defines material persistence
type IMaterialRepository interface {
	Create(ctx context.Context, material *models.Material) error
	GetByID(ctx context.Context, id int64) (*models.Material, error)
	ListByClass(ctx context.Context, classID int64) ([]*models.Material, error)
	Update(ctx context.Context, material *models.Material) error
	Delete(ctx context.Context, id int64) error
}

// ICommentRepository defines comment persistence
type ICommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id int64) (*models.Comment, error)
	// ListByTarget pages comments oldest first with authors attached
	ListByTarget(ctx context.Context, target models.CommentTarget, targetID int64, page, size int) ([]*models.Comment, int64, error)
	Update(ctx context.Context, comment *models.Comment) error
	Delete(ctx context.Context, id int64) error
}

// INotificationRepository defines notification persistence
type INotificationRepository interface {
	CreateMany(ctx context.Context, notifications []*models.Notification) error
	// List pages a user's notifications newest first
	List(ctx context.Context, userID int64, unreadOnly bool, page, size int) ([]*models.Notification, int64, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
	MarkRead(ctx context.Context, id, userID int64, at time.Time) error
	MarkAllRead(ctx context.Context, userID int64, at time.Time) (int64, error)
	Delete(ctx context.Context, id, userID int64) error
}

// Repositories holds all the repository instances
type Repositories struct {
	UserRepository         IUserRepository
	TokenRepository        ITokenRepository
	ClassRepository        IClassRepository
	AssignmentRepository   IAssignmentRepository
	FormRepository         IFormRepository
	ResponseRepository     IResponseRepository
	MaterialRepository     IMaterialRepository
	CommentRepository      ICommentRepository
	NotificationRepository INotificationRepository
}

// NewRepositories initializes the PostgreSQL repositories
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		UserRepository:         NewUserRepository(db),
		TokenRepository:        NewTokenRepository(db),
		ClassRepository:        NewClassRepository(db),
		AssignmentRepository:   NewAssignmentRepository(db),
		FormRepository:         NewFormRepository(db),
		ResponseRepository:     NewResponseRepository(db),
		MaterialRepository:     NewMaterialRepository(db),
		CommentRepository:      NewCommentRepository(db),
		NotificationRepository: NewNotificationRepository(db),
	}
}
