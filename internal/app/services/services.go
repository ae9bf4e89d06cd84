package services

import (
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	authz "github.com/yigit/classroom/internal/app/auth"
	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/app/repositories"
	"github.com/yigit/classroom/internal/pkg/auth"
	"github.com/yigit/classroom/internal/pkg/email"
	"github.com/yigit/classroom/internal/pkg/filestorage"
	"github.com/yigit/classroom/internal/pkg/websocket"
)

// GradingDefaults are server-wide defaults applied to new forms
type GradingDefaults struct {
	DefaultPartialCredit bool
	DefaultRelease       models.ScoreRelease
}

// Dependencies is everything the services need from the outside. Mailer may be nil
// to disable notification emails, MaxUploadBytes of zero means no upload limit and
// Now defaults to time.Now.
type Dependencies struct {
	Repos          *repositories.Repositories
	JWT            *auth.JWTService
	Storage        filestorage.FileStorage
	MaxUploadBytes int64
	Publisher      websocket.Publisher
	Mailer         email.Sender
	Grading        GradingDefaults
	Logger         zerolog.Logger
	Now            func() time.Time
}

// Services holds all the service instances
type Services struct {
	Auth          *AuthService
	User          UserService
	Authorization *authz.AuthorizationService
	Notification  *NotificationService
	Class         ClassService
	Assignment    AssignmentService
	Form          *FormService
	Response      *ResponseService
	Material      MaterialService
	Comment       CommentService
	Export        *ExportService
	Upload        *UploadService
}

// NewServices wires the services together
func NewServices(deps Dependencies) *Services {
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	if deps.Grading.DefaultRelease == "" {
		deps.Grading.DefaultRelease = models.ReleaseImmediately
	}

	repos := deps.Repos
	authorization := authz.NewAuthorizationService(repos.ClassRepository)
	notifier := NewNotificationService(repos.NotificationRepository, repos.UserRepository, deps.Publisher, deps.Mailer, deps.Logger, deps.Now)

	return &Services{
		Auth:          NewAuthService(repos.UserRepository, repos.TokenRepository, deps.JWT, deps.Logger, deps.Now),
		User:          NewUserService(repos.UserRepository, repos.TokenRepository, deps.Logger),
		Authorization: authorization,
		Notification:  notifier,
		Class:         NewClassService(repos.ClassRepository, authorization, notifier, deps.Logger),
		Assignment:    NewAssignmentService(repos.AssignmentRepository, repos.UserRepository, repos.ClassRepository, authorization, notifier, deps.Logger, deps.Now),
		Form:          NewFormService(repos.FormRepository, repos.ResponseRepository, repos.ClassRepository, authorization, notifier, deps.Grading, deps.Logger, deps.Now),
		Response:      NewResponseService(repos.ResponseRepository, repos.FormRepository, repos.UserRepository, authorization, notifier, deps.Logger, deps.Now),
		Material:      NewMaterialService(repos.MaterialRepository, repos.ClassRepository, authorization, deps.Storage, deps.MaxUploadBytes, notifier, deps.Logger),
		Comment:       NewCommentService(repos, authorization, notifier, deps.Logger),
		Export:        NewExportService(repos, authorization, deps.Logger),
		Upload:        NewUploadService(deps.Storage, deps.MaxUploadBytes, deps.Logger),
	}
}

// classLink builds the client-side path of a class resource
func classLink(classID int64, parts ...string) string {
	link := "/classes/" + strconv.FormatInt(classID, 10)
	if len(parts) > 0 {
		link += "/" + strings.Join(parts, "/")
	}
	return link
}
