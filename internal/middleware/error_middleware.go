package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yigit/classroom/internal/app/models/dto"
	"github.com/yigit/classroom/internal/pkg/apperrors"
	"github.com/yigit/classroom/internal/pkg/logger"
)

// apiError is the HTTP rendering of a group of domain errors
type apiError struct {
	targets []error
	status  int
	code    dto.ErrorCode
}

// errorTable is matched top to bottom, so specific sentinels come before generic ones
var errorTable = []apiError{
	// authentication
	{[]error{apperrors.ErrInvalidCredentials}, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials},
	{[]error{apperrors.ErrTokenExpired}, http.StatusUnauthorized, dto.ErrorCodeExpiredToken},
	{[]error{apperrors.ErrTokenNotFound}, http.StatusUnauthorized, dto.ErrorCodeTokenNotFound},
	{[]error{apperrors.ErrTokenInvalid, apperrors.ErrTokenRevoked, apperrors.ErrInvalidFormat}, http.StatusUnauthorized, dto.ErrorCodeInvalidToken},
	{[]error{apperrors.ErrAccountDisabled}, http.StatusForbidden, dto.ErrorCodeAccountDisabled},

	// not found
	{[]error{
		apperrors.ErrUserNotFound,
		apperrors.ErrClassNotFound,
		apperrors.ErrAssignmentNotFound,
		apperrors.ErrSubmissionNotFound,
		apperrors.ErrMaterialNotFound,
		apperrors.ErrCommentNotFound,
		apperrors.ErrFormNotFound,
		apperrors.ErrResponseNotFound,
		apperrors.ErrNotificationAbsent,
		apperrors.ErrResourceNotFound,
	}, http.StatusNotFound, dto.ErrorCodeResourceNotFound},

	// conflicts
	{[]error{apperrors.ErrEmailAlreadyExists, apperrors.ErrUsernameExists, apperrors.ErrResourceAlreadyExists}, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists},
	{[]error{apperrors.ErrAlreadyEnrolled, apperrors.ErrAlreadyResponded, apperrors.ErrAttemptNotStarted, apperrors.ErrConflict}, http.StatusConflict, dto.ErrorCodeConflict},

	// forbidden state transitions
	{[]error{
		apperrors.ErrPermissionDenied,
		apperrors.ErrNotClassMember,
		apperrors.ErrClassArchived,
		apperrors.ErrDeadlinePassed,
		apperrors.ErrFormNotPublished,
		apperrors.ErrFormNotOpen,
		apperrors.ErrFormClosed,
	}, http.StatusForbidden, dto.ErrorCodeForbidden},

	// bad input
	{[]error{
		apperrors.ErrValidationFailed,
		apperrors.ErrInvalidEmail,
		apperrors.ErrInvalidUsername,
		apperrors.ErrInvalidPassword,
		apperrors.ErrInvalidAnswer,
		apperrors.ErrMissingAnswer,
		apperrors.ErrPointsOutOfRange,
		apperrors.ErrQuestionNotFound,
	}, http.StatusBadRequest, dto.ErrorCodeValidationFailed},
	{[]error{apperrors.ErrInvalidClassCode, apperrors.ErrQuestionNotGraded, apperrors.ErrBadRequest}, http.StatusBadRequest, dto.ErrorCodeBadRequest},
}

func matchTarget(err error, targets []error) error {
	for _, target := range targets {
		if apperrors.Is(err, target) {
			return target
		}
	}
	return nil
}

// ErrorStatus returns the HTTP status and error detail err renders to
func ErrorStatus(err error) (int, *dto.ErrorDetail) {
	for _, e := range errorTable {
		matched := matchTarget(err, e.targets)
		if matched == nil {
			continue
		}

		// wrapped errors may carry internals, so only the sentinel text is exposed
		message := apperrors.MessageOf(err)
		if message == "" {
			message = matched.Error()
		}
		detail := dto.NewErrorDetail(e.code, message).WithSeverity(dto.ErrorSeverityWarning)
		if details := apperrors.DetailsOf(err); len(details) > 0 {
			detail = detail.WithDetails(details)
		}
		return e.status, detail
	}

	return http.StatusInternalServerError, dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error").
		WithSeverity(dto.ErrorSeverityCritical)
}

// HandleAPIError handles common API errors and returns appropriate responses
func HandleAPIError(c *gin.Context, err error) {
	status, detail := ErrorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("Unhandled error")
	}
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(detail))
}
