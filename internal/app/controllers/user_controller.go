package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yigit/classroom/internal/app/models/dto"
	"github.com/yigit/classroom/internal/app/services"
	"github.com/yigit/classroom/internal/middleware"
	"github.com/yigit/classroom/internal/pkg/helpers"
)

// UserController handles account administration
type UserController struct {
	userService services.UserService
}

// NewUserController creates a new UserController
func NewUserController(userService services.UserService) *UserController {
	return &UserController{userService: userService}
}

// GetUsersByFilter godoc
// @Summary List accounts
// @Description Pages accounts, optionally filtered by role, status and a name/email search. Admin only.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param role query string false "Filter by role" Enums(STUDENT, TEACHER, ADMIN)
// @Param active query bool false "Filter by account status"
// @Param search query string false "Partial match on username, email, first or last name"
// @Param page query int false "Page number (1-based)" default(1) minimum(1)
// @Param size query int false "Page size (default: 10, max: 100)" default(10) minimum(1) maximum(100)
// @Success 200 {object} dto.APIResponse{data=[]dto.UserResponse} "Users retrieved successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid filter parameters"
// @Failure 403 {object} dto.ErrorResponse "Admin only"
// @Router /admin/users [get]
func (c *UserController) GetUsersByFilter(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	var filter dto.UserFilterRequest
	if !middleware.BindQuery(ctx, &filter) {
		return
	}

	page, size := helpers.ParsePaginationParams(ctx)
	users, total, err := c.userService.GetUsersByFilter(ctx.Request.Context(), actor, &filter, page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewPaginatedResponse(users, helpers.NewPaginationInfo(total, page, size)))
}

// GetUserByID godoc
// @Summary Get an account
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param userId path int true "User ID"
// @Success 200 {object} dto.APIResponse{data=dto.UserResponse} "User retrieved successfully"
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Router /admin/users/{userId} [get]
func (c *UserController) GetUserByID(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	userID, ok := parseIDParam(ctx, "userId")
	if !ok {
		return
	}

	user, err := c.userService.GetUserByID(ctx.Request.Context(), actor, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(user))
}

// SetUserStatus godoc
// @Summary Enable or disable an account
// @Description Disabled accounts cannot log in and lose their refresh tokens.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param userId path int true "User ID"
// @Param request body dto.SetUserStatusRequest true "New status"
// @Success 200 {object} dto.APIResponse{data=dto.UserResponse} "Status updated"
// @Failure 400 {object} dto.ErrorResponse "Cannot disable yourself"
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Router /admin/users/{userId}/status [put]
func (c *UserController) SetUserStatus(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	userID, ok := parseIDParam(ctx, "userId")
	if !ok {
		return
	}

	var req dto.SetUserStatusRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	user, err := c.userService.SetActive(ctx.Request.Context(), actor, userID, *req.Active)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(user))
}
