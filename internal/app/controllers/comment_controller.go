package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/app/models/dto"
	"github.com/yigit/classroom/internal/app/services"
	"github.com/yigit/classroom/internal/middleware"
	"github.com/yigit/classroom/internal/pkg/helpers"
)

// CommentController handles comments on class resources
type CommentController struct {
	commentService services.CommentService
}

// NewCommentController creates a new CommentController
func NewCommentController(commentService services.CommentService) *CommentController {
	return &CommentController{commentService: commentService}
}

// CreateComment posts a comment on a class, assignment, material or form
// @Summary Create a comment
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param classId path int true "Class ID"
// @Param request body dto.CreateCommentRequest true "Comment"
// @Success 201 {object} dto.APIResponse{data=dto.CommentResponse} "Comment created"
// @Failure 403 {object} dto.ErrorResponse "Not a member"
// @Failure 404 {object} dto.ErrorResponse "Target not found"
// @Router /classes/{classId}/comments [post]
func (c *CommentController) CreateComment(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	classID, ok := parseIDParam(ctx, "classId")
	if !ok {
		return
	}

	var req dto.CreateCommentRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	comment, err := c.commentService.Create(ctx.Request.Context(), actor, classID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(comment))
}

// ListComments pages the comments on a target, oldest first
// @Summary List comments
// @Tags comments
// @Produce json
// @Security BearerAuth
// @Param classId path int true "Class ID"
// @Param targetType query string false "Target type" Enums(CLASS, ASSIGNMENT, MATERIAL, FORM) default(CLASS)
// @Param targetId query int false "Target ID (ignored for CLASS)"
// @Param page query int false "Page number (1-based)" default(1) minimum(1)
// @Param size query int false "Page size (default: 10, max: 100)" default(10) minimum(1) maximum(100)
// @Success 200 {object} dto.APIResponse{data=[]dto.CommentResponse} "Comments"
// @Failure 400 {object} dto.ErrorResponse "Invalid target"
// @Router /classes/{classId}/comments [get]
func (c *CommentController) ListComments(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	classID, ok := parseIDParam(ctx, "classId")
	if !ok {
		return
	}

	target := models.CommentTarget(strings.ToUpper(ctx.DefaultQuery("targetType", string(models.CommentOnClass))))
	if !target.IsValid() {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid target type").
			WithField("targetType").
			WithDetails("targetType must be one of: CLASS ASSIGNMENT MATERIAL FORM")
		ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	var targetID int64
	if raw := ctx.Query("targetId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid targetId").WithField("targetId")
			ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
			return
		}
		targetID = id
	}

	page, size := helpers.ParsePaginationParams(ctx)
	comments, total, err := c.commentService.ListByTarget(ctx.Request.Context(), actor, classID, target, targetID, page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewPaginatedResponse(comments, helpers.NewPaginationInfo(total, page, size)))
}

// UpdateComment edits the caller's comment
// @Summary Update a comment
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param commentId path int true "Comment ID"
// @Param request body dto.UpdateCommentRequest true "New body"
// @Success 200 {object} dto.APIResponse{data=dto.CommentResponse} "Updated comment"
// @Failure 403 {object} dto.ErrorResponse "Not the author"
// @Router /comments/{commentId} [patch]
func (c *CommentController) UpdateComment(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	commentID, ok := parseIDParam(ctx, "commentId")
	if !ok {
		return
	}

	var req dto.UpdateCommentRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	comment, err := c.commentService.Update(ctx.Request.Context(), actor, commentID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(comment))
}

// DeleteComment deletes a comment as its author or the class teacher
// @Summary Delete a comment
// @Tags comments
// @Security BearerAuth
// @Param commentId path int true "Comment ID"
// @Success 204 "Deleted"
// @Router /comments/{commentId} [delete]
func (c *CommentController) DeleteComment(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	commentID, ok := parseIDParam(ctx, "commentId")
	if !ok {
		return
	}

	if err := c.commentService.Delete(ctx.Request.Context(), actor, commentID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}
