package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yigit/classroom/internal/app/models/dto"
	"github.com/yigit/classroom/internal/app/services"
	"github.com/yigit/classroom/internal/middleware"
	"github.com/yigit/classroom/internal/pkg/helpers"
)

// ClassController handles classes and their membership
type ClassController struct {
	classService services.ClassService
}

// NewClassController creates a new ClassController
func NewClassController(classService services.ClassService) *ClassController {
	return &ClassController{classService: classService}
}

// CreateClass creates a class owned by the caller
// @Summary Create a class
// @Description Creates a class and a join code. The creator becomes its teacher.
// @Tags classes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateClassRequest true "Class information"
// @Success 201 {object} dto.APIResponse{data=dto.ClassResponse} "Class created"
// @Failure 400 {object} dto.ErrorResponse "Validation error"
// @Failure 403 {object} dto.ErrorResponse "Only teachers can create classes"
// @Router /classes [post]
func (c *ClassController) CreateClass(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	var req dto.CreateClassRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	class, err := c.classService.Create(ctx.Request.Context(), actor, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(class))
}

// ListClasses lists the classes the caller belongs to
// @Summary List my classes
// @Tags classes
// @Produce json
// @Security BearerAuth
// @Param archived query bool false "Include archived classes"
// @Param page query int false "Page number (1-based)" default(1) minimum(1)
// @Param size query int false "Page size (default: 10, max: 100)" default(10) minimum(1) maximum(100)
// @Success 200 {object} dto.APIResponse{data=[]dto.ClassResponse} "Classes"
// @Router /classes [get]
func (c *ClassController) ListClasses(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	page, size := helpers.ParsePaginationParams(ctx)
	classes, total, err := c.classService.ListMine(ctx.Request.Context(), actor, parseBoolQuery(ctx, "archived"), page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewPaginatedResponse(classes, helpers.NewPaginationInfo(total, page, size)))
}

// GetClass returns a class the caller can read
// @Summary Get a class
// @Tags classes
// @Produce json
// @Security BearerAuth
// @Param classId path int true "Class ID"
// @Success 200 {object} dto.APIResponse{data=dto.ClassResponse} "Class"
// @Failure 403 {object} dto.ErrorResponse "Not a member"
// @Failure 404 {object} dto.ErrorResponse "Class not found"
// @Router /classes/{classId} [get]
func (c *ClassController) GetClass(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	classID, ok := parseIDParam(ctx, "classId")
	if !ok {
		return
	}

	class, err := c.classService.Get(ctx.Request.Context(), actor, classID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(class))
}

// UpdateClass updates class details or archives it
// @Summary Update a class
// @Tags classes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param classId path int true "Class ID"
// @Param request body dto.UpdateClassRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.ClassResponse} "Updated class"
// @Failure 403 {object} dto.ErrorResponse "Only the class teacher can update it"
// @Router /classes/{classId} [patch]
func (c *ClassController) UpdateClass(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	classID, ok := parseIDParam(ctx, "classId")
	if !ok {
		return
	}

	var req dto.UpdateClassRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	class, err := c.classService.Update(ctx.Request.Context(), actor, classID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(class))
}

// DeleteClass deletes a class and everything in it
// @Summary Delete a class
// @Tags classes
// @Security BearerAuth
// @Param classId path int true "Class ID"
// @Success 204 "Deleted"
// @Failure 403 {object} dto.ErrorResponse "Only the class teacher can delete it"
// @Router /classes/{classId} [delete]
func (c *ClassController) DeleteClass(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	classID, ok := parseIDParam(ctx, "classId")
	if !ok {
		return
	}

	if err := c.classService.Delete(ctx.Request.Context(), actor, classID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// JoinClass enrolls the caller as a student using a join code
// @Summary Join a class
// @Tags classes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.JoinClassRequest true "Join code"
// @Success 200 {object} dto.APIResponse{data=dto.ClassResponse} "Joined class"
// @Failure 400 {object} dto.ErrorResponse "Invalid class code"
// @Failure 403 {object} dto.ErrorResponse "Class archived"
// @Failure 409 {object} dto.ErrorResponse "Already a member"
// @Router /classes/join [post]
func (c *ClassController) JoinClass(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	var req dto.JoinClassRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	class, err := c.classService.Join(ctx.Request.Context(), actor, req.Code)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(class))
}

// LeaveClass removes the caller from a class
// @Summary Leave a class
// @Tags classes
// @Security BearerAuth
// @Param classId path int true "Class ID"
// @Success 204 "Left"
// @Router /classes/{classId}/leave [post]
func (c *ClassController) LeaveClass(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	classID, ok := parseIDParam(ctx, "classId")
	if !ok {
		return
	}

	if err := c.classService.Leave(ctx.Request.Context(), actor, classID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// ListMembers lists the members of a class
// @Summary List class members
// @Tags classes
// @Produce json
// @Security BearerAuth
// @Param classId path int true "Class ID"
// @Success 200 {object} dto.APIResponse{data=[]dto.MemberResponse} "Members"
// @Router /classes/{classId}/members [get]
func (c *ClassController) ListMembers(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	classID, ok := parseIDParam(ctx, "classId")
	if !ok {
		return
	}

	members, err := c.classService.ListMembers(ctx.Request.Context(), actor, classID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(members))
}

// RemoveMember removes a student from a class
// @Summary Remove a member
// @Tags classes
// @Security BearerAuth
// @Param classId path int true "Class ID"
// @Param userId path int true "User ID"
// @Success 204 "Removed"
// @Failure 403 {object} dto.ErrorResponse "Only the class teacher can remove members"
// @Router /classes/{classId}/members/{userId} [delete]
func (c *ClassController) RemoveMember(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	classID, ok := parseIDParam(ctx, "classId")
	if !ok {
		return
	}
	userID, ok := parseIDParam(ctx, "userId")
	if !ok {
		return
	}

	if err := c.classService.RemoveMember(ctx.Request.Context(), actor, classID, userID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// RegenerateCode issues a new join code
// @Summary Regenerate join code
// @Tags classes
// @Produce json
// @Security BearerAuth
// @Param classId path int true "Class ID"
// @Success 200 {object} dto.APIResponse{data=dto.ClassResponse} "Class with new code"
// @Router /classes/{classId}/code [post]
func (c *ClassController) RegenerateCode(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	classID, ok := parseIDParam(ctx, "classId")
	if !ok {
		return
	}

	class, err := c.classService.RegenerateCode(ctx.Request.Context(), actor, classID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(class))
}
