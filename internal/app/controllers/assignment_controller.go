package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yigit/classroom/internal/app/models/dto"
	"github.com/yigit/classroom/internal/app/services"
	"github.com/yigit/classroom/internal/middleware"
)

// AssignmentController handles assignments and submissions
type AssignmentController struct {
	assignmentService services.AssignmentService
}

// NewAssignmentController creates a new AssignmentController
func NewAssignmentController(assignmentService services.AssignmentService) *AssignmentController {
	return &AssignmentController{assignmentService: assignmentService}
}

// CreateAssignment creates an assignment in a class
// @Summary Create an assignment
// @Description Creates an assignment and notifies the class students
// @Tags assignments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param classId path int true "Class ID"
// @Param request body dto.CreateAssignmentRequest true "Assignment"
// @Success 201 {object} dto.APIResponse{data=models.Assignment} "Assignment created"
// @Failure 400 {object} dto.ErrorResponse "Validation error"
// @Failure 403 {object} dto.ErrorResponse "Only the class teacher can create assignments"
// @Router /classes/{classId}/assignments [post]
func (c *AssignmentController) CreateAssignment(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	classID, ok := parseIDParam(ctx, "classId")
	if !ok {
		return
	}

	var req dto.CreateAssignmentRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	assignment, err := c.assignmentService.Create(ctx.Request.Context(), actor, classID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(assignment))
}

// ListAssignments lists the assignments of a class
// @Summary List assignments
// @Tags assignments
// @Produce json
// @Security BearerAuth
// @Param classId path int true "Class ID"
// @Success 200 {object} dto.APIResponse{data=[]models.Assignment} "Assignments"
// @Router /classes/{classId}/assignments [get]
func (c *AssignmentController) ListAssignments(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	classID, ok := parseIDParam(ctx, "classId")
	if !ok {
		return
	}

	assignments, err := c.assignmentService.ListByClass(ctx.Request.Context(), actor, classID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(assignments))
}

// GetAssignment returns one assignment
// @Summary Get an assignment
// @Tags assignments
// @Produce json
// @Security BearerAuth
// @Param assignmentId path int true "Assignment ID"
// @Success 200 {object} dto.APIResponse{data=models.Assignment} "Assignment"
// @Failure 404 {object} dto.ErrorResponse "Assignment not found"
// @Router /assignments/{assignmentId} [get]
func (c *AssignmentController) GetAssignment(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	assignmentID, ok := parseIDParam(ctx, "assignmentId")
	if !ok {
		return
	}

	assignment, err := c.assignmentService.Get(ctx.Request.Context(), actor, assignmentID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(assignment))
}

// UpdateAssignment changes an assignment
// @Summary Update an assignment
// @Tags assignments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param assignmentId path int true "Assignment ID"
// @Param request body dto.UpdateAssignmentRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=models.Assignment} "Updated assignment"
// @Router /assignments/{assignmentId} [patch]
func (c *AssignmentController) UpdateAssignment(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	assignmentID, ok := parseIDParam(ctx, "assignmentId")
	if !ok {
		return
	}

	var req dto.UpdateAssignmentRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	assignment, err := c.assignmentService.Update(ctx.Request.Context(), actor, assignmentID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(assignment))
}

// DeleteAssignment deletes an assignment and its submissions
// @Summary Delete an assignment
// @Tags assignments
// @Security BearerAuth
// @Param assignmentId path int true "Assignment ID"
// @Success 204 "Deleted"
// @Router /assignments/{assignmentId} [delete]
func (c *AssignmentController) DeleteAssignment(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	assignmentID, ok := parseIDParam(ctx, "assignmentId")
	if !ok {
		return
	}

	if err := c.assignmentService.Delete(ctx.Request.Context(), actor, assignmentID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// Submit turns in or replaces the caller's work
// @Summary Submit an assignment
// @Description Creates or replaces the caller's submission. Rejected after the due date unless late work is allowed.
// @Tags assignments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param assignmentId path int true "Assignment ID"
// @Param request body dto.SubmitAssignmentRequest true "Submission"
// @Success 200 {object} dto.APIResponse{data=models.Submission} "Submission stored"
// @Failure 403 {object} dto.ErrorResponse "Deadline passed or not a student of the class"
// @Router /assignments/{assignmentId}/submissions [post]
func (c *AssignmentController) Submit(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	assignmentID, ok := parseIDParam(ctx, "assignmentId")
	if !ok {
		return
	}

	var req dto.SubmitAssignmentRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	submission, err := c.assignmentService.Submit(ctx.Request.Context(), actor, assignmentID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(submission))
}

// ListSubmissions lists every submission of an assignment
// @Summary List submissions
// @Tags assignments
// @Produce json
// @Security BearerAuth
// @Param assignmentId path int true "Assignment ID"
// @Success 200 {object} dto.APIResponse{data=[]dto.SubmissionResponse} "Submissions"
// @Failure 403 {object} dto.ErrorResponse "Only the class teacher can list submissions"
// @Router /assignments/{assignmentId}/submissions [get]
func (c *AssignmentController) ListSubmissions(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	assignmentID, ok := parseIDParam(ctx, "assignmentId")
	if !ok {
		return
	}

	submissions, err := c.assignmentService.ListSubmissions(ctx.Request.Context(), actor, assignmentID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(submissions))
}

// MySubmission returns the caller's submission
// @Summary Get my submission
// @Tags assignments
// @Produce json
// @Security BearerAuth
// @Param assignmentId path int true "Assignment ID"
// @Success 200 {object} dto.APIResponse{data=models.Submission} "Submission"
// @Failure 404 {object} dto.ErrorResponse "Nothing submitted yet"
// @Router /assignments/{assignmentId}/submissions/me [get]
func (c *AssignmentController) MySubmission(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	assignmentID, ok := parseIDParam(ctx, "assignmentId")
	if !ok {
		return
	}

	submission, err := c.assignmentService.MySubmission(ctx.Request.Context(), actor, assignmentID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(submission))
}

// GradeSubmission grades a submission and notifies the student
// @Summary Grade a submission
// @Tags assignments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param submissionId path int true "Submission ID"
// @Param request body dto.GradeSubmissionRequest true "Grade and feedback"
// @Success 200 {object} dto.APIResponse{data=models.Submission} "Graded submission"
// @Failure 400 {object} dto.ErrorResponse "Grade out of range"
// @Router /submissions/{submissionId}/grade [put]
func (c *AssignmentController) GradeSubmission(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	submissionID, ok := parseIDParam(ctx, "submissionId")
	if !ok {
		return
	}

	var req dto.GradeSubmissionRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	submission, err := c.assignmentService.Grade(ctx.Request.Context(), actor, submissionID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(submission))
}
