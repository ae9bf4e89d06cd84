package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yigit/classroom/internal/app/models/dto"
	"github.com/yigit/classroom/internal/app/services"
	"github.com/yigit/classroom/internal/middleware"
)

// FormController handles forms, quizzes and their responses
type FormController struct {
	formService     *services.FormService
	responseService *services.ResponseService
}

// NewFormController creates a new FormController
func NewFormController(formService *services.FormService, responseService *services.ResponseService) *FormController {
	return &FormController{
		formService:     formService,
		responseService: responseService,
	}
}

// CreateForm creates a draft form in a class
// @Summary Create a form
// @Description Creates an unpublished form or quiz with its questions
// @Tags forms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param classId path int true "Class ID"
// @Param request body dto.FormRequest true "Form"
// @Success 201 {object} dto.APIResponse{data=dto.FormResponse} "Form created"
// @Failure 400 {object} dto.ErrorResponse "Invalid questions or settings"
// @Failure 403 {object} dto.ErrorResponse "Only the class teacher can create forms"
// @Router /classes/{classId}/forms [post]
func (c *FormController) CreateForm(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	classID, ok := parseIDParam(ctx, "classId")
	if !ok {
		return
	}

	var req dto.FormRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	form, err := c.formService.Create(ctx.Request.Context(), actor, classID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(form))
}

// ListForms lists the forms of a class. Students only see published ones.
// @Summary List forms
// @Tags forms
// @Produce json
// @Security BearerAuth
// @Param classId path int true "Class ID"
// @Success 200 {object} dto.APIResponse{data=[]dto.FormSummary} "Forms"
// @Router /classes/{classId}/forms [get]
func (c *FormController) ListForms(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	classID, ok := parseIDParam(ctx, "classId")
	if !ok {
		return
	}

	forms, err := c.formService.ListByClass(ctx.Request.Context(), actor, classID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(forms))
}

// GetForm returns a form. Students get a shuffled copy without the answer key.
// @Summary Get a form
// @Tags forms
// @Produce json
// @Security BearerAuth
// @Param formId path int true "Form ID"
// @Success 200 {object} dto.APIResponse{data=dto.FormResponse} "Form"
// @Failure 404 {object} dto.ErrorResponse "Form not found"
// @Router /forms/{formId} [get]
func (c *FormController) GetForm(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	formID, ok := parseIDParam(ctx, "formId")
	if !ok {
		return
	}

	form, err := c.formService.Get(ctx.Request.Context(), actor, formID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(form))
}

// UpdateForm replaces a form's questions and settings
// @Summary Update a form
// @Tags forms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param formId path int true "Form ID"
// @Param request body dto.FormRequest true "Form"
// @Success 200 {object} dto.APIResponse{data=dto.FormResponse} "Updated form"
// @Router /forms/{formId} [put]
func (c *FormController) UpdateForm(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	formID, ok := parseIDParam(ctx, "formId")
	if !ok {
		return
	}

	var req dto.FormRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	form, err := c.formService.Update(ctx.Request.Context(), actor, formID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(form))
}

// DeleteForm deletes a form and its responses
// @Summary Delete a form
// @Tags forms
// @Security BearerAuth
// @Param formId path int true "Form ID"
// @Success 204 "Deleted"
// @Router /forms/{formId} [delete]
func (c *FormController) DeleteForm(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	formID, ok := parseIDParam(ctx, "formId")
	if !ok {
		return
	}

	if err := c.formService.Delete(ctx.Request.Context(), actor, formID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// PublishForm makes a form visible to students and notifies them
// @Summary Publish a form
// @Tags forms
// @Produce json
// @Security BearerAuth
// @Param formId path int true "Form ID"
// @Success 200 {object} dto.APIResponse{data=dto.FormResponse} "Published form"
// @Failure 400 {object} dto.ErrorResponse "Form has no questions"
// @Router /forms/{formId}/publish [post]
func (c *FormController) PublishForm(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	formID, ok := parseIDParam(ctx, "formId")
	if !ok {
		return
	}

	form, err := c.formService.Publish(ctx.Request.Context(), actor, formID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(form))
}

// UnpublishForm hides a form from students again
// @Summary Unpublish a form
// @Tags forms
// @Produce json
// @Security BearerAuth
// @Param formId path int true "Form ID"
// @Success 200 {object} dto.APIResponse{data=dto.FormResponse} "Unpublished form"
// @Router /forms/{formId}/unpublish [post]
func (c *FormController) UnpublishForm(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	formID, ok := parseIDParam(ctx, "formId")
	if !ok {
		return
	}

	form, err := c.formService.Unpublish(ctx.Request.Context(), actor, formID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(form))
}

// StartAttempt godoc
// @Summary Start a form attempt
// @Description Records the server-side start time. Timed forms must be started before submitting; starting again returns the open attempt.
// @Tags responses
// @Produce json
// @Security BearerAuth
// @Param formId path int true "Form ID"
// @Success 200 {object} dto.APIResponse{data=dto.AttemptResponse} "Attempt started"
// @Failure 403 {object} dto.ErrorResponse "Form not open or closed"
// @Failure 409 {object} dto.ErrorResponse "Form only accepts one response"
// @Router /forms/{formId}/start [post]
func (c *FormController) StartAttempt(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	formID, ok := parseIDParam(ctx, "formId")
	if !ok {
		return
	}

	attempt, err := c.responseService.Start(ctx.Request.Context(), actor, formID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(attempt))
}

// SubmitResponse records and auto-grades the caller's answers
// @Summary Submit a response
// @Tags responses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param formId path int true "Form ID"
// @Param request body dto.SubmitFormRequest true "Answers"
// @Success 201 {object} dto.APIResponse{data=dto.FormResponseDTO} "Response recorded"
// @Failure 400 {object} dto.ErrorResponse "Invalid or missing answers"
// @Failure 403 {object} dto.ErrorResponse "Form not open or closed"
// @Failure 409 {object} dto.ErrorResponse "Form only accepts one response, or a timed form was not started"
// @Router /forms/{formId}/responses [post]
func (c *FormController) SubmitResponse(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	formID, ok := parseIDParam(ctx, "formId")
	if !ok {
		return
	}

	var req dto.SubmitFormRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	response, err := c.responseService.Submit(ctx.Request.Context(), actor, formID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(response))
}

// ListResponses lists every response to a form
// @Summary List responses
// @Tags responses
// @Produce json
// @Security BearerAuth
// @Param formId path int true "Form ID"
// @Success 200 {object} dto.APIResponse{data=[]dto.FormResponseDTO} "Responses"
// @Router /forms/{formId}/responses [get]
func (c *FormController) ListResponses(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	formID, ok := parseIDParam(ctx, "formId")
	if !ok {
		return
	}

	responses, err := c.responseService.ListByForm(ctx.Request.Context(), actor, formID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(responses))
}

// MyResponse returns the caller's latest response to a form
// @Summary Get my response
// @Tags responses
// @Produce json
// @Security BearerAuth
// @Param formId path int true "Form ID"
// @Success 200 {object} dto.APIResponse{data=dto.FormResponseDTO} "Response"
// @Failure 404 {object} dto.ErrorResponse "No response yet"
// @Router /forms/{formId}/responses/me [get]
func (c *FormController) MyResponse(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	formID, ok := parseIDParam(ctx, "formId")
	if !ok {
		return
	}

	response, err := c.responseService.MyResponse(ctx.Request.Context(), actor, formID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(response))
}

// GetResponse returns one response to its owner or the class teacher
// @Summary Get a response
// @Tags responses
// @Produce json
// @Security BearerAuth
// @Param responseId path int true "Response ID"
// @Success 200 {object} dto.APIResponse{data=dto.FormResponseDTO} "Response"
// @Router /responses/{responseId} [get]
func (c *FormController) GetResponse(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	responseID, ok := parseIDParam(ctx, "responseId")
	if !ok {
		return
	}

	response, err := c.responseService.Get(ctx.Request.Context(), actor, responseID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(response))
}

// GradeAnswer sets the manual score of one answer
// @Summary Grade an answer
// @Tags responses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param responseId path int true "Response ID"
// @Param request body dto.ManualGradeRequest true "Points and feedback"
// @Success 200 {object} dto.APIResponse{data=dto.FormResponseDTO} "Regraded response"
// @Failure 400 {object} dto.ErrorResponse "Points out of range or question not scored"
// @Router /responses/{responseId}/grade [put]
func (c *FormController) GradeAnswer(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	responseID, ok := parseIDParam(ctx, "responseId")
	if !ok {
		return
	}

	var req dto.ManualGradeRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	response, err := c.responseService.GradeAnswer(ctx.Request.Context(), actor, responseID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(response))
}

// ReleaseScores releases every graded response of a quiz
// @Summary Release scores
// @Tags responses
// @Produce json
// @Security BearerAuth
// @Param formId path int true "Form ID"
// @Success 200 {object} dto.APIResponse{data=dto.ReleaseScoresResponse} "Number of released responses"
// @Router /forms/{formId}/release [post]
func (c *FormController) ReleaseScores(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	formID, ok := parseIDParam(ctx, "formId")
	if !ok {
		return
	}

	released, err := c.responseService.ReleaseScores(ctx.Request.Context(), actor, formID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.ReleaseScoresResponse{Released: released}))
}

// Stats summarizes the graded responses of a form
// @Summary Form statistics
// @Tags responses
// @Produce json
// @Security BearerAuth
// @Param formId path int true "Form ID"
// @Success 200 {object} dto.APIResponse{data=grading.FormStats} "Statistics"
// @Router /forms/{formId}/stats [get]
func (c *FormController) Stats(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	formID, ok := parseIDParam(ctx, "formId")
	if !ok {
		return
	}

	stats, err := c.responseService.Stats(ctx.Request.Context(), actor, formID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(stats))
}
