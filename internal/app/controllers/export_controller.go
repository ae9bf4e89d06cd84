package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yigit/classroom/internal/app/services"
	"github.com/yigit/classroom/internal/middleware"
)

// ExportController streams XLSX reports
type ExportController struct {
	exportService *services.ExportService
}

// NewExportController creates a new ExportController
func NewExportController(exportService *services.ExportService) *ExportController {
	return &ExportController{exportService: exportService}
}

func sendSpreadsheet(ctx *gin.Context, sheet *services.Spreadsheet) {
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sheet.Filename))
	ctx.Data(http.StatusOK, services.XLSXContentType, sheet.Data)
}

// ExportFormResponses downloads every response of a form as XLSX
// @Summary Export form responses
// @Tags exports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param formId path int true "Form ID"
// @Success 200 {file} file "Workbook with Responses and Statistics sheets"
// @Failure 403 {object} dto.ErrorResponse "Only the class teacher can export"
// @Router /forms/{formId}/export [get]
func (c *ExportController) ExportFormResponses(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	formID, ok := parseIDParam(ctx, "formId")
	if !ok {
		return
	}

	sheet, err := c.exportService.ExportFormResponses(ctx.Request.Context(), actor, formID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	sendSpreadsheet(ctx, sheet)
}

// ExportGradebook downloads the class gradebook as XLSX
// @Summary Export gradebook
// @Tags exports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param classId path int true "Class ID"
// @Success 200 {file} file "Gradebook workbook"
// @Failure 403 {object} dto.ErrorResponse "Only the class teacher can export"
// @Router /classes/{classId}/gradebook [get]
func (c *ExportController) ExportGradebook(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	classID, ok := parseIDParam(ctx, "classId")
	if !ok {
		return
	}

	book, err := c.exportService.ExportGradebook(ctx.Request.Context(), actor, classID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	sendSpreadsheet(ctx, book)
}
