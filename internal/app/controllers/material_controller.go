package controllers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yigit/classroom/internal/app/models/dto"
	"github.com/yigit/classroom/internal/app/services"
	"github.com/yigit/classroom/internal/middleware"
)

// MaterialController handles class materials and standalone uploads
type MaterialController struct {
	materialService services.MaterialService
	uploadService   *services.UploadService
}

// NewMaterialController creates a new MaterialController
func NewMaterialController(materialService services.MaterialService, uploadService *services.UploadService) *MaterialController {
	return &MaterialController{
		materialService: materialService,
		uploadService:   uploadService,
	}
}

// multipartFiles returns the files sent under field, or none when the request is not multipart
func multipartFiles(ctx *gin.Context, field string) []*multipart.FileHeader {
	form, err := ctx.MultipartForm()
	if err != nil || form == nil {
		return nil
	}
	return form.File[field]
}

// CreateMaterial uploads a material with its files
// @Summary Create a material
// @Description Creates a material from a multipart form. Files are sent in the "files" field.
// @Tags materials
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param classId path int true "Class ID"
// @Param title formData string true "Title"
// @Param description formData string false "Description"
// @Param links formData []string false "Links" collectionFormat(multi)
// @Param files formData file false "Files"
// @Success 201 {object} dto.APIResponse{data=models.Material} "Material created"
// @Failure 400 {object} dto.ErrorResponse "Validation error or file too large"
// @Failure 403 {object} dto.ErrorResponse "Only the class teacher can add materials"
// @Router /classes/{classId}/materials [post]
func (c *MaterialController) CreateMaterial(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	classID, ok := parseIDParam(ctx, "classId")
	if !ok {
		return
	}

	var req dto.CreateMaterialRequest
	if !middleware.BindForm(ctx, &req) {
		return
	}

	material, err := c.materialService.Create(ctx.Request.Context(), actor, classID, &req, multipartFiles(ctx, "files"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(material))
}

// ListMaterials lists the materials of a class
// @Summary List materials
// @Tags materials
// @Produce json
// @Security BearerAuth
// @Param classId path int true "Class ID"
// @Success 200 {object} dto.APIResponse{data=[]models.Material} "Materials"
// @Router /classes/{classId}/materials [get]
func (c *MaterialController) ListMaterials(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	classID, ok := parseIDParam(ctx, "classId")
	if !ok {
		return
	}

	materials, err := c.materialService.ListByClass(ctx.Request.Context(), actor, classID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(materials))
}

// GetMaterial returns one material
// @Summary Get a material
// @Tags materials
// @Produce json
// @Security BearerAuth
// @Param materialId path int true "Material ID"
// @Success 200 {object} dto.APIResponse{data=models.Material} "Material"
// @Failure 404 {object} dto.ErrorResponse "Material not found"
// @Router /materials/{materialId} [get]
func (c *MaterialController) GetMaterial(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	materialID, ok := parseIDParam(ctx, "materialId")
	if !ok {
		return
	}

	material, err := c.materialService.Get(ctx.Request.Context(), actor, materialID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(material))
}

// UpdateMaterial changes a material's text and links
// @Summary Update a material
// @Tags materials
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param materialId path int true "Material ID"
// @Param request body dto.UpdateMaterialRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=models.Material} "Updated material"
// @Router /materials/{materialId} [patch]
func (c *MaterialController) UpdateMaterial(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	materialID, ok := parseIDParam(ctx, "materialId")
	if !ok {
		return
	}

	var req dto.UpdateMaterialRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	material, err := c.materialService.Update(ctx.Request.Context(), actor, materialID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(material))
}

// DeleteMaterial deletes a material and its stored files
// @Summary Delete a material
// @Tags materials
// @Security BearerAuth
// @Param materialId path int true "Material ID"
// @Success 204 "Deleted"
// @Router /materials/{materialId} [delete]
func (c *MaterialController) DeleteMaterial(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	materialID, ok := parseIDParam(ctx, "materialId")
	if !ok {
		return
	}

	if err := c.materialService.Delete(ctx.Request.Context(), actor, materialID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// Upload stores a single file that an assignment or submission can attach
// @Summary Upload a file
// @Tags uploads
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param folder formData string true "Target folder" Enums(assignments, submissions, materials)
// @Param file formData file true "File"
// @Success 201 {object} dto.APIResponse{data=dto.FileResponse} "Stored file"
// @Failure 400 {object} dto.ErrorResponse "Missing file, unknown folder or file too large"
// @Router /uploads [post]
func (c *MaterialController) Upload(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	fh, err := ctx.FormFile("file")
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeInvalidRequest, "Invalid multipart form").WithDetails(err.Error())
		ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	file, err := c.uploadService.Upload(ctx.Request.Context(), actor.UserID, ctx.PostForm("folder"), fh)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(file))
}
