package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/rs/zerolog"

	authz "github.com/yigit/classroom/internal/app/auth"
	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/app/models/dto"
	"github.com/yigit/classroom/internal/app/repositories"
	"github.com/yigit/classroom/internal/pkg/apperrors"
	"github.com/yigit/classroom/internal/pkg/filestorage"
)

// MaterialService defines course material operations
type MaterialService interface {
	Create(ctx context.Context, actor authz.Actor, classID int64, req *dto.CreateMaterialRequest, files []*multipart.FileHeader) (*models.Material, error)
	Get(ctx context.Context, actor authz.Actor, materialID int64) (*models.Material, error)
	ListByClass(ctx context.Context, actor authz.Actor, classID int64) ([]*models.Material, error)
	Update(ctx context.Context, actor authz.Actor, materialID int64, req *dto.UpdateMaterialRequest) (*models.Material, error)
	Delete(ctx context.Context, actor authz.Actor, materialID int64) error
}

// materialServiceImpl implements MaterialService
type materialServiceImpl struct {
	materialRepo repositories.IMaterialRepository
	classRepo    repositories.IClassRepository
	authz        *authz.AuthorizationService
	storage      filestorage.FileStorage
	maxUpload    int64
	notifier     *NotificationService
	logger       zerolog.Logger
}

// NewMaterialService creates a new MaterialService
func NewMaterialService(
	materialRepo repositories.IMaterialRepository,
	classRepo repositories.IClassRepository,
	authorization *authz.AuthorizationService,
	storage filestorage.FileStorage,
	maxUpload int64,
	notifier *NotificationService,
	logger zerolog.Logger,
) MaterialService {
	return &materialServiceImpl{
		materialRepo: materialRepo,
		classRepo:    classRepo,
		authz:        authorization,
		storage:      storage,
		maxUpload:    maxUpload,
		notifier:     notifier,
		logger:       logger,
	}
}

// Create stores the uploaded files and the material referencing them
func (s *materialServiceImpl) Create(ctx context.Context, actor authz.Actor, classID int64, req *dto.CreateMaterialRequest, files []*multipart.FileHeader) (*models.Material, error) {
	access, err := s.authz.RequireClassTeacher(ctx, actor, classID)
	if err != nil {
		return nil, err
	}
	if len(files) > 0 && s.storage == nil {
		return nil, apperrors.NewBadRequestError("file uploads are not configured")
	}
	for _, fh := range files {
		if err := checkUploadSize(fh, s.maxUpload); err != nil {
			return nil, err
		}
	}

	material := &models.Material{
		ClassID:     classID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Links:       append([]string{}, req.Links...),
		Files:       make([]models.Attachment, 0, len(files)),
		CreatedBy:   actor.UserID,
	}

	subPath := fmt.Sprintf("materials/%d", classID)
	for _, fh := range files {
		info, err := s.storage.Save(ctx, fh, subPath)
		if err != nil {
			s.removeFiles(ctx, material.Files)
			return nil, fmt.Errorf("failed to store %s: %w", fh.Filename, err)
		}
		material.Files = append(material.Files, attachmentOf(info))
	}

	if err := s.materialRepo.Create(ctx, material); err != nil {
		s.removeFiles(ctx, material.Files)
		return nil, fmt.Errorf("failed to create material: %w", err)
	}

	ids, err := s.classRepo.MemberIDs(ctx, classID, models.MemberStudent)
	if err != nil {
		s.logger.Error().Err(err).Int64("classID", classID).Msg("Failed to load students for material notification")
	} else {
		s.notifier.Notify(ctx, ids, NotificationPayload{
			Type:    models.NotificationMaterialCreated,
			Title:   "New material: " + material.Title,
			Body:    access.Class.Name,
			Link:    classLink(classID, "materials", fmt.Sprint(material.ID)),
			ClassID: &classID,
		})
	}
	return material, nil
}

// removeFiles deletes stored files, logging failures
func (s *materialServiceImpl) removeFiles(ctx context.Context, files []models.Attachment) {
	if s.storage == nil {
		return
	}
	for _, f := range files {
		if err := s.storage.Delete(ctx, f.URL); err != nil {
			s.logger.Warn().Err(err).Str("url", f.URL).Msg("Failed to delete stored file")
		}
	}
}

// Get returns a material of a class the caller belongs to
func (s *materialServiceImpl) Get(ctx context.Context, actor authz.Actor, materialID int64) (*models.Material, error) {
	material, err := s.materialRepo.GetByID(ctx, materialID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authz.RequireMember(ctx, actor, material.ClassID); err != nil {
		return nil, err
	}
	return material, nil
}

// ListByClass lists a class's materials, newest first
func (s *materialServiceImpl) ListByClass(ctx context.Context, actor authz.Actor, classID int64) ([]*models.Material, error) {
	if _, err := s.authz.RequireMember(ctx, actor, classID); err != nil {
		return nil, err
	}
	materials, err := s.materialRepo.ListByClass(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("failed to list materials: %w", err)
	}
	return materials, nil
}

// Update edits a material's text and links
func (s *materialServiceImpl) Update(ctx context.Context, actor authz.Actor, materialID int64, req *dto.UpdateMaterialRequest) (*models.Material, error) {
	material, err := s.materialRepo.GetByID(ctx, materialID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authz.RequireClassTeacher(ctx, actor, material.ClassID); err != nil {
		return nil, err
	}

	if req.Title != nil {
		material.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		material.Description = *req.Description
	}
	if req.Links != nil {
		material.Links = append([]string{}, (*req.Links)...)
	}
	if material.Title == "" {
		return nil, apperrors.NewValidationError("title is required", map[string]interface{}{"title": "required"})
	}

	if err := s.materialRepo.Update(ctx, material); err != nil {
		return nil, fmt.Errorf("failed to update material: %w", err)
	}
	return material, nil
}

// Delete removes a material and its stored files
func (s *materialServiceImpl) Delete(ctx context.Context, actor authz.Actor, materialID int64) error {
	material, err := s.materialRepo.GetByID(ctx, materialID)
	if err != nil {
		return err
	}
	if _, err := s.authz.RequireClassTeacher(ctx, actor, material.ClassID); err != nil {
		return err
	}
	if err := s.materialRepo.Delete(ctx, materialID); err != nil {
		return fmt.Errorf("failed to delete material: %w", err)
	}
	s.removeFiles(ctx, material.Files)
	return nil
}

// attachmentOf converts stored file info to an attachment
func attachmentOf(info *filestorage.FileInfo) models.Attachment {
	return models.Attachment{
		Name:     info.Name,
		URL:      info.URL,
		Size:     info.Size,
		MimeType: info.MimeType,
	}
}

// checkUploadSize rejects files larger than limit bytes
func checkUploadSize(fh *multipart.FileHeader, limit int64) error {
	if limit > 0 && fh.Size > limit {
		return apperrors.NewValidationError(
			fmt.Sprintf("%s exceeds the %d MB upload limit", fh.Filename, limit>>20),
			map[string]interface{}{"file": fh.Filename},
		)
	}
	return nil
}
