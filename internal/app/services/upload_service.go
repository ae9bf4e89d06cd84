package services

import (
	"context"
	"fmt"
	"mime/multipart"

	"github.com/rs/zerolog"

	"github.com/yigit/classroom/internal/app/models/dto"
	"github.com/yigit/classroom/internal/pkg/apperrors"
	"github.com/yigit/classroom/internal/pkg/filestorage"
)

// Upload folders clients may target
var uploadFolders = map[string]bool{
	"assignments": true,
	"submissions": true,
	"materials":   true,
}

// UploadService stores standalone files that coursework documents later reference
type UploadService struct {
	storage   filestorage.FileStorage
	maxUpload int64
	logger    zerolog.Logger
}

// NewUploadService creates a new UploadService
func NewUploadService(storage filestorage.FileStorage, maxUpload int64, logger zerolog.Logger) *UploadService {
	return &UploadService{
		storage:   storage,
		maxUpload: maxUpload,
		logger:    logger,
	}
}

// Upload stores a file for userID in folder
func (s *UploadService) Upload(ctx context.Context, userID int64, folder string, fh *multipart.FileHeader) (*dto.FileResponse, error) {
	if s.storage == nil {
		return nil, apperrors.NewBadRequestError("file uploads are not configured")
	}
	if fh == nil {
		return nil, apperrors.NewValidationError("file is required", map[string]interface{}{"file": "required"})
	}
	if !uploadFolders[folder] {
		return nil, apperrors.NewValidationError("unknown upload folder", map[string]interface{}{"folder": folder})
	}
	if err := checkUploadSize(fh, s.maxUpload); err != nil {
		return nil, err
	}

	info, err := s.storage.Save(ctx, fh, fmt.Sprintf("%s/%d", folder, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	s.logger.Debug().Int64("userID", userID).Str("url", info.URL).Int64("size", info.Size).Msg("File uploaded")
	return &dto.FileResponse{
		Name:     info.Name,
		URL:      info.URL,
		Size:     info.Size,
		MimeType: info.MimeType,
	}, nil
}
