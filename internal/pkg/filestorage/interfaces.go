package filestorage

import (
	"context"
	"errors"
	"mime/multipart"
)

// ErrInvalidPath is returned when a URL does not belong to the storage
var ErrInvalidPath = errors.New("invalid file path")

// FileInfo represents information about a stored file
type FileInfo struct {
	Name     string // Original filename
	Key      string // Storage key relative to the storage root
	URL      string // Public URL of the stored file
	Size     int64  // Size in bytes
	MimeType string // MIME type of the file
}

// FileStorage defines the interface for file storage operations
type FileStorage interface {
	// Save stores an uploaded file under subPath and returns where it was stored
	Save(ctx context.Context, fileHeader *multipart.FileHeader, subPath string) (*FileInfo, error)

	// Delete removes a file previously returned by Save. Missing files are not an error.
	Delete(ctx context.Context, fileURL string) error
}

func contentType(fh *multipart.FileHeader) string {
	if ct := fh.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
