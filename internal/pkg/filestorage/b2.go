package filestorage

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/kurin/blazer/b2"

	"github.com/yigit/classroom/internal/pkg/logger"
)

// B2Storage stores files in a Backblaze B2 bucket
type B2Storage struct {
	client *b2.Client
	bucket *b2.Bucket
	prefix string // public URL prefix: <download url>/file/<bucket>
}

// NewB2Storage connects to B2 and resolves the bucket
func NewB2Storage(ctx context.Context, keyID, appKey, bucketName string) (*B2Storage, error) {
	client, err := b2.NewClient(ctx, keyID, appKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create b2 client: %w", err)
	}

	bucket, err := client.Bucket(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket %s: %w", bucketName, err)
	}

	logger.Info().Str("bucket", bucketName).Msg("B2 storage bucket resolved")
	return &B2Storage{
		client: client,
		bucket: bucket,
		prefix: fmt.Sprintf("%s/file/%s", strings.TrimRight(bucket.BaseURL(), "/"), bucket.Name()),
	}, nil
}

// Save uploads the file to subPath/<uuid><ext>
func (s *B2Storage) Save(ctx context.Context, fileHeader *multipart.FileHeader, subPath string) (*FileInfo, error) {
	if fileHeader == nil {
		return nil, fmt.Errorf("no file provided")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	key := path.Join(strings.Trim(path.Clean("/"+subPath), "/"), uuid.New().String()+strings.ToLower(filepath.Ext(fileHeader.Filename)))
	mimeType := contentType(fileHeader)

	w := s.bucket.Object(key).NewWriter(ctx, b2.WithAttrsOption(&b2.Attrs{ContentType: mimeType}))
	written, err := io.Copy(w, file)
	if err != nil {
		_ = w.Close()
		logger.Error().Err(err).Str("key", key).Msg("Failed to write object")
		return nil, fmt.Errorf("failed to write object: %w", err)
	}
	if err := w.Close(); err != nil {
		logger.Error().Err(err).Str("key", key).Msg("Failed to close object writer")
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}

	return &FileInfo{
		Name:     filepath.Base(fileHeader.Filename),
		Key:      key,
		URL:      s.prefix + "/" + key,
		Size:     written,
		MimeType: mimeType,
	}, nil
}

// Delete removes the object behind fileURL
func (s *B2Storage) Delete(ctx context.Context, fileURL string) error {
	if fileURL == "" {
		return nil
	}
	if !strings.HasPrefix(fileURL, s.prefix+"/") {
		return fmt.Errorf("%w: %s", ErrInvalidPath, fileURL)
	}
	key := strings.TrimPrefix(fileURL, s.prefix+"/")

	if err := s.bucket.Object(key).Delete(ctx); err != nil {
		if b2.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}
