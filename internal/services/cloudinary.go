package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

// AssetStorage saves uploaded files and returns a reference to them.
type AssetStorage interface {
	Save(ctx context.Context, filename string, data []byte) (string, error)
}

// ErrStorageNotConfigured is returned when uploads are attempted without credentials.
var ErrStorageNotConfigured = errors.New("asset storage not configured")

type imageUploader interface {
	Upload(ctx context.Context, file interface{}, uploadParams uploader.UploadParams) (*uploader.UploadResult, error)
}

// CloudinaryStorage stores profile images in a Cloudinary folder.
type CloudinaryStorage struct {
	upload imageUploader
	folder string
}

func NewCloudinaryStorage(cloudName, apiKey, apiSecret, folder string) (*CloudinaryStorage, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}

	return &CloudinaryStorage{
		upload: &cld.Upload,
		folder: folder,
	}, nil
}

// Save uploads data under a unique public id derived from filename and
// returns the secure URL.
func (s *CloudinaryStorage) Save(ctx context.Context, filename string, data []byte) (string, error) {
	if s == nil || s.upload == nil {
		return "", ErrStorageNotConfigured
	}

	uploadResult, err := s.upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		Folder:       s.folder,
		PublicID:     publicID(filename),
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to Cloudinary: %w", err)
	}
	if uploadResult.Error.Message != "" {
		return "", fmt.Errorf("cloudinary rejected upload: %s", uploadResult.Error.Message)
	}

	return uploadResult.SecureURL, nil
}

// publicID keeps a readable stem of the client filename and makes it unique.
func publicID(filename string) string {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	var b strings.Builder
	for _, r := range strings.ToLower(stem) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '.':
			b.WriteRune('_')
		}
		if b.Len() >= 40 {
			break
		}
	}
	if b.Len() == 0 {
		return uuid.NewString()
	}
	return b.String() + "_" + uuid.NewString()
}
