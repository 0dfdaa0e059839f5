package media

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// ErrDisabled is returned when no media host is configured
var ErrDisabled = errors.New("media host is not configured")

// Uploaded identifies a stored image
type Uploaded struct {
	URL      string
	PublicID string
}

// Storage is an external image host
type Storage interface {
	Upload(ctx context.Context, file io.Reader, filename string) (*Uploaded, error)
	Delete(ctx context.Context, publicID string) error
}

// CloudinaryStorage stores room images on Cloudinary
type CloudinaryStorage struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryStorage(cloudName, apiKey, apiSecret, folder string) (*CloudinaryStorage, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise cloudinary: %w", err)
	}
	return &CloudinaryStorage{cld: cld, folder: folder}, nil
}

func (s *CloudinaryStorage) Upload(ctx context.Context, file io.Reader, filename string) (*Uploaded, error) {
	result, err := s.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:           s.folder,
		ResourceType:     "image",
		UniqueFilename:   boolPtr(true),
		FilenameOverride: filename,
	})
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}
	if result.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload: %s", result.Error.Message)
	}
	if result.PublicID == "" {
		return nil, errors.New("cloudinary upload: no public ID returned")
	}
	return &Uploaded{URL: result.SecureURL, PublicID: result.PublicID}, nil
}

func (s *CloudinaryStorage) Delete(ctx context.Context, publicID string) error {
	result, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	if result.Error.Message != "" {
		return fmt.Errorf("cloudinary destroy: %s", result.Error.Message)
	}
	// "not found" means an earlier attempt already removed it
	if result.Result != "ok" && result.Result != "not found" {
		return fmt.Errorf("cloudinary destroy: unexpected result %q", result.Result)
	}
	return nil
}

func boolPtr(b bool) *bool {
	return &b
}

// DisabledStorage rejects uploads when Cloudinary credentials are absent
type DisabledStorage struct{}

func (DisabledStorage) Upload(ctx context.Context, file io.Reader, filename string) (*Uploaded, error) {
	return nil, ErrDisabled
}

func (DisabledStorage) Delete(ctx context.Context, publicID string) error {
	return ErrDisabled
}
