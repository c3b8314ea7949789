// Package blobstore stores user files such as profile photos, health
// documents and benefit paperwork. It defines the BlobStore interface, an
// in-memory implementation for development and tests, an S3 implementation,
// and Echo handlers for upload, download, metadata, deletion and listing.
package blobstore

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"
)

var (
	ErrBlobNotFound       = errors.New("blob not found")
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrInvalidContentType = errors.New("content type is not allowed")
	ErrInvalidCategory    = errors.New("category is not allowed")
	ErrMissingFileName    = errors.New("file name is required")
	ErrMissingOwner       = errors.New("owner id is required")
)

// MaxFileSize is the maximum allowed blob size in bytes (10 MB).
const MaxFileSize = 10 * 1024 * 1024

const (
	CategoryProfilePhoto    = "profile-photo"
	CategoryHealthDocument  = "health-document"
	CategoryBenefitDocument = "benefit-document"
	CategoryIDCard          = "id-card"
	CategoryOther           = "other"
)

// AllowedCategories lists valid blob category values.
var AllowedCategories = map[string]bool{
	CategoryProfilePhoto:    true,
	CategoryHealthDocument:  true,
	CategoryBenefitDocument: true,
	CategoryIDCard:          true,
	CategoryOther:           true,
}

// AllowedContentTypes lists the MIME types accepted for upload.
var AllowedContentTypes = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/webp":      true,
	"application/pdf": true,
}

// BlobMetadata describes a stored blob.
type BlobMetadata struct {
	ID          string            `json:"id"`
	FileName    string            `json:"file_name"`
	ContentType string            `json:"content_type"`
	Size        int64             `json:"size"`
	OwnerID     string            `json:"owner_id"`
	Category    string            `json:"category"`
	Hash        string            `json:"hash"`
	CreatedAt   time.Time         `json:"created_at"`
	CreatedBy   string            `json:"created_by,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
}

// BlobStore defines the contract for blob storage backends.
type BlobStore interface {
	Upload(ctx context.Context, meta BlobMetadata, content io.Reader) (*BlobMetadata, error)
	Download(ctx context.Context, id string) (io.ReadCloser, *BlobMetadata, error)
	Delete(ctx context.Context, id string) error
	GetMetadata(ctx context.Context, id string) (*BlobMetadata, error)
	ListByOwner(ctx context.Context, ownerID, category string, limit, offset int) ([]*BlobMetadata, int, error)
}

// validate checks the caller-supplied metadata and fills the category default.
func validate(meta *BlobMetadata) error {
	if meta.FileName == "" {
		return ErrMissingFileName
	}
	if meta.OwnerID == "" {
		return ErrMissingOwner
	}
	if meta.Category == "" {
		meta.Category = CategoryOther
	}
	if !AllowedCategories[meta.Category] {
		return ErrInvalidCategory
	}
	if !AllowedContentTypes[meta.ContentType] {
		return ErrInvalidContentType
	}
	return nil
}

// readContent reads at most MaxFileSize bytes and returns them with their
// SHA-256 hex digest.
func readContent(content io.Reader) ([]byte, string, error) {
	data, err := io.ReadAll(io.LimitReader(content, MaxFileSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > MaxFileSize {
		return nil, "", ErrFileTooLarge
	}
	return data, fmt.Sprintf("%x", sha256.Sum256(data)), nil
}

func page(items []*BlobMetadata, limit, offset int) []*BlobMetadata {
	if limit <= 0 {
		limit = 20
	}
	if offset > len(items) {
		offset = len(items)
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
