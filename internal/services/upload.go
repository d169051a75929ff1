package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/inkpress/apiserver/internal/apperr"
)

const (
	DefaultMaxUploadBytes = 5 << 20
	defaultSignedURLTTL   = 7 * 24 * time.Hour
	uploadKeyPrefix       = "uploads"
)

// ObjectStore is the slice of object storage uploads need.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// UploadInput describes one uploaded file.
type UploadInput struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Upload is the stored object key and a signed URL for fetching it.
type Upload struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// UploadService stores avatar and post images in the private bucket.
type UploadService struct {
	store     ObjectStore
	maxBytes  int64
	signedTTL time.Duration
	now       func() time.Time
}

func NewUploadService(store ObjectStore, maxBytes int64, signedTTL time.Duration) *UploadService {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if signedTTL <= 0 {
		signedTTL = defaultSignedURLTTL
	}
	return &UploadService{store: store, maxBytes: maxBytes, signedTTL: signedTTL, now: time.Now}
}

// MaxBytes is the largest accepted upload.
func (s *UploadService) MaxBytes() int64 {
	return s.maxBytes
}

// Upload stores an image under uploads/{caller}/ and returns a signed URL.
func (s *UploadService) Upload(ctx context.Context, callerID string, in UploadInput) (Upload, error) {
	if err := requireCaller(callerID); err != nil {
		return Upload{}, err
	}
	if in.Body == nil || in.Size <= 0 {
		return Upload{}, apperr.Validation("file is required")
	}
	if in.Size > s.maxBytes {
		return Upload{}, apperr.Validation(fmt.Sprintf("file exceeds the %dMB limit", s.maxBytes>>20))
	}
	contentType := strings.ToLower(strings.TrimSpace(in.ContentType))
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mediaType
	}
	if !strings.HasPrefix(contentType, "image/") {
		return Upload{}, apperr.Validation("only image uploads are supported")
	}

	key, err := s.objectKey(callerID, in.Filename, contentType)
	if err != nil {
		return Upload{}, apperr.Internal(err)
	}
	if err := s.store.Put(ctx, key, in.Body, in.Size, contentType); err != nil {
		return Upload{}, apperr.Storage(err)
	}

	url, err := s.store.SignedURL(ctx, key, s.signedTTL)
	if err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			log.Printf("upload: remove unsigned object %s: %v", key, delErr)
		}
		return Upload{}, apperr.Storage(err)
	}
	return Upload{URL: url, Key: key}, nil
}

func (s *UploadService) objectKey(callerID, filename, contentType string) (string, error) {
	suffix, err := randomBase36(randomIDLength)
	if err != nil {
		return "", err
	}
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(filename, `\`, "/"))))
	if !isSafeExtension(ext) {
		ext = ""
		if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}
	return fmt.Sprintf("%s/%s/%d_%s%s", uploadKeyPrefix, callerID, s.now().UnixMilli(), suffix, ext), nil
}

func isSafeExtension(ext string) bool {
	if len(ext) < 2 || len(ext) > 6 {
		return false
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
