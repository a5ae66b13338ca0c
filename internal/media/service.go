package media

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	pkgerrors "github.com/mvalverde/agrolink-backend/pkg/errors"
)

const maxUploadBytes = 20 * 1024 * 1024

type gcsSigner interface {
	SignedURL(bucket, object, contentType string, expires time.Duration) (string, error)
	SignedReadURL(bucket, object string, expires time.Duration) (string, error)
}

// Service hands out signed PUT URLs for request-item images. The client
// uploads straight to GCS and submits the resulting public URL with the
// request; no media rows are kept server side.
type Service interface {
	PresignUpload(ctx context.Context, userID uuid.UUID, input PresignInput) (*PresignOutput, error)
}

type service struct {
	gcs         gcsSigner
	bucket      string
	uploadTTL   time.Duration
	downloadTTL time.Duration
}

// NewService constructs a media service backed by the provided GCS signer.
func NewService(gcsClient gcsSigner, bucket string, uploadTTL, downloadTTL time.Duration) (Service, error) {
	if gcsClient == nil {
		return nil, fmt.Errorf("gcs client required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket required")
	}
	if uploadTTL <= 0 {
		return nil, fmt.Errorf("upload ttl must be positive")
	}
	if downloadTTL <= 0 {
		return nil, fmt.Errorf("download ttl must be positive")
	}
	return &service{
		gcs:         gcsClient,
		bucket:      bucket,
		uploadTTL:   uploadTTL,
		downloadTTL: downloadTTL,
	}, nil
}

// PresignInput models the payload required to request an upload URL.
type PresignInput struct {
	MimeType  string
	FileName  string
	SizeBytes int64
}

// PresignOutput contains the signed upload URL and the URLs the client
// should place on the request item. PublicURL works on public buckets;
// SignedGETURL works either way but expires.
type PresignOutput struct {
	ObjectKey    string    `json:"object_key"`
	SignedPUTURL string    `json:"signed_put_url"`
	SignedGETURL string    `json:"signed_get_url"`
	PublicURL    string    `json:"public_url"`
	ContentType  string    `json:"content_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

var allowedImageMimes = []string{"image/png", "image/jpeg", "image/webp", "image/gif"}

func (s *service) PresignUpload(ctx context.Context, userID uuid.UUID, input PresignInput) (*PresignOutput, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}

	fileName := strings.TrimSpace(input.FileName)
	if fileName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file_name is required")
	}

	if input.SizeBytes <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "size_bytes must be positive")
	}
	if input.SizeBytes > maxUploadBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("size_bytes must be at most %d bytes", maxUploadBytes))
	}

	mimeType := strings.TrimSpace(input.MimeType)
	if mimeType == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mime_type is required")
	}
	if !isAllowedImageMime(mimeType) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mime_type must be an image type")
	}

	objectKey := buildGCSKey(userID, uuid.New(), fileName)

	expiresAt := time.Now().Add(s.uploadTTL)
	signedURL, err := s.gcs.SignedURL(s.bucket, objectKey, mimeType, s.uploadTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign upload url")
	}

	readURL, err := s.gcs.SignedReadURL(s.bucket, objectKey, s.downloadTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign read url")
	}

	return &PresignOutput{
		ObjectKey:    objectKey,
		SignedPUTURL: signedURL,
		SignedGETURL: readURL,
		PublicURL:    fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, objectKey),
		ContentType:  mimeType,
		ExpiresAt:    expiresAt,
	}, nil
}

func isAllowedImageMime(mimeType string) bool {
	for _, candidate := range allowedImageMimes {
		if strings.EqualFold(candidate, mimeType) {
			return true
		}
	}
	return false
}

func buildGCSKey(userID, uploadID uuid.UUID, fileName string) string {
	cleanName := sanitizeFileName(fileName)
	if cleanName == "" {
		cleanName = uploadID.String()
	}
	return fmt.Sprintf("requests/%s/%s/%s", userID.String(), uploadID.String(), cleanName)
}

func sanitizeFileName(name string) string {
	if name == "" {
		return ""
	}
	clean := path.Base(strings.TrimSpace(name))
	if clean == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case r == '/' || r == '\\' || unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}
