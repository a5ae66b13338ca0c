package media

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/mvalverde/agrolink-backend/pkg/errors"
)

type stubGCS struct {
	url          string
	readURL      string
	err          error
	lastBucket   string
	lastObject   string
	lastMimeType string
}

func (s *stubGCS) SignedURL(bucket, object, contentType string, expires time.Duration) (string, error) {
	s.lastBucket = bucket
	s.lastObject = object
	s.lastMimeType = contentType
	if s.err != nil {
		return "", s.err
	}
	return s.url, nil
}

func (s *stubGCS) SignedReadURL(bucket, object string, expires time.Duration) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.readURL, nil
}

func TestMediaServicePresignSuccess(t *testing.T) {
	t.Parallel()

	gcs := &stubGCS{url: "https://signed.example", readURL: "https://read.example"}
	svc, err := NewService(gcs, "bucket", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	userID := uuid.New()
	input := PresignInput{
		MimeType:  "image/png",
		FileName:  "photo.png",
		SizeBytes: 1024,
	}

	res, err := svc.PresignUpload(context.Background(), userID, input)
	if err != nil {
		t.Fatalf("PresignUpload returned error: %v", err)
	}
	if res.SignedPUTURL != gcs.url {
		t.Fatalf("unexpected signed url %s", res.SignedPUTURL)
	}
	if res.SignedGETURL != gcs.readURL {
		t.Fatalf("unexpected read url %s", res.SignedGETURL)
	}
	if res.ContentType != "image/png" {
		t.Fatalf("unexpected content type %s", res.ContentType)
	}
	if !strings.Contains(res.ObjectKey, userID.String()) {
		t.Fatalf("object key %s missing user id", res.ObjectKey)
	}
	if !strings.HasSuffix(res.ObjectKey, "/photo.png") {
		t.Fatalf("object key %s missing file name", res.ObjectKey)
	}
	if res.PublicURL != "https://storage.googleapis.com/bucket/"+res.ObjectKey {
		t.Fatalf("unexpected public url %s", res.PublicURL)
	}
	if gcs.lastBucket != "bucket" || gcs.lastObject != res.ObjectKey || gcs.lastMimeType != "image/png" {
		t.Fatalf("unexpected gcs call %v", gcs)
	}
}

func TestMediaServicePresignValidation(t *testing.T) {
	t.Parallel()

	gcs := &stubGCS{url: "ok"}
	svc, err := NewService(gcs, "bucket", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	cases := []struct {
		name  string
		input PresignInput
	}{
		{
			name: "size too large",
			input: PresignInput{
				MimeType:  "image/png",
				FileName:  "file.png",
				SizeBytes: maxUploadBytes + 1,
			},
		},
		{
			name: "non-image mime",
			input: PresignInput{
				MimeType:  "application/pdf",
				FileName:  "doc.pdf",
				SizeBytes: 1024,
			},
		},
		{
			name: "missing file name",
			input: PresignInput{
				MimeType:  "image/png",
				SizeBytes: 1024,
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.PresignUpload(context.Background(), uuid.New(), tc.input)
			if err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
			if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation code got %v", pkgerrors.As(err).Code())
			}
		})
	}
}

func TestMediaServicePresignGcsError(t *testing.T) {
	t.Parallel()

	gcs := &stubGCS{err: errTest}
	svc, err := NewService(gcs, "bucket", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	_, err = svc.PresignUpload(context.Background(), uuid.New(), PresignInput{
		MimeType:  "image/png",
		FileName:  "x.png",
		SizeBytes: 100,
	})
	if err == nil {
		t.Fatal("expected error from gcs")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency code got %v", pkgerrors.As(err).Code())
	}
}

func TestSanitizeFileName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"photo.png":           "photo.png",
		"  my photo.png  ":    "my-photo.png",
		"../../../etc/passwd": "passwd",
	}
	for input, want := range cases {
		if got := sanitizeFileName(input); got != want {
			t.Fatalf("sanitizeFileName(%q) = %q, want %q", input, got, want)
		}
	}
}

var errTest = fmt.Errorf("boom")
