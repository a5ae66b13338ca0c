package controllers

import (
	"net/http"

	"github.com/mvalverde/agrolink-backend/api/responses"
	"github.com/mvalverde/agrolink-backend/api/validators"
	"github.com/mvalverde/agrolink-backend/internal/media"
	pkgerrors "github.com/mvalverde/agrolink-backend/pkg/errors"
	"github.com/mvalverde/agrolink-backend/pkg/logger"
)

type mediaPresignRequest struct {
	MimeType  string `json:"mime_type" validate:"required"`
	FileName  string `json:"file_name" validate:"required"`
	SizeBytes int64  `json:"size_bytes" validate:"required,min=1"`
}

// MediaPresign returns a signed PUT URL for a request-item image upload.
func MediaPresign(svc media.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "media service unavailable"))
			return
		}

		principal, err := requirePrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload mediaPresignRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.PresignUpload(r.Context(), principal.UserID, media.PresignInput{
			MimeType:  payload.MimeType,
			FileName:  payload.FileName,
			SizeBytes: payload.SizeBytes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, resp)
	}
}
