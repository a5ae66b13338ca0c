package controllers

import (
	"net/http"
	"strings"

	"github.com/mvalverde/agrolink-backend/api/responses"
	"github.com/mvalverde/agrolink-backend/api/validators"
	"github.com/mvalverde/agrolink-backend/pkg/logger"
)

type registrationPreflightBody struct {
	Name  string `json:"name" validate:"required,min=3,max=64"`
	Email string `json:"email" validate:"required,email"`
}

// RegistrationPreflight lets signup forms validate name and email
// before the rate-limited register endpoint is hit. It echoes the
// normalized values the register flow would persist.
func RegistrationPreflight(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body registrationPreflightBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"name":  validators.SanitizeString(body.Name, 64),
			"email": strings.ToLower(strings.TrimSpace(body.Email)),
		})
	}
}
