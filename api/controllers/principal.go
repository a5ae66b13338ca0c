package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/mvalverde/agrolink-backend/api/middleware"
	pkgAuth "github.com/mvalverde/agrolink-backend/pkg/auth"
	pkgerrors "github.com/mvalverde/agrolink-backend/pkg/errors"
)

func requirePrincipal(r *http.Request) (pkgAuth.Principal, error) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok || principal.UserID == uuid.Nil {
		return pkgAuth.Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return principal, nil
}
