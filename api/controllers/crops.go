package controllers

import (
	"net/http"

	"github.com/mvalverde/agrolink-backend/api/responses"
	"github.com/mvalverde/agrolink-backend/internal/crops"
	pkgerrors "github.com/mvalverde/agrolink-backend/pkg/errors"
	"github.com/mvalverde/agrolink-backend/pkg/logger"
)

// CropList returns the shared inventory, visible to every authenticated role.
func CropList(svc crops.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "crops service unavailable"))
			return
		}

		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list crops"))
			return
		}

		views := make([]cropView, 0, len(list))
		for _, crop := range list {
			views = append(views, cropToView(crop))
		}
		responses.WriteSuccess(w, map[string]any{"crops": views})
	}
}
