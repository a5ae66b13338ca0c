package analytics

import (
	"net/http"

	"github.com/mvalverde/agrolink-backend/api/responses"
	"github.com/mvalverde/agrolink-backend/internal/analytics"
	"github.com/mvalverde/agrolink-backend/internal/analytics/types"
	"github.com/mvalverde/agrolink-backend/pkg/logger"
)

// MarketplaceAnalytics serves the admin dashboard aggregates for the
// requested window (explicit from/to or a preset).
func MarketplaceAnalytics(service analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		start, end, err := resolveAnalyticsRange(r, timeNowUTC())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := service.Query(ctx, types.MarketplaceQueryRequest{
			Start: start,
			End:   end,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
