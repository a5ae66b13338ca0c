package analytics

import (
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/mvalverde/agrolink-backend/pkg/errors"
)

var timeNowUTC = func() time.Time {
	return time.Now().UTC()
}

func resolveAnalyticsRange(r *http.Request, now time.Time) (time.Time, time.Time, error) {
	query := r.URL.Query()
	from := strings.TrimSpace(query.Get("from"))
	to := strings.TrimSpace(query.Get("to"))

	if from != "" || to != "" {
		if from == "" || to == "" {
			return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "from and to must be provided together")
		}
		start, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid from timestamp")
		}
		end, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid to timestamp")
		}
		start = start.UTC()
		end = end.UTC()
		if end.Before(start) {
			return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "end must be after start")
		}
		return start, end, nil
	}

	preset := strings.ToLower(strings.TrimSpace(query.Get("preset")))
	if preset == "" {
		preset = "30d"
	}
	duration, ok := rangePresets[preset]
	if !ok {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid preset")
	}
	return now.Add(-duration), now, nil
}

var rangePresets = map[string]time.Duration{
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
	"90d": 90 * 24 * time.Hour,
}
