package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/mvalverde/agrolink-backend/api/responses"
	"github.com/mvalverde/agrolink-backend/api/validators"
	"github.com/mvalverde/agrolink-backend/internal/requests"
	pkgerrors "github.com/mvalverde/agrolink-backend/pkg/errors"
	"github.com/mvalverde/agrolink-backend/pkg/logger"
	"github.com/mvalverde/agrolink-backend/pkg/pagination"
)

type requestLinePayload struct {
	CropName string  `json:"crop_name" validate:"required"`
	Amount   int     `json:"amount" validate:"required"`
	Image    *string `json:"image,omitempty"`
}

type createRequestPayload struct {
	Date  string               `json:"date" validate:"required"`
	Lines []requestLinePayload `json:"lines" validate:"required,min=1,dive"`
}

type createRequestResponse struct {
	RequestID string `json:"request_id"`
	Price     string `json:"price"`
}

// FarmerCreateRequest submits a surplus-crop request and returns its quote.
func FarmerCreateRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "requests service unavailable"))
			return
		}

		principal, err := requirePrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createRequestPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		date, err := parseRequestDate(payload.Date)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := requests.CreateInput{Date: date, Lines: make([]requests.CreateLineInput, 0, len(payload.Lines))}
		for _, line := range payload.Lines {
			input.Lines = append(input.Lines, requests.CreateLineInput{
				CropName: line.CropName,
				Amount:   line.Amount,
				Image:    line.Image,
			})
		}

		quote, err := svc.Create(r.Context(), principal, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, createRequestResponse{
			RequestID: quote.RequestID.String(),
			Price:     quote.Price.StringFixed(2),
		})
	}
}

// FarmerListRequests pages through the caller's own requests.
func FarmerListRequests(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "requests service unavailable"))
			return
		}

		principal, err := requirePrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := parsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListByFarmer(r.Context(), principal.UserID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, requestListToView(list))
	}
}

func parsePageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}

func parseRequestDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date")
	}
	return t, nil
}
