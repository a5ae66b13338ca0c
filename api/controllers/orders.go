package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/mvalverde/agrolink-backend/api/responses"
	"github.com/mvalverde/agrolink-backend/api/validators"
	"github.com/mvalverde/agrolink-backend/internal/orders"
	pkgerrors "github.com/mvalverde/agrolink-backend/pkg/errors"
	"github.com/mvalverde/agrolink-backend/pkg/logger"
)

type placeOrderPayload struct {
	CropID string `json:"crop_id" validate:"required,uuid4"`
	Amount int    `json:"amount" validate:"required"`
}

type placeOrderResponse struct {
	OrderID  uuid.UUID `json:"order_id"`
	CropID   uuid.UUID `json:"crop_id"`
	Amount   int       `json:"amount"`
	Approved bool      `json:"approved"`
}

// BuyerPlaceOrder deducts inventory and records the purchase for approval.
func BuyerPlaceOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		principal, err := requirePrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload placeOrderPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cropID, err := uuid.Parse(payload.CropID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid crop id"))
			return
		}

		order, err := svc.Place(r.Context(), principal, orders.PlaceInput{CropID: cropID, Amount: payload.Amount})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, placeOrderResponse{
			OrderID:  order.ID,
			CropID:   order.CropID,
			Amount:   order.Amount,
			Approved: order.Approved,
		})
	}
}

// BuyerListOrders pages through the caller's own purchase history.
func BuyerListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
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

		list, err := svc.ListByBuyer(r.Context(), principal.UserID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, buyerOrderListToView(list))
	}
}
