package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	apporder "github.com/freshmart/orderflow/internal/application/order"
	"github.com/freshmart/orderflow/internal/domain/auth"
	domcart "github.com/freshmart/orderflow/internal/domain/cart"
	domcoupon "github.com/freshmart/orderflow/internal/domain/coupon"
	dominv "github.com/freshmart/orderflow/internal/domain/inventory"
	domorder "github.com/freshmart/orderflow/internal/domain/order"
	dompayment "github.com/freshmart/orderflow/internal/domain/payment"
	domuser "github.com/freshmart/orderflow/internal/domain/user"
)

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	var (
		shortfall *dominv.ShortfallError
		missing   *apporder.ProductNotFoundError
	)
	switch {
	case errors.Is(err, auth.ErrUnauthorized),
		errors.Is(err, auth.ErrNotAssignedAgent):
		writeError(w, http.StatusForbidden, err)

	case errors.Is(err, domorder.ErrNotFound),
		errors.Is(err, dominv.ErrNotFound),
		errors.Is(err, domuser.ErrNotFound),
		errors.Is(err, domuser.ErrAddressNotFound),
		errors.Is(err, dompayment.ErrNotFound):
		writeError(w, http.StatusNotFound, err)

	case errors.Is(err, domorder.ErrAlreadyCancelled),
		errors.Is(err, domorder.ErrCannotCancelDelivered),
		errors.Is(err, domorder.ErrInvalidTransition),
		errors.Is(err, domorder.ErrNotAssignable),
		errors.Is(err, domorder.ErrDeliverySequence),
		errors.Is(err, domorder.ErrDeliveryOnCancelled),
		errors.Is(err, dompayment.ErrAlreadyPaid),
		errors.Is(err, domorder.ErrConflict),
		errors.Is(err, domcoupon.ErrConflict),
		errors.Is(err, dominv.ErrConflict):
		writeError(w, http.StatusConflict, err)

	case errors.As(err, &shortfall),
		errors.As(err, &missing),
		errors.Is(err, domcart.ErrEmpty),
		errors.Is(err, apporder.ErrServiceUnavailable),
		errors.Is(err, domcoupon.ErrInvalidCode),
		errors.Is(err, domcoupon.ErrExpired),
		errors.Is(err, domcoupon.ErrBelowMinimum),
		errors.Is(err, domcoupon.ErrUsageExhausted),
		errors.Is(err, domcoupon.ErrInvalidValue),
		errors.Is(err, domcoupon.ErrInvalidType),
		errors.Is(err, dominv.ErrInvalidQuantity),
		errors.Is(err, dominv.ErrInvalidPrice),
		errors.Is(err, domuser.ErrNotAgent),
		errors.Is(err, domuser.ErrAgentInactive):
		writeError(w, http.StatusUnprocessableEntity, err)

	case errors.Is(err, dompayment.ErrInvalidSignature):
		writeError(w, http.StatusBadRequest, err)

	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
