// Package httpapi exposes the order lifecycle over HTTP. Identity arrives in
// trusted headers; routing is chi with the observability middleware applied
// router-wide.
package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	appcart "github.com/freshmart/orderflow/internal/application/cart"
	appcoupon "github.com/freshmart/orderflow/internal/application/coupon"
	appinventory "github.com/freshmart/orderflow/internal/application/inventory"
	apporder "github.com/freshmart/orderflow/internal/application/order"
	apppayment "github.com/freshmart/orderflow/internal/application/payment"
	appuser "github.com/freshmart/orderflow/internal/application/user"
	domcoupon "github.com/freshmart/orderflow/internal/domain/coupon"
	domorder "github.com/freshmart/orderflow/internal/domain/order"
	"github.com/freshmart/orderflow/internal/observability"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type Handler struct {
	orders   *apporder.Service
	payments *apppayment.Service
	coupons  *appcoupon.Service
	catalog  *appinventory.Service
	carts    *appcart.Service
	users    *appuser.Service
	log      observability.Logger
	tel      observability.Telemetry
}

func NewHandler(
	orders *apporder.Service,
	payments *apppayment.Service,
	coupons *appcoupon.Service,
	catalog *appinventory.Service,
	carts *appcart.Service,
	users *appuser.Service,
	tel observability.Telemetry,
) *Handler {
	if tel == nil {
		tel = observability.NopTelemetry()
	}
	return &Handler{
		orders:   orders,
		payments: payments,
		coupons:  coupons,
		catalog:  catalog,
		carts:    carts,
		users:    users,
		log:      tel.Logger().With(observability.F("component", "http_server")),
		tel:      tel,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(observabilityMiddleware(h.log, h.tel))

	r.Get("/health", h.handleHealth)

	r.Get("/products", h.handleListProducts)
	r.Get("/products/{id}", h.handleGetProduct)

	r.Post("/users", h.handleRegisterUser)

	r.Group(func(r chi.Router) {
		r.Use(h.requireIdentity)

		r.Get("/users/{id}", h.handleGetUser)

		r.Get("/cart", h.handleViewCart)
		r.Put("/cart/items", h.handleSetCartItem)
		r.Delete("/cart", h.handleClearCart)

		r.Post("/orders", h.handleCreateOrder)
		r.Get("/orders", h.handleListOrders)
		r.Get("/orders/{id}", h.handleGetOrder)
		r.Post("/orders/{id}/cancel", h.handleCancelOrder)
		r.Patch("/orders/{id}/delivery", h.handleUpdateDeliveryStatus)

		r.Post("/orders/{id}/payment-intent", h.handleCreatePaymentIntent)

		r.Post("/admin/coupons", h.handleCreateCoupon)
		r.Post("/admin/products", h.handleCreateProduct)
		r.Post("/admin/products/{id}/restock", h.handleRestockProduct)
		r.Patch("/admin/orders/{id}/status", h.handleUpdateOrderStatus)
		r.Post("/admin/orders/{id}/delivery", h.handleAssignDelivery)
	})

	// Gateway callback; authenticated by its signature, not by identity
	// headers.
	r.Post("/payments/verify", h.handleVerifyPayment)

	return r
}

func (h *Handler) requireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFrom(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, errors.New("missing or invalid identity"))
			return
		}
		ctx := contextWithPrincipal(r.Context(), p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]productDTO, 0, len(products))
	for _, p := range products {
		out = append(out, toProductDTO(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	p, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(p))
}

type registerUserRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Addresses []struct {
		Line1      string `json:"line1"`
		City       string `json:"city"`
		PostalCode string `json:"postal_code"`
	} `json:"addresses"`
	IsAdmin         bool `json:"is_admin"`
	IsDeliveryAgent bool `json:"is_delivery_agent"`
	AgentActive     bool `json:"agent_active"`
}

func (h *Handler) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req registerUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	input := appuser.RegisterInput{
		Name:            req.Name,
		Email:           req.Email,
		IsAdmin:         req.IsAdmin,
		IsDeliveryAgent: req.IsDeliveryAgent,
		AgentActive:     req.AgentActive,
	}
	for _, a := range req.Addresses {
		input.Addresses = append(input.Addresses, appuser.AddressInput{
			Line1:      a.Line1,
			City:       a.City,
			PostalCode: a.PostalCode,
		})
	}
	u, err := h.users.Register(r.Context(), input)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(u))
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	u, err := h.users.Get(r.Context(), p, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(u))
}

func (h *Handler) handleViewCart(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())
	c, err := h.carts.View(r.Context(), p)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartDTO(c))
}

type setCartItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

func (h *Handler) handleSetCartItem(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())
	var req setCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	c, err := h.carts.SetItem(r.Context(), p, req.ProductID, req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartDTO(c))
}

func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())
	if err := h.carts.Clear(r.Context(), p); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createOrderRequest struct {
	AddressID      int64  `json:"address_id"`
	CouponCode     string `json:"coupon_code"`
	PaymentMethod  string `json:"payment_method"`
	IdempotencyKey string `json:"idempotency_key"`
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ord, err := h.orders.Create(r.Context(), p, apporder.CreateInput{
		AddressID:      req.AddressID,
		CouponCode:     req.CouponCode,
		PaymentMethod:  req.PaymentMethod,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderDTO(ord))
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())
	userID := p.UserID
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("invalid user_id"))
			return
		}
		userID = id
	}
	orders, err := h.orders.ListByUser(r.Context(), p, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]orderDTO, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderDTO(o))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ord, err := h.orders.Get(r.Context(), p, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(ord))
}

func (h *Handler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ord, err := h.orders.Cancel(r.Context(), p, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(ord))
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ord, err := h.orders.UpdateStatus(r.Context(), p, id, domorder.Status(req.Status))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(ord))
}

type assignDeliveryRequest struct {
	AgentID int64 `json:"agent_id"`
}

func (h *Handler) handleAssignDelivery(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req assignDeliveryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ord, err := h.orders.AssignDelivery(r.Context(), p, id, req.AgentID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(ord))
}

func (h *Handler) handleUpdateDeliveryStatus(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ord, err := h.orders.UpdateDeliveryStatus(r.Context(), p, id, domorder.DeliveryStatus(req.Status))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(ord))
}

type paymentIntentResponse struct {
	OrderID     int64  `json:"order_id"`
	ExternalRef string `json:"external_ref"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
}

func (h *Handler) handleCreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	intent, err := h.payments.CreateIntent(r.Context(), p, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, paymentIntentResponse{
		OrderID:     intent.OrderID,
		ExternalRef: intent.ExternalRef,
		Amount:      intent.Amount.StringFixed(2),
		Currency:    intent.Currency,
	})
}

type verifyPaymentRequest struct {
	ExternalRef string `json:"external_ref"`
	PaymentRef  string `json:"payment_ref"`
	Signature   string `json:"signature"`
}

func (h *Handler) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ord, err := h.payments.Verify(r.Context(), apppayment.Proof{
		ExternalRef: req.ExternalRef,
		PaymentRef:  req.PaymentRef,
		Signature:   req.Signature,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(ord))
}

type createCouponRequest struct {
	Code           string    `json:"code"`
	Type           string    `json:"type"`
	Value          string    `json:"value"`
	MinOrderAmount string    `json:"min_order_amount"`
	MaxUses        int       `json:"max_uses"`
	ExpiresAt      time.Time `json:"expires_at"`
}

func (h *Handler) handleCreateCoupon(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())
	var req createCouponRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	value, err := parseMoney(req.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	minOrder := decimal.Zero
	if req.MinOrderAmount != "" {
		if minOrder, err = parseMoney(req.MinOrderAmount); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	c, err := h.coupons.Create(r.Context(), p, appcoupon.CreateInput{
		Code:           req.Code,
		Type:           domcoupon.Type(req.Type),
		Value:          value,
		MinOrderAmount: minOrder,
		MaxUses:        req.MaxUses,
		ExpiresAt:      req.ExpiresAt,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCouponDTO(c))
}

type createProductRequest struct {
	Name     string `json:"name"`
	Price    string `json:"price"`
	ImageURL string `json:"image_url"`
	Stock    int    `json:"stock"`
}

func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())
	var req createProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	price, err := parseMoney(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	product, err := h.catalog.CreateProduct(r.Context(), p, appinventory.CreateProductInput{
		Name:     req.Name,
		Price:    price,
		ImageURL: req.ImageURL,
		Stock:    req.Stock,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductDTO(product))
}

type restockRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) handleRestockProduct(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req restockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	product, err := h.catalog.Restock(r.Context(), p, id, req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(product))
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

func parseMoney(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.New("invalid amount: " + raw)
	}
	return d, nil
}
