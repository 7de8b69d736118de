package httpapi

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	appcart "github.com/freshmart/orderflow/internal/application/cart"
	appcoupon "github.com/freshmart/orderflow/internal/application/coupon"
	appinventory "github.com/freshmart/orderflow/internal/application/inventory"
	apporder "github.com/freshmart/orderflow/internal/application/order"
	apppayment "github.com/freshmart/orderflow/internal/application/payment"
	appuser "github.com/freshmart/orderflow/internal/application/user"
	"github.com/freshmart/orderflow/internal/infrastructure/gateway"
	"github.com/freshmart/orderflow/internal/infrastructure/memory"
	"github.com/freshmart/orderflow/internal/infrastructure/servicearea"

	"github.com/shopspring/decimal"
)

const testPaymentSecret = "test-secret"

// newTestServer wires the full handler stack onto in-memory backends, the
// same shape the binary assembles for the memory store.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	seq := memory.NewSequenceGenerator()
	orders := memory.NewOrderRepository()
	coupons := memory.NewCouponRepository()
	stock := memory.NewInventoryRepository()
	carts := memory.NewCartRepository()
	users := memory.NewUserRepository()

	couponSvc := appcoupon.NewService(coupons, seq, nil)
	assembler := apporder.NewAssembler(stock, seq, couponSvc, apporder.AssemblerConfig{
		ShippingFlatFee:       decimal.RequireFromString("5.99"),
		FreeShippingThreshold: decimal.NewFromInt(50),
		DeliverySLA:           48 * time.Hour,
	})
	orderSvc := apporder.NewService(orders, coupons, stock, carts, users, assembler, servicearea.NewStatic(nil), nil, nil)
	paymentSvc := apppayment.NewService(orders, gateway.NewSandbox(nil), nil, testPaymentSecret, "USD", nil)

	h := NewHandler(
		orderSvc,
		paymentSvc,
		couponSvc,
		appinventory.NewService(stock, seq, nil),
		appcart.NewService(carts, stock, nil),
		appuser.NewService(users, seq, nil),
		nil,
	)
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path string, headers map[string]string, body any, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func asCustomer(id int64) map[string]string {
	return map[string]string{"X-User-ID": strconv.FormatInt(id, 10)}
}

var asAdmin = map[string]string{"X-User-ID": "1000", "X-Admin": "true"}

func registerCustomer(t *testing.T, srv *httptest.Server) int64 {
	t.Helper()
	var u struct {
		ID int64 `json:"id"`
	}
	status := do(t, srv, http.MethodPost, "/users", nil, map[string]any{
		"name":  "Ada",
		"email": "ada@example.com",
		"addresses": []map[string]any{
			{"line1": "1 Main St", "city": "Springfield", "postal_code": "12345"},
		},
	}, &u)
	if status != http.StatusCreated {
		t.Fatalf("register user: status %d", status)
	}
	return u.ID
}

func seedCatalog(t *testing.T, srv *httptest.Server, price string, stock int) int64 {
	t.Helper()
	var p struct {
		ID int64 `json:"id"`
	}
	status := do(t, srv, http.MethodPost, "/admin/products", asAdmin, map[string]any{
		"name":  "Oat Milk",
		"price": price,
		"stock": stock,
	}, &p)
	if status != http.StatusCreated {
		t.Fatalf("create product: status %d", status)
	}
	return p.ID
}

func TestCheckoutFlow(t *testing.T) {
	srv := newTestServer(t)

	userID := registerCustomer(t, srv)
	productID := seedCatalog(t, srv, "20.00", 10)

	status := do(t, srv, http.MethodPost, "/admin/coupons", asAdmin, map[string]any{
		"code":       "SAVE10",
		"type":       "percentage",
		"value":      "10",
		"max_uses":   5,
		"expires_at": time.Now().Add(24 * time.Hour).Format(time.RFC3339),
	}, nil)
	if status != http.StatusCreated {
		t.Fatalf("create coupon: status %d", status)
	}

	customer := asCustomer(userID)

	var cart struct {
		Items []struct {
			Quantity int `json:"quantity"`
		} `json:"items"`
	}
	status = do(t, srv, http.MethodPut, "/cart/items", customer, map[string]any{
		"product_id": productID,
		"quantity":   3,
	}, &cart)
	if status != http.StatusOK || len(cart.Items) != 1 || cart.Items[0].Quantity != 3 {
		t.Fatalf("set cart item: status %d, cart %+v", status, cart)
	}

	var ord struct {
		ID          int64  `json:"id"`
		Code        string `json:"code"`
		Subtotal    string `json:"subtotal"`
		ShippingFee string `json:"shipping_fee"`
		Discount    string `json:"discount"`
		Total       string `json:"total"`
		Status      string `json:"status"`
	}
	status = do(t, srv, http.MethodPost, "/orders", customer, map[string]any{
		"address_id":     1,
		"coupon_code":    "SAVE10",
		"payment_method": "card",
	}, &ord)
	if status != http.StatusCreated {
		t.Fatalf("create order: status %d", status)
	}
	// Subtotal 60 clears the free-shipping threshold; 10% off leaves 54.
	if ord.Subtotal != "60.00" || ord.ShippingFee != "0.00" || ord.Discount != "6.00" || ord.Total != "54.00" {
		t.Fatalf("order totals = %s/%s/%s/%s", ord.Subtotal, ord.ShippingFee, ord.Discount, ord.Total)
	}
	if ord.Code != fmt.Sprintf("ORD-%06d", ord.ID) {
		t.Fatalf("order code = %q for id %d", ord.Code, ord.ID)
	}

	// Reservation drains the catalog and checkout clears the cart.
	var prod struct {
		Stock int `json:"stock"`
	}
	if status = do(t, srv, http.MethodGet, fmt.Sprintf("/products/%d", productID), nil, nil, &prod); status != http.StatusOK || prod.Stock != 7 {
		t.Fatalf("product after order: status %d, stock %d", status, prod.Stock)
	}
	cart.Items = nil
	if status = do(t, srv, http.MethodGet, "/cart", customer, nil, &cart); status != http.StatusOK || len(cart.Items) != 0 {
		t.Fatalf("cart after order: status %d, items %d", status, len(cart.Items))
	}

	var intent struct {
		ExternalRef string `json:"external_ref"`
		Amount      string `json:"amount"`
		Currency    string `json:"currency"`
	}
	status = do(t, srv, http.MethodPost, fmt.Sprintf("/orders/%d/payment-intent", ord.ID), customer, nil, &intent)
	if status != http.StatusCreated || intent.Amount != "54.00" || intent.Currency != "USD" {
		t.Fatalf("payment intent: status %d, %+v", status, intent)
	}

	sig := hex.EncodeToString(apppayment.Sign([]byte(testPaymentSecret), intent.ExternalRef, "txn-1"))
	var paid struct {
		PaymentStatus string `json:"payment_status"`
		PaymentRef    string `json:"payment_ref"`
	}
	status = do(t, srv, http.MethodPost, "/payments/verify", nil, map[string]any{
		"external_ref": intent.ExternalRef,
		"payment_ref":  "txn-1",
		"signature":    sig,
	}, &paid)
	if status != http.StatusOK || paid.PaymentStatus != "completed" || paid.PaymentRef != "txn-1" {
		t.Fatalf("verify: status %d, %+v", status, paid)
	}
}

func TestIdentityRequired(t *testing.T) {
	srv := newTestServer(t)
	if status := do(t, srv, http.MethodGet, "/cart", nil, nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", status)
	}
}

func TestAdminRoutesRejectCustomers(t *testing.T) {
	srv := newTestServer(t)
	status := do(t, srv, http.MethodPost, "/admin/products", asCustomer(5), map[string]any{
		"name":  "Oat Milk",
		"price": "4.00",
		"stock": 1,
	}, nil)
	if status != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", status)
	}
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	srv := newTestServer(t)
	userID := registerCustomer(t, srv)
	productID := seedCatalog(t, srv, "20.00", 2)

	customer := asCustomer(userID)
	if status := do(t, srv, http.MethodPut, "/cart/items", customer, map[string]any{
		"product_id": productID,
		"quantity":   3,
	}, nil); status != http.StatusOK {
		t.Fatalf("set cart item: status %d", status)
	}
	status := do(t, srv, http.MethodPost, "/orders", customer, map[string]any{
		"address_id":     1,
		"payment_method": "card",
	}, nil)
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", status)
	}
}

func TestGetOrderUnknownID(t *testing.T) {
	srv := newTestServer(t)
	userID := registerCustomer(t, srv)
	if status := do(t, srv, http.MethodGet, "/orders/99", asCustomer(userID), nil, nil); status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", status)
	}
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	srv := newTestServer(t)
	userID := registerCustomer(t, srv)
	productID := seedCatalog(t, srv, "20.00", 10)
	customer := asCustomer(userID)

	if status := do(t, srv, http.MethodPut, "/cart/items", customer, map[string]any{
		"product_id": productID,
		"quantity":   1,
	}, nil); status != http.StatusOK {
		t.Fatalf("set cart item: status %d", status)
	}
	var ord struct {
		ID int64 `json:"id"`
	}
	if status := do(t, srv, http.MethodPost, "/orders", customer, map[string]any{
		"address_id":     1,
		"payment_method": "card",
	}, &ord); status != http.StatusCreated {
		t.Fatalf("create order: status %d", status)
	}
	var intent struct {
		ExternalRef string `json:"external_ref"`
	}
	if status := do(t, srv, http.MethodPost, fmt.Sprintf("/orders/%d/payment-intent", ord.ID), customer, nil, &intent); status != http.StatusCreated {
		t.Fatalf("payment intent: status %d", status)
	}

	status := do(t, srv, http.MethodPost, "/payments/verify", nil, map[string]any{
		"external_ref": intent.ExternalRef,
		"payment_ref":  "txn-1",
		"signature":    "deadbeef",
	}, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
}
