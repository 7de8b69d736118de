package httpapi

import (
	"time"

	domcart "github.com/freshmart/orderflow/internal/domain/cart"
	domcoupon "github.com/freshmart/orderflow/internal/domain/coupon"
	dominv "github.com/freshmart/orderflow/internal/domain/inventory"
	domorder "github.com/freshmart/orderflow/internal/domain/order"
	domuser "github.com/freshmart/orderflow/internal/domain/user"
)

// Money amounts render as fixed two-decimal strings so clients never see
// float artifacts.

type orderItemDTO struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	ImageURL  string `json:"image_url,omitempty"`
}

type deliveryUpdateDTO struct {
	Status  string    `json:"status"`
	ActorID int64     `json:"actor_id"`
	At      time.Time `json:"at"`
}

type addressDTO struct {
	ID         int64  `json:"id"`
	Line1      string `json:"line1"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

type orderDTO struct {
	ID             int64               `json:"id"`
	Code           string              `json:"code"`
	UserID         int64               `json:"user_id"`
	Items          []orderItemDTO      `json:"items"`
	Subtotal       string              `json:"subtotal"`
	ShippingFee    string              `json:"shipping_fee"`
	Discount       string              `json:"discount"`
	Total          string              `json:"total"`
	CouponCode     string              `json:"coupon_code,omitempty"`
	PaymentMethod  string              `json:"payment_method"`
	PaymentStatus  string              `json:"payment_status"`
	PaymentRef     string              `json:"payment_ref,omitempty"`
	Status         string              `json:"status"`
	DeliveryStatus string              `json:"delivery_status"`
	AgentID        int64               `json:"agent_id,omitempty"`
	DeliveryLog    []deliveryUpdateDTO `json:"delivery_log,omitempty"`
	Address        addressDTO          `json:"address"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	DeliveryDue    time.Time           `json:"delivery_due"`
}

func toOrderDTO(o *domorder.Order) orderDTO {
	items := make([]orderItemDTO, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemDTO{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice.StringFixed(2),
			Quantity:  it.Quantity,
			ImageURL:  it.ImageURL,
		})
	}
	log := make([]deliveryUpdateDTO, 0, len(o.DeliveryLog))
	for _, u := range o.DeliveryLog {
		log = append(log, deliveryUpdateDTO{
			Status:  string(u.Status),
			ActorID: u.ActorID,
			At:      u.At,
		})
	}
	return orderDTO{
		ID:             o.ID,
		Code:           o.Code,
		UserID:         o.UserID,
		Items:          items,
		Subtotal:       o.Subtotal.StringFixed(2),
		ShippingFee:    o.ShippingFee.StringFixed(2),
		Discount:       o.Discount.StringFixed(2),
		Total:          o.Total.StringFixed(2),
		CouponCode:     o.CouponCode,
		PaymentMethod:  o.PaymentMethod,
		PaymentStatus:  string(o.PaymentStatus),
		PaymentRef:     o.PaymentRef,
		Status:         string(o.Status),
		DeliveryStatus: string(o.DeliveryStatus),
		AgentID:        o.AgentID,
		DeliveryLog:    log,
		Address: addressDTO{
			ID:         o.Address.ID,
			Line1:      o.Address.Line1,
			City:       o.Address.City,
			PostalCode: o.Address.PostalCode,
		},
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
		DeliveryDue: o.DeliveryDue,
	}
}

type productDTO struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Price     string    `json:"price"`
	ImageURL  string    `json:"image_url,omitempty"`
	Stock     int       `json:"stock"`
	CreatedAt time.Time `json:"created_at"`
}

func toProductDTO(p *dominv.Product) productDTO {
	return productDTO{
		ID:        p.ID,
		Name:      p.Name,
		Price:     p.Price.StringFixed(2),
		ImageURL:  p.ImageURL,
		Stock:     p.Stock,
		CreatedAt: p.CreatedAt,
	}
}

type couponDTO struct {
	ID             int64     `json:"id"`
	Code           string    `json:"code"`
	Type           string    `json:"type"`
	Value          string    `json:"value"`
	MinOrderAmount string    `json:"min_order_amount"`
	MaxUses        int       `json:"max_uses"`
	UsedCount      int       `json:"used_count"`
	ExpiresAt      time.Time `json:"expires_at"`
	Active         bool      `json:"active"`
}

func toCouponDTO(c *domcoupon.Coupon) couponDTO {
	return couponDTO{
		ID:             c.ID,
		Code:           c.Code,
		Type:           string(c.Type),
		Value:          c.Value.StringFixed(2),
		MinOrderAmount: c.MinOrderAmount.StringFixed(2),
		MaxUses:        c.MaxUses,
		UsedCount:      c.UsedCount,
		ExpiresAt:      c.ExpiresAt,
		Active:         c.Active,
	}
}

type cartItemDTO struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Quantity  int    `json:"quantity"`
}

type cartDTO struct {
	UserID    int64         `json:"user_id"`
	Items     []cartItemDTO `json:"items"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func toCartDTO(c *domcart.Cart) cartDTO {
	items := make([]cartItemDTO, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, cartItemDTO{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price.StringFixed(2),
			Quantity:  it.Quantity,
		})
	}
	return cartDTO{UserID: c.UserID, Items: items, UpdatedAt: c.UpdatedAt}
}

type userDTO struct {
	ID              int64        `json:"id"`
	Name            string       `json:"name"`
	Email           string       `json:"email"`
	Addresses       []addressDTO `json:"addresses"`
	OrderCount      int          `json:"order_count"`
	TotalSpent      string       `json:"total_spent"`
	IsAdmin         bool         `json:"is_admin"`
	IsDeliveryAgent bool         `json:"is_delivery_agent"`
	AgentActive     bool         `json:"agent_active"`
	DeliveredCount  int          `json:"delivered_count"`
}

func toUserDTO(u *domuser.User) userDTO {
	addrs := make([]addressDTO, 0, len(u.Addresses))
	for _, a := range u.Addresses {
		addrs = append(addrs, addressDTO{
			ID:         a.ID,
			Line1:      a.Line1,
			City:       a.City,
			PostalCode: a.PostalCode,
		})
	}
	return userDTO{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		Addresses:       addrs,
		OrderCount:      u.OrderCount,
		TotalSpent:      u.TotalSpent.StringFixed(2),
		IsAdmin:         u.IsAdmin,
		IsDeliveryAgent: u.IsDeliveryAgent,
		AgentActive:     u.AgentActive,
		DeliveredCount:  u.DeliveredCount,
	}
}
