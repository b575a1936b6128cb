package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/threadloom/storefront-backend/pkg/db/models"
	"github.com/threadloom/storefront-backend/pkg/enums"
	"github.com/threadloom/storefront-backend/pkg/pagination"
)

const (
	defaultListLimit = 25
	maxListLimit     = 100
)

// ListFilter narrows the admin order list.
type ListFilter struct {
	Status *enums.OrderStatus
	Query  string
	Limit  int
	Offset int
}

func (f ListFilter) normalized() ListFilter {
	w := pagination.Window{Limit: f.Limit, Offset: f.Offset}.Normalize(defaultListLimit, maxListLimit)
	f.Limit, f.Offset = w.Limit, w.Offset
	return f
}

// UpdateInput is the admin fulfillment update. Nil fields are left unchanged.
type UpdateInput struct {
	Status         *enums.OrderStatus
	TrackingNumber *string
	Notes          *string
}

// ItemDTO is one immutable order line.
type ItemDTO struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Size      string          `json:"size,omitempty"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// CustomerDTO is the contact block copied onto the order.
type CustomerDTO struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// AddressDTO is the shipping address copied onto the order.
type AddressDTO struct {
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
	Country string `json:"country"`
}

// OrderDTO is the confirmation and admin view of an order.
type OrderDTO struct {
	ID             uuid.UUID         `json:"id"`
	OrderNumber    string            `json:"order_number"`
	Status         enums.OrderStatus `json:"status"`
	Total          decimal.Decimal   `json:"total"`
	Currency       enums.Currency    `json:"currency"`
	Customer       CustomerDTO       `json:"customer"`
	Shipping       AddressDTO        `json:"shipping"`
	TrackingNumber *string           `json:"tracking_number,omitempty"`
	Notes          *string           `json:"notes,omitempty"`
	PaymentID      string            `json:"payment_id"`
	Items          []ItemDTO         `json:"items"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// SummaryDTO is one row of the admin list.
type SummaryDTO struct {
	ID            uuid.UUID         `json:"id"`
	OrderNumber   string            `json:"order_number"`
	Status        enums.OrderStatus `json:"status"`
	Total         decimal.Decimal   `json:"total"`
	CustomerName  string            `json:"customer_name"`
	CustomerEmail string            `json:"customer_email"`
	CreatedAt     time.Time         `json:"created_at"`
}

// OrderList wraps a page of summaries.
type OrderList struct {
	Orders []SummaryDTO `json:"orders"`
	Total  int64        `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
	More   bool         `json:"has_more"`
}

func ToOrderDTO(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	items := make([]ItemDTO, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, ItemDTO{
			ProductID: item.ProductID,
			Name:      item.ProductNameSnapshot,
			UnitPrice: item.UnitPriceSnapshot,
			Quantity:  item.Quantity,
			Size:      item.Size,
			LineTotal: item.LineTotal(),
		})
	}
	return &OrderDTO{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		Status:      o.Status,
		Total:       o.TotalAmount,
		Currency:    o.Currency,
		Customer: CustomerDTO{
			Name:  o.CustomerName,
			Email: o.CustomerEmail,
			Phone: o.CustomerPhone,
		},
		Shipping: AddressDTO{
			Address: o.ShippingAddress,
			City:    o.ShippingCity,
			State:   o.ShippingState,
			Pincode: o.ShippingPincode,
			Country: o.ShippingCountry,
		},
		TrackingNumber: o.TrackingNumber,
		Notes:          o.Notes,
		PaymentID:      o.GatewayPaymentID,
		Items:          items,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

func toSummaryDTO(o models.Order) SummaryDTO {
	return SummaryDTO{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		Status:        o.Status,
		Total:         o.TotalAmount,
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		CreatedAt:     o.CreatedAt,
	}
}
