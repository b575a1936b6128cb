package checkout

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/threadloom/storefront-backend/internal/payments"
	"github.com/threadloom/storefront-backend/pkg/db/models"
	"github.com/threadloom/storefront-backend/pkg/enums"
	"github.com/threadloom/storefront-backend/pkg/types"
)

// ContactDTO is the phase-one contact block.
type ContactDTO struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// ShippingDTO is the phase-two address block.
type ShippingDTO struct {
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
	Country string `json:"country"`
}

// SessionDTO is the client view of a checkout session.
type SessionDTO struct {
	ID             uuid.UUID                   `json:"checkout_session_id"`
	Status         enums.CheckoutSessionStatus `json:"status"`
	Contact        ContactDTO                  `json:"contact"`
	Shipping       *ShippingDTO                `json:"shipping,omitempty"`
	Items          []types.SnapshotLine        `json:"items"`
	Total          decimal.Decimal             `json:"total"`
	Currency       enums.Currency              `json:"currency"`
	GatewayOrderID *string                     `json:"gateway_order_id,omitempty"`
	AccountCreated bool                        `json:"account_created,omitempty"`
	ExpiresAt      time.Time                   `json:"expires_at"`
}

// IntentDTO is what the client needs to open the gateway's payment widget.
type IntentDTO struct {
	CheckoutSessionID uuid.UUID       `json:"checkout_session_id"`
	OrderID           string          `json:"order_id"`
	Amount            decimal.Decimal `json:"amount"`
	AmountPaise       int64           `json:"amount_paise"`
	Currency          enums.Currency  `json:"currency"`
	KeyID             string          `json:"key_id"`
}

// ToSessionDTO maps the stored session.
func ToSessionDTO(s *models.CheckoutSession) *SessionDTO {
	if s == nil {
		return nil
	}
	items := []types.SnapshotLine(s.Snapshot)
	if items == nil {
		items = []types.SnapshotLine{}
	}
	dto := &SessionDTO{
		ID:     s.ID,
		Status: s.Status,
		Contact: ContactDTO{
			Name:  s.ContactName,
			Email: s.ContactEmail,
			Phone: s.ContactPhone,
		},
		Items:          items,
		Total:          s.TotalAmount,
		Currency:       s.Currency,
		GatewayOrderID: s.GatewayOrderID,
		ExpiresAt:      s.ExpiresAt,
	}
	if s.HasShipping() {
		dto.Shipping = &ShippingDTO{
			Address: deref(s.ShippingAddress),
			City:    deref(s.ShippingCity),
			State:   deref(s.ShippingState),
			Pincode: deref(s.ShippingPincode),
			Country: deref(s.ShippingCountry),
		}
	}
	return dto
}

func newIntentDTO(sessionID uuid.UUID, intent payments.Intent, keyID string) *IntentDTO {
	paise, _ := payments.ToMinorUnits(intent.Amount)
	return &IntentDTO{
		CheckoutSessionID: sessionID,
		OrderID:           intent.GatewayOrderID,
		Amount:            intent.Amount,
		AmountPaise:       paise,
		Currency:          intent.Currency,
		KeyID:             keyID,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
