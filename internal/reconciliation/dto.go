package reconciliation

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/threadloom/storefront-backend/pkg/db/models"
	"github.com/threadloom/storefront-backend/pkg/enums"
)

type EntryDTO struct {
	ID                uuid.UUID                  `json:"id"`
	GatewayOrderID    string                     `json:"gateway_order_id"`
	GatewayPaymentID  string                     `json:"gateway_payment_id"`
	CheckoutSessionID *uuid.UUID                 `json:"checkout_session_id,omitempty"`
	Amount            decimal.Decimal            `json:"amount"`
	Reason            string                     `json:"reason"`
	ErrorCode         string                     `json:"error_code"`
	Status            enums.ReconciliationStatus `json:"status"`
	ResolutionNote    *string                    `json:"resolution_note,omitempty"`
	ResolvedBy        *uuid.UUID                 `json:"resolved_by,omitempty"`
	ResolvedAt        *time.Time                 `json:"resolved_at,omitempty"`
	CreatedAt         time.Time                  `json:"created_at"`
}

type EntryList struct {
	Entries []EntryDTO `json:"entries"`
	Total   int64      `json:"total"`
}

func ToEntryDTO(m *models.PaymentReconciliation) *EntryDTO {
	return &EntryDTO{
		ID:                m.ID,
		GatewayOrderID:    m.GatewayOrderID,
		GatewayPaymentID:  m.GatewayPaymentID,
		CheckoutSessionID: m.CheckoutSessionID,
		Amount:            m.Amount,
		Reason:            m.Reason,
		ErrorCode:         m.ErrorCode,
		Status:            m.Status,
		ResolutionNote:    m.ResolutionNote,
		ResolvedBy:        m.ResolvedBy,
		ResolvedAt:        m.ResolvedAt,
		CreatedAt:         m.CreatedAt,
	}
}
