package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/threadloom/storefront-backend/pkg/db/models"
)

// LineDTO is a cart line joined with the live catalog price. Prices here are
// informational; the checkout snapshot is the binding one.
type LineDTO struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Size        *string         `json:"size,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
	Image       string          `json:"image,omitempty"`
	Available   bool            `json:"available"`
	AddedAt     time.Time       `json:"added_at"`
}

// ViewDTO is the response for GET /cart/items.
type ViewDTO struct {
	Lines     []LineDTO       `json:"lines"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

func newLineDTO(line models.CartLine, product *models.Product) LineDTO {
	dto := LineDTO{
		ID:        line.ID,
		ProductID: line.ProductID,
		Quantity:  line.Quantity,
		AddedAt:   line.CreatedAt,
	}
	if line.Size != "" {
		size := line.Size
		dto.Size = &size
	}
	if product == nil {
		return dto
	}
	dto.ProductName = product.Name
	dto.UnitPrice = product.EffectivePrice()
	dto.LineTotal = dto.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
	dto.Image = product.Images.Cover()
	dto.Available = product.StockQuantity >= line.Quantity
	return dto
}
