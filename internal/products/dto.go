package product

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/threadloom/storefront-backend/pkg/db/models"
)

// LookupDTO is the catalog view handed to the checkout pipeline.
type LookupDTO struct {
	ID             uuid.UUID        `json:"id"`
	Name           string           `json:"name"`
	Price          decimal.Decimal  `json:"price"`
	SalePrice      *decimal.Decimal `json:"sale_price,omitempty"`
	EffectivePrice decimal.Decimal  `json:"effective_price"`
	StockQuantity  int              `json:"stock_quantity"`
	AvailableSizes []string         `json:"available_sizes"`
	CoverImage     string           `json:"cover_image,omitempty"`
}

// ToLookupDTO maps a product row into the lookup view.
func ToLookupDTO(p models.Product) LookupDTO {
	dto := LookupDTO{
		ID:             p.ID,
		Name:           p.Name,
		Price:          p.Price,
		EffectivePrice: p.EffectivePrice(),
		StockQuantity:  p.StockQuantity,
		AvailableSizes: []string(p.AvailableSizes),
		CoverImage:     p.Images.Cover(),
	}
	if dto.AvailableSizes == nil {
		dto.AvailableSizes = []string{}
	}
	if p.SalePrice.Valid {
		sale := p.SalePrice.Decimal
		dto.SalePrice = &sale
	}
	return dto
}
