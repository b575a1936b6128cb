package main

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/threadloom/storefront-backend/pkg/db/models"
	"github.com/threadloom/storefront-backend/pkg/types"
)

// demoCatalog is a fixed set of apparel rows for local checkout runs. IDs are
// stable so re-seeding leaves existing rows untouched.
func demoCatalog() []models.Product {
	sale := func(v string) decimal.NullDecimal {
		return decimal.NewNullDecimal(decimal.RequireFromString(v))
	}
	return []models.Product{
		{
			ID:             uuid.MustParse("6f1c2a0e-1f7b-4c55-9d1e-0a1b2c3d4e01"),
			Name:           "Organic Cotton Crew Tee",
			Price:          decimal.RequireFromString("799.00"),
			SalePrice:      sale("649.00"),
			StockQuantity:  120,
			AvailableSizes: types.NewSizeSet("S", "M", "L", "XL"),
			Images:         types.ImageList{"products/crew-tee/front.jpg", "products/crew-tee/back.jpg"},
			IsActive:       true,
		},
		{
			ID:             uuid.MustParse("6f1c2a0e-1f7b-4c55-9d1e-0a1b2c3d4e02"),
			Name:           "Linen Relaxed Shirt",
			Price:          decimal.RequireFromString("1899.00"),
			StockQuantity:  40,
			AvailableSizes: types.NewSizeSet("M", "L", "XL"),
			Images:         types.ImageList{"products/linen-shirt/front.jpg"},
			IsActive:       true,
		},
		{
			ID:             uuid.MustParse("6f1c2a0e-1f7b-4c55-9d1e-0a1b2c3d4e03"),
			Name:           "Selvedge Denim Jacket",
			Price:          decimal.RequireFromString("4499.00"),
			SalePrice:      sale("3999.00"),
			StockQuantity:  8,
			AvailableSizes: types.NewSizeSet("S", "M", "L"),
			Images:         types.ImageList{"products/denim-jacket/front.jpg"},
			IsActive:       true,
		},
		{
			ID:             uuid.MustParse("6f1c2a0e-1f7b-4c55-9d1e-0a1b2c3d4e04"),
			Name:           "Handwoven Cotton Tote",
			Price:          decimal.RequireFromString("549.00"),
			StockQuantity:  60,
			AvailableSizes: types.NewSizeSet(),
			Images:         types.ImageList{"products/tote/front.jpg"},
			IsActive:       true,
		},
		{
			ID:             uuid.MustParse("6f1c2a0e-1f7b-4c55-9d1e-0a1b2c3d4e05"),
			Name:           "Merino Scarf (retired)",
			Price:          decimal.RequireFromString("1299.00"),
			StockQuantity:  0,
			AvailableSizes: types.NewSizeSet(),
			Images:         types.ImageList{},
			IsActive:       false,
		},
	}
}

func seedCatalog(ctx context.Context, conn *gorm.DB) (int64, error) {
	rows := demoCatalog()
	res := conn.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&rows)
	return res.RowsAffected, res.Error
}
