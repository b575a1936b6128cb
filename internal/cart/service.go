package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/threadloom/storefront-backend/internal/identity"
	dbpkg "github.com/threadloom/storefront-backend/pkg/db"
	"github.com/threadloom/storefront-backend/pkg/db/models"
	pkgerrors "github.com/threadloom/storefront-backend/pkg/errors"
	"github.com/threadloom/storefront-backend/pkg/types"
)

const maxLineQuantity = 99

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

// Service exposes the cart store. No stock checks happen here; stock is only
// authoritative at settlement.
type Service interface {
	AddLine(ctx context.Context, owner identity.Identity, productID uuid.UUID, qty int, size string) (*models.CartLine, error)
	UpdateQuantity(ctx context.Context, owner identity.Identity, lineID uuid.UUID, qty int) (*models.CartLine, error)
	RemoveLine(ctx context.Context, owner identity.Identity, lineID uuid.UUID) error
	ListLines(ctx context.Context, owner identity.Identity) ([]models.CartLine, error)
	Clear(ctx context.Context, owner identity.Identity) error
	View(ctx context.Context, owner identity.Identity) (*ViewDTO, error)
	MergeGuestIntoUser(ctx context.Context, guest, user identity.Identity) error
}

type service struct {
	repo     CartRepository
	tx       txRunner
	products productLoader
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, tx txRunner, products productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{repo: repo, tx: tx, products: products}, nil
}

func validateOwner(owner identity.Identity) error {
	if err := owner.Validate(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "cart identity required")
	}
	return nil
}

func validateQuantity(qty int) error {
	if qty < 1 {
		return pkgerrors.ValidationField("quantity", "must be at least 1")
	}
	if qty > maxLineQuantity {
		return pkgerrors.ValidationField("quantity", fmt.Sprintf("must be at most %d", maxLineQuantity))
	}
	return nil
}

// resolveSize checks the requested size against the product's size set and
// returns the canonical stored value.
func resolveSize(product *models.Product, size string) (string, error) {
	normalized := types.NormalizeSize(size)
	if !product.AvailableSizes.Sized() {
		if normalized != "" {
			return "", pkgerrors.ValidationField("size", "product is not sized")
		}
		return "", nil
	}
	if normalized == "" {
		return "", pkgerrors.ValidationField("size", "is required")
	}
	if !product.AvailableSizes.Contains(normalized) {
		return "", pkgerrors.ValidationField("size", fmt.Sprintf("%s is not offered", normalized))
	}
	return normalized, nil
}

// AddLine adds qty of a product to the cart, merging into an existing line for
// the same product and size.
func (s *service) AddLine(ctx context.Context, owner identity.Identity, productID uuid.UUID, qty int, size string) (*models.CartLine, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.ValidationField("product_id", "is required")
	}
	if err := validateQuantity(qty); err != nil {
		return nil, err
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	canonicalSize, err := resolveSize(product, size)
	if err != nil {
		return nil, err
	}

	var result *models.CartLine
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindMatching(ctx, owner, productID, canonicalSize)
		if err != nil {
			return err
		}
		if existing != nil {
			total := existing.Quantity + qty
			if err := validateQuantity(total); err != nil {
				return err
			}
			if err := repo.SetQuantity(ctx, existing.ID, total); err != nil {
				return err
			}
			existing.Quantity = total
			result = existing
			return nil
		}
		line := &models.CartLine{
			OwnerKind: owner.Kind,
			OwnerID:   owner.ID,
			ProductID: productID,
			Quantity:  qty,
			Size:      canonicalSize,
		}
		if err := repo.Create(ctx, line); err != nil {
			return err
		}
		result = line
		return nil
	})
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "cart line was modified concurrently, retry")
		}
		return nil, asCartError(err, "add cart line")
	}
	return result, nil
}

// UpdateQuantity sets a line's quantity. qty < 1 is rejected, never clamped.
func (s *service) UpdateQuantity(ctx context.Context, owner identity.Identity, lineID uuid.UUID, qty int) (*models.CartLine, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	if err := validateQuantity(qty); err != nil {
		return nil, err
	}
	line, err := s.repo.FindByIDAndOwner(ctx, lineID, owner)
	if err != nil {
		return nil, asCartError(err, "load cart line")
	}
	if err := s.repo.SetQuantity(ctx, line.ID, qty); err != nil {
		return nil, asCartError(err, "update cart line")
	}
	line.Quantity = qty
	return line, nil
}

func (s *service) RemoveLine(ctx context.Context, owner identity.Identity, lineID uuid.UUID) error {
	if err := validateOwner(owner); err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, lineID, owner)
	if err != nil {
		return asCartError(err, "remove cart line")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}
	return nil
}

func (s *service) ListLines(ctx context.Context, owner identity.Identity) ([]models.CartLine, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	lines, err := s.repo.ListByOwner(ctx, owner)
	if err != nil {
		return nil, asCartError(err, "list cart lines")
	}
	return lines, nil
}

func (s *service) Clear(ctx context.Context, owner identity.Identity) error {
	if err := validateOwner(owner); err != nil {
		return err
	}
	if err := s.repo.ClearOwner(ctx, owner); err != nil {
		return asCartError(err, "clear cart")
	}
	return nil
}

// View joins the lines with live catalog prices.
func (s *service) View(ctx context.Context, owner identity.Identity) (*ViewDTO, error) {
	lines, err := s.ListLines(ctx, owner)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	catalog, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	view := &ViewDTO{Lines: make([]LineDTO, 0, len(lines)), Subtotal: decimal.Zero}
	for _, line := range lines {
		var product *models.Product
		if p, ok := catalog[line.ProductID]; ok {
			product = &p
		}
		dto := newLineDTO(line, product)
		view.Lines = append(view.Lines, dto)
		view.ItemCount += line.Quantity
		view.Subtotal = view.Subtotal.Add(dto.LineTotal)
	}
	return view, nil
}

// MergeGuestIntoUser moves a guest cart into the user's cart after login.
// Quantities are summed when both carts hold the same product and size.
func (s *service) MergeGuestIntoUser(ctx context.Context, guest, user identity.Identity) error {
	if !guest.IsGuest() || !user.IsUser() {
		return pkgerrors.New(pkgerrors.CodeValidation, "merge requires a guest source and user target")
	}
	if guest.ID == "" {
		return nil
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		guestLines, err := repo.ListByOwner(ctx, guest)
		if err != nil {
			return err
		}
		for _, line := range guestLines {
			existing, err := repo.FindMatching(ctx, user, line.ProductID, line.Size)
			if err != nil {
				return err
			}
			if existing != nil {
				total := existing.Quantity + line.Quantity
				if total > maxLineQuantity {
					total = maxLineQuantity
				}
				if err := repo.SetQuantity(ctx, existing.ID, total); err != nil {
					return err
				}
				continue
			}
			moved := &models.CartLine{
				OwnerKind: user.Kind,
				OwnerID:   user.ID,
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				Size:      line.Size,
			}
			if err := repo.Create(ctx, moved); err != nil {
				return err
			}
		}
		return repo.ClearOwner(ctx, guest)
	})
}

func asCartError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
}
