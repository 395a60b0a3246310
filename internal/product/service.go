package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

const (
	defaultPageLimit = 12
	maxPageLimit     = 100
	featuredLimit    = 8
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)

// UpdateInput carries a partial product update. Nil fields are left
// untouched.
type UpdateInput struct {
	Name          *string
	Description   *string
	Price         *float64
	DiscountPrice *float64
	Category      *Category
	Images        []string
	Stock         *int
	Brand         *string
	Featured      *bool
}

type Service interface {
	Create(ctx context.Context, p *Product) (*Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
	List(ctx context.Context, params ListParams) ([]Product, int, error)
	ListFeatured(ctx context.Context) ([]Product, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CreateReview(ctx context.Context, productID, userID uuid.UUID, userName string, rating int, comment string) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, p *Product) (*Product, error) {
	if err := validateProduct(p); err != nil {
		return nil, err
	}

	if _, err := s.repo.Create(ctx, p); err != nil {
		log.Error().Err(err).Msg("service: failed to create product in repository")
		return nil, fmt.Errorf("service: failed to create product: %w", err)
	}

	log.Info().Stringer("product_id", p.ID).Str("name", p.Name).Msg("service: product created")
	return p, nil
}

func validateProduct(p *Product) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("%w: product name is required", ErrInvalidInput)
	}
	if p.Description == "" {
		return fmt.Errorf("%w: product description is required", ErrInvalidInput)
	}
	if p.Price < 0 {
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidInput)
	}
	if p.DiscountPrice != nil && *p.DiscountPrice < 0 {
		return fmt.Errorf("%w: discount price cannot be negative", ErrInvalidInput)
	}
	if !p.Category.Valid() {
		return fmt.Errorf("%w: invalid category %q", ErrInvalidInput, p.Category)
	}
	if p.Stock < 0 {
		return fmt.Errorf("%w: stock cannot be negative", ErrInvalidInput)
	}
	if len(p.Images) == 0 {
		return fmt.Errorf("%w: at least one product image is required", ErrInvalidInput)
	}
	return nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to fetch product by id")
		return nil, fmt.Errorf("service: failed to fetch product: %w", err)
	}
	return p, nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]Product, int, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 {
		params.Limit = defaultPageLimit
	}
	if params.Limit > maxPageLimit {
		params.Limit = maxPageLimit
	}
	if params.Category != "" && !params.Category.Valid() {
		return nil, 0, fmt.Errorf("%w: invalid category %q", ErrInvalidInput, params.Category)
	}

	products, total, err := s.repo.List(ctx, params)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list products")
		return nil, 0, fmt.Errorf("service: failed to list products: %w", err)
	}
	return products, total, nil
}

func (s *service) ListFeatured(ctx context.Context) ([]Product, error) {
	products, err := s.repo.ListFeatured(ctx, featuredLimit)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list featured products")
		return nil, fmt.Errorf("service: failed to list featured products: %w", err)
	}
	return products, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("service: failed to fetch product for update: %w", err)
	}

	if input.Name != nil {
		p.Name = *input.Name
	}
	if input.Description != nil {
		p.Description = *input.Description
	}
	if input.Price != nil {
		p.Price = *input.Price
	}
	if input.DiscountPrice != nil {
		p.DiscountPrice = input.DiscountPrice
	}
	if input.Category != nil {
		p.Category = *input.Category
	}
	if input.Images != nil {
		p.Images = input.Images
	}
	if input.Stock != nil {
		p.Stock = *input.Stock
	}
	if input.Brand != nil {
		p.Brand = *input.Brand
	}
	if input.Featured != nil {
		p.Featured = *input.Featured
	}

	if err := validateProduct(p); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, p); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to update product")
		return nil, fmt.Errorf("service: failed to update product: %w", err)
	}

	return p, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to delete product")
		return fmt.Errorf("service: failed to delete product: %w", err)
	}
	log.Info().Stringer("product_id", id).Msg("service: product deleted")
	return nil
}

func (s *service) CreateReview(ctx context.Context, productID, userID uuid.UUID, userName string, rating int, comment string) error {
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}
	if strings.TrimSpace(comment) == "" {
		return fmt.Errorf("%w: review comment is required", ErrInvalidInput)
	}

	review := &Review{
		ProductID: productID,
		UserID:    userID,
		UserName:  userName,
		Rating:    rating,
		Comment:   comment,
	}

	if err := s.repo.AddReview(ctx, review); err != nil {
		if errors.Is(err, ErrAlreadyReviewed) || errors.Is(err, ErrNotFound) {
			return err
		}
		log.Error().Err(err).Stringer("product_id", productID).Msg("service: failed to add review")
		return fmt.Errorf("service: failed to add review: %w", err)
	}

	log.Info().Stringer("product_id", productID).Stringer("user_id", userID).Int("rating", rating).Msg("service: review added")
	return nil
}
