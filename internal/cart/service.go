package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

var ErrInvalidQuantity = errors.New("quantity must be at least 1")

type Service interface {
	Get(ctx context.Context, userID uuid.UUID) ([]Item, error)
	Add(ctx context.Context, userID, productID uuid.UUID, quantity int) ([]Item, error)
	UpdateItem(ctx context.Context, userID, productID uuid.UUID, quantity int) ([]Item, error)
	Remove(ctx context.Context, userID, productID uuid.UUID) ([]Item, error)
	AddToWishlist(ctx context.Context, userID, productID uuid.UUID) error
	RemoveFromWishlist(ctx context.Context, userID, productID uuid.UUID) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) ([]Item, error) {
	items, err := s.repo.Get(ctx, userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to fetch cart")
		return nil, fmt.Errorf("service: failed to fetch cart: %w", err)
	}
	return items, nil
}

func (s *service) Add(ctx context.Context, userID, productID uuid.UUID, quantity int) ([]Item, error) {
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	if err := s.repo.Add(ctx, userID, productID, quantity); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		log.Error().Err(err).Stringer("user_id", userID).Stringer("product_id", productID).Msg("service: failed to add cart item")
		return nil, fmt.Errorf("service: failed to add cart item: %w", err)
	}

	return s.Get(ctx, userID)
}

func (s *service) UpdateItem(ctx context.Context, userID, productID uuid.UUID, quantity int) ([]Item, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	if err := s.repo.SetQuantity(ctx, userID, productID, quantity); err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, ErrItemNotFound
		}
		log.Error().Err(err).Stringer("user_id", userID).Stringer("product_id", productID).Msg("service: failed to update cart item")
		return nil, fmt.Errorf("service: failed to update cart item: %w", err)
	}

	return s.Get(ctx, userID)
}

func (s *service) Remove(ctx context.Context, userID, productID uuid.UUID) ([]Item, error) {
	if err := s.repo.Remove(ctx, userID, productID); err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Stringer("product_id", productID).Msg("service: failed to remove cart item")
		return nil, fmt.Errorf("service: failed to remove cart item: %w", err)
	}
	return s.Get(ctx, userID)
}

func (s *service) AddToWishlist(ctx context.Context, userID, productID uuid.UUID) error {
	err := s.repo.AddToWishlist(ctx, userID, productID)
	if err != nil {
		if errors.Is(err, ErrAlreadyInWishlist) || errors.Is(err, ErrProductNotFound) {
			return err
		}
		log.Error().Err(err).Stringer("user_id", userID).Stringer("product_id", productID).Msg("service: failed to add wishlist item")
		return fmt.Errorf("service: failed to add wishlist item: %w", err)
	}
	return nil
}

func (s *service) RemoveFromWishlist(ctx context.Context, userID, productID uuid.UUID) error {
	if err := s.repo.RemoveFromWishlist(ctx, userID, productID); err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Stringer("product_id", productID).Msg("service: failed to remove wishlist item")
		return fmt.Errorf("service: failed to remove wishlist item: %w", err)
	}
	return nil
}
