package cart_test

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/shophub/internal/cart"
)

type mockRepository struct {
	getFunc                func(ctx context.Context, userID uuid.UUID) ([]cart.Item, error)
	addFunc                func(ctx context.Context, userID, productID uuid.UUID, quantity int) error
	setQuantityFunc        func(ctx context.Context, userID, productID uuid.UUID, quantity int) error
	removeFunc             func(ctx context.Context, userID, productID uuid.UUID) error
	addToWishlistFunc      func(ctx context.Context, userID, productID uuid.UUID) error
	removeFromWishlistFunc func(ctx context.Context, userID, productID uuid.UUID) error
}

func (m *mockRepository) Get(ctx context.Context, userID uuid.UUID) ([]cart.Item, error) {
	if m.getFunc == nil {
		return []cart.Item{}, nil
	}
	return m.getFunc(ctx, userID)
}

func (m *mockRepository) Add(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	return m.addFunc(ctx, userID, productID, quantity)
}

func (m *mockRepository) SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	return m.setQuantityFunc(ctx, userID, productID, quantity)
}

func (m *mockRepository) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	return m.removeFunc(ctx, userID, productID)
}

func (m *mockRepository) AddToWishlist(ctx context.Context, userID, productID uuid.UUID) error {
	return m.addToWishlistFunc(ctx, userID, productID)
}

func (m *mockRepository) RemoveFromWishlist(ctx context.Context, userID, productID uuid.UUID) error {
	return m.removeFromWishlistFunc(ctx, userID, productID)
}

func TestService_Add(t *testing.T) {
	userID := uuid.Must(uuid.NewV4())
	productID := uuid.Must(uuid.NewV4())

	t.Run("zero quantity defaults to one", func(t *testing.T) {
		repo := &mockRepository{
			addFunc: func(ctx context.Context, gotUser, gotProduct uuid.UUID, quantity int) error {
				assert.Equal(t, 1, quantity)
				return nil
			},
		}

		svc := cart.NewService(repo)
		_, err := svc.Add(context.Background(), userID, productID, 0)
		assert.NoError(t, err)
	})

	t.Run("negative quantity rejected", func(t *testing.T) {
		svc := cart.NewService(&mockRepository{})
		_, err := svc.Add(context.Background(), userID, productID, -2)
		assert.ErrorIs(t, err, cart.ErrInvalidQuantity)
	})

	t.Run("unknown product", func(t *testing.T) {
		repo := &mockRepository{
			addFunc: func(ctx context.Context, gotUser, gotProduct uuid.UUID, quantity int) error {
				return cart.ErrProductNotFound
			},
		}

		svc := cart.NewService(repo)
		_, err := svc.Add(context.Background(), userID, productID, 1)
		assert.ErrorIs(t, err, cart.ErrProductNotFound)
	})

	t.Run("returns refreshed cart", func(t *testing.T) {
		repo := &mockRepository{
			addFunc: func(ctx context.Context, gotUser, gotProduct uuid.UUID, quantity int) error {
				return nil
			},
			getFunc: func(ctx context.Context, gotUser uuid.UUID) ([]cart.Item, error) {
				return []cart.Item{{ProductID: productID, Quantity: 3}}, nil
			},
		}

		svc := cart.NewService(repo)
		items, err := svc.Add(context.Background(), userID, productID, 3)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, 3, items[0].Quantity)
	})
}

func TestService_UpdateItem(t *testing.T) {
	userID := uuid.Must(uuid.NewV4())
	productID := uuid.Must(uuid.NewV4())

	t.Run("quantity below one rejected", func(t *testing.T) {
		svc := cart.NewService(&mockRepository{})
		_, err := svc.UpdateItem(context.Background(), userID, productID, 0)
		assert.ErrorIs(t, err, cart.ErrInvalidQuantity)
	})

	t.Run("item not in cart", func(t *testing.T) {
		repo := &mockRepository{
			setQuantityFunc: func(ctx context.Context, gotUser, gotProduct uuid.UUID, quantity int) error {
				return cart.ErrItemNotFound
			},
		}

		svc := cart.NewService(repo)
		_, err := svc.UpdateItem(context.Background(), userID, productID, 2)
		assert.ErrorIs(t, err, cart.ErrItemNotFound)
	})
}

func TestService_AddToWishlist(t *testing.T) {
	userID := uuid.Must(uuid.NewV4())
	productID := uuid.Must(uuid.NewV4())

	t.Run("duplicate rejected", func(t *testing.T) {
		repo := &mockRepository{
			addToWishlistFunc: func(ctx context.Context, gotUser, gotProduct uuid.UUID) error {
				return cart.ErrAlreadyInWishlist
			},
		}

		svc := cart.NewService(repo)
		err := svc.AddToWishlist(context.Background(), userID, productID)
		assert.ErrorIs(t, err, cart.ErrAlreadyInWishlist)
	})
}
