package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrItemNotFound      = errors.New("item not found in cart")
	ErrProductNotFound   = errors.New("product not found")
	ErrAlreadyInWishlist = errors.New("product already in wishlist")
)

type Repository interface {
	Get(ctx context.Context, userID uuid.UUID) ([]Item, error)
	Add(ctx context.Context, userID, productID uuid.UUID, quantity int) error
	SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) error
	Remove(ctx context.Context, userID, productID uuid.UUID) error
	AddToWishlist(ctx context.Context, userID, productID uuid.UUID) error
	RemoveFromWishlist(ctx context.Context, userID, productID uuid.UUID) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Get(ctx context.Context, userID uuid.UUID) ([]Item, error) {
	query := `
		SELECT c.product_id, c.quantity, c.created_at, c.updated_at,
			p.id, p.name, p.price, p.discount_price, p.images, p.stock
		FROM cart_items c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.created_at
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query cart for user %s: %w", userID, err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var item Item
		err := rows.Scan(
			&item.ProductID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt,
			&item.Product.ID, &item.Product.Name, &item.Product.Price, &item.Product.DiscountPrice,
			&item.Product.Images, &item.Product.Stock,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan cart item for user %s: %w", userID, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating cart items for user %s: %w", userID, err)
	}

	return items, nil
}

func (r *postgresRepository) Add(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	query := `
		INSERT INTO cart_items (user_id, product_id, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.Exec(ctx, query, userID, productID, quantity, time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return ErrProductNotFound
		}
		return fmt.Errorf("repository: failed to add cart item: %w", err)
	}
	return nil
}

func (r *postgresRepository) SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	query := `
		UPDATE cart_items
		SET quantity = $1, updated_at = $2
		WHERE user_id = $3 AND product_id = $4
	`
	cmdTag, err := r.db.Exec(ctx, query, quantity, time.Now().UTC(), userID, productID)
	if err != nil {
		return fmt.Errorf("repository: failed to update cart item: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *postgresRepository) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return fmt.Errorf("repository: failed to remove cart item: %w", err)
	}
	return nil
}

func (r *postgresRepository) AddToWishlist(ctx context.Context, userID, productID uuid.UUID) error {
	query := `
		INSERT INTO wishlist_items (user_id, product_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id) DO NOTHING
	`
	cmdTag, err := r.db.Exec(ctx, query, userID, productID, time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return ErrProductNotFound
		}
		return fmt.Errorf("repository: failed to add wishlist item: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrAlreadyInWishlist
	}
	return nil
}

func (r *postgresRepository) RemoveFromWishlist(ctx context.Context, userID, productID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM wishlist_items WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return fmt.Errorf("repository: failed to remove wishlist item: %w", err)
	}
	return nil
}
