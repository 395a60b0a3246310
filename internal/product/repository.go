package product

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotFound        = errors.New("product not found")
	ErrAlreadyReviewed = errors.New("you have already reviewed this product")
)

type Repository interface {
	Create(ctx context.Context, p *Product) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
	List(ctx context.Context, params ListParams) ([]Product, int, error)
	ListFeatured(ctx context.Context, limit int) ([]Product, error)
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	AddReview(ctx context.Context, review *Review) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const productColumns = `id, name, description, price, discount_price, category, images, stock,
	brand, ratings, num_reviews, featured, seller_id, created_at, updated_at`

func (r *postgresRepository) Create(ctx context.Context, p *Product) (uuid.UUID, error) {
	if p.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return uuid.Nil, fmt.Errorf("repository: failed to generate product ID: %w", err)
		}
		p.ID = id
	}

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	query := `
		INSERT INTO products (id, name, description, price, discount_price, category, images,
			stock, brand, featured, seller_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.Exec(ctx, query,
		p.ID, p.Name, p.Description, p.Price, p.DiscountPrice, string(p.Category), p.Images,
		p.Stock, p.Brand, p.Featured, p.SellerID, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("repository: failed to insert product: %w", err)
	}

	return p.ID, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	var p Product
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.DiscountPrice, &p.Category, &p.Images,
		&p.Stock, &p.Brand, &p.Ratings, &p.NumReviews, &p.Featured, &p.SellerID,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product %s: %w", id, err)
	}

	reviewsQuery := `
		SELECT id, product_id, user_id, user_name, rating, comment, created_at
		FROM reviews
		WHERE product_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, reviewsQuery, id)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query reviews for product %s: %w", id, err)
	}
	defer rows.Close()

	p.Reviews = make([]Review, 0)
	for rows.Next() {
		var rev Review
		err := rows.Scan(&rev.ID, &rev.ProductID, &rev.UserID, &rev.UserName, &rev.Rating, &rev.Comment, &rev.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan review for product %s: %w", id, err)
		}
		p.Reviews = append(p.Reviews, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating reviews for product %s: %w", id, err)
	}

	return &p, nil
}

var sortColumns = map[string]string{
	"-createdAt": "created_at DESC",
	"createdAt":  "created_at ASC",
	"price":      "price ASC",
	"-price":     "price DESC",
	"-ratings":   "ratings DESC",
	"name":       "name ASC",
}

func (r *postgresRepository) List(ctx context.Context, params ListParams) ([]Product, int, error) {
	where := make([]string, 0, 4)
	args := make([]any, 0, 6)

	if params.Keyword != "" {
		args = append(args, "%"+params.Keyword+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	if params.Category != "" {
		args = append(args, string(params.Category))
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if params.MinPrice != nil {
		args = append(args, *params.MinPrice)
		where = append(where, fmt.Sprintf("price >= $%d", len(args)))
	}
	if params.MaxPrice != nil {
		args = append(args, *params.MaxPrice)
		where = append(where, fmt.Sprintf("price <= $%d", len(args)))
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM products"+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repository: failed to count products: %w", err)
	}

	orderBy, ok := sortColumns[params.Sort]
	if !ok {
		orderBy = sortColumns["-createdAt"]
	}

	args = append(args, params.Limit, (params.Page-1)*params.Limit)
	query := fmt.Sprintf("SELECT %s FROM products%s ORDER BY %s LIMIT $%d OFFSET $%d",
		productColumns, whereClause, orderBy, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("repository: failed to query products: %w", err)
	}
	defer rows.Close()

	products, err := scanProducts(rows)
	if err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

func (r *postgresRepository) ListFeatured(ctx context.Context, limit int) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE featured ORDER BY created_at DESC LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query featured products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

func scanProducts(rows pgx.Rows) ([]Product, error) {
	products := make([]Product, 0)
	for rows.Next() {
		var p Product
		err := rows.Scan(
			&p.ID, &p.Name, &p.Description, &p.Price, &p.DiscountPrice, &p.Category, &p.Images,
			&p.Stock, &p.Brand, &p.Ratings, &p.NumReviews, &p.Featured, &p.SellerID,
			&p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating products: %w", err)
	}
	return products, nil
}

func (r *postgresRepository) Update(ctx context.Context, p *Product) error {
	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, discount_price = $4, category = $5,
			images = $6, stock = $7, brand = $8, featured = $9, updated_at = $10
		WHERE id = $11
	`
	cmdTag, err := r.db.Exec(ctx, query,
		p.Name, p.Description, p.Price, p.DiscountPrice, string(p.Category),
		p.Images, p.Stock, p.Brand, p.Featured, time.Now().UTC(), p.ID,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to update product %s: %w", p.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete product %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddReview inserts the review and recomputes the product's rating aggregate
// in the same transaction, so ratings/num_reviews never drift from the
// review rows.
func (r *postgresRepository) AddReview(ctx context.Context, review *Review) (err error) {
	if review.ID == uuid.Nil {
		id, genErr := uuid.NewV4()
		if genErr != nil {
			return fmt.Errorf("repository: failed to generate review ID: %w", genErr)
		}
		review.ID = id
	}
	review.CreatedAt = time.Now().UTC()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("product_id", review.ProductID).Msg("repository: failed to rollback review transaction")
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("repository: failed to commit review transaction: %w", commitErr)
		}
	}()

	insertQuery := `
		INSERT INTO reviews (id, product_id, user_id, user_name, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = tx.Exec(ctx, insertQuery,
		review.ID, review.ProductID, review.UserID, review.UserName, review.Rating, review.Comment, review.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.UniqueViolation:
				return ErrAlreadyReviewed
			case pgerrcode.ForeignKeyViolation:
				return ErrNotFound
			}
		}
		return fmt.Errorf("repository: failed to insert review: %w", err)
	}

	aggregateQuery := `
		UPDATE products
		SET ratings = (SELECT COALESCE(AVG(rating), 0) FROM reviews WHERE product_id = $1),
			num_reviews = (SELECT COUNT(*) FROM reviews WHERE product_id = $1),
			updated_at = $2
		WHERE id = $1
	`
	cmdTag, err := tx.Exec(ctx, aggregateQuery, review.ProductID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("repository: failed to recompute rating aggregate: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		err = ErrNotFound
		return err
	}

	return nil
}
