package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type Repository interface {
	// Create persists the order, its line items, the stock decrements and
	// the cart clear in a single transaction. If any product's stock has
	// dropped below the ordered quantity since validation, nothing is
	// persisted and ErrInsufficientStock is returned.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error)
	List(ctx context.Context, params ListParams) ([]Order, int, error)
	MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time, result *PaymentResult, status Status) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, deliveredAt *time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, o *Order) (err error) {
	if o.ID == uuid.Nil {
		id, genErr := uuid.NewV4()
		if genErr != nil {
			return fmt.Errorf("repository: failed to generate order ID: %w", genErr)
		}
		o.ID = id
	}

	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("order_id", o.ID).Msg("repository: failed to rollback order transaction")
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("repository: failed to commit order transaction: %w", commitErr)
		}
	}()

	orderQuery := `
		INSERT INTO orders (id, user_id, status, payment_method,
			items_price, tax_price, shipping_price, total_price,
			ship_street, ship_city, ship_state, ship_zip_code, ship_country, ship_phone,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err = tx.Exec(ctx, orderQuery,
		o.ID, o.UserID, string(o.Status), string(o.PaymentMethod),
		o.ItemsPrice, o.TaxPrice, o.ShippingPrice, o.TotalPrice,
		o.ShippingAddress.Street, o.ShippingAddress.City, o.ShippingAddress.State,
		o.ShippingAddress.ZipCode, o.ShippingAddress.Country, o.ShippingAddress.Phone,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, name, image, quantity, unit_price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	// Conditional decrement: the floor check runs inside the transaction, so
	// two concurrent checkouts against the same product cannot both succeed
	// past the last unit and stock can never go negative.
	decrementQuery := `
		UPDATE products
		SET stock = stock - $1, updated_at = $2
		WHERE id = $3 AND stock >= $1
	`

	for i := range o.Items {
		item := &o.Items[i]

		itemID, genErr := uuid.NewV4()
		if genErr != nil {
			err = fmt.Errorf("repository: failed to generate order item ID: %w", genErr)
			return err
		}
		item.ID = itemID
		item.OrderID = o.ID
		item.CreatedAt = now

		_, err = tx.Exec(ctx, itemQuery,
			item.ID, item.OrderID, item.ProductID, item.Name, item.Image,
			item.Quantity, item.UnitPrice, item.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("repository: failed to insert order item for order %s: %w", o.ID, err)
		}

		cmdTag, decErr := tx.Exec(ctx, decrementQuery, item.Quantity, now, item.ProductID)
		if decErr != nil {
			err = fmt.Errorf("repository: failed to decrement stock for product %s: %w", item.ProductID, decErr)
			return err
		}
		if cmdTag.RowsAffected() == 0 {
			err = fmt.Errorf("product %s: %w", item.Name, ErrInsufficientStock)
			return err
		}
	}

	if _, err = tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, o.UserID); err != nil {
		return fmt.Errorf("repository: failed to clear cart for user %s: %w", o.UserID, err)
	}

	return nil
}

const orderColumns = `id, user_id, status, payment_method,
	items_price, tax_price, shipping_price, total_price,
	ship_street, ship_city, ship_state, ship_zip_code, ship_country, ship_phone,
	is_paid, paid_at, payment_id, payment_status, payment_token, payment_update_time,
	is_delivered, delivered_at, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var paymentID, paymentStatus, paymentToken *string
	var paymentUpdateTime *time.Time

	err := row.Scan(
		&o.ID, &o.UserID, &o.Status, &o.PaymentMethod,
		&o.ItemsPrice, &o.TaxPrice, &o.ShippingPrice, &o.TotalPrice,
		&o.ShippingAddress.Street, &o.ShippingAddress.City, &o.ShippingAddress.State,
		&o.ShippingAddress.ZipCode, &o.ShippingAddress.Country, &o.ShippingAddress.Phone,
		&o.IsPaid, &o.PaidAt, &paymentID, &paymentStatus, &paymentToken, &paymentUpdateTime,
		&o.IsDelivered, &o.DeliveredAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if paymentID != nil {
		o.PaymentResult = &PaymentResult{
			TransactionID: *paymentID,
			Token:         deref(paymentToken),
			Status:        deref(paymentStatus),
		}
		if paymentUpdateTime != nil {
			o.PaymentResult.UpdateTime = *paymentUpdateTime
		}
	}

	return &o, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	o, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order %s: %w", id, err)
	}

	items, err := r.fetchItems(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	o.Items = items[id]
	if o.Items == nil {
		o.Items = make([]Item, 0)
	}

	return o, nil
}

func (r *postgresRepository) fetchItems(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]Item, error) {
	query := `
		SELECT id, order_id, product_id, name, image, quantity, unit_price, created_at
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items: %w", err)
	}
	defer rows.Close()

	items := make(map[uuid.UUID][]Item)
	for rows.Next() {
		var item Item
		err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Name, &item.Image,
			&item.Quantity, &item.UnitPrice, &item.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item: %w", err)
		}
		items[item.OrderID] = append(items[item.OrderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order items: %w", err)
	}

	return items, nil
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders for user %s: %w", userID, err)
	}
	defer rows.Close()

	return r.collectOrders(ctx, rows)
}

func (r *postgresRepository) List(ctx context.Context, params ListParams) ([]Order, int, error) {
	where := ""
	args := make([]any, 0, 3)
	if params.Status != "" {
		args = append(args, string(params.Status))
		where = " WHERE status = $1"
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM orders"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repository: failed to count orders: %w", err)
	}

	args = append(args, params.Limit, (params.Page-1)*params.Limit)
	query := fmt.Sprintf("SELECT %s FROM orders%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		orderColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("repository: failed to query orders: %w", err)
	}
	defer rows.Close()

	orders, err := r.collectOrders(ctx, rows)
	if err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *postgresRepository) collectOrders(ctx context.Context, rows pgx.Rows) ([]Order, error) {
	ordersMap := make(map[uuid.UUID]*Order)
	var orderIDs []uuid.UUID

	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order: %w", err)
		}
		o.Items = make([]Item, 0)
		ordersMap[o.ID] = o
		orderIDs = append(orderIDs, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating orders: %w", err)
	}

	if len(orderIDs) == 0 {
		return []Order{}, nil
	}

	items, err := r.fetchItems(ctx, orderIDs)
	if err != nil {
		return nil, err
	}
	for id, orderItems := range items {
		if o, ok := ordersMap[id]; ok {
			o.Items = orderItems
		}
	}

	result := make([]Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		result = append(result, *ordersMap[id])
	}

	return result, nil
}

func (r *postgresRepository) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time, result *PaymentResult, status Status) error {
	var paymentID, paymentStatus, paymentToken *string
	var paymentUpdateTime *time.Time
	if result != nil {
		paymentID = &result.TransactionID
		paymentStatus = &result.Status
		paymentToken = &result.Token
		paymentUpdateTime = &result.UpdateTime
	}

	query := `
		UPDATE orders
		SET is_paid = TRUE, paid_at = $1, status = $2,
			payment_id = $3, payment_status = $4, payment_token = $5, payment_update_time = $6,
			updated_at = $7
		WHERE id = $8
	`
	cmdTag, err := r.db.Exec(ctx, query,
		paidAt, string(status), paymentID, paymentStatus, paymentToken, paymentUpdateTime,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to mark order %s paid: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, deliveredAt *time.Time) error {
	query := `
		UPDATE orders
		SET status = $1,
			is_delivered = CASE WHEN $2::timestamptz IS NOT NULL THEN TRUE ELSE is_delivered END,
			delivered_at = COALESCE($2, delivered_at),
			updated_at = $3
		WHERE id = $4
	`
	cmdTag, err := r.db.Exec(ctx, query, string(status), deliveredAt, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("repository: failed to update status for order %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete order %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}
