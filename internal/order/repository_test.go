package order_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/shophub/internal/order"
)

var db *pgxpool.Pool

// Repository tests run against a migrated local Postgres and are skipped
// when it is unreachable, so the mock-based tests in this package still run
// everywhere.
func TestMain(m *testing.M) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		envOr("DB_HOST", "localhost"),
		envOr("DB_PORT", "5432"),
		envOr("DB_USER", "postgres"),
		envOr("DB_PASSWORD", "123456"),
		envOr("DB_NAME", "shophub"),
		envOr("DB_SSLMODE", "disable"),
	)

	pool, err := pgxpool.New(context.Background(), connStr)
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if pingErr := pool.Ping(ctx); pingErr == nil {
			db = pool
		} else {
			pool.Close()
		}
		cancel()
	}

	exitCode := m.Run()

	if db != nil {
		db.Close()
	}
	os.Exit(exitCode)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func setupRepo(t *testing.T) order.Repository {
	if db == nil {
		t.Skip("test database is not available")
	}

	truncate := func() {
		_, err := db.Exec(context.Background(),
			"TRUNCATE TABLE order_items, orders, cart_items, products, users CASCADE")
		if err != nil {
			t.Fatalf("failed to truncate tables: %v", err)
		}
	}

	truncate()
	t.Cleanup(truncate)

	return order.NewRepository(db)
}

func seedUser(t *testing.T) uuid.UUID {
	t.Helper()
	id := uuid.Must(uuid.NewV4())
	_, err := db.Exec(context.Background(),
		`INSERT INTO users (id, name, email, password_hash) VALUES ($1, $2, $3, $4)`,
		id, "Test User", id.String()+"@example.com", "x")
	require.NoError(t, err)
	return id
}

func seedProduct(t *testing.T, name string, price float64, stock int) uuid.UUID {
	t.Helper()
	id := uuid.Must(uuid.NewV4())
	_, err := db.Exec(context.Background(),
		`INSERT INTO products (id, name, description, price, category, stock) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, name, "test product", price, "Electronics", stock)
	require.NoError(t, err)
	return id
}

func seedCartItem(t *testing.T, userID, productID uuid.UUID, quantity int) {
	t.Helper()
	_, err := db.Exec(context.Background(),
		`INSERT INTO cart_items (user_id, product_id, quantity) VALUES ($1, $2, $3)`,
		userID, productID, quantity)
	require.NoError(t, err)
}

func productStock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	var stock int
	err := db.QueryRow(context.Background(), `SELECT stock FROM products WHERE id = $1`, id).Scan(&stock)
	require.NoError(t, err)
	return stock
}

func countRows(t *testing.T, table string) int {
	t.Helper()
	var n int
	err := db.QueryRow(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n)
	require.NoError(t, err)
	return n
}

func newOrder(userID uuid.UUID, items []order.Item) *order.Order {
	itemsPrice := 0.0
	for _, item := range items {
		itemsPrice += item.UnitPrice * float64(item.Quantity)
	}
	return &order.Order{
		UserID: userID,
		Items:  items,
		ShippingAddress: order.ShippingAddress{
			Street:  "123 Main St",
			City:    "Kathmandu",
			State:   "Bagmati",
			ZipCode: "44600",
			Country: "Nepal",
			Phone:   "9800000000",
		},
		PaymentMethod: order.MethodKhalti,
		ItemsPrice:    itemsPrice,
		TaxPrice:      itemsPrice * 0.13,
		ShippingPrice: 100,
		TotalPrice:    itemsPrice*1.13 + 100,
		Status:        order.StatusPending,
	}
}

func TestRepository_Create(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	userID := seedUser(t)
	headphonesID := seedProduct(t, "Wireless Headphones", 100, 5)
	lampID := seedProduct(t, "Desk Lamp", 50, 3)
	seedCartItem(t, userID, headphonesID, 2)
	seedCartItem(t, userID, lampID, 1)

	o := newOrder(userID, []order.Item{
		{ProductID: headphonesID, Name: "Wireless Headphones", Quantity: 2, UnitPrice: 100},
		{ProductID: lampID, Name: "Desk Lamp", Quantity: 1, UnitPrice: 50},
	})

	require.NoError(t, repo.Create(ctx, o))
	require.NotEqual(t, uuid.Nil, o.ID)

	// Stock dropped by exactly the ordered quantities.
	assert.Equal(t, 3, productStock(t, headphonesID))
	assert.Equal(t, 2, productStock(t, lampID))

	// The purchaser's cart was cleared in the same transaction.
	assert.Equal(t, 0, countRows(t, "cart_items"))

	saved, err := repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, userID, saved.UserID)
	assert.Equal(t, order.StatusPending, saved.Status)
	assert.Len(t, saved.Items, 2)
	assert.InDelta(t, 250.0, saved.ItemsPrice, 0.001)
}

func TestRepository_Create_InsufficientStockRollsBack(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	userID := seedUser(t)
	headphonesID := seedProduct(t, "Wireless Headphones", 100, 5)
	lampID := seedProduct(t, "Desk Lamp", 50, 1)
	seedCartItem(t, userID, headphonesID, 2)

	// The first line decrements fine; the second exceeds stock and must
	// undo everything, including the first decrement.
	o := newOrder(userID, []order.Item{
		{ProductID: headphonesID, Name: "Wireless Headphones", Quantity: 2, UnitPrice: 100},
		{ProductID: lampID, Name: "Desk Lamp", Quantity: 3, UnitPrice: 50},
	})

	err := repo.Create(ctx, o)
	require.ErrorIs(t, err, order.ErrInsufficientStock)

	assert.Equal(t, 0, countRows(t, "orders"))
	assert.Equal(t, 0, countRows(t, "order_items"))
	assert.Equal(t, 5, productStock(t, headphonesID))
	assert.Equal(t, 1, productStock(t, lampID))
	assert.Equal(t, 1, countRows(t, "cart_items"))
}

func TestRepository_Create_ConcurrentCheckoutsCannotOversell(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	buyerA := seedUser(t)
	buyerB := seedUser(t)
	productID := seedProduct(t, "Desk Lamp", 50, 3)

	errs := make(chan error, 2)
	for _, buyer := range []uuid.UUID{buyerA, buyerB} {
		go func(userID uuid.UUID) {
			o := newOrder(userID, []order.Item{
				{ProductID: productID, Name: "Desk Lamp", Quantity: 2, UnitPrice: 50},
			})
			errs <- repo.Create(ctx, o)
		}(buyer)
	}

	var failed int
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			require.ErrorIs(t, err, order.ErrInsufficientStock)
			failed++
		}
	}

	// Only one of the two checkouts can take the last units.
	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, productStock(t, productID))
	assert.Equal(t, 1, countRows(t, "orders"))
}

func TestRepository_MarkPaid(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	userID := seedUser(t)
	productID := seedProduct(t, "Desk Lamp", 50, 3)

	o := newOrder(userID, []order.Item{
		{ProductID: productID, Name: "Desk Lamp", Quantity: 1, UnitPrice: 50},
	})
	require.NoError(t, repo.Create(ctx, o))

	paidAt := time.Now().UTC()
	result := &order.PaymentResult{
		TransactionID: "txn_123",
		Status:        "Completed",
		Token:         "tok_abc",
		UpdateTime:    paidAt,
	}
	require.NoError(t, repo.MarkPaid(ctx, o.ID, paidAt, result, order.StatusProcessing))

	saved, err := repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, saved.IsPaid)
	assert.Equal(t, order.StatusProcessing, saved.Status)
	require.NotNil(t, saved.PaymentResult)
	assert.Equal(t, "txn_123", saved.PaymentResult.TransactionID)
	assert.Equal(t, "tok_abc", saved.PaymentResult.Token)

	t.Run("unknown order", func(t *testing.T) {
		err := repo.MarkPaid(ctx, uuid.Must(uuid.NewV4()), paidAt, nil, order.StatusProcessing)
		assert.ErrorIs(t, err, order.ErrOrderNotFound)
	})
}

func TestRepository_UpdateStatus(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	userID := seedUser(t)
	productID := seedProduct(t, "Desk Lamp", 50, 3)

	o := newOrder(userID, []order.Item{
		{ProductID: productID, Name: "Desk Lamp", Quantity: 1, UnitPrice: 50},
	})
	require.NoError(t, repo.Create(ctx, o))

	deliveredAt := time.Now().UTC()
	require.NoError(t, repo.UpdateStatus(ctx, o.ID, order.StatusDelivered, &deliveredAt))

	saved, err := repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusDelivered, saved.Status)
	assert.True(t, saved.IsDelivered)
	require.NotNil(t, saved.DeliveredAt)
}
