package order

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/shophub/internal/config"
	"github.com/vasiliy-maslov/shophub/internal/payment"
	"github.com/vasiliy-maslov/shophub/internal/product"
)

var (
	ErrInvalidInput            = errors.New("invalid input")
	ErrNoItems                 = errors.New("no order items")
	ErrProductNotFound         = errors.New("product not found")
	ErrNotOwner                = errors.New("not authorized to access this order")
	ErrAlreadyPaid             = errors.New("order is already paid")
	ErrPriceMismatch           = errors.New("submitted price breakdown does not match server-side pricing")
	ErrInvalidPaymentMethod    = errors.New("invalid payment method")
	ErrInvalidStatus           = errors.New("invalid order status")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
)

// InsufficientStockError reports which product a checkout tripped on and how
// many units were actually available.
type InsufficientStockError struct {
	ProductName string
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s. Available: %d", e.ProductName, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Purchaser identifies the authenticated user placing an order.
type Purchaser struct {
	ID    uuid.UUID
	Name  string
	Email string
}

// ProductGetter is the catalog read interface the workflow consults for
// stock and authoritative pricing.
type ProductGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*product.Product, error)
}

// Mailer delivers the best-effort order confirmation.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type Service interface {
	Create(ctx context.Context, purchaser Purchaser, input CreateInput) (*Order, error)
	GetByID(ctx context.Context, id, requesterID uuid.UUID, isAdmin bool) (*Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error)
	List(ctx context.Context, params ListParams) ([]Order, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, newStatus Status) (*Order, error)
	PayWithKhalti(ctx context.Context, orderID, userID uuid.UUID, token string, amount float64) (*Order, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID) (*Order, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo     Repository
	products ProductGetter
	verifier payment.Verifier
	mailer   Mailer
	pricing  config.PricingConfig
}

func NewService(repo Repository, products ProductGetter, verifier payment.Verifier, mailer Mailer, pricing config.PricingConfig) Service {
	return &service{
		repo:     repo,
		products: products,
		verifier: verifier,
		mailer:   mailer,
		pricing:  pricing,
	}
}

// priceTolerance absorbs float rounding between client and server totals.
const priceTolerance = 0.01

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

func (s *service) Create(ctx context.Context, purchaser Purchaser, input CreateInput) (*Order, error) {
	if len(input.Lines) == 0 {
		return nil, ErrNoItems
	}
	if !input.PaymentMethod.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, input.PaymentMethod)
	}
	if err := validateAddress(&input.ShippingAddress); err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(input.Lines))
	itemsPrice := 0.0
	for _, line := range input.Lines {
		if line.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity for product %s must be at least 1", ErrInvalidInput, line.ProductID)
		}

		p, err := s.products.GetByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, product.ErrNotFound) {
				return nil, fmt.Errorf("product %s: %w", line.ProductID, ErrProductNotFound)
			}
			log.Error().Err(err).Stringer("product_id", line.ProductID).Msg("service: failed to fetch product for checkout")
			return nil, fmt.Errorf("service: failed to fetch product: %w", err)
		}

		// Advisory pre-check; the repository re-checks atomically inside the
		// order transaction.
		if p.Stock < line.Quantity {
			return nil, &InsufficientStockError{ProductName: p.Name, Available: p.Stock}
		}

		image := ""
		if len(p.Images) > 0 {
			image = p.Images[0]
		}
		items = append(items, Item{
			ProductID: p.ID,
			Name:      p.Name,
			Image:     image,
			Quantity:  line.Quantity,
			UnitPrice: p.Price,
		})
		itemsPrice += p.Price * float64(line.Quantity)
	}

	itemsPrice = round2(itemsPrice)
	taxPrice := round2(itemsPrice * s.pricing.TaxRate)
	shippingPrice := round2(s.pricing.ShippingFee)
	totalPrice := round2(itemsPrice + taxPrice + shippingPrice)

	for _, pair := range [][2]float64{
		{input.ItemsPrice, itemsPrice},
		{input.TaxPrice, taxPrice},
		{input.ShippingPrice, shippingPrice},
		{input.TotalPrice, totalPrice},
	} {
		if math.Abs(pair[0]-pair[1]) > priceTolerance {
			return nil, ErrPriceMismatch
		}
	}

	o := &Order{
		UserID:          purchaser.ID,
		Items:           items,
		ShippingAddress: input.ShippingAddress,
		PaymentMethod:   input.PaymentMethod,
		ItemsPrice:      itemsPrice,
		TaxPrice:        taxPrice,
		ShippingPrice:   shippingPrice,
		TotalPrice:      totalPrice,
		Status:          StatusPending,
	}

	if err := s.repo.Create(ctx, o); err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			log.Warn().Err(err).Stringer("user_id", purchaser.ID).Msg("service: checkout lost stock race")
			return nil, err
		}
		log.Error().Err(err).Stringer("user_id", purchaser.ID).Msg("service: failed to create order in repository")
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}

	log.Info().Stringer("order_id", o.ID).Stringer("user_id", purchaser.ID).Float64("total", o.TotalPrice).Msg("service: order created")

	// The order is committed; confirmation delivery must not fail it.
	if s.mailer != nil && purchaser.Email != "" {
		if err := s.mailer.Send(ctx, purchaser.Email, "Order Confirmation - Shop Hub", confirmationBody(o)); err != nil {
			log.Warn().Err(err).Stringer("order_id", o.ID).Msg("service: failed to send order confirmation email")
		}
	}

	return o, nil
}

func validateAddress(addr *ShippingAddress) error {
	if addr.Country == "" {
		addr.Country = "Nepal"
	}
	for name, value := range map[string]string{
		"street":   addr.Street,
		"city":     addr.City,
		"state":    addr.State,
		"zip code": addr.ZipCode,
		"phone":    addr.Phone,
	} {
		if value == "" {
			return fmt.Errorf("%w: shipping address %s is required", ErrInvalidInput, name)
		}
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func (s *service) GetByID(ctx context.Context, id, requesterID uuid.UUID, isAdmin bool) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to fetch order by id")
		return nil, fmt.Errorf("service: failed to fetch order: %w", err)
	}

	if o.UserID != requesterID && !isAdmin {
		return nil, ErrNotOwner
	}

	return o, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	orders, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to fetch user orders")
		return nil, fmt.Errorf("service: failed to fetch user orders: %w", err)
	}
	return orders, nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]Order, int, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 {
		params.Limit = defaultPageLimit
	}
	if params.Limit > maxPageLimit {
		params.Limit = maxPageLimit
	}
	if params.Status != "" && !params.Status.Valid() {
		return nil, 0, fmt.Errorf("%w: %q", ErrInvalidStatus, params.Status)
	}

	orders, total, err := s.repo.List(ctx, params)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list orders")
		return nil, 0, fmt.Errorf("service: failed to list orders: %w", err)
	}
	return orders, total, nil
}

func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, newStatus Status) (*Order, error) {
	if !newStatus.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, newStatus)
	}

	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("service: failed to fetch order for status update: %w", err)
	}

	if o.Status == newStatus {
		log.Info().Stringer("order_id", id).Stringer("status", newStatus).Msg("service: order status already set, no update needed")
		return o, nil
	}

	if !o.Status.CanTransitionTo(newStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, o.Status, newStatus)
	}

	var deliveredAt *time.Time
	if newStatus == StatusDelivered {
		now := time.Now().UTC()
		deliveredAt = &now
	}

	if err := s.repo.UpdateStatus(ctx, id, newStatus, deliveredAt); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", id).Stringer("new_status", newStatus).Msg("service: failed to update order status")
		return nil, fmt.Errorf("service: failed to update order status: %w", err)
	}

	log.Info().Stringer("order_id", id).Stringer("old_status", o.Status).Stringer("new_status", newStatus).Msg("service: order status updated")

	o.Status = newStatus
	if deliveredAt != nil {
		o.IsDelivered = true
		o.DeliveredAt = deliveredAt
	}
	return o, nil
}

func (s *service) PayWithKhalti(ctx context.Context, orderID, userID uuid.UUID, token string, amount float64) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("service: failed to fetch order for payment: %w", err)
	}

	if o.UserID != userID {
		return nil, ErrNotOwner
	}
	if o.IsPaid {
		return nil, ErrAlreadyPaid
	}
	if !o.Status.CanTransitionTo(StatusProcessing) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, o.Status, StatusProcessing)
	}

	verification, err := s.verifier.Verify(ctx, token, amount)
	if err != nil {
		log.Warn().Err(err).Stringer("order_id", orderID).Msg("service: payment verification failed")
		return nil, err
	}

	now := time.Now().UTC()
	result := &PaymentResult{
		TransactionID: verification.IDX,
		Status:        "Completed",
		Token:         token,
		UpdateTime:    now,
	}

	if err := s.repo.MarkPaid(ctx, orderID, now, result, StatusProcessing); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", orderID).Msg("service: failed to mark order paid after verification")
		return nil, fmt.Errorf("service: failed to mark order paid: %w", err)
	}

	log.Info().Stringer("order_id", orderID).Str("transaction_id", verification.IDX).Msg("service: payment verified, order marked paid")

	o.IsPaid = true
	o.PaidAt = &now
	o.PaymentResult = result
	o.Status = StatusProcessing
	return o, nil
}

// MarkPaid is the cash-on-delivery path: an admin confirms payment collected
// at delivery, no gateway call involved.
func (s *service) MarkPaid(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("service: failed to fetch order for mark-paid: %w", err)
	}

	if o.IsPaid {
		return nil, ErrAlreadyPaid
	}
	if !o.Status.CanTransitionTo(StatusProcessing) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, o.Status, StatusProcessing)
	}

	now := time.Now().UTC()
	if err := s.repo.MarkPaid(ctx, orderID, now, nil, StatusProcessing); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", orderID).Msg("service: failed to mark order paid")
		return nil, fmt.Errorf("service: failed to mark order paid: %w", err)
	}

	log.Info().Stringer("order_id", orderID).Msg("service: order marked paid (cash on delivery)")

	o.IsPaid = true
	o.PaidAt = &now
	o.Status = StatusProcessing
	return o, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to delete order")
		return fmt.Errorf("service: failed to delete order: %w", err)
	}
	log.Info().Stringer("order_id", id).Msg("service: order deleted")
	return nil
}
