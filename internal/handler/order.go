package handler

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/shophub/internal/order"
	"github.com/vasiliy-maslov/shophub/internal/payment"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	svc order.Service
}

func NewOrderHandler(svc order.Service) *OrderHandler {
	return &OrderHandler{svc: svc}
}

type orderItemRequest struct {
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
	// Name, image and price are accepted for backward compatibility but the
	// snapshot is always taken from the catalog.
	Name  string  `json:"name"`
	Image string  `json:"image"`
	Price float64 `json:"price"`
}

type shippingAddressRequest struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
	Phone   string `json:"phone"`
}

type createOrderRequest struct {
	OrderItems      []orderItemRequest     `json:"orderItems"`
	ShippingAddress shippingAddressRequest `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
	ItemsPrice      float64                `json:"itemsPrice"`
	TaxPrice        float64                `json:"taxPrice"`
	ShippingPrice   float64                `json:"shippingPrice"`
	TotalPrice      float64                `json:"totalPrice"`
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	u, ok := userFromContext(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lines := make([]order.Line, 0, len(req.OrderItems))
	for _, item := range req.OrderItems {
		productID, err := uuid.FromString(item.Product)
		if err != nil {
			respondMessage(w, http.StatusBadRequest, "invalid product id: "+item.Product)
			return
		}
		lines = append(lines, order.Line{ProductID: productID, Quantity: item.Quantity})
	}

	input := order.CreateInput{
		Lines: lines,
		ShippingAddress: order.ShippingAddress{
			Street:  req.ShippingAddress.Street,
			City:    req.ShippingAddress.City,
			State:   req.ShippingAddress.State,
			ZipCode: req.ShippingAddress.ZipCode,
			Country: req.ShippingAddress.Country,
			Phone:   req.ShippingAddress.Phone,
		},
		PaymentMethod: order.PaymentMethod(req.PaymentMethod),
		ItemsPrice:    req.ItemsPrice,
		TaxPrice:      req.TaxPrice,
		ShippingPrice: req.ShippingPrice,
		TotalPrice:    req.TotalPrice,
	}

	purchaser := order.Purchaser{ID: u.ID, Name: u.Name, Email: u.Email}
	o, err := h.svc.Create(r.Context(), purchaser, input)
	if err != nil {
		code, message := mapOrderError(err)
		respondMessage(w, code, message)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"message": "Order created successfully",
		"order":   o,
	})
}

func (h *OrderHandler) GetMyOrders(w http.ResponseWriter, r *http.Request) {
	u, ok := userFromContext(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	orders, err := h.svc.ListByUser(r.Context(), u.ID)
	if err != nil {
		code, message := mapOrderError(err)
		respondMessage(w, code, message)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	u, ok := userFromContext(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid order id")
		return
	}

	o, err := h.svc.GetByID(r.Context(), id, u.ID, u.IsAdmin())
	if err != nil {
		code, message := mapOrderError(err)
		respondMessage(w, code, message)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"order": o})
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	params := order.ListParams{
		Page:   queryInt(r, "page", 1),
		Limit:  queryInt(r, "limit", 10),
		Status: order.Status(r.URL.Query().Get("status")),
	}

	orders, total, err := h.svc.List(r.Context(), params)
	if err != nil {
		code, message := mapOrderError(err)
		respondMessage(w, code, message)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"orders":      orders,
		"totalPages":  totalPages(total, params.Limit),
		"currentPage": params.Page,
		"total":       total,
	})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.svc.UpdateStatus(r.Context(), id, order.Status(req.Status))
	if err != nil {
		code, message := mapOrderError(err)
		respondMessage(w, code, message)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Order status updated successfully",
		"order":   o,
	})
}

type payKhaltiRequest struct {
	Token  string  `json:"token"`
	Amount float64 `json:"amount"`
}

func (h *OrderHandler) PayWithKhalti(w http.ResponseWriter, r *http.Request) {
	u, ok := userFromContext(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req payKhaltiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Token == "" {
		respondMessage(w, http.StatusBadRequest, "payment token is required")
		return
	}

	o, err := h.svc.PayWithKhalti(r.Context(), id, u.ID, req.Token, req.Amount)
	if err != nil {
		code, message := mapOrderError(err)
		respondMessage(w, code, message)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Payment verified successfully",
		"order":   o,
	})
}

func (h *OrderHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid order id")
		return
	}

	o, err := h.svc.MarkPaid(r.Context(), id)
	if err != nil {
		code, message := mapOrderError(err)
		respondMessage(w, code, message)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Order marked as paid",
		"order":   o,
	})
}

func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid order id")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		code, message := mapOrderError(err)
		respondMessage(w, code, message)
		return
	}

	respondMessage(w, http.StatusOK, "Order removed")
}

func mapOrderError(err error) (int, string) {
	switch {
	case errors.Is(err, order.ErrNoItems):
		return http.StatusBadRequest, "No order items"
	case errors.Is(err, order.ErrOrderNotFound):
		return http.StatusNotFound, "Order not found"
	case errors.Is(err, order.ErrProductNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, order.ErrNotOwner):
		return http.StatusForbidden, "Not authorized to view this order"
	case errors.Is(err, order.ErrInvalidInput),
		errors.Is(err, order.ErrInsufficientStock),
		errors.Is(err, order.ErrPriceMismatch),
		errors.Is(err, order.ErrAlreadyPaid),
		errors.Is(err, order.ErrInvalidPaymentMethod),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, order.ErrInvalidStatusTransition),
		errors.Is(err, payment.ErrVerificationFailed):
		return http.StatusBadRequest, err.Error()
	default:
		log.Error().Err(err).Msg("handler: unexpected order error")
		return http.StatusInternalServerError, err.Error()
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func totalPages(total, limit int) int {
	if limit < 1 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(limit)))
}
