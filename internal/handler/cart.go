package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/shophub/internal/cart"
)

// CartHandler handles HTTP requests for carts and wishlists.
type CartHandler struct {
	svc cart.Service
}

func NewCartHandler(svc cart.Service) *CartHandler {
	return &CartHandler{svc: svc}
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, ok := userFromContext(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	items, err := h.svc.Get(r.Context(), u.ID)
	if err != nil {
		code, message := mapCartError(err)
		respondMessage(w, code, message)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"cart": items})
}

type addToCartRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	u, ok := userFromContext(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	var req addToCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	productID, err := uuid.FromString(req.ProductID)
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid product id")
		return
	}

	items, err := h.svc.Add(r.Context(), u.ID, productID, req.Quantity)
	if err != nil {
		code, message := mapCartError(err)
		respondMessage(w, code, message)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Product added to cart",
		"cart":    items,
	})
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	u, ok := userFromContext(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	productID, err := uuid.FromString(chi.URLParam(r, "productId"))
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req updateCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items, err := h.svc.UpdateItem(r.Context(), u.ID, productID, req.Quantity)
	if err != nil {
		code, message := mapCartError(err)
		respondMessage(w, code, message)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Cart updated",
		"cart":    items,
	})
}

func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	u, ok := userFromContext(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	productID, err := uuid.FromString(chi.URLParam(r, "productId"))
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid product id")
		return
	}

	items, err := h.svc.Remove(r.Context(), u.ID, productID)
	if err != nil {
		code, message := mapCartError(err)
		respondMessage(w, code, message)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Item removed from cart",
		"cart":    items,
	})
}

func (h *CartHandler) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	u, ok := userFromContext(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	productID, err := uuid.FromString(chi.URLParam(r, "productId"))
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.svc.AddToWishlist(r.Context(), u.ID, productID); err != nil {
		code, message := mapCartError(err)
		respondMessage(w, code, message)
		return
	}

	respondMessage(w, http.StatusOK, "Product added to wishlist")
}

func (h *CartHandler) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	u, ok := userFromContext(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	productID, err := uuid.FromString(chi.URLParam(r, "productId"))
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.svc.RemoveFromWishlist(r.Context(), u.ID, productID); err != nil {
		code, message := mapCartError(err)
		respondMessage(w, code, message)
		return
	}

	respondMessage(w, http.StatusOK, "Product removed from wishlist")
}

func mapCartError(err error) (int, string) {
	switch {
	case errors.Is(err, cart.ErrItemNotFound):
		return http.StatusNotFound, "Item not found in cart"
	case errors.Is(err, cart.ErrProductNotFound):
		return http.StatusNotFound, "Product not found"
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrAlreadyInWishlist):
		return http.StatusBadRequest, err.Error()
	default:
		log.Error().Err(err).Msg("handler: unexpected cart error")
		return http.StatusInternalServerError, err.Error()
	}
}
