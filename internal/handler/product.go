package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/shophub/internal/product"
)

// ProductHandler handles HTTP requests for the catalog.
type ProductHandler struct {
	svc product.Service
}

func NewProductHandler(svc product.Service) *ProductHandler {
	return &ProductHandler{svc: svc}
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := product.ListParams{
		Keyword:  q.Get("keyword"),
		Category: product.Category(q.Get("category")),
		Sort:     q.Get("sort"),
		Page:     queryInt(r, "page", 1),
		Limit:    queryInt(r, "limit", 12),
	}
	if v := q.Get("minPrice"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			params.MinPrice = &f
		}
	}
	if v := q.Get("maxPrice"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			params.MaxPrice = &f
		}
	}

	products, total, err := h.svc.List(r.Context(), params)
	if err != nil {
		code, message := mapProductError(err)
		respondMessage(w, code, message)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"products":    products,
		"totalPages":  totalPages(total, params.Limit),
		"currentPage": params.Page,
		"total":       total,
	})
}

func (h *ProductHandler) ListFeatured(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.ListFeatured(r.Context())
	if err != nil {
		code, message := mapProductError(err)
		respondMessage(w, code, message)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid product id")
		return
	}

	p, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		code, message := mapProductError(err)
		respondMessage(w, code, message)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"product": p})
}

type createProductRequest struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Price         float64  `json:"price"`
	DiscountPrice *float64 `json:"discountPrice"`
	Category      string   `json:"category"`
	Stock         int      `json:"stock"`
	Brand         string   `json:"brand"`
	Featured      bool     `json:"featured"`
	Images        []string `json:"images"`
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	u, ok := userFromContext(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p := &product.Product{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		DiscountPrice: req.DiscountPrice,
		Category:      product.Category(req.Category),
		Stock:         req.Stock,
		Brand:         req.Brand,
		Featured:      req.Featured,
		Images:        req.Images,
		SellerID:      &u.ID,
	}

	created, err := h.svc.Create(r.Context(), p)
	if err != nil {
		code, message := mapProductError(err)
		respondMessage(w, code, message)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"message": "Product created successfully",
		"product": created,
	})
}

type updateProductRequest struct {
	Name          *string  `json:"name"`
	Description   *string  `json:"description"`
	Price         *float64 `json:"price"`
	DiscountPrice *float64 `json:"discountPrice"`
	Category      *string  `json:"category"`
	Stock         *int     `json:"stock"`
	Brand         *string  `json:"brand"`
	Featured      *bool    `json:"featured"`
	Images        []string `json:"images"`
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req updateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := product.UpdateInput{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		DiscountPrice: req.DiscountPrice,
		Stock:         req.Stock,
		Brand:         req.Brand,
		Featured:      req.Featured,
		Images:        req.Images,
	}
	if req.Category != nil {
		category := product.Category(*req.Category)
		input.Category = &category
	}

	p, err := h.svc.Update(r.Context(), id, input)
	if err != nil {
		code, message := mapProductError(err)
		respondMessage(w, code, message)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Product updated successfully",
		"product": p,
	})
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		code, message := mapProductError(err)
		respondMessage(w, code, message)
		return
	}

	respondMessage(w, http.StatusOK, "Product deleted successfully")
}

type createReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (h *ProductHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	u, ok := userFromContext(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req createReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.CreateReview(r.Context(), id, u.ID, u.Name, req.Rating, req.Comment); err != nil {
		code, message := mapProductError(err)
		respondMessage(w, code, message)
		return
	}

	respondMessage(w, http.StatusCreated, "Review added successfully")
}

func mapProductError(err error) (int, string) {
	switch {
	case errors.Is(err, product.ErrNotFound):
		return http.StatusNotFound, "Product not found"
	case errors.Is(err, product.ErrAlreadyReviewed):
		return http.StatusBadRequest, "You have already reviewed this product"
	case errors.Is(err, product.ErrInvalidRating),
		errors.Is(err, product.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	default:
		log.Error().Err(err).Msg("handler: unexpected product error")
		return http.StatusInternalServerError, err.Error()
	}
}
