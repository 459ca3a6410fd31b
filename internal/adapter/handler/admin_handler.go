package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pcpartshop/storefront/internal/core/domain"
)

type productRequest struct {
	Name         string            `json:"name"`
	CategoryID   int64             `json:"category_id"`
	Price        decimal.Decimal   `json:"price"`
	Description  string            `json:"description"`
	ImageURL     string            `json:"image_url"`
	Attributes   map[string]string `json:"attributes"`
	Stock        int               `json:"stock"`
	ReorderLevel int               `json:"reorder_level"`
}

type inventoryRequest struct {
	Stock        int `json:"stock"`
	ReorderLevel int `json:"reorder_level"`
}

func (h *Handler) AdminListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.admin.ListProducts(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toProductResponses(products))
}

func (h *Handler) AdminCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	id, err := h.admin.CreateProduct(r.Context(), req.toDomain(0), req.Stock)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *Handler) AdminUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.admin.UpdateProduct(r.Context(), req.toDomain(id)); err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) AdminDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	if err := h.admin.DeleteProduct(r.Context(), id); err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) AdminSetStock(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req inventoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.admin.SetStock(r.Context(), id, req.Stock, req.ReorderLevel); err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.admin.ListOrders(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponses(orders))
}

func (p *productRequest) toDomain(id int64) *domain.Product {
	return &domain.Product{
		ID:          id,
		Name:        p.Name,
		CategoryID:  p.CategoryID,
		Price:       p.Price,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		Attributes:  p.Attributes,
	}
}

// --- response shapes shared with the public API ---

type categoryResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type fieldSchemaResponse struct {
	Key     string   `json:"key"`
	Label   string   `json:"label"`
	Kind    string   `json:"kind"`
	Options []string `json:"options,omitempty"`
}

type productResponse struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	CategoryID  int64             `json:"category_id"`
	Category    string            `json:"category"`
	Price       string            `json:"price"`
	Description string            `json:"description"`
	ImageURL    string            `json:"image_url,omitempty"`
	Attributes  map[string]string `json:"attributes"`
	Stock       int               `json:"stock"`
}

type orderResponse struct {
	ID        string    `json:"id"`
	BuyerID   int64     `json:"buyer_id"`
	BuyerName string    `json:"buyer_name,omitempty"`
	Total     string    `json:"total"`
	CreatedAt time.Time `json:"created_at"`
}

func toProductResponse(p domain.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		CategoryID:  p.CategoryID,
		Category:    p.Category,
		Price:       p.Price.StringFixed(2),
		Description: p.Description,
		ImageURL:    p.ImageURL,
		Attributes:  p.Attributes,
		Stock:       p.Stock,
	}
}

func toProductResponses(products []domain.Product) []productResponse {
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	return out
}

func toOrderResponses(orders []domain.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderResponse{
			ID:        o.ID,
			BuyerID:   o.BuyerID,
			BuyerName: o.BuyerName,
			Total:     o.Total.StringFixed(2),
			CreatedAt: o.CreatedAt,
		})
	}
	return out
}
