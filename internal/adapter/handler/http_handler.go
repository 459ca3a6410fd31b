package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/pcpartshop/storefront/internal/core/domain"
	"github.com/pcpartshop/storefront/internal/core/service"
	"github.com/pcpartshop/storefront/internal/metrics"
	"github.com/pcpartshop/storefront/internal/port"
)

type Handler struct {
	checkout *service.CheckoutService
	catalog  *service.CatalogService
	admin    *service.AdminService
	auth     *service.AuthService
	logger   *zap.Logger
}

func New(checkout *service.CheckoutService, catalog *service.CatalogService, admin *service.AdminService, auth *service.AuthService, logger *zap.Logger) *Handler {
	return &Handler{
		checkout: checkout,
		catalog:  catalog,
		admin:    admin,
		auth:     auth,
		logger:   logger,
	}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.HealthCheck)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/categories", h.ListCategories)
		r.Get("/categories/{id}/fields", h.CategoryFields)
		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.GetProduct)
		r.Get("/products/{id}/stock", h.ProductStock)

		r.Post("/register", h.Register)
		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.withUser)
			r.Post("/checkout", h.Checkout)
			r.Get("/orders", h.MyOrders)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.withUser, h.adminOnly)
			r.Get("/products", h.AdminListProducts)
			r.Post("/products", h.AdminCreateProduct)
			r.Put("/products/{id}", h.AdminUpdateProduct)
			r.Delete("/products/{id}", h.AdminDeleteProduct)
			r.Put("/inventory/{id}", h.AdminSetStock)
			r.Get("/orders", h.AdminListOrders)
		})
	})

	return r
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- identity ---

type ctxKey int

const userKey ctxKey = iota

// withUser resolves the buyer identity from the X-User-ID header set by
// the upstream; the service layer trusts it as given.
func (h *Handler) withUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
		if err != nil || userID <= 0 {
			respondError(w, http.StatusUnauthorized, "missing user identity")
			return
		}

		user, err := h.auth.GetUser(r.Context(), userID)
		if errors.Is(err, domain.ErrNotFound) {
			respondError(w, http.StatusUnauthorized, "unknown user")
			return
		}
		if err != nil {
			h.respondServiceError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

func (h *Handler) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := currentUser(r.Context()); user == nil || !user.IsAdmin {
			respondError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func currentUser(ctx context.Context) *domain.User {
	user, _ := ctx.Value(userKey).(*domain.User)
	return user
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(started)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// --- catalog ---

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	out := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryResponse{ID: c.ID, Name: c.Name})
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) CategoryFields(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid category id")
		return
	}
	schemas, err := h.catalog.FieldSchemas(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	out := make([]fieldSchemaResponse, 0, len(schemas))
	for _, s := range schemas {
		out = append(out, fieldSchemaResponse{
			Key:     s.Key,
			Label:   s.Label,
			Kind:    string(s.Kind),
			Options: s.Options,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter := port.ProductFilter{
		SortBy:     r.URL.Query().Get("sort"),
		Descending: r.URL.Query().Get("order") == "desc",
	}
	if raw := r.URL.Query().Get("category"); raw != "" {
		categoryID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid category filter")
			return
		}
		filter.CategoryID = categoryID
	}

	products, err := h.catalog.ListProducts(r.Context(), filter)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toProductResponses(products))
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	product, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toProductResponse(*product))
}

func (h *Handler) ProductStock(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	stock, err := h.catalog.ProductStock(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"product_id": id, "stock": stock})
}

// --- auth ---

type registerRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	FullName        string `json:"full_name"`
	ShippingAddress string `json:"shipping_address"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, err := h.auth.Register(r.Context(), req.Username, req.Password, req.FullName, req.ShippingAddress)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, userResponse{ID: user.ID, Username: user.Username, IsAdmin: user.IsAdmin})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, err := h.auth.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, userResponse{ID: user.ID, Username: user.Username, IsAdmin: user.IsAdmin})
}

// --- checkout & orders ---

type checkoutRequest struct {
	Cart []checkoutLine `json:"cart"`
}

type checkoutLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type checkoutResponse struct {
	OrderID string `json:"order_id"`
	Total   string `json:"total"`
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	lines := make([]domain.CartLine, 0, len(req.Cart))
	for _, l := range req.Cart {
		lines = append(lines, domain.CartLine{ProductID: l.ProductID, Quantity: l.Quantity})
	}

	result, err := h.checkout.Checkout(r.Context(), currentUser(r.Context()).ID, lines)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, checkoutResponse{
		OrderID: result.OrderID,
		Total:   result.Total.StringFixed(2),
	})
}

func (h *Handler) MyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.admin.OrdersForBuyer(r.Context(), currentUser(r.Context()).ID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponses(orders))
}

// --- shared plumbing ---

type errorResponse struct {
	Error     string `json:"error"`
	ProductID int64  `json:"product_id,omitempty"`
	Requested int    `json:"requested,omitempty"`
	Available int    `json:"available,omitempty"`
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	var validation *domain.ValidationError
	var invalidProduct *domain.InvalidProductError
	var outOfStock *domain.OutOfStockError

	switch {
	case errors.Is(err, domain.ErrEmptyCart), errors.Is(err, domain.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &validation):
		respondError(w, http.StatusBadRequest, validation.Error())
	case errors.As(err, &invalidProduct):
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:     invalidProduct.Error(),
			ProductID: invalidProduct.ProductID,
		})
	case errors.As(err, &outOfStock):
		respondJSON(w, http.StatusConflict, errorResponse{
			Error:     outOfStock.Error(),
			ProductID: outOfStock.ProductID,
			Requested: outOfStock.Requested,
			Available: outOfStock.Available,
		})
	case errors.Is(err, domain.ErrBusy):
		respondError(w, http.StatusServiceUnavailable, "store busy, retry later")
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrUsernameTaken):
		respondError(w, http.StatusConflict, "username already taken")
	case errors.Is(err, domain.ErrBadCredentials):
		respondError(w, http.StatusUnauthorized, "invalid credentials")
	default:
		h.logger.Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
