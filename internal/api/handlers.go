package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/avelis/bookstore/internal/auth"
	"github.com/avelis/bookstore/internal/models"
	"github.com/avelis/bookstore/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type contextKey string

const usernameKey contextKey = "username"

// Handler contains dependencies for HTTP handlers
type Handler struct {
	Store    *store.Store
	Auth     *auth.Service
	validate *validator.Validate
}

// NewHandler creates a new handler
func NewHandler(st *store.Store, authService *auth.Service) *Handler {
	return &Handler{Store: st, Auth: authService, validate: validator.New()}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps the store's error taxonomy to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrInvalidCredentials),
		errors.Is(err, store.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicateUser),
		errors.Is(err, store.ErrDuplicateID),
		errors.Is(err, store.ErrAlreadyInCart),
		errors.Is(err, store.ErrOutOfStock),
		errors.Is(err, store.ErrEmptyCart):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) domainError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username" validate:"required,min=3"`
		Password string `json:"password" validate:"required,min=3"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "username and password must be at least 3 characters")
		return
	}

	user, err := h.Auth.Register(req.Username, req.Password)
	if err != nil {
		h.domainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"username": user.Username,
		"role":     user.Role,
	})
}

// Login handles user login and opens a session
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "username and password required")
		return
	}

	token, user, err := h.Auth.Login(req.Username, req.Password)
	if err != nil {
		h.domainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":    token,
		"username": user.Username,
		"role":     user.Role,
	})
}

// Logout ends the session; the in-progress cart is discarded
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	username, ok := r.Context().Value(usernameKey).(string)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	h.Auth.Logout(username)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// JWTAuthMiddleware verifies JWT tokens and stores the acting username
func (h *Handler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.Header.Get("Authorization")
		if tokenString == "" {
			writeError(w, http.StatusUnauthorized, "authorization header required")
			return
		}
		if len(tokenString) > 7 && tokenString[:7] == "Bearer " {
			tokenString = tokenString[7:]
		}

		username, err := h.Auth.VerifyToken(tokenString)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := contextWithUsername(r.Context(), username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ListBooks returns the catalog
func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"books": h.Store.ListBooks()})
}

// AddToCart reserves a unit of the book for the acting user's cart
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	username, ok := r.Context().Value(usernameKey).(string)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	bookID, err := strconv.Atoi(chi.URLParam(r, "bookID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	line, err := h.Store.AddToCart(username, bookID)
	if err != nil {
		h.domainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, line)
}

// RemoveFromCart drops a line from the cart and restores its stock unit
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	username, ok := r.Context().Value(usernameKey).(string)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	bookID, err := strconv.Atoi(chi.URLParam(r, "bookID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	if err := h.Store.RemoveFromCart(username, bookID); err != nil {
		h.domainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "removed from cart"})
}

// ViewCart returns the acting user's cart
func (h *Handler) ViewCart(w http.ResponseWriter, r *http.Request) {
	username, ok := r.Context().Value(usernameKey).(string)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	cart, err := h.Store.Cart(username)
	if err != nil {
		h.domainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": cart})
}

// PlaceOrder turns the cart into an order
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	username, ok := r.Context().Value(usernameKey).(string)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	order, err := h.Store.PlaceOrder(username)
	if err != nil {
		h.domainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// ListOrders returns order history. Customers see their own orders; admins
// see everything, optionally filtered with ?user=.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	username, ok := r.Context().Value(usernameKey).(string)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	filter := username
	if user, found := h.Store.FindUser(username); found && user.Role == models.RoleAdmin {
		filter = r.URL.Query().Get("user")
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"orders": h.Store.Orders(filter)})
}

// AddBook inserts a catalog entry. Admin only.
func (h *Handler) AddBook(w http.ResponseWriter, r *http.Request) {
	username, ok := r.Context().Value(usernameKey).(string)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		ID     int             `json:"id" validate:"required,gt=0"`
		Title  string          `json:"title" validate:"required"`
		Author string          `json:"author" validate:"required"`
		Price  decimal.Decimal `json:"price"`
		Stock  int             `json:"stock" validate:"gte=0"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "id, title, and author are required; stock must not be negative")
		return
	}

	book, err := h.Store.AddBook(username, models.Book{
		ID:     req.ID,
		Title:  req.Title,
		Author: req.Author,
		Price:  req.Price,
		Stock:  req.Stock,
	})
	if err != nil {
		h.domainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

// UpdateBook edits a catalog entry. Empty title or author leaves the field
// unchanged. Admin only.
func (h *Handler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	username, ok := r.Context().Value(usernameKey).(string)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	var req struct {
		Title  string          `json:"title"`
		Author string          `json:"author"`
		Price  decimal.Decimal `json:"price"`
		Stock  int             `json:"stock" validate:"gte=0"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "stock must not be negative")
		return
	}

	book, err := h.Store.UpdateBook(username, id, req.Title, req.Author, req.Price, req.Stock)
	if err != nil {
		h.domainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// DeleteBook removes a catalog entry; deleting an absent id succeeds.
// Admin only.
func (h *Handler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	username, ok := r.Context().Value(usernameKey).(string)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	if err := h.Store.DeleteBook(username, id); err != nil {
		h.domainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "book deleted"})
}
