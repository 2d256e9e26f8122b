package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/zawadicraft/storefront/internal/cart/application"
	"github.com/zawadicraft/storefront/internal/cart/domain"
)

type Handler struct {
	log    *slog.Logger
	carts  *application.Service
	tracer trace.Tracer
}

func NewHandler(log *slog.Logger, carts *application.Service) *Handler {
	return &Handler{
		log:    log,
		carts:  carts,
		tracer: otel.Tracer("cart-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/sync", h.syncCart)
	r.Get("/", h.getCart)
	return r
}

type syncCartRequest struct {
	SyncToken string            `json:"sync_token"`
	Items     []domain.CartItem `json:"items"`
}

func (h *Handler) syncCart(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SyncCart")
	defer span.End()

	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var req syncCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	cart, err := h.carts.Sync(ctx, userID, req.SyncToken, req.Items)
	if err != nil {
		h.log.Error("cart sync failed", "user_id", userID, "err", err)
		http.Error(w, "cart sync failed", http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(cart)
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetCart")
	defer span.End()

	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	cart, err := h.carts.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		http.Error(w, "cart not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(cart)
}
