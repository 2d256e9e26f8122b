package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/zawadicraft/storefront/internal/donation/application"
	"github.com/zawadicraft/storefront/internal/donation/domain"
	orderdomain "github.com/zawadicraft/storefront/internal/order/domain"
)

type Handler struct {
	log       *slog.Logger
	donations *application.Service
	tracer    trace.Tracer
}

func NewHandler(log *slog.Logger, donations *application.Service) *Handler {
	return &Handler{
		log:       log,
		donations: donations,
		tracer:    otel.Tracer("donation-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/", h.createDonation)
	r.Get("/{reference}", h.getDonation)
	return r
}

type createDonationRequest struct {
	DonorName   string `json:"donor_name"`
	DonorEmail  string `json:"donor_email"`
	Message     string `json:"message"`
	AmountCents int64  `json:"amount_cents"`
}

type createDonationResponse struct {
	Donation    domain.Donation `json:"donation"`
	RedirectURL string          `json:"redirect_url,omitempty"`
}

func (h *Handler) createDonation(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateDonation")
	defer span.End()

	var req createDonationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	res, err := h.donations.Create(ctx, req.DonorName, req.DonorEmail, req.Message, req.AmountCents)
	switch {
	case errors.Is(err, orderdomain.ErrGatewayUnavailable):
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(createDonationResponse{Donation: res.Donation})
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(createDonationResponse{Donation: res.Donation, RedirectURL: res.RedirectURL})
}

func (h *Handler) getDonation(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetDonation")
	defer span.End()

	d, err := h.donations.Get(ctx, chi.URLParam(r, "reference"))
	if errors.Is(err, orderdomain.ErrNotFound) {
		http.Error(w, "donation not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(d)
}
