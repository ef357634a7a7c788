package paylink

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mx-paylink/internal/common"
	"github.com/noah-isme/mx-paylink/internal/mx"
)

const (
	fallbackCreate = "Failed to create payment link"
	fallbackGet    = "Failed to retrieve payment"
	fallbackList   = "Failed to retrieve payments"

	defaultListLimit  = 10
	defaultListOffset = 0
)

// Creator is implemented by Service.
type Creator interface {
	Create(ctx context.Context, req Request) (*Result, error)
}

// PaymentsAPI retrieves payments from the processor unchanged.
type PaymentsAPI interface {
	GetPayment(ctx context.Context, paymentID string) (json.RawMessage, error)
	ListPayments(ctx context.Context, limit, offset int) (json.RawMessage, error)
}

// Handler exposes the /api/payments endpoints.
type Handler struct {
	Svc      Creator
	Payments PaymentsAPI
	// CreateLimit guards the billable create route when set.
	CreateLimit func(http.Handler) http.Handler
}

// Routes mounts the payment endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	create := http.Handler(http.HandlerFunc(h.Create))
	if h.CreateLimit != nil {
		create = h.CreateLimit(create)
	}
	r.Method(http.MethodPost, "/create", create)
	r.Get("/{paymentId}", h.Get)
	r.Get("/", h.List)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	res, err := h.Svc.Create(r.Context(), req)
	if err != nil {
		if common.IsValidation(err) {
			common.WriteError(w, err, fallbackCreate)
			return
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("paylink_create_failed")
		common.WriteError(w, mx.AsAppError(err, fallbackCreate), fallbackCreate)
		return
	}
	common.OK(w, res)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "paymentId")
	data, err := h.Payments.GetPayment(r.Context(), paymentID)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("payment_id", paymentID).Msg("payment_retrieve_failed")
		common.WriteError(w, mx.AsAppError(err, fallbackGet), fallbackGet)
		return
	}
	common.OK(w, data)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := common.ParseLimitOffset(r, defaultListLimit, defaultListOffset)
	data, err := h.Payments.ListPayments(r.Context(), limit, offset)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("payment_list_failed")
		common.WriteError(w, mx.AsAppError(err, fallbackList), fallbackList)
		return
	}
	common.OK(w, data)
}
