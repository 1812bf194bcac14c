package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/order"
	"github.com/go-chi/chi/v5"
)

type OrdersHandler struct {
	orders  OrderService
	timeout time.Duration
}

func NewOrdersHandler(orders OrderService, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{orders: orders, timeout: timeout}
}

type CancelRequestDTO struct {
	Note string `json:"note,omitempty"`
}

type UpdateStatusRequestDTO struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := h.orders.ListByUser(ctx, identityFromContext(ctx).UserID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	out := make([]orderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, newOrderView(o))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	o, err := h.orders.Get(ctx, chi.URLParam(r, "number"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newOrderView(o))
}

func (h *OrdersHandler) Tracking(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	records, err := h.orders.History(ctx, chi.URLParam(r, "number"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, records)
}

func (h *OrdersHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	// The body is optional.
	var req CancelRequestDTO
	if r.ContentLength != 0 {
		if err := decodeOptional(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}
	}

	who := order.Requester{
		UserID:    identityFromContext(ctx).UserID,
		SessionID: sessionFromContext(ctx),
	}
	o, err := h.orders.Cancel(ctx, chi.URLParam(r, "number"), who, req.Note)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newOrderView(o))
}

// UpdateStatus is the operator transition endpoint.
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateStatusRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	next, ok := domain.ParseOrderStatus(req.Status)
	if !ok {
		handleError(w, r, domain.NewValidationError("status", "unknown order status"))
		return
	}
	o, err := h.orders.Transition(ctx, chi.URLParam(r, "number"), next, req.Note)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newOrderView(o))
}

func decodeOptional(r *http.Request, dst any) error {
	err := jsonDecoder(r).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
