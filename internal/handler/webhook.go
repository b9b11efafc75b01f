package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/arcclear/internal/domain"
	"github.com/efreitasn/arcclear/internal/service"
)

// WebhookHandler handles HTTP requests for webhook endpoints.
type WebhookHandler struct {
	webhookSvc *service.WebhookService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(webhookSvc *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookSvc: webhookSvc}
}

// upsertWebhookRequest is the JSON request body for POST /webhooks. The
// subscriber is the signing caller.
type upsertWebhookRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
}

type webhookResponse struct {
	WebhookID      string  `json:"webhook_id"`
	Actor          string  `json:"actor"`
	Event          string  `json:"event"`
	URL            string  `json:"url"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
	Deliveries     uint64  `json:"deliveries"`
	Failures       uint64  `json:"failures"`
	LastDeliveryAt *string `json:"last_delivery_at"`
	LastError      *string `json:"last_error"`
}

type webhookListResponse struct {
	Webhooks []webhookResponse `json:"webhooks"`
}

// Upsert handles POST /webhooks.
func (h *WebhookHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req upsertWebhookRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	webhooks, anyCreated, err := h.webhookSvc.Upsert(service.UpsertWebhookRequest{
		Actor:  caller(r),
		URL:    req.URL,
		Events: req.Events,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	status := http.StatusOK
	if anyCreated {
		status = http.StatusCreated
	}

	WriteJSON(w, status, webhookListResponse{
		Webhooks: buildWebhookResponses(webhooks),
	})
}

// Get handles GET /webhooks/{webhook_id}, one of the caller's
// subscriptions with its delivery counters.
func (h *WebhookHandler) Get(w http.ResponseWriter, r *http.Request) {
	wh, err := h.webhookSvc.Get(caller(r), chi.URLParam(r, "webhook_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toWebhookResponse(wh))
}

// List handles GET /webhooks, returning the caller's subscriptions.
func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, webhookListResponse{
		Webhooks: buildWebhookResponses(h.webhookSvc.List(caller(r))),
	})
}

// Delete handles DELETE /webhooks/{webhook_id}.
func (h *WebhookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	webhookID := chi.URLParam(r, "webhook_id")

	if err := h.webhookSvc.Delete(caller(r), webhookID); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func buildWebhookResponses(webhooks []domain.Webhook) []webhookResponse {
	result := make([]webhookResponse, len(webhooks))
	for i, wh := range webhooks {
		result[i] = toWebhookResponse(wh)
	}
	return result
}

func toWebhookResponse(wh domain.Webhook) webhookResponse {
	resp := webhookResponse{
		WebhookID:  wh.WebhookID,
		Actor:      wh.Actor.Hex(),
		Event:      string(wh.Event),
		URL:        wh.URL,
		CreatedAt:  wh.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  wh.UpdatedAt.UTC().Format(time.RFC3339),
		Deliveries: wh.Deliveries,
		Failures:   wh.Failures,
	}
	if !wh.LastDeliveryAt.IsZero() {
		at := wh.LastDeliveryAt.UTC().Format(time.RFC3339)
		resp.LastDeliveryAt = &at
	}
	if wh.LastError != "" {
		resp.LastError = &wh.LastError
	}
	return resp
}
