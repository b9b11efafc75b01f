package handler

import (
	"net/http"

	"github.com/efreitasn/arcclear/internal/domain"
	"github.com/efreitasn/arcclear/internal/service"
)

// IntentHandler handles HTTP requests for intent endpoints.
type IntentHandler struct {
	intentSvc *service.IntentService
	fmt       formatter
}

// NewIntentHandler creates a new IntentHandler.
func NewIntentHandler(intentSvc *service.IntentService, assets *domain.AssetRegistry) *IntentHandler {
	return &IntentHandler{intentSvc: intentSvc, fmt: formatter{assets}}
}

// submitIntentRequest is the JSON request body for POST /intents.
type submitIntentRequest struct {
	Side       string `json:"side"`
	Asset      string `json:"asset"`
	Price      string `json:"price"`
	Quantity   uint64 `json:"quantity"`
	ValidUntil uint64 `json:"valid_until"`
	MandateRef string `json:"mandate_ref"`
}

type intentListResponse struct {
	Intents []intentResponse `json:"intents"`
}

// Submit handles POST /intents.
func (h *IntentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitIntentRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	mandateRef, err := parseOptionalHash("mandate_ref", req.MandateRef)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	v, err := h.intentSvc.Submit(r.Context(), service.SubmitIntentRequest{
		Actor:      caller(r),
		Side:       domain.Side(req.Side),
		Asset:      req.Asset,
		Price:      req.Price,
		Quantity:   req.Quantity,
		ValidUntil: req.ValidUntil,
		MandateRef: mandateRef,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, h.fmt.intent(v))
}

// Get handles GET /intents/{intent_id}. Signed requests from the intent's
// actor also see the payload.
func (h *IntentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := hashParam(w, r, "intent_id")
	if !ok {
		return
	}
	v, err := h.intentSvc.Get(r.Context(), caller(r), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, h.fmt.intent(v))
}

// Cancel handles DELETE /intents/{intent_id}.
func (h *IntentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := hashParam(w, r, "intent_id")
	if !ok {
		return
	}
	v, err := h.intentSvc.Cancel(caller(r), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, h.fmt.intent(v))
}

// ListByActor handles GET /actors/{address}/intents.
func (h *IntentHandler) ListByActor(w http.ResponseWriter, r *http.Request) {
	actor, ok := addressParam(w, r, "address")
	if !ok {
		return
	}
	views := h.intentSvc.ListByActor(actor)
	resp := intentListResponse{Intents: make([]intentResponse, len(views))}
	for i, v := range views {
		resp.Intents[i] = h.fmt.intent(v)
	}
	WriteJSON(w, http.StatusOK, resp)
}
