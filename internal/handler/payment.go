package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/arcclear/internal/domain"
	"github.com/efreitasn/arcclear/internal/service"
)

// PaymentHandler handles payment verification and ledger administration.
type PaymentHandler struct {
	paymentSvc *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentSvc *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentSvc: paymentSvc}
}

type recordPaymentRequest struct {
	PaymentID  string `json:"payment_id"`
	Asset      string `json:"asset"`
	Amount     string `json:"amount"`
	Payer      string `json:"payer"`
	Payee      string `json:"payee"`
	MandateRef string `json:"mandate_ref"`
}

// paymentResponse reports the verified amount in base units. Verifications
// are not tied to an asset.
type paymentResponse struct {
	PaymentRef      string `json:"payment_ref"`
	AmountBaseUnits string `json:"amount_base_units"`
	Payer           string `json:"payer"`
	Payee           string `json:"payee"`
	VerifiedAt      uint64 `json:"verified_at"`
	MandateRef      string `json:"mandate_ref,omitempty"`
	Verified        bool   `json:"verified"`
}

type addressRequest struct {
	Address string `json:"address"`
}

type oraclesResponse struct {
	Oracles []string `json:"oracles"`
}

type matchersResponse struct {
	Matchers []string `json:"matchers"`
	// Open is true while no matcher is configured and anyone may
	// create matches.
	Open bool `json:"open"`
}

type matcherResponse struct {
	Address    string `json:"address"`
	Authorized bool   `json:"authorized"`
}

type ownerResponse struct {
	Owner string `json:"owner"`
}

type registerMandateRequest struct {
	Ref        string `json:"ref"`
	ValidUntil uint64 `json:"valid_until"`
}

type mandateResponse struct {
	Ref          string `json:"ref"`
	RegisteredAt uint64 `json:"registered_at"`
	ValidUntil   uint64 `json:"valid_until"`
	Revoked      bool   `json:"revoked"`
	Valid        bool   `json:"valid"`
}

type oracleResponse struct {
	Address    string `json:"address"`
	Authorized bool   `json:"authorized"`
}

func toPaymentResponse(p *domain.PaymentVerification) paymentResponse {
	return paymentResponse{
		PaymentRef:      p.PaymentRef.Hex(),
		AmountBaseUnits: p.Amount.Dec(),
		Payer:           p.Payer.Hex(),
		Payee:           p.Payee.Hex(),
		VerifiedAt:      p.VerifiedAt,
		MandateRef:      hashOrEmpty(p.MandateRef),
		Verified:        p.Verified,
	}
}

func toMandateResponse(m *domain.Mandate, valid bool) mandateResponse {
	return mandateResponse{
		Ref:          m.Ref.Hex(),
		RegisteredAt: m.RegisteredAt,
		ValidUntil:   m.ValidUntil,
		Revoked:      m.Revoked,
		Valid:        valid,
	}
}

// Record handles POST /payments. The caller must be an authorized oracle.
func (h *PaymentHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req recordPaymentRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	payer, err := parseAddress("payer", req.Payer)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	payee, err := parseAddress("payee", req.Payee)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	mandateRef, err := parseOptionalHash("mandate_ref", req.MandateRef)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	p, err := h.paymentSvc.Record(service.RecordPaymentRequest{
		Oracle:     caller(r),
		PaymentID:  req.PaymentID,
		Asset:      req.Asset,
		Amount:     req.Amount,
		Payer:      payer,
		Payee:      payee,
		MandateRef: mandateRef,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, toPaymentResponse(p))
}

// Get handles GET /payments/{payment_id}.
func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.paymentSvc.Get(chi.URLParam(r, "payment_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toPaymentResponse(p))
}

// Oracles handles GET /oracles.
func (h *PaymentHandler) Oracles(w http.ResponseWriter, r *http.Request) {
	oracles := h.paymentSvc.Oracles()
	resp := oraclesResponse{Oracles: make([]string, len(oracles))}
	for i, o := range oracles {
		resp.Oracles[i] = o.Hex()
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Oracle handles GET /oracles/{address}.
func (h *PaymentHandler) Oracle(w http.ResponseWriter, r *http.Request) {
	addr, ok := addressParam(w, r, "address")
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, oracleResponse{Address: addr.Hex(), Authorized: h.paymentSvc.IsOracle(addr)})
}

// AuthorizeOracle handles POST /oracles.
func (h *PaymentHandler) AuthorizeOracle(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	oracle, err := parseAddress("address", req.Address)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.paymentSvc.AuthorizeOracle(caller(r), oracle); err != nil {
		writeDomainError(w, err)
		return
	}
	h.Oracles(w, r)
}

// RevokeOracle handles DELETE /oracles/{address}.
func (h *PaymentHandler) RevokeOracle(w http.ResponseWriter, r *http.Request) {
	oracle, ok := addressParam(w, r, "address")
	if !ok {
		return
	}
	if err := h.paymentSvc.RevokeOracle(caller(r), oracle); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Matchers handles GET /matchers.
func (h *PaymentHandler) Matchers(w http.ResponseWriter, r *http.Request) {
	matchers := h.paymentSvc.Matchers()
	resp := matchersResponse{Matchers: make([]string, len(matchers)), Open: len(matchers) == 0}
	for i, m := range matchers {
		resp.Matchers[i] = m.Hex()
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Matcher handles GET /matchers/{address}.
func (h *PaymentHandler) Matcher(w http.ResponseWriter, r *http.Request) {
	addr, ok := addressParam(w, r, "address")
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, matcherResponse{Address: addr.Hex(), Authorized: h.paymentSvc.IsMatcher(addr)})
}

// AuthorizeMatcher handles POST /matchers.
func (h *PaymentHandler) AuthorizeMatcher(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	matcher, err := parseAddress("address", req.Address)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.paymentSvc.AuthorizeMatcher(caller(r), matcher); err != nil {
		writeDomainError(w, err)
		return
	}
	h.Matchers(w, r)
}

// RevokeMatcher handles DELETE /matchers/{address}.
func (h *PaymentHandler) RevokeMatcher(w http.ResponseWriter, r *http.Request) {
	matcher, ok := addressParam(w, r, "address")
	if !ok {
		return
	}
	if err := h.paymentSvc.RevokeMatcher(caller(r), matcher); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Owner handles GET /owner.
func (h *PaymentHandler) Owner(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, ownerResponse{Owner: h.paymentSvc.Owner().Hex()})
}

// TransferOwnership handles POST /owner.
func (h *PaymentHandler) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	newOwner, err := parseAddress("address", req.Address)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.paymentSvc.TransferOwnership(caller(r), newOwner); err != nil {
		writeDomainError(w, err)
		return
	}
	h.Owner(w, r)
}

// RegisterMandate handles POST /mandates.
func (h *PaymentHandler) RegisterMandate(w http.ResponseWriter, r *http.Request) {
	var req registerMandateRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	ref, err := parseHash("ref", req.Ref)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if _, err := h.paymentSvc.RegisterMandate(caller(r), ref, req.ValidUntil); err != nil {
		writeDomainError(w, err)
		return
	}
	m, valid, err := h.paymentSvc.Mandate(ref)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, toMandateResponse(m, valid))
}

// Mandate handles GET /mandates/{ref}.
func (h *PaymentHandler) Mandate(w http.ResponseWriter, r *http.Request) {
	ref, ok := hashParam(w, r, "ref")
	if !ok {
		return
	}
	m, valid, err := h.paymentSvc.Mandate(ref)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toMandateResponse(m, valid))
}

// RevokeMandate handles DELETE /mandates/{ref}.
func (h *PaymentHandler) RevokeMandate(w http.ResponseWriter, r *http.Request) {
	ref, ok := hashParam(w, r, "ref")
	if !ok {
		return
	}
	if err := h.paymentSvc.RevokeMandate(caller(r), ref); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
