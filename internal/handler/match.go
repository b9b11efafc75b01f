package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/arcclear/internal/domain"
	"github.com/efreitasn/arcclear/internal/service"
)

// MatchHandler handles match, escrow and account endpoints.
type MatchHandler struct {
	settleSvc *service.SettlementService
	fmt       formatter
}

// NewMatchHandler creates a new MatchHandler.
func NewMatchHandler(settleSvc *service.SettlementService, assets *domain.AssetRegistry) *MatchHandler {
	return &MatchHandler{settleSvc: settleSvc, fmt: formatter{assets}}
}

type proposeRequest struct {
	BidIntentID string `json:"bid_intent_id"`
	AskIntentID string `json:"ask_intent_id"`
	Price       string `json:"price"`
}

type fundRequest struct {
	Amount string `json:"amount"`
}

type settleRequest struct {
	PaymentID string `json:"payment_id"`
	ProofRef  string `json:"proof_ref"`
}

type disputeRequest struct {
	Reason string `json:"reason"`
}

type transferRequest struct {
	To     string `json:"to"`
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

type matchListResponse struct {
	Matches []matchResponse `json:"matches"`
}

type escrowResponse struct {
	MatchID string `json:"match_id"`
	Party   string `json:"party"`
	Asset   string `json:"asset"`
	Locked  string `json:"locked"`
}

type balanceResponse struct {
	Account string `json:"account"`
	Asset   string `json:"asset"`
	Balance string `json:"balance"`
}

// Propose handles POST /matches. Any caller may pair two valid intents;
// the engine uses the same ledger call.
func (h *MatchHandler) Propose(w http.ResponseWriter, r *http.Request) {
	var req proposeRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	bidID, err := parseHash("bid_intent_id", req.BidIntentID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	askID, err := parseHash("ask_intent_id", req.AskIntentID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	m, err := h.settleSvc.Propose(service.ProposeRequest{
		Caller:      caller(r),
		BidIntentID: bidID,
		AskIntentID: askID,
		Price:       req.Price,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, h.fmt.match(m))
}

// Get handles GET /matches/{match_id}.
func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := hashParam(w, r, "match_id")
	if !ok {
		return
	}
	m, err := h.settleSvc.Get(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, h.fmt.match(m))
}

// Fund handles POST /matches/{match_id}/fund.
func (h *MatchHandler) Fund(w http.ResponseWriter, r *http.Request) {
	id, ok := hashParam(w, r, "match_id")
	if !ok {
		return
	}
	var req fundRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	h.respond(w)(h.settleSvc.Fund(caller(r), id, req.Amount))
}

// Settle handles POST /matches/{match_id}/settle.
func (h *MatchHandler) Settle(w http.ResponseWriter, r *http.Request) {
	id, ok := hashParam(w, r, "match_id")
	if !ok {
		return
	}
	var req settleRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	h.respond(w)(h.settleSvc.Settle(caller(r), service.SettleRequest{
		MatchID:   id,
		PaymentID: req.PaymentID,
		ProofRef:  req.ProofRef,
	}))
}

// Dispute handles POST /matches/{match_id}/dispute.
func (h *MatchHandler) Dispute(w http.ResponseWriter, r *http.Request) {
	id, ok := hashParam(w, r, "match_id")
	if !ok {
		return
	}
	var req disputeRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	h.respond(w)(h.settleSvc.Dispute(caller(r), id, req.Reason))
}

// Cancel handles POST /matches/{match_id}/cancel. The body is ignored.
func (h *MatchHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := hashParam(w, r, "match_id")
	if !ok {
		return
	}
	h.respond(w)(h.settleSvc.Cancel(caller(r), id))
}

// Escrow handles GET /matches/{match_id}/escrow/{address}.
func (h *MatchHandler) Escrow(w http.ResponseWriter, r *http.Request) {
	id, ok := hashParam(w, r, "match_id")
	if !ok {
		return
	}
	party, ok := addressParam(w, r, "address")
	if !ok {
		return
	}
	m, err := h.settleSvc.Get(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	locked, err := h.settleSvc.EscrowBalance(id, party)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, escrowResponse{
		MatchID: id.Hex(),
		Party:   party.Hex(),
		Asset:   m.Asset,
		Locked:  h.fmt.amount(m.Asset, locked),
	})
}

// ListByParty handles GET /actors/{address}/matches.
func (h *MatchHandler) ListByParty(w http.ResponseWriter, r *http.Request) {
	party, ok := addressParam(w, r, "address")
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, matchListResponse{Matches: h.fmt.matches(h.settleSvc.ListByParty(party))})
}

// Balance handles GET /accounts/{address}/balances/{asset}.
func (h *MatchHandler) Balance(w http.ResponseWriter, r *http.Request) {
	account, ok := addressParam(w, r, "address")
	if !ok {
		return
	}
	asset := chi.URLParam(r, "asset")
	bal, err := h.settleSvc.Balance(account, asset)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, balanceResponse{
		Account: account.Hex(),
		Asset:   asset,
		Balance: h.fmt.amount(asset, bal),
	})
}

// Transfer handles POST /transfers.
func (h *MatchHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	to, err := parseAddress("to", req.To)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	from := caller(r)
	if err := h.settleSvc.Transfer(service.TransferRequest{
		From:   from,
		To:     to,
		Asset:  req.Asset,
		Amount: req.Amount,
	}); err != nil {
		writeDomainError(w, err)
		return
	}
	bal, _ := h.settleSvc.Balance(from, req.Asset)
	WriteJSON(w, http.StatusOK, balanceResponse{
		Account: from.Hex(),
		Asset:   req.Asset,
		Balance: h.fmt.amount(req.Asset, bal),
	})
}

// respond writes the match returned by a service call, or its error.
func (h *MatchHandler) respond(w http.ResponseWriter) func(*domain.Match, error) {
	return func(m *domain.Match, err error) {
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, h.fmt.match(m))
	}
}
