package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/arcclear/internal/domain"
	"github.com/efreitasn/arcclear/internal/metrics"
	"github.com/efreitasn/arcclear/internal/service"
)

// Deps are the collaborators the router serves. Metrics may be nil, in
// which case /metrics is not mounted.
type Deps struct {
	Intents    *service.IntentService
	Settlement *service.SettlementService
	Payments   *service.PaymentService
	Webhooks   *service.WebhookService
	Books      BookReader
	Assets     *domain.AssetRegistry
	Auth       *Authenticator
	Metrics    *metrics.Registry
	Logger     *slog.Logger
}

// NewRouter creates a chi router with all routes registered, request logging,
// and Content-Type validation middleware. Mutating routes require a signed
// request; the recovered signer is the acting identity.
func NewRouter(d Deps) chi.Router {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(requestLogging(d.Logger, d.Metrics))
	r.Use(contentTypeJSON)

	// Create handlers.
	intentH := NewIntentHandler(d.Intents, d.Assets)
	matchH := NewMatchHandler(d.Settlement, d.Assets)
	paymentH := NewPaymentHandler(d.Payments)
	bookH := NewBookHandler(d.Books, d.Assets)
	webhookH := NewWebhookHandler(d.Webhooks)

	// Health check.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	// Public reads.
	r.Get("/actors/{address}/intents", intentH.ListByActor)
	r.Get("/actors/{address}/matches", matchH.ListByParty)
	r.Get("/accounts/{address}/balances/{asset}", matchH.Balance)
	r.Get("/matches/{match_id}", matchH.Get)
	r.Get("/matches/{match_id}/escrow/{address}", matchH.Escrow)
	r.Get("/payments/{payment_id}", paymentH.Get)
	r.Get("/oracles", paymentH.Oracles)
	r.Get("/oracles/{address}", paymentH.Oracle)
	r.Get("/matchers", paymentH.Matchers)
	r.Get("/matchers/{address}", paymentH.Matcher)
	r.Get("/owner", paymentH.Owner)
	r.Get("/mandates/{ref}", paymentH.Mandate)
	r.Get("/books", bookH.List)
	r.Get("/books/{asset}", bookH.Get)
	r.Get("/engine/report", bookH.Report)
	r.With(d.Auth.Optional).Get("/intents/{intent_id}", intentH.Get)

	// Signed routes.
	r.Group(func(r chi.Router) {
		r.Use(d.Auth.Require)

		// Intent routes.
		r.Post("/intents", intentH.Submit)
		r.Delete("/intents/{intent_id}", intentH.Cancel)

		// Match routes.
		r.Post("/matches", matchH.Propose)
		r.Post("/matches/{match_id}/fund", matchH.Fund)
		r.Post("/matches/{match_id}/settle", matchH.Settle)
		r.Post("/matches/{match_id}/dispute", matchH.Dispute)
		r.Post("/matches/{match_id}/cancel", matchH.Cancel)
		r.Post("/transfers", matchH.Transfer)

		// Oracle and admin routes.
		r.Post("/payments", paymentH.Record)
		r.Post("/oracles", paymentH.AuthorizeOracle)
		r.Delete("/oracles/{address}", paymentH.RevokeOracle)
		r.Post("/matchers", paymentH.AuthorizeMatcher)
		r.Delete("/matchers/{address}", paymentH.RevokeMatcher)
		r.Post("/owner", paymentH.TransferOwnership)
		r.Post("/mandates", paymentH.RegisterMandate)
		r.Delete("/mandates/{ref}", paymentH.RevokeMandate)

		// Webhook routes.
		r.Post("/webhooks", webhookH.Upsert)
		r.Get("/webhooks", webhookH.List)
		r.Get("/webhooks/{webhook_id}", webhookH.Get)
		r.Delete("/webhooks/{webhook_id}", webhookH.Delete)
	})

	return r
}

// requestLogging returns middleware that logs each request's method, path,
// status code, and duration using slog, and counts it in m.
func requestLogging(logger *slog.Logger, m *metrics.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			m.IncRequest(r.Method, ww.status)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// contentTypeJSON is middleware that validates Content-Type for POST, PUT, and
// PATCH requests. If the Content-Type header doesn't start with
// "application/json", it returns 400 Bad Request before the handler runs.
func contentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct == "" || !strings.HasPrefix(ct, "application/json") {
				WriteError(w, http.StatusBadRequest, "invalid_request",
					"Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
