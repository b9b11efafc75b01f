package service

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/google/uuid"

	"github.com/efreitasn/arcclear/internal/domain"
	"github.com/efreitasn/arcclear/internal/metrics"
	"github.com/efreitasn/arcclear/internal/store"
)

// Event types actors may subscribe to.
var validWebhookEvents = map[domain.EventType]bool{
	domain.EventIntentCancelled: true,
	domain.EventIntentMatched:   true,
	domain.EventIntentExpired:   true,
	domain.EventMatchCreated:    true,
	domain.EventEscrowFunded:    true,
	domain.EventMatchFunded:     true,
	domain.EventMatchSettled:    true,
	domain.EventMatchDisputed:   true,
	domain.EventMatchCancelled:  true,
	domain.EventPaymentVerified: true,
}

func webhookEventNames() string {
	names := make([]string, 0, len(validWebhookEvents))
	for e := range validWebhookEvents {
		names = append(names, string(e))
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// UpsertWebhookRequest represents the input for webhook registration.
type UpsertWebhookRequest struct {
	Actor  common.Address
	URL    string
	Events []string
}

// EventSubscriber is the ledger's live event feed.
type EventSubscriber interface {
	SubscribeEvents(ch chan<- domain.Event) event.Subscription
}

// WebhookService handles webhook CRUD and delivers ledger events to the
// subscribed parties.
type WebhookService struct {
	store   *store.WebhookStore
	client  *http.Client
	metrics *metrics.Registry
	logger  *slog.Logger

	wg sync.WaitGroup
}

// NewWebhookService creates a new WebhookService. m and logger may be nil.
func NewWebhookService(
	webhookStore *store.WebhookStore,
	webhookTimeout time.Duration,
	m *metrics.Registry,
	logger *slog.Logger,
) *WebhookService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookService{
		store:   webhookStore,
		metrics: m,
		logger:  logger,
		client: &http.Client{
			Timeout: webhookTimeout,
		},
	}
}

// Upsert validates the request and creates or updates webhook subscriptions.
// Returns the resulting webhooks, whether any new subscriptions were created, and any error.
func (s *WebhookService) Upsert(req UpsertWebhookRequest) ([]domain.Webhook, bool, error) {
	if req.URL == "" {
		return nil, false, &domain.ValidationError{Message: "url is required"}
	}
	if len(req.URL) > 2048 {
		return nil, false, &domain.ValidationError{Message: "url must be at most 2048 characters"}
	}
	parsed, err := url.ParseRequestURI(req.URL)
	if err != nil || !parsed.IsAbs() {
		return nil, false, &domain.ValidationError{Message: "url must be a valid absolute URL"}
	}
	if parsed.Scheme != "https" {
		return nil, false, &domain.ValidationError{Message: "url must use https scheme"}
	}

	if len(req.Events) == 0 {
		return nil, false, &domain.ValidationError{Message: "events must be a non-empty array"}
	}

	// Deduplicate events while preserving order and validating.
	seen := make(map[domain.EventType]bool, len(req.Events))
	deduped := make([]domain.EventType, 0, len(req.Events))
	for _, name := range req.Events {
		e := domain.EventType(name)
		if !validWebhookEvents[e] {
			return nil, false, &domain.ValidationError{
				Message: "Unknown event type: " + name + ". Must be one of: " + webhookEventNames(),
			}
		}
		if !seen[e] {
			seen[e] = true
			deduped = append(deduped, e)
		}
	}

	now := time.Now().UTC().Truncate(time.Second)
	anyCreated := false
	webhooks := make([]domain.Webhook, 0, len(deduped))

	for _, e := range deduped {
		stored, created := s.store.Upsert(&domain.Webhook{
			WebhookID: uuid.New().String(),
			Actor:     req.Actor,
			Event:     e,
			URL:       req.URL,
			CreatedAt: now,
			UpdatedAt: now,
		})
		anyCreated = anyCreated || created
		webhooks = append(webhooks, stored)
	}

	return webhooks, anyCreated, nil
}

// List returns all webhook subscriptions of actor.
func (s *WebhookService) List(actor common.Address) []domain.Webhook {
	return s.store.ListByActor(actor)
}

// Get returns one of the caller's subscriptions with its delivery counters.
// Other actors' subscriptions are reported as missing.
func (s *WebhookService) Get(caller common.Address, webhookID string) (domain.Webhook, error) {
	w, err := s.store.Get(webhookID)
	if err != nil {
		return domain.Webhook{}, err
	}
	if w.Actor != caller {
		return domain.Webhook{}, domain.ErrWebhookNotFound
	}
	return w, nil
}

// Delete removes one of the caller's webhook subscriptions.
func (s *WebhookService) Delete(caller common.Address, webhookID string) error {
	if _, err := s.Get(caller, webhookID); err != nil {
		return err
	}
	return s.store.Delete(webhookID)
}

// Run delivers ledger events to subscribers until ctx is cancelled or
// the subscription fails.
func (s *WebhookService) Run(ctx context.Context, src EventSubscriber) error {
	ch := make(chan domain.Event, 256)
	sub := src.SubscribeEvents(ch)
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-sub.Err():
			return err
		case e := <-ch:
			s.DispatchEvent(e)
		}
	}
}

// DispatchEvent sends e to every recipient subscribed to its type. The
// recipients are the event's parties, or its actor when it has none.
// Fire-and-forget.
func (s *WebhookService) DispatchEvent(e domain.Event) {
	if !validWebhookEvents[e.Type] {
		return
	}
	payload := eventPayload{
		Event:     string(e.Type),
		Seq:       e.Seq,
		Timestamp: time.Unix(int64(e.Time), 0).UTC().Format(time.RFC3339),
		Data:      newEventData(e),
	}
	for _, actor := range recipients(e) {
		wh, ok := s.store.Lookup(actor, e.Type)
		if !ok {
			continue
		}
		s.wg.Add(1)
		go s.deliver(wh, payload)
	}
}

// DispatchIntentExpired tells the intent's actor that it expired while
// still open.
func (s *WebhookService) DispatchIntentExpired(intent *domain.Intent) {
	wh, ok := s.store.Lookup(intent.Actor, domain.EventIntentExpired)
	if !ok {
		return
	}
	payload := eventPayload{
		Event:     string(domain.EventIntentExpired),
		Timestamp: time.Unix(int64(intent.ValidUntil), 0).UTC().Format(time.RFC3339),
		Data: eventData{
			IntentID: intent.IntentID.Hex(),
			Actor:    intent.Actor.Hex(),
			Asset:    intent.SettlementAsset,
		},
	}
	s.wg.Add(1)
	go s.deliver(wh, payload)
}

// Wait blocks until all in-flight deliveries have finished.
func (s *WebhookService) Wait() {
	s.wg.Wait()
}

func recipients(e domain.Event) []common.Address {
	if len(e.Parties) == 0 {
		if e.Actor == (common.Address{}) {
			return nil
		}
		return []common.Address{e.Actor}
	}
	out := make([]common.Address, 0, len(e.Parties))
	for _, p := range e.Parties {
		dup := false
		for _, q := range out {
			if p == q {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, p)
		}
	}
	return out
}

// eventPayload is the JSON body of every webhook delivery.
type eventPayload struct {
	Event     string    `json:"event"`
	Seq       uint64    `json:"seq,omitempty"`
	Timestamp string    `json:"timestamp"`
	Data      eventData `json:"data"`
}

type eventData struct {
	IntentID   string   `json:"intent_id,omitempty"`
	MatchID    string   `json:"match_id,omitempty"`
	PaymentRef string   `json:"payment_ref,omitempty"`
	Actor      string   `json:"actor,omitempty"`
	Parties    []string `json:"parties,omitempty"`
	Asset      string   `json:"asset,omitempty"`
	Amount     string   `json:"amount,omitempty"`
}

func newEventData(e domain.Event) eventData {
	d := eventData{Asset: e.Asset}
	if e.IntentID != (common.Hash{}) {
		d.IntentID = e.IntentID.Hex()
	}
	if e.MatchID != (common.Hash{}) {
		d.MatchID = e.MatchID.Hex()
	}
	if e.PaymentRef != (common.Hash{}) {
		d.PaymentRef = e.PaymentRef.Hex()
	}
	if e.Actor != (common.Address{}) {
		d.Actor = e.Actor.Hex()
	}
	for _, p := range e.Parties {
		d.Parties = append(d.Parties, p.Hex())
	}
	if e.Amount != nil {
		d.Amount = e.Amount.Dec()
	}
	return d
}

// deliver POSTs payload to the subscription URL once and records the
// outcome on the subscription. Failed deliveries are not retried.
func (s *WebhookService) deliver(wh domain.Webhook, payload eventPayload) {
	defer s.wg.Done()

	body, err := json.Marshal(payload)
	if err != nil {
		s.metrics.IncDelivery("error")
		s.store.RecordDelivery(wh.WebhookID, time.Now().UTC(), err.Error())
		return
	}

	req, err := http.NewRequest(http.MethodPost, wh.URL, bytes.NewReader(body))
	if err != nil {
		s.metrics.IncDelivery("error")
		s.store.RecordDelivery(wh.WebhookID, time.Now().UTC(), err.Error())
		return
	}

	deliveryID := uuid.New().String()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-Id", deliveryID)
	req.Header.Set("X-Webhook-Id", wh.WebhookID)
	req.Header.Set("X-Event-Type", payload.Event)

	resp, err := s.client.Do(req)
	if err != nil {
		s.metrics.IncDelivery("error")
		s.store.RecordDelivery(wh.WebhookID, time.Now().UTC(), err.Error())
		s.logger.Debug("webhook delivery failed",
			slog.String("webhook_id", wh.WebhookID),
			slog.String("delivery_id", deliveryID),
			slog.String("error", err.Error()),
		)
		return
	}
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		s.metrics.IncDelivery("rejected")
		s.store.RecordDelivery(wh.WebhookID, time.Now().UTC(), "status "+strconv.Itoa(resp.StatusCode))
		return
	}
	s.metrics.IncDelivery("ok")
	s.store.RecordDelivery(wh.WebhookID, time.Now().UTC(), "")
}
