package store

import (
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/efreitasn/arcclear/internal/domain"
)

type subscriptionKey struct {
	actor common.Address
	event domain.EventType
}

// WebhookStore is a thread-safe in-memory store of webhook subscriptions.
// Every read returns a copy, so deliveries in flight never observe a
// concurrent URL change or counter update.
type WebhookStore struct {
	mu    sync.RWMutex
	byID  map[string]*domain.Webhook
	byKey map[subscriptionKey]string
}

// NewWebhookStore creates an empty WebhookStore.
func NewWebhookStore() *WebhookStore {
	return &WebhookStore{
		byID:  make(map[string]*domain.Webhook),
		byKey: make(map[subscriptionKey]string),
	}
}

// Upsert stores w unless the actor already subscribes to w.Event, in which
// case only the URL of the existing subscription is replaced and its id is
// kept. Returns the stored subscription and whether it was created.
func (s *WebhookStore) Upsert(w *domain.Webhook) (domain.Webhook, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := subscriptionKey{actor: w.Actor, event: w.Event}
	if id, ok := s.byKey[key]; ok {
		existing := s.byID[id]
		if existing.URL != w.URL {
			existing.URL = w.URL
			existing.UpdatedAt = w.UpdatedAt
		}
		return *existing, false
	}

	stored := *w
	s.byID[w.WebhookID] = &stored
	s.byKey[key] = w.WebhookID
	return stored, true
}

// Get returns domain.ErrWebhookNotFound for unknown ids.
func (s *WebhookStore) Get(id string) (domain.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.byID[id]
	if !ok {
		return domain.Webhook{}, domain.ErrWebhookNotFound
	}
	return *w, nil
}

// Lookup returns the actor's subscription to event, if any.
func (s *WebhookStore) Lookup(actor common.Address, event domain.EventType) (domain.Webhook, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byKey[subscriptionKey{actor: actor, event: event}]
	if !ok {
		return domain.Webhook{}, false
	}
	return *s.byID[id], true
}

// ListByActor returns the actor's subscriptions ordered by event type.
func (s *WebhookStore) ListByActor(actor common.Address) []domain.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Webhook, 0)
	for key, id := range s.byKey {
		if key.actor == actor {
			result = append(result, *s.byID[id])
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Event < result[j].Event })
	return result
}

// RecordDelivery updates the delivery counters of a subscription. An empty
// failure marks a successful delivery. Deleted subscriptions are ignored.
func (s *WebhookStore) RecordDelivery(id string, at time.Time, failure string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.byID[id]
	if !ok {
		return
	}
	w.Deliveries++
	w.LastDeliveryAt = at
	if failure != "" {
		w.Failures++
		w.LastError = failure
	}
}

// Delete returns domain.ErrWebhookNotFound for unknown ids.
func (s *WebhookStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.byID[id]
	if !ok {
		return domain.ErrWebhookNotFound
	}
	delete(s.byID, id)
	delete(s.byKey, subscriptionKey{actor: w.Actor, event: w.Event})
	return nil
}
