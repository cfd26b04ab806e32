package inmemdb

import (
	"context"

	"github.com/trezcool/alama/core/billing"
)

type stripeEventStore struct {
	db *eventTable
}

var _ billing.EventStore = (*stripeEventStore)(nil)

func NewStripeEventStore(db *DB) billing.EventStore {
	return &stripeEventStore{db: db.event}
}

func (store *stripeEventStore) WasProcessed(_ context.Context, eventID string) (bool, error) {
	store.db.mutex.Lock()
	defer store.db.mutex.Unlock()

	_, ok := store.db.seen[eventID]
	return ok, nil
}

func (store *stripeEventStore) MarkProcessed(_ context.Context, eventID string) error {
	store.db.mutex.Lock()
	defer store.db.mutex.Unlock()

	store.db.seen[eventID] = struct{}{}
	return nil
}
