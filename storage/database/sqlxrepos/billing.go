package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core/billing"
)

type stripeEventStore struct {
	db *sqlx.DB
}

var _ billing.EventStore = (*stripeEventStore)(nil) // interface compliance check

func NewStripeEventStore(db *sqlx.DB) *stripeEventStore {
	return &stripeEventStore{db: db}
}

func (store stripeEventStore) WasProcessed(ctx context.Context, eventID string) (bool, error) {
	var n int
	query := "SELECT COUNT(*) FROM stripe_event WHERE id = $1"
	if err := store.db.GetContext(ctx, &n, query, eventID); err != nil {
		return false, errors.Wrap(err, "looking up stripe event")
	}
	return n > 0, nil
}

// MarkProcessed records the event id after its handler ran. ON CONFLICT keeps
// a concurrent redelivery from erroring out.
func (store stripeEventStore) MarkProcessed(ctx context.Context, eventID string) error {
	query := "INSERT INTO stripe_event (id, received_at) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING"
	_, err := store.db.ExecContext(ctx, query, eventID, time.Now().UTC())
	return errors.Wrap(err, "recording stripe event")
}
