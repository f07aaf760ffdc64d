package booking

import (
	"context"
	"time"
)

// Gateway is the entry contract to the external reservation interface. One
// gateway = one browser context; never shared across sessions. Close must
// be safe to call on every exit path and releases the underlying browser.
type Gateway interface {
	SignIn(ctx context.Context, creds Credentials) (AuthedSession, error)
	Close() error
}

// AuthedSession is the context produced by a successful sign-in. It is
// only valid for the gateway that produced it.
type AuthedSession interface {
	// Search drives the reservation-search surface for date, optionally
	// labelling the reservation, and returns once the results grid has
	// rendered. A missing label field is a soft failure surfaced as a
	// progress warning, not an error.
	Search(ctx context.Context, date time.Time, label string) (ResultsGrid, error)
}

// ResultsGrid is the context produced by a rendered search. Claims and the
// confirmation sequence both operate on it.
type ResultsGrid interface {
	// ClaimSlot clicks the grid cell for (court, unit). Returns
	// ErrSlotUnavailable when no matching available cell exists.
	ClaimSlot(ctx context.Context, court string, unit SlotUnit) error

	// Confirm drives one named step of the confirmation sequence.
	Confirm(ctx context.Context, step ConfirmStep) error
}
