package booking

import (
	"fmt"
	"time"
)

// Credentials for the reservation site. Held in memory for the duration of
// one session and never persisted.
type Credentials struct {
	Email    string
	Password string
}

// TimeWindow is a user-requested contiguous span of hour-units on the
// request date. StartHour is in the site's local time, 24h clock.
type TimeWindow struct {
	StartHour int
	Hours     int
}

// MaxWindows bounds the preferred+backup alternatives per request.
const MaxWindows = 4

// BookingRequest is the immutable input for one automation session.
type BookingRequest struct {
	Credentials Credentials
	Court       string
	Date        time.Time

	// Windows are tried strictly in order: earlier entries win.
	Windows []TimeWindow

	// EventName is a cosmetic label for the reservation; may be empty.
	EventName string
}

func (r BookingRequest) Validate() error {
	if r.Credentials.Email == "" || r.Credentials.Password == "" {
		return fmt.Errorf("credentials required")
	}
	if r.Court == "" {
		return fmt.Errorf("court required")
	}
	if r.Date.IsZero() {
		return fmt.Errorf("date required")
	}
	if len(r.Windows) == 0 {
		return fmt.Errorf("at least one time window required")
	}
	if len(r.Windows) > MaxWindows {
		return fmt.Errorf("at most %d time windows allowed", MaxWindows)
	}
	for _, w := range r.Windows {
		if err := w.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (w TimeWindow) Validate() error {
	if w.StartHour < 0 || w.StartHour > 23 {
		return fmt.Errorf("start hour must be 0-23, got %d", w.StartHour)
	}
	if w.Hours < 1 {
		return fmt.Errorf("duration must be at least one hour")
	}
	if w.StartHour+w.Hours > 24 {
		return fmt.Errorf("window %d:00+%dh runs past midnight", w.StartHour, w.Hours)
	}
	return nil
}

// SlotUnit identifies one hour-long bookable unit: (date, hour). The court
// comes from the enclosing request.
type SlotUnit struct {
	Date time.Time
	Hour int
}

func (u SlotUnit) String() string {
	return fmt.Sprintf("%s %02d:00", u.Date.Format("2006-01-02"), u.Hour)
}

// ClaimState is the terminal state of one unit-claim attempt.
type ClaimState string

const (
	ClaimPending     ClaimState = "pending"
	ClaimClaimed     ClaimState = "claimed"
	ClaimUnavailable ClaimState = "unavailable"
	ClaimError       ClaimState = "error"
)

// SlotClaim records one hour-unit claim attempt.
type SlotClaim struct {
	Unit   SlotUnit
	Window int // index into BookingRequest.Windows
	State  ClaimState
	Detail string // populated for ClaimError
}

// Stage names the workflow stage a session is in (or stopped at).
type Stage string

const (
	StageEstablish Stage = "establish"
	StageSearch    Stage = "search"
	StageAcquire   Stage = "acquire"
	StageConfirm   Stage = "confirm"
)

// Status is the aggregate result of a session.
type Status string

const (
	StatusNoSlotsClaimed      Status = "no_slots_claimed"
	StatusPartiallyClaimed    Status = "partially_claimed"
	StatusFullyClaimed        Status = "fully_claimed"
	StatusClaimedNotConfirmed Status = "claimed_not_confirmed"
	StatusCompleted           Status = "completed"
)

// ConfirmStep is one named action in the confirmation sequence.
type ConfirmStep string

const (
	StepConfirmBookings ConfirmStep = "confirm-bookings"
	StepReserve         ConfirmStep = "reserve"
	StepCheckout        ConfirmStep = "checkout"
	StepPay             ConfirmStep = "pay"
)

// ConfirmSteps returns the canonical confirmation sequence, strictly
// ordered. Callers must not reorder or skip steps.
func ConfirmSteps() []ConfirmStep {
	return []ConfirmStep{StepConfirmBookings, StepReserve, StepCheckout, StepPay}
}

// PartialPolicy decides what to do with a window whose contiguous run could
// only be partially claimed.
type PartialPolicy string

const (
	// PartialKeep proceeds to confirmation with whatever hours were claimed.
	PartialKeep PartialPolicy = "keep"
	// PartialAbandon moves on to the next alternative window; only a fully
	// claimed window proceeds to confirmation. Claims already made are not
	// rolled back (the site keeps them in the cart).
	PartialAbandon PartialPolicy = "abandon"
)

func ParsePartialPolicy(s string) (PartialPolicy, error) {
	switch PartialPolicy(s) {
	case PartialKeep, PartialAbandon:
		return PartialPolicy(s), nil
	case "":
		return PartialKeep, nil
	}
	return "", fmt.Errorf("unknown partial policy %q (want keep or abandon)", s)
}

// SessionOutcome is the single final result of a session.
type SessionOutcome struct {
	Claims []SlotClaim
	Status Status
	Stage  Stage

	// FailedStep names the confirmation step the session stopped at, if any,
	// so the user can resume manually from a known point.
	FailedStep ConfirmStep

	Err error
}

// ClaimedCount reports how many claims reached ClaimClaimed.
func (o SessionOutcome) ClaimedCount() int {
	n := 0
	for _, c := range o.Claims {
		if c.State == ClaimClaimed {
			n++
		}
	}
	return n
}
