// Package session orchestrates one automation run: establish, search,
// acquire, confirm, in strict order, against a booking.Gateway.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/court-booker/internal/domain/booking"
)

// Session owns one BookingRequest for its lifetime and exclusively produces
// the SessionOutcome and the ProgressEvent stream. The gateway is released
// exactly once, on every exit path.
type Session struct {
	Gateway  booking.Gateway
	Reporter booking.Reporter
	Policy   booking.PartialPolicy
}

func New(gw booking.Gateway, rep booking.Reporter, policy booking.PartialPolicy) *Session {
	if rep == nil {
		rep = booking.NopReporter
	}
	if policy == "" {
		policy = booking.PartialKeep
	}
	return &Session{Gateway: gw, Reporter: rep, Policy: policy}
}

// Run drives the four stages against the gateway. It never panics and never
// leaks the gateway: unanticipated faults come back as CriticalError in the
// outcome, and Close is called before returning regardless of where the run
// stopped.
func (s *Session) Run(ctx context.Context, req booking.BookingRequest) (out booking.SessionOutcome) {
	out = booking.SessionOutcome{Status: booking.StatusNoSlotsClaimed, Stage: booking.StageEstablish}

	defer func() {
		if err := s.Gateway.Close(); err != nil {
			s.report(out.Stage, booking.SeverityWarning, fmt.Sprintf("browser release failed: %v", err))
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			out.Err = &booking.CriticalError{Stage: out.Stage, Err: fmt.Errorf("%v", r)}
			s.report(out.Stage, booking.SeverityError, out.Err.Error())
		}
	}()

	if err := req.Validate(); err != nil {
		out.Err = fmt.Errorf("invalid booking request: %w", err)
		s.report(out.Stage, booking.SeverityError, out.Err.Error())
		return out
	}

	// Stage 1: establish.
	s.report(booking.StageEstablish, booking.SeverityInfo, "signing in")
	authed, err := s.Gateway.SignIn(ctx, req.Credentials)
	if err != nil {
		out.Err = &booking.AuthError{Reason: "sign-in did not complete", Err: err}
		s.report(booking.StageEstablish, booking.SeverityError, out.Err.Error())
		return out
	}
	s.report(booking.StageEstablish, booking.SeveritySuccess, "signed in")

	// Stage 2: search.
	out.Stage = booking.StageSearch
	s.report(booking.StageSearch, booking.SeverityInfo,
		fmt.Sprintf("searching %s for %s", req.Date.Format("2006-01-02"), req.Court))
	grid, err := authed.Search(ctx, req.Date, req.EventName)
	if err != nil {
		out.Err = &booking.SearchError{Reason: "results grid did not render", Err: err}
		s.report(booking.StageSearch, booking.SeverityError, out.Err.Error())
		return out
	}
	s.report(booking.StageSearch, booking.SeveritySuccess, "results grid rendered")

	// Stage 3: acquire.
	out.Stage = booking.StageAcquire
	claims, confirmable, full := s.acquire(ctx, grid, req)
	out.Claims = claims
	if out.ClaimedCount() == 0 {
		out.Err = booking.ErrAllSlotsUnavailable
		s.report(booking.StageAcquire, booking.SeverityWarning, out.Err.Error())
		return out
	}
	if full {
		out.Status = booking.StatusFullyClaimed
	} else {
		out.Status = booking.StatusPartiallyClaimed
	}
	if !confirmable {
		// PartialAbandon with no fully claimed window: claims are held in
		// the cart but the sequence is not driven further.
		s.report(booking.StageAcquire, booking.SeverityWarning,
			"no window fully claimed; leaving partial claims unconfirmed")
		return out
	}

	// Stage 4: confirm.
	out.Stage = booking.StageConfirm
	for _, step := range booking.ConfirmSteps() {
		s.report(booking.StageConfirm, booking.SeverityInfo, fmt.Sprintf("running step %q", step))
		if err := grid.Confirm(ctx, step); err != nil {
			out.Status = booking.StatusClaimedNotConfirmed
			out.FailedStep = step
			out.Err = &booking.ConfirmationStepError{Step: step, Err: err}
			s.report(booking.StageConfirm, booking.SeverityError,
				fmt.Sprintf("step %q failed; resume manually from there: %v", step, err))
			return out
		}
	}
	out.Status = booking.StatusCompleted
	s.report(booking.StageConfirm, booking.SeveritySuccess, "reservation completed")
	return out
}

// acquire walks the alternative windows in order, attempting every
// hour-unit of each visited window and recording a terminal claim for each
// attempt. It stops visiting once a window satisfies the partial policy:
// any claimed hour under PartialKeep, the full contiguous run under
// PartialAbandon. Returns the claims, whether the session may proceed to
// confirmation, and whether the winning window was fully claimed.
func (s *Session) acquire(ctx context.Context, grid booking.ResultsGrid, req booking.BookingRequest) ([]booking.SlotClaim, bool, bool) {
	var claims []booking.SlotClaim
	plans := booking.ExpandWindows(req)

	for wi, units := range plans {
		won := 0
		for _, u := range units {
			c := booking.SlotClaim{Unit: u, Window: wi, State: booking.ClaimPending}
			switch err := grid.ClaimSlot(ctx, req.Court, u); {
			case err == nil:
				c.State = booking.ClaimClaimed
				won++
				s.report(booking.StageAcquire, booking.SeveritySuccess,
					fmt.Sprintf("claimed %s on %s", u, req.Court))
			case isUnavailable(err):
				c.State = booking.ClaimUnavailable
				s.report(booking.StageAcquire, booking.SeverityWarning,
					fmt.Sprintf("%s not available on %s", u, req.Court))
			default:
				c.State = booking.ClaimError
				c.Detail = err.Error()
				s.report(booking.StageAcquire, booking.SeverityError,
					fmt.Sprintf("claim of %s failed: %v", u, err))
			}
			claims = append(claims, c)
		}

		if won == len(units) {
			return claims, true, true
		}
		if won > 0 && s.Policy == booking.PartialKeep {
			return claims, true, false
		}
		if wi < len(plans)-1 {
			s.report(booking.StageAcquire, booking.SeverityInfo, "trying backup window")
		}
	}
	return claims, false, false
}

func isUnavailable(err error) bool {
	return errors.Is(err, booking.ErrSlotUnavailable)
}

func (s *Session) report(stage booking.Stage, sev booking.Severity, msg string) {
	s.Reporter.Report(booking.ProgressEvent{
		At:       time.Now(),
		Stage:    stage,
		Severity: sev,
		Message:  msg,
	})
}
