// Package activenet drives the ActiveNet reservation site through a
// browser, implementing the booking gateway contracts. The site offers no
// API; every operation probes rendered state via bounded waits.
package activenet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"

	"github.com/example/court-booker/internal/domain/booking"
	"github.com/example/court-booker/internal/infrastructure/browser"
)

const (
	DefaultBaseURL = "https://anc.apm.activecommunities.com/chicagoparkdistrict"
	DefaultGroupID = 2
)

type Config struct {
	BaseURL string
	GroupID int
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.GroupID == 0 {
		c.GroupID = DefaultGroupID
	}
	return c
}

// surface is the slice of browser behavior the driver drives, split out so
// its decision logic can be exercised against a fake page.
type surface interface {
	Navigate(ctx context.Context, url string) error
	URL() string
	WaitFor(ctx context.Context, cond func() bool) bool
	Settle()
	Find(loc browser.Locator) (*rod.Element, error)
	WaitFind(ctx context.Context, loc browser.Locator) (*rod.Element, error)
	Fill(el *rod.Element, value string) error
	Click(el *rod.Element) error
	SetValue(el *rod.Element, value string) error
	Close() error
}

var _ surface = (*browser.Browser)(nil)

// Driver is one browser-backed gateway. Not safe for concurrent sessions;
// acquire a fresh one per run.
type Driver struct {
	b   surface
	cfg Config
	rep booking.Reporter
}

var _ booking.Gateway = (*Driver)(nil)

func New(b *browser.Browser, cfg Config, rep booking.Reporter) *Driver {
	if rep == nil {
		rep = booking.NopReporter
	}
	return &Driver{b: b, cfg: cfg.withDefaults(), rep: rep}
}

func (d *Driver) Close() error { return d.b.Close() }

var (
	emailInput = browser.Target("email input",
		browser.CSS("placeholder attribute", `input[placeholder="Enter your Email address"]`),
		browser.CSS("email type", `input[type="email"]`),
	)
	passwordInput = browser.Target("password input",
		browser.CSS("password type", `input[type="password"]`),
	)
	signInButton = browser.Target("sign-in button",
		browser.ByText("button text", "button", "Sign In"),
	)
	signedInMarker = browser.Target("signed-in marker",
		browser.ByText("sign-out link", "a, button", "Sign Out"),
	)
	eventNameInput = browser.Target("event name input",
		browser.CSS("aria-label", `input[aria-label="Event name"]`),
	)
	dateInput = browser.Target("date input",
		browser.CSS("aria-label", `input[aria-label*="Date picker"]`),
	)
	searchButton = browser.Target("search button",
		browser.ByText("button text", "button", "Search"),
		browser.CSS("button id", "#searchButton"),
		browser.CSS("structural class", ".btn-super"),
	)
	resultsArea = browser.Target("results area",
		browser.CSS("grid role", `[role="grid"]`),
		browser.CSS("results table", "table"),
	)
	resultsCells = browser.Target("result cells",
		browser.CSS("labelled cells", "td[aria-label]"),
	)
	cartDialogButton = browser.Target("add-to-cart confirmation",
		browser.ByText("button text", "button", "Add to Cart|Continue"),
	)
)

func (d *Driver) SignIn(ctx context.Context, creds booking.Credentials) (booking.AuthedSession, error) {
	signinURL := d.cfg.BaseURL + "/signin"
	if err := d.b.Navigate(ctx, signinURL); err != nil {
		return nil, err
	}

	email, err := d.b.WaitFind(ctx, emailInput)
	if err != nil {
		return nil, err
	}
	if err := d.b.Fill(email, creds.Email); err != nil {
		return nil, fmt.Errorf("fill email: %w", err)
	}

	password, err := d.b.Find(passwordInput)
	if err != nil {
		return nil, err
	}
	if err := d.b.Fill(password, creds.Password); err != nil {
		return nil, fmt.Errorf("fill password: %w", err)
	}

	btn, err := d.b.Find(signInButton)
	if err != nil {
		return nil, err
	}
	before := d.b.URL()
	if err := d.b.Click(btn); err != nil {
		return nil, fmt.Errorf("click sign-in: %w", err)
	}

	// Post-login indicators, raced inside one bounded wait: a URL change or
	// the signed-in marker, whichever renders first. Never a bare fixed
	// sleep.
	ok := d.b.WaitFor(ctx, func() bool {
		if d.b.URL() != before {
			return true
		}
		_, err := d.b.Find(signedInMarker)
		return err == nil
	})
	if !ok {
		return nil, fmt.Errorf("no post-login indicator observed")
	}
	return &authedSession{d: d}, nil
}

type authedSession struct{ d *Driver }

func (s *authedSession) Search(ctx context.Context, date time.Time, label string) (booking.ResultsGrid, error) {
	d := s.d
	quickURL := fmt.Sprintf("%s/reservation/landing/quick?groupId=%d", d.cfg.BaseURL, d.cfg.GroupID)
	if err := d.b.Navigate(ctx, quickURL); err != nil {
		return nil, err
	}

	if label != "" {
		// The label is cosmetic: a missing field is logged, not fatal.
		if el, err := d.b.Find(eventNameInput); err == nil {
			if err := d.b.Fill(el, label); err != nil {
				return nil, fmt.Errorf("fill event name: %w", err)
			}
		} else {
			d.rep.Report(booking.ProgressEvent{
				At:       time.Now(),
				Stage:    booking.StageSearch,
				Severity: booking.SeverityWarning,
				Message:  fmt.Sprintf("event name field not found, leaving label unset: %v", err),
			})
		}
	}

	dateEl, err := d.b.WaitFind(ctx, dateInput)
	if err != nil {
		return nil, err
	}
	// The widget has inputmode=none and ignores keystrokes; force the value.
	if err := d.b.SetValue(dateEl, date.Format(dateFormat)); err != nil {
		return nil, fmt.Errorf("set date: %w", err)
	}

	btn, err := d.b.WaitFind(ctx, searchButton)
	if err != nil {
		return nil, err
	}
	if err := d.b.Click(btn); err != nil {
		return nil, fmt.Errorf("click search: %w", err)
	}

	// The grid region itself must render; a search click that silently
	// misfired is a search failure, not an empty day.
	if _, err := d.b.WaitFind(ctx, resultsArea); err != nil {
		return nil, err
	}
	// An empty day renders the region with no labelled cells; absence here
	// is not structural. Claims then report unavailability.
	if _, err := d.b.Find(resultsCells); err != nil {
		var nf *browser.NotFoundError
		if !errors.As(err, &nf) {
			return nil, err
		}
		d.b.Settle()
	}
	return &resultsGrid{d: d}, nil
}

type resultsGrid struct{ d *Driver }

func (g *resultsGrid) ClaimSlot(ctx context.Context, court string, unit booking.SlotUnit) error {
	d := g.d
	cell := browser.Target(
		fmt.Sprintf("grid cell %s %s", court, HourLabel(unit.Hour)),
		browser.XPath("aria-label substrings", fmt.Sprintf(
			`//td[contains(@aria-label, %q) and contains(@aria-label, %q)]`,
			court, HourLabel(unit.Hour))),
	)

	el, err := d.b.Find(cell)
	if err != nil {
		var nf *browser.NotFoundError
		if errors.As(err, &nf) {
			return fmt.Errorf("%w: %v", booking.ErrSlotUnavailable, err)
		}
		return err
	}
	if err := d.b.Click(el); err != nil {
		return fmt.Errorf("click cell: %w", err)
	}
	d.b.Settle()

	// Some layouts commit the claim on the click alone; the micro
	// confirmation dialog is dismissed only if it showed up.
	if dialog, err := d.b.Find(cartDialogButton); err == nil {
		if err := d.b.Click(dialog); err != nil {
			return fmt.Errorf("dismiss add-to-cart dialog: %w", err)
		}
		d.b.Settle()
	}
	return nil
}

var stepLocators = map[booking.ConfirmStep]browser.Locator{
	booking.StepConfirmBookings: browser.Target("confirm bookings button",
		browser.ByText("button text", "button", "Confirm")),
	booking.StepReserve: browser.Target("reserve button",
		browser.ByText("button text", "button", "Reserve")),
	booking.StepCheckout: browser.Target("checkout button",
		browser.ByText("button text", "button", "Check ?out")),
	booking.StepPay: browser.Target("pay button",
		browser.ByText("button text", "button", "Pay")),
}

func (g *resultsGrid) Confirm(ctx context.Context, step booking.ConfirmStep) error {
	loc, ok := stepLocators[step]
	if !ok {
		return fmt.Errorf("unknown confirmation step %q", step)
	}
	el, err := g.d.b.WaitFind(ctx, loc)
	if err != nil {
		return err
	}
	if err := g.d.b.Click(el); err != nil {
		return err
	}
	// Page transitions after these clicks carry no stable marker.
	g.d.b.Settle()
	return nil
}
