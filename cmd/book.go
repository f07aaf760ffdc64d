package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/court-booker/internal/application/session"
	"github.com/example/court-booker/internal/config"
	"github.com/example/court-booker/internal/domain/booking"
	"github.com/example/court-booker/internal/infrastructure/activenet"
	"github.com/example/court-booker/internal/infrastructure/browser"
	"github.com/example/court-booker/internal/infrastructure/logging"
	"github.com/example/court-booker/internal/interfaces/tui"
)

func newBookCmd() *cobra.Command {
	var (
		email     string
		password  string
		court     string
		date      string
		start     string
		hours     int
		backup    string
		eventName string
		headful   bool
		plain     bool
	)

	c := &cobra.Command{
		Use:   "book",
		Short: "Run one booking session: sign in, search, claim, confirm",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if headful {
				cfg.Headless = false
			}
			if password == "" {
				password = os.Getenv("COURTBOOK_PASSWORD")
			}

			req, err := buildRequest(email, password, court, date, start, hours, backup, eventName)
			if err != nil {
				return err
			}

			run := func(rep booking.Reporter) booking.SessionOutcome {
				b, err := browser.Launch(browser.Options{
					Headless: cfg.Headless,
					Timeout:  cfg.WaitTimeout,
					Settle:   cfg.SettleDelay,
				})
				if err != nil {
					return booking.SessionOutcome{
						Status: booking.StatusNoSlotsClaimed,
						Stage:  booking.StageEstablish,
						Err:    err,
					}
				}
				gw := activenet.New(b, activenet.Config{BaseURL: cfg.BaseURL, GroupID: cfg.GroupID}, rep)
				return session.New(gw, rep, cfg.PartialPolicy).Run(context.Background(), req)
			}

			var out booking.SessionOutcome
			if plain {
				log, err := logging.New(cfg.Production)
				if err != nil {
					return err
				}
				defer func() { _ = log.Sync() }()
				out = run(logging.Reporter{Log: log})
			} else {
				out, err = tui.Run(run)
				if err != nil {
					return err
				}
			}

			printSummary(cmd, out)
			if out.Err != nil && !errors.Is(out.Err, booking.ErrAllSlotsUnavailable) {
				return out.Err
			}
			return nil
		},
	}

	c.Flags().StringVar(&email, "email", "", "account email")
	c.Flags().StringVar(&password, "password", "", "account password (or COURTBOOK_PASSWORD env)")
	c.Flags().StringVar(&court, "court", "", "court name, e.g. \"McFetridge Tennis Ct03\"")
	c.Flags().StringVar(&date, "date", "", "reservation date YYYY-MM-DD")
	c.Flags().StringVar(&start, "start", "07:00", "start time HH:MM (hour-granular)")
	c.Flags().IntVar(&hours, "hours", 1, "duration in hours")
	c.Flags().StringVar(&backup, "backup", "", "optional backup start time HH:MM")
	c.Flags().StringVar(&eventName, "event-name", "Tennis Practice", "reservation label")
	c.Flags().BoolVar(&headful, "headful", false, "show the browser window")
	c.Flags().BoolVar(&plain, "plain", false, "log progress instead of the live TUI")

	_ = c.MarkFlagRequired("email")
	_ = c.MarkFlagRequired("court")
	_ = c.MarkFlagRequired("date")
	return c
}

func buildRequest(email, password, court, date, start string, hours int, backup, eventName string) (booking.BookingRequest, error) {
	req := booking.BookingRequest{
		Credentials: booking.Credentials{Email: email, Password: password},
		Court:       court,
		EventName:   eventName,
	}

	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return req, fmt.Errorf("invalid --date (want YYYY-MM-DD)")
	}
	req.Date = d

	startHour, err := parseHour(start)
	if err != nil {
		return req, fmt.Errorf("invalid --start: %w", err)
	}
	req.Windows = []booking.TimeWindow{{StartHour: startHour, Hours: hours}}

	if backup != "" {
		backupHour, err := parseHour(backup)
		if err != nil {
			return req, fmt.Errorf("invalid --backup: %w", err)
		}
		req.Windows = append(req.Windows, booking.TimeWindow{StartHour: backupHour, Hours: hours})
	}

	if !activenet.KnownCourt(req.Court) {
		return req, fmt.Errorf("unknown court %q (known: %s)", req.Court, strings.Join(activenet.Courts, ", "))
	}
	for _, w := range req.Windows {
		if !activenet.BookableHour(w.StartHour) {
			return req, fmt.Errorf("%s is outside bookable hours (%s-%s)",
				activenet.HourLabel(w.StartHour), activenet.HourLabel(activenet.FirstHour), activenet.HourLabel(activenet.LastHour))
		}
	}
	return req, req.Validate()
}

// parseHour accepts HH:MM with MM=00; the grid is hour-granular.
func parseHour(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 || parts[1] != "00" {
		return 0, fmt.Errorf("want HH:00, got %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("bad hour in %q", s)
	}
	return h, nil
}

func printSummary(cmd *cobra.Command, out booking.SessionOutcome) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "outcome=%s stage=%s claimed=%d\n", out.Status, out.Stage, out.ClaimedCount())
	for _, c := range out.Claims {
		line := fmt.Sprintf("  %s window=%d state=%s", c.Unit, c.Window, c.State)
		if c.Detail != "" {
			line += " detail=" + c.Detail
		}
		fmt.Fprintln(w, line)
	}
	if out.FailedStep != "" {
		fmt.Fprintf(w, "stopped at confirmation step %q; finish manually from your cart\n", out.FailedStep)
	}
}
