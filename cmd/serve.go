package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/example/court-booker/internal/application/session"
	"github.com/example/court-booker/internal/config"
	"github.com/example/court-booker/internal/domain/booking"
	"github.com/example/court-booker/internal/infrastructure/activenet"
	"github.com/example/court-booker/internal/infrastructure/browser"
	"github.com/example/court-booker/internal/infrastructure/logging"
	"github.com/example/court-booker/internal/interfaces/web"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the booking form with a live progress stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.ValidateWeb(); err != nil {
				return err
			}
			log, err := logging.New(cfg.Production)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			runner := func(ctx context.Context, req booking.BookingRequest, rep booking.Reporter) booking.SessionOutcome {
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
				return session.New(gw, rep, cfg.PartialPolicy).Run(ctx, req)
			}

			sessions := web.NewSessionManager(cfg.Web.SessionHashKey, cfg.Web.SessionBlockKey)
			srv, err := web.New(cfg.Web.Addr, sessions, cfg.Web.AccessHash, runner, log)
			if err != nil {
				return err
			}
			return srv.ListenAndServe()
		},
	}
}
