package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/court-booker/internal/booking"
	"github.com/example/court-booker/internal/config"
	"github.com/example/court-booker/internal/orchestrator"
	"github.com/example/court-booker/internal/runlock"
	"github.com/example/court-booker/internal/scheduler"
)

func newBookCmd(opts *rootOpts) *cobra.Command {
	var noWait bool

	c := &cobra.Command{
		Use:   "book",
		Short: "Log in and book the first available court for the target date",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.v)
			if err != nil {
				return err
			}
			logger := opts.logger()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			loc, err := time.LoadLocation(cfg.Timezone)
			if err != nil {
				return err
			}
			now := func() time.Time { return time.Now().In(loc) }

			if !noWait {
				s := &scheduler.Scheduler{ReleaseTime: cfg.ReleaseTime, Location: loc, Logger: logger, Now: now}
				if err := s.Wait(ctx); err != nil {
					return err
				}
			}

			// One date for both the lock and the bookings, even across midnight.
			target := booking.ResolveDate(now(), cfg.DaysAhead, booking.LayoutSubmit)

			locker, err := runlock.Open(ctx, cfg.LockURL, cfg.LockTTL, logger)
			if err != nil {
				return err
			}
			defer locker.Close()
			lease, err := locker.Acquire(ctx, runlock.Key(cfg.Mode, cfg.Template.FacilityID, target))
			if err != nil {
				return err
			}
			defer func() {
				if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
					logger.Printf("book: release lock: %v", err)
				}
			}()

			be, err := newBackend(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer be.Close()

			o := &orchestrator.Orchestrator{
				Backend:   be,
				Mode:      cfg.Mode,
				Template:  cfg.Template,
				DaysAhead: cfg.DaysAhead,
				Logger:    logger,
				Now:       now,
			}
			rep := o.RunOn(ctx, target, cfg.Resources)
			fmt.Fprint(cmd.OutOrStdout(), rep.Summary())

			sendReport(ctx, cfg, rep, logger)

			if rep.Succeeded() {
				return nil
			}
			if rep.Err == nil {
				return errors.New(string(rep.Status))
			}
			return fmt.Errorf("%s: %w", rep.Status, rep.Err)
		},
	}

	c.Flags().BoolVar(&noWait, "now", false, "ignore RELEASE_TIME and start immediately")
	return c
}
