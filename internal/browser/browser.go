// Package browser drives the schedule site through a headless Chrome, for
// deployments where bookings are only possible from the interactive grid.
package browser

import (
	"context"
	"log"
	"time"

	"github.com/chromedp/chromedp"
)

type Options struct {
	Headless bool
	// ExecPath overrides the Chrome binary chromedp looks up on PATH.
	ExecPath string
	Timeout  time.Duration
	Logger   *log.Logger
}

// Browser owns one Chrome process and a single tab in it.
type Browser struct {
	tab    context.Context
	cancel func()
	log    *log.Logger
}

func Launch(ctx context.Context, opts Options) (*Browser, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	tab, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logger.Printf),
		chromedp.WithErrorf(logger.Printf),
	)

	// Start the browser now so a missing binary fails before login.
	if err := chromedp.Run(tab); err != nil {
		tabCancel()
		allocCancel()
		return nil, err
	}
	logger.Printf("browser: chrome started (headless=%t)", opts.Headless)

	return &Browser{
		tab: tab,
		cancel: func() {
			tabCancel()
			allocCancel()
		},
		log: logger,
	}, nil
}

func (b *Browser) Close() error {
	b.cancel()
	return nil
}

// run executes actions in the tab, bounded by ctx as well as the tab's own
// lifetime.
func (b *Browser) run(ctx context.Context, actions ...chromedp.Action) error {
	rctx, cancel := context.WithCancel(b.tab)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(rctx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
