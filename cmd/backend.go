package cmd

import (
	"context"
	"log"

	"github.com/example/court-booker/internal/booking"
	"github.com/example/court-booker/internal/browser"
	"github.com/example/court-booker/internal/config"
	"github.com/example/court-booker/internal/orchestrator"
	"github.com/example/court-booker/internal/session"
)

type backend interface {
	orchestrator.Backend
	Close() error
}

// newBackend builds the site client for the configured mode. Each call owns
// a fresh session.
func newBackend(ctx context.Context, cfg config.Config, logger *log.Logger) (backend, error) {
	if cfg.Mode == booking.ModeGrid {
		b, err := browser.Launch(ctx, browser.Options{
			Headless: cfg.Headless,
			ExecPath: cfg.ChromePath,
			Timeout:  cfg.Timeout,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		return browser.NewBackend(b, cfg.Endpoints, cfg.Credentials, browser.BackendOptions{
			Timeout:           cfg.Timeout,
			UsernameField:     cfg.UsernameField,
			PasswordField:     cfg.PasswordField,
			AuthSuccessMarker: cfg.AuthSuccessMarker,
			LoginErrorMarkers: cfg.LoginErrorMarkers,
			Logger:            logger,
		}), nil
	}

	c, err := session.New(cfg.Endpoints, cfg.Credentials, session.Options{
		Timeout:           cfg.Timeout,
		UsernameField:     cfg.UsernameField,
		PasswordField:     cfg.PasswordField,
		AuthSuccessMarker: cfg.AuthSuccessMarker,
		LoginErrorMarkers: cfg.LoginErrorMarkers,
		Classifier: session.MarkerClassifier{
			Success:       cfg.SuccessMarkers,
			Unavailable:   cfg.UnavailableMarkers,
			LoginRequired: session.DefaultLoginMarkers,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}
