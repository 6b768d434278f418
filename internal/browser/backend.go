package browser

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/example/court-booker/internal/booking"
	"github.com/example/court-booker/internal/grid"
)

type BackendOptions struct {
	Timeout           time.Duration
	UsernameField     string
	PasswordField     string
	AuthSuccessMarker string
	LoginErrorMarkers []string
	Logger            *log.Logger
}

// Backend books through the schedule grid. Request.ResourceID names the
// court, StartSlot is the row's time label and Duration is in hours.
type Backend struct {
	browser   *Browser
	endpoints booking.Endpoints
	creds     booking.Credentials
	opts      BackendOptions
	log       *log.Logger
	authed    bool
}

func NewBackend(b *Browser, endpoints booking.Endpoints, creds booking.Credentials, opts BackendOptions) *Backend {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.UsernameField == "" {
		opts.UsernameField = "username"
	}
	if opts.PasswordField == "" {
		opts.PasswordField = "password"
	}
	if opts.AuthSuccessMarker == "" {
		opts.AuthSuccessMarker = "Reservations"
	}
	if opts.Logger == nil {
		opts.Logger = b.log
	}
	return &Backend{browser: b, endpoints: endpoints, creds: creds, opts: opts, log: opts.Logger}
}

// Authenticate fills the login form, waits for the post-login navigation link
// and follows it to the schedule.
func (be *Backend) Authenticate(ctx context.Context) error {
	if be.authed {
		return nil
	}
	b := be.browser
	tctx, cancel := context.WithTimeout(ctx, be.opts.Timeout)
	defer cancel()

	user := "#" + be.opts.UsernameField
	pass := "#" + be.opts.PasswordField
	err := b.run(tctx,
		chromedp.Navigate(be.endpoints.Auth),
		chromedp.WaitVisible(user, chromedp.ByQuery),
	)
	if err != nil {
		return &booking.AuthError{Reason: booking.AuthUnreachable, Err: err}
	}

	var state string
	err = b.run(tctx,
		chromedp.SendKeys(user, be.creds.Identifier, chromedp.ByQuery),
		chromedp.SendKeys(pass, be.creds.Secret, chromedp.ByQuery),
		chromedp.Click(`//button[normalize-space(text())="Log In"]`, chromedp.BySearch),
		chromedp.Poll(loginStateJS(be.opts.AuthSuccessMarker, be.opts.LoginErrorMarkers), &state),
	)
	switch {
	case err != nil:
		return &booking.AuthError{Reason: booking.AuthUnexpectedResponse, Detail: "no post-login page", Err: err}
	case state == "error":
		return &booking.AuthError{Reason: booking.InvalidCredentials, Detail: "login error shown"}
	}

	nctx, ncancel := context.WithTimeout(ctx, be.opts.Timeout)
	defer ncancel()
	err = b.run(nctx,
		chromedp.Click(linkXPath(be.opts.AuthSuccessMarker), chromedp.BySearch),
		chromedp.WaitVisible(grid.ContainerSelector, chromedp.ByQuery),
	)
	if err != nil {
		return &booking.AuthError{Reason: booking.AuthUnexpectedResponse, Detail: "schedule did not load", Err: err}
	}

	be.authed = true
	be.log.Printf("browser: authenticated as %s", be.creds.Identifier)
	return nil
}

func (be *Backend) Book(ctx context.Context, req booking.Request) error {
	if !be.authed {
		return &booking.SubmitError{Resource: req.ResourceID, Reason: booking.SessionExpired, Detail: "not logged in"}
	}
	t, err := targetFor(req, time.Local)
	if err != nil {
		return err
	}
	loc := &grid.Locator{Page: be.browser.Page(), Timeout: be.opts.Timeout, Logger: be.log}
	trace, err := loc.Book(ctx, t)
	be.log.Printf("browser: %s %s: %s", req.ResourceID, t.Time, trace)
	return err
}

func (be *Backend) Close() error { return be.browser.Close() }

// targetFor reads a grid target out of a booking request.
func targetFor(req booking.Request, loc *time.Location) (grid.Target, error) {
	day, err := time.ParseInLocation(booking.LayoutSubmit, req.Date, loc)
	if err != nil {
		return grid.Target{}, &booking.ConfigError{Invalid: []string{fmt.Sprintf("date %q", req.Date)}}
	}
	hours, err := strconv.ParseFloat(strings.TrimSpace(req.Duration), 64)
	if err != nil {
		return grid.Target{}, &booking.ConfigError{Invalid: []string{fmt.Sprintf("duration %q", req.Duration)}}
	}
	return grid.Target{Court: string(req.ResourceID), Time: req.StartSlot, Day: day, Hours: hours}, nil
}

func linkXPath(text string) string {
	return fmt.Sprintf(`//a[contains(text(),%s)]`, xpathLiteral(text))
}

// xpathLiteral quotes s for XPath 1.0, which has no escape sequences.
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	parts := strings.Split(s, `"`)
	for i, p := range parts {
		parts[i] = `"` + p + `"`
	}
	return "concat(" + strings.Join(parts, `, '"', `) + ")"
}

// loginStateJS evaluates to "ok" once the post-login link exists, "error" if
// a login error is shown, and "" while neither is on the page.
func loginStateJS(marker string, errorMarkers []string) string {
	errs := errorMarkers
	if errs == nil {
		errs = []string{}
	}
	return fmt.Sprintf(`(() => {
	const links = Array.from(document.querySelectorAll('a'));
	if (links.some(a => a.textContent.includes(%s))) return "ok";
	const text = document.body ? document.body.innerText : "";
	if (%s.some(m => text.includes(m))) return "error";
	return "";
})()`, quote(marker), quoteList(errs))
}

func quoteList(ss []string) string {
	parts := make([]string, len(ss))
	for i, s := range ss {
		parts[i] = quote(s)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
