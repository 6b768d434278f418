package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/publicsuffix"

	"github.com/example/court-booker/internal/booking"
)

const defaultUA = "Mozilla/5.0 (X11; Linux x86_64) court-booker/1.0"

type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateExpired
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateExpired:
		return "expired"
	case StateClosed:
		return "closed"
	}
	return "unauthenticated"
}

type Options struct {
	Timeout       time.Duration
	UsernameField string
	PasswordField string
	// AuthSuccessMarker is the text of a link only shown after login.
	AuthSuccessMarker string
	LoginErrorMarkers []string
	Classifier        ResponseClassifier
	UserAgent         string
	Logger            *log.Logger
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.UsernameField == "" {
		o.UsernameField = "username"
	}
	if o.PasswordField == "" {
		o.PasswordField = "password"
	}
	if o.AuthSuccessMarker == "" {
		o.AuthSuccessMarker = "Reservations"
	}
	if o.LoginErrorMarkers == nil {
		o.LoginErrorMarkers = []string{"Invalid username or password"}
	}
	if o.Classifier == nil {
		o.Classifier = DefaultClassifier()
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// Client owns one backend session: its cookie jar and its login state. It is
// not safe for concurrent use; a run that needs parallelism needs a second
// Client.
type Client struct {
	hc        *http.Client
	endpoints booking.Endpoints
	creds     booking.Credentials
	opts      Options
	log       *log.Logger
	state     State
}

// Confirmation is a booking the backend acknowledged.
type Confirmation struct {
	Resource booking.Resource
	Date     string
	Status   int
}

func New(endpoints booking.Endpoints, creds booking.Credentials, opts Options) (*Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	return &Client{
		hc:        &http.Client{Jar: jar, Timeout: opts.Timeout},
		endpoints: endpoints,
		creds:     creds,
		opts:      opts,
		log:       opts.Logger,
	}, nil
}

func (c *Client) State() State { return c.state }

// Authenticate primes the session cookie with a GET of the login page, then
// posts the credentials. A 200 alone is not success: the login page is
// redisplayed with a 200 on bad credentials, so the response must also carry
// the post-login marker.
func (c *Client) Authenticate(ctx context.Context) error {
	switch c.state {
	case StateAuthenticated:
		return nil
	case StateClosed:
		return &booking.AuthError{Reason: booking.AuthUnexpectedResponse, Detail: "session closed"}
	}

	res, body, err := c.do(ctx, http.MethodGet, c.endpoints.Auth, "", nil)
	if err != nil {
		return &booking.AuthError{Reason: booking.AuthUnreachable, Err: err}
	}
	if res.StatusCode >= 400 {
		return &booking.AuthError{Reason: booking.AuthUnexpectedResponse, Detail: fmt.Sprintf("login page http %d", res.StatusCode)}
	}

	action, form, err := loginForm(res.Request.URL, body)
	if err != nil {
		return &booking.AuthError{Reason: booking.AuthUnexpectedResponse, Err: err}
	}
	form.Set(c.opts.UsernameField, c.creds.Identifier)
	form.Set(c.opts.PasswordField, c.creds.Secret)

	res, body, err = c.do(ctx, http.MethodPost, action, "application/x-www-form-urlencoded", []byte(form.Encode()))
	if err != nil {
		return &booking.AuthError{Reason: booking.AuthUnreachable, Err: err}
	}
	if err := c.checkLogin(res.StatusCode, body); err != nil {
		return err
	}

	c.state = StateAuthenticated
	c.log.Printf("session: authenticated as %s", c.creds.Identifier)
	return nil
}

func (c *Client) checkLogin(status int, body []byte) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &booking.AuthError{Reason: booking.InvalidCredentials, Detail: fmt.Sprintf("http %d", status)}
	case status < 200 || status >= 300:
		return &booking.AuthError{Reason: booking.AuthUnexpectedResponse, Detail: fmt.Sprintf("http %d", status)}
	case containsAny(body, c.opts.LoginErrorMarkers):
		return &booking.AuthError{Reason: booking.InvalidCredentials, Detail: "login error shown"}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return &booking.AuthError{Reason: booking.AuthUnexpectedResponse, Err: err}
	}
	if hasLink(doc, c.opts.AuthSuccessMarker) {
		return nil
	}
	if doc.Find("input[type=password]").Length() > 0 {
		return &booking.AuthError{Reason: booking.InvalidCredentials, Detail: "login form redisplayed"}
	}
	return &booking.AuthError{Reason: booking.AuthUnexpectedResponse, Detail: fmt.Sprintf("no %q link after login", c.opts.AuthSuccessMarker)}
}

// Submit posts one booking request. Only a confirmation phrase in the body
// counts as success.
func (c *Client) Submit(ctx context.Context, req booking.Request) (*Confirmation, error) {
	if c.state != StateAuthenticated {
		return nil, &booking.SubmitError{Resource: req.ResourceID, Reason: booking.SessionExpired, Detail: "session " + c.state.String()}
	}

	res, body, err := c.do(ctx, http.MethodPost, c.endpoints.Booking, "application/x-www-form-urlencoded", []byte(req.Form().Encode()))
	if err != nil {
		return nil, &booking.SubmitError{Resource: req.ResourceID, Reason: booking.SubmitUnreachable, Err: err}
	}
	if c.redirectedToLogin(res) {
		c.state = StateExpired
		return nil, &booking.SubmitError{Resource: req.ResourceID, Reason: booking.SessionExpired, Detail: "redirected to login"}
	}

	switch v := c.opts.Classifier.Classify(res.StatusCode, body); v {
	case VerdictConfirmed:
		c.log.Printf("session: %s booked for %s", req.ResourceID, req.Date)
		return &Confirmation{Resource: req.ResourceID, Date: req.Date, Status: res.StatusCode}, nil
	case VerdictUnavailable:
		return nil, &booking.SubmitError{Resource: req.ResourceID, Reason: booking.SlotUnavailable, Detail: fmt.Sprintf("http %d", res.StatusCode)}
	case VerdictLoginRequired:
		c.state = StateExpired
		return nil, &booking.SubmitError{Resource: req.ResourceID, Reason: booking.SessionExpired, Detail: fmt.Sprintf("http %d", res.StatusCode)}
	default:
		return nil, &booking.SubmitError{Resource: req.ResourceID, Reason: booking.SubmitUnexpectedResponse, Detail: fmt.Sprintf("http %d, no confirmation marker", res.StatusCode)}
	}
}

// Book satisfies the orchestrator's backend contract.
func (c *Client) Book(ctx context.Context, req booking.Request) error {
	_, err := c.Submit(ctx, req)
	return err
}

// Close ends the session. The client cannot be reused afterwards.
func (c *Client) Close() error {
	c.state = StateClosed
	c.hc.Jar = nil
	c.hc.CloseIdleConnections()
	return nil
}

func (c *Client) redirectedToLogin(res *http.Response) bool {
	if res.Request == nil || res.Request.URL == nil {
		return false
	}
	auth, err := url.Parse(c.endpoints.Auth)
	if err != nil {
		return false
	}
	final := res.Request.URL
	return final.Host == auth.Host && final.Path == auth.Path && final.Path != ""
}

func (c *Client) do(ctx context.Context, method, rawURL, contentType string, body []byte) (*http.Response, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, rd)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("user-agent", c.opts.UserAgent)
	req.Header.Set("cache-control", "no-cache")
	if contentType != "" {
		req.Header.Set("content-type", contentType)
	}
	if origin := originOf(rawURL); origin != "" {
		req.Header.Set("origin", origin)
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return res, nil, err
	}
	return res, b, nil
}

// loginForm finds the form holding a password input and returns where it
// posts and its hidden fields (anti-forgery tokens and the like). With no
// such form the credentials go back to the page they came from.
func loginForm(page *url.URL, body []byte) (string, url.Values, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", nil, err
	}
	values := url.Values{}
	form := doc.Find("form").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Find("input[type=password]").Length() > 0
	}).First()
	if form.Length() == 0 {
		return page.String(), values, nil
	}

	form.Find("input[type=hidden]").Each(func(_ int, in *goquery.Selection) {
		name, ok := in.Attr("name")
		if !ok || name == "" {
			return
		}
		val, _ := in.Attr("value")
		values.Set(name, val)
	})

	action := strings.TrimSpace(form.AttrOr("action", ""))
	if action == "" {
		return page.String(), values, nil
	}
	u, err := page.Parse(action)
	if err != nil {
		return "", nil, fmt.Errorf("login form action %q: %w", action, err)
	}
	return u.String(), values, nil
}

func hasLink(doc *goquery.Document, text string) bool {
	return doc.Find("a").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.Text(), text)
	}).Length() > 0
}

func originOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
