// Package sessiontest runs an in-process imitation of the reservation site:
// a login page with an anti-forgery token, a dashboard, and the booking form
// endpoint.
package sessiontest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"

	"github.com/example/court-booker/internal/booking"
)

const (
	AuthPath    = "/security/showLogin"
	LoginPath   = "/security/login"
	BookingPath = "/yourcourts/reservation/newreservation"

	csrfToken   = "tok-4f2a"
	anonCookie  = "anon"
	authCookie  = "authed"
	cookieName  = "JSESSIONID"
	SuccessText = "Your reservation was successfully booked."
	TakenText   = "Sorry, that slot taken by another member."
)

var requiredFields = []string{"resource_id", "facility_id", "reservation_date", "start_slot_id", "reservation_type_id", "duration"}

type Backend struct {
	Username string
	Password string
	// Accept lists the resource ids the site will book. Everything else is
	// rejected as taken.
	Accept map[string]bool

	Server *httptest.Server

	mu          sync.Mutex
	submissions []url.Values
	logins      int
}

func New(username, password string, accept ...string) *Backend {
	b := &Backend{Username: username, Password: password, Accept: map[string]bool{}}
	for _, a := range accept {
		b.Accept[a] = true
	}
	mux := http.NewServeMux()
	mux.HandleFunc(AuthPath, b.handleLoginPage)
	mux.HandleFunc(LoginPath, b.handleLogin)
	mux.HandleFunc("/dashboard", b.handleDashboard)
	mux.HandleFunc(BookingPath, b.handleBooking)
	b.Server = httptest.NewServer(mux)
	return b
}

func (b *Backend) Close() { b.Server.Close() }

func (b *Backend) Endpoints() booking.Endpoints {
	return booking.Endpoints{Auth: b.Server.URL + AuthPath, Booking: b.Server.URL + BookingPath}
}

// Submissions returns the booking forms received, in order.
func (b *Backend) Submissions() []url.Values {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]url.Values, len(b.submissions))
	copy(out, b.submissions)
	return out
}

func (b *Backend) Logins() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.logins
}

func (b *Backend) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: cookieName, Value: anonCookie, Path: "/"})
	writeLoginForm(w, "")
}

func writeLoginForm(w http.ResponseWriter, flash string) {
	w.Header().Set("content-type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<html><body>
<div class="flash">%s</div>
<form method="post" action="%s">
  <input type="hidden" name="_csrf" value="%s">
  <input type="text" id="username" name="username">
  <input type="password" id="password" name="password">
  <button type="submit">Log In</button>
</form>
<a href="/help">Help</a>
</body></html>`, flash, LoginPath, csrfToken)
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	b.mu.Lock()
	b.logins++
	b.mu.Unlock()

	c, err := r.Cookie(cookieName)
	if err != nil || c.Value != anonCookie || r.FormValue("_csrf") != csrfToken {
		http.Error(w, "forbidden: missing session token", http.StatusForbidden)
		return
	}
	if r.FormValue("username") != b.Username || r.FormValue("password") != b.Password {
		writeLoginForm(w, "Invalid username or password")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: cookieName, Value: authCookie, Path: "/"})
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func authed(r *http.Request) bool {
	c, err := r.Cookie(cookieName)
	return err == nil && c.Value == authCookie
}

func (b *Backend) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if !authed(r) {
		http.Redirect(w, r, AuthPath, http.StatusFound)
		return
	}
	fmt.Fprint(w, `<html><body><nav><a href="/reservations">Reservations</a></nav></body></html>`)
}

func (b *Backend) handleBooking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !authed(r) {
		http.Redirect(w, r, AuthPath, http.StatusFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	b.mu.Lock()
	b.submissions = append(b.submissions, r.PostForm)
	b.mu.Unlock()

	for _, f := range requiredFields {
		if r.PostForm.Get(f) == "" {
			http.Error(w, "Bad request: "+f, http.StatusBadRequest)
			return
		}
	}
	if b.Accept[r.PostForm.Get("resource_id")] {
		fmt.Fprintf(w, `<div class="alert alert-success">%s</div>`, SuccessText)
		return
	}
	fmt.Fprintf(w, `<div class="alert alert-danger">%s</div>`, TakenText)
}
