package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"

	"github.com/example/court-booker/internal/grid"
)

const (
	dateDisplaySelector = "div.date-display, h2.current-date, span.schedule-date"
	dateInputSelector   = `input[type="date"]`
	durationSelector    = `select[id*="duration"]`
	reserveButtonXPath  = `//button[normalize-space(text())="Reserve"]`
	markAttr            = "data-courtbook-mark"
)

// confirmationPhrases are page texts that mean the reservation went through.
var confirmationPhrases = []string{"successfully booked", "Good Job"}

// Page implements grid.Page on the browser's tab.
type Page struct {
	b *Browser
}

func (b *Browser) Page() *Page { return &Page{b: b} }

func (p *Page) DisplayedDate(ctx context.Context) (string, error) {
	var s string
	err := p.b.run(ctx, chromedp.Text(dateDisplaySelector, &s, chromedp.ByQuery))
	return s, err
}

func (p *Page) Mark(ctx context.Context) (string, error) {
	mark := uuid.NewString()
	var ok bool
	if err := p.b.run(ctx, chromedp.Evaluate(markJS(mark), &ok)); err != nil {
		return "", err
	}
	if !ok {
		return "", errors.New("no schedule grid on page")
	}
	return mark, nil
}

func (p *Page) SetDate(ctx context.Context, value string) error {
	var ok bool
	if err := p.b.run(ctx, chromedp.Evaluate(setDateJS(value), &ok)); err != nil {
		return err
	}
	if !ok {
		return errors.New("no date input on page")
	}
	return nil
}

func (p *Page) WaitStale(ctx context.Context, mark string) error {
	var gone bool
	return p.b.run(ctx, chromedp.Poll(staleJS(mark), &gone))
}

func (p *Page) WaitGrid(ctx context.Context) error {
	return p.b.run(ctx, chromedp.WaitVisible(grid.ContainerSelector, chromedp.ByQuery))
}

func (p *Page) Grid(ctx context.Context) (*grid.Grid, error) {
	var html string
	if err := p.b.run(ctx, chromedp.OuterHTML(grid.ContainerSelector, &html, chromedp.ByQuery)); err != nil {
		return nil, err
	}
	return grid.Parse(html)
}

func (p *Page) OpenCell(ctx context.Context, row, col int) error {
	return p.b.run(ctx,
		chromedp.Click(cellXPath(row, col), chromedp.BySearch),
		chromedp.WaitVisible(durationSelector, chromedp.ByQuery),
	)
}

func (p *Page) SelectDuration(ctx context.Context, label string) error {
	var ok bool
	if err := p.b.run(ctx, chromedp.Evaluate(selectOptionJS(durationSelector, label), &ok)); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("duration option %q not offered", label)
	}
	return nil
}

func (p *Page) Confirm(ctx context.Context) error {
	return p.b.run(ctx, chromedp.Click(reserveButtonXPath, chromedp.BySearch))
}

func (p *Page) WaitConfirmation(ctx context.Context) error {
	var ok bool
	return p.b.run(ctx, chromedp.Poll(confirmedJS(), &ok))
}

// cellXPath addresses a court cell; td[1] of each row is its time label, so
// court column c is td[c+1].
func cellXPath(row, col int) string {
	return fmt.Sprintf(`(//tr[contains(@class,"time-slot")])[%d]/td[%d]`, row+1, col+1)
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func markedSelector(mark string) string {
	return fmt.Sprintf(`%s[%s=%s]`, grid.ContainerSelector, markAttr, quote(mark))
}

func markJS(mark string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return false;
	el.setAttribute(%s, %s);
	return true;
})()`, quote(grid.ContainerSelector), quote(markAttr), quote(mark))
}

func staleJS(mark string) string {
	return fmt.Sprintf(`document.querySelector(%s) === null`, quote(markedSelector(mark)))
}

func setDateJS(value string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return false;
	el.value = %s;
	el.dispatchEvent(new Event('change', {bubbles: true}));
	return true;
})()`, quote(dateInputSelector), quote(value))
}

func selectOptionJS(selector, label string) string {
	return fmt.Sprintf(`(() => {
	const s = document.querySelector(%s);
	if (!s) return false;
	const o = Array.from(s.options).find(o => o.text.trim() === %s);
	if (!o) return false;
	s.value = o.value;
	s.dispatchEvent(new Event('change', {bubbles: true}));
	return true;
})()`, quote(selector), quote(label))
}

func confirmedJS() string {
	phrases, _ := json.Marshal(confirmationPhrases)
	return fmt.Sprintf(`!!document.querySelector('div.alert-success') ||
	%s.some(p => document.body && document.body.innerText.includes(p))`, phrases)
}
