// Package grid models the interactive schedule page: a table of courts by
// time slots, and the steps needed to reserve one cell of it.
package grid

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type CellStatus string

const (
	Open        CellStatus = "open"
	Booked      CellStatus = "booked"
	Unavailable CellStatus = "unavailable"
)

type Cell struct {
	Status CellStatus
	Label  string
}

type Row struct {
	Time  string
	Cells []Cell
}

// Grid is one rendering of the schedule. Courts[c-1] heads column c and
// Rows[i].Cells[c-1] is that court's cell in row i. A Grid describes a single
// date and is never reused after the page navigates.
type Grid struct {
	Courts []string
	Rows   []Row
}

const (
	ContainerSelector = "div.schedule-container"
	headerSelector    = "th.court-header"
	rowSelector       = "tr.time-slot"
)

// Parse reads a schedule container's HTML. The first cell of each time-slot
// row is its time label; the remaining cells line up with the court headers.
func Parse(html string) (*Grid, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse schedule: %w", err)
	}
	g := &Grid{}
	doc.Find(headerSelector).Each(func(_ int, s *goquery.Selection) {
		g.Courts = append(g.Courts, strings.TrimSpace(s.Text()))
	})
	doc.Find(rowSelector).Each(func(_ int, tr *goquery.Selection) {
		tds := tr.Find("td")
		if tds.Length() == 0 {
			return
		}
		row := Row{Time: strings.TrimSpace(tds.First().Text())}
		tds.Slice(1, goquery.ToEnd).Each(func(_ int, td *goquery.Selection) {
			label := strings.Join(strings.Fields(td.Text()), " ")
			row.Cells = append(row.Cells, Cell{Status: statusOf(label), Label: label})
		})
		g.Rows = append(g.Rows, row)
	})
	if len(g.Courts) == 0 && len(g.Rows) == 0 {
		return nil, fmt.Errorf("parse schedule: no court headers or time slots")
	}
	return g, nil
}

func statusOf(label string) CellStatus {
	switch {
	case strings.Contains(label, "Open"):
		return Open
	case strings.Contains(label, "Booked"), strings.Contains(label, "Reserved"):
		return Booked
	}
	return Unavailable
}

// CourtColumn returns the 1-based column of the first header containing name.
func (g *Grid) CourtColumn(name string) (int, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, false
	}
	for i, c := range g.Courts {
		if strings.Contains(c, name) {
			return i + 1, true
		}
	}
	return 0, false
}

// RowIndex returns the 0-based index of the row labelled exactly t.
func (g *Grid) RowIndex(t string) (int, bool) {
	t = strings.TrimSpace(t)
	for i, r := range g.Rows {
		if r.Time == t {
			return i, true
		}
	}
	return 0, false
}

// At returns the cell for a row index and 1-based court column. Rows that are
// short a cell report it as unavailable.
func (g *Grid) At(row, col int) Cell {
	if row < 0 || row >= len(g.Rows) || col < 1 {
		return Cell{Status: Unavailable}
	}
	cells := g.Rows[row].Cells
	if col > len(cells) {
		return Cell{Status: Unavailable}
	}
	return cells[col-1]
}

var durationLabels = map[float64]string{
	1:   "1 Hour",
	1.5: "90 Minutes",
	2:   "2 Hours",
}

// DurationLabel maps hours to the option text of the reservation dialog.
func DurationLabel(hours float64) (string, bool) {
	l, ok := durationLabels[hours]
	return l, ok
}

// SupportedDurations lists the hours DurationLabel accepts, ascending.
func SupportedDurations() []float64 {
	hs := make([]float64, 0, len(durationLabels))
	for h := range durationLabels {
		hs = append(hs, h)
	}
	sort.Float64s(hs)
	return hs
}

// DurationChoices renders SupportedDurations for error messages.
func DurationChoices() string {
	hs := SupportedDurations()
	parts := make([]string, len(hs))
	for i, h := range hs {
		parts[i] = strconv.FormatFloat(h, 'f', -1, 64)
	}
	return strings.Join(parts, ", ")
}
