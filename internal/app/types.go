package app

import (
	"fmt"
	"time"
)

// Ledger maps an event title to its date in YYYY-MM-DD form
type Ledger map[string]string

// Document is the whole backing JSON document, keyed by guild id
type Document map[string]Ledger

// Clone returns a copy of the ledger that can be mutated freely
func (l Ledger) Clone() Ledger {
	out := make(Ledger, len(l))
	for title, date := range l {
		out[title] = date
	}
	return out
}

// Countdown is a single rendered entry of a guild's D-day listing
type Countdown struct {
	Title string    `json:"title"`
	Date  time.Time `json:"-"`
	// Offset is days_left + 1: zero on the day itself, positive before it
	Offset int `json:"offset"`
}

// Label renders the offset as D-Day!, D-N or D+N
func (c Countdown) Label() string {
	switch {
	case c.Offset == 0:
		return "D-Day!"
	case c.Offset > 0:
		return fmt.Sprintf("D-%d", c.Offset)
	default:
		return fmt.Sprintf("D+%d", -c.Offset)
	}
}

// DayLabel is Label in the markdown form shown in listings
func (c Countdown) DayLabel() string {
	if c.Offset == 0 {
		return "**" + c.Label() + "** 🎉"
	}
	return "**" + c.Label() + "**"
}

// DisplayDate renders the event date as YYYY. MM. DD.
func (c Countdown) DisplayDate() string {
	return c.Date.Format(DisplayDateLayout)
}

// StoredDate renders the event date in its stored YYYY-MM-DD form
func (c Countdown) StoredDate() string {
	return c.Date.Format(StoredDateLayout)
}
