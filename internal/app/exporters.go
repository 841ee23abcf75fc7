package app

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Formats accepted by Export
const (
	FormatICS  = "ics"
	FormatCSV  = "csv"
	FormatJSON = "json"
)

var icsEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\r\n", `\n`, "\n", `\n`)

// ExportEntry is one event in a JSON export
type ExportEntry struct {
	Title string `json:"title"`
	Date  string `json:"date"`
	Label string `json:"label"`
}

// Export writes the guild's ledger in the given format
func Export(w io.Writer, format, guildID string, ledger Ledger, now time.Time) error {
	switch format {
	case FormatICS:
		return GenerateICS(w, guildID, ledger, false)
	case FormatCSV:
		return GenerateCSV(w, ledger)
	case FormatJSON:
		return GenerateJSON(w, guildID, ledger, now)
	default:
		return fmt.Errorf("invalid format %q", format)
	}
}

// EventUID returns a stable UID for a guild's event so calendar clients can track updates
func EventUID(guildID, title string) string {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte("dday-bot/"+guildID+"/"+title))
	return id.String() + "@dday-bot"
}

// GenerateICS writes the ledger as an iCalendar file of all-day events.
// A subscription feed adds METHOD:PUBLISH and a refresh interval.
func GenerateICS(w io.Writer, guildID string, ledger Ledger, subscription bool) error {
	ew := &errWriter{w: w}

	ew.line("BEGIN:VCALENDAR")
	ew.line("VERSION:2.0")
	ew.printf("PRODID:%s\r\n", ICSProductID)
	if subscription {
		ew.line("METHOD:PUBLISH")
	}
	ew.printf("X-WR-CALNAME:D-days %s\r\n", guildID)
	ew.line("CALSCALE:GREGORIAN")
	if subscription {
		ew.line("X-PUBLISHED-TTL:PT1H")
	}

	stamp := time.Now().UTC().Format("20060102T150405Z")
	for _, title := range SortedTitles(ledger) {
		eventDate, err := time.Parse(StoredDateLayout, ledger[title])
		if err != nil {
			continue
		}

		ew.line("BEGIN:VEVENT")
		ew.printf("UID:%s\r\n", EventUID(guildID, title))
		ew.printf("DTSTAMP:%s\r\n", stamp)
		ew.printf("DTSTART;VALUE=DATE:%s\r\n", eventDate.Format("20060102"))
		ew.printf("DTEND;VALUE=DATE:%s\r\n", eventDate.AddDate(0, 0, 1).Format("20060102"))
		ew.printf("SUMMARY:%s\r\n", icsEscaper.Replace(title))
		ew.line("END:VEVENT")
	}

	ew.line("END:VCALENDAR")
	return ew.err
}

// GenerateCSV writes the ledger as CSV ordered by date
func GenerateCSV(w io.Writer, ledger Ledger) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "title"}); err != nil {
		return err
	}
	for _, title := range SortedTitles(ledger) {
		if err := cw.Write([]string{ledger[title], title}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// GenerateJSON writes the ledger with countdown labels relative to now
func GenerateJSON(w io.Writer, guildID string, ledger Ledger, now time.Time) error {
	entries := []ExportEntry{}
	if countdowns, _, err := ListEvents(ledger, now); err == nil {
		for _, c := range countdowns {
			entries = append(entries, ExportEntry{
				Title: c.Title,
				Date:  c.StoredDate(),
				Label: c.Label(),
			})
		}
	}

	data := map[string]interface{}{
		"guild":  guildID,
		"events": entries,
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(data)
}

// errWriter keeps the first write error so ICS generation stays linear
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...interface{}) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

func (e *errWriter) line(s string) {
	e.printf("%s\r\n", s)
}
