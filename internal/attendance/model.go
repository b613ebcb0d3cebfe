package attendance

import (
	"strings"
	"time"
)

const (
	// DateLayout is the civil date format stored with every scan.
	DateLayout = "2006-01-02"
	// ClockLayout is the wall-clock time format stored with every scan.
	ClockLayout = "15:04:05"
)

// Kind classifies a scan event.
type Kind string

const (
	KindClockIn  Kind = "clock_in"
	KindClockOut Kind = "clock_out"
)

// Valid reports whether k is one of the two known scan kinds.
func (k Kind) Valid() bool {
	return k == KindClockIn || k == KindClockOut
}

// Label renders the kind for people, e.g. "Clock In".
func (k Kind) Label() string {
	switch k {
	case KindClockIn:
		return "Clock In"
	case KindClockOut:
		return "Clock Out"
	}
	return strings.TrimSpace(string(k))
}

// Person is a roster member who can scan a card.
type Person struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Group     string    `json:"group"`
	CardID    string    `json:"card_id"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ScanEvent is a single accepted scan. Date and Time are local wall-clock values.
type ScanEvent struct {
	ID        string    `json:"id"`
	PersonID  string    `json:"person_id"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Kind      Kind      `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// EventRow is a scan event joined with the owning person. Kind is kept as read
// from storage and may be empty or unknown for legacy rows.
type EventRow struct {
	EventID  string `json:"event_id"`
	PersonID string `json:"person_id"`
	Name     string `json:"name"`
	Group    string `json:"group"`
	Note     string `json:"note"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Kind     Kind   `json:"kind"`
}

// PersonFilter narrows ListPersons. Empty fields match everything.
type PersonFilter struct {
	Group string
	Name  string
}

// DayCount is the number of distinct persons that scanned on Date.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// PersonDays is the number of distinct days a person scanned.
type PersonDays struct {
	PersonID string `json:"person_id"`
	Name     string `json:"name"`
	Days     int    `json:"days"`
}

// Totals backs the dashboard counters.
type Totals struct {
	Persons      int `json:"persons"`
	ScannedToday int `json:"scanned_today"`
	Events       int `json:"events"`
}

// DateOf returns the civil date of t in t's location.
func DateOf(t time.Time) string {
	return t.Format(DateLayout)
}

// ClockOf returns the wall-clock time of t, truncated to the second.
func ClockOf(t time.Time) string {
	return t.Format(ClockLayout)
}

// NormalizeCard trims a scanned card identifier. Comparison is case-insensitive
// everywhere, so the original case is preserved for display.
func NormalizeCard(cardID string) string {
	return strings.TrimSpace(cardID)
}
