package report

import (
	"io"
	"sort"

	"github.com/sirupsen/logrus"

	"schoolattend/internal/attendance"
	"schoolattend/internal/roster"
)

// RecentLimit is the size of the rolling activity feed.
const RecentLimit = 5

// Aggregator groups scan rows per person and day. Rows with a malformed kind are
// logged and skipped.
type Aggregator struct {
	log *logrus.Entry
}

// NewAggregator creates an aggregator logging through log, or nowhere if nil.
func NewAggregator(log *logrus.Logger) *Aggregator {
	if log == nil {
		log = logrus.New()
		log.Out = io.Discard
	}
	return &Aggregator{log: log.WithFields(logrus.Fields{"module": "report", "scope": "aggregator"})}
}

func (a *Aggregator) valid(row attendance.EventRow) bool {
	if row.Kind.Valid() {
		return true
	}
	a.log.WithFields(logrus.Fields{"event": row.EventID, "person": row.PersonID, "kind": row.Kind}).
		Warn("skipping scan with unknown kind")
	return false
}

// LiveEntry is one person's latest state on a day.
type LiveEntry struct {
	PersonID string          `json:"person_id"`
	Name     string          `json:"name"`
	Group    string          `json:"group"`
	Kind     attendance.Kind `json:"kind"`
	Status   string          `json:"status"`
	Time     string          `json:"time"`
}

// LiveView partitions one day's rows by person. A person with a clock-out shows
// the clock-out, a person with only a clock-in shows the clock-in, persons with
// neither are absent. Entries are ordered by time, then name.
func (a *Aggregator) LiveView(rows []attendance.EventRow) []LiveEntry {
	byPerson := map[string]*LiveEntry{}
	raw := map[string]string{}
	var order []string
	for _, row := range rows {
		if !a.valid(row) {
			continue
		}
		e, ok := byPerson[row.PersonID]
		if !ok {
			e = &LiveEntry{PersonID: row.PersonID, Name: row.Name, Group: row.Group}
			byPerson[row.PersonID] = e
			order = append(order, row.PersonID)
		}
		if row.Kind == attendance.KindClockOut || e.Kind != attendance.KindClockOut {
			e.Kind = row.Kind
			raw[row.PersonID] = row.Time
		}
	}
	res := make([]LiveEntry, 0, len(order))
	for _, id := range order {
		e := byPerson[id]
		e.Status = Status(e.Kind)
		e.Time = FormatClock(raw[id])
		res = append(res, *e)
	}
	sort.SliceStable(res, func(i, j int) bool {
		ti, tj := raw[res[i].PersonID], raw[res[j].PersonID]
		if ti != tj {
			return ti < tj
		}
		return res[i].Name < res[j].Name
	})
	return res
}

// DailyRecord is the derived attendance of one person on one day. Missing times
// are empty strings.
type DailyRecord struct {
	PersonID string `json:"person_id"`
	Name     string `json:"name"`
	Group    string `json:"group"`
	Date     string `json:"date"`
	ClockIn  string `json:"clock_in"`
	ClockOut string `json:"clock_out"`
	Note     string `json:"note"`
}

// Daily groups rows into one record per person and date, ordered by date, name.
func (a *Aggregator) Daily(rows []attendance.EventRow) []DailyRecord {
	type key struct{ person, date string }
	idx := map[key]int{}
	var res []DailyRecord
	for _, row := range rows {
		if !a.valid(row) {
			continue
		}
		k := key{row.PersonID, row.Date}
		i, ok := idx[k]
		if !ok {
			i = len(res)
			idx[k] = i
			res = append(res, DailyRecord{PersonID: row.PersonID, Name: row.Name, Group: row.Group, Date: row.Date, Note: row.Note})
		}
		switch row.Kind {
		case attendance.KindClockIn:
			res[i].ClockIn = FormatClock(row.Time)
		case attendance.KindClockOut:
			res[i].ClockOut = FormatClock(row.Time)
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		if res[i].Date != res[j].Date {
			return res[i].Date < res[j].Date
		}
		return res[i].Name < res[j].Name
	})
	return res
}

// RecentItem is one line of the activity feed.
type RecentItem struct {
	Name   string `json:"name"`
	Date   string `json:"date"`
	Time   string `json:"time"`
	Status string `json:"status"`
}

// Recent renders the newest RecentLimit valid rows, date then time descending.
func (a *Aggregator) Recent(rows []attendance.EventRow) []RecentItem {
	sorted := append([]attendance.EventRow(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date > sorted[j].Date
		}
		return sorted[i].Time > sorted[j].Time
	})
	res := make([]RecentItem, 0, RecentLimit)
	for _, row := range sorted {
		if len(res) == RecentLimit {
			break
		}
		if !a.valid(row) {
			continue
		}
		res = append(res, RecentItem{Name: row.Name, Date: row.Date, Time: FormatClock(row.Time), Status: Status(row.Kind)})
	}
	return res
}

// Summary backs the dashboard.
type Summary struct {
	Date         string       `json:"date"`
	Persons      int          `json:"persons"`
	ScannedToday int          `json:"scanned_today"`
	Pending      int          `json:"pending"`
	Events       int          `json:"events"`
	Recent       []RecentItem `json:"recent"`
}

// Summarize combines the counters and the recent feed.
func (a *Aggregator) Summarize(date string, t attendance.Totals, recent []attendance.EventRow) Summary {
	pending := t.Persons - t.ScannedToday
	if pending < 0 {
		pending = 0
	}
	return Summary{
		Date:         date,
		Persons:      t.Persons,
		ScannedToday: t.ScannedToday,
		Pending:      pending,
		Events:       t.Events,
		Recent:       a.Recent(recent),
	}
}

// ExportRow is one line of the attendance sheet.
type ExportRow struct {
	Seq     int    `json:"seq"`
	Name    string `json:"name"`
	TimeIn  string `json:"time_in"`
	TimeOut string `json:"time_out"`
	Note    string `json:"note"`
}

// Sheet is the export view of one group on one date.
type Sheet struct {
	Date     string      `json:"date"`
	Group    string      `json:"group"`
	Rows     []ExportRow `json:"rows"`
	Warnings []string    `json:"warnings"`
}

// Export builds the sheet for group on date. persons are the members of the
// group and rows that day's events for the group. Rows follow roster order and
// every member appears at most once, whether or not they scanned. Entries bound
// to a person match by id and are numbered by their position on the sheet;
// file entries match the next unused member with the same normalized name.
// Members left without a row are reported as warnings.
func (a *Aggregator) Export(date, group string, r roster.Roster, persons []attendance.Person, rows []attendance.EventRow) Sheet {
	type times struct{ in, out string }
	scans := map[string]*times{}
	for _, row := range rows {
		if row.Date != date || !a.valid(row) {
			continue
		}
		t := scans[row.PersonID]
		if t == nil {
			t = &times{}
			scans[row.PersonID] = t
		}
		switch row.Kind {
		case attendance.KindClockIn:
			t.in = FormatClock(row.Time)
		case attendance.KindClockOut:
			t.out = FormatClock(row.Time)
		}
	}

	byID := map[string]attendance.Person{}
	members := map[string][]attendance.Person{}
	var keys []string
	for _, p := range persons {
		if p.Group != group {
			continue
		}
		byID[p.ID] = p
		key := roster.Normalize(p.Name)
		if _, ok := members[key]; !ok {
			keys = append(keys, key)
		}
		members[key] = append(members[key], p)
	}

	sheet := Sheet{Date: date, Group: group, Rows: []ExportRow{}, Warnings: []string{}}
	used := map[string]bool{}
	for _, e := range r.Entries {
		p, ok := a.match(e, byID, members, used)
		if !ok {
			continue
		}
		used[p.ID] = true
		row := ExportRow{Seq: e.Seq, Name: e.Name, Note: e.Note}
		if e.PersonID != "" {
			row.Seq = len(sheet.Rows) + 1
		}
		if row.Note == "" {
			row.Note = p.Note
		}
		if t := scans[p.ID]; t != nil {
			row.TimeIn, row.TimeOut = t.in, t.out
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	for _, key := range keys {
		for _, p := range members[key] {
			if !used[p.ID] {
				sheet.Warnings = append(sheet.Warnings, key)
				break
			}
		}
	}
	sort.Strings(sheet.Warnings)
	if len(sheet.Warnings) > 0 {
		a.log.WithFields(logrus.Fields{"date": date, "group": group, "unmatched": sheet.Warnings}).
			Warn("persons missing from roster")
	}
	return sheet
}

func (a *Aggregator) match(e roster.Entry, byID map[string]attendance.Person, members map[string][]attendance.Person, used map[string]bool) (attendance.Person, bool) {
	if e.PersonID != "" {
		p, ok := byID[e.PersonID]
		return p, ok && !used[p.ID]
	}
	for _, p := range members[roster.Normalize(e.Name)] {
		if !used[p.ID] {
			return p, true
		}
	}
	return attendance.Person{}, false
}
