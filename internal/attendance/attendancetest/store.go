// Package attendancetest provides an in-memory attendance.Store for tests.
package attendancetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"schoolattend/internal/attendance"
)

// Store keeps persons and events in memory and enforces the same per-day rules
// as the Postgres repository. Set Err to make every call fail.
type Store struct {
	mu      sync.Mutex
	persons map[string]attendance.Person
	events  []attendance.ScanEvent
	Err     error
}

var _ attendance.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{persons: map[string]attendance.Person{}}
}

// AddPerson stores p directly, assigning an id when empty.
func (s *Store) AddPerson(p attendance.Person) attendance.Person {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	s.persons[p.ID] = p
	return p
}

// AddEvent stores e without any checks, which lets tests build inconsistent days.
func (s *Store) AddEvent(e attendance.ScanEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	s.events = append(s.events, e)
}

// Events returns a copy of every stored event.
func (s *Store) Events() []attendance.ScanEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]attendance.ScanEvent(nil), s.events...)
}

func (s *Store) PersonByCard(_ context.Context, cardID string) (attendance.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return attendance.Person{}, s.Err
	}
	for _, p := range s.persons {
		if strings.EqualFold(p.CardID, attendance.NormalizeCard(cardID)) {
			return p, nil
		}
	}
	return attendance.Person{}, attendance.ErrNotFound
}

func (s *Store) Person(_ context.Context, id string) (attendance.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return attendance.Person{}, s.Err
	}
	p, ok := s.persons[id]
	if !ok {
		return attendance.Person{}, attendance.ErrNotFound
	}
	return p, nil
}

func (s *Store) ListPersons(_ context.Context, f attendance.PersonFilter) ([]attendance.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var res []attendance.Person
	for _, p := range s.persons {
		if f.Group != "" && p.Group != f.Group {
			continue
		}
		if f.Name != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Name)) {
			continue
		}
		res = append(res, p)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Group != res[j].Group {
			return res[i].Group < res[j].Group
		}
		return res[i].Name < res[j].Name
	})
	return res, nil
}

func (s *Store) Groups(ctx context.Context) ([]string, error) {
	persons, err := s.ListPersons(ctx, attendance.PersonFilter{})
	if err != nil {
		return nil, err
	}
	var res []string
	for _, p := range persons {
		if len(res) == 0 || res[len(res)-1] != p.Group {
			res = append(res, p.Group)
		}
	}
	return res, nil
}

func (s *Store) cardTaken(id, card string) bool {
	for _, p := range s.persons {
		if p.ID != id && strings.EqualFold(p.CardID, card) {
			return true
		}
	}
	return false
}

func (s *Store) CreatePerson(_ context.Context, p attendance.Person) (attendance.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return attendance.Person{}, s.Err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if s.cardTaken(p.ID, p.CardID) {
		return attendance.Person{}, attendance.ErrCardTaken
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	s.persons[p.ID] = p
	return p, nil
}

func (s *Store) UpdatePerson(_ context.Context, p attendance.Person) (attendance.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return attendance.Person{}, s.Err
	}
	if _, ok := s.persons[p.ID]; !ok {
		return attendance.Person{}, attendance.ErrNotFound
	}
	if s.cardTaken(p.ID, p.CardID) {
		return attendance.Person{}, attendance.ErrCardTaken
	}
	p.UpdatedAt = time.Now()
	s.persons[p.ID] = p
	return p, nil
}

func (s *Store) DeletePerson(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.persons[id]; !ok {
		return attendance.ErrNotFound
	}
	delete(s.persons, id)
	kept := s.events[:0]
	for _, e := range s.events {
		if e.PersonID != id {
			kept = append(kept, e)
		}
	}
	s.events = kept
	return nil
}

func (s *Store) EventsForPersonOnDate(_ context.Context, personID, date string) ([]attendance.ScanEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var res []attendance.ScanEvent
	for _, e := range s.events {
		if e.PersonID == personID && e.Date == date {
			res = append(res, e)
		}
	}
	return res, nil
}

func (s *Store) InsertEvent(_ context.Context, evt attendance.ScanEvent) (attendance.ScanEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return attendance.ScanEvent{}, s.Err
	}
	hasIn := false
	for _, e := range s.events {
		if e.PersonID != evt.PersonID || e.Date != evt.Date {
			continue
		}
		if e.Kind == evt.Kind {
			return attendance.ScanEvent{}, attendance.ErrDuplicateScan
		}
		if e.Kind == attendance.KindClockIn {
			hasIn = true
		}
	}
	if evt.Kind != attendance.KindClockIn && !hasIn {
		return attendance.ScanEvent{}, attendance.ErrDuplicateScan
	}
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	evt.CreatedAt = time.Now()
	s.events = append(s.events, evt)
	return evt, nil
}

func (s *Store) rows(keep func(attendance.ScanEvent, attendance.Person) bool) []attendance.EventRow {
	var res []attendance.EventRow
	for _, e := range s.events {
		p := s.persons[e.PersonID]
		if !keep(e, p) {
			continue
		}
		res = append(res, attendance.EventRow{
			EventID: e.ID, PersonID: p.ID, Name: p.Name, Group: p.Group, Note: p.Note,
			Date: e.Date, Time: e.Time, Kind: e.Kind,
		})
	}
	return res
}

func (s *Store) EventsOnDate(_ context.Context, date, group string) ([]attendance.EventRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	res := s.rows(func(e attendance.ScanEvent, p attendance.Person) bool {
		return e.Date == date && (group == "" || p.Group == group)
	})
	sort.SliceStable(res, func(i, j int) bool { return res[i].Time < res[j].Time })
	return res, nil
}

func (s *Store) EventsBetween(_ context.Context, from, to string) ([]attendance.EventRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	res := s.rows(func(e attendance.ScanEvent, _ attendance.Person) bool {
		return e.Date >= from && e.Date <= to
	})
	sort.SliceStable(res, func(i, j int) bool {
		if res[i].Date != res[j].Date {
			return res[i].Date < res[j].Date
		}
		if res[i].Name != res[j].Name {
			return res[i].Name < res[j].Name
		}
		return res[i].Time < res[j].Time
	})
	return res, nil
}

func (s *Store) RecentEvents(_ context.Context, limit int) ([]attendance.EventRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	res := s.rows(func(attendance.ScanEvent, attendance.Person) bool { return true })
	sort.SliceStable(res, func(i, j int) bool {
		if res[i].Date != res[j].Date {
			return res[i].Date > res[j].Date
		}
		return res[i].Time > res[j].Time
	})
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (s *Store) Totals(_ context.Context, date string) (attendance.Totals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return attendance.Totals{}, s.Err
	}
	seen := map[string]bool{}
	for _, e := range s.events {
		if e.Date == date {
			seen[e.PersonID] = true
		}
	}
	return attendance.Totals{Persons: len(s.persons), ScannedToday: len(seen), Events: len(s.events)}, nil
}

func (s *Store) DailyCounts(_ context.Context, from, to string) ([]attendance.DayCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	days := map[string]map[string]bool{}
	for _, e := range s.events {
		if e.Date < from || e.Date > to {
			continue
		}
		if days[e.Date] == nil {
			days[e.Date] = map[string]bool{}
		}
		days[e.Date][e.PersonID] = true
	}
	var res []attendance.DayCount
	for d, ps := range days {
		res = append(res, attendance.DayCount{Date: d, Count: len(ps)})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Date > res[j].Date })
	return res, nil
}

func (s *Store) PersonDayCounts(_ context.Context, from, to string) ([]attendance.PersonDays, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var res []attendance.PersonDays
	for _, p := range s.persons {
		days := map[string]bool{}
		for _, e := range s.events {
			if e.PersonID == p.ID && e.Date >= from && e.Date <= to {
				days[e.Date] = true
			}
		}
		res = append(res, attendance.PersonDays{PersonID: p.ID, Name: p.Name, Days: len(days)})
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Days != res[j].Days {
			return res[i].Days < res[j].Days
		}
		return res[i].Name < res[j].Name
	})
	return res, nil
}

func (s *Store) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Err
}
