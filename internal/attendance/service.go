package attendance

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"schoolattend/internal/validator"
)

// scanAttempts bounds how often a scan is reclassified after losing an insert race.
const scanAttempts = 2

// Options configures a Service. Zero values fall back to sensible defaults.
type Options struct {
	Log      *logrus.Logger
	Location *time.Location
	Timeout  time.Duration
	Window   Window
	Now      func() time.Time
}

// Service coordinates scan classification, persistence and person administration.
type Service struct {
	store      Store
	classifier Classifier
	loc        *time.Location
	timeout    time.Duration
	now        func() time.Time
	log        *logrus.Entry
}

// NewService creates a service backed by a store.
func NewService(store Store, opts Options) *Service {
	if opts.Log == nil {
		opts.Log = logrus.New()
		opts.Log.Out = io.Discard
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Window == (Window{}) {
		opts.Window = DefaultWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:      store,
		classifier: Classifier{Window: opts.Window},
		loc:        opts.Location,
		timeout:    opts.Timeout,
		now:        opts.Now,
		log:        opts.Log.WithFields(logrus.Fields{"module": "attendance", "scope": "service"}),
	}
}

// ScanResult is what a card scan produced. Person is zero for ReasonUnknownCard,
// Event is zero unless the scan was accepted.
type ScanResult struct {
	Decision
	Person Person
	Event  ScanEvent
}

// Now returns the current time in the service's timezone.
func (s *Service) Now() time.Time {
	return s.now().In(s.loc)
}

// Today returns the current civil date.
func (s *Service) Today() string {
	return DateOf(s.Now())
}

// Location returns the timezone used for civil dates.
func (s *Service) Location() *time.Location {
	return s.loc
}

func (s *Service) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// Scan classifies a card scan and records the event when it is accepted.
// Policy rejections are returned as a Decision with a nil error; only store
// failures are errors.
func (s *Service) Scan(ctx context.Context, cardID string) (ScanResult, error) {
	card := NormalizeCard(cardID)
	if card == "" {
		return ScanResult{Decision: reject(ReasonUnknownCard)}, nil
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	person, err := s.store.PersonByCard(ctx, card)
	if errors.Is(err, ErrNotFound) {
		s.log.WithField("card", card).Info("unknown card")
		return ScanResult{Decision: reject(ReasonUnknownCard)}, nil
	}
	if err != nil {
		return ScanResult{}, storeFailure("find person by card", err)
	}

	at := s.Now()
	date, clock := DateOf(at), ClockOf(at)
	for attempt := 0; attempt < scanAttempts; attempt++ {
		existing, err := s.store.EventsForPersonOnDate(ctx, person.ID, date)
		if err != nil {
			return ScanResult{}, storeFailure("list events for person", err)
		}
		decision := s.classifier.Classify(existing, at)
		res := ScanResult{Decision: decision, Person: person}
		if !decision.Accepted {
			s.log.WithFields(logrus.Fields{"person": person.ID, "reason": decision.Reason}).Debug("scan rejected")
			return res, nil
		}

		evt, err := s.store.InsertEvent(ctx, ScanEvent{
			PersonID: person.ID,
			Date:     date,
			Time:     clock,
			Kind:     decision.Kind,
		})
		if errors.Is(err, ErrDuplicateScan) {
			// A concurrent scan won; classify again against what it wrote.
			s.log.WithField("person", person.ID).Warn("concurrent scan detected, reclassifying")
			continue
		}
		if err != nil {
			return ScanResult{}, storeFailure("insert event", err)
		}
		res.Event = evt
		s.log.WithFields(logrus.Fields{"person": person.ID, "kind": evt.Kind, "time": evt.Time}).Info("scan recorded")
		return res, nil
	}
	return ScanResult{}, storeFailure("insert event", errors.New("scan kept conflicting with concurrent writes"))
}

// PersonInput is the administrator-supplied data for a person.
type PersonInput struct {
	Name   string `json:"name" conform:"trim" validate:"required,max=200"`
	Group  string `json:"group" conform:"trim" validate:"required,max=50"`
	CardID string `json:"card_id" conform:"trim" validate:"required,max=64,cardid"`
	Note   string `json:"note" conform:"trim" validate:"max=500"`
}

// PersonPatch changes only the fields that are set.
type PersonPatch struct {
	Name   *string `json:"name"`
	Group  *string `json:"group"`
	CardID *string `json:"card_id"`
	Note   *string `json:"note"`
}

func (p PersonPatch) apply(in *PersonInput) {
	if p.Name != nil {
		in.Name = *p.Name
	}
	if p.Group != nil {
		in.Group = *p.Group
	}
	if p.CardID != nil {
		in.CardID = *p.CardID
	}
	if p.Note != nil {
		in.Note = *p.Note
	}
}

// CreatePerson validates and stores a new person.
func (s *Service) CreatePerson(ctx context.Context, in PersonInput) (Person, error) {
	if err := validator.Get().Validate(&in); err != nil {
		return Person{}, &InputError{Err: err}
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	p, err := s.store.CreatePerson(ctx, Person{Name: in.Name, Group: in.Group, CardID: in.CardID, Note: in.Note})
	if err != nil {
		return Person{}, s.classify("create person", err)
	}
	s.log.WithFields(logrus.Fields{"person": p.ID, "group": p.Group}).Info("person created")
	return p, nil
}

// UpdatePerson applies a partial update to an existing person.
func (s *Service) UpdatePerson(ctx context.Context, id string, patch PersonPatch) (Person, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	cur, err := s.store.Person(ctx, id)
	if err != nil {
		return Person{}, s.classify("get person", err)
	}
	in := PersonInput{Name: cur.Name, Group: cur.Group, CardID: cur.CardID, Note: cur.Note}
	patch.apply(&in)
	if err := validator.Get().Validate(&in); err != nil {
		return Person{}, &InputError{Err: err}
	}
	cur.Name, cur.Group, cur.CardID, cur.Note = in.Name, in.Group, in.CardID, in.Note
	p, err := s.store.UpdatePerson(ctx, cur)
	if err != nil {
		return Person{}, s.classify("update person", err)
	}
	return p, nil
}

// DeletePerson removes a person and, by cascade, all of their scan events.
func (s *Service) DeletePerson(ctx context.Context, id string) error {
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	if err := s.store.DeletePerson(ctx, id); err != nil {
		return s.classify("delete person", err)
	}
	s.log.WithField("person", id).Info("person deleted")
	return nil
}

// Person returns a single person.
func (s *Service) Person(ctx context.Context, id string) (Person, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	p, err := s.store.Person(ctx, id)
	if err != nil {
		return Person{}, s.classify("get person", err)
	}
	return p, nil
}

// ListPersons returns persons matching the filter, ordered by group and name.
func (s *Service) ListPersons(ctx context.Context, filter PersonFilter) ([]Person, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	persons, err := s.store.ListPersons(ctx, filter)
	return persons, storeFailure("list persons", err)
}

// Groups returns the distinct group labels.
func (s *Service) Groups(ctx context.Context) ([]string, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	groups, err := s.store.Groups(ctx)
	return groups, storeFailure("list groups", err)
}

// EventsOnDate returns one day's events joined with person data. An empty group
// matches every group.
func (s *Service) EventsOnDate(ctx context.Context, date, group string) ([]EventRow, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	rows, err := s.store.EventsOnDate(ctx, date, group)
	return rows, storeFailure("list events on date", err)
}

// EventsBetween returns the events of an inclusive date range.
func (s *Service) EventsBetween(ctx context.Context, from, to string) ([]EventRow, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	rows, err := s.store.EventsBetween(ctx, from, to)
	return rows, storeFailure("list events between", err)
}

// Recent returns the latest events system-wide, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]EventRow, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	rows, err := s.store.RecentEvents(ctx, limit)
	return rows, storeFailure("recent events", err)
}

// Totals returns the dashboard counters for today.
func (s *Service) Totals(ctx context.Context) (Totals, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	t, err := s.store.Totals(ctx, s.Today())
	return t, storeFailure("totals", err)
}

// Stats holds attendance counts over a trailing window of days.
type Stats struct {
	From      string       `json:"from"`
	To        string       `json:"to"`
	Daily     []DayCount   `json:"daily"`
	PerPerson []PersonDays `json:"per_person"`
}

// Statistics counts distinct scanning persons per day and distinct days per person
// over the last days days, today included.
func (s *Service) Statistics(ctx context.Context, days int) (Stats, error) {
	if days <= 0 {
		days = 7
	}
	now := s.Now()
	st := Stats{From: DateOf(now.AddDate(0, 0, -(days - 1))), To: DateOf(now)}
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	var err error
	if st.Daily, err = s.store.DailyCounts(ctx, st.From, st.To); err != nil {
		return Stats{}, storeFailure("daily counts", err)
	}
	if st.PerPerson, err = s.store.PersonDayCounts(ctx, st.From, st.To); err != nil {
		return Stats{}, storeFailure("person day counts", err)
	}
	return st, nil
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	return storeFailure("ping", s.store.Ping(ctx))
}

// classify keeps domain sentinels intact and marks everything else as a store failure.
func (s *Service) classify(op string, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrCardTaken) {
		return err
	}
	return storeFailure(op, err)
}
