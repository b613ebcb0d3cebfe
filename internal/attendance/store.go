package attendance

import "context"

// Store is the durable storage the service depends on. Lookups that find nothing
// return ErrNotFound.
type Store interface {
	PersonByCard(ctx context.Context, cardID string) (Person, error)
	Person(ctx context.Context, id string) (Person, error)
	ListPersons(ctx context.Context, filter PersonFilter) ([]Person, error)
	Groups(ctx context.Context) ([]string, error)
	CreatePerson(ctx context.Context, p Person) (Person, error)
	UpdatePerson(ctx context.Context, p Person) (Person, error)
	DeletePerson(ctx context.Context, id string) error

	EventsForPersonOnDate(ctx context.Context, personID, date string) ([]ScanEvent, error)
	// InsertEvent must enforce the per-day invariant atomically: at most one
	// event of each kind and no clock-out without a clock-in. A violating insert
	// returns ErrDuplicateScan and writes nothing.
	InsertEvent(ctx context.Context, evt ScanEvent) (ScanEvent, error)
	EventsOnDate(ctx context.Context, date, group string) ([]EventRow, error)
	EventsBetween(ctx context.Context, from, to string) ([]EventRow, error)
	RecentEvents(ctx context.Context, limit int) ([]EventRow, error)

	Totals(ctx context.Context, date string) (Totals, error)
	DailyCounts(ctx context.Context, from, to string) ([]DayCount, error)
	PersonDayCounts(ctx context.Context, from, to string) ([]PersonDays, error)
	Ping(ctx context.Context) error
}
