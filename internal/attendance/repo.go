package attendance

import (
	"context"
	"database/sql"
	stderrors "errors"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/juju/errors"
	"github.com/sirupsen/logrus"
)

const (
	pgUniqueViolation  = "23505"
	pgInvalidTextValue = "22P02"
)

// Repository persists persons and scan events in Postgres.
type Repository struct {
	db    *sql.DB
	cards cardCache
	log   *logrus.Entry
}

var _ Store = (*Repository)(nil)

// NewRepository creates a repo. Card lookups are cached for a few seconds since
// every scan starts with one.
func NewRepository(db *sql.DB, log *logrus.Logger) *Repository {
	if log == nil {
		log = logrus.New()
		log.Out = io.Discard
	}
	return &Repository{
		db:    db,
		cards: newCardCache(cardCacheTTL),
		log:   log.WithFields(logrus.Fields{"module": "attendance", "scope": "repository"}),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

const personColumns = `id, name, group_name, card_id, note, created_at, updated_at`

func scanPerson(row rowScanner) (Person, error) {
	var p Person
	err := row.Scan(&p.ID, &p.Name, &p.Group, &p.CardID, &p.Note, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// PersonByCard looks a person up by card id, ignoring case.
func (r *Repository) PersonByCard(ctx context.Context, cardID string) (Person, error) {
	key := cardKey(cardID)
	if p, ok := r.cards.get(key); ok {
		return p, nil
	}
	row := r.db.QueryRowContext(ctx, `
		SELECT `+personColumns+`
		FROM persons WHERE LOWER(card_id) = $1
	`, key)
	p, err := scanPerson(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return Person{}, ErrNotFound
	}
	if err != nil {
		return Person{}, errors.Annotate(err, "select person by card")
	}
	r.cards.put(p)
	return p, nil
}

// Person returns a person by id.
func (r *Repository) Person(ctx context.Context, id string) (Person, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+personColumns+` FROM persons WHERE id = $1`, id)
	p, err := scanPerson(row)
	if stderrors.Is(err, sql.ErrNoRows) || pgCode(err) == pgInvalidTextValue {
		return Person{}, ErrNotFound
	}
	if err != nil {
		return Person{}, errors.Annotate(err, "select person")
	}
	return p, nil
}

// ListPersons returns persons with basic filters.
func (r *Repository) ListPersons(ctx context.Context, filter PersonFilter) ([]Person, error) {
	query := `SELECT ` + personColumns + ` FROM persons`
	args := []any{}
	clauses := []string{}
	if filter.Group != "" {
		args = append(args, filter.Group)
		clauses = append(clauses, "group_name = $"+strconv.Itoa(len(args)))
	}
	if filter.Name != "" {
		args = append(args, filter.Name)
		clauses = append(clauses, "name ILIKE '%' || $"+strconv.Itoa(len(args))+" || '%'")
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY group_name, name"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Annotate(err, "select persons")
	}
	defer rows.Close()
	var res []Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, errors.Trace(err)
		}
		res = append(res, p)
	}
	return res, errors.Trace(rows.Err())
}

// Groups returns distinct group labels in order.
func (r *Repository) Groups(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT group_name FROM persons ORDER BY group_name`)
	if err != nil {
		return nil, errors.Annotate(err, "select groups")
	}
	defer rows.Close()
	var res []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, errors.Trace(err)
		}
		res = append(res, g)
	}
	return res, errors.Trace(rows.Err())
}

// CreatePerson inserts a person. A card id already used by someone else, in any
// case, yields ErrCardTaken.
func (r *Repository) CreatePerson(ctx context.Context, p Person) (Person, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CardID = NormalizeCard(p.CardID)
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO persons (id, name, group_name, card_id, note)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, p.ID, p.Name, p.Group, p.CardID, p.Note)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		if pgCode(err) == pgUniqueViolation {
			return Person{}, ErrCardTaken
		}
		return Person{}, errors.Annotate(err, "insert person")
	}
	return p, nil
}

// UpdatePerson overwrites a person's editable fields.
func (r *Repository) UpdatePerson(ctx context.Context, p Person) (Person, error) {
	p.CardID = NormalizeCard(p.CardID)
	row := r.db.QueryRowContext(ctx, `
		UPDATE persons
		SET name = $2, group_name = $3, card_id = $4, note = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`, p.ID, p.Name, p.Group, p.CardID, p.Note)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		switch {
		case stderrors.Is(err, sql.ErrNoRows), pgCode(err) == pgInvalidTextValue:
			return Person{}, ErrNotFound
		case pgCode(err) == pgUniqueViolation:
			return Person{}, ErrCardTaken
		}
		return Person{}, errors.Annotate(err, "update person")
	}
	r.cards.flush()
	return p, nil
}

// DeletePerson removes a person; scan events go with it through the foreign key.
func (r *Repository) DeletePerson(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM persons WHERE id = $1`, id)
	if pgCode(err) == pgInvalidTextValue {
		return ErrNotFound
	}
	if err != nil {
		return errors.Annotate(err, "delete person")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Trace(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	r.cards.flush()
	return nil
}

// EventsForPersonOnDate returns a person's events for one civil date.
func (r *Repository) EventsForPersonOnDate(ctx context.Context, personID, date string) ([]ScanEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, person_id, to_char(scan_date, 'YYYY-MM-DD'), to_char(scan_time, 'HH24:MI:SS'), scan_kind, created_at
		FROM scan_events
		WHERE person_id = $1 AND scan_date = $2::date
		ORDER BY scan_time
	`, personID, date)
	if err != nil {
		return nil, errors.Annotate(err, "select person events")
	}
	defer rows.Close()
	var res []ScanEvent
	for rows.Next() {
		var e ScanEvent
		if err := rows.Scan(&e.ID, &e.PersonID, &e.Date, &e.Time, &e.Kind, &e.CreatedAt); err != nil {
			return nil, errors.Trace(err)
		}
		res = append(res, e)
	}
	return res, errors.Trace(rows.Err())
}

// InsertEvent writes an event only if it keeps the day consistent. The unique
// (person_id, scan_date, scan_kind) constraint stops a second event of the same
// kind; the EXISTS guard stops a clock-out that has no clock-in. Either way no
// row comes back and ErrDuplicateScan is returned.
func (r *Repository) InsertEvent(ctx context.Context, evt ScanEvent) (ScanEvent, error) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO scan_events (id, person_id, scan_date, scan_time, scan_kind)
		SELECT $1::uuid, $2::uuid, $3::date, $4::time, $5::text
		WHERE $5::text = 'clock_in' OR EXISTS (
			SELECT 1 FROM scan_events
			WHERE person_id = $2::uuid AND scan_date = $3::date AND scan_kind = 'clock_in'
		)
		ON CONFLICT (person_id, scan_date, scan_kind) DO NOTHING
		RETURNING created_at
	`, evt.ID, evt.PersonID, evt.Date, evt.Time, string(evt.Kind))
	if err := row.Scan(&evt.CreatedAt); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return ScanEvent{}, ErrDuplicateScan
		}
		return ScanEvent{}, errors.Annotate(err, "insert scan event")
	}
	return evt, nil
}

const eventRowColumns = `e.id, p.id, p.name, p.group_name, p.note,
	to_char(e.scan_date, 'YYYY-MM-DD'), to_char(e.scan_time, 'HH24:MI:SS'), e.scan_kind`

func (r *Repository) queryEventRows(ctx context.Context, query string, args ...any) ([]EventRow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Annotate(err, "select event rows")
	}
	defer rows.Close()
	var res []EventRow
	for rows.Next() {
		var e EventRow
		if err := rows.Scan(&e.EventID, &e.PersonID, &e.Name, &e.Group, &e.Note, &e.Date, &e.Time, &e.Kind); err != nil {
			return nil, errors.Trace(err)
		}
		res = append(res, e)
	}
	return res, errors.Trace(rows.Err())
}

// EventsOnDate returns a day's events joined with person data, optionally for
// one group only.
func (r *Repository) EventsOnDate(ctx context.Context, date, group string) ([]EventRow, error) {
	return r.queryEventRows(ctx, `
		SELECT `+eventRowColumns+`
		FROM scan_events e JOIN persons p ON p.id = e.person_id
		WHERE e.scan_date = $1::date AND ($2::text = '' OR p.group_name = $2::text)
		ORDER BY e.scan_time, p.name
	`, date, group)
}

// EventsBetween returns the events of an inclusive date range.
func (r *Repository) EventsBetween(ctx context.Context, from, to string) ([]EventRow, error) {
	return r.queryEventRows(ctx, `
		SELECT `+eventRowColumns+`
		FROM scan_events e JOIN persons p ON p.id = e.person_id
		WHERE e.scan_date BETWEEN $1::date AND $2::date
		ORDER BY e.scan_date, p.name, e.scan_time
	`, from, to)
}

// RecentEvents returns the newest events, date then time descending.
func (r *Repository) RecentEvents(ctx context.Context, limit int) ([]EventRow, error) {
	if limit <= 0 {
		limit = 5
	}
	return r.queryEventRows(ctx, `
		SELECT `+eventRowColumns+`
		FROM scan_events e JOIN persons p ON p.id = e.person_id
		ORDER BY e.scan_date DESC, e.scan_time DESC
		LIMIT $1
	`, limit)
}

// Totals returns the dashboard counters for date.
func (r *Repository) Totals(ctx context.Context, date string) (Totals, error) {
	var t Totals
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM persons),
			(SELECT COUNT(DISTINCT person_id) FROM scan_events WHERE scan_date = $1::date),
			(SELECT COUNT(*) FROM scan_events)
	`, date).Scan(&t.Persons, &t.ScannedToday, &t.Events)
	if err != nil {
		return Totals{}, errors.Annotate(err, "select totals")
	}
	return t, nil
}

// DailyCounts returns distinct scanning persons per day, newest day first.
// Days without scans are not listed.
func (r *Repository) DailyCounts(ctx context.Context, from, to string) ([]DayCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT to_char(scan_date, 'YYYY-MM-DD'), COUNT(DISTINCT person_id)
		FROM scan_events
		WHERE scan_date BETWEEN $1::date AND $2::date
		GROUP BY scan_date
		ORDER BY scan_date DESC
	`, from, to)
	if err != nil {
		return nil, errors.Annotate(err, "select daily counts")
	}
	defer rows.Close()
	var res []DayCount
	for rows.Next() {
		var d DayCount
		if err := rows.Scan(&d.Date, &d.Count); err != nil {
			return nil, errors.Trace(err)
		}
		res = append(res, d)
	}
	return res, errors.Trace(rows.Err())
}

// PersonDayCounts returns, for every person, the number of distinct days with a
// scan in the range. Persons without scans are included with zero.
func (r *Repository) PersonDayCounts(ctx context.Context, from, to string) ([]PersonDays, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.name, COUNT(DISTINCT e.scan_date)
		FROM persons p
		LEFT JOIN scan_events e
			ON e.person_id = p.id AND e.scan_date BETWEEN $1::date AND $2::date
		GROUP BY p.id, p.name
		ORDER BY 3 ASC, p.name
	`, from, to)
	if err != nil {
		return nil, errors.Annotate(err, "select person day counts")
	}
	defer rows.Close()
	var res []PersonDays
	for rows.Next() {
		var d PersonDays
		if err := rows.Scan(&d.PersonID, &d.Name, &d.Days); err != nil {
			return nil, errors.Trace(err)
		}
		res = append(res, d)
	}
	return res, errors.Trace(rows.Err())
}

// Ping checks the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	return errors.Trace(r.db.PingContext(ctx))
}
