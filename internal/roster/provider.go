package roster

import (
	"context"
	"io"

	"github.com/juju/errors"
	"github.com/sirupsen/logrus"

	"schoolattend/internal/attendance"
)

// PersonLister is the part of the attendance service a store-derived roster needs.
type PersonLister interface {
	ListPersons(ctx context.Context, filter attendance.PersonFilter) ([]attendance.Person, error)
}

// Provider returns the current roster, read from a file when one is configured
// and derived from the stored persons otherwise.
type Provider struct {
	path    string
	persons PersonLister
	log     *logrus.Entry
}

// NewProvider creates a provider. An empty path selects the store-derived roster.
func NewProvider(path string, persons PersonLister, log *logrus.Logger) *Provider {
	if log == nil {
		log = logrus.New()
		log.Out = io.Discard
	}
	return &Provider{
		path:    path,
		persons: persons,
		log:     log.WithFields(logrus.Fields{"module": "roster", "scope": "provider"}),
	}
}

// Roster loads the roster. The file is re-read on every call so edits apply
// without a restart.
func (p *Provider) Roster(ctx context.Context) (Roster, error) {
	if p.path != "" {
		r, err := Load(p.path)
		if err != nil {
			return Roster{}, errors.Trace(err)
		}
		p.log.WithField("entries", len(r.Entries)).Debug("roster loaded from file")
		return r, nil
	}
	persons, err := p.persons.ListPersons(ctx, attendance.PersonFilter{})
	if err != nil {
		return Roster{}, err
	}
	return FromPersons(persons), nil
}
