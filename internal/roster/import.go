package roster

import (
	"context"
	"errors"
	"fmt"

	"schoolattend/internal/attendance"
)

// ImportGroup is the group given to persons created from the roster.
const ImportGroup = "Unknown"

// PersonCreator is the part of the attendance service bulk import needs.
type PersonCreator interface {
	PersonLister
	CreatePerson(ctx context.Context, in attendance.PersonInput) (attendance.Person, error)
}

// ImportResult counts what a bulk import did.
type ImportResult struct {
	Created int      `json:"created"`
	Skipped []string `json:"skipped"`
}

// PlaceholderCard is the card id given to an imported person until a real card
// is assigned.
func PlaceholderCard(seq int) string {
	return fmt.Sprintf("TBD_%d", seq)
}

// Import creates a person for every roster entry whose name is not stored yet.
// Entries whose placeholder card is already in use are skipped.
func Import(ctx context.Context, svc PersonCreator, r Roster) (ImportResult, error) {
	persons, err := svc.ListPersons(ctx, attendance.PersonFilter{})
	if err != nil {
		return ImportResult{}, err
	}
	known := make(map[string]bool, len(persons))
	for _, p := range persons {
		known[Normalize(p.Name)] = true
	}

	res := ImportResult{Skipped: []string{}}
	for _, e := range r.Entries {
		key := Normalize(e.Name)
		if key == "" || known[key] {
			continue
		}
		_, err := svc.CreatePerson(ctx, attendance.PersonInput{
			Name:   e.Name,
			Group:  ImportGroup,
			CardID: PlaceholderCard(e.Seq),
			Note:   e.Note,
		})
		if errors.Is(err, attendance.ErrCardTaken) || errors.Is(err, attendance.ErrInvalidInput) {
			res.Skipped = append(res.Skipped, e.Name)
			continue
		}
		if err != nil {
			return res, err
		}
		known[key] = true
		res.Created++
	}
	return res, nil
}
