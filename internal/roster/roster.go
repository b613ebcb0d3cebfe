// Package roster holds the ordered staff list used for exports and bulk import.
package roster

import (
	"os"
	"sort"
	"strings"

	"github.com/juju/errors"
	"gopkg.in/yaml.v3"

	"schoolattend/internal/attendance"
)

// Entry is one roster line. PersonID is set only on entries derived from stored
// persons; file entries are matched by name.
type Entry struct {
	Seq      int    `yaml:"seq" json:"seq"`
	Name     string `yaml:"name" json:"name"`
	Note     string `yaml:"note" json:"note"`
	PersonID string `yaml:"-" json:"person_id,omitempty"`
}

// Roster is an ordered list of entries.
type Roster struct {
	Entries []Entry `yaml:"entries" json:"entries"`
}

// Normalize folds a display name for matching: surrounding and repeated
// whitespace is collapsed and letters are upper-cased.
func Normalize(name string) string {
	return strings.ToUpper(strings.Join(strings.Fields(name), " "))
}

// Parse decodes a YAML roster. Blank names are dropped, entries without a
// sequence number take their position in the file, and the result is sorted by
// sequence number.
func Parse(data []byte) (Roster, error) {
	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Roster{}, errors.Annotate(err, "decode roster")
	}
	kept := r.Entries[:0]
	seen := map[int]bool{}
	for i, e := range r.Entries {
		e.Name = strings.TrimSpace(e.Name)
		e.Note = strings.TrimSpace(e.Note)
		if e.Name == "" {
			continue
		}
		if e.Seq <= 0 {
			e.Seq = i + 1
		}
		if seen[e.Seq] {
			return Roster{}, errors.Errorf("roster: duplicate sequence number %d", e.Seq)
		}
		seen[e.Seq] = true
		kept = append(kept, e)
	}
	r.Entries = kept
	sort.SliceStable(r.Entries, func(i, j int) bool { return r.Entries[i].Seq < r.Entries[j].Seq })
	return r, nil
}

// Load reads a YAML roster file.
func Load(path string) (Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Roster{}, errors.Annotatef(err, "read roster %s", path)
	}
	return Parse(data)
}

// FromPersons derives a roster from stored persons, numbered in the given order.
// Each entry is bound to its person by id.
func FromPersons(persons []attendance.Person) Roster {
	r := Roster{Entries: make([]Entry, 0, len(persons))}
	for i, p := range persons {
		r.Entries = append(r.Entries, Entry{Seq: i + 1, Name: p.Name, Note: p.Note, PersonID: p.ID})
	}
	return r
}
