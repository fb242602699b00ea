// Package instance defines the identity shared by every persisted game-server
// instance and the rules for operator-chosen instance names.
package instance

import (
	"strings"
	"time"
	"unicode"

	"github.com/xoxserver/xox-server/internal/errors"
)

// Identity columns. They are assigned by the store at creation and never
// written again.
const (
	ColumnID         = "id"
	ColumnCreatedAt  = "timestamp"
	ColumnExternalID = "uuid"
	ColumnName       = "name"
)

// Meta is embedded by every game record. ID, CreatedAt and ExternalID are
// owned by the store; Name is chosen by the operator.
type Meta struct {
	ID         int64     `db:"id"`
	CreatedAt  time.Time `db:"timestamp"`
	ExternalID string    `db:"uuid"`
	Name       string    `db:"name"`
}

// Metadata returns the embedded identity. Game records get this method through
// embedding, which is what store.Table relies on.
func (m *Meta) Metadata() *Meta {
	return m
}

// Label is the text used for the record in selection menus.
func (m Meta) Label() string {
	return "(" + m.ExternalID + ") " + m.Name
}

// IsIdentityColumn reports whether column is owned by the store.
func IsIdentityColumn(column string) bool {
	switch column {
	case ColumnID, ColumnCreatedAt, ColumnExternalID:
		return true
	}
	return false
}

// NormalizeName trims the operator input and collapses every whitespace run
// into a single hyphen, so "My  World " becomes "My-World".
func NormalizeName(raw string) string {
	return strings.Join(strings.FieldsFunc(raw, unicode.IsSpace), "-")
}

// ValidateName checks a normalized name. Names end up inside session names and
// shell command lines, so quoting and shell metacharacters are refused. tmux
// rewrites '.' and ':' in session names and reads them as target separators,
// so those are refused as well.
func ValidateName(name string) error {
	if name == "" {
		return errors.NewValidationError("Name cannot be empty").WithField(ColumnName)
	}
	if i := strings.IndexAny(name, "\"'`$;\\|&<>(){}*?.:"); i >= 0 {
		return errors.NewValidationError("Name cannot contain " + string(name[i])).
			WithField(ColumnName).WithValue(name)
	}
	return nil
}
