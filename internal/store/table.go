package store

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/xoxserver/xox-server/internal/errors"
	"github.com/xoxserver/xox-server/internal/instance"
)

// maxIDAttempts bounds external id regeneration on a uniqueness collision.
const maxIDAttempts = 5

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Entity constrains the record types a Table can hold: pointers to structs
// that embed instance.Meta.
type Entity[T any] interface {
	*T
	Metadata() *instance.Meta
}

// TableOption configures a Table.
type TableOption func(*tableOptions)

type tableOptions struct {
	newID func() string
	now   func() time.Time
}

// WithIDGenerator overrides external id generation.
func WithIDGenerator(gen func() string) TableOption {
	return func(o *tableOptions) {
		o.newID = gen
	}
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) TableOption {
	return func(o *tableOptions) {
		o.now = now
	}
}

// NewExternalID returns a short opaque id: the first 8 hex digits of a v4 UUID.
func NewExternalID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Table is the CRUD handle for one game category. T is the game's record
// struct; its db-tagged fields, minus the identity columns, are the mutable
// columns written by Create and Update.
type Table[T any, P Entity[T]] struct {
	db      *DB
	name    string
	columns []string
	opts    tableOptions
}

// NewTable binds a record type to an existing table.
func NewTable[T any, P Entity[T]](ctx context.Context, db *DB, name string, opts ...TableOption) (*Table[T, P], error) {
	if !tableNamePattern.MatchString(name) {
		return nil, fmt.Errorf("invalid table name %q", name)
	}
	ok, err := db.HasTable(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect table %s: %w", name, err)
	}
	if !ok {
		return nil, fmt.Errorf("table %s does not exist", name)
	}

	columns, err := mutableColumns(db, reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", name, err)
	}

	t := &Table[T, P]{
		db:      db,
		name:    name,
		columns: columns,
		opts: tableOptions{
			newID: NewExternalID,
			now:   func() time.Time { return time.Now().UTC() },
		},
	}
	for _, opt := range opts {
		opt(&t.opts)
	}
	return t, nil
}

// mutableColumns lists the flat db columns of recordType, in declaration
// order, excluding the identity columns owned by the store.
func mutableColumns(db *DB, recordType reflect.Type) ([]string, error) {
	sm := db.db.Mapper.TypeMap(recordType)

	var columns []string
	for _, fi := range sm.Index {
		if fi.Embedded || sm.Names[fi.Path] != fi {
			continue
		}
		if strings.Contains(fi.Path, ".") {
			return nil, fmt.Errorf("nested column %s is not supported", fi.Path)
		}
		if instance.IsIdentityColumn(fi.Path) {
			continue
		}
		columns = append(columns, fi.Path)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("record type %s has no columns", recordType)
	}
	return columns, nil
}

// Name returns the table name.
func (t *Table[T, P]) Name() string {
	return t.name
}

// Columns returns the mutable columns.
func (t *Table[T, P]) Columns() []string {
	return append([]string(nil), t.columns...)
}

func quote(column string) string {
	return `"` + column + `"`
}

func (t *Table[T, P]) selectList() string {
	all := append([]string{instance.ColumnID, instance.ColumnCreatedAt, instance.ColumnExternalID}, t.columns...)
	quoted := make([]string, len(all))
	for i, c := range all {
		quoted[i] = quote(c)
	}
	return strings.Join(quoted, ", ")
}

// FindAll returns every record of the category ordered by id.
func (t *Table[T, P]) FindAll(ctx context.Context) ([]T, error) {
	records := []T{}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY id", t.selectList(), t.name)
	if err := t.db.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", t.name, err)
	}
	return records, nil
}

// Get returns the record with the given external id.
func (t *Table[T, P]) Get(ctx context.Context, externalID string) (T, error) {
	var record T
	query := fmt.Sprintf("SELECT %s FROM %s WHERE uuid = ?", t.selectList(), t.name)
	err := t.db.db.GetContext(ctx, &record, query, externalID)
	if errors.Is(err, sql.ErrNoRows) {
		return record, errors.NewNotFoundError(t.name, externalID)
	}
	if err != nil {
		return record, fmt.Errorf("failed to get %s %s: %w", t.name, externalID, err)
	}
	return record, nil
}

// args collects the mutable column values of record for a named query.
func (t *Table[T, P]) args(record *T) map[string]any {
	fields := t.db.db.Mapper.FieldMap(reflect.ValueOf(record))
	args := make(map[string]any, len(t.columns)+2)
	for _, c := range t.columns {
		args[c] = fields[c].Interface()
	}
	return args
}

func requireName(record any) error {
	meta := record.(interface{ Metadata() *instance.Meta }).Metadata()
	if meta.Name == "" {
		return errors.NewValidationError("name is required").WithField(instance.ColumnName)
	}
	return nil
}

// Create inserts fields as a new record. Identity values in fields are
// ignored: id, timestamp and uuid are assigned here. It returns the stored
// record.
func (t *Table[T, P]) Create(ctx context.Context, fields T) (T, error) {
	var zero T
	if err := requireName(P(&fields)); err != nil {
		return zero, err
	}

	args := t.args(&fields)
	columns := append([]string{instance.ColumnCreatedAt, instance.ColumnExternalID}, t.columns...)
	quoted := make([]string, len(columns))
	named := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quote(c)
		named[i] = ":" + c
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.name, strings.Join(quoted, ", "), strings.Join(named, ", "))

	for attempt := 1; attempt <= maxIDAttempts; attempt++ {
		externalID := t.opts.newID()
		args[instance.ColumnExternalID] = externalID
		args[instance.ColumnCreatedAt] = t.opts.now()

		_, err := t.db.db.NamedExecContext(ctx, query, args)
		if err == nil {
			t.db.logger.Info("created instance", "table", t.name, "uuid", externalID)
			return t.Get(ctx, externalID)
		}
		if isUniqueViolation(err, instance.ColumnExternalID) {
			t.db.logger.Warn("external id collision, regenerating", "table", t.name, "uuid", externalID)
			continue
		}
		return zero, t.translate(err)
	}
	return zero, errors.NewExhaustedRetriesError("external id generation for "+t.name, maxIDAttempts, nil)
}

// Update overwrites every mutable column of the record with the given external
// id. Identity columns are never touched.
func (t *Table[T, P]) Update(ctx context.Context, externalID string, fields T) error {
	if err := requireName(P(&fields)); err != nil {
		return err
	}

	args := t.args(&fields)
	args["where_uuid"] = externalID
	assignments := make([]string, len(t.columns))
	for i, c := range t.columns {
		assignments[i] = quote(c) + " = :" + c
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE uuid = :where_uuid", t.name, strings.Join(assignments, ", "))

	res, err := t.db.db.NamedExecContext(ctx, query, args)
	if err != nil {
		return t.translate(err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return errors.NewNotFoundError(t.name, externalID)
	}
	t.db.logger.Info("updated instance", "table", t.name, "uuid", externalID)
	return nil
}

// Delete removes the record with the given external id. Deleting an absent
// record fails with a NotFoundError.
func (t *Table[T, P]) Delete(ctx context.Context, externalID string) error {
	res, err := t.db.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE uuid = ?", t.name), externalID)
	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", t.name, externalID, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return errors.NewNotFoundError(t.name, externalID)
	}
	t.db.logger.Info("deleted instance", "table", t.name, "uuid", externalID)
	return nil
}

// translate maps constraint failures to validation errors.
func (t *Table[T, P]) translate(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return errors.NewValidationError("record rejected by " + t.name).WithCause(err)
	}
	return fmt.Errorf("failed to write %s: %w", t.name, err)
}

func isUniqueViolation(err error, column string) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) || sqliteErr.ExtendedCode != sqlite3.ErrConstraintUnique {
		return false
	}
	return strings.Contains(sqliteErr.Error(), "."+column)
}
