package roster

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tavern/app/internal/metrics"
)

const tableName = "user"

// createTableSQL is executed verbatim so the column types match the
// established roster schema rather than Gorm's inferred ones.
const createTableSQL = `CREATE TABLE "user" (
	id integer not null primary key autoincrement,
	player varchar(20) not null,
	level integer not null,
	role character(10) not null,
	character varchar(20) not null,
	race varchar(20) null,
	alignment varchar(20) null
)`

const (
	opCreateTable = "create_table"
	opDropTable   = "drop_table"
	opCreate      = "create"
	opList        = "list_all_by_owner"
	opDelete      = "delete_by_id"
)

var (
	// ErrTableExists is returned by CreateTable when the roster table is already present.
	ErrTableExists = eris.New("roster table already exists")
	// ErrTableMissing is returned when an operation runs before the roster table exists.
	ErrTableMissing = eris.New("roster table does not exist")
)

// Store defines the roster operations over the character table.
type Store interface {
	CreateTable(ctx context.Context) error
	DropTable(ctx context.Context) error
	Create(ctx context.Context, record Record) (int64, error)
	ListAllByOwner(ctx context.Context) ([]Record, error)
	DeleteByID(ctx context.Context, id int64) error
}

// GormStore runs roster statements against a SQLite handle opened by the caller.
type GormStore struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewStore constructs a Gorm-backed roster store.
func NewStore(db *gorm.DB, logger *logrus.Logger) (*GormStore, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &GormStore{db: db, logger: logger}, nil
}

var _ Store = (*GormStore)(nil)

// CreateTable creates the user table. It fails with ErrTableExists when the table is present.
func (s *GormStore) CreateTable(ctx context.Context) (err error) {
	defer func(start time.Time) { metrics.ObserveOperation(opCreateTable, start, err) }(time.Now())

	fields := logrus.Fields{"table": tableName}
	db := s.db.WithContext(ctx)

	if db.Migrator().HasTable(&characterRow{}) {
		err = eris.Wrapf(ErrTableExists, "creating table %s", tableName)
		s.logError(fields, err, "creating roster table")
		return err
	}

	if execErr := db.Exec(createTableSQL).Error; execErr != nil {
		err = eris.Wrapf(translateError(execErr), "creating table %s", tableName)
		s.logError(fields, err, "creating roster table")
		return err
	}

	s.logDebug(fields, "roster table created")
	return nil
}

// DropTable removes the user table and every row in it. A missing table is not an error.
func (s *GormStore) DropTable(ctx context.Context) (err error) {
	defer func(start time.Time) { metrics.ObserveOperation(opDropTable, start, err) }(time.Now())

	if dropErr := s.db.WithContext(ctx).Migrator().DropTable(&characterRow{}); dropErr != nil {
		err = eris.Wrapf(translateError(dropErr), "dropping table %s", tableName)
		s.logError(logrus.Fields{"table": tableName}, err, "dropping roster table")
		return err
	}

	s.logDebug(logrus.Fields{"table": tableName}, "roster table dropped")
	return nil
}

// Create inserts the record and returns the id assigned by storage.
func (s *GormStore) Create(ctx context.Context, record Record) (id int64, err error) {
	defer func(start time.Time) { metrics.ObserveOperation(opCreate, start, err) }(time.Now())

	row := newCharacterRow(record)
	if createErr := s.db.WithContext(ctx).Create(&row).Error; createErr != nil {
		err = eris.Wrapf(translateError(createErr), "creating character for owner %s", record.Owner)
		s.logError(logrus.Fields{"owner": record.Owner}, err, "creating character")
		return 0, err
	}

	s.logDebug(logrus.Fields{"id": row.ID, "owner": row.Player}, "character created")
	return row.ID, nil
}

// ListAllByOwner returns every character ordered by owner name. Rows sharing
// an owner keep insertion order.
func (s *GormStore) ListAllByOwner(ctx context.Context) (records []Record, err error) {
	defer func(start time.Time) { metrics.ObserveOperation(opList, start, err) }(time.Now())

	var rows []characterRow
	if findErr := s.db.WithContext(ctx).Order("player ASC").Order("id ASC").Find(&rows).Error; findErr != nil {
		err = eris.Wrap(translateError(findErr), "listing characters")
		s.logError(nil, err, "listing characters")
		return nil, err
	}

	records = make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toRecord())
	}

	return records, nil
}

// DeleteByID removes the character with the given id. Unknown ids are ignored.
func (s *GormStore) DeleteByID(ctx context.Context, id int64) (err error) {
	defer func(start time.Time) { metrics.ObserveOperation(opDelete, start, err) }(time.Now())

	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&characterRow{})
	if result.Error != nil {
		err = eris.Wrapf(translateError(result.Error), "deleting character %d", id)
		s.logError(logrus.Fields{"id": id}, err, "deleting character")
		return err
	}

	s.logDebug(logrus.Fields{"id": id, "rows_affected": result.RowsAffected}, "character delete executed")
	return nil
}

// translateError maps SQLite schema failures onto the package sentinels.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	message := strings.ToLower(err.Error())
	switch {
	case strings.Contains(message, "no such table"):
		return eris.Wrap(ErrTableMissing, err.Error())
	case strings.Contains(message, "already exists"):
		return eris.Wrap(ErrTableExists, err.Error())
	default:
		return err
	}
}

// isSchemaState reports whether err only reflects whether the table exists.
// Callers treat these as expected outcomes, not faults.
func isSchemaState(err error) bool {
	return eris.Is(err, ErrTableExists) || eris.Is(err, ErrTableMissing)
}

func (s *GormStore) logError(fields logrus.Fields, err error, message string) {
	if s.logger == nil || err == nil {
		return
	}

	entry := s.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	if isSchemaState(err) {
		entry.Warn(message)
		return
	}
	entry.Error(message)
}

func (s *GormStore) logDebug(fields logrus.Fields, message string) {
	if s.logger == nil {
		return
	}

	s.logger.WithFields(fields).Debug(message)
}
