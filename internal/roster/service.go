package roster

import (
	"context"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// Service exposes roster operations to the transports and reports failures.
type Service interface {
	Bootstrap(ctx context.Context) error
	Reset(ctx context.Context) error
	CreateTable(ctx context.Context) error
	DropTable(ctx context.Context) error
	Create(ctx context.Context, record Record) (int64, error)
	ListAllByOwner(ctx context.Context) ([]Record, error)
	DeleteByID(ctx context.Context, id int64) error
	Seed(ctx context.Context) ([]int64, error)
}

type service struct {
	store     Store
	logger    *logrus.Logger
	sentryHub *sentry.Hub
}

var _ Service = (*service)(nil)

// NewService wires the roster service with its store.
func NewService(store Store, logger *logrus.Logger, hub *sentry.Hub) (Service, error) {
	if store == nil {
		return nil, eris.New("roster store is required")
	}

	return &service{
		store:     store,
		logger:    logger,
		sentryHub: hub,
	}, nil
}

// Bootstrap makes sure the roster table exists, leaving an existing one untouched.
func (s *service) Bootstrap(ctx context.Context) error {
	err := s.store.CreateTable(ctx)
	if err == nil {
		s.logInfo(nil, "roster table created")
		return nil
	}
	if eris.Is(err, ErrTableExists) {
		s.logInfo(nil, "roster table already present")
		return nil
	}

	s.recordError(nil, err, "bootstrapping roster table")
	return eris.Wrap(err, "bootstrapping roster table")
}

func (s *service) Reset(ctx context.Context) error {
	if err := s.DropTable(ctx); err != nil {
		return eris.Wrap(err, "resetting roster")
	}
	if err := s.CreateTable(ctx); err != nil {
		return eris.Wrap(err, "resetting roster")
	}
	return nil
}

func (s *service) CreateTable(ctx context.Context) error {
	if err := s.store.CreateTable(ctx); err != nil {
		s.recordError(nil, err, "creating roster table")
		return eris.Wrap(err, "creating roster table")
	}
	return nil
}

func (s *service) DropTable(ctx context.Context) error {
	if err := s.store.DropTable(ctx); err != nil {
		s.recordError(nil, err, "dropping roster table")
		return eris.Wrap(err, "dropping roster table")
	}
	return nil
}

func (s *service) Create(ctx context.Context, record Record) (int64, error) {
	id, err := s.store.Create(ctx, record)
	if err != nil {
		s.recordError(logrus.Fields{"owner": record.Owner}, err, "creating character")
		return 0, eris.Wrapf(err, "creating character for owner %s", record.Owner)
	}
	return id, nil
}

func (s *service) ListAllByOwner(ctx context.Context) ([]Record, error) {
	records, err := s.store.ListAllByOwner(ctx)
	if err != nil {
		s.recordError(nil, err, "listing characters")
		return nil, eris.Wrap(err, "listing characters")
	}
	return records, nil
}

func (s *service) DeleteByID(ctx context.Context, id int64) error {
	if err := s.store.DeleteByID(ctx, id); err != nil {
		s.recordError(logrus.Fields{"id": id}, err, "deleting character")
		return eris.Wrapf(err, "deleting character %d", id)
	}
	return nil
}

// Seed inserts the sample party and returns the ids in insertion order.
// Rows inserted before a failure are kept.
func (s *service) Seed(ctx context.Context) ([]int64, error) {
	party := SampleParty()
	ids := make([]int64, 0, len(party))

	for _, record := range party {
		id, err := s.Create(ctx, record)
		if err != nil {
			return ids, eris.Wrap(err, "seeding roster")
		}
		ids = append(ids, id)
	}

	s.logInfo(logrus.Fields{"count": len(ids)}, "roster seeded")
	return ids, nil
}

func (s *service) recordError(fields logrus.Fields, err error, message string) {
	if err == nil {
		return
	}

	var entry *logrus.Entry
	if s.logger != nil {
		entry = s.logger.WithField("error", err.Error())
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}
	}

	if isSchemaState(err) {
		if entry != nil {
			entry.Warn(message)
		}
		return
	}

	if entry != nil {
		entry.Error(message)
	}
	if s.sentryHub != nil {
		s.sentryHub.CaptureException(err)
	}
}

func (s *service) logInfo(fields logrus.Fields, message string) {
	if s.logger == nil {
		return
	}
	s.logger.WithFields(fields).Info(message)
}
