package roster

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

func TestNewServiceRequiresStore(t *testing.T) {
	t.Parallel()

	if _, err := NewService(nil, silentLogger(), nil); err == nil {
		t.Fatalf("expected error when store is nil")
	}
}

func TestServiceBootstrapToleratesExistingTable(t *testing.T) {
	t.Parallel()

	stub := &stubStore{createTableErr: eris.Wrap(ErrTableExists, "creating table user")}
	service := newTestService(t, stub)

	if err := service.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap returned error: %v", err)
	}
	if stub.createTableCalls != 1 {
		t.Fatalf("expected CreateTable to be called once, got %d", stub.createTableCalls)
	}
}

func TestServiceBootstrapPropagatesOtherErrors(t *testing.T) {
	t.Parallel()

	stub := &stubStore{createTableErr: errStub("disk full")}
	service := newTestService(t, stub)

	if err := service.Bootstrap(context.Background()); err == nil {
		t.Fatalf("expected bootstrap error to be propagated")
	}
}

func TestServiceCreateTablePreservesSentinel(t *testing.T) {
	t.Parallel()

	stub := &stubStore{createTableErr: eris.Wrap(ErrTableExists, "creating table user")}
	service := newTestService(t, stub)

	err := service.CreateTable(context.Background())
	if !eris.Is(err, ErrTableExists) {
		t.Fatalf("expected ErrTableExists, got %v", err)
	}
}

func TestServiceResetDropsThenCreates(t *testing.T) {
	t.Parallel()

	stub := &stubStore{}
	service := newTestService(t, stub)

	if err := service.Reset(context.Background()); err != nil {
		t.Fatalf("Reset returned error: %v", err)
	}

	expected := []string{"drop", "create_table"}
	if len(stub.calls) != len(expected) {
		t.Fatalf("expected calls %v, got %v", expected, stub.calls)
	}
	for idx, call := range expected {
		if stub.calls[idx] != call {
			t.Fatalf("expected call %q at index %d, got %q", call, idx, stub.calls[idx])
		}
	}
}

func TestServiceResetStopsWhenDropFails(t *testing.T) {
	t.Parallel()

	stub := &stubStore{dropErr: errStub("locked")}
	service := newTestService(t, stub)

	if err := service.Reset(context.Background()); err == nil {
		t.Fatalf("expected reset error when drop fails")
	}
	if stub.createTableCalls != 0 {
		t.Fatalf("expected CreateTable not to run, got %d calls", stub.createTableCalls)
	}
}

func TestServiceSeedInsertsSampleParty(t *testing.T) {
	t.Parallel()

	stub := &stubStore{}
	service := newTestService(t, stub)

	ids, err := service.Seed(context.Background())
	if err != nil {
		t.Fatalf("Seed returned error: %v", err)
	}

	party := SampleParty()
	if len(ids) != len(party) {
		t.Fatalf("expected %d ids, got %d", len(party), len(ids))
	}
	if len(stub.created) != len(party) {
		t.Fatalf("expected %d created records, got %d", len(party), len(stub.created))
	}
	for idx, record := range party {
		if !sameProfile(stub.created[idx], record) {
			t.Fatalf("expected record %d to be %#v, got %#v", idx, record, stub.created[idx])
		}
	}
}

func TestServiceSeedReturnsPartialIDsOnFailure(t *testing.T) {
	t.Parallel()

	stub := &stubStore{failCreateAfter: 2}
	service := newTestService(t, stub)

	ids, err := service.Seed(context.Background())
	if err == nil {
		t.Fatalf("expected seed error")
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 ids before failure, got %d", len(ids))
	}
}

func TestServiceListPropagatesStoreError(t *testing.T) {
	t.Parallel()

	stub := &stubStore{listErr: eris.Wrap(ErrTableMissing, "no such table: user")}
	service := newTestService(t, stub)

	_, err := service.ListAllByOwner(context.Background())
	if !eris.Is(err, ErrTableMissing) {
		t.Fatalf("expected ErrTableMissing, got %v", err)
	}
}

func TestServiceReportsOnlyUnexpectedFailures(t *testing.T) {
	t.Parallel()

	logger, hook := logtest.NewNullLogger()

	var captured atomic.Int32
	client, err := sentry.NewClient(sentry.ClientOptions{
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			captured.Add(1)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("sentry.NewClient returned error: %v", err)
	}
	hub := sentry.NewHub(client, sentry.NewScope())

	stub := &stubStore{
		createTableErr: eris.Wrap(ErrTableExists, "creating table user"),
		listErr:        eris.Wrap(ErrTableMissing, "no such table: user"),
	}
	service, err := NewService(stub, logger, hub)
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	ctx := context.Background()

	if err := service.CreateTable(ctx); !eris.Is(err, ErrTableExists) {
		t.Fatalf("expected ErrTableExists, got %v", err)
	}
	if _, err := service.ListAllByOwner(ctx); !eris.Is(err, ErrTableMissing) {
		t.Fatalf("expected ErrTableMissing, got %v", err)
	}

	if got := captured.Load(); got != 0 {
		t.Fatalf("expected no sentry events for schema state errors, got %d", got)
	}
	for _, entry := range hook.AllEntries() {
		if entry.Level != logrus.WarnLevel {
			t.Fatalf("expected warning for %q, got %s", entry.Message, entry.Level)
		}
	}

	stub.createTableErr = errStub("disk I/O error")
	if err := service.CreateTable(ctx); err == nil {
		t.Fatalf("expected CreateTable to fail")
	}

	if got := captured.Load(); got != 1 {
		t.Fatalf("expected one sentry event for disk failure, got %d", got)
	}
	if last := hook.LastEntry(); last == nil || last.Level != logrus.ErrorLevel {
		t.Fatalf("expected error-level entry for disk failure, got %v", last)
	}
}

func TestServiceAgainstSQLite(t *testing.T) {
	t.Parallel()

	store := setupStore(t)
	service, err := NewService(store, silentLogger(), nil)
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	ctx := context.Background()

	if _, err := service.Seed(ctx); err != nil {
		t.Fatalf("Seed returned error: %v", err)
	}

	listed, err := service.ListAllByOwner(ctx)
	if err != nil {
		t.Fatalf("ListAllByOwner returned error: %v", err)
	}

	expectedOwners := []string{"David", "David", "Ryan", "Taylor"}
	if len(listed) != len(expectedOwners) {
		t.Fatalf("expected %d records, got %d", len(expectedOwners), len(listed))
	}
	for idx, owner := range expectedOwners {
		if listed[idx].Owner != owner {
			t.Fatalf("expected owner %q at index %d, got %q", owner, idx, listed[idx].Owner)
		}
	}

	if err := service.Reset(ctx); err != nil {
		t.Fatalf("Reset returned error: %v", err)
	}

	listed, err = service.ListAllByOwner(ctx)
	if err != nil {
		t.Fatalf("ListAllByOwner returned error: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("expected empty roster after reset, got %d", len(listed))
	}
}

func newTestService(t *testing.T, store Store) Service {
	t.Helper()

	service, err := NewService(store, silentLogger(), nil)
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	return service
}

type errStub string

func (e errStub) Error() string {
	return string(e)
}

type stubStore struct {
	createTableErr   error
	dropErr          error
	listErr          error
	failCreateAfter  int
	createTableCalls int
	calls            []string
	created          []Record
	records          []Record
}

var _ Store = (*stubStore)(nil)

func (s *stubStore) CreateTable(context.Context) error {
	s.createTableCalls++
	s.calls = append(s.calls, "create_table")
	return s.createTableErr
}

func (s *stubStore) DropTable(context.Context) error {
	s.calls = append(s.calls, "drop")
	return s.dropErr
}

func (s *stubStore) Create(_ context.Context, record Record) (int64, error) {
	if s.failCreateAfter > 0 && len(s.created) >= s.failCreateAfter {
		return 0, errStub("insert failed")
	}
	s.created = append(s.created, record)
	return int64(len(s.created)), nil
}

func (s *stubStore) ListAllByOwner(context.Context) ([]Record, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]Record{}, s.records...), nil
}

func (s *stubStore) DeleteByID(context.Context, int64) error {
	return nil
}
