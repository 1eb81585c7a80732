package log

import (
	"testing"
)

func TestInitSentryWithoutDSNIsNoop(t *testing.T) {
	t.Parallel()

	hub, flush, err := InitSentry(nil, SentrySettings{})
	if err != nil {
		t.Fatalf("InitSentry returned error: %v", err)
	}
	if hub != nil {
		t.Fatalf("expected nil hub without DSN")
	}
	flush()
}

func TestInitSentryRejectsMalformedDSN(t *testing.T) {
	t.Parallel()

	if _, _, err := InitSentry(nil, SentrySettings{DSN: "not a dsn"}); err == nil {
		t.Fatalf("expected error for malformed DSN")
	}
}
