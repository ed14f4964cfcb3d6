package auth

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/lms/internal/logging"
)

var testSecret = []byte("test-secret-key")

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock() *fixedClock {
	return &fixedClock{now: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newBufferLogger(t *testing.T) (logging.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return logging.NewSlogLogger(slog.New(h)), &buf
}

func newPair(t *testing.T, opts ...Option) (*Issuer, *Verifier) {
	t.Helper()
	iss, err := NewIssuer(testSecret, logging.Nop(), opts...)
	if err != nil {
		t.Fatalf("NewIssuer error: %v", err)
	}
	ver, err := NewVerifier(testSecret, logging.Nop(), opts...)
	if err != nil {
		t.Fatalf("NewVerifier error: %v", err)
	}
	return iss, ver
}

type countingObserver struct {
	mu       sync.Mutex
	issued   map[TokenType]int
	verified map[Reason]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{issued: map[TokenType]int{}, verified: map[Reason]int{}}
}

func (o *countingObserver) TokenIssued(tt TokenType) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.issued[tt]++
}

func (o *countingObserver) TokenVerified(_ TokenType, r Reason) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.verified[r]++
}
