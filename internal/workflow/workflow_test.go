package workflow

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lmoretti/birchside/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	if err := gdb.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return gdb
}

func seedResident(t *testing.T, gdb *gorm.DB, r models.Resident) *models.Resident {
	t.Helper()
	if r.GoogleSubject == "" {
		r.GoogleSubject = "sub-" + r.Name + "-" + r.Email
	}
	if err := gdb.Create(&r).Error; err != nil {
		t.Fatalf("seeding resident: %v", err)
	}
	return &r
}

// fakeMailer records sends on channels so tests can observe the
// fire-and-forget dispatch deterministically.
type fakeMailer struct {
	welcome chan string
	replies chan ReplyNotification
	fail    bool
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{
		welcome: make(chan string, 8),
		replies: make(chan ReplyNotification, 8),
	}
}

func (m *fakeMailer) SendWelcome(ctx context.Context, to, name string) error {
	if m.fail {
		return &DependencyFailure{Op: "fake smtp", Err: errors.New("provider down")}
	}
	m.welcome <- to
	return nil
}

func (m *fakeMailer) SendRequestReply(ctx context.Context, to string, n ReplyNotification) error {
	if m.fail {
		return &DependencyFailure{Op: "fake smtp", Err: errors.New("provider down")}
	}
	m.replies <- n
	return nil
}

func waitForSend[T any](t *testing.T, ch chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification dispatch")
		panic("unreachable")
	}
}

func expectNoSend[T any](t *testing.T, ch chan T) {
	t.Helper()
	select {
	case <-ch:
		t.Fatal("unexpected notification dispatched")
	case <-time.After(100 * time.Millisecond):
	}
}

func testLogger() *zap.Logger { return zap.NewNop() }
