package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lmoretti/birchside/internal/models"
)

func TestResolveCreatesResidentOnFirstSignIn(t *testing.T) {
	gdb := newTestDB(t)
	mailer := newFakeMailer()
	svc := NewIdentityService(gdb, mailer, testLogger(), nil, time.Second)

	resident, err := svc.Resolve(context.Background(), Principal{
		Subject: "google-1", Name: "Jane Doe", Email: "jane@example.com", AvatarURL: "http://img",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resident.ID == 0 || resident.Name != "Jane Doe" || resident.IsAdmin {
		t.Fatalf("unexpected resident: %+v", resident)
	}
	if resident.IsVerified() {
		t.Fatal("new resident should not be verified without an address")
	}

	if to := waitForSend(t, mailer.welcome); to != "jane@example.com" {
		t.Fatalf("welcome sent to %q", to)
	}
	if resident.WelcomeEmailSentAt == nil {
		t.Fatal("welcome stamp not set")
	}
}

func TestResolveIsIdempotentAndWelcomeSendsOnce(t *testing.T) {
	gdb := newTestDB(t)
	mailer := newFakeMailer()
	svc := NewIdentityService(gdb, mailer, testLogger(), nil, time.Second)

	p := Principal{Subject: "google-1", Name: "Jane Doe", Email: "jane@example.com"}
	first, err := svc.Resolve(context.Background(), p)
	if err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	waitForSend(t, mailer.welcome)

	second, err := svc.Resolve(context.Background(), p)
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("resolved to different residents: %d then %d", first.ID, second.ID)
	}
	expectNoSend(t, mailer.welcome)

	var count int64
	gdb.Model(&models.Resident{}).Count(&count)
	if count != 1 {
		t.Fatalf("want 1 resident, got %d", count)
	}
}

func TestResolveRejectsEmptyPrincipal(t *testing.T) {
	svc := NewIdentityService(newTestDB(t), newFakeMailer(), testLogger(), nil, time.Second)

	_, err := svc.Resolve(context.Background(), Principal{})
	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("want AuthenticationError, got %v", err)
	}
}

func TestResolveBootstrapsAdminFromConfiguredEmails(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewIdentityService(gdb, newFakeMailer(), testLogger(), []string{"Mayor@Example.com"}, time.Second)

	resident, err := svc.Resolve(context.Background(), Principal{Subject: "g-admin", Name: "Mayor", Email: "mayor@example.com"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !resident.IsAdmin {
		t.Fatal("configured email should get the admin flag at first sign-in")
	}
}

func TestResolveWithoutEmailSkipsWelcome(t *testing.T) {
	gdb := newTestDB(t)
	mailer := newFakeMailer()
	svc := NewIdentityService(gdb, mailer, testLogger(), nil, time.Second)

	resident, err := svc.Resolve(context.Background(), Principal{Subject: "g-noemail", Name: "Ghost"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	expectNoSend(t, mailer.welcome)
	if resident.WelcomeEmailSentAt != nil {
		t.Fatal("welcome stamp set despite missing email")
	}
}

func TestWelcomeClaimIsConditional(t *testing.T) {
	gdb := newTestDB(t)
	resident := seedResident(t, gdb, models.Resident{Name: "Jane", Email: "jane@example.com"})

	// The claim is a conditional update; only the first writer wins.
	claim := func() int64 {
		res := gdb.Model(&models.Resident{}).
			Where("id = ? AND welcome_email_sent_at IS NULL", resident.ID).
			Update("welcome_email_sent_at", time.Now())
		if res.Error != nil {
			t.Fatalf("claim: %v", res.Error)
		}
		return res.RowsAffected
	}
	if got := claim(); got != 1 {
		t.Fatalf("first claim affected %d rows, want 1", got)
	}
	if got := claim(); got != 0 {
		t.Fatalf("second claim affected %d rows, want 0", got)
	}
}

func TestUpdateProfile(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewIdentityService(gdb, newFakeMailer(), testLogger(), nil, time.Second)
	resident := seedResident(t, gdb, models.Resident{Name: "Jane Doe", Email: "jane@example.com"})

	updated, err := svc.UpdateProfile(context.Background(), resident, "Jane Doe", "123 Main Street")
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if !updated.IsVerified() {
		t.Fatal("resident should be verified after adding an address")
	}

	if _, err := svc.UpdateProfile(context.Background(), resident, "   ", "123 Main Street"); err == nil {
		t.Fatal("empty name should fail validation")
	}

	// Clearing the address drops verification.
	cleared, err := svc.UpdateProfile(context.Background(), resident, "Jane Doe", "")
	if err != nil {
		t.Fatalf("UpdateProfile clear: %v", err)
	}
	if cleared.IsVerified() {
		t.Fatal("resident should be unverified after clearing the address")
	}
}

func TestSetAdminRequiresAdmin(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewIdentityService(gdb, newFakeMailer(), testLogger(), nil, time.Second)
	admin := seedResident(t, gdb, models.Resident{Name: "Admin", IsAdmin: true})
	resident := seedResident(t, gdb, models.Resident{Name: "Jane"})

	var authzErr *AuthorizationError
	if _, err := svc.SetAdmin(context.Background(), resident, admin.ID, false); !errors.As(err, &authzErr) {
		t.Fatalf("want AuthorizationError, got %v", err)
	}

	promoted, err := svc.SetAdmin(context.Background(), admin, resident.ID, true)
	if err != nil {
		t.Fatalf("SetAdmin: %v", err)
	}
	if !promoted.IsAdmin {
		t.Fatal("resident should be admin after promotion")
	}
}

func TestDeleteResidentCascades(t *testing.T) {
	gdb := newTestDB(t)
	mailer := newFakeMailer()
	identity := NewIdentityService(gdb, mailer, testLogger(), nil, time.Second)
	endorsements := NewEndorsementService(gdb, nil, testLogger())
	requests := NewRequestService(gdb, mailer, nil, testLogger(), time.Second)

	admin := seedResident(t, gdb, models.Resident{Name: "Admin", IsAdmin: true})
	resident := seedResident(t, gdb, models.Resident{Name: "Jane Doe", Email: "jane@example.com", Address: "123 Main Street"})

	if _, err := endorsements.Submit(context.Background(), resident, "I support this"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	request, err := requests.Create(context.Background(), resident, "Pothole", "Big one on Main")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := requests.AddReply(context.Background(), resident, request.ID, "any update?"); err != nil {
		t.Fatalf("AddReply: %v", err)
	}
	if _, err := requests.AddReply(context.Background(), admin, request.ID, "on it"); err != nil {
		t.Fatalf("AddReply: %v", err)
	}

	if err := identity.DeleteResident(context.Background(), admin, resident.ID); err != nil {
		t.Fatalf("DeleteResident: %v", err)
	}

	counts := map[string]int64{}
	for name, model := range map[string]any{
		"residents":    &models.Resident{},
		"endorsements": &models.Endorsement{},
		"requests":     &models.Request{},
		"replies":      &models.Reply{},
	} {
		var n int64
		gdb.Model(model).Count(&n)
		counts[name] = n
	}
	if counts["residents"] != 1 { // only the admin remains
		t.Fatalf("want 1 resident, got %d", counts["residents"])
	}
	for _, name := range []string{"endorsements", "requests", "replies"} {
		if counts[name] != 0 {
			t.Fatalf("orphaned %s rows remain: %d", name, counts[name])
		}
	}
}

func TestDeleteResidentRequiresAdmin(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewIdentityService(gdb, newFakeMailer(), testLogger(), nil, time.Second)
	a := seedResident(t, gdb, models.Resident{Name: "A"})
	b := seedResident(t, gdb, models.Resident{Name: "B"})

	var authzErr *AuthorizationError
	if err := svc.DeleteResident(context.Background(), a, b.ID); !errors.As(err, &authzErr) {
		t.Fatalf("want AuthorizationError, got %v", err)
	}
}
