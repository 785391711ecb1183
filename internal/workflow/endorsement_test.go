package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/lmoretti/birchside/internal/models"
)

func TestSubmitRequiresVerifiedAddress(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewEndorsementService(gdb, nil, testLogger())
	unverified := seedResident(t, gdb, models.Resident{Name: "Jane Doe", Email: "jane@example.com"})

	_, err := svc.Submit(context.Background(), unverified, "I support this")
	var precondErr *PreconditionError
	if !errors.As(err, &precondErr) {
		t.Fatalf("want PreconditionError, got %v", err)
	}
	if precondErr.Code != "address_required" {
		t.Fatalf("want code address_required, got %q", precondErr.Code)
	}
}

func TestSubmitRejectsEmptyMessage(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewEndorsementService(gdb, nil, testLogger())
	resident := seedResident(t, gdb, models.Resident{Name: "Jane Doe", Address: "123 Main Street"})

	var valErr *ValidationError
	if _, err := svc.Submit(context.Background(), resident, "   "); !errors.As(err, &valErr) {
		t.Fatalf("want ValidationError, got %v", err)
	}
}

func TestSubmitRedactsDisplayName(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewEndorsementService(gdb, nil, testLogger())
	resident := seedResident(t, gdb, models.Resident{Name: "Jane Doe", Address: "123 Main Street"})

	endorsement, err := svc.Submit(context.Background(), resident, "I support this")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if endorsement.DisplayName != "Resident on Main Street - J.D." {
		t.Fatalf("displayName = %q", endorsement.DisplayName)
	}
	if endorsement.IsApproved {
		t.Fatal("new endorsements must start unapproved")
	}
}

func TestListPublicOnlyShowsApproved(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewEndorsementService(gdb, nil, testLogger())
	admin := seedResident(t, gdb, models.Resident{Name: "Admin", IsAdmin: true})
	resident := seedResident(t, gdb, models.Resident{Name: "Jane Doe", Address: "123 Main Street"})

	endorsement, err := svc.Submit(context.Background(), resident, "I support this")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	public, err := svc.ListPublic(context.Background())
	if err != nil {
		t.Fatalf("ListPublic: %v", err)
	}
	if len(public) != 0 {
		t.Fatalf("unapproved endorsement leaked to public list: %+v", public)
	}

	mine, err := svc.ListMine(context.Background(), resident.ID)
	if err != nil {
		t.Fatalf("ListMine: %v", err)
	}
	if len(mine) != 1 {
		t.Fatalf("author should see their pending endorsement, got %d", len(mine))
	}

	if err := svc.Approve(context.Background(), admin, endorsement.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	public, err = svc.ListPublic(context.Background())
	if err != nil {
		t.Fatalf("ListPublic: %v", err)
	}
	if len(public) != 1 || public[0].DisplayName != "Resident on Main Street - J.D." {
		t.Fatalf("approved endorsement missing or mangled: %+v", public)
	}
}

func TestApproveIsIdempotent(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewEndorsementService(gdb, nil, testLogger())
	admin := seedResident(t, gdb, models.Resident{Name: "Admin", IsAdmin: true})
	resident := seedResident(t, gdb, models.Resident{Name: "Jane Doe", Address: "123 Main Street"})

	endorsement, err := svc.Submit(context.Background(), resident, "I support this")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := svc.Approve(context.Background(), admin, endorsement.ID); err != nil {
		t.Fatalf("first Approve: %v", err)
	}
	if err := svc.Approve(context.Background(), admin, endorsement.ID); err != nil {
		t.Fatalf("second Approve should be a no-op success, got %v", err)
	}

	var reloaded models.Endorsement
	if err := gdb.First(&reloaded, endorsement.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reloaded.IsApproved {
		t.Fatal("endorsement should stay approved")
	}
}

func TestApproveRequiresAdmin(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewEndorsementService(gdb, nil, testLogger())
	resident := seedResident(t, gdb, models.Resident{Name: "Jane Doe", Address: "123 Main Street"})

	endorsement, err := svc.Submit(context.Background(), resident, "I support this")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	var authzErr *AuthorizationError
	if err := svc.Approve(context.Background(), resident, endorsement.ID); !errors.As(err, &authzErr) {
		t.Fatalf("want AuthorizationError, got %v", err)
	}
}

func TestRemoveAuthorization(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewEndorsementService(gdb, nil, testLogger())
	admin := seedResident(t, gdb, models.Resident{Name: "Admin", IsAdmin: true})
	author := seedResident(t, gdb, models.Resident{Name: "Jane Doe", Address: "123 Main Street"})
	stranger := seedResident(t, gdb, models.Resident{Name: "Sam Stone", Address: "9 Oak Lane"})

	endorsement, err := svc.Submit(context.Background(), author, "I support this")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	var authzErr *AuthorizationError
	if err := svc.Remove(context.Background(), stranger, endorsement.ID); !errors.As(err, &authzErr) {
		t.Fatalf("stranger removal: want AuthorizationError, got %v", err)
	}
	var count int64
	gdb.Model(&models.Endorsement{}).Count(&count)
	if count != 1 {
		t.Fatal("failed removal must leave the record unchanged")
	}

	if err := svc.Remove(context.Background(), author, endorsement.ID); err != nil {
		t.Fatalf("author removal: %v", err)
	}

	second, err := svc.Submit(context.Background(), author, "Still support this")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := svc.Remove(context.Background(), admin, second.ID); err != nil {
		t.Fatalf("admin removal: %v", err)
	}

	var notFoundErr *NotFoundError
	if err := svc.Remove(context.Background(), admin, 9999); !errors.As(err, &notFoundErr) {
		t.Fatalf("want NotFoundError, got %v", err)
	}
}

func TestListAllForModeration(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewEndorsementService(gdb, nil, testLogger())
	admin := seedResident(t, gdb, models.Resident{Name: "Admin", IsAdmin: true})
	author := seedResident(t, gdb, models.Resident{Name: "Jane Doe", Email: "jane@example.com", Address: "123 Main Street"})

	if _, err := svc.Submit(context.Background(), author, "I support this"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	var authzErr *AuthorizationError
	if _, err := svc.ListAllForModeration(context.Background(), author); !errors.As(err, &authzErr) {
		t.Fatalf("want AuthorizationError, got %v", err)
	}

	all, err := svc.ListAllForModeration(context.Background(), admin)
	if err != nil {
		t.Fatalf("ListAllForModeration: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("want 1 endorsement, got %d", len(all))
	}
	row := all[0]
	if row.AuthorName != "Jane Doe" || row.AuthorEmail != "jane@example.com" || !row.AuthorVerified {
		t.Fatalf("author snapshot incomplete: %+v", row)
	}
}
