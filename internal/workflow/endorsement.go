package workflow

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lmoretti/birchside/internal/models"
)

// EndorsementService owns the endorsement moderation workflow: residents
// submit, admins approve, only approved records reach the public surface.
type EndorsementService struct {
	db     *gorm.DB
	events EventSink
	log    *zap.Logger
}

func NewEndorsementService(gdb *gorm.DB, events EventSink, log *zap.Logger) *EndorsementService {
	if events == nil {
		events = NopSink{}
	}
	return &EndorsementService{db: gdb, events: events, log: log}
}

// ModerationEndorsement joins an endorsement with a snapshot of its author
// for the admin queue.
type ModerationEndorsement struct {
	models.Endorsement
	AuthorName     string `json:"authorName"`
	AuthorEmail    string `json:"authorEmail"`
	AuthorAvatar   string `json:"authorAvatar"`
	AuthorAddress  string `json:"authorAddress"`
	AuthorVerified bool   `json:"authorVerified"`
}

// Submit creates an unapproved endorsement with a redacted display name.
// Requires a verified address.
func (s *EndorsementService) Submit(ctx context.Context, author *models.Resident, message string) (*models.Endorsement, error) {
	if author == nil {
		return nil, &AuthenticationError{}
	}
	if !CanEndorse(author) {
		return nil, &PreconditionError{Code: "address_required", Msg: "add your address to your profile before endorsing"}
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, validationf("message must not be empty")
	}

	endorsement := models.Endorsement{
		AuthorID:    author.ID,
		Message:     message,
		DisplayName: EndorsementDisplayName(author.Name, author.Address),
	}
	if err := s.db.WithContext(ctx).Create(&endorsement).Error; err != nil {
		return nil, err
	}

	s.events.Publish(Event{Type: "endorsement_submitted", Data: endorsement})
	return &endorsement, nil
}

// ListPublic returns approved endorsements, newest first. No authorization
// required.
func (s *EndorsementService) ListPublic(ctx context.Context) ([]models.Endorsement, error) {
	var endorsements []models.Endorsement
	err := s.db.WithContext(ctx).
		Where("is_approved = ?", true).
		Order("created_at desc").
		Find(&endorsements).Error
	return endorsements, err
}

// ListMine returns all of the author's endorsements regardless of approval
// state, newest first.
func (s *EndorsementService) ListMine(ctx context.Context, authorID uint) ([]models.Endorsement, error) {
	var endorsements []models.Endorsement
	err := s.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at desc").
		Find(&endorsements).Error
	return endorsements, err
}

// ListAllForModeration returns every endorsement with its author snapshot.
// Admin only.
func (s *EndorsementService) ListAllForModeration(ctx context.Context, actor *models.Resident) ([]ModerationEndorsement, error) {
	if !CanModerate(actor) {
		return nil, &AuthorizationError{}
	}
	var endorsements []models.Endorsement
	if err := s.db.WithContext(ctx).
		Preload("Author").
		Order("created_at desc").
		Find(&endorsements).Error; err != nil {
		return nil, err
	}

	out := make([]ModerationEndorsement, 0, len(endorsements))
	for _, e := range endorsements {
		out = append(out, ModerationEndorsement{
			Endorsement:    e,
			AuthorName:     e.Author.Name,
			AuthorEmail:    e.Author.Email,
			AuthorAvatar:   e.Author.AvatarURL,
			AuthorAddress:  e.Author.Address,
			AuthorVerified: e.Author.IsVerified(),
		})
	}
	return out, nil
}

// Approve makes an endorsement publicly visible. Idempotent: approving an
// already-approved record is a no-op success. Admin only.
func (s *EndorsementService) Approve(ctx context.Context, actor *models.Resident, id uint) error {
	if !CanModerate(actor) {
		return &AuthorizationError{}
	}
	var endorsement models.Endorsement
	if err := s.db.WithContext(ctx).First(&endorsement, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Entity: "endorsement", ID: id}
		}
		return err
	}
	if endorsement.IsApproved {
		return nil
	}
	if err := s.db.WithContext(ctx).Model(&endorsement).Update("is_approved", true).Error; err != nil {
		return err
	}
	s.events.Publish(Event{Type: "endorsement_approved", Data: endorsement})
	return nil
}

// Remove deletes an endorsement. Allowed for the author and for admins.
func (s *EndorsementService) Remove(ctx context.Context, actor *models.Resident, id uint) error {
	if actor == nil {
		return &AuthenticationError{}
	}
	var endorsement models.Endorsement
	if err := s.db.WithContext(ctx).First(&endorsement, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Entity: "endorsement", ID: id}
		}
		return err
	}
	if !CanMutate(actor, endorsement.AuthorID) {
		return &AuthorizationError{}
	}
	return s.db.WithContext(ctx).Delete(&models.Endorsement{}, id).Error
}
