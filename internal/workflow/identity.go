package workflow

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lmoretti/birchside/internal/models"
)

// IdentityService maps authenticated principals to resident records and
// owns resident-profile mutations.
type IdentityService struct {
	db          *gorm.DB
	mailer      Mailer
	log         *zap.Logger
	adminEmails map[string]struct{}
	mailTimeout time.Duration
}

// NewIdentityService builds the resolver. Emails in adminEmails receive
// the admin flag at first sign-in; after that the flag is mutable only
// through SetAdmin.
func NewIdentityService(gdb *gorm.DB, mailer Mailer, log *zap.Logger, adminEmails []string, mailTimeout time.Duration) *IdentityService {
	set := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			set[e] = struct{}{}
		}
	}
	if mailTimeout <= 0 {
		mailTimeout = 10 * time.Second
	}
	return &IdentityService{db: gdb, mailer: mailer, log: log, adminEmails: set, mailTimeout: mailTimeout}
}

// Resolve fetches the resident for a verified principal, creating the
// record on first sign-in. The one-time welcome email is claimed with a
// conditional update so concurrent first requests cannot double-send.
func (s *IdentityService) Resolve(ctx context.Context, p Principal) (*models.Resident, error) {
	if p.Subject == "" {
		return nil, &AuthenticationError{}
	}

	var resident models.Resident
	err := s.db.WithContext(ctx).Where("google_subject = ?", p.Subject).First(&resident).Error
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		resident = models.Resident{
			GoogleSubject: p.Subject,
			Name:          p.Name,
			Email:         p.Email,
			AvatarURL:     p.AvatarURL,
			IsAdmin:       s.isBootstrapAdmin(p.Email),
		}
		if cerr := s.db.WithContext(ctx).Create(&resident).Error; cerr != nil {
			// Lost a race with a concurrent first sign-in; the unique
			// index on google_subject guarantees the row now exists.
			if ferr := s.db.WithContext(ctx).Where("google_subject = ?", p.Subject).First(&resident).Error; ferr != nil {
				return nil, cerr
			}
		}
	default:
		return nil, err
	}

	s.maybeSendWelcome(ctx, &resident)
	return &resident, nil
}

func (s *IdentityService) isBootstrapAdmin(email string) bool {
	_, ok := s.adminEmails[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

func (s *IdentityService) maybeSendWelcome(ctx context.Context, r *models.Resident) {
	if r.Email == "" || r.WelcomeEmailSentAt != nil {
		return
	}
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&models.Resident{}).
		Where("id = ? AND welcome_email_sent_at IS NULL", r.ID).
		Update("welcome_email_sent_at", now)
	if res.Error != nil {
		s.log.Error("welcome claim failed", zap.Uint("resident", r.ID), zap.Error(res.Error))
		return
	}
	if res.RowsAffected == 0 {
		// Another request claimed the send.
		return
	}
	r.WelcomeEmailSentAt = &now

	to, name := r.Email, r.Name
	dispatch(s.log, "welcome_email", s.mailTimeout, func(ctx context.Context) error {
		return s.mailer.SendWelcome(ctx, to, name)
	})
}

// Get loads a resident by id.
func (s *IdentityService) Get(ctx context.Context, id uint) (*models.Resident, error) {
	var resident models.Resident
	if err := s.db.WithContext(ctx).First(&resident, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "resident", ID: id}
		}
		return nil, err
	}
	return &resident, nil
}

// UpdateProfile applies a self-service edit to the actor's own name and
// address. An empty address clears verification.
func (s *IdentityService) UpdateProfile(ctx context.Context, actor *models.Resident, name, address string) (*models.Resident, error) {
	if actor == nil {
		return nil, &AuthenticationError{}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("name must not be empty")
	}
	address = strings.TrimSpace(address)

	if err := s.db.WithContext(ctx).Model(&models.Resident{}).
		Where("id = ?", actor.ID).
		Select("name", "address").
		Updates(map[string]any{"name": name, "address": address}).Error; err != nil {
		return nil, err
	}
	return s.Get(ctx, actor.ID)
}

// SetAdmin toggles another resident's admin flag. Admin only.
func (s *IdentityService) SetAdmin(ctx context.Context, actor *models.Resident, id uint, isAdmin bool) (*models.Resident, error) {
	if !CanModerate(actor) {
		return nil, &AuthorizationError{}
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.Resident{}).
		Where("id = ?", id).
		Update("is_admin", isAdmin).Error; err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// DeleteResident removes a resident and everything they own in one
// transaction: endorsements, requests, the replies under those requests,
// and replies the resident authored elsewhere. Admin only.
func (s *IdentityService) DeleteResident(ctx context.Context, actor *models.Resident, id uint) error {
	if !CanModerate(actor) {
		return &AuthorizationError{}
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var resident models.Resident
		if err := tx.First(&resident, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "resident", ID: id}
			}
			return err
		}

		ownedRequests := tx.Model(&models.Request{}).Select("id").Where("author_id = ?", id)
		if err := tx.Where("request_id IN (?)", ownedRequests).Delete(&models.Reply{}).Error; err != nil {
			return err
		}
		if err := tx.Where("author_id = ?", id).Delete(&models.Reply{}).Error; err != nil {
			return err
		}
		if err := tx.Where("author_id = ?", id).Delete(&models.Request{}).Error; err != nil {
			return err
		}
		if err := tx.Where("author_id = ?", id).Delete(&models.Endorsement{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Resident{}, id).Error
	})
}
