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

// RequestService owns the help-request lifecycle: creation, threaded
// replies, the OPEN→IN_PROGRESS auto-transition, and staff-reply
// notifications.
type RequestService struct {
	db          *gorm.DB
	mailer      Mailer
	events      EventSink
	log         *zap.Logger
	mailTimeout time.Duration
}

func NewRequestService(gdb *gorm.DB, mailer Mailer, events EventSink, log *zap.Logger, mailTimeout time.Duration) *RequestService {
	if events == nil {
		events = NopSink{}
	}
	if mailTimeout <= 0 {
		mailTimeout = 10 * time.Second
	}
	return &RequestService{db: gdb, mailer: mailer, events: events, log: log, mailTimeout: mailTimeout}
}

// AdminRequest joins a request with its author snapshot for the admin
// dashboard.
type AdminRequest struct {
	models.Request
	AuthorName  string `json:"authorName"`
	AuthorEmail string `json:"authorEmail"`
}

// Create opens a new help request. Any authenticated resident may file
// one; address verification is not required here, unlike endorsements.
func (s *RequestService) Create(ctx context.Context, author *models.Resident, title, description string) (*models.Request, error) {
	if author == nil {
		return nil, &AuthenticationError{}
	}
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" {
		return nil, validationf("title must not be empty")
	}
	if description == "" {
		return nil, validationf("description must not be empty")
	}

	request := models.Request{
		AuthorID:    author.ID,
		Title:       title,
		Description: description,
		Status:      models.StatusOpen,
	}
	if err := s.db.WithContext(ctx).Create(&request).Error; err != nil {
		return nil, err
	}

	s.events.Publish(Event{Type: "request_created", Data: request})
	return &request, nil
}

// ListMine returns the author's requests with their reply threads, newest
// first.
func (s *RequestService) ListMine(ctx context.Context, authorID uint) ([]models.Request, error) {
	var requests []models.Request
	err := s.db.WithContext(ctx).
		Preload("Replies", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at asc") }).
		Where("author_id = ?", authorID).
		Order("created_at desc").
		Find(&requests).Error
	return requests, err
}

// ListAllForAdmin returns every request with thread and author snapshot.
// Admin only.
func (s *RequestService) ListAllForAdmin(ctx context.Context, actor *models.Resident) ([]AdminRequest, error) {
	if !CanModerate(actor) {
		return nil, &AuthorizationError{}
	}
	var requests []models.Request
	if err := s.db.WithContext(ctx).
		Preload("Replies", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at asc") }).
		Preload("Author").
		Order("created_at desc").
		Find(&requests).Error; err != nil {
		return nil, err
	}

	out := make([]AdminRequest, 0, len(requests))
	for _, r := range requests {
		out = append(out, AdminRequest{
			Request:     r,
			AuthorName:  r.Author.Name,
			AuthorEmail: r.Author.Email,
		})
	}
	return out, nil
}

// AddReply appends a message to a request thread. If the request is still
// OPEN it flips to IN_PROGRESS in the same transaction, via a conditional
// update so concurrent first replies cannot double-trigger. When the actor
// is an admin and the request's author has an email on file, the author is
// notified after commit; resident replies notify nobody.
func (s *RequestService) AddReply(ctx context.Context, actor *models.Resident, requestID uint, content string) (*models.Reply, error) {
	if actor == nil {
		return nil, &AuthenticationError{}
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, validationf("content must not be empty")
	}

	var request models.Request
	var reply models.Reply
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Author").First(&request, requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "request", ID: requestID}
			}
			return err
		}

		reply = models.Reply{
			RequestID:         requestID,
			AuthorID:          actor.ID,
			AuthorDisplayName: actor.Name,
			Content:           content,
		}
		if err := tx.Create(&reply).Error; err != nil {
			return err
		}

		res := tx.Model(&models.Request{}).
			Where("id = ? AND status = ?", requestID, models.StatusOpen).
			Update("status", models.StatusInProgress)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			request.Status = models.StatusInProgress
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(Event{Type: "reply_added", Data: reply})

	if actor.IsAdmin && request.Author.Email != "" {
		s.notifyAuthor(ctx, &request, &reply, actor.Name)
	}
	return &reply, nil
}

func (s *RequestService) notifyAuthor(ctx context.Context, request *models.Request, reply *models.Reply, replyAuthor string) {
	var thread []models.Reply
	if err := s.db.WithContext(ctx).
		Where("request_id = ?", request.ID).
		Order("created_at asc").
		Find(&thread).Error; err != nil {
		s.log.Warn("loading thread for notification failed", zap.Uint("request", request.ID), zap.Error(err))
		thread = []models.Reply{*reply}
	}

	messages := make([]ThreadMessage, 0, len(thread))
	for _, r := range thread {
		messages = append(messages, ThreadMessage{Author: r.AuthorDisplayName, Content: r.Content, SentAt: r.CreatedAt})
	}

	notification := ReplyNotification{
		RequestTitle:  request.Title,
		RecipientName: request.Author.Name,
		ReplyAuthor:   replyAuthor,
		Elapsed:       ElapsedString(reply.CreatedAt.Sub(request.CreatedAt)),
		Thread:        messages,
	}
	to := request.Author.Email
	dispatch(s.log, "request_reply_email", s.mailTimeout, func(ctx context.Context) error {
		return s.mailer.SendRequestReply(ctx, to, notification)
	})
}

// SetStatus sets a request's status directly. Admins hold override
// authority: any status may be set at any time, backward included.
func (s *RequestService) SetStatus(ctx context.Context, actor *models.Resident, requestID uint, status models.RequestStatus) (*models.Request, error) {
	if !CanModerate(actor) {
		return nil, &AuthorizationError{}
	}
	if !status.Valid() {
		return nil, validationf("unknown status %q", status)
	}
	var request models.Request
	if err := s.db.WithContext(ctx).First(&request, requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "request", ID: requestID}
		}
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&request).Update("status", status).Error; err != nil {
		return nil, err
	}
	s.events.Publish(Event{Type: "status_changed", Data: request})
	return &request, nil
}

// DeleteRequest removes a request and its replies. Admin only.
func (s *RequestService) DeleteRequest(ctx context.Context, actor *models.Resident, requestID uint) error {
	if !CanModerate(actor) {
		return &AuthorizationError{}
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var request models.Request
		if err := tx.First(&request, requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "request", ID: requestID}
			}
			return err
		}
		if err := tx.Where("request_id = ?", requestID).Delete(&models.Reply{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Request{}, requestID).Error
	})
}

// DeleteReply removes a single reply. Admin only.
func (s *RequestService) DeleteReply(ctx context.Context, actor *models.Resident, replyID uint) error {
	if !CanModerate(actor) {
		return &AuthorizationError{}
	}
	var reply models.Reply
	if err := s.db.WithContext(ctx).First(&reply, replyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Entity: "reply", ID: replyID}
		}
		return err
	}
	return s.db.WithContext(ctx).Delete(&models.Reply{}, replyID).Error
}
