package workflow

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Principal is the verified identity supplied by the OAuth provider.
type Principal struct {
	Subject   string
	Name      string
	Email     string
	AvatarURL string
}

// ThreadMessage is one entry in the reply thread included in a
// staff-reply email.
type ThreadMessage struct {
	Author  string
	Content string
	SentAt  time.Time
}

// ReplyNotification carries everything the REQUEST_REPLY template needs.
type ReplyNotification struct {
	RequestTitle  string
	RecipientName string
	ReplyAuthor   string
	// Elapsed is the human-readable time between the request's creation
	// and this reply, display only.
	Elapsed string
	Thread  []ThreadMessage
}

// Mailer delivers transactional email. Implementations enforce their own
// bounded timeout and report failure as a return value; the workflows
// invoke them after commit and only log the result.
type Mailer interface {
	SendWelcome(ctx context.Context, to, name string) error
	SendRequestReply(ctx context.Context, to string, n ReplyNotification) error
}

// Event is a domain event pushed to the admin dashboard feed.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// EventSink receives domain events. Publish must not block.
type EventSink interface {
	Publish(Event)
}

// NopSink discards events.
type NopSink struct{}

func (NopSink) Publish(Event) {}

// dispatch runs an email send off the request path and logs the outcome.
// The mutating operation has already committed by the time this runs, so
// a delivery failure cannot affect its result.
func dispatch(log *zap.Logger, op string, timeout time.Duration, send func(context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := send(ctx); err != nil {
			log.Warn("notification delivery failed", zap.String("op", op), zap.Error(err))
			return
		}
		log.Info("notification delivered", zap.String("op", op))
	}()
}
