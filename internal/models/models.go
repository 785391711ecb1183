package models

import (
	"strings"
	"time"
)

// Resident is an authenticated community member, created on first sign-in.
type Resident struct {
	ID                 uint       `gorm:"primarykey" json:"id"`
	GoogleSubject      string     `gorm:"uniqueIndex;not null" json:"-"`
	Name               string     `json:"name"`
	Email              string     `gorm:"index" json:"email"`
	AvatarURL          string     `json:"avatarUrl"`
	Address            string     `json:"address,omitempty"`
	IsAdmin            bool       `gorm:"not null;default:false" json:"isAdmin"`
	WelcomeEmailSentAt *time.Time `json:"-"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`

	Endorsements []Endorsement `gorm:"foreignKey:AuthorID" json:"-"`
	Requests     []Request     `gorm:"foreignKey:AuthorID" json:"-"`
}

// IsVerified reports whether the resident has an address on file. Address
// verification gates endorsement submission but not help requests.
func (r *Resident) IsVerified() bool {
	return strings.TrimSpace(r.Address) != ""
}

// Endorsement is a public statement of support. It stays hidden until an
// admin approves it, and its DisplayName never carries the author's full
// name or house number.
type Endorsement struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	AuthorID    uint      `gorm:"not null;index" json:"-"`
	Message     string    `gorm:"not null" json:"message"`
	DisplayName string    `gorm:"not null" json:"displayName"`
	IsApproved  bool      `gorm:"not null;default:false" json:"isApproved"`
	CreatedAt   time.Time `json:"createdAt"`

	Author Resident `gorm:"foreignKey:AuthorID" json:"-"`
}

// RequestStatus is the lifecycle state of a help request.
type RequestStatus string

const (
	StatusOpen       RequestStatus = "OPEN"
	StatusInProgress RequestStatus = "IN_PROGRESS"
	StatusResolved   RequestStatus = "RESOLVED"
)

// Valid reports whether s is one of the known statuses.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// Request is a resident's help ticket. Status starts OPEN and flips to
// IN_PROGRESS automatically on the first reply; admins may set any status
// directly.
type Request struct {
	ID          uint          `gorm:"primarykey" json:"id"`
	AuthorID    uint          `gorm:"not null;index" json:"-"`
	Title       string        `gorm:"not null" json:"title"`
	Description string        `gorm:"not null" json:"description"`
	Status      RequestStatus `gorm:"type:varchar(16);not null;default:'OPEN'" json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`

	Author  Resident `gorm:"foreignKey:AuthorID" json:"-"`
	Replies []Reply  `gorm:"foreignKey:RequestID" json:"replies,omitempty"`
}

// Reply is one message in a request thread. The author name is snapshotted
// at creation time; replies are immutable except for admin deletion.
type Reply struct {
	ID                uint      `gorm:"primarykey" json:"id"`
	RequestID         uint      `gorm:"not null;index" json:"requestId"`
	AuthorID          uint      `gorm:"not null" json:"-"`
	AuthorDisplayName string    `json:"authorDisplayName"`
	Content           string    `gorm:"not null" json:"content"`
	CreatedAt         time.Time `json:"createdAt"`
}

// All lists every model for migration.
func All() []any {
	return []any{&Resident{}, &Endorsement{}, &Request{}, &Reply{}}
}
