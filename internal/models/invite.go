package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "PENDING"
	InviteStatusAccepted InviteStatus = "ACCEPTED"
	InviteStatusDeclined InviteStatus = "DECLINED"
	InviteStatusRevoked  InviteStatus = "REVOKED"
	InviteStatusExpired  InviteStatus = "EXPIRED"
)

func (s InviteStatus) Valid() bool {
	switch s {
	case InviteStatusPending, InviteStatusAccepted, InviteStatusDeclined, InviteStatusRevoked, InviteStatusExpired:
		return true
	}
	return false
}

// IsTerminal reports whether no transition may leave s.
func (s InviteStatus) IsTerminal() bool {
	return s != InviteStatusPending && s.Valid()
}

// CanTransitionTo reports whether s -> next is an allowed invite transition.
// Only PENDING has outgoing edges.
func (s InviteStatus) CanTransitionTo(next InviteStatus) bool {
	return s == InviteStatusPending && next.IsTerminal()
}

// Lower is the status name used in user-facing messages.
func (s InviteStatus) Lower() string {
	return strings.ToLower(string(s))
}

type Invite struct {
	ID          string       `gorm:"primaryKey;size:36" bson:"_id" json:"id"`
	Email       string       `gorm:"type:varchar(255);not null" bson:"email" json:"email"`
	InvitedBy   string       `gorm:"size:36;not null" bson:"invitedBy" json:"invitedBy"`
	Role        Role         `gorm:"type:varchar(20);not null;default:'STAFF'" bson:"role" json:"role"`
	Status      InviteStatus `gorm:"type:varchar(20);not null;default:'PENDING'" bson:"status" json:"status"`
	InviteToken string       `gorm:"type:varchar(128);uniqueIndex;not null" bson:"inviteToken" json:"-"`
	// PendingEmail mirrors Email while the invite is PENDING and is cleared on
	// any transition. Its unique index allows at most one pending invite per email.
	PendingEmail *string    `gorm:"type:varchar(255);uniqueIndex" bson:"pendingEmail,omitempty" json:"-"`
	ExpiresAt    time.Time  `gorm:"not null" bson:"expiresAt" json:"expiresAt"`
	AcceptedAt   *time.Time `bson:"acceptedAt,omitempty" json:"acceptedAt,omitempty"`
	AcceptedBy   *string    `gorm:"size:36" bson:"acceptedBy,omitempty" json:"acceptedBy,omitempty"`
	ProjectID    *string    `gorm:"size:36" bson:"projectId,omitempty" json:"projectId,omitempty"`
	CreatedAt    time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time  `bson:"updatedAt" json:"updatedAt"`
}

func (i *Invite) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// NewPendingInvite builds a PENDING invite expiring ttl after now.
func NewPendingInvite(email string, role Role, invitedBy, token string, projectID *string, now time.Time, ttl time.Duration) *Invite {
	email = NormalizeEmail(email)
	pending := email
	return &Invite{
		ID:           uuid.NewString(),
		Email:        email,
		InvitedBy:    invitedBy,
		Role:         role,
		Status:       InviteStatusPending,
		InviteToken:  token,
		PendingEmail: &pending,
		ExpiresAt:    now.Add(ttl),
		ProjectID:    projectID,
	}
}

// HasLapsed reports whether a still-pending invite is past its expiry.
func (i *Invite) HasLapsed(now time.Time) bool {
	return i.Status == InviteStatusPending && !i.ExpiresAt.After(now)
}

// AcceptedFor reports whether the invite was accepted by userID.
func (i *Invite) AcceptedFor(userID string) bool {
	return i.Status == InviteStatusAccepted && i.AcceptedBy != nil && *i.AcceptedBy == userID && i.AcceptedAt != nil
}
