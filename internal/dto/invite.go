package dto

import (
	"time"

	"github.com/yukikurage/project-management-api/internal/models"
)

// InviteDTO represents an invite in admin responses
type InviteDTO struct {
	ID          string              `json:"id"`
	Email       string              `json:"email"`
	Role        models.Role         `json:"role"`
	Status      models.InviteStatus `json:"status"`
	InvitedBy   UserRefDTO          `json:"invitedBy"`
	ProjectID   *string             `json:"projectId,omitempty"`
	ExpiresAt   time.Time           `json:"expiresAt"`
	AcceptedAt  *time.Time          `json:"acceptedAt,omitempty"`
	AcceptedBy  *string             `json:"acceptedBy,omitempty"`
	InviteToken string              `json:"inviteToken,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
}

// InviteStatusDTO is the public view of a pending invite
type InviteStatusDTO struct {
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// ToInviteDTO converts an invite. The token is only included when includeToken is set.
func ToInviteDTO(invite models.Invite, users UserDirectory, includeToken bool) InviteDTO {
	dto := InviteDTO{
		ID:         invite.ID,
		Email:      invite.Email,
		Role:       invite.Role,
		Status:     invite.Status,
		InvitedBy:  users.Ref(invite.InvitedBy),
		ProjectID:  invite.ProjectID,
		ExpiresAt:  invite.ExpiresAt,
		AcceptedAt: invite.AcceptedAt,
		AcceptedBy: invite.AcceptedBy,
		CreatedAt:  invite.CreatedAt,
	}
	if includeToken {
		dto.InviteToken = invite.InviteToken
	}
	return dto
}

func ToInviteStatusDTO(invite models.Invite) InviteStatusDTO {
	return InviteStatusDTO{
		Email:     invite.Email,
		Role:      invite.Role,
		ExpiresAt: invite.ExpiresAt,
	}
}

// AuthDTO is returned by login, register and refresh
type AuthDTO struct {
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
	User         UserRefDTO `json:"user"`
}
