package services

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/project-management-api/internal/models"
)

// InviteNotifier delivers a freshly created invite to its recipient.
type InviteNotifier interface {
	InviteCreated(ctx context.Context, invite *models.Invite) error
}

// LogNotifier stands in for email delivery by logging the registration link.
type LogNotifier struct {
	log     logrus.FieldLogger
	baseURL string
}

func NewLogNotifier(log logrus.FieldLogger, baseURL string) *LogNotifier {
	return &LogNotifier{log: log, baseURL: baseURL}
}

func (n *LogNotifier) InviteCreated(ctx context.Context, invite *models.Invite) error {
	n.log.WithFields(logrus.Fields{
		"invite_id":  invite.ID,
		"email":      invite.Email,
		"role":       invite.Role,
		"expires_at": invite.ExpiresAt,
	}).Infof("Invite ready: %s/register?inviteToken=%s", n.baseURL, invite.InviteToken)
	return nil
}
