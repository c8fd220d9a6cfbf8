package constants

import "time"

// Context keys set by the authentication middleware
const (
	ContextKeyUserID = "user_id"
	ContextKeyEmail  = "user_email"
	ContextKeyRole   = "user_role"
)

// Session and cookie names
const (
	SessionCookieName      = "pm_session"
	SessionKeyRefreshToken = "refresh_token"
	AccessTokenCookieName  = "accessToken"
)

// Pagination
const (
	MinPage         = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

const (
	MinPasswordLength   = 8
	InviteTokenBytes    = 32
	DefaultInviteTTL    = 7 * 24 * time.Hour
	MaxAIGeneratedTasks = 20
	BcryptCost          = 10
)
