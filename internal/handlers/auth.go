package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/dto"
	"github.com/yukikurage/project-management-api/internal/middleware"
	"github.com/yukikurage/project-management-api/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService  *services.AuthService
	accessTTL    time.Duration
	secureCookie bool
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, accessTTL time.Duration, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		accessTTL:    accessTTL,
		secureCookie: secureCookie,
	}
}

// Register creates a user account, optionally from an invite.
func (h *AuthHandler) Register(c *gin.Context) {
	type RegisterRequest struct {
		Name        string `json:"name" binding:"required,min=2,max=100"`
		Email       string `json:"email" binding:"required,email"`
		Password    string `json:"password" binding:"required,strongpassword"`
		InviteToken string `json:"inviteToken"`
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.authService.Register(c.Request.Context(), services.RegisterInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		InviteToken: req.InviteToken,
	})
	if err != nil {
		c.Error(err)
		return
	}

	if err := h.startSession(c, result); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, dto.OKWithMessage("Registration successful", toAuthDTO(result)))
}

// Login authenticates a user and initializes the session.
func (h *AuthHandler) Login(c *gin.Context) {
	type LoginRequest struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.Error(err)
		return
	}

	if err := h.startSession(c, result); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.OKWithMessage("Login successful", toAuthDTO(result)))
}

// Refresh exchanges a refresh token from the body or the session for a new pair.
func (h *AuthHandler) Refresh(c *gin.Context) {
	type RefreshRequest struct {
		RefreshToken string `json:"refreshToken"`
	}

	var req RefreshRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}

	token := req.RefreshToken
	if token == "" {
		if stored, ok := sessions.Default(c).Get(constants.SessionKeyRefreshToken).(string); ok {
			token = stored
		}
	}

	result, err := h.authService.Refresh(c.Request.Context(), token)
	if err != nil {
		c.Error(err)
		return
	}

	if err := h.startSession(c, result); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.OKWithMessage("Token refreshed", toAuthDTO(result)))
}

// Logout removes the authentication session.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1, HttpOnly: true, Secure: h.secureCookie})
	if err := session.Save(); err != nil {
		c.Error(err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(constants.AccessTokenCookieName, "", -1, "/", "", h.secureCookie, true)

	c.JSON(http.StatusOK, dto.OKWithMessage("Logged out successfully", nil))
}

// GetProfile returns the authenticated user.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	user, err := h.authService.Profile(c.Request.Context(), middleware.GetCaller(c))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.OK(dto.ToUserDTO(*user)))
}

// UpdateProfile changes the authenticated user's name.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	type UpdateProfileRequest struct {
		Name string `json:"name" binding:"required,min=2,max=100"`
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.authService.UpdateProfile(c.Request.Context(), middleware.GetCaller(c), req.Name)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.OKWithMessage("Profile updated successfully", dto.ToUserDTO(*user)))
}

// startSession keeps the refresh token server-side and sets the access token cookie.
func (h *AuthHandler) startSession(c *gin.Context, result *services.AuthResult) error {
	session := sessions.Default(c)
	session.Set(constants.SessionKeyRefreshToken, result.Tokens.RefreshToken)
	if err := session.Save(); err != nil {
		return err
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(constants.AccessTokenCookieName, result.Tokens.AccessToken, int(h.accessTTL.Seconds()), "/", "", h.secureCookie, true)
	return nil
}

func toAuthDTO(result *services.AuthResult) dto.AuthDTO {
	return dto.AuthDTO{
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
		User:         dto.ToUserRefDTO(*result.User),
	}
}
