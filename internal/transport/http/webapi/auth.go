package webapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"agentdeck-server/internal/domain/session"
	perrors "agentdeck-server/internal/platform/errors"
	"agentdeck-server/internal/platform/logging"
	"agentdeck-server/internal/platform/storage"
	httptransport "agentdeck-server/internal/transport/http"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	LoginTime time.Time     `json:"login_time"`
	User      *storage.User `json:"user"`
}

// handleLogin exchanges credentials for a session token.
// @Summary Log in
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "credentials"
// @Success 200 {object} LoginResponse
// @Failure 401 {object} httptransport.APIResponse
// @Failure 403 {object} httptransport.APIResponse
// @Router /auth/login [post]
func (s *Service) handleLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "email and password are required", nil)
		return
	}

	res, err := s.deps.Accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if typed, ok := perrors.As(err); ok && typed.Kind.ClientFault() {
			httptransport.RespondError(c, typed.Kind.HTTPStatus(), typed.Message, nil)
			return
		}
		s.logger.ErrorTag(logging.TagSession, "login failed: %v", err)
		httptransport.RespondError(c, http.StatusInternalServerError, "login failed", nil)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		LoginTime: res.LoginTime,
		User:      res.User,
	})
}

// handleLogout ends the caller's login. A credential that was already
// superseded still logs out cleanly without touching the newer login.
// @Summary Log out
// @Tags Auth
// @Security BearerAuth
// @Success 200 {object} httptransport.APIResponse
// @Router /auth/logout [post]
func (s *Service) handleLogout(c *gin.Context) {
	claim, _ := httptransport.ClaimFrom(c)
	if err := s.deps.Accounts.Logout(c.Request.Context(), claim); err != nil {
		s.logger.ErrorTag(logging.TagSession, "logout failed for user %d: %v", claim.UserID, err)
		httptransport.RespondError(c, http.StatusInternalServerError, "session store unavailable", nil)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, nil, "logged out")
}

// handleMe returns the caller's account.
func (s *Service) handleMe(c *gin.Context) {
	claim, _ := httptransport.ClaimFrom(c)
	user, err := s.deps.Accounts.User(c.Request.Context(), claim.UserID)
	if err != nil {
		s.logger.ErrorTag(logging.TagSession, "load user %d failed: %v", claim.UserID, err)
		httptransport.RespondError(c, http.StatusInternalServerError, "failed to load user", nil)
		return
	}
	if user == nil {
		httptransport.RespondError(c, http.StatusNotFound, "user not found", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// handleCheckSession reports whether the presented credential is still the
// user's current login. It never rejects; the answer is advisory.
// @Summary Check session
// @Tags Auth
// @Produce json
// @Success 200 {object} session.Result
// @Router /auth/check-session [get]
func (s *Service) handleCheckSession(c *gin.Context) {
	result := s.deps.Registry.Check(c.Request.Context(), s.deps.Auth.Claim(c.Request))
	if result.Reason == session.ReasonError {
		s.logger.WarnTag(logging.TagSession, "session check could not reach the store")
	}
	c.JSON(http.StatusOK, result)
}
