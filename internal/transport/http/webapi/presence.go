package webapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"agentdeck-server/internal/domain/presence"
	"agentdeck-server/internal/platform/logging"
	httptransport "agentdeck-server/internal/transport/http"
)

type OnlineResponse struct {
	Users []presence.UserSummary `json:"users"`
	Count int                    `json:"count"`
}

// handleHeartbeat marks the caller online. The route only admits current
// sessions, so a superseded tab stops counting as online once it expires.
// @Summary Presence heartbeat
// @Tags Presence
// @Security BearerAuth
// @Success 200 {object} httptransport.APIResponse
// @Failure 401 {object} httptransport.APIResponse
// @Router /presence/heartbeat [post]
func (s *Service) handleHeartbeat(c *gin.Context) {
	claim, _ := httptransport.ClaimFrom(c)
	user, err := s.deps.Accounts.User(c.Request.Context(), claim.UserID)
	if err != nil {
		s.logger.ErrorTag(logging.TagPresence, "load user %d failed: %v", claim.UserID, err)
		httptransport.RespondError(c, http.StatusInternalServerError, "failed to load user", nil)
		return
	}
	if user == nil || !user.Active() {
		httptransport.RespondError(c, http.StatusUnauthorized, httptransport.ErrUnauthorized.Error(), nil)
		return
	}

	s.deps.Tracker.Heartbeat(claim.SessionToken, user.ID, user.Email, user.Name, user.Role)
	httptransport.RespondSuccess(c, http.StatusOK, nil, "")
}

// handleOnline lists users with a live tab.
// @Summary Online users
// @Tags Presence
// @Security BearerAuth
// @Success 200 {object} OnlineResponse
// @Router /presence/online [get]
func (s *Service) handleOnline(c *gin.Context) {
	users := s.deps.Tracker.ListOnline()
	if users == nil {
		users = []presence.UserSummary{}
	}
	c.JSON(http.StatusOK, OnlineResponse{Users: users, Count: len(users)})
}
