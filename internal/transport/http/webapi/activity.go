package webapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"agentdeck-server/internal/domain/activity"
	"agentdeck-server/internal/platform/logging"
	httptransport "agentdeck-server/internal/transport/http"
)

type CreateActivityRequest struct {
	Agent    string         `json:"agent"`
	Action   string         `json:"action"`
	Details  string         `json:"details"`
	Level    string         `json:"level"`
	Metadata map[string]any `json:"metadata"`
}

type CreateActivityResponse struct {
	ID      uint `json:"id"`
	Created bool `json:"created"`
}

type ActivityListResponse struct {
	Logs []activity.Entry `json:"logs"`
}

// handleCreateActivity records an entry and broadcasts it to live
// observers. Agents post without a session; a dashboard session, when
// present, attributes the entry to its user.
// @Summary Record activity
// @Tags Activity
// @Accept json
// @Produce json
// @Param body body CreateActivityRequest true "entry"
// @Success 201 {object} CreateActivityResponse
// @Failure 400 {object} httptransport.APIResponse
// @Router /activity [post]
func (s *Service) handleCreateActivity(c *gin.Context) {
	var req CreateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "invalid JSON body", nil)
		return
	}

	in := activity.CreateInput{
		Agent:    req.Agent,
		Action:   req.Action,
		Details:  req.Details,
		Level:    activity.Level(req.Level),
		Metadata: req.Metadata,
	}
	if claim, ok := httptransport.ClaimFrom(c); ok {
		uid := claim.UserID
		in.UserID = &uid
	}

	entry, err := s.deps.Activity.Create(c.Request.Context(), in)
	if err != nil {
		s.respondActivityError(c, err)
		return
	}
	c.JSON(http.StatusCreated, CreateActivityResponse{ID: entry.ID, Created: true})
}

// handleListActivity lists entries oldest first.
// @Summary List activity
// @Tags Activity
// @Security BearerAuth
// @Param agent query string false "agent"
// @Param level query string false "level"
// @Param limit query int false "limit"
// @Success 200 {object} ActivityListResponse
// @Router /activity [get]
func (s *Service) handleListActivity(c *gin.Context) {
	filter := activity.Filter{
		Agent: c.Query("agent"),
		Level: activity.Level(c.Query("level")),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			httptransport.RespondError(c, http.StatusBadRequest, "limit must be a non-negative integer", gin.H{"field": "limit"})
			return
		}
		filter.Limit = limit
	}

	entries, err := s.deps.Activity.List(c.Request.Context(), filter)
	if err != nil {
		s.respondActivityError(c, err)
		return
	}
	if entries == nil {
		entries = []activity.Entry{}
	}
	c.JSON(http.StatusOK, ActivityListResponse{Logs: entries})
}

// handleActivityStream upgrades to a websocket that carries every entry
// created from now on.
func (s *Service) handleActivityStream(c *gin.Context) {
	claim, _ := httptransport.ClaimFrom(c)
	s.deps.Stream.Handle(c.Writer, c.Request, claim.UserID)
}

func (s *Service) respondActivityError(c *gin.Context, err error) {
	var verr *activity.ValidationError
	if errors.As(err, &verr) {
		httptransport.RespondError(c, http.StatusBadRequest, verr.Error(), gin.H{"field": verr.Field})
		return
	}
	s.logger.ErrorTag(logging.TagActivity, "activity request failed: %v", err)
	httptransport.RespondError(c, http.StatusInternalServerError, "activity store unavailable", nil)
}
