package webapi

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"agentdeck-server/internal/platform/logging"
)

type SystemStatus struct {
	CPUPercent    float64 `json:"cpuPercent"`
	MemPercent    float64 `json:"memPercent"`
	Online        int     `json:"online"`
	Observers     int     `json:"observers"`
	Streams       int     `json:"streams"`
	UptimeSeconds int64   `json:"uptimeSeconds"`
	Goroutines    int     `json:"goroutines"`
}

// handleSystemStatus reports host load next to the server's own counters.
// Host metrics that cannot be read are reported as zero.
// @Summary System status
// @Tags System
// @Security BearerAuth
// @Success 200 {object} SystemStatus
// @Router /system/status [get]
func (s *Service) handleSystemStatus(c *gin.Context) {
	ctx := c.Request.Context()
	status := SystemStatus{
		Online:        len(s.deps.Tracker.ListOnline()),
		Observers:     s.deps.Hub.Count(),
		UptimeSeconds: int64(time.Since(s.deps.StartedAt).Seconds()),
		Goroutines:    runtime.NumGoroutine(),
	}
	if s.deps.Stream != nil {
		status.Streams = s.deps.Stream.Count()
	}

	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		status.CPUPercent = percents[0]
	} else if err != nil {
		s.logger.DebugTag(logging.TagHTTP, "read cpu usage: %v", err)
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		status.MemPercent = vm.UsedPercent
	} else {
		s.logger.DebugTag(logging.TagHTTP, "read memory usage: %v", err)
	}

	c.JSON(http.StatusOK, status)
}
