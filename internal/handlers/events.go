package handlers

import (
	"io"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Pokatocz/quest-and-check/internal/middleware"
	"github.com/Pokatocz/quest-and-check/internal/realtime"
	"github.com/Pokatocz/quest-and-check/internal/services"
)

const (
	eventBuffer       = 64
	heartbeatInterval = 25 * time.Second
)

// EventsHandler streams a team's changes as Server-Sent Events. Each change is
// followed by freshly read state rather than a delta.
type EventsHandler struct {
	hub                *realtime.Hub
	teamService        *services.TeamService
	leaderboardService *services.LeaderboardService

	closing   chan struct{}
	closeOnce sync.Once
}

func NewEventsHandler(hub *realtime.Hub, teamService *services.TeamService, leaderboardService *services.LeaderboardService) *EventsHandler {
	return &EventsHandler{
		hub:                hub,
		teamService:        teamService,
		leaderboardService: leaderboardService,
		closing:            make(chan struct{}),
	}
}

// Close ends every open stream. http.Server.Shutdown does not interrupt
// long-lived responses, so the server calls this when it starts draining.
func (h *EventsHandler) Close() {
	h.closeOnce.Do(func() { close(h.closing) })
}

// Stream godoc
// @Summary Team change feed
// @Description Server-Sent Events: "change" for every write in the team, "leaderboard" with a recomputed board after task and reward changes. Browsers may pass the token as access_token
// @Tags events
// @Produce text/event-stream
// @Security BearerAuth
// @Param id path int true "Team ID"
// @Success 200 {string} string "event stream"
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /teams/{id}/events [get]
func (h *EventsHandler) Stream(c *gin.Context) {
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID := middleware.GetUserID(c)
	if _, err := h.teamService.GetTeam(userID, teamID); err != nil {
		respondError(c, err)
		return
	}

	changes := make(chan realtime.Change, eventBuffer)
	handle := h.hub.Subscribe("", teamID, func(change realtime.Change) {
		select {
		case changes <- change:
		default:
			// slow client; the next snapshot catches it up
		}
	})
	defer h.hub.Unsubscribe(handle)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	h.pushLeaderboard(c, userID, teamID)

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case <-h.closing:
			return false
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().UTC())
			return true
		case change := <-changes:
			if change.Table == realtime.TableTeams && change.Event == realtime.EventDelete {
				c.SSEvent("change", change)
				return false
			}
			if !h.stillAllowed(c, userID, teamID) {
				return false
			}
			c.SSEvent("change", change)
			if change.Table == realtime.TableTasks || change.Table == realtime.TableTeams {
				return h.pushLeaderboard(c, userID, teamID)
			}
			return true
		}
	})
}

// stillAllowed re-resolves the caller's access before a change is forwarded.
// Removed members get a final error event and the stream ends.
func (h *EventsHandler) stillAllowed(c *gin.Context, userID, teamID uint) bool {
	if _, err := h.teamService.GetTeam(userID, teamID); err != nil {
		c.SSEvent("error", ErrorResponse{Error: err.Error()})
		return false
	}
	return true
}

// pushLeaderboard sends the current board and reports whether the caller
// still has access to the team.
func (h *EventsHandler) pushLeaderboard(c *gin.Context, userID, teamID uint) bool {
	entries, err := h.leaderboardService.Leaderboard(userID, teamID)
	if err != nil {
		c.SSEvent("error", ErrorResponse{Error: err.Error()})
		return false
	}
	if entries == nil {
		entries = []services.LeaderboardEntry{}
	}
	c.SSEvent("leaderboard", LeaderboardResponse{Entries: entries, Total: len(entries)})
	c.Writer.Flush()
	return true
}
