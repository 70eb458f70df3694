package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Pokatocz/quest-and-check/internal/middleware"
	"github.com/Pokatocz/quest-and-check/internal/services"
)

type LeaderboardHandler struct {
	leaderboardService *services.LeaderboardService
}

func NewLeaderboardHandler(leaderboardService *services.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: leaderboardService}
}

type LeaderboardResponse struct {
	Entries []services.LeaderboardEntry `json:"entries"`
	Total   int                         `json:"total"`
}

// GetLeaderboard godoc
// @Summary Team leaderboard
// @Description Members ranked by approved reward, with the configured bonus for ranks 1 to 3
// @Tags leaderboard
// @Produce json
// @Security BearerAuth
// @Param id path int true "Team ID"
// @Success 200 {object} LeaderboardResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /teams/{id}/leaderboard [get]
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}

	entries, err := h.leaderboardService.Leaderboard(middleware.GetUserID(c), teamID)
	if err != nil {
		respondError(c, err)
		return
	}
	if entries == nil {
		entries = []services.LeaderboardEntry{}
	}

	c.JSON(http.StatusOK, LeaderboardResponse{
		Entries: entries,
		Total:   len(entries),
	})
}
