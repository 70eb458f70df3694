package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Pokatocz/quest-and-check/internal/middleware"
	"github.com/Pokatocz/quest-and-check/internal/services"
)

type ExportHandler struct {
	exportService *services.ExportService
}

func NewExportHandler(exportService *services.ExportService) *ExportHandler {
	return &ExportHandler{exportService: exportService}
}

type VerifyStatementResponse struct {
	Valid bool `json:"valid"`
}

// ExportStatement godoc
// @Summary Export a reward statement
// @Description The caller's approved tasks in the team, total, level and rank, signed with HMAC-SHA256
// @Tags statements
// @Produce json
// @Security BearerAuth
// @Param id path int true "Team ID"
// @Success 200 {object} services.RewardStatement
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /teams/{id}/statement [get]
func (h *ExportHandler) ExportStatement(c *gin.Context) {
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}

	statement, err := h.exportService.ExportStatement(middleware.GetUserID(c), teamID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, statement)
}

// VerifyStatement godoc
// @Summary Verify a reward statement signature
// @Tags statements
// @Accept json
// @Produce json
// @Param request body services.RewardStatement true "Statement with signature"
// @Success 200 {object} VerifyStatementResponse
// @Failure 400 {object} ErrorResponse
// @Router /statements/verify [post]
func (h *ExportHandler) VerifyStatement(c *gin.Context) {
	var statement services.RewardStatement
	if err := c.ShouldBindJSON(&statement); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	valid, err := h.exportService.VerifyStatement(&statement)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, VerifyStatementResponse{Valid: valid})
}
