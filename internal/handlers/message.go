package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Pokatocz/quest-and-check/internal/middleware"
	"github.com/Pokatocz/quest-and-check/internal/services"
)

const defaultMessageLimit = 100

type MessageHandler struct {
	messageService *services.MessageService
	maxPhotoSize   int64
}

func NewMessageHandler(messageService *services.MessageService, maxPhotoSize int64) *MessageHandler {
	return &MessageHandler{messageService: messageService, maxPhotoSize: maxPhotoSize}
}

type PostMessageRequest struct {
	Content string `json:"content" form:"content"`
}

// PostMessage godoc
// @Summary Post to team chat
// @Description JSON with content, or multipart with content and an optional "photo" file
// @Tags messages
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param id path int true "Team ID"
// @Param request body PostMessageRequest false "Message text"
// @Success 201 {object} services.MessageView
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 413 {object} ErrorResponse
// @Router /teams/{id}/messages [post]
func (h *MessageHandler) PostMessage(c *gin.Context) {
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req PostMessageRequest
	var photo *services.Photo
	if c.ContentType() == "multipart/form-data" {
		limitBody(c, h.maxPhotoSize)
		if err := c.ShouldBind(&req); err != nil {
			badUpload(c, err, "invalid request: "+err.Error())
			return
		}
		if header, err := c.FormFile("photo"); err == nil {
			file, err := header.Open()
			if err != nil {
				badRequest(c, "unreadable photo")
				return
			}
			defer file.Close()
			photo = &services.Photo{Filename: header.Filename, Body: file}
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	message, err := h.messageService.PostMessage(c.Request.Context(), middleware.GetUserID(c), teamID, req.Content, photo)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, message)
}

// ListMessages godoc
// @Summary Read team chat
// @Description Most recent messages, oldest first. Photo links are signed and expire after an hour
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param id path int true "Team ID"
// @Param limit query int false "Number of messages" default(100)
// @Success 200 {array} services.MessageView
// @Failure 403 {object} ErrorResponse
// @Router /teams/{id}/messages [get]
func (h *MessageHandler) ListMessages(c *gin.Context) {
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var query struct {
		Limit int `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil || query.Limit < 0 {
		badRequest(c, "invalid limit")
		return
	}
	if query.Limit == 0 {
		query.Limit = defaultMessageLimit
	}

	messages, err := h.messageService.ListMessages(middleware.GetUserID(c), teamID, query.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if messages == nil {
		messages = []services.MessageView{}
	}
	c.JSON(http.StatusOK, messages)
}
