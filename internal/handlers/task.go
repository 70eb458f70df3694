package handlers

import (
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Pokatocz/quest-and-check/internal/middleware"
	"github.com/Pokatocz/quest-and-check/internal/models"
	"github.com/Pokatocz/quest-and-check/internal/services"
)

// maxEvidenceMemory is how much of a multipart body is buffered in memory
// before gin spills parts to temporary files.
const maxEvidenceMemory = 32 << 20

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

type ReviewRequest struct {
	Decision models.ApprovalStatus `json:"decision" binding:"required"`
}

// CreateTask godoc
// @Summary Create a task
// @Description Employers, owners and managers add tasks to a team
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Team ID"
// @Param request body services.CreateTaskInput true "Task"
// @Success 201 {object} TaskResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /teams/{id}/tasks [post]
func (h *TaskHandler) CreateTask(c *gin.Context) {
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req services.CreateTaskInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	task, err := h.taskService.CreateTask(middleware.GetUserID(c), teamID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newTaskResponse(task))
}

// ListTasks godoc
// @Summary List team tasks
// @Description Newest first. view is one of active, pending, completed, rejected, all
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path int true "Team ID"
// @Param view query string false "Listing" default(all)
// @Success 200 {array} TaskResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /teams/{id}/tasks [get]
func (h *TaskHandler) ListTasks(c *gin.Context) {
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}

	view := models.TaskView(c.DefaultQuery("view", string(models.ViewAll)))
	tasks, err := h.taskService.ListTasks(middleware.GetUserID(c), teamID, view)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTaskResponses(tasks))
}

// TeamStats godoc
// @Summary Team task counts
// @Description Counts per listing plus the caller's ledger within the team
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path int true "Team ID"
// @Success 200 {object} services.TeamStats
// @Failure 403 {object} ErrorResponse
// @Router /teams/{id}/stats [get]
func (h *TaskHandler) TeamStats(c *gin.Context) {
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}

	stats, err := h.taskService.TeamStats(middleware.GetUserID(c), teamID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetTask godoc
// @Summary Get a task
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Success 200 {object} TaskResponse
// @Failure 404 {object} ErrorResponse
// @Router /tasks/{id} [get]
func (h *TaskHandler) GetTask(c *gin.Context) {
	h.transition(c, h.taskService.GetTask)
}

// Reserve godoc
// @Summary Reserve a task
// @Description Employees claim an open task. Reserving a task you hold is a no-op
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Success 200 {object} TaskResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /tasks/{id}/reserve [post]
func (h *TaskHandler) Reserve(c *gin.Context) {
	h.transition(c, h.taskService.Reserve)
}

// Release godoc
// @Summary Release a reservation
// @Description The holder, or an employer, owner or manager, clears the reservation
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Success 200 {object} TaskResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /tasks/{id}/release [post]
func (h *TaskHandler) Release(c *gin.Context) {
	h.transition(c, h.taskService.Release)
}

// Complete godoc
// @Summary Submit a task for review
// @Description Upload photo evidence as repeated "photos" form files
// @Tags tasks
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Param photos formData file true "Evidence photos"
// @Success 200 {object} TaskResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 413 {object} ErrorResponse
// @Router /tasks/{id}/complete [post]
func (h *TaskHandler) Complete(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	limitBody(c, h.taskService.Policy().PhotoBytes())
	if err := c.Request.ParseMultipartForm(maxEvidenceMemory); err != nil {
		badUpload(c, err, "expected multipart form with photos")
		return
	}
	var headers []*multipart.FileHeader
	if form := c.Request.MultipartForm; form != nil {
		headers = form.File["photos"]
	}

	photos := make([]services.Photo, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			badRequest(c, "unreadable photo "+header.Filename)
			return
		}
		defer file.Close()
		photos = append(photos, services.Photo{Filename: header.Filename, Body: file})
	}

	task, err := h.taskService.Complete(c.Request.Context(), middleware.GetUserID(c), taskID, photos)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTaskResponse(task))
}

// Review godoc
// @Summary Approve or reject a submission
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Param request body ReviewRequest true "approved or rejected"
// @Success 200 {object} TaskResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /tasks/{id}/review [post]
func (h *TaskHandler) Review(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	task, err := h.taskService.Review(middleware.GetUserID(c), taskID, req.Decision)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTaskResponse(task))
}

// DeleteTask godoc
// @Summary Delete a task
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Success 200 {object} MessageResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.taskService.Delete(middleware.GetUserID(c), taskID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "task deleted"})
}

func (h *TaskHandler) transition(c *gin.Context, op func(actorID, taskID uint) (*models.Task, error)) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	task, err := op(middleware.GetUserID(c), taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTaskResponse(task))
}
