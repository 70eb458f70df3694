package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Pokatocz/quest-and-check/internal/middleware"
	"github.com/Pokatocz/quest-and-check/internal/services"
)

type AuthHandler struct {
	authService *services.AuthService
	taskService *services.TaskService
}

func NewAuthHandler(authService *services.AuthService, taskService *services.TaskService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		taskService: taskService,
	}
}

type SignInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type SessionResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Profile   ProfileResponse `json:"profile"`
}

type UpdateProfileRequest struct {
	FullName string `json:"full_name" binding:"required"`
}

// SignUp godoc
// @Summary Create an account
// @Description Register with email, password, full name and a global role (employer or employee)
// @Tags auth
// @Accept json
// @Produce json
// @Param request body services.SignUpInput true "Account details"
// @Success 201 {object} ProfileResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /auth/signup [post]
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req services.SignUpInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	profile, err := h.authService.SignUp(req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newProfileResponse(profile))
}

// SignIn godoc
// @Summary Sign in
// @Description Exchange email and password for a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SignInRequest true "Credentials"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/signin [post]
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	session, err := h.authService.SignIn(req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SessionResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		Profile:   newProfileResponse(session.Profile),
	})
}

// SignOut godoc
// @Summary Sign out
// @Description Revoke the bearer token used for this request
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MessageResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/signout [post]
func (h *AuthHandler) SignOut(c *gin.Context) {
	if token := middleware.GetToken(c); token != "" {
		if err := h.authService.SignOut(token); err != nil {
			respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "signed out"})
}

// GetMe godoc
// @Summary Current profile
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ProfileResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /me [get]
func (h *AuthHandler) GetMe(c *gin.Context) {
	profile, err := h.authService.GetProfile(middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newProfileResponse(profile))
}

// UpdateMe godoc
// @Summary Change display name
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateProfileRequest true "New display name"
// @Success 200 {object} ProfileResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /me [put]
func (h *AuthHandler) UpdateMe(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	profile, err := h.authService.UpdateDisplayName(middleware.GetUserID(c), req.FullName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newProfileResponse(profile))
}

// DeleteMe godoc
// @Summary Delete account
// @Description Delete the profile together with its memberships, tokens and owned teams
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MessageResponse
// @Failure 401 {object} ErrorResponse
// @Router /me [delete]
func (h *AuthHandler) DeleteMe(c *gin.Context) {
	if err := h.authService.DeleteAccount(middleware.GetUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "account deleted"})
}

// GetLedger godoc
// @Summary Reward ledger
// @Description Total approved reward and level of the caller, across all teams or within one
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Param team_id query int false "Restrict to one team"
// @Success 200 {object} services.Ledger
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /me/ledger [get]
func (h *AuthHandler) GetLedger(c *gin.Context) {
	var query struct {
		TeamID uint `form:"team_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		badRequest(c, "invalid team_id")
		return
	}

	ledger, err := h.taskService.UserLedger(middleware.GetUserID(c), query.TeamID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ledger)
}
