package handlers

import "github.com/gin-gonic/gin"

// Routes groups every handler the API exposes.
type Routes struct {
	Auth        *AuthHandler
	Tokens      *TokenHandler
	Teams       *TeamHandler
	Tasks       *TaskHandler
	Leaderboard *LeaderboardHandler
	Export      *ExportHandler
	Messages    *MessageHandler
	Events      *EventsHandler
	Storage     *StorageHandler
}

// Register mounts the API on api. requireAuth guards every route that acts
// on behalf of a user.
func (r *Routes) Register(api *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	api.GET("/health", Health)
	api.POST("/auth/signup", r.Auth.SignUp)
	api.POST("/auth/signin", r.Auth.SignIn)
	api.POST("/statements/verify", r.Export.VerifyStatement)
	api.GET("/storage/public/:bucket/*path", r.Storage.ServePublic)
	api.GET("/storage/signed/:bucket/*path", r.Storage.ServeSigned)

	authenticated := api.Group("")
	authenticated.Use(requireAuth)
	{
		authenticated.POST("/auth/signout", r.Auth.SignOut)
		authenticated.GET("/me", r.Auth.GetMe)
		authenticated.PUT("/me", r.Auth.UpdateMe)
		authenticated.DELETE("/me", r.Auth.DeleteMe)
		authenticated.GET("/me/ledger", r.Auth.GetLedger)

		authenticated.POST("/tokens", r.Tokens.CreateToken)
		authenticated.GET("/tokens", r.Tokens.ListTokens)
		authenticated.DELETE("/tokens/:id", r.Tokens.DeleteToken)

		teams := authenticated.Group("/teams")
		{
			teams.GET("", r.Teams.ListTeams)
			teams.POST("", r.Teams.CreateTeam)
			teams.GET("/:id", r.Teams.GetTeam)
			teams.DELETE("/:id", r.Teams.DeleteTeam)
			teams.PUT("/:id/rewards", r.Teams.UpdateRewards)
			teams.POST("/:id/join", r.Teams.JoinTeam)
			teams.GET("/:id/members", r.Teams.ListMembers)
			teams.PUT("/:id/members/:userId", r.Teams.SetMemberRole)
			teams.DELETE("/:id/members/:userId", r.Teams.RemoveMember)
			teams.GET("/:id/tasks", r.Tasks.ListTasks)
			teams.POST("/:id/tasks", r.Tasks.CreateTask)
			teams.GET("/:id/stats", r.Tasks.TeamStats)
			teams.GET("/:id/leaderboard", r.Leaderboard.GetLeaderboard)
			teams.GET("/:id/statement", r.Export.ExportStatement)
			teams.GET("/:id/messages", r.Messages.ListMessages)
			teams.POST("/:id/messages", r.Messages.PostMessage)
			teams.GET("/:id/events", r.Events.Stream)
		}

		tasks := authenticated.Group("/tasks")
		{
			tasks.GET("/:id", r.Tasks.GetTask)
			tasks.DELETE("/:id", r.Tasks.DeleteTask)
			tasks.POST("/:id/reserve", r.Tasks.Reserve)
			tasks.POST("/:id/release", r.Tasks.Release)
			tasks.POST("/:id/complete", r.Tasks.Complete)
			tasks.POST("/:id/review", r.Tasks.Review)
		}
	}
}
