package main

// @title           Quest and Check API
// @version         1.0
// @description     Team task board with photo-verified completion, reward levels and leaderboards
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the token from /auth/signin
func main() {
	Execute()
}
