package handlers

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pokatocz/quest-and-check/internal/database"
	"github.com/Pokatocz/quest-and-check/internal/middleware"
	"github.com/Pokatocz/quest-and-check/internal/realtime"
	"github.com/Pokatocz/quest-and-check/internal/repository"
	"github.com/Pokatocz/quest-and-check/internal/services"
	"github.com/Pokatocz/quest-and-check/internal/storage"
)

const (
	testBaseURL      = "http://api.test"
	testMaxPhotoSize = 1 << 10
)

type testServer struct {
	router *gin.Engine
	auth   *services.AuthService
	events *EventsHandler
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	hub, err := realtime.NewHub(4)
	require.NoError(t, err)
	t.Cleanup(hub.Close)

	store := storage.NewLocalStore(t.TempDir(), testBaseURL, "storage-secret")

	profileRepo := repository.NewProfileRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	tokenRepo := repository.NewTokenRepository(db)

	roles := services.NewRoleResolver(teamRepo, memberRepo, profileRepo)
	tokenService := services.NewTokenService(tokenRepo, profileRepo, "jwt-secret")
	authService := services.NewAuthService(profileRepo, tokenService, time.Hour)
	teamService := services.NewTeamService(teamRepo, memberRepo, profileRepo, roles, hub)
	taskService := services.NewTaskService(taskRepo, roles, store, hub, services.EvidencePolicy{MinPhotos: 3, MaxPhotos: 10, MaxPhotoSize: testMaxPhotoSize})
	leaderboardService := services.NewLeaderboardService(taskRepo, profileRepo, roles)
	exportService := services.NewExportService(taskRepo, leaderboardService, roles, "export-key")
	messageService := services.NewMessageService(messageRepo, profileRepo, roles, store, hub)

	routes := &Routes{
		Auth:        NewAuthHandler(authService, taskService),
		Tokens:      NewTokenHandler(tokenService),
		Teams:       NewTeamHandler(teamService),
		Tasks:       NewTaskHandler(taskService),
		Leaderboard: NewLeaderboardHandler(leaderboardService),
		Export:      NewExportHandler(exportService),
		Messages:    NewMessageHandler(messageService, testMaxPhotoSize),
		Events:      NewEventsHandler(hub, teamService, leaderboardService),
		Storage:     NewStorageHandler(store),
	}

	router := gin.New()
	routes.Register(router.Group("/api/v1"), middleware.NewAuthMiddleware(tokenService, true).RequireAuth())

	return &testServer{router: router, auth: authService, events: routes.Events}
}

func (s *testServer) do(t *testing.T, method, path string, userID uint, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != 0 {
		req.Header.Set(middleware.TestUserHeader, fmt.Sprint(userID))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) upload(t *testing.T, path string, userID uint, field string, count int, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	files := make([][]byte, count)
	for i := range files {
		files[i] = []byte(fmt.Sprintf("jpeg-%d", i))
	}
	return s.uploadFiles(t, path, userID, field, files, fields)
}

func (s *testServer) uploadFiles(t *testing.T, path string, userID uint, field string, files [][]byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for i, data := range files {
		part, err := mw.CreateFormFile(field, fmt.Sprintf("photo-%d.jpg", i))
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1"+path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(middleware.TestUserHeader, fmt.Sprint(userID))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) signUp(t *testing.T, email, role string) uint {
	t.Helper()
	w := s.do(t, http.MethodPost, "/auth/signup", 0, map[string]string{
		"email":     email,
		"password":  "secret123",
		"full_name": strings.Split(email, "@")[0],
		"role":      role,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var profile ProfileResponse
	decode(t, w, &profile)
	return profile.ID
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

// setupTeam creates an employer-owned team with one employee member.
func setupTeam(t *testing.T, s *testServer) (boss, worker, teamID uint) {
	boss = s.signUp(t, "boss@example.com", "employer")
	worker = s.signUp(t, "alice@example.com", "employee")

	w := s.do(t, http.MethodPost, "/teams", boss, CreateTeamRequest{Name: "Night shift"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var team TeamResponse
	decode(t, w, &team)

	w = s.do(t, http.MethodPost, fmt.Sprintf("/teams/%d/join", team.ID), worker, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return boss, worker, team.ID
}

func createTask(t *testing.T, s *testServer, actor, teamID uint, title string, xp int) TaskResponse {
	t.Helper()
	w := s.do(t, http.MethodPost, fmt.Sprintf("/teams/%d/tasks", teamID), actor, services.CreateTaskInput{Title: title, XP: xp})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var task TaskResponse
	decode(t, w, &task)
	return task
}

func TestHealth(t *testing.T) {
	s := setupServer(t)
	w := s.do(t, http.MethodGet, "/health", 0, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuth_SignInWithBearerTokenAndSignOut(t *testing.T) {
	s := setupServer(t)
	s.signUp(t, "carol@example.com", "employee")

	w := s.do(t, http.MethodPost, "/auth/signin", 0, SignInRequest{Email: "carol@example.com", Password: "secret123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var session SessionResponse
	decode(t, w, &session)
	require.NotEmpty(t, session.Token)

	bearer := func(method, path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/api/v1"+path, nil)
		req.Header.Set("Authorization", "Bearer "+session.Token)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		return rec
	}

	w = bearer(http.MethodGet, "/me")
	require.Equal(t, http.StatusOK, w.Code)
	var me ProfileResponse
	decode(t, w, &me)
	assert.Equal(t, "carol@example.com", me.Email)

	w = bearer(http.MethodPost, "/auth/signout")
	require.Equal(t, http.StatusOK, w.Code)

	w = bearer(http.MethodGet, "/me")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_Errors(t *testing.T) {
	s := setupServer(t)
	s.signUp(t, "dan@example.com", "employee")

	w := s.do(t, http.MethodPost, "/auth/signin", 0, SignInRequest{Email: "dan@example.com", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/auth/signup", 0, map[string]string{
		"email": "dan@example.com", "password": "secret123", "full_name": "Dan", "role": "employee",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/auth/signup", 0, map[string]string{
		"email": "eve@example.com", "password": "secret123", "full_name": "Eve", "role": "admin",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/me", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTasks_LifecycleOverHTTP(t *testing.T) {
	s := setupServer(t)
	boss, worker, teamID := setupTeam(t, s)
	task := createTask(t, s, boss, teamID, "Restock shelves", 150)
	assert.Equal(t, "open", string(task.State))

	w := s.do(t, http.MethodPost, fmt.Sprintf("/tasks/%d/reserve", task.ID), boss, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "employers cannot take tasks")

	w = s.do(t, http.MethodPost, fmt.Sprintf("/tasks/%d/reserve", task.ID), worker, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &task)
	assert.Equal(t, "reserved", string(task.State))

	w = s.upload(t, fmt.Sprintf("/tasks/%d/complete", task.ID), worker, "photos", 2, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "two photos are not enough")

	w = s.upload(t, fmt.Sprintf("/tasks/%d/complete", task.ID), worker, "photos", 3, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &task)
	assert.Equal(t, "pending_approval", string(task.State))
	require.Len(t, task.Photos, 3)

	w = s.do(t, http.MethodPost, fmt.Sprintf("/tasks/%d/review", task.ID), boss, ReviewRequest{Decision: "approved"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &task)
	assert.Equal(t, "approved", string(task.State))

	w = s.do(t, http.MethodPost, fmt.Sprintf("/tasks/%d/review", task.ID), boss, ReviewRequest{Decision: "rejected"})
	assert.Equal(t, http.StatusConflict, w.Code, "only pending tasks can be reviewed")

	w = s.do(t, http.MethodGet, "/me/ledger", worker, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ledger services.Ledger
	decode(t, w, &ledger)
	assert.Equal(t, 150, ledger.TotalReward)
	assert.Equal(t, 2, ledger.Level)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/teams/%d/tasks?view=completed", teamID), worker, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var completed []TaskResponse
	decode(t, w, &completed)
	require.Len(t, completed, 1)

	// evidence is served from the public bucket
	photo, err := url.Parse(task.Photos[0])
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, photo.Path, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jpeg-0", rec.Body.String())
}

func TestTasks_ErrorMapping(t *testing.T) {
	s := setupServer(t)
	boss, worker, teamID := setupTeam(t, s)
	other := s.signUp(t, "bob@example.com", "employee")
	w := s.do(t, http.MethodPost, fmt.Sprintf("/teams/%d/join", teamID), other, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	task := createTask(t, s, boss, teamID, "Inventory", 40)

	w = s.do(t, http.MethodPost, fmt.Sprintf("/tasks/%d/reserve", task.ID), worker, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, fmt.Sprintf("/tasks/%d/reserve", task.ID), other, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, fmt.Sprintf("/tasks/%d/release", task.ID), other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, fmt.Sprintf("/tasks/%d/release", task.ID), boss, nil)
	assert.Equal(t, http.StatusOK, w.Code, "employers may release any reservation")

	w = s.do(t, http.MethodGet, fmt.Sprintf("/teams/%d/tasks?view=archived", teamID), worker, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/tasks/9999/reserve", worker, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/tasks/abc/reserve", worker, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, fmt.Sprintf("/teams/%d/tasks", teamID), worker, services.CreateTaskInput{Title: "Nope"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodDelete, fmt.Sprintf("/tasks/%d", task.ID), boss, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, fmt.Sprintf("/tasks/%d", task.ID), boss, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTeams_MembersAndRewards(t *testing.T) {
	s := setupServer(t)
	boss, worker, teamID := setupTeam(t, s)

	w := s.do(t, http.MethodPost, fmt.Sprintf("/teams/%d/join", teamID), worker, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPut, fmt.Sprintf("/teams/%d/members/%d", teamID, worker), boss, SetMemberRoleRequest{Role: "manager"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, fmt.Sprintf("/teams/%d", teamID), worker, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail TeamDetailResponse
	decode(t, w, &detail)
	assert.Equal(t, "manager", string(detail.Role))

	w = s.do(t, http.MethodGet, fmt.Sprintf("/teams/%d/members", teamID), worker, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var members []services.MemberView
	decode(t, w, &members)
	require.Len(t, members, 2)
	assert.Equal(t, boss, members[0].UserID)

	w = s.do(t, http.MethodPut, fmt.Sprintf("/teams/%d/rewards", teamID), worker, UpdateRewardsRequest{First: 50})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPut, fmt.Sprintf("/teams/%d/rewards", teamID), boss, UpdateRewardsRequest{First: -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, fmt.Sprintf("/teams/%d/rewards", teamID), boss, UpdateRewardsRequest{First: 50, Second: 30, Third: 10})
	require.Equal(t, http.StatusOK, w.Code)
	var team TeamResponse
	decode(t, w, &team)
	assert.Equal(t, 30, team.Rewards.Second)

	w = s.do(t, http.MethodDelete, fmt.Sprintf("/teams/%d/members/%d", teamID, worker), worker, nil)
	assert.Equal(t, http.StatusOK, w.Code, "members may leave")

	w = s.do(t, http.MethodGet, fmt.Sprintf("/teams/%d", teamID), worker, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodDelete, fmt.Sprintf("/teams/%d", teamID), boss, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, fmt.Sprintf("/teams/%d", teamID), boss, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLeaderboardAndStatement(t *testing.T) {
	s := setupServer(t)
	boss, worker, teamID := setupTeam(t, s)
	w := s.do(t, http.MethodPut, fmt.Sprintf("/teams/%d/rewards", teamID), boss, UpdateRewardsRequest{First: 25})
	require.Equal(t, http.StatusOK, w.Code)

	task := createTask(t, s, boss, teamID, "Close register", 120)
	w = s.upload(t, fmt.Sprintf("/tasks/%d/complete", task.ID), worker, "photos", 3, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(t, http.MethodPost, fmt.Sprintf("/tasks/%d/review", task.ID), boss, ReviewRequest{Decision: "approved"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/teams/%d/leaderboard", teamID), boss, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var board LeaderboardResponse
	decode(t, w, &board)
	require.Equal(t, 1, board.Total)
	assert.Equal(t, worker, board.Entries[0].UserID)
	assert.Equal(t, 1, board.Entries[0].Rank)
	assert.Equal(t, 25, board.Entries[0].Bonus)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/teams/%d/statement", teamID), worker, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var statement services.RewardStatement
	decode(t, w, &statement)
	assert.Equal(t, 120, statement.TotalReward)

	w = s.do(t, http.MethodPost, "/statements/verify", 0, statement)
	require.Equal(t, http.StatusOK, w.Code)
	var verdict VerifyStatementResponse
	decode(t, w, &verdict)
	assert.True(t, verdict.Valid)

	statement.TotalReward = 9000
	w = s.do(t, http.MethodPost, "/statements/verify", 0, statement)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &verdict)
	assert.False(t, verdict.Valid)
}

func TestMessages_PhotoLinksAreSigned(t *testing.T) {
	s := setupServer(t)
	boss, worker, teamID := setupTeam(t, s)

	w := s.do(t, http.MethodPost, fmt.Sprintf("/teams/%d/messages", teamID), boss, PostMessageRequest{Content: "  hello team  "})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.upload(t, fmt.Sprintf("/teams/%d/messages", teamID), worker, "photo", 1, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, fmt.Sprintf("/teams/%d/messages", teamID), worker, PostMessageRequest{Content: "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/teams/%d/messages", teamID), worker, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var messages []services.MessageView
	decode(t, w, &messages)
	require.Len(t, messages, 2)
	assert.Equal(t, "hello team", messages[0].Content)
	assert.Equal(t, "Photo", messages[1].Content)
	require.NotEmpty(t, messages[1].PhotoURL)

	signed, err := url.Parse(messages[1].PhotoURL)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, signed.RequestURI(), nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, signed.Path, nil))
	assert.Equal(t, http.StatusForbidden, rec.Code, "private objects need the signature")

	public := strings.Replace(signed.Path, "/signed/", "/public/", 1)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, public, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTokens_CreateListDelete(t *testing.T) {
	s := setupServer(t)
	user := s.signUp(t, "frank@example.com", "employee")

	w := s.do(t, http.MethodPost, "/tokens", user, CreateTokenRequest{ExpiresIn: "24h", Label: "cli"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/tokens", user, CreateTokenRequest{ExpiresIn: "soon"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/tokens", user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tokens []TokenListResponse
	decode(t, w, &tokens)
	require.Len(t, tokens, 1)
	assert.Equal(t, "cli", tokens[0].Label)

	w = s.do(t, http.MethodDelete, fmt.Sprintf("/tokens/%d", tokens[0].ID), user, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodDelete, fmt.Sprintf("/tokens/%d", tokens[0].ID), user, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploads_RejectOversizedBodies(t *testing.T) {
	s := setupServer(t)
	boss, worker, teamID := setupTeam(t, s)
	task := createTask(t, s, boss, teamID, "Deep clean", 30)

	w := s.do(t, http.MethodPost, fmt.Sprintf("/tasks/%d/reserve", task.ID), worker, nil)
	require.Equal(t, http.StatusOK, w.Code)

	huge := bytes.Repeat([]byte("x"), 200<<10)
	w = s.uploadFiles(t, fmt.Sprintf("/tasks/%d/complete", task.ID), worker, "photos", [][]byte{[]byte("a"), []byte("b"), huge}, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, fmt.Sprintf("/tasks/%d", task.ID), worker, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &task)
	assert.Equal(t, "reserved", string(task.State))

	w = s.uploadFiles(t, fmt.Sprintf("/teams/%d/messages", teamID), worker, "photo", [][]byte{huge}, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())

	w = s.upload(t, fmt.Sprintf("/tasks/%d/complete", task.ID), worker, "photos", 3, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

type sseEvent struct {
	name string
	data string
}

// openStream subscribes userID to the team's event stream over a real
// connection and returns the parsed events. The channel closes when the
// server ends the stream.
func openStream(t *testing.T, s *testServer, userID, teamID uint) <-chan sseEvent {
	t.Helper()
	srv := httptest.NewServer(s.router)
	t.Cleanup(srv.Close)

	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/api/v1/teams/%d/events", srv.URL, teamID), nil)
	require.NoError(t, err)
	req.Header.Set(middleware.TestUserHeader, fmt.Sprint(userID))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	t.Cleanup(func() {
		s.events.Close()
		resp.Body.Close()
	})

	events := make(chan sseEvent, 64)
	go func() {
		defer close(events)
		scanner := bufio.NewScanner(resp.Body)
		var ev sseEvent
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "event:"):
				ev.name = strings.TrimPrefix(line, "event:")
			case strings.HasPrefix(line, "data:"):
				ev.data = strings.TrimPrefix(line, "data:")
			case line == "" && ev.name != "":
				events <- ev
				ev = sseEvent{}
			}
		}
	}()
	return events
}

func nextEvent(t *testing.T, events <-chan sseEvent) (sseEvent, bool) {
	t.Helper()
	select {
	case ev, ok := <-events:
		return ev, ok
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for stream event")
		return sseEvent{}, false
	}
}

// drain reads until the server closes the stream.
func drain(t *testing.T, events <-chan sseEvent) []sseEvent {
	t.Helper()
	var got []sseEvent
	for {
		ev, ok := nextEvent(t, events)
		if !ok {
			return got
		}
		got = append(got, ev)
	}
}

func TestEvents_ApprovalRefreshesLeaderboard(t *testing.T) {
	s := setupServer(t)
	boss, worker, teamID := setupTeam(t, s)
	task := createTask(t, s, boss, teamID, "Restock shelves", 150)
	w := s.do(t, http.MethodPost, fmt.Sprintf("/tasks/%d/reserve", task.ID), worker, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.upload(t, fmt.Sprintf("/tasks/%d/complete", task.ID), worker, "photos", 3, nil)
	require.Equal(t, http.StatusOK, w.Code)

	events := openStream(t, s, worker, teamID)
	first, ok := nextEvent(t, events)
	require.True(t, ok)
	require.Equal(t, "leaderboard", first.name)
	var board LeaderboardResponse
	require.NoError(t, json.Unmarshal([]byte(first.data), &board))
	assert.Zero(t, board.Total)

	w = s.do(t, http.MethodPost, fmt.Sprintf("/tasks/%d/review", task.ID), boss, ReviewRequest{Decision: "approved"})
	require.Equal(t, http.StatusOK, w.Code)

	change, ok := nextEvent(t, events)
	require.True(t, ok)
	assert.Equal(t, "change", change.name)
	assert.Contains(t, change.data, `"table":"tasks"`)
	assert.Contains(t, change.data, `"event":"UPDATE"`)

	refreshed, ok := nextEvent(t, events)
	require.True(t, ok)
	require.Equal(t, "leaderboard", refreshed.name)
	require.NoError(t, json.Unmarshal([]byte(refreshed.data), &board))
	require.Equal(t, 1, board.Total)
	assert.Equal(t, worker, board.Entries[0].UserID)
	assert.Equal(t, 150, board.Entries[0].TotalReward)
}

func TestEvents_RemovedMemberStopsReceiving(t *testing.T) {
	s := setupServer(t)
	boss, worker, teamID := setupTeam(t, s)

	events := openStream(t, s, worker, teamID)
	first, ok := nextEvent(t, events)
	require.True(t, ok)
	require.Equal(t, "leaderboard", first.name)

	w := s.do(t, http.MethodDelete, fmt.Sprintf("/teams/%d/members/%d", teamID, worker), boss, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(t, http.MethodPost, fmt.Sprintf("/teams/%d/messages", teamID), boss, PostMessageRequest{Content: "after you left"})
	require.Equal(t, http.StatusCreated, w.Code)

	rest := drain(t, events)
	require.NotEmpty(t, rest)
	for _, ev := range rest {
		assert.NotEqual(t, "change", ev.name, ev.data)
	}
	assert.Equal(t, "error", rest[len(rest)-1].name)
}

func TestEvents_TeamDeleteEndsStream(t *testing.T) {
	s := setupServer(t)
	boss, _, teamID := setupTeam(t, s)

	events := openStream(t, s, boss, teamID)
	_, ok := nextEvent(t, events)
	require.True(t, ok)

	w := s.do(t, http.MethodDelete, fmt.Sprintf("/teams/%d", teamID), boss, nil)
	require.Equal(t, http.StatusOK, w.Code)

	rest := drain(t, events)
	require.Len(t, rest, 1)
	assert.Equal(t, "change", rest[0].name)
	assert.Contains(t, rest[0].data, `"table":"teams"`)
	assert.Contains(t, rest[0].data, `"event":"DELETE"`)
}

func TestEvents_CloseEndsOpenStreams(t *testing.T) {
	s := setupServer(t)
	_, worker, teamID := setupTeam(t, s)

	events := openStream(t, s, worker, teamID)
	_, ok := nextEvent(t, events)
	require.True(t, ok)

	s.events.Close()
	assert.Empty(t, drain(t, events))
}
