package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Pokatocz/quest-and-check/internal/database"
	"github.com/Pokatocz/quest-and-check/internal/models"
	"github.com/Pokatocz/quest-and-check/internal/realtime"
	"github.com/Pokatocz/quest-and-check/internal/repository"
)

type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	failPut error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte)}
}

func (m *memoryStore) Put(_ context.Context, bucket, objectPath string, body io.Reader) (string, error) {
	if m.failPut != nil {
		return "", m.failPut
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.objects[bucket+"/"+objectPath] = data
	m.mu.Unlock()
	return objectPath, nil
}

func (m *memoryStore) PublicURL(bucket, objectPath string) string {
	return "http://files.test/" + bucket + "/" + objectPath
}

func (m *memoryStore) SignedURL(bucket, objectPath string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("http://files.test/%s/%s?ttl=%s", bucket, objectPath, ttl), nil
}

func (m *memoryStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type recordingPublisher struct {
	mu      sync.Mutex
	changes []realtime.Change
}

func (r *recordingPublisher) Publish(c realtime.Change) {
	r.mu.Lock()
	r.changes = append(r.changes, c)
	r.mu.Unlock()
}

func (r *recordingPublisher) last() realtime.Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.changes) == 0 {
		return realtime.Change{}
	}
	return r.changes[len(r.changes)-1]
}

type testEnv struct {
	db         *gorm.DB
	profiles   *repository.ProfileRepository
	teams      *repository.TeamRepository
	members    *repository.MemberRepository
	tasks      *repository.TaskRepository
	store      *memoryStore
	changes    *recordingPublisher
	roles      *RoleResolver
	tokenSvc   *TokenService
	authSvc    *AuthService
	teamSvc    *TeamService
	taskSvc    *TaskService
	boardSvc   *LeaderboardService
	messageSvc *MessageService
	exportSvc  *ExportService
}

func setupTestEnv(t *testing.T) *testEnv {
	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	env := &testEnv{
		db:       db,
		profiles: repository.NewProfileRepository(db),
		teams:    repository.NewTeamRepository(db),
		members:  repository.NewMemberRepository(db),
		tasks:    repository.NewTaskRepository(db),
		store:    newMemoryStore(),
		changes:  &recordingPublisher{},
	}
	env.roles = NewRoleResolver(env.teams, env.members, env.profiles)
	env.tokenSvc = NewTokenService(repository.NewTokenRepository(db), env.profiles, "test-secret")
	env.authSvc = NewAuthService(env.profiles, env.tokenSvc, time.Hour)
	env.authSvc.hashCost = bcrypt.MinCost
	env.teamSvc = NewTeamService(env.teams, env.members, env.profiles, env.roles, env.changes)
	env.taskSvc = NewTaskService(env.tasks, env.roles, env.store, env.changes, EvidencePolicy{MinPhotos: 3, MaxPhotos: 10})
	env.boardSvc = NewLeaderboardService(env.tasks, env.profiles, env.roles)
	env.messageSvc = NewMessageService(repository.NewMessageRepository(db), env.profiles, env.roles, env.store, env.changes)
	env.exportSvc = NewExportService(env.tasks, env.boardSvc, env.roles, "statement-key")
	return env
}

func (e *testEnv) profile(t *testing.T, name string, role models.GlobalRole) *models.Profile {
	p := &models.Profile{
		Email:        strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		PasswordHash: "unused",
		FullName:     name,
		Role:         role,
	}
	require.NoError(t, e.profiles.Create(p))
	return p
}

// team creates a team owned by owner with the given members joined as employees.
func (e *testEnv) team(t *testing.T, owner *models.Profile, members ...*models.Profile) *models.Team {
	team, err := e.teamSvc.CreateTeam(owner.ID, "Night Shift")
	require.NoError(t, err)
	for _, m := range members {
		_, err := e.teamSvc.JoinTeam(m.ID, team.ID)
		require.NoError(t, err)
	}
	return team
}

func (e *testEnv) task(t *testing.T, creator *models.Profile, team *models.Team, xp int) *models.Task {
	task, err := e.taskSvc.CreateTask(creator.ID, team.ID, CreateTaskInput{Title: "Restock shelves", XP: xp})
	require.NoError(t, err)
	return task
}

func photos(n int) []Photo {
	out := make([]Photo, n)
	for i := range out {
		out[i] = Photo{Filename: fmt.Sprintf("shot%d.JPG", i), Body: bytes.NewReader([]byte{0xff, 0xd8, byte(i)})}
	}
	return out
}

// approved drives a task through complete and approve.
func (e *testEnv) approved(t *testing.T, reviewer, worker *models.Profile, team *models.Team, xp int) *models.Task {
	task := e.task(t, reviewer, team, xp)
	_, err := e.taskSvc.Complete(context.Background(), worker.ID, task.ID, photos(3))
	require.NoError(t, err)
	task, err = e.taskSvc.Review(reviewer.ID, task.ID, models.ApprovalApproved)
	require.NoError(t, err)
	return task
}
