package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"github.com/Pokatocz/quest-and-check/internal/database"
	"github.com/Pokatocz/quest-and-check/internal/models"
)

func setupPostgres(ctx context.Context, t *testing.T) *gorm.DB {
	natPort := nat.Port("5432/tcp")

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{string(natPort)},
		Env: map[string]string{
			"POSTGRES_USER":     "quest",
			"POSTGRES_PASSWORD": "quest",
			"POSTGRES_DB":       "quest",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	testcontainers.CleanupContainer(t, container)
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mappedPort, err := container.MappedPort(ctx, natPort)
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=quest password=quest dbname=quest sslmode=disable", host, mappedPort.Port())
	db, err := database.Connect(dsn)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func TestTaskRepository_Postgres_ConcurrentReserve(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test")
	}

	db := setupPostgres(context.Background(), t)
	repo := NewTaskRepository(db)

	profiles := NewProfileRepository(db)
	var userIDs []uint
	for i := 0; i < 8; i++ {
		p := &models.Profile{
			Email:        fmt.Sprintf("worker%d@example.com", i),
			PasswordHash: "x",
			FullName:     fmt.Sprintf("Worker %d", i),
			Role:         models.RoleEmployee,
		}
		require.NoError(t, profiles.Create(p))
		userIDs = append(userIDs, p.ID)
	}
	task := createTask(t, repo, 1)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []uint
	)
	for _, userID := range userIDs {
		wg.Add(1)
		go func(userID uint) {
			defer wg.Done()
			ok, err := repo.Reserve(task.ID, userID, time.Now())
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				winners = append(winners, userID)
				mu.Unlock()
			}
		}(userID)
	}
	wg.Wait()

	require.Len(t, winners, 1)
	stored, err := repo.FindByID(task.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ReservedBy)
	assert.Equal(t, winners[0], *stored.ReservedBy)
}
