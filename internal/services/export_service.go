package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/Pokatocz/quest-and-check/internal/repository"
)

// RewardStatement is a signed snapshot of one user's approved work in a team.
type RewardStatement struct {
	UserID      uint                  `json:"user_id"`
	FullName    string                `json:"full_name"`
	TeamID      uint                  `json:"team_id"`
	TeamName    string                `json:"team_name"`
	TotalReward int                   `json:"total_reward"`
	Level       int                   `json:"level"`
	Rank        int                   `json:"rank,omitempty"`
	Bonus       int                   `json:"bonus"`
	Tasks       []RewardStatementItem `json:"tasks"`
	IssuedAt    time.Time             `json:"issued_at"`
	Signature   string                `json:"signature"`
}

type RewardStatementItem struct {
	TaskID      uint       `json:"task_id"`
	Title       string     `json:"title"`
	XP          int        `json:"xp"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type ExportService struct {
	taskRepo    *repository.TaskRepository
	leaderboard *LeaderboardService
	roles       *RoleResolver
	signingKey  string
	now         func() time.Time
}

func NewExportService(taskRepo *repository.TaskRepository, leaderboard *LeaderboardService, roles *RoleResolver, signingKey string) *ExportService {
	return &ExportService{
		taskRepo:    taskRepo,
		leaderboard: leaderboard,
		roles:       roles,
		signingKey:  signingKey,
		now:         time.Now,
	}
}

func (s *ExportService) ExportStatement(userID, teamID uint) (*RewardStatement, error) {
	standing, err := s.roles.Require(teamID, userID, ActionViewTeam)
	if err != nil {
		return nil, err
	}

	tasks, err := s.taskRepo.ListApprovedForUser(teamID, userID)
	if err != nil {
		return nil, storeErr("list approved tasks", err)
	}

	items := make([]RewardStatementItem, len(tasks))
	for i, t := range tasks {
		items[i] = RewardStatementItem{
			TaskID:      t.ID,
			Title:       t.Title,
			XP:          t.XP,
			CompletedAt: t.CompletedAt,
		}
	}

	ledger := ComputeLevel(TotalReward(tasks, userID))
	statement := &RewardStatement{
		UserID:      userID,
		FullName:    standing.Profile.FullName,
		TeamID:      teamID,
		TeamName:    standing.Team.Name,
		TotalReward: ledger.TotalReward,
		Level:       ledger.Level,
		Tasks:       items,
		IssuedAt:    s.now().UTC().Truncate(time.Second),
	}

	board, err := s.leaderboard.compute(standing.Team)
	if err != nil {
		return nil, err
	}
	for _, entry := range board {
		if entry.UserID == userID {
			statement.Rank = entry.Rank
			statement.Bonus = entry.Bonus
			break
		}
	}

	signature, err := s.sign(statement)
	if err != nil {
		return nil, err
	}
	statement.Signature = signature
	return statement, nil
}

// VerifyStatement reports whether the statement's signature matches its body.
func (s *ExportService) VerifyStatement(statement *RewardStatement) (bool, error) {
	if statement == nil || statement.Signature == "" {
		return false, ErrInvalidStatement
	}

	computed, err := s.sign(statement)
	if err != nil {
		return false, err
	}
	return hmac.Equal([]byte(computed), []byte(statement.Signature)), nil
}

func (s *ExportService) sign(statement *RewardStatement) (string, error) {
	unsigned := *statement
	unsigned.Signature = ""

	data, err := json.Marshal(unsigned)
	if err != nil {
		return "", err
	}

	h := hmac.New(sha256.New, []byte(s.signingKey))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}
