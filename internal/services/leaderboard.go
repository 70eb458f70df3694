package services

import (
	"sort"

	"github.com/Pokatocz/quest-and-check/internal/models"
	"github.com/Pokatocz/quest-and-check/internal/repository"
)

// UnknownUserName stands in for completers whose profile no longer exists.
const UnknownUserName = "Unknown"

type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	UserID      uint   `json:"user_id"`
	Name        string `json:"name"`
	TotalReward int    `json:"total_reward"`
	Bonus       int    `json:"bonus"`
}

// Rank groups countable tasks by completer and orders users by total reward.
// Equal totals keep the order in which each user first appears in tasks, and
// ranks are positional, so ties still get distinct consecutive ranks.
func Rank(tasks []models.Task, schedule models.BonusSchedule, names map[uint]string) []LeaderboardEntry {
	totals := make(map[uint]int)
	var order []uint
	for i := range tasks {
		task := &tasks[i]
		if !task.Countable() {
			continue
		}
		userID := *task.CompletedBy
		if _, seen := totals[userID]; !seen {
			order = append(order, userID)
		}
		totals[userID] += task.XP
	}

	entries := make([]LeaderboardEntry, len(order))
	for i, userID := range order {
		name, ok := names[userID]
		if !ok || name == "" {
			name = UnknownUserName
		}
		entries[i] = LeaderboardEntry{UserID: userID, Name: name, TotalReward: totals[userID]}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalReward > entries[j].TotalReward
	})

	for i := range entries {
		entries[i].Rank = i + 1
		entries[i].Bonus = schedule.For(i + 1)
	}
	return entries
}

type LeaderboardService struct {
	taskRepo    *repository.TaskRepository
	profileRepo *repository.ProfileRepository
	roles       *RoleResolver
}

func NewLeaderboardService(taskRepo *repository.TaskRepository, profileRepo *repository.ProfileRepository, roles *RoleResolver) *LeaderboardService {
	return &LeaderboardService{
		taskRepo:    taskRepo,
		profileRepo: profileRepo,
		roles:       roles,
	}
}

// Leaderboard recomputes the team's ranking from a fresh read of its approved tasks.
func (s *LeaderboardService) Leaderboard(actorID, teamID uint) ([]LeaderboardEntry, error) {
	standing, err := s.roles.Require(teamID, actorID, ActionViewTeam)
	if err != nil {
		return nil, err
	}
	return s.compute(standing.Team)
}

func (s *LeaderboardService) compute(team *models.Team) ([]LeaderboardEntry, error) {
	tasks, err := s.taskRepo.ListApproved(team.ID)
	if err != nil {
		return nil, storeErr("list approved tasks", err)
	}

	var ids []uint
	for i := range tasks {
		if tasks[i].CompletedBy != nil {
			ids = append(ids, *tasks[i].CompletedBy)
		}
	}
	names, err := s.profileRepo.DisplayNames(ids)
	if err != nil {
		return nil, storeErr("load display names", err)
	}

	return Rank(tasks, team.BonusSchedule(), names), nil
}
